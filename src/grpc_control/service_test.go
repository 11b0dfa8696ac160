package grpc_control

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"

	"series-canon/src/analysis"
	"series-canon/src/config"
	datasource "series-canon/src/data_source"
	"series-canon/src/data_source/file"
	"series-canon/src/interfaces"
	"series-canon/src/logger"
	"series-canon/src/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

const testConfig = `
name: canon-test
sources:
  - source_id: aqi
    window_duration: 1800
    metric: pm25
    field_mapping: {timestamp: ts, value: value}
    rules: {min_value: 0, max_value: 500}
`

func startControl(t *testing.T) (*ControlClient, string) {
	t.Helper()
	log := logger.NewLoggerTo(io.Discard, nil, "test")

	cfg, err := config.Parse([]byte(testConfig))
	require.NoError(t, err)

	db := storage.NewMemoryDB(log)
	require.NoError(t, db.Initialize())
	facade := analysis.NewAnalysisFacade(cfg.MConfig, db, log)

	dir := t.TempDir()
	src := file.NewFileExtractSource(dir, "aqi", log)
	manager := datasource.NewMultiSourceManager(
		[]interfaces.IExtractSource{src}, cfg.Sources, facade, log)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	RegisterControlServer(srv, NewControlService(cfg, manager, log))
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return NewControlClient(conn), filepath.Join(dir, "aqi")
}

func TestHealth(t *testing.T) {
	client, _ := startControl(t)

	out, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", out.Fields["status"].GetStringValue())
	assert.Equal(t, "canon-test", out.Fields["name"].GetStringValue())
	require.Len(t, out.Fields["sources"].GetListValue().GetValues(), 1)
}

func TestListSources(t *testing.T) {
	client, _ := startControl(t)

	out, err := client.ListSources(context.Background())
	require.NoError(t, err)
	sources := out.Fields["sources"].GetListValue().GetValues()
	require.Len(t, sources, 1)
	desc := sources[0].GetStructValue().Fields
	assert.Equal(t, "aqi", desc["source_id"].GetStringValue())
	assert.Equal(t, 1800.0, desc["window_duration"].GetNumberValue())
}

func TestTriggerRun(t *testing.T) {
	client, dropDir := startControl(t)
	ctx := context.Background()

	require.NoError(t, os.MkdirAll(dropDir, 0o755))
	rows := "{\"ts\":\"2024-03-01T00:00:00Z\",\"value\":10}\n" +
		"{\"ts\":\"2024-03-01T00:30:00Z\",\"value\":20}\n" +
		"{\"ts\":\"2024-03-01T01:00:00Z\",\"value\":900}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dropDir, "001.ndjson"), []byte(rows), 0o644))

	out, err := client.TriggerRun(ctx, "aqi")
	require.NoError(t, err)
	assert.Equal(t, 1.0, out.Fields["runs"].GetNumberValue())

	reports := out.Fields["reports"].GetListValue().GetValues()
	require.Len(t, reports, 1)
	report := reports[0].GetStructValue().Fields
	assert.Equal(t, 3.0, report["rows_read"].GetNumberValue())
	assert.Equal(t, 2.0, report["inserted"].GetNumberValue())
	assert.Equal(t, 1.0, report["rejected"].GetStructValue().Fields["out_of_range"].GetNumberValue())

	// The extract was acknowledged, so a second trigger finds nothing.
	out, err = client.TriggerRun(ctx, "aqi")
	require.NoError(t, err)
	assert.Equal(t, 0.0, out.Fields["runs"].GetNumberValue())

	latest, err := client.LatestRuns(ctx, "aqi")
	require.NoError(t, err)
	assert.Equal(t, 2.0, latest.Fields["aqi"].GetStructValue().Fields["inserted"].GetNumberValue())
}

func TestTriggerRunErrors(t *testing.T) {
	client, _ := startControl(t)
	ctx := context.Background()

	_, err := client.TriggerRun(ctx, "")
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.TriggerRun(ctx, "unknown")
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = client.LatestRuns(ctx, "aqi")
	assert.Equal(t, codes.NotFound, status.Code(err))
}
