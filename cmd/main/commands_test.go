package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"series-canon/src/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	extracts := filepath.Join(dir, "extracts")

	yaml := `
name: canon-cli
log_level: ERROR
storage:
  db_type: sqlite
  db_path: ` + filepath.Join(dir, "canon.db") + `
engine:
  extract_dir: ` + extracts + `
sources:
  - source_id: aqi
    window_duration: 1800
    metric: pm25
    field_mapping: {timestamp: ts, value: value}
    rules: {min_value: 0, max_value: 500}
`
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path, extracts
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := new(bytes.Buffer)
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootHelp(t *testing.T) {
	out, err := execute(t, "help")
	require.NoError(t, err)
	assert.Contains(t, out, "Available Commands")
	assert.Contains(t, out, "backfill")
	assert.Contains(t, out, "serve")
}

func TestRunAndBackfill(t *testing.T) {
	cfgPath, extracts := writeConfig(t)

	drop := filepath.Join(extracts, "aqi")
	require.NoError(t, os.MkdirAll(drop, 0o755))
	rows := "{\"ts\":\"2024-03-01T00:00:00Z\",\"value\":10}\n" +
		"{\"ts\":\"2024-03-01T00:30:00Z\",\"value\":20}\n"
	require.NoError(t, os.WriteFile(filepath.Join(drop, "001.ndjson"), []byte(rows), 0o644))

	out, err := execute(t, "--config", cfgPath, "run")
	require.NoError(t, err)

	var results map[string][]models.MRunReport
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results["aqi"], 1)
	assert.Equal(t, 2, results["aqi"][0].Inserted)
	assert.FileExists(t, filepath.Join(drop, "processed", "001.ndjson"))

	// Replace the whole day with a single corrected window.
	fix := filepath.Join(t.TempDir(), "fix.json")
	require.NoError(t, os.WriteFile(fix, []byte(`[{"ts":"2024-03-01T00:00:00Z","value":15}]`), 0o644))

	out, err = execute(t, "--config", cfgPath, "backfill",
		"--source", "aqi", "--from", "2024-03-01", "--to", "2024-03-02", "--file", fix)
	require.NoError(t, err)

	var report models.MRunReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, int64(2), report.Deleted)
	assert.Equal(t, 1, report.Inserted)
	require.Len(t, report.Aggregates, 1)
	assert.Equal(t, 15.0, report.Aggregates[0].Mean)
	assert.Equal(t, int64(1), report.Aggregates[0].WindowCount)
}

func TestRunUnknownSource(t *testing.T) {
	cfgPath, _ := writeConfig(t)

	_, err := execute(t, "--config", cfgPath, "run", "--source", "kp")
	assert.Error(t, err)
}

func TestBackfillFlags(t *testing.T) {
	cfgPath, _ := writeConfig(t)

	_, err := execute(t, "--config", cfgPath, "backfill", "--source", "aqi")
	assert.Error(t, err)

	_, err = execute(t, "--config", cfgPath, "backfill",
		"--source", "aqi", "--from", "not a date", "--to", "2024-03-02", "--file", "x.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--from")

	_, err = execute(t, "--config", cfgPath, "backfill",
		"--source", "nope", "--from", "2024-03-01", "--to", "2024-03-02", "--file", "x.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestParseRange(t *testing.T) {
	from, to, err := parseRange("2024-03-01", "2024-03-03T12:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, 3, 3, 12, 0, 0, 0, time.UTC), to)

	_, _, err = parseRange("2024-03-02", "2024-03-01")
	assert.Error(t, err)
}
