package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestPendingAndAck(t *testing.T) {
	root := t.TempDir()
	src := NewFileExtractSource(root, "aqi", nil)
	ctx := context.Background()

	none, err := src.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, none)

	writeFile(t, src.Dir, "b.ndjson", "{\"ts\": 1, \"value\": 1}\n\n{\"ts\": 2, \"value\": 2}\n")
	writeFile(t, src.Dir, "a.json", `[{"ts": 1, "value": 1}, {"ts": 2, "value": [1,2]}, 3]`)
	writeFile(t, src.Dir, "notes.txt", "ignored")

	pending, err := src.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	assert.Equal(t, "a.json", pending[0].Name)
	assert.Equal(t, "aqi", pending[0].Source)
	require.Len(t, pending[0].Rows, 3)
	assert.JSONEq(t, `{"ts": 2, "value": [1,2]}`, string(pending[0].Rows[1]))
	assert.Equal(t, "3", string(pending[0].Rows[2]))

	assert.Equal(t, "b.ndjson", pending[1].Name)
	require.Len(t, pending[1].Rows, 2)

	require.NoError(t, src.Ack(pending[0]))
	_, err = os.Stat(filepath.Join(src.Dir, ProcessedDir, "a.json"))
	assert.NoError(t, err)

	pending, err = src.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "b.ndjson", pending[0].Name)
}

func TestReadExtractNonArrayIsOneRow(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "one.json", `{"ts": 1, "value": 1}`)
	writeFile(t, dir, "broken.json", `[{"ts": 1,`)

	ex, err := ReadExtract("aqi", filepath.Join(dir, "one.json"))
	require.NoError(t, err)
	require.Len(t, ex.Rows, 1)

	broken, err := ReadExtract("aqi", filepath.Join(dir, "broken.json"))
	require.NoError(t, err)
	require.Len(t, broken.Rows, 1)

	_, err = ReadExtract("aqi", filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
