package file

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"series-canon/src/logger"
	"series-canon/src/models"

	"github.com/tidwall/gjson"
)

// ProcessedDir is where acknowledged extracts are moved, relative to the
// source's drop folder.
const ProcessedDir = "processed"

// FileExtractSource reads extracts dropped as files into
// <extract_dir>/<source_id>/. A *.json file holds a JSON array of rows
// (any other JSON document is a single row); a *.ndjson file holds one row
// per line.
type FileExtractSource struct {
	SourceID string
	Dir      string
	Logger   *logger.Logger
}

// -----------------------------------------------------------------------------

func NewFileExtractSource(extractDir, sourceID string, log *logger.Logger) *FileExtractSource {
	return &FileExtractSource{
		SourceID: sourceID,
		Dir:      filepath.Join(extractDir, sourceID),
		Logger:   log,
	}
}

// -----------------------------------------------------------------------------

func (s *FileExtractSource) Name() string {
	return s.SourceID
}

// -----------------------------------------------------------------------------

// Pending returns every unacknowledged extract file, ordered by file name.
// A missing drop folder means nothing is pending.
func (s *FileExtractSource) Pending(ctx context.Context) ([]models.MRawExtract, error) {
	entries, err := os.ReadDir(s.Dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list extracts of %s: %w", s.SourceID, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !isExtractFile(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	extracts := make([]models.MRawExtract, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ex, err := ReadExtract(s.SourceID, filepath.Join(s.Dir, name))
		if err != nil {
			return nil, err
		}
		extracts = append(extracts, ex)
	}
	return extracts, nil
}

// -----------------------------------------------------------------------------

// Ack moves the extract file into the processed folder.
func (s *FileExtractSource) Ack(extract models.MRawExtract) error {
	dst := filepath.Join(s.Dir, ProcessedDir)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}
	if err := os.Rename(filepath.Join(s.Dir, extract.Name), filepath.Join(dst, extract.Name)); err != nil {
		return fmt.Errorf("ack %s/%s: %w", s.SourceID, extract.Name, err)
	}
	if s.Logger != nil {
		s.Logger.Debug("Acked extract %s/%s", s.SourceID, extract.Name)
	}
	return nil
}

// -----------------------------------------------------------------------------

// ReadExtract loads one extract file for source.
func ReadExtract(source, path string) (models.MRawExtract, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.MRawExtract{}, fmt.Errorf("read extract %s: %w", path, err)
	}

	var rows [][]byte
	if strings.EqualFold(filepath.Ext(path), ".ndjson") {
		rows, err = splitLines(data)
		if err != nil {
			return models.MRawExtract{}, fmt.Errorf("read extract %s: %w", path, err)
		}
	} else {
		rows = splitArray(data)
	}

	return models.MRawExtract{Source: source, Name: filepath.Base(path), Rows: rows}, nil
}

// -----------------------------------------------------------------------------

func isExtractFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".ndjson":
		return true
	}
	return false
}

// -----------------------------------------------------------------------------

func splitLines(data []byte) ([][]byte, error) {
	var rows [][]byte
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		rows = append(rows, append([]byte(nil), line...))
	}
	return rows, sc.Err()
}

// -----------------------------------------------------------------------------

func splitArray(data []byte) [][]byte {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}

	doc := gjson.ParseBytes(trimmed)
	if !doc.IsArray() || !gjson.ValidBytes(trimmed) {
		// Not an array: hand it over as one row; the normalizer decides.
		return [][]byte{trimmed}
	}

	var rows [][]byte
	doc.ForEach(func(_, value gjson.Result) bool {
		rows = append(rows, []byte(value.Raw))
		return true
	})
	return rows
}
