package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dfarias/escrow-etl/internal/table"
)

// ErrUnsupportedExtension means the source file format has no reader. This
// is fatal for the run: a misnamed input is an operator error, not data to
// recover from.
var ErrUnsupportedExtension = errors.New("unsupported file extension")

// Read loads a tabular source into a Table. The format is chosen by file
// extension (.csv, .xlsx, .xlsm, .xls); gs:// URIs are fetched from Cloud
// Storage first and dispatched on the object name. The first row becomes the
// column headers and empty cells become absent values.
func Read(ctx context.Context, path string) (*table.Table, error) {
	data, name, err := fetch(ctx, path)
	if err != nil {
		return nil, err
	}
	return decode(data, name)
}

func fetch(ctx context.Context, path string) ([]byte, string, error) {
	if strings.HasPrefix(path, "gs://") {
		data, err := FetchFromGCS(ctx, path)
		if err != nil {
			return nil, "", err
		}
		return data, ObjectName(path), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read source file %q: %w", path, err)
	}
	return data, path, nil
}

func decode(data []byte, name string) (*table.Table, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return readCSV(data)
	case ".xlsx", ".xlsm":
		return readXLSX(data)
	case ".xls":
		return readXLS(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedExtension, filepath.Ext(name))
	}
}

// tableFromRecords builds a Table from raw string records. The first record
// is the header row. Short records leave trailing cells absent; cells beyond
// the header width are dropped.
func tableFromRecords(records [][]string) (*table.Table, error) {
	if len(records) == 0 {
		return nil, errors.New("source file has no header row")
	}

	headers := records[0]
	t := table.New(headers...)
	for _, rec := range records[1:] {
		row := make(table.Row, len(headers))
		for i, h := range headers {
			if i >= len(rec) || strings.TrimSpace(rec[i]) == "" {
				row[h] = table.Null()
				continue
			}
			row[h] = table.String(rec[i])
		}
		t.Append(row)
	}
	return t, nil
}

// Info summarizes a source file without transforming it.
type Info struct {
	Path      string   `json:"path"`
	SizeBytes int64    `json:"size_bytes"`
	Columns   []string `json:"columns"`
	Rows      int      `json:"rows"`
}

// Inspect reads a source and reports its shape. Local paths also report the
// on-disk size; gs:// sources report the fetched byte count.
func Inspect(ctx context.Context, path string) (Info, error) {
	data, name, err := fetch(ctx, path)
	if err != nil {
		return Info{}, err
	}
	t, err := decode(data, name)
	if err != nil {
		return Info{}, err
	}
	return Info{
		Path:      path,
		SizeBytes: int64(len(data)),
		Columns:   t.Columns,
		Rows:      t.Len(),
	}, nil
}
