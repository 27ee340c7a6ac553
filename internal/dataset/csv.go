package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/surveytriage/internal/model"
)

// ReadCSV reads a CSV export. Rows may have fewer or more cells than the
// header; they are padded or truncated to the header width.
func ReadCSV(r io.Reader) (*model.Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	var rows [][]string
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(rows)+2, err)
		}
		rows = append(rows, row)
	}
	return model.NewDataset(header, rows), nil
}

// WriteCSV writes ds as CSV with a header row.
func WriteCSV(w io.Writer, ds *model.Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ds.Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := cw.WriteAll(ds.Rows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return nil
}

// ReadFile reads a .csv or .xlsx file, chosen by extension.
func ReadFile(path string) (*model.Dataset, error) {
	format, err := formatOf(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if format == formatXLSX {
		return ReadXLSX(f, "")
	}
	return ReadCSV(f)
}

// WriteFile writes ds to a .csv or .xlsx file, chosen by extension.
func WriteFile(path string, ds *model.Dataset) (err error) {
	format, err := formatOf(path)
	if err != nil {
		return err
	}

	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	if format == formatXLSX {
		return WriteXLSX(f, ds)
	}
	return WriteCSV(f, ds)
}

const (
	formatCSV  = "csv"
	formatXLSX = "xlsx"
)

func formatOf(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return formatCSV, nil
	case ".xlsx":
		return formatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}
