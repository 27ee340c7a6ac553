package dataset

import (
	"fmt"
	"io"

	"github.com/nao1215/surveytriage/internal/model"
	"github.com/xuri/excelize/v2"
)

// DefaultSheet is the sheet written by WriteXLSX.
const DefaultSheet = "Sheet1"

// ReadXLSX reads the named sheet of a workbook. An empty sheet name reads
// the first sheet.
func ReadXLSX(r io.Reader, sheet string) (*model.Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, ErrNoHeader
	}
	return model.NewDataset(rows[0], rows[1:]), nil
}

// WriteXLSX writes ds to a single-sheet workbook.
func WriteXLSX(w io.Writer, ds *model.Dataset) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := writeRow(f, 1, ds.Header); err != nil {
		return err
	}
	for i, row := range ds.Rows {
		if err := writeRow(f, i+2, row); err != nil {
			return err
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, rowNum int, values []string) error {
	if len(values) == 0 {
		return nil
	}
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("invalid cell for row %d: %w", rowNum, err)
	}
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = v
	}
	if err := f.SetSheetRow(DefaultSheet, cell, &row); err != nil {
		return fmt.Errorf("failed to write row %d: %w", rowNum, err)
	}
	return nil
}
