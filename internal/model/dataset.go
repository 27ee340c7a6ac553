package model

import "slices"

// Dataset is a survey export held in memory: a header row and string rows.
// Empty cells are absent values.
type Dataset struct {
	// Header contains the column names in file order.
	Header []string `json:"header"`

	// Rows contains the cell values. Every row has len(Header) cells.
	Rows [][]string `json:"rows"`
}

// NewDataset creates a Dataset, padding or truncating rows to the header width.
func NewDataset(header []string, rows [][]string) *Dataset {
	ds := &Dataset{
		Header: append([]string(nil), header...),
		Rows:   make([][]string, 0, len(rows)),
	}
	for _, row := range rows {
		ds.Rows = append(ds.Rows, fitRow(row, len(header)))
	}
	return ds
}

// ColumnIndex returns the index of the named column or -1.
func (d *Dataset) ColumnIndex(name string) int {
	return slices.Index(d.Header, name)
}

// Column returns a copy of the values of the named column.
// It returns nil when the column does not exist.
func (d *Dataset) Column(name string) []string {
	idx := d.ColumnIndex(name)
	if idx < 0 {
		return nil
	}
	out := make([]string, len(d.Rows))
	for i, row := range d.Rows {
		out[i] = row[idx]
	}
	return out
}

// SetColumn replaces the values of the named column, appending the column
// when it does not exist yet. values must have one entry per row.
func (d *Dataset) SetColumn(name string, values []string) {
	idx := d.ColumnIndex(name)
	if idx < 0 {
		d.Header = append(d.Header, name)
		for i := range d.Rows {
			d.Rows[i] = append(d.Rows[i], "")
		}
		idx = len(d.Header) - 1
	}
	for i := range d.Rows {
		if i < len(values) {
			d.Rows[i][idx] = values[i]
		}
	}
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.Rows)
}

func fitRow(row []string, width int) []string {
	out := make([]string, width)
	copy(out, row)
	return out
}
