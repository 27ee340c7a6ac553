package dataset

import "errors"

var (
	// ErrNoHeader is returned when an input has no header row.
	ErrNoHeader = errors.New("dataset has no header row")

	// ErrMissingColumn is returned when a required column is not in the header.
	ErrMissingColumn = errors.New("column not found")

	// ErrUnsupportedFormat is returned for file extensions other than .csv and .xlsx.
	ErrUnsupportedFormat = errors.New("unsupported dataset format: expected .csv or .xlsx")
)
