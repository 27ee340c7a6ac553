// Package dataset reads and writes survey exports and joins URL records onto them.
//
// Exports are CSV or XLSX files with a header row. Empty cells are absent
// values: they are not looked up and pass through the scrubber untouched.
package dataset
