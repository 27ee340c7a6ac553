// Package main provides the entry point for the surveytriage CLI.
//
// surveytriage prepares GOV.UK feedback survey exports for classification.
// It removes personal information from free-text comments and enriches every
// response with metadata about the page it was submitted from.
//
// Usage:
//
//	surveytriage clean responses.csv
//	surveytriage classify /browse/tax/vat
//	surveytriage scrub "call me on 07911 123456"
//	surveytriage serve
//
// See --help for all available options.
package main

// main is the entry point for surveytriage.
func main() {
	Execute()
}
