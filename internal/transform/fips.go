// Package transform provides FIPS county code helpers shared by the
// cleaning stage and the HTTP API.
package transform

import (
	"fmt"
	"strings"
)

// CombineFIPS derives a county FIPS code by concatenating the trimmed state
// and county sub-codes exactly as they appear in the source table.
// Returns "" when either sub-code is empty.
func CombineFIPS(state, county string) string {
	s := strings.TrimSpace(state)
	c := strings.TrimSpace(county)
	if s == "" || c == "" {
		return ""
	}
	return s + c
}

// PadFIPS zero-pads a county FIPS code to 5 digits. Used to normalize
// lookup keys arriving from outside the pipeline (e.g., API paths where
// a leading zero was dropped).
func PadFIPS(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	for len(code) < 5 {
		code = "0" + code
	}
	return code
}

// FormatFIPS formats a numeric FIPS code with proper zero-padding.
func FormatFIPS(code int, digits int) string {
	return fmt.Sprintf("%0*d", digits, code)
}
