package core

// convert.go provides conversion functions for spreadsheet cell values.
//
// These functions handle the messy reality of exported brokerage reports:
//   - Multiple date formats (day-first, ISO, month names, Excel serials)
//   - Currency symbols, lakh/thousand separators and accounting negatives
//   - Various boolean representations (yes/no, true/false, 1/0)
//   - Excel formula prefixes (="value")
//
// Amounts follow a parse-or-zero policy. Optional dates become nil when they
// cannot be parsed; required dates fall back to DateSentinel.

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// serialRegex matches an Excel serial date such as "45292" or "45292.5".
var serialRegex = regexp.MustCompile(`^\d{4,5}(\.\d+)?$`)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would land more than this many years in the future are assumed
// to be in the previous century.
var TwoDigitYearPivot = 20

// DateSentinel replaces an unparseable required date.
var DateSentinel = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

// Date layouts split by year format for proper 2-digit year handling.
// Slash and dash numeric dates are read day-first.
var (
	twoDigitYearLayouts = []string{
		"02-Jan-06", "2-Jan-06", "02/01/06", "2/1/06", "02-01-06", "2-1-06", "02.01.06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006-01-02T15:04:05", "2006-01-02 15:04:05",
		"02-Jan-2006", "2-Jan-2006", "02 Jan 2006", "2 Jan 2006", "Jan 2, 2006",
		"02/01/2006", "2/1/2006", "02-01-2006", "2-1-2006", "02.01.2006",
		"02/01/2006 15:04:05", "02-01-2006 15:04:05", "02-Jan-2006 15:04:05",
		"20060102",
	}
)

// excelEpoch is day zero for Excel's 1900 date system.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// CleanCell removes common spreadsheet artifacts from a cell value:
// - Trims whitespace (including non-breaking spaces)
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", " "))

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	s = strings.Trim(s, `"'`)
	return strings.TrimSpace(s)
}

// NormalizeHeader trims and lower-cases a header name.
func NormalizeHeader(s string) string {
	return strings.ToLower(CleanCell(s))
}

// NormalizeID trims and upper-cases an identifier such as a client id or ISIN.
func NormalizeID(s string) string {
	return strings.ToUpper(CleanCell(s))
}

// ParseAmount parses a monetary or numeric cell, returning zero when the
// value is empty or not a number.
func ParseAmount(s string) decimal.Decimal {
	d, ok := parseDecimal(s)
	if !ok {
		return decimal.Zero
	}
	return d
}

// ParseAmountStrict parses a numeric cell and reports whether it was valid.
func ParseAmountStrict(s string) (decimal.Decimal, bool) {
	return parseDecimal(s)
}

func parseDecimal(s string) (decimal.Decimal, bool) {
	s = CleanCell(s)
	if s == "" || s == "-" {
		return decimal.Zero, false
	}

	// Accounting negative "(123.45)" and trailing "Cr"/"Dr" markers
	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	upper := strings.ToUpper(s)
	switch {
	case strings.HasSuffix(upper, "DR"):
		isNegative = !isNegative
		s = strings.TrimSpace(s[:len(s)-2])
	case strings.HasSuffix(upper, "CR"):
		s = strings.TrimSpace(s[:len(s)-2])
	}

	for _, sym := range []string{"\u20b9", "Rs.", "Rs", "INR", "$", "\u20ac", "\u00a3", ",", " "} {
		s = strings.ReplaceAll(s, sym, "")
	}
	if isNegative {
		s = "-" + strings.TrimPrefix(s, "-")
	}

	if !numericRegex.MatchString(s) {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParseInt parses an integer cell, returning zero on failure.
func ParseInt(s string) int64 {
	d, ok := parseDecimal(s)
	if !ok {
		return 0
	}
	return d.IntPart()
}

// ParseDate parses a date cell in any supported layout, including Excel
// serial numbers. The result is truncated to a UTC calendar date.
func ParseDate(s string) (time.Time, bool) {
	s = CleanCell(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return dateOnly(t), true
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return dateOnly(t), true
		}
	}

	if serialRegex.MatchString(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 61 {
			return dateOnly(excelEpoch.AddDate(0, 0, int(f))), true
		}
	}

	return time.Time{}, false
}

// DateOrNil parses an optional date; unparseable input yields nil.
func DateOrNil(s string) *time.Time {
	t, ok := ParseDate(s)
	if !ok {
		return nil
	}
	return &t
}

// ParseRequiredDate parses a required date; unparseable input yields DateSentinel.
func ParseRequiredDate(s string) time.Time {
	t, ok := ParseDate(s)
	if !ok {
		return DateSentinel
	}
	return t
}

// DateKey formats t as a canonical YYYY-MM-DD string.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseBool accepts true/false, yes/no, t/f, y/n, 1/0, active/inactive.
// The second result is false when the value is not recognized.
func ParseBool(s string) (bool, bool) {
	switch strings.ToLower(CleanCell(s)) {
	case "true", "t", "yes", "y", "1", "active":
		return true, true
	case "false", "f", "no", "n", "0", "inactive":
		return false, true
	default:
		return false, false
	}
}

// FinancialYear returns the April to March financial year containing t,
// formatted as "2026-27".
func FinancialYear(t time.Time) string {
	start := t.Year()
	if t.Month() < time.April {
		start--
	}
	return fmt.Sprintf("%d-%02d", start, (start+1)%100)
}

// NullIfEmpty returns nil for an empty string so the column is stored as NULL.
func NullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
