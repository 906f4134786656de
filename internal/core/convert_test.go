package core

import (
	"testing"
	"time"
)

// ----------------------------------------------------------------------------
// ParseAmount Tests
// ----------------------------------------------------------------------------

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		valid bool
	}{
		{"positive integer", "123", "123", true},
		{"negative decimal", "-456.5", "-456.5", true},
		{"leading decimal point", ".99", "0.99", true},
		{"trailing decimal point", "99.", "99", true},
		{"rupee symbol with lakh separators", "₹1,23,456.78", "123456.78", true},
		{"Rs prefix", "Rs. 2,500", "2500", true},
		{"INR prefix", "INR 10", "10", true},
		{"dollar symbol", "$1,000.50", "1000.5", true},
		{"accounting negative", "(1,000)", "-1000", true},
		{"debit marker", "500 Dr", "-500", true},
		{"credit marker", "500 Cr", "500", true},
		{"scientific notation", "1.5e3", "1500", true},
		{"excel formula prefix", `="42"`, "42", true},
		{"non-breaking spaces", " 12 ", "12", true},
		{"empty", "", "0", false},
		{"dash placeholder", "-", "0", false},
		{"letters", "abc", "0", false},
		{"two decimal points", "1.2.3", "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseAmountStrict(tt.input)
			if ok != tt.valid {
				t.Errorf("ParseAmountStrict(%q) ok = %v, want %v", tt.input, ok, tt.valid)
			}
			if got.String() != tt.want {
				t.Errorf("ParseAmountStrict(%q) = %s, want %s", tt.input, got, tt.want)
			}
			if lax := ParseAmount(tt.input); lax.String() != tt.want {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.input, lax, tt.want)
			}
		})
	}
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"1,200", 1200},
		{"15.9", 15},
		{"(30)", -30},
		{"n/a", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := ParseInt(tt.input); got != tt.want {
			t.Errorf("ParseInt(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

// ----------------------------------------------------------------------------
// ParseDate Tests
// ----------------------------------------------------------------------------

func TestParseDate(t *testing.T) {
	date := func(y int, m time.Month, d int) time.Time {
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}

	tests := []struct {
		name  string
		input string
		want  time.Time
		valid bool
	}{
		{"ISO", "2026-04-01", date(2026, 4, 1), true},
		{"ISO with time", "2026-04-01 15:30:00", date(2026, 4, 1), true},
		{"ISO slash", "2026/04/01", date(2026, 4, 1), true},
		{"day first slash", "15/03/2024", date(2024, 3, 15), true},
		{"day first ambiguous", "02/03/2024", date(2024, 3, 2), true},
		{"day first single digits", "2/3/2024", date(2024, 3, 2), true},
		{"day first dash", "15-03-2024", date(2024, 3, 15), true},
		{"day first dot", "15.03.2024", date(2024, 3, 15), true},
		{"month name", "15-Mar-2024", date(2024, 3, 15), true},
		{"month name spaced", "5 Mar 2024", date(2024, 3, 5), true},
		{"US long form", "Mar 5, 2024", date(2024, 3, 5), true},
		{"compact", "20240315", date(2024, 3, 15), true},
		{"two digit year", "15/03/24", date(2024, 3, 15), true},
		{"two digit year month name", "15-Mar-24", date(2024, 3, 15), true},
		{"excel serial", "45292", date(2024, 1, 1), true},
		{"excel serial with fraction", "45292.75", date(2024, 1, 1), true},
		{"excel formula wrapped", `="2026-04-01"`, date(2026, 4, 1), true},
		{"empty", "", time.Time{}, false},
		{"garbage", "not a date", time.Time{}, false},
		{"invalid day", "32/01/2024", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.input)
			if ok != tt.valid {
				t.Fatalf("ParseDate(%q) ok = %v, want %v", tt.input, ok, tt.valid)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseDate_TwoDigitYearPivot(t *testing.T) {
	orig := TwoDigitYearPivot
	defer func() { TwoDigitYearPivot = orig }()

	TwoDigitYearPivot = 5
	limit := time.Now().Year() + 5

	got, ok := ParseDate("01/01/60")
	if !ok {
		t.Fatal("ParseDate failed")
	}
	if got.Year() > limit {
		t.Errorf("year %d is past the pivot limit %d", got.Year(), limit)
	}
	if got.Year() != 1960 && got.Year() != 2060 {
		t.Errorf("unexpected century: %d", got.Year())
	}
}

func TestDateHelpers(t *testing.T) {
	if got := DateOrNil("garbage"); got != nil {
		t.Errorf("DateOrNil(garbage) = %v, want nil", got)
	}
	if got := DateOrNil("01/04/2026"); got == nil || DateKey(*got) != "2026-04-01" {
		t.Errorf("DateOrNil(01/04/2026) = %v", got)
	}
	if got := ParseRequiredDate(""); !got.Equal(DateSentinel) {
		t.Errorf("ParseRequiredDate(\"\") = %v, want sentinel", got)
	}
}

// ----------------------------------------------------------------------------
// ParseBool Tests
// ----------------------------------------------------------------------------

func TestParseBool(t *testing.T) {
	tests := []struct {
		input string
		want  bool
		valid bool
	}{
		{"true", true, true},
		{"TRUE", true, true},
		{"Yes", true, true},
		{"y", true, true},
		{"1", true, true},
		{"Active", true, true},
		{"false", false, true},
		{"No", false, true},
		{"0", false, true},
		{"inactive", false, true},
		{" t ", true, true},
		{"", false, false},
		{"maybe", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseBool(tt.input)
			if got != tt.want || ok != tt.valid {
				t.Errorf("ParseBool(%q) = (%v, %v), want (%v, %v)", tt.input, got, ok, tt.want, tt.valid)
			}
		})
	}
}

// ----------------------------------------------------------------------------
// FinancialYear Tests
// ----------------------------------------------------------------------------

func TestFinancialYear(t *testing.T) {
	tests := []struct {
		date time.Time
		want string
	}{
		{time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), "2026-27"},
		{time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC), "2026-27"},
		{time.Date(2027, 3, 31, 0, 0, 0, 0, time.UTC), "2026-27"},
		{time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC), "2025-26"},
		{time.Date(2099, 6, 1, 0, 0, 0, 0, time.UTC), "2099-00"},
	}
	for _, tt := range tests {
		if got := FinancialYear(tt.date); got != tt.want {
			t.Errorf("FinancialYear(%s) = %q, want %q", DateKey(tt.date), got, tt.want)
		}
	}
}

// ----------------------------------------------------------------------------
// Cell and header cleanup Tests
// ----------------------------------------------------------------------------

func TestCleanCell(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "abc", "abc"},
		{"whitespace", "  abc  ", "abc"},
		{"non-breaking spaces", " abc ", "abc"},
		{"excel string formula", `="00123"`, "00123"},
		{"excel formula", "=SUM", "SUM"},
		{"double quotes", `"abc"`, "abc"},
		{"single quotes", "'abc'", "abc"},
		{"quoted with inner spaces", `" abc "`, "abc"},
		{"empty", "", ""},
		{"only spaces", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanCell(tt.input); got != tt.want {
				t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeHeaderAndID(t *testing.T) {
	if got := NormalizeHeader(`  "Client_ID" `); got != "client_id" {
		t.Errorf("NormalizeHeader = %q", got)
	}
	if got := NormalizeID(" in0001a01234 "); got != "IN0001A01234" {
		t.Errorf("NormalizeID = %q", got)
	}
}

func TestNullIfEmpty(t *testing.T) {
	if got := NullIfEmpty(""); got != nil {
		t.Errorf("NullIfEmpty(\"\") = %v, want nil", got)
	}
	if got := NullIfEmpty("x"); got != "x" {
		t.Errorf("NullIfEmpty(x) = %v, want x", got)
	}
}

// ----------------------------------------------------------------------------
// MakeHeaderIndex Tests
// ----------------------------------------------------------------------------

func TestMakeHeaderIndex(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		checks map[string]int
	}{
		{
			name:   "simple headers",
			header: []string{"CLIENT_ID", "CLIENT_NAME", "Financial"},
			checks: map[string]int{"client_id": 0, "client_name": 1, "financial": 2},
		},
		{
			name:   "headers with quotes and whitespace",
			header: []string{` "Client_ID" `, "  Name  "},
			checks: map[string]int{"client_id": 0, "name": 1},
		},
		{
			name:   "headers with Excel formula",
			header: []string{`="ISIN"`, `="Qty"`},
			checks: map[string]int{"isin": 0, "qty": 1},
		},
		{
			name:   "blank headers skipped",
			header: []string{"", "A", " "},
			checks: map[string]int{"a": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := MakeHeaderIndex(tt.header)
			if len(idx) != len(tt.checks) {
				t.Errorf("len = %d, want %d", len(idx), len(tt.checks))
			}
			for key, wantPos := range tt.checks {
				if gotPos, ok := idx[key]; !ok || gotPos != wantPos {
					t.Errorf("MakeHeaderIndex(%v)[%q] = %d, %v; want %d", tt.header, key, gotPos, ok, wantPos)
				}
			}
		})
	}
}

func TestMakeHeaderIndex_DuplicateHeaders(t *testing.T) {
	idx := MakeHeaderIndex([]string{"Name", "Email", "NAME"})
	if gotPos := idx["name"]; gotPos != 0 {
		t.Errorf("name index = %d, want first occurrence 0", gotPos)
	}
}

// ----------------------------------------------------------------------------
// Row mapping Tests
// ----------------------------------------------------------------------------

func TestMapRow(t *testing.T) {
	idx := MakeHeaderIndex([]string{"CLIENT_ID", "CLIENT_NAME"})
	cols := []Column{
		{Source: "CLIENT_ID", Field: "client_id", Required: true},
		{Source: "CLIENT_NAME", Field: "client_name"},
		{Source: "BRANCH", Field: "branch_id"},
	}

	mapped, errs := MapRow(NewRawRow(2, idx, []string{" c1 ", "Asha"}), cols)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if mapped.Number != 2 || mapped.Get("client_id") != "c1" || mapped.Get("client_name") != "Asha" {
		t.Errorf("mapped = %+v", mapped.Fields())
	}
	if mapped.Has("branch_id") {
		t.Error("absent optional column should be empty")
	}

	_, errs = MapRow(NewRawRow(5, idx, []string{""}), cols)
	if len(errs) != 1 || errs[0].Row != 5 || errs[0].Message != "`CLIENT_ID` is required" {
		t.Errorf("errs = %v", errs)
	}
}
