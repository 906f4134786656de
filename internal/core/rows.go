package core

import "strings"

// HeaderIndex maps a normalized header name to its column position.
type HeaderIndex map[string]int

// MakeHeaderIndex creates a HeaderIndex from a header row.
// Keys are normalized with NormalizeHeader for case-insensitive matching.
// When a header repeats, the first occurrence wins.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := NormalizeHeader(h)
		if key == "" {
			continue
		}
		if _, dup := idx[key]; !dup {
			idx[key] = i
		}
	}
	return idx
}

// RawRow is one physical data row keyed by normalized header.
// Number is 1-based with the header counted as row 1.
type RawRow struct {
	Number int
	index  HeaderIndex
	cells  []string
}

// NewRawRow builds a RawRow from a header index and its cells.
func NewRawRow(number int, index HeaderIndex, cells []string) RawRow {
	return RawRow{Number: number, index: index, cells: cells}
}

// Get returns the cleaned value under header and whether the header exists.
// Short rows read as empty for trailing columns.
func (r RawRow) Get(header string) (string, bool) {
	pos, ok := r.index[NormalizeHeader(header)]
	if !ok {
		return "", false
	}
	if pos >= len(r.cells) {
		return "", true
	}
	return CleanCell(r.cells[pos]), true
}

// Len returns the number of cells in the row.
func (r RawRow) Len() int { return len(r.cells) }

// isBlankRow reports whether every cell is empty or whitespace.
func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// MappedRow is a RawRow renamed to target field names. Only declared
// fields are present.
type MappedRow struct {
	Number int
	fields map[string]string
}

// NewMappedRow builds a MappedRow directly from target fields.
func NewMappedRow(number int, fields map[string]string) MappedRow {
	cp := make(map[string]string, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return MappedRow{Number: number, fields: cp}
}

// Get returns the value of a target field, or "" if absent.
func (m MappedRow) Get(field string) string {
	return m.fields[field]
}

// Has reports whether the field carries a non-empty value.
func (m MappedRow) Has(field string) bool {
	return m.fields[field] != ""
}

// Fields returns a copy of the row's fields.
func (m MappedRow) Fields() map[string]string {
	cp := make(map[string]string, len(m.fields))
	for k, v := range m.fields {
		cp[k] = v
	}
	return cp
}

// MapRow renames raw to the declared target fields. A required column
// that is absent or empty yields a row error; the returned row is then
// excluded from persistence by the caller.
func MapRow(raw RawRow, cols []Column) (MappedRow, []RowError) {
	out := MappedRow{Number: raw.Number, fields: make(map[string]string, len(cols))}
	var errs []RowError

	for _, c := range cols {
		v, _ := raw.Get(c.Source)
		if v == "" && c.Required {
			errs = append(errs, RowError{Row: raw.Number, Message: "`" + c.Source + "` is required"})
			continue
		}
		out.fields[c.Field] = v
	}
	return out, errs
}
