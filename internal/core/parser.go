package core

// parser.go turns the first sheet of an uploaded workbook into RawRows.
//
// Supported formats are .xlsx (excelize), legacy .xls (xlsReader) and .csv.
// The format is detected from magic bytes, falling back to the file name.
// Two modes share the same header and blank-row rules:
//
//   - ParseSheet materializes every row
//   - StreamSheet yields rows lazily through a single-use iterator
//
// Row numbers follow physical position with the header as row 1, so a
// skipped blank row leaves a gap in the numbering.

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"
)

// Format identifies a spreadsheet encoding.
type Format int

const (
	FormatCSV Format = iota
	FormatXLSX
	FormatXLS
)

func (f Format) String() string {
	switch f {
	case FormatXLSX:
		return "xlsx"
	case FormatXLS:
		return "xls"
	default:
		return "csv"
	}
}

var (
	zipMagic = []byte{'P', 'K', 0x03, 0x04}
	cfbMagic = []byte{0xD0, 0xCF, 0x11, 0xE0}
)

// DetectFormat inspects the leading bytes of a file, then its extension.
func DetectFormat(head []byte, fileName string) Format {
	switch {
	case bytes.HasPrefix(head, zipMagic):
		return FormatXLSX
	case bytes.HasPrefix(head, cfbMagic):
		return FormatXLS
	}
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".xls":
		return FormatXLS
	default:
		return FormatCSV
	}
}

// rawCells reads excelize cells without number formatting so that dates
// arrive as serials and amounts without display separators.
var rawCells = excelize.Options{RawCellValue: true}

// Sheet is an eagerly parsed first sheet.
type Sheet struct {
	Name    string
	Format  Format
	Headers []string
	rows    []RawRow
}

// Rows returns the non-blank data rows in file order.
func (s *Sheet) Rows() []RawRow { return s.rows }

// ParseSheet decodes data and returns its first sheet. required lists source
// headers that must be present; a missing one fails with *MissingColumnsError.
func ParseSheet(data []byte, fileName string, required []string) (*Sheet, error) {
	format := DetectFormat(data, fileName)

	name, grid, err := readGrid(data, fileName, format)
	if err != nil {
		return nil, err
	}
	if len(grid) == 0 {
		return nil, &EmptyFileError{FileName: fileName}
	}

	idx, err := ValidateHeaders(grid[0], required)
	if err != nil {
		return nil, err
	}

	sheet := &Sheet{Name: name, Format: format, Headers: normalizeHeaders(grid[0])}
	for i, cells := range grid[1:] {
		if isBlankRow(cells) {
			continue
		}
		sheet.rows = append(sheet.rows, NewRawRow(i+2, idx, cells))
	}
	if len(sheet.rows) == 0 {
		return nil, &EmptyFileError{FileName: fileName}
	}
	return sheet, nil
}

func normalizeHeaders(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = NormalizeHeader(c)
	}
	return out
}

// readGrid returns the first sheet's name and all of its rows.
func readGrid(data []byte, fileName string, format Format) (string, [][]string, error) {
	switch format {
	case FormatXLSX:
		return readXLSX(data, fileName)
	case FormatXLS:
		return readXLS(data, fileName)
	default:
		return readCSV(data, fileName)
	}
}

func readXLSX(data []byte, fileName string) (string, [][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", nil, fmt.Errorf("open xlsx %s: %w", fileName, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", nil, &NoSheetError{FileName: fileName}
	}
	rows, err := f.GetRows(sheets[0], rawCells)
	if err != nil {
		return "", nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return sheets[0], rows, nil
}

// readXLS loads a legacy workbook. xlsReader only opens paths, so the bytes
// go through a temp file.
func readXLS(data []byte, fileName string) (string, [][]string, error) {
	tmp, err := os.CreateTemp("", "reportload-*.xls")
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	book, err := xls.OpenFile(tmp.Name())
	if err != nil {
		return "", nil, fmt.Errorf("open xls %s: %w", fileName, err)
	}
	sheet, err := book.GetSheet(0)
	if err != nil || sheet == nil {
		return "", nil, &NoSheetError{FileName: fileName}
	}

	var grid [][]string
	for _, row := range sheet.GetRows() {
		cols := row.GetCols()
		cells := make([]string, 0, len(cols))
		for _, c := range cols {
			cells = append(cells, c.GetString())
		}
		grid = append(grid, cells)
	}
	return sheet.GetName(), grid, nil
}

func readCSV(data []byte, fileName string) (string, [][]string, error) {
	next := csvCursor(newCSVReader(WrapForStreaming(bytes.NewReader(data), 0)), fileName)
	var grid [][]string
	for {
		cells, ok, err := next()
		if err != nil {
			return "", nil, err
		}
		if !ok {
			break
		}
		grid = append(grid, cells)
	}
	return strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName)), grid, nil
}

func newCSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false
	return cr
}

// csvCursor reads records from cr and yields an empty row for every line
// encoding/csv skipped after the header, so row positions match the line
// each record starts on, as they do for spreadsheets.
func csvCursor(cr *csv.Reader, fileName string) rowCursor {
	var (
		line   int // start line of the last record yielded; 0 before the header
		held   []string
		heldAt int
	)
	return func() ([]string, bool, error) {
		if held == nil {
			cells, err := cr.Read()
			if errors.Is(err, io.EOF) {
				return nil, false, nil
			}
			if err != nil {
				return nil, false, fmt.Errorf("invalid csv %s: %w", fileName, err)
			}
			held = cells
			heldAt, _ = cr.FieldPos(0)
		}
		if line > 0 && line+1 < heldAt {
			line++
			return []string{}, true, nil
		}
		cells := held
		held, line = nil, heldAt
		return cells, true, nil
	}
}

// rowCursor returns the next physical row. ok is false at the end.
type rowCursor func() (cells []string, ok bool, err error)

// SheetStream is a lazily read first sheet.
type SheetStream struct {
	Name    string
	Format  Format
	Headers []string

	index   HeaderIndex
	next    rowCursor
	first   RawRow
	number  int
	closers []func() error

	mu       sync.Mutex
	consumed bool
}

// StreamSheet opens r and positions it on the first data row, so header
// problems and empty files are reported before any row is yielded.
// limit bounds the bytes read from r; zero disables it.
func StreamSheet(r io.Reader, fileName string, required []string, limit int64) (*SheetStream, error) {
	limited := NewLimitReader(r, limit)
	br := bufio.NewReader(limited)
	head, _ := br.Peek(len(zipMagic))
	format := DetectFormat(head, fileName)

	s := &SheetStream{Format: format}
	var err error
	switch format {
	case FormatXLSX:
		err = s.openXLSX(br, fileName)
	case FormatXLS:
		err = s.openXLS(br, fileName)
	default:
		s.Name = strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
		s.next = csvCursor(newCSVReader(WrapForStreaming(br, 0)), fileName)
	}
	if err != nil {
		s.Close()
		return nil, err
	}

	header, ok, err := s.next()
	if err != nil {
		s.Close()
		return nil, err
	}
	if !ok {
		s.Close()
		return nil, &EmptyFileError{FileName: fileName}
	}
	s.number = 1

	idx, err := ValidateHeaders(header, required)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.index = idx
	s.Headers = normalizeHeaders(header)

	first, ok, err := s.advance()
	if err != nil {
		s.Close()
		return nil, err
	}
	if !ok {
		s.Close()
		return nil, &EmptyFileError{FileName: fileName}
	}
	s.first = first
	return s, nil
}

func (s *SheetStream) openXLSX(r io.Reader, fileName string) error {
	f, err := excelize.OpenReader(r)
	if err != nil {
		if errors.Is(err, ErrFileTooLarge) {
			return err
		}
		return fmt.Errorf("open xlsx %s: %w", fileName, err)
	}
	s.closers = append(s.closers, f.Close)

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &NoSheetError{FileName: fileName}
	}
	s.Name = sheets[0]

	rows, err := f.Rows(sheets[0])
	if err != nil {
		return fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	s.closers = append(s.closers, rows.Close)
	s.next = func() ([]string, bool, error) {
		if !rows.Next() {
			return nil, false, rows.Error()
		}
		cells, err := rows.Columns(rawCells)
		if err != nil {
			return nil, false, err
		}
		return cells, true, nil
	}
	return nil
}

// openXLS has no incremental reader available, so the grid is loaded and
// iterated from memory.
func (s *SheetStream) openXLS(r io.Reader, fileName string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	name, grid, err := readXLS(data, fileName)
	if err != nil {
		return err
	}
	s.Name = name
	pos := 0
	s.next = func() ([]string, bool, error) {
		if pos >= len(grid) {
			return nil, false, nil
		}
		pos++
		return grid[pos-1], true, nil
	}
	return nil
}

// advance returns the next non-blank data row.
func (s *SheetStream) advance() (RawRow, bool, error) {
	for {
		cells, ok, err := s.next()
		if err != nil || !ok {
			return RawRow{}, false, err
		}
		s.number++
		if isBlankRow(cells) {
			continue
		}
		return NewRawRow(s.number, s.index, cells), true, nil
	}
}

// Rows yields the data rows in file order. It can be ranged over once; a
// second call yields ErrStreamConsumed. The stream is closed when iteration
// ends or the consumer stops early.
func (s *SheetStream) Rows() iter.Seq2[RawRow, error] {
	return func(yield func(RawRow, error) bool) {
		s.mu.Lock()
		if s.consumed {
			s.mu.Unlock()
			yield(RawRow{}, ErrStreamConsumed)
			return
		}
		s.consumed = true
		s.mu.Unlock()
		defer s.Close()

		if !yield(s.first, nil) {
			return
		}
		for {
			row, ok, err := s.advance()
			if err != nil {
				yield(RawRow{}, err)
				return
			}
			if !ok {
				return
			}
			if !yield(row, nil) {
				return
			}
		}
	}
}

// Close releases the underlying workbook. It is safe to call more than once.
func (s *SheetStream) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	return errors.Join(errs...)
}
