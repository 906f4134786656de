package core

// streaming.go provides readers that prepare a raw upload for parsing
// without loading it into memory:
//
//   - skipBOM drops a leading UTF-8 byte order mark written by Windows tools
//   - UTF8Sanitizer replaces invalid UTF-8 bytes with '?'
//   - LimitReader fails with ErrFileTooLarge past the configured size
//   - CountingReader tracks bytes read for run logging
//
// Use WrapForStreaming to apply them in the correct order.

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// skipBOM returns a reader positioned after a leading BOM, if any.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// sanitizeChunk is the number of bytes UTF8Sanitizer reads at a time.
const sanitizeChunk = 32 * 1024

// UTF8Sanitizer replaces invalid UTF-8 bytes with '?' on the fly.
// Multi-byte sequences split across reads are carried to the next read, so
// callers may pass buffers of any size.
type UTF8Sanitizer struct {
	r       io.Reader
	buf     []byte
	out     []byte
	pending []byte
	err     error
}

// NewUTF8Sanitizer wraps r.
func NewUTF8Sanitizer(r io.Reader) *UTF8Sanitizer {
	return &UTF8Sanitizer{
		r:       r,
		buf:     make([]byte, sanitizeChunk+utf8.UTFMax),
		pending: make([]byte, 0, utf8.UTFMax),
	}
}

// Read implements io.Reader.
func (s *UTF8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for len(s.out) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		s.fill()
	}
	n := copy(p, s.out)
	s.out = s.out[n:]
	return n, nil
}

// fill reads the next chunk and sanitizes it into s.out.
func (s *UTF8Sanitizer) fill() {
	n := copy(s.buf, s.pending)
	s.pending = s.pending[:0]
	m, err := s.r.Read(s.buf[n:sanitizeChunk])
	n += m
	s.err = err

	data := s.buf[:n]
	out := make([]byte, 0, n)
	for i := 0; i < len(data); {
		if data[i] < utf8.RuneSelf {
			out = append(out, data[i])
			i++
			continue
		}
		if err == nil && !utf8.FullRune(data[i:]) {
			s.pending = append(s.pending, data[i:]...)
			break
		}
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			out = append(out, '?')
			i++
			continue
		}
		out = append(out, data[i:i+size]...)
		i += size
	}
	s.out = out
}

// LimitReader fails with ErrFileTooLarge once more than Limit bytes are read.
// A non-positive limit disables the check.
type LimitReader struct {
	r     io.Reader
	limit int64
	read  int64
}

// NewLimitReader wraps r with a size limit.
func NewLimitReader(r io.Reader, limit int64) *LimitReader {
	return &LimitReader{r: r, limit: limit}
}

// Read implements io.Reader.
func (l *LimitReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.read += int64(n)
	if l.limit > 0 && l.read > l.limit {
		return n, ErrFileTooLarge
	}
	return n, err
}

// CountingReader tracks the number of bytes read.
type CountingReader struct {
	r         io.Reader
	BytesRead int64
}

// Read implements io.Reader.
func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.BytesRead += int64(n)
	return n, err
}

// WrapForStreaming applies the size limit, BOM skipping and UTF-8
// sanitization, in that order, and counts the sanitized bytes.
func WrapForStreaming(r io.Reader, limit int64) *CountingReader {
	limited := NewLimitReader(r, limit)
	return &CountingReader{r: NewUTF8Sanitizer(skipBOM(limited))}
}
