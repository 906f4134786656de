package core

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

func TestSkipBOM(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{"file with BOM", append([]byte{0xEF, 0xBB, 0xBF}, []byte("hello,world")...), "hello,world"},
		{"file without BOM", []byte("hello,world"), "hello,world"},
		{"empty file", []byte{}, ""},
		{"only BOM", []byte{0xEF, 0xBB, 0xBF}, ""},
		{"partial BOM at start", []byte{0xEF, 0xBB, 'a', 'b', 'c'}, string([]byte{0xEF, 0xBB, 'a', 'b', 'c'})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := io.ReadAll(skipBOM(bytes.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", string(result), tt.expected)
			}
		})
	}
}

func TestUTF8Sanitizer(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{"valid ASCII", []byte("hello,world"), "hello,world"},
		{"valid multibyte", []byte("₹ 1,200 – Müller"), "₹ 1,200 – Müller"},
		{"invalid single byte replaced", []byte{'h', 'e', 0x80, 'l', 'o'}, "he?lo"},
		{"latin-1 byte replaced", []byte("caf\xe9,1"), "caf?,1"},
		{"truncated rune at EOF", []byte("a\xe2\x82"), "a??"},
		{"empty input", []byte{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := io.ReadAll(NewUTF8Sanitizer(bytes.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", string(result), tt.expected)
			}
		})
	}
}

func TestUTF8Sanitizer_SplitRunes(t *testing.T) {
	input := strings.Repeat("नमस्ते ₹", 50)
	r := NewUTF8Sanitizer(iotest.OneByteReader(strings.NewReader(input)))

	result, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result) != input {
		t.Error("runes split across reads were altered")
	}
}

func TestUTF8Sanitizer_SmallBuffer(t *testing.T) {
	input := "ab€cd"
	r := NewUTF8Sanitizer(strings.NewReader(input))

	var out []byte
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		out = append(out, buf[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if string(out) != input {
		t.Errorf("got %q, want %q", out, input)
	}
}

func TestUTF8Sanitizer_LargeInput(t *testing.T) {
	input := strings.Repeat("x,€,y\n", 20000)
	result, err := io.ReadAll(NewUTF8Sanitizer(strings.NewReader(input)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result) != input {
		t.Errorf("length %d, want %d", len(result), len(input))
	}
}

func TestLimitReader(t *testing.T) {
	input := strings.Repeat("x", 100)

	_, err := io.ReadAll(NewLimitReader(strings.NewReader(input), 10))
	if !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("expected ErrFileTooLarge, got %v", err)
	}

	result, err := io.ReadAll(NewLimitReader(strings.NewReader(input), 100))
	if err != nil || len(result) != 100 {
		t.Errorf("read at the limit: %d bytes, err %v", len(result), err)
	}

	result, err = io.ReadAll(NewLimitReader(strings.NewReader(input), 0))
	if err != nil || len(result) != 100 {
		t.Errorf("disabled limit: %d bytes, err %v", len(result), err)
	}
}

func TestCountingReader(t *testing.T) {
	input := strings.Repeat("x", 1000)
	reader := &CountingReader{r: strings.NewReader(input)}

	buf := make([]byte, 100)
	totalRead := 0
	for {
		n, err := reader.Read(buf)
		totalRead += n
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if totalRead != len(input) || reader.BytesRead != int64(len(input)) {
		t.Errorf("read %d, BytesRead %d, want %d", totalRead, reader.BytesRead, len(input))
	}
}

func TestWrapForStreaming(t *testing.T) {
	input := append([]byte{0xEF, 0xBB, 0xBF}, []byte{'h', 'e', 0x80, 'l', 'o'}...)

	reader := WrapForStreaming(bytes.NewReader(input), int64(len(input)))
	result, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result) != "he?lo" {
		t.Errorf("got %q, want %q", string(result), "he?lo")
	}
	if reader.BytesRead != 5 {
		t.Errorf("BytesRead = %d, want 5", reader.BytesRead)
	}
}

func TestWrapForStreaming_TooLarge(t *testing.T) {
	reader := WrapForStreaming(strings.NewReader(strings.Repeat("a,b\n", 100)), 50)
	if _, err := io.ReadAll(reader); !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("expected ErrFileTooLarge, got %v", err)
	}
}
