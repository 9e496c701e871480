package search

import (
	"bytes"
	"io"
	"testing"
)

func TestDetectEncoding(t *testing.T) {
	tests := []struct {
		name string
		head []byte
		want Encoding
	}{
		{"utf8 bom", []byte{0xEF, 0xBB, 0xBF, 'a'}, EncodingUTF8BOM},
		{"utf32le", []byte{0xFF, 0xFE, 0x00, 0x00}, EncodingUTF32LE},
		{"utf16le", []byte{0xFF, 0xFE, 'a', 0x00}, EncodingUTF16LE},
		{"utf16be", []byte{0xFE, 0xFF, 0x00, 'a'}, EncodingUTF16BE},
		{"plain", []byte("abcd"), EncodingUTF8},
		{"short", []byte{0xFF}, EncodingUTF8},
		{"empty", nil, EncodingUTF8},
		{"only first four bytes", []byte{'x', 0xEF, 0xBB, 0xBF}, EncodingUTF8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectEncoding(tt.head); got != tt.want {
				t.Errorf("DetectEncoding(% x) = %v, want %v", tt.head, got, tt.want)
			}
		})
	}
}

func TestSniffEncodingRewinds(t *testing.T) {
	data := append([]byte{0xFE, 0xFF}, 0x00, 'h', 0x00, 'i')
	r := bytes.NewReader(data)
	enc, err := SniffEncoding(r)
	if err != nil {
		t.Fatalf("SniffEncoding: %v", err)
	}
	if enc != EncodingUTF16BE {
		t.Fatalf("encoding = %v", enc)
	}
	rest, _ := io.ReadAll(r)
	if !bytes.Equal(rest, data) {
		t.Errorf("reader not rewound, got % x", rest)
	}
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	const text = "héllo wörld\nzweite Zeile ✓\n"
	for _, enc := range []Encoding{EncodingUTF8, EncodingUTF8BOM, EncodingUTF16LE, EncodingUTF16BE, EncodingUTF32LE} {
		t.Run(enc.String(), func(t *testing.T) {
			var buf bytes.Buffer
			w, err := enc.NewEncoder(&buf)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := io.WriteString(w, text); err != nil {
				t.Fatal(err)
			}
			if err := w.Close(); err != nil {
				t.Fatal(err)
			}

			encoded := buf.Bytes()
			if !bytes.HasPrefix(encoded, enc.Preamble()) {
				t.Fatalf("missing preamble % x in % x", enc.Preamble(), encoded[:min(8, len(encoded))])
			}
			if got := DetectEncoding(encoded); got != enc {
				t.Fatalf("re-detected as %v", got)
			}

			dec, err := enc.NewDecoder(bytes.NewReader(encoded))
			if err != nil {
				t.Fatal(err)
			}
			decoded, err := io.ReadAll(dec)
			if err != nil {
				t.Fatal(err)
			}
			if string(decoded) != text {
				t.Errorf("decoded %q, want %q", decoded, text)
			}
		})
	}
}

func TestEncodingText(t *testing.T) {
	for _, enc := range []Encoding{EncodingUTF8, EncodingUTF8BOM, EncodingUTF16LE, EncodingUTF16BE, EncodingUTF32LE} {
		b, err := enc.MarshalText()
		if err != nil {
			t.Fatal(err)
		}
		var got Encoding
		if err := got.UnmarshalText(b); err != nil {
			t.Fatalf("UnmarshalText(%q): %v", b, err)
		}
		if got != enc {
			t.Errorf("%q decoded to %v", b, got)
		}
	}
	var e Encoding
	if err := e.UnmarshalText([]byte("EBCDIC")); err == nil {
		t.Error("expected error for unknown encoding")
	}
	if len(EncodingUTF8.Preamble()) != 0 {
		t.Error("plain UTF-8 must have no preamble")
	}
}
