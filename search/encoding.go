package search

import (
	"bytes"
	"fmt"
	"io"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
	"golang.org/x/text/transform"
)

// Encoding identifies the text encoding of a file by its byte-order mark
type Encoding int

const (
	// EncodingUTF8 is UTF-8 without a byte-order mark, the default for text files
	EncodingUTF8 Encoding = iota
	EncodingUTF8BOM
	EncodingUTF16LE
	EncodingUTF16BE
	EncodingUTF32LE
)

// sniffSize is the number of leading bytes inspected by the detector
const sniffSize = 4

var encodingNames = map[Encoding]string{
	EncodingUTF8:    "UTF-8",
	EncodingUTF8BOM: "UTF-8 BOM",
	EncodingUTF16LE: "UTF-16LE",
	EncodingUTF16BE: "UTF-16BE",
	EncodingUTF32LE: "UTF-32LE",
}

var preambles = map[Encoding][]byte{
	EncodingUTF8BOM: {0xEF, 0xBB, 0xBF},
	EncodingUTF16LE: {0xFF, 0xFE},
	EncodingUTF16BE: {0xFE, 0xFF},
	EncodingUTF32LE: {0xFF, 0xFE, 0x00, 0x00},
}

// DetectEncoding classifies the leading bytes of a file. Only the first four
// bytes are considered; the UTF-32 mark is tested before UTF-16LE because it
// starts with the same two bytes.
func DetectEncoding(head []byte) Encoding {
	if len(head) > sniffSize {
		head = head[:sniffSize]
	}
	switch {
	case bytes.HasPrefix(head, preambles[EncodingUTF8BOM]):
		return EncodingUTF8BOM
	case bytes.HasPrefix(head, preambles[EncodingUTF32LE]):
		return EncodingUTF32LE
	case bytes.HasPrefix(head, preambles[EncodingUTF16LE]):
		return EncodingUTF16LE
	case bytes.HasPrefix(head, preambles[EncodingUTF16BE]):
		return EncodingUTF16BE
	default:
		return EncodingUTF8
	}
}

// SniffEncoding peeks at the first bytes of r and seeks back to offset 0
func SniffEncoding(r io.ReadSeeker) (Encoding, error) {
	head := make([]byte, sniffSize)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return EncodingUTF8, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return EncodingUTF8, err
	}
	return DetectEncoding(head[:n]), nil
}

// String returns the display name of the encoding
func (e Encoding) String() string {
	if name, ok := encodingNames[e]; ok {
		return name
	}
	return fmt.Sprintf("Encoding(%d)", int(e))
}

// MarshalText implements encoding.TextMarshaler
func (e Encoding) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (e *Encoding) UnmarshalText(text []byte) error {
	for enc, name := range encodingNames {
		if name == string(text) {
			*e = enc
			return nil
		}
	}
	return fmt.Errorf("unknown encoding %q", text)
}

// Preamble returns the canonical byte-order mark, empty for plain UTF-8
func (e Encoding) Preamble() []byte {
	return bytes.Clone(preambles[e])
}

// codec returns the transformer pair used after the preamble
func (e Encoding) codec() encoding.Encoding {
	switch e {
	case EncodingUTF16LE:
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	case EncodingUTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
	case EncodingUTF32LE:
		return utf32.UTF32(utf32.LittleEndian, utf32.IgnoreBOM)
	default:
		// Nop keeps undecodable bytes intact across a rewrite
		return encoding.Nop
	}
}

// NewDecoder skips the preamble of r, which must be positioned at the start
// of the file, and returns a reader producing UTF-8.
func (e Encoding) NewDecoder(r io.Reader) (io.Reader, error) {
	if p := preambles[e]; len(p) > 0 {
		if _, err := io.CopyN(io.Discard, r, int64(len(p))); err != nil {
			return nil, fmt.Errorf("skipping byte-order mark: %w", err)
		}
	}
	return transform.NewReader(r, e.codec().NewDecoder()), nil
}

// NewEncoder writes the preamble to w and returns a writer that encodes UTF-8
// input. Close must be called to flush; it does not close w.
func (e Encoding) NewEncoder(w io.Writer) (io.WriteCloser, error) {
	if p := preambles[e]; len(p) > 0 {
		if _, err := w.Write(p); err != nil {
			return nil, fmt.Errorf("writing byte-order mark: %w", err)
		}
	}
	return transform.NewWriter(w, e.codec().NewEncoder()), nil
}
