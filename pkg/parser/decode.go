package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultEncoding is used when no encoding is configured.
const DefaultEncoding = "utf-8"

// ErrUndecodable is returned by a strict Decoder for bytes that are not valid
// text in the configured encoding.
var ErrUndecodable = errors.New("line is not valid in the configured encoding")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// invalidMark stands in for input a strict transcoder could not decode.
// It is never valid UTF-8, so Line rejects any line that carries it.
const invalidMark = 0xFF

// Decoder converts a raw byte stream into lines of UTF-8 text.
// Non-UTF-8 encodings are transcoded before line splitting, so multi-byte
// encodings such as UTF-16 split correctly.
type Decoder struct {
	name   string
	enc    encoding.Encoding // nil for native UTF-8
	strict bool

	// replacement is U+FFFD in the source encoding, nil when the encoding
	// cannot represent it.
	replacement []byte
}

// NewDecoder creates a decoder for the named encoding.
// Names are resolved through the IANA registry (utf-8, latin1, windows-1252,
// utf-16le, ...). With strict set, invalid UTF-8 yields ErrUndecodable;
// otherwise it is replaced with U+FFFD.
func NewDecoder(name string, strict bool) (*Decoder, error) {
	if strings.TrimSpace(name) == "" {
		name = DefaultEncoding
	}
	d := &Decoder{name: name, strict: strict}
	if isUTF8Name(name) {
		return d, nil
	}

	enc, err := LookupEncoding(name)
	if err != nil {
		return nil, err
	}
	d.enc = enc
	if rep, err := enc.NewEncoder().Bytes([]byte(string(utf8.RuneError))); err == nil {
		d.replacement = stripBOM(rep)
	}
	return d, nil
}

// stripBOM drops a byte order mark that BOM-writing encoders put in front of
// their output.
func stripBOM(b []byte) []byte {
	for _, bom := range [][]byte{utf8BOM, {0xFE, 0xFF}, {0xFF, 0xFE}} {
		if len(b) > len(bom) && bytes.HasPrefix(b, bom) {
			return b[len(bom):]
		}
	}
	return b
}

// LookupEncoding resolves an encoding name through the IANA registry.
func LookupEncoding(name string) (encoding.Encoding, error) {
	if isUTF8Name(name) {
		return unicode.UTF8, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
	return enc, nil
}

// Name returns the configured encoding name.
func (d *Decoder) Name() string {
	return d.name
}

// Strict reports whether invalid input is an error.
func (d *Decoder) Strict() bool {
	return d.strict
}

// Reader wraps r so that it yields UTF-8. For UTF-8 input r is returned as is.
// Each call returns an independent transcoder. A strict transcoder marks the
// characters it could not decode instead of replacing them with U+FFFD.
func (d *Decoder) Reader(r io.Reader) io.Reader {
	if d.enc == nil {
		return r
	}
	if d.strict {
		return transform.NewReader(r, &strictTranscoder{
			dec:         d.enc.NewDecoder(),
			replacement: d.replacement,
		})
	}
	return transform.NewReader(r, d.enc.NewDecoder())
}

// Line converts one line read from Reader output into a string.
// firstLine strips a leading UTF-8 byte order mark.
func (d *Decoder) Line(raw []byte, firstLine bool) (string, error) {
	if firstLine {
		raw = bytes.TrimPrefix(raw, utf8BOM)
	}
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	if d.strict {
		return "", ErrUndecodable
	}
	return strings.ToValidUTF8(string(raw), "�"), nil
}

// strictTranscoder runs an x/text decoder one character at a time. x/text
// decoders turn invalid input into U+FFFD; when that U+FFFD did not come
// from an encoded U+FFFD in the source, it is written as invalidMark.
type strictTranscoder struct {
	dec         transform.Transformer
	replacement []byte
	pending     []byte
	out         [64]byte
}

func (t *strictTranscoder) Reset() {
	t.dec.Reset()
	t.pending = t.pending[:0]
}

func (t *strictTranscoder) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	if nDst, err = t.flush(dst); err != nil {
		return nDst, 0, err
	}

	for nSrc < len(src) {
		consumed, produced, err := t.decodeOne(src[nSrc:], atEOF)
		if err != nil {
			return nDst, nSrc, err
		}

		out := t.out[:produced]
		if bytes.ContainsRune(out, utf8.RuneError) && !bytes.Equal(src[nSrc:nSrc+consumed], t.replacement) {
			out = bytes.ReplaceAll(out, []byte(string(utf8.RuneError)), []byte{invalidMark})
		}
		nSrc += consumed
		t.pending = append(t.pending, out...)

		n, err := t.flush(dst[nDst:])
		nDst += n
		if err != nil {
			return nDst, nSrc, err
		}
	}

	return nDst, nSrc, nil
}

// decodeOne feeds the decoder the shortest prefix of src it makes progress
// on, which is a single character. It reports ErrShortSrc when src ends
// inside a character.
func (t *strictTranscoder) decodeOne(src []byte, atEOF bool) (consumed, produced int, err error) {
	for n := 1; n <= len(src); n++ {
		last := n == len(src)
		produced, consumed, err = t.dec.Transform(t.out[:], src[:n], atEOF && last)
		if err != nil && !errors.Is(err, transform.ErrShortSrc) {
			return 0, 0, err
		}
		if consumed > 0 || produced > 0 {
			return consumed, produced, nil
		}
	}
	return 0, 0, transform.ErrShortSrc
}

// flush copies pending output to dst.
func (t *strictTranscoder) flush(dst []byte) (int, error) {
	n := copy(dst, t.pending)
	t.pending = t.pending[:copy(t.pending, t.pending[n:])]
	if len(t.pending) > 0 {
		return n, transform.ErrShortDst
	}
	return n, nil
}

func isUTF8Name(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "utf-8", "utf8":
		return true
	}
	return false
}

// DecodeError reports a line that could not be decoded.
type DecodeError struct {
	Source  string
	LineNum int
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.Source, e.LineNum, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
