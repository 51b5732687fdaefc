package parser

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"
)

// MaxLineSize is the longest line a source hands out. Longer lines are cut
// at a character boundary and marked Truncated; reading goes on with the
// next line.
const MaxLineSize = 1024 * 1024

const readBufferSize = 64 * 1024

// ReaderSource implements LineSource over any io.Reader.
type ReaderSource struct {
	name    string
	closer  io.Closer
	reader  *bufio.Reader
	decoder *Decoder
	buf     []byte
	lineNum int
	done    bool
}

// NewReaderSource creates a LineSource reading from r. name is reported as
// the Source of every line. A nil decoder means lenient UTF-8.
func NewReaderSource(name string, r io.Reader, dec *Decoder) *ReaderSource {
	if dec == nil {
		dec = &Decoder{name: DefaultEncoding}
	}
	s := &ReaderSource{
		name:    name,
		reader:  bufio.NewReaderSize(dec.Reader(r), readBufferSize),
		decoder: dec,
	}
	if c, ok := r.(io.Closer); ok {
		s.closer = c
	}
	return s
}

// OpenFile opens path and returns a LineSource over its lines.
func OpenFile(path string, dec *Decoder) (*ReaderSource, error) {
	f, err := os.Open(path) // #nosec G304 -- user-provided paths are expected
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", path, err)
	}
	return NewReaderSource(path, f, dec), nil
}

// Name returns the source name.
func (s *ReaderSource) Name() string {
	return s.name
}

// Next returns the next decoded line.
func (s *ReaderSource) Next(ctx context.Context) (*LogLine, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if s.done {
		return nil, io.EOF
	}

	raw, truncated, err := s.readLine()
	if err != nil {
		s.done = true
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("reading %s: %w", s.name, err)
	}

	s.lineNum++
	text, err := s.decoder.Line(raw, s.lineNum == 1)
	if err != nil {
		return nil, &DecodeError{Source: s.name, LineNum: s.lineNum, Err: err}
	}

	return &LogLine{
		Content:   text,
		Source:    s.name,
		LineNum:   s.lineNum,
		Truncated: truncated,
	}, nil
}

// readLine returns the next line without its LF or CRLF terminator. A final
// line without a terminator is returned as is; io.EOF means no bytes were
// left. The returned slice is only valid until the next call.
func (s *ReaderSource) readLine() ([]byte, bool, error) {
	s.buf = s.buf[:0]

	for {
		chunk, err := s.reader.ReadSlice('\n')
		// Room for the line plus a CRLF terminator
		if room := MaxLineSize + 2 - len(s.buf); len(chunk) > room {
			chunk = chunk[:room]
		}
		s.buf = append(s.buf, chunk...)

		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case err == io.EOF:
			if len(s.buf) == 0 {
				return nil, false, io.EOF
			}
		case err != nil:
			return nil, false, err
		}
		break
	}

	line := bytes.TrimSuffix(s.buf, []byte{'\n'})
	line = bytes.TrimSuffix(line, []byte{'\r'})
	if len(line) <= MaxLineSize {
		return line, false, nil
	}
	return trimPartialRune(line[:MaxLineSize]), true, nil
}

// trimPartialRune drops an incomplete UTF-8 sequence left at the end of b
// by truncation.
func trimPartialRune(b []byte) []byte {
	for i := 1; i < utf8.UTFMax && i <= len(b); i++ {
		if utf8.RuneStart(b[len(b)-i]) {
			if !utf8.FullRune(b[len(b)-i:]) {
				return b[:len(b)-i]
			}
			break
		}
	}
	return b
}

// Close releases the underlying reader if it is closable.
func (s *ReaderSource) Close() error {
	s.done = true
	if s.closer != nil {
		err := s.closer.Close()
		s.closer = nil
		return err
	}
	return nil
}
