package detector

import "bytes"

// Encoding names reported by the detector. They are accepted by
// parser.NewDecoder.
const (
	EncodingUTF8        = "utf-8"
	EncodingUTF16LE     = "utf-16le"
	EncodingUTF16BE     = "utf-16be"
	EncodingWindows1252 = "windows-1252"
)

type byteOrderMark struct {
	encoding string
	mark     []byte
}

// Longer marks first so a UTF-8 BOM is never mistaken for anything else.
var byteOrderMarks = []byteOrderMark{
	{EncodingUTF8, []byte{0xEF, 0xBB, 0xBF}},
	{EncodingUTF16LE, []byte{0xFF, 0xFE}},
	{EncodingUTF16BE, []byte{0xFE, 0xFF}},
}

// sniffBOM returns the encoding announced by a byte order mark, if any.
func sniffBOM(head []byte) (string, bool) {
	for _, bom := range byteOrderMarks {
		if bytes.HasPrefix(head, bom.mark) {
			return bom.encoding, true
		}
	}
	return "", false
}

// sniffUTF16 guesses UTF-16 without a BOM from the position of NUL bytes.
// ASCII text in UTF-16 has a NUL in every other byte.
func sniffUTF16(head []byte) (string, bool) {
	if len(head) < 4 {
		return "", false
	}

	var even, odd int
	for i, b := range head {
		if b != 0 {
			continue
		}
		if i%2 == 0 {
			even++
		} else {
			odd++
		}
	}

	half := len(head) / 2
	switch {
	case odd*10 >= half*8 && even*10 < half:
		return EncodingUTF16LE, true
	case even*10 >= half*8 && odd*10 < half:
		return EncodingUTF16BE, true
	default:
		return "", false
	}
}
