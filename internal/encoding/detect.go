// Package encoding turns raw uploaded bytes into text. Source files come
// from uncontrolled banking and office software, so the byte encoding is
// unknown; the detector guesses, in a fixed order, and always returns
// something rather than failing.
package encoding

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Detected encoding labels, for diagnostics only.
const (
	EncUTF8        = "utf-8"
	EncUTF8BOM     = "utf-8-bom"
	EncUTF16LE     = "utf-16le"
	EncUTF16BE     = "utf-16be"
	EncWindows1250 = "windows-1250"
	EncISO88592    = "iso-8859-2"
	EncUTF8Lossy   = "utf-8-lossy"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// polishDiacritics is the set of characters that distinguish correctly
// decoded Polish text from mojibake.
const polishDiacritics = "ąćęłńóśźżĄĆĘŁŃÓŚŹŻ"

// Decode converts raw file bytes to text, returning the decoded text and the
// label of the encoding that was applied. It never fails: the last fallback
// is lossy UTF-8 with replacement characters.
//
// Order, first success wins:
//  1. byte-order mark (UTF-8, UTF-16 LE/BE)
//  2. strict UTF-8, accepted when the text contains a Polish diacritic or
//     no replacement characters at all
//  3. Windows-1250, accepted when every byte mapped
//  4. ISO-8859-2
//  5. lossy UTF-8
func Decode(data []byte) (string, string) {
	if text, enc, ok := decodeBOM(data); ok {
		return text, enc
	}

	if utf8.Valid(data) {
		text := string(data)
		if strings.ContainsAny(text, polishDiacritics) || !strings.ContainsRune(text, utf8.RuneError) {
			return text, EncUTF8
		}
	}

	if text, err := charmap.Windows1250.NewDecoder().String(string(data)); err == nil {
		if !strings.ContainsRune(text, utf8.RuneError) {
			return text, EncWindows1250
		}
	}

	if text, err := charmap.ISO8859_2.NewDecoder().String(string(data)); err == nil {
		return text, EncISO88592
	}

	// Unreachable for the charmap decoders above in practice, but the
	// contract is total either way.
	return strings.ToValidUTF8(string(data), string(utf8.RuneError)), EncUTF8Lossy
}

func decodeBOM(data []byte) (string, string, bool) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return string(data[len(bomUTF8):]), EncUTF8BOM, true
	case bytes.HasPrefix(data, bomUTF16LE):
		dec := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
		text, err := dec.String(string(data[2:]))
		if err != nil {
			return "", "", false
		}
		return text, EncUTF16LE, true
	case bytes.HasPrefix(data, bomUTF16BE):
		dec := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder()
		text, err := dec.String(string(data[2:]))
		if err != nil {
			return "", "", false
		}
		return text, EncUTF16BE, true
	}
	return "", "", false
}
