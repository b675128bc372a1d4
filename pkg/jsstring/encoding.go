package jsstring

import (
	"fmt"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// UTF16LE is the byte encoding hosts use when they hand raw UTF-16 across
// the boundary.
var UTF16LE encoding.Encoding = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// Decode converts external bytes in enc to a String.
func Decode(b []byte, enc encoding.Encoding) (*String, error) {
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return nil, fmt.Errorf("jsstring: decode: %w", err)
	}
	return New(string(out)), nil
}

// DecodeSniffed converts bytes that may start with a UTF-8 or UTF-16 byte
// order mark; without one the input is taken as UTF-8.
func DecodeSniffed(b []byte) (*String, error) {
	t := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(t, b)
	if err != nil {
		return nil, fmt.Errorf("jsstring: decode: %w", err)
	}
	return New(string(out)), nil
}

// Encode converts s to bytes in enc. Lone surrogates are written as U+FFFD.
func Encode(s *String, enc encoding.Encoding) ([]byte, error) {
	out, err := enc.NewEncoder().Bytes([]byte(s.String()))
	if err != nil {
		return nil, fmt.Errorf("jsstring: encode: %w", err)
	}
	return out, nil
}

// DecodeUTF16LE is Decode with UTF16LE.
func DecodeUTF16LE(b []byte) (*String, error) { return Decode(b, UTF16LE) }

// EncodeUTF16LE is Encode with UTF16LE.
func EncodeUTF16LE(s *String) ([]byte, error) { return Encode(s, UTF16LE) }
