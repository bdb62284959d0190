// Package escape round-trips arbitrary byte filenames through a printable,
// whitespace-free alphabet so that names can be stored as tokens in a
// space-separated surefile line (§4.A of the design).
package escape

import (
	"strings"

	"github.com/sureweave/asure/internal/asureerr"
)

const hexDigits = "0123456789abcdef"

// Encode converts raw to a string containing only bytes in 0x21..0x7E,
// excluding '=', '[', ']'. Every other byte becomes "=xx" with two
// lowercase hex digits.
func Encode(raw []byte) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, c := range raw {
		if c >= '!' && c <= '~' && c != '=' && c != '[' && c != ']' {
			b.WriteByte(c)
		} else {
			b.WriteByte('=')
			b.WriteByte(hexDigits[c>>4])
			b.WriteByte(hexDigits[c&0xf])
		}
	}
	return b.String()
}

// Decode is the inverse of Encode. A lone '=' or '=X' at the end of input
// fails with InvalidHexLengthError; a non-hex byte following '=' fails
// with InvalidHexCharacterError.
func Decode(s string) ([]byte, error) {
	buf := make([]byte, 0, len(s))
	phase := 0
	var tmp byte

	for i := 0; i < len(s); i++ {
		c := s[i]
		if phase == 0 {
			if c == '=' {
				phase = 1
				continue
			}
			buf = append(buf, c)
			continue
		}

		tmp <<= 4
		switch {
		case c >= '0' && c <= '9':
			tmp |= c - '0'
		case c >= 'a' && c <= 'f':
			tmp |= c - 'a' + 10
		case c >= 'A' && c <= 'F':
			tmp |= c - 'A' + 10
		default:
			return nil, &asureerr.InvalidHexCharacterError{Byte: c}
		}
		phase++
		if phase == 3 {
			buf = append(buf, tmp)
			phase = 0
			tmp = 0
		}
	}

	if phase != 0 {
		return nil, &asureerr.InvalidHexLengthError{}
	}

	return buf, nil
}
