package normalize

import (
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// Unescape turns literal backslash escape sequences embedded in text into the
// characters they name: \n \t \r \\ \' \" \a \b \f \v, octal \ooo, \xHH,
// \uXXXX and \UXXXXXXXX. A backslash-newline pair is removed. A UTF-16
// surrogate pair written as two \u escapes decodes to one rune. Sequences
// that do not form a valid escape are kept verbatim. Non-ASCII text outside
// escapes passes through untouched.
func Unescape(s string) string {
	if strings.IndexByte(s, '\\') < 0 {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			i++
			continue
		}
		next := s[i+1]
		switch next {
		case '\n':
			i += 2
		case '\\', '\'', '"':
			b.WriteByte(next)
			i += 2
		case 'a':
			b.WriteByte('\a')
			i += 2
		case 'b':
			b.WriteByte('\b')
			i += 2
		case 'f':
			b.WriteByte('\f')
			i += 2
		case 'n':
			b.WriteByte('\n')
			i += 2
		case 'r':
			b.WriteByte('\r')
			i += 2
		case 't':
			b.WriteByte('\t')
			i += 2
		case 'v':
			b.WriteByte('\v')
			i += 2
		case '0', '1', '2', '3', '4', '5', '6', '7':
			j := i + 1
			for j < len(s) && j < i+4 && s[j] >= '0' && s[j] <= '7' {
				j++
			}
			n, _ := strconv.ParseUint(s[i+1:j], 8, 32)
			b.WriteRune(rune(n))
			i = j
		case 'x':
			r, ok := hexRune(s, i+2, 2)
			if !ok {
				b.WriteString(s[i : i+2])
				i += 2
				continue
			}
			b.WriteRune(r)
			i += 4
		case 'u':
			r, ok := hexRune(s, i+2, 4)
			if !ok {
				b.WriteString(s[i : i+2])
				i += 2
				continue
			}
			i += 6
			if utf16.IsSurrogate(r) && i+6 <= len(s) && s[i] == '\\' && s[i+1] == 'u' {
				if lo, ok := hexRune(s, i+2, 4); ok {
					if pair := utf16.DecodeRune(r, lo); pair != utf8.RuneError {
						b.WriteRune(pair)
						i += 6
						continue
					}
				}
			}
			b.WriteRune(r)
		case 'U':
			r, ok := hexRune(s, i+2, 8)
			if !ok || !utf8.ValidRune(r) {
				b.WriteString(s[i : i+2])
				i += 2
				continue
			}
			b.WriteRune(r)
			i += 10
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

func hexRune(s string, start, width int) (rune, bool) {
	if start+width > len(s) {
		return 0, false
	}
	n, err := strconv.ParseUint(s[start:start+width], 16, 32)
	if err != nil {
		return 0, false
	}
	return rune(n), true
}
