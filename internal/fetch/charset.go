package fetch

import (
	"bytes"
	"fmt"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeText converts body to a UTF-8 string using the charset declared in
// contentType, a byte order mark, or a <meta> declaration, in that order of
// precedence as resolved by charset.DetermineEncoding. Undeclared content
// defaults to windows-1252 only when it is not valid UTF-8.
func DecodeText(body []byte, contentType string) (string, error) {
	enc, name, _ := charset.DetermineEncoding(body, contentType)
	if name == "utf-8" {
		return string(bytes.TrimPrefix(body, utf8BOM)), nil
	}
	out, _, err := transform.Bytes(enc.NewDecoder(), body)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", name, err)
	}
	return string(out), nil
}
