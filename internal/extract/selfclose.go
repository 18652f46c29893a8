package extract

import (
	"bytes"
	"errors"
	"io"

	"golang.org/x/net/html"
)

// voidElements never have content; their self-closing form is left alone.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "keygen": true, "link": true,
	"meta": true, "param": true, "source": true, "track": true, "wbr": true,
}

// expandSelfClosing rewrites every self-closing non-void tag "<x .../>" as
// "<x ...></x>". Inline XBRL is XHTML and self-closes empty facts, which the
// HTML parser would otherwise treat as open elements swallowing what follows.
// Input the tokenizer cannot read to the end is returned unchanged.
func expandSelfClosing(doc []byte) []byte {
	z := html.NewTokenizer(bytes.NewReader(doc))
	var out bytes.Buffer
	out.Grow(len(doc))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if !errors.Is(z.Err(), io.EOF) {
				return doc
			}
			return out.Bytes()
		}
		raw := z.Raw()
		if tt != html.SelfClosingTagToken {
			out.Write(raw)
			continue
		}
		name, _ := z.TagName()
		if voidElements[string(name)] || !bytes.HasSuffix(raw, []byte("/>")) {
			out.Write(raw)
			continue
		}
		out.Write(raw[:len(raw)-2])
		out.WriteString("></")
		out.Write(name)
		out.WriteByte('>')
	}
}
