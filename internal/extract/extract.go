package extract

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// Flatten reduces an HTML document to its visible text: every text node in
// document order, trimmed, empty ones dropped, joined with newlines. Script,
// style and template contents and comments are not text. Unparseable input
// flattens to "".
func Flatten(input []byte) string {
	node, err := html.Parse(bytes.NewReader(expandSelfClosing(input)))
	if err != nil || node == nil {
		return ""
	}
	return FlattenNode(node)
}

// FlattenNode flattens the subtree rooted at n.
func FlattenNode(n *html.Node) string {
	var parts []string
	walkText(n, func(s string) {
		if t := strings.TrimSpace(s); t != "" {
			parts = append(parts, t)
		}
	})
	return strings.Join(parts, "\n")
}

// nodeText concatenates the text under n without separators, the way a tag's
// text content reads.
func nodeText(n *html.Node) string {
	var b strings.Builder
	walkText(n, func(s string) { b.WriteString(s) })
	return b.String()
}

func walkText(n *html.Node, emit func(string)) {
	switch n.Type {
	case html.TextNode:
		emit(n.Data)
		return
	case html.CommentNode, html.DoctypeNode:
		return
	case html.ElementNode:
		if isNonText(n) {
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkText(c, emit)
	}
}

func isNonText(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	switch strings.ToLower(n.Data) {
	case "script", "style", "template":
		return true
	}
	return false
}

// firstText returns the first text node under n, in document order, for which
// match reports true. Text inside script, style and template is skipped.
func firstText(n *html.Node, match func(string) bool) *html.Node {
	var res *html.Node
	var dfs func(*html.Node)
	dfs = func(cur *html.Node) {
		if res != nil {
			return
		}
		if cur.Type == html.TextNode {
			if match(cur.Data) {
				res = cur
			}
			return
		}
		if isNonText(cur) {
			return
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			dfs(c)
			if res != nil {
				return
			}
		}
	}
	dfs(n)
	return res
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
