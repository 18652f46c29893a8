package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hyperifyio/filingharvest/internal/record"
)

// Facts records the trimmed text of every element whose name attribute or
// tag name contains one of markers, case-insensitively. The key is the name
// attribute when it is set, otherwise the tag name, whichever of the two
// matched. Elements with no text are skipped.
func Facts(doc *goquery.Document, markers []string) *record.Record {
	lowered := make([]string, len(markers))
	for i, m := range markers {
		lowered[i] = strings.ToLower(m)
	}
	out := record.New()
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		name, _ := s.Attr("name")
		tag := goquery.NodeName(s)
		matched := (name != "" && containsAny(strings.ToLower(name), lowered)) ||
			(tag != "" && containsAny(strings.ToLower(tag), lowered))
		if !matched {
			return
		}
		value := strings.TrimSpace(nodeText(s.Get(0)))
		if value == "" {
			return
		}
		key := tag
		if name != "" {
			key = name
		}
		out.Set(key, value)
	})
	return out
}

// Links maps each anchor's trimmed text to its href. Anchors without an href
// are ignored; anchors sharing text keep the last href.
func Links(doc *goquery.Document) *record.Record {
	out := record.New()
	doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if href == "" {
			return
		}
		out.Set(strings.TrimSpace(nodeText(s.Get(0))), href)
	})
	return out
}

// Heading is a compiled section heading rule.
type Heading struct {
	Label   string
	Pattern *regexp.Regexp
}

// Sections finds, for each heading, the first text node matching its pattern
// and records the trimmed text of the element that directly contains it.
// Headings with no match are left out.
func Sections(doc *goquery.Document, headings []Heading) *record.Record {
	out := record.New()
	root := doc.Get(0)
	if root == nil {
		return out
	}
	for _, h := range headings {
		n := firstText(root, h.Pattern.MatchString)
		if n == nil || n.Parent == nil {
			continue
		}
		out.Set(h.Label, strings.TrimSpace(nodeText(n.Parent)))
	}
	return out
}
