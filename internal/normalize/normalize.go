package normalize

import (
	"strings"
	"unicode"

	"github.com/hyperifyio/filingharvest/internal/record"
)

// TransformKey drops any taxonomy prefix up to the last colon and splits
// concatenated capitalized words, so "us-gaap:EarningsPerShare" becomes
// "Earnings Per Share". A space is inserted before every ASCII uppercase
// letter except the first character and letters already preceded by
// whitespace, which makes the transform idempotent.
func TransformKey(key string) string {
	if i := strings.LastIndexByte(key, ':'); i >= 0 {
		key = key[i+1:]
	}
	var b strings.Builder
	b.Grow(len(key) + 8)
	prev := ' '
	for i, r := range key {
		if i > 0 && r >= 'A' && r <= 'Z' && !unicode.IsSpace(prev) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}

// TransformValue decodes backslash escapes in string values. Other values are
// returned unchanged.
func TransformValue(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	return Unescape(s)
}

// Clean applies TransformKey and TransformValue to every entry of in and
// returns a new record. When two keys collapse to the same cleaned key the
// later entry wins.
func Clean(in *record.Record) *record.Record {
	out := record.New()
	in.Each(func(k string, v any) {
		out.Set(TransformKey(k), TransformValue(v))
	})
	return out
}
