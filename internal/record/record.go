// Package record holds the extraction map shared by the pipeline stages.
//
// A Record is a string-keyed map that remembers the order in which keys were
// first written. Writing an existing key replaces its value but keeps its
// position, so serialized output lists keys in first-seen order while the
// value is always the last one written.
package record

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrNotObject is returned when decoding input whose top-level JSON value is
// not an object.
var ErrNotObject = errors.New("record: top-level JSON value is not an object")

// Record is an insertion-ordered map. The zero value is ready to use.
// A Record is not safe for concurrent writers.
type Record struct {
	keys []string
	vals map[string]any
}

// New returns an empty Record.
func New() *Record {
	return &Record{vals: make(map[string]any)}
}

// Set stores v under key. An existing key keeps its position.
func (r *Record) Set(key string, v any) {
	if r.vals == nil {
		r.vals = make(map[string]any)
	}
	if _, ok := r.vals[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.vals[key] = v
}

// Get returns the value stored under key.
func (r *Record) Get(key string) (any, bool) {
	if r == nil || r.vals == nil {
		return nil, false
	}
	v, ok := r.vals[key]
	return v, ok
}

// String returns the value under key when it is a string.
func (r *Record) String(key string) (string, bool) {
	v, ok := r.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Len reports the number of distinct keys.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Keys returns a copy of the keys in insertion order.
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Each calls fn for every entry in insertion order. fn may call Set on the
// same key it was handed; adding new keys during iteration is not visited.
func (r *Record) Each(fn func(key string, v any)) {
	if r == nil {
		return
	}
	keys := r.Keys()
	for _, k := range keys {
		fn(k, r.vals[k])
	}
}

// Merge writes every entry of other into r, in other's order.
func (r *Record) Merge(other *Record) {
	other.Each(func(k string, v any) { r.Set(k, v) })
}

// MarshalJSON encodes the record as a JSON object in insertion order.
// HTML characters are not escaped.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	var out bytes.Buffer
	out.WriteByte('{')
	if r != nil {
		for i, k := range r.keys {
			if i > 0 {
				out.WriteByte(',')
			}
			buf.Reset()
			if err := enc.Encode(k); err != nil {
				return nil, fmt.Errorf("encode key %q: %w", k, err)
			}
			out.Write(bytes.TrimRight(buf.Bytes(), "\n"))
			out.WriteByte(':')
			buf.Reset()
			if err := enc.Encode(r.vals[k]); err != nil {
				return nil, fmt.Errorf("encode value for %q: %w", k, err)
			}
			out.Write(bytes.TrimRight(buf.Bytes(), "\n"))
		}
	}
	out.WriteByte('}')
	return out.Bytes(), nil
}

// MarshalIndent encodes the record with a four-space indent.
func (r *Record) MarshalIndent() ([]byte, error) {
	compact, err := r.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", "    "); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// UnmarshalJSON replaces the contents of r with the decoded object, keeping
// key order as it appears in the input. Nested values decode to the generic
// encoding/json types, with numbers kept as json.Number.
func (r *Record) UnmarshalJSON(b []byte) error {
	dec, err := Decode(bytes.NewReader(b))
	if err != nil {
		return err
	}
	*r = *dec
	return nil
}

// Decode reads a single JSON object from rd. Anything but whitespace after
// the object is an error.
func Decode(rd io.Reader) (*Record, error) {
	dec := json.NewDecoder(rd)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read object start: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, ErrNotObject
	}
	out := New()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected key token %v", tok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("decode value for %q: %w", key, err)
		}
		out.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("read object end: %w", err)
	}
	if tok, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err != nil {
			return nil, fmt.Errorf("after object: %w", err)
		}
		return nil, fmt.Errorf("unexpected data after object: %v", tok)
	}
	return out, nil
}
