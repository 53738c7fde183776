// Package catalog holds the per-factory style catalog document the front
// end renders.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

type Entry struct {
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Page        string `json:"page"`
	SourceURL   string `json:"sourceUrl"`
}

// Catalog maps factory ids to their entries. Factories keep the order they
// were first seen in, which is also the order they are written back in.
//
// Values read from a document are kept as raw json until the factory is
// replaced, so fields and keys this package does not know about survive a
// round trip.
type Catalog struct {
	order  []string
	values map[string]*value
	// source is the document the catalog was decoded from, written back
	// as is while nothing has been replaced.
	source []byte
	dirty  bool
}

type value struct {
	// raw is nil once the factory has been replaced.
	raw json.RawMessage
	// entries is nil when raw is not a list of entries.
	entries []Entry
}

func New() *Catalog {
	return &Catalog{values: map[string]*value{}}
}

// Factories returns every top level key, including ones whose value is not
// a list of entries.
func (c *Catalog) Factories() []string {
	return append([]string(nil), c.order...)
}

// Get returns a copy of the factory's entries, nil if it is unknown or its
// value is not a list of entries.
func (c *Catalog) Get(factory string) []Entry {
	v, ok := c.values[factory]
	if !ok || v.entries == nil {
		return nil
	}
	return append([]Entry{}, v.entries...)
}

// Set replaces the factory's value wholesale.
func (c *Catalog) Set(factory string, entries []Entry) {
	if _, ok := c.values[factory]; !ok {
		c.order = append(c.order, factory)
	}
	c.values[factory] = &value{entries: append([]Entry{}, entries...)}
	c.dirty = true
}

// Decode parses a catalog document. Invalid json or a root that is not an
// object is an error. A key whose value is not a list of entries is kept
// verbatim and named in the returned slice.
func Decode(contents []byte) (*Catalog, []string, error) {
	if !gjson.ValidBytes(contents) {
		return nil, nil, fmt.Errorf("catalog is not valid json")
	}
	root := gjson.ParseBytes(contents)
	if !root.IsObject() {
		return nil, nil, fmt.Errorf("catalog root is not an object")
	}

	c := New()
	c.source = append([]byte(nil), contents...)
	var opaque []string
	root.ForEach(func(key, raw gjson.Result) bool {
		factory := key.String()
		v := &value{raw: json.RawMessage(raw.Raw)}

		var entries []Entry
		if !raw.IsArray() || json.Unmarshal([]byte(raw.Raw), &entries) != nil {
			opaque = append(opaque, factory)
		} else {
			v.entries = entries
		}

		if _, ok := c.values[factory]; !ok {
			c.order = append(c.order, factory)
		}
		c.values[factory] = v
		return true
	})
	return c, opaque, nil
}

func marshalRaw(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	err := enc.Encode(v)
	if err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func (v *value) compact(out *bytes.Buffer) error {
	if v.raw != nil {
		return json.Compact(out, v.raw)
	}
	entries := v.entries
	if entries == nil {
		entries = []Entry{}
	}
	encoded, err := marshalRaw(entries)
	if err != nil {
		return err
	}
	out.Write(encoded)
	return nil
}

// MarshalIndent renders the catalog with two space indentation and a
// trailing newline. A decoded catalog nothing was replaced in renders as
// the exact document it was decoded from.
func (c *Catalog) MarshalIndent() ([]byte, error) {
	if c.source != nil && !c.dirty {
		return append([]byte(nil), c.source...), nil
	}

	var compact bytes.Buffer
	compact.WriteByte('{')
	for i, factory := range c.order {
		if i > 0 {
			compact.WriteByte(',')
		}
		key, err := marshalRaw(factory)
		if err != nil {
			return nil, err
		}
		compact.Write(key)
		compact.WriteByte(':')
		err = c.values[factory].compact(&compact)
		if err != nil {
			return nil, err
		}
	}
	compact.WriteByte('}')

	var out bytes.Buffer
	err := json.Indent(&out, compact.Bytes(), "", "  ")
	if err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}
