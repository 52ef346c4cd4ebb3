// SPDX-License-Identifier: MPL-2.0

package pantry

import (
	"fmt"
	"iter"
	"slices"

	"gopkg.in/yaml.v3"
)

// Mapping is a YAML mapping that remembers key order. Env blocks render in
// the order they were written, so plain Go maps are not enough.
type Mapping struct {
	keys   []string
	values map[string]any
}

// NewMapping returns an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{values: map[string]any{}}
}

// MappingOf builds a mapping from alternating key/value arguments.
func MappingOf(kv ...any) *Mapping {
	m := NewMapping()
	for i := 0; i+1 < len(kv); i += 2 {
		m.Set(fmt.Sprint(kv[i]), kv[i+1])
	}
	return m
}

// Len returns the number of keys.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in document order.
func (m *Mapping) Keys() []string {
	if m == nil {
		return nil
	}
	return slices.Clone(m.keys)
}

// Get returns the value stored under key and whether it was present.
func (m *Mapping) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Set replaces the value of an existing key in place or appends a new key.
func (m *Mapping) Set(key string, v any) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Delete removes key and its position; missing keys are ignored.
func (m *Mapping) Delete(key string) {
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	m.keys = slices.DeleteFunc(m.keys, func(k string) bool { return k == key })
}

// All iterates entries in document order.
func (m *Mapping) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		if m == nil {
			return
		}
		for _, k := range m.keys {
			if !yield(k, m.values[k]) {
				return
			}
		}
	}
}

// Clone copies the top level; nested values are shared.
func (m *Mapping) Clone() *Mapping {
	c := NewMapping()
	for k, v := range m.All() {
		c.Set(k, v)
	}
	return c
}

// Plain converts the tree into map[string]any and []any for encoders that
// do not know about Mapping.
func (m *Mapping) Plain() map[string]any {
	out := make(map[string]any, m.Len())
	for k, v := range m.All() {
		out[k] = plain(v)
	}
	return out
}

func plain(v any) any {
	switch v := v.(type) {
	case *Mapping:
		return v.Plain()
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = plain(e)
		}
		return out
	}
	return v
}

// UnmarshalYAML lets a Mapping be the target of yaml.Unmarshal.
func (m *Mapping) UnmarshalYAML(n *yaml.Node) error {
	v, err := fromNode(n)
	if err != nil {
		return err
	}
	mm, ok := v.(*Mapping)
	if !ok {
		return fmt.Errorf("line %d: expected a mapping", n.Line)
	}
	*m = *mm
	return nil
}

// DecodeYAML parses a YAML document into scalars, []any and *Mapping.
func DecodeYAML(data []byte) (any, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return fromNode(&doc)
}

func fromNode(n *yaml.Node) (any, error) {
	switch n.Kind {
	case 0:
		return nil, nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return fromNode(n.Content[0])
	case yaml.AliasNode:
		return fromNode(n.Alias)
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!int", "!!float", "!!bool", "!!null":
		default:
			// Dates and other tagged scalars stay as written.
			return n.Value, nil
		}
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := fromNode(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.MappingNode:
		m := NewMapping()
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, vn := n.Content[i], n.Content[i+1]
			v, err := fromNode(vn)
			if err != nil {
				return nil, err
			}
			if k.Tag == "!!merge" {
				if err := merge(m, v, k.Line); err != nil {
					return nil, err
				}
				continue
			}
			m.Set(k.Value, v)
		}
		return m, nil
	}
	return nil, fmt.Errorf("line %d: unsupported YAML node kind %d", n.Line, n.Kind)
}

// merge applies a "<<" merge key; explicit keys already present win.
func merge(into *Mapping, v any, line int) error {
	sources := []any{v}
	if seq, ok := v.([]any); ok {
		sources = seq
	}
	for _, s := range sources {
		src, ok := s.(*Mapping)
		if !ok {
			return fmt.Errorf("line %d: merge value is not a mapping", line)
		}
		for k, val := range src.All() {
			if _, exists := into.Get(k); !exists {
				into.Set(k, val)
			}
		}
	}
	return nil
}
