package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
	"slices"

	"gopkg.in/yaml.v3"
)

// orderedMap is a string-keyed map that remembers insertion order.
// Overwriting a key keeps its original position. The zero value is ready to use.
type orderedMap[V any] struct {
	keys []string
	m    map[string]V
}

func (o *orderedMap[V]) set(k string, v V) (prev V, existed bool) {
	if o.m == nil {
		o.m = make(map[string]V)
	}
	prev, existed = o.m[k]
	if !existed {
		o.keys = append(o.keys, k)
	}
	o.m[k] = v
	return prev, existed
}

func (o *orderedMap[V]) get(k string) (V, bool) {
	v, ok := o.m[k]
	return v, ok
}

func (o *orderedMap[V]) delete(k string) (prev V, existed bool) {
	prev, existed = o.m[k]
	if !existed {
		return prev, false
	}
	delete(o.m, k)
	if i := slices.Index(o.keys, k); i >= 0 {
		o.keys = slices.Delete(o.keys, i, i+1)
	}
	return prev, true
}

func (o *orderedMap[V]) len() int {
	return len(o.keys)
}

// all yields entries in insertion order. Each call starts a fresh iteration.
func (o *orderedMap[V]) all() iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		for _, k := range o.keys {
			if !yield(k, o.m[k]) {
				return
			}
		}
	}
}

func (o *orderedMap[V]) names() []string {
	return slices.Clone(o.keys)
}

// clone returns a copy that shares no slices or maps with o.
func (o *orderedMap[V]) clone() orderedMap[V] {
	c := orderedMap[V]{keys: slices.Clone(o.keys), m: make(map[string]V, len(o.m))}
	for k, v := range o.m {
		c.m[k] = v
	}
	return c
}

func (o orderedMap[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(o.m[k])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (o *orderedMap[V]) UnmarshalJSON(data []byte) error {
	*o = orderedMap[V]{}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		k, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected string key, got %v", tok)
		}
		var v V
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
		o.set(k, v)
	}

	_, err = dec.Token()
	return err
}

func (o orderedMap[V]) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range o.keys {
		var kn, vn yaml.Node
		if err := kn.Encode(k); err != nil {
			return nil, err
		}
		if err := vn.Encode(o.m[k]); err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		node.Content = append(node.Content, &kn, &vn)
	}
	return node, nil
}

func (o *orderedMap[V]) UnmarshalYAML(node *yaml.Node) error {
	*o = orderedMap[V]{}

	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected mapping", node.Line)
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		var k string
		if err := node.Content[i].Decode(&k); err != nil {
			return err
		}
		var v V
		if err := node.Content[i+1].Decode(&v); err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
		o.set(k, v)
	}
	return nil
}
