package content

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ValueFromNode converts a decoded YAML node. Timestamps keep the text they
// were written as, aliases are followed and merge keys are applied.
func ValueFromNode(n *yaml.Node) (Value, error) {
	d := nodeDecoder{expanding: map[*yaml.Node]bool{}}
	return d.value(n)
}

type nodeDecoder struct {
	expanding map[*yaml.Node]bool
}

func (d nodeDecoder) value(n *yaml.Node) (Value, error) {
	switch n.Kind {
	case 0:
		return Value{}, nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return Value{}, nil
		}
		return d.value(n.Content[0])
	case yaml.AliasNode:
		if n.Alias == nil || d.expanding[n.Alias] {
			return Value{}, fmt.Errorf("line %d: alias *%s refers to itself", n.Line, n.Value)
		}
		d.expanding[n.Alias] = true
		defer delete(d.expanding, n.Alias)
		return d.value(n.Alias)
	case yaml.SequenceNode:
		items := make([]Value, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := d.value(c)
			if err != nil {
				return Value{}, err
			}
			items = append(items, v)
		}
		return Value{kind: ListValue, list: items}, nil
	case yaml.MappingNode:
		m, err := d.mapping(n)
		if err != nil {
			return Value{}, err
		}
		return Value{kind: MapValue, m: m}, nil
	default:
		return scalarFromNode(n)
	}
}

func (d nodeDecoder) mapping(n *yaml.Node) (map[string]Value, error) {
	out := make(map[string]Value, len(n.Content)/2)
	var merged []Value
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if k.ShortTag() == "!!merge" {
			src, err := d.value(v)
			if err != nil {
				return nil, err
			}
			if items, ok := src.List(); ok {
				merged = append(merged, items...)
			} else {
				merged = append(merged, src)
			}
			continue
		}
		if k.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: mapping keys must be plain values", k.Line)
		}
		if _, dup := out[k.Value]; dup {
			return nil, fmt.Errorf("line %d: key %q is defined twice", k.Line, k.Value)
		}
		val, err := d.value(v)
		if err != nil {
			return nil, err
		}
		out[k.Value] = val
	}
	// Explicit keys win over merged ones; earlier merge sources win over later.
	for _, src := range merged {
		m, ok := src.Map()
		if !ok {
			return nil, fmt.Errorf("line %d: merge source is not a mapping", n.Line)
		}
		for k, v := range m {
			if _, ok := out[k]; !ok {
				out[k] = v
			}
		}
	}
	return out, nil
}

func scalarFromNode(n *yaml.Node) (Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return Value{}, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return Value{}, err
		}
		return Bool(b), nil
	case "!!int", "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return Value{}, err
		}
		return Number(f), nil
	default:
		return String(n.Value), nil
	}
}

// Node converts v to a YAML node with sorted map keys. Strings that would
// read back as another type are quoted on output; date-like strings stay
// plain.
func (v Value) Node() *yaml.Node {
	switch v.kind {
	case StringValue:
		if isTimestamp(v.str) {
			return scalarNode("!!timestamp", v.str)
		}
		return scalarNode("!!str", v.str)
	case NumberValue:
		return numberNode(v.num)
	case BoolValue:
		return scalarNode("!!bool", strconv.FormatBool(v.b))
	case ListValue:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v.list {
			seq.Content = append(seq.Content, item.Node())
		}
		return seq
	case MapValue:
		return mappingNode(v.m)
	default:
		return scalarNode("!!null", "null")
	}
}

func mappingNode(m map[string]Value) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range slices.Sorted(maps.Keys(m)) {
		n.Content = append(n.Content, scalarNode("!!str", k), m[k].Node())
	}
	return n
}

func numberNode(f float64) *yaml.Node {
	switch {
	case math.IsNaN(f):
		return scalarNode("!!float", ".nan")
	case math.IsInf(f, 1):
		return scalarNode("!!float", ".inf")
	case math.IsInf(f, -1):
		return scalarNode("!!float", "-.inf")
	case f == math.Trunc(f) && math.Abs(f) < 1<<53:
		return scalarNode("!!int", strconv.FormatInt(int64(f), 10))
	}
	return scalarNode("!!float", strconv.FormatFloat(f, 'g', -1, 64))
}

func scalarNode(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

// timestampLayouts are the plain-scalar forms YAML resolves as timestamps.
var timestampLayouts = []string{
	"2006-1-2T15:4:5.999999999Z07:00",
	"2006-1-2t15:4:5.999999999Z07:00",
	"2006-1-2 15:4:5.999999999",
	"2006-1-2",
}

func isTimestamp(s string) bool {
	if len(s) < 5 || s[4] != '-' {
		return false
	}
	for _, c := range s[:4] {
		if c < '0' || c > '9' {
			return false
		}
	}
	for _, layout := range timestampLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

var errNotMapping = errors.New("metadata must be a key/value mapping")

// MetadataFromNode converts a front matter mapping node.
func MetadataFromNode(n *yaml.Node) (Metadata, error) {
	v, err := ValueFromNode(n)
	if err != nil {
		return nil, err
	}
	if v.IsNull() {
		return Metadata{}, nil
	}
	m, ok := v.Map()
	if !ok {
		return nil, errNotMapping
	}
	return Metadata(m), nil
}

// Node converts the metadata to a YAML mapping with sorted keys.
func (m Metadata) Node() *yaml.Node { return mappingNode(m) }
