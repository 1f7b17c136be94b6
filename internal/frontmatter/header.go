package frontmatter

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrNotMapping reports a header whose top-level YAML value is not a mapping.
var ErrNotMapping = errors.New("front matter is not a key/value mapping")

// Decode parses header YAML into its top-level mapping node. An empty,
// comment-only or null header decodes to an empty mapping.
func Decode(header []byte) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(header, &doc); err != nil {
		return nil, fmt.Errorf("front matter: %w", err)
	}
	if len(doc.Content) == 0 {
		return EmptyMapping(), nil
	}
	root := doc.Content[0]
	switch {
	case root.Kind == yaml.MappingNode:
		return root, nil
	case root.Kind == yaml.ScalarNode && root.ShortTag() == "!!null":
		return EmptyMapping(), nil
	}
	return nil, fmt.Errorf("%w: line %d holds a %s", ErrNotMapping, root.Line, nodeKind(root))
}

// Encode writes a header mapping as block YAML indented by two spaces with
// the given line break. An empty mapping encodes to nothing.
func Encode(header *yaml.Node, newline string) ([]byte, error) {
	if header == nil || len(header.Content) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(header); err != nil {
		_ = enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	if newline == "\r\n" {
		return bytes.ReplaceAll(buf.Bytes(), []byte("\n"), []byte("\r\n")), nil
	}
	return buf.Bytes(), nil
}

// EmptyMapping returns a mapping node with no entries.
func EmptyMapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

func nodeKind(n *yaml.Node) string {
	switch n.Kind {
	case yaml.SequenceNode:
		return "list"
	case yaml.AliasNode:
		return "alias"
	default:
		return "scalar"
	}
}
