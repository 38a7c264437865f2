// internal/doc/codec.go
package doc

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Marshal serializes a document tree to JSON.
func Marshal(root *Node) ([]byte, error) {
	if root == nil {
		return nil, fmt.Errorf("doc: cannot marshal nil document")
	}
	return json.Marshal(root)
}

// MarshalIndent serializes a document tree to indented JSON for humans.
func MarshalIndent(root *Node) ([]byte, error) {
	if root == nil {
		return nil, fmt.Errorf("doc: cannot marshal nil document")
	}
	return json.MarshalIndent(root, "", "  ")
}

// Unmarshal parses a document tree from JSON and validates its basic shape.
func Unmarshal(data []byte) (*Node, error) {
	var root Node
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("doc: decode: %w", err)
	}
	if err := validate(&root); err != nil {
		return nil, err
	}
	return &root, nil
}

// validate rejects trees that no engine could operate on. It is deliberately
// shallow: merge/chain invariants are checked by editor.CheckIntegrity, not
// here.
func validate(root *Node) error {
	if root.Kind == "" {
		return fmt.Errorf("doc: root node has no kind")
	}
	var bad error
	Walk(root, func(p Path, n *Node) bool {
		if bad != nil {
			return false
		}
		if n.Kind == "" {
			bad = fmt.Errorf("doc: node at %v has no kind", p)
			return false
		}
		if n.Kind == KindText && len(n.Children) > 0 {
			bad = fmt.Errorf("doc: text node at %v has children", p)
			return false
		}
		if n.Attrs.ColSpan < 0 || n.Attrs.RowSpan < 0 {
			bad = fmt.Errorf("doc: node at %v has negative span", p)
			return false
		}
		return true
	})
	return bad
}
