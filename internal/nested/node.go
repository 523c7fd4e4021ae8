package nested

import (
	"sort"

	"github.com/starford/nestmaid/internal/diagram"
)

// Node is a resolved diagram: its type, its content with every embed site
// substituted, and its resolved children keyed by id. A definition embedded
// under two parents yields two independent nodes.
type Node struct {
	Type             diagram.Type     `json:"type"`
	Content          string           `json:"content"`
	Nested           map[string]*Node `json:"nested_diagrams"`
	ParentReferences []string         `json:"parent_references"`
}

// Lookup follows a path of ids from n down the tree.
func (n *Node) Lookup(path ...string) (*Node, bool) {
	cur := n
	for _, id := range path {
		next, ok := cur.Nested[id]
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// WalkFunc receives the id path of a node (empty for the root) and the node.
type WalkFunc func(path []string, n *Node) error

// Walk visits n and its descendants depth-first, parents before children and
// siblings in id order. It stops at the first error.
func (n *Node) Walk(fn WalkFunc) error {
	return n.walk(nil, fn)
}

func (n *Node) walk(path []string, fn WalkFunc) error {
	if err := fn(path, n); err != nil {
		return err
	}
	ids := make([]string, 0, len(n.Nested))
	for id := range n.Nested {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		child := append(append([]string(nil), path...), id)
		if err := n.Nested[id].walk(child, fn); err != nil {
			return err
		}
	}
	return nil
}

// Count returns the number of nodes in the tree rooted at n.
func (n *Node) Count() int {
	total := 0
	_ = n.Walk(func([]string, *Node) error {
		total++
		return nil
	})
	return total
}
