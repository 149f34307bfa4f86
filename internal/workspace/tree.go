package workspace

import "strings"

// Kind tags a Node as a file entry or a directory.
type Kind uint8

const (
	KindEntry Kind = iota
	KindDirectory
)

func (k Kind) String() string {
	if k == KindDirectory {
		return "directory"
	}
	return "entry"
}

// Node is one element of a Tree. Entries carry the file's relative path and
// content; directories carry their children in insertion order.
type Node struct {
	Kind    Kind
	Name    string // last path segment; empty for the root
	Path    string // slash-separated path relative to the workspace root
	Content string // entries only

	children []int
	index    map[string]int
}

// Tree is the workspace file tree, stored as an arena of nodes. Node 0 is the
// root directory.
type Tree struct {
	nodes   []Node
	entries int
}

func newTree() *Tree {
	return &Tree{nodes: []Node{{Kind: KindDirectory, index: map[string]int{}}}}
}

// add folds path into nested directories and stores content in the final
// segment's entry. It reports false when a segment is already occupied by a
// node of the other kind.
func (t *Tree) add(path, content string) bool {
	parts := strings.Split(path, "/")
	cur := 0
	for i, part := range parts {
		last := i == len(parts)-1
		if idx, ok := t.nodes[cur].index[part]; ok {
			n := &t.nodes[idx]
			switch {
			case last && n.Kind == KindEntry:
				n.Content = content
				return true
			case last || n.Kind != KindDirectory:
				return false
			}
			cur = idx
			continue
		}

		n := Node{Name: part, Path: strings.Join(parts[:i+1], "/")}
		if last {
			n.Kind = KindEntry
			n.Content = content
			t.entries++
		} else {
			n.Kind = KindDirectory
			n.index = map[string]int{}
		}
		idx := len(t.nodes)
		t.nodes = append(t.nodes, n)
		t.nodes[cur].children = append(t.nodes[cur].children, idx)
		t.nodes[cur].index[part] = idx
		cur = idx
	}
	return true
}

// Len returns the number of file entries.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return t.entries
}

// Lookup returns the node at the slash-separated path. "" and "." name the root.
func (t *Tree) Lookup(path string) (Node, bool) {
	if t == nil {
		return Node{}, false
	}
	cur := 0
	if path != "" && path != "." {
		for _, part := range strings.Split(path, "/") {
			idx, ok := t.nodes[cur].index[part]
			if !ok {
				return Node{}, false
			}
			cur = idx
		}
	}
	return t.nodes[cur], true
}

// Walk visits every node below the root depth-first, children in insertion
// order. Returning false from fn stops the walk.
func (t *Tree) Walk(fn func(n Node) bool) {
	if t == nil {
		return
	}
	t.walk(0, fn)
}

func (t *Tree) walk(idx int, fn func(Node) bool) bool {
	for _, c := range t.nodes[idx].children {
		if !fn(t.nodes[c]) {
			return false
		}
		if t.nodes[c].Kind == KindDirectory && !t.walk(c, fn) {
			return false
		}
	}
	return true
}

// Children returns the names of a directory's children in insertion order.
func (n Node) Children(t *Tree) []string {
	names := make([]string, 0, len(n.children))
	for _, c := range n.children {
		names = append(names, t.nodes[c].Name)
	}
	return names
}
