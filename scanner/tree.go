package scanner

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type Kind int

const (
	KindFile Kind = iota
	KindDir
)

func (k Kind) String() string {
	if k == KindDir {
		return "dir"
	}
	return "file"
}

// Node is one entry in the scan tree. A file's size is set once at
// discovery; a directory's size is the exact sum of its children once
// the subtree settles. The parent pointer is a non-owning back
// reference used for bottom-up propagation; ownership runs root to
// leaf through the children slice.
type Node struct {
	Path       string
	Name       string
	Kind       Kind
	ModTime    time.Time
	AccessTime time.Time

	size    atomic.Int64
	parent  *Node
	ord     int
	settled atomic.Bool

	mu       sync.Mutex
	children []*Node
}

func (n *Node) Size() int64 {
	return n.size.Load()
}

func (n *Node) Parent() *Node {
	return n.parent
}

// Settled reports whether the subtree rooted here finished traversal
// and had its children sorted and validated.
func (n *Node) Settled() bool {
	return n.settled.Load()
}

// Children returns a snapshot of the child list.
func (n *Node) Children() []*Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// Walk visits the subtree depth-first, parent before children.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children() {
		c.Walk(fn)
	}
}

func (n *Node) MarshalJSON() ([]byte, error) {
	type nodeJSON struct {
		Name     string  `json:"name"`
		Path     string  `json:"path"`
		Kind     string  `json:"kind"`
		Size     int64   `json:"size"`
		ModTime  string  `json:"mod_time,omitempty"`
		Children []*Node `json:"children,omitempty"`
	}
	out := nodeJSON{
		Name: n.Name,
		Path: n.Path,
		Kind: n.Kind.String(),
		Size: n.Size(),
	}
	if !n.ModTime.IsZero() {
		out.ModTime = n.ModTime.UTC().Format(time.RFC3339)
	}
	if n.Kind == KindDir {
		out.Children = n.Children()
	}
	return json.Marshal(out)
}

// TreeBuilder owns the shared mutable graph. Size updates are atomic
// per node and child-list appends are locked per parent, so workers in
// disjoint subtrees never contend on each other's nodes.
type TreeBuilder struct {
	root *Node
}

func NewTreeBuilder(rootPath string) *TreeBuilder {
	name := filepath.Base(rootPath)
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = rootPath
	}
	return &TreeBuilder{
		root: &Node{
			Path: rootPath,
			Name: name,
			Kind: KindDir,
		},
	}
}

func (b *TreeBuilder) Root() *Node {
	return b.root
}

// NewChild appends a discovered entry under parent. The discovery index
// is recorded so later sorts can break size ties stably.
func (b *TreeBuilder) NewChild(parent *Node, name string, kind Kind, size int64) *Node {
	child := &Node{
		Path:   filepath.Join(parent.Path, name),
		Name:   name,
		Kind:   kind,
		parent: parent,
	}
	child.size.Store(size)

	parent.mu.Lock()
	child.ord = len(parent.children)
	parent.children = append(parent.children, child)
	parent.mu.Unlock()
	return child
}

// Settle finishes a directory whose traversal is exhausted: children
// are sorted descending by size (discovery order on ties) and the
// directory size becomes the exact sum of theirs. complete is false
// when traversal was cut short by cancellation; sizes stay consistent
// but the node is not marked settled.
func (b *TreeBuilder) Settle(n *Node, complete bool) {
	if n.Kind != KindDir {
		n.settled.Store(true)
		return
	}

	n.mu.Lock()
	var sum int64
	for _, c := range n.children {
		sum += c.Size()
	}
	sortChildrenLocked(n)
	n.mu.Unlock()

	n.size.Store(sum)
	if complete {
		n.settled.Store(true)
	}
}

// UpdateAfterDeletion reflects an out-of-band deletion: the node's size
// is subtracted from every ancestor, the node is detached from its
// parent, and the parent's remaining children are re-sorted. Keeps the
// in-memory tree consistent without a rescan.
func (b *TreeBuilder) UpdateAfterDeletion(n *Node) error {
	if n == b.root {
		return fmt.Errorf("cannot remove the scan root")
	}
	parent := n.parent
	if parent == nil {
		return fmt.Errorf("node %s is already detached", n.Path)
	}

	parent.mu.Lock()
	found := false
	for i, c := range parent.children {
		if c == n {
			parent.children = append(parent.children[:i], parent.children[i+1:]...)
			found = true
			break
		}
	}
	if found {
		sortChildrenLocked(parent)
	}
	parent.mu.Unlock()
	if !found {
		return fmt.Errorf("node %s not found under %s", n.Path, parent.Path)
	}

	delta := n.Size()
	for anc := parent; anc != nil; anc = anc.parent {
		anc.size.Add(-delta)
	}
	n.parent = nil
	return nil
}

// FindByPath descends from n toward target, visiting only children on
// the target's path. O(depth), not O(nodes).
func (n *Node) FindByPath(target string) *Node {
	if n.Path == target {
		return n
	}
	sep := string(filepath.Separator)
	for _, child := range n.Children() {
		if strings.HasPrefix(target+sep, child.Path+sep) {
			return child.FindByPath(target)
		}
	}
	return nil
}

func sortChildrenLocked(n *Node) {
	sort.Slice(n.children, func(i, j int) bool {
		a, b := n.children[i], n.children[j]
		sa, sb := a.Size(), b.Size()
		if sa != sb {
			return sa > sb
		}
		return a.ord < b.ord
	})
}
