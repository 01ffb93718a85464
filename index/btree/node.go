package btree

import (
	"sort"

	"github.com/cockroachdb/errors"
)

// node is one B-tree node. Leaves have no children. Internal keys are
// separator copies; the authoritative items live in the leaves, which are
// chained through next in ascending order.
type node[T any] struct {
	tree     *BTree[T]
	items    items[T]
	children children[T]
	parent   *node[T]
	next     *node[T]
}

// items stores the keys of a node.
type items[T any] []T

// insertAt inserts a value into the given index, pushing all subsequent values
// forward.
func (s *items[T]) insertAt(index int, item T) {
	var zero T
	*s = append(*s, zero)
	if index < len(*s) {
		copy((*s)[index+1:], (*s)[index:])
	}
	(*s)[index] = item
}

// removeAt removes a value at a given index, pulling all subsequent values
// back.
func (s *items[T]) removeAt(index int) T {
	item := (*s)[index]
	copy((*s)[index:], (*s)[index+1:])
	var zero T
	(*s)[len(*s)-1] = zero
	*s = (*s)[:len(*s)-1]
	return item
}

// pop removes and returns the last element in the list.
func (s *items[T]) pop() T {
	index := len(*s) - 1
	out := (*s)[index]
	var zero T
	(*s)[index] = zero
	*s = (*s)[:index]
	return out
}

// children stores the owned child nodes of an internal node.
type children[T any] []*node[T]

func (s *children[T]) insertAt(index int, n *node[T]) {
	*s = append(*s, nil)
	if index < len(*s) {
		copy((*s)[index+1:], (*s)[index:])
	}
	(*s)[index] = n
}

func (s *children[T]) removeAt(index int) *node[T] {
	n := (*s)[index]
	copy((*s)[index:], (*s)[index+1:])
	(*s)[len(*s)-1] = nil
	*s = (*s)[:len(*s)-1]
	return n
}

func (s *children[T]) pop() *node[T] {
	index := len(*s) - 1
	out := (*s)[index]
	(*s)[index] = nil
	*s = (*s)[:index]
	return out
}

func (n *node[T]) leaf() bool { return len(n.children) == 0 }

func (n *node[T]) root() bool { return n.parent == nil }

func (n *node[T]) full() bool { return len(n.items) >= n.tree.maxItems() }

// least reports whether a non-root node is at the minimum occupancy and
// cannot give a key away.
func (n *node[T]) least() bool { return len(n.items) <= n.tree.order }

// locate returns the index of item in n.items if present, or the index of the
// smallest key greater than item.
func (n *node[T]) locate(item T) (int, bool) {
	less := n.tree.less
	i := sort.Search(len(n.items), func(i int) bool {
		return less(item, n.items[i])
	})
	if i > 0 && !less(n.items[i-1], item) {
		return i - 1, true
	}
	return i, false
}

// route returns the child index a search for item descends into. Exact matches
// go right: the separator is a copy of the first key of its right subtree.
func (n *node[T]) route(item T) int {
	i, found := n.locate(item)
	if found {
		i++
	}
	return i
}

// position returns the index of n in its parent's children.
func (n *node[T]) position() int {
	for i, c := range n.parent.children {
		if c == n {
			return i
		}
	}
	panic(errors.AssertionFailedf("btree: node %p not found among children of its parent %p", n, n.parent))
}

// siblings returns the immediate neighbours of n under its parent (nil where
// absent) and the index of n in the parent.
func (n *node[T]) siblings() (prev, next *node[T], pos int) {
	pos = n.position()
	if pos > 0 {
		prev = n.parent.children[pos-1]
	}
	if pos < len(n.parent.children)-1 {
		next = n.parent.children[pos+1]
	}
	return prev, next, pos
}

func (n *node[T]) adopt(c *node[T]) *node[T] {
	c.parent = n
	return c
}

func (n *node[T]) height() int {
	h := 1
	for !n.leaf() {
		n = n.children[0]
		h++
	}
	return h
}

func (n *node[T]) countNodes() int {
	total := 1
	for _, c := range n.children {
		total += c.countNodes()
	}
	return total
}

func (n *node[T]) countKeys() int {
	total := len(n.items)
	for _, c := range n.children {
		total += c.countKeys()
	}
	return total
}

func (n *node[T]) leftmostLeaf() *node[T] {
	for !n.leaf() {
		n = n.children[0]
	}
	return n
}

func (n *node[T]) rightmostLeaf() *node[T] {
	for !n.leaf() {
		n = n.children[len(n.children)-1]
	}
	return n
}
