// Package btree implements an in-memory, generic B-tree of configurable order.
//
// Every node except the root holds between order and 2*order keys. Items live
// in the leaves, which are linked in ascending order so range scans walk the
// leaf chain instead of re-descending the tree. Keys stored in internal nodes
// are separator copies: an exact match at an internal node still descends into
// the right child.
//
// Inserting an item equal to one already present replaces it. A full node
// first tries to hand a key to a sibling with spare room before it splits, and
// a node that drops below order keys on delete borrows from or merges with a
// sibling.
//
// A BTree is not safe for concurrent use. Mutating the tree while an Iterator
// is open invalidates the iterator.
//
// Structural invariant violations found during a mutation mean the tree was
// already corrupted; they panic with an assertion failure from
// github.com/cockroachdb/errors rather than return an error.
package btree

import (
	"cmp"

	"github.com/cockroachdb/errors"
)

// LessFunc determines how to order a type 'T'. It should implement a strict
// ordering; two items a and b with !less(a, b) && !less(b, a) are equal and
// only one of them is held by the tree.
type LessFunc[T any] func(a, b T) bool

// ItemIterator allows callers of Ascend* to iterate in-order over portions of
// the tree. When this function returns false, iteration stops.
type ItemIterator[T any] func(item T) bool

// BTree is a generic B-tree. The zero value is not usable; use New or
// NewOrdered.
type BTree[T any] struct {
	order  int
	less   LessFunc[T]
	root   *node[T]
	length int
}

// New creates an empty B-tree whose nodes hold between order and 2*order
// keys. It panics if order is not positive or less is nil.
func New[T any](order int, less LessFunc[T]) *BTree[T] {
	if order <= 0 {
		panic("btree: bad order")
	}
	if less == nil {
		panic("btree: nil less func")
	}
	return &BTree[T]{order: order, less: less}
}

// NewOrdered creates a B-tree for types ordered by the < operator.
func NewOrdered[T cmp.Ordered](order int) *BTree[T] {
	return New[T](order, cmp.Less[T])
}

// Order returns the branching parameter the tree was built with.
func (t *BTree[T]) Order() int { return t.order }

func (t *BTree[T]) maxItems() int { return 2 * t.order }

func (t *BTree[T]) newItems() items[T] { return make(items[T], 0, t.maxItems()+1) }

func (t *BTree[T]) newChildren() children[T] {
	return make(children[T], 0, t.maxItems()+2)
}

func (t *BTree[T]) newNode(parent *node[T]) *node[T] {
	return &node[T]{tree: t, items: t.newItems(), parent: parent}
}

// Insert adds item to the tree. If an equal item is already present it is
// replaced and returned with replaced set to true. Insert never fails.
func (t *BTree[T]) Insert(item T) (old T, replaced bool) {
	if t.root == nil {
		t.root = t.newNode(nil)
	}
	p, old, replaced := t.root.insert(item)
	if !replaced {
		t.length++
	}
	if p == nil {
		return old, replaced
	}

	root := t.newNode(nil)
	root.items = append(root.items, p.key)
	root.children = t.newChildren()
	root.children = append(root.children, root.adopt(t.root), root.adopt(p.right))
	t.root = root
	return old, replaced
}

// Delete removes the item equal to the given one and returns it, or reports
// false if no such item exists.
func (t *BTree[T]) Delete(item T) (T, bool) {
	if t.root == nil {
		var zero T
		return zero, false
	}
	r := t.root.remove(item)
	if r.merged {
		panic(errors.AssertionFailedf("btree: root %p signalled a merge at separator %d", t.root, r.sep))
	}
	if !r.found {
		return r.item, false
	}
	t.length--

	if len(t.root.items) == 0 {
		if t.root.leaf() {
			t.root = nil
		} else {
			t.root = t.root.children[0]
			t.root.parent = nil
		}
	}
	return r.item, true
}

// Clear removes every item from the tree.
func (t *BTree[T]) Clear() {
	t.root = nil
	t.length = 0
}

// Len returns the number of items in the tree.
func (t *BTree[T]) Len() int { return t.length }

// Height returns the number of levels in the tree; 0 when it is empty.
func (t *BTree[T]) Height() int {
	if t.root == nil {
		return 0
	}
	return t.root.height()
}

// CountNodes returns the number of nodes in the tree.
func (t *BTree[T]) CountNodes() int {
	if t.root == nil {
		return 0
	}
	return t.root.countNodes()
}

// CountKeys returns the number of keys held by all nodes, internal separator
// copies included.
func (t *BTree[T]) CountKeys() int {
	if t.root == nil {
		return 0
	}
	return t.root.countKeys()
}

// AverageKeysPerNode returns CountKeys divided by CountNodes, or 0 for an
// empty tree.
func (t *BTree[T]) AverageKeysPerNode() float64 {
	nodes := t.CountNodes()
	if nodes == 0 {
		return 0
	}
	return float64(t.CountKeys()) / float64(nodes)
}
