package btree

import "github.com/cockroachdb/errors"

// promotion is what a split hands to the parent: the separator key and the new
// right sibling. A nil *promotion means the subtree absorbed the insert.
type promotion[T any] struct {
	key   T
	right *node[T]
}

// insert adds item to the subtree rooted at n, overwriting an equal item in a
// leaf. It returns the promotion the parent must absorb, if any, and the item
// that was replaced.
func (n *node[T]) insert(item T) (_ *promotion[T], old T, replaced bool) {
	var right *node[T]
	if !n.leaf() {
		p, prev, ok := n.children[n.route(item)].insert(item)
		if p == nil {
			return nil, prev, ok
		}
		item, right = p.key, p.right
	}

	i, found := n.locate(item)
	if found {
		if !n.leaf() {
			panic(errors.AssertionFailedf("btree: promoted separator already present in internal node %p", n))
		}
		old = n.items[i]
		n.items[i] = item
		return nil, old, true
	}

	if !n.full() {
		n.insertAt(i, item, right)
		return nil, old, false
	}
	if !n.root() && (n.shiftToPrev(i, item, right) || n.shiftToNext(i, item, right)) {
		return nil, old, false
	}
	return n.split(i, item, right), old, false
}

// insertAt places item at index i and, for internal nodes, right as the child
// immediately after it.
func (n *node[T]) insertAt(i int, item T, right *node[T]) {
	n.items.insertAt(i, item)
	if right != nil {
		n.children.insertAt(i+1, n.adopt(right))
	}
}

// shiftToPrev makes room in a full node by rotating its first key (and first
// child) through the parent into the previous sibling, then inserts item at i.
func (n *node[T]) shiftToPrev(i int, item T, right *node[T]) bool {
	prev, _, pos := n.siblings()
	if prev == nil || prev.full() {
		return false
	}
	parent, sep := n.parent, pos-1

	if n.leaf() {
		if i == 0 {
			prev.items = append(prev.items, item)
		} else {
			prev.items = append(prev.items, n.items.removeAt(0))
			n.items.insertAt(i-1, item)
		}
		parent.items[sep] = n.items[0]
		return true
	}

	prev.items = append(prev.items, parent.items[sep])
	prev.children = append(prev.children, prev.adopt(n.children.removeAt(0)))
	if i == 0 {
		parent.items[sep] = item
		n.children.insertAt(0, n.adopt(right))
		return true
	}
	parent.items[sep] = n.items.removeAt(0)
	n.items.insertAt(i-1, item)
	n.children.insertAt(i, n.adopt(right))
	return true
}

// shiftToNext is the mirror of shiftToPrev: the last key (and last child)
// rotates through the parent into the next sibling.
func (n *node[T]) shiftToNext(i int, item T, right *node[T]) bool {
	_, next, pos := n.siblings()
	if next == nil || next.full() {
		return false
	}
	parent, sep := n.parent, pos

	if n.leaf() {
		if i == len(n.items) {
			next.items.insertAt(0, item)
			parent.items[sep] = item
			return true
		}
		last := n.items.pop()
		next.items.insertAt(0, last)
		parent.items[sep] = last
		n.items.insertAt(i, item)
		return true
	}

	next.items.insertAt(0, parent.items[sep])
	if i == len(n.items) {
		parent.items[sep] = item
		next.children.insertAt(0, next.adopt(right))
		return true
	}
	parent.items[sep] = n.items.pop()
	next.children.insertAt(0, next.adopt(n.children.pop()))
	n.items.insertAt(i, item)
	n.children.insertAt(i+1, n.adopt(right))
	return true
}

// split divides a full node that must also take item at index i. The median
// is the key at index order of the combined sequence. Leaves keep the median
// as the first key of the new sibling; internal nodes hand it up.
func (n *node[T]) split(i int, item T, right *node[T]) *promotion[T] {
	m := n.tree.order
	all := make(items[T], 0, len(n.items)+1)
	all = append(all, n.items[:i]...)
	all = append(all, item)
	all = append(all, n.items[i:]...)
	median := all[m]

	sib := n.tree.newNode(n.parent)
	if n.leaf() {
		n.items = append(n.tree.newItems(), all[:m]...)
		sib.items = append(sib.items, all[m:]...)
		sib.next = n.next
		n.next = sib
		return &promotion[T]{key: median, right: sib}
	}

	kids := make(children[T], 0, len(n.children)+1)
	kids = append(kids, n.children[:i+1]...)
	kids = append(kids, right)
	kids = append(kids, n.children[i+1:]...)

	n.items = append(n.tree.newItems(), all[:m]...)
	sib.items = append(sib.items, all[m+1:]...)
	n.children = n.tree.newChildren()
	for _, c := range kids[:m+1] {
		n.children = append(n.children, n.adopt(c))
	}
	for _, c := range kids[m+1:] {
		sib.children = append(sib.children, sib.adopt(c))
	}
	return &promotion[T]{key: median, right: sib}
}
