package btree

// Get looks for the item equal to key in the tree, returning it and whether it
// was found. Only leaves answer: separators matched on the way down are
// copies and the search continues into their right child.
func (t *BTree[T]) Get(key T) (_ T, _ bool) {
	if t.root == nil {
		return
	}
	n := t.root
	for !n.leaf() {
		n = n.children[n.route(key)]
	}
	if i, found := n.locate(key); found {
		return n.items[i], true
	}
	return
}

// Has returns true if the given key is in the tree.
func (t *BTree[T]) Has(key T) bool {
	_, ok := t.Get(key)
	return ok
}

// Min returns the smallest item in the tree, or (zeroValue, false) if the tree
// is empty.
func (t *BTree[T]) Min() (_ T, _ bool) {
	if t.root == nil {
		return
	}
	return t.root.leftmostLeaf().items[0], true
}

// Max returns the largest item in the tree, or (zeroValue, false) if the tree
// is empty.
func (t *BTree[T]) Max() (_ T, _ bool) {
	if t.root == nil {
		return
	}
	leaf := t.root.rightmostLeaf()
	return leaf.items[len(leaf.items)-1], true
}

// Range returns an iterator over the items in [min, max] in ascending order.
// It returns nil when the tree is empty. The iterator is single use.
func (t *BTree[T]) Range(min, max T) *Iterator[T] {
	if t.root == nil {
		return nil
	}
	n := t.root
	for !n.leaf() {
		n = n.children[n.route(min)]
	}
	i, _ := n.locate(min)
	return &Iterator[T]{less: t.less, leaf: n, pos: i, max: max}
}

// AscendRange calls fn for every item in [min, max] until fn returns false.
func (t *BTree[T]) AscendRange(min, max T, fn ItemIterator[T]) {
	it := t.Range(min, max)
	for it.Next() {
		if !fn(it.Item()) {
			return
		}
	}
}

// Ascend calls fn for every item in the tree, in order, until fn returns
// false.
func (t *BTree[T]) Ascend(fn ItemIterator[T]) {
	if t.root == nil {
		return
	}
	for n := t.root.leftmostLeaf(); n != nil; n = n.next {
		for _, item := range n.items {
			if !fn(item) {
				return
			}
		}
	}
}

// Iterator walks the leaf chain from the first key >= min up to max.
// A nil *Iterator is empty.
type Iterator[T any] struct {
	less LessFunc[T]
	leaf *node[T]
	pos  int
	max  T
	item T
}

// Next advances to the next item, returning false once the range is
// exhausted.
func (it *Iterator[T]) Next() bool {
	if it == nil {
		return false
	}
	for it.leaf != nil {
		if it.pos == len(it.leaf.items) {
			it.leaf, it.pos = it.leaf.next, 0
			continue
		}
		item := it.leaf.items[it.pos]
		if it.less(it.max, item) {
			it.leaf = nil
			return false
		}
		it.item = item
		it.pos++
		return true
	}
	return false
}

// Item returns the item the iterator is positioned on.
func (it *Iterator[T]) Item() T { return it.item }

// Collect drains the iterator into a slice.
func (it *Iterator[T]) Collect() []T {
	var out []T
	for it.Next() {
		out = append(out, it.Item())
	}
	return out
}
