package btree

import "github.com/cockroachdb/errors"

// removal is the outcome of deleting from a subtree. When merged is set the
// child at sep+1 of the parent has been folded into the child at sep and the
// parent must drop items[sep] and children[sep+1].
type removal[T any] struct {
	item   T
	found  bool
	merged bool
	sep    int
}

func (n *node[T]) remove(item T) removal[T] {
	if n.leaf() {
		return n.removeFromLeaf(item)
	}
	return n.removeFromInternal(item)
}

func (n *node[T]) removeFromLeaf(item T) removal[T] {
	i, found := n.locate(item)
	if !found {
		return removal[T]{}
	}
	return n.rebalance(n.items.removeAt(i))
}

func (n *node[T]) removeFromInternal(item T) removal[T] {
	r := n.children[n.route(item)].remove(item)
	if !r.merged {
		return r
	}
	n.items.removeAt(r.sep)
	n.children.removeAt(r.sep + 1)
	return n.rebalance(r.item)
}

// rebalance restores the minimum occupancy of n after it lost a key, first by
// borrowing from a sibling with spare keys and otherwise by merging.
func (n *node[T]) rebalance(removed T) removal[T] {
	done := removal[T]{item: removed, found: true}
	if n.root() || len(n.items) >= n.tree.order {
		return done
	}

	prev, next, pos := n.siblings()
	switch {
	case prev != nil && !prev.least():
		n.borrowFromPrev(prev, pos-1)
	case next != nil && !next.least():
		n.borrowFromNext(next, pos)
	case prev != nil:
		merge(prev, n, pos-1)
		done.merged, done.sep = true, pos-1
	case next != nil:
		merge(n, next, pos)
		done.merged, done.sep = true, pos
	default:
		panic(errors.AssertionFailedf("btree: underfull node %p has no sibling under parent %p", n, n.parent))
	}
	return done
}

// borrowFromPrev rotates the last key of prev through parent.items[sep]
// into the front of n.
func (n *node[T]) borrowFromPrev(prev *node[T], sep int) {
	parent := n.parent
	if n.leaf() {
		moved := prev.items.pop()
		parent.items[sep] = moved
		n.items.insertAt(0, moved)
		return
	}
	n.items.insertAt(0, parent.items[sep])
	parent.items[sep] = prev.items.pop()
	n.children.insertAt(0, n.adopt(prev.children.pop()))
}

// borrowFromNext rotates the first key of next through parent.items[sep]
// onto the end of n.
func (n *node[T]) borrowFromNext(next *node[T], sep int) {
	parent := n.parent
	if n.leaf() {
		n.items = append(n.items, next.items.removeAt(0))
		parent.items[sep] = next.items[0]
		return
	}
	n.items = append(n.items, parent.items[sep])
	parent.items[sep] = next.items.removeAt(0)
	n.children = append(n.children, n.adopt(next.children.removeAt(0)))
}

// merge folds right into left. Internal merges pull the parent separator down
// between the two key lists; leaf merges splice right out of the leaf chain.
// The parent itself is fixed up by the caller one level up.
func merge[T any](left, right *node[T], sep int) {
	if left.leaf() {
		if left.next != right {
			panic(errors.AssertionFailedf("btree: leaf %p is not chained to its right sibling %p", left, right))
		}
		left.items = append(left.items, right.items...)
		left.next = right.next
		right.next = nil
		return
	}
	left.items = append(left.items, left.parent.items[sep])
	left.items = append(left.items, right.items...)
	for _, c := range right.children {
		left.children = append(left.children, left.adopt(c))
	}
	right.children = nil
}
