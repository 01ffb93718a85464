package btree

import "github.com/cockroachdb/errors"

// ErrCorrupt is wrapped by every error Check returns.
var ErrCorrupt = errors.New("btree: structural invariant violated")

// Validate reports whether every structural invariant holds.
func (t *BTree[T]) Validate() bool { return t.Check() == nil }

// Check verifies the structural invariants of the tree and returns an error
// naming the first violated rule and the offending node:
//
//   - every node holds at most 2*order keys, and every non-root node at least
//     order keys;
//   - keys are strictly ascending and lie within [lower, upper) passed down
//     from the parent separators;
//   - internal nodes with k keys have exactly k+1 children, and at least 2;
//   - every leaf is at the same depth;
//   - each child points back at its parent, and the root has no parent;
//   - the leaf chain visits every leaf in key order and ends with nil;
//   - Len matches the number of keys stored in leaves.
func (t *BTree[T]) Check() error {
	if t.root == nil {
		if t.length != 0 {
			return errors.Wrapf(ErrCorrupt, "empty tree reports %d items", t.length)
		}
		return nil
	}
	if _, err := t.root.check(true, nil, nil, nil); err != nil {
		return err
	}
	return t.checkLeafChain()
}

func (n *node[T]) violation(rule string, args ...interface{}) error {
	return errors.Wrapf(ErrCorrupt, "node %p: "+rule, append([]interface{}{n}, args...)...)
}

// check validates the subtree rooted at n against the bounds [lo, hi) and
// returns its height.
func (n *node[T]) check(isRoot bool, parent *node[T], lo, hi *T) (int, error) {
	less := n.tree.less
	if n.parent != parent {
		return 0, n.violation("parent pointer %p, expected %p", n.parent, parent)
	}
	if len(n.items) > n.tree.maxItems() {
		return 0, n.violation("%d keys exceeds maximum %d", len(n.items), n.tree.maxItems())
	}
	if isRoot && len(n.items) == 0 {
		return 0, n.violation("root holds no keys")
	}
	if !isRoot && len(n.items) < n.tree.order {
		return 0, n.violation("%d keys below minimum %d", len(n.items), n.tree.order)
	}
	for i := 1; i < len(n.items); i++ {
		if !less(n.items[i-1], n.items[i]) {
			return 0, n.violation("keys not strictly ascending at index %d", i)
		}
	}
	if len(n.items) > 0 {
		if lo != nil && less(n.items[0], *lo) {
			return 0, n.violation("first key below lower bound of parent separator")
		}
		if hi != nil && !less(n.items[len(n.items)-1], *hi) {
			return 0, n.violation("last key not below upper bound of parent separator")
		}
	}
	if n.leaf() {
		return 1, nil
	}

	if len(n.children) < 2 {
		return 0, n.violation("internal node has %d children", len(n.children))
	}
	if len(n.children) != len(n.items)+1 {
		return 0, n.violation("%d keys but %d children", len(n.items), len(n.children))
	}
	if n.next != nil {
		return 0, n.violation("internal node has a leaf chain link")
	}
	height := 0
	for i, c := range n.children {
		clo, chi := lo, hi
		if i > 0 {
			clo = &n.items[i-1]
		}
		if i < len(n.items) {
			chi = &n.items[i]
		}
		h, err := c.check(false, n, clo, chi)
		if err != nil {
			return 0, err
		}
		if height == 0 {
			height = h
		} else if h != height {
			return 0, n.violation("unbalanced: child %d has height %d, expected %d", i, h, height)
		}
	}
	return height + 1, nil
}

// checkLeafChain compares the next links against a left-to-right walk of the
// leaves.
func (t *BTree[T]) checkLeafChain() error {
	var leaves []*node[T]
	var walk func(n *node[T])
	walk = func(n *node[T]) {
		if n.leaf() {
			leaves = append(leaves, n)
			return
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(t.root)

	count := 0
	for i, leaf := range leaves {
		count += len(leaf.items)
		var want *node[T]
		if i+1 < len(leaves) {
			want = leaves[i+1]
		}
		if leaf.next != want {
			return leaf.violation("leaf chain points at %p, expected %p", leaf.next, want)
		}
	}
	if count != t.length {
		return errors.Wrapf(ErrCorrupt, "leaves hold %d keys but tree reports %d", count, t.length)
	}
	return nil
}
