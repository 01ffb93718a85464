package btree

import (
	"github.com/btree-query-bench/verdant/index"
)

var _ index.Index = (*Map)(nil)

type entry struct {
	key   int64
	value []byte
}

func entryLess(a, b entry) bool { return a.key < b.key }

// Map is an int64 -> []byte index backed by a BTree.
type Map struct {
	tree *BTree[entry]
}

// NewMap returns an empty Map whose tree has the given order.
func NewMap(order int) *Map {
	return &Map{tree: New[entry](order, entryLess)}
}

// Tree exposes the underlying tree for diagnostics. The returned tree must not
// be mutated.
func (m *Map) Tree() *BTree[entry] { return m.tree }

func (m *Map) Insert(key int64, value []byte) error {
	m.tree.Insert(entry{key: key, value: value})
	return nil
}

func (m *Map) Get(key int64) ([]byte, error) {
	e, ok := m.tree.Get(entry{key: key})
	if !ok {
		return nil, index.ErrNotFound
	}
	return e.value, nil
}

func (m *Map) Delete(key int64) error {
	if _, ok := m.tree.Delete(entry{key: key}); !ok {
		return index.ErrNotFound
	}
	return nil
}

func (m *Map) Range(start, end int64) (index.Iterator, error) {
	return &mapIterator{it: m.tree.Range(entry{key: start}, entry{key: end})}, nil
}

func (m *Map) Len() int     { return m.tree.Len() }
func (m *Map) Close() error { return nil }

// Check validates the underlying tree.
func (m *Map) Check() error { return m.tree.Check() }

type mapIterator struct {
	it *Iterator[entry]
}

func (it *mapIterator) Next() bool    { return it.it.Next() }
func (it *mapIterator) Key() int64    { return it.it.Item().key }
func (it *mapIterator) Value() []byte { return it.it.Item().value }
func (it *mapIterator) Error() error  { return nil }
func (it *mapIterator) Close() error  { return nil }
