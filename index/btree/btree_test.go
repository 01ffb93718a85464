package btree

import (
	"flag"
	"fmt"
	"math/rand"
	"slices"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var btreeOrder = flag.Int("order", 16, "B-tree order used by the benchmarks")

func leafKeys[T any](t *BTree[T]) [][]T {
	var out [][]T
	if t.root == nil {
		return out
	}
	for n := t.root.leftmostLeaf(); n != nil; n = n.next {
		out = append(out, slices.Clone([]T(n.items)))
	}
	return out
}

func all[T any](t *BTree[T]) (out []T) {
	t.Ascend(func(item T) bool {
		out = append(out, item)
		return true
	})
	return out
}

func TestSplitRootLeaf(t *testing.T) {
	tr := NewOrdered[int](2)
	for _, k := range []int{10, 20, 30, 40} {
		tr.Insert(k)
		require.NoError(t, tr.Check())
	}
	require.Equal(t, 1, tr.Height())
	require.Equal(t, []int{10, 20, 30, 40}, []int(tr.root.items))

	tr.Insert(50)
	require.NoError(t, tr.Check())
	require.Equal(t, 2, tr.Height())
	require.Equal(t, []int{30}, []int(tr.root.items))
	require.Equal(t, [][]int{{10, 20}, {30, 40, 50}}, leafKeys(tr))
	require.Equal(t, 3, tr.CountNodes())
	require.Equal(t, 6, tr.CountKeys())
	require.Equal(t, 5, tr.Len())
	require.InDelta(t, 2.0, tr.AverageKeysPerNode(), 1e-9)
}

func TestDeleteBorrowThenMerge(t *testing.T) {
	tr := NewOrdered[int](2)
	for _, k := range []int{10, 20, 30, 40, 50} {
		tr.Insert(k)
	}

	got, ok := tr.Delete(10)
	require.True(t, ok)
	require.Equal(t, 10, got)
	require.NoError(t, tr.Check())
	require.Equal(t, []int{40}, []int(tr.root.items))
	require.Equal(t, [][]int{{20, 30}, {40, 50}}, leafKeys(tr))

	_, ok = tr.Delete(20)
	require.True(t, ok)
	require.NoError(t, tr.Check())
	require.Equal(t, 1, tr.Height())
	require.Equal(t, [][]int{{30, 40, 50}}, leafKeys(tr))
	require.Nil(t, tr.root.parent)
}

func TestInsertShiftsIntoPrevSibling(t *testing.T) {
	tr := NewOrdered[int](2)
	for _, k := range []int{10, 20, 30, 40, 50, 60} {
		tr.Insert(k)
	}
	require.Equal(t, [][]int{{10, 20}, {30, 40, 50, 60}}, leafKeys(tr))

	tr.Insert(70)
	require.NoError(t, tr.Check())
	require.Equal(t, 2, tr.Height())
	require.Equal(t, []int{40}, []int(tr.root.items))
	require.Equal(t, [][]int{{10, 20, 30}, {40, 50, 60, 70}}, leafKeys(tr))
}

func TestInsertShiftsIntoNextSibling(t *testing.T) {
	tr := NewOrdered[int](2)
	for _, k := range []int{10, 20, 30, 40, 50, 5, 15} {
		tr.Insert(k)
	}
	require.Equal(t, [][]int{{5, 10, 15, 20}, {30, 40, 50}}, leafKeys(tr))

	tr.Insert(12)
	require.NoError(t, tr.Check())
	require.Equal(t, []int{20}, []int(tr.root.items))
	require.Equal(t, [][]int{{5, 10, 12, 15}, {20, 30, 40, 50}}, leafKeys(tr))
}

func TestInsertShiftsOnLastPosition(t *testing.T) {
	tr := NewOrdered[int](2)
	for _, k := range []int{10, 20, 30, 40, 50, 5, 15} {
		tr.Insert(k)
	}
	// 25 lands at the end of the full left leaf and moves straight across.
	tr.Insert(25)
	require.NoError(t, tr.Check())
	require.Equal(t, []int{25}, []int(tr.root.items))
	require.Equal(t, [][]int{{5, 10, 15, 20}, {25, 30, 40, 50}}, leafKeys(tr))
}

type kv struct {
	key, val int
}

func kvLess(a, b kv) bool { return a.key < b.key }

func TestUpsertKeepsShape(t *testing.T) {
	tr := New[kv](3, kvLess)
	for i := 0; i < 200; i++ {
		tr.Insert(kv{i, i})
	}
	keys, nodes, height := tr.CountKeys(), tr.CountNodes(), tr.Height()

	for i := 0; i < 200; i++ {
		old, replaced := tr.Insert(kv{i, -i})
		require.True(t, replaced)
		require.Equal(t, kv{i, i}, old)
	}
	require.NoError(t, tr.Check())
	assert.Equal(t, keys, tr.CountKeys())
	assert.Equal(t, nodes, tr.CountNodes())
	assert.Equal(t, height, tr.Height())
	assert.Equal(t, 200, tr.Len())
	for i := 0; i < 200; i++ {
		got, ok := tr.Get(kv{key: i})
		require.True(t, ok)
		require.Equal(t, -i, got.val)
	}
}

// TestRandomOperations runs random inserts and deletes against a reference
// map and checks invariants, lookups and ranges after every operation.
func TestRandomOperations(t *testing.T) {
	for _, order := range []int{1, 2, 3, 5} {
		t.Run(fmt.Sprintf("order=%d", order), func(t *testing.T) {
			rng := rand.New(rand.NewSource(int64(order)))
			tr := NewOrdered[int](order)
			ref := make(map[int]bool)
			const keySpace = 300

			for op := 0; op < 3000; op++ {
				k := rng.Intn(keySpace)
				if rng.Intn(3) == 0 {
					_, ok := tr.Delete(k)
					require.Equal(t, ref[k], ok, "delete %d", k)
					delete(ref, k)
				} else {
					_, replaced := tr.Insert(k)
					require.Equal(t, ref[k], replaced, "insert %d", k)
					ref[k] = true
				}
				require.NoError(t, tr.Check(), "after op %d on key %d", op, k)
				require.Equal(t, len(ref), tr.Len())

				if op%50 == 0 {
					for x := 0; x < keySpace; x++ {
						require.Equal(t, ref[x], tr.Has(x), "search %d", x)
					}
					lo := rng.Intn(keySpace)
					hi := lo + rng.Intn(keySpace/4)
					var want []int
					for x := lo; x <= hi; x++ {
						if ref[x] {
							want = append(want, x)
						}
					}
					require.Equal(t, want, tr.Range(lo, hi).Collect(), "range [%d, %d]", lo, hi)
				}
			}
		})
	}
}

func TestDrainAndRefill(t *testing.T) {
	tr := NewOrdered[int](2)
	for round := 0; round < 3; round++ {
		perm := rand.Perm(500)
		for _, k := range perm {
			tr.Insert(k)
		}
		require.NoError(t, tr.Check())
		require.Equal(t, 500, tr.Len())

		for _, k := range rand.Perm(500) {
			got, ok := tr.Delete(k)
			require.True(t, ok)
			require.Equal(t, k, got)
			require.NoError(t, tr.Check())
		}
		require.Equal(t, 0, tr.Height())
		require.Nil(t, tr.root)
		require.Equal(t, 0, tr.Len())
		_, ok := tr.Delete(1)
		require.False(t, ok)
	}
}

func TestEmptyTree(t *testing.T) {
	tr := NewOrdered[string](4)
	_, ok := tr.Min()
	require.False(t, ok)
	_, ok = tr.Max()
	require.False(t, ok)
	_, ok = tr.Get("a")
	require.False(t, ok)
	require.Nil(t, tr.Range("a", "z"))
	require.False(t, tr.Range("a", "z").Next())
	require.True(t, tr.Validate())
	require.Equal(t, 0, tr.CountNodes())
	require.Equal(t, 0.0, tr.AverageKeysPerNode())
}

func TestMinMaxAndRange(t *testing.T) {
	tr := NewOrdered[int](2)
	for _, k := range rand.Perm(100) {
		tr.Insert(k * 2)
	}
	min, ok := tr.Min()
	require.True(t, ok)
	require.Equal(t, 0, min)
	max, ok := tr.Max()
	require.True(t, ok)
	require.Equal(t, 198, max)

	require.Equal(t, []int{10, 12, 14}, tr.Range(9, 15).Collect())
	require.Equal(t, []int{194, 196, 198}, tr.Range(193, 1000).Collect())
	require.Empty(t, tr.Range(50, 10).Collect())
	require.Empty(t, tr.Range(199, 300).Collect())

	var seen []int
	tr.AscendRange(0, 198, func(k int) bool {
		seen = append(seen, k)
		return len(seen) < 3
	})
	require.Equal(t, []int{0, 2, 4}, seen)
	require.Len(t, all(tr), 100)
}

func TestClear(t *testing.T) {
	tr := NewOrdered[int](3)
	for i := 0; i < 50; i++ {
		tr.Insert(i)
	}
	tr.Clear()
	require.Equal(t, 0, tr.Len())
	require.Equal(t, 0, tr.Height())
	tr.Insert(7)
	require.True(t, tr.Has(7))
	require.NoError(t, tr.Check())
}

func TestNewPanicsOnBadOrder(t *testing.T) {
	require.Panics(t, func() { NewOrdered[int](0) })
	require.Panics(t, func() { NewOrdered[int](-3) })
	require.Panics(t, func() { New[int](2, nil) })
}

func buildTree(t *testing.T, order, n int) *BTree[int] {
	tr := NewOrdered[int](order)
	for i := 0; i < n; i++ {
		tr.Insert(i)
	}
	require.NoError(t, tr.Check())
	require.GreaterOrEqual(t, tr.Height(), 3)
	return tr
}

func TestCheckDetectsCorruption(t *testing.T) {
	for _, tc := range []struct {
		name    string
		corrupt func(tr *BTree[int])
		want    string
	}{
		{
			name: "unsorted leaf",
			corrupt: func(tr *BTree[int]) {
				leaf := tr.root.leftmostLeaf()
				leaf.items[0], leaf.items[1] = leaf.items[1], leaf.items[0]
			},
			want: "strictly ascending",
		},
		{
			name: "underfull leaf",
			corrupt: func(tr *BTree[int]) {
				leaf := tr.root.leftmostLeaf()
				leaf.items = leaf.items[:1]
				tr.length -= 1
			},
			want: "below minimum",
		},
		{
			name: "overfull leaf",
			corrupt: func(tr *BTree[int]) {
				leaf := tr.root.rightmostLeaf()
				for i := 0; i < 2*tr.order; i++ {
					leaf.items = append(leaf.items, 10000+i)
				}
			},
			want: "exceeds maximum",
		},
		{
			name: "stale parent pointer",
			corrupt: func(tr *BTree[int]) {
				tr.root.children[1].parent = tr.root.children[0]
			},
			want: "parent pointer",
		},
		{
			name: "key outside separator bounds",
			corrupt: func(tr *BTree[int]) {
				tr.root.rightmostLeaf().items[0] = -1
			},
			want: "lower bound",
		},
		{
			name: "missing child",
			corrupt: func(tr *BTree[int]) {
				tr.root.children = tr.root.children[:len(tr.root.children)-1]
			},
			want: "children",
		},
		{
			name: "broken leaf chain",
			corrupt: func(tr *BTree[int]) {
				tr.root.leftmostLeaf().next = nil
			},
			want: "leaf chain",
		},
		{
			name: "length drift",
			corrupt: func(tr *BTree[int]) {
				tr.length++
			},
			want: "tree reports",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			tr := buildTree(t, 2, 200)
			tc.corrupt(tr)
			err := tr.Check()
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrCorrupt))
			require.Contains(t, err.Error(), tc.want)
			require.False(t, tr.Validate())
		})
	}
}

func TestCheckDetectsUnbalancedTree(t *testing.T) {
	tr := buildTree(t, 2, 200)
	// Hoist a grandchild into the root so one subtree is a level shorter.
	first := tr.root.children[0]
	grandchild := first.children[0]
	grandchild.parent = tr.root
	tr.root.children[0] = grandchild
	err := tr.Check()
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrCorrupt))
}

func recoverAssertion(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a panic")
		err, ok := r.(error)
		require.True(t, ok, "panic value %v is not an error", r)
		require.True(t, errors.IsAssertionFailure(err), "got %v", err)
	}()
	fn()
}

func TestInvariantViolationsPanic(t *testing.T) {
	t.Run("orphan node", func(t *testing.T) {
		tr := buildTree(t, 2, 50)
		orphan := tr.newNode(tr.root)
		recoverAssertion(t, func() { orphan.position() })
	})
	t.Run("underfull only child", func(t *testing.T) {
		tr := buildTree(t, 2, 50)
		parent := tr.root.children[0]
		only := parent.children[0]
		parent.children = children[int]{only}
		parent.items = parent.items[:0]
		only.items = only.items[:1]
		recoverAssertion(t, func() { only.rebalance(0) })
	})
	t.Run("unchained leaves", func(t *testing.T) {
		tr := buildTree(t, 2, 50)
		leaf := tr.root.leftmostLeaf()
		right := leaf.next
		leaf.next = nil
		recoverAssertion(t, func() { merge(leaf, right, 0) })
	})
}

func TestWriteDOT(t *testing.T) {
	tr := NewOrdered[int](2)
	for i := 1; i <= 12; i++ {
		tr.Insert(i * 10)
	}
	var sb strings.Builder
	require.NoError(t, tr.WriteDOT(&sb, nil))
	out := sb.String()
	require.True(t, strings.HasPrefix(out, "digraph BTree {"))
	require.Contains(t, out, "INTERNAL (depth 1)")
	require.Contains(t, out, "LEAF (depth 2)")
	require.Equal(t, len(leafKeys(tr))-1, strings.Count(out, "style=dashed"))

	var empty strings.Builder
	require.NoError(t, NewOrdered[int](2).WriteDOT(&empty, func(i int) string { return "x" }))
	require.NotContains(t, empty.String(), "node0")
}

func TestOrderForPageSize(t *testing.T) {
	require.Equal(t, 127, OrderForPageSize(4096, 8, 8))
	require.Equal(t, 340, OrderForPageSize(8192, 4, 8))
	require.Equal(t, 1, OrderForPageSize(16, 8, 8))
	require.Panics(t, func() { OrderForPageSize(4096, 0, 8) })
}

func ExampleBTree() {
	tr := NewOrdered[int](2)
	for _, k := range []int{10, 20, 30, 40, 50} {
		tr.Insert(k)
	}
	fmt.Println("height:", tr.Height())
	fmt.Println("range: ", tr.Range(15, 45).Collect())
	tr.Delete(10)
	tr.Delete(20)
	fmt.Println("height:", tr.Height())
	min, _ := tr.Min()
	fmt.Println("min:   ", min)
	// Output:
	// height: 2
	// range:  [20 30 40]
	// height: 1
	// min:    30
}

func BenchmarkInsert(b *testing.B) {
	b.StopTimer()
	insertP := rand.Perm(10000)
	b.StartTimer()
	i := 0
	for i < b.N {
		tr := NewOrdered[int](*btreeOrder)
		for _, item := range insertP {
			tr.Insert(item)
			i++
			if i >= b.N {
				return
			}
		}
	}
}

func BenchmarkDeleteInsert(b *testing.B) {
	b.StopTimer()
	insertP := rand.Perm(10000)
	tr := NewOrdered[int](*btreeOrder)
	for _, item := range insertP {
		tr.Insert(item)
	}
	b.StartTimer()
	for i := 0; i < b.N; i++ {
		tr.Delete(insertP[i%10000])
		tr.Insert(insertP[i%10000])
	}
}

func BenchmarkGet(b *testing.B) {
	b.StopTimer()
	insertP := rand.Perm(10000)
	tr := NewOrdered[int](*btreeOrder)
	for _, item := range insertP {
		tr.Insert(item)
	}
	b.StartTimer()
	for i := 0; i < b.N; i++ {
		tr.Get(insertP[i%10000])
	}
}

func BenchmarkRange(b *testing.B) {
	b.StopTimer()
	tr := NewOrdered[int](*btreeOrder)
	for _, item := range rand.Perm(10000) {
		tr.Insert(item)
	}
	b.StartTimer()
	for i := 0; i < b.N; i++ {
		lo := i % 9900
		it := tr.Range(lo, lo+100)
		for it.Next() {
		}
	}
}
