// Package lsm wraps Pebble (CockroachDB's LSM storage engine) behind the
// common Index interface so it can be benchmarked alongside the B-tree and
// used as an independent oracle in tests.
package lsm

import (
	"encoding/binary"
	"math"

	"github.com/btree-query-bench/verdant/index"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
)

var _ index.Index = (*LSM)(nil)

// DefaultMemTableSize is used when Open is given a non-positive size.
const DefaultMemTableSize = 16 << 20

type LSM struct {
	db *pebble.DB
}

// Open opens (or creates) a Pebble database at the given directory path.
func Open(dir string, memTableSize int) (*LSM, error) {
	if memTableSize <= 0 {
		memTableSize = DefaultMemTableSize
	}
	opts := &pebble.Options{
		MemTableSize: uint64(memTableSize),
		// Keep several memtables so one can be flushed while another is active.
		MemTableStopWritesThreshold: 4,
		L0CompactionThreshold:       4,
		L0StopWritesThreshold:       12,
	}

	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "lsm: open %s", dir)
	}
	return &LSM{db: db}, nil
}

// Close cleanly shuts down Pebble, flushing any in-memory state.
func (l *LSM) Close() error {
	return l.db.Close()
}

// Insert inserts or updates the value for key.
func (l *LSM) Insert(key int64, value []byte) error {
	if err := l.db.Set(encodeKey(key), value, pebble.NoSync); err != nil {
		return errors.Wrapf(err, "lsm: insert %d", key)
	}
	return nil
}

// Get retrieves the value for key, or index.ErrNotFound.
func (l *LSM) Get(key int64) ([]byte, error) {
	val, closer, err := l.db.Get(encodeKey(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, index.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "lsm: get %d", key)
	}
	// val is only valid until closer.Close(), so we copy it.
	result := make([]byte, len(val))
	copy(result, val)
	if err := closer.Close(); err != nil {
		return nil, errors.Wrap(err, "lsm: release value")
	}
	return result, nil
}

// Delete removes the key from the store. Pebble writes tombstones blindly,
// so presence is checked first to report index.ErrNotFound like the other
// indexes.
func (l *LSM) Delete(key int64) error {
	if _, err := l.Get(key); err != nil {
		return err
	}
	if err := l.db.Delete(encodeKey(key), pebble.NoSync); err != nil {
		return errors.Wrapf(err, "lsm: delete %d", key)
	}
	return nil
}

// Range returns an iterator over all keys in [start, end] inclusive.
func (l *LSM) Range(start, end int64) (index.Iterator, error) {
	iterOpts := &pebble.IterOptions{
		LowerBound: encodeKey(start),
		UpperBound: encodeKeyExclusive(end),
	}
	iter, err := l.db.NewIter(iterOpts)
	if err != nil {
		return nil, errors.Wrapf(err, "lsm: range [%d, %d]", start, end)
	}
	iter.First()
	return &rangeIterator{iter: iter, first: true}, nil
}

// ─── Key encoding ─────────────────────────────────────────────────────────────

// encodeKey encodes an int64 as a big-endian 8-byte slice with the sign bit
// flipped, so byte order matches signed integer order.
func encodeKey(k int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(k)^(1<<63))
	return b
}

func decodeKey(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b) ^ (1 << 63))
}

// encodeKeyExclusive returns the exclusive upper bound for Pebble's UpperBound
// option, or nil (unbounded) for math.MaxInt64.
func encodeKeyExclusive(k int64) []byte {
	if k == math.MaxInt64 {
		return nil
	}
	return encodeKey(k + 1)
}

// ─── Range Iterator ───────────────────────────────────────────────────────────

type rangeIterator struct {
	iter  *pebble.Iterator
	first bool
	key   int64
	val   []byte
	err   error
}

func (it *rangeIterator) Next() bool {
	var valid bool
	if it.first {
		// iter.First() was already called in Range(); just check validity.
		it.first = false
		valid = it.iter.Valid()
	} else {
		valid = it.iter.Next()
	}
	if !valid {
		return false
	}
	k := it.iter.Key()
	if len(k) != 8 {
		it.err = errors.Newf("lsm: unexpected key length %d", len(k))
		return false
	}
	it.key = decodeKey(k)
	// Pebble reuses the value buffer on Next().
	v := it.iter.Value()
	it.val = make([]byte, len(v))
	copy(it.val, v)
	return true
}

func (it *rangeIterator) Key() int64    { return it.key }
func (it *rangeIterator) Value() []byte { return it.val }
func (it *rangeIterator) Error() error  { return it.err }
func (it *rangeIterator) Close() error  { return it.iter.Close() }
