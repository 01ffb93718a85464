// Package index defines the interface shared by every key/value index in the
// repository: the B-tree map, the sorted list baseline and the Pebble LSM.
package index

import "github.com/cockroachdb/errors"

// ErrNotFound is returned by Get and Delete when the key is absent.
var ErrNotFound = errors.New("index: key not found")

// Index is the common interface for all implementations.
type Index interface {
	// Insert inserts key or overwrites its value.
	Insert(key int64, value []byte) error
	Get(key int64) ([]byte, error)
	Delete(key int64) error
	// Range returns an iterator over keys in [start, end], ascending.
	Range(start, end int64) (Iterator, error)
	Close() error
}

// Iterator allows scanning over a range of key-value pairs.
type Iterator interface {
	Next() bool
	Key() int64
	Value() []byte
	Error() error
	Close() error
}
