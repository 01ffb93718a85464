// Package table stores fixed-schema records in a paged file and keeps a
// B-tree over the primary key in memory. The index is not persisted: it is
// rebuilt from the record pages every time the table is opened.
package table

import (
	"fmt"
	"io"
	"time"

	"github.com/btree-query-bench/verdant/index/btree"
	"github.com/btree-query-bench/verdant/storage/page"
	"github.com/btree-query-bench/verdant/storage/pager"
	"github.com/cockroachdb/errors"
	"github.com/sirupsen/logrus"
)

var (
	ErrDuplicateKey   = errors.New("table: duplicate primary key")
	ErrNotFound       = errors.New("table: no record with that key")
	ErrRecordTooLarge = errors.New("table: record does not fit in a page")
)

// DefaultCachePages is used when Options.CachePages is zero.
const DefaultCachePages = 64

// Options tunes an open table. The zero value is usable.
type Options struct {
	CachePages int
	// Order of the primary-key B-tree; zero derives it from the page size.
	Order  int
	Logger logrus.FieldLogger
}

// Location addresses a record cell.
type Location struct {
	Page uint64
	Slot uint16
}

func (l Location) String() string { return fmt.Sprintf("%d:%d", l.Page, l.Slot) }

type rowRef struct {
	key int64
	loc Location
}

func rowLess(a, b rowRef) bool { return a.key < b.key }

type Table struct {
	schema Schema
	pager  *pager.Pager
	pk     *btree.BTree[rowRef]
	tail   uint64 // last record page, 0 when there is none
	log    logrus.FieldLogger
}

// Open opens the table file at path, creating it if needed, and rebuilds the
// primary-key index from its live records.
func Open(path string, schema Schema, opts Options) (*Table, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	if opts.CachePages <= 0 {
		opts.CachePages = DefaultCachePages
	}
	if opts.Order <= 0 {
		opts.Order = btree.OrderForPageSize(pager.PageSize, 8, 8)
	}
	if opts.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		opts.Logger = l
	}

	pg, err := pager.Open(path, opts.CachePages)
	if err != nil {
		return nil, err
	}
	t := &Table{
		schema: schema,
		pager:  pg,
		pk:     btree.New[rowRef](opts.Order, rowLess),
		log:    opts.Logger.WithField("table", path),
	}
	if err := t.rebuild(); err != nil {
		pg.Close()
		return nil, err
	}
	return t, nil
}

func (t *Table) rebuild() error {
	start := time.Now()
	var dead int
	for id := uint64(1); id < t.pager.PageCount(); id++ {
		p, err := t.pager.Read(id)
		if err != nil {
			return err
		}
		t.tail = id
		if !page.Initialized(p) {
			// Allocated but never written.
			continue
		}
		for slot := 0; slot < page.NumCells(p); slot++ {
			if page.IsDeleted(p, slot) {
				dead++
				continue
			}
			cell, err := page.Cell(p, slot)
			if err != nil {
				return errors.Wrapf(err, "table: page %d", id)
			}
			key, _, err := t.schema.decode(cell)
			if err != nil {
				return errors.Wrapf(err, "table: page %d slot %d", id, slot)
			}
			ref := rowRef{key: key, loc: Location{Page: id, Slot: uint16(slot)}}
			if old, dup := t.pk.Insert(ref); dup {
				return errors.Wrapf(ErrDuplicateKey, "key %d at %s and %s", key, old.loc, ref.loc)
			}
		}
	}
	t.log.WithFields(logrus.Fields{
		"pages":   t.pager.PageCount() - 1,
		"records": t.pk.Len(),
		"deleted": dead,
		"height":  t.pk.Height(),
		"took":    time.Since(start),
	}).Debug("rebuilt primary key index")
	return nil
}

// Schema returns the table's columns.
func (t *Table) Schema() Schema { return t.schema }

// Insert stores a record given one string per column and returns where it was
// written.
func (t *Table) Insert(fields []string) (Location, error) {
	key, rec, err := t.schema.encode(fields)
	if err != nil {
		return Location{}, err
	}
	if len(rec) > page.MaxPayload {
		return Location{}, errors.Wrapf(ErrRecordTooLarge, "%d bytes", len(rec))
	}
	if t.pk.Has(rowRef{key: key}) {
		return Location{}, errors.Wrapf(ErrDuplicateKey, "key %d", key)
	}

	id, p, err := t.tailFor(len(rec))
	if err != nil {
		return Location{}, err
	}
	slot, err := page.Append(p, rec)
	if err != nil {
		return Location{}, err
	}
	if err := t.pager.Write(id, p); err != nil {
		return Location{}, err
	}
	loc := Location{Page: id, Slot: uint16(slot)}
	t.pk.Insert(rowRef{key: key, loc: loc})
	return loc, nil
}

// tailFor returns the page the next record of size n goes to, allocating a
// fresh page when the tail is full.
func (t *Table) tailFor(n int) (uint64, *pager.Page, error) {
	if t.tail != 0 {
		p, err := t.pager.Read(t.tail)
		if err != nil {
			return 0, nil, err
		}
		if !page.Initialized(p) {
			page.Init(p)
		}
		if page.FreeSpace(p) >= n {
			return t.tail, p, nil
		}
	}
	id, err := t.pager.Allocate()
	if err != nil {
		return 0, nil, err
	}
	p, err := t.pager.Read(id)
	if err != nil {
		return 0, nil, err
	}
	page.Init(p)
	t.tail = id
	t.log.WithField("page", id).Debug("allocated record page")
	return id, p, nil
}

func (t *Table) read(loc Location) ([]string, error) {
	p, err := t.pager.Read(loc.Page)
	if err != nil {
		return nil, err
	}
	cell, err := page.Cell(p, int(loc.Slot))
	if err != nil {
		return nil, err
	}
	_, fields, err := t.schema.decode(cell)
	if err != nil {
		return nil, errors.Wrapf(err, "table: record at %s", loc)
	}
	return fields, nil
}

// Get returns the record with the given primary key.
func (t *Table) Get(key int64) ([]string, error) {
	ref, ok := t.pk.Get(rowRef{key: key})
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "key %d", key)
	}
	return t.read(ref.loc)
}

// Scan calls fn for each record whose key is in [min, max], in key order,
// until fn returns false. fn must not modify the table.
func (t *Table) Scan(min, max int64, fn func(fields []string) bool) error {
	it := t.pk.Range(rowRef{key: min}, rowRef{key: max})
	for it.Next() {
		fields, err := t.read(it.Item().loc)
		if err != nil {
			return err
		}
		if !fn(fields) {
			return nil
		}
	}
	return nil
}

// Delete tombstones the record with the given key. Its space is not reused.
func (t *Table) Delete(key int64) error {
	ref, ok := t.pk.Get(rowRef{key: key})
	if !ok {
		return errors.Wrapf(ErrNotFound, "key %d", key)
	}
	p, err := t.pager.Read(ref.loc.Page)
	if err != nil {
		return err
	}
	if err := page.MarkDeleted(p, int(ref.loc.Slot)); err != nil {
		return err
	}
	if err := t.pager.Write(ref.loc.Page, p); err != nil {
		return err
	}
	t.pk.Delete(ref)
	return nil
}

// Len returns the number of live records.
func (t *Table) Len() int { return t.pk.Len() }

// Check validates the primary-key index.
func (t *Table) Check() error { return t.pk.Check() }

// Height is the height of the primary-key index.
func (t *Table) Height() int { return t.pk.Height() }

func (t *Table) Close() error {
	t.log.WithField("records", t.pk.Len()).Debug("closing table")
	return t.pager.Close()
}
