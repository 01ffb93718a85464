// Package pager stores fixed-size pages in a single file and caches recently
// used ones. Every page ends in an xxhash64 checksum of its contents which is
// stamped on write and verified whenever the page is read back from disk.
package pager

import (
	"encoding/binary"
	"os"

	"github.com/OneOfOne/xxhash"
	"github.com/cockroachdb/errors"
)

const (
	PageSize = 4096 // 4 KB, the OS page size

	// Usable is the number of bytes available to callers; the tail of the
	// page holds the checksum.
	Usable = PageSize - checksumSize

	InvalidPage = ^uint64(0)

	checksumSize = 8
)

// ErrChecksum is returned when a page read from disk fails verification.
var ErrChecksum = errors.New("pager: checksum mismatch")

// Page is a raw 4 KB block read from or written to disk.
type Page [PageSize]byte

func (pg *Page) sum() uint64 {
	return xxhash.Checksum64(pg[:Usable])
}

func (pg *Page) stamp() {
	binary.LittleEndian.PutUint64(pg[Usable:], pg.sum())
}

func (pg *Page) verify() bool {
	return binary.LittleEndian.Uint64(pg[Usable:]) == pg.sum()
}

// Pager manages a file of fixed-size pages and caches recently used ones.
type Pager struct {
	file      *os.File
	cache     *lruCache
	pageCount uint64 // total number of pages ever allocated, header included
}

// Open opens (or creates) a pager backed by the given file.
// cacheSize is the number of pages to hold in the LRU cache.
func Open(path string, cacheSize int) (*Pager, error) {
	if cacheSize < 1 {
		cacheSize = 1
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "pager: open")
	}

	p := &Pager{
		file:  f,
		cache: newLRUCache(cacheSize),
	}

	// Page 0 is the header; its first 8 bytes hold the page count.
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "pager: stat")
	}
	if info.Size() == 0 {
		p.pageCount = 1
		if err := p.writePageCount(); err != nil {
			f.Close()
			return nil, err
		}
	} else {
		if info.Size()%PageSize != 0 {
			f.Close()
			return nil, errors.Newf("pager: %s: size %d is not a multiple of the page size", path, info.Size())
		}
		hdr, err := p.readPageFromDisk(0)
		if err != nil {
			f.Close()
			return nil, errors.Wrap(err, "pager: read header")
		}
		p.pageCount = binary.LittleEndian.Uint64(hdr[:8])
	}

	return p, nil
}

// Allocate reserves a new page on disk and returns its page ID.
func (p *Pager) Allocate() (uint64, error) {
	id := p.pageCount
	p.pageCount++

	// Write an empty page to extend the file.
	if err := p.writePageToDisk(id, new(Page)); err != nil {
		return 0, err
	}
	if err := p.writePageCount(); err != nil {
		return 0, err
	}
	return id, nil
}

// Read returns the page with the given ID, from cache or disk. The returned
// page is shared with the cache; modify it only to Write it back.
func (p *Pager) Read(id uint64) (*Page, error) {
	if id == 0 || id >= p.pageCount {
		return nil, errors.Newf("pager: page %d out of range [1, %d)", id, p.pageCount)
	}
	if pg := p.cache.get(id); pg != nil {
		return pg, nil
	}
	pg, err := p.readPageFromDisk(id)
	if err != nil {
		return nil, err
	}
	p.cache.put(id, pg)
	return pg, nil
}

// Write writes a page back to disk and updates the cache.
func (p *Pager) Write(id uint64, pg *Page) error {
	if id == 0 || id >= p.pageCount {
		return errors.Newf("pager: page %d out of range [1, %d)", id, p.pageCount)
	}
	p.cache.put(id, pg)
	return p.writePageToDisk(id, pg)
}

// Close syncs and closes the underlying file.
func (p *Pager) Close() error {
	if err := p.file.Sync(); err != nil {
		p.file.Close()
		return errors.Wrap(err, "pager: sync")
	}
	return p.file.Close()
}

// PageCount returns the total number of allocated pages, including the header.
func (p *Pager) PageCount() uint64 {
	return p.pageCount
}

// --- internal helpers ---

func (p *Pager) offset(id uint64) int64 {
	return int64(id) * PageSize
}

func (p *Pager) readPageFromDisk(id uint64) (*Page, error) {
	pg := new(Page)
	if _, err := p.file.ReadAt(pg[:], p.offset(id)); err != nil {
		return nil, errors.Wrapf(err, "pager: read page %d", id)
	}
	if !pg.verify() {
		return nil, errors.Wrapf(ErrChecksum, "page %d", id)
	}
	return pg, nil
}

func (p *Pager) writePageToDisk(id uint64, pg *Page) error {
	pg.stamp()
	if _, err := p.file.WriteAt(pg[:], p.offset(id)); err != nil {
		return errors.Wrapf(err, "pager: write page %d", id)
	}
	return nil
}

func (p *Pager) writePageCount() error {
	var hdr Page
	binary.LittleEndian.PutUint64(hdr[:8], p.pageCount)
	return p.writePageToDisk(0, &hdr)
}

// ─── LRU Cache ────────────────────────────────────────────────────────────────

type lruEntry struct {
	id   uint64
	page *Page
	prev *lruEntry
	next *lruEntry
}

type lruCache struct {
	cap   int
	items map[uint64]*lruEntry
	head  *lruEntry // most recent
	tail  *lruEntry // least recent
}

func newLRUCache(cap int) *lruCache {
	return &lruCache{
		cap:   cap,
		items: make(map[uint64]*lruEntry, cap),
	}
}

func (c *lruCache) get(id uint64) *Page {
	e, ok := c.items[id]
	if !ok {
		return nil
	}
	c.moveToFront(e)
	return e.page
}

func (c *lruCache) put(id uint64, pg *Page) {
	if e, ok := c.items[id]; ok {
		e.page = pg
		c.moveToFront(e)
		return
	}
	e := &lruEntry{id: id, page: pg}
	c.items[id] = e
	c.pushFront(e)
	if len(c.items) > c.cap {
		c.evict()
	}
}

func (c *lruCache) len() int { return len(c.items) }

func (c *lruCache) pushFront(e *lruEntry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) unlink(e *lruEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
	e.prev, e.next = nil, nil
}

func (c *lruCache) moveToFront(e *lruEntry) {
	if c.head == e {
		return
	}
	c.unlink(e)
	c.pushFront(e)
}

func (c *lruCache) evict() {
	if c.tail == nil {
		return
	}
	e := c.tail
	c.unlink(e)
	delete(c.items, e.id)
}
