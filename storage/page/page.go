// Package page provides the slotted layout used for record pages.
//
// Page layout:
//
//	[0]     1 byte   page type (TypeRecord)
//	[1-2]   2 bytes  numCells
//	[3-4]   2 bytes  cellContentStart (top of cell area, grows down from pager.Usable)
//	[5+]    cell pointer array, one uint16 offset per cell, grows upward
//	        ...free space...
//	        cell content area
//
// A cell is [flags 1][len 2][payload]. Cells are never moved or reclaimed, so
// a (page, slot) pair stays valid for the lifetime of the file.
package page

import (
	"encoding/binary"

	"github.com/btree-query-bench/verdant/storage/pager"
	"github.com/cockroachdb/errors"
)

const (
	TypeRecord = byte(1)

	OffType        = 0
	OffNumCells    = 1
	OffCellContent = 3
	OffCellPtrs    = 5

	CellPtrSize    = 2
	CellHeaderSize = 3

	flagDeleted = byte(1)
)

// ErrPageFull is returned by Append when the cell does not fit.
var ErrPageFull = errors.New("page: full")

// MaxPayload is the largest payload a freshly initialised page can hold.
const MaxPayload = pager.Usable - OffCellPtrs - CellPtrSize - CellHeaderSize

func Init(p *pager.Page) {
	clear(p[:])
	p[OffType] = TypeRecord
	setNumCells(p, 0)
	setCellContent(p, uint16(pager.Usable))
}

// Initialized reports whether p carries the record page type.
func Initialized(p *pager.Page) bool { return p[OffType] == TypeRecord }

func NumCells(p *pager.Page) int {
	return int(binary.LittleEndian.Uint16(p[OffNumCells : OffNumCells+2]))
}

func setNumCells(p *pager.Page, n int) {
	binary.LittleEndian.PutUint16(p[OffNumCells:OffNumCells+2], uint16(n))
}

func cellContent(p *pager.Page) int {
	return int(binary.LittleEndian.Uint16(p[OffCellContent : OffCellContent+2]))
}

func setCellContent(p *pager.Page, v uint16) {
	binary.LittleEndian.PutUint16(p[OffCellContent:OffCellContent+2], v)
}

func cellPtr(p *pager.Page, i int) int {
	o := OffCellPtrs + i*CellPtrSize
	return int(binary.LittleEndian.Uint16(p[o : o+2]))
}

func setCellPtr(p *pager.Page, i int, off int) {
	o := OffCellPtrs + i*CellPtrSize
	binary.LittleEndian.PutUint16(p[o:o+2], uint16(off))
}

// FreeSpace is the number of payload bytes one more Append could store.
func FreeSpace(p *pager.Page) int {
	free := cellContent(p) - (OffCellPtrs + (NumCells(p)+1)*CellPtrSize) - CellHeaderSize
	return max(free, 0)
}

// Append stores payload in a new cell and returns its slot.
func Append(p *pager.Page, payload []byte) (int, error) {
	if len(payload) > FreeSpace(p) {
		return 0, ErrPageFull
	}
	n := NumCells(p)
	top := cellContent(p) - CellHeaderSize - len(payload)
	p[top] = 0
	binary.LittleEndian.PutUint16(p[top+1:top+3], uint16(len(payload)))
	copy(p[top+CellHeaderSize:], payload)

	setCellContent(p, uint16(top))
	setCellPtr(p, n, top)
	setNumCells(p, n+1)
	return n, nil
}

func checkSlot(p *pager.Page, slot int) (int, error) {
	if slot < 0 || slot >= NumCells(p) {
		return 0, errors.Newf("page: slot %d out of range [0, %d)", slot, NumCells(p))
	}
	off := cellPtr(p, slot)
	if off < OffCellPtrs || off+CellHeaderSize > pager.Usable {
		return 0, errors.Newf("page: slot %d points outside the page (%d)", slot, off)
	}
	return off, nil
}

// Cell returns the payload stored in slot. The slice aliases the page.
func Cell(p *pager.Page, slot int) ([]byte, error) {
	off, err := checkSlot(p, slot)
	if err != nil {
		return nil, err
	}
	n := int(binary.LittleEndian.Uint16(p[off+1 : off+3]))
	start := off + CellHeaderSize
	if start+n > pager.Usable {
		return nil, errors.Newf("page: slot %d length %d overruns the page", slot, n)
	}
	return p[start : start+n], nil
}

func MarkDeleted(p *pager.Page, slot int) error {
	off, err := checkSlot(p, slot)
	if err != nil {
		return err
	}
	p[off] |= flagDeleted
	return nil
}

func IsDeleted(p *pager.Page, slot int) bool {
	off, err := checkSlot(p, slot)
	if err != nil {
		return false
	}
	return p[off]&flagDeleted != 0
}
