// header.go - Heap tuple header parsing (HeapTupleHeaderData)
package record

import (
	"fmt"

	"github.com/wilhasse/go-pghexedit/format"
	"github.com/wilhasse/go-pghexedit/page"
)

// HeapTupleHeader is the fixed 23-byte part of a heap tuple header.
type HeapTupleHeader struct {
	Xmin      uint32
	Xmax      uint32
	CidOrXvac uint32
	Ctid      TID
	Infomask2 uint16
	Infomask  uint16
	Hoff      uint8
}

func ParseHeapTupleHeader(p []byte, off int) (HeapTupleHeader, error) {
	if _, err := format.Span(p, off, format.HeapTupleHeaderSize); err != nil {
		return HeapTupleHeader{}, fmt.Errorf("short heap tuple header: %w", err)
	}
	xmin, _ := format.Le32(p, off)
	xmax, _ := format.Le32(p, off+4)
	field3, _ := format.Le32(p, off+8)
	ctid, _ := ReadTID(p, off+12)
	mask2, _ := format.Le16(p, off+18)
	mask, _ := format.Le16(p, off+20)
	hoff, _ := format.U8(p, off+22)
	return HeapTupleHeader{
		Xmin:      xmin,
		Xmax:      xmax,
		CidOrXvac: field3,
		Ctid:      ctid,
		Infomask2: mask2,
		Infomask:  mask,
		Hoff:      hoff,
	}, nil
}

func (h HeapTupleHeader) Natts() int     { return int(h.Infomask2 & format.HeapNattsMask) }
func (h HeapTupleHeader) HasNulls() bool { return h.Infomask&format.HeapHasNull != 0 }
func (h HeapTupleHeader) HasOID() bool   { return h.Infomask&format.HeapHasOIDOld != 0 }
func (h HeapTupleHeader) Moved() bool    { return h.Infomask&format.HeapMoved != 0 }
func (h HeapTupleHeader) XminFrozen() bool {
	return h.Infomask&format.HeapXminFrozen == format.HeapXminFrozen
}

// BitmapLen is the size of t_bits, zero without HEAP_HASNULL.
func (h HeapTupleHeader) BitmapLen() int {
	if !h.HasNulls() {
		return 0
	}
	return format.BitmapLen(h.Natts())
}

// ComputedHoff is the header size implied by the flags.
func (h HeapTupleHeader) ComputedHoff(caps format.Capabilities) int {
	n := format.HeapTupleHeaderSize + h.BitmapLen()
	if h.HasOID() && caps.LegacyOIDs {
		n += 4
	}
	return format.MaxAlign(n)
}

func InfomaskString(mask uint16) string {
	return page.FlagNames(mask, []page.FlagName{
		{Bit: format.HeapHasNull, Name: "HEAP_HASNULL"},
		{Bit: format.HeapHasVarWidth, Name: "HEAP_HASVARWIDTH"},
		{Bit: format.HeapHasExternal, Name: "HEAP_HASEXTERNAL"},
		{Bit: format.HeapHasOIDOld, Name: "HEAP_HASOID_OLD"},
		{Bit: format.HeapXmaxKeyShrLock, Name: "HEAP_XMAX_KEYSHR_LOCK"},
		{Bit: format.HeapComboCID, Name: "HEAP_COMBOCID"},
		{Bit: format.HeapXmaxExclLock, Name: "HEAP_XMAX_EXCL_LOCK"},
		{Bit: format.HeapXmaxLockOnly, Name: "HEAP_XMAX_LOCK_ONLY"},
		{Bit: format.HeapXminCommitted, Name: "HEAP_XMIN_COMMITTED"},
		{Bit: format.HeapXminInvalid, Name: "HEAP_XMIN_INVALID"},
		{Bit: format.HeapXmaxCommitted, Name: "HEAP_XMAX_COMMITTED"},
		{Bit: format.HeapXmaxInvalid, Name: "HEAP_XMAX_INVALID"},
		{Bit: format.HeapXmaxIsMulti, Name: "HEAP_XMAX_IS_MULTI"},
		{Bit: format.HeapUpdated, Name: "HEAP_UPDATED"},
		{Bit: format.HeapMovedOff, Name: "HEAP_MOVED_OFF"},
		{Bit: format.HeapMovedIn, Name: "HEAP_MOVED_IN"},
	})
}

func Infomask2String(mask uint16) string {
	return page.FlagNames(mask, []page.FlagName{
		{Bit: format.HeapKeysUpdated, Name: "HEAP_KEYS_UPDATED"},
		{Bit: format.HeapHotUpdated, Name: "HEAP_HOT_UPDATED"},
		{Bit: format.HeapOnlyTuple, Name: "HEAP_ONLY_TUPLE"},
	})
}
