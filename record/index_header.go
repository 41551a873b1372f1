// index_header.go - Index tuple header parsing (IndexTupleData)
package record

import (
	"fmt"

	"github.com/wilhasse/go-pghexedit/format"
	"github.com/wilhasse/go-pghexedit/page"
)

// IndexTupleHeader is t_tid followed by t_info.
type IndexTupleHeader struct {
	TID  TID
	Info uint16
}

func ParseIndexTupleHeader(p []byte, off int) (IndexTupleHeader, error) {
	if _, err := format.Span(p, off, format.IndexTupleHeaderSize); err != nil {
		return IndexTupleHeader{}, fmt.Errorf("short index tuple header: %w", err)
	}
	tid, _ := ReadTID(p, off)
	info, _ := format.Le16(p, off+6)
	return IndexTupleHeader{TID: tid, Info: info}, nil
}

func (h IndexTupleHeader) Size() int           { return int(h.Info & format.IndexSizeMask) }
func (h IndexTupleHeader) HasNulls() bool      { return h.Info&format.IndexNullMask != 0 }
func (h IndexTupleHeader) HasVarwidth() bool   { return h.Info&format.IndexVarMask != 0 }
func (h IndexTupleHeader) AMReservedSet() bool { return h.Info&format.IndexAMReservedBit != 0 }

// DataOffset is IndexInfoFindDataOffset: where the key data starts.
func (h IndexTupleHeader) DataOffset() int {
	if !h.HasNulls() {
		return format.MaxAlign(format.IndexTupleHeaderSize)
	}
	return format.MaxAlign(format.IndexTupleHeaderSize + format.BitmapLen(format.IndexMaxKeys))
}

// amReservedName is what the access method calls the spare t_info bit.
func amReservedName(kind page.SpecialKind) string {
	switch kind {
	case page.SpecialBTree:
		return "INDEX_ALT_TID_MASK"
	case page.SpecialHash:
		return "INDEX_MOVED_BY_SPLIT_MASK"
	}
	return "INDEX_AM_RESERVED_BIT"
}

func InfoString(info uint16, kind page.SpecialKind) string {
	return page.FlagNames(info, []page.FlagName{
		{Bit: format.IndexAMReservedBit, Name: amReservedName(kind)},
		{Bit: format.IndexVarMask, Name: "INDEX_VAR_MASK"},
		{Bit: format.IndexNullMask, Name: "INDEX_NULL_MASK"},
	})
}
