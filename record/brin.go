// brin.go - BRIN summary tuples and reverse map pages
package record

import (
	"fmt"

	"github.com/wilhasse/go-pghexedit/format"
	"github.com/wilhasse/go-pghexedit/page"
)

// BrinTupleHeader is bt_blkno plus the one-byte bt_info.
type BrinTupleHeader struct {
	BlkNo uint32
	Info  uint8
}

func ParseBrinTupleHeader(p []byte, off int) (BrinTupleHeader, error) {
	blk, err := format.Le32(p, off)
	if err != nil {
		return BrinTupleHeader{}, err
	}
	info, err := format.U8(p, off+4)
	if err != nil {
		return BrinTupleHeader{}, err
	}
	return BrinTupleHeader{BlkNo: blk, Info: info}, nil
}

func (h BrinTupleHeader) DataOffset() int { return int(h.Info & format.BrinOffsetMask) }
func (h BrinTupleHeader) HasNulls() bool  { return h.Info&format.BrinNullsMask != 0 }

func BrinInfoString(info uint8) string {
	return page.FlagNames(uint16(info), []page.FlagName{
		{Bit: uint16(format.BrinEmptyRangeMask), Name: "BRIN_EMPTY_RANGE_MASK"},
		{Bit: uint16(format.BrinPlaceholderMask), Name: "BRIN_PLACEHOLDER_MASK"},
		{Bit: uint16(format.BrinNullsMask), Name: "BRIN_NULLS_MASK"},
	})
}

// DecodeBrinTuple annotates a summary tuple. The summary values are opaque:
// how many datums each column stores depends on the operator class.
func (p *Page) DecodeBrinTuple(lp page.LinePointer) {
	it := p.item(lp)
	h, err := ParseBrinTupleHeader(it.data, lp.Offset)
	if err != nil {
		it.errorf(0, format.ErrHeaderInvariant, "lp_len %d smaller than the %d byte BRIN tuple header",
			lp.Length, format.BrinTupleHeaderSize)
		return
	}
	it.tag(it.at(0), 4, format.BlueLight, "bt_blkno: %d", h.BlkNo)
	it.tag(it.at(4), 1, format.YellowDark, "bt_info - data offset: %d, %s", h.DataOffset(), BrinInfoString(h.Info))

	dataOff := h.DataOffset()
	if dataOff < format.BrinTupleHeaderSize || dataOff > lp.Length {
		it.errorf(4, format.ErrHeaderInvariant, "data offset %d outside tuple of lp_len %d", dataOff, lp.Length)
		return
	}
	cursor := format.BrinTupleHeaderSize
	if h.HasNulls() {
		// two bits per column: allnulls and hasnulls
		bitmap := dataOff - cursor
		if p.Walker.Described() {
			bitmap = min(format.BitmapLen(2*p.Walker.Len()), bitmap)
		}
		it.tag(it.at(cursor), bitmap, format.YellowDark, "null bitmap")
		cursor += bitmap
	}
	it.tag(it.at(cursor), dataOff-cursor, format.Black, "alignment padding")
	it.tag(it.at(dataOff), lp.Length-dataOff, format.White, "contents")
}

// DecodeRevmap annotates every slot of a reverse range map page. The array
// always spans the page's full capacity.
func (p *Page) DecodeRevmap() {
	b := p.Block
	start := format.MaxAlign(format.PageHeaderSize)
	n := (b.Size - start - format.MaxAlign(format.BrinOpaqueSize)) / format.ItemPointerSize
	for i := 0; i < n; i++ {
		off := start + i*format.ItemPointerSize
		t, err := ReadTID(b.Data, off)
		if err != nil {
			b.Errorf(off, format.ErrPrematureEOF, "revmap slot %d of %d: %v", i, n, err)
			return
		}
		emitTID(b.Tag, off, fmt.Sprintf("rm_tids[%d]", i), t, pointerColors, "", "offsetNumber: %d", t.Offset)
	}
}
