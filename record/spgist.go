// spgist.go - SP-GiST inner, leaf and dead tuple decoding
package record

import (
	"fmt"

	"github.com/wilhasse/go-pghexedit/format"
	"github.com/wilhasse/go-pghexedit/page"
)

func SpGistStateString(state int) string {
	switch state {
	case format.SpGistLive:
		return "SPGIST_LIVE"
	case format.SpGistRedirect:
		return "SPGIST_REDIRECT"
	case format.SpGistDead:
		return "SPGIST_DEAD"
	case format.SpGistPlaceholder:
		return "SPGIST_PLACEHOLDER"
	}
	return fmt.Sprintf("unknown (%d)", state)
}

// SpGistInnerHeader is the bit-packed header of SpGistInnerTupleData.
type SpGistInnerHeader struct {
	State      int
	AllTheSame bool
	NNodes     int
	PrefixSize int
	Size       int
}

func ParseSpGistInnerHeader(p []byte, off int) (SpGistInnerHeader, error) {
	word, err := format.Le32(p, off)
	if err != nil {
		return SpGistInnerHeader{}, err
	}
	size, err := format.Le16(p, off+4)
	if err != nil {
		return SpGistInnerHeader{}, err
	}
	return SpGistInnerHeader{
		State:      int(word & 0x03),
		AllTheSame: word&0x04 != 0,
		NNodes:     int(word>>3) & 0x1FFF,
		PrefixSize: int(word >> 16),
		Size:       int(size),
	}, nil
}

// SpGistLeafHeader is the header of SpGistLeafTupleData. Dead tuples share
// its first word and next link.
type SpGistLeafHeader struct {
	State      int
	Size       int
	NextOffset uint16
	Pointer    TID // heapPtr, or the redirect target of a dead tuple
}

func ParseSpGistLeafHeader(p []byte, off int) (SpGistLeafHeader, error) {
	word, err := format.Le32(p, off)
	if err != nil {
		return SpGistLeafHeader{}, err
	}
	next, err := format.Le16(p, off+4)
	if err != nil {
		return SpGistLeafHeader{}, err
	}
	ptr, err := ReadTID(p, off+6)
	if err != nil {
		return SpGistLeafHeader{}, err
	}
	return SpGistLeafHeader{State: int(word & 0x03), Size: int(word >> 2), NextOffset: next, Pointer: ptr}, nil
}

// DecodeSpGistTuple dispatches on the page type and the tuple state. A tuple
// that is not live has the dead tuple layout whatever page it is on.
func (p *Page) DecodeSpGistTuple(lp page.LinePointer) {
	it := p.item(lp)
	word, err := it.u32(0)
	if err != nil {
		it.errorf(0, format.ErrHeaderInvariant, "lp_len %d too short for an SP-GiST tuple", lp.Length)
		return
	}
	switch {
	case int(word&0x03) != format.SpGistLive:
		p.decodeSpGistDead(it)
	case p.Special.SpGist.IsLeaf():
		p.decodeSpGistLeaf(it)
	default:
		p.decodeSpGistInner(it)
	}
}

func (p *Page) decodeSpGistInner(it *item) {
	if it.lp.Length < format.SpGistInnerHeaderSize {
		it.errorf(0, format.ErrHeaderInvariant, "lp_len %d smaller than SGITHDRSZ", it.lp.Length)
		return
	}
	h, _ := ParseSpGistInnerHeader(it.data, it.lp.Offset)
	it.tag(it.at(0), 4, format.YellowDark, "tupstate: %s, allTheSame: %t, nNodes: %d, prefixSize: %d",
		SpGistStateString(h.State), h.AllTheSame, h.NNodes, h.PrefixSize)
	it.tag(it.at(4), 2, format.YellowDark, "size: %d", h.Size)
	it.tag(it.at(6), 2, format.Black, "alignment padding")

	end := h.Size
	if end < format.SpGistInnerHeaderSize || end > it.lp.Length {
		it.errorf(4, format.ErrHeaderInvariant, "inner tuple size %d disagrees with lp_len %d", h.Size, it.lp.Length)
		end = it.lp.Length
	}
	cursor := format.SpGistInnerHeaderSize
	if cursor+h.PrefixSize > end {
		it.errorf(0, format.ErrItemOutOfBounds, "prefix of %d bytes runs past tuple end %d", h.PrefixSize, end)
		return
	}
	it.tag(it.at(cursor), h.PrefixSize, format.White, "prefix")
	cursor += h.PrefixSize

	for i := 0; i < h.NNodes; i++ {
		nh, err := ParseIndexTupleHeader(it.data[:it.at(end)], it.at(cursor))
		if err != nil {
			it.errorf(cursor, format.ErrItemOutOfBounds, "node %d of %d header runs past tuple end %d", i, h.NNodes, end)
			return
		}
		size := nh.Size()
		if size < format.IndexTupleHeaderSize || cursor+size > end {
			it.errorf(cursor, format.ErrItemOutOfBounds, "node %d size %d runs past tuple end %d", i, size, end)
			return
		}
		name := fmt.Sprintf("node[%d] t_tid", i)
		emitTID(it.tag, it.at(cursor), name, nh.TID, pointerColors, " (downlink)", "offsetNumber: %d", nh.TID.Offset)
		it.tag(it.at(cursor+6), 2, format.YellowDark, "node[%d] t_info IndexTupleSize(): %d, %s",
			i, size, InfoString(nh.Info, page.SpecialSpGist))
		it.tag(it.at(cursor+format.IndexTupleHeaderSize), size-format.IndexTupleHeaderSize, format.White, "node[%d] label", i)
		cursor += size
	}
}

func (p *Page) decodeSpGistLeaf(it *item) {
	h, err := ParseSpGistLeafHeader(it.data, it.lp.Offset)
	if err != nil || it.lp.Length < format.SpGistLeafHeaderSize {
		it.errorf(0, format.ErrHeaderInvariant, "lp_len %d smaller than SGLTHDRSZ", it.lp.Length)
		return
	}
	it.tag(it.at(0), 4, format.YellowDark, "tupstate: %s, size: %d", SpGistStateString(h.State), h.Size)
	it.tag(it.at(4), 2, format.BlueDark, "nextOffset: %d", h.NextOffset)
	emitTID(it.tag, it.at(6), "heapPtr", h.Pointer, pointerColors, "", "offsetNumber: %d", h.Pointer.Offset)
	it.tag(it.at(12), format.SpGistLeafHeaderSize-12, format.Black, "alignment padding")

	end := h.Size
	if end < format.SpGistLeafHeaderSize || end > it.lp.Length {
		it.errorf(0, format.ErrHeaderInvariant, "leaf tuple size %d disagrees with lp_len %d", h.Size, it.lp.Length)
		end = it.lp.Length
	}
	it.walk(p.Walker, format.SpGistLeafHeaderSize, end, nil, -1)
}

func (p *Page) decodeSpGistDead(it *item) {
	h, err := ParseSpGistLeafHeader(it.data, it.lp.Offset)
	if err != nil || it.lp.Length < format.SpGistDeadXIDOffset+4 {
		it.errorf(0, format.ErrHeaderInvariant, "lp_len %d too short for SpGistDeadTupleData", it.lp.Length)
		return
	}
	xid, _ := it.u32(format.SpGistDeadXIDOffset)
	it.tag(it.at(0), 4, format.YellowDark, "tupstate: %s, size: %d", SpGistStateString(h.State), h.Size)
	it.tag(it.at(4), 2, format.BlueDark, "nextOffset: %d", h.NextOffset)
	note := ""
	if h.State == format.SpGistRedirect {
		note = " (redirect)"
	}
	emitTID(it.tag, it.at(6), "pointer", h.Pointer, pointerColors, note, "offsetNumber: %d", h.Pointer.Offset)
	it.tag(it.at(format.SpGistDeadXIDOffset), 4, format.RedLight, "xid: %d", xid)
	it.tag(it.at(format.SpGistDeadXIDOffset+4), it.lp.Length-format.SpGistDeadXIDOffset-4, format.Black, "alignment padding")
}
