// index.go - Shared index tuple decoding for B-Tree, hash, GiST and GIN
package record

import (
	"fmt"

	"github.com/wilhasse/go-pghexedit/column"
	"github.com/wilhasse/go-pghexedit/format"
	"github.com/wilhasse/go-pghexedit/page"
	"github.com/wilhasse/go-pghexedit/schema"
)

// hashWalker decodes the hash code that every hash index tuple stores.
var hashWalker = column.NewWalker([]schema.Attribute{
	{Name: "hashkey", Length: 4, Align: format.AlignInt, Color: format.White},
})

// IndexVariant is how the t_tid offset subfield of one tuple is read.
type IndexVariant int

const (
	VariantPlain IndexVariant = iota
	VariantGinPostingTree
	VariantGinPostingList
	VariantPivot
	VariantPosting
)

func (v IndexVariant) String() string {
	switch v {
	case VariantGinPostingTree:
		return "GIN posting tree root"
	case VariantGinPostingList:
		return "GIN posting list"
	case VariantPivot:
		return "pivot"
	case VariantPosting:
		return "posting list"
	}
	return "plain"
}

// ginLeafEntryPage reports whether the page is a leaf of the GIN entry tree.
func (p *Page) ginLeafEntryPage() bool {
	g := p.Special.Gin
	return p.Special.Kind == page.SpecialGin &&
		g.Has(format.GinLeaf) && !g.Has(format.GinData) && !g.Has(format.GinList)
}

// Variant classifies an index tuple header on this page, testing the GIN
// posting tree sentinel, then B-Tree posting and pivot tuples.
func (p *Page) Variant(h IndexTupleHeader) IndexVariant {
	off := h.TID.Offset
	switch {
	case p.ginLeafEntryPage() && off == format.GinTreePosting:
		return VariantGinPostingTree
	case p.ginLeafEntryPage() && off > 0:
		return VariantGinPostingList
	case p.Special.Kind != page.SpecialBTree || !h.AMReservedSet():
		return VariantPlain
	case p.Caps.PostingListTuples && off&format.BTIsPosting != 0:
		return VariantPosting
	case p.Caps.Pivot != format.PivotPlain:
		return VariantPivot
	}
	return VariantPlain
}

// DecodeIndexTuple annotates an IndexTupleData and its key payload.
func (p *Page) DecodeIndexTuple(lp page.LinePointer) {
	it := p.item(lp)
	h, err := ParseIndexTupleHeader(it.data, lp.Offset)
	if err != nil {
		it.errorf(0, format.ErrHeaderInvariant, "lp_len %d is smaller than the %d byte index tuple header",
			lp.Length, format.IndexTupleHeaderSize)
		return
	}
	size := h.Size()
	if size < format.IndexTupleHeaderSize || size > lp.Length {
		it.errorf(6, format.ErrHeaderInvariant, "IndexTupleSize() %d disagrees with lp_len %d", size, lp.Length)
		size = lp.Length
	}

	tid, off := h.TID, h.TID.Offset
	variant := p.Variant(h)
	switch variant {
	case VariantGinPostingTree:
		emitTID(it.tag, it.at(0), "t_tid", tid, pointerColors, " (posting tree root)", "offsetNumber: GIN_TREE_POSTING")
	case VariantGinPostingList:
		note := fmt.Sprintf(" (posting list offset: %d)", tid.Block&^format.GinItupCompressed)
		if tid.Block&format.GinItupCompressed != 0 {
			note = fmt.Sprintf(" (posting list offset: %d, compressed)", tid.Block&^format.GinItupCompressed)
		}
		emitTID(it.tag, it.at(0), "t_tid", tid, pointerColors, note, "offsetNumber - nposting: %d", off)
	case VariantPosting:
		emitTID(it.tag, it.at(0), "t_tid", tid, pointerColors, " (posting list offset)",
			"offsetNumber - nposting: %d, BT_IS_POSTING", off&format.BTOffsetMask)
	case VariantPivot:
		heapTID := ""
		if p.Caps.Pivot == format.PivotAltTIDHeapTID && off&format.BTPivotHeapTIDAttr != 0 {
			heapTID = ", BT_PIVOT_HEAP_TID_ATTR"
		}
		emitTID(it.tag, it.at(0), "t_tid", tid, pointerColors, "", "offsetNumber - natts: %d%s",
			off&format.BTOffsetMask, heapTID)
	default:
		note := ""
		if p.Special.Kind == page.SpecialGin && !p.Special.Gin.Has(format.GinLeaf) {
			note = " (downlink)"
		}
		emitTID(it.tag, it.at(0), "t_tid", tid, pointerColors, note, "offsetNumber: %d", off)
	}
	it.tag(it.at(6), 2, format.YellowDark, "t_info IndexTupleSize(): %d, %s", h.Size(), InfoString(h.Info, p.Special.Kind))

	dataOff := h.DataOffset()
	if dataOff > size {
		it.errorf(6, format.ErrItemOutOfBounds, "data offset %d past tuple of %d bytes", dataOff, size)
		return
	}
	var nulls []byte
	if h.HasNulls() {
		nulls = it.data[it.at(format.IndexTupleHeaderSize):it.at(format.IndexTupleHeaderSize+format.BitmapLen(format.IndexMaxKeys))]
		it.tag(it.at(format.IndexTupleHeaderSize), dataOff-format.IndexTupleHeaderSize, format.YellowDark,
			"IndexAttributeBitMapData array")
	}

	walker := p.Walker
	if p.Special.Kind == page.SpecialHash {
		walker = hashWalker
	}

	switch variant {
	case VariantPivot:
		end := size
		hasHeapTID := p.Caps.Pivot == format.PivotAltTIDHeapTID && off&format.BTPivotHeapTIDAttr != 0
		if hasHeapTID {
			end -= format.ItemPointerSize
		}
		if end < dataOff {
			it.errorf(0, format.ErrItemOutOfBounds, "pivot heap TID overlaps the tuple header")
			return
		}
		it.walk(walker, dataOff, end, nulls, int(off&format.BTOffsetMask))
		if hasHeapTID {
			t, _ := ReadTID(it.data, it.at(end))
			emitTID(it.tag, it.at(end), "heap TID tiebreaker", t, alternateColors, "", "offsetNumber: %d", t.Offset)
		}
	case VariantPosting:
		postingOff, n := int(tid.Block), int(off&format.BTOffsetMask)
		postingEnd := postingOff + n*format.ItemPointerSize
		if postingOff < dataOff || postingEnd > size {
			it.errorf(0, format.ErrItemOutOfBounds, "posting list of %d TIDs at %d overruns tuple of %d bytes",
				n, postingOff, size)
			it.walk(walker, dataOff, size, nulls, -1)
			return
		}
		it.walk(walker, dataOff, postingOff, nulls, -1)
		for i := 0; i < n; i++ {
			c := pointerColors
			if i%2 == 1 {
				c = alternateColors
			}
			at := postingOff + i*format.ItemPointerSize
			t, _ := ReadTID(it.data, it.at(at))
			emitTID(it.tag, it.at(at), fmt.Sprintf("posting list[%d]", i), t, c, "", "offsetNumber: %d", t.Offset)
		}
		it.tag(it.at(postingEnd), size-postingEnd, format.Black, "alignment padding")
	case VariantGinPostingList:
		postingOff := int(tid.Block &^ format.GinItupCompressed)
		if postingOff < dataOff || postingOff > size {
			it.errorf(0, format.ErrItemOutOfBounds, "posting list offset %d outside tuple of %d bytes", postingOff, size)
			it.walk(walker, dataOff, size, nulls, -1)
			return
		}
		it.walk(walker, dataOff, postingOff, nulls, -1)
		if tid.Block&format.GinItupCompressed == 0 {
			end := min(postingOff+int(off)*format.ItemPointerSize, size)
			it.tag(it.at(postingOff), end-postingOff, format.Orange, "posting list: %d TIDs", off)
			return
		}
		end := p.emitSegments(it.tag, it.data, it.at(postingOff), it.at(size), 1)
		it.tag(end, it.at(size)-end, format.Black, "alignment padding")
	default:
		it.walk(walker, dataOff, size, nulls, -1)
	}
}
