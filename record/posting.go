// posting.go - GIN posting trees, posting list segments and hash bitmap pages
package record

import (
	"fmt"

	"github.com/wilhasse/go-pghexedit/format"
)

// segment header: first item pointer plus nbytes
const ginSegmentHeaderSize = format.ItemPointerSize + 2

// emitSegments annotates GinPostingList segments in [start, end) of data and
// returns the offset where iteration stopped. maxSegments bounds the number of
// segments, 0 meaning no bound. An overrunning segment is reported and ends
// the iteration; segments already annotated stay.
func (p *Page) emitSegments(tag tagFunc, data []byte, start, end, maxSegments int) int {
	off := start
	for i := 0; off < end && (maxSegments == 0 || i < maxSegments); i++ {
		if off+ginSegmentHeaderSize > end {
			p.Block.Errorf(off, format.ErrPostingSegmentOverrun,
				"segment %d header at %d runs past content end %d", i, off, end)
			return off
		}
		first, _ := ReadTID(data, off)
		nbytes, _ := format.Le16(data, off+format.ItemPointerSize)
		bytesAt := off + ginSegmentHeaderSize
		if bytesAt+int(nbytes) > end {
			p.Block.Errorf(off, format.ErrPostingSegmentOverrun,
				"segment %d of %d bytes at %d runs past content end %d", i, nbytes, off, end)
			return off
		}
		name := fmt.Sprintf("GinPostingList[%d]->first", i)
		emitTID(tag, off, name, first, pointerColors, "", "offsetNumber: %d", first.Offset)
		tag(off+format.ItemPointerSize, 2, format.YellowDark, "GinPostingList[%d]->nbytes: %d", i, nbytes)
		tag(bytesAt, int(nbytes), format.Orange, "GinPostingList[%d]->bytes", i)
		off = format.ShortAlign(bytesAt + int(nbytes))
	}
	return min(off, end)
}

// contentEnd is pd_lower clamped to the bytes actually read.
func (p *Page) contentEnd() int {
	return min(int(p.Header.Lower), p.Block.Avail(), p.Special.Offset)
}

// DecodeGinDataPage annotates a posting tree page. These pages have no line
// pointers: pd_lower marks the end of the PostingItem array or of the
// compressed segments.
func (p *Page) DecodeGinDataPage() {
	b := p.Block
	g := p.Special.Gin
	start := format.MaxAlign(format.PageHeaderSize)
	if g.Has(format.GinLeaf) && !g.Has(format.GinCompressed) {
		b.Errorf(start, format.ErrUnsupportedLegacyFormat, "uncompressed posting tree leaf (pre-9.4 format) skipped")
		return
	}

	bound, err := ReadTID(b.Data, start)
	if err != nil {
		b.Errorf(start, format.ErrPrematureEOF, "posting tree right bound: %v", err)
		return
	}
	emitTID(b.Tag, start, "right bound", bound, keyColors, "", "offsetNumber: %d", bound.Offset)
	first := start + format.MaxAlign(format.ItemPointerSize)

	if g.Has(format.GinLeaf) {
		p.emitSegments(b.Tag, b.Data, first, p.contentEnd(), 0)
		return
	}

	limit := min(p.Special.Offset, b.Avail())
	for i := 0; i < int(g.Maxoff); i++ {
		off := first + i*format.PostingItemSize
		offnum := uint16(i + 1)
		if off+format.PostingItemSize > limit {
			b.Errorf(off, format.ErrItemOutOfBounds, "PostingItem %d of %d runs past offset %d", offnum, g.Maxoff, limit)
			return
		}
		hi, _ := format.Le16(b.Data, off)
		lo, _ := format.Le16(b.Data, off+2)
		key, _ := ReadTID(b.Data, off+format.BlockIDSize)
		b.ItemTag(offnum, off, 2, format.BlueLight, "PostingItem->child_blkno->bi_hi")
		b.ItemTag(offnum, off+2, 2, format.BlueLight, "PostingItem->child_blkno->bi_lo - block: %d", uint32(hi)<<16|uint32(lo))
		emitTID(p.itemTag(offnum), off+format.BlockIDSize, "PostingItem->key", key, keyColors, "",
			"offsetNumber: %d", key.Offset)
	}
}

// DecodeHashBitmap annotates the bitmap words of a hash bitmap page.
func (p *Page) DecodeHashBitmap() {
	start := format.MaxAlign(format.PageHeaderSize)
	p.Block.Tag(start, p.contentEnd()-start, format.YellowLight, "hash bitmap")
}
