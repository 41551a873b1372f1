// generic.go - Per-page decoding context shared by all tuple decoders
package record

import (
	"fmt"

	"github.com/wilhasse/go-pghexedit/column"
	"github.com/wilhasse/go-pghexedit/emit"
	"github.com/wilhasse/go-pghexedit/format"
	"github.com/wilhasse/go-pghexedit/page"
)

// Page holds what the tuple decoders need to know about the enclosing page.
type Page struct {
	Block    *emit.Block
	Header   page.Header
	Special  page.Special
	Caps     format.Capabilities
	Walker   *column.Walker
	RelBlock uint32 // relation-relative block number
}

// TID is an ItemPointerData value.
type TID struct {
	Block  uint32
	Offset uint16
}

func (t TID) String() string { return fmt.Sprintf("(%d,%d)", t.Block, t.Offset) }

// ReadTID reads the three little-endian subfields bi_hi, bi_lo and posid.
func ReadTID(p []byte, off int) (TID, error) {
	hi, err := format.Le16(p, off)
	if err != nil {
		return TID{}, err
	}
	lo, err := format.Le16(p, off+2)
	if err != nil {
		return TID{}, err
	}
	pos, err := format.Le16(p, off+4)
	if err != nil {
		return TID{}, err
	}
	return TID{Block: uint32(hi)<<16 | uint32(lo), Offset: pos}, nil
}

type tagFunc func(start, n int, color format.Color, label string, args ...any)

func (p *Page) itemTag(offnum uint16) tagFunc {
	return func(start, n int, color format.Color, label string, args ...any) {
		p.Block.ItemTag(offnum, start, n, color, label, args...)
	}
}

type tidColors struct {
	block  format.Color
	offset format.Color
}

var (
	pointerColors   = tidColors{format.BlueLight, format.BlueDark}
	alternateColors = tidColors{format.GreenLight, format.GreenDark}
	keyColors       = tidColors{format.White, format.White}
	selfColors      = tidColors{format.GreenBright, format.GreenBright}
)

// emitTID annotates the subfields of the pointer at off. blockNote is
// appended to the bi_lo label, which is where the whole block number shows.
func emitTID(tag tagFunc, off int, name string, tid TID, c tidColors, blockNote, offLabel string, args ...any) {
	tag(off, 2, c.block, "%s->bi_hi", name)
	tag(off+2, 2, c.block, "%s->bi_lo - block: %d%s", name, tid.Block, blockNote)
	tag(off+4, 2, c.offset, "%s->%s", name, fmt.Sprintf(offLabel, args...))
}

// item bounds every read to the storage of one line pointer.
type item struct {
	*Page
	lp   page.LinePointer
	data []byte
	tag  tagFunc
}

func (p *Page) item(lp page.LinePointer) *item {
	return &item{Page: p, lp: lp, data: p.Block.Data[:lp.End()], tag: p.itemTag(lp.Offnum)}
}

func (it *item) u8(rel int) (uint8, error)   { return format.U8(it.data, it.lp.Offset+rel) }
func (it *item) u16(rel int) (uint16, error) { return format.Le16(it.data, it.lp.Offset+rel) }
func (it *item) u32(rel int) (uint32, error) { return format.Le32(it.data, it.lp.Offset+rel) }

// at converts an item-relative offset to a page offset.
func (it *item) at(rel int) int { return it.lp.Offset + rel }

func (it *item) errorf(rel int, kind error, msg string, args ...any) {
	it.Block.Errorf(it.at(rel), kind, "(%d,%d) %s", it.Block.Number, it.lp.Offnum, fmt.Sprintf(msg, args...))
}

// walk hands [start, end) of the item to the attribute walker.
func (it *item) walk(w *column.Walker, start, end int, nulls []byte, natts int) {
	if end <= start {
		return
	}
	w.Walk(it.Block, column.Tuple{
		Offnum: it.lp.Offnum,
		Start:  it.at(start),
		Len:    end - start,
		Nulls:  nulls,
		Natts:  natts,
	})
}
