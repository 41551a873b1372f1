// itemid.go - Line pointer array decoding
package page

import (
	"sort"

	"github.com/wilhasse/go-pghexedit/emit"
	"github.com/wilhasse/go-pghexedit/format"
)

type LPFlag uint8

func (f LPFlag) String() string {
	switch f {
	case format.LPUnused:
		return "LP_UNUSED"
	case format.LPNormal:
		return "LP_NORMAL"
	case format.LPRedirect:
		return "LP_REDIRECT"
	case format.LPDead:
		return "LP_DEAD"
	}
	return "LP_INVALID"
}

// LinePointer is one ItemIdData entry.
type LinePointer struct {
	Offnum uint16 // 1-based
	Offset int
	Length int
	Flags  LPFlag
}

// End is the page offset just past the item.
func (lp LinePointer) End() int { return lp.Offset + lp.Length }

// ItemIDOffset is the page offset of line pointer offnum.
func ItemIDOffset(offnum uint16) int {
	return format.PageHeaderSize + (int(offnum)-1)*format.ItemIDSize
}

func ParseLinePointer(p []byte, offnum uint16) (LinePointer, error) {
	raw, err := format.Le32(p, ItemIDOffset(offnum))
	if err != nil {
		return LinePointer{}, err
	}
	return LinePointer{
		Offnum: offnum,
		Offset: int(raw & 0x7FFF),
		Flags:  LPFlag((raw >> 15) & 0x03),
		Length: int(raw >> 17),
	}, nil
}

// EmitLinePointers annotates the line pointer array and returns the entries
// whose storage can be decoded, in physical (offset) order.
func EmitLinePointers(b *emit.Block, h Header) []LinePointer {
	maxOff := h.MaxOffset()
	bounds := itemBounds{lo: max(int(h.Lower), ItemIDOffset(uint16(maxOff+1))), hi: b.Size}
	if sp := int(h.Special); sp >= bounds.lo && sp < b.Size {
		bounds.hi = sp
	}
	var items []LinePointer
	for i := 1; i <= maxOff; i++ {
		offnum := uint16(i)
		lp, err := ParseLinePointer(b.Data, offnum)
		if err != nil {
			b.Errorf(ItemIDOffset(offnum), format.ErrPrematureEOF,
				"line pointer %d of %d lies past the %d bytes read", i, maxOff, b.Avail())
			break
		}
		b.ItemTag(offnum, ItemIDOffset(offnum), format.ItemIDSize, format.BlueLight,
			"lp_len: %d, lp_off: %d, lp_flags: %s", lp.Length, lp.Offset, lp.Flags)
		if checkLinePointer(b, lp, bounds) {
			items = append(items, lp)
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Offset < items[j].Offset })
	return items
}

// itemBounds is the part of the block where item storage may live: past the
// line pointer array and before the special section.
type itemBounds struct {
	lo, hi int
}

// checkLinePointer reports malformed entries and says whether the item has
// storage worth decoding.
func checkLinePointer(b *emit.Block, lp LinePointer, bounds itemBounds) bool {
	at := ItemIDOffset(lp.Offnum)
	switch lp.Flags {
	case format.LPUnused, format.LPRedirect:
		if lp.Length != 0 {
			b.Errorf(at, format.ErrItemPointerInvalid, "(%d,%d) %s with non-zero length %d",
				b.Number, lp.Offnum, lp.Flags, lp.Length)
		}
		return false
	case format.LPNormal:
		if lp.Length == 0 {
			b.Errorf(at, format.ErrItemPointerInvalid, "(%d,%d) LP_NORMAL with zero length", b.Number, lp.Offnum)
			return false
		}
	case format.LPDead:
		if lp.Length == 0 {
			return false
		}
	default:
		b.Errorf(at, format.ErrItemPointerInvalid, "(%d,%d) unknown lp_flags %d", b.Number, lp.Offnum, lp.Flags)
		return false
	}
	if lp.Offset < bounds.lo || lp.End() > bounds.hi {
		b.Errorf(at, format.ErrItemOutOfBounds, "(%d,%d) lp_off %d lp_len %d outside item space %d..%d",
			b.Number, lp.Offnum, lp.Offset, lp.Length, bounds.lo, bounds.hi)
		return false
	}
	if lp.End() > b.Avail() {
		b.Errorf(at, format.ErrItemOutOfBounds, "(%d,%d) lp_off %d lp_len %d past the %d bytes read",
			b.Number, lp.Offnum, lp.Offset, lp.Length, b.Avail())
		return false
	}
	return true
}
