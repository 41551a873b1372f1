// heap.go - Heap tuple decoding
package record

import (
	"github.com/wilhasse/go-pghexedit/format"
	"github.com/wilhasse/go-pghexedit/page"
)

// DecodeHeapTuple annotates the header fields and payload of a heap tuple.
func (p *Page) DecodeHeapTuple(lp page.LinePointer) {
	it := p.item(lp)
	if lp.Length < format.HeapTupleHeaderSize {
		it.errorf(0, format.ErrHeaderInvariant, "lp_len %d is smaller than the %d byte heap tuple header",
			lp.Length, format.HeapTupleHeaderSize)
		return
	}
	h, err := ParseHeapTupleHeader(it.data, lp.Offset)
	if err != nil {
		it.errorf(0, format.ErrItemOutOfBounds, "%v", err)
		return
	}

	color, note := xminStyle(h)
	it.tag(it.at(0), 4, color, "xmin: %d%s", h.Xmin, note)
	color, note = xmaxStyle(h)
	it.tag(it.at(4), 4, color, "xmax: %d%s", h.Xmax, note)
	if h.Moved() {
		it.tag(it.at(8), 4, format.Pink, "t_xvac: %d", h.CidOrXvac)
	} else {
		it.tag(it.at(8), 4, format.RedDark, "t_cid: %d", h.CidOrXvac)
	}

	colors, self := pointerColors, ""
	if h.Ctid.Block == p.RelBlock && h.Ctid.Offset == lp.Offnum {
		colors, self = selfColors, " (self)"
	}
	emitTID(it.tag, it.at(12), "t_ctid", h.Ctid, colors, "", "offsetNumber: %d%s", h.Ctid.Offset, self)

	it.tag(it.at(18), 2, format.GreenLight, "t_infomask2 HeapTupleHeaderGetNatts(): %d, %s",
		h.Natts(), Infomask2String(h.Infomask2))
	it.tag(it.at(20), 2, format.GreenDark, "t_infomask - %s", InfomaskString(h.Infomask))
	it.tag(it.at(22), 1, format.YellowDark, "t_hoff: %d", h.Hoff)

	hoff := int(h.Hoff)
	if want := h.ComputedHoff(p.Caps); want != hoff {
		it.errorf(22, format.ErrHeaderInvariant, "computed header length %d not equal to t_hoff %d", want, hoff)
	}
	if hoff < format.HeapTupleHeaderSize || hoff > lp.Length {
		it.errorf(22, format.ErrHeaderInvariant, "t_hoff %d outside tuple of lp_len %d", hoff, lp.Length)
		return
	}

	oidLen := 0
	if h.HasOID() && p.Caps.LegacyOIDs && hoff-4 >= format.HeapTupleHeaderSize {
		oidLen = 4
	}
	bitsEnd := min(format.HeapTupleHeaderSize+h.BitmapLen(), hoff-oidLen)
	var nulls []byte
	if h.HasNulls() {
		nulls = it.data[it.at(format.HeapTupleHeaderSize):it.at(bitsEnd)]
		it.tag(it.at(format.HeapTupleHeaderSize), bitsEnd-format.HeapTupleHeaderSize, format.YellowDark, "t_bits")
	}
	it.tag(it.at(bitsEnd), hoff-oidLen-bitsEnd, format.YellowDark, "alignment padding")
	if oidLen > 0 {
		oid, _ := it.u32(hoff - oidLen)
		it.tag(it.at(hoff-oidLen), oidLen, format.YellowDark, "t_oid: %d", oid)
	}

	// lp_len == t_hoff is an all-null row with no payload
	it.walk(p.Walker, hoff, lp.Length, nulls, h.Natts())
}

func xminStyle(h HeapTupleHeader) (format.Color, string) {
	switch {
	case h.Xmin == format.InvalidTransactionID:
		return format.Black, " (InvalidTransactionId)"
	case h.Xmin == format.BootstrapTransactionID:
		return format.GreenDark, " (BootstrapTransactionId)"
	case h.Xmin == format.FrozenTransactionID:
		return format.GreenBright, " (FrozenTransactionId)"
	case h.XminFrozen():
		return format.GreenBright, " (frozen)"
	}
	return format.RedLight, ""
}

func xmaxStyle(h HeapTupleHeader) (format.Color, string) {
	switch {
	case h.Xmax == format.InvalidTransactionID:
		return format.Black, " (InvalidTransactionId)"
	case h.Infomask&format.HeapXmaxIsMulti != 0:
		return format.Orange, " (MultiXactId)"
	case h.Infomask&format.HeapXmaxLockOnly != 0:
		return format.YellowDark, " (lock only)"
	case h.Infomask&format.HeapXmaxInvalid != 0:
		return format.Black, " (invalid)"
	}
	return format.RedLight, ""
}
