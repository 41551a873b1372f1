package record

import (
	"encoding/binary"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wilhasse/go-pghexedit/column"
	"github.com/wilhasse/go-pghexedit/emit"
	"github.com/wilhasse/go-pghexedit/format"
	"github.com/wilhasse/go-pghexedit/internal/pagetest"
	"github.com/wilhasse/go-pghexedit/page"
	"github.com/wilhasse/go-pghexedit/schema"
)

var le = binary.LittleEndian

func decode(t *testing.T, data []byte, v format.Version, attrs string) *pagetest.Harness {
	t.Helper()
	h := pagetest.NewHarness()
	hdr, err := page.ParseHeader(data)
	require.NoError(t, err)
	kind := page.Classify(data, len(data))
	s, err := page.ParseSpecial(data, kind, int(hdr.Special))
	require.NoError(t, err)
	var w *column.Walker
	if attrs != "" {
		td, err := schema.ParseAttrList(attrs)
		require.NoError(t, err)
		w = column.NewWalker(td.Attributes)
	}
	p := &Page{Block: h.Block(0, data), Header: hdr, Special: s, Caps: v.Capabilities(), Walker: w}
	p.Body()
	return h
}

// forItem returns the annotations of one item, excluding its line pointer.
func forItem(h *pagetest.Harness, offnum int) []emit.Annotation {
	prefix := "(0," + strconv.Itoa(offnum) + ") "
	var out []emit.Annotation
	for _, a := range h.Sink.Annotations {
		if strings.HasPrefix(a.Label, prefix) && !strings.Contains(a.Label, "lp_len") {
			out = append(out, a)
		}
	}
	return out
}

func span(anns []emit.Annotation) int64 {
	var n int64
	for _, a := range anns {
		n += a.Len()
	}
	return n
}

func requireOrdered(t *testing.T, h *pagetest.Harness) {
	t.Helper()
	for i, a := range h.Sink.Annotations {
		require.GreaterOrEqual(t, a.End, a.Start, a.Label)
		if i > 0 {
			require.GreaterOrEqual(t, a.Start, h.Sink.Annotations[i-1].Start, a.Label)
		}
	}
}

type heapTuple struct {
	xmin, xmax uint32
	ctid       TID
	infomask   uint16
	infomask2  uint16
	hoff       int
	bits       []byte
	payload    []byte
}

func (ht heapTuple) bytes() []byte {
	t := make([]byte, ht.hoff+len(ht.payload))
	le.PutUint32(t[0:], ht.xmin)
	le.PutUint32(t[4:], ht.xmax)
	le.PutUint16(t[12:], uint16(ht.ctid.Block>>16))
	le.PutUint16(t[14:], uint16(ht.ctid.Block))
	le.PutUint16(t[16:], ht.ctid.Offset)
	le.PutUint16(t[18:], ht.infomask2)
	le.PutUint16(t[20:], ht.infomask)
	t[22] = uint8(ht.hoff)
	copy(t[23:], ht.bits)
	copy(t[ht.hoff:], ht.payload)
	return t
}

func TestHeapTupleSpansMatchLpLen(t *testing.T) {
	assert := require.New(t)
	b := pagetest.New(8192)
	tuples := []heapTuple{
		{xmin: 2, ctid: TID{0, 1}, infomask2: 3, infomask: format.HeapHasNull, hoff: 24, bits: []byte{0x05}, payload: make([]byte, 8)},
		{xmin: 700, xmax: 701, ctid: TID{4, 9}, infomask2: 2, hoff: 24, payload: make([]byte, 12)},
		{xmin: 702, ctid: TID{0, 3}, infomask2: 2, infomask: format.HeapHasNull, hoff: 24, bits: []byte{0x00}},
	}
	for _, ht := range tuples {
		b.AddItem(ht.bytes(), format.LPNormal)
	}
	h := decode(t, b.Bytes(), format.Version16, "")
	assert.Empty(h.Errors())
	requireOrdered(t, h)

	for i, ht := range tuples {
		anns := forItem(h, i+1)
		assert.Equal(int64(ht.hoff+len(ht.payload)), span(anns), "item %d", i+1)
	}

	_, ok := h.Find("(0,1) xmin: 2 (FrozenTransactionId)")
	assert.True(ok)
	self, ok := h.Find("(0,1) t_ctid->offsetNumber: 1 (self)")
	assert.True(ok)
	assert.Equal(format.GreenBright, self.Note)
	_, ok = h.Find("(0,2) t_ctid->offsetNumber: 9 (self)")
	assert.False(ok)
	_, ok = h.Find("(0,2) alignment padding")
	assert.True(ok)
	_, ok = h.Find("(0,3) contents")
	assert.False(ok, "all-null row has no payload")
}

func TestHeapTupleWithDescriptors(t *testing.T) {
	assert := require.New(t)
	b := pagetest.New(8192)
	payload := make([]byte, 16)
	le.PutUint32(payload, 7)
	le.PutUint64(payload[8:], 9)
	b.AddItem(heapTuple{xmin: 900, ctid: TID{0, 1}, infomask2: 3, infomask: format.HeapHasNull,
		hoff: 24, bits: []byte{0x05}, payload: payload}.bytes(), format.LPNormal)

	h := decode(t, b.Bytes(), format.Version16, "4,a,i,-1,b,i,8,c,d")
	assert.Empty(h.Errors())
	var attrs []string
	for _, a := range forItem(h, 1) {
		if a.Label == "(0,1) a" || a.Label == "(0,1) b" || a.Label == "(0,1) c" {
			attrs = append(attrs, a.Label)
		}
	}
	assert.Equal([]string{"(0,1) a", "(0,1) c"}, attrs)
}

func TestHeapTupleHeaderErrors(t *testing.T) {
	t.Run("t_hoff mismatch", func(t *testing.T) {
		b := pagetest.New(8192)
		b.AddItem(heapTuple{xmin: 5, infomask2: 1, hoff: 32, payload: make([]byte, 8)}.bytes(), format.LPNormal)
		h := decode(t, b.Bytes(), format.Version16, "")
		require.True(t, h.HasError(format.ErrHeaderInvariant))
		c, ok := h.Find("(0,1) contents")
		require.True(t, ok)
		require.Equal(t, int64(8), c.Len())
	})
	t.Run("undersized lp_len", func(t *testing.T) {
		b := pagetest.New(8192)
		b.AddItem(make([]byte, 16), format.LPNormal)
		h := decode(t, b.Bytes(), format.Version16, "")
		require.True(t, h.HasError(format.ErrHeaderInvariant))
		require.Empty(t, forItem(h, 1))
	})
	t.Run("legacy oid", func(t *testing.T) {
		b := pagetest.New(8192)
		tup := heapTuple{xmin: 5, infomask2: 1, infomask: format.HeapHasOIDOld, hoff: 32, payload: make([]byte, 4)}.bytes()
		le.PutUint32(tup[28:], 16384)
		b.AddItem(tup, format.LPNormal)
		h := decode(t, b.Bytes(), format.Version11, "")
		require.Empty(t, h.Errors())
		oid, ok := h.Find("(0,1) t_oid: 16384")
		require.True(t, ok)
		require.Equal(t, int64(4), oid.Len())
	})
}

func TestItemsOutsideItemSpace(t *testing.T) {
	t.Run("inside line pointer array", func(t *testing.T) {
		assert := require.New(t)
		b := pagetest.New(8192)
		b.AddItem(heapTuple{xmin: 9, infomask2: 1, hoff: 24, payload: make([]byte, 8)}.bytes(), format.LPNormal)
		b.AddLinePointer(24, 32, format.LPNormal)
		h := decode(t, b.Bytes(), format.Version16, "")
		assert.True(h.HasError(format.ErrItemOutOfBounds))
		assert.Empty(forItem(h, 2))
		assert.NotEmpty(forItem(h, 1))
		requireOrdered(t, h)
	})
	t.Run("overlapping special section", func(t *testing.T) {
		assert := require.New(t)
		b := pagetest.New(8192).Special(btreeSpecial(format.BTPLeaf))
		b.AddItem(indexTuple(1, 1, 16, make([]byte, 8)), format.LPNormal)
		b.AddLinePointer(8168, 16, format.LPNormal)
		h := decode(t, b.Bytes(), format.Version16, "")
		assert.True(h.HasError(format.ErrItemOutOfBounds))
		assert.Empty(forItem(h, 2))
		assert.Len(forItem(h, 1), 5)
		requireOrdered(t, h)
	})
}

func btreeSpecial(flags uint16) []byte {
	s := make([]byte, format.BTreeOpaqueSize)
	le.PutUint16(s[12:], flags)
	return s
}

func indexTuple(block uint32, off uint16, info uint16, body []byte) []byte {
	t := make([]byte, format.IndexTupleHeaderSize+len(body))
	le.PutUint16(t[0:], uint16(block>>16))
	le.PutUint16(t[2:], uint16(block))
	le.PutUint16(t[4:], off)
	le.PutUint16(t[6:], info)
	copy(t[8:], body)
	return t
}

func TestBTreeLeafThreeTuples(t *testing.T) {
	assert := require.New(t)
	b := pagetest.New(8192).Special(btreeSpecial(format.BTPLeaf))
	for i := 1; i <= 3; i++ {
		b.AddItem(indexTuple(uint32(i), uint16(i), 16, make([]byte, 8)), format.LPNormal)
	}
	h := decode(t, b.Bytes(), format.Version16, "")
	assert.Empty(h.Errors())
	requireOrdered(t, h)

	lps := 0
	for _, a := range h.Sink.Annotations {
		if strings.Contains(a.Label, "lp_len: 16") {
			lps++
		}
	}
	assert.Equal(3, lps)
	for i := 1; i <= 3; i++ {
		anns := forItem(h, i)
		assert.Len(anns, 5)
		assert.Equal(int64(16), span(anns))
		assert.Contains(anns[0].Label, "t_tid->bi_hi")
		assert.Contains(anns[3].Label, "t_info IndexTupleSize(): 16, none")
		assert.Contains(anns[4].Label, "contents")
	}
}

func TestBTreePivotTuple(t *testing.T) {
	body := make([]byte, 16)
	le.PutUint64(body, 77)
	le.PutUint16(body[10:], 0)
	le.PutUint16(body[12:], 3)
	le.PutUint16(body[14:], 2)
	tuple := indexTuple(5, 1|format.BTPivotHeapTIDAttr, 24|format.IndexAMReservedBit, body)

	build := func() []byte {
		b := pagetest.New(8192).Special(btreeSpecial(0))
		b.AddItem(tuple, format.LPNormal)
		return b.Bytes()
	}

	t.Run("heap tid tiebreaker", func(t *testing.T) {
		assert := require.New(t)
		h := decode(t, build(), format.Version16, "8,k,d")
		assert.Empty(h.Errors())
		_, ok := h.Find("(0,1) t_tid->offsetNumber - natts: 1, BT_PIVOT_HEAP_TID_ATTR")
		assert.True(ok)
		_, ok = h.Find("INDEX_ALT_TID_MASK")
		assert.True(ok)
		k, ok := h.Find("(0,1) k")
		assert.True(ok)
		assert.Equal(int64(8), k.Len())
		tb, ok := h.Find("(0,1) heap TID tiebreaker->bi_lo - block: 3")
		assert.True(ok)
		assert.Equal(int64(8192-16-24+18+2), tb.Start)
	})
	t.Run("alt tid without heap tid", func(t *testing.T) {
		h := decode(t, build(), format.Version11, "")
		_, ok := h.Find("natts: 1")
		require.True(t, ok)
		_, ok = h.Find("tiebreaker")
		require.False(t, ok)
	})
	t.Run("plain format ignores alt tid", func(t *testing.T) {
		h := decode(t, build(), format.Version10, "")
		_, ok := h.Find("(0,1) t_tid->offsetNumber: 4097")
		require.True(t, ok)
	})
}

func TestBTreePostingTuple(t *testing.T) {
	assert := require.New(t)
	body := make([]byte, 32)
	for i := 0; i < 3; i++ {
		at := 8 + i*6
		le.PutUint16(body[at+2:], uint16(10+i))
		le.PutUint16(body[at+4:], uint16(i+1))
	}
	b := pagetest.New(8192).Special(btreeSpecial(format.BTPLeaf))
	b.AddItem(indexTuple(16, 3|format.BTIsPosting, 40|format.IndexAMReservedBit, body), format.LPNormal)

	h := decode(t, b.Bytes(), format.Version16, "")
	assert.Empty(h.Errors())
	requireOrdered(t, h)
	_, ok := h.Find("(0,1) t_tid->offsetNumber - nposting: 3, BT_IS_POSTING")
	assert.True(ok)
	key, ok := h.Find("(0,1) contents")
	assert.True(ok)
	assert.Equal(int64(8), key.Len())

	first, ok := h.Find("(0,1) posting list[0]->bi_lo - block: 10")
	assert.True(ok)
	assert.Equal(format.BlueLight, first.Note)
	second, ok := h.Find("(0,1) posting list[1]->bi_lo - block: 11")
	assert.True(ok)
	assert.Equal(format.GreenLight, second.Note)
	_, ok = h.Find("(0,1) posting list[2]->offsetNumber: 3")
	assert.True(ok)
	assert.Equal(int64(40), span(forItem(h, 1)))
}

func TestHashTupleKey(t *testing.T) {
	s := make([]byte, format.HashOpaqueSize)
	le.PutUint16(s[12:], format.LHBucketPage)
	le.PutUint16(s[14:], format.HashPageID)
	b := pagetest.New(8192).Special(s)
	b.AddItem(indexTuple(1, 1, 16, []byte{1, 2, 3, 4, 0, 0, 0, 0}), format.LPNormal)

	h := decode(t, b.Bytes(), format.Version16, "")
	key, ok := h.Find("(0,1) hashkey")
	require.True(t, ok)
	require.Equal(t, int64(4), key.Len())
}

func ginSpecial(maxoff, flags uint16) []byte {
	s := make([]byte, format.GinOpaqueSize)
	le.PutUint32(s, format.InvalidBlockNumber)
	le.PutUint16(s[4:], maxoff)
	le.PutUint16(s[6:], flags)
	return s
}

func TestGinPostingSegmentOverrun(t *testing.T) {
	assert := require.New(t)
	b := pagetest.New(8192).Special(ginSpecial(0, format.GinData|format.GinLeaf|format.GinCompressed))
	b.Put16(32+2, 1)
	b.Put16(32+4, 1)
	b.Put16(32+6, 4)
	b.Put16(44+6, 100)
	h := decode(t, b.SetLower(60).Bytes(), format.Version16, "")

	assert.True(h.HasError(format.ErrPostingSegmentOverrun))
	assert.True(h.HasError(format.ErrItemOutOfBounds))
	assert.True(h.Rec.Failed())
	_, ok := h.Find("block 0 right bound->bi_hi")
	assert.True(ok)
	seg, ok := h.Find("GinPostingList[0]->bytes")
	assert.True(ok)
	assert.Equal(int64(4), seg.Len())
	_, ok = h.Find("GinPostingList[1]")
	assert.False(ok)
	requireOrdered(t, h)
}

func TestGinLegacyLeafSkipped(t *testing.T) {
	b := pagetest.New(8192).Special(ginSpecial(0, format.GinData|format.GinLeaf))
	h := decode(t, b.SetLower(64).Bytes(), format.Version16, "")
	require.True(t, h.HasError(format.ErrUnsupportedLegacyFormat))
	require.Empty(t, h.Sink.Annotations)
}

func TestGinPostingTreeInternal(t *testing.T) {
	assert := require.New(t)
	b := pagetest.New(8192).Special(ginSpecial(2, format.GinData))
	for i := 0; i < 2; i++ {
		off := 32 + i*format.PostingItemSize
		b.Put16(off+2, uint16(7+i))
		b.Put16(off+8, uint16(i+1))
	}
	h := decode(t, b.SetLower(52).Bytes(), format.Version16, "")
	assert.Empty(h.Errors())
	child, ok := h.Find("(0,2) PostingItem->child_blkno->bi_lo - block: 8")
	assert.True(ok)
	assert.Equal(format.BlueLight, child.Note)
	key, ok := h.Find("(0,1) PostingItem->key->offsetNumber: 1")
	assert.True(ok)
	assert.Equal(format.White, key.Note)
}

func TestGinEntryTuples(t *testing.T) {
	assert := require.New(t)
	b := pagetest.New(8192).Special(ginSpecial(0, format.GinLeaf))

	// posting tree root in block 12
	b.AddItem(indexTuple(12, format.GinTreePosting, 16, make([]byte, 8)), format.LPNormal)
	// key of 8 bytes, then one compressed segment of 4 bytes
	body := make([]byte, 24)
	le.PutUint16(body[8+6:], 4)
	b.AddItem(indexTuple(16|format.GinItupCompressed, 5, 32, body), format.LPNormal)

	h := decode(t, b.Bytes(), format.Version16, "")
	assert.Empty(h.Errors())
	_, ok := h.Find("(0,1) t_tid->bi_lo - block: 12 (posting tree root)")
	assert.True(ok)
	_, ok = h.Find("(0,2) t_tid->offsetNumber - nposting: 5")
	assert.True(ok)
	key, ok := h.Find("(0,2) contents")
	assert.True(ok)
	assert.Equal(int64(8), key.Len())
	seg, ok := h.Find("(0,2) GinPostingList[0]->bytes")
	assert.True(ok)
	assert.Equal(int64(4), seg.Len())
	assert.Equal(int64(32), span(forItem(h, 2)))
}

func spgistSpecial(flags uint16) []byte {
	s := make([]byte, format.SpGistOpaqueSize)
	le.PutUint16(s, flags)
	le.PutUint16(s[6:], format.SpGistPageID)
	return s
}

func TestSpGistInnerTuple(t *testing.T) {
	assert := require.New(t)
	tup := make([]byte, 40)
	le.PutUint32(tup, 2<<3|8<<16)
	le.PutUint16(tup[4:], 40)
	copy(tup[16:], indexTuple(9, 1, 8|format.IndexNullMask, nil))
	copy(tup[24:], indexTuple(10, 1, 16, make([]byte, 8)))
	b := pagetest.New(8192).Special(spgistSpecial(0))
	b.AddItem(tup, format.LPNormal)

	h := decode(t, b.Bytes(), format.Version16, "")
	assert.Empty(h.Errors())
	requireOrdered(t, h)
	_, ok := h.Find("(0,1) tupstate: SPGIST_LIVE, allTheSame: false, nNodes: 2, prefixSize: 8")
	assert.True(ok)
	_, ok = h.Find("(0,1) node[0] t_tid->bi_lo - block: 9 (downlink)")
	assert.True(ok)
	_, ok = h.Find("(0,1) node[0] label")
	assert.False(ok)
	label, ok := h.Find("(0,1) node[1] label")
	assert.True(ok)
	assert.Equal(int64(8), label.Len())
	assert.Equal(int64(40), span(forItem(h, 1)))
}

func TestSpGistLeafAndDeadTuples(t *testing.T) {
	assert := require.New(t)
	b := pagetest.New(8192).Special(spgistSpecial(format.SpGistLeaf))

	live := make([]byte, 24)
	le.PutUint32(live, 24<<2)
	le.PutUint16(live[8:], 1)
	le.PutUint16(live[10:], 2)
	b.AddItem(live, format.LPNormal)

	dead := make([]byte, 16)
	le.PutUint32(dead, format.SpGistRedirect|16<<2)
	le.PutUint16(dead[8:], 3)
	le.PutUint16(dead[10:], 4)
	le.PutUint32(dead[12:], 1234)
	b.AddItem(dead, format.LPNormal)

	h := decode(t, b.Bytes(), format.Version16, "")
	assert.Empty(h.Errors())
	_, ok := h.Find("(0,1) heapPtr->bi_lo - block: 1")
	assert.True(ok)
	c, ok := h.Find("(0,1) contents")
	assert.True(ok)
	assert.Equal(int64(8), c.Len())
	_, ok = h.Find("(0,2) tupstate: SPGIST_REDIRECT, size: 16")
	assert.True(ok)
	_, ok = h.Find("(0,2) pointer->bi_lo - block: 3 (redirect)")
	assert.True(ok)
	xid, ok := h.Find("(0,2) xid: 1234")
	assert.True(ok)
	assert.Equal(int64(4), xid.Len())
	assert.Equal(int64(16), span(forItem(h, 2)))
}

func brinSpecial(typ uint16) []byte {
	s := make([]byte, format.BrinOpaqueSize)
	le.PutUint16(s[6:], typ)
	return s
}

func TestBrinTuple(t *testing.T) {
	assert := require.New(t)
	tup := make([]byte, 16)
	le.PutUint32(tup, 128)
	tup[4] = 8 | format.BrinNullsMask
	b := pagetest.New(8192).Special(brinSpecial(format.BrinPageTypeRegular))
	b.AddItem(tup, format.LPNormal)

	h := decode(t, b.Bytes(), format.Version16, "4,a,i")
	assert.Empty(h.Errors())
	assert.Equal([]string{
		"(0,1) bt_blkno: 128",
		"(0,1) bt_info - data offset: 8, BRIN_NULLS_MASK",
		"(0,1) null bitmap",
		"(0,1) alignment padding",
		"(0,1) contents",
	}, labels(forItem(h, 1)))
	assert.Equal(int64(16), span(forItem(h, 1)))
}

func TestBrinRevmapSpansCapacity(t *testing.T) {
	b := pagetest.New(8192).Special(brinSpecial(format.BrinPageTypeRevmap))
	h := decode(t, b.SetLower(8184).Bytes(), format.Version16, "")
	require.Empty(t, h.Errors())
	require.Len(t, h.Sink.Annotations, 1360*3)
	require.Equal(t, "block 0 rm_tids[0]->bi_hi", h.Sink.Annotations[0].Label)
	last := h.Sink.Annotations[len(h.Sink.Annotations)-1]
	require.Equal(t, "block 0 rm_tids[1359]->offsetNumber: 0", last.Label)
	require.Equal(t, int64(24+1360*6-1), last.End)
}

func TestHashBitmapPage(t *testing.T) {
	s := make([]byte, format.HashOpaqueSize)
	le.PutUint16(s[12:], format.LHBitmapPage)
	le.PutUint16(s[14:], format.HashPageID)
	h := decode(t, pagetest.New(8192).Special(s).SetLower(4120).Bytes(), format.Version16, "")
	require.Equal(t, []string{"block 0 hash bitmap"}, h.Labels())
	require.Equal(t, int64(4096), h.Sink.Annotations[0].Len())
}

func TestEmptyHeapPage(t *testing.T) {
	h := decode(t, pagetest.New(8192).Bytes(), format.Version16, "")
	require.Empty(t, h.Sink.Annotations)
	require.False(t, h.Rec.Failed())
}

func TestVariantIsCapabilityGated(t *testing.T) {
	hdr := IndexTupleHeader{TID: TID{Offset: 2 | format.BTIsPosting}, Info: format.IndexAMReservedBit}
	p := &Page{Special: page.Special{Kind: page.SpecialBTree}}
	tests := []struct {
		v    format.Version
		want IndexVariant
	}{
		{format.Version10, VariantPlain},
		{format.Version12, VariantPivot},
		{format.Version13, VariantPosting},
	}
	for _, tc := range tests {
		t.Run(tc.v.String(), func(t *testing.T) {
			p.Caps = tc.v.Capabilities()
			require.Equal(t, tc.want, p.Variant(hdr))
		})
	}
}

func labels(anns []emit.Annotation) []string {
	out := make([]string, 0, len(anns))
	for _, a := range anns {
		out = append(out, a.Label)
	}
	return out
}
