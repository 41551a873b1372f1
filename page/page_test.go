package page

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wilhasse/go-pghexedit/checksum"
	"github.com/wilhasse/go-pghexedit/format"
	"github.com/wilhasse/go-pghexedit/internal/pagetest"
)

func special16(id uint16) []byte {
	s := make([]byte, 16)
	binary.LittleEndian.PutUint16(s[14:], id)
	return s
}

func special24(id uint16) []byte {
	s := make([]byte, 24)
	binary.LittleEndian.PutUint16(s[22:], id)
	return s
}

func special8(first uint32, last uint16) []byte {
	s := make([]byte, 8)
	binary.LittleEndian.PutUint32(s, first)
	binary.LittleEndian.PutUint16(s[6:], last)
	return s
}

func TestClassifyRules(t *testing.T) {
	brinMeta := pagetest.New(8192).Special(special8(0, format.BrinPageTypeMeta))
	brinMeta.Put32(24, format.BrinMetaMagic)

	zeroSpecial := pagetest.New(512).Bytes()
	binary.LittleEndian.PutUint16(zeroSpecial[16:], 0)

	tests := []struct {
		name string
		page []byte
		size int
		kind SpecialKind
		rule string
	}{
		{"special zero", zeroSpecial, 512, SpecialErrorBoundary, "special-offset"},
		{"partial header", make([]byte, 20), 8192, SpecialErrorBoundary, "partial-header"},
		{"special past bytes read", pagetest.New(8192).Special(special16(0)).Bytes()[:100], 8192, SpecialErrorBoundary, "special-offset"},
		{"heap", pagetest.New(8192).Bytes(), 8192, SpecialNone, "no-special"},
		{"sequence", pagetest.New(8192).Special(special8(format.SequenceMagic, 0)).Bytes(), 8192, SpecialSequence, "maxalign-4"},
		{"spgist", pagetest.New(8192).Special(special8(0, format.SpGistPageID)).Bytes(), 8192, SpecialSpGist, "maxalign-4"},
		{"brin regular", pagetest.New(8192).Special(special8(0, format.BrinPageTypeRegular)).Bytes(), 8192, SpecialBrin, "maxalign-4"},
		{"brin revmap", pagetest.New(8192).Special(special8(0, format.BrinPageTypeRevmap)).Bytes(), 8192, SpecialBrin, "maxalign-4"},
		{"brin meta", brinMeta.Bytes(), 8192, SpecialBrin, "maxalign-4"},
		{"brin meta type without magic", pagetest.New(8192).Special(special8(0, format.BrinPageTypeMeta)).Bytes(), 8192, SpecialGin, "maxalign-4"},
		{"gin", pagetest.New(8192).Special(special8(format.InvalidBlockNumber, format.GinLeaf)).Bytes(), 8192, SpecialGin, "maxalign-4"},
		{"btree", pagetest.New(8192).Special(special16(3)).Bytes(), 8192, SpecialBTree, "trailing-page-id"},
		{"hash", pagetest.New(8192).Special(special16(format.HashPageID)).Bytes(), 8192, SpecialHash, "trailing-page-id"},
		{"gist", pagetest.New(8192).Special(special16(format.GistPageID)).Bytes(), 8192, SpecialGist, "trailing-page-id"},
		{"unknown page id", pagetest.New(8192).Special(special16(0xFFFF)).Bytes(), 8192, SpecialErrorUnknown, "trailing-page-id"},
		{"odd special size", pagetest.New(8192).Special(make([]byte, 32)).Bytes(), 8192, SpecialErrorUnknown, "trailing-page-id"},
		{"hash page id in 24 byte special", pagetest.New(8192).Special(special24(format.HashPageID)).Bytes(), 8192, SpecialErrorUnknown, "trailing-page-id"},
		{"gist page id in 24 byte special", pagetest.New(8192).Special(special24(format.GistPageID)).Bytes(), 8192, SpecialErrorUnknown, "trailing-page-id"},
		{"cycle id in 24 byte special", pagetest.New(8192).Special(special24(7)).Bytes(), 8192, SpecialErrorUnknown, "trailing-page-id"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			kind, rule := classify(tc.page, tc.size)
			require.Equal(t, tc.kind, kind)
			require.Equal(t, tc.rule, rule)
		})
	}
}

func TestClassifyIsPure(t *testing.T) {
	p := pagetest.New(8192).Special(special16(format.HashPageID)).Bytes()
	orig := bytes.Clone(p)
	first := Classify(p, 8192)
	for i := 0; i < 3; i++ {
		require.Equal(t, first, Classify(p, 8192))
	}
	require.Equal(t, orig, p)
}

func TestHeaderCheck(t *testing.T) {
	valid, err := ParseHeader(pagetest.New(8192).Special(special16(0)).Bytes())
	require.NoError(t, err)
	require.Empty(t, valid.Check(8192))

	tests := []struct {
		name   string
		mutate func(h *Header)
	}{
		{"layout version", func(h *Header) { h.PageSizeVersion = 0x2003 }},
		{"lower below header", func(h *Header) { h.Lower = 12 }},
		{"upper below lower", func(h *Header) { h.Lower, h.Upper = 400, 300 }},
		{"upper above special", func(h *Header) { h.Upper = 8190 }},
		{"special past block", func(h *Header) { h.Special = 9000; h.Upper = 9000 }},
		{"lower past block", func(h *Header) { h.Lower = 9000 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := valid
			tc.mutate(&h)
			errs := h.Check(8192)
			require.NotEmpty(t, errs)
			for _, err := range errs {
				require.ErrorIs(t, err, format.ErrHeaderInvariant)
			}
		})
	}
}

func TestBlockSize(t *testing.T) {
	size, err := BlockSize(pagetest.New(1024).Bytes())
	require.NoError(t, err)
	require.Equal(t, 1024, size)

	bad := pagetest.New(8192).Bytes()
	binary.LittleEndian.PutUint16(bad[18:], 0x3004)
	size, err = BlockSize(bad)
	require.ErrorIs(t, err, format.ErrHeaderInvariant)
	require.Equal(t, format.DefaultBlockSize, size)

	_, err = BlockSize(make([]byte, 10))
	require.ErrorIs(t, err, format.ErrPrematureEOF)
}

func TestParseLSN(t *testing.T) {
	lsn, err := ParseLSN("16/B374D848")
	require.NoError(t, err)
	require.Equal(t, LSN(0x16_B374D848), lsn)
	require.Equal(t, "16/B374D848", lsn.String())

	for _, in := range []string{"", "16", "x/1", "1/100000000"} {
		_, err := ParseLSN(in)
		require.ErrorIs(t, err, format.ErrOptionSyntax, in)
	}
}

func TestVerifyChecksum(t *testing.T) {
	p := pagetest.New(8192).LSN(0x1_00000028).Bytes()
	binary.LittleEndian.PutUint16(p[8:], checksum.Page(p, 7))
	h, err := ParseHeader(p)
	require.NoError(t, err)
	require.NoError(t, VerifyChecksum(p, h, 7))
	require.ErrorIs(t, VerifyChecksum(p, h, 8), format.ErrChecksumMismatch)

	p[100] ^= 0x01
	require.ErrorIs(t, VerifyChecksum(p, h, 7), format.ErrChecksumMismatch)
}

func TestEmitHeader(t *testing.T) {
	h := pagetest.NewHarness()
	data := pagetest.New(8192).LSN(0x2_0000_0010).Flags(format.PDAllVisible).Bytes()
	hdr, err := ParseHeader(data)
	require.NoError(t, err)
	EmitHeader(h.Block(0, data), hdr)
	require.Equal(t, []string{
		"block 0 LSN: 2/00000010",
		"block 0 checksum: 0x0000",
		"block 0 pd_flags - PD_ALL_VISIBLE",
		"block 0 pd_lower: 24",
		"block 0 pd_upper: 8192",
		"block 0 pd_special: 0x2000",
		"block 0 pd_pagesize_version - size: 8192, version: 4",
		"block 0 pd_prune_xid: 0",
	}, h.Labels())
	var total int64
	for _, a := range h.Sink.Annotations {
		total += a.Len()
	}
	require.Equal(t, int64(format.PageHeaderSize), total)
}

func TestEmitLinePointers(t *testing.T) {
	assert := require.New(t)
	b := pagetest.New(8192)
	b.AddItem(make([]byte, 32), format.LPNormal) // 1
	b.AddLinePointer(0, 0, format.LPUnused)      // 2
	b.AddLinePointer(0, 12, format.LPRedirect)   // 3
	b.AddLinePointer(8000, 0, format.LPNormal)   // 4
	b.AddLinePointer(8100, 400, format.LPNormal) // 5
	b.AddLinePointer(8000, 0, format.LPDead)     // 6
	b.AddItem(make([]byte, 24), format.LPNormal) // 7

	h := pagetest.NewHarness()
	data := b.Bytes()
	hdr, err := ParseHeader(data)
	assert.NoError(err)
	items := EmitLinePointers(h.Block(0, data), hdr)

	assert.Len(h.Sink.Annotations, 7)
	assert.Equal("(0,1) lp_len: 32, lp_off: 8160, lp_flags: LP_NORMAL", h.Sink.Annotations[0].Label)
	assert.Len(items, 2)
	assert.Equal(uint16(7), items[0].Offnum)
	assert.Equal(uint16(1), items[1].Offnum)
	assert.True(h.HasError(format.ErrItemPointerInvalid))
	assert.True(h.HasError(format.ErrItemOutOfBounds))
	assert.Len(h.Errors(), 3)
}

func TestEmitBTreeMeta(t *testing.T) {
	s := make([]byte, 16)
	binary.LittleEndian.PutUint16(s[12:], format.BTPMeta)
	b := pagetest.New(8192).Special(s)
	b.Put32(24, format.BTreeMagic)
	b.Put32(28, 4)
	data := b.SetLower(72).Bytes()

	for _, tc := range []struct {
		v      format.Version
		fields int
	}{
		{format.Version10, 6},
		{format.Version12, 9},
		{format.Version16, 10},
	} {
		t.Run(tc.v.String(), func(t *testing.T) {
			h := pagetest.NewHarness()
			sp, err := ParseSpecial(data, SpecialBTree, 8176)
			require.NoError(t, err)
			require.True(t, IsMeta(sp))
			hdr, _ := ParseHeader(data)
			EmitMeta(h.Block(0, data), sp, hdr, tc.v.Capabilities())
			require.Len(t, h.Sink.Annotations, tc.fields)
			require.Equal(t, "block 0 btm_magic: 0x053162", h.Sink.Annotations[0].Label)
			require.Empty(t, h.Errors())
		})
	}
}

func TestEmitSpecialBTree(t *testing.T) {
	s := make([]byte, 16)
	binary.LittleEndian.PutUint32(s[4:], 9)
	binary.LittleEndian.PutUint32(s[8:], 1)
	binary.LittleEndian.PutUint16(s[12:], format.BTPRoot)
	data := pagetest.New(8192).Special(s).Bytes()
	sp, err := ParseSpecial(data, Classify(data, 8192), 8176)
	require.NoError(t, err)

	h := pagetest.NewHarness()
	EmitSpecial(h.Block(0, data), sp, format.Version16.Capabilities())
	require.Equal(t, []string{
		"block 0 btpo_prev: 0",
		"block 0 btpo_next: 9",
		"block 0 btpo_level: 1",
		"block 0 btpo_flags - BTP_ROOT",
		"block 0 btpo_cycleid: 0",
	}, h.Labels())
}
