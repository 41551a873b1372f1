// special.go - Per access method special section parsing and annotation
package page

import (
	"fmt"

	"github.com/wilhasse/go-pghexedit/emit"
	"github.com/wilhasse/go-pghexedit/format"
)

// BTreeOpaque is BTPageOpaqueData.
type BTreeOpaque struct {
	Prev    uint32
	Next    uint32
	Level   uint32 // btpo_level, or btpo.xact on deleted pages before v14
	Flags   uint16
	CycleID uint16
}

func (o BTreeOpaque) IsLeaf() bool { return o.Flags&format.BTPLeaf != 0 }
func (o BTreeOpaque) IsRoot() bool { return o.Flags&format.BTPRoot != 0 }
func (o BTreeOpaque) IsMeta() bool { return o.Flags&format.BTPMeta != 0 }

// HashOpaque is HashPageOpaqueData.
type HashOpaque struct {
	Prev   uint32
	Next   uint32
	Bucket uint32
	Flags  uint16
	PageID uint16
}

// GistOpaque is GISTPageOpaqueData.
type GistOpaque struct {
	NSN       LSN
	Rightlink uint32
	Flags     uint16
	PageID    uint16
}

// GinOpaque is GinPageOpaqueData.
type GinOpaque struct {
	Rightlink uint32
	Maxoff    uint16
	Flags     uint16
}

func (o GinOpaque) Has(flag uint16) bool { return o.Flags&flag != 0 }

// SpGistOpaque is SpGistPageOpaqueData.
type SpGistOpaque struct {
	Flags        uint16
	NRedirection uint16
	NPlaceholder uint16
	PageID       uint16
}

func (o SpGistOpaque) IsLeaf() bool { return o.Flags&format.SpGistLeaf != 0 }

// BrinOpaque is BrinSpecialSpace.
type BrinOpaque struct {
	Flags    uint16
	PageType uint16
}

// Special is the parsed special section of one page. Only the field that
// matches Kind is populated.
type Special struct {
	Kind     SpecialKind
	Offset   int
	BTree    BTreeOpaque
	Hash     HashOpaque
	Gist     GistOpaque
	Gin      GinOpaque
	SpGist   SpGistOpaque
	Brin     BrinOpaque
	SeqMagic uint32
}

// ParseSpecial reads the special section at offset for a classified page.
func ParseSpecial(p []byte, kind SpecialKind, offset int) (Special, error) {
	s := Special{Kind: kind, Offset: offset}
	need := map[SpecialKind]int{
		SpecialSequence: format.SequenceOpaqueSize,
		SpecialBTree:    format.BTreeOpaqueSize,
		SpecialHash:     format.HashOpaqueSize,
		SpecialGist:     format.GistOpaqueSize,
		SpecialGin:      format.GinOpaqueSize,
		SpecialSpGist:   format.SpGistOpaqueSize,
		SpecialBrin:     format.BrinOpaqueSize,
	}[kind]
	if need == 0 {
		return s, nil
	}
	if _, err := format.Span(p, offset, need); err != nil {
		return s, fmt.Errorf("%s special section: %w", kind, err)
	}
	u16 := func(off int) uint16 { v, _ := format.Le16(p, offset+off); return v }
	u32 := func(off int) uint32 { v, _ := format.Le32(p, offset+off); return v }

	switch kind {
	case SpecialSequence:
		s.SeqMagic = u32(0)
	case SpecialBTree:
		s.BTree = BTreeOpaque{Prev: u32(0), Next: u32(4), Level: u32(8), Flags: u16(12), CycleID: u16(14)}
	case SpecialHash:
		s.Hash = HashOpaque{Prev: u32(0), Next: u32(4), Bucket: u32(8), Flags: u16(12), PageID: u16(14)}
	case SpecialGist:
		s.Gist = GistOpaque{NSN: LSN(uint64(u32(0))<<32 | uint64(u32(4))), Rightlink: u32(8), Flags: u16(12), PageID: u16(14)}
	case SpecialGin:
		s.Gin = GinOpaque{Rightlink: u32(0), Maxoff: u16(4), Flags: u16(6)}
	case SpecialSpGist:
		s.SpGist = SpGistOpaque{Flags: u16(0), NRedirection: u16(2), NPlaceholder: u16(4), PageID: u16(6)}
	case SpecialBrin:
		s.Brin = BrinOpaque{Flags: u16(4), PageType: u16(6)}
	}
	return s, nil
}

// EmitSpecial annotates the special section fields.
func EmitSpecial(b *emit.Block, s Special, caps format.Capabilities) {
	off := s.Offset
	switch s.Kind {
	case SpecialSequence:
		b.Tag(off, 4, format.Black, "sequence magic: 0x%04X", s.SeqMagic)
		b.Tag(off+4, b.Size-off-4, format.Black, "special section padding")
	case SpecialBTree:
		o := s.BTree
		b.Tag(off, 4, format.Black, "btpo_prev: %d", o.Prev)
		b.Tag(off+4, 4, format.Black, "btpo_next: %d", o.Next)
		switch {
		case caps.BTreeFullXID:
			b.Tag(off+8, 4, format.Black, "btpo_level: %d", o.Level)
		case o.Flags&format.BTPDeleted != 0:
			b.Tag(off+8, 4, format.Black, "btpo.xact: %d", o.Level)
		default:
			b.Tag(off+8, 4, format.Black, "btpo.level: %d", o.Level)
		}
		b.Tag(off+12, 2, format.Black, "btpo_flags - %s", BTreeFlagString(o.Flags))
		b.Tag(off+14, 2, format.Black, "btpo_cycleid: %d", o.CycleID)
	case SpecialHash:
		o := s.Hash
		b.Tag(off, 4, format.Black, "hasho_prevblkno: %d", o.Prev)
		b.Tag(off+4, 4, format.Black, "hasho_nextblkno: %d", o.Next)
		b.Tag(off+8, 4, format.Black, "hasho_bucket: %d", o.Bucket)
		b.Tag(off+12, 2, format.Black, "hasho_flag - %s", HashFlagString(o.Flags))
		b.Tag(off+14, 2, format.Black, "hasho_page_id: 0x%04X", o.PageID)
	case SpecialGist:
		o := s.Gist
		b.Tag(off, 8, format.Black, "nsn: %s", o.NSN)
		b.Tag(off+8, 4, format.Black, "rightlink: %d", o.Rightlink)
		b.Tag(off+12, 2, format.Black, "flags - %s", GistFlagString(o.Flags))
		b.Tag(off+14, 2, format.Black, "gist_page_id: 0x%04X", o.PageID)
	case SpecialGin:
		o := s.Gin
		b.Tag(off, 4, format.Black, "rightlink: %d", o.Rightlink)
		b.Tag(off+4, 2, format.Black, "maxoff: %d", o.Maxoff)
		b.Tag(off+6, 2, format.Black, "flags - %s", GinFlagString(o.Flags))
	case SpecialSpGist:
		o := s.SpGist
		b.Tag(off, 2, format.Black, "flags - %s", SpGistFlagString(o.Flags))
		b.Tag(off+2, 2, format.Black, "nRedirection: %d", o.NRedirection)
		b.Tag(off+4, 2, format.Black, "nPlaceholder: %d", o.NPlaceholder)
		b.Tag(off+6, 2, format.Black, "spgist_page_id: 0x%04X", o.PageID)
	case SpecialBrin:
		o := s.Brin
		b.Tag(off, 4, format.Black, "vector[0-1] unused")
		b.Tag(off+4, 2, format.Black, "flags - %s", BrinFlagString(o.Flags))
		b.Tag(off+6, 2, format.Black, "type - %s", BrinPageTypeString(o.PageType))
	}
}

func BTreeFlagString(flags uint16) string {
	return FlagNames(flags, []FlagName{
		{format.BTPLeaf, "BTP_LEAF"},
		{format.BTPRoot, "BTP_ROOT"},
		{format.BTPDeleted, "BTP_DELETED"},
		{format.BTPMeta, "BTP_META"},
		{format.BTPHalfDead, "BTP_HALF_DEAD"},
		{format.BTPSplitEnd, "BTP_SPLIT_END"},
		{format.BTPHasGarbage, "BTP_HAS_GARBAGE"},
		{format.BTPIncompleteSplit, "BTP_INCOMPLETE_SPLIT"},
		{format.BTPHasFullXID, "BTP_HAS_FULLXID"},
	})
}

func HashFlagString(flags uint16) string {
	return FlagNames(flags, []FlagName{
		{format.LHOverflowPage, "LH_OVERFLOW_PAGE"},
		{format.LHBucketPage, "LH_BUCKET_PAGE"},
		{format.LHBitmapPage, "LH_BITMAP_PAGE"},
		{format.LHMetaPage, "LH_META_PAGE"},
		{format.LHBeingPopulated, "LH_BUCKET_BEING_POPULATED"},
		{format.LHBeingSplit, "LH_BUCKET_BEING_SPLIT"},
		{format.LHBucketNeedsSplitCleanup, "LH_BUCKET_NEEDS_SPLIT_CLEANUP"},
		{format.LHPageHasDeadTuples, "LH_PAGE_HAS_DEAD_TUPLES"},
	})
}

func GistFlagString(flags uint16) string {
	return FlagNames(flags, []FlagName{
		{format.GistLeaf, "F_LEAF"},
		{format.GistDeleted, "F_DELETED"},
		{format.GistTuplesDeleted, "F_TUPLES_DELETED"},
		{format.GistFollowRight, "F_FOLLOW_RIGHT"},
		{format.GistHasGarbage, "F_HAS_GARBAGE"},
	})
}

func GinFlagString(flags uint16) string {
	return FlagNames(flags, []FlagName{
		{format.GinData, "GIN_DATA"},
		{format.GinLeaf, "GIN_LEAF"},
		{format.GinDeleted, "GIN_DELETED"},
		{format.GinMeta, "GIN_META"},
		{format.GinList, "GIN_LIST"},
		{format.GinListFullRow, "GIN_LIST_FULLROW"},
		{format.GinIncompleteSplit, "GIN_INCOMPLETE_SPLIT"},
		{format.GinCompressed, "GIN_COMPRESSED"},
	})
}

func SpGistFlagString(flags uint16) string {
	return FlagNames(flags, []FlagName{
		{format.SpGistMeta, "SPGIST_META"},
		{format.SpGistDeleted, "SPGIST_DELETED"},
		{format.SpGistLeaf, "SPGIST_LEAF"},
		{format.SpGistNulls, "SPGIST_NULLS"},
	})
}

func BrinFlagString(flags uint16) string {
	return FlagNames(flags, []FlagName{{format.BrinEvacuatePage, "BRIN_EVACUATE_PAGE"}})
}

func BrinPageTypeString(typ uint16) string {
	switch typ {
	case format.BrinPageTypeMeta:
		return "BRIN_PAGETYPE_META"
	case format.BrinPageTypeRevmap:
		return "BRIN_PAGETYPE_REVMAP"
	case format.BrinPageTypeRegular:
		return "BRIN_PAGETYPE_REGULAR"
	}
	return fmt.Sprintf("UNKNOWN (0x%04X)", typ)
}

// FlagName names one bit of a flag word.
type FlagName struct {
	Bit  uint16
	Name string
}

// FlagNames joins the names of the bits set in flags, or returns "none".
func FlagNames(flags uint16, table []FlagName) string {
	var names []string
	for _, f := range table {
		if flags&f.Bit != 0 {
			names = append(names, f.Name)
		}
	}
	return joinFlags(names)
}
