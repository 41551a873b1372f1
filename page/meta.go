// meta.go - Access method metapages
package page

import (
	"math"

	"github.com/wilhasse/go-pghexedit/emit"
	"github.com/wilhasse/go-pghexedit/format"
)

// IsMeta reports whether the special section marks a metapage.
func IsMeta(s Special) bool {
	switch s.Kind {
	case SpecialBTree:
		return s.BTree.IsMeta()
	case SpecialHash:
		return s.Hash.Flags&format.LHMetaPage != 0
	case SpecialGin:
		return s.Gin.Has(format.GinMeta)
	case SpecialSpGist:
		return s.SpGist.Flags&format.SpGistMeta != 0
	case SpecialBrin:
		return s.Brin.PageType == format.BrinPageTypeMeta
	}
	return false
}

// EmitMeta annotates the metapage contents that follow the page header.
func EmitMeta(b *emit.Block, s Special, h Header, caps format.Capabilities) {
	c := format.MaxAlign(format.PageHeaderSize)
	switch s.Kind {
	case SpecialBTree:
		emitBTreeMeta(b, c, caps)
	case SpecialGin:
		emitGinMeta(b, c)
	case SpecialBrin:
		f := fields{b: b, off: c}
		f.u32("brinMagic: 0x%08X")
		f.u32("brinVersion: %d")
		f.u32("pagesPerRange: %d")
		f.u32("lastRevmapPage: %d")
	default:
		if int(h.Lower) > c {
			b.Tag(c, int(h.Lower)-c, format.Pink, "%s metapage contents", s.Kind)
		}
	}
}

func emitBTreeMeta(b *emit.Block, c int, caps format.Capabilities) {
	f := fields{b: b, off: c}
	f.u32("btm_magic: 0x%06X")
	f.u32("btm_version: %d")
	f.u32("btm_root: %d")
	f.u32("btm_level: %d")
	f.u32("btm_fastroot: %d")
	f.u32("btm_fastlevel: %d")
	if !caps.BTreeMetaCleanup {
		return
	}
	if caps.BTreeFullXID {
		f.u32("btm_last_cleanup_num_delpages: %d")
	} else {
		f.u32("btm_oldest_btpo_xact: %d")
	}
	f.pad(8)
	f.f64("btm_last_cleanup_num_heap_tuples: %g")
	if caps.BTreeAllEqualImage {
		f.u8("btm_allequalimage: %d")
	}
}

func emitGinMeta(b *emit.Block, c int) {
	f := fields{b: b, off: c}
	f.u32("head: %d")
	f.u32("tail: %d")
	f.u32("tailFreeSize: %d")
	f.u32("nPendingPages: %d")
	f.u64("nPendingHeapTuples: %d")
	f.u32("nTotalPages: %d")
	f.u32("nEntryPages: %d")
	f.u32("nDataPages: %d")
	f.pad(8)
	f.u64("nEntries: %d")
	f.u32("ginVersion: %d")
}

// fields annotates consecutive metapage fields, stopping at the first read
// past the available bytes.
type fields struct {
	b   *emit.Block
	off int
	eof bool
}

func (f *fields) u8(label string) {
	if v, err := format.U8(f.b.Data, f.off); f.ok(err) {
		f.b.Tag(f.off, 1, format.Pink, label, v)
		f.off++
	}
}

func (f *fields) u32(label string) {
	if v, err := format.Le32(f.b.Data, f.off); f.ok(err) {
		f.b.Tag(f.off, 4, format.Pink, label, v)
		f.off += 4
	}
}

func (f *fields) u64(label string) {
	if v, err := format.Le64(f.b.Data, f.off); f.ok(err) {
		f.b.Tag(f.off, 8, format.Pink, label, int64(v))
		f.off += 8
	}
}

func (f *fields) f64(label string) {
	if v, err := format.Le64(f.b.Data, f.off); f.ok(err) {
		f.b.Tag(f.off, 8, format.Pink, label, math.Float64frombits(v))
		f.off += 8
	}
}

func (f *fields) pad(align int) {
	next := (f.off + align - 1) &^ (align - 1)
	if next > f.off && !f.eof {
		f.b.Tag(f.off, next-f.off, format.Pink, "alignment padding")
	}
	f.off = next
}

func (f *fields) ok(err error) bool {
	if f.eof {
		return false
	}
	if err != nil {
		f.eof = true
		f.b.Errorf(f.off, format.ErrPrematureEOF, "metapage truncated: %v", err)
		return false
	}
	return true
}
