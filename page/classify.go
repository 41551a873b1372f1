// classify.go - Special section kind detection
package page

import (
	"github.com/wilhasse/go-pghexedit/format"
)

// SpecialKind names the access method that owns a page, as far as the
// special section tells.
type SpecialKind int

const (
	SpecialNone SpecialKind = iota
	SpecialSequence
	SpecialBTree
	SpecialHash
	SpecialGist
	SpecialGin
	SpecialSpGist
	SpecialBrin
	SpecialErrorUnknown
	SpecialErrorBoundary
)

func (k SpecialKind) String() string {
	switch k {
	case SpecialNone:
		return "none"
	case SpecialSequence:
		return "sequence"
	case SpecialBTree:
		return "btree"
	case SpecialHash:
		return "hash"
	case SpecialGist:
		return "gist"
	case SpecialGin:
		return "gin"
	case SpecialSpGist:
		return "spgist"
	case SpecialBrin:
		return "brin"
	case SpecialErrorUnknown:
		return "unknown"
	case SpecialErrorBoundary:
		return "boundary error"
	}
	return "invalid"
}

// IsError reports the two kinds that stand for a failed classification.
func (k SpecialKind) IsError() bool {
	return k == SpecialErrorUnknown || k == SpecialErrorBoundary
}

// classifyInput is what every rule sees.
type classifyInput struct {
	page      []byte
	blockSize int
	special   int
	size      int  // blockSize - special
	full      bool // the whole block is available
}

func (in classifyInput) trailing16() uint16 {
	v, _ := format.Le16(in.page, in.blockSize-2)
	return v
}

type rule struct {
	name  string
	match func(classifyInput) (SpecialKind, bool)
}

// rules are tried in order and the first match wins. The order is part of the
// contract: several kinds share the same special section size and only the
// trailing bytes tell them apart.
var rules = []rule{
	{"special-offset", func(in classifyInput) (SpecialKind, bool) {
		if in.special == 0 || in.special > in.blockSize || in.special > len(in.page) {
			return SpecialErrorBoundary, true
		}
		return 0, false
	}},
	{"no-special", func(in classifyInput) (SpecialKind, bool) {
		return SpecialNone, in.size == 0
	}},
	{"maxalign-4", func(in classifyInput) (SpecialKind, bool) {
		if in.size != format.MaxAlign(4) {
			return 0, false
		}
		if !in.full {
			return SpecialErrorUnknown, true
		}
		switch {
		case isSequence(in):
			return SpecialSequence, true
		case in.trailing16() == format.SpGistPageID:
			return SpecialSpGist, true
		case isBrin(in):
			return SpecialBrin, true
		}
		return SpecialGin, true
	}},
	{"spgist", func(in classifyInput) (SpecialKind, bool) {
		return SpecialSpGist, in.size == format.MaxAlign(format.SpGistOpaqueSize) &&
			in.full && in.trailing16() == format.SpGistPageID
	}},
	{"brin", func(in classifyInput) (SpecialKind, bool) {
		return SpecialBrin, in.size == format.MaxAlign(format.BrinOpaqueSize) && in.full && isBrin(in)
	}},
	{"gin", func(in classifyInput) (SpecialKind, bool) {
		return SpecialGin, in.size == format.MaxAlign(format.GinOpaqueSize)
	}},
	{"trailing-page-id", func(in classifyInput) (SpecialKind, bool) {
		if in.size <= 2 || !in.full {
			return 0, false
		}
		id := in.trailing16()
		switch {
		case id <= format.MaxBTreeCycleID && in.size == format.MaxAlign(format.BTreeOpaqueSize):
			return SpecialBTree, true
		case id == format.HashPageID && in.size == format.MaxAlign(format.HashOpaqueSize):
			return SpecialHash, true
		case id == format.GistPageID && in.size == format.MaxAlign(format.GistOpaqueSize):
			return SpecialGist, true
		}
		return SpecialErrorUnknown, true
	}},
}

func isSequence(in classifyInput) bool {
	magic, err := format.Le32(in.page, in.special)
	return err == nil && magic == format.SequenceMagic
}

// isBrin checks the page type tag in the last word of the BRIN special space.
// The metapage additionally has to carry the BRIN magic.
func isBrin(in classifyInput) bool {
	typ, err := format.Le16(in.page, in.special+6)
	if err != nil {
		return false
	}
	switch typ {
	case format.BrinPageTypeRevmap, format.BrinPageTypeRegular:
		return true
	case format.BrinPageTypeMeta:
		magic, err := format.Le32(in.page, format.MaxAlign(format.PageHeaderSize))
		return err == nil && magic == format.BrinMetaMagic
	}
	return false
}

// Classify determines the special section kind of a page. p holds the bytes
// read, which may be fewer than blockSize.
func Classify(p []byte, blockSize int) SpecialKind {
	kind, _ := classify(p, blockSize)
	return kind
}

// classify also returns the name of the deciding rule.
func classify(p []byte, blockSize int) (SpecialKind, string) {
	if len(p) <= format.PageHeaderSize {
		return SpecialErrorBoundary, "partial-header"
	}
	special, _ := format.Le16(p, 16)
	in := classifyInput{
		page:      p,
		blockSize: blockSize,
		special:   int(special),
		size:      blockSize - int(special),
		full:      len(p) >= blockSize,
	}
	for _, r := range rules {
		if kind, ok := r.match(in); ok {
			return kind, r.name
		}
	}
	return SpecialErrorUnknown, "fallback"
}
