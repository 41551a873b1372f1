// iterator.go - Page body traversal and per-item dispatch
package record

import (
	"github.com/wilhasse/go-pghexedit/format"
	"github.com/wilhasse/go-pghexedit/page"
)

// Body annotates everything between the page header and the special
// section. Metapages, posting tree pages, BRIN revmap pages and hash bitmap
// pages have no line pointer array; all other pages are walked item by item
// in physical order.
func (p *Page) Body() {
	s := p.Special
	switch {
	case page.IsMeta(s):
		page.EmitMeta(p.Block, s, p.Header, p.Caps)
	case s.Kind == page.SpecialGin && s.Gin.Has(format.GinData):
		p.DecodeGinDataPage()
	case s.Kind == page.SpecialBrin && s.Brin.PageType == format.BrinPageTypeRevmap:
		p.DecodeRevmap()
	case s.Kind == page.SpecialHash && s.Hash.Flags&format.LHBitmapPage != 0:
		p.DecodeHashBitmap()
	default:
		p.Items(page.EmitLinePointers(p.Block, p.Header))
	}
}

// Items decodes the storage behind each line pointer.
func (p *Page) Items(items []page.LinePointer) {
	for _, lp := range items {
		p.Item(lp)
	}
}

// Item decodes one item according to the page's access method.
func (p *Page) Item(lp page.LinePointer) {
	switch p.Special.Kind {
	case page.SpecialNone, page.SpecialSequence:
		p.DecodeHeapTuple(lp)
	case page.SpecialSpGist:
		p.DecodeSpGistTuple(lp)
	case page.SpecialBrin:
		p.DecodeBrinTuple(lp)
	default:
		p.DecodeIndexTuple(lp)
	}
}
