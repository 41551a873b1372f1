// walker.go - Walk a tuple payload attribute by attribute
package column

import (
	"fmt"

	"github.com/wilhasse/go-pghexedit/emit"
	"github.com/wilhasse/go-pghexedit/format"
	"github.com/wilhasse/go-pghexedit/schema"
)

// Tuple locates the user data of one item on the page.
type Tuple struct {
	Offnum uint16
	Start  int    // page offset of the payload
	Len    int    // payload length
	Nulls  []byte // null bitmap, nil when the tuple carries none
	Natts  int    // attributes physically present, -1 when unknown
}

// IsNull reports whether attribute i is null. A set bit means not null.
func (t Tuple) IsNull(i int) bool {
	if t.Nulls == nil || i/8 >= len(t.Nulls) {
		return false
	}
	return t.Nulls[i/8]&(1<<(i%8)) == 0
}

// Walker annotates payloads using operator-supplied descriptors.
type Walker struct {
	attrs []schema.Attribute
}

func NewWalker(attrs []schema.Attribute) *Walker {
	return &Walker{attrs: attrs}
}

// Described reports whether any descriptors are configured.
func (w *Walker) Described() bool { return w.Len() > 0 }

// Len is the number of descriptors. A nil Walker has none.
func (w *Walker) Len() int {
	if w == nil {
		return 0
	}
	return len(w.attrs)
}

// Walk annotates every attribute of t and returns the payload bytes consumed.
// Without descriptors the payload is a single opaque tag.
func (w *Walker) Walk(b *emit.Block, t Tuple) int {
	if t.Len <= 0 {
		return 0
	}
	if !w.Described() {
		b.ItemTag(t.Offnum, t.Start, t.Len, format.White, "contents")
		return t.Len
	}
	payload := b.Data[t.Start : t.Start+t.Len]

	natts := t.Natts
	if natts < 0 {
		natts = len(w.attrs)
	}
	if natts > len(w.attrs) {
		b.Errorf(t.Start, format.ErrAttributeOverflow, "(%d,%d) tuple has %d attributes, only %d described",
			b.Number, t.Offnum, natts, len(w.attrs))
		natts = len(w.attrs)
	}

	cursor := 0
	for i := 0; i < natts; i++ {
		attr := &w.attrs[i]
		if t.IsNull(i) {
			continue
		}
		d, err := GetParser(attr).Span(payload, cursor, attr)
		if err != nil {
			b.Report(t.Start+d.Start, fmt.Errorf("(%d,%d) attribute %q: %w", b.Number, t.Offnum, attr.Name, err))
			return cursor
		}
		w.emit(b, t, attr, payload, d)
		cursor = d.Start + d.Len
	}
	return cursor
}

func (w *Walker) emit(b *emit.Block, t Tuple, attr *schema.Attribute, payload []byte, d Datum) {
	at := t.Start + d.Start
	switch d.Form {
	case FormNone:
		b.ItemTag(t.Offnum, at, d.Len, attr.Color, "%s", attr.Name)
	case FormExternal:
		b.ItemTag(t.Offnum, at, d.HeaderLen, attr.Color, "%s varlena header - %s, tag %d",
			attr.Name, d.Form, payload[d.Start+1])
		b.ItemTag(t.Offnum, at+d.HeaderLen, d.Len-d.HeaderLen, attr.Color, "%s TOAST pointer", attr.Name)
	case FormCompressed:
		b.ItemTag(t.Offnum, at, 4, attr.Color, "%s varlena header - %s, %d bytes", attr.Name, d.Form, d.Len)
		b.ItemTag(t.Offnum, at+4, 4, attr.Color, "%s va_tcinfo - rawsize: %d, method: %s",
			attr.Name, d.RawSize(), MethodName(d.Method()))
		b.ItemTag(t.Offnum, at+d.HeaderLen, d.Len-d.HeaderLen, attr.Color, "%s (compressed)", attr.Name)
		if err := VerifyCompressed(payload, d); err != nil {
			b.Report(at, fmt.Errorf("(%d,%d) attribute %q: %w", b.Number, t.Offnum, attr.Name, err))
		}
	default:
		b.ItemTag(t.Offnum, at, d.HeaderLen, attr.Color, "%s varlena header - %s, %d bytes", attr.Name, d.Form, d.Len)
		b.ItemTag(t.Offnum, at+d.HeaderLen, d.Len-d.HeaderLen, attr.Color, "%s", attr.Name)
	}
}
