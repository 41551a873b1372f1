// varlena_parser.go - Parser for variable-length (attlen -1) attributes
package column

import (
	"fmt"

	"github.com/pierrec/lz4/v4"

	"github.com/wilhasse/go-pghexedit/format"
	"github.com/wilhasse/go-pghexedit/schema"
)

// VarlenaForm is the header variant of a varlena datum.
type VarlenaForm int

const (
	FormNone VarlenaForm = iota
	FormShort
	FormExternal
	FormUncompressed
	FormCompressed
)

func (f VarlenaForm) String() string {
	switch f {
	case FormShort:
		return "1B short"
	case FormExternal:
		return "1B external"
	case FormUncompressed:
		return "4B uncompressed"
	case FormCompressed:
		return "4B compressed inline"
	}
	return ""
}

// vartag payload sizes of external datums
const (
	vartagIndirect   = 1
	vartagExpandedRO = 2
	vartagExpandedRW = 3
	vartagOnDisk     = 18

	varhdrszExternal   = 2
	varhdrszCompressed = 8 // 4B header + va_tcinfo
)

// compression methods stored in the top bits of va_tcinfo
const (
	MethodPGLZ = 0
	MethodLZ4  = 1
)

// VarlenaParser handles the 1-byte and 4-byte varlena headers as laid out on
// little-endian machines.
type VarlenaParser struct {
	BaseParser
}

func (p *VarlenaParser) Span(input []byte, cursor int, attr *schema.Attribute) (Datum, error) {
	start := cursor
	// A non-zero byte cannot be padding, so short varlenas are not aligned.
	if b, err := p.readUint8(input, cursor); err != nil || b == 0 {
		start = attr.Align.Apply(cursor)
	}
	b0, err := p.readUint8(input, start)
	if err != nil {
		return Datum{Start: start}, fmt.Errorf("%w: varlena header at payload offset %d", format.ErrAttributeOverflow, start)
	}

	d := Datum{Start: start}
	switch {
	case b0 == 0x01:
		tag, err := p.readUint8(input, start+1)
		if err != nil {
			return d, fmt.Errorf("%w: TOAST pointer tag at payload offset %d", format.ErrAttributeOverflow, start+1)
		}
		size, ok := vartagSize(tag)
		if !ok {
			return d, fmt.Errorf("%w: unknown vartag %d at payload offset %d", format.ErrAttributeOverflow, tag, start)
		}
		d.Form, d.HeaderLen, d.Len = FormExternal, varhdrszExternal, varhdrszExternal+size
	case b0&0x01 == 0x01:
		d.Form, d.HeaderLen, d.Len = FormShort, 1, int(b0>>1)
	default:
		word, err := p.readUint32(input, start)
		if err != nil {
			return d, fmt.Errorf("%w: 4B varlena header at payload offset %d", format.ErrAttributeOverflow, start)
		}
		d.Len = int(word >> 2)
		d.Form, d.HeaderLen = FormUncompressed, 4
		if b0&0x03 == 0x02 {
			d.Form, d.HeaderLen = FormCompressed, varhdrszCompressed
			if d.TCInfo, err = p.readUint32(input, start+4); err != nil {
				return d, fmt.Errorf("%w: va_tcinfo at payload offset %d", format.ErrAttributeOverflow, start+4)
			}
		}
	}
	if d.Len < d.HeaderLen {
		return d, fmt.Errorf("%w: varlena length %d shorter than its %d byte header",
			format.ErrAttributeOverflow, d.Len, d.HeaderLen)
	}
	if err := p.fits(input, start, d.Len); err != nil {
		return d, err
	}
	return d, nil
}

func vartagSize(tag uint8) (int, bool) {
	switch tag {
	case vartagIndirect, vartagExpandedRO, vartagExpandedRW:
		return 8, true
	case vartagOnDisk:
		return 16, true
	}
	return 0, false
}

// RawSize and Method decode va_tcinfo.
func (d Datum) RawSize() int { return int(d.TCInfo & 0x3FFFFFFF) }
func (d Datum) Method() int  { return int(d.TCInfo >> 30) }

func MethodName(m int) string {
	switch m {
	case MethodPGLZ:
		return "pglz"
	case MethodLZ4:
		return "lz4"
	}
	return fmt.Sprintf("unknown (%d)", m)
}

// lz4 cannot expand input by more than this factor.
const lz4MaxRatio = 255

// VerifyCompressed decompresses an lz4 datum and checks that it yields the
// recorded raw size. Other methods are not checked.
func VerifyCompressed(payload []byte, d Datum) error {
	if d.Form != FormCompressed || d.Method() != MethodLZ4 {
		return nil
	}
	src := payload[d.Data() : d.Start+d.Len]
	raw := d.RawSize()
	if raw > len(src)*lz4MaxRatio+16 {
		return fmt.Errorf("%w: lz4 datum of %d bytes claims raw size %d", format.ErrCompressedDatum, len(src), raw)
	}
	dst := make([]byte, raw)
	n, err := lz4.UncompressBlock(src, dst)
	if err != nil {
		return fmt.Errorf("%w: lz4: %v", format.ErrCompressedDatum, err)
	}
	if n != raw {
		return fmt.Errorf("%w: lz4 datum decompressed to %d bytes, expected %d", format.ErrCompressedDatum, n, raw)
	}
	return nil
}
