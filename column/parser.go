// parser.go - Attribute extent parser interface and base implementation
package column

import (
	"fmt"

	"github.com/wilhasse/go-pghexedit/format"
	"github.com/wilhasse/go-pghexedit/schema"
)

// Datum is the physical extent of one attribute value within a payload.
type Datum struct {
	Start     int // payload offset after alignment
	Len       int // total bytes, header included
	HeaderLen int // varlena header bytes, 0 for other classes
	Form      VarlenaForm
	TCInfo    uint32 // va_tcinfo of a compressed inline varlena
}

// Data is the payload offset of the value bytes past any header.
func (d Datum) Data() int { return d.Start + d.HeaderLen }

// Parser measures one attribute starting at cursor.
type Parser interface {
	Span(payload []byte, cursor int, attr *schema.Attribute) (Datum, error)
}

// BaseParser provides common functionality for attribute parsers
type BaseParser struct{}

func (p *BaseParser) readUint8(input []byte, offset int) (uint8, error) {
	return format.U8(input, offset)
}

func (p *BaseParser) readUint32(input []byte, offset int) (uint32, error) {
	return format.Le32(input, offset)
}

// fits checks that length bytes starting at offset lie inside the payload.
func (p *BaseParser) fits(input []byte, offset, length int) error {
	if offset+length > len(input) {
		return fmt.Errorf("%w: %d bytes at payload offset %d exceed payload of %d bytes",
			format.ErrAttributeOverflow, length, offset, len(input))
	}
	return nil
}
