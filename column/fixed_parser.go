// fixed_parser.go - Parser for fixed-length and null-terminated attributes
package column

import (
	"bytes"
	"fmt"

	"github.com/wilhasse/go-pghexedit/format"
	"github.com/wilhasse/go-pghexedit/schema"
)

// FixedParser handles attributes with a positive attlen.
type FixedParser struct {
	BaseParser
}

func (p *FixedParser) Span(input []byte, cursor int, attr *schema.Attribute) (Datum, error) {
	start := attr.Align.Apply(cursor)
	if err := p.fits(input, start, attr.Length); err != nil {
		return Datum{Start: start}, err
	}
	return Datum{Start: start, Len: attr.Length}, nil
}

// CStringParser handles attlen -2 values. They are never padded.
type CStringParser struct {
	BaseParser
}

func (p *CStringParser) Span(input []byte, cursor int, attr *schema.Attribute) (Datum, error) {
	if cursor > len(input) {
		return Datum{Start: cursor}, fmt.Errorf("%w: cstring starts past payload", format.ErrAttributeOverflow)
	}
	n := bytes.IndexByte(input[cursor:], 0)
	if n < 0 {
		return Datum{Start: cursor}, fmt.Errorf("%w: unterminated cstring at payload offset %d",
			format.ErrAttributeOverflow, cursor)
	}
	return Datum{Start: cursor, Len: n + 1}, nil
}
