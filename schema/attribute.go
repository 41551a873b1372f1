// attribute.go - Attribute descriptors supplied by the operator
package schema

import (
	"errors"
	"fmt"

	"github.com/wilhasse/go-pghexedit/format"
)

// Length classes besides a positive fixed length (pg_attribute.attlen).
const (
	LengthVarlena = -1
	LengthCString = -2
)

var ErrUnsupportedType = errors.New("unsupported column type")

// Attribute describes how one column is laid out in a tuple. Nothing about
// it is inferred from the page.
type Attribute struct {
	Name   string
	Length int
	Align  format.Align
	Color  format.Color
}

func (a Attribute) IsVarlena() bool { return a.Length == LengthVarlena }
func (a Attribute) IsCString() bool { return a.Length == LengthCString }
func (a Attribute) IsFixed() bool   { return a.Length > 0 }

// Validate checks the length and alignment combination.
func (a Attribute) Validate() error {
	if a.Align.Width() == 0 {
		return fmt.Errorf("%w: attribute %q: unknown alignment %q", format.ErrOptionSyntax, a.Name, string(a.Align))
	}
	switch {
	case a.IsFixed(), a.IsVarlena():
	case a.IsCString():
		if a.Align != format.AlignChar {
			return fmt.Errorf("%w: attribute %q: cstring must use alignment c", format.ErrOptionSyntax, a.Name)
		}
	default:
		return fmt.Errorf("%w: attribute %q: invalid length %d", format.ErrOptionSyntax, a.Name, a.Length)
	}
	return nil
}

// String renders the attribute in attribute-list form.
func (a Attribute) String() string {
	return fmt.Sprintf("%d,%s,%c", a.Length, quoteName(a.Name), a.Align)
}
