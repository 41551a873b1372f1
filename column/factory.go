// factory.go - Factory for getting the parser of an attribute
package column

import (
	"github.com/wilhasse/go-pghexedit/schema"
)

var (
	fixedParser   = &FixedParser{}
	cstringParser = &CStringParser{}
	varlenaParser = &VarlenaParser{}
)

// GetParser returns the parser for the attribute's length class.
func GetParser(attr *schema.Attribute) Parser {
	switch {
	case attr.IsFixed():
		return fixedParser
	case attr.IsVarlena():
		return varlenaParser
	case attr.IsCString():
		return cstringParser
	default:
		return nil
	}
}
