// attrlist.go - Attribute list option parsing
package schema

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/wilhasse/go-pghexedit/format"
)

// ParseAttrList parses a flat comma separated list of (length, name, align)
// groups, e.g. `4,id,i,-1,"last, first",i,8,created,d`. Names may be
// double-quoted to embed commas.
func ParseAttrList(s string) (*TableDef, error) {
	td := NewTableDef("")
	if strings.TrimSpace(s) == "" {
		return td, nil
	}
	r := csv.NewReader(strings.NewReader(s))
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1
	tokens, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: attribute list: %v", format.ErrOptionSyntax, err)
	}
	if _, err := r.Read(); err == nil {
		return nil, fmt.Errorf("%w: attribute list spans more than one line", format.ErrOptionSyntax)
	}
	if len(tokens)%3 != 0 {
		return nil, fmt.Errorf("%w: attribute list has %d tokens, expected groups of three",
			format.ErrOptionSyntax, len(tokens))
	}
	for i := 0; i < len(tokens); i += 3 {
		length, err := strconv.Atoi(strings.TrimSpace(tokens[i]))
		if err != nil {
			return nil, fmt.Errorf("%w: attribute %d: length %q is not a number",
				format.ErrOptionSyntax, i/3+1, tokens[i])
		}
		name := strings.TrimSpace(tokens[i+1])
		if name == "" {
			return nil, fmt.Errorf("%w: attribute %d has no name", format.ErrOptionSyntax, i/3+1)
		}
		align := strings.TrimSpace(tokens[i+2])
		if len(align) != 1 {
			return nil, fmt.Errorf("%w: attribute %q: alignment %q must be one of c, s, i, d",
				format.ErrOptionSyntax, name, align)
		}
		a := Attribute{Name: name, Length: length, Align: format.Align(align[0])}
		if err := td.AddAttribute(a); err != nil {
			return nil, err
		}
	}
	return td, nil
}

func quoteName(name string) string {
	if strings.ContainsAny(name, ",\"") {
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
	return name
}
