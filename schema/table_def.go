// table_def.go - Ordered attribute descriptors of one relation
package schema

import (
	"fmt"
	"strings"

	"github.com/wilhasse/go-pghexedit/format"
)

// TableDef holds the attributes in physical column order.
type TableDef struct {
	Name       string
	Attributes []Attribute
	byName     map[string]int
}

func NewTableDef(name string) *TableDef {
	return &TableDef{Name: name, byName: make(map[string]int)}
}

// AddAttribute validates a and appends it. Attributes without a color get the
// next one from the palette.
func (td *TableDef) AddAttribute(a Attribute) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if _, exists := td.byName[a.Name]; exists {
		return fmt.Errorf("%w: attribute %q already defined", format.ErrOptionSyntax, a.Name)
	}
	if a.Color == "" {
		a.Color = format.AttributePalette[len(td.Attributes)%len(format.AttributePalette)]
	}
	td.byName[a.Name] = len(td.Attributes)
	td.Attributes = append(td.Attributes, a)
	return nil
}

// Attribute returns the attribute with the given name.
func (td *TableDef) Attribute(name string) (Attribute, bool) {
	i, ok := td.byName[name]
	if !ok {
		return Attribute{}, false
	}
	return td.Attributes[i], true
}

func (td *TableDef) Len() int { return len(td.Attributes) }

// NullBitmapSize is the heap null bitmap length for a full-width row.
func (td *TableDef) NullBitmapSize() int {
	return format.BitmapLen(len(td.Attributes))
}

// AttrList renders the attributes back into a list ParseAttrList accepts.
func (td *TableDef) AttrList() string {
	parts := make([]string, len(td.Attributes))
	for i, a := range td.Attributes {
		parts[i] = a.String()
	}
	return strings.Join(parts, ",")
}

func (td *TableDef) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Table: %s\n", td.Name)
	sb.WriteString("Attributes:\n")
	for i, a := range td.Attributes {
		length := fmt.Sprintf("%d", a.Length)
		switch {
		case a.IsVarlena():
			length = "varlena"
		case a.IsCString():
			length = "cstring"
		}
		fmt.Fprintf(&sb, "  %d. %s %s align %c\n", i+1, a.Name, length, a.Align)
	}
	return sb.String()
}
