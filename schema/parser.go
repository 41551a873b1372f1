// parser.go - Derive attribute descriptors from a CREATE TABLE statement
package schema

import (
	"fmt"
	"os"
	"strings"

	"github.com/xwb1989/sqlparser"

	"github.com/wilhasse/go-pghexedit/format"
)

// typeLayout is the (typlen, typalign) pair of a PostgreSQL type.
type typeLayout struct {
	length int
	align  format.Align
}

var typeLayouts = map[string]typeLayout{
	"smallint":   {2, format.AlignShort},
	"int2":       {2, format.AlignShort},
	"tinyint":    {2, format.AlignShort},
	"int":        {4, format.AlignInt},
	"integer":    {4, format.AlignInt},
	"int4":       {4, format.AlignInt},
	"mediumint":  {4, format.AlignInt},
	"oid":        {4, format.AlignInt},
	"date":       {4, format.AlignInt},
	"real":       {4, format.AlignInt},
	"float":      {4, format.AlignInt},
	"float4":     {4, format.AlignInt},
	"bigint":     {8, format.AlignDouble},
	"int8":       {8, format.AlignDouble},
	"double":     {8, format.AlignDouble},
	"float8":     {8, format.AlignDouble},
	"time":       {8, format.AlignDouble},
	"timestamp":  {8, format.AlignDouble},
	"datetime":   {8, format.AlignDouble},
	"bool":       {1, format.AlignChar},
	"boolean":    {1, format.AlignChar},
	"bit":        {LengthVarlena, format.AlignInt},
	"uuid":       {16, format.AlignChar},
	"name":       {64, format.AlignChar},
	"char":       {LengthVarlena, format.AlignInt},
	"varchar":    {LengthVarlena, format.AlignInt},
	"text":       {LengthVarlena, format.AlignInt},
	"tinytext":   {LengthVarlena, format.AlignInt},
	"mediumtext": {LengthVarlena, format.AlignInt},
	"longtext":   {LengthVarlena, format.AlignInt},
	"binary":     {LengthVarlena, format.AlignInt},
	"varbinary":  {LengthVarlena, format.AlignInt},
	"blob":       {LengthVarlena, format.AlignInt},
	"bytea":      {LengthVarlena, format.AlignInt},
	"json":       {LengthVarlena, format.AlignInt},
	"decimal":    {LengthVarlena, format.AlignInt},
	"numeric":    {LengthVarlena, format.AlignInt},
}

// ParseTableDefFromSQL builds attribute descriptors from a CREATE TABLE
// statement. Only the column types matter; constraints are ignored.
func ParseTableDefFromSQL(sql string) (*TableDef, error) {
	stmt, err := sqlparser.Parse(sql)
	if err != nil {
		return nil, fmt.Errorf("%w: parse SQL failed: %v", format.ErrOptionSyntax, err)
	}

	ddl, ok := stmt.(*sqlparser.DDL)
	if !ok || ddl.Action != sqlparser.CreateStr {
		return nil, fmt.Errorf("%w: statement is not CREATE TABLE", format.ErrOptionSyntax)
	}
	if ddl.TableSpec == nil {
		return nil, fmt.Errorf("%w: no table spec in CREATE TABLE", format.ErrOptionSyntax)
	}

	td := NewTableDef(ddl.Table.Name.String())
	for _, col := range ddl.TableSpec.Columns {
		a, err := attributeFromColumn(col)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col.Name.String(), err)
		}
		if err := td.AddAttribute(a); err != nil {
			return nil, err
		}
	}
	return td, nil
}

// ParseTableDefFromSQLFile reads and parses CREATE TABLE from a SQL file.
func ParseTableDefFromSQLFile(filename string) (*TableDef, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: read SQL file failed: %v", format.ErrFileOpen, err)
	}
	return ParseTableDefFromSQL(string(content))
}

func attributeFromColumn(col *sqlparser.ColumnDefinition) (Attribute, error) {
	typeName := strings.ToLower(col.Type.Type)
	layout, ok := typeLayouts[typeName]
	if !ok {
		return Attribute{}, fmt.Errorf("%w: %w %q", format.ErrOptionSyntax, ErrUnsupportedType, typeName)
	}
	return Attribute{Name: col.Name.String(), Length: layout.length, Align: layout.align}, nil
}
