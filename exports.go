// exports.go - Re-exports for main package API
package pghexedit

import (
	"github.com/wilhasse/go-pghexedit/emit"
	"github.com/wilhasse/go-pghexedit/format"
	"github.com/wilhasse/go-pghexedit/page"
	"github.com/wilhasse/go-pghexedit/schema"
	"github.com/wilhasse/go-pghexedit/segment"
)

// Re-export types from format package
type (
	Version      = format.Version
	Capabilities = format.Capabilities
)

// Re-export constants from format package
const (
	DefaultVersion   = format.DefaultVersion
	DefaultBlockSize = format.DefaultBlockSize
)

// Re-export types from page package
type (
	LSN         = page.LSN
	SpecialKind = page.SpecialKind
	Header      = page.Header
	LinePointer = page.LinePointer
)

// Re-export types from the annotation and schema packages
type (
	Annotation = emit.Annotation
	Sink       = emit.Sink
	Attribute  = schema.Attribute
)

// Re-export parsing helpers
var (
	ParseVersion         = format.ParseVersion
	ParseLSN             = page.ParseLSN
	ParseAttrList        = schema.ParseAttrList
	ParseTableDefFromSQL = schema.ParseTableDefFromSQL
	Classify             = page.Classify
)

// OpenSegment is a convenience wrapper around segment.Open.
func OpenSegment(path string) (*segment.Reader, error) {
	return segment.Open(path)
}
