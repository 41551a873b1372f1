// options.go - Run options and their validation
package pghexedit

import (
	"fmt"
	"strings"

	"github.com/wilhasse/go-pghexedit/format"
	"github.com/wilhasse/go-pghexedit/page"
	"github.com/wilhasse/go-pghexedit/schema"
)

// ChecksumMode selects when stored page checksums are verified.
type ChecksumMode int

const (
	ChecksumOff ChecksumMode = iota
	ChecksumAlways
	ChecksumNonZero // skip pages whose stored checksum is 0
)

func (m ChecksumMode) String() string {
	switch m {
	case ChecksumAlways:
		return "always"
	case ChecksumNonZero:
		return "nonzero"
	}
	return "off"
}

func ParseChecksumMode(s string) (ChecksumMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "off", "none":
		return ChecksumOff, nil
	case "always", "on":
		return ChecksumAlways, nil
	case "nonzero":
		return ChecksumNonZero, nil
	}
	return ChecksumOff, fmt.Errorf("%w: checksum mode %q, want always, nonzero or off", format.ErrOptionSyntax, s)
}

// Options control one decoding run. The zero value decodes every block of a
// segment with no attribute metadata against the default format version.
type Options struct {
	Start  uint32 // first block within the segment
	End    uint32 // last block, inclusive, when HasEnd is set
	HasEnd bool

	Checksum ChecksumMode
	SkipLeaf bool

	LSN    page.LSN // blocks with an older LSN are skipped when HasLSN is set
	HasLSN bool

	SegmentSize      int64 // bytes per segment; 0 means segment.DefaultSize
	SegmentNumber    uint32
	HasSegmentNumber bool // otherwise taken from the file name

	Attributes []schema.Attribute
	Version    format.Version // 0 means format.DefaultVersion
}

// Validate checks option combinations that cannot be judged one flag at a time.
func (o Options) Validate() error {
	if o.HasEnd && o.End < o.Start {
		return fmt.Errorf("%w: end block %d precedes start block %d", format.ErrOptionSyntax, o.End, o.Start)
	}
	if o.SegmentSize < 0 {
		return fmt.Errorf("%w: negative segment size %d", format.ErrOptionSyntax, o.SegmentSize)
	}
	for _, a := range o.Attributes {
		if err := a.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// String renders the options for the document preamble.
func (o Options) String() string {
	var parts []string
	add := func(f string, args ...any) { parts = append(parts, fmt.Sprintf(f, args...)) }
	if o.Start != 0 || o.HasEnd {
		if o.HasEnd {
			add("-R %d %d", o.Start, o.End)
		} else {
			add("-R %d", o.Start)
		}
	}
	if o.Checksum != ChecksumOff {
		add("-k %s", o.Checksum)
	}
	if o.SkipLeaf {
		add("-l")
	}
	if o.HasLSN {
		add("-z %s", o.LSN)
	}
	if o.SegmentSize != 0 {
		add("-s %d", o.SegmentSize)
	}
	if o.HasSegmentNumber {
		add("-n %d", o.SegmentNumber)
	}
	if len(o.Attributes) > 0 {
		td := schema.TableDef{Attributes: o.Attributes}
		add("-D %s", td.AttrList())
	}
	if o.Version != 0 {
		add("--format-version %s", o.Version)
	}
	if len(parts) == 0 {
		return "None"
	}
	return strings.Join(parts, " ")
}
