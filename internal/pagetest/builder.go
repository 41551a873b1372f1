// Package pagetest builds synthetic pages for package tests.
package pagetest

import (
	"encoding/binary"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/wilhasse/go-pghexedit/emit"
	"github.com/wilhasse/go-pghexedit/format"
)

// Builder lays out a slotted page from the top down, the way the server does.
type Builder struct {
	P       []byte
	lower   int
	upper   int
	special int
	flags   uint16
	lsn     uint64
	prune   uint32
	version int
}

func New(size int) *Builder {
	return &Builder{
		P:       make([]byte, size),
		lower:   format.PageHeaderSize,
		upper:   size,
		special: size,
		version: format.LayoutVersion,
	}
}

func (b *Builder) LSN(v uint64) *Builder      { b.lsn = v; return b }
func (b *Builder) Flags(f uint16) *Builder    { b.flags = f; return b }
func (b *Builder) PruneXID(x uint32) *Builder { b.prune = x; return b }
func (b *Builder) Version(v int) *Builder     { b.version = v; return b }

// Special places data at the end of the page and moves pd_special and
// pd_upper down to it. It must be called before any item is added.
func (b *Builder) Special(data []byte) *Builder {
	b.special = len(b.P) - len(data)
	b.upper = b.special
	copy(b.P[b.special:], data)
	return b
}

// AddItem stores data below pd_upper at a MAXALIGN'd offset and appends a
// line pointer to it. It returns the item's offset number.
func (b *Builder) AddItem(data []byte, flags uint8) uint16 {
	off := (b.upper - len(data)) &^ (format.MaxAlignOf - 1)
	copy(b.P[off:], data)
	b.upper = off
	return b.AddLinePointer(off, len(data), flags)
}

// AddLinePointer appends a raw line pointer without storing any item.
func (b *Builder) AddLinePointer(off, length int, flags uint8) uint16 {
	raw := uint32(off)&0x7FFF | uint32(flags&0x03)<<15 | uint32(length)<<17
	binary.LittleEndian.PutUint32(b.P[b.lower:], raw)
	b.lower += format.ItemIDSize
	return uint16((b.lower - format.PageHeaderSize) / format.ItemIDSize)
}

// Put16 and Put32 patch raw bytes.
func (b *Builder) Put16(off int, v uint16) { binary.LittleEndian.PutUint16(b.P[off:], v) }
func (b *Builder) Put32(off int, v uint32) { binary.LittleEndian.PutUint32(b.P[off:], v) }

// SetLower overrides pd_lower for pages without a line pointer array.
func (b *Builder) SetLower(n int) *Builder { b.lower = n; return b }

// Lower and Upper expose the current free space bounds.
func (b *Builder) Lower() int { return b.lower }
func (b *Builder) Upper() int { return b.upper }

// Bytes writes the page header and returns the page.
func (b *Builder) Bytes() []byte {
	binary.LittleEndian.PutUint32(b.P[0:], uint32(b.lsn>>32))
	binary.LittleEndian.PutUint32(b.P[4:], uint32(b.lsn))
	b.Put16(10, b.flags)
	b.Put16(12, uint16(b.lower))
	b.Put16(14, uint16(b.upper))
	b.Put16(16, uint16(b.special))
	b.Put16(18, uint16(len(b.P)&0xFF00|b.version))
	b.Put32(20, b.prune)
	return b.P
}

// Harness collects the annotations and reports of decoding one block.
type Harness struct {
	Sink *emit.MemorySink
	Rec  *emit.Recorder
	Hook *logtest.Hook
}

func NewHarness() *Harness {
	log, hook := logtest.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	sink := &emit.MemorySink{}
	return &Harness{Sink: sink, Rec: emit.NewRecorder(sink, log), Hook: hook}
}

// Block opens block blkno over data, which is also the full block size.
func (h *Harness) Block(blkno uint32, data []byte) *emit.Block {
	return h.Rec.Begin(blkno, int64(blkno)*int64(len(data)), data, len(data))
}

// Labels lists the annotation labels in emission order.
func (h *Harness) Labels() []string {
	out := make([]string, 0, len(h.Sink.Annotations))
	for _, a := range h.Sink.Annotations {
		out = append(out, a.Label)
	}
	return out
}

// Find returns the first annotation whose label contains substr.
func (h *Harness) Find(substr string) (emit.Annotation, bool) {
	for _, a := range h.Sink.Annotations {
		if strings.Contains(a.Label, substr) {
			return a, true
		}
	}
	return emit.Annotation{}, false
}

// Errors lists the reported decode errors.
func (h *Harness) Errors() []error {
	var out []error
	for _, e := range h.Hook.AllEntries() {
		if err, ok := e.Data[logrus.ErrorKey].(error); ok {
			out = append(out, err)
		}
	}
	return out
}

// HasError reports whether any decode error matches kind.
func (h *Harness) HasError(kind error) bool {
	for _, err := range h.Errors() {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
