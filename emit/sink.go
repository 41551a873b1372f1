// sink.go - Annotation records and the sinks that serialize them
package emit

import (
	"errors"

	"github.com/wilhasse/go-pghexedit/format"
)

// Annotation labels an inclusive byte range of the input file.
type Annotation struct {
	ID    uint32
	Block uint32 // relation-relative block number
	Start int64
	End   int64 // inclusive
	Label string
	Font  format.Color
	Note  format.Color
}

// Len is the number of bytes covered.
func (a Annotation) Len() int64 { return a.End - a.Start + 1 }

// BlockInfo describes the block whose annotations follow.
type BlockInfo struct {
	Number uint32 // relation-relative
	Offset int64  // file offset of the first byte
	Length int    // bytes actually read
	Digest uint64 // xxhash64 of the bytes read
}

// Sink receives annotations in emission order, grouped by block.
type Sink interface {
	BeginBlock(BlockInfo) error
	Write(Annotation) error
	EndBlock() error
	Close() error
}

type tee []Sink

// Tee fans every call out to all sinks, in order.
func Tee(sinks ...Sink) Sink { return tee(sinks) }

func (t tee) BeginBlock(info BlockInfo) error {
	var errs []error
	for _, s := range t {
		errs = append(errs, s.BeginBlock(info))
	}
	return errors.Join(errs...)
}

func (t tee) Write(a Annotation) error {
	var errs []error
	for _, s := range t {
		errs = append(errs, s.Write(a))
	}
	return errors.Join(errs...)
}

func (t tee) EndBlock() error {
	var errs []error
	for _, s := range t {
		errs = append(errs, s.EndBlock())
	}
	return errors.Join(errs...)
}

func (t tee) Close() error {
	var errs []error
	for _, s := range t {
		errs = append(errs, s.Close())
	}
	return errors.Join(errs...)
}

// MemorySink keeps everything it is given. Useful for tests and library callers
// that post-process annotations themselves.
type MemorySink struct {
	Blocks      []BlockInfo
	Annotations []Annotation
	Closed      bool
}

func (m *MemorySink) BeginBlock(info BlockInfo) error {
	m.Blocks = append(m.Blocks, info)
	return nil
}

func (m *MemorySink) Write(a Annotation) error {
	m.Annotations = append(m.Annotations, a)
	return nil
}

func (m *MemorySink) EndBlock() error { return nil }

func (m *MemorySink) Close() error {
	m.Closed = true
	return nil
}

// ForBlock returns the annotations of one relation-relative block.
func (m *MemorySink) ForBlock(blkno uint32) []Annotation {
	var out []Annotation
	for _, a := range m.Annotations {
		if a.Block == blkno {
			out = append(out, a)
		}
	}
	return out
}
