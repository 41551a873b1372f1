// block.go - Run-wide recorder and the per-block emission context
package emit

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/sirupsen/logrus"

	"github.com/wilhasse/go-pghexedit/format"
)

// NoLevel marks a block that is not a B-Tree page.
const NoLevel = -1

// Recorder owns the state that outlives a block: the annotation id counter,
// the sticky failure flag and the sink.
type Recorder struct {
	sink    Sink
	log     logrus.FieldLogger
	nextID  uint32
	reports int
	err     error
}

func NewRecorder(sink Sink, log logrus.FieldLogger) *Recorder {
	return &Recorder{sink: sink, log: log}
}

// Failed reports whether any decode error was recorded.
func (r *Recorder) Failed() bool { return r.reports > 0 }

// Reports is the number of decode errors recorded so far.
func (r *Recorder) Reports() int { return r.reports }

// Err returns the first sink failure, if any.
func (r *Recorder) Err() error { return r.err }

// Report records a decode error against a block.
func (r *Recorder) Report(blkno uint32, off int64, err error) {
	r.reports++
	r.log.WithFields(logrus.Fields{
		"block":  blkno,
		"offset": off,
		"kind":   format.ErrorKind(err),
	}).WithError(err).Error("decode error")
}

func (r *Recorder) sinkErr(err error) {
	if err != nil && r.err == nil {
		r.err = err
	}
}

// Begin opens a block. data holds the bytes actually read, which may be fewer
// than size for a truncated final block.
func (r *Recorder) Begin(blkno uint32, fileOff int64, data []byte, size int) *Block {
	r.sinkErr(r.sink.BeginBlock(BlockInfo{
		Number: blkno,
		Offset: fileOff,
		Length: len(data),
		Digest: xxhash.Sum64(data),
	}))
	return &Block{rec: r, Data: data, Size: size, Number: blkno, Offset: fileOff, Level: NoLevel}
}

// Close flushes and closes the sink.
func (r *Recorder) Close() error {
	r.sinkErr(r.sink.Close())
	return r.err
}

// Block is the decoding context of one page.
type Block struct {
	rec    *Recorder
	Data   []byte
	Size   int
	Number uint32
	Offset int64
	Level  int
}

// Avail is the number of bytes read for this block.
func (b *Block) Avail() int { return len(b.Data) }

// Full reports whether the whole block was read.
func (b *Block) Full() bool { return len(b.Data) >= b.Size }

// Tag annotates n bytes starting at page offset start.
func (b *Block) Tag(start, n int, color format.Color, label string, args ...any) {
	text := fmt.Sprintf(label, args...)
	if b.Level != NoLevel {
		text = fmt.Sprintf("block %d (level %d) %s", b.Number, b.Level, text)
	} else {
		text = fmt.Sprintf("block %d %s", b.Number, text)
	}
	b.write(start, n, color, text)
}

// ItemTag annotates n bytes belonging to the item at offnum.
func (b *Block) ItemTag(offnum uint16, start, n int, color format.Color, label string, args ...any) {
	text := fmt.Sprintf("(%d,%d) %s", b.Number, offnum, fmt.Sprintf(label, args...))
	b.write(start, n, color, text)
}

func (b *Block) write(start, n int, color format.Color, text string) {
	if n <= 0 {
		return
	}
	a := Annotation{
		ID:    b.rec.nextID,
		Block: b.Number,
		Start: b.Offset + int64(start),
		End:   b.Offset + int64(start+n-1),
		Label: text,
		Font:  format.FontColor,
		Note:  color,
	}
	b.rec.nextID++
	b.rec.sinkErr(b.rec.sink.Write(a))
}

// Report records err at page offset off.
func (b *Block) Report(off int, err error) {
	b.rec.Report(b.Number, b.Offset+int64(off), err)
}

// Errorf wraps kind with a formatted message and reports it.
func (b *Block) Errorf(off int, kind error, msg string, args ...any) {
	b.Report(off, fmt.Errorf("%w: %s", kind, fmt.Sprintf(msg, args...)))
}

// End closes the block in the sink.
func (b *Block) End() {
	b.rec.sinkErr(b.rec.sink.EndBlock())
}
