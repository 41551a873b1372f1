// decoder.go - Run driver: reads blocks and routes them through the decoders
package pghexedit

import (
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/wilhasse/go-pghexedit/column"
	"github.com/wilhasse/go-pghexedit/emit"
	"github.com/wilhasse/go-pghexedit/format"
	"github.com/wilhasse/go-pghexedit/page"
	"github.com/wilhasse/go-pghexedit/record"
	"github.com/wilhasse/go-pghexedit/segment"
)

// Stats counts what a run did with the blocks it read.
type Stats struct {
	Blocks  int   // decoded
	New     int   // never initialized, skipped
	Skipped int   // skipped by LSN or collapsed as leaf pages
	Bytes   int64 // read
}

// Decoder is the decoding context of one run. It carries the state that
// outlives a single block: options, the capability table, the block number
// offset of the segment and the first special section kind seen.
type Decoder struct {
	opts   Options
	caps   format.Capabilities
	rec    *emit.Recorder
	log    logrus.FieldLogger
	walker *column.Walker

	blockSize int
	delta     uint32

	firstKind page.SpecialKind
	kindSeen  bool

	stats Stats
}

// NewDecoder validates opts and returns a decoder writing to sink.
func NewDecoder(sink emit.Sink, log logrus.FieldLogger, opts Options) (*Decoder, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Version == 0 {
		opts.Version = format.DefaultVersion
	}
	if opts.SegmentSize == 0 {
		opts.SegmentSize = segment.DefaultSize
	}
	return &Decoder{
		opts:      opts,
		caps:      opts.Version.Capabilities(),
		rec:       emit.NewRecorder(sink, log),
		log:       log,
		walker:    column.NewWalker(opts.Attributes),
		blockSize: format.DefaultBlockSize,
	}, nil
}

// Failed reports whether any decode error was recorded.
func (d *Decoder) Failed() bool { return d.rec.Failed() }

func (d *Decoder) Stats() Stats { return d.stats }

// BlockSize is the block size in use, known once Run has started.
func (d *Decoder) BlockSize() int { return d.blockSize }

// Close flushes the sink.
func (d *Decoder) Close() error { return d.rec.Close() }

// Run decodes blocks from r until the end of the stream or of the requested
// range. Decode errors are recorded and do not stop the run; the returned
// error is reserved for failures that prevent decoding altogether.
func (d *Decoder) Run(r *segment.Reader) error {
	size, err := r.BlockSize()
	switch {
	case errors.Is(err, format.ErrHeaderInvariant):
		d.rec.Report(0, 0, err)
	case err != nil:
		// fewer bytes than a header; Next tells an empty file from a short one
		d.log.WithError(err).Debug("block size discovery failed")
	}
	d.blockSize = size
	if int64(size) > d.opts.SegmentSize || d.opts.SegmentSize%int64(size) != 0 {
		return fmt.Errorf("%w: segment size %d is not a multiple of block size %d",
			format.ErrOptionSyntax, d.opts.SegmentSize, size)
	}

	segno := d.opts.SegmentNumber
	if !d.opts.HasSegmentNumber {
		segno, _ = segment.SegmentNumber(r.Path())
	}
	d.delta = segment.BlockDelta(d.opts.SegmentSize, size, segno)

	d.log.WithFields(logrus.Fields{
		"file":       r.Path(),
		"codec":      r.Codec(),
		"block_size": humanize.IBytes(uint64(size)),
		"segment":    segno,
		"first_rel":  d.delta + d.opts.Start,
	}).Info("decoding segment")

	if d.opts.Start > 0 {
		if err := r.Skip(d.opts.Start, size); err != nil {
			return fmt.Errorf("%w: seek to start block %d: %v", format.ErrPrematureEOF, d.opts.Start, err)
		}
	}

	buf := make([]byte, size)
	for blkno := d.opts.Start; ; blkno++ {
		n, err := r.Next(buf)
		if errors.Is(err, io.EOF) {
			if blkno == d.opts.Start {
				return fmt.Errorf("%w: no data at block %d", format.ErrPrematureEOF, blkno)
			}
			break
		}
		short := errors.Is(err, format.ErrPrematureEOF)
		if err != nil && !short {
			return err
		}
		d.stats.Bytes += int64(n)
		d.decodeBlock(blkno, buf[:n], err)
		if short || (d.opts.HasEnd && blkno >= d.opts.End) {
			break
		}
	}

	d.log.WithFields(logrus.Fields{
		"blocks":  d.stats.Blocks,
		"new":     d.stats.New,
		"skipped": d.stats.Skipped,
		"read":    humanize.IBytes(uint64(d.stats.Bytes)),
		"errors":  d.rec.Reports(),
	}).Info("segment decoded")
	return d.rec.Err()
}

// decodeBlock annotates one block. readErr is set when only part of the
// block could be read.
func (d *Decoder) decodeBlock(blkno uint32, data []byte, readErr error) {
	rel := d.delta + blkno
	fileOff := int64(blkno) * int64(d.blockSize)
	log := d.log.WithField("block", rel)

	hdr, hdrErr := page.ParseHeader(data)
	if hdrErr == nil && readErr == nil {
		if hdr.IsNew() {
			d.stats.New++
			log.Debug("new page")
			return
		}
		if d.opts.HasLSN && hdr.LSN < d.opts.LSN {
			d.stats.Skipped++
			log.WithField("lsn", hdr.LSN).Debug("page LSN below threshold")
			return
		}
	}

	b := d.rec.Begin(rel, fileOff, data, d.blockSize)
	defer b.End()
	if readErr != nil {
		b.Report(len(data), readErr)
	}
	if hdrErr != nil {
		return
	}

	kind := page.Classify(data, d.blockSize)
	d.checkKind(b, kind)

	var s page.Special
	if !kind.IsError() {
		var err error
		if s, err = page.ParseSpecial(data, kind, int(hdr.Special)); err != nil {
			b.Errorf(int(hdr.Special), format.ErrBoundary, "%v", err)
			kind = page.SpecialErrorBoundary
		}
	}

	if kind == page.SpecialBTree {
		b.Level = int(s.BTree.Level)
		if d.opts.SkipLeaf && s.BTree.IsLeaf() && !s.BTree.IsRoot() {
			d.stats.Skipped++
			b.Tag(0, d.blockSize, format.GreenDark, "leaf page")
			return
		}
	}

	d.stats.Blocks++
	page.EmitHeader(b, hdr)
	for _, err := range hdr.Check(d.blockSize) {
		b.Report(0, err)
	}
	d.verifyChecksum(b, hdr, rel)

	switch kind {
	case page.SpecialErrorBoundary:
		b.Errorf(16, format.ErrBoundary, "pd_special %d is not a usable special section offset", hdr.Special)
		return
	case page.SpecialErrorUnknown:
		b.Errorf(int(hdr.Special), format.ErrUnknownSpecialSection,
			"%d byte special section matches no access method", d.blockSize-int(hdr.Special))
		page.EmitLinePointers(b, hdr)
		return
	}

	p := &record.Page{Block: b, Header: hdr, Special: s, Caps: d.caps, Walker: d.walker, RelBlock: rel}
	p.Body()
	if kind != page.SpecialNone {
		page.EmitSpecial(b, s, d.caps)
	}
}

// checkKind holds every block to the kind of the first classified block.
func (d *Decoder) checkKind(b *emit.Block, kind page.SpecialKind) {
	if kind.IsError() {
		return
	}
	if !d.kindSeen {
		d.firstKind, d.kindSeen = kind, true
		return
	}
	if kind != d.firstKind {
		b.Errorf(16, format.ErrSpecialSectionInconsistency,
			"special section kind %s differs from %s seen first", kind, d.firstKind)
	}
}

func (d *Decoder) verifyChecksum(b *emit.Block, hdr page.Header, rel uint32) {
	switch {
	case d.opts.Checksum == ChecksumOff:
		return
	case d.opts.Checksum == ChecksumNonZero && hdr.Checksum == 0:
		return
	case !b.Full():
		return
	}
	if err := page.VerifyChecksum(b.Data, hdr, rel); err != nil {
		b.Report(8, err)
	}
}
