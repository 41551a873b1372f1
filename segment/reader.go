// Package segment reads relation segment files one block at a time.
package segment

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wilhasse/go-pghexedit/format"
	"github.com/wilhasse/go-pghexedit/page"
)

// DefaultSize is RELSEG_SIZE * BLCKSZ of a stock build.
const DefaultSize = 131072 * format.DefaultBlockSize

// Reader yields blocks in file order.
type Reader struct {
	r      *bufio.Reader
	closer io.Closer
	path   string
	codec  Codec
	read   int64
}

// Open opens a segment file, decompressing it on the fly when the extension
// names a supported codec.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", format.ErrFileOpen, err)
	}
	codec := CodecFor(path)
	rc, err := codec.wrap(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s stream %s: %v", format.ErrFileOpen, codec, path, err)
	}
	r := NewReader(rc, path)
	r.codec = codec
	r.closer = multiCloser{rc, f}
	return r, nil
}

// NewReader reads blocks from an already opened stream.
func NewReader(r io.Reader, path string) *Reader {
	return &Reader{r: bufio.NewReaderSize(r, format.MaxBlockSize), path: path}
}

func (r *Reader) Path() string { return r.path }
func (r *Reader) Codec() Codec { return r.codec }

// Offset is the number of bytes consumed so far.
func (r *Reader) Offset() int64 { return r.read }

// BlockSize discovers the block size from the header of the next block
// without consuming it. A header that cannot be read yields ErrPrematureEOF;
// an implausible page size yields the default size with ErrHeaderInvariant.
func (r *Reader) BlockSize() (int, error) {
	hdr, err := r.r.Peek(format.PageHeaderSize)
	if err != nil {
		return format.DefaultBlockSize, fmt.Errorf("%w: %d bytes available for block 0 header: %v",
			format.ErrPrematureEOF, len(hdr), err)
	}
	return page.BlockSize(hdr)
}

// Next fills buf with the next block and returns the number of bytes read.
// It returns io.EOF when nothing is left and ErrPrematureEOF along with the
// count when only part of a block was available.
func (r *Reader) Next(buf []byte) (int, error) {
	n, err := io.ReadFull(r.r, buf)
	r.read += int64(n)
	switch {
	case err == nil:
		return n, nil
	case errors.Is(err, io.EOF):
		return 0, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		return n, fmt.Errorf("%w: block at offset %d has %d of %d bytes",
			format.ErrPrematureEOF, r.read-int64(n), n, len(buf))
	}
	return n, fmt.Errorf("read %s: %w", r.path, err)
}

// Skip discards n blocks of blockSize bytes. It returns io.EOF if the stream
// ends first.
func (r *Reader) Skip(n uint32, blockSize int) error {
	want := int64(n) * int64(blockSize)
	for want > 0 {
		chunk := int(min(want, 1<<30))
		got, err := r.r.Discard(chunk)
		r.read += int64(got)
		want -= int64(got)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return io.EOF
			}
			return fmt.Errorf("skip in %s: %w", r.path, err)
		}
	}
	return nil
}

func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// SegmentNumber extracts N from a "relfilenode.N" file name, ignoring any
// compression extension. Files without a suffix are segment 0.
func SegmentNumber(path string) (uint32, bool) {
	base := strings.TrimSuffix(filepath.Base(path), CodecFor(path).Ext())
	dot := strings.LastIndexByte(base, '.')
	if dot < 0 {
		return 0, false
	}
	n, err := strconv.ParseUint(base[dot+1:], 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}

// BlockDelta is the relation-relative number of the first block in a segment.
func BlockDelta(segmentSize int64, blockSize int, segno uint32) uint32 {
	return uint32(segmentSize/int64(blockSize)) * segno
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var errs []error
	for _, c := range m {
		if c != nil {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
