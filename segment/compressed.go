// compressed.go - Transparent decompression of forensic segment copies
package segment

import (
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// Codec is the compression of a segment copy, chosen by file extension.
type Codec int

const (
	CodecNone Codec = iota
	CodecZstd
	CodecXZ
	CodecLZ4
)

var codecExt = map[Codec]string{
	CodecZstd: ".zst",
	CodecXZ:   ".xz",
	CodecLZ4:  ".lz4",
}

func (c Codec) String() string {
	switch c {
	case CodecZstd:
		return "zstd"
	case CodecXZ:
		return "xz"
	case CodecLZ4:
		return "lz4"
	}
	return "none"
}

// Ext is the file extension of the codec, empty for CodecNone.
func (c Codec) Ext() string { return codecExt[c] }

// CodecFor picks the codec from the path's extension.
func CodecFor(path string) Codec {
	lower := strings.ToLower(path)
	for c, ext := range codecExt {
		if strings.HasSuffix(lower, ext) {
			return c
		}
	}
	return CodecNone
}

// wrap returns a decompressing stream over r. The returned closer releases
// the decoder only; the caller closes r.
func (c Codec) wrap(r io.Reader) (io.ReadCloser, error) {
	switch c {
	case CodecZstd:
		d, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		return d.IOReadCloser(), nil
	case CodecXZ:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(xr), nil
	case CodecLZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	}
	return io.NopCloser(r), nil
}
