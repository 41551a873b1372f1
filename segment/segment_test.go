package segment

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/require"
	"github.com/ulikunitz/xz"

	"github.com/wilhasse/go-pghexedit/format"
	"github.com/wilhasse/go-pghexedit/internal/pagetest"
)

// relation returns n empty 1 KiB pages followed by tail extra bytes.
func relation(n, tail int) []byte {
	var out []byte
	for i := 0; i < n; i++ {
		out = append(out, pagetest.New(1024).LSN(uint64(i)).Bytes()...)
	}
	return append(out, make([]byte, tail)...)
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func compress(t *testing.T, codec Codec, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	var w io.WriteCloser
	var err error
	switch codec {
	case CodecZstd:
		w, err = zstd.NewWriter(&buf)
	case CodecXZ:
		w, err = xz.NewWriter(&buf)
	case CodecLZ4:
		w = lz4.NewWriter(&buf)
	}
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func readAll(t *testing.T, r *Reader) [][]byte {
	t.Helper()
	size, err := r.BlockSize()
	require.NoError(t, err)
	var blocks [][]byte
	for {
		buf := make([]byte, size)
		n, err := r.Next(buf)
		if err == io.EOF {
			return blocks
		}
		require.NoError(t, err)
		blocks = append(blocks, buf[:n])
	}
}

func TestOpenCodecs(t *testing.T) {
	raw := relation(3, 0)
	tests := []struct {
		name  string
		codec Codec
	}{
		{"16384", CodecNone},
		{"16384.zst", CodecZstd},
		{"16384.xz", CodecXZ},
		{"16384.LZ4", CodecLZ4},
	}
	for _, tc := range tests {
		t.Run(tc.codec.String(), func(t *testing.T) {
			assert := require.New(t)
			data := raw
			if tc.codec != CodecNone {
				data = compress(t, tc.codec, raw)
			}
			r, err := Open(writeFile(t, tc.name, data))
			assert.NoError(err)
			defer r.Close()
			assert.Equal(tc.codec, r.Codec())

			blocks := readAll(t, r)
			assert.Len(blocks, 3)
			assert.Equal(raw[1024:2048], blocks[1])
			assert.Equal(int64(len(raw)), r.Offset())
		})
	}
}

func TestOpenErrors(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, format.ErrFileOpen)

	_, err = Open(writeFile(t, "16384.xz", []byte("not an xz stream")))
	require.ErrorIs(t, err, format.ErrFileOpen)
}

func TestNextShortAndEmpty(t *testing.T) {
	assert := require.New(t)
	r := NewReader(bytes.NewReader(relation(1, 100)), "16384")
	buf := make([]byte, 1024)

	n, err := r.Next(buf)
	assert.NoError(err)
	assert.Equal(1024, n)

	n, err = r.Next(buf)
	assert.ErrorIs(err, format.ErrPrematureEOF)
	assert.Equal(100, n)

	n, err = r.Next(buf)
	assert.Equal(io.EOF, err)
	assert.Zero(n)
}

func TestBlockSize(t *testing.T) {
	r := NewReader(bytes.NewReader(relation(2, 0)), "16384")
	size, err := r.BlockSize()
	require.NoError(t, err)
	require.Equal(t, 1024, size)
	require.Zero(t, r.Offset())

	r = NewReader(bytes.NewReader(make([]byte, 10)), "16384")
	_, err = r.BlockSize()
	require.ErrorIs(t, err, format.ErrPrematureEOF)

	r = NewReader(bytes.NewReader(make([]byte, 8192)), "16384")
	size, err = r.BlockSize()
	require.ErrorIs(t, err, format.ErrHeaderInvariant)
	require.Equal(t, format.DefaultBlockSize, size)
}

func TestSkip(t *testing.T) {
	assert := require.New(t)
	raw := relation(4, 0)
	r := NewReader(bytes.NewReader(raw), "16384")
	assert.NoError(r.Skip(2, 1024))

	buf := make([]byte, 1024)
	_, err := r.Next(buf)
	assert.NoError(err)
	assert.Equal(raw[2048:3072], buf)

	assert.Equal(io.EOF, r.Skip(5, 1024))
}

func TestSegmentNumber(t *testing.T) {
	tests := []struct {
		path string
		want uint32
		ok   bool
	}{
		{"/data/base/5/16384", 0, false},
		{"/data/base/5/16384.1", 1, true},
		{"16384.12", 12, true},
		{"16384.3.zst", 3, true},
		{"16384.xz", 0, false},
		{"16384_fsm", 0, false},
		{"16384.abc", 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			got, ok := SegmentNumber(tc.path)
			require.Equal(t, tc.ok, ok)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestBlockDelta(t *testing.T) {
	require.Equal(t, uint32(0), BlockDelta(DefaultSize, 8192, 0))
	require.Equal(t, uint32(262144), BlockDelta(DefaultSize, 8192, 2))
	require.Equal(t, uint32(1048576), BlockDelta(DefaultSize, 1024, 1))
}
