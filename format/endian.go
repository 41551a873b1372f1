// endian.go - Little-endian byte reading utilities
//
// Pages are read in the byte order of the x86-64 and arm64 servers that write them.
package format

import (
	"encoding/binary"
	"fmt"
)

func U8(b []byte, off int) (uint8, error) {
	if off < 0 || off+1 > len(b) {
		return 0, fmt.Errorf("%w: U8 at %d", ErrOutOfBounds, off)
	}
	return b[off], nil
}

func Le16(b []byte, off int) (uint16, error) {
	if off < 0 || off+2 > len(b) {
		return 0, fmt.Errorf("%w: Le16 at %d", ErrOutOfBounds, off)
	}
	return binary.LittleEndian.Uint16(b[off : off+2]), nil
}

func Le32(b []byte, off int) (uint32, error) {
	if off < 0 || off+4 > len(b) {
		return 0, fmt.Errorf("%w: Le32 at %d", ErrOutOfBounds, off)
	}
	return binary.LittleEndian.Uint32(b[off : off+4]), nil
}

func Le64(b []byte, off int) (uint64, error) {
	if off < 0 || off+8 > len(b) {
		return 0, fmt.Errorf("%w: Le64 at %d", ErrOutOfBounds, off)
	}
	return binary.LittleEndian.Uint64(b[off : off+8]), nil
}

// Span returns b[off:off+n] or ErrOutOfBounds.
func Span(b []byte, off, n int) ([]byte, error) {
	if off < 0 || n < 0 || off+n > len(b) {
		return nil, fmt.Errorf("%w: %d bytes at %d", ErrOutOfBounds, n, off)
	}
	return b[off : off+n], nil
}
