// Package checksum computes PostgreSQL data page checksums.
//
// The page is treated as a matrix of 32 columns of uint32. Each column is
// folded with a modified FNV-1a step seeded from a fixed offset table, then
// the columns are XORed together, mixed with the block number and reduced
// to 16 bits. The stored checksum field is zeroed during the computation.
package checksum

import (
	"encoding/binary"
)

const (
	nSums    = 32
	fnvPrime = 16777619

	checksumOffset = 8 // pd_checksum
)

var baseOffsets = [nSums]uint32{
	0x5B1F36E9, 0xB8525960, 0x02AB50AA, 0x1DE66D2A,
	0x79FF467A, 0x9BB9F8A3, 0x217E7CD2, 0x83E13D2C,
	0xF8D4474F, 0xE39EB970, 0x42C6AE16, 0x993216FA,
	0x7B093B5D, 0x98DAFF3C, 0xF718902A, 0x0B1C9CDB,
	0xE58F764B, 0x187636BC, 0x5D7B3BB1, 0xE73DE7DE,
	0x92BEC979, 0xCCA6C0B2, 0x304A0979, 0x85AA43D4,
	0x783125BB, 0x6CA8EAA2, 0xE407EAC6, 0x4B5CFC3E,
	0x9FBF8C76, 0x15CA20BE, 0xF2CA9FFF, 0x3E7F54F0,
}

func comp(sum, value uint32) uint32 {
	tmp := sum ^ value
	return tmp*fnvPrime ^ tmp>>17
}

// block folds a whole page. len(p) must be a multiple of 128.
func block(p []byte) uint32 {
	sums := baseOffsets
	rows := len(p) / (4 * nSums)
	for i := 0; i < rows; i++ {
		row := p[i*4*nSums:]
		for j := 0; j < nSums; j++ {
			v := binary.LittleEndian.Uint32(row[j*4:])
			if off := i*4*nSums + j*4; off == checksumOffset {
				// pd_checksum shares a word with pd_flags; only its two bytes count as zero
				v &^= 0xFFFF
			}
			sums[j] = comp(sums[j], v)
		}
	}
	for i := 0; i < 2; i++ {
		for j := 0; j < nSums; j++ {
			sums[j] = comp(sums[j], 0)
		}
	}
	var result uint32
	for j := 0; j < nSums; j++ {
		result ^= sums[j]
	}
	return result
}

// Page returns the checksum of page p stored at relation-relative block blkno.
// Pages whose length is not a multiple of 128 bytes are folded up to the last
// full row.
func Page(p []byte, blkno uint32) uint16 {
	sum := block(p) ^ blkno
	return uint16(sum%65535 + 1)
}
