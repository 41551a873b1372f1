// header.go - Page header parsing, validation and annotation
package page

import (
	"fmt"
	"strings"

	"github.com/wilhasse/go-pghexedit/checksum"
	"github.com/wilhasse/go-pghexedit/emit"
	"github.com/wilhasse/go-pghexedit/format"
)

// Header is PageHeaderData.
type Header struct {
	LSN             LSN
	Checksum        uint16
	Flags           uint16
	Lower           uint16
	Upper           uint16
	Special         uint16
	PageSizeVersion uint16
	PruneXID        uint32
}

func ParseHeader(p []byte) (Header, error) {
	if len(p) < format.PageHeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes available for page header", format.ErrPrematureEOF, len(p))
	}
	xlogid, _ := format.Le32(p, 0)
	xrecoff, _ := format.Le32(p, 4)
	chk, _ := format.Le16(p, 8)
	flags, _ := format.Le16(p, 10)
	lower, _ := format.Le16(p, 12)
	upper, _ := format.Le16(p, 14)
	special, _ := format.Le16(p, 16)
	psv, _ := format.Le16(p, 18)
	prune, _ := format.Le32(p, 20)
	return Header{
		LSN:      LSN(uint64(xlogid)<<32 | uint64(xrecoff)),
		Checksum: chk, Flags: flags, Lower: lower, Upper: upper, Special: special,
		PageSizeVersion: psv, PruneXID: prune,
	}, nil
}

func (h Header) PageSize() int      { return int(h.PageSizeVersion & 0xFF00) }
func (h Header) LayoutVersion() int { return int(h.PageSizeVersion & 0x00FF) }

// IsNew reports an all-zero, never initialized page.
func (h Header) IsNew() bool { return h.Upper == 0 }

// MaxOffset is the number of line pointers.
func (h Header) MaxOffset() int {
	if int(h.Lower) <= format.PageHeaderSize {
		return 0
	}
	return (int(h.Lower) - format.PageHeaderSize) / format.ItemIDSize
}

// Check returns one error per violated header invariant.
func (h Header) Check(blockSize int) []error {
	var errs []error
	bad := func(msg string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", format.ErrHeaderInvariant, fmt.Sprintf(msg, args...)))
	}
	if h.MaxOffset() > blockSize {
		bad("maxOffset %d exceeds block size %d", h.MaxOffset(), blockSize)
	}
	if h.LayoutVersion() != format.LayoutVersion {
		bad("unsupported page layout version %d", h.LayoutVersion())
	}
	if int(h.Lower) < format.PageHeaderSize {
		bad("pd_lower %d below page header size", h.Lower)
	}
	if int(h.Lower) > blockSize {
		bad("pd_lower %d exceeds block size %d", h.Lower, blockSize)
	}
	if int(h.Upper) > blockSize {
		bad("pd_upper %d exceeds block size %d", h.Upper, blockSize)
	}
	if h.Upper < h.Lower {
		bad("pd_upper %d below pd_lower %d", h.Upper, h.Lower)
	}
	if h.Upper > h.Special {
		bad("pd_upper %d exceeds pd_special %d", h.Upper, h.Special)
	}
	if int(h.Special) > blockSize {
		bad("pd_special %d exceeds block size %d", h.Special, blockSize)
	}
	return errs
}

// BlockSize reads the page size from a block 0 header. Anything that is not a
// power of two within the supported range falls back to the default.
func BlockSize(p []byte) (int, error) {
	h, err := ParseHeader(p)
	if err != nil {
		return format.DefaultBlockSize, err
	}
	size := h.PageSize()
	if !format.IsPowerOfTwo(size) || size < format.MinBlockSize || size > format.MaxBlockSize {
		return format.DefaultBlockSize, fmt.Errorf("%w: invalid page size %d in block 0, assuming %d",
			format.ErrHeaderInvariant, size, format.DefaultBlockSize)
	}
	return size, nil
}

// VerifyChecksum compares the stored checksum with the one computed for the
// relation-relative block number.
func VerifyChecksum(p []byte, h Header, blkno uint32) error {
	calc := checksum.Page(p, blkno)
	if calc != h.Checksum {
		return fmt.Errorf("%w: stored 0x%04X, calculated 0x%04X", format.ErrChecksumMismatch, h.Checksum, calc)
	}
	return nil
}

func FlagString(flags uint16) string {
	return FlagNames(flags, []FlagName{
		{format.PDHasFreeLines, "PD_HAS_FREE_LINES"},
		{format.PDPageFull, "PD_PAGE_FULL"},
		{format.PDAllVisible, "PD_ALL_VISIBLE"},
	})
}

func joinFlags(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, " | ")
}

// EmitHeader annotates every header field.
func EmitHeader(b *emit.Block, h Header) {
	b.Tag(0, 8, format.YellowLight, "LSN: %s", h.LSN)
	b.Tag(8, 2, format.GreenBright, "checksum: 0x%04X", h.Checksum)
	b.Tag(10, 2, format.YellowDark, "pd_flags - %s", FlagString(h.Flags))
	b.Tag(12, 2, format.Maroon, "pd_lower: %d", h.Lower)
	b.Tag(14, 2, format.Maroon, "pd_upper: %d", h.Upper)
	b.Tag(16, 2, format.GreenBright, "pd_special: 0x%04X", h.Special)
	b.Tag(18, 2, format.Brown, "pd_pagesize_version - size: %d, version: %d", h.PageSize(), h.LayoutVersion())
	b.Tag(20, 4, format.RedLight, "pd_prune_xid: %d", h.PruneXID)
}
