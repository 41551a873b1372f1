// version.go - Target format versions and the capabilities they select
package format

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a server major version in PG_VERSION_NUM/100 form: 904, 905, 906, 1000, 1100 ...
type Version int

const (
	Version94 Version = 904
	Version95 Version = 905
	Version96 Version = 906
	Version10 Version = 1000
	Version11 Version = 1100
	Version12 Version = 1200
	Version13 Version = 1300
	Version14 Version = 1400
	Version15 Version = 1500
	Version16 Version = 1600
	Version17 Version = 1700

	DefaultVersion = Version16
)

// ParseVersion accepts "9.4" through "9.6" and "10" through "17".
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "9."); ok {
		minor, err := strconv.Atoi(rest)
		if err != nil || minor < 4 || minor > 6 {
			return 0, fmt.Errorf("%w: unsupported format version %q", ErrOptionSyntax, s)
		}
		return Version(900 + minor), nil
	}
	major, err := strconv.Atoi(s)
	if err != nil || major < 10 || major > 17 {
		return 0, fmt.Errorf("%w: unsupported format version %q", ErrOptionSyntax, s)
	}
	return Version(major * 100), nil
}

func (v Version) String() string {
	if v < Version10 {
		return fmt.Sprintf("9.%d", int(v)-900)
	}
	return strconv.Itoa(int(v) / 100)
}

// PivotFormat says how nbtree marks and truncates pivot tuples.
type PivotFormat int

const (
	PivotPlain          PivotFormat = iota // INDEX_ALT_TID_MASK unused
	PivotAltTID                            // natts in the offset field
	PivotAltTIDHeapTID                     // natts plus an optional trailing heap TID
)

func (p PivotFormat) String() string {
	switch p {
	case PivotPlain:
		return "plain"
	case PivotAltTID:
		return "alt-tid"
	case PivotAltTIDHeapTID:
		return "alt-tid-with-heap-tid"
	}
	return "unknown"
}

// Capabilities lists every format fork the decoders branch on.
type Capabilities struct {
	Version              Version
	PostingListTuples    bool // nbtree deduplication
	Pivot                PivotFormat
	GinCompressedPosting bool
	Brin                 bool
	LegacyOIDs           bool // HEAP_HASOID tuples can exist
	BTreeFullXID         bool // BTP_HAS_FULLXID, btpo_level always valid
	BTreeMetaCleanup     bool // btm_oldest_btpo_xact and btm_last_cleanup_num_heap_tuples
	BTreeAllEqualImage   bool // btm_allequalimage in the metapage
}

// Capabilities derives the capability record for v.
func (v Version) Capabilities() Capabilities {
	c := Capabilities{
		Version:              v,
		GinCompressedPosting: v >= Version94,
		Brin:                 v >= Version95,
		LegacyOIDs:           v < Version12,
		BTreeMetaCleanup:     v >= Version11,
		PostingListTuples:    v >= Version13,
		BTreeAllEqualImage:   v >= Version13,
		BTreeFullXID:         v >= Version14,
	}
	switch {
	case v >= Version12:
		c.Pivot = PivotAltTIDHeapTID
	case v >= Version11:
		c.Pivot = PivotAltTID
	default:
		c.Pivot = PivotPlain
	}
	return c
}
