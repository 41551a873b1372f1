// lsn.go - Log sequence numbers
package page

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wilhasse/go-pghexedit/format"
)

// LSN is a write-ahead log position.
type LSN uint64

func (l LSN) String() string {
	return fmt.Sprintf("%X/%08X", uint32(l>>32), uint32(l))
}

// ParseLSN parses the "hi/lo" hexadecimal form.
func ParseLSN(s string) (LSN, error) {
	hi, lo, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return 0, fmt.Errorf("%w: LSN %q is not in X/X form", format.ErrOptionSyntax, s)
	}
	h, err := strconv.ParseUint(hi, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: LSN %q: %v", format.ErrOptionSyntax, s, err)
	}
	l, err := strconv.ParseUint(lo, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: LSN %q: %v", format.ErrOptionSyntax, s, err)
	}
	return LSN(h<<32 | l), nil
}
