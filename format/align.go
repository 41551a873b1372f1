// align.go - Alignment helpers
package format

// Align classes as written in pg_type.typalign.
type Align byte

const (
	AlignChar   Align = 'c'
	AlignShort  Align = 's'
	AlignInt    Align = 'i'
	AlignDouble Align = 'd'
)

// Width returns the boundary in bytes, or 0 for an unknown class.
func (a Align) Width() int {
	switch a {
	case AlignChar:
		return 1
	case AlignShort:
		return 2
	case AlignInt:
		return 4
	case AlignDouble:
		return 8
	}
	return 0
}

// Apply rounds off up to the class boundary.
func (a Align) Apply(off int) int {
	w := a.Width()
	if w <= 1 {
		return off
	}
	return (off + w - 1) &^ (w - 1)
}

func MaxAlign(n int) int   { return AlignDouble.Apply(n) }
func ShortAlign(n int) int { return AlignShort.Apply(n) }

// BitmapLen is the byte length of a null bitmap covering natts columns.
func BitmapLen(natts int) int { return (natts + 7) / 8 }

// IsPowerOfTwo reports whether n is a power of two.
func IsPowerOfTwo(n int) bool { return n > 0 && n&(n-1) == 0 }
