// errors.go - Error taxonomy for decode diagnostics
package format

import (
	"errors"
	"fmt"
)

// ErrOutOfBounds is returned by the field accessors when a read would run
// past the bytes available.
var ErrOutOfBounds = errors.New("read out of bounds")

// Decode errors. Every diagnostic the decoder reports wraps one of these.
var (
	ErrBoundary                    = errors.New("boundary error")
	ErrUnknownSpecialSection       = errors.New("unknown special section")
	ErrSpecialSectionInconsistency = errors.New("special section inconsistency")
	ErrHeaderInvariant             = errors.New("header invariant violation")
	ErrChecksumMismatch            = errors.New("checksum mismatch")
	ErrItemPointerInvalid          = errors.New("invalid item pointer")
	ErrItemOutOfBounds             = errors.New("item out of bounds")
	ErrAttributeOverflow           = errors.New("attribute overflow")
	ErrUnsupportedLegacyFormat     = errors.New("unsupported legacy format")
	ErrPrematureEOF                = errors.New("premature end of file")
	ErrFileOpen                    = errors.New("file open failure")
	ErrOptionSyntax                = errors.New("option syntax error")
	ErrCompressedDatum             = errors.New("invalid compressed datum")

	// ErrPostingSegmentOverrun is also an ErrItemOutOfBounds.
	ErrPostingSegmentOverrun = fmt.Errorf("posting list segment overrun: %w", ErrItemOutOfBounds)
)

// Fatal reports whether err must stop a run before or instead of decoding.
func Fatal(err error) bool {
	return errors.Is(err, ErrFileOpen) || errors.Is(err, ErrOptionSyntax)
}

// kinds is searched in order; ErrPostingSegmentOverrun precedes the
// ErrItemOutOfBounds it wraps.
var kinds = []error{
	ErrPostingSegmentOverrun,
	ErrBoundary,
	ErrUnknownSpecialSection,
	ErrSpecialSectionInconsistency,
	ErrHeaderInvariant,
	ErrChecksumMismatch,
	ErrItemPointerInvalid,
	ErrItemOutOfBounds,
	ErrAttributeOverflow,
	ErrUnsupportedLegacyFormat,
	ErrPrematureEOF,
	ErrFileOpen,
	ErrOptionSyntax,
	ErrCompressedDatum,
	ErrOutOfBounds,
}

// ErrorKind names the taxonomy entry err wraps, or "unclassified".
func ErrorKind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k.Error()
		}
	}
	return "unclassified"
}
