package format

import "errors"

// ErrBadTag indicates a tag whose size is not a multiple of the alignment
// or is smaller than a minimum block.
var ErrBadTag = errors.New("format: malformed tag")

// ValidateTag checks a tag read from a real (non-sentinel) block.
func ValidateTag(size uint32) error {
	if size < MinBlockSize || size&AlignmentMask != 0 {
		return ErrBadTag
	}
	return nil
}
