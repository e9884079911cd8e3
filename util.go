package clone

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

// Roundup rounds n up to the nearest multiple of align, which must be a power of two.
func Roundup[T constraints.Integer](n, align T) T { return (n + (align - 1)) &^ (align - 1) }

// MaxPadding defines the maximum number of trailing bytes accepted after the root value.
// Anything larger is considered a framing error rather than padding.
const MaxPadding = 1024 // 1KB

// CheckTrailingZeros verifies that the bytes left after decoding are all zero.
// Storage layers may pad a payload up to a block size; any other byte after
// the root value indicates a corrupted or spliced stream.
func CheckTrailingZeros(rest []byte) error {
	if len(rest) == 0 {
		return nil
	}
	if len(rest) > MaxPadding {
		return fmt.Errorf("%w: %d bytes exceeds maximum padding of %d bytes", ErrTrailingData, len(rest), MaxPadding)
	}
	for i, b := range rest {
		if b != 0 {
			return fmt.Errorf("%w: found non-zero byte 0x%02x at offset %d", ErrTrailingData, b, i)
		}
	}
	return nil
}

// Pad appends zero bytes to data until its length is a multiple of align.
func Pad(data []byte, align int) []byte {
	if align <= 1 {
		return data
	}
	n := Roundup(len(data), align)
	return append(data, make([]byte, n-len(data))...)
}
