package routine

import (
	"strconv"
	"unicode/utf16"
)

// HashMessage derives the stable acknowledgement key for a finding
// message: a 32-bit rolling hash rendered in base 36. Existing stored
// acknowledgements are keyed by exactly this function, including its
// overflow behavior and the leading minus sign on negative values, so
// it must never change.
func HashMessage(msg string) string {
	var h int32
	for _, c := range utf16.Encode([]rune(msg)) {
		h = (h << 5) - h + int32(c)
	}
	return strconv.FormatInt(int64(h), 36)
}
