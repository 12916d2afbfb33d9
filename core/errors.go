package core

import "errors"

// Sentinel errors for the sanitization boundary. Every failure returned by
// the sanitizer wraps exactly one of these, so callers classify outcomes
// with errors.Is instead of string matching.
var (
	// ErrDecode indicates the raw byte input could not be interpreted as
	// text (invalid UTF-8). It can only occur on the bytes entry path.
	ErrDecode = errors.New("decode error")

	// ErrMalformed indicates structurally invalid input: not valid JSON,
	// oversized, or exceeding the nesting depth limit.
	ErrMalformed = errors.New("malformed input")
)

// Rejection reason categories, used for crasher records and metrics labels.
const (
	ReasonDecodeError = "decode_error"
	ReasonMalformed   = "malformed"
)

// RejectReason maps a sanitizer error to its reason category. Errors outside
// the sanitizer's taxonomy map to the empty string.
func RejectReason(err error) string {
	switch {
	case errors.Is(err, ErrDecode):
		return ReasonDecodeError
	case errors.Is(err, ErrMalformed):
		return ReasonMalformed
	default:
		return ""
	}
}
