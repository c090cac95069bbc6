package shortcode

import "errors"

var (
	// ErrInvalidDriver is returned when the configured driver name is unknown or reserved.
	ErrInvalidDriver = errors.New("invalid short code driver")
	// ErrExhausted is returned when an increment carries past the most significant digit.
	ErrExhausted = errors.New("short code sequence exhausted")
	// ErrCodeSpaceExhausted is returned when no unused code is left within the attempt bound.
	ErrCodeSpaceExhausted = errors.New("no unused short code available")
	// ErrInvalidCode is returned for codes of the wrong length or with unknown symbols.
	ErrInvalidCode = errors.New("invalid short code")
	// ErrInvalidConfig is returned for alphabets or lengths that cannot form a code space.
	ErrInvalidConfig = errors.New("invalid short code configuration")
)

// IsExhausted reports whether err means no new code can be issued under the
// current configuration.
func IsExhausted(err error) bool {
	return errors.Is(err, ErrExhausted) || errors.Is(err, ErrCodeSpaceExhausted)
}
