package ondisk

import "errors"

// Sentinel error kinds from spec §7. Decode and resolution functions wrap
// these with errors.%w so callers can match with errors.Is while still
// getting a descriptive message.
var (
	ErrMalformed          = errors.New("malformed record")
	ErrUnsupported        = errors.New("unsupported on-disk feature")
	ErrCorruptCompression = errors.New("corrupt compressed block")
	ErrNoValidUberblock   = errors.New("no valid uberblock found")
	ErrObjectMissing      = errors.New("object number exceeds object set")
)
