package noise

import "errors"

var (
	// ErrInvalidAct is returned when a handshake act fails to decrypt or
	// parse, indicating a corrupted message or a peer without the
	// expected static key.
	ErrInvalidAct = errors.New("noise: invalid handshake act")

	// ErrShortRead is returned when a framed transport message is
	// truncated.
	ErrShortRead = errors.New("noise: short read")
)
