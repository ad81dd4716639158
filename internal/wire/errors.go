package wire

import "errors"

var (
	// ErrTruncated is returned when a datagram ends mid-message.
	ErrTruncated = errors.New("wire: message truncated")

	// ErrUnknownTag is returned for a message tag the decoder doesn't
	// recognize. Per §6, an unknown tag drops the rest of the datagram
	// rather than erroring the whole connection.
	ErrUnknownTag = errors.New("wire: unknown message tag")
)
