package udpsocket

import "errors"

// ErrClosed is returned by Send/Recv once the socket has been closed.
var ErrClosed = errors.New("udpsocket: socket closed")
