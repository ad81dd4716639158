package daemon

import "errors"

var (
	// ErrBind is returned by Start when the UDP socket cannot be bound
	// (§7 Resource); this is fatal per §7's propagation policy.
	ErrBind = errors.New("daemon: udp bind failed")

	// ErrNoPeers is returned by GetMutable when PeerDb holds no
	// candidates at all.
	ErrNoPeers = errors.New("daemon: no known peers to route through")

	// ErrEmptyRepoPath is returned by AddRepo for an empty path.
	ErrEmptyRepoPath = errors.New("daemon: empty repo path")
)
