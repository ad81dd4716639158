package peerdb

import (
	"sync"

	"lightstore/internal/units"
	"lightstore/internal/wire"
)

// PeerInfo is the mutable per-peer state kept in a trie leaf: the
// download fee the peer last advertised, stored in log-space, and a
// variance for that estimate, which starts at 1.0 and is not updated.
// It holds no address candidates; the daemon keeps peer socket
// addresses in its own map. Grounded on peer_info.rs.
type PeerInfo struct {
	mu sync.Mutex

	expDownloadFee units.LogBtcPerByte
	varDownloadFee float64
}

// NewPeerInfo creates a PeerInfo seeded from a just-received message,
// mirroring PeerInfo::from_msg.
func NewPeerInfo(msg wire.Msg) *PeerInfo {
	p := &PeerInfo{varDownloadFee: 1.0}
	p.Update(msg)
	return p
}

// Update applies a newly-received message: a SenderDownloadFee replaces
// the stored fee estimate with the advertised one.
func (p *PeerInfo) Update(msg wire.Msg) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch m := msg.(type) {
	case wire.SenderDownloadFee:
		p.expDownloadFee = m.BtcPerByte.Log()
	default:
		// Messages that don't carry peer state (e.g. SenderGetMutable)
		// leave the running estimate untouched.
	}
}

// DownloadFeeEstimate returns this peer's current expected
// Btc-per-Byte download price and the variance of that estimate, both
// in log-space.
func (p *PeerInfo) DownloadFeeEstimate() (units.LogBtcPerByte, float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.expDownloadFee, p.varDownloadFee
}
