package udpsocket

import (
	"net"
	"time"

	"lightstore/internal/units"
)

// OutgoingPacket is one datagram waiting to go out, along with the
// utility bookkeeping that prioritizes it against every other queued
// datagram. Grounded on outgoing_packet.rs.
type OutgoingPacket struct {
	Data []byte
	Dest *net.UDPAddr

	utility      units.Btc
	utilityDecay units.Sec
	utilityTime  time.Time

	result chan error
}

// NewOutgoingPacket builds a packet whose utility starts decaying from
// now.
func NewOutgoingPacket(data []byte, dest *net.UDPAddr, utility units.Btc, utilityDecay units.Sec) *OutgoingPacket {
	return &OutgoingPacket{
		Data:         data,
		Dest:         dest,
		utility:      utility,
		utilityDecay: utilityDecay,
		utilityTime:  time.Now(),
		result:       make(chan error, 1),
	}
}

// decayRateAt returns how fast this packet's utility is currently
// bleeding away (always ≤0; the most negative value is the most urgent
// packet to send next, per §4.E).
func (p *OutgoingPacket) decayRateAt(now time.Time) units.BtcPerSec {
	elapsed := units.SecFromDuration(now.Sub(p.utilityTime))
	return units.DecayRateAt(p.utility, p.utilityDecay, elapsed)
}
