// Package peertx implements the per-peer outbound message coalescer
// (§4.G): every message queued for one peer funnels through a single
// driver that orders the backlog by decayed utility and hands the
// highest-utility message to the shared UDP socket next.
//
// Grounded on peer_tx.rs. That driver's create_packet only ever pops one
// message per datagram despite MAX_MSG_LEN implying batching was meant
// to fill a datagram — the packing loop was never finished in the
// original, so this keeps the one-message-per-datagram behavior rather
// than inventing a batching scheme the source never specified.
package peertx

import (
	"net"
	"time"

	"lightstore/internal/udpsocket"
	"lightstore/internal/units"
	"lightstore/internal/wire"
)

// MaxMsgLen is the largest message this coalescer will place in one
// datagram.
const MaxMsgLen = 500

// ErrTooLarge is returned by SendMessage when the encoded message
// exceeds MaxMsgLen.
type ErrTooLarge struct{ Len int }

func (e ErrTooLarge) Error() string { return "peertx: message exceeds max datagram size" }

type pendingSend struct {
	msg          wire.Msg
	utility      units.Btc
	utilityDecay units.Sec
	utilityTime  time.Time
	result       chan error
}

func (p *pendingSend) utilityAt(now time.Time) units.Btc {
	elapsed := units.SecFromDuration(now.Sub(p.utilityTime))
	return units.UtilityAt(p.utility, p.utilityDecay, elapsed)
}

// PeerTx is the outbound message queue for one peer.
type PeerTx struct {
	sendCh chan *pendingSend
	doneCh chan struct{}
}

// FromPeerInfo starts a PeerTx driver sending through socket to dest.
func FromPeerInfo(socket *udpsocket.SharedSocket, dest *net.UDPAddr) *PeerTx {
	tx := &PeerTx{
		sendCh: make(chan *pendingSend),
		doneCh: make(chan struct{}),
	}
	go tx.driveLoop(socket, dest)
	return tx
}

// SendMessage queues msg with the given utility bookkeeping (§3), and
// returns a channel that receives the eventual send result.
func (tx *PeerTx) SendMessage(msg wire.Msg, utility units.Btc, utilityDecay units.Sec) <-chan error {
	p := &pendingSend{
		msg:          msg,
		utility:      utility,
		utilityDecay: utilityDecay,
		utilityTime:  time.Now(),
		result:       make(chan error, 1),
	}
	if buf := msg.Encode(nil); len(buf) > MaxMsgLen {
		p.result <- ErrTooLarge{Len: len(buf)}
		return p.result
	}
	select {
	case tx.sendCh <- p:
	case <-tx.doneCh:
		p.result <- udpsocket.ErrClosed
	}
	return p.result
}

// Close stops the driver goroutine.
func (tx *PeerTx) Close() { close(tx.doneCh) }

func (tx *PeerTx) driveLoop(socket *udpsocket.SharedSocket, dest *net.UDPAddr) {
	var queue []*pendingSend
	for {
		if len(queue) == 0 {
			select {
			case p := <-tx.sendCh:
				queue = append(queue, p)
			case <-tx.doneCh:
				return
			}
			continue
		}

		drain := true
		for drain {
			select {
			case p := <-tx.sendCh:
				queue = append(queue, p)
			case <-tx.doneCh:
				return
			default:
				drain = false
			}
		}

		now := time.Now()
		insertionSortByUtility(queue, now)

		next := queue[0]
		queue = queue[1:]

		data := next.msg.Encode(nil)
		pkt := udpsocket.NewOutgoingPacket(data, dest, next.utility, next.utilityDecay)
		err := socket.Send(pkt)
		next.result <- err
	}
}

// insertionSortByUtility orders the backlog ascending by currently
// decayed utility, same as peer_tx.rs's comparator, and the front
// (smallest remaining utility) is what gets popped and sent next. §4.G
// orders on decayed Btc utility directly, unlike the shared socket's own
// queue which orders on the BtcPerSec decay rate (§4.E).
func insertionSortByUtility(queue []*pendingSend, now time.Time) {
	for i := 1; i < len(queue); i++ {
		for j := i; j > 0; j-- {
			if queue[j].utilityAt(now) < queue[j-1].utilityAt(now) {
				queue[j], queue[j-1] = queue[j-1], queue[j]
			} else {
				break
			}
		}
	}
}
