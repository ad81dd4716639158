// Package daemon implements the daemon driver of §4.I: it owns the
// shared UDP socket, the PeerDb routing table, and one PeerTx per known
// peer, and exposes get_mutable and add_repo as the core's user-facing
// operations.
//
// Grounded on original_source/lightstore/src/daemon/daemon.rs (the
// socket/PeerDb/peer-map ownership and the recv-loop-folds-into-PeerDb
// shape) and get_mutable.rs (the ascending-XOR-distance routing walk).
package daemon

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net"
	"sync"

	"github.com/sirupsen/logrus"

	"lightstore/internal/lcrypto"
	"lightstore/internal/peerdb"
	"lightstore/internal/peertx"
	"lightstore/internal/udpsocket"
	"lightstore/internal/units"
	"lightstore/internal/wire"
	"lightstore/internal/xoraddr"
)

// daemonLog is this subsystem's logger, following the teacher's
// package-level-logrus-instance convention (cmd/cli/ipfs.go's ipfsLog,
// cmd/cli/storage.go's storageLG).
var daemonLog = logrus.New()

// Daemon owns one node's socket, routing table, and outbound peer
// queues. Per §9 "Global state" there is no package-level state: every
// Daemon is an independent instance, and a process may run several
// concurrently (useful for tests).
type Daemon struct {
	nodeID xoraddr.XorAddr
	socket *udpsocket.SharedSocket
	peers  *peerdb.PeerDb

	mu        sync.Mutex
	peerTxs   map[xoraddr.XorAddr]*peertx.PeerTx
	peerAddrs map[xoraddr.XorAddr]*net.UDPAddr
	repos     []string

	closeOnce sync.Once
}

// Start binds bindAddr, spawns the recv driver, and returns the running
// Daemon along with the address it actually bound to (useful when
// bindAddr asks for an ephemeral port).
func Start(bindAddr string, nodeID xoraddr.XorAddr) (*Daemon, *net.UDPAddr, error) {
	addr, err := net.ResolveUDPAddr("udp", bindAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrBind, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrBind, err)
	}

	d := &Daemon{
		nodeID:    nodeID,
		socket:    udpsocket.Share(conn),
		peers:     peerdb.New(),
		peerTxs:   make(map[xoraddr.XorAddr]*peertx.PeerTx),
		peerAddrs: make(map[xoraddr.XorAddr]*net.UDPAddr),
	}
	go d.recvLoop()
	daemonLog.WithField("addr", conn.LocalAddr()).Info("daemon started")
	return d, conn.LocalAddr().(*net.UDPAddr), nil
}

// Close shuts the daemon down: every per-peer PeerTx, then the shared
// socket (which in turn stops the recv loop).
func (d *Daemon) Close() error {
	var err error
	d.closeOnce.Do(func() {
		d.mu.Lock()
		for _, tx := range d.peerTxs {
			tx.Close()
		}
		d.mu.Unlock()
		err = d.socket.Close()
	})
	return err
}

// addrKey derives a routing-table key from a remote endpoint's socket
// address. The protocol has no separate peer-identity handshake on the
// gossip path (that only exists for the lightning reputation channel of
// §4.C/F), so the address itself stands in as the trie key, matching
// the original's use of SocketAddr as the PeerDb key on this path.
func addrKey(addr *net.UDPAddr) xoraddr.XorAddr {
	return xoraddr.XorAddr(sha256.Sum256([]byte(addr.String())))
}

// recvLoop owns the daemon's inbound path: every datagram is unpacked
// and folded into PeerDb under its sender's address key.
func (d *Daemon) recvLoop() {
	for {
		data, addr, err := d.socket.Recv()
		if err != nil {
			daemonLog.WithError(err).Debug("recv loop stopped")
			return
		}
		key := addrKey(addr)
		d.mu.Lock()
		_, known := d.peerAddrs[key]
		d.peerAddrs[key] = addr
		d.mu.Unlock()
		if !known {
			daemonLog.WithField("peer", addr).Info("discovered new peer")
		}

		for _, msg := range wire.DecodeAll(data) {
			d.peers.Insert(key, msg)
		}
	}
}

// peerTxFor returns (creating on first use) the outbound coalescer for
// dest.
func (d *Daemon) peerTxFor(dest *net.UDPAddr) *peertx.PeerTx {
	key := addrKey(dest)
	d.mu.Lock()
	defer d.mu.Unlock()
	d.peerAddrs[key] = dest
	if tx, ok := d.peerTxs[key]; ok {
		return tx
	}
	tx := peertx.FromPeerInfo(d.socket, dest)
	d.peerTxs[key] = tx
	return tx
}

// GetMutableResult is what get_mutable resolves with.
type GetMutableResult struct {
	Peer *net.UDPAddr
}

// GetMutable implements §4.I: compute key = node_id XOR id, then walk
// known peers in ascending-then-wraparound XOR-distance order from key,
// sending SenderGetMutable to each, until ctx is canceled, a send
// succeeds, or every candidate has been tried. The response-side
// acceptance predicate (verify signature against id, prefer higher
// version, satisfy price) has no source-of-truth upstream — §9 flags it
// as an open question rather than a detail this layer should guess at —
// so GetMutable's observable contract stops at "a request reached some
// peer", the minimum needed to make routing itself testable.
func (d *Daemon) GetMutable(ctx context.Context, id lcrypto.VerifyKey, params wire.GetMutableParams) (*GetMutableResult, error) {
	key := d.nodeID.XOR(id.ToXorAddr())
	candidates := d.peers.ClosestPeers(key)
	if len(candidates) == 0 {
		return nil, ErrNoPeers
	}

	msg := wire.SenderGetMutable{ID: id, Params: params}
	var lastErr error
	for _, c := range candidates {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		d.mu.Lock()
		dest := d.peerAddrs[c.Addr]
		d.mu.Unlock()
		if dest == nil {
			continue
		}

		tx := d.peerTxFor(dest)
		errCh := tx.SendMessage(msg, params.Price, params.PriceDecayOverTime)
		select {
		case err := <-errCh:
			if err != nil {
				lastErr = err
				continue
			}
			return &GetMutableResult{Peer: dest}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrNoPeers
}

// Handle is the opaque registration token AddRepo returns.
type Handle struct {
	Path string
}

// AddRepo registers an on-disk resource this node is willing to serve.
// Full VCS integration is explicitly out of scope (§1 Non-goals); this
// only records the capability so it can later be folded into this
// node's own outbound PeerInfo advertisement, per §4.I's note that the
// capability set (not the resource itself) is what PeerInfo publishes.
func (d *Daemon) AddRepo(path string) (*Handle, error) {
	if path == "" {
		return nil, ErrEmptyRepoPath
	}
	d.mu.Lock()
	d.repos = append(d.repos, path)
	d.mu.Unlock()
	return &Handle{Path: path}, nil
}

// Repos returns the paths registered via AddRepo so far.
func (d *Daemon) Repos() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.repos))
	copy(out, d.repos)
	return out
}

// PublishDownloadFee announces this node's current price to dest,
// matching the SenderDownloadFee gossip message of §6.
func (d *Daemon) PublishDownloadFee(dest *net.UDPAddr, price units.BtcPerByte) <-chan error {
	tx := d.peerTxFor(dest)
	return tx.SendMessage(wire.SenderDownloadFee{BtcPerByte: price}, units.Btc(float64(price)), units.Sec(60))
}
