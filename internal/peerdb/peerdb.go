// Package peerdb implements the daemon's routing table (§4.H): a
// lock-free binary trie over 256-bit XorAddr keys, storing one PeerInfo
// per known peer and supporting XOR-distance-ordered closest-peer
// lookups for request routing.
//
// Grounded on
// original_source/lightstore/src/daemon/peer/{peer_db.rs,peer_info.rs}.
// The Rust version builds on a hand-rolled AtomicArc (atomically
// swappable, refcounted Arc) for lock-free compare-and-swap insertion;
// Go's sync/atomic.Pointer[T] gives the same compare-and-swap semantics
// directly (backed by the garbage collector instead of refcounting, so
// there's no analogue needed for Arc's Drop-on-zero-refcount release).
package peerdb

import (
	"sort"
	"sync/atomic"

	"lightstore/internal/wire"
	"lightstore/internal/xoraddr"
)

// node is either a Split (an internal branch dividing its subtree on
// bit `depth`) or a Single (a leaf holding one peer's info), matching
// peer_db.rs's NodeKind enum. Go has no tagged union, so isSplit
// distinguishes the two uses of the struct explicitly.
type node struct {
	prefix  xoraddr.XorAddr
	isSplit bool

	// Split fields.
	depth  uint32
	onZero atomic.Pointer[node]
	onOne  atomic.Pointer[node]

	// Single fields.
	addr xoraddr.XorAddr
	info *PeerInfo
}

func (n *node) prefixLen() uint32 {
	if n.isSplit {
		return n.depth
	}
	return xoraddr.BitLen
}

// PeerDb is a lock-free routing table keyed by XorAddr.
type PeerDb struct {
	top atomic.Pointer[node]
}

// New returns an empty PeerDb.
func New() *PeerDb {
	return &PeerDb{}
}

// Insert records a message received under the given XorAddr key,
// creating a new PeerInfo on first sight or updating the existing one.
func (db *PeerDb) Insert(addr xoraddr.XorAddr, msg wire.Msg) {
	nodeInsert(&db.top, addr, msg)
}

func nodeInsert(slot *atomic.Pointer[node], addr xoraddr.XorAddr, msg wire.Msg) {
	for {
		cur := slot.Load()
		if cur == nil {
			leaf := &node{prefix: addr, addr: addr, info: NewPeerInfo(msg)}
			if slot.CompareAndSwap(nil, leaf) {
				return
			}
			continue
		}

		xorDiff := cur.prefix.XOR(addr)
		newDepth := xorDiff.LeadingZeros()

		if newDepth < cur.prefixLen() {
			single := &node{prefix: addr, addr: addr, info: NewPeerInfo(msg)}
			split := &node{isSplit: true, depth: newDepth}
			prefix := addr
			prefix.ClearBits(newDepth)
			split.prefix = prefix
			if addr.GetBit(newDepth) {
				split.onZero.Store(cur)
				split.onOne.Store(single)
			} else {
				split.onZero.Store(single)
				split.onOne.Store(cur)
			}
			if slot.CompareAndSwap(cur, split) {
				return
			}
			continue
		}

		if !cur.isSplit {
			cur.info.Update(msg)
			return
		}

		if addr.GetBit(cur.depth) {
			nodeInsert(&cur.onOne, addr, msg)
		} else {
			nodeInsert(&cur.onZero, addr, msg)
		}
		return
	}
}

// Lookup returns the PeerInfo stored under addr, if any.
func (db *PeerDb) Lookup(addr xoraddr.XorAddr) (*PeerInfo, bool) {
	cur := db.top.Load()
	for cur != nil {
		if !cur.isSplit {
			if cur.addr.Equal(addr) {
				return cur.info, true
			}
			return nil, false
		}
		if addr.GetBit(cur.depth) {
			cur = cur.onOne.Load()
		} else {
			cur = cur.onZero.Load()
		}
	}
	return nil, false
}

// successor finds the smallest stored key >= addr beneath n, reading
// the trie as an ordered structure (the onZero subtree always precedes
// onOne in XorAddr order, since they're split on a single bit).
func successor(n *node, addr xoraddr.XorAddr) (xoraddr.XorAddr, *PeerInfo, bool) {
	if n == nil {
		return xoraddr.XorAddr{}, nil, false
	}
	if !n.isSplit {
		if n.addr.Compare(addr) >= 0 {
			return n.addr, n.info, true
		}
		return xoraddr.XorAddr{}, nil, false
	}

	// Every key under n shares n.prefix in its first depth bits; if addr
	// differs there, the whole subtree lies on one side of addr.
	masked := addr
	masked.ClearBits(n.depth)
	if c := masked.Compare(n.prefix); c < 0 {
		return min(n)
	} else if c > 0 {
		return xoraddr.XorAddr{}, nil, false
	}

	if addr.GetBit(n.depth) {
		// addr's bit is 1 at this depth: only the onOne subtree can
		// contain keys >= addr; onZero is entirely smaller.
		return successor(n.onOne.Load(), addr)
	}
	// addr's bit is 0: try onZero first (it may still contain a key
	// >= addr), falling back to the minimum of onOne (all of which is
	// necessarily >= addr since its bit is 1 here).
	if a, info, ok := successor(n.onZero.Load(), addr); ok {
		return a, info, true
	}
	return min(n.onOne.Load())
}

func min(n *node) (xoraddr.XorAddr, *PeerInfo, bool) {
	if n == nil {
		return xoraddr.XorAddr{}, nil, false
	}
	if !n.isSplit {
		return n.addr, n.info, true
	}
	if a, info, ok := min(n.onZero.Load()); ok {
		return a, info, true
	}
	return min(n.onOne.Load())
}

// ClosestRoute returns the peer whose XorAddr key is the smallest one
// >= key (ascending XOR-distance order), wrapping around to the
// smallest key overall if key is past every stored peer. Mirrors
// get_mutable.rs's two-range lookup: `known_peers.range(&key..)` then,
// on exhaustion, `known_peers.range(..&key)`.
func (db *PeerDb) ClosestRoute(key xoraddr.XorAddr) (xoraddr.XorAddr, *PeerInfo, bool) {
	top := db.top.Load()
	if a, info, ok := successor(top, key); ok {
		return a, info, true
	}
	return min(top)
}

// Entry pairs one stored address with its PeerInfo, returned by
// ClosestPeers.
type Entry struct {
	Addr xoraddr.XorAddr
	Info *PeerInfo
}

// ClosestPeers returns every stored peer in ascending-then-wraparound
// order starting at key, the multi-candidate counterpart to
// ClosestRoute used by get_mutable's "iterate from key upward then
// downward" routing policy (§4.I): the whole known peer set, rotated so
// the first entry is the same one ClosestRoute would have picked.
func (db *PeerDb) ClosestPeers(key xoraddr.XorAddr) []Entry {
	all := collectInOrder(db.top.Load())
	if len(all) == 0 {
		return nil
	}
	idx := sort.Search(len(all), func(i int) bool { return all[i].Addr.Compare(key) >= 0 })
	out := make([]Entry, 0, len(all))
	out = append(out, all[idx:]...)
	out = append(out, all[:idx]...)
	return out
}

// collectInOrder walks the trie in ascending address order (onZero
// strictly precedes onOne at every split, since they differ only in one
// bit).
func collectInOrder(n *node) []Entry {
	if n == nil {
		return nil
	}
	if !n.isSplit {
		return []Entry{{Addr: n.addr, Info: n.info}}
	}
	out := collectInOrder(n.onZero.Load())
	return append(out, collectInOrder(n.onOne.Load())...)
}
