package secure

import (
	"runtime"
	"sync/atomic"
)

// sentinel marks the reader count as mid-transition; a concurrent
// Acquire/Release that observes it spins until the transition settles.
const sentinel = ^uint64(0)

// Secure is a guarded secret buffer. It is created by New, shared by
// Clone (which increments a reference count), and released by Close
// (which decrements it, zeroing and returning the memory to the
// allocator when the last owner closes). While any reader holds a
// Guard the buffer is mapped readable; otherwise it is inaccessible.
type Secure struct {
	alloc       Allocator
	payload     []byte
	refCount    *atomic.Int64
	readerCount *atomic.Uint64
}

// New allocates a size-byte secure buffer, hands the caller's init
// closure exclusive read-write access to fill it in, then marks the
// page inaccessible. The returned Secure owns one reference.
func New(size int, init func(payload []byte)) (*Secure, error) {
	return NewWithAllocator(Default, size, init)
}

// NewWithAllocator is New with an explicit Allocator, used by tests to
// instrument zeroization (§8 property 2).
func NewWithAllocator(a Allocator, size int, init func(payload []byte)) (*Secure, error) {
	payload, err := a.Alloc(size)
	if err != nil {
		return nil, err
	}
	init(payload)
	if err := a.Protect(payload, ProtNone); err != nil {
		a.Free(payload)
		return nil, err
	}
	s := &Secure{
		alloc:       a,
		payload:     payload,
		refCount:    new(atomic.Int64),
		readerCount: new(atomic.Uint64),
	}
	s.refCount.Store(1)
	return s, nil
}

// Clone increments the reference count and returns a new handle sharing
// the same backing memory. The returned handle must be Closed
// independently of the original.
func (s *Secure) Clone() *Secure {
	s.refCount.Add(1)
	return &Secure{
		alloc:       s.alloc,
		payload:     s.payload,
		refCount:    s.refCount,
		readerCount: s.readerCount,
	}
}

// Close releases this handle's reference. When the last reference is
// closed the memory is zeroed and returned to the allocator.
func (s *Secure) Close() {
	if s.refCount.Add(-1) == 0 {
		s.alloc.Free(s.payload)
	}
}

// Guard is a scoped read handle produced by Acquire. Payload is valid
// only until Release is called.
type Guard struct {
	s *Secure
}

// Acquire produces a read guard, making the buffer's page readable if
// it was not already. The sentinel-swap protocol serializes only the
// 0↔1 reader-count transition; additional concurrent readers proceed
// without contending on the allocator.
func (s *Secure) Acquire() Guard {
	for {
		old := s.readerCount.Swap(sentinel)
		if old == sentinel {
			// another goroutine is mid-transition; yield and retry.
			runtime.Gosched()
			continue
		}
		if old == 0 {
			_ = s.alloc.Protect(s.payload, ProtRead)
		}
		s.readerCount.Store(old + 1)
		return Guard{s: s}
	}
}

// Bytes returns the guarded payload. Valid only between Acquire and
// Release.
func (g Guard) Bytes() []byte {
	return g.s.payload
}

// Release ends this read guard, marking the page inaccessible again if
// this was the last outstanding reader.
func (g Guard) Release() {
	s := g.s
	for {
		old := s.readerCount.Swap(sentinel)
		if old == sentinel {
			runtime.Gosched()
			continue
		}
		if old == 1 {
			_ = s.alloc.Protect(s.payload, ProtNone)
		}
		s.readerCount.Store(old - 1)
		return
	}
}

// Equal performs a constant-time comparison of the two buffers' payloads.
func (s *Secure) Equal(other *Secure) bool {
	ga := s.Acquire()
	defer ga.Release()
	gb := other.Acquire()
	defer gb.Release()
	a, b := ga.Bytes(), gb.Bytes()
	if len(a) != len(b) {
		return false
	}
	var diff byte
	for i := range a {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}
