//go:build linux

package secure

import (
	"golang.org/x/sys/unix"
)

// mmapAllocator backs Secure buffers with an anonymous private mapping
// of whole pages, best-effort mlock'd against swap, whose access is
// switched with mprotect. No separate guard pages surround the mapping.
type mmapAllocator struct{}

func newPlatformAllocator() Allocator { return mmapAllocator{} }

func (mmapAllocator) Alloc(n int) ([]byte, error) {
	size := pageAlign(n)
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, err
	}
	// Best-effort: locking may fail under a low RLIMIT_MEMLOCK; the
	// buffer is still usable, just not guaranteed to stay out of swap.
	_ = unix.Mlock(b)
	return b[:n], nil
}

func (mmapAllocator) Protect(b []byte, prot Protection) error {
	full := pageExtend(b)
	switch prot {
	case ProtNone:
		return unix.Mprotect(full, unix.PROT_NONE)
	case ProtRead:
		return unix.Mprotect(full, unix.PROT_READ)
	default:
		return unix.Mprotect(full, unix.PROT_READ|unix.PROT_WRITE)
	}
}

func (mmapAllocator) Free(b []byte) {
	full := pageExtend(b)
	_ = unix.Mprotect(full, unix.PROT_READ|unix.PROT_WRITE)
	for i := range full {
		full[i] = 0
	}
	_ = unix.Munlock(full)
	_ = unix.Munmap(full)
}

const pageSize = 4096

func pageAlign(n int) int {
	if n%pageSize == 0 {
		return n
	}
	return (n/pageSize + 1) * pageSize
}

// pageExtend recovers the full page-aligned mapping from a sub-slice
// returned by Alloc, since Mmap/Mprotect/Munmap all operate on the
// entire mapping.
func pageExtend(b []byte) []byte {
	return b[:cap(b)]
}
