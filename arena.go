package mtrace

import (
	"fmt"
	"os"
	"sync"
	"unsafe"
)

// arenaSize mirrors INIT_BUF_SZ: 2 MiB of storage good for the handful of
// allocations libc and the dynamic loader perform before the tracer has
// resolved its own real_malloc et al.
const arenaSize = 2 << 20

// minAlignment mirrors MIN_ALIGNMENT: sizeof(size_t) on the target.
const minAlignment = 8

func alignUp(size, alignment uintptr) uintptr {
	return (size + alignment - 1) &^ (alignment - 1)
}

// arena is a fixed-size bump allocator used for the handful of allocations
// that happen before the tracer has resolved the real allocator entry
// points. It never frees; callers that free an arena-backed pointer get a
// silent no-op from the shim layer, matching __init_free in the original.
type arena struct {
	mu     sync.Mutex
	buf    [arenaSize]byte
	offset uintptr
}

// alloc reserves size bytes (rounded up to alignment) at an address aligned
// to alignment and returns a slice over the reserved region. It prints a
// diagnostic to stderr and exits the process when the arena is exhausted:
// there is no sensible recovery this early in the process lifetime.
func (a *arena) alloc(size, alignment uintptr) []byte {
	if alignment == 0 {
		alignment = minAlignment
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	base := uintptr(unsafe.Pointer(&a.buf[0]))
	start := alignUp(base+a.offset, alignment) - base
	end := start + alignUp(size, alignment)
	if end >= uintptr(len(a.buf)) {
		fmt.Fprintf(os.Stderr, "mtrace: ERROR: init buf size exhausted: %d requested, %d available\n", end, len(a.buf))
		os.Exit(1)
	}
	a.offset = end
	return a.buf[start : start+size : start+size]
}

// zeroForcePageFault writes every byte of b one at a time. It exists so
// that the early-init path can force the pages backing a fresh allocation
// resident without calling back into the very memset shim that may not be
// wired up yet.
func zeroForcePageFault(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
