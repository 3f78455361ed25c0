package main

/*
#include <stdlib.h>
#include <string.h>

extern void *mtrace_real_malloc(size_t n);
extern void *mtrace_real_calloc(size_t n, size_t sz);
extern void *mtrace_real_realloc(void *p, size_t n);
extern void  mtrace_real_free(void *p);
extern void  mtrace_real_cfree(void *p);
extern void *mtrace_real_memalign(size_t align, size_t n);
extern int   mtrace_real_posix_memalign(void **p, size_t align, size_t n);
extern void *mtrace_real_aligned_alloc(size_t align, size_t n);
extern void *mtrace_real_valloc(size_t n);
extern void *mtrace_real_pvalloc(size_t n);
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/sergey-senozhatsky/libmtrace"
)

// earlyAlloc serves size bytes, at the arena's default alignment, out of
// the early-init arena when the tracer has not finished its own
// initialization yet, grounded on __init_alloc. earlyAllocAligned does the
// same at a caller-chosen alignment (0 meaning the arena's default).
func earlyAlloc(size uintptr) unsafe.Pointer {
	return earlyAllocAligned(size, 0)
}

func earlyAllocAligned(size, alignment uintptr) unsafe.Pointer {
	if size == 0 {
		size = 1
	}
	b := tracer.EarlyAlloc(size, alignment)
	return unsafe.Pointer(&b[0])
}

//export malloc
func malloc(size C.size_t) unsafe.Pointer {
	ensureInit()
	if !tracer.Ready() {
		return earlyAlloc(uintptr(size))
	}

	ef := tracer.BeginEvent(mtrace.EventMalloc)
	ef.WriteCall("%s(%d)", tracer.Tag(mtrace.EventMalloc), size)
	ret := C.mtrace_real_malloc(size)
	ef.ForcePageFault(cBytes(ret, uintptr(size)))
	ef.Finish(mtrace.EventMalloc.Class(), uint64(size), fmt.Sprintf("0x%x", ret))
	return ret
}

//export calloc
func calloc(nmemb, size C.size_t) unsafe.Pointer {
	ensureInit()
	if !tracer.Ready() {
		return earlyAlloc(uintptr(nmemb) * uintptr(size))
	}

	ef := tracer.BeginEvent(mtrace.EventCalloc)
	ef.WriteCall("%s(%d, %d)", tracer.Tag(mtrace.EventCalloc), nmemb, size)
	ret := C.mtrace_real_calloc(nmemb, size)
	ef.ForcePageFault(cBytes(ret, uintptr(nmemb)*uintptr(size)))
	ef.Finish(mtrace.EventCalloc.Class(), uint64(nmemb)*uint64(size), fmt.Sprintf("0x%x", ret))
	return ret
}

//export realloc
func realloc(ptr unsafe.Pointer, size C.size_t) unsafe.Pointer {
	if !tracer.Ready() {
		return earlyAlloc(uintptr(size))
	}
	ensureInit()

	ef := tracer.BeginEvent(mtrace.EventRealloc)
	ef.WriteCall("%s(0x%x, %d)", tracer.Tag(mtrace.EventRealloc), ptr, size)
	ret := C.mtrace_real_realloc(ptr, size)
	ef.Finish(mtrace.EventRealloc.Class(), uint64(size), fmt.Sprintf("0x%x", ret))
	return ret
}

//export free
func free(ptr unsafe.Pointer) {
	if !tracer.Ready() {
		return
	}
	ensureInit()

	ef := tracer.BeginEvent(mtrace.EventFree)
	ef.WriteCall("%s(0x%x)", tracer.Tag(mtrace.EventFree), ptr)
	C.mtrace_real_free(ptr)
	ef.Finish(mtrace.EventFree.Class(), 0, "")
}

//export cfree
func cfree(ptr unsafe.Pointer) {
	if !tracer.Ready() {
		return
	}
	ensureInit()

	ef := tracer.BeginEvent(mtrace.EventCfree)
	ef.WriteCall("%s(0x%x)", tracer.Tag(mtrace.EventCfree), ptr)
	C.mtrace_real_cfree(ptr)
	ef.Finish(mtrace.EventCfree.Class(), 0, "")
}

//export memalign
func memalign(alignment, size C.size_t) unsafe.Pointer {
	ensureInit()
	if !tracer.Ready() {
		return earlyAllocAligned(uintptr(size), uintptr(alignment))
	}

	ef := tracer.BeginEvent(mtrace.EventMemalign)
	ef.WriteCall("%s(%d, %d)", tracer.Tag(mtrace.EventMemalign), alignment, size)
	ret := C.mtrace_real_memalign(alignment, size)
	ef.ForcePageFault(cBytes(ret, uintptr(size)))
	ef.Finish(mtrace.EventMemalign.Class(), uint64(size), fmt.Sprintf("0x%x", ret))
	return ret
}

//export posix_memalign
func posix_memalign(memptr *unsafe.Pointer, alignment, size C.size_t) C.int {
	ensureInit()
	if !tracer.Ready() {
		*memptr = earlyAllocAligned(uintptr(size), uintptr(alignment))
		return 0
	}

	ef := tracer.BeginEvent(mtrace.EventPosixMemalign)
	ef.WriteCall("%s(%d, %d)", tracer.Tag(mtrace.EventPosixMemalign), alignment, size)
	rc := C.mtrace_real_posix_memalign(memptr, alignment, size)
	ef.ForcePageFault(cBytes(*memptr, uintptr(size)))
	ef.Finish(mtrace.EventPosixMemalign.Class(), uint64(size), fmt.Sprintf("%d", rc))
	return rc
}

//export aligned_alloc
func aligned_alloc(alignment, size C.size_t) unsafe.Pointer {
	ensureInit()
	if !tracer.Ready() {
		return earlyAllocAligned(uintptr(size), uintptr(alignment))
	}

	ef := tracer.BeginEvent(mtrace.EventAlignedAlloc)
	ef.WriteCall("%s(%d, %d)", tracer.Tag(mtrace.EventAlignedAlloc), alignment, size)
	ret := C.mtrace_real_aligned_alloc(alignment, size)
	ef.ForcePageFault(cBytes(ret, uintptr(size)))
	ef.Finish(mtrace.EventAlignedAlloc.Class(), uint64(size), fmt.Sprintf("0x%x", ret))
	return ret
}

//export valloc
func valloc(size C.size_t) unsafe.Pointer {
	ensureInit()
	if !tracer.Ready() {
		// valloc's ABI contract is a page-aligned pointer; the arena must
		// honor that even before the tracer is ready, grounded on
		// __init_alloc(__size, page_size) in the original's valloc override.
		return earlyAllocAligned(uintptr(size), mtrace.PageSize())
	}

	ef := tracer.BeginEvent(mtrace.EventValloc)
	ef.WriteCall("%s(%d)", tracer.Tag(mtrace.EventValloc), size)
	ret := C.mtrace_real_valloc(size)
	ef.ForcePageFault(cBytes(ret, uintptr(size)))
	ef.Finish(mtrace.EventValloc.Class(), uint64(size), fmt.Sprintf("0x%x", ret))
	return ret
}

//export pvalloc
func pvalloc(size C.size_t) unsafe.Pointer {
	ensureInit()
	if !tracer.Ready() {
		// pvalloc rounds up to and aligns to the physical page size,
		// grounded on __init_alloc(__size, phys_page_size) in the
		// original's pvalloc override.
		return earlyAllocAligned(uintptr(size), mtrace.PhysPageSize())
	}

	ef := tracer.BeginEvent(mtrace.EventPvalloc)
	ef.WriteCall("%s(%d)", tracer.Tag(mtrace.EventPvalloc), size)
	ret := C.mtrace_real_pvalloc(size)
	ef.ForcePageFault(cBytes(ret, uintptr(size)))
	ef.Finish(mtrace.EventPvalloc.Class(), uint64(size), fmt.Sprintf("0x%x", ret))
	return ret
}
