package main

/*
#include <string.h>

extern void *mtrace_real_memset(void *p, int c, size_t n);
extern void *mtrace_real_memmove(void *dst, const void *src, size_t n);
*/
import "C"

import (
	"unsafe"

	"github.com/sergey-senozhatsky/libmtrace"
)

//export memset
func memset(s unsafe.Pointer, c C.int, n C.size_t) unsafe.Pointer {
	if !tracer.Ready() {
		// Can't call ensureInit here: the dynamic loader's own early
		// calls into memset must not recurse back into it, grounded
		// on the original's "We can't __init() here" comment. The real
		// memset may not be resolved yet either, so the bytes are set
		// one at a time here and no event is recorded.
		b := cBytes(s, uintptr(n))
		for i := range b {
			b[i] = byte(c)
		}
		return s
	}
	ensureInit()

	ef := tracer.BeginEvent(mtrace.EventMemset)
	ef.WriteCall("%s(0x%x, %d, %d)", tracer.Tag(mtrace.EventMemset), s, c, n)
	ret := C.mtrace_real_memset(s, c, n)
	ef.Finish(mtrace.EventMemset.Class(), uint64(n), fmt_x(ret))
	return ret
}

//export memmove
func memmove(dst unsafe.Pointer, src unsafe.Pointer, n C.size_t) unsafe.Pointer {
	ensureInit()
	if !tracer.Ready() {
		return C.mtrace_real_memmove(dst, src, n)
	}

	ef := tracer.BeginEvent(mtrace.EventMemmove)
	ef.WriteCall("%s(0x%x, 0x%x, %d)", tracer.Tag(mtrace.EventMemmove), dst, src, n)
	ret := C.mtrace_real_memmove(dst, src, n)
	ef.Finish(mtrace.EventMemmove.Class(), 0, fmt_x(ret))
	return ret
}
