package main

/*
#include <sys/mman.h>
#include <sys/types.h>

extern void *mtrace_real_mmap(void *addr, size_t len, int prot, int flags, int fd, off_t off);
extern int   mtrace_real_munmap(void *addr, size_t len);
extern int   mtrace_real_mlock(const void *addr, size_t len);
extern int   mtrace_real_munlock(const void *addr, size_t len);
extern int   mtrace_real_mlockall(int flags);
extern int   mtrace_real_munlockall(void);
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/sergey-senozhatsky/libmtrace"
)

// Mapping and locking calls made before initialization has completed
// cannot be emulated out of the early-init arena the way an allocation can
// be: there is no way to synthesize a mapping or a lock, and letting the
// call through unobserved would leave the range cache unaware of a fresh
// PROT_EXEC mapping. The original aborts outright in this situation
// (libmtrace.c's "if (!global_init_done) abort()" guard, repeated in every
// function below); these shims do the same via mtrace.Errorf.

//export mmap
func mmap(addr unsafe.Pointer, length C.size_t, prot, flags, fd C.int, offset C.off_t) unsafe.Pointer {
	ensureInit()
	if !tracer.Ready() {
		mtrace.Errorf("mmap called before initialization completed")
		return nil
	}

	ef := tracer.BeginEvent(mtrace.EventMmap)
	ef.WriteCall("%s(0x%x, %d, %d, %d, %d, %d)", tracer.Tag(mtrace.EventMmap), addr, length, prot, flags, fd, offset)
	ret := C.mtrace_real_mmap(addr, length, prot, flags, fd, offset)

	if prot&C.PROT_EXEC != 0 {
		tracer.FlushCaches()
	}

	ef.Finish(mtrace.EventMmap.Class(), uint64(length), fmt.Sprintf("0x%x", ret))
	return ret
}

//export munmap
func munmap(addr unsafe.Pointer, length C.size_t) C.int {
	ensureInit()
	if !tracer.Ready() {
		mtrace.Errorf("munmap called before initialization completed")
		return -1
	}

	ef := tracer.BeginEvent(mtrace.EventMunmap)
	ef.WriteCall("%s(0x%x, %d)", tracer.Tag(mtrace.EventMunmap), addr, length)
	ret := C.mtrace_real_munmap(addr, length)
	ef.Finish(mtrace.EventMunmap.Class(), 0, fmt.Sprintf("%d", ret))
	return ret
}

//export mlock
func mlock(addr unsafe.Pointer, length C.size_t) C.int {
	ensureInit()
	if !tracer.Ready() {
		mtrace.Errorf("mlock called before initialization completed")
		return -1
	}

	ef := tracer.BeginEvent(mtrace.EventMlock)
	ef.WriteCall("%s(0x%x, %d)", tracer.Tag(mtrace.EventMlock), addr, length)
	ret := C.mtrace_real_mlock(addr, length)
	ef.Finish(mtrace.EventMlock.Class(), uint64(length), fmt.Sprintf("%d", ret))
	return ret
}

//export munlock
func munlock(addr unsafe.Pointer, length C.size_t) C.int {
	ensureInit()
	if !tracer.Ready() {
		mtrace.Errorf("munlock called before initialization completed")
		return -1
	}

	ef := tracer.BeginEvent(mtrace.EventMunlock)
	ef.WriteCall("%s(0x%x, %d)", tracer.Tag(mtrace.EventMunlock), addr, length)
	ret := C.mtrace_real_munlock(addr, length)
	ef.Finish(mtrace.EventMunlock.Class(), uint64(length), fmt.Sprintf("%d", ret))
	return ret
}

//export mlockall
func mlockall(flags C.int) C.int {
	ensureInit()
	if !tracer.Ready() {
		mtrace.Errorf("mlockall called before initialization completed")
		return -1
	}

	ef := tracer.BeginEvent(mtrace.EventMlockall)
	ef.WriteCall("%s(%d)", tracer.Tag(mtrace.EventMlockall), flags)
	ret := C.mtrace_real_mlockall(flags)
	ef.Finish(mtrace.EventMlockall.Class(), 0, fmt.Sprintf("%d", ret))
	return ret
}

//export munlockall
func munlockall() C.int {
	ensureInit()
	if !tracer.Ready() {
		mtrace.Errorf("munlockall called before initialization completed")
		return -1
	}

	ef := tracer.BeginEvent(mtrace.EventMunlockall)
	ef.WriteCall("%s()", tracer.Tag(mtrace.EventMunlockall))
	ret := C.mtrace_real_munlockall()
	ef.Finish(mtrace.EventMunlockall.Class(), 0, fmt.Sprintf("%d", ret))
	return ret
}
