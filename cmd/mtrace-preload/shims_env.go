package main

/*
#include <stdlib.h>
#include <string.h>

extern char *mtrace_real_getenv(const char *name);
extern int   mtrace_real_dlclose(void *handle);
*/
import "C"

import (
	"unsafe"

	"github.com/sergey-senozhatsky/libmtrace"
)

//export getenv
func getenv(name *C.char) *C.char {
	// MALLOC_OPTIONS is consulted by glibc's own malloc implementation
	// during its first allocation, which can happen while this shim is
	// still resolving real_* via dlsym; answering it here without
	// triggering ensureInit avoids the dlsym-inside-calloc-inside-getenv
	// deadlock the original's getenv() comment documents at length.
	key := C.GoString(name)
	if key == "MALLOC_OPTIONS" {
		return nil
	}
	if v, handled := platformGetenvOverride(key); handled {
		return C.CString(v)
	}

	ensureInit()
	return C.mtrace_real_getenv(name)
}

//export dlclose
func dlclose(handle unsafe.Pointer) C.int {
	ensureInit()
	if !tracer.Ready() {
		mtrace.Errorf("dlclose called before initialization completed")
		return -1
	}

	ret := C.mtrace_real_dlclose(handle)

	// Caching policy is turned on for the local unwind address space, so
	// it must be flushed to avoid stale reads once a shared object has
	// been unmapped, grounded on libmtrace.c's dlclose override. The
	// flush itself runs with the reentrancy gate held suppressed, mirroring
	// the original's TRACING_DISABLE()/TRACING_ENABLE() bracket around
	// unwind_flush_cache()/maps_cache_deferred_flush(): neither call should
	// itself be observed as a traced event or recurse back into one.
	tracer.SuppressReentrancy(tracer.FlushCaches)
	return ret
}
