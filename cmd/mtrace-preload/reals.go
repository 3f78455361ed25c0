package main

/*
#cgo LDFLAGS: -ldl
#define _GNU_SOURCE
#include <dlfcn.h>
#include <stdlib.h>
#include <string.h>
#include <sys/mman.h>
#include <sys/types.h>

// Real function pointers, resolved once via dlsym(RTLD_NEXT, ...), grounded
// on the glibc_* pointer table in libmtrace.c. Every shim in this directory
// calls through one of the mtrace_real_* trampolines below rather than the
// libc name directly, since the libc name is the very symbol this shared
// object overrides.

static void  *(*real_malloc)(size_t)                                  = 0;
static void  *(*real_calloc)(size_t, size_t)                          = 0;
static void  *(*real_realloc)(void *, size_t)                         = 0;
static void   (*real_free)(void *)                                    = 0;
static void   (*real_cfree)(void *)                                   = 0;
static void  *(*real_memalign)(size_t, size_t)                        = 0;
static int    (*real_posix_memalign)(void **, size_t, size_t)         = 0;
static void  *(*real_aligned_alloc)(size_t, size_t)                   = 0;
static void  *(*real_valloc)(size_t)                                  = 0;
static void  *(*real_pvalloc)(size_t)                                 = 0;
static void  *(*real_memset)(void *, int, size_t)                     = 0;
static void  *(*real_memmove)(void *, const void *, size_t)           = 0;
static void  *(*real_mmap)(void *, size_t, int, int, int, off_t)      = 0;
static int    (*real_munmap)(void *, size_t)                          = 0;
static int    (*real_mlock)(const void *, size_t)                     = 0;
static int    (*real_munlock)(const void *, size_t)                  = 0;
static int    (*real_mlockall)(int)                                   = 0;
static int    (*real_munlockall)(void)                                = 0;
static char  *(*real_getenv)(const char *)                            = 0;
static int    (*real_dlclose)(void *)                                 = 0;

static void mtrace_resolve_reals(void) {
	real_malloc           = dlsym(RTLD_NEXT, "malloc");
	real_calloc           = dlsym(RTLD_NEXT, "calloc");
	real_realloc          = dlsym(RTLD_NEXT, "realloc");
	real_free             = dlsym(RTLD_NEXT, "free");
	real_cfree            = dlsym(RTLD_NEXT, "cfree");
	real_memalign         = dlsym(RTLD_NEXT, "memalign");
	real_posix_memalign   = dlsym(RTLD_NEXT, "posix_memalign");
	real_aligned_alloc    = dlsym(RTLD_NEXT, "aligned_alloc");
	real_valloc           = dlsym(RTLD_NEXT, "valloc");
	real_pvalloc          = dlsym(RTLD_NEXT, "pvalloc");
	real_memset           = dlsym(RTLD_NEXT, "memset");
	real_memmove          = dlsym(RTLD_NEXT, "memmove");
	real_mmap             = dlsym(RTLD_NEXT, "mmap");
	real_munmap           = dlsym(RTLD_NEXT, "munmap");
	real_mlock            = dlsym(RTLD_NEXT, "mlock");
	real_munlock          = dlsym(RTLD_NEXT, "munlock");
	real_mlockall         = dlsym(RTLD_NEXT, "mlockall");
	real_munlockall       = dlsym(RTLD_NEXT, "munlockall");
	real_getenv           = dlsym(RTLD_NEXT, "getenv");
	real_dlclose          = dlsym(RTLD_NEXT, "dlclose");
}

static void  *mtrace_real_malloc(size_t n)                         { return real_malloc(n); }
static void  *mtrace_real_calloc(size_t n, size_t sz)               { return real_calloc(n, sz); }
static void  *mtrace_real_realloc(void *p, size_t n)                { return real_realloc(p, n); }
static void   mtrace_real_free(void *p)                             { real_free(p); }
static void   mtrace_real_cfree(void *p)                            { real_cfree(p); }
static void  *mtrace_real_memalign(size_t align, size_t n)          { return real_memalign(align, n); }
static int    mtrace_real_posix_memalign(void **p, size_t align, size_t n) { return real_posix_memalign(p, align, n); }
static void  *mtrace_real_aligned_alloc(size_t align, size_t n)     { return real_aligned_alloc(align, n); }
static void  *mtrace_real_valloc(size_t n)                          { return real_valloc(n); }
static void  *mtrace_real_pvalloc(size_t n)                         { return real_pvalloc(n); }
static void  *mtrace_real_memset(void *p, int c, size_t n)          { return real_memset(p, c, n); }
static void  *mtrace_real_memmove(void *dst, const void *src, size_t n) { return real_memmove(dst, src, n); }
static void  *mtrace_real_mmap(void *addr, size_t len, int prot, int flags, int fd, off_t off) {
	return real_mmap(addr, len, prot, flags, fd, off);
}
static int    mtrace_real_munmap(void *addr, size_t len)            { return real_munmap(addr, len); }
static int    mtrace_real_mlock(const void *addr, size_t len)       { return real_mlock(addr, len); }
static int    mtrace_real_munlock(const void *addr, size_t len)     { return real_munlock(addr, len); }
static int    mtrace_real_mlockall(int flags)                       { return real_mlockall(flags); }
static int    mtrace_real_munlockall(void)                          { return real_munlockall(); }
static char  *mtrace_real_getenv(const char *name)                  { return real_getenv(name); }
static int    mtrace_real_dlclose(void *handle)                     { return real_dlclose(handle); }
*/
import "C"

import "sync"

var resolveOnce sync.Once

// ensureReals resolves every real_* libc entry point exactly once. It is
// called from ensureInit rather than from an init func: Go's own package
// initializers may run before the dynamic linker has finished processing
// this shared object's dependencies, so resolution is deferred to the
// first intercepted call instead, matching __init_mtrace's dlsym block.
func ensureReals() {
	resolveOnce.Do(func() {
		C.mtrace_resolve_reals()
	})
}
