//go:build cgo && linux

package mtrace

/*
#cgo LDFLAGS: -lunwind
#define UNW_LOCAL_ONLY
#include <libunwind.h>
#include <string.h>

// cgo cannot call unw_get_reg's out-param macro expansion directly in a
// way that's pleasant from Go, so these three trampolines do the actual
// libunwind calls and hand back plain C types.

static int mtrace_unw_init(unw_cursor_t *cursor, unw_context_t *uc) {
	if (unw_getcontext(uc) != 0)
		return -1;
	if (unw_init_local(cursor, uc) != 0)
		return -1;
	return 0;
}

static int mtrace_unw_ip(unw_cursor_t *cursor, unw_word_t *ip) {
	return unw_get_reg(cursor, UNW_REG_IP, ip);
}

static int mtrace_unw_proc_name(unw_cursor_t *cursor, char *buf, size_t bufsz, unw_word_t *offset, unw_word_t *start_ip, unw_word_t *end_ip) {
	int rc = unw_get_proc_name(cursor, buf, bufsz, offset);
	if (rc != 0)
		return rc;
	unw_proc_info_t pip;
	if (unw_get_proc_info(cursor, &pip) != 0)
		return -1;
	*start_ip = pip.start_ip;
	*end_ip = pip.end_ip;
	return 0;
}
*/
import "C"

import (
	"unsafe"
)

// maxSymbolNameLen mirrors MAX_FN_NAME_BUF_SZ.
const maxSymbolNameLen = 4096

// libunwindUnwinder is a direct Go port of unwind_trace.c's use of
// libunwind's UNW_LOCAL_ONLY API: unw_getcontext, unw_init_local,
// unw_get_reg(UNW_REG_IP), unw_get_proc_name, unw_get_proc_info, unw_step,
// and unw_flush_cache. This is the backend cmd/mtrace-preload wires into a
// Driver, since it is the only mechanism available to Go for walking a
// native (non-Go) call stack.
type libunwindUnwinder struct{}

// NewLibunwindUnwinder returns the cgo-backed Unwinder used to trace the
// native call stack of the process the tracer is loaded into.
func NewLibunwindUnwinder() Unwinder {
	return libunwindUnwinder{}
}

func (libunwindUnwinder) Capture(pcs []uintptr, skip int) int {
	var cursor C.unw_cursor_t
	var uc C.unw_context_t
	if C.mtrace_unw_init(&cursor, &uc) != 0 {
		return 0
	}

	n := 0
	i := 0
	for n < len(pcs) {
		var ip C.unw_word_t
		if C.mtrace_unw_ip(&cursor, &ip) != 0 {
			break
		}
		if i >= skip {
			pcs[n] = uintptr(ip)
			n++
		}
		i++
		if C.unw_step(&cursor) <= 0 {
			break
		}
	}
	return n
}

func (libunwindUnwinder) Name(pc uintptr) (string, uint64, uint64, bool) {
	var cursor C.unw_cursor_t
	var uc C.unw_context_t
	if C.mtrace_unw_init(&cursor, &uc) != 0 {
		return "", 0, 0, false
	}

	// Step the cursor until its IP matches pc: libunwind resolves
	// proc-name/proc-info relative to the cursor's current frame, not an
	// arbitrary address, so we have to walk back to the frame we
	// actually captured pc from.
	for {
		var ip C.unw_word_t
		if C.mtrace_unw_ip(&cursor, &ip) != 0 {
			return "", 0, 0, false
		}
		if uintptr(ip) == pc {
			break
		}
		if C.unw_step(&cursor) <= 0 {
			return "", 0, 0, false
		}
	}

	buf := make([]byte, maxSymbolNameLen)
	var offset, start, end C.unw_word_t
	rc := C.mtrace_unw_proc_name(&cursor, (*C.char)(unsafe.Pointer(&buf[0])), C.size_t(len(buf)), &offset, &start, &end)
	if rc != 0 {
		return "", 0, 0, false
	}
	name := C.GoString((*C.char)(unsafe.Pointer(&buf[0])))
	return name, uint64(start), uint64(end), true
}

func (libunwindUnwinder) FlushCache() {
	C.unw_flush_cache(C.unw_local_addr_space, 0, 0)
}
