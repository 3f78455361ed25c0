package main

import (
	"fmt"
	"unsafe"
)

// fmt_x formats a C pointer return value the way the original's output()
// calls do: "0x<addr>" (EventFrame.Finish prepends the "=").
func fmt_x(p unsafe.Pointer) string {
	return fmt.Sprintf("0x%x", p)
}

// cBytes views n bytes starting at p as a Go slice, for feeding into
// EventFrame.ForcePageFault. A nil p or zero n yields a nil slice, which
// ForcePageFault already treats as a no-op.
func cBytes(p unsafe.Pointer, n uintptr) []byte {
	if p == nil || n == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(p), n)
}
