//go:build !mtrace_tizen_workaround

package main

// platformGetenvOverride is a no-op on every platform that does not need
// the Tizen libunwind workaround (see tizen_workaround.go).
func platformGetenvOverride(name string) (value string, handled bool) {
	return "", false
}
