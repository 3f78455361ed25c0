//go:build mtrace_atomic_backtrace

package mtrace

import (
	"log"

	"golang.org/x/sys/unix"
)

// blockingSignalGuard blocks every signal for the calling OS thread across
// the sensitive region and restores the previous mask afterward, grounded
// on __block_all_signals/__restore_all_signals. It uses
// unix.PthreadSigmask rather than a raw sigprocmask(2) call so the Go
// runtime's own signal bookkeeping (which is itself thread-aware) is not
// bypassed. A single guard instance is shared process-wide, so the
// previous mask is returned as a token rather than stored on the guard.
type blockingSignalGuard struct{}

func newSignalGuard() signalGuard {
	return blockingSignalGuard{}
}

func (blockingSignalGuard) Block() any {
	var full unix.Sigset_t
	for i := range full.Val {
		full.Val[i] = ^uint64(0)
	}
	var old unix.Sigset_t
	if err := unix.PthreadSigmask(unix.SIG_BLOCK, &full, &old); err != nil {
		log.Fatalf("mtrace: unable to block signals: %s", err)
	}
	return &old
}

func (blockingSignalGuard) Restore(token any) {
	old, ok := token.(*unix.Sigset_t)
	if !ok || old == nil {
		return
	}
	if err := unix.PthreadSigmask(unix.SIG_SETMASK, old, nil); err != nil {
		log.Fatalf("mtrace: unable to restore signal mask: %s", err)
	}
}
