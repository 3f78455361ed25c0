package mtrace

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// Sink is where committed event records go. A Sink is safe for concurrent
// use by multiple threadStates.
type Sink struct {
	mu sync.Mutex
	w  io.Writer
	f  *os.File
}

// NewStderrSink returns a Sink that writes to standard error, the fallback
// used whenever MTRACE_LOG_DIR is unset or unusable.
func NewStderrSink() *Sink {
	return &Sink{w: os.Stderr}
}

// NewFileSink creates (or truncates) "mtrace-<progName>-<pid>" under dir,
// grounded on create_mtrace_file/mtrace_init_file in the original
// implementation's output.c. The descriptor is marked close-on-exec so a
// traced process that execs a child does not leak the log fd into it.
func NewFileSink(dir, progName string, pid int) (*Sink, error) {
	path := filepath.Join(dir, fmt.Sprintf("mtrace-%s-%d", progName, pid))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("mtrace: creating log file: %w", err)
	}
	unix.CloseOnExec(int(f.Fd()))
	return &Sink{w: f, f: f}, nil
}

// Write commits a full record to the sink in one call, matching the
// original's single fprintf-per-commit behavior.
func (s *Sink) Write(b []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(b); err != nil {
		log.Printf("mtrace: writing event record: %s", err)
	}
}

// Close releases the underlying file, if any.
func (s *Sink) Close() error {
	if s.f == nil {
		return nil
	}
	return s.f.Close()
}

// appendf formats into the thread's output buffer, truncating and logging
// instead of growing without bound when the record would overflow
// outputBufferSize. This mirrors the original's "would overflow, log and
// keep going" behavior in output.c's output().
func (st *threadState) appendf(format string, args ...any) {
	s := fmt.Sprintf(format, args...)
	if len(st.buf)+len(s) > outputBufferSize {
		log.Printf("mtrace: output buffer overflow on thread %d, truncating record", st.tid)
		remaining := outputBufferSize - len(st.buf)
		if remaining > 0 {
			st.buf = append(st.buf, s[:remaining]...)
		}
		return
	}
	st.buf = append(st.buf, s...)
}

// pidTag appends the header token identifying the calling thread, grounded
// on output_event_pid: despite its name, the original emits "[t:%ld]" from
// __get_pid(), which is actually gettid() under the hood, not the process
// id — every thread's events are tagged with that thread's own id.
func (st *threadState) pidTag(tid int) {
	st.appendf("[t:%d]", tid)
}

// timestampTag appends the header token identifying when the event frame
// started, grounded on output_event_timestamp. The trailing space matches
// the original's "[t:%lu.%06d] " format, separating this tag from the
// call-opening text WriteCall appends right after it.
func (st *threadState) timestampTag(t time.Time) {
	st.appendf("[t:%d.%06d] ", t.Unix(), t.Nanosecond()/1000)
}

// commit flushes the thread's buffer to sink in one call and resets it,
// grounded on output_commit.
func (st *threadState) commit(sink *Sink) {
	if len(st.buf) == 0 {
		return
	}
	sink.Write(st.buf)
	st.buf = st.buf[:0]
}
