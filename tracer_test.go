package mtrace

import (
	"bytes"
	"strings"
	"testing"
)

func newTestTracer(t *testing.T) (*Tracer, *bytes.Buffer) {
	t.Helper()
	tr := New("testprog")
	tr.EnsureInit(fakeEnv(map[string]string{"MTRACE_REPORTING_MODE": "full"}))
	tr.BindUnwinder(NewRuntimeUnwinder())

	var buf bytes.Buffer
	tr.sink = &Sink{w: &buf}
	return tr, &buf
}

func TestTracerEnsureInitIsIdempotent(t *testing.T) {
	tr := New("testprog")
	calls := 0
	getenv := func(key string) (string, bool) {
		calls++
		return "", false
	}
	tr.EnsureInit(getenv)
	firstCalls := calls
	tr.EnsureInit(getenv)
	if calls != firstCalls {
		t.Errorf("EnsureInit ran the orchestrator again: calls went from %d to %d", firstCalls, calls)
	}
	if !tr.Ready() {
		t.Error("Ready() = false after EnsureInit")
	}
}

func TestTracerBeginEventSuppressesReentrantCall(t *testing.T) {
	tr, _ := newTestTracer(t)

	outer := tr.BeginEvent(EventMalloc)
	if !outer.Outermost() {
		t.Fatal("first BeginEvent on a thread should be outermost")
	}

	inner := tr.BeginEvent(EventFree)
	if inner.Outermost() {
		t.Fatal("nested BeginEvent should be suppressed")
	}
	inner.Finish(classRelease, 0, "0")

	outer.Finish(classMallocLike, 16, "0x1")
}

func TestTracerEventFrameRecordsCallAndReturn(t *testing.T) {
	tr, buf := newTestTracer(t)

	ef := tr.BeginEvent(EventMalloc)
	ef.WriteCall("%s(%d)", tr.Tag(EventMalloc), 16)
	ef.Finish(classMallocLike, 16, "0x1000")

	out := buf.String()
	if !strings.Contains(out, "MA$(16)") {
		t.Errorf("output %q missing call text", out)
	}
	if !strings.Contains(out, "=0x1000") {
		t.Errorf("output %q missing return value", out)
	}
	if !strings.Contains(out, "[t:") {
		t.Errorf("output %q missing thread tag", out)
	}
}

func TestTracerEventFrameWithRecorderFeedsRecorder(t *testing.T) {
	tr, _ := newTestTracer(t)
	rec := tr.EnableProfile()

	ef := tr.BeginEvent(EventMalloc)
	ef.WriteCall("malloc(32)")
	ef.Finish(classMallocLike, 32, "0x2000")

	prof := rec.BuildProfile()
	if len(prof.Sample) == 0 {
		t.Fatal("expected the recorder to have accumulated at least one sample")
	}
}

func TestTracerForcePageFaultOnlyActsInGrowthMode(t *testing.T) {
	tr := New("testprog")
	tr.EnsureInit(fakeEnv(map[string]string{"MTRACE_REPORTING_MODE": "alloc"}))
	tr.BindUnwinder(NewRuntimeUnwinder())
	tr.sink = NewStderrSink()

	ef := tr.BeginEvent(EventMalloc)
	b := bytes.Repeat([]byte{0xff}, 16)
	ef.ForcePageFault(b)
	ef.Finish(classMallocLike, 16, "0x1")
	for i, v := range b {
		if v != 0xff {
			t.Fatalf("ModeAllocOnly: byte %d = %#x after ForcePageFault, want it untouched", i, v)
		}
	}

	growth := &EventFrame{tracer: &Tracer{opts: Options{Mode: ModeGrowth}}}
	g := bytes.Repeat([]byte{0xff}, 16)
	growth.ForcePageFault(g)
	for i, v := range g {
		if v != 0 {
			t.Fatalf("ModeGrowth: byte %d = %#x after ForcePageFault, want 0", i, v)
		}
	}
}
