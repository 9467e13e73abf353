package fake

import (
	"sync"

	"github.com/mabhi256/jdiag-bridge/internal/jdi"
)

// Thread is a fake jdi.ThreadReference with real JDI-style suspend-count
// semantics: N calls to Suspend require N calls to ResumeOnce before the
// thread actually runs again.
type Thread struct {
	vm       *VM
	mu       sync.Mutex
	name     string
	daemon   bool
	uniqueID int64
	suspends int
	frames   []*Frame
	status   jdi.ThreadStatus
}

func (t *Thread) Name() string     { return t.name }
func (t *Thread) UniqueID() int64  { return t.uniqueID }
func (t *Thread) IsDaemon() bool   { return t.daemon }

func (t *Thread) IsSuspended() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.suspends > 0
}

func (t *Thread) SuspendCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.suspends
}

// Status reports the non-suspended RUNNING/WAITING distinction; IsSuspended
// takes precedence over it when the caller renders the coarse state
// (spec.md §4.H). Defaults to RUNNING; SetStatus overrides for scenarios
// that need a WAITING thread.
func (t *Thread) Status() jdi.ThreadStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *Thread) SetStatus(s jdi.ThreadStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = s
}

func (t *Thread) Suspend() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.suspends++
}

func (t *Thread) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.suspends = 0
}

func (t *Thread) ResumeOnce() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.suspends > 0 {
		t.suspends--
	}
}

func (t *Thread) resetSuspend() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.suspends = 0
}

func (t *Thread) Frames() ([]jdi.StackFrame, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]jdi.StackFrame, len(t.frames))
	for i, f := range t.frames {
		out[i] = f
	}
	return out, nil
}

// SetFrames installs the stack the next inspection will observe, topmost
// frame first.
func (t *Thread) SetFrames(frames ...*Frame) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, f := range frames {
		f.thread = t
	}
	t.frames = frames
}

// Frame is a fake jdi.StackFrame: a location plus a set of named local
// variables.
type Frame struct {
	thread *Thread
	loc    *Location
	locals map[string]jdi.Value
	order  []string
}

func NewFrame(loc *Location) *Frame {
	return &Frame{loc: loc, locals: make(map[string]jdi.Value)}
}

func (f *Frame) WithLocal(name string, v jdi.Value) *Frame {
	if _, exists := f.locals[name]; !exists {
		f.order = append(f.order, name)
	}
	f.locals[name] = v
	return f
}

func (f *Frame) Location() jdi.Location { return f.loc }
func (f *Frame) Thread() jdi.ThreadReference { return f.thread }

func (f *Frame) VisibleVariables() ([]jdi.LocalVariable, error) {
	out := make([]jdi.LocalVariable, len(f.order))
	for i, name := range f.order {
		out[i] = localVar(name)
	}
	return out, nil
}

func (f *Frame) GetLocalValue(v jdi.LocalVariable) (jdi.Value, error) {
	val, ok := f.locals[v.Name()]
	if !ok {
		return jdi.Value{}, jdi.ErrObjectCollected
	}
	return val, nil
}

type localVar string

func (l localVar) Name() string { return string(l) }
