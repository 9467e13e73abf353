// Package threads implements spec.md §4.H: thread listing, stepping with
// a one-shot completion signal, VM-wide and per-thread resume, and stack
// traces — all sharing internal/stopped's payload builder with the
// breakpoint subsystem.
package threads

import (
	"fmt"
	"sync"
	"time"

	"github.com/mabhi256/jdiag-bridge/internal/jdi"
	"github.com/mabhi256/jdiag-bridge/internal/rpcerr"
)

// State is the coarse three-way thread classification spec.md §4.H
// reports; SUSPENDED takes precedence over the JDI RUNNING/WAITING split.
type State string

const (
	StateSuspended State = "SUSPENDED"
	StateRunning   State = "RUNNING"
	StateWaiting   State = "WAITING"
)

func stateOf(t jdi.ThreadReference) State {
	if t.IsSuspended() {
		return StateSuspended
	}
	if t.Status() == jdi.ThreadWaiting {
		return StateWaiting
	}
	return StateRunning
}

// ThreadSummary is one entry of list_threads' response.
type ThreadSummary struct {
	Name   string `json:"name"`
	State  State  `json:"state"`
	Daemon bool   `json:"daemon"`
}

// ListResult is list_threads' full response shape.
type ListResult struct {
	Threads       []ThreadSummary `json:"threads"`
	TotalThreads  int             `json:"total_threads"`
	ShownThreads  int             `json:"shown_threads"`
	Truncated     bool            `json:"truncated"`
	IncludeDaemon bool            `json:"include_daemon"`
	MaxThreads    int             `json:"max_threads"`
}

// Controller owns the single in-flight step and the suspended_at_ms map
// spec.md §4.H and §4.H's ANR warning both reference; one per attached
// session.
type Controller struct {
	mu           sync.Mutex
	pending      *PendingStep
	suspendedAt  map[string]time.Time
	invalidate   func()
}

// NewController wires invalidateCache as the object-cache invalidation
// hook every suspend/resume transition must trigger (spec.md §4.H:
// "Both paths invalidate the object cache").
func NewController(invalidateCache func()) *Controller {
	return &Controller{
		suspendedAt: make(map[string]time.Time),
		invalidate:  invalidateCache,
	}
}

func (c *Controller) markSuspended(t jdi.ThreadReference, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.suspendedAt[t.Name()] = at
}

// MarkSuspended is markSuspended exported for use as a breakpoint/
// exception dispatch callback from outside this package (the event loop
// wires it in as a Hooks.MarkSuspended regardless of which subsystem
// suspended the thread).
func (c *Controller) MarkSuspended(t jdi.ThreadReference, at time.Time) {
	c.markSuspended(t, at)
}

func (c *Controller) SuspendedSince(name string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.suspendedAt[name]
	return t, ok
}

func (c *Controller) clearSuspended(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.suspendedAt, name)
}

func (c *Controller) clearAllSuspended() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.suspendedAt = make(map[string]time.Time)
}

// ListThreads implements list_threads.
func ListThreads(vm jdi.VM, includeDaemon bool, maxThreads int) (ListResult, error) {
	if maxThreads <= 0 {
		return ListResult{}, rpcerr.InvalidParams("max_threads must be positive, got %d", maxThreads)
	}

	all := vm.AllThreads()
	result := ListResult{IncludeDaemon: includeDaemon, MaxThreads: maxThreads}

	var filtered []jdi.ThreadReference
	for _, t := range all {
		if !includeDaemon && t.IsDaemon() {
			continue
		}
		filtered = append(filtered, t)
	}
	result.TotalThreads = len(filtered)

	shown := filtered
	if len(shown) > maxThreads {
		shown = shown[:maxThreads]
		result.Truncated = true
	}
	result.ShownThreads = len(shown)

	result.Threads = make([]ThreadSummary, 0, len(shown))
	for _, t := range shown {
		result.Threads = append(result.Threads, ThreadSummary{
			Name:   t.Name(),
			State:  stateOf(t),
			Daemon: t.IsDaemon(),
		})
	}
	return result, nil
}

func findThread(vm jdi.VM, name string) (jdi.ThreadReference, error) {
	for _, t := range vm.AllThreads() {
		if t.Name() == name {
			return t, nil
		}
	}
	return nil, fmt.Errorf("no such thread: %s", name)
}

// resumeCapIterations caps resume(thread_name)'s repeated-resume loop
// against a runaway suspend counter (spec.md §4.H: "capped at 32
// iterations to prevent infinite loops").
const resumeCapIterations = 32

// Resume implements resume(thread_name?): nil resumes the whole VM and
// clears every suspended_at_ms entry; a named thread is resumed down to
// suspend-count zero, capped, and dropped from the map.
func (c *Controller) Resume(vm jdi.VM, threadName *string) error {
	defer c.invalidate()

	if threadName == nil {
		vm.Resume()
		c.clearAllSuspended()
		return nil
	}

	t, err := findThread(vm, *threadName)
	if err != nil {
		return err
	}
	for i := 0; i < resumeCapIterations && t.IsSuspended(); i++ {
		t.ResumeOnce()
	}
	c.clearSuspended(*threadName)
	return nil
}
