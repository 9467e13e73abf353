// Package fake is the in-memory JDI implementation spec.md §8 uses for
// its end-to-end scenarios: a scriptable test double standing in for a
// real JVM connection, grounded on the teacher's DebugJMXClient wrapper
// pattern (internal/monitor/jmx_collector.go) of a struct implementing the
// same capability contract purely for observable testing.
package fake

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mabhi256/jdiag-bridge/internal/jdi"
)

// Connector is a jdi.Connector that always returns the same *VM,
// optionally failing the handshake to exercise APP_NOT_DEBUGGABLE.
type Connector struct {
	VM       *VM
	FailErr  error
}

func (c *Connector) Attach(ctx context.Context, host string, port int) (jdi.VM, error) {
	if c.FailErr != nil {
		return nil, c.FailErr
	}
	return c.VM, nil
}

// VM is the scriptable fake JVM. Tests build threads/classes ahead of
// time, then drive events with Fire*.
type VM struct {
	mu      sync.Mutex
	name    string
	version string
	threads map[string]*Thread // by name
	classes map[string]*ReferenceType

	erm   *EventRequestManager
	queue *EventQueue

	nextUniqueID int64
}

func NewVM(name, version string) *VM {
	v := &VM{
		name:    name,
		version: version,
		threads: make(map[string]*Thread),
		classes: make(map[string]*ReferenceType),
		queue:   newEventQueue(),
	}
	v.erm = &EventRequestManager{vm: v}
	return v
}

func (v *VM) Name() string    { return v.name }
func (v *VM) Version() string { return v.version }

func (v *VM) AllThreads() []jdi.ThreadReference {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]jdi.ThreadReference, 0, len(v.threads))
	for _, t := range v.threads {
		out = append(out, t)
	}
	return out
}

func (v *VM) EventQueue() jdi.EventQueue                   { return v.queue }
func (v *VM) EventRequestManager() jdi.EventRequestManager { return v.erm }

func (v *VM) AllClasses() []jdi.ReferenceType {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]jdi.ReferenceType, 0, len(v.classes))
	for _, c := range v.classes {
		out = append(out, c)
	}
	return out
}

func (v *VM) ClassesByName(name string) []jdi.ReferenceType {
	v.mu.Lock()
	defer v.mu.Unlock()
	if c, ok := v.classes[name]; ok {
		return []jdi.ReferenceType{c}
	}
	return nil
}

func (v *VM) Dispose() {}

func (v *VM) Resume() {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, t := range v.threads {
		t.resetSuspend()
	}
}

func (v *VM) nextID() int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.nextUniqueID++
	return v.nextUniqueID
}

// AddThread registers a named thread, initially not suspended.
func (v *VM) AddThread(name string, daemon bool) *Thread {
	t := &Thread{vm: v, name: name, daemon: daemon, uniqueID: v.nextID()}
	v.mu.Lock()
	v.threads[name] = t
	v.mu.Unlock()
	return t
}

// LoadClass registers a loaded class with known source lines. A class not
// yet loaded keeps set_breakpoint in "pending" state; loading it later and
// then calling FireClassPrepare resolves the pending request.
func (v *VM) LoadClass(name string, lines ...int) *ReferenceType {
	c := &ReferenceType{name: name, lines: make(map[int]bool)}
	for _, l := range lines {
		c.lines[l] = true
	}
	v.mu.Lock()
	v.classes[name] = c
	v.mu.Unlock()
	return c
}

// FireClassPrepare enqueues a ClassPrepareEvent for the given (already
// loaded, via LoadClass) class name.
func (v *VM) FireClassPrepare(className string) {
	v.mu.Lock()
	c := v.classes[className]
	v.mu.Unlock()
	if c == nil {
		panic(fmt.Sprintf("fake: FireClassPrepare(%q): class not loaded; call LoadClass first", className))
	}
	v.queue.push(jdi.Event{Kind: jdi.EventClassPrepare, Class: c})
}

// FireBreakpoint suspends thread and enqueues a BreakpointEvent carrying
// req as its Request. className and line are not consulted; the caller
// passes the request that a hit at that location would deliver.
func (v *VM) FireBreakpoint(thread *Thread, className string, line int, req jdi.EventRequest) {
	thread.Suspend()
	v.queue.push(jdi.Event{Kind: jdi.EventBreakpoint, Thread: thread, Request: req})
}

// FireStep suspends thread and enqueues a StepEvent for req.
func (v *VM) FireStep(thread *Thread, req jdi.EventRequest) {
	thread.Suspend()
	v.queue.push(jdi.Event{Kind: jdi.EventStep, Thread: thread, Request: req})
}

// FireException suspends thread and enqueues an ExceptionEvent.
func (v *VM) FireException(thread *Thread, req jdi.EventRequest, exception *jdi.Value, throwLoc, catchLoc jdi.Location) {
	thread.Suspend()
	v.queue.push(jdi.Event{
		Kind:          jdi.EventException,
		Thread:        thread,
		Request:       req,
		Exception:     exception,
		ThrowLocation: throwLoc,
		CatchLocation: catchLoc,
	})
}

// FireDisconnect enqueues a VMDisconnectEvent carrying detail, simulating
// transport loss.
func (v *VM) FireDisconnect(detail string) {
	v.queue.push(jdi.Event{Kind: jdi.EventVMDisconnect, DisconnectDetail: detail})
}

// FireDeath enqueues a VMDeathEvent (clean target-side exit).
func (v *VM) FireDeath(detail string) {
	v.queue.push(jdi.Event{Kind: jdi.EventVMDeath, DisconnectDetail: detail})
}

// timeNow defaults to time.Now; nothing in the module reads it at present.
var timeNow = time.Now
