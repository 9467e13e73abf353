package fake

import (
	"sync"

	"github.com/mabhi256/jdiag-bridge/internal/jdi"
)

// Request is a fake jdi.EventRequest: property bag plus enable/delete
// bookkeeping tests can assert on.
type Request struct {
	mu       sync.Mutex
	props    map[string]any
	enabled  bool
	deleted  bool
	Kind     jdi.EventKind
	Location jdi.Location   // breakpoint requests
	Pattern  string         // class-prepare requests
	RefType  jdi.ReferenceType // exception requests; nil means "all"
	Caught   bool
	Uncaught bool
	Thread   jdi.ThreadReference // step requests
	Depth    jdi.StepDepth
}

func (r *Request) SetProperty(key string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.props == nil {
		r.props = make(map[string]any)
	}
	r.props[key] = value
}

func (r *Request) GetProperty(key string) any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.props[key]
}

func (r *Request) Enable() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = true
	return nil
}

func (r *Request) Delete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = true
	r.enabled = false
}

func (r *Request) Deleted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deleted
}

func (r *Request) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

// EventRequestManager tracks every live request so tests can assert on
// invariant 1 of spec.md §8 (pending breakpoints == live class-prepare
// requests).
type EventRequestManager struct {
	vm *VM

	mu       sync.Mutex
	requests []*Request
}

func (m *EventRequestManager) track(r *Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, r)
}

// LiveRequests returns every non-deleted request, for test assertions.
func (m *EventRequestManager) LiveRequests() []*Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Request
	for _, r := range m.requests {
		if !r.Deleted() {
			out = append(out, r)
		}
	}
	return out
}

func (m *EventRequestManager) CreateBreakpointRequest(loc jdi.Location, policy jdi.SuspendPolicy) (jdi.EventRequest, error) {
	r := &Request{Kind: jdi.EventBreakpoint, Location: loc}
	m.track(r)
	return r, nil
}

func (m *EventRequestManager) CreateClassPrepareRequest(classPattern string, policy jdi.SuspendPolicy) (jdi.EventRequest, error) {
	r := &Request{Kind: jdi.EventClassPrepare, Pattern: classPattern}
	m.track(r)
	return r, nil
}

func (m *EventRequestManager) CreateExceptionRequest(refType jdi.ReferenceType, caught, uncaught bool, policy jdi.SuspendPolicy) (jdi.EventRequest, error) {
	r := &Request{Kind: jdi.EventException, RefType: refType, Caught: caught, Uncaught: uncaught}
	m.track(r)
	return r, nil
}

func (m *EventRequestManager) CreateStepRequest(thread jdi.ThreadReference, depth jdi.StepDepth, policy jdi.SuspendPolicy) (jdi.EventRequest, error) {
	r := &Request{Kind: jdi.EventStep, Thread: thread, Depth: depth}
	m.track(r)
	return r, nil
}

func (m *EventRequestManager) DeleteEventRequest(req jdi.EventRequest) {
	if r, ok := req.(*Request); ok {
		r.Delete()
	}
}

func (m *EventRequestManager) DeleteStepRequestsForThread(thread jdi.ThreadReference) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.requests {
		if r.Kind == jdi.EventStep && r.Thread == thread && !r.Deleted() {
			r.Delete()
		}
	}
}
