// Package session is the public façade spec.md §4.J describes: the single
// entrypoint the RPC layer calls into, owning the session lock, the
// attached VM (if any), and every sub-component's lifecycle.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mabhi256/jdiag-bridge/internal/breakpoint"
	"github.com/mabhi256/jdiag-bridge/internal/budget"
	"github.com/mabhi256/jdiag-bridge/internal/event"
	"github.com/mabhi256/jdiag-bridge/internal/eventloop"
	"github.com/mabhi256/jdiag-bridge/internal/inspect"
	"github.com/mabhi256/jdiag-bridge/internal/jdi"
	"github.com/mabhi256/jdiag-bridge/internal/mapping"
	"github.com/mabhi256/jdiag-bridge/internal/objectcache"
	"github.com/mabhi256/jdiag-bridge/internal/rpcerr"
	"github.com/mabhi256/jdiag-bridge/internal/threads"
)

// handshakeTimeout is spec.md §4.J's attach() socket timeout.
const handshakeTimeout = 5 * time.Second

// Session is the single stateful object the RPC method table dispatches
// into. ID and Log are set once at construction; everything else is
// guarded by mu, spec.md §4.J's "session lock".
type Session struct {
	ID  uuid.UUID
	Log zerolog.Logger

	connector jdi.Connector

	mu               sync.Mutex
	vm               jdi.VM
	keepSuspended    bool
	disconnected     bool
	disconnectReason string
	disconnectDetail string

	mapping     *mapping.Mapping
	cache       *objectcache.Cache
	breakpoints *breakpoint.Registry
	steps       *threads.Controller
	loop        *eventloop.Loop

	notify func(event.Notification)
}

// New builds an unattached session. notify is wired to the RPC server's
// Notify method by the caller (kept as a plain func to avoid importing
// internal/rpc from the session layer).
func New(connector jdi.Connector, log zerolog.Logger, notify func(event.Notification)) *Session {
	return &Session{
		ID:          uuid.New(),
		Log:         log,
		connector:   connector,
		cache:       objectcache.New(),
		breakpoints: breakpoint.NewRegistry(),
		notify:      notify,
	}
}

func (s *Session) emit(n event.Notification) {
	if s.notify != nil {
		s.notify(n)
	}
}

// AttachResult is attach's response shape.
type AttachResult struct {
	Status        string `json:"status"`
	VMName        string `json:"vm_name"`
	VMVersion     string `json:"vm_version"`
	ThreadCount   int    `json:"thread_count"`
	Suspended     bool   `json:"suspended"`
	KeepSuspended bool   `json:"keep_suspended"`
}

// Attach implements spec.md §4.J's attach(): requires unattached, clears
// caches, optionally resumes the VM, and starts the event loop.
func (s *Session) Attach(ctx context.Context, host string, port int, keepSuspended bool) (AttachResult, error) {
	s.mu.Lock()
	if s.vm != nil {
		s.mu.Unlock()
		return AttachResult{}, rpcerr.InvalidRequest("session is already attached")
	}
	s.mu.Unlock()

	attachCtx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()

	vm, err := s.connector.Attach(attachCtx, host, port)
	if err != nil {
		return AttachResult{}, rpcerr.Tagged(rpcerr.CodeInvalidRequest, rpcerr.TagAppNotDebuggable, "attach failed: %v", err)
	}

	threadList := vm.AllThreads()
	allSuspended := len(threadList) > 0
	for _, t := range threadList {
		if !t.IsSuspended() {
			allSuspended = false
			break
		}
	}

	s.mu.Lock()
	s.vm = vm
	s.keepSuspended = keepSuspended
	s.disconnected = false
	s.disconnectReason = ""
	s.disconnectDetail = ""
	s.breakpoints.Reset()
	s.cache.Invalidate()
	s.steps = threads.NewController(s.cache.Invalidate)
	s.mu.Unlock()

	if allSuspended && !keepSuspended {
		vm.Resume()
	}

	s.startLoop(vm)

	return AttachResult{
		Status:        "attached",
		VMName:        vm.Name(),
		VMVersion:     vm.Version(),
		ThreadCount:   len(threadList),
		Suspended:     allSuspended && keepSuspended,
		KeepSuspended: keepSuspended,
	}, nil
}

func (s *Session) startLoop(vm jdi.VM) {
	hooks := eventloop.Hooks{
		Mapping: func() *mapping.Mapping {
			s.mu.Lock()
			defer s.mu.Unlock()
			return s.mapping
		},
		InspectOptions: s.inspectOptions,
		MarkSuspended: func(t jdi.ThreadReference, at time.Time) {
			s.mu.Lock()
			steps := s.steps
			s.mu.Unlock()
			if steps != nil {
				steps.MarkSuspended(t, at)
			}
		},
		InvalidateCache: s.cache.Invalidate,
		Emit:            s.emit,
		SetDisconnected: s.setDisconnected,
	}

	s.mu.Lock()
	s.loop = eventloop.Start(vm, s.breakpoints, s.steps, hooks)
	s.mu.Unlock()
}

func (s *Session) setDisconnected(reason, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnected = true
	s.disconnectReason = reason
	s.disconnectDetail = detail
}

// DetachResult is detach's response shape.
type DetachResult struct {
	Status string `json:"status"`
}

// Detach implements spec.md §4.J's detach(): stops the event loop, clears
// every request and cache, and disposes the VM handle best-effort.
func (s *Session) Detach() (DetachResult, error) {
	s.mu.Lock()
	vm := s.vm
	loop := s.loop
	if vm == nil {
		s.mu.Unlock()
		return DetachResult{}, rpcerr.InvalidRequest("session is not attached")
	}
	s.mu.Unlock()

	if loop != nil {
		loop.Stop()
	}

	for _, bp := range s.breakpoints.Breakpoints() {
		if bp.Request != nil {
			bp.Request.Delete()
		}
		if bp.PrepareRequest != nil {
			bp.PrepareRequest.Delete()
		}
	}
	for _, eb := range s.breakpoints.ExceptionBreakpoints() {
		if eb.Request != nil {
			eb.Request.Delete()
		}
		if eb.PrepareRequest != nil {
			eb.PrepareRequest.Delete()
		}
	}
	s.breakpoints.Reset()

	vm.Dispose()

	s.mu.Lock()
	s.vm = nil
	s.loop = nil
	s.steps = nil
	s.disconnected = false
	s.disconnectReason = ""
	s.disconnectDetail = ""
	s.mu.Unlock()
	s.cache.Invalidate()

	return DetachResult{Status: "detached"}, nil
}

// Status implements spec.md §4.J's status(): never errors.
func (s *Session) Status() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.vm == nil {
		return map[string]any{"status": "not_attached"}
	}
	if s.disconnected {
		return map[string]any{"status": "disconnected", "reason": s.disconnectReason}
	}
	return map[string]any{
		"status":         "attached",
		"vm_name":        s.vm.Name(),
		"vm_version":     s.vm.Version(),
		"keep_suspended": s.keepSuspended,
	}
}

// requireAttached implements spec.md §4.J's "delegate after verifying
// attached status" contract shared by every operation past attach/detach/
// status, returning the live VM handle under the lock.
func (s *Session) requireAttached() (jdi.VM, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.vm == nil {
		return nil, rpcerr.InvalidRequest("session is not attached")
	}
	if s.disconnected {
		return nil, rpcerr.InvalidRequest("VM is disconnected: %s", s.disconnectReason)
	}
	return s.vm, nil
}

func (s *Session) inspectOptions() inspect.Options {
	s.mu.Lock()
	m := s.mapping
	s.mu.Unlock()
	return inspect.Options{
		Budget:  budget.New(budget.DefaultMaxTokens),
		Mapping: m,
		Handle:  s.cache.Handle,
		Lookup:  s.cache.Lookup,
	}
}

func (s *Session) stepsController() (*threads.Controller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.steps == nil {
		return nil, rpcerr.InvalidRequest("session is not attached")
	}
	return s.steps, nil
}

// Snapshot is a read-only summary for the optional --tui dashboard
// (SPEC_FULL.md DOMAIN STACK). It takes the session lock only long enough
// to copy primitive counters out, never holding it across a render.
type Snapshot struct {
	Attached        bool
	VMName          string
	ThreadCount     int
	BreakpointCount int
	BreakpointHits  map[int]int
	RecentLogHits   map[int][]breakpoint.LogHit
	Disconnected    bool
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	vm := s.vm
	disconnected := s.disconnected
	s.mu.Unlock()

	snap := Snapshot{Attached: vm != nil, Disconnected: disconnected}
	if vm == nil {
		return snap
	}
	snap.VMName = vm.Name()
	snap.ThreadCount = len(vm.AllThreads())

	bps := s.breakpoints.Breakpoints()
	snap.BreakpointCount = len(bps)
	snap.BreakpointHits = make(map[int]int, len(bps))
	snap.RecentLogHits = make(map[int][]breakpoint.LogHit, len(bps))
	for _, bp := range bps {
		snap.BreakpointHits[bp.ID] = bp.HitCount
		if hits := bp.RecentHits(); len(hits) > 0 {
			snap.RecentLogHits[bp.ID] = hits
		}
	}
	return snap
}

func (s *Session) findFrame(vm jdi.VM, threadName string, frameIndex int) (jdi.StackFrame, jdi.ThreadReference, error) {
	var target jdi.ThreadReference
	for _, t := range vm.AllThreads() {
		if t.Name() == threadName {
			target = t
			break
		}
	}
	if target == nil {
		return nil, nil, rpcerr.InvalidRequest("no such thread: %s", threadName)
	}
	if !target.IsSuspended() {
		return nil, nil, rpcerr.Tagged(rpcerr.CodeInvalidRequest, rpcerr.TagNotSuspended, "thread %q is not suspended", threadName)
	}
	frames, err := target.Frames()
	if err != nil {
		return nil, nil, err
	}
	if frameIndex < 0 || frameIndex >= len(frames) {
		return nil, nil, rpcerr.InvalidParams("frame_index %d out of range (0..%d)", frameIndex, len(frames)-1)
	}
	return frames[frameIndex], target, nil
}
