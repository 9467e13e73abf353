// Package breakpoint implements spec.md §4.G: line/conditional/logpoint
// breakpoints with deferred class-prepare resolution, hit dispatch, and
// exception breakpoints. Resolution (matching a class pattern against
// loaded classes) is split from dispatch (reacting to a fired event),
// mirroring the teacher's parse/analyze/act split between
// internal/gc/analyzer.go and internal/gc/recommendation.go.
package breakpoint

import (
	"regexp"
	"sync"

	"github.com/mabhi256/jdiag-bridge/internal/condition"
	"github.com/mabhi256/jdiag-bridge/internal/jdi"
	"github.com/mabhi256/jdiag-bridge/internal/registry"
)

// Status is a breakpoint's or exception breakpoint's resolution state.
type Status string

const (
	StatusSet     Status = "set"
	StatusPending Status = "pending"
)

// property keys stashed on the underlying JDI request so a dispatched
// event can look its owning breakpoint back up.
const (
	propBreakpointID          = "jdiag_breakpoint_id"
	propExceptionBreakpointID = "jdiag_exception_breakpoint_id"
)

// Breakpoint is one line/conditional/logpoint breakpoint (spec.md §3).
type Breakpoint struct {
	ID            int
	ClassPattern  string
	patternRegexp *regexp.Regexp
	Line          int
	Status        Status
	Location      string

	Request        jdi.EventRequest
	PrepareRequest jdi.EventRequest

	ConditionSource string
	Condition       *condition.Compiled

	LogMessage     string
	CaptureStack   bool
	StackMaxFrames int

	HitCount int
	hits     ring
}

// RecentHits returns a snapshot of the logpoint ring, newest last.
func (b *Breakpoint) RecentHits() []LogHit { return b.hits.items }

// ExceptionBreakpoint is spec.md §3's ExceptionBreakpoint.
type ExceptionBreakpoint struct {
	ID            int
	ClassPattern  string
	patternRegexp *regexp.Regexp
	Caught        bool
	Uncaught      bool
	Status        Status

	Request        jdi.EventRequest
	PrepareRequest jdi.EventRequest
}

// Registry owns every breakpoint and exception breakpoint for one attached
// session, plus the shared id counter spec.md §3 requires ("next_breakpoint_id:
// monotonically increasing counter shared across both breakpoint kinds").
type Registry struct {
	idMu   sync.Mutex
	nextID int

	breakpoints *registry.Ordered[int, *Breakpoint]
	exceptions  *registry.Ordered[int, *ExceptionBreakpoint]
}

func NewRegistry() *Registry {
	return &Registry{
		breakpoints: registry.New[int, *Breakpoint](),
		exceptions:  registry.New[int, *ExceptionBreakpoint](),
	}
}

func (reg *Registry) allocID() int {
	reg.idMu.Lock()
	defer reg.idMu.Unlock()
	reg.nextID++
	return reg.nextID
}

// Reset drops every breakpoint and exception breakpoint without touching
// any JDI request (callers delete those first); used on detach/re-attach.
func (reg *Registry) Reset() {
	reg.breakpoints = registry.New[int, *Breakpoint]()
	reg.exceptions = registry.New[int, *ExceptionBreakpoint]()
}

func (reg *Registry) Breakpoints() []*Breakpoint { return reg.breakpoints.Values() }

func (reg *Registry) ExceptionBreakpoints() []*ExceptionBreakpoint { return reg.exceptions.Values() }
