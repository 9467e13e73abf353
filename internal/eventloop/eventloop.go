// Package eventloop runs the per-attach background worker of spec.md
// §4.I: poll the JDI event queue, dispatch each event to the breakpoint
// or thread-control subsystem, and normalize VM disconnect into a single
// notification. Structured as the teacher's JMXCollector start/stop pair
// (internal/monitor/jmx_collector.go's stopChan/errChan/collectLoop shape),
// generalized to golang.org/x/sync/errgroup for the join-on-stop half.
package eventloop

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mabhi256/jdiag-bridge/internal/breakpoint"
	"github.com/mabhi256/jdiag-bridge/internal/event"
	"github.com/mabhi256/jdiag-bridge/internal/inspect"
	"github.com/mabhi256/jdiag-bridge/internal/jdi"
	"github.com/mabhi256/jdiag-bridge/internal/mapping"
	"github.com/mabhi256/jdiag-bridge/internal/threads"
)

// pollDeadline is spec.md §4.I's per-iteration queue poll timeout.
const pollDeadline = 500 * time.Millisecond

// Hooks bundle the callbacks the loop needs from the session façade
// without importing it (avoids an eventloop <-> session import cycle).
type Hooks struct {
	Mapping         func() *mapping.Mapping
	InspectOptions  func() inspect.Options
	MarkSuspended   func(jdi.ThreadReference, time.Time)
	InvalidateCache func()
	Emit            func(event.Notification)
	SetDisconnected func(reason, detail string)
}

// Loop owns the background goroutine for one attached VM.
type Loop struct {
	vm         jdi.VM
	breakpoints *breakpoint.Registry
	steps      *threads.Controller
	hooks      Hooks

	cancel context.CancelFunc
	group  *errgroup.Group
}

// Start launches the loop's goroutine via errgroup.Group.Go, returning a
// *Loop whose Stop joins it with a 2s grace period (spec.md §5).
func Start(vm jdi.VM, breakpoints *breakpoint.Registry, steps *threads.Controller, hooks Hooks) *Loop {
	ctx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(ctx)

	l := &Loop{vm: vm, breakpoints: breakpoints, steps: steps, hooks: hooks, cancel: cancel, group: group}
	group.Go(func() error {
		l.run(gctx)
		return nil
	})
	return l
}

// Stop cancels the loop and waits up to 2s for it to exit cleanly.
func (l *Loop) Stop() {
	l.cancel()
	done := make(chan struct{})
	go func() {
		l.group.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}

func (l *Loop) run(ctx context.Context) {
	queue := l.vm.EventQueue()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		set, err := queue.Remove(pollDeadline)
		if err != nil {
			if err == jdi.ErrQueueTimeout {
				continue
			}
			return
		}

		resume := true
		for _, evt := range set.Events() {
			if !l.dispatch(evt) {
				resume = false
			}
			if evt.Kind == jdi.EventVMDisconnect || evt.Kind == jdi.EventVMDeath {
				return
			}
		}
		if resume {
			set.Resume()
		}
	}
}

// dispatch routes one event and reports whether the event set should be
// resumed afterward — false means a handler wants the thread left
// suspended (breakpoint/exception/step landed).
func (l *Loop) dispatch(evt jdi.Event) bool {
	m := l.hooks.Mapping()

	switch evt.Kind {
	case jdi.EventClassPrepare:
		for _, n := range l.breakpoints.ResolvePending(l.vm, evt.Class) {
			l.hooks.Emit(n)
		}
		return true

	case jdi.EventBreakpoint:
		result, err := l.breakpoints.OnBreakpointHit(evt.Request, evt.Thread, m, l.hooks.InspectOptions(), l.hooks.MarkSuspended)
		if err != nil {
			return true
		}
		for _, n := range result.Notifications {
			l.hooks.Emit(n)
		}
		return result.ResumeEventSet

	case jdi.EventException:
		result, err := l.breakpoints.OnExceptionHit(evt.Request, evt.Thread, evt.Exception, evt.ThrowLocation, evt.CatchLocation, m, l.hooks.InspectOptions(), l.hooks.MarkSuspended)
		if err != nil {
			return true
		}
		for _, n := range result.Notifications {
			l.hooks.Emit(n)
		}
		return result.ResumeEventSet

	case jdi.EventStep:
		if err := l.steps.OnStepEvent(evt.Request, evt.Thread, m, l.hooks.InspectOptions()); err != nil {
			return true
		}
		return false

	case jdi.EventVMDisconnect, jdi.EventVMDeath:
		l.onDisconnect(evt.DisconnectDetail)
		return true

	default:
		return true
	}
}

// onDisconnect implements spec.md §4.I's disconnect normalization.
func (l *Loop) onDisconnect(detail string) {
	reason := classifyDisconnect(detail)
	l.steps.OnDisconnect()
	l.hooks.InvalidateCache()
	l.hooks.SetDisconnected(reason, detail)
	l.hooks.Emit(event.Notification{
		Type: "vm_disconnected",
		Data: struct {
			Reason string `json:"reason"`
			Detail string `json:"detail"`
		}{reason, detail},
	})
}

func classifyDisconnect(detail string) string {
	lower := strings.ToLower(detail)
	switch {
	case strings.Contains(lower, "transport"), strings.Contains(lower, "device offline"), strings.Contains(lower, "connection reset"):
		return "device_disconnected"
	case strings.Contains(lower, "killed"), strings.Contains(lower, "terminated"), strings.Contains(lower, "force stop"):
		return "app_killed"
	default:
		return "app_crashed"
	}
}
