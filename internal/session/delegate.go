package session

import (
	"time"

	"github.com/mabhi256/jdiag-bridge/internal/breakpoint"
	"github.com/mabhi256/jdiag-bridge/internal/inspect"
	"github.com/mabhi256/jdiag-bridge/internal/jdi"
	"github.com/mabhi256/jdiag-bridge/internal/rpcerr"
	"github.com/mabhi256/jdiag-bridge/internal/stopped"
	"github.com/mabhi256/jdiag-bridge/internal/threads"
)

// SetBreakpoint implements set_breakpoint (spec.md §4.G, §6).
func (s *Session) SetBreakpoint(classPattern string, line int, conditionSrc, logMessage string, captureStack bool, stackMaxFrames int) (breakpoint.SetResult, error) {
	vm, err := s.requireAttached()
	if err != nil {
		return breakpoint.SetResult{}, err
	}
	_, result, err := s.breakpoints.SetBreakpoint(vm, classPattern, line, conditionSrc, logMessage, captureStack, stackMaxFrames)
	return result, err
}

// RemoveBreakpoint implements remove_breakpoint.
func (s *Session) RemoveBreakpoint(id int) error {
	if id <= 0 {
		return rpcerr.InvalidParams("breakpoint_id must be positive, got %d", id)
	}
	if _, err := s.requireAttached(); err != nil {
		return err
	}
	if err := s.breakpoints.RemoveBreakpoint(id); err != nil {
		return rpcerr.InvalidRequest("%v", err)
	}
	return nil
}

// ListBreakpoints implements list_breakpoints.
func (s *Session) ListBreakpoints() ([]breakpoint.BreakpointSummary, error) {
	if _, err := s.requireAttached(); err != nil {
		return nil, err
	}
	return s.breakpoints.ListBreakpoints(), nil
}

// SetExceptionBreakpoint implements set_exception_breakpoint.
func (s *Session) SetExceptionBreakpoint(classPattern string, caught, uncaught bool) (breakpoint.SetResult, error) {
	vm, err := s.requireAttached()
	if err != nil {
		return breakpoint.SetResult{}, err
	}
	_, result, err := s.breakpoints.SetExceptionBreakpoint(vm, classPattern, caught, uncaught)
	return result, err
}

// RemoveExceptionBreakpoint implements remove_exception_breakpoint.
func (s *Session) RemoveExceptionBreakpoint(id int) error {
	if _, err := s.requireAttached(); err != nil {
		return err
	}
	if err := s.breakpoints.RemoveExceptionBreakpoint(id); err != nil {
		return rpcerr.InvalidRequest("%v", err)
	}
	return nil
}

// ListExceptionBreakpoints implements list_exception_breakpoints.
func (s *Session) ListExceptionBreakpoints() ([]breakpoint.ExceptionBreakpointSummary, error) {
	if _, err := s.requireAttached(); err != nil {
		return nil, err
	}
	return s.breakpoints.ListExceptionBreakpoints(), nil
}

// ListThreads implements list_threads.
func (s *Session) ListThreads(includeDaemon bool, maxThreads int) (threads.ListResult, error) {
	vm, err := s.requireAttached()
	if err != nil {
		return threads.ListResult{}, err
	}
	return threads.ListThreads(vm, includeDaemon, maxThreads)
}

// Step implements step_over/step_into/step_out: issues the step then waits
// up to timeoutSeconds for it to land.
func (s *Session) Step(action threads.Action, threadName string, timeoutSeconds float64) (threads.StepOutcome, error) {
	if timeoutSeconds <= 0 {
		return threads.StepOutcome{}, rpcerr.InvalidParams("timeout_seconds must be positive, got %v", timeoutSeconds)
	}
	vm, err := s.requireAttached()
	if err != nil {
		return threads.StepOutcome{}, err
	}
	ctrl, err := s.stepsController()
	if err != nil {
		return threads.StepOutcome{}, err
	}

	// Controller.Step takes whole seconds; a positive fractional timeout
	// must not truncate to 0 and be rejected there.
	wholeSeconds := int(timeoutSeconds)
	if wholeSeconds < 1 {
		wholeSeconds = 1
	}
	pending, err := ctrl.Step(vm, action, threadName, wholeSeconds)
	if err != nil {
		return threads.StepOutcome{}, err
	}
	return ctrl.Wait(vm, pending, time.Duration(timeoutSeconds*float64(time.Second))), nil
}

// Resume implements resume(thread_name?).
func (s *Session) Resume(threadName *string) error {
	vm, err := s.requireAttached()
	if err != nil {
		return err
	}
	ctrl, err := s.stepsController()
	if err != nil {
		return err
	}
	if err := ctrl.Resume(vm, threadName); err != nil {
		return rpcerr.InvalidRequest("%v", err)
	}
	return nil
}

// StackTrace implements stack_trace.
func (s *Session) StackTrace(threadName string, maxFrames int) (threads.StackTraceResult, error) {
	vm, err := s.requireAttached()
	if err != nil {
		return threads.StackTraceResult{}, err
	}
	s.mu.Lock()
	m := s.mapping
	s.mu.Unlock()
	return threads.StackTrace(vm, threadName, maxFrames, m)
}

// InspectVariable implements inspect_variable.
func (s *Session) InspectVariable(threadName string, frameIndex int, path string, depth int) (inspect.Envelope, error) {
	if depth < 1 || depth > 3 {
		return inspect.Envelope{}, rpcerr.InvalidParams("depth must be between 1 and 3, got %d", depth)
	}
	vm, err := s.requireAttached()
	if err != nil {
		return inspect.Envelope{}, err
	}
	frame, _, err := s.findFrame(vm, threadName, frameIndex)
	if err != nil {
		return inspect.Envelope{}, err
	}
	v, err := inspect.ResolvePath(frame, path, s.inspectOptions())
	if err != nil {
		return inspect.Envelope{}, rpcerr.Newf(rpcerr.CodeInvalidRequest, "%v", err)
	}
	return inspect.RenderEnvelope(v, depth, s.inspectOptions())
}

// Evaluate implements evaluate.
func (s *Session) Evaluate(threadName string, frameIndex int, expr string) (inspect.Envelope, error) {
	vm, err := s.requireAttached()
	if err != nil {
		return inspect.Envelope{}, err
	}
	frame, thread, err := s.findFrame(vm, threadName, frameIndex)
	if err != nil {
		return inspect.Envelope{}, err
	}
	env, err := inspect.Evaluate(frame, thread, expr, s.inspectOptions())
	if err != nil {
		if err == inspect.ErrEvalUnsupported {
			return inspect.Envelope{}, rpcerr.Tagged(rpcerr.CodeInvalidRequest, rpcerr.TagEvalUnsupported, "unsupported expression: %s", expr)
		}
		if err == jdi.ErrObjectCollected {
			return inspect.Envelope{}, rpcerr.Tagged(rpcerr.CodeInvalidRequest, rpcerr.TagObjectCollected, "object has been garbage collected")
		}
		return inspect.Envelope{}, rpcerr.Newf(rpcerr.CodeInvalidRequest, "%v", err)
	}
	return env, nil
}

// CurrentStopped rebuilds the stopped payload for a thread that is already
// suspended. No RPC method calls it; the session tests use it to read the
// payload of the thread that last stopped.
func (s *Session) CurrentStopped(threadName string) (stopped.Payload, error) {
	vm, err := s.requireAttached()
	if err != nil {
		return stopped.Payload{}, err
	}
	var target jdi.ThreadReference
	for _, t := range vm.AllThreads() {
		if t.Name() == threadName {
			target = t
			break
		}
	}
	if target == nil {
		return stopped.Payload{}, rpcerr.InvalidRequest("no such thread: %s", threadName)
	}
	var since time.Time
	if ctrl, err := s.stepsController(); err == nil {
		since, _ = ctrl.SuspendedSince(threadName)
	}
	s.mu.Lock()
	m := s.mapping
	s.mu.Unlock()
	return stopped.Build(target, m, s.inspectOptions(), since)
}
