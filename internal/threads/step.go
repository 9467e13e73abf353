package threads

import (
	"strings"
	"time"

	"github.com/mabhi256/jdiag-bridge/internal/inspect"
	"github.com/mabhi256/jdiag-bridge/internal/jdi"
	"github.com/mabhi256/jdiag-bridge/internal/mapping"
	"github.com/mabhi256/jdiag-bridge/internal/rpcerr"
	"github.com/mabhi256/jdiag-bridge/internal/stopped"
)

// Action names the three step flavors spec.md §4.H exposes as distinct
// methods over a single JDI step-depth parameter.
type Action string

const (
	ActionStepOver Action = "step_over"
	ActionStepInto Action = "step_into"
	ActionStepOut  Action = "step_out"
)

func (a Action) depth() jdi.StepDepth {
	switch a {
	case ActionStepInto:
		return jdi.StepInto
	case ActionStepOut:
		return jdi.StepOut
	default:
		return jdi.StepOver
	}
}

// StepOutcome is what completion carries: either a stopped payload (the
// step landed) or a timeout/remediation pair (spec.md §4.H steps 6-7).
type StepOutcome struct {
	Payload     stopped.Payload
	TimedOut    bool
	Status      string
	Reason      string
	Remediation string
}

// PendingStep is the in-flight step record spec.md §4.H's step 3
// describes, recorded under the session lock and consumed exactly once
// by either OnStepEvent or the timeout path in Step.
type PendingStep struct {
	Action     Action
	ThreadName string
	Request    jdi.EventRequest
	completion chan StepOutcome
}

// Step implements spec.md §4.H's five/six/seven-step sequence for
// step_over/step_into/step_out. It installs the step request, resumes the
// thread and returns the pending step without blocking; timeoutSeconds is
// only checked to be positive. Wait then blocks for the event loop to
// deliver this step's completion (via OnStepEvent); Step itself never
// touches the queue directly.
func (c *Controller) Step(vm jdi.VM, action Action, threadName string, timeoutSeconds int) (*PendingStep, error) {
	if strings.TrimSpace(threadName) == "" {
		return nil, rpcerr.InvalidRequest("thread_name must not be blank")
	}
	if timeoutSeconds <= 0 {
		return nil, rpcerr.InvalidRequest("timeout_seconds must be positive")
	}

	c.mu.Lock()
	if c.pending != nil {
		c.mu.Unlock()
		return nil, rpcerr.InvalidRequest("a step is already in progress for thread %q", c.pending.ThreadName)
	}
	c.mu.Unlock()

	thread, err := findThread(vm, threadName)
	if err != nil {
		return nil, err
	}

	if !thread.IsSuspended() {
		thread.Suspend()
	}
	vm.EventRequestManager().DeleteStepRequestsForThread(thread)

	req, err := vm.EventRequestManager().CreateStepRequest(thread, action.depth(), jdi.SuspendEventThread)
	if err != nil {
		return nil, err
	}
	if err := req.Enable(); err != nil {
		return nil, err
	}

	step := &PendingStep{
		Action:     action,
		ThreadName: threadName,
		Request:    req,
		completion: make(chan StepOutcome, 1),
	}

	c.mu.Lock()
	c.pending = step
	c.mu.Unlock()
	c.invalidate()

	thread.ResumeOnce()

	return step, nil
}

// Wait blocks for step's completion up to timeout, returning the timeout
// outcome itself (never an error) if nothing arrives in time — spec.md
// §4.H step 6 treats a timed-out step as a normal, non-error result.
func (c *Controller) Wait(vm jdi.VM, step *PendingStep, timeout time.Duration) StepOutcome {
	select {
	case outcome := <-step.completion:
		return outcome
	case <-time.After(timeout):
		c.mu.Lock()
		if c.pending == step {
			c.pending = nil
		}
		c.mu.Unlock()
		step.Request.Delete()
		return StepOutcome{
			TimedOut:    true,
			Status:      "timeout",
			Reason:      string(step.Action) + " did not complete within " + timeout.String(),
			Remediation: "set a breakpoint further ahead",
		}
	}
}

// OnStepEvent implements spec.md §4.H step 5: the event loop calls this
// when a StepEvent arrives for req. It never resumes the event set — the
// thread stays suspended at the step's landing point.
func (c *Controller) OnStepEvent(req jdi.EventRequest, thread jdi.ThreadReference, m *mapping.Mapping, opts inspect.Options) error {
	c.mu.Lock()
	step := c.pending
	if step == nil || step.Request != req {
		c.mu.Unlock()
		return nil
	}
	c.pending = nil
	c.mu.Unlock()

	req.Delete()

	payload, err := stopped.Build(thread, m, opts, time.Now())
	if err != nil {
		return err
	}
	c.markSuspended(thread, time.Now())

	select {
	case step.completion <- StepOutcome{Payload: payload, Status: "stopped"}:
	default:
	}
	return nil
}

// OnDisconnect implements spec.md §4.I's "complete any active step future
// with the timeout/remediation payload" disconnect behavior.
func (c *Controller) OnDisconnect() {
	c.mu.Lock()
	step := c.pending
	c.pending = nil
	c.mu.Unlock()
	if step == nil {
		return
	}
	select {
	case step.completion <- StepOutcome{
		TimedOut:    true,
		Status:      "timeout",
		Reason:      "interrupted: VM disconnected mid-step",
		Remediation: "re-attach the debugger",
	}:
	default:
	}
}
