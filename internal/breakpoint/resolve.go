package breakpoint

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mabhi256/jdiag-bridge/internal/condition"
	"github.com/mabhi256/jdiag-bridge/internal/event"
	"github.com/mabhi256/jdiag-bridge/internal/jdi"
	"github.com/mabhi256/jdiag-bridge/internal/rpcerr"
)

// SetResult is set_breakpoint's response shape (spec.md §6).
type SetResult struct {
	Status        string `json:"status"`
	BreakpointID  int    `json:"breakpoint_id"`
	Location      string `json:"location,omitempty"`
	Reason        string `json:"reason,omitempty"`
	ClassPattern  string `json:"class_pattern,omitempty"`
	Line          int    `json:"line,omitempty"`
}

// SetBreakpoint implements spec.md §4.G's set_breakpoint: allocate an id,
// pre-compile condition, search loaded classes, and either install a live
// breakpoint request or fall back to a class-prepare request.
func (reg *Registry) SetBreakpoint(vm jdi.VM, classPattern string, line int, conditionSrc, logMessage string, captureStack bool, stackMaxFrames int) (*Breakpoint, SetResult, error) {
	if line <= 0 {
		return nil, SetResult{}, rpcerr.InvalidParams("line must be positive, got %d", line)
	}

	var compiled *condition.Compiled
	if strings.TrimSpace(conditionSrc) != "" {
		c, err := condition.Compile(conditionSrc)
		if err != nil {
			return nil, SetResult{}, rpcerr.Tagged(rpcerr.CodeInvalidParams, rpcerr.TagConditionSyntax, "%v", err)
		}
		compiled = c
	}

	bp := &Breakpoint{
		ID:              reg.allocID(),
		ClassPattern:    classPattern,
		patternRegexp:   compilePattern(classPattern),
		Line:            line,
		ConditionSource: conditionSrc,
		Condition:       compiled,
		LogMessage:      logMessage,
		CaptureStack:    captureStack,
		StackMaxFrames:  stackMaxFrames,
	}

	if loc, refType, ok := findLocation(vm, bp.ClassPattern, bp.patternRegexp, line); ok {
		req, err := vm.EventRequestManager().CreateBreakpointRequest(loc, jdi.SuspendEventThread)
		if err != nil {
			return nil, SetResult{}, err
		}
		req.SetProperty(propBreakpointID, bp.ID)
		if err := req.Enable(); err != nil {
			return nil, SetResult{}, err
		}
		bp.Request = req
		bp.Status = StatusSet
		bp.Location = fmt.Sprintf("%s:%d", refType.Name(), line)
		reg.breakpoints.Set(bp.ID, bp)
		return bp, SetResult{Status: "set", BreakpointID: bp.ID, Location: bp.Location}, nil
	}

	prep, err := vm.EventRequestManager().CreateClassPrepareRequest(bp.ClassPattern, jdi.SuspendNone)
	if err != nil {
		return nil, SetResult{}, err
	}
	prep.SetProperty(propBreakpointID, bp.ID)
	if err := prep.Enable(); err != nil {
		return nil, SetResult{}, err
	}
	bp.PrepareRequest = prep
	bp.Status = StatusPending
	reg.breakpoints.Set(bp.ID, bp)
	return bp, SetResult{
		Status:       "pending",
		BreakpointID: bp.ID,
		Reason:       "class_not_loaded",
		ClassPattern: classPattern,
		Line:         line,
	}, nil
}

// SetExceptionBreakpoint implements spec.md §4.G's set_exception_breakpoint.
func (reg *Registry) SetExceptionBreakpoint(vm jdi.VM, classPattern string, caught, uncaught bool) (*ExceptionBreakpoint, SetResult, error) {
	if !caught && !uncaught {
		return nil, SetResult{}, fmt.Errorf("at least one of caught/uncaught must be true")
	}

	eb := &ExceptionBreakpoint{
		ID:            reg.allocID(),
		ClassPattern:  classPattern,
		patternRegexp: compilePattern(classPattern),
		Caught:        caught,
		Uncaught:      uncaught,
	}

	if matchesAllExceptions(classPattern) {
		req, err := vm.EventRequestManager().CreateExceptionRequest(nil, caught, uncaught, jdi.SuspendEventThread)
		if err != nil {
			return nil, SetResult{}, err
		}
		req.SetProperty(propExceptionBreakpointID, eb.ID)
		if err := req.Enable(); err != nil {
			return nil, SetResult{}, err
		}
		eb.Request = req
		eb.Status = StatusSet
		reg.exceptions.Set(eb.ID, eb)
		return eb, SetResult{Status: "set", BreakpointID: eb.ID}, nil
	}

	if rt, ok := findLoadedClass(vm, eb.ClassPattern, eb.patternRegexp); ok {
		req, err := vm.EventRequestManager().CreateExceptionRequest(rt, caught, uncaught, jdi.SuspendEventThread)
		if err != nil {
			return nil, SetResult{}, err
		}
		req.SetProperty(propExceptionBreakpointID, eb.ID)
		if err := req.Enable(); err != nil {
			return nil, SetResult{}, err
		}
		eb.Request = req
		eb.Status = StatusSet
		reg.exceptions.Set(eb.ID, eb)
		return eb, SetResult{Status: "set", BreakpointID: eb.ID}, nil
	}

	prep, err := vm.EventRequestManager().CreateClassPrepareRequest(eb.ClassPattern, jdi.SuspendNone)
	if err != nil {
		return nil, SetResult{}, err
	}
	prep.SetProperty(propExceptionBreakpointID, eb.ID)
	if err := prep.Enable(); err != nil {
		return nil, SetResult{}, err
	}
	eb.PrepareRequest = prep
	eb.Status = StatusPending
	reg.exceptions.Set(eb.ID, eb)
	return eb, SetResult{Status: "pending", BreakpointID: eb.ID, ClassPattern: classPattern}, nil
}

func findLocation(vm jdi.VM, classPattern string, re *regexp.Regexp, line int) (jdi.Location, jdi.ReferenceType, bool) {
	for _, rt := range vm.AllClasses() {
		if !patternMatches(classPattern, re, rt.Name()) {
			continue
		}
		if loc, ok := rt.LocationOfLine(line); ok {
			return loc, rt, true
		}
	}
	return nil, nil, false
}

func findLoadedClass(vm jdi.VM, classPattern string, re *regexp.Regexp) (jdi.ReferenceType, bool) {
	for _, rt := range vm.AllClasses() {
		if patternMatches(classPattern, re, rt.Name()) {
			return rt, true
		}
	}
	return nil, false
}

// ResolvePending implements the ClassPrepareEvent side of spec.md §4.G/§4.G
// exception breakpoints: resolve every pending breakpoint/exception
// breakpoint whose pattern matches the newly loaded class.
func (reg *Registry) ResolvePending(vm jdi.VM, class jdi.ReferenceType) []event.Notification {
	var out []event.Notification

	for _, bp := range reg.breakpoints.Values() {
		if bp.Status != StatusPending {
			continue
		}
		if !patternMatches(bp.ClassPattern, bp.patternRegexp, class.Name()) {
			continue
		}
		loc, ok := class.LocationOfLine(bp.Line)
		if !ok {
			continue
		}
		req, err := vm.EventRequestManager().CreateBreakpointRequest(loc, jdi.SuspendEventThread)
		if err != nil {
			continue
		}
		req.SetProperty(propBreakpointID, bp.ID)
		if err := req.Enable(); err != nil {
			continue
		}
		if bp.PrepareRequest != nil {
			vm.EventRequestManager().DeleteEventRequest(bp.PrepareRequest)
		}
		bp.Request = req
		bp.PrepareRequest = nil
		bp.Status = StatusSet
		bp.Location = fmt.Sprintf("%s:%d", class.Name(), bp.Line)
		out = append(out, event.Notification{
			Type: "breakpoint_resolved",
			Data: struct {
				BreakpointID int    `json:"breakpoint_id"`
				Location     string `json:"location"`
			}{bp.ID, bp.Location},
		})
	}

	for _, eb := range reg.exceptions.Values() {
		if eb.Status != StatusPending {
			continue
		}
		if !patternMatches(eb.ClassPattern, eb.patternRegexp, class.Name()) {
			continue
		}
		req, err := vm.EventRequestManager().CreateExceptionRequest(class, eb.Caught, eb.Uncaught, jdi.SuspendEventThread)
		if err != nil {
			continue
		}
		req.SetProperty(propExceptionBreakpointID, eb.ID)
		if err := req.Enable(); err != nil {
			continue
		}
		if eb.PrepareRequest != nil {
			vm.EventRequestManager().DeleteEventRequest(eb.PrepareRequest)
		}
		eb.Request = req
		eb.PrepareRequest = nil
		eb.Status = StatusSet
		out = append(out, event.Notification{
			Type: "exception_breakpoint_resolved",
			Data: struct {
				BreakpointID int    `json:"breakpoint_id"`
				ClassPattern string `json:"class_pattern"`
			}{eb.ID, eb.ClassPattern},
		})
	}

	return out
}
