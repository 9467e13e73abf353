package breakpoint

import (
	"strconv"
	"time"

	"github.com/mabhi256/jdiag-bridge/internal/condition"
	"github.com/mabhi256/jdiag-bridge/internal/event"
	"github.com/mabhi256/jdiag-bridge/internal/frames"
	"github.com/mabhi256/jdiag-bridge/internal/inspect"
	"github.com/mabhi256/jdiag-bridge/internal/jdi"
	"github.com/mabhi256/jdiag-bridge/internal/mapping"
	"github.com/mabhi256/jdiag-bridge/internal/stopped"
)

// HitResult tells the event loop whether to resume the event set that
// carried the triggering event, and what to notify the client of.
type HitResult struct {
	ResumeEventSet bool
	Notifications  []event.Notification
}

// OnBreakpointHit implements spec.md §4.G's four-step dispatch order:
// look the breakpoint up by its stashed id, evaluate its condition (FALSE
// auto-resumes silently, ERROR notifies and auto-resumes), fire a logpoint
// without suspending if a log message is configured, or else build and
// emit the full stopped payload and leave the thread suspended.
func (reg *Registry) OnBreakpointHit(req jdi.EventRequest, thread jdi.ThreadReference, m *mapping.Mapping, opts inspect.Options, markSuspended func(jdi.ThreadReference, time.Time)) (HitResult, error) {
	id, _ := req.GetProperty(propBreakpointID).(int)
	bp := reg.lookupBreakpoint(id)
	if bp == nil {
		return HitResult{ResumeEventSet: true}, nil
	}

	frame, err := primaryFrame(thread)
	if err != nil {
		return HitResult{}, err
	}

	if bp.Condition != nil {
		result := bp.Condition.Eval(inspect.ConditionResolver(frame, opts))
		switch result.Outcome {
		case condition.OutcomeFalse:
			return HitResult{ResumeEventSet: true}, nil
		case condition.OutcomeError:
			return HitResult{
				ResumeEventSet: true,
				Notifications: []event.Notification{{
					Type: "breakpoint_condition_error",
					Data: struct {
						BreakpointID int    `json:"breakpoint_id"`
						Condition    string `json:"condition"`
						Error        string `json:"error"`
						Location     string `json:"location"`
					}{bp.ID, bp.ConditionSource, result.Message, locationString(frame.Location())},
				}},
			}, nil
		}
	}

	if bp.LogMessage != "" {
		bp.HitCount++
		loc := frame.Location()
		hit := LogHit{
			TimestampMs:     time.Now().UnixMilli(),
			Location:        loc.ClassName() + ":" + loc.MethodName(),
			Thread:          thread.Name(),
			HitCount:        bp.HitCount,
			ResolvedMessage: resolveLogMessage(bp.LogMessage, bp.HitCount, frame, opts),
		}
		if bp.CaptureStack {
			hit.StackFrames = captureStackText(thread, bp.StackMaxFrames)
		}
		bp.hits.push(hit)
		return HitResult{
			ResumeEventSet: true,
			Notifications: []event.Notification{{
				Type: "logpoint_hit",
				Data: struct {
					BreakpointID int      `json:"breakpoint_id"`
					TimestampMs  int64    `json:"timestamp_ms"`
					Location     string   `json:"location"`
					Thread       string   `json:"thread"`
					HitCount     int      `json:"hit_count"`
					Message      string   `json:"message"`
					Stack        []string `json:"stack,omitempty"`
				}{bp.ID, hit.TimestampMs, hit.Location, hit.Thread, hit.HitCount, hit.ResolvedMessage, hit.StackFrames},
			}},
		}, nil
	}

	bp.HitCount++
	payload, err := stopped.Build(thread, m, opts, time.Now())
	if err != nil {
		return HitResult{}, err
	}
	markSuspended(thread, time.Now())

	data := struct {
		BreakpointID int    `json:"breakpoint_id"`
		Condition    string `json:"condition,omitempty"`
		stopped.Payload
	}{bp.ID, bp.ConditionSource, payload}

	return HitResult{
		ResumeEventSet: false,
		Notifications:  []event.Notification{{Type: "breakpoint_hit", Data: data}},
	}, nil
}

// OnExceptionHit implements spec.md §4.G's exception_hit dispatch: always
// suspends (exception breakpoints have no condition/logpoint modes).
func (reg *Registry) OnExceptionHit(req jdi.EventRequest, thread jdi.ThreadReference, exc *jdi.Value, throwLoc, catchLoc jdi.Location, m *mapping.Mapping, opts inspect.Options, markSuspended func(jdi.ThreadReference, time.Time)) (HitResult, error) {
	id, _ := req.GetProperty(propExceptionBreakpointID).(int)
	eb := reg.lookupException(id)
	if eb == nil {
		return HitResult{ResumeEventSet: true}, nil
	}

	payload, err := stopped.Build(thread, m, opts, time.Now())
	if err != nil {
		return HitResult{}, err
	}
	markSuspended(thread, time.Now())

	excClass := ""
	excMessage := ""
	if exc != nil && exc.Kind == jdi.KindObject && exc.Object != nil {
		excClass = exc.Object.ClassName
		if s, ok, _ := exc.Object.InvokeToString(thread); ok {
			excMessage = s
		}
	}

	var catch any
	if catchLoc != nil {
		catch = locationString(catchLoc)
	}

	data := struct {
		BreakpointID    int    `json:"breakpoint_id"`
		ExceptionClass  string `json:"exception_class"`
		ExceptionMessage string `json:"exception_message,omitempty"`
		ThrowLocation   string `json:"throw_location"`
		CatchLocation   any    `json:"catch_location"`
		stopped.Payload
	}{eb.ID, excClass, excMessage, locationString(throwLoc), catch, payload}

	return HitResult{
		ResumeEventSet: false,
		Notifications:  []event.Notification{{Type: "exception_hit", Data: data}},
	}, nil
}

func (reg *Registry) lookupBreakpoint(id int) *Breakpoint {
	bp, _ := reg.breakpoints.Get(id)
	return bp
}

func (reg *Registry) lookupException(id int) *ExceptionBreakpoint {
	eb, _ := reg.exceptions.Get(id)
	return eb
}

func primaryFrame(thread jdi.ThreadReference) (jdi.StackFrame, error) {
	stack, err := thread.Frames()
	if err != nil {
		return nil, err
	}
	classified := make([]frames.Frame, len(stack))
	for i, f := range stack {
		classified[i] = frames.Frame{ClassName: f.Location().ClassName()}
	}
	idx, _ := frames.PrimarySelection(classified)
	return stack[idx], nil
}

func locationString(loc jdi.Location) string {
	if loc == nil {
		return ""
	}
	return loc.ClassName() + "." + loc.MethodName() + ":" + strconv.Itoa(loc.LineNumber())
}
