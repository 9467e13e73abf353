// Package stopped builds the "stopped" payload shared by the breakpoint
// subsystem and thread control (spec.md §4.H: "shared with §4.G"): the
// primary-frame selection, mapping-aware location/method, rendered
// locals, and the main-thread ANR warning.
package stopped

import (
	"fmt"
	"time"

	"github.com/mabhi256/jdiag-bridge/internal/frames"
	"github.com/mabhi256/jdiag-bridge/internal/inspect"
	"github.com/mabhi256/jdiag-bridge/internal/jdi"
	"github.com/mabhi256/jdiag-bridge/internal/mapping"
)

// ANRWarningSeconds is spec.md §5's continuous-suspension threshold for
// the "main" thread warning.
const ANRWarningSeconds = 8

// FrameFilterEntry mirrors a collapsed run reported in Payload.FrameFilters.
type FrameFilterEntry struct {
	Filtered bool   `json:"filtered"`
	Count    int    `json:"count"`
	Reason   string `json:"reason"`
}

// Payload is the JSON shape breakpoint_hit, exception_hit and step_over/
// into/out all embed.
type Payload struct {
	Status             string             `json:"status"`
	Location           string             `json:"location"`
	Method             string             `json:"method"`
	Thread             string             `json:"thread"`
	FrameFilters       []FrameFilterEntry `json:"frame_filters,omitempty"`
	Locals             map[string]any     `json:"locals"`
	TokenUsageEstimate int                `json:"token_usage_estimate"`
	Truncated          bool               `json:"truncated"`
	Warning            string             `json:"warning,omitempty"`
}

// Build enumerates thread's frames, selects the first non-internal one as
// primary, inspects its locals, and attaches the ANR warning when
// suspendedSince indicates "main" has been paused for too long.
func Build(thread jdi.ThreadReference, m *mapping.Mapping, opts inspect.Options, suspendedSince time.Time) (Payload, error) {
	stack, err := thread.Frames()
	if err != nil {
		return Payload{}, err
	}
	if len(stack) == 0 {
		return Payload{}, fmt.Errorf("stopped: thread %s has no frames", thread.Name())
	}

	classified := make([]frames.Frame, len(stack))
	for i, f := range stack {
		classified[i] = frames.Frame{ClassName: f.Location().ClassName()}
	}
	primaryIndex, filteredBefore := frames.PrimarySelection(classified)
	primary := stack[primaryIndex]
	loc := primary.Location()

	rawClass := loc.ClassName()
	rawMethod := loc.MethodName()
	className := rawClass
	methodName := rawMethod
	if m != nil {
		if orig, ok := m.DeobfuscateClass(rawClass); ok {
			className = orig
		}
		// arity is unknown here (jdi.Location carries no parameter count),
		// so overload disambiguation falls back to "first candidate wins".
		if orig, ok := m.DeobfuscateMethod(rawClass, rawMethod, 0, false); ok {
			methodName = orig
		}
	}

	locals, err := renderLocals(primary, opts)
	if err != nil {
		return Payload{}, err
	}

	var filters []FrameFilterEntry
	if filteredBefore > 0 {
		filters = append(filters, FrameFilterEntry{Filtered: true, Count: filteredBefore, Reason: "coroutine_internal"})
	}

	payload := Payload{
		Status:             "stopped",
		Location:           fmt.Sprintf("%s:%d", className, loc.LineNumber()),
		Method:             methodName,
		Thread:             thread.Name(),
		FrameFilters:       filters,
		Locals:             locals,
		TokenUsageEstimate: opts.Budget.TokenUsageEstimate(),
		Truncated:          opts.Budget.Truncated(),
	}
	if thread.Name() == "main" && !suspendedSince.IsZero() && time.Since(suspendedSince) >= ANRWarningSeconds*time.Second {
		payload.Warning = "thread \"main\" has been suspended for over 8s; call resume to avoid an ANR"
	}
	return payload, nil
}

func renderLocals(frame jdi.StackFrame, opts inspect.Options) (map[string]any, error) {
	vars, err := frame.VisibleVariables()
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(vars))
	for _, v := range vars {
		if !opts.Budget.TryConsume(len(v.Name()) + 2) {
			opts.Budget.MarkTruncated()
			break
		}
		val, err := frame.GetLocalValue(v)
		if err != nil {
			return nil, err
		}
		rendered, err := inspect.Render(val, 1, opts)
		if err != nil {
			return nil, err
		}
		out[v.Name()] = rendered
	}
	return out, nil
}
