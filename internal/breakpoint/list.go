package breakpoint

import "fmt"

// BreakpointSummary is one entry of list_breakpoints' response (spec.md §6).
type BreakpointSummary struct {
	ID             int    `json:"id"`
	ClassPattern   string `json:"class_pattern"`
	Line           int    `json:"line"`
	Status         Status `json:"status"`
	Location       string `json:"location,omitempty"`
	Condition      string `json:"condition,omitempty"`
	LogMessage     string `json:"log_message,omitempty"`
	HitCount       int    `json:"hit_count"`
	CaptureStack   bool   `json:"capture_stack"`
	StackMaxFrames int    `json:"stack_max_frames,omitempty"`
}

func (reg *Registry) ListBreakpoints() []BreakpointSummary {
	bps := reg.breakpoints.Values()
	out := make([]BreakpointSummary, 0, len(bps))
	for _, bp := range bps {
		out = append(out, BreakpointSummary{
			ID:             bp.ID,
			ClassPattern:   bp.ClassPattern,
			Line:           bp.Line,
			Status:         bp.Status,
			Location:       bp.Location,
			Condition:      bp.ConditionSource,
			LogMessage:     bp.LogMessage,
			HitCount:       bp.HitCount,
			CaptureStack:   bp.CaptureStack,
			StackMaxFrames: bp.StackMaxFrames,
		})
	}
	return out
}

// RemoveBreakpoint deletes both the live and pending JDI requests for id,
// best-effort, and drops it from the registry. An unknown id is the one
// error case; the session layer maps it to INVALID_REQUEST.
func (reg *Registry) RemoveBreakpoint(id int) error {
	bp := reg.lookupBreakpoint(id)
	if bp == nil {
		return fmt.Errorf("no such breakpoint: %d", id)
	}
	if bp.Request != nil {
		bp.Request.Delete()
	}
	if bp.PrepareRequest != nil {
		bp.PrepareRequest.Delete()
	}
	reg.breakpoints.Delete(bp.ID)
	return nil
}

// ExceptionBreakpointSummary is one entry of list_exception_breakpoints'
// response.
type ExceptionBreakpointSummary struct {
	ID           int    `json:"id"`
	ClassPattern string `json:"class_pattern"`
	Caught       bool   `json:"caught"`
	Uncaught     bool   `json:"uncaught"`
	Status       Status `json:"status"`
}

func (reg *Registry) ListExceptionBreakpoints() []ExceptionBreakpointSummary {
	ebs := reg.exceptions.Values()
	out := make([]ExceptionBreakpointSummary, 0, len(ebs))
	for _, eb := range ebs {
		out = append(out, ExceptionBreakpointSummary{
			ID:           eb.ID,
			ClassPattern: eb.ClassPattern,
			Caught:       eb.Caught,
			Uncaught:     eb.Uncaught,
			Status:       eb.Status,
		})
	}
	return out
}

func (reg *Registry) RemoveExceptionBreakpoint(id int) error {
	eb := reg.lookupException(id)
	if eb == nil {
		return fmt.Errorf("no such exception breakpoint: %d", id)
	}
	if eb.Request != nil {
		eb.Request.Delete()
	}
	if eb.PrepareRequest != nil {
		eb.PrepareRequest.Delete()
	}
	reg.exceptions.Delete(eb.ID)
	return nil
}
