package threads

import (
	"github.com/mabhi256/jdiag-bridge/internal/frames"
	"github.com/mabhi256/jdiag-bridge/internal/jdi"
	"github.com/mabhi256/jdiag-bridge/internal/mapping"
	"github.com/mabhi256/jdiag-bridge/internal/rpcerr"
)

// StackFrameEntry is one visible entry of stack_trace's response.
type StackFrameEntry struct {
	Class  string `json:"class"`
	Method string `json:"method"`
	Line   int    `json:"line"`
}

// FilteredEntry reports one collapsed run of internal frames inline with
// the visible entries, per spec.md §4.H ("collapsed entries carry
// {filtered,count,reason}").
type FilteredEntry struct {
	Filtered bool   `json:"filtered"`
	Count    int    `json:"count"`
	Reason   string `json:"reason"`
}

// StackTraceResult is stack_trace's response shape; Frames holds a mix of
// StackFrameEntry and FilteredEntry values in stack order.
type StackTraceResult struct {
	Frames       []any `json:"frames"`
	TotalFrames  int   `json:"total_frames"`
	ShownFrames  int   `json:"shown_frames"`
	Truncated    bool  `json:"truncated"`
}

// StackTrace implements spec.md §4.H's stack_trace: requires a suspended
// thread, applies the coroutine filter, caps visible entries at
// maxFrames, and deobfuscates every visible class/method name.
func StackTrace(vm jdi.VM, threadName string, maxFrames int, m *mapping.Mapping) (StackTraceResult, error) {
	if maxFrames <= 0 {
		return StackTraceResult{}, rpcerr.InvalidParams("max_frames must be positive, got %d", maxFrames)
	}
	thread, err := findThread(vm, threadName)
	if err != nil {
		return StackTraceResult{}, err
	}
	if !thread.IsSuspended() {
		return StackTraceResult{}, rpcerr.Tagged(rpcerr.CodeInvalidRequest, rpcerr.TagNotSuspended, "thread %q is not suspended", threadName)
	}

	stack, err := thread.Frames()
	if err != nil {
		return StackTraceResult{}, err
	}

	classified := make([]frames.Frame, len(stack))
	for i, f := range stack {
		classified[i] = frames.Frame{ClassName: f.Location().ClassName()}
	}
	groups := frames.Collapse(classified)

	result := StackTraceResult{TotalFrames: len(stack)}

	frameIdx := 0
	for _, g := range groups {
		if g.Filtered {
			result.Frames = append(result.Frames, FilteredEntry{Filtered: true, Count: g.Count, Reason: g.Reason})
			frameIdx += g.Count
			continue
		}
		if result.ShownFrames >= maxFrames {
			result.Truncated = true
			break
		}
		loc := stack[frameIdx].Location()
		class := loc.ClassName()
		method := loc.MethodName()
		if m != nil {
			if orig, ok := m.DeobfuscateClass(class); ok {
				class = orig
			}
			if orig, ok := m.DeobfuscateMethod(loc.ClassName(), loc.MethodName(), 0, false); ok {
				method = orig
			}
		}
		result.Frames = append(result.Frames, StackFrameEntry{
			Class:  class,
			Method: method,
			Line:   loc.LineNumber(),
		})
		result.ShownFrames++
		frameIdx++
	}

	if result.ShownFrames < len(stack)-countFiltered(groups) {
		result.Truncated = true
	}

	return result, nil
}

func countFiltered(groups []frames.Group) int {
	n := 0
	for _, g := range groups {
		if g.Filtered {
			n += g.Count
		}
	}
	return n
}
