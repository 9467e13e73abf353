package session

import (
	"context"

	"github.com/mabhi256/jdiag-bridge/internal/rpc"
	"github.com/mabhi256/jdiag-bridge/internal/threads"
)

// Register wires every method spec.md §6 names onto server, except ping
// and shutdown, which rpc.Server handles itself.
func (s *Session) Register(server *rpc.Server) {
	server.Handle("attach", s.handleAttach)
	server.Handle("detach", s.handleDetach)
	server.Handle("status", s.handleStatus)
	server.Handle("set_breakpoint", s.handleSetBreakpoint)
	server.Handle("remove_breakpoint", s.handleRemoveBreakpoint)
	server.Handle("list_breakpoints", s.handleListBreakpoints)
	server.Handle("set_exception_breakpoint", s.handleSetExceptionBreakpoint)
	server.Handle("remove_exception_breakpoint", s.handleRemoveExceptionBreakpoint)
	server.Handle("list_exception_breakpoints", s.handleListExceptionBreakpoints)
	server.Handle("list_threads", s.handleListThreads)
	server.Handle("step_over", s.stepHandler(threads.ActionStepOver))
	server.Handle("step_into", s.stepHandler(threads.ActionStepInto))
	server.Handle("step_out", s.stepHandler(threads.ActionStepOut))
	server.Handle("resume", s.handleResume)
	server.Handle("stack_trace", s.handleStackTrace)
	server.Handle("inspect_variable", s.handleInspectVariable)
	server.Handle("evaluate", s.handleEvaluate)
	server.Handle("load_mapping", s.handleLoadMapping)
	server.Handle("clear_mapping", s.handleClearMapping)
}

func (s *Session) handleAttach(ctx context.Context, p rpc.Params) (any, error) {
	host := p.String("host", "localhost")
	port, err := p.RequireInt("port")
	if err != nil {
		return nil, err
	}
	keepSuspended := p.Bool("keep_suspended", false)
	return s.Attach(ctx, host, port, keepSuspended)
}

func (s *Session) handleDetach(ctx context.Context, p rpc.Params) (any, error) {
	return s.Detach()
}

func (s *Session) handleStatus(ctx context.Context, p rpc.Params) (any, error) {
	return s.Status(), nil
}

func (s *Session) handleSetBreakpoint(ctx context.Context, p rpc.Params) (any, error) {
	classPattern, err := p.RequireString("class_pattern")
	if err != nil {
		return nil, err
	}
	line, err := p.RequireInt("line")
	if err != nil {
		return nil, err
	}
	condition := p.String("condition", "")
	logMessage := p.String("log_message", "")
	captureStack := p.Bool("capture_stack", false)
	stackMaxFrames := p.Int("stack_max_frames", 10)
	return s.SetBreakpoint(classPattern, line, condition, logMessage, captureStack, stackMaxFrames)
}

func (s *Session) handleRemoveBreakpoint(ctx context.Context, p rpc.Params) (any, error) {
	id, err := p.RequireInt("breakpoint_id")
	if err != nil {
		return nil, err
	}
	if err := s.RemoveBreakpoint(id); err != nil {
		return nil, err
	}
	return map[string]any{"status": "removed", "breakpoint_id": id}, nil
}

func (s *Session) handleListBreakpoints(ctx context.Context, p rpc.Params) (any, error) {
	list, err := s.ListBreakpoints()
	if err != nil {
		return nil, err
	}
	return map[string]any{"count": len(list), "breakpoints": list}, nil
}

func (s *Session) handleSetExceptionBreakpoint(ctx context.Context, p rpc.Params) (any, error) {
	classPattern, err := p.RequireString("class_pattern")
	if err != nil {
		return nil, err
	}
	caught := p.Bool("caught", false)
	uncaught := p.Bool("uncaught", false)
	return s.SetExceptionBreakpoint(classPattern, caught, uncaught)
}

func (s *Session) handleRemoveExceptionBreakpoint(ctx context.Context, p rpc.Params) (any, error) {
	id, err := p.RequireInt("breakpoint_id")
	if err != nil {
		return nil, err
	}
	if err := s.RemoveExceptionBreakpoint(id); err != nil {
		return nil, err
	}
	return map[string]any{"status": "removed", "breakpoint_id": id}, nil
}

func (s *Session) handleListExceptionBreakpoints(ctx context.Context, p rpc.Params) (any, error) {
	list, err := s.ListExceptionBreakpoints()
	if err != nil {
		return nil, err
	}
	return map[string]any{"count": len(list), "exception_breakpoints": list}, nil
}

func (s *Session) handleListThreads(ctx context.Context, p rpc.Params) (any, error) {
	includeDaemon := p.Bool("include_daemon", false)
	maxThreads := p.Int("max_threads", 20)
	return s.ListThreads(includeDaemon, maxThreads)
}

func (s *Session) stepHandler(action threads.Action) rpc.Method {
	return func(ctx context.Context, p rpc.Params) (any, error) {
		threadName := p.String("thread_name", "main")
		timeoutSeconds := p.Float64("timeout_seconds", 10.0)
		outcome, err := s.Step(action, threadName, timeoutSeconds)
		if err != nil {
			return nil, err
		}
		if outcome.TimedOut {
			return map[string]any{
				"status":      outcome.Status,
				"reason":      outcome.Reason,
				"remediation": outcome.Remediation,
			}, nil
		}
		return outcome.Payload, nil
	}
}

func (s *Session) handleResume(ctx context.Context, p rpc.Params) (any, error) {
	var threadName *string
	if name, ok := p.OptionalString("thread_name"); ok {
		threadName = &name
	}
	if err := s.Resume(threadName); err != nil {
		return nil, err
	}
	out := map[string]any{"status": "resumed", "scope": "vm"}
	if threadName != nil {
		out["scope"] = "thread"
		out["thread"] = *threadName
	}
	return out, nil
}

func (s *Session) handleStackTrace(ctx context.Context, p rpc.Params) (any, error) {
	threadName := p.String("thread_name", "main")
	maxFrames := p.Int("max_frames", 10)
	result, err := s.StackTrace(threadName, maxFrames)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"thread":      threadName,
		"frame_count": result.TotalFrames,
		"frames":      result.Frames,
		"truncated":   result.Truncated,
	}, nil
}

func (s *Session) handleInspectVariable(ctx context.Context, p rpc.Params) (any, error) {
	threadName := p.String("thread_name", "main")
	frameIndex := p.Int("frame_index", 0)
	path, err := p.RequireString("variable_path")
	if err != nil {
		return nil, err
	}
	depth := p.Int("depth", 1)
	env, err := s.InspectVariable(threadName, frameIndex, path, depth)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"value":                env.Value,
		"token_usage_estimate": env.TokenUsageEstimate,
		"truncated":            env.Truncated,
	}, nil
}

func (s *Session) handleEvaluate(ctx context.Context, p rpc.Params) (any, error) {
	threadName := p.String("thread_name", "main")
	frameIndex := p.Int("frame_index", 0)
	expr, err := p.RequireString("expression")
	if err != nil {
		return nil, err
	}
	env, err := s.Evaluate(threadName, frameIndex, expr)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"result":               env.Value,
		"token_usage_estimate": env.TokenUsageEstimate,
		"truncated":            env.Truncated,
	}, nil
}

func (s *Session) handleLoadMapping(ctx context.Context, p rpc.Params) (any, error) {
	path, err := p.RequireString("path")
	if err != nil {
		return nil, err
	}
	result, err := s.LoadMapping(path)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":       result.Status,
		"path":         path,
		"class_count":  result.ClassCount,
		"member_count": result.MemberCount,
	}, nil
}

func (s *Session) handleClearMapping(ctx context.Context, p rpc.Params) (any, error) {
	s.ClearMapping()
	return map[string]any{"status": "cleared"}, nil
}
