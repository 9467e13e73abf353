package breakpoint

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/mabhi256/jdiag-bridge/internal/inspect"
	"github.com/mabhi256/jdiag-bridge/internal/jdi"
)

var placeholderRe = regexp.MustCompile(`\{([^{}]+)\}`)

// resolveLogMessage substitutes {hitCount} and {path} placeholders in a
// logpoint's message template (spec.md §3's LogMessage), leaving any
// placeholder that fails to resolve untouched in the output.
func resolveLogMessage(template string, hitCount int, frame jdi.StackFrame, opts inspect.Options) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(m string) string {
		name := m[1 : len(m)-1]
		if name == "hitCount" {
			return strconv.Itoa(hitCount)
		}
		v, err := inspect.ResolvePath(frame, name, opts)
		if err != nil {
			return m
		}
		return inspect.RenderToString(v)
	})
}

// captureStackText renders up to maxFrames stack entries as plain
// "class.method:line" text, without mapping deobfuscation — a documented
// simplification since the full stack walk here is only used for
// logpoint diagnostics, not the primary stopped payload.
func captureStackText(thread jdi.ThreadReference, maxFrames int) []string {
	frames, err := thread.Frames()
	if err != nil {
		return nil
	}
	if maxFrames > 0 && len(frames) > maxFrames {
		frames = frames[:maxFrames]
	}
	out := make([]string, 0, len(frames))
	for _, f := range frames {
		loc := f.Location()
		out = append(out, fmt.Sprintf("%s.%s:%d", loc.ClassName(), loc.MethodName(), loc.LineNumber()))
	}
	return out
}
