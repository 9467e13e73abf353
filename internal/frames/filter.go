// Package frames implements the coroutine/continuation frame filter of
// spec.md §4.E: classify a frame as internal by its declaring class, then
// offer a collapsed linear view and a primary-frame selector.
package frames

import "strings"

// internalPrefixes name the packages spec.md calls out: "the platform's
// coroutines runtime and generated continuation classes" — Kotlin's
// coroutine machinery, the only coroutine runtime in play for a JVM/
// Android debugging target.
var internalPrefixes = []string{
	"kotlin.coroutines.",
	"kotlinx.coroutines.",
}

// IsInternal reports whether className belongs to the coroutine runtime or
// is a compiler-generated continuation class: its name, compared
// case-insensitively, contains "$continuation" or ends in "continuationimpl".
func IsInternal(className string) bool {
	for _, p := range internalPrefixes {
		if strings.HasPrefix(className, p) {
			return true
		}
	}
	lower := strings.ToLower(className)
	return strings.Contains(lower, "$continuation") || strings.HasSuffix(lower, "continuationimpl")
}

// Frame is the minimal view the filter needs; callers adapt their real
// stack-frame type into this.
type Frame struct {
	ClassName string
}

// Group is either a single visible frame or a collapsed run of internal
// frames.
type Group struct {
	Filtered bool
	Count    int
	Reason   string // "coroutine_internal" when Filtered
	Frame    *Frame // set when !Filtered
}

// Collapse walks frames top-to-bottom, merging consecutive internal frames
// into a single {filtered:true, count, reason:"coroutine_internal"} group.
func Collapse(stack []Frame) []Group {
	var groups []Group
	i := 0
	for i < len(stack) {
		if IsInternal(stack[i].ClassName) {
			start := i
			for i < len(stack) && IsInternal(stack[i].ClassName) {
				i++
			}
			groups = append(groups, Group{Filtered: true, Count: i - start, Reason: "coroutine_internal"})
			continue
		}
		f := stack[i]
		groups = append(groups, Group{Frame: &f})
		i++
	}
	return groups
}

// PrimarySelection returns the 0-based index of the first non-internal
// frame, and how many frames were filtered out before it.
func PrimarySelection(stack []Frame) (primaryIndex int, filteredBefore int) {
	for i, f := range stack {
		if !IsInternal(f.ClassName) {
			return i, i
		}
	}
	return 0, len(stack)
}
