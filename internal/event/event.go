// Package event defines the single notification envelope the breakpoint
// subsystem, thread control, and the event loop hand to internal/rpc's
// Notify (spec.md §6: method "event", params.type one of
// breakpoint_resolved, breakpoint_hit, breakpoint_condition_error,
// logpoint_hit, exception_breakpoint_resolved, exception_hit,
// vm_disconnected).
package event

// Notification is type-agnostic on Data so each producer can use whatever
// struct shape it already built; internal/rpc.Server.Notify flattens
// Data's fields alongside "type" when serializing.
type Notification struct {
	Type string
	Data any
}
