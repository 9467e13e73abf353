package breakpoint

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mabhi256/jdiag-bridge/internal/budget"
	"github.com/mabhi256/jdiag-bridge/internal/inspect"
	"github.com/mabhi256/jdiag-bridge/internal/jdi"
	"github.com/mabhi256/jdiag-bridge/internal/jdi/fake"
	"github.com/mabhi256/jdiag-bridge/internal/objectcache"
)

func testOpts() (inspect.Options, *objectcache.Cache) {
	cache := objectcache.New()
	return inspect.Options{
		Budget: budget.New(budget.DefaultMaxTokens),
		Handle: cache.Handle,
		Lookup: cache.Lookup,
	}, cache
}

func TestSetBreakpointResolvesImmediately(t *testing.T) {
	vm := fake.NewVM("test", "1.0")
	vm.LoadClass("com.example.Main", 10, 11, 12)
	reg := NewRegistry()

	bp, result, err := reg.SetBreakpoint(vm, "com.example.Main", 10, "", "", false, 0)
	require.NoError(t, err)
	assert.Equal(t, "set", result.Status)
	assert.Equal(t, StatusSet, bp.Status)
	assert.Equal(t, "com.example.Main:10", bp.Location)
	assert.Len(t, vm.EventRequestManager().(*fake.EventRequestManager).LiveRequests(), 1)
}

func TestSetBreakpointRejectsNonPositiveLine(t *testing.T) {
	vm := fake.NewVM("test", "1.0")
	vm.LoadClass("com.example.Main", 10)
	reg := NewRegistry()

	_, _, err := reg.SetBreakpoint(vm, "com.example.Main", 0, "", "", false, 0)
	assert.Error(t, err)

	_, _, err = reg.SetBreakpoint(vm, "com.example.Main", -1, "", "", false, 0)
	assert.Error(t, err)
}

func TestSetBreakpointPendingUntilClassPrepare(t *testing.T) {
	vm := fake.NewVM("test", "1.0")
	reg := NewRegistry()

	bp, result, err := reg.SetBreakpoint(vm, "com.example.Main", 10, "", "", false, 0)
	require.NoError(t, err)
	assert.Equal(t, "pending", result.Status)
	assert.Equal(t, "class_not_loaded", result.Reason)
	assert.Equal(t, StatusPending, bp.Status)

	vm.LoadClass("com.example.Main", 10)
	notes := reg.ResolvePending(vm, vmClass(t, vm, "com.example.Main"))
	require.Len(t, notes, 1)
	assert.Equal(t, "breakpoint_resolved", notes[0].Type)
	assert.Equal(t, StatusSet, bp.Status)
	assert.Equal(t, "com.example.Main:10", bp.Location)
}

func vmClass(t *testing.T, vm *fake.VM, name string) jdi.ReferenceType {
	t.Helper()
	for _, c := range vm.AllClasses() {
		if c.Name() == name {
			return c
		}
	}
	t.Fatalf("class %q not loaded", name)
	return nil
}

func TestOnBreakpointHitConditionFalseResumes(t *testing.T) {
	vm := fake.NewVM("test", "1.0")
	vm.LoadClass("com.example.Main", 10)
	reg := NewRegistry()
	bp, _, err := reg.SetBreakpoint(vm, "com.example.Main", 10, "x > 5", "", false, 0)
	require.NoError(t, err)

	th := vm.AddThread("main", false)
	th.SetFrames(fake.NewFrame(fake.NewLocation("com.example.Main", "run", 10)).
		WithLocal("x", jdi.Value{Kind: jdi.KindInt, Number: 1}))

	opts, _ := testOpts()
	var suspendedAt time.Time
	result, err := reg.OnBreakpointHit(bp.Request, th, nil, opts, func(jdi.ThreadReference, time.Time) { suspendedAt = time.Now() })
	require.NoError(t, err)
	assert.True(t, result.ResumeEventSet)
	assert.Empty(t, result.Notifications)
	assert.True(t, suspendedAt.IsZero())
}

func TestOnBreakpointHitConditionErrorNotifiesAndResumes(t *testing.T) {
	vm := fake.NewVM("test", "1.0")
	vm.LoadClass("com.example.Main", 10)
	reg := NewRegistry()
	bp, _, err := reg.SetBreakpoint(vm, "com.example.Main", 10, "missing > 5", "", false, 0)
	require.NoError(t, err)

	th := vm.AddThread("main", false)
	th.SetFrames(fake.NewFrame(fake.NewLocation("com.example.Main", "run", 10)))

	opts, _ := testOpts()
	result, err := reg.OnBreakpointHit(bp.Request, th, nil, opts, func(jdi.ThreadReference, time.Time) {})
	require.NoError(t, err)
	assert.True(t, result.ResumeEventSet)
	require.Len(t, result.Notifications, 1)
	assert.Equal(t, "breakpoint_condition_error", result.Notifications[0].Type)
}

func TestOnBreakpointHitLogpointResumesAndPushesRing(t *testing.T) {
	vm := fake.NewVM("test", "1.0")
	vm.LoadClass("com.example.Main", 10)
	reg := NewRegistry()
	bp, _, err := reg.SetBreakpoint(vm, "com.example.Main", 10, "", "hit #{hitCount} x={x}", false, 0)
	require.NoError(t, err)

	th := vm.AddThread("main", false)
	th.SetFrames(fake.NewFrame(fake.NewLocation("com.example.Main", "run", 10)).
		WithLocal("x", jdi.Value{Kind: jdi.KindInt, Number: 42}))

	opts, _ := testOpts()
	result, err := reg.OnBreakpointHit(bp.Request, th, nil, opts, func(jdi.ThreadReference, time.Time) {
		t.Fatal("logpoint must not suspend")
	})
	require.NoError(t, err)
	assert.True(t, result.ResumeEventSet)
	require.Len(t, result.Notifications, 1)
	assert.Equal(t, "logpoint_hit", result.Notifications[0].Type)
	assert.Equal(t, 1, bp.HitCount)
	require.Len(t, bp.RecentHits(), 1)
	assert.Equal(t, "hit #1 x=42", bp.RecentHits()[0].ResolvedMessage)
}

func TestOnBreakpointHitBuildsStoppedPayload(t *testing.T) {
	vm := fake.NewVM("test", "1.0")
	vm.LoadClass("com.example.Main", 10)
	reg := NewRegistry()
	bp, _, err := reg.SetBreakpoint(vm, "com.example.Main", 10, "", "", false, 0)
	require.NoError(t, err)

	th := vm.AddThread("worker", false)
	th.SetFrames(fake.NewFrame(fake.NewLocation("com.example.Main", "run", 10)))

	opts, _ := testOpts()
	var suspended bool
	result, err := reg.OnBreakpointHit(bp.Request, th, nil, opts, func(jdi.ThreadReference, time.Time) { suspended = true })
	require.NoError(t, err)
	assert.False(t, result.ResumeEventSet)
	assert.True(t, suspended)
	require.Len(t, result.Notifications, 1)
	assert.Equal(t, "breakpoint_hit", result.Notifications[0].Type)
	assert.Equal(t, 1, bp.HitCount)
}

func TestListAndRemoveBreakpoint(t *testing.T) {
	vm := fake.NewVM("test", "1.0")
	vm.LoadClass("com.example.Main", 10)
	reg := NewRegistry()
	bp, _, err := reg.SetBreakpoint(vm, "com.example.Main", 10, "", "", false, 0)
	require.NoError(t, err)

	list := reg.ListBreakpoints()
	require.Len(t, list, 1)
	assert.Equal(t, bp.ID, list[0].ID)

	require.NoError(t, reg.RemoveBreakpoint(bp.ID))
	assert.Empty(t, reg.ListBreakpoints())
	assert.Error(t, reg.RemoveBreakpoint(bp.ID))
}

func TestSetExceptionBreakpointAllExceptions(t *testing.T) {
	vm := fake.NewVM("test", "1.0")
	reg := NewRegistry()

	eb, result, err := reg.SetExceptionBreakpoint(vm, "*", true, true)
	require.NoError(t, err)
	assert.Equal(t, "set", result.Status)
	assert.Equal(t, StatusSet, eb.Status)
}

func TestSetExceptionBreakpointRequiresCaughtOrUncaught(t *testing.T) {
	vm := fake.NewVM("test", "1.0")
	reg := NewRegistry()

	_, _, err := reg.SetExceptionBreakpoint(vm, "*", false, false)
	assert.Error(t, err)
}

func TestSetExceptionBreakpointPendingThenResolved(t *testing.T) {
	vm := fake.NewVM("test", "1.0")
	reg := NewRegistry()

	eb, result, err := reg.SetExceptionBreakpoint(vm, "com.example.MyException", true, true)
	require.NoError(t, err)
	assert.Equal(t, "pending", result.Status)

	vm.LoadClass("com.example.MyException")
	notes := reg.ResolvePending(vm, vmClass(t, vm, "com.example.MyException"))
	require.Len(t, notes, 1)
	assert.Equal(t, "exception_breakpoint_resolved", notes[0].Type)
	assert.Equal(t, StatusSet, eb.Status)
}

func TestOnExceptionHitBuildsPayload(t *testing.T) {
	vm := fake.NewVM("test", "1.0")
	reg := NewRegistry()
	eb, _, err := reg.SetExceptionBreakpoint(vm, "*", true, true)
	require.NoError(t, err)

	th := vm.AddThread("main", false)
	th.SetFrames(fake.NewFrame(fake.NewLocation("com.example.Main", "run", 20)))

	excObj := fake.NewObject(vm, "com.example.MyException").WithToString("boom").Value()
	throwLoc := fake.NewLocation("com.example.Main", "run", 20)

	opts, _ := testOpts()
	var suspended bool
	result, err := reg.OnExceptionHit(eb.Request, th, &excObj, throwLoc, nil, nil, opts, func(jdi.ThreadReference, time.Time) { suspended = true })
	require.NoError(t, err)
	assert.True(t, suspended)
	assert.False(t, result.ResumeEventSet)
	require.Len(t, result.Notifications, 1)
	assert.Equal(t, "exception_hit", result.Notifications[0].Type)
}

func TestListAndRemoveExceptionBreakpoint(t *testing.T) {
	vm := fake.NewVM("test", "1.0")
	reg := NewRegistry()
	eb, _, err := reg.SetExceptionBreakpoint(vm, "*", true, false)
	require.NoError(t, err)

	require.Len(t, reg.ListExceptionBreakpoints(), 1)
	require.NoError(t, reg.RemoveExceptionBreakpoint(eb.ID))
	assert.Empty(t, reg.ListExceptionBreakpoints())
	assert.Error(t, reg.RemoveExceptionBreakpoint(eb.ID))
}
