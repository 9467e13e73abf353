package threads

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mabhi256/jdiag-bridge/internal/budget"
	"github.com/mabhi256/jdiag-bridge/internal/inspect"
	"github.com/mabhi256/jdiag-bridge/internal/jdi/fake"
	"github.com/mabhi256/jdiag-bridge/internal/objectcache"
)

func testOpts() inspect.Options {
	cache := objectcache.New()
	return inspect.Options{
		Budget: budget.New(budget.DefaultMaxTokens),
		Handle: cache.Handle,
		Lookup: cache.Lookup,
	}
}

func TestListThreadsFiltersDaemonsAndCaps(t *testing.T) {
	vm := fake.NewVM("test", "1.0")
	vm.AddThread("main", false)
	vm.AddThread("Binder:1", true)
	vm.AddThread("worker-1", false)

	result, err := ListThreads(vm, false, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalThreads)
	assert.Len(t, result.Threads, 2)
	assert.False(t, result.Truncated)

	resultCapped, err := ListThreads(vm, true, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, resultCapped.TotalThreads)
	assert.Equal(t, 2, resultCapped.ShownThreads)
	assert.True(t, resultCapped.Truncated)
}

func TestListThreadsRejectsNonPositiveMaxThreads(t *testing.T) {
	vm := fake.NewVM("test", "1.0")
	vm.AddThread("main", false)

	_, err := ListThreads(vm, true, 0)
	assert.Error(t, err)

	_, err = ListThreads(vm, true, -1)
	assert.Error(t, err)
}

func TestListThreadsState(t *testing.T) {
	vm := fake.NewVM("test", "1.0")
	th := vm.AddThread("main", false)
	result, err := ListThreads(vm, true, 10)
	require.NoError(t, err)
	require.Len(t, result.Threads, 1)
	assert.Equal(t, StateRunning, result.Threads[0].State)

	th.Suspend()
	result, err = ListThreads(vm, true, 10)
	require.NoError(t, err)
	assert.Equal(t, StateSuspended, result.Threads[0].State)
}

func TestStepRejectsBlankThreadOrBadTimeout(t *testing.T) {
	vm := fake.NewVM("test", "1.0")
	c := NewController(func() {})

	_, err := c.Step(vm, ActionStepOver, "", 5)
	assert.Error(t, err)

	_, err = c.Step(vm, ActionStepOver, "main", 0)
	assert.Error(t, err)
}

func TestStepRejectsConcurrentStep(t *testing.T) {
	vm := fake.NewVM("test", "1.0")
	vm.AddThread("main", false)
	c := NewController(func() {})

	_, err := c.Step(vm, ActionStepOver, "main", 5)
	require.NoError(t, err)

	_, err = c.Step(vm, ActionStepOver, "main", 5)
	assert.Error(t, err)
}

func TestStepCompletesOnStepEvent(t *testing.T) {
	vm := fake.NewVM("test", "1.0")
	th := vm.AddThread("main", false)
	c := NewController(func() {})

	step, err := c.Step(vm, ActionStepOver, "main", 5)
	require.NoError(t, err)

	th.SetFrames(fake.NewFrame(fake.NewLocation("com.example.Main", "run", 11)))

	done := make(chan StepOutcome, 1)
	go func() { done <- c.Wait(vm, step, 5*time.Second) }()

	require.NoError(t, c.OnStepEvent(step.Request, th, nil, testOpts()))

	outcome := <-done
	assert.False(t, outcome.TimedOut)
	assert.Equal(t, "stopped", outcome.Status)
	assert.Equal(t, "com.example.Main:11", outcome.Payload.Location)

	_, suspended := c.SuspendedSince("main")
	assert.True(t, suspended)
}

func TestStepTimesOut(t *testing.T) {
	vm := fake.NewVM("test", "1.0")
	vm.AddThread("main", false)
	c := NewController(func() {})

	step, err := c.Step(vm, ActionStepOver, "main", 1)
	require.NoError(t, err)

	outcome := c.Wait(vm, step, 20*time.Millisecond)
	assert.True(t, outcome.TimedOut)
	assert.Equal(t, "timeout", outcome.Status)
	assert.Contains(t, outcome.Reason, "step_over")
}

func TestOnDisconnectCompletesPendingStepWithRemediation(t *testing.T) {
	vm := fake.NewVM("test", "1.0")
	vm.AddThread("main", false)
	c := NewController(func() {})

	step, err := c.Step(vm, ActionStepOver, "main", 5)
	require.NoError(t, err)

	c.OnDisconnect()
	outcome := <-step.completion
	assert.True(t, outcome.TimedOut)
	assert.Contains(t, outcome.Remediation, "re-attach")
}

func TestResumeVMWideClearsSuspendedMap(t *testing.T) {
	vm := fake.NewVM("test", "1.0")
	th := vm.AddThread("main", false)
	th.Suspend()
	c := NewController(func() {})
	c.markSuspended(th, time.Now())

	require.NoError(t, c.Resume(vm, nil))
	assert.False(t, th.IsSuspended())
	_, ok := c.SuspendedSince("main")
	assert.False(t, ok)
}

func TestResumeNamedThreadFullyResumesWithinCap(t *testing.T) {
	vm := fake.NewVM("test", "1.0")
	th := vm.AddThread("main", false)
	for i := 0; i < 3; i++ {
		th.Suspend()
	}
	c := NewController(func() {})
	name := "main"

	require.NoError(t, c.Resume(vm, &name))
	assert.False(t, th.IsSuspended())
	_, ok := c.SuspendedSince("main")
	assert.False(t, ok)
}

func TestResumeNamedThreadStopsAtCapOnRunawayCounter(t *testing.T) {
	vm := fake.NewVM("test", "1.0")
	th := vm.AddThread("main", false)
	for i := 0; i < 50; i++ {
		th.Suspend()
	}
	c := NewController(func() {})
	name := "main"

	require.NoError(t, c.Resume(vm, &name))
	assert.True(t, th.IsSuspended())
	assert.Equal(t, 18, th.SuspendCount())
}

func TestStackTraceRequiresSuspendedThread(t *testing.T) {
	vm := fake.NewVM("test", "1.0")
	vm.AddThread("main", false)

	_, err := StackTrace(vm, "main", 10, nil)
	assert.Error(t, err)
}

func TestStackTraceCollapsesInternalFrames(t *testing.T) {
	vm := fake.NewVM("test", "1.0")
	th := vm.AddThread("main", false)
	th.Suspend()
	th.SetFrames(
		fake.NewFrame(fake.NewLocation("kotlinx.coroutines.DispatchedTask", "run", 1)),
		fake.NewFrame(fake.NewLocation("kotlinx.coroutines.internal.ScopeCoroutine", "resumeWith", 2)),
		fake.NewFrame(fake.NewLocation("com.example.Worker", "doWork", 42)),
	)

	result, err := StackTrace(vm, "main", 10, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, result.TotalFrames)
	require.Len(t, result.Frames, 2)
	filtered, ok := result.Frames[0].(FilteredEntry)
	require.True(t, ok)
	assert.Equal(t, 2, filtered.Count)
	entry, ok := result.Frames[1].(StackFrameEntry)
	require.True(t, ok)
	assert.Equal(t, "com.example.Worker", entry.Class)
}

func TestStackTraceRejectsNonPositiveMaxFrames(t *testing.T) {
	vm := fake.NewVM("test", "1.0")
	th := vm.AddThread("main", false)
	th.Suspend()
	th.SetFrames(fake.NewFrame(fake.NewLocation("com.example.A", "a", 1)))

	_, err := StackTrace(vm, "main", 0, nil)
	assert.Error(t, err)

	_, err = StackTrace(vm, "main", -1, nil)
	assert.Error(t, err)
}

func TestStackTraceCapsMaxFrames(t *testing.T) {
	vm := fake.NewVM("test", "1.0")
	th := vm.AddThread("main", false)
	th.Suspend()
	th.SetFrames(
		fake.NewFrame(fake.NewLocation("com.example.A", "a", 1)),
		fake.NewFrame(fake.NewLocation("com.example.B", "b", 2)),
		fake.NewFrame(fake.NewLocation("com.example.C", "c", 3)),
	)

	result, err := StackTrace(vm, "main", 2, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.ShownFrames)
	assert.True(t, result.Truncated)
}
