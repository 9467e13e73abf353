package eventloop

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mabhi256/jdiag-bridge/internal/breakpoint"
	"github.com/mabhi256/jdiag-bridge/internal/budget"
	"github.com/mabhi256/jdiag-bridge/internal/event"
	"github.com/mabhi256/jdiag-bridge/internal/inspect"
	"github.com/mabhi256/jdiag-bridge/internal/jdi"
	"github.com/mabhi256/jdiag-bridge/internal/jdi/fake"
	"github.com/mabhi256/jdiag-bridge/internal/mapping"
	"github.com/mabhi256/jdiag-bridge/internal/objectcache"
	"github.com/mabhi256/jdiag-bridge/internal/threads"
)

type recorder struct {
	mu            sync.Mutex
	notifications []event.Notification
	disconnected  bool
	reason        string
	detail        string
	invalidated   int
}

func (r *recorder) emit(n event.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, n)
}

func (r *recorder) setDisconnected(reason, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnected = true
	r.reason = reason
	r.detail = detail
}

func (r *recorder) snapshot() []event.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]event.Notification, len(r.notifications))
	copy(out, r.notifications)
	return out
}

func newHooks(rec *recorder) Hooks {
	cache := objectcache.New()
	return Hooks{
		Mapping: func() *mapping.Mapping { return nil },
		InspectOptions: func() inspect.Options {
			return inspect.Options{Budget: budget.New(budget.DefaultMaxTokens), Handle: cache.Handle, Lookup: cache.Lookup}
		},
		MarkSuspended:   func(jdi.ThreadReference, time.Time) {},
		InvalidateCache: func() { rec.mu.Lock(); rec.invalidated++; rec.mu.Unlock() },
		Emit:            rec.emit,
		SetDisconnected: rec.setDisconnected,
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition never became true")
}

func TestLoopDispatchesBreakpointHitAndStops(t *testing.T) {
	vm := fake.NewVM("test", "1.0")
	vm.LoadClass("com.example.Main", 10)
	th := vm.AddThread("main", false)
	th.SetFrames(fake.NewFrame(fake.NewLocation("com.example.Main", "run", 10)))

	reg := breakpoint.NewRegistry()
	bp, _, err := reg.SetBreakpoint(vm, "com.example.Main", 10, "", "", false, 0)
	require.NoError(t, err)

	steps := threads.NewController(func() {})
	rec := &recorder{}
	loop := Start(vm, reg, steps, newHooks(rec))
	defer loop.Stop()

	vm.FireBreakpoint(th, "com.example.Main", 10, bp.Request)

	waitFor(t, func() bool { return len(rec.snapshot()) > 0 })
	notes := rec.snapshot()
	require.Len(t, notes, 1)
	assert.Equal(t, "breakpoint_hit", notes[0].Type)
}

func TestLoopResolvesClassPrepareAndEmitsNotification(t *testing.T) {
	vm := fake.NewVM("test", "1.0")
	reg := breakpoint.NewRegistry()
	_, result, err := reg.SetBreakpoint(vm, "com.example.Lazy", 5, "", "", false, 0)
	require.NoError(t, err)
	require.Equal(t, "pending", result.Status)

	steps := threads.NewController(func() {})
	rec := &recorder{}
	loop := Start(vm, reg, steps, newHooks(rec))
	defer loop.Stop()

	vm.LoadClass("com.example.Lazy", 5)
	vm.FireClassPrepare("com.example.Lazy")

	waitFor(t, func() bool { return len(rec.snapshot()) > 0 })
	notes := rec.snapshot()
	require.Len(t, notes, 1)
	assert.Equal(t, "breakpoint_resolved", notes[0].Type)
}

func TestLoopNormalizesDisconnectReason(t *testing.T) {
	vm := fake.NewVM("test", "1.0")
	reg := breakpoint.NewRegistry()
	steps := threads.NewController(func() {})
	rec := &recorder{}
	loop := Start(vm, reg, steps, newHooks(rec))
	defer loop.Stop()

	vm.FireDisconnect("transport error: connection reset by device")

	waitFor(t, func() bool { return rec.disconnected })
	assert.Equal(t, "device_disconnected", rec.reason)
	notes := rec.snapshot()
	require.Len(t, notes, 1)
	assert.Equal(t, "vm_disconnected", notes[0].Type)
}

func TestClassifyDisconnect(t *testing.T) {
	assert.Equal(t, "device_disconnected", classifyDisconnect("Connection reset"))
	assert.Equal(t, "app_killed", classifyDisconnect("process was force stop by user"))
	assert.Equal(t, "app_crashed", classifyDisconnect("native SIGSEGV"))
}
