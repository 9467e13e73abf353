package session

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mabhi256/jdiag-bridge/internal/event"
	"github.com/mabhi256/jdiag-bridge/internal/jdi"
	"github.com/mabhi256/jdiag-bridge/internal/jdi/fake"
	"github.com/mabhi256/jdiag-bridge/internal/rpc"
	"github.com/mabhi256/jdiag-bridge/internal/rpcerr"
	"github.com/mabhi256/jdiag-bridge/internal/threads"
)

type recorder struct {
	mu    sync.Mutex
	notes []event.Notification
}

func (r *recorder) record(n event.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recorder) snapshot() []event.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]event.Notification, len(r.notes))
	copy(out, r.notes)
	return out
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

func newTestSession(vm *fake.VM) (*Session, *recorder) {
	rec := &recorder{}
	conn := &fake.Connector{VM: vm}
	s := New(conn, zerolog.Nop(), rec.record)
	return s, rec
}

func findLiveRequest(vm *fake.VM) jdi.EventRequest {
	erm := vm.EventRequestManager().(*fake.EventRequestManager)
	reqs := erm.LiveRequests()
	if len(reqs) == 0 {
		return nil
	}
	return reqs[len(reqs)-1]
}

func TestPingViaServer(t *testing.T) {
	var out bytes.Buffer
	server := rpc.NewServer(&out, zerolog.Nop())
	server.ShutdownFunc = func() {}

	err := server.Serve(context.Background(), strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`+"\n"))
	require.NoError(t, err)
	assert.Contains(t, out.String(), `"pong":true`)
}

func TestAttachPendingBreakpointResolves(t *testing.T) {
	vm := fake.NewVM("target", "11")
	vm.AddThread("main", false)
	s, rec := newTestSession(vm)

	result, err := s.Attach(context.Background(), "localhost", 5005, false)
	require.NoError(t, err)
	assert.Equal(t, "attached", result.Status)
	defer s.Detach()

	setResult, err := s.SetBreakpoint("app.Target", 10, "", "", false, 0)
	require.NoError(t, err)
	assert.Equal(t, "pending", setResult.Status)

	vm.LoadClass("app.Target", 10)
	vm.FireClassPrepare("app.Target")

	waitFor(t, func() bool { return len(rec.snapshot()) > 0 })
	notes := rec.snapshot()
	require.Len(t, notes, 1)
	assert.Equal(t, "breakpoint_resolved", notes[0].Type)

	list, err := s.ListBreakpoints()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "set", string(list[0].Status))
}

func TestConditionFalseAutoResumes(t *testing.T) {
	vm := fake.NewVM("target", "11")
	vm.LoadClass("app.Target", 10)
	th := vm.AddThread("main", false)
	s, rec := newTestSession(vm)

	_, err := s.Attach(context.Background(), "localhost", 5005, false)
	require.NoError(t, err)
	defer s.Detach()

	setResult, err := s.SetBreakpoint("app.Target", 10, "helper.seed < 0", "", false, 0)
	require.NoError(t, err)
	require.Equal(t, "set", setResult.Status)

	req := findLiveRequest(vm)
	th.SetFrames(fake.NewFrame(fake.NewLocation("app.Target", "run", 10)).
		WithLocal("helper", fake.NewObject(vm, "app.Helper").Set("seed", fake.Int(7)).Value()))

	vm.FireBreakpoint(th, "app.Target", 10, req)

	time.Sleep(100 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
	assert.False(t, th.IsSuspended())
}

func TestConditionRuntimeErrorNotifies(t *testing.T) {
	vm := fake.NewVM("target", "11")
	vm.LoadClass("app.Target", 10)
	th := vm.AddThread("main", false)
	s, rec := newTestSession(vm)

	_, err := s.Attach(context.Background(), "localhost", 5005, false)
	require.NoError(t, err)
	defer s.Detach()

	_, err = s.SetBreakpoint("app.Target", 10, "missingVar > 0", "", false, 0)
	require.NoError(t, err)

	req := findLiveRequest(vm)
	th.SetFrames(fake.NewFrame(fake.NewLocation("app.Target", "run", 10)))
	vm.FireBreakpoint(th, "app.Target", 10, req)

	waitFor(t, func() bool { return len(rec.snapshot()) > 0 })
	notes := rec.snapshot()
	require.Len(t, notes, 1)
	assert.Equal(t, "breakpoint_condition_error", notes[0].Type)
}

func TestExceptionHitReportsLocations(t *testing.T) {
	vm := fake.NewVM("target", "11")
	th := vm.AddThread("main", false)
	s, rec := newTestSession(vm)

	_, err := s.Attach(context.Background(), "localhost", 5005, false)
	require.NoError(t, err)
	defer s.Detach()

	_, err = s.SetExceptionBreakpoint("java.lang.IllegalStateException", true, false)
	require.NoError(t, err)

	th.SetFrames(fake.NewFrame(fake.NewLocation("app.Target", "run", 30)))
	excObj := fake.NewObject(vm, "java.lang.IllegalStateException").WithToString("bad state").Value()
	throwLoc := fake.NewLocation("app.Target", "run", 30)
	catchLoc := fake.NewLocation("app.Target", "handle", 40)

	req := findLiveRequest(vm)
	vm.FireException(th, req, &excObj, throwLoc, catchLoc)

	waitFor(t, func() bool { return len(rec.snapshot()) > 0 })
	notes := rec.snapshot()
	require.Len(t, notes, 1)
	assert.Equal(t, "exception_hit", notes[0].Type)
	raw, err := json.Marshal(notes[0].Data)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"throw_location":"app.Target.run:30"`)
	assert.Contains(t, string(raw), `"catch_location":"app.Target.handle:40"`)

	payload, err := s.CurrentStopped("main")
	require.NoError(t, err)
	assert.Equal(t, "stopped", payload.Status)
	assert.Equal(t, "main", payload.Thread)
}

func TestStepTimeoutOnDisconnect(t *testing.T) {
	vm := fake.NewVM("target", "11")
	vm.LoadClass("app.Target", 10)
	th := vm.AddThread("main", false)
	s, rec := newTestSession(vm)

	_, err := s.Attach(context.Background(), "localhost", 5005, false)
	require.NoError(t, err)

	th.SetFrames(fake.NewFrame(fake.NewLocation("app.Target", "run", 10)))
	th.Suspend()

	go func() {
		time.Sleep(20 * time.Millisecond)
		vm.FireDisconnect("transport error: connection reset by peer")
	}()

	outcome, err := s.Step(threads.ActionStepOver, "main", 0.05)
	require.NoError(t, err)
	assert.True(t, outcome.TimedOut)
	assert.Contains(t, outcome.Remediation, "re-attach the debugger")

	waitFor(t, func() bool { return len(rec.snapshot()) > 0 })
	found := false
	for _, n := range rec.snapshot() {
		if n.Type == "vm_disconnected" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestMappingRoundTrip(t *testing.T) {
	vm := fake.NewVM("target", "11")
	vm.LoadClass("app.Target", 10)
	th := vm.AddThread("main", false)
	s, _ := newTestSession(vm)

	_, err := s.Attach(context.Background(), "localhost", 5005, false)
	require.NoError(t, err)
	defer s.Detach()

	th.Suspend()
	helper := fake.NewObject(vm, "a.b.c").Set("seed", fake.Int(99))
	th.SetFrames(fake.NewFrame(fake.NewLocation("app.Target", "run", 10)).
		WithLocal("helper", helper.Value()))

	env, err := s.InspectVariable("main", 0, "helper", 2)
	require.NoError(t, err)
	fields, ok := fieldsOf(env.Value)
	require.True(t, ok)
	assert.Contains(t, fields, "seed")

	mappingFile := filepath.Join(t.TempDir(), "mapping.txt")
	content := "com.example.UserService -> a.b.c:\n    int profileId -> seed\n"
	require.NoError(t, os.WriteFile(mappingFile, []byte(content), 0o644))

	_, err = s.LoadMapping(mappingFile)
	require.NoError(t, err)

	env, err = s.InspectVariable("main", 0, "helper", 2)
	require.NoError(t, err)
	fields, ok = fieldsOf(env.Value)
	require.True(t, ok)
	assert.Contains(t, fields, "profileId")
	assert.NotContains(t, fields, "seed")

	s.ClearMapping()

	env, err = s.InspectVariable("main", 0, "helper", 2)
	require.NoError(t, err)
	fields, ok = fieldsOf(env.Value)
	require.True(t, ok)
	assert.Contains(t, fields, "seed")
}

func TestParamValidationPrecedesAttachCheck(t *testing.T) {
	vm := fake.NewVM("target", "11")
	s, _ := newTestSession(vm)

	_, err := s.InspectVariable("main", 0, "helper", 0)
	rerr, ok := err.(*rpcerr.Error)
	require.True(t, ok)
	assert.Equal(t, rpcerr.CodeInvalidParams, rerr.Code)

	_, err = s.InspectVariable("main", 0, "helper", 4)
	rerr, ok = err.(*rpcerr.Error)
	require.True(t, ok)
	assert.Equal(t, rpcerr.CodeInvalidParams, rerr.Code)

	_, err = s.Step(threads.ActionStepOver, "main", 0)
	rerr, ok = err.(*rpcerr.Error)
	require.True(t, ok)
	assert.Equal(t, rpcerr.CodeInvalidParams, rerr.Code)

	err = s.RemoveBreakpoint(0)
	rerr, ok = err.(*rpcerr.Error)
	require.True(t, ok)
	assert.Equal(t, rpcerr.CodeInvalidParams, rerr.Code)
}

func fieldsOf(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	f, ok := m["fields"].(map[string]any)
	return f, ok
}
