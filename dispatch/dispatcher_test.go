package dispatch

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"cpsys/ocpp"
	"cpsys/ocpp/core"
	"cpsys/types"
)

type testLogger struct{}

func (l *testLogger) FeatureEvent(feature, id, text string) {}
func (l *testLogger) Debug(text string)                     {}
func (l *testLogger) Warn(text string)                      {}
func (l *testLogger) Error(text string, err error)          {}
func (l *testLogger) RawDataEvent(direction, data string)   {}

func heartbeatAction(t *testing.T) ocpp.Action {
	t.Helper()
	action, ok := ocpp.LookupAction(ocpp.V16, ocpp.CentralSystemBound, core.HeartbeatFeatureName)
	if !ok {
		t.Fatal("heartbeat action not registered")
	}
	return action
}

func envelope(action ocpp.Action, client string) *ocpp.Envelope {
	return &ocpp.Envelope{
		Client:        ocpp.NewIdentity(client),
		Action:        action,
		Payload:       &core.HeartbeatRequest{},
		CorrelationId: "req-1",
	}
}

type outcome struct {
	result  ocpp.Response
	callErr *ocpp.Error
}

func dispatchAndWait(t *testing.T, d *Dispatcher, env *ocpp.Envelope) outcome {
	t.Helper()
	results := make(chan outcome, 1)
	err := d.Dispatch(env, func(_ *ocpp.Envelope, result ocpp.Response, callErr *ocpp.Error) {
		results <- outcome{result: result, callErr: callErr}
	})
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	select {
	case o := <-results:
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("no result delivered")
		return outcome{}
	}
}

func TestDispatchDeliversResult(t *testing.T) {
	registry := NewRegistry()
	action := heartbeatAction(t)
	registry.Register(action, ProcessorFunc(func(env *ocpp.Envelope, callback ocpp.ResultCallback) error {
		callback(env, core.NewHeartbeatResponse(types.NewDateTime(time.Now())), nil)
		return nil
	}))
	d := NewDispatcher(registry, &testLogger{})
	defer d.Close()

	o := dispatchAndWait(t, d, envelope(action, "cp001"))
	if o.callErr != nil {
		t.Fatalf("unexpected call error: %v", o.callErr)
	}
	if _, ok := o.result.(*core.HeartbeatResponse); !ok {
		t.Errorf("unexpected result type %T", o.result)
	}
}

func TestDispatchUnregisteredAction(t *testing.T) {
	d := NewDispatcher(NewRegistry(), &testLogger{})
	defer d.Close()

	o := dispatchAndWait(t, d, envelope(heartbeatAction(t), "cp001"))
	if o.callErr == nil || o.callErr.Code != ocpp.NotImplemented {
		t.Errorf("expected %s, got %v", ocpp.NotImplemented, o.callErr)
	}
}

func TestDispatchRecoversPanic(t *testing.T) {
	registry := NewRegistry()
	action := heartbeatAction(t)
	registry.Register(action, ProcessorFunc(func(env *ocpp.Envelope, callback ocpp.ResultCallback) error {
		panic("boom")
	}))
	d := NewDispatcher(registry, &testLogger{})
	defer d.Close()

	o := dispatchAndWait(t, d, envelope(action, "cp001"))
	if o.callErr == nil || o.callErr.Code != ocpp.InternalError {
		t.Errorf("expected %s, got %v", ocpp.InternalError, o.callErr)
	}
	if o.callErr != nil && !strings.Contains(o.callErr.Description, "boom") {
		t.Errorf("panic message missing from description: %q", o.callErr.Description)
	}

	// the worker survives the panic
	registry.RegisterPriority(action, 1, ProcessorFunc(func(env *ocpp.Envelope, callback ocpp.ResultCallback) error {
		callback(env, core.NewHeartbeatResponse(types.NewDateTime(time.Now())), nil)
		return nil
	}))
	o = dispatchAndWait(t, d, envelope(action, "cp001"))
	if o.callErr != nil {
		t.Errorf("unexpected call error after recovery: %v", o.callErr)
	}
}

func TestDispatchProcessorErrorMessage(t *testing.T) {
	registry := NewRegistry()
	action := heartbeatAction(t)
	registry.Register(action, ProcessorFunc(func(env *ocpp.Envelope, callback ocpp.ResultCallback) error {
		return errors.New("database unreachable")
	}))
	d := NewDispatcher(registry, &testLogger{})
	defer d.Close()

	o := dispatchAndWait(t, d, envelope(action, "cp001"))
	if o.callErr == nil || o.callErr.Code != ocpp.InternalError {
		t.Fatalf("expected %s, got %v", ocpp.InternalError, o.callErr)
	}
	if o.callErr.Description != "database unreachable" {
		t.Errorf("error message missing from description: %q", o.callErr.Description)
	}
}

func TestDisconnectDuringDispatch(t *testing.T) {
	registry := NewRegistry()
	action := heartbeatAction(t)
	gate := make(chan struct{})
	registry.Register(action, ProcessorFunc(func(env *ocpp.Envelope, callback ocpp.ResultCallback) error {
		<-gate
		callback(env, core.NewHeartbeatResponse(types.NewDateTime(time.Now())), nil)
		return nil
	}))
	d := NewDispatcher(registry, &testLogger{})

	discard := func(_ *ocpp.Envelope, _ ocpp.Response, _ *ocpp.Error) {}
	// one message in flight, the buffer full behind it
	for i := 0; i < workerQueueSize+1; i++ {
		if err := d.Dispatch(envelope(action, "cp001"), discard); err != nil {
			t.Fatalf("dispatch failed: %v", err)
		}
	}

	// this send blocks on the full queue while the connection disconnects
	panicked := make(chan interface{}, 1)
	dispatched := make(chan struct{})
	go func() {
		defer func() { panicked <- recover() }()
		_ = d.Dispatch(envelope(action, "cp001"), discard)
		close(dispatched)
	}()
	disconnected := make(chan struct{})
	go func() {
		d.Disconnect(ocpp.NewIdentity("cp001"))
		close(disconnected)
	}()

	time.Sleep(20 * time.Millisecond)
	close(gate)

	select {
	case r := <-panicked:
		if r != nil {
			t.Fatalf("dispatch panicked: %v", r)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("blocked dispatch never returned")
	}
	<-dispatched
	select {
	case <-disconnected:
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect never returned")
	}

	// a later message for the same identity gets a fresh worker
	o := dispatchAndWait(t, d, envelope(action, "cp001"))
	if o.callErr != nil {
		t.Fatalf("unexpected call error after reconnect: %v", o.callErr)
	}
	d.Close()
}

func TestDispatchAuthorizationFailure(t *testing.T) {
	registry := NewRegistry()
	action := heartbeatAction(t)
	registry.Register(action, ProcessorFunc(func(env *ocpp.Envelope, callback ocpp.ResultCallback) error {
		return ocpp.NewAuthorizationError(types.AuthorizationStatusBlocked)
	}))
	d := NewDispatcher(registry, &testLogger{})
	defer d.Close()

	o := dispatchAndWait(t, d, envelope(action, "cp001"))
	if o.callErr == nil || o.callErr.Code != ocpp.SecurityError {
		t.Fatalf("expected %s, got %v", ocpp.SecurityError, o.callErr)
	}
	if o.callErr.Description != ocpp.SecurityErrorDescription {
		t.Errorf("authorization detail leaked: %q", o.callErr.Description)
	}
}

func TestDispatchFirstCallbackWins(t *testing.T) {
	registry := NewRegistry()
	action := heartbeatAction(t)
	first := core.NewHeartbeatResponse(types.NewDateTime(time.Now()))
	registry.RegisterPriority(action, 10, ProcessorFunc(func(env *ocpp.Envelope, callback ocpp.ResultCallback) error {
		callback(env, first, nil)
		return nil
	}))
	registry.Register(action, ProcessorFunc(func(env *ocpp.Envelope, callback ocpp.ResultCallback) error {
		callback(env, core.NewHeartbeatResponse(types.NewDateTime(time.Now())), nil)
		return nil
	}))
	d := NewDispatcher(registry, &testLogger{})
	defer d.Close()

	var mu sync.Mutex
	var delivered []ocpp.Response
	results := make(chan struct{}, 1)
	err := d.Dispatch(envelope(action, "cp001"), func(_ *ocpp.Envelope, result ocpp.Response, callErr *ocpp.Error) {
		mu.Lock()
		delivered = append(delivered, result)
		mu.Unlock()
		results <- struct{}{}
	})
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	<-results
	// give a second delivery the chance to show up
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if len(delivered) != 1 {
		t.Fatalf("expected exactly one delivery, got %d", len(delivered))
	}
	if delivered[0] != ocpp.Response(first) {
		t.Error("delivered result is not from the highest priority processor")
	}
}

func TestDispatchOrderPerChargePoint(t *testing.T) {
	registry := NewRegistry()
	action := heartbeatAction(t)
	registry.Register(action, ProcessorFunc(func(env *ocpp.Envelope, callback ocpp.ResultCallback) error {
		callback(env, core.NewHeartbeatResponse(types.NewDateTime(time.Now())), nil)
		return nil
	}))
	d := NewDispatcher(registry, &testLogger{})

	const messages = 20
	var mu sync.Mutex
	order := make([]string, 0, messages)
	var wg sync.WaitGroup
	wg.Add(messages)
	for i := 0; i < messages; i++ {
		env := envelope(action, "cp001")
		env.CorrelationId = fmt.Sprintf("req-%03d", i)
		if err := d.Dispatch(env, func(e *ocpp.Envelope, result ocpp.Response, callErr *ocpp.Error) {
			mu.Lock()
			order = append(order, e.CorrelationId)
			mu.Unlock()
			wg.Done()
		}); err != nil {
			t.Fatalf("dispatch failed: %v", err)
		}
	}
	wg.Wait()
	d.Close()
	for i := 0; i < messages; i++ {
		expected := fmt.Sprintf("req-%03d", i)
		if order[i] != expected {
			t.Fatalf("message %d processed out of order: got %s", i, order[i])
		}
	}
}
