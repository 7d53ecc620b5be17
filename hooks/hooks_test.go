package hooks

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aeobrien/colloquy/model"
	"github.com/aeobrien/colloquy/signal"
	"github.com/aeobrien/colloquy/storage"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry returned nil")
	}
}

func TestOnBeforeSend(t *testing.T) {
	r := NewRegistry()
	called := false

	r.OnBeforeSend(func(ctx context.Context, sessionID string, req model.Request) error {
		called = true
		return nil
	})

	err := r.TriggerBeforeSend(context.Background(), "s-1", model.Request{})
	if err != nil {
		t.Errorf("TriggerBeforeSend returned error: %v", err)
	}
	if !called {
		t.Error("hook was not called")
	}
}

func TestOnAfterSend(t *testing.T) {
	r := NewRegistry()
	var capturedSession string
	var capturedTokens int

	r.OnAfterSend(func(ctx context.Context, sessionID string, response *model.Response) error {
		capturedSession = sessionID
		capturedTokens = response.OutputTokens
		return nil
	})

	err := r.TriggerAfterSend(context.Background(), "session-123", &model.Response{OutputTokens: 42})
	if err != nil {
		t.Errorf("TriggerAfterSend returned error: %v", err)
	}
	if capturedSession != "session-123" {
		t.Errorf("expected sessionID 'session-123', got '%s'", capturedSession)
	}
	if capturedTokens != 42 {
		t.Errorf("expected 42 output tokens, got %d", capturedTokens)
	}
}

func TestOnSignal(t *testing.T) {
	r := NewRegistry()
	var captured *signal.Result

	r.OnSignal(func(ctx context.Context, sessionID string, result *signal.Result) error {
		captured = result
		return nil
	})

	result := &signal.Result{NaturalLanguage: "hello"}
	err := r.TriggerSignal(context.Background(), "s-1", result)
	if err != nil {
		t.Errorf("TriggerSignal returned error: %v", err)
	}
	if captured != result {
		t.Error("result was not passed to hook")
	}
}

func TestOnAfterSummary(t *testing.T) {
	r := NewRegistry()
	var captured *storage.Summary

	r.OnAfterSummary(func(ctx context.Context, summary *storage.Summary) error {
		captured = summary
		return nil
	})

	summary := &storage.Summary{SessionID: "s-1", MessageCount: 7}
	err := r.TriggerAfterSummary(context.Background(), summary)
	if err != nil {
		t.Errorf("TriggerAfterSummary returned error: %v", err)
	}
	if captured != summary {
		t.Error("summary was not passed to hook")
	}
}

func TestHookError(t *testing.T) {
	r := NewRegistry()
	expectedErr := errors.New("hook error")

	r.OnBeforeSend(func(ctx context.Context, sessionID string, req model.Request) error {
		return expectedErr
	})

	err := r.TriggerBeforeSend(context.Background(), "s-1", model.Request{})
	if !errors.Is(err, expectedErr) {
		t.Errorf("expected error %v, got %v", expectedErr, err)
	}
}

func TestMultipleHooks(t *testing.T) {
	r := NewRegistry()
	callOrder := []int{}

	for i := 1; i <= 3; i++ {
		i := i
		r.OnBeforeSend(func(ctx context.Context, sessionID string, req model.Request) error {
			callOrder = append(callOrder, i)
			return nil
		})
	}

	err := r.TriggerBeforeSend(context.Background(), "s-1", model.Request{})
	if err != nil {
		t.Errorf("TriggerBeforeSend returned error: %v", err)
	}

	if len(callOrder) != 3 {
		t.Errorf("expected 3 hooks to be called, got %d", len(callOrder))
	}

	// Verify hooks are called in order
	for i, v := range callOrder {
		if v != i+1 {
			t.Errorf("expected call order %d at index %d, got %d", i+1, i, v)
		}
	}
}

func TestHookStopsOnError(t *testing.T) {
	r := NewRegistry()
	called := []int{}
	expectedErr := errors.New("stop here")

	r.OnBeforeSend(func(ctx context.Context, sessionID string, req model.Request) error {
		called = append(called, 1)
		return nil
	})

	r.OnBeforeSend(func(ctx context.Context, sessionID string, req model.Request) error {
		called = append(called, 2)
		return expectedErr // This should stop execution
	})

	r.OnBeforeSend(func(ctx context.Context, sessionID string, req model.Request) error {
		called = append(called, 3) // This should NOT be called
		return nil
	})

	err := r.TriggerBeforeSend(context.Background(), "s-1", model.Request{})
	if !errors.Is(err, expectedErr) {
		t.Errorf("expected error %v, got %v", expectedErr, err)
	}

	if len(called) != 2 {
		t.Errorf("expected 2 hooks to be called before error, got %d", len(called))
	}
}

func TestConcurrentHookRegistration(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	numGoroutines := 100

	// Concurrently register hooks
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			r.OnBeforeSend(func(ctx context.Context, sessionID string, req model.Request) error {
				return nil
			})
		}()
	}
	wg.Wait()

	// Trigger should work without panic
	err := r.TriggerBeforeSend(context.Background(), "s-1", model.Request{})
	if err != nil {
		t.Errorf("TriggerBeforeSend returned error: %v", err)
	}
}

func TestConcurrentHookTrigger(t *testing.T) {
	r := NewRegistry()
	var callCount int
	var mu sync.Mutex

	r.OnBeforeSend(func(ctx context.Context, sessionID string, req model.Request) error {
		mu.Lock()
		callCount++
		mu.Unlock()
		return nil
	})

	var wg sync.WaitGroup
	numGoroutines := 100

	// Concurrently trigger hooks
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			r.TriggerBeforeSend(context.Background(), "s-1", model.Request{})
		}()
	}
	wg.Wait()

	if callCount != numGoroutines {
		t.Errorf("expected %d calls, got %d", numGoroutines, callCount)
	}
}

func TestMetricsHooks(t *testing.T) {
	var names []string
	m := NewMetricsHooks(func(name string, value float64, tags map[string]string) {
		names = append(names, name)
	})
	r := NewRegistry()
	m.Register(r)

	_ = r.TriggerAfterSend(context.Background(), "s-1", &model.Response{InputTokens: 10, OutputTokens: 5})
	_ = r.TriggerSignal(context.Background(), "s-1", &signal.Result{})

	want := map[string]bool{
		"conversation.tokens.input":  true,
		"conversation.tokens.output": true,
		"conversation.signals":       true,
		"conversation.actions":       true,
	}
	for _, n := range names {
		delete(want, n)
	}
	if len(want) != 0 {
		t.Errorf("metrics not recorded: %v", want)
	}
}
