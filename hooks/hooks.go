package hooks

import (
	"context"
	"sync"

	"github.com/aeobrien/colloquy/model"
	"github.com/aeobrien/colloquy/signal"
	"github.com/aeobrien/colloquy/storage"
)

// BeforeSendHook is called before a request is sent to the model
type BeforeSendHook func(ctx context.Context, sessionID string, req model.Request) error

// AfterSendHook is called after a response is received from the model
type AfterSendHook func(ctx context.Context, sessionID string, response *model.Response) error

// SignalHook is called with the parsed result of a model response
type SignalHook func(ctx context.Context, sessionID string, result *signal.Result) error

// BeforeSummaryHook is called before summary generation starts
type BeforeSummaryHook func(ctx context.Context, sessionID string) error

// AfterSummaryHook is called after a summary has been persisted
type AfterSummaryHook func(ctx context.Context, summary *storage.Summary) error

// Registry holds all registered hooks
type Registry struct {
	mu            sync.RWMutex
	beforeSend    []BeforeSendHook
	afterSend     []AfterSendHook
	signal        []SignalHook
	beforeSummary []BeforeSummaryHook
	afterSummary  []AfterSummaryHook
}

// NewRegistry creates a new hook registry
func NewRegistry() *Registry {
	return &Registry{
		beforeSend:    []BeforeSendHook{},
		afterSend:     []AfterSendHook{},
		signal:        []SignalHook{},
		beforeSummary: []BeforeSummaryHook{},
		afterSummary:  []AfterSummaryHook{},
	}
}

// OnBeforeSend registers a hook to be called before each model request
func (r *Registry) OnBeforeSend(hook BeforeSendHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beforeSend = append(r.beforeSend, hook)
}

// OnAfterSend registers a hook to be called after each model response
func (r *Registry) OnAfterSend(hook AfterSendHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.afterSend = append(r.afterSend, hook)
}

// OnSignal registers a hook to be called with each parsed result
func (r *Registry) OnSignal(hook SignalHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signal = append(r.signal, hook)
}

// OnBeforeSummary registers a hook to be called before summarisation
func (r *Registry) OnBeforeSummary(hook BeforeSummaryHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beforeSummary = append(r.beforeSummary, hook)
}

// OnAfterSummary registers a hook to be called after summarisation
func (r *Registry) OnAfterSummary(hook AfterSummaryHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.afterSummary = append(r.afterSummary, hook)
}

// TriggerBeforeSend calls all registered before-send hooks
func (r *Registry) TriggerBeforeSend(ctx context.Context, sessionID string, req model.Request) error {
	r.mu.RLock()
	hooks := make([]BeforeSendHook, len(r.beforeSend))
	copy(hooks, r.beforeSend)
	r.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, sessionID, req); err != nil {
			return err
		}
	}
	return nil
}

// TriggerAfterSend calls all registered after-send hooks
func (r *Registry) TriggerAfterSend(ctx context.Context, sessionID string, response *model.Response) error {
	r.mu.RLock()
	hooks := make([]AfterSendHook, len(r.afterSend))
	copy(hooks, r.afterSend)
	r.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, sessionID, response); err != nil {
			return err
		}
	}
	return nil
}

// TriggerSignal calls all registered signal hooks
func (r *Registry) TriggerSignal(ctx context.Context, sessionID string, result *signal.Result) error {
	r.mu.RLock()
	hooks := make([]SignalHook, len(r.signal))
	copy(hooks, r.signal)
	r.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, sessionID, result); err != nil {
			return err
		}
	}
	return nil
}

// TriggerBeforeSummary calls all registered before-summary hooks
func (r *Registry) TriggerBeforeSummary(ctx context.Context, sessionID string) error {
	r.mu.RLock()
	hooks := make([]BeforeSummaryHook, len(r.beforeSummary))
	copy(hooks, r.beforeSummary)
	r.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, sessionID); err != nil {
			return err
		}
	}
	return nil
}

// TriggerAfterSummary calls all registered after-summary hooks
func (r *Registry) TriggerAfterSummary(ctx context.Context, summary *storage.Summary) error {
	r.mu.RLock()
	hooks := make([]AfterSummaryHook, len(r.afterSummary))
	copy(hooks, r.afterSummary)
	r.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, summary); err != nil {
			return err
		}
	}
	return nil
}
