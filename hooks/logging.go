package hooks

import (
	"context"
	"log"

	"github.com/aeobrien/colloquy/model"
	"github.com/aeobrien/colloquy/signal"
	"github.com/aeobrien/colloquy/storage"
)

// LoggingHooks provides built-in logging hooks for observability
type LoggingHooks struct {
	logger *log.Logger
}

// NewLoggingHooks creates logging hooks with the provided logger
func NewLoggingHooks(logger *log.Logger) *LoggingHooks {
	return &LoggingHooks{logger: logger}
}

// DefaultLoggingHooks creates logging hooks with default logger
func DefaultLoggingHooks() *LoggingHooks {
	return &LoggingHooks{logger: log.Default()}
}

// BeforeSend logs before sending a request to the model
func (h *LoggingHooks) BeforeSend(ctx context.Context, sessionID string, req model.Request) error {
	h.logger.Printf("[Colloquy] session %s: sending %d messages to model", sessionID, len(req.Messages))
	return nil
}

// AfterSend logs after receiving a response
func (h *LoggingHooks) AfterSend(ctx context.Context, sessionID string, response *model.Response) error {
	h.logger.Printf("[Colloquy] session %s: response received (%d input + %d output tokens)",
		sessionID, response.InputTokens, response.OutputTokens)
	return nil
}

// Signal logs the parsed result of a response
func (h *LoggingHooks) Signal(ctx context.Context, sessionID string, result *signal.Result) error {
	if len(result.Signals) > 0 || len(result.Actions) > 0 {
		h.logger.Printf("[Colloquy] session %s: parsed %d signals, %d actions",
			sessionID, len(result.Signals), len(result.Actions))
	}
	return nil
}

// BeforeSummary logs before summary generation
func (h *LoggingHooks) BeforeSummary(ctx context.Context, sessionID string) error {
	h.logger.Printf("[Colloquy] session %s: generating summary", sessionID)
	return nil
}

// AfterSummary logs the persisted summary
func (h *LoggingHooks) AfterSummary(ctx context.Context, summary *storage.Summary) error {
	h.logger.Printf("[Colloquy] session %s: summary saved (%s, %d messages, %v)",
		summary.SessionID, summary.CompletionStatus, summary.MessageCount, summary.Duration)
	return nil
}

// Register attaches all logging hooks to a registry
func (h *LoggingHooks) Register(r *Registry) {
	r.OnBeforeSend(h.BeforeSend)
	r.OnAfterSend(h.AfterSend)
	r.OnSignal(h.Signal)
	r.OnBeforeSummary(h.BeforeSummary)
	r.OnAfterSummary(h.AfterSummary)
}

// MetricsHooks collects metrics for monitoring
type MetricsHooks struct {
	OnMetric func(name string, value float64, tags map[string]string)
}

// NewMetricsHooks creates metrics collection hooks
func NewMetricsHooks(onMetric func(string, float64, map[string]string)) *MetricsHooks {
	return &MetricsHooks{OnMetric: onMetric}
}

// AfterSend records token usage metrics
func (h *MetricsHooks) AfterSend(ctx context.Context, sessionID string, response *model.Response) error {
	h.OnMetric("conversation.tokens.input", float64(response.InputTokens), nil)
	h.OnMetric("conversation.tokens.output", float64(response.OutputTokens), nil)
	return nil
}

// Signal records signal and action counts per response
func (h *MetricsHooks) Signal(ctx context.Context, sessionID string, result *signal.Result) error {
	h.OnMetric("conversation.signals", float64(len(result.Signals)), nil)
	h.OnMetric("conversation.actions", float64(len(result.Actions)), nil)
	return nil
}

// AfterSummary records summary metrics
func (h *MetricsHooks) AfterSummary(ctx context.Context, summary *storage.Summary) error {
	tags := map[string]string{"completion": string(summary.CompletionStatus)}
	h.OnMetric("conversation.summary.messages", float64(summary.MessageCount), tags)
	return nil
}

// Register attaches all metrics hooks to a registry
func (h *MetricsHooks) Register(r *Registry) {
	r.OnAfterSend(h.AfterSend)
	r.OnSignal(h.Signal)
	r.OnAfterSummary(h.AfterSummary)
}
