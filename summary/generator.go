// Package summary turns finished sessions into structured SessionSummary
// records by asking the model to distil the transcript into JSON.
package summary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aeobrien/colloquy/model"
	"github.com/aeobrien/colloquy/prompt"
	"github.com/aeobrien/colloquy/storage"
)

var (
	// ErrNoMessages means the session has no transcript to summarise.
	ErrNoMessages = errors.New("summary: session has no messages")

	// ErrParse means the model's reply was not the expected JSON. Callers
	// count this as a failed attempt rather than swallowing it.
	ErrParse = errors.New("summary: unparseable model response")
)

// GeneratorConfig tunes the summarisation request.
type GeneratorConfig struct {
	// Model overrides the client's default model when non-empty.
	Model string

	// MaxTokens bounds the summary response. Default 1024.
	MaxTokens int
}

// DefaultGeneratorConfig returns the default generator configuration.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{MaxTokens: 1024}
}

// Generator produces and persists session summaries.
type Generator struct {
	store    storage.Store
	client   model.Client
	composer *prompt.Composer
	config   GeneratorConfig
}

// NewGenerator constructs a generator. A nil composer gets a default one;
// zero config values fall back to DefaultGeneratorConfig.
func NewGenerator(store storage.Store, client model.Client, composer *prompt.Composer, config GeneratorConfig) *Generator {
	if composer == nil {
		composer = prompt.NewComposer(nil)
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = DefaultGeneratorConfig().MaxTokens
	}
	return &Generator{store: store, client: client, composer: composer, config: config}
}

// Generate summarises the session's full transcript, persists the result,
// and returns it. Requires at least one message.
func (g *Generator) Generate(ctx context.Context, session *storage.Session, status storage.CompletionStatus) (*storage.Summary, error) {
	messages, err := g.store.GetMessages(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("summary: loading transcript: %w", err)
	}
	if len(messages) == 0 {
		return nil, ErrNoMessages
	}

	system, err := g.composer.SummaryPrompt()
	if err != nil {
		return nil, err
	}

	resp, err := g.client.Send(ctx, model.Request{
		Model:     g.config.Model,
		MaxTokens: g.config.MaxTokens,
		System:    system,
		Messages: []model.ChatMessage{
			{Role: model.RoleUser, Content: FormatTranscript(messages)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("summary: model call: %w", err)
	}

	sections, err := parseSections(resp.Content)
	if err != nil {
		return nil, err
	}

	started := messages[0].CreatedAt
	ended := messages[len(messages)-1].CreatedAt
	in, out := resp.InputTokens, resp.OutputTokens

	record := &storage.Summary{
		ID:               uuid.New().String(),
		SessionID:        session.ID,
		Mode:             session.Mode,
		SubMode:          session.SubMode,
		CompletionStatus: status,
		Established:      sections.Established,
		Observed:         sections.Observed,
		Next:             sections.Next,
		StartedAt:        started,
		EndedAt:          ended,
		Duration:         ended.Sub(started),
		MessageCount:     len(messages),
		CreatedAt:        time.Now(),
	}
	if in > 0 {
		record.InputTokens = &in
	}
	if out > 0 {
		record.OutputTokens = &out
	}

	if err := g.store.SaveSummary(ctx, record); err != nil {
		return nil, fmt.Errorf("summary: persisting: %w", err)
	}
	return record, nil
}

type sections struct {
	Established storage.Established `json:"content_established"`
	Observed    storage.Observed    `json:"content_observed"`
	Next        storage.NextSteps   `json:"what_comes_next"`
}

// parseSections reads the model's JSON leniently: code fences and
// surrounding prose are stripped, missing leaf fields default to empty.
// Anything that still fails to parse is an ErrParse.
func parseSections(raw string) (*sections, error) {
	text := stripFences(raw)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON object found", ErrParse)
	}

	var s sections
	if err := json.Unmarshal([]byte(text[start:end+1]), &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return &s, nil
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if idx := strings.Index(text, "\n"); idx >= 0 {
		text = text[idx+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
