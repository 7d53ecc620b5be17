package colloquy

import (
	"fmt"

	"github.com/aeobrien/colloquy/assembly"
	"github.com/aeobrien/colloquy/hooks"
	"github.com/aeobrien/colloquy/model"
	"github.com/aeobrien/colloquy/prompt"
	"github.com/aeobrien/colloquy/sessionstate"
	"github.com/aeobrien/colloquy/storage"
	"github.com/aeobrien/colloquy/summary"
)

// ConversationConfig holds the per-mode parameters for running a turn.
type ConversationConfig struct {
	// Model overrides the client's default model when non-empty.
	Model string

	// MaxTokens bounds the model's reply.
	MaxTokens int

	// Temperature is passed through when non-nil.
	Temperature *float64

	// ParseActions enables action-block extraction from responses. Only
	// execution-support conversations act on project state, so only they
	// parse actions; elsewhere the markup stays plain text.
	ParseActions bool

	// Payload bounds the assembled message list.
	Payload assembly.PayloadConfig

	// Vars feeds template placeholder substitution for this mode.
	Vars prompt.Vars
}

// DefaultConversationConfig returns the built-in per-turn parameters for
// a mode pair.
func DefaultConversationConfig(mode sessionstate.Mode, subMode sessionstate.SubMode) ConversationConfig {
	cfg := ConversationConfig{
		MaxTokens: 2048,
		Payload:   assembly.DefaultPayloadConfig(),
	}
	switch mode {
	case sessionstate.ModeExploration:
		cfg.Vars = prompt.Vars{
			"deliverable_types": "project brief, outline, reading list, decision note",
		}
	case sessionstate.ModeExecutionSupport:
		cfg.ParseActions = true
	}
	return cfg
}

// Config holds the engine's dependencies and settings.
type Config struct {
	// Store persists sessions, messages, and summaries (required).
	Store storage.Store

	// Client talks to the language model (required).
	Client model.Client

	// Composer builds system prompts. Optional; defaults to the compiled
	// templates.
	Composer *prompt.Composer

	// Assembler builds situation context and payloads. Optional.
	Assembler *assembly.Assembler

	// Hooks receives observation callbacks. Optional.
	Hooks *hooks.Registry

	// Conversations overrides per-mode turn parameters, keyed by what
	// ConversationKey returns. Missing entries use the defaults.
	Conversations map[string]ConversationConfig

	// Summaries tunes summary generation.
	Summaries summary.GeneratorConfig
}

// ConversationKey is the Conversations map key for a mode pair.
func ConversationKey(mode sessionstate.Mode, subMode sessionstate.SubMode) string {
	if mode == sessionstate.ModeExecutionSupport {
		return string(mode) + "/" + string(subMode)
	}
	return string(mode)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Store == nil {
		return fmt.Errorf("%w: Store is required", ErrInvalidConfig)
	}
	if c.Client == nil {
		return fmt.Errorf("%w: Client is required", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) conversation(mode sessionstate.Mode, subMode sessionstate.SubMode) ConversationConfig {
	if cfg, ok := c.Conversations[ConversationKey(mode, subMode)]; ok {
		return cfg
	}
	return DefaultConversationConfig(mode, subMode)
}
