package colloquy

import (
	"github.com/aeobrien/colloquy/assembly"
	"github.com/aeobrien/colloquy/hooks"
	"github.com/aeobrien/colloquy/model"
	"github.com/aeobrien/colloquy/prompt"
	"github.com/aeobrien/colloquy/storage"
	"github.com/aeobrien/colloquy/summary"
)

// Engine runs project-scoped conversation sessions: lifecycle, prompt
// composition, context assembly, the model round trip, and response
// parsing.
//
// Concurrent calls against different sessions are safe. Concurrent
// SendMessage calls against the same session are not; the caller owns
// that serialisation.
type Engine struct {
	store     storage.Store
	client    model.Client
	composer  *prompt.Composer
	assembler *assembly.Assembler
	hooks     *hooks.Registry
	generator *summary.Generator
	config    Config
}

// New creates an engine from config, applying defaults for the optional
// dependencies.
func New(config Config) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Composer == nil {
		config.Composer = prompt.NewComposer(nil)
	}
	if config.Assembler == nil {
		config.Assembler = assembly.NewAssembler()
	}
	if config.Hooks == nil {
		config.Hooks = hooks.NewRegistry()
	}

	return &Engine{
		store:     config.Store,
		client:    config.Client,
		composer:  config.Composer,
		assembler: config.Assembler,
		hooks:     config.Hooks,
		generator: summary.NewGenerator(config.Store, config.Client, config.Composer, config.Summaries),
		config:    config,
	}, nil
}

// Store returns the storage interface for direct access.
func (e *Engine) Store() storage.Store {
	return e.store
}

// Hooks returns the hook registry for registering observers.
func (e *Engine) Hooks() *hooks.Registry {
	return e.hooks
}

// Composer returns the prompt composer, whose template store accepts
// runtime overrides.
func (e *Engine) Composer() *prompt.Composer {
	return e.composer
}
