package prompt

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aeobrien/colloquy/sessionstate"
)

// Vars carries substitution values for {{name}} placeholders in templates.
// Missing placeholders are left untouched so a template gap is visible in
// the output rather than silently blanked.
type Vars map[string]string

var placeholderRe = regexp.MustCompile(`\{\{([a-zA-Z][a-zA-Z0-9_]*)\}\}`)

// Substitute replaces every {{name}} placeholder found in vars.
func Substitute(text string, vars Vars) string {
	if len(vars) == 0 {
		return text
	}
	return placeholderRe.ReplaceAllStringFunc(text, func(m string) string {
		name := m[2 : len(m)-2]
		if v, ok := vars[name]; ok {
			return v
		}
		return m
	})
}

// Composer assembles system prompts from the foundation layer plus a
// mode-specific layer. Templates come from the injected store, so overrides
// and defaults flow through without the composer knowing which is which.
type Composer struct {
	store *TemplateStore
}

// NewComposer returns a composer reading from store. A nil store gets a
// fresh default store.
func NewComposer(store *TemplateStore) *Composer {
	if store == nil {
		store = NewTemplateStore()
	}
	return &Composer{store: store}
}

// Store returns the template store the composer reads from.
func (c *Composer) Store() *TemplateStore { return c.store }

// ModeLayer returns the mode-specific prompt layer for the pair, with
// placeholder substitution applied.
func (c *Composer) ModeLayer(mode sessionstate.Mode, subMode sessionstate.SubMode, vars Vars) (string, error) {
	key, err := TemplateKey(mode, subMode)
	if err != nil {
		return "", err
	}
	text, err := c.store.Resolve(key)
	if err != nil {
		return "", err
	}
	if mode == sessionstate.ModeExecutionSupport {
		merged := Vars{"sub_mode": string(subMode)}
		for k, v := range vars {
			merged[k] = v
		}
		vars = merged
	}
	return Substitute(text, vars), nil
}

// SystemPrompt composes the full system prompt for a session: foundation
// layer, then the mode layer, separated by a blank line.
func (c *Composer) SystemPrompt(mode sessionstate.Mode, subMode sessionstate.SubMode, vars Vars) (string, error) {
	foundation, err := c.store.Resolve(KeyFoundation)
	if err != nil {
		return "", err
	}
	layer, err := c.ModeLayer(mode, subMode, vars)
	if err != nil {
		return "", err
	}
	foundation = Substitute(foundation, vars)
	return strings.TrimSpace(foundation) + "\n\n" + strings.TrimSpace(layer), nil
}

// SummaryPrompt returns the system prompt used when asking the model to
// summarise a finished session.
func (c *Composer) SummaryPrompt() (string, error) {
	text, err := c.store.Resolve(KeySummary)
	if err != nil {
		return "", fmt.Errorf("prompt: resolving summary template: %w", err)
	}
	return strings.TrimSpace(text), nil
}
