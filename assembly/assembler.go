// Package assembly turns project and session data into bounded model
// input: a per-mode situation block that fits a token budget, and the
// final ordered message list with oldest history truncated first.
package assembly

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/aeobrien/colloquy/sessionstate"
	"github.com/aeobrien/colloquy/storage"
)

// Message is one entry in the assembled model payload.
type Message struct {
	Role    string
	Content string
}

// Payload message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// truncationNotice is the synthetic message inserted when history had to
// be cut. It tells the model the gap exists instead of letting it assume
// the conversation started where the window does.
const truncationNotice = "(Earlier messages in this conversation were omitted to fit the context window. Continue from the messages below.)"

// Assembler builds situation context and payloads. The zero value is not
// usable; construct with NewAssembler.
type Assembler struct {
	configs map[string]SituationConfig
}

// NewAssembler returns an assembler with the built-in situation
// configurations.
func NewAssembler() *Assembler {
	return &Assembler{configs: defaultConfigs()}
}

// SetConfig replaces the situation configuration for a mode pair.
func (a *Assembler) SetConfig(mode sessionstate.Mode, subMode sessionstate.SubMode, cfg SituationConfig) error {
	if !sessionstate.ValidPair(mode, subMode) {
		return fmt.Errorf("assembly: invalid mode pair %q/%q", mode, subMode)
	}
	a.configs[configKey(mode, subMode)] = cfg
	return nil
}

// BuildSituation renders the situation context for a mode pair, fitted to
// the configured budget. Components are fitted in priority order; a
// component that cannot fit is truncated if it tolerates partial content
// and dropped whole otherwise. Empty components are omitted.
func (a *Assembler) BuildSituation(mode sessionstate.Mode, subMode sessionstate.SubMode, data ProjectData) (string, error) {
	cfg, ok := a.configs[configKey(mode, subMode)]
	if !ok {
		if !sessionstate.ValidPair(mode, subMode) {
			return "", fmt.Errorf("assembly: invalid mode pair %q/%q", mode, subMode)
		}
		return "", fmt.Errorf("assembly: no configuration for %q/%q", mode, subMode)
	}

	pat := ComputePatterns(data.Sessions, data.Summaries, data.DeferredTasks, data.now())

	type rendered struct {
		idx  int
		spec Component
		text string
	}
	var parts []rendered
	for i, c := range cfg.Components {
		text := renderComponent(c.Kind, data, pat)
		if text == "" {
			continue
		}
		parts = append(parts, rendered{idx: i, spec: c, text: text})
	}

	// Allocate budget in priority order, then emit in configured order.
	byPriority := make([]*rendered, len(parts))
	for i := range parts {
		byPriority[i] = &parts[i]
	}
	sort.SliceStable(byPriority, func(i, j int) bool {
		return byPriority[i].spec.Priority < byPriority[j].spec.Priority
	})

	remaining := cfg.Budget
	included := make(map[int]string, len(parts))
	for _, p := range byPriority {
		// The extra token covers the blank-line joiner between sections.
		cost := EstimateTokens(p.text) + 1
		switch {
		case cost <= remaining:
			included[p.idx] = p.text
			remaining -= cost
		case p.spec.Truncatable:
			text, ok := truncateToTokens(p.text, remaining-1)
			if !ok {
				continue
			}
			included[p.idx] = text
			remaining = 0
		}
	}

	var sections []string
	for i := range cfg.Components {
		if text, ok := included[i]; ok {
			sections = append(sections, text)
		}
	}
	return strings.Join(sections, "\n\n"), nil
}

// truncateToTokens cuts text so that the result, marker included, fits in
// budget tokens. Returns false when the budget leaves no room for any
// content.
func truncateToTokens(text string, budget int) (string, bool) {
	marker := fmt.Sprintf("\n(truncated, %d characters total)", len(text))
	keep := budget*4 - len(marker)
	if keep <= 0 {
		return "", false
	}
	if keep >= len(text) {
		return text, true
	}
	// Back off to a rune boundary so the cut never leaves invalid UTF-8.
	for keep > 0 && !utf8.RuneStart(text[keep]) {
		keep--
	}
	if keep == 0 {
		return "", false
	}
	return text[:keep] + marker, true
}

// PayloadConfig bounds the assembled message list.
type PayloadConfig struct {
	// TotalBudget is the token ceiling for the whole request, response
	// reserve included.
	TotalBudget int

	// ResponseReserve is held back for the model's reply.
	ResponseReserve int
}

// DefaultPayloadConfig returns the payload bounds used when the caller
// does not override them.
func DefaultPayloadConfig() PayloadConfig {
	return PayloadConfig{
		TotalBudget:     16000,
		ResponseReserve: 2000,
	}
}

// AssemblePayload produces the final ordered message list: the system
// message, then a single truncation notice when history did not fit, then
// the longest suffix of history that fits within
// TotalBudget - ResponseReserve - system tokens. Returns the messages and
// the estimated token total.
func AssemblePayload(systemPrompt string, history []storage.Message, cfg PayloadConfig) ([]Message, int) {
	if cfg.TotalBudget <= 0 {
		cfg = DefaultPayloadConfig()
	}

	systemTokens := EstimateTokens(systemPrompt)
	budget := cfg.TotalBudget - cfg.ResponseReserve - systemTokens
	if budget < 0 {
		budget = 0
	}

	total := 0
	for _, m := range history {
		total += EstimateTokens(m.Content)
	}

	start := 0
	truncated := false
	if total > budget {
		truncated = true
		budget -= EstimateTokens(truncationNotice)
		used := 0
		start = len(history)
		for i := len(history) - 1; i >= 0; i-- {
			cost := EstimateTokens(history[i].Content)
			if used+cost > budget {
				break
			}
			used += cost
			start = i
		}
	}

	msgs := make([]Message, 0, len(history)-start+2)
	msgs = append(msgs, Message{Role: RoleSystem, Content: systemPrompt})
	if truncated {
		msgs = append(msgs, Message{Role: RoleUser, Content: truncationNotice})
	}
	for _, m := range history[start:] {
		msgs = append(msgs, Message{Role: string(m.Role), Content: m.Content})
	}
	return msgs, EstimateMessages(msgs)
}
