// Package prompt builds the layered system prompts that drive conversation
// sessions. Compiled defaults are embedded from templates/; every template
// can be overridden at runtime through the TemplateStore.
package prompt

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aeobrien/colloquy/sessionstate"
)

// Template keys accepted by the store. Mode layers use the mode name,
// execution sub-modes append the sub-mode.
const (
	KeyFoundation              = "foundation"
	KeyExploration             = "exploration"
	KeyDefinition              = "definition"
	KeyPlanning                = "planning"
	KeyExecutionCheckIn        = "execution_support/check_in"
	KeyExecutionReturnBriefing = "execution_support/return_briefing"
	KeyExecutionProjectReview  = "execution_support/project_review"
	KeyExecutionRetrospective  = "execution_support/retrospective"
	KeySummary                 = "summary"
)

var errUnknownTemplate = func(key string) error {
	return fmt.Errorf("prompt: unknown template %q", key)
}

// TemplateKey returns the template key for a mode and sub-mode pair.
func TemplateKey(mode sessionstate.Mode, subMode sessionstate.SubMode) (string, error) {
	if !sessionstate.ValidPair(mode, subMode) {
		return "", fmt.Errorf("prompt: invalid mode pair %q/%q", mode, subMode)
	}
	if mode == sessionstate.ModeExecutionSupport {
		return string(mode) + "/" + string(subMode), nil
	}
	return string(mode), nil
}

// TemplateStore resolves prompt templates, preferring runtime overrides
// over the compiled defaults. The zero value is not usable; construct
// with NewTemplateStore. Safe for concurrent use.
type TemplateStore struct {
	mu        sync.RWMutex
	defaults  map[string]string
	overrides map[string]string
}

// NewTemplateStore returns a store holding the compiled default templates.
func NewTemplateStore() *TemplateStore {
	return &TemplateStore{
		defaults: map[string]string{
			KeyFoundation:              foundationTemplate,
			KeyExploration:             explorationTemplate,
			KeyDefinition:              definitionTemplate,
			KeyPlanning:                planningTemplate,
			KeyExecutionCheckIn:        executionCheckInTemplate,
			KeyExecutionReturnBriefing: executionReturnBriefingTemplate,
			KeyExecutionProjectReview:  executionProjectReviewTemplate,
			KeyExecutionRetrospective:  executionRetrospectiveTemplate,
			KeySummary:                 summaryTemplate,
		},
		overrides: make(map[string]string),
	}
}

// Resolve returns the template text for key, using an override when one
// is set and the compiled default otherwise.
func (s *TemplateStore) Resolve(key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if text, ok := s.overrides[key]; ok {
		return text, nil
	}
	text, ok := s.defaults[key]
	if !ok {
		return "", errUnknownTemplate(key)
	}
	return text, nil
}

// SetOverride replaces the template for key until ClearOverride is called.
// Unknown keys are rejected so a typo cannot silently shadow nothing.
func (s *TemplateStore) SetOverride(key, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.defaults[key]; !ok {
		return errUnknownTemplate(key)
	}
	s.overrides[key] = text
	return nil
}

// ClearOverride restores the compiled default for key.
func (s *TemplateStore) ClearOverride(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.overrides, key)
}

// HasOverride reports whether key currently has a runtime override.
func (s *TemplateStore) HasOverride(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.overrides[key]
	return ok
}

// Keys returns all template keys the store knows, sorted.
func (s *TemplateStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.defaults))
	for k := range s.defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
