package assembly

import (
	"fmt"

	"github.com/aeobrien/colloquy/sessionstate"
)

// ComponentKind names a renderable section of situation context.
type ComponentKind string

const (
	KindProjectOverview      ComponentKind = "project_overview"
	KindProcessProfile       ComponentKind = "process_profile"
	KindDocuments            ComponentKind = "documents"
	KindCurrentStructure     ComponentKind = "current_structure"
	KindDeferredTasks        ComponentKind = "deferred_tasks"
	KindSessionHistory       ComponentKind = "session_history"
	KindEstimateCalibration  ComponentKind = "estimate_calibration"
	KindCrossSessionPatterns ComponentKind = "cross_session_patterns"

	// KindPortfolioSummary is only configured for project-review sessions.
	KindPortfolioSummary ComponentKind = "portfolio_summary"
)

// Component is one entry in a situation configuration. Priority orders
// budget allocation: lower values are fitted first. Truncatable marks
// free-text sections that tolerate partial content; everything else is
// dropped whole when it cannot fit, so lists never appear cut mid-item.
type Component struct {
	Kind        ComponentKind
	Priority    int
	Truncatable bool
}

// SituationConfig is the per-(mode, sub-mode) recipe for situation context.
type SituationConfig struct {
	// Components in output order. Fitting happens in Priority order.
	Components []Component

	// Budget is the token ceiling for the rendered situation block.
	Budget int
}

func configKey(mode sessionstate.Mode, subMode sessionstate.SubMode) string {
	if mode == sessionstate.ModeExecutionSupport {
		return string(mode) + "/" + string(subMode)
	}
	return string(mode)
}

// defaultConfigs returns the built-in situation recipes. Exploration keeps
// context lean; execution modes carry the most because the conversation
// leans on project state.
func defaultConfigs() map[string]SituationConfig {
	executionBase := []Component{
		{Kind: KindProjectOverview, Priority: 0},
		{Kind: KindCurrentStructure, Priority: 1},
		{Kind: KindSessionHistory, Priority: 2},
		{Kind: KindDeferredTasks, Priority: 3},
		{Kind: KindEstimateCalibration, Priority: 4},
		{Kind: KindCrossSessionPatterns, Priority: 5},
		{Kind: KindDocuments, Priority: 6, Truncatable: true},
	}
	review := append([]Component{}, executionBase...)
	review = append(review, Component{Kind: KindPortfolioSummary, Priority: 7})

	return map[string]SituationConfig{
		configKey(sessionstate.ModeExploration, sessionstate.SubModeNone): {
			Components: []Component{
				{Kind: KindProjectOverview, Priority: 0},
				{Kind: KindCrossSessionPatterns, Priority: 1},
				{Kind: KindSessionHistory, Priority: 2},
			},
			Budget: 1500,
		},
		configKey(sessionstate.ModeDefinition, sessionstate.SubModeNone): {
			Components: []Component{
				{Kind: KindProjectOverview, Priority: 0},
				{Kind: KindProcessProfile, Priority: 1},
				{Kind: KindSessionHistory, Priority: 2},
				{Kind: KindDocuments, Priority: 3, Truncatable: true},
			},
			Budget: 2500,
		},
		configKey(sessionstate.ModePlanning, sessionstate.SubModeNone): {
			Components: []Component{
				{Kind: KindProjectOverview, Priority: 0},
				{Kind: KindProcessProfile, Priority: 1},
				{Kind: KindEstimateCalibration, Priority: 2},
				{Kind: KindSessionHistory, Priority: 3},
				{Kind: KindDocuments, Priority: 4, Truncatable: true},
			},
			Budget: 3000,
		},
		configKey(sessionstate.ModeExecutionSupport, sessionstate.SubModeCheckIn): {
			Components: executionBase,
			Budget:     4000,
		},
		configKey(sessionstate.ModeExecutionSupport, sessionstate.SubModeReturnBriefing): {
			Components: executionBase,
			Budget:     4000,
		},
		configKey(sessionstate.ModeExecutionSupport, sessionstate.SubModeProjectReview): {
			Components: review,
			Budget:     5000,
		},
		configKey(sessionstate.ModeExecutionSupport, sessionstate.SubModeRetrospective): {
			Components: executionBase,
			Budget:     4000,
		},
	}
}

// ConfigFor returns the built-in situation configuration for the pair.
func ConfigFor(mode sessionstate.Mode, subMode sessionstate.SubMode) (SituationConfig, error) {
	if !sessionstate.ValidPair(mode, subMode) {
		return SituationConfig{}, fmt.Errorf("assembly: invalid mode pair %q/%q", mode, subMode)
	}
	cfg, ok := defaultConfigs()[configKey(mode, subMode)]
	if !ok {
		return SituationConfig{}, fmt.Errorf("assembly: no configuration for %q/%q", mode, subMode)
	}
	return cfg, nil
}
