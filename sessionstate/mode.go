package sessionstate

// Mode is a named conversational purpose. Every session has exactly one mode
// for its whole lifetime.
type Mode string

const (
	// ModeExploration is open-ended idea development before a project has shape.
	ModeExploration Mode = "exploration"

	// ModeDefinition turns an explored idea into a defined project.
	ModeDefinition Mode = "definition"

	// ModePlanning structures a defined project into phases and tasks.
	ModePlanning Mode = "planning"

	// ModeExecutionSupport supports a project that is underway. It is the
	// only mode that further specialises by sub-mode.
	ModeExecutionSupport Mode = "execution_support"
)

// SubMode specialises the execution-support mode. It is meaningless for any
// other mode and must be empty there.
type SubMode string

const (
	SubModeNone           SubMode = ""
	SubModeCheckIn        SubMode = "check_in"
	SubModeReturnBriefing SubMode = "return_briefing"
	SubModeProjectReview  SubMode = "project_review"
	SubModeRetrospective  SubMode = "retrospective"
)

// AllModes returns all conversation modes.
func AllModes() []Mode {
	return []Mode{ModeExploration, ModeDefinition, ModePlanning, ModeExecutionSupport}
}

// AllSubModes returns all execution-support sub-modes.
func AllSubModes() []SubMode {
	return []SubMode{SubModeCheckIn, SubModeReturnBriefing, SubModeProjectReview, SubModeRetrospective}
}

// IsValid returns true if the mode is a known conversation mode.
func (m Mode) IsValid() bool {
	switch m {
	case ModeExploration, ModeDefinition, ModePlanning, ModeExecutionSupport:
		return true
	default:
		return false
	}
}

// IsValid returns true if the sub-mode is a known execution-support sub-mode.
// The empty sub-mode is valid for non-execution modes only.
func (s SubMode) IsValid() bool {
	switch s {
	case SubModeCheckIn, SubModeReturnBriefing, SubModeProjectReview, SubModeRetrospective:
		return true
	default:
		return false
	}
}

// ValidPair reports whether the (mode, sub-mode) combination is allowed:
// execution-support requires a sub-mode, every other mode forbids one.
func ValidPair(m Mode, s SubMode) bool {
	if !m.IsValid() {
		return false
	}
	if m == ModeExecutionSupport {
		return s.IsValid()
	}
	return s == SubModeNone
}
