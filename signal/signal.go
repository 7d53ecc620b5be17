// Package signal parses the structured protocol embedded in model output.
//
// The model replies with prose plus two marker syntaxes:
//
//	[NAME: value]              line signal, standalone on its own line
//	[SESSION_END]              the one bare line signal
//	[NAME: header]...[/NAME]   block signal spanning lines
//	[ACTION: TYPE] k: v [/ACTION]   action block (shared grammar)
//
// Parsing is permissive and never fails: a malformed, unknown, or unclosed
// marker is left untouched in the prose and produces nothing. Parsing the
// emitted prose again yields zero signals and zero actions.
package signal

// Kind identifies a protocol signal. The set is closed: every consumption
// site switches over all kinds, and TestKinds_Exhaustive guards the list.
type Kind string

const (
	// Line signals.
	KindModeComplete          Kind = "mode_complete"
	KindProcessRecommendation Kind = "process_recommendation"
	KindPlanningDepth         Kind = "planning_depth"
	KindProjectSummary        Kind = "project_summary"
	KindDeliverablesProduced  Kind = "deliverables_produced"
	KindDeliverablesDeferred  Kind = "deliverables_deferred"
	KindStructureSummary      Kind = "structure_summary"
	KindFirstAction           Kind = "first_action"
	KindSessionEnd            Kind = "session_end"

	// Block signals.
	KindDocumentDraft     Kind = "document_draft"
	KindStructureProposal Kind = "structure_proposal"
)

// AllKinds returns every signal kind.
func AllKinds() []Kind {
	return []Kind{
		KindModeComplete,
		KindProcessRecommendation,
		KindPlanningDepth,
		KindProjectSummary,
		KindDeliverablesProduced,
		KindDeliverablesDeferred,
		KindStructureSummary,
		KindFirstAction,
		KindSessionEnd,
		KindDocumentDraft,
		KindStructureProposal,
	}
}

// IsBlock returns true for signals carried as [NAME]...[/NAME] blocks.
func (k Kind) IsBlock() bool {
	switch k {
	case KindDocumentDraft, KindStructureProposal:
		return true
	default:
		return false
	}
}

// Signal is one parsed protocol unit.
type Signal struct {
	Kind Kind

	// Value is the line signal payload. For document drafts it holds the
	// optional type header (for example "brief" or "charter").
	Value string

	// Body is the block content. Empty for line signals.
	Body string
}

// lineMarkers maps marker names to kinds for line signals that require a
// value.
var lineMarkers = map[string]Kind{
	"MODE_COMPLETE":          KindModeComplete,
	"PROCESS_RECOMMENDATION": KindProcessRecommendation,
	"PLANNING_DEPTH":         KindPlanningDepth,
	"PROJECT_SUMMARY":        KindProjectSummary,
	"DELIVERABLES_PRODUCED":  KindDeliverablesProduced,
	"DELIVERABLES_DEFERRED":  KindDeliverablesDeferred,
	"STRUCTURE_SUMMARY":      KindStructureSummary,
	"FIRST_ACTION":           KindFirstAction,
}

// blockMarkers maps marker names to kinds for block signals.
var blockMarkers = map[string]Kind{
	"DOCUMENT_DRAFT":     KindDocumentDraft,
	"STRUCTURE_PROPOSAL": KindStructureProposal,
}

// MarkerName returns the wire marker for a kind, for prompt construction and
// tests.
func MarkerName(k Kind) string {
	switch k {
	case KindModeComplete:
		return "MODE_COMPLETE"
	case KindProcessRecommendation:
		return "PROCESS_RECOMMENDATION"
	case KindPlanningDepth:
		return "PLANNING_DEPTH"
	case KindProjectSummary:
		return "PROJECT_SUMMARY"
	case KindDeliverablesProduced:
		return "DELIVERABLES_PRODUCED"
	case KindDeliverablesDeferred:
		return "DELIVERABLES_DEFERRED"
	case KindStructureSummary:
		return "STRUCTURE_SUMMARY"
	case KindFirstAction:
		return "FIRST_ACTION"
	case KindSessionEnd:
		return "SESSION_END"
	case KindDocumentDraft:
		return "DOCUMENT_DRAFT"
	case KindStructureProposal:
		return "STRUCTURE_PROPOSAL"
	default:
		return ""
	}
}
