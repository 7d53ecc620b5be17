package signal

import (
	"testing"
)

func TestParse_ActionInline(t *testing.T) {
	raw := "Great work!\n\n[ACTION: COMPLETE_TASK] taskId: abc123 [/ACTION]"
	result := Parse(raw, Options{ParseActions: true})

	if len(result.Actions) != 1 {
		t.Fatalf("got %d actions, want 1", len(result.Actions))
	}
	action := result.Actions[0]
	if action.Type != ActionCompleteTask {
		t.Errorf("Type = %s, want %s", action.Type, ActionCompleteTask)
	}
	if action.Params["taskId"] != "abc123" {
		t.Errorf("taskId = %q, want %q", action.Params["taskId"], "abc123")
	}
	if result.NaturalLanguage != "Great work!" {
		t.Errorf("NaturalLanguage = %q, want %q", result.NaturalLanguage, "Great work!")
	}
}

func TestParse_ActionMultiline(t *testing.T) {
	raw := "Adding that for you.\n\n[ACTION: CREATE_TASK]\ntitle: Write the intro section\nphase: drafting\n[/ACTION]"
	result := Parse(raw, Options{ParseActions: true})

	if len(result.Actions) != 1 {
		t.Fatalf("got %d actions, want 1", len(result.Actions))
	}
	action := result.Actions[0]
	if action.Type != ActionCreateTask {
		t.Errorf("Type = %s, want %s", action.Type, ActionCreateTask)
	}
	if action.Params["title"] != "Write the intro section" {
		t.Errorf("title = %q", action.Params["title"])
	}
	if action.Params["phase"] != "drafting" {
		t.Errorf("phase = %q", action.Params["phase"])
	}
}

func TestParse_MultipleActions(t *testing.T) {
	raw := "[ACTION: COMPLETE_TASK] taskId: t1 [/ACTION]\n[ACTION: DEFER_TASK] taskId: t2 [/ACTION]"
	result := Parse(raw, Options{ParseActions: true})

	if len(result.Actions) != 2 {
		t.Fatalf("got %d actions, want 2", len(result.Actions))
	}
	if result.Actions[0].Type != ActionCompleteTask || result.Actions[1].Type != ActionDeferTask {
		t.Errorf("types = %s, %s", result.Actions[0].Type, result.Actions[1].Type)
	}
	if result.NaturalLanguage != "" {
		t.Errorf("NaturalLanguage = %q, want empty", result.NaturalLanguage)
	}
}

func TestParse_ActionsDisabled(t *testing.T) {
	raw := "Great work!\n\n[ACTION: COMPLETE_TASK] taskId: abc123 [/ACTION]"
	result := Parse(raw, Options{ParseActions: false})

	if len(result.Actions) != 0 {
		t.Errorf("got %d actions, want 0", len(result.Actions))
	}
	// Disabled action parsing leaves the markup as plain text.
	if result.NaturalLanguage != raw {
		t.Errorf("NaturalLanguage = %q, want input unchanged", result.NaturalLanguage)
	}
}

func TestParse_ActionUnclosed(t *testing.T) {
	raw := "[ACTION: COMPLETE_TASK] taskId: abc123"
	result := Parse(raw, Options{ParseActions: true})

	if len(result.Actions) != 0 {
		t.Errorf("got %d actions, want 0", len(result.Actions))
	}
	if result.NaturalLanguage != raw {
		t.Errorf("NaturalLanguage = %q, want input unchanged", result.NaturalLanguage)
	}
}

func TestParse_ActionUnknownType(t *testing.T) {
	raw := "[ACTION: REWIRE_FLUX] dial: 11 [/ACTION]"
	result := Parse(raw, Options{ParseActions: true})

	// The grammar is open: unknown types still parse, the executor decides.
	if len(result.Actions) != 1 {
		t.Fatalf("got %d actions, want 1", len(result.Actions))
	}
	if result.Actions[0].Type != ActionType("REWIRE_FLUX") {
		t.Errorf("Type = %s", result.Actions[0].Type)
	}
	if result.Actions[0].Params["dial"] != "11" {
		t.Errorf("dial = %q", result.Actions[0].Params["dial"])
	}
}

func TestParseParams_ValueWithSpaces(t *testing.T) {
	params := parseParams("title: A task with several words priority: high")
	if params["title"] != "A task with several words" {
		t.Errorf("title = %q", params["title"])
	}
	if params["priority"] != "high" {
		t.Errorf("priority = %q", params["priority"])
	}
}
