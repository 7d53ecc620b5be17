package assembly

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/aeobrien/colloquy/sessionstate"
	"github.com/aeobrien/colloquy/storage"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{strings.Repeat("x", 400), 100},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%d chars) = %d, want %d", len(tt.text), got, tt.want)
		}
	}
}

func TestConfigFor(t *testing.T) {
	for _, mode := range sessionstate.AllModes() {
		if mode == sessionstate.ModeExecutionSupport {
			for _, sub := range sessionstate.AllSubModes() {
				if _, err := ConfigFor(mode, sub); err != nil {
					t.Errorf("ConfigFor(%q, %q): %v", mode, sub, err)
				}
			}
			continue
		}
		if _, err := ConfigFor(mode, sessionstate.SubModeNone); err != nil {
			t.Errorf("ConfigFor(%q): %v", mode, err)
		}
	}
	if _, err := ConfigFor(sessionstate.ModeExecutionSupport, sessionstate.SubModeNone); err == nil {
		t.Error("execution support without a sub-mode should fail")
	}

	explore, _ := ConfigFor(sessionstate.ModeExploration, sessionstate.SubModeNone)
	checkIn, _ := ConfigFor(sessionstate.ModeExecutionSupport, sessionstate.SubModeCheckIn)
	if explore.Budget >= checkIn.Budget {
		t.Errorf("exploration budget (%d) should be smaller than execution budget (%d)", explore.Budget, checkIn.Budget)
	}
}

func TestBuildSituation_OmitsEmptySections(t *testing.T) {
	a := NewAssembler()
	got, err := a.BuildSituation(sessionstate.ModeExecutionSupport, sessionstate.SubModeCheckIn, ProjectData{
		Project: Project{Name: "Garden shed", Status: "active"},
	})
	if err != nil {
		t.Fatalf("BuildSituation: %v", err)
	}
	if !strings.Contains(got, "Garden shed") {
		t.Error("project overview should be present")
	}
	for _, header := range []string{"## Project documents", "## Current structure", "## Frequently deferred", "## Recent sessions"} {
		if strings.Contains(got, header) {
			t.Errorf("empty section %q should be omitted, got:\n%s", header, got)
		}
	}
}

func TestBuildSituation_OversizedDocumentTruncated(t *testing.T) {
	a := NewAssembler()
	body := strings.Repeat("lorem ipsum dolor sit amet. ", 2000) // far over any budget

	data := ProjectData{
		Project:   Project{Name: "Novel", Description: "A long book"},
		Documents: []Document{{Title: "Draft", Type: "manuscript", Body: body}},
	}
	got, err := a.BuildSituation(sessionstate.ModeExecutionSupport, sessionstate.SubModeCheckIn, data)
	if err != nil {
		t.Fatalf("BuildSituation: %v", err)
	}
	cfg, _ := ConfigFor(sessionstate.ModeExecutionSupport, sessionstate.SubModeCheckIn)
	if tokens := EstimateTokens(got); tokens > cfg.Budget {
		t.Errorf("situation is %d tokens, budget is %d", tokens, cfg.Budget)
	}
	if !strings.Contains(got, "characters total)") {
		t.Error("truncated document should carry the truncation marker")
	}
	if !strings.Contains(got, "(truncated, ") {
		t.Error("truncation marker should name the original size")
	}
}

func TestTruncateToTokens_RuneBoundary(t *testing.T) {
	text := strings.Repeat("日本語のテキストです。", 200)
	for budget := 5; budget <= 40; budget++ {
		got, ok := truncateToTokens(text, budget)
		if !ok {
			continue
		}
		if !utf8.ValidString(got) {
			t.Fatalf("budget %d: truncation produced invalid UTF-8", budget)
		}
		if tokens := EstimateTokens(got); tokens > budget {
			t.Errorf("budget %d: result is %d tokens", budget, tokens)
		}
		if !strings.Contains(got, "characters total)") {
			t.Errorf("budget %d: truncation marker missing", budget)
		}
	}
}

func TestBuildSituation_StructuralSectionsDropWhole(t *testing.T) {
	a := NewAssembler()
	var tasks []Task
	for i := 0; i < 2000; i++ {
		tasks = append(tasks, Task{ID: "t1", Title: "Do a thing that takes a while to describe", Status: "pending"})
	}
	err := a.SetConfig(sessionstate.ModePlanning, sessionstate.SubModeNone, SituationConfig{
		Components: []Component{
			{Kind: KindProjectOverview, Priority: 0},
			{Kind: KindCurrentStructure, Priority: 1},
		},
		Budget: 100,
	})
	if err != nil {
		t.Fatalf("SetConfig: %v", err)
	}

	got, err := a.BuildSituation(sessionstate.ModePlanning, sessionstate.SubModeNone, ProjectData{
		Project:   Project{Name: "Big plan"},
		Structure: []Phase{{Name: "Phase one", Tasks: tasks}},
	})
	if err != nil {
		t.Fatalf("BuildSituation: %v", err)
	}
	if strings.Contains(got, "## Current structure") {
		t.Error("oversized structural section should be dropped whole, never truncated")
	}
	if !strings.Contains(got, "Big plan") {
		t.Error("smaller section should still fit")
	}
}

func TestBuildSituation_PriorityOverridesListOrder(t *testing.T) {
	a := NewAssembler()
	body := strings.Repeat("background material. ", 400)
	err := a.SetConfig(sessionstate.ModeDefinition, sessionstate.SubModeNone, SituationConfig{
		Components: []Component{
			{Kind: KindDocuments, Priority: 1, Truncatable: true},
			{Kind: KindProjectOverview, Priority: 0},
		},
		Budget: 60,
	})
	if err != nil {
		t.Fatalf("SetConfig: %v", err)
	}

	got, err := a.BuildSituation(sessionstate.ModeDefinition, sessionstate.SubModeNone, ProjectData{
		Project:   Project{Name: "Priorities", Description: "overview text"},
		Documents: []Document{{Title: "Notes", Body: body}},
	})
	if err != nil {
		t.Fatalf("BuildSituation: %v", err)
	}
	// The overview is fitted first despite being listed second, and the
	// documents section absorbs the truncation.
	if !strings.Contains(got, "Priorities") {
		t.Error("higher-priority overview should survive")
	}
	if !strings.Contains(got, "characters total)") {
		t.Error("lower-priority document should be truncated into the remainder")
	}
	if strings.Index(got, "## Project documents") > strings.Index(got, "## Project\n") {
		t.Error("output should follow configured list order, not priority order")
	}
}

func TestComputePatterns(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	done := func(daysAgo int) storage.Session {
		at := now.AddDate(0, 0, -daysAgo)
		return storage.Session{Status: sessionstate.StatusCompleted, LastActiveAt: at, CompletedAt: &at}
	}

	t.Run("empty history", func(t *testing.T) {
		p := ComputePatterns(nil, nil, nil, now)
		if p.CountedSessions != 0 || p.IsReturn || p.Trend != TrendStable {
			t.Errorf("empty history gave %+v", p)
		}
	})

	t.Run("active sessions are not counted", func(t *testing.T) {
		active := storage.Session{Status: sessionstate.StatusActive, LastActiveAt: now}
		p := ComputePatterns([]storage.Session{active, done(3)}, nil, nil, now)
		if p.CountedSessions != 1 {
			t.Errorf("CountedSessions = %d, want 1", p.CountedSessions)
		}
	})

	t.Run("return after long gap", func(t *testing.T) {
		p := ComputePatterns([]storage.Session{done(30), done(20)}, nil, nil, now)
		if !p.IsReturn {
			t.Error("20 days since last session should count as a return")
		}
		if p.DaysSinceLastSession != 20 {
			t.Errorf("DaysSinceLastSession = %d, want 20", p.DaysSinceLastSession)
		}
		if p.AverageGapDays != 10 {
			t.Errorf("AverageGapDays = %v, want 10", p.AverageGapDays)
		}
	})

	t.Run("increasing engagement", func(t *testing.T) {
		// Gaps shrink: 10, 10, 2, 2 days.
		sessions := []storage.Session{done(25), done(15), done(5), done(3), done(1)}
		p := ComputePatterns(sessions, nil, nil, now)
		if p.Trend != TrendIncreasing {
			t.Errorf("Trend = %q, want increasing", p.Trend)
		}
	})

	t.Run("decreasing engagement", func(t *testing.T) {
		// Gaps grow: 2, 2, 10, 10 days.
		sessions := []storage.Session{done(25), done(23), done(21), done(11), done(1)}
		p := ComputePatterns(sessions, nil, nil, now)
		if p.Trend != TrendDecreasing {
			t.Errorf("Trend = %q, want decreasing", p.Trend)
		}
	})

	t.Run("deferral stats", func(t *testing.T) {
		deferred := []DeferredTask{
			{Title: "File taxes", Count: 5},
			{Title: "Call plumber", Count: 2},
		}
		p := ComputePatterns([]storage.Session{done(1)}, nil, deferred, now)
		if p.Deferrals.TotalDeferrals != 7 || p.Deferrals.DeferredTasks != 2 {
			t.Errorf("deferral totals = %+v", p.Deferrals)
		}
		if p.Deferrals.MostDeferred != "File taxes" || p.Deferrals.MostDeferredCount != 5 {
			t.Errorf("most deferred = %q (%d)", p.Deferrals.MostDeferred, p.Deferrals.MostDeferredCount)
		}
	})

	t.Run("abandoned sessions counted from summaries", func(t *testing.T) {
		summaries := []storage.Summary{
			{CompletionStatus: storage.CompletionCompleted},
			{CompletionStatus: storage.CompletionAutoSummarised},
			{CompletionStatus: storage.CompletionAutoSummarised},
		}
		p := ComputePatterns(nil, summaries, nil, now)
		if p.AbandonedSessions != 2 {
			t.Errorf("AbandonedSessions = %d, want 2", p.AbandonedSessions)
		}
	})
}

func TestAssemblePayload_AllHistoryFits(t *testing.T) {
	history := []storage.Message{
		{Role: storage.RoleUser, Content: "hello"},
		{Role: storage.RoleAssistant, Content: "hi, what are we working on?"},
	}
	msgs, tokens := AssemblePayload("system prompt", history, PayloadConfig{TotalBudget: 1000, ResponseReserve: 100})
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	if msgs[0].Role != RoleSystem || msgs[0].Content != "system prompt" {
		t.Errorf("first message should be the system prompt, got %+v", msgs[0])
	}
	if msgs[1].Content != "hello" || msgs[2].Role != RoleAssistant {
		t.Error("history should follow the system message unchanged")
	}
	if tokens != EstimateMessages(msgs) {
		t.Errorf("returned tokens %d, want %d", tokens, EstimateMessages(msgs))
	}
	for _, m := range msgs {
		if m.Content == truncationNotice {
			t.Error("no truncation notice expected when history fits")
		}
	}
}

func TestAssemblePayload_TruncatesOldestFirst(t *testing.T) {
	var history []storage.Message
	for i := 0; i < 40; i++ {
		role := storage.RoleUser
		if i%2 == 1 {
			role = storage.RoleAssistant
		}
		history = append(history, storage.Message{Role: role, Content: strings.Repeat("word ", 40)})
	}
	system := "short system prompt"
	cfg := PayloadConfig{TotalBudget: 600, ResponseReserve: 100}

	msgs, tokens := AssemblePayload(system, history, cfg)

	if msgs[0].Role != RoleSystem {
		t.Fatal("system message must come first")
	}
	notices := 0
	for _, m := range msgs {
		if m.Content == truncationNotice {
			notices++
		}
	}
	if notices != 1 {
		t.Fatalf("got %d truncation notices, want exactly 1", notices)
	}
	if msgs[1].Content != truncationNotice {
		t.Error("truncation notice must sit immediately after the system message")
	}
	if last := msgs[len(msgs)-1]; last.Content != history[len(history)-1].Content {
		t.Error("most recent message must survive truncation")
	}
	budget := cfg.TotalBudget - cfg.ResponseReserve
	if tokens > budget {
		t.Errorf("payload is %d tokens, must stay within %d", tokens, budget)
	}
	if len(msgs) >= len(history)+2 {
		t.Error("some old messages should have been dropped")
	}
}

func TestAssemblePayload_ZeroConfigUsesDefaults(t *testing.T) {
	msgs, _ := AssemblePayload("s", []storage.Message{{Role: storage.RoleUser, Content: "m"}}, PayloadConfig{})
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
}
