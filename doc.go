// Package colloquy is a project-scoped conversation engine for personal
// productivity apps: bounded multi-turn conversations between one user and
// a language model, durable across pauses and resumes.
//
// Colloquy is opinionated (Anthropic + PostgreSQL or SQLite) and covers the
// full loop: a session lifecycle state machine, layered prompt composition,
// token-budgeted context assembly, a signal/action mini-protocol over the
// model's free-text replies, and timeout-driven auto-summarisation of
// abandoned sessions.
//
// # Key Features
//
//   - Sessions with a fixed status graph (active, paused, completed,
//     pending auto-summary, auto-summarised) and a single-active-session
//     invariant per project
//   - Conversation modes (exploration, definition, planning, execution
//     support) with per-mode prompt layers and context recipes
//   - Token-budgeted situation context with priority-ordered components
//   - A permissive response parser that splits prose from protocol markers
//     and never fails on malformed input
//   - Structured end-of-session summaries, generated synchronously on close
//     and automatically for sessions the user walked away from
//   - Hooks for observability and debugging
//
// # Quick Start
//
// Create an engine with a store and a model client:
//
//	store, _ := storage.OpenSQLite(ctx, workspaceDir)
//	client, _ := model.NewAnthropicClient(model.AnthropicConfig{
//	    APIKey: os.Getenv("ANTHROPIC_API_KEY"),
//	})
//	engine, err := colloquy.New(colloquy.Config{
//	    Store:  store,
//	    Client: client,
//	})
//
// Run a conversation:
//
//	session, _ := engine.StartSession(ctx, projectID,
//	    sessionstate.ModePlanning, sessionstate.SubModeNone)
//	result, _ := engine.SendMessage(ctx, session.ID,
//	    "Let's break the launch into phases", projectData, "")
//	fmt.Println(result.NaturalLanguage)
//	for _, sig := range result.Signals {
//	    // react to MODE_COMPLETE, SESSION_END, document drafts, ...
//	}
//
// Close it out:
//
//	summary, _ := engine.CompleteSession(ctx, session.ID)
//
// # Auto-Summarisation
//
// Sessions the user abandons mid-flow are closed by a sweep the caller
// schedules:
//
//	sweeper := maintenance.NewSweeper(store, generator, nil)
//	result := sweeper.Sweep(ctx)
//
// Paused sessions older than the configured timeout are summarised and
// moved to auto-summarised; sessions whose summarisation keeps failing park
// in pending auto-summary and are retried on the next pass.
package colloquy
