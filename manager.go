package colloquy

import (
	"context"
	"strings"

	"github.com/aeobrien/colloquy/assembly"
	"github.com/aeobrien/colloquy/model"
	"github.com/aeobrien/colloquy/sessionstate"
	"github.com/aeobrien/colloquy/signal"
	"github.com/aeobrien/colloquy/storage"
)

// SendMessage runs one conversational turn: append the user's message,
// build the bounded payload, call the model, parse the reply, and append
// the assistant's message.
//
// The user turn is durable before the model is called, so an aborted
// call leaves the user's words recorded with no assistant reply. The
// assistant message stores the full raw response text, markup included;
// the parsed result is what the caller shows and acts on.
func (e *Engine) SendMessage(ctx context.Context, sessionID, text string, projectData assembly.ProjectData, voiceTranscript string) (*signal.Result, error) {
	const op = "send message"

	session, err := e.getSession(ctx, op, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != sessionstate.StatusActive {
		return nil, NewConversationErrorWithSession(op, sessionID, ErrSessionNotActive)
	}

	if _, err := e.AddMessage(ctx, sessionID, storage.RoleUser, text, voiceTranscript); err != nil {
		return nil, err
	}

	cfg := e.config.conversation(session.Mode, session.SubMode)

	system, err := e.composer.SystemPrompt(session.Mode, session.SubMode, cfg.Vars)
	if err != nil {
		return nil, NewConversationErrorWithSession(op, sessionID, err)
	}
	situation, err := e.assembler.BuildSituation(session.Mode, session.SubMode, projectData)
	if err != nil {
		return nil, NewConversationErrorWithSession(op, sessionID, err)
	}
	if situation != "" {
		system = system + "\n\n" + situation
	}

	history, err := e.store.GetMessages(ctx, sessionID)
	if err != nil {
		return nil, NewConversationErrorWithSession(op, sessionID, err)
	}
	deref := make([]storage.Message, len(history))
	for i, m := range history {
		deref[i] = *m
	}
	payload, _ := assembly.AssemblePayload(system, deref, cfg.Payload)

	req := model.Request{
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	}
	for _, m := range payload {
		if m.Role == assembly.RoleSystem {
			req.System = m.Content
			continue
		}
		req.Messages = append(req.Messages, model.ChatMessage{Role: m.Role, Content: m.Content})
	}

	if err := e.hooks.TriggerBeforeSend(ctx, sessionID, req); err != nil {
		return nil, NewConversationErrorWithSession(op, sessionID, err)
	}
	resp, err := e.client.Send(ctx, req)
	if err != nil {
		return nil, NewConversationErrorWithSession(op, sessionID, err)
	}
	if err := e.hooks.TriggerAfterSend(ctx, sessionID, resp); err != nil {
		return nil, NewConversationErrorWithSession(op, sessionID, err)
	}

	result := signal.Parse(resp.Content, signal.Options{ParseActions: cfg.ParseActions})

	if _, err := e.AddMessage(ctx, sessionID, storage.RoleAssistant, resp.Content, ""); err != nil {
		return nil, err
	}

	if err := e.hooks.TriggerSignal(ctx, sessionID, &result); err != nil {
		return nil, NewConversationErrorWithSession(op, sessionID, err)
	}
	return &result, nil
}

// CompleteSession closes a session as finished work: the transition to
// completed plus a synchronously generated summary.
func (e *Engine) CompleteSession(ctx context.Context, sessionID string) (*storage.Summary, error) {
	return e.finishSession(ctx, "complete session", sessionID, storage.CompletionCompleted)
}

// EndSession closes a session at the user's request before it reached a
// natural finish. The summary records it as incomplete.
func (e *Engine) EndSession(ctx context.Context, sessionID string) (*storage.Summary, error) {
	return e.finishSession(ctx, "end session", sessionID, storage.CompletionUserEnded)
}

func (e *Engine) finishSession(ctx context.Context, op, sessionID string, status storage.CompletionStatus) (*storage.Summary, error) {
	session, err := e.getSession(ctx, op, sessionID)
	if err != nil {
		return nil, err
	}
	if !sessionstate.CanTransition(session.Status, sessionstate.StatusCompleted) {
		return nil, NewConversationErrorWithSession(op, sessionID, ErrInvalidTransition)
	}

	if err := e.hooks.TriggerBeforeSummary(ctx, sessionID); err != nil {
		return nil, NewConversationErrorWithSession(op, sessionID, err)
	}
	record, err := e.generator.Generate(ctx, session, status)
	if err != nil {
		return nil, NewConversationErrorWithSession(op, sessionID, err)
	}
	if _, err := e.TransitionSession(ctx, sessionID, sessionstate.StatusCompleted); err != nil {
		return nil, err
	}
	if err := e.hooks.TriggerAfterSummary(ctx, record); err != nil {
		return nil, NewConversationErrorWithSession(op, sessionID, err)
	}
	return record, nil
}

// Messages returns the session's transcript in append order.
func (e *Engine) Messages(ctx context.Context, sessionID string) ([]*storage.Message, error) {
	msgs, err := e.store.GetMessages(ctx, sessionID)
	if err != nil {
		return nil, NewConversationErrorWithSession("messages", sessionID, err)
	}
	return msgs, nil
}

// Transcript renders the session as labelled plain text, one block per
// turn. Useful for exports and debugging.
func (e *Engine) Transcript(ctx context.Context, sessionID string) (string, error) {
	msgs, err := e.Messages(ctx, sessionID)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		label := "User"
		if m.Role == storage.RoleAssistant {
			label = "Assistant"
		}
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	return b.String(), nil
}
