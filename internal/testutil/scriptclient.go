package testutil

import (
	"context"
	"sync"

	"github.com/aeobrien/colloquy/model"
)

// ScriptClient is a model.Client that replays scripted responses in
// order. When the script runs out it repeats the last entry.
type ScriptClient struct {
	mu       sync.Mutex
	script   []ScriptStep
	pos      int
	Requests []model.Request
}

// ScriptStep is one scripted model exchange.
type ScriptStep struct {
	Content string
	Err     error

	InputTokens  int
	OutputTokens int
}

// NewScriptClient builds a client from the given steps.
func NewScriptClient(steps ...ScriptStep) *ScriptClient {
	return &ScriptClient{script: steps}
}

// Send records the request and replays the next scripted step.
func (c *ScriptClient) Send(_ context.Context, req model.Request) (*model.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Requests = append(c.Requests, req)

	if len(c.script) == 0 {
		return &model.Response{Content: "ok"}, nil
	}
	step := c.script[c.pos]
	if c.pos < len(c.script)-1 {
		c.pos++
	}
	if step.Err != nil {
		return nil, step.Err
	}
	return &model.Response{
		Content:      step.Content,
		InputTokens:  step.InputTokens,
		OutputTokens: step.OutputTokens,
	}, nil
}

// Calls returns how many times Send was invoked.
func (c *ScriptClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Requests)
}
