// Package flowtest provides a scriptable Engine for exercising flows in
// tests without a live model backend.
package flowtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/tailored-agentic-units/flow"
	"github.com/tailored-agentic-units/flow/core/protocol"
)

// Engine is a fake flow.Engine. The zero value echoes the last input item.
// Safe for concurrent use; every request is recorded for assertions.
type Engine struct {
	// Reply overrides response construction when set.
	Reply func(req flow.Request) (*flow.Response, error)
	// Err, when set, fails every call.
	Err error
	// Deltas are emitted in order before RunStream resolves. When empty,
	// the response text is emitted as a single delta.
	Deltas []string
	// WithReasoning prefixes responses with a reasoning marker item.
	WithReasoning bool

	mu       sync.Mutex
	requests []flow.Request
}

// Requests returns a copy of all requests seen so far, in arrival order.
func (e *Engine) Requests() []flow.Request {
	e.mu.Lock()
	defer e.mu.Unlock()

	copied := make([]flow.Request, len(e.requests))
	copy(copied, e.requests)
	return copied
}

// LastRequest returns the most recent request, or false if none were made.
func (e *Engine) LastRequest() (flow.Request, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.requests) == 0 {
		return flow.Request{}, false
	}
	return e.requests[len(e.requests)-1], true
}

func (e *Engine) record(req flow.Request) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.requests = append(e.requests, req)
}

func (e *Engine) respond(req flow.Request) (*flow.Response, error) {
	if e.Err != nil {
		return nil, e.Err
	}
	if e.Reply != nil {
		return e.Reply(req)
	}

	last := ""
	if len(req.Input) > 0 {
		last = req.Input[len(req.Input)-1].Content
	}
	text := fmt.Sprintf("reply to: %s", last)

	resp := &flow.Response{Text: text}
	if e.WithReasoning {
		resp.Items = []protocol.Item{
			protocol.NewReasoning("considering: " + last),
			protocol.NewItem(protocol.RoleAssistant, text),
		}
	}
	return resp, nil
}

func (e *Engine) Run(ctx context.Context, req flow.Request) (*flow.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.record(req)
	return e.respond(req)
}

func (e *Engine) RunStream(ctx context.Context, req flow.Request, emit func(ctx context.Context, d flow.Delta) error) (*flow.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.record(req)

	resp, err := e.respond(req)
	if err != nil {
		return nil, err
	}

	deltas := e.Deltas
	if len(deltas) == 0 {
		deltas = []string{resp.Text}
	}
	for _, d := range deltas {
		if err := emit(ctx, flow.Delta{Agent: req.Agent.Name, Text: d}); err != nil {
			return nil, err
		}
	}
	return resp, nil
}
