package flow

import (
	"context"

	"github.com/tailored-agentic-units/flow/core/protocol"
)

// Request carries everything an Engine needs to resolve one call: the target
// agent definition, the fully resolved input (visible history plus the new
// user item), and passthrough execution parameters.
type Request struct {
	Agent    Agent
	Input    []protocol.Item
	MaxTurns int            // 0 means engine default
	Params   map[string]any // passthrough, engine-specific
}

// Delta is one incremental chunk of a streaming response.
type Delta struct {
	Agent string
	Text  string
}

// Response holds the outcome of one engine call. Text is the final output
// (free text, or JSON conforming to the agent's output schema). Items are
// the new conversation items the call produced, in order: reasoning markers
// followed by the assistant message. Engines that do not model reasoning may
// leave Items empty; the flow synthesizes a single assistant item from Text.
type Response struct {
	Text  string
	Items []protocol.Item
}

// Engine is the language-model execution collaborator. It resolves a fully
// specified request to text; it never reads or writes conversation logs.
// History visibility and write-back are decided by the flow before and after
// the call.
type Engine interface {
	// Run resolves a request to its final response.
	Run(ctx context.Context, req Request) (*Response, error)
	// RunStream resolves a request while forwarding incremental deltas to
	// emit in production order, then returns the final response. An error
	// returned by emit aborts the call.
	RunStream(ctx context.Context, req Request, emit func(ctx context.Context, d Delta) error) (*Response, error)
}
