// Package flow is an execution-context engine for orchestrating calls to a
// language-model engine inside nested, scoped units of work ("phases"). For
// each call it decides which prior history is visible, whether the output is
// written back to the durable log, and whether progress is surfaced to an
// observer.
//
// The three building blocks:
//
//   - Spec: an immutable descriptor of one pending call, built by
//     Agent.Call and composed with pure modifiers, executed only when forced
//     with Run.
//   - Phase: a scoped unit of work with its own conversation scratchpad,
//     entered with the Phase function.
//   - Runner: binds a durable log and an event handler for one top-level
//     invocation of a Flow.
//
//	answer, err := flow.Phase(ctx, "Research",
//		func(ctx context.Context, ps *flow.PhaseSession) (string, error) {
//			draft, err := researcher.Call(topic).Stream().Run(ctx)
//			if err != nil {
//				return "", err
//			}
//			final, err := editor.Call(draft.Text()).Run(ctx)
//			if err != nil {
//				return "", err
//			}
//			return final.Text(), nil
//		}, flow.WithPersist())
package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"time"

	"github.com/tailored-agentic-units/flow/core/protocol"
)

// Spec is an immutable, declarative record of one pending call. Modifiers
// are pure: each returns a new Spec, leaving the receiver untouched, so
// specs can be composed and passed around freely before being forced.
// Modifier order does not matter, except that MaxTurns and Param overwrite
// on key collision (last write wins).
//
// Forcing a Spec with Run executes it. Re-forcing re-executes the call;
// treat a forced Spec as spent unless re-execution is intended.
type Spec struct {
	agent     Agent
	input     string
	streaming bool
	isolated  bool
	silent    bool
	maxTurns  int
	params    map[string]any
}

// Stream enables streaming mode: the call emits an ordered sequence of
// StreamDelta events before resolving to its final value.
func (s Spec) Stream() Spec {
	s.streaming = true
	return s
}

// Silent suppresses display only: no Handler events and no bridge
// forwarding for this call. Data is unaffected: an active scratchpad or
// session still receives the call's items.
func (s Spec) Silent() Spec {
	s.silent = true
	return s
}

// Isolated opts the call out of all history: no read from any scope or
// session, no write to any log. Isolated always wins over an active phase.
func (s Spec) Isolated() Spec {
	s.isolated = true
	return s
}

// MaxTurns limits the engine's internal turn budget for this call.
// Setting it again overwrites the previous value.
func (s Spec) MaxTurns(n int) Spec {
	s.maxTurns = n
	return s
}

// Param sets an engine passthrough parameter. Setting the same key again
// overwrites the previous value. The parameter map is copied, so derived
// specs never share state.
func (s Spec) Param(key string, value any) Spec {
	params := make(map[string]any, len(s.params)+1)
	maps.Copy(params, s.params)
	params[key] = value
	s.params = params
	return s
}

// Result is the resolved value of a forced Spec.
type Result struct {
	agent Agent
	text  string
	items []protocol.Item
}

// Text returns the call's final output text. For agents with an output
// schema this is the raw JSON document.
func (r *Result) Text() string {
	return r.text
}

// Items returns a copy of the new conversation items the call produced.
func (r *Result) Items() []protocol.Item {
	return protocol.CloneItems(r.items)
}

// Decode unmarshals a structured result into v. The target agent must
// declare an output schema.
func (r *Result) Decode(v any) error {
	if len(r.agent.OutputSchema) == 0 {
		return fmt.Errorf("%w: %s", ErrNoSchema, r.agent.Name)
	}
	if err := json.Unmarshal([]byte(r.text), v); err != nil {
		return fmt.Errorf("failed to decode structured output: %w", err)
	}
	return nil
}

// resolution is the outcome of the per-call priority algorithm: the full
// input visible to the engine and the write target for the call's new items
// (nil for no write).
type resolution struct {
	input  []protocol.Item
	target Sink
}

// Sink is a write target for a call's new conversation items. Both the
// durable session and a phase scratchpad satisfy it.
type Sink interface {
	AddItems(ctx context.Context, items []protocol.Item) error
}

// resolve applies the strict source-of-history / write-target priority:
// isolated, then active scratchpad, then cached read-only snapshot, then
// durable session, then nothing. It consults the scope bound in ctx on
// every call, never cached across calls, so a call issued after an inner
// phase closes sees the outer phase's bindings again.
func (s Spec) resolve(ctx context.Context, sc scope) resolution {
	userItem := protocol.NewItem(protocol.RoleUser, s.input)

	if s.isolated {
		return resolution{input: []protocol.Item{userItem}}
	}

	if sc.phase != nil {
		return resolution{
			input:  append(sc.phase.History(), userItem),
			target: sc.phase,
		}
	}

	if sc.inPhase {
		// Read-only phase: snapshot plus the new input, no write target.
		return resolution{input: append(protocol.CloneItems(sc.cached), userItem)}
	}

	if sc.session != nil {
		return resolution{
			input:  append(sessionHistory(ctx, sc), userItem),
			target: sc.session,
		}
	}

	return resolution{input: []protocol.Item{userItem}}
}

func (s Spec) validate() error {
	if s.agent.Name == "" {
		return ErrNoAgent
	}
	if s.maxTurns < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxTurns, s.maxTurns)
	}
	return nil
}

// Run forces the spec: resolves visible history and write target from the
// execution context, executes the call against the bound engine, writes the
// new turn to the resolved target, and surfaces events to the bound handler
// and bridge unless the spec is silent. Configuration problems fail fast
// before any engine call; engine failures propagate to the caller.
func (s Spec) Run(ctx context.Context) (*Result, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}

	sc := scopeFrom(ctx)
	if sc.engine == nil {
		return nil, ErrNoEngine
	}

	res := s.resolve(ctx, sc)
	req := Request{
		Agent:    s.agent,
		Input:    res.input,
		MaxTurns: s.maxTurns,
		Params:   s.params,
	}

	var resp *Response
	var err error
	if s.streaming {
		var emitErr error
		resp, err = sc.engine.RunStream(ctx, req, func(ctx context.Context, d Delta) error {
			emitErr = s.surfaceDelta(ctx, sc, d)
			return emitErr
		})
		// A handler rejection aborts the call through the emit callback;
		// report it as what it is, not as an engine failure.
		if emitErr != nil {
			return nil, fmt.Errorf("handler rejected delta: %w", emitErr)
		}
	} else {
		resp, err = sc.engine.Run(ctx, req)
	}
	if err != nil {
		return nil, fmt.Errorf("engine call failed: %w", err)
	}

	newItems := resp.Items
	if len(newItems) == 0 && resp.Text != "" {
		newItems = []protocol.Item{protocol.NewItem(protocol.RoleAssistant, resp.Text)}
	}

	if res.target != nil {
		turn := append([]protocol.Item{protocol.NewItem(protocol.RoleUser, s.input)}, newItems...)
		if err := res.target.AddItems(ctx, turn); err != nil {
			return nil, fmt.Errorf("failed to record call items: %w", err)
		}
	}

	if !s.streaming && !s.silent {
		if sc.handler != nil {
			ev := AgentResult{Agent: s.agent.Name, Content: resp.Text, At: time.Now()}
			if err := sc.handler(ctx, ev); err != nil {
				return nil, fmt.Errorf("handler rejected result: %w", err)
			}
		}
		s.surfaceResult(ctx, sc, resp.Text)
	}

	return &Result{agent: s.agent, text: resp.Text, items: newItems}, nil
}

// surfaceDelta forwards one streaming chunk to the handler and the bridge.
// Handler errors abort the call; bridge errors degrade display only and are
// logged and swallowed.
func (s Spec) surfaceDelta(ctx context.Context, sc scope, d Delta) error {
	if s.silent {
		return nil
	}
	if sc.handler != nil {
		ev := StreamDelta{Agent: d.Agent, Delta: d.Text, At: time.Now()}
		if err := sc.handler(ctx, ev); err != nil {
			return err
		}
	}
	if sc.boundary != nil {
		if err := sc.boundary.ForwardDelta(ctx, d); err != nil {
			warnBoundary(ctx, sc, "flow.Spec", err)
		}
	}
	return nil
}

func (s Spec) surfaceResult(ctx context.Context, sc scope, content string) {
	if sc.boundary == nil {
		return
	}
	if err := sc.boundary.ForwardResult(ctx, s.agent.Name, content); err != nil {
		warnBoundary(ctx, sc, "flow.Spec", err)
	}
}
