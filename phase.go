package flow

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tailored-agentic-units/flow/core/protocol"
	"github.com/tailored-agentic-units/flow/observability"
)

// PhaseSession is the ephemeral conversation scratchpad owned by one phase.
// It layers a mutable local item list over a read-only snapshot inherited
// from the durable log at phase entry: calls inside the phase see the full
// history, but write only locally. The scratchpad is discarded at phase
// exit, after an optional copy-back of its final turn.
//
// Concurrent sibling calls inside one phase may all append; the lock keeps
// that memory-safe, but their relative order is determined by scheduling,
// not declaration order. That non-guarantee is part of the contract.
type PhaseSession struct {
	id        string
	label     string
	inherited []protocol.Item

	mu    sync.Mutex
	items []protocol.Item
	data  map[string]any
}

func newPhaseSession(label string, inherited []protocol.Item) *PhaseSession {
	return &PhaseSession{
		id:        "phase_" + uuid.Must(uuid.NewV7()).String(),
		label:     label,
		inherited: inherited,
	}
}

// ID returns the scratchpad's unique identifier.
func (p *PhaseSession) ID() string { return p.id }

// Label returns the observer-facing phase label.
func (p *PhaseSession) Label() string { return p.label }

// History returns the inherited snapshot followed by local items, the
// effective history visible to calls inside the phase. The returned slice is a copy.
func (p *PhaseSession) History() []protocol.Item {
	p.mu.Lock()
	defer p.mu.Unlock()

	full := make([]protocol.Item, 0, len(p.inherited)+len(p.items))
	full = append(full, p.inherited...)
	full = append(full, p.items...)
	return full
}

// LocalItems returns a copy of the items written during this phase.
// The inherited snapshot is not included.
func (p *PhaseSession) LocalItems() []protocol.Item {
	p.mu.Lock()
	defer p.mu.Unlock()
	return protocol.CloneItems(p.items)
}

// AddItems appends to the phase-local item list. The inherited snapshot is
// never modified. Implements Sink.
func (p *PhaseSession) AddItems(_ context.Context, items []protocol.Item) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = append(p.items, items...)
	return nil
}

// PopItem removes and returns the most recent local item.
func (p *PhaseSession) PopItem() (protocol.Item, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.items) == 0 {
		return protocol.Item{}, false
	}
	item := p.items[len(p.items)-1]
	p.items = p.items[:len(p.items)-1]
	return item, true
}

// ClearLocal discards all local items, keeping the inherited snapshot.
func (p *PhaseSession) ClearLocal() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = nil
}

// Set stores a caller-defined auxiliary value on the scratchpad.
func (p *PhaseSession) Set(key string, value any) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.data == nil {
		p.data = make(map[string]any)
	}
	p.data[key] = value
}

// Value retrieves a caller-defined auxiliary value.
func (p *PhaseSession) Value(key string) (any, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	v, ok := p.data[key]
	return v, ok
}

type phaseConfig struct {
	readOnly bool
	persist  bool
}

// PhaseOption configures a Phase.
type PhaseOption func(*phaseConfig)

// WithReadOnly opens the phase without a scratchpad: calls see a snapshot of
// the durable log taken at entry, fixed for the phase's lifetime, and have
// no write target at all. The body's PhaseSession argument is nil.
func WithReadOnly() PhaseOption {
	return func(cfg *phaseConfig) { cfg.readOnly = true }
}

// WithPersist copies the scratchpad's final assistant turn back to the
// durable log at phase exit. If the assistant item is immediately preceded
// by a reasoning marker, both are appended together as one logical turn.
func WithPersist() PhaseOption {
	return func(cfg *phaseConfig) { cfg.persist = true }
}

// Phase executes fn inside a new scoped unit of work. On entry it snapshots
// the durable log's visible history, creates a scratchpad seeded with the
// snapshot (or, with WithReadOnly, caches the snapshot without a
// scratchpad), binds it into a derived execution context, and announces
// PhaseStarted to the handler. Phases nest arbitrarily: each inner phase
// layers its own scratchpad over the outer one and restores the outer
// bindings exactly when it returns.
//
// The exit path runs on success, error, and panic: optional copy-back of
// the final turn (failures logged and swallowed, never masking fn's
// result), best-effort bridge segment close, and a PhaseEnded event with
// the elapsed duration.
func Phase[T any](ctx context.Context, label string, fn func(ctx context.Context, ps *PhaseSession) (T, error), opts ...PhaseOption) (result T, err error) {
	var cfg phaseConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	start := time.Now()
	sc := scopeFrom(ctx)
	snapshot := sessionHistory(ctx, sc)

	child := sc
	child.inPhase = true
	var ps *PhaseSession
	if cfg.readOnly {
		child.phase = nil
		child.cached = snapshot
	} else {
		ps = newPhaseSession(label, snapshot)
		child.phase = ps
		child.cached = nil
	}

	observability.Emit(ctx, sc.observer, EventPhaseStart, observability.LevelVerbose,
		"flow.Phase", map[string]any{"label": label, "read_only": cfg.readOnly, "persist": cfg.persist})

	if sc.handler != nil {
		if herr := sc.handler(ctx, PhaseStarted{Label: label, At: start}); herr != nil {
			err = herr
			return
		}
	}

	if sc.boundary != nil {
		if berr := sc.boundary.OpenSegment(ctx, label); berr != nil {
			warnBoundary(ctx, sc, "flow.Phase", berr)
		}
	}

	defer func() {
		if cfg.persist && ps != nil {
			persistFinalTurn(ctx, sc, ps)
		}

		if sc.boundary != nil {
			if berr := sc.boundary.CloseSegment(ctx, label); berr != nil {
				warnBoundary(ctx, sc, "flow.Phase", berr)
			}
		}

		elapsed := time.Since(start)
		if sc.handler != nil {
			if herr := sc.handler(ctx, PhaseEnded{Label: label, Elapsed: elapsed, At: time.Now()}); herr != nil {
				observability.Emit(ctx, sc.observer, EventHandlerError, observability.LevelWarning,
					"flow.Phase", map[string]any{"label": label, "error": herr.Error()})
			}
		}
		observability.Emit(ctx, sc.observer, EventPhaseEnd, observability.LevelVerbose,
			"flow.Phase", map[string]any{"label": label, "elapsed_ms": elapsed.Milliseconds()})
	}()

	return fn(child.bind(ctx), ps)
}

// persistFinalTurn copies the scratchpad's last assistant output to the
// durable log: scanning local items from the end for the last assistant
// message with content, including an immediately preceding reasoning marker
// so the pair never splits. No assistant item means no-op. Failures are
// logged and swallowed: copy-back must never convert a successful phase
// into a failed one.
func persistFinalTurn(ctx context.Context, sc scope, ps *PhaseSession) {
	if sc.session == nil {
		return
	}

	items := ps.LocalItems()
	for i := len(items) - 1; i >= 0; i-- {
		if !items[i].IsAssistantOutput() {
			continue
		}

		turn := []protocol.Item{items[i]}
		if i > 0 && items[i-1].IsReasoning() {
			turn = []protocol.Item{items[i-1], items[i]}
		}

		if err := sc.session.AddItems(ctx, turn); err != nil {
			observability.Emit(ctx, sc.observer, EventPersistError, observability.LevelWarning,
				"flow.Phase", map[string]any{
					"label":      ps.Label(),
					"session_id": sc.session.ID(),
					"error":      err.Error(),
				})
		}
		return
	}
}

func warnBoundary(ctx context.Context, sc scope, source string, err error) {
	observability.Emit(ctx, sc.observer, EventBoundaryError, observability.LevelWarning,
		source, map[string]any{"error": err.Error()})
}
