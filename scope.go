package flow

import (
	"context"

	"github.com/tailored-agentic-units/flow/core/protocol"
	"github.com/tailored-agentic-units/flow/observability"
	"github.com/tailored-agentic-units/flow/session"
)

// scope is one node of the execution-context stack. It is an immutable value
// carried in context.Context under a private key: entering a nested scope
// copies the current scope, modifies the copy, and binds it into a derived
// context. The parent scope is never touched, so every slot is restored to
// its exact prior value on every exit path (including panics) simply by
// the child context going out of use.
//
// Invariant: at most one of phase and cached is set. They are the two
// mutually exclusive modes of an active Phase (read-write scratchpad vs.
// read-only snapshot).
type scope struct {
	engine   Engine
	handler  Handler
	session  session.Session
	observer observability.Observer
	boundary Boundary
	phase    *PhaseSession
	cached   []protocol.Item
	inPhase  bool
}

type scopeKey struct{}

func scopeFrom(ctx context.Context) scope {
	if s, ok := ctx.Value(scopeKey{}).(scope); ok {
		return s
	}
	return scope{}
}

func (s scope) bind(ctx context.Context) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// WithEngine binds the model-engine collaborator for calls made under ctx.
// Runner options cover the common case; this is for direct Spec forcing.
func WithEngine(ctx context.Context, engine Engine) context.Context {
	s := scopeFrom(ctx)
	s.engine = engine
	return s.bind(ctx)
}

// WithHandler binds the event handler for calls made under ctx.
func WithHandler(ctx context.Context, handler Handler) context.Context {
	s := scopeFrom(ctx)
	s.handler = handler
	return s.bind(ctx)
}

// WithSession binds the durable log for calls made under ctx.
func WithSession(ctx context.Context, sess session.Session) context.Context {
	s := scopeFrom(ctx)
	s.session = sess
	return s.bind(ctx)
}

// WithObserver binds the ambient observability observer for ctx.
func WithObserver(ctx context.Context, obs observability.Observer) context.Context {
	s := scopeFrom(ctx)
	s.observer = obs
	return s.bind(ctx)
}

// WithBoundary binds a live-protocol boundary (see Boundary). Used by the
// bridge package; flow code itself never sets one.
func WithBoundary(ctx context.Context, b Boundary) context.Context {
	s := scopeFrom(ctx)
	s.boundary = b
	return s.bind(ctx)
}

// CurrentSession returns the durable log bound in ctx, or nil.
func CurrentSession(ctx context.Context) session.Session {
	return scopeFrom(ctx).session
}

// CurrentPhaseSession returns the active read-write phase scratchpad, or nil
// when no phase is active or the enclosing phase is read-only.
func CurrentPhaseSession(ctx context.Context) *PhaseSession {
	return scopeFrom(ctx).phase
}

// sessionHistory reads the durable log bound in ctx. A read failure fails
// open to empty history with a warning event; a call with degraded context
// beats no call at all.
func sessionHistory(ctx context.Context, sc scope) []protocol.Item {
	if sc.session == nil {
		return nil
	}
	items, err := sc.session.GetItems(ctx, 0)
	if err != nil {
		observability.Emit(ctx, sc.observer, EventHistoryError, observability.LevelWarning,
			"flow.sessionHistory", map[string]any{
				"session_id": sc.session.ID(),
				"error":      err.Error(),
			})
		return nil
	}
	return items
}
