package flow

import (
	"context"
	"log/slog"
	"time"

	"github.com/tailored-agentic-units/flow/observability"
	"github.com/tailored-agentic-units/flow/session"
)

// Flow is a top-level unit of work: it receives the user message and drives
// agents and phases through the execution context bound in ctx.
type Flow[T any] func(ctx context.Context, userMessage string) (T, error)

type runnerConfig struct {
	session  session.Session
	handler  Handler
	engine   Engine
	observer observability.Observer
}

// RunnerOption configures a Runner.
type RunnerOption func(*runnerConfig)

// WithRunnerSession binds a durable log for the runner's invocations.
func WithRunnerSession(s session.Session) RunnerOption {
	return func(cfg *runnerConfig) { cfg.session = s }
}

// WithRunnerHandler binds an event handler for the runner's invocations.
func WithRunnerHandler(h Handler) RunnerOption {
	return func(cfg *runnerConfig) { cfg.handler = h }
}

// WithRunnerEngine binds the model engine for the runner's invocations.
func WithRunnerEngine(e Engine) RunnerOption {
	return func(cfg *runnerConfig) { cfg.engine = e }
}

// WithRunnerObserver overrides the default slog observer.
func WithRunnerObserver(o observability.Observer) RunnerOption {
	return func(cfg *runnerConfig) { cfg.observer = o }
}

// Runner binds a durable log, an engine, and an event handler into the
// execution context for exactly the duration of one top-level Flow
// invocation. It never writes to the log itself; writes happen through the
// per-call resolution rules and phase copy-back.
type Runner[T any] struct {
	flow Flow[T]
	cfg  runnerConfig
}

// NewRunner creates a Runner for the given flow. By default ambient events
// go to a slog observer; no session, handler, or engine is bound unless an
// option (or the caller's context) supplies one.
func NewRunner[T any](fl Flow[T], opts ...RunnerOption) *Runner[T] {
	cfg := runnerConfig{
		observer: observability.NewSlogObserver(slog.Default()),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Runner[T]{flow: fl, cfg: cfg}
}

// Session returns the durable log bound to the runner, or nil.
func (r *Runner[T]) Session() session.Session {
	return r.cfg.session
}

// Run executes the flow with the runner's bindings layered into ctx. The
// bindings live only in the derived context, so the caller's context is
// restored by construction when Run returns, on every exit path.
func (r *Runner[T]) Run(ctx context.Context, userMessage string) (T, error) {
	sc := scopeFrom(ctx)
	if r.cfg.session != nil {
		sc.session = r.cfg.session
	}
	if r.cfg.handler != nil {
		sc.handler = r.cfg.handler
	}
	if r.cfg.engine != nil {
		sc.engine = r.cfg.engine
	}
	if r.cfg.observer != nil {
		sc.observer = r.cfg.observer
	}

	runCtx := sc.bind(ctx)
	start := time.Now()
	observability.Emit(runCtx, sc.observer, EventRunStart, observability.LevelInfo,
		"flow.Runner", map[string]any{"message_length": len(userMessage)})

	result, err := r.flow(runCtx, userMessage)

	data := map[string]any{"elapsed_ms": time.Since(start).Milliseconds()}
	if err != nil {
		data["error"] = err.Error()
	}
	observability.Emit(runCtx, sc.observer, EventRunComplete, observability.LevelInfo,
		"flow.Runner", data)

	return result, err
}

// Start launches the flow on its own goroutine and returns a Handle for the
// deferred result. This is the adapter for callers that want to issue the
// run now and block for it later; Run is the primary, direct path.
func (r *Runner[T]) Start(ctx context.Context, userMessage string) *Handle[T] {
	h := &Handle[T]{done: make(chan struct{})}
	go func() {
		defer close(h.done)
		h.result, h.err = r.Run(ctx, userMessage)
	}()
	return h
}

// Handle is a deferred execution result created by Runner.Start.
type Handle[T any] struct {
	done   chan struct{}
	result T
	err    error
}

// Wait blocks until the run completes and returns its result.
// Wait may be called any number of times; every call returns the same
// result.
func (h *Handle[T]) Wait() (T, error) {
	<-h.done
	return h.result, h.err
}

// Done returns a channel closed when the run completes. Useful for select
// loops that multiplex a run against other event sources.
func (h *Handle[T]) Done() <-chan struct{} {
	return h.done
}
