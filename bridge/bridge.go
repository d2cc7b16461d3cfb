// Package bridge converts a flow run into an ordered stream of thread
// events suitable for external consumers such as websocket clients. It
// binds a workflow boundary into the run's context so that phase entry
// and exit, streaming deltas, and call results surface as discrete
// events, and it owns the terminal error contract: an unhandled flow
// error becomes a final error event that is also appended to the
// durable log before the error propagates.
package bridge

import (
	"context"
	"fmt"

	flow "github.com/tailored-agentic-units/flow"
	"github.com/tailored-agentic-units/flow/core/protocol"
	"github.com/tailored-agentic-units/flow/observability"
	"github.com/tailored-agentic-units/flow/session"
)

const defaultQueueSize = 64

// Sink consumes thread events in order. A non-nil return aborts the
// bridged run and propagates to the Stream caller.
type Sink func(ev ThreadEvent) error

type streamConfig struct {
	observer  observability.Observer
	queueSize int
}

// StreamOption configures one Stream invocation.
type StreamOption func(*streamConfig)

// WithObserver routes bridge diagnostics to obs.
func WithObserver(obs observability.Observer) StreamOption {
	return func(c *streamConfig) { c.observer = obs }
}

// WithQueueSize sets the event queue capacity.
func WithQueueSize(n int) StreamOption {
	return func(c *streamConfig) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

// boundary implements flow.Boundary by enqueueing thread events for the
// Stream loop to hand to the sink. Pushes block when the queue is full,
// applying backpressure to the producing flow.
type boundary struct {
	queue chan ThreadEvent
}

func (b *boundary) OpenSegment(ctx context.Context, label string) error {
	return b.push(ctx, ThreadEvent{Type: ThreadSegmentOpened, Label: label})
}

func (b *boundary) CloseSegment(ctx context.Context, label string) error {
	return b.push(ctx, ThreadEvent{Type: ThreadSegmentClosed, Label: label})
}

func (b *boundary) ForwardDelta(ctx context.Context, d flow.Delta) error {
	return b.push(ctx, ThreadEvent{Type: ThreadDelta, Agent: d.Agent, Text: d.Text})
}

func (b *boundary) ForwardResult(ctx context.Context, agent, content string) error {
	return b.push(ctx, ThreadEvent{Type: ThreadMessage, Agent: agent, Text: content})
}

func (b *boundary) push(ctx context.Context, ev ThreadEvent) error {
	select {
	case b.queue <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stream executes one run of r with the user message bound to a fresh
// boundary and forwards every thread event to sink in order. Events that
// arrive while the flow is still running are delivered as they come; when
// the flow finishes, any queued remainder is drained to the sink before
// the outcome is reported.
//
// If the flow fails, Stream synthesizes a terminal error event, appends a
// matching assistant item to the runner's durable log, hands the event to
// the sink, and returns the original error. If ctx is cancelled, Stream
// cancels the flow, waits for it to settle so no work is orphaned, and
// returns ctx.Err().
func Stream[T any](ctx context.Context, r *flow.Runner[T], userMessage string, sink Sink, opts ...StreamOption) (T, error) {
	var zero T

	cfg := streamConfig{queueSize: defaultQueueSize}
	for _, opt := range opts {
		opt(&cfg)
	}

	b := &boundary{queue: make(chan ThreadEvent, cfg.queueSize)}
	flowCtx, cancel := context.WithCancel(flow.WithBoundary(ctx, b))
	defer cancel()

	observability.Emit(ctx, cfg.observer, EventStreamStart, observability.LevelVerbose, "bridge",
		map[string]any{"queue_size": cfg.queueSize})

	var (
		result  T
		flowErr error
		done    = make(chan struct{})
	)
	go func() {
		defer close(done)
		result, flowErr = r.Run(flowCtx, userMessage)
	}()

loop:
	for {
		select {
		case ev := <-b.queue:
			if err := sink(ev); err != nil {
				cancel()
				<-done
				return zero, err
			}
		case <-done:
			break loop
		case <-ctx.Done():
			cancel()
			<-done
			return zero, ctx.Err()
		}
	}

	// The flow has returned, so no producer remains. Drain whatever it
	// enqueued before finishing, then report the outcome.
	for {
		select {
		case ev := <-b.queue:
			if err := sink(ev); err != nil {
				return zero, err
			}
		default:
			if flowErr != nil {
				return zero, surfaceError(ctx, cfg.observer, resolveSession(ctx, r), sink, flowErr)
			}
			observability.Emit(ctx, cfg.observer, EventStreamComplete, observability.LevelVerbose, "bridge", nil)
			return result, nil
		}
	}
}

// resolveSession finds the durable log the failed run was writing to: the
// runner's own binding when present, otherwise one bound on the caller's
// context via flow.WithSession.
func resolveSession[T any](ctx context.Context, r *flow.Runner[T]) session.Session {
	if sess := r.Session(); sess != nil {
		return sess
	}
	return flow.CurrentSession(ctx)
}

// surfaceError converts an unhandled flow error into the terminal event
// contract: the error text is appended to the durable log as an assistant
// item so the failure survives in history, the sink receives one final
// error event, and the original error is returned unchanged.
func surfaceError(ctx context.Context, obs observability.Observer, sess session.Session, sink Sink, flowErr error) error {
	text := fmt.Sprintf("Error: %T: %v", flowErr, flowErr)

	observability.Emit(ctx, obs, EventFlowError, observability.LevelError, "bridge",
		map[string]any{"error": flowErr.Error()})

	if sess != nil {
		item := protocol.NewItem(protocol.RoleAssistant, text)
		if err := sess.AddItems(ctx, []protocol.Item{item}); err != nil {
			observability.Emit(ctx, obs, EventPersistError, observability.LevelWarning, "bridge",
				map[string]any{"error": err.Error()})
		}
	}

	if err := sink(ThreadEvent{Type: ThreadError, Text: text}); err != nil {
		observability.Emit(ctx, obs, EventClientGone, observability.LevelWarning, "bridge",
			map[string]any{"error": err.Error()})
	}
	return flowErr
}
