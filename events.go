package flow

import (
	"context"
	"time"
)

// EventKind discriminates the Handler event union.
type EventKind string

const (
	KindPhaseStarted EventKind = "phase.started"
	KindPhaseEnded   EventKind = "phase.ended"
	KindStreamDelta  EventKind = "stream.delta"
	KindAgentResult  EventKind = "agent.result"
)

// Event is one member of the tagged union delivered to a Handler:
// PhaseStarted, PhaseEnded, StreamDelta, or AgentResult.
type Event interface {
	Kind() EventKind
}

// PhaseStarted is emitted when execution enters a phase.
type PhaseStarted struct {
	Label string
	At    time.Time
}

func (PhaseStarted) Kind() EventKind { return KindPhaseStarted }

// PhaseEnded is emitted when execution leaves a phase, on every exit path.
type PhaseEnded struct {
	Label   string
	Elapsed time.Duration
	At      time.Time
}

func (PhaseEnded) Kind() EventKind { return KindPhaseEnded }

// StreamDelta carries one incremental chunk of a streaming call.
type StreamDelta struct {
	Agent string
	Delta string
	At    time.Time
}

func (StreamDelta) Kind() EventKind { return KindStreamDelta }

// AgentResult is emitted when a non-streaming call completes. Streaming
// calls emit StreamDelta events instead; their final value is returned to
// the caller, not re-announced.
type AgentResult struct {
	Agent   string
	Content string
	At      time.Time
}

func (AgentResult) Kind() EventKind { return KindAgentResult }

// Handler receives flow lifecycle events. Handlers may block; they run on
// the calling goroutine at the point the event is produced, so events from
// one sequential call chain arrive in production order. An error returned
// while a call is executing aborts that call; errors returned during scope
// exit are logged and swallowed so they never mask the scope's result.
type Handler func(ctx context.Context, event Event) error
