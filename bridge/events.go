package bridge

import "github.com/tailored-agentic-units/flow/observability"

// ThreadEventType identifies one kind of externally yielded thread event.
type ThreadEventType string

const (
	// ThreadSegmentOpened marks the start of a phase's display segment.
	ThreadSegmentOpened ThreadEventType = "segment.opened"
	// ThreadSegmentClosed marks the end of a phase's display segment.
	ThreadSegmentClosed ThreadEventType = "segment.closed"
	// ThreadDelta carries one streaming chunk.
	ThreadDelta ThreadEventType = "delta"
	// ThreadMessage carries a completed non-streaming call result.
	ThreadMessage ThreadEventType = "message"
	// ThreadError is the synthetic terminal event for an unhandled flow error.
	ThreadError ThreadEventType = "error"
	// ThreadDone frames the end of one bridged run (server adapter only).
	ThreadDone ThreadEventType = "done"
)

// ThreadEvent is one event in the ordered sequence a bridged run yields to
// its external consumer. JSON tags define the wire framing used by the
// websocket adapter.
type ThreadEvent struct {
	Type  ThreadEventType `json:"type"`
	Label string          `json:"label,omitempty"`
	Agent string          `json:"agent,omitempty"`
	Text  string          `json:"text,omitempty"`
}

// Bridge event types emitted to the ambient observability observer.
const (
	EventStreamStart    observability.EventType = "bridge.stream.start"
	EventStreamComplete observability.EventType = "bridge.stream.complete"
	EventFlowError      observability.EventType = "bridge.flow.error"
	EventPersistError   observability.EventType = "bridge.persist.error"
	EventClientGone     observability.EventType = "bridge.client.gone"
)
