package flow

import "github.com/tailored-agentic-units/flow/observability"

// Flow event types emitted to the ambient observability observer. These are
// distinct from Handler events: Handler events drive user-facing display,
// observability events record engine internals, in particular every
// logged-and-swallowed failure.
const (
	EventRunStart      observability.EventType = "flow.run.start"
	EventRunComplete   observability.EventType = "flow.run.complete"
	EventPhaseStart    observability.EventType = "phase.start"
	EventPhaseEnd      observability.EventType = "phase.end"
	EventHistoryError  observability.EventType = "flow.history.error"
	EventPersistError  observability.EventType = "phase.persist.error"
	EventBoundaryError observability.EventType = "flow.boundary.error"
	EventHandlerError  observability.EventType = "flow.handler.error"
)
