package flow

import "context"

// Boundary demarcates phase display segments on a live-protocol bridge and
// receives displayable call events. Phase entry opens a segment, phase exit
// closes it, so two adjacent phases never merge visually into one reasoning
// stream. All Boundary failures degrade display only: callers log and
// swallow them, never data.
type Boundary interface {
	// OpenSegment starts a new display segment for a phase label.
	OpenSegment(ctx context.Context, label string) error
	// CloseSegment ends the segment opened for the label.
	CloseSegment(ctx context.Context, label string) error
	// ForwardDelta delivers one streaming chunk for live display.
	ForwardDelta(ctx context.Context, d Delta) error
	// ForwardResult delivers a completed non-streaming call result.
	ForwardResult(ctx context.Context, agent, content string) error
}
