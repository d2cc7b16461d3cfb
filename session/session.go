// Package session defines the durable conversation log boundary. A Session
// is externally owned, ordered, and append-only: the flow engine never
// creates or destroys its storage, it only reads and appends through the
// handle. Two backends ship with the package, an in-memory session and a
// JSONL file session, selected via config.
package session

import (
	"context"

	"github.com/tailored-agentic-units/flow/core/protocol"
)

// Session holds an ordered, append-only sequence of conversation items.
// Implementations must be safe for concurrent use.
type Session interface {
	// ID returns the unique session identifier.
	ID() string
	// GetItems returns the conversation history in append order. A limit
	// greater than zero returns only the last limit items. The returned
	// slice is a defensive copy.
	GetItems(ctx context.Context, limit int) ([]protocol.Item, error)
	// AddItems appends items to the conversation history.
	AddItems(ctx context.Context, items []protocol.Item) error
}

func tail(items []protocol.Item, limit int) []protocol.Item {
	if limit > 0 && limit < len(items) {
		return items[len(items)-limit:]
	}
	return items
}
