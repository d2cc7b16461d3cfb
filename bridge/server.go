package bridge

import (
	"net/http"

	"github.com/gorilla/websocket"

	flow "github.com/tailored-agentic-units/flow"
	"github.com/tailored-agentic-units/flow/observability"
)

// ChatRequest is one inbound websocket frame. Each frame drives one
// bridged run against the server's runner.
type ChatRequest struct {
	Message string `json:"message"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server exposes a Runner over a websocket chat protocol. Each inbound
// frame is run through Stream, every thread event is written back as one
// JSON frame, and a final "done" frame closes the turn. The connection
// stays open across turns so one client can hold a conversation against
// the runner's durable log.
type Server[T any] struct {
	runner   *flow.Runner[T]
	observer observability.Observer
}

// ServerOption configures a Server.
type ServerOption[T any] func(*Server[T])

// WithServerObserver routes server diagnostics to obs.
func WithServerObserver[T any](obs observability.Observer) ServerOption[T] {
	return func(s *Server[T]) { s.observer = obs }
}

// NewServer returns a websocket adapter over r.
func NewServer[T any](r *flow.Runner[T], opts ...ServerOption[T]) *Server[T] {
	s := &Server[T]{runner: r}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server[T]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		observability.Emit(r.Context(), s.observer, EventClientGone, observability.LevelWarning, "bridge.server",
			map[string]any{"error": err.Error()})
		return
	}
	defer ws.Close()

	ctx := r.Context()
	for {
		var req ChatRequest
		if err := ws.ReadJSON(&req); err != nil {
			observability.Emit(ctx, s.observer, EventClientGone, observability.LevelVerbose, "bridge.server",
				map[string]any{"error": err.Error()})
			return
		}

		// Stream already surfaces flow failures to the client as a
		// terminal error event, so a non-nil error here only matters
		// when the write side is gone.
		_, err := Stream(ctx, s.runner, req.Message, func(ev ThreadEvent) error {
			return ws.WriteJSON(ev)
		}, WithObserver(s.observer))
		if err != nil && ctx.Err() != nil {
			return
		}

		if err := ws.WriteJSON(ThreadEvent{Type: ThreadDone}); err != nil {
			return
		}
	}
}
