package bridge_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	flow "github.com/tailored-agentic-units/flow"
	"github.com/tailored-agentic-units/flow/bridge"
	"github.com/tailored-agentic-units/flow/flowtest"
	"github.com/tailored-agentic-units/flow/session"
)

// readTurn reads frames until the done marker and returns the turn's events.
func readTurn(t *testing.T, ws *websocket.Conn) []bridge.ThreadEvent {
	t.Helper()

	var events []bridge.ThreadEvent
	for {
		var ev bridge.ThreadEvent
		require.NoError(t, ws.ReadJSON(&ev))
		if ev.Type == bridge.ThreadDone {
			return events
		}
		events = append(events, ev)
	}
}

func TestServerStreamsTurnsOverWebsocket(t *testing.T) {
	engine := &flowtest.Engine{}
	runner := flow.NewRunner(func(ctx context.Context, msg string) (string, error) {
		res, err := writer.Call(msg).Run(ctx)
		if err != nil {
			return "", err
		}
		return res.Text(), nil
	}, flow.WithRunnerEngine(engine), flow.WithRunnerSession(session.NewMemorySession()))

	srv := httptest.NewServer(bridge.NewServer(runner))
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, ws.WriteJSON(bridge.ChatRequest{Message: "hello"}))
	events := readTurn(t, ws)
	require.Len(t, events, 1)
	assert.Equal(t, bridge.ThreadMessage, events[0].Type)
	assert.Equal(t, "reply to: hello", events[0].Text)

	// The connection survives across turns; the durable log grows.
	require.NoError(t, ws.WriteJSON(bridge.ChatRequest{Message: "again"}))
	events = readTurn(t, ws)
	require.Len(t, events, 1)
	assert.Equal(t, "reply to: again", events[0].Text)

	req, ok := engine.LastRequest()
	require.True(t, ok)
	assert.Len(t, req.Input, 3) // first turn's two items plus the new input
}
