package flow_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/flow"
	"github.com/tailored-agentic-units/flow/core/protocol"
	"github.com/tailored-agentic-units/flow/flowtest"
	"github.com/tailored-agentic-units/flow/observability"
)

func TestPhase_DefaultDoesNotLeakToSession(t *testing.T) {
	sess := seedSession(t,
		protocol.NewItem(protocol.RoleUser, "q"),
		protocol.NewItem(protocol.RoleAssistant, "a"),
	)
	engine := &flowtest.Engine{}
	ctx := flow.WithSession(flow.WithEngine(context.Background(), engine), sess)

	_, err := flow.Phase(ctx, "Scratch", func(ctx context.Context, ps *flow.PhaseSession) (string, error) {
		for i := 0; i < 3; i++ {
			if _, err := testAgent.Call("think").Run(ctx); err != nil {
				return "", err
			}
		}
		return "done", nil
	})
	require.NoError(t, err)

	items, err := sess.GetItems(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, items, 2, "default phase must not change the durable log's length")
}

func TestPhase_ScratchpadInheritsHistory(t *testing.T) {
	sess := seedSession(t,
		protocol.NewItem(protocol.RoleUser, "q"),
		protocol.NewItem(protocol.RoleAssistant, "a"),
	)
	engine := &flowtest.Engine{}
	ctx := flow.WithSession(flow.WithEngine(context.Background(), engine), sess)

	_, err := flow.Phase(ctx, "Scratch", func(ctx context.Context, ps *flow.PhaseSession) (int, error) {
		require.NotNil(t, ps)
		assert.Len(t, ps.History(), 2, "scratchpad inherits the durable snapshot")

		if _, err := testAgent.Call("next").Run(ctx); err != nil {
			return 0, err
		}
		assert.Len(t, ps.History(), 4, "local writes layer over the snapshot")
		assert.Len(t, ps.LocalItems(), 2)
		return 0, nil
	})
	require.NoError(t, err)
}

func TestPhase_PersistCopiesExactlyOneTurn(t *testing.T) {
	sess := seedSession(t,
		protocol.NewItem(protocol.RoleUser, "q"),
		protocol.NewItem(protocol.RoleAssistant, "a"),
	)
	engine := &flowtest.Engine{}
	ctx := flow.WithSession(flow.WithEngine(context.Background(), engine), sess)

	_, err := flow.Phase(ctx, "Research", func(ctx context.Context, ps *flow.PhaseSession) (*flow.Result, error) {
		return testAgent.Call("investigate").Run(ctx)
	}, flow.WithPersist())
	require.NoError(t, err)

	items, err := sess.GetItems(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, items, 3, "persist appends exactly one turn")
	assert.Equal(t, protocol.RoleAssistant, items[2].Role)
}

func TestPhase_PersistKeepsReasoningPairTogether(t *testing.T) {
	sess := seedSession(t)
	engine := &flowtest.Engine{WithReasoning: true}
	ctx := flow.WithSession(flow.WithEngine(context.Background(), engine), sess)

	_, err := flow.Phase(ctx, "Think", func(ctx context.Context, ps *flow.PhaseSession) (*flow.Result, error) {
		return testAgent.Call("deep question").Run(ctx)
	}, flow.WithPersist())
	require.NoError(t, err)

	items, err := sess.GetItems(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, items, 2, "reasoning marker and assistant item travel together")
	assert.True(t, items[0].IsReasoning())
	assert.True(t, items[1].IsAssistantOutput())
}

func TestPhase_PersistNoAssistantIsNoOp(t *testing.T) {
	sess := seedSession(t)
	engine := &flowtest.Engine{}
	ctx := flow.WithSession(flow.WithEngine(context.Background(), engine), sess)

	_, err := flow.Phase(ctx, "Empty", func(ctx context.Context, ps *flow.PhaseSession) (int, error) {
		return 42, nil // no calls, no assistant output
	}, flow.WithPersist())
	require.NoError(t, err)

	items, err := sess.GetItems(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestPhase_PersistFailureIsSwallowed(t *testing.T) {
	sess := &failingWriteSession{}
	engine := &flowtest.Engine{}
	collector := observability.NewCollector()
	ctx := flow.WithObserver(
		flow.WithSession(flow.WithEngine(context.Background(), engine), sess),
		collector,
	)

	got, err := flow.Phase(ctx, "Fragile", func(ctx context.Context, ps *flow.PhaseSession) (string, error) {
		if _, err := testAgent.Call("work").Run(ctx); err != nil {
			return "", err
		}
		return "the answer", nil
	}, flow.WithPersist())

	require.NoError(t, err, "a copy-back failure must never fail the phase")
	assert.Equal(t, "the answer", got)
	assert.NotEmpty(t, collector.ByType(flow.EventPersistError), "swallowed failures must be observable")
}

func TestPhase_PersistRunsOnErrorExit(t *testing.T) {
	sess := seedSession(t)
	engine := &flowtest.Engine{}
	ctx := flow.WithSession(flow.WithEngine(context.Background(), engine), sess)

	boom := errors.New("body failed")
	_, err := flow.Phase(ctx, "Doomed", func(ctx context.Context, ps *flow.PhaseSession) (int, error) {
		if _, err := testAgent.Call("partial work").Run(ctx); err != nil {
			return 0, err
		}
		return 0, boom
	}, flow.WithPersist())
	require.ErrorIs(t, err, boom)

	items, gerr := sess.GetItems(context.Background(), 0)
	require.NoError(t, gerr)
	assert.Len(t, items, 1, "exit path persists even when the body fails")
}

func TestPhase_ReadOnlySeesSnapshotPlusInput(t *testing.T) {
	sess := seedSession(t,
		protocol.NewItem(protocol.RoleUser, "one"),
		protocol.NewItem(protocol.RoleAssistant, "two"),
		protocol.NewItem(protocol.RoleUser, "three"),
	)
	engine := &flowtest.Engine{}
	ctx := flow.WithSession(flow.WithEngine(context.Background(), engine), sess)

	_, err := flow.Phase(ctx, "Inspect", func(ctx context.Context, ps *flow.PhaseSession) (int, error) {
		assert.Nil(t, ps, "read-only phases have no scratchpad")
		_, err := testAgent.Call("new input").Run(ctx)
		return 0, err
	}, flow.WithReadOnly())
	require.NoError(t, err)

	req, _ := engine.LastRequest()
	assert.Len(t, req.Input, 4, "N snapshot items plus the new input")

	items, err := sess.GetItems(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, items, 3, "read-only phases have no write target")
}

func TestPhase_NestedRestoresOuterScratchpad(t *testing.T) {
	engine := &flowtest.Engine{}
	ctx := flow.WithEngine(context.Background(), engine)

	_, err := flow.Phase(ctx, "Outer", func(ctx context.Context, outer *flow.PhaseSession) (int, error) {
		require.Same(t, outer, flow.CurrentPhaseSession(ctx))

		_, err := flow.Phase(ctx, "Inner", func(ctx context.Context, inner *flow.PhaseSession) (int, error) {
			require.NotSame(t, outer, inner)
			require.Same(t, inner, flow.CurrentPhaseSession(ctx))
			return 0, nil
		})
		require.NoError(t, err)

		// After the inner phase closes, calls resolve against the outer
		// scratchpad again, by identity.
		require.Same(t, outer, flow.CurrentPhaseSession(ctx))

		if _, err := testAgent.Call("back outside").Run(ctx); err != nil {
			return 0, err
		}
		assert.Len(t, outer.LocalItems(), 2, "post-inner calls write to the outer scratchpad")
		return 0, nil
	})
	require.NoError(t, err)
}

func TestPhase_RestorationSurvivesErrorExit(t *testing.T) {
	engine := &flowtest.Engine{}
	ctx := flow.WithEngine(context.Background(), engine)

	boom := errors.New("inner failure")
	_, err := flow.Phase(ctx, "Outer", func(ctx context.Context, outer *flow.PhaseSession) (int, error) {
		_, ierr := flow.Phase(ctx, "Inner", func(ctx context.Context, inner *flow.PhaseSession) (int, error) {
			return 0, boom
		})
		require.ErrorIs(t, ierr, boom)

		require.Same(t, outer, flow.CurrentPhaseSession(ctx),
			"the outer scratchpad must be restored after a failing inner phase")
		return 0, nil
	})
	require.NoError(t, err)
}

func TestPhase_EmitsStartAndEndEvents(t *testing.T) {
	engine := &flowtest.Engine{}
	var kinds []flow.EventKind
	handler := func(_ context.Context, ev flow.Event) error {
		kinds = append(kinds, ev.Kind())
		return nil
	}
	ctx := flow.WithHandler(flow.WithEngine(context.Background(), engine), handler)

	_, err := flow.Phase(ctx, "Visible", func(ctx context.Context, ps *flow.PhaseSession) (int, error) {
		return 0, nil
	})
	require.NoError(t, err)

	require.Len(t, kinds, 2)
	assert.Equal(t, flow.KindPhaseStarted, kinds[0])
	assert.Equal(t, flow.KindPhaseEnded, kinds[1])
}

func TestPhase_EndEventReportsElapsed(t *testing.T) {
	var ended flow.PhaseEnded
	handler := func(_ context.Context, ev flow.Event) error {
		if e, ok := ev.(flow.PhaseEnded); ok {
			ended = e
		}
		return nil
	}
	ctx := flow.WithHandler(context.Background(), handler)

	_, err := flow.Phase(ctx, "Timed", func(ctx context.Context, ps *flow.PhaseSession) (int, error) {
		return 0, nil
	})
	require.NoError(t, err)

	assert.Equal(t, "Timed", ended.Label)
	assert.GreaterOrEqual(t, ended.Elapsed, time.Duration(0))
	assert.False(t, ended.At.IsZero())
}

func TestPhaseSession_ExtensionData(t *testing.T) {
	ctx := context.Background()
	_, err := flow.Phase(ctx, "Data", func(ctx context.Context, ps *flow.PhaseSession) (int, error) {
		_, ok := ps.Value("missing")
		assert.False(t, ok)

		ps.Set("summary", "condensed findings")
		v, ok := ps.Value("summary")
		require.True(t, ok)
		assert.Equal(t, "condensed findings", v)
		return 0, nil
	})
	require.NoError(t, err)
}

func TestPhaseSession_PopAndClear(t *testing.T) {
	_, err := flow.Phase(context.Background(), "Local", func(ctx context.Context, ps *flow.PhaseSession) (int, error) {
		require.NoError(t, ps.AddItems(ctx, []protocol.Item{
			protocol.NewItem(protocol.RoleUser, "one"),
			protocol.NewItem(protocol.RoleAssistant, "two"),
		}))

		item, ok := ps.PopItem()
		require.True(t, ok)
		assert.Equal(t, "two", item.Content)
		assert.Len(t, ps.LocalItems(), 1)

		ps.ClearLocal()
		assert.Empty(t, ps.LocalItems())

		_, ok = ps.PopItem()
		assert.False(t, ok)
		return 0, nil
	})
	require.NoError(t, err)
}

// failingWriteSession accepts reads but fails every append.
type failingWriteSession struct{}

func (*failingWriteSession) ID() string { return "readonly-backend" }

func (*failingWriteSession) GetItems(context.Context, int) ([]protocol.Item, error) {
	return nil, nil
}

func (*failingWriteSession) AddItems(context.Context, []protocol.Item) error {
	return errors.New("disk full")
}
