package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/flow/observability"
)

func TestConfigObserverDefaultResolvesSlog(t *testing.T) {
	cfg := DefaultConfig()
	obs, err := cfg.observer()
	require.NoError(t, err)
	assert.NotNil(t, obs)
}

func TestConfigObserverFansOutToNamedObservers(t *testing.T) {
	collector := observability.NewCollector()
	observability.RegisterObserver("test-collector", collector)

	cfg := DefaultConfig()
	cfg.Observers = []string{"slog", "test-collector"}

	obs, err := cfg.observer()
	require.NoError(t, err)

	observability.Emit(context.Background(), obs, "config.test", observability.LevelInfo, "test", nil)
	assert.Len(t, collector.ByType("config.test"), 1)
}

func TestConfigObserverUnknownName(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Observers = []string{"no-such-observer"}
	_, err := cfg.observer()
	assert.ErrorIs(t, err, observability.ErrUnknownObserver)
}

func TestConfigMergePrecedence(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Merge(&Config{
		Agent:     "critic",
		Observers: []string{"noop"},
	})

	assert.Equal(t, "critic", cfg.Agent)
	assert.Equal(t, []string{"noop"}, cfg.Observers)
	// Untouched sections keep their defaults.
	assert.Equal(t, "memory", cfg.Session.Backend)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Engine.APIKeyEnv)
}
