package main

import (
	"encoding/json"
	"fmt"
	"os"

	flow "github.com/tailored-agentic-units/flow"
	"github.com/tailored-agentic-units/flow/engine/openai"
	"github.com/tailored-agentic-units/flow/observability"
	"github.com/tailored-agentic-units/flow/session"
)

// Config holds initialization parameters for all subsystems of the CLI.
// Each subsystem section delegates to that subsystem's config-driven
// constructor.
type Config struct {
	Agents map[string]flow.Agent `json:"agents,omitempty"`
	Agent  string                `json:"agent,omitempty"`
	// Observers names registered observability observers; more than one
	// name fans events out to all of them.
	Observers []string       `json:"observers,omitempty"`
	Session   session.Config `json:"session"`
	Engine    openai.Config  `json:"engine"`
}

// DefaultConfig returns a Config with sensible defaults for all subsystems.
func DefaultConfig() Config {
	return Config{
		Agent:     "assistant",
		Observers: []string{"slog"},
		Session:   session.DefaultConfig(),
		Engine:    openai.DefaultConfig(),
		Agents: map[string]flow.Agent{
			"assistant": {Name: "assistant", Instructions: "You are a helpful assistant."},
		},
	}
}

// Merge applies non-zero values from source into c, delegating to each
// subsystem's Merge method.
func (c *Config) Merge(source *Config) {
	c.Session.Merge(&source.Session)
	c.Engine.Merge(&source.Engine)

	if source.Agent != "" {
		c.Agent = source.Agent
	}
	if len(source.Agents) > 0 {
		c.Agents = source.Agents
	}
	if len(source.Observers) > 0 {
		c.Observers = source.Observers
	}
}

// LoadConfig reads a JSON config file, merges it with defaults, and returns
// the resulting Config.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}

// observer resolves the configured observer names through the global
// observability registry, fanning out to all of them when more than one
// is named.
func (c *Config) observer() (observability.Observer, error) {
	resolved := make([]observability.Observer, 0, len(c.Observers))
	for _, name := range c.Observers {
		obs, err := observability.GetObserver(name)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, obs)
	}
	if len(resolved) == 1 {
		return resolved[0], nil
	}
	return observability.NewMultiObserver(resolved...), nil
}

// registry builds an agent registry from the config's agent definitions.
func (c *Config) registry() (*flow.Registry, error) {
	reg := flow.NewRegistry()
	for key, agent := range c.Agents {
		if err := reg.Register(key, agent); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
