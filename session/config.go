package session

import "fmt"

// Backend names accepted by Config.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
)

// Config holds session initialization parameters.
type Config struct {
	// Backend selects the session implementation: "memory" (default) or "file".
	Backend string `json:"backend,omitempty"`
	// Path is the JSONL file location for the file backend.
	Path string `json:"path,omitempty"`
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{Backend: BackendMemory}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Backend != "" {
		c.Backend = source.Backend
	}
	if source.Path != "" {
		c.Path = source.Path
	}
}

// New creates a Session from configuration.
func New(cfg *Config) (Session, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemorySession(), nil
	case BackendFile:
		return NewFileSession(cfg.Path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Backend)
	}
}
