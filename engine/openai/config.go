package openai

// Config controls how the OpenAI engine client is constructed. Fields left
// at their zero value take the defaults from DefaultConfig.
type Config struct {
	// Model is the default model for calls whose agent does not name one.
	Model string `json:"model"`
	// BaseURL overrides the API endpoint, e.g. for a local
	// OpenAI-compatible server.
	BaseURL string `json:"base_url"`
	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `json:"api_key_env"`
}

// DefaultConfig returns the standard engine configuration.
func DefaultConfig() Config {
	return Config{
		Model:     "gpt-4o-mini",
		APIKeyEnv: "OPENAI_API_KEY",
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Model != "" {
		c.Model = source.Model
	}
	if source.BaseURL != "" {
		c.BaseURL = source.BaseURL
	}
	if source.APIKeyEnv != "" {
		c.APIKeyEnv = source.APIKeyEnv
	}
}
