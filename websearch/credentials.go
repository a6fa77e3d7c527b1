package websearch

import (
	"log/slog"

	"github.com/poiesic/linkrank/core"
)

// Field names presented to the user when credentials are missing.
const (
	FieldAPIKey   = "API Key"
	FieldEngineID = "Search Engine ID"
)

// Credentials identify the caller to the search provider.
type Credentials struct {
	APIKey   string
	EngineID string
}

// Validate returns a *core.ConfigurationError naming each missing field.
func (c Credentials) Validate() error {
	var missing []string
	if c.APIKey == "" {
		missing = append(missing, FieldAPIKey)
	}
	if c.EngineID == "" {
		missing = append(missing, FieldEngineID)
	}
	if len(missing) > 0 {
		return &core.ConfigurationError{Missing: missing}
	}
	return nil
}

// LogValue keeps the API key out of logs.
func (c Credentials) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("api_key_set", c.APIKey != ""),
		slog.String("engine_id", c.EngineID),
	)
}
