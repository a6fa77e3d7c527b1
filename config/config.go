// Package config loads linkrank settings from YAML files and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/poiesic/linkrank/ai"
	"github.com/poiesic/linkrank/websearch"
	"gopkg.in/yaml.v3"
)

// Environment variables that override search credentials from the file.
const (
	EnvSearchAPIKey   = "LINKRANK_SEARCH_API_KEY"
	EnvSearchEngineID = "LINKRANK_SEARCH_ENGINE_ID"
)

// DefaultStoragePath is where history and cached embeddings live when the
// file does not say otherwise.
const DefaultStoragePath = ".linkrank"

// Config holds the linkrank configuration.
type Config struct {
	AI       AIConfig       `yaml:"ai"`
	Search   SearchConfig   `yaml:"search"`
	Storage  StorageConfig  `yaml:"storage"`
	Rank     RankConfig     `yaml:"rank"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// AIConfig holds chat and embedding endpoint settings.
type AIConfig struct {
	Host           string                `yaml:"host"` // shorthand for both hosts
	EmbeddingHost  string                `yaml:"embedding_host"`
	ChatHost       string                `yaml:"chat_host"`
	EmbeddingModel string                `yaml:"embedding_model"`
	ChatModel      string                `yaml:"chat_model"`
	Token          string                `yaml:"token"`
	Nodes          map[string]NodeConfig `yaml:"nodes"`
}

// NodeConfig holds a node-scoped chat endpoint.
type NodeConfig struct {
	Host  string `yaml:"host"`
	Model string `yaml:"model"`
}

// SearchConfig holds web search settings.
type SearchConfig struct {
	APIKey   string `yaml:"api_key"`
	EngineID string `yaml:"engine_id"`
	BaseURL  string `yaml:"base_url"`
}

// StorageConfig holds history and embedding cache storage settings.
type StorageConfig struct {
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
}

// RankConfig holds ranking settings.
type RankConfig struct {
	TopN     int `yaml:"top_n"`
	PoolSize int `yaml:"pool_size"` // 0 = runtime.NumCPU()
}

// DispatchConfig holds placement dispatch settings.
type DispatchConfig struct {
	PoolSize int `yaml:"pool_size"` // 0 = runtime.NumCPU() / 2
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// Default returns the configuration used when no file is given.
func Default() Config {
	cfg := Config{}
	cfg.ApplyDefaults()
	return cfg
}

// Load reads configuration from a YAML file. An empty path yields the
// defaults. ${VAR} and ${VAR:-default} references in the file are expanded
// from the environment, and the search credential variables override the
// file.
func Load(path string) (Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}

		data = expandEnvVars(data)

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// LoadEnv loads variables from the given .env files into the process
// environment, overriding existing values. Missing files are an error.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		return nil
	}
	if err := godotenv.Overload(files...); err != nil {
		return fmt.Errorf("failed to load env files %s: %w", strings.Join(files, ", "), err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvSearchAPIKey); v != "" {
		c.Search.APIKey = v
	}
	if v := os.Getenv(EnvSearchEngineID); v != "" {
		c.Search.EngineID = v
	}
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	defaults := ai.DefaultConfig()
	if c.AI.Host != "" {
		if c.AI.EmbeddingHost == "" {
			c.AI.EmbeddingHost = c.AI.Host
		}
		if c.AI.ChatHost == "" {
			c.AI.ChatHost = c.AI.Host
		}
	}
	if c.AI.EmbeddingHost == "" {
		c.AI.EmbeddingHost = defaults.EmbeddingHost
	}
	if c.AI.ChatHost == "" {
		c.AI.ChatHost = defaults.ChatHost
	}
	if c.AI.EmbeddingModel == "" {
		c.AI.EmbeddingModel = defaults.EmbeddingModel
	}
	if c.AI.ChatModel == "" {
		c.AI.ChatModel = defaults.ChatModel
	}
	if c.AI.Token == "" {
		c.AI.Token = defaults.Token
	}
	if c.Storage.Path == "" && !c.Storage.InMemory {
		c.Storage.Path = DefaultStoragePath
	}
	if c.Rank.TopN <= 0 {
		c.Rank.TopN = 5
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks the configuration for correctness. Missing search
// credentials are not an error here; they are reported when a search runs.
func (c *Config) Validate() error {
	if err := c.AIConfig().Validate(); err != nil {
		return err
	}
	if c.Rank.PoolSize < 0 {
		return fmt.Errorf("rank.pool_size must not be negative, got %d", c.Rank.PoolSize)
	}
	if c.Dispatch.PoolSize < 0 {
		return fmt.Errorf("dispatch.pool_size must not be negative, got %d", c.Dispatch.PoolSize)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
	if !c.Storage.InMemory && c.Storage.Path == "" {
		return errors.New("storage.path is required unless storage.in_memory is set")
	}
	return nil
}

// AIConfig converts the AI section to an ai.Config.
func (c *Config) AIConfig() *ai.Config {
	opts := []ai.ConfigOption{
		ai.WithEmbeddingHost(c.AI.EmbeddingHost),
		ai.WithChatHost(c.AI.ChatHost),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithChatModel(c.AI.ChatModel),
		ai.WithToken(c.AI.Token),
	}
	for ref, node := range c.AI.Nodes {
		opts = append(opts, ai.WithNode(ai.NodeRef(ref), node.Host, node.Model))
	}
	return ai.NewConfig(opts...)
}

// Credentials returns the web search credentials.
func (c *Config) Credentials() websearch.Credentials {
	return websearch.Credentials{
		APIKey:   c.Search.APIKey,
		EngineID: c.Search.EngineID,
	}
}

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment
// variable values.
func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
