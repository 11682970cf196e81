// Package config loads the cookbook CLI configuration.
package config

import (
	"fmt"
	"slices"

	"github.com/bububa/atomic-cookbook/internal/logging"
)

// Providers supported by the cookbook
var Providers = []string{"openai", "anthropic", "cohere", "gemini", "ollama", "azure"}

// Config is the cookbook configuration.
type Config struct {
	Provider  string          `koanf:"provider"`
	Model     string          `koanf:"model"`
	Stream    bool            `koanf:"stream"`
	Log       logging.Config  `koanf:"log"`
	OpenAI    ProviderConfig  `koanf:"openai"`
	Anthropic ProviderConfig  `koanf:"anthropic"`
	Cohere    ProviderConfig  `koanf:"cohere"`
	Gemini    ProviderConfig  `koanf:"gemini"`
	Ollama    ProviderConfig  `koanf:"ollama"`
	Azure     ProviderConfig  `koanf:"azure"`
	Searxng   SearxngConfig   `koanf:"searxng"`
	Fal       FalConfig       `koanf:"fal"`
	Resend    ResendConfig    `koanf:"resend"`
	Storage   StorageConfig   `koanf:"storage"`
	VectorDB  VectorDBConfig  `koanf:"vectordb"`
	Marketing MarketingConfig `koanf:"marketing"`
}

// ProviderConfig holds the credentials of an llm provider
type ProviderConfig struct {
	APIKey     string `koanf:"api_key"`
	BaseURL    string `koanf:"base_url"`
	APIVersion string `koanf:"api_version"`
	Model      string `koanf:"model"`
}

type SearxngConfig struct {
	BaseURL    string `koanf:"base_url"`
	MaxResults int    `koanf:"max_results"`
}

type FalConfig struct {
	APIKey string `koanf:"api_key"`
	Model  string `koanf:"model"`
}

type ResendConfig struct {
	APIKey string `koanf:"api_key"`
	From   string `koanf:"from"`
}

// StorageConfig selects the agent session storage
type StorageConfig struct {
	// Driver is yaml, sqlite or postgres
	Driver string `koanf:"driver"`
	Dir    string `koanf:"dir"`
	DSN    string `koanf:"dsn"`
	Table  string `koanf:"table"`
}

// VectorDBConfig selects the knowledge vector db engine
type VectorDBConfig struct {
	// Engine is memory, chromem, milvus, qdrant or pgvector
	Engine     string `koanf:"engine"`
	Collection string `koanf:"collection"`
	Path       string `koanf:"path"`
	Address    string `koanf:"address"`
	DSN        string `koanf:"dsn"`
	Distance   string `koanf:"distance"`
	Embedder   string `koanf:"embedder"`
	// Reranker is lexical or cohere, search results keep the vector order when empty
	Reranker    string `koanf:"reranker"`
	RerankModel string `koanf:"rerank_model"`
	RerankTopN  int    `koanf:"rerank_top_n"`
}

// MarketingConfig holds the marketing workflow sender and contacts
type MarketingConfig struct {
	Sender   SenderConfig    `koanf:"sender"`
	Template string          `koanf:"template"`
	Contacts []ContactConfig `koanf:"contacts"`
}

type SenderConfig struct {
	Name           string `koanf:"name"`
	Email          string `koanf:"email"`
	Organization   string `koanf:"organization"`
	CalendarLink   string `koanf:"calendar_link"`
	ServiceOffered string `koanf:"service_offered"`
}

type ContactConfig struct {
	Company     string `koanf:"company"`
	Website     string `koanf:"website"`
	Email       string `koanf:"email"`
	ContactName string `koanf:"contact_name"`
	Position    string `koanf:"position"`
}

// NewDefaultConfig returns the defaults, every other source overrides them
func NewDefaultConfig() *Config {
	return &Config{
		Provider: "openai",
		Log:      logging.NewDefaultConfig(),
		Ollama: ProviderConfig{
			BaseURL: "http://localhost:11434/v1",
			Model:   "llama3.2",
		},
		Azure: ProviderConfig{
			APIVersion: "2024-06-01",
		},
		Searxng: SearxngConfig{
			BaseURL:    "http://localhost:8080",
			MaxResults: 10,
		},
		Storage: StorageConfig{
			Driver: "yaml",
			Dir:    "tmp/sessions",
			Table:  "agent_sessions",
		},
		VectorDB: VectorDBConfig{
			Engine:     "chromem",
			Collection: "recipes",
			Distance:   "cosine",
		},
	}
}

// ProviderConfig returns the credentials of the selected provider
func (c *Config) ProviderConfig() ProviderConfig {
	switch c.Provider {
	case "anthropic":
		return c.Anthropic
	case "cohere":
		return c.Cohere
	case "gemini":
		return c.Gemini
	case "ollama":
		return c.Ollama
	case "azure":
		return c.Azure
	default:
		return c.OpenAI
	}
}

// ChatModel returns the model flag, falling back to the provider model
func (c *Config) ChatModel() string {
	if c.Model != "" {
		return c.Model
	}
	return c.ProviderConfig().Model
}

// Validate checks config for errors.
func (c *Config) Validate() error {
	if !slices.Contains(Providers, c.Provider) {
		return fmt.Errorf("unknown provider %q, want one of %v", c.Provider, Providers)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	switch c.Storage.Driver {
	case "yaml", "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.VectorDB.Engine {
	case "memory", "chromem", "milvus", "qdrant", "pgvector":
	default:
		return fmt.Errorf("unknown vectordb engine %q", c.VectorDB.Engine)
	}
	switch c.VectorDB.Reranker {
	case "", "lexical", "cohere":
	default:
		return fmt.Errorf("unknown vectordb reranker %q", c.VectorDB.Reranker)
	}
	return nil
}
