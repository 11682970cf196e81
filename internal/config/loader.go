package config

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix prefixes the cookbook environment variables
	EnvPrefix         = "COOKBOOK_"
	maxConfigFileSize = 1024 * 1024 // 1MB
)

// conventionalEnv maps the provider SDK variables to config keys
var conventionalEnv = map[string]string{
	"OPENAI_API_KEY":         "openai.api_key",
	"OPENAI_API_BASE_URL":    "openai.base_url",
	"ANTHROPIC_API_KEY":      "anthropic.api_key",
	"ANTHROPIC_API_BASE_URL": "anthropic.base_url",
	"COHERE_API_KEY":         "cohere.api_key",
	"COHERE_API_BASE_URL":    "cohere.base_url",
	"GEMINI_API_KEY":         "gemini.api_key",
	"OLLAMA_HOST":            "ollama.base_url",
	"AZURE_OPENAI_API_KEY":   "azure.api_key",
	"AZURE_OPENAI_ENDPOINT":  "azure.base_url",
	"FAL_KEY":                "fal.api_key",
	"RESEND_API_KEY":         "resend.api_key",
	"SEARXNG_BASE_URL":       "searxng.base_url",
}

// LoadEnvFiles loads environment variables from .env files
// Loads in priority order: .env.local (highest) → .env → system environment (lowest)
func LoadEnvFiles(files ...string) error {
	if len(files) == 0 {
		files = []string{".env.local", ".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}
	return nil
}

// Load loads the configuration.
//
// Configuration precedence (highest to lowest):
//  1. COOKBOOK_ prefixed environment variables (COOKBOOK_OPENAI_API_KEY -> openai.api_key)
//  2. Provider environment variables (OPENAI_API_KEY, FAL_KEY, ...)
//  3. YAML config file at configPath, skipped when empty
//  4. Defaults
func Load(configPath string) (*Config, error) {
	var content []byte
	if configPath != "" {
		f, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()
		content, err = io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if len(content) > maxConfigFileSize {
			return nil, fmt.Errorf("config file %s exceeds %d bytes", configPath, maxConfigFileSize)
		}
	}
	return LoadBytes(content)
}

// LoadBytes loads the configuration from YAML content, then overrides it with the environment
func LoadBytes(content []byte) (*Config, error) {
	k := koanf.New(".")
	if len(content) > 0 {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}
	if err := k.Load(env.Provider("", ".", func(s string) string {
		return conventionalEnv[s]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load provider environment variables: %w", err)
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", EnvKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := NewDefaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// EnvKey maps a COOKBOOK_ variable to its config key.
// Underscores are matched against the koanf tags of Config, so nested sections resolve:
//
//	COOKBOOK_PROVIDER -> provider
//	COOKBOOK_OPENAI_API_KEY -> openai.api_key
//	COOKBOOK_MARKETING_SENDER_NAME -> marketing.sender.name
//
// Unknown variables split on the first underscore.
func EnvKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	if key, ok := configKeys.resolve(lower); ok {
		return key
	}
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

// keyNode is a config section, leaves have no children
type keyNode map[string]keyNode

var configKeys = newKeyNode(reflect.TypeOf(Config{}))

func newKeyNode(t reflect.Type) keyNode {
	ret := make(keyNode, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("koanf")
		if tag == "" || tag == "-" {
			continue
		}
		if field.Type.Kind() == reflect.Struct {
			ret[tag] = newKeyNode(field.Type)
		} else {
			ret[tag] = nil
		}
	}
	return ret
}

// resolve turns the underscore joined path s into a dotted key, longer section names first
func (n keyNode) resolve(s string) (string, bool) {
	if child, ok := n[s]; ok && child == nil {
		return s, true
	}
	sections := make([]string, 0, len(n))
	for name, child := range n {
		if child != nil && strings.HasPrefix(s, name+"_") {
			sections = append(sections, name)
		}
	}
	sort.Slice(sections, func(i, j int) bool {
		return len(sections[i]) > len(sections[j])
	})
	for _, name := range sections {
		if key, ok := n[name].resolve(strings.TrimPrefix(s, name+"_")); ok {
			return name + "." + key, true
		}
	}
	return "", false
}
