// Package config loads codeweave settings from the global config file and the
// project's .codeweaveconfig, with project values taking precedence.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"

	ExtractorPattern = "pattern"
	ExtractorSyntax  = "syntax"

	// ProjectFile is looked up in the workspace root.
	ProjectFile = ".codeweaveconfig"
)

// Providers lists the supported provider names.
var Providers = []string{ProviderAnthropic, ProviderOpenAI, ProviderOllama}

// Config holds all configurable codeweave settings.
type Config struct {
	Provider        string   `json:"provider"`
	APIKey          string   `json:"api_key,omitempty"`
	Model           string   `json:"model"`
	BaseURL         string   `json:"base_url,omitempty"` // override the provider endpoint
	MaxOutputTokens int      `json:"max_output_tokens"`
	Temperature     *float64 `json:"temperature,omitempty"` // nil = unset, so 0 stays expressible
	MaxInputTokens  int      `json:"max_input_tokens"`      // context window budget around the cursor
	ExcludePatterns []string `json:"exclude_patterns"`
	Extractor       string   `json:"extractor"` // "pattern" | "syntax"
	MaxFileSize     int64    `json:"max_file_size"`
}

// Defaults returns sensible default configuration values.
func Defaults() Config {
	temp := 0.5
	return Config{
		Provider:        ProviderAnthropic,
		MaxOutputTokens: 4096,
		Temperature:     &temp,
		MaxInputTokens:  500,
		ExcludePatterns: []string{},
		Extractor:       ExtractorPattern,
		MaxFileSize:     1 << 20,
	}
}

// DefaultModel returns the model used when none is configured.
func DefaultModel(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return "gpt-4o"
	case ProviderOllama:
		return "qwen2.5-coder"
	default:
		return "claude-3-5-sonnet-20240620"
	}
}

// APIKeyEnv returns the environment variable consulted for provider's key.
func APIKeyEnv(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	default:
		return ""
	}
}

// Temp returns the configured temperature, or the default when unset.
func (c Config) Temp() float64 {
	if c.Temperature == nil {
		return *Defaults().Temperature
	}
	return *c.Temperature
}

// GlobalPath returns ~/.config/codeweave/config.json.
func GlobalPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "codeweave", "config.json"), nil
}

// LoadGlobal reads ~/.config/codeweave/config.json.
// Returns defaults if the file is absent.
func LoadGlobal() (*Config, error) {
	path, err := GlobalPath()
	if err != nil {
		return nil, err
	}
	return loadFile(path, true)
}

// LoadProject reads .codeweaveconfig in dir.
// Returns nil (no error) if the file is absent.
func LoadProject(dir string) (*Config, error) {
	return loadFile(filepath.Join(dir, ProjectFile), false)
}

// Load merges the global and project configs and resolves environment
// fallbacks.
func Load(dir string) (Config, error) {
	global, err := LoadGlobal()
	if err != nil {
		return Config{}, err
	}
	project, err := LoadProject(dir)
	if err != nil {
		return Config{}, err
	}
	return Resolve(Merge(global, project)), nil
}

// loadFile reads and parses a JSON config file at path.
// If returnDefaults is true, returns defaults when the file is absent.
// If returnDefaults is false, returns nil when the file is absent.
func loadFile(path string, returnDefaults bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if returnDefaults {
				d := Defaults()
				return &d, nil
			}
			return nil, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &cfg, nil
}

// Merge combines global and project configs, with project taking precedence.
// Missing keys fall back to global, then defaults.
func Merge(global, project *Config) Config {
	result := Defaults()
	for _, layer := range []*Config{global, project} {
		if layer == nil {
			continue
		}
		if layer.Provider != "" {
			result.Provider = layer.Provider
		}
		if layer.APIKey != "" {
			result.APIKey = layer.APIKey
		}
		if layer.Model != "" {
			result.Model = layer.Model
		}
		if layer.BaseURL != "" {
			result.BaseURL = layer.BaseURL
		}
		if layer.MaxOutputTokens != 0 {
			result.MaxOutputTokens = layer.MaxOutputTokens
		}
		if layer.Temperature != nil {
			t := *layer.Temperature
			result.Temperature = &t
		}
		if layer.MaxInputTokens != 0 {
			result.MaxInputTokens = layer.MaxInputTokens
		}
		if len(layer.ExcludePatterns) > 0 {
			result.ExcludePatterns = layer.ExcludePatterns
		}
		if layer.Extractor != "" {
			result.Extractor = layer.Extractor
		}
		if layer.MaxFileSize != 0 {
			result.MaxFileSize = layer.MaxFileSize
		}
	}
	return result
}

// Resolve fills the API key from the provider's environment variable and the
// model from the provider default when they are not configured.
func Resolve(cfg Config) Config {
	if cfg.APIKey == "" {
		if env := APIKeyEnv(cfg.Provider); env != "" {
			cfg.APIKey = os.Getenv(env)
		}
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel(cfg.Provider)
	}
	return cfg
}

// Validate reports the first setting that would prevent a generation.
func (c Config) Validate() error {
	switch {
	case !slices.Contains(Providers, c.Provider):
		return &ConfigurationError{Field: "provider", Reason: fmt.Sprintf("unknown provider %q", c.Provider)}
	case c.APIKey == "" && c.Provider != ProviderOllama:
		return &ConfigurationError{Field: "api_key", Reason: "API key is not set (run 'codeweave setup' or set " + APIKeyEnv(c.Provider) + ")"}
	case c.Model == "":
		return &ConfigurationError{Field: "model", Reason: "model cannot be empty"}
	case c.MaxOutputTokens <= 0:
		return &ConfigurationError{Field: "max_output_tokens", Reason: "max output tokens must be a positive number"}
	case c.Temp() < 0 || c.Temp() > 1:
		return &ConfigurationError{Field: "temperature", Reason: "temperature must be a number between 0 and 1"}
	case c.MaxInputTokens <= 0:
		return &ConfigurationError{Field: "max_input_tokens", Reason: "max input tokens must be a positive number"}
	case c.Extractor != "" && c.Extractor != ExtractorPattern && c.Extractor != ExtractorSyntax:
		return &ConfigurationError{Field: "extractor", Reason: fmt.Sprintf("unknown extractor %q", c.Extractor)}
	}
	return nil
}

// SaveGlobal writes cfg to the global config file, creating the config
// directory if needed. The file holds the API key so it is private to the user.
func SaveGlobal(cfg *Config) error {
	path, err := GlobalPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ErrInvalidConfig is wrapped by every ConfigurationError.
var ErrInvalidConfig = errors.New("invalid configuration")

// ConfigurationError names the setting that is missing or out of range.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "invalid configuration: " + e.Field + ": " + e.Reason
}

func (e *ConfigurationError) Unwrap() error {
	return ErrInvalidConfig
}
