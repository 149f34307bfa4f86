package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// Config merge precedence: project > global > defaults, field by field.
func TestConfigMergePrecedence(t *testing.T) {
	nonEmptyString := rapid.StringMatching(`[a-zA-Z0-9/_.-]{1,20}`)

	configGen := rapid.Custom(func(t *rapid.T) *Config {
		cfg := &Config{}
		if rapid.Bool().Draw(t, "hasProvider") {
			cfg.Provider = nonEmptyString.Draw(t, "provider")
		}
		if rapid.Bool().Draw(t, "hasModel") {
			cfg.Model = nonEmptyString.Draw(t, "model")
		}
		if rapid.Bool().Draw(t, "hasBaseURL") {
			cfg.BaseURL = nonEmptyString.Draw(t, "baseURL")
		}
		if rapid.Bool().Draw(t, "hasExtractor") {
			cfg.Extractor = nonEmptyString.Draw(t, "extractor")
		}
		if rapid.Bool().Draw(t, "hasMaxInput") {
			cfg.MaxInputTokens = rapid.IntRange(1, 10000).Draw(t, "maxInput")
		}
		if rapid.Bool().Draw(t, "hasTemperature") {
			v := rapid.Float64Range(0, 1).Draw(t, "temperature")
			cfg.Temperature = &v
		}
		return cfg
	})

	rapid.Check(t, func(t *rapid.T) {
		global := configGen.Draw(t, "global")
		project := configGen.Draw(t, "project")

		merged := Merge(global, project)
		defaults := Defaults()

		checkStringField(t, "Provider", global.Provider, project.Provider, defaults.Provider, merged.Provider)
		checkStringField(t, "Model", global.Model, project.Model, defaults.Model, merged.Model)
		checkStringField(t, "BaseURL", global.BaseURL, project.BaseURL, defaults.BaseURL, merged.BaseURL)
		checkStringField(t, "Extractor", global.Extractor, project.Extractor, defaults.Extractor, merged.Extractor)

		wantIn := defaults.MaxInputTokens
		if global.MaxInputTokens != 0 {
			wantIn = global.MaxInputTokens
		}
		if project.MaxInputTokens != 0 {
			wantIn = project.MaxInputTokens
		}
		if merged.MaxInputTokens != wantIn {
			t.Fatalf("MaxInputTokens: expected %d, got %d", wantIn, merged.MaxInputTokens)
		}

		wantTemp := defaults.Temp()
		if global.Temperature != nil {
			wantTemp = *global.Temperature
		}
		if project.Temperature != nil {
			wantTemp = *project.Temperature
		}
		if merged.Temp() != wantTemp {
			t.Fatalf("Temperature: expected %v, got %v", wantTemp, merged.Temp())
		}
	})
}

// checkStringField asserts the merge precedence rule for a single string field:
//   - project non-empty  → merged == project
//   - project empty, global non-empty → merged == global
//   - both empty → merged == defaultVal
func checkStringField(t *rapid.T, name, globalVal, projectVal, defaultVal, mergedVal string) {
	t.Helper()
	switch {
	case projectVal != "":
		if mergedVal != projectVal {
			t.Fatalf("%s: both set — expected project value %q, got %q", name, projectVal, mergedVal)
		}
	case globalVal != "":
		if mergedVal != globalVal {
			t.Fatalf("%s: only global set — expected global value %q, got %q", name, globalVal, mergedVal)
		}
	default:
		if mergedVal != defaultVal {
			t.Fatalf("%s: neither set — expected default %q, got %q", name, defaultVal, mergedVal)
		}
	}
}

func TestDefaultsValues(t *testing.T) {
	d := Defaults()
	assert.Equal(t, ProviderAnthropic, d.Provider)
	assert.Equal(t, 4096, d.MaxOutputTokens)
	assert.Equal(t, 0.5, d.Temp())
	assert.Equal(t, 500, d.MaxInputTokens)
	assert.Equal(t, ExtractorPattern, d.Extractor)
	assert.NotNil(t, d.ExcludePatterns)
	assert.Empty(t, d.ExcludePatterns)
}

func TestMergeCopiesTemperature(t *testing.T) {
	zero := 0.0
	merged := Merge(&Config{Temperature: &zero}, nil)
	assert.Equal(t, 0.0, merged.Temp(), "an explicit zero must survive the merge")
	zero = 0.9
	assert.Equal(t, 0.0, merged.Temp(), "merge must not alias the input")
}

func TestLoadGlobalMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadGlobal()
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, Defaults(), *cfg)
}

func TestLoadProjectMissingFileReturnsNil(t *testing.T) {
	cfg, err := LoadProject(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestLoadGlobalParseError(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)

	cfgDir := filepath.Join(tmp, ".config", "codeweave")
	require.NoError(t, os.MkdirAll(cfgDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfgDir, "config.json"), []byte("{invalid json"), 0o644))

	_, err := LoadGlobal()
	require.Error(t, err)
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr), "expected *ParseError, got %T: %v", err, err)
	assert.Contains(t, err.Error(), "config.json")
}

func TestLoadProjectOverridesGlobalAndResolvesEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("OPENAI_API_KEY", "sk-env")

	require.NoError(t, SaveGlobal(&Config{Provider: ProviderAnthropic, APIKey: "", MaxOutputTokens: 100}))
	info, err := os.Stat(filepath.Join(home, ".config", "codeweave", "config.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	project := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(project, ProjectFile), []byte(`{"provider":"openai","exclude_patterns":["dist/"]}`), 0o644))

	cfg, err := Load(project)
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "sk-env", cfg.APIKey)
	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.Equal(t, 100, cfg.MaxOutputTokens)
	assert.Equal(t, []string{"dist/"}, cfg.ExcludePatterns)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	valid := Resolve(Defaults())
	valid.APIKey = "key"
	require.NoError(t, valid.Validate())

	hot := 1.5
	cases := map[string]func(c *Config){
		"provider":          func(c *Config) { c.Provider = "bard" },
		"api_key":           func(c *Config) { c.APIKey = "" },
		"model":             func(c *Config) { c.Model = "" },
		"max_output_tokens": func(c *Config) { c.MaxOutputTokens = 0 },
		"temperature":       func(c *Config) { c.Temperature = &hot },
		"max_input_tokens":  func(c *Config) { c.MaxInputTokens = -1 },
		"extractor":         func(c *Config) { c.Extractor = "ast" },
	}
	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			c := valid
			mutate(&c)
			err := c.Validate()
			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, field, cfgErr.Field)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	local := valid
	local.Provider = ProviderOllama
	local.APIKey = ""
	assert.NoError(t, local.Validate(), "ollama needs no API key")
}

func TestRunSetup(t *testing.T) {
	answers := strings.Join([]string{
		"gemini", // rejected, asked again
		"openai",
		"",       // empty key rejected
		"sk-123",
		"",       // accept default model
		"2048",
		"2",      // out of range
		"0.2",
		"",       // keep max input tokens
	}, "\n") + "\n"

	var out strings.Builder
	cfg, err := RunSetup(strings.NewReader(answers), &out, nil)
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "sk-123", cfg.APIKey)
	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.Equal(t, 2048, cfg.MaxOutputTokens)
	assert.Equal(t, 0.2, cfg.Temp())
	assert.Equal(t, 500, cfg.MaxInputTokens)

	assert.Contains(t, out.String(), "Provider must be one of")
	assert.Contains(t, out.String(), "API key cannot be empty")
	assert.Contains(t, out.String(), "Temperature must be a number between 0 and 1")
}

func TestRunSetupEndOfInput(t *testing.T) {
	_, err := RunSetup(strings.NewReader(""), &strings.Builder{}, nil)
	assert.Error(t, err)
}
