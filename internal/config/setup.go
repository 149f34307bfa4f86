package config

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
)

// RunSetup runs the interactive settings wizard on in/out and returns the
// resulting config. If existing is non-nil, its values are offered as the
// default for each prompt (edit mode). Invalid answers are asked again.
func RunSetup(in io.Reader, out io.Writer, existing *Config) (*Config, error) {
	r := bufio.NewReader(in)

	ask := func(prompt, defaultVal string) (string, error) {
		if defaultVal != "" {
			fmt.Fprintf(out, "%s [%s]: ", prompt, defaultVal)
		} else {
			fmt.Fprintf(out, "%s: ", prompt)
		}
		line, err := r.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return defaultVal, nil
		}
		return line, nil
	}

	// askValid repeats the prompt until check accepts the answer.
	askValid := func(prompt, defaultVal string, check func(string) string) (string, error) {
		for {
			ans, err := ask(prompt, defaultVal)
			if err != nil {
				return "", err
			}
			msg := check(ans)
			if msg == "" {
				return ans, nil
			}
			fmt.Fprintf(out, "  %s\n", msg)
		}
	}

	cfg := Defaults()
	if existing != nil {
		cfg = *existing
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "  ┌─────────────────────────────────┐")
	fmt.Fprintln(out, "  │     codeweave — settings        │")
	fmt.Fprintln(out, "  └─────────────────────────────────┘")
	fmt.Fprintln(out)

	provider, err := askValid("  AI provider ("+strings.Join(Providers, "/")+")", cfg.Provider, func(v string) string {
		if !slices.Contains(Providers, v) {
			return "Provider must be one of " + strings.Join(Providers, ", ")
		}
		return ""
	})
	if err != nil {
		return nil, err
	}
	if provider != cfg.Provider {
		cfg.Model = ""
	}
	cfg.Provider = provider

	if provider != ProviderOllama {
		cfg.APIKey, err = askValid("  "+provider+" API key", cfg.APIKey, func(v string) string {
			if v == "" {
				return "API key cannot be empty"
			}
			return ""
		})
		if err != nil {
			return nil, err
		}
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel(provider)
	}
	cfg.Model, err = askValid("  Model", model, func(v string) string {
		if v == "" {
			return "Model cannot be empty"
		}
		return ""
	})
	if err != nil {
		return nil, err
	}

	positive := func(msg string) func(string) string {
		return func(v string) string {
			if n, err := strconv.Atoi(v); err != nil || n <= 0 {
				return msg
			}
			return ""
		}
	}

	maxOut, err := askValid("  Max output tokens", strconv.Itoa(cfg.MaxOutputTokens), positive("Max output tokens must be a positive number"))
	if err != nil {
		return nil, err
	}
	cfg.MaxOutputTokens, _ = strconv.Atoi(maxOut)

	temp, err := askValid("  Temperature (0-1)", strconv.FormatFloat(cfg.Temp(), 'g', -1, 64), func(v string) string {
		if f, err := strconv.ParseFloat(v, 64); err != nil || f < 0 || f > 1 {
			return "Temperature must be a number between 0 and 1"
		}
		return ""
	})
	if err != nil {
		return nil, err
	}
	t, _ := strconv.ParseFloat(temp, 64)
	cfg.Temperature = &t

	maxIn, err := askValid("  Max input tokens", strconv.Itoa(cfg.MaxInputTokens), positive("Max input tokens must be a positive number"))
	if err != nil {
		return nil, err
	}
	cfg.MaxInputTokens, _ = strconv.Atoi(maxIn)

	fmt.Fprintln(out)
	return &cfg, nil
}
