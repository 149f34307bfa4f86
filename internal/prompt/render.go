package prompt

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Renderer serializes a Context to bytes.
type Renderer interface {
	Render(c *Context) ([]byte, error)
}

// RendererFor returns the renderer for format ("markdown" or "json").
func RendererFor(format string) (Renderer, error) {
	switch format {
	case "", "markdown":
		return &MarkdownRenderer{}, nil
	case "json":
		return &JSONRenderer{}, nil
	default:
		return nil, fmt.Errorf("unknown format %q (use markdown or json)", format)
	}
}

// JSONRenderer renders a Context as indented JSON.
type JSONRenderer struct{}

func (r *JSONRenderer) Render(c *Context) ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

const (
	versionSentinel = "<!-- codeweave-context-version: 1 -->"
	dataPrefix      = "<!-- codeweave-data: "
	dataSuffix      = " -->"
)

// MarkdownRenderer renders a Context as human-readable Markdown with an
// embedded base64 JSON payload so the file can be edited for reading and
// still be parsed back losslessly.
type MarkdownRenderer struct{}

func (r *MarkdownRenderer) Render(c *Context) ([]byte, error) {
	jsonBytes, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal context: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(jsonBytes)

	var sb strings.Builder
	sb.WriteString(versionSentinel + "\n")
	fmt.Fprintf(&sb, "%s%s%s\n\n", dataPrefix, encoded, dataSuffix)

	fmt.Fprintf(&sb, "# Context — %s\n\n", c.FileName)
	fmt.Fprintf(&sb, "- Language: %s\n", c.Language)
	fmt.Fprintf(&sb, "- Prompt tokens: %d\n\n", CountTokens(System(c)))

	sb.WriteString("## Before Cursor\n\n")
	writeCode(&sb, c.Language, c.Before, "_Start of document._")

	if c.SelectedText != "" {
		sb.WriteString("## Selection\n\n")
		writeCode(&sb, c.Language, c.SelectedText, "")
	}

	sb.WriteString("## After Cursor\n\n")
	writeCode(&sb, c.Language, c.After, "_End of document._")

	sb.WriteString("## Imports\n\n")
	if len(c.Imports) == 0 {
		sb.WriteString("_No imports found._\n")
	} else {
		sb.WriteString("| Module | Names |\n")
		sb.WriteString("|--------|-------|\n")
		for _, ref := range c.Imports {
			fmt.Fprintf(&sb, "| %s | %s |\n", ref.Module, strings.Join(ref.Names, ", "))
		}
	}
	sb.WriteString("\n")

	sb.WriteString("## Definitions\n\n")
	if len(c.Matches) == 0 {
		sb.WriteString("_No matching definitions in the workspace._\n")
	} else {
		for _, m := range c.Matches {
			fmt.Fprintf(&sb, "### %s (`%s`)\n\n", m.Path, m.Symbol)
			writeCode(&sb, LanguageFor(m.Path), m.Snippet, "")
		}
	}
	sb.WriteString("\n")

	if len(c.Warnings) > 0 {
		sb.WriteString("## Warnings\n\n")
		for _, w := range c.Warnings {
			fmt.Fprintf(&sb, "- %s\n", w)
		}
		sb.WriteString("\n")
	}

	return []byte(sb.String()), nil
}

func writeCode(sb *strings.Builder, lang, code, empty string) {
	if code == "" {
		if empty != "" {
			sb.WriteString(empty + "\n\n")
		}
		return
	}
	fmt.Fprintf(sb, "```%s\n", lang)
	sb.WriteString(code)
	if !strings.HasSuffix(code, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString("```\n\n")
}

// Parse reads a Context previously written by either renderer.
func Parse(data []byte) (*Context, error) {
	content := string(data)
	if !strings.Contains(content, versionSentinel) {
		var c Context
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("not a valid codeweave context: %w", err)
		}
		return &c, nil
	}

	start := strings.Index(content, dataPrefix)
	if start == -1 {
		return nil, fmt.Errorf("not a valid codeweave context: missing data payload")
	}
	start += len(dataPrefix)
	end := strings.Index(content[start:], dataSuffix)
	if end == -1 {
		return nil, fmt.Errorf("not a valid codeweave context: malformed data payload")
	}

	jsonBytes, err := base64.StdEncoding.DecodeString(content[start : start+end])
	if err != nil {
		return nil, fmt.Errorf("not a valid codeweave context: corrupted base64 payload: %w", err)
	}
	var c Context
	if err := json.Unmarshal(jsonBytes, &c); err != nil {
		return nil, fmt.Errorf("not a valid codeweave context: failed to parse embedded JSON: %w", err)
	}
	return &c, nil
}
