package prompt

import (
	"context"
	"strings"
	"testing"
	"testing/fstest"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/fakeyudi/codeweave/internal/config"
	"github.com/fakeyudi/codeweave/internal/document"
	"github.com/fakeyudi/codeweave/internal/importscan"
	"github.com/fakeyudi/codeweave/internal/provider"
	"github.com/fakeyudi/codeweave/internal/workspace"
)

const mainJS = `import {helper} from "./util";
const {fmt} = require("./format");

function main() {
  return helper(1);
}
`

func TestCollectBuildsContext(t *testing.T) {
	fsys := fstest.MapFS{
		"main.js":   &fstest.MapFile{Data: []byte(mainJS)},
		"util.js":   &fstest.MapFile{Data: []byte("export function helper(x) { return x; }\n")},
		"format.js": &fstest.MapFile{Data: []byte("const fmt = (s) => s;\n")},
		"other.js":  &fstest.MapFile{Data: []byte("let nothing;\n")},
	}
	b := &Builder{Indexer: &workspace.Indexer{FS: fsys}, MaxInputTokens: 500}

	sel := strings.Index(mainJS, "return helper(1);")
	c, err := b.Collect(context.Background(), Snapshot{
		Path:      "main.js",
		Text:      mainJS,
		Selection: document.Range{Start: sel, End: sel + len("return helper(1);")},
	})
	require.NoError(t, err)

	assert.Equal(t, "javascript", c.Language)
	assert.Equal(t, "return helper(1);", c.SelectedText)
	assert.Equal(t, mainJS[:sel], c.Before)
	assert.Equal(t, "\n}\n", c.After)
	require.Len(t, c.Imports, 2)
	require.Len(t, c.Matches, 2)
	assert.Equal(t, "format.js", c.Matches[0].Path)
	assert.Equal(t, "fmt", c.Matches[0].Symbol)
	assert.Equal(t, "util.js", c.Matches[1].Path)
}

func TestCollectWithoutImportsSkipsWorkspace(t *testing.T) {
	b := &Builder{Indexer: &workspace.Indexer{FS: fstest.MapFS{}}}
	c, err := b.Collect(context.Background(), Snapshot{Path: "a.py", Text: "x = 1\n", Selection: document.Caret(6)})
	require.NoError(t, err)
	assert.Equal(t, "python", c.Language)
	assert.Empty(t, c.Imports)
	assert.Empty(t, c.Matches)
	assert.Equal(t, "x = 1\n", c.Before)
	assert.Empty(t, c.After)
}

func TestCollectRejectsBadSelection(t *testing.T) {
	_, err := (&Builder{}).Collect(context.Background(), Snapshot{Text: "abc", Selection: document.Range{Start: 2, End: 9}})
	assert.ErrorIs(t, err, document.ErrInvalidRange)
}

func TestCollectCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := &Builder{Indexer: &workspace.Indexer{FS: fstest.MapFS{"a.js": &fstest.MapFile{}}}}
	_, err := b.Collect(ctx, Snapshot{Text: mainJS, Selection: document.Caret(0)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSystemWording(t *testing.T) {
	gen := System(&Context{FileName: "a.js", Language: "javascript", Before: "let a;"})
	assert.True(t, strings.HasPrefix(gen, "Your task is to write code based on the prompt."))
	assert.Contains(t, gen, "Current file: a.js")
	assert.Contains(t, gen, "before cursor position: let a;")
	assert.NotContains(t, gen, "after cursor position")

	change := System(&Context{
		FileName:     "a.js",
		SelectedText: "return 0;",
		Imports:      []importscan.Reference{{Names: []string{"x"}, Module: "./x"}},
		Matches:      []workspace.SymbolMatch{{Path: "x.js", Symbol: "x", Snippet: "const x = 1"}},
	})
	assert.True(t, strings.HasPrefix(change, "Your task is to change the given code snippet"))
	assert.Contains(t, change, "you should change according to the prompt: return 0;")
	assert.Contains(t, change, "- x from ./x")
	assert.Contains(t, change, "- x.js (x): const x = 1")
}

func TestCompose(t *testing.T) {
	cfg := config.Resolve(config.Defaults())
	img := &provider.Image{Data: "AAAA", MediaType: "image/png"}
	req := Compose(&Context{FileName: "a.js"}, "write foo", img, cfg)
	assert.Equal(t, cfg.Model, req.Model)
	assert.Equal(t, 4096, req.MaxTokens)
	assert.Equal(t, 0.5, req.Temperature)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, provider.RoleUser, req.Messages[0].Role)
	assert.Equal(t, "write foo", req.Messages[0].Content)
	assert.Same(t, img, req.Messages[0].Image)
}

func TestLanguageFor(t *testing.T) {
	assert.Equal(t, "typescript", LanguageFor("src/App.TS"))
	assert.Equal(t, "go", LanguageFor("main.go"))
	assert.Equal(t, "plaintext", LanguageFor("Makefile"))
}

func TestWindowTrimsLongText(t *testing.T) {
	text := strings.Repeat("const value = compute(value);\n", 200)
	mid := len(text) / 2
	before, after := Window(text, mid, 40)
	assert.True(t, strings.HasSuffix(text[:mid], before))
	assert.True(t, strings.HasPrefix(text[mid:], after))
	assert.Less(t, len(before), mid)
	assert.Less(t, len(after), len(text)-mid)
	assert.NotEmpty(t, before)
	assert.NotEmpty(t, after)

	whole, rest := Window("short", 5, 500)
	assert.Equal(t, "short", whole)
	assert.Empty(t, rest)
}

// Trimmed windows are always a valid UTF-8 suffix/prefix of their input.
func TestWindowBoundaries(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.StringN(0, 200, -1).Draw(t, "text")
		n := rapid.IntRange(0, 30).Draw(t, "n")

		before := Before(text, n)
		if !strings.HasSuffix(text, before) {
			t.Fatalf("Before(%q, %d) = %q is not a suffix", text, n, before)
		}
		after := After(text, n)
		if !strings.HasPrefix(text, after) {
			t.Fatalf("After(%q, %d) = %q is not a prefix", text, n, after)
		}
		if utf8.ValidString(text) && (!utf8.ValidString(before) || !utf8.ValidString(after)) {
			t.Fatalf("window split a rune: %q / %q", before, after)
		}
		if n == 0 && (before != "" || after != "") {
			t.Fatalf("zero budget must yield empty windows")
		}
	})
}

func TestRuneFallbacks(t *testing.T) {
	assert.Equal(t, "éf", lastRunes("abcdéf", 2))
	assert.Equal(t, "ab", firstRunes("abcdéf", 2))
	assert.Equal(t, "xy", lastRunes("xy", 5))
}
