package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// failingFS serves files from a MapFS but fails to open the listed paths.
// It deliberately implements only Open so fs.ReadFile goes through it.
type failingFS struct {
	fsys fs.FS
	fail map[string]bool
}

var errDenied = errors.New("permission denied")

func (f failingFS) Open(name string) (fs.File, error) {
	if f.fail[name] {
		return nil, &fs.PathError{Op: "open", Path: name, Err: errDenied}
	}
	return f.fsys.Open(name)
}

func file(s string) *fstest.MapFile { return &fstest.MapFile{Data: []byte(s)} }

func TestBuildTreeFoldsPaths(t *testing.T) {
	fsys := fstest.MapFS{
		"src/a.js":      file("const a = 1;"),
		"src/lib/b.js":  file("function b() {}"),
		"README.md":     file("# readme"),
		"src/lib/c.txt": file("c"),
	}
	tree, res := (&Indexer{FS: fsys}).BuildTree(context.Background())
	require.NoError(t, res.Err)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, 4, tree.Len())

	n, ok := tree.Lookup("src/lib/b.js")
	require.True(t, ok)
	assert.Equal(t, KindEntry, n.Kind)
	assert.Equal(t, "src/lib/b.js", n.Path)
	assert.Equal(t, "function b() {}", n.Content)

	dir, ok := tree.Lookup("src")
	require.True(t, ok)
	assert.Equal(t, KindDirectory, dir.Kind)
	assert.Equal(t, []string{"a.js", "lib"}, dir.Children(tree))

	_, ok = tree.Lookup("src/missing.js")
	assert.False(t, ok)
	_, ok = tree.Lookup("README.md/x")
	assert.False(t, ok)
}

func TestBuildTreeExclusions(t *testing.T) {
	fsys := fstest.MapFS{
		"index.js":                  file("x"),
		"node_modules/dep/index.js": file("x"),
		"pkg/node_modules/d.js":     file("x"),
		".git/HEAD":                 file("ref"),
		"build/out.js":              file("x"),
		"debug.log":                 file("x"),
		"secret.env":                file("x"),
		".gitignore":                file("# comment\n*.log\n"),
		".codeweaveignore":          file("secret.env\n"),
	}
	ix := &Indexer{FS: fsys, Exclude: []string{"build/"}}
	tree, res := ix.BuildTree(context.Background())
	require.NoError(t, res.Err)

	var paths []string
	tree.Walk(func(n Node) bool {
		if n.Kind == KindEntry {
			paths = append(paths, n.Path)
		}
		return true
	})
	assert.ElementsMatch(t, []string{".codeweaveignore", ".gitignore", "index.js"}, paths)
}

func TestBuildTreeSkipsUnreadableFiles(t *testing.T) {
	base := fstest.MapFS{
		"a.js":     file("const a = 1;"),
		"b.js":     file("const b = 2;"),
		"dir/c.js": file("const c = 3;"),
	}
	fsys := failingFS{fsys: base, fail: map[string]bool{"b.js": true}}

	tree, res := (&Indexer{FS: fsys}).BuildTree(context.Background())
	require.NoError(t, res.Err)
	assert.Equal(t, 2, tree.Len())
	_, ok := tree.Lookup("b.js")
	assert.False(t, ok)

	require.Len(t, res.ReadErrors, 1)
	assert.Equal(t, "b.js", res.ReadErrors[0].Path)
	assert.ErrorIs(t, res.ReadErrors[0], errDenied)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "failed to read b.js")
}

func TestBuildTreeSkipsLargeFiles(t *testing.T) {
	fsys := fstest.MapFS{
		"small.js": file("ok"),
		"big.js":   file(strings.Repeat("x", 64)),
	}
	tree, res := (&Indexer{FS: fsys, MaxFileSize: 16}).BuildTree(context.Background())
	require.NoError(t, res.Err)
	assert.Equal(t, 1, tree.Len())
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "big.js")
}

func TestBuildTreeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tree, res := (&Indexer{FS: fstest.MapFS{"a.js": file("x")}}).BuildTree(ctx)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Equal(t, 0, tree.Len())
}

func TestFindSymbolDefinitions(t *testing.T) {
	fsys := fstest.MapFS{
		"a/util.js":   file("export function helper() {}\nconst other = 1;"),
		"a/consts.js": file("export const other = 2;"),
		"b/none.js":   file("helper();"),
		"c/both.js":   file("const other = 3; function helper() {}"),
	}
	tree, res := (&Indexer{FS: fsys}).BuildTree(context.Background())
	require.NoError(t, res.Err)

	got := FindSymbolDefinitions(tree, []string{"helper", "other"})
	require.Len(t, got, 3)
	assert.Equal(t, SymbolMatch{Path: "a/consts.js", Symbol: "other", Snippet: "export const other = 2;"}, got[0])
	assert.Equal(t, "a/util.js", got[1].Path)
	assert.Equal(t, "helper", got[1].Symbol)
	assert.Equal(t, "c/both.js", got[2].Path)
	assert.Equal(t, "helper", got[2].Symbol, "first name in query order wins")

	assert.Empty(t, FindSymbolDefinitions(tree, nil))
}

func TestFindSymbolDefinitionsQuotesNames(t *testing.T) {
	fsys := fstest.MapFS{"a.js": file("const $el = document.body;")}
	tree, _ := (&Indexer{FS: fsys}).BuildTree(context.Background())
	got := FindSymbolDefinitions(tree, []string{"$el"})
	require.Len(t, got, 1)
	assert.Equal(t, "$el", got[0].Symbol)
}

func TestSnippetIsRuneBounded(t *testing.T) {
	content := strings.Repeat("é", 150)
	s := snippet(content)
	assert.Equal(t, 100, len([]rune(s)))
	assert.Equal(t, "short", snippet("short"))
}

// The number of matches never exceeds MaxMatches and every match names a
// file that defines the reported symbol.
func TestFindSymbolDefinitionsCap(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 40).Draw(t, "files")
		fsys := fstest.MapFS{}
		defining := 0
		for i := 0; i < n; i++ {
			body := "let unrelated = 1;"
			if rapid.Bool().Draw(t, "defines") {
				body = "function foo() { return 1; }"
				defining++
			}
			fsys[fmt.Sprintf("dir%d/file%02d.js", i%3, i)] = file(body)
		}
		tree, res := (&Indexer{FS: fsys}).BuildTree(context.Background())
		if res.Err != nil {
			t.Fatalf("BuildTree: %v", res.Err)
		}
		got := FindSymbolDefinitions(tree, []string{"foo"})
		want := min(defining, MaxMatches)
		if len(got) != want {
			t.Fatalf("got %d matches, want %d", len(got), want)
		}
		for _, m := range got {
			node, ok := tree.Lookup(m.Path)
			if !ok || !strings.Contains(node.Content, "function foo") {
				t.Fatalf("match %q does not define foo", m.Path)
			}
		}
	})
}

func TestTreeWalkStops(t *testing.T) {
	tree := newTree()
	tree.add("a/b.js", "")
	tree.add("a/c.js", "")
	tree.add("d.js", "")
	var seen []string
	tree.Walk(func(n Node) bool {
		seen = append(seen, n.Path)
		return n.Path != "a/b.js"
	})
	assert.Equal(t, []string{"a", "a/b.js"}, seen)
	assert.False(t, tree.add("a", "x"), "directory cannot become an entry")
	assert.False(t, tree.add("d.js/e.js", "x"), "entry cannot become a directory")
}
