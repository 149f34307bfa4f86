package document

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferApplyEditSequentialOps(t *testing.T) {
	b := NewBuffer("return 0;\n")
	err := b.ApplyEdit(context.Background(), Delete(Range{0, 9}), Insert(0, "return 1;"))
	require.NoError(t, err)
	assert.Equal(t, "return 1;\n", b.Text())
	assert.Equal(t, Caret(9), b.Selection())
	assert.Equal(t, 1, b.Version())
}

func TestBufferApplyEditIsAllOrNothing(t *testing.T) {
	b := NewBuffer("abc")
	err := b.ApplyEdit(context.Background(), Insert(1, "X"), Delete(Range{2, 10}))
	require.ErrorIs(t, err, ErrInvalidRange)
	assert.Equal(t, "abc", b.Text(), "failed edit must not leave the first op applied")
	assert.Equal(t, 0, b.Version())
}

func TestBufferRejectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := NewBuffer("abc")
	require.ErrorIs(t, b.ApplyEdit(ctx, Insert(0, "x")), context.Canceled)
	assert.Equal(t, "abc", b.Text())
}

func TestBufferTextRangeAndSelection(t *testing.T) {
	b := NewBuffer("hello world")
	got, err := b.TextRange(Range{6, 11})
	require.NoError(t, err)
	assert.Equal(t, "world", got)

	_, err = b.TextRange(Range{6, 12})
	assert.ErrorIs(t, err, ErrInvalidRange)

	require.NoError(t, b.SetSelection(Range{0, 5}))
	assert.Equal(t, Range{0, 5}, b.Selection())
	assert.ErrorIs(t, b.SetSelection(Range{3, 2}), ErrInvalidRange)
}

func TestRangeHelpers(t *testing.T) {
	assert.True(t, Caret(4).Empty())
	assert.Equal(t, 0, Range{5, 2}.Len())
	assert.Equal(t, 3, Range{2, 5}.Len())
	assert.True(t, Range{0, 4}.Overlaps(Range{3, 6}))
	assert.False(t, Range{0, 3}.Overlaps(Range{3, 6}))
	assert.Equal(t, "[2,5)", Range{2, 5}.String())
}

func TestOffsetAt(t *testing.T) {
	text := "ab\ncde\n\nf"
	cases := []struct {
		line, col, want int
	}{
		{1, 1, 0},
		{1, 3, 2},
		{2, 1, 3},
		{2, 3, 5},
		{2, 40, 6}, // clamps to end of line
		{3, 1, 7},
		{4, 1, 8},
		{4, 2, 9},
	}
	for _, tc := range cases {
		got, err := OffsetAt(text, tc.line, tc.col)
		require.NoError(t, err, "%d:%d", tc.line, tc.col)
		assert.Equal(t, tc.want, got, "%d:%d", tc.line, tc.col)
	}

	_, err := OffsetAt(text, 9, 1)
	assert.ErrorIs(t, err, ErrInvalidRange)
	_, err = OffsetAt(text, 0, 1)
	assert.Error(t, err)
}

func TestFilePersistsEdits(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.js")
	require.NoError(t, os.WriteFile(path, []byte("const a = 1;\n"), 0o600))

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, f.ApplyEdit(context.Background(), Insert(13, "const b = 2;\n")))
	require.NoError(t, f.ApplyEdit(context.Background(), Insert(0, "// gen\n")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "// gen\nconst a = 1;\nconst b = 2;\n", string(data))
	assert.Equal(t, string(data), f.Text())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileRejectsEditAfterExternalModification(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.js")
	require.NoError(t, os.WriteFile(path, []byte("one\n"), 0o644))

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, os.WriteFile(path, []byte("someone else\n"), 0o644))
	require.Eventually(t, f.changed.Load, 2*time.Second, 10*time.Millisecond)

	err = f.ApplyEdit(context.Background(), Insert(0, "x"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExternallyModified))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "someone else\n", string(data), "external content must not be overwritten")
}

func TestFileOpenDirectoryFails(t *testing.T) {
	_, err := Open(t.TempDir())
	assert.Error(t, err)
}
