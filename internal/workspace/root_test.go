package workspace

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fakeyudi/codeweave/internal/config"
)

// exitCode128Error returns a real *exec.ExitError with exit code 128.
func exitCode128Error(t *testing.T) error {
	t.Helper()
	err := exec.Command("sh", "-c", "exit 128").Run()
	require.Error(t, err)
	return err
}

func TestFindRootUsesGitTopLevel(t *testing.T) {
	var gotDir string
	var gotArgs []string
	runner := func(_ context.Context, dir string, args ...string) (string, error) {
		gotDir, gotArgs = dir, args
		return "/repo\n", nil
	}
	assert.Equal(t, "/repo", FindRoot(context.Background(), "/repo/src/app", runner))
	assert.Equal(t, "/repo/src/app", gotDir)
	assert.Equal(t, []string{"rev-parse", "--show-toplevel"}, gotArgs)
}

func TestFindRootFallsBackToProjectConfig(t *testing.T) {
	base := t.TempDir()
	nested := filepath.Join(base, "pkg", "web")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(base, config.ProjectFile), []byte("{}"), 0o644))

	notRepo := exitCode128Error(t)
	runner := func(context.Context, string, ...string) (string, error) { return "", notRepo }
	assert.Equal(t, base, FindRoot(context.Background(), nested, runner))
}

func TestFindRootDefaultsToDir(t *testing.T) {
	dir := t.TempDir()
	runner := func(context.Context, string, ...string) (string, error) {
		return "", errors.New(`exec: "git": executable file not found in $PATH`)
	}
	assert.Equal(t, dir, FindRoot(context.Background(), dir, runner))
}
