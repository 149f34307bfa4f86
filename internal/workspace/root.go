package workspace

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/fakeyudi/codeweave/internal/config"
	"github.com/fakeyudi/codeweave/internal/logging"
)

// GitRunner executes a git command in dir and returns its output.
// This abstraction allows mocking in tests.
type GitRunner func(ctx context.Context, dir string, args ...string) (string, error)

// defaultGitRunner runs git as a real subprocess.
func defaultGitRunner(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	return string(out), err
}

// FindRoot returns the workspace root for a document in dir: the enclosing
// git work tree if there is one, else the nearest ancestor holding a project
// config file, else dir itself.
func FindRoot(ctx context.Context, dir string, run GitRunner) string {
	if run == nil {
		run = defaultGitRunner
	}
	out, err := run(ctx, dir, "rev-parse", "--show-toplevel")
	switch {
	case err == nil:
		if top := strings.TrimSpace(out); top != "" {
			return top
		}
	case isExitCode128(err):
		// not a git repository
	default:
		logging.Get().Debug("git unavailable", "dir", dir, "error", err)
	}

	for d := dir; ; {
		if _, err := os.Stat(filepath.Join(d, config.ProjectFile)); err == nil {
			return d
		}
		parent := filepath.Dir(d)
		if parent == d {
			break
		}
		d = parent
	}
	return dir
}

// isExitCode128 reports whether err is an *exec.ExitError with exit code 128.
func isExitCode128(err error) bool {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode() == 128
	}
	return false
}
