// Package workspace indexes the files of a project and finds where the
// symbols a document imports are defined.
package workspace

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
	"golang.org/x/sync/errgroup"

	"github.com/fakeyudi/codeweave/internal/logging"
)

const (
	// DefaultMaxFileSize is used when Indexer.MaxFileSize is zero.
	DefaultMaxFileSize int64 = 1 << 20
	// DefaultConcurrency is used when Indexer.Concurrency is zero.
	DefaultConcurrency = 8
)

// builtinExcludes are always ignored.
var builtinExcludes = []string{"node_modules", ".git"}

// ignoreFiles are read from the workspace root and merged with the
// configured patterns.
var ignoreFiles = []string{".gitignore", ".codeweaveignore"}

// ContextReadError reports a file that could not be read while building the
// tree. It is a warning: the file is skipped and indexing continues.
type ContextReadError struct {
	Path string
	Err  error
}

func (e *ContextReadError) Error() string {
	return fmt.Sprintf("failed to read %s: %v", e.Path, e.Err)
}

func (e *ContextReadError) Unwrap() error { return e.Err }

// Result holds the non-fatal outcome of BuildTree.
type Result struct {
	Warnings   []string            // human readable, one per skipped file or ignore file
	ReadErrors []*ContextReadError // the files skipped because they could not be read
	Err        error               // set when the walk was aborted, e.g. by cancellation
}

// Indexer builds a Tree from a file system.
type Indexer struct {
	FS          fs.FS
	Exclude     []string // gitignore-style patterns
	MaxFileSize int64
	Concurrency int
	Logger      *slog.Logger
}

type fileJob struct {
	path    string
	content string
	ok      bool
}

// BuildTree walks every non-excluded file of FS. Files are read concurrently
// but folded into the tree in walk order. Unreadable and oversized files are
// skipped with a warning. On cancellation the partial tree is returned with
// ctx.Err() in Result.Err.
func (ix *Indexer) BuildTree(ctx context.Context) (*Tree, Result) {
	log := ix.logger()
	var res Result
	tree := newTree()

	rules, warnings := ix.ignoreRules()
	res.Warnings = append(res.Warnings, warnings...)

	skip := func(path string, err error) {
		rerr := &ContextReadError{Path: path, Err: err}
		res.ReadErrors = append(res.ReadErrors, rerr)
		res.Warnings = append(res.Warnings, rerr.Error())
		log.Warn("skipping unreadable file", "path", path, "error", err)
	}

	maxSize := ix.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}

	var jobs []*fileJob
	walkErr := fs.WalkDir(ix.FS, ".", func(path string, d fs.DirEntry, err error) error {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if err != nil {
			if path == "." {
				return err
			}
			skip(path, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if path == "." {
			return nil
		}
		if d.IsDir() {
			if rules.MatchesPath(path) || rules.MatchesPath(path+"/") {
				return fs.SkipDir
			}
			return nil
		}
		if rules.MatchesPath(path) || !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			skip(path, err)
			return nil
		}
		if info.Size() > maxSize {
			msg := fmt.Sprintf("skipped %s: %d bytes exceeds the %d byte limit", path, info.Size(), maxSize)
			res.Warnings = append(res.Warnings, msg)
			log.Debug("skipping large file", "path", path, "size", info.Size())
			return nil
		}
		jobs = append(jobs, &fileJob{path: path})
		return nil
	})
	if walkErr != nil {
		res.Err = walkErr
	}

	limit := ix.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	errs := make([]error, len(jobs))
	for i, job := range jobs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := fs.ReadFile(ix.FS, job.path)
			if err != nil {
				errs[i] = err
				return nil
			}
			job.content = string(data)
			job.ok = true
			return nil
		})
	}
	if err := g.Wait(); err != nil && res.Err == nil {
		res.Err = err
	}
	if res.Err == nil && ctx.Err() != nil {
		res.Err = ctx.Err()
	}

	for i, job := range jobs {
		if errs[i] != nil {
			skip(job.path, errs[i])
			continue
		}
		if !job.ok {
			continue
		}
		if !tree.add(job.path, job.content) {
			res.Warnings = append(res.Warnings, "skipped "+job.path+": path conflicts with an existing node")
		}
	}

	log.Debug("workspace indexed", "files", tree.Len(), "warnings", len(res.Warnings))
	return tree, res
}

// ignoreRules compiles the built-in, configured and ignore-file patterns.
// A malformed or unreadable ignore file is reported as a warning.
func (ix *Indexer) ignoreRules() (*ignore.GitIgnore, []string) {
	lines := append([]string{}, builtinExcludes...)
	lines = append(lines, ix.Exclude...)

	var warnings []string
	for _, name := range ignoreFiles {
		extra, err := readPatternFile(ix.FS, name)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			warnings = append(warnings, "failed to load ignore patterns: "+err.Error())
			continue
		}
		lines = append(lines, extra...)
	}
	return ignore.CompileIgnoreLines(lines...), warnings
}

// readPatternFile reads a gitignore-style file and returns non-empty,
// non-comment lines.
func readPatternFile(fsys fs.FS, name string) ([]string, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	var patterns []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns, scanner.Err()
}

func (ix *Indexer) logger() *slog.Logger {
	if ix.Logger != nil {
		return ix.Logger
	}
	return logging.Get()
}
