package document

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// File is a Buffer persisted to disk after every edit. The parent directory is
// watched so that an edit made by another program is detected before the next
// write instead of being silently overwritten.
type File struct {
	buf     Buffer
	path    string
	mode    os.FileMode
	written [sha256.Size]byte // hash of the content this document last saw on disk

	changed atomic.Bool
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Open loads path and starts watching it.
func Open(path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("open document: %s is a directory", abs)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch document: %w", err)
	}
	// Watch the directory: atomic saves replace the file, which would drop a
	// watch placed on the file itself.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch document: %w", err)
	}

	f := &File{
		buf:     Buffer{text: string(data)},
		path:    abs,
		mode:    info.Mode().Perm(),
		written: sha256.Sum256(data),
		watcher: watcher,
		done:    make(chan struct{}),
	}
	go f.watch()
	return f, nil
}

func (f *File) watch() {
	defer close(f.done)
	for {
		select {
		case event, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != f.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				f.changed.Store(true)
			}
		case _, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			// Missed events are caught by the hash check on the next edit.
			f.changed.Store(true)
		}
	}
}

// Path returns the absolute path of the document.
func (f *File) Path() string { return f.path }

func (f *File) Text() string { return f.buf.Text() }

func (f *File) TextRange(r Range) (string, error) { return f.buf.TextRange(r) }

func (f *File) Selection() Range { return f.buf.Selection() }

func (f *File) SetSelection(r Range) error { return f.buf.SetSelection(r) }

// ApplyEdit applies ops and writes the result to disk atomically. The edit is
// rejected with ErrExternallyModified if the file changed since the document
// last read or wrote it.
func (f *File) ApplyEdit(ctx context.Context, ops ...Op) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.buf.mu.Lock()
	defer f.buf.mu.Unlock()

	if f.changed.Swap(false) {
		onDisk, err := os.ReadFile(f.path)
		if err != nil {
			return fmt.Errorf("%s: %w: %v", f.path, ErrExternallyModified, err)
		}
		if sha256.Sum256(onDisk) != f.written {
			f.changed.Store(true)
			return fmt.Errorf("%s: %w", f.path, ErrExternallyModified)
		}
	}

	next, caret, err := apply(f.buf.text, ops)
	if err != nil {
		return err
	}
	if err := writeAtomic(f.path, []byte(next), f.mode); err != nil {
		return err
	}
	f.written = sha256.Sum256([]byte(next))
	f.buf.text = next
	if len(ops) > 0 {
		f.buf.selection = caret
	}
	f.buf.version++
	return nil
}

// Close stops watching the file.
func (f *File) Close() error {
	err := f.watcher.Close()
	<-f.done
	return err
}

// writeAtomic writes data via a temp file in the same directory + os.Rename.
func writeAtomic(path string, data []byte, mode os.FileMode) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".codeweave-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err = tmp.Chmod(mode); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}
