// Package logging provides the size-rotated file themekit writes debug logs
// to.
package logging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

const (
	DefaultMaxSize    = 10 * 1024 * 1024 // 10MB
	DefaultMaxBackups = 3
)

// RotatingFile is an io.WriteCloser that moves the log aside to <path>.1
// once a write would take it past the size limit. Older backups shift to
// <path>.2 and so on, up to the backup limit.
type RotatingFile struct {
	fs         afero.Fs
	path       string
	maxSize    int64
	maxBackups int

	mu   sync.Mutex
	file afero.File
	size int64
}

type Option func(*RotatingFile)

func WithMaxSize(size int64) Option {
	return func(r *RotatingFile) {
		r.maxSize = size
	}
}

func WithMaxBackups(count int) Option {
	return func(r *RotatingFile) {
		r.maxBackups = count
	}
}

// WithFs writes the log through fs instead of the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(r *RotatingFile) {
		r.fs = fs
	}
}

// NewRotatingFile opens path for appending, creating its directory.
func NewRotatingFile(path string, opts ...Option) (*RotatingFile, error) {
	r := &RotatingFile{
		fs:         afero.NewOsFs(),
		path:       path,
		maxSize:    DefaultMaxSize,
		maxBackups: DefaultMaxBackups,
	}
	for _, opt := range opts {
		opt(r)
	}

	if err := r.fs.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	if err := r.open(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *RotatingFile) open() error {
	f, err := r.fs.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return fmt.Errorf("opening log file: %w", err)
	}

	r.file = f
	r.size = info.Size()
	return nil
}

func (r *RotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return 0, os.ErrClosed
	}
	if r.size > 0 && r.size+int64(len(p)) > r.maxSize {
		if err := r.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := r.file.Write(p)
	r.size += int64(n)
	return n, err
}

func (r *RotatingFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

func (r *RotatingFile) backup(n int) string {
	return fmt.Sprintf("%s.%d", r.path, n)
}

func (r *RotatingFile) rotate() error {
	if err := r.file.Close(); err != nil {
		return err
	}
	r.file = nil

	if r.maxBackups > 0 {
		_ = r.fs.Remove(r.backup(r.maxBackups))
		for n := r.maxBackups - 1; n >= 1; n-- {
			_ = r.fs.Rename(r.backup(n), r.backup(n+1))
		}
		if err := r.fs.Rename(r.path, r.backup(1)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	} else if err := r.fs.Remove(r.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	r.size = 0
	return r.open()
}
