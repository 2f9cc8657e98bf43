package loader

import (
	"errors"
	"fmt"
	"io/fs"
)

// ErrNotFound is matched by an *IOError whose source file does not exist.
var ErrNotFound = errors.New("theme source not found")

// IOError reports a failed existence check or read of a theme source.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

func (e *IOError) Is(target error) bool {
	return target == ErrNotFound && errors.Is(e.Err, fs.ErrNotExist)
}

// ListingError reports a directory that could not be listed.
type ListingError struct {
	Path string
	Err  error
}

func (e *ListingError) Error() string {
	return fmt.Sprintf("listing %s: %v", e.Path, e.Err)
}

func (e *ListingError) Unwrap() error {
	return e.Err
}

// ConfigError reports a call made with a missing or invalid argument. It is
// returned before the filesystem is touched.
type ConfigError struct {
	Op  string
	Msg string
}

func (e *ConfigError) Error() string {
	return e.Op + ": " + e.Msg
}
