// Package compiler turns theme source into scoped plain CSS.
package compiler

import (
	"context"
	"fmt"
)

// Request is one compilation of theme content.
type Request struct {
	// Content is the theme source, already stripped of comments and
	// scrollbar rules.
	Content string
	// ScopeClass is the class every compiled rule is nested under.
	ScopeClass string
	// SourcePath is the file the content came from. Relative imports
	// resolve against its directory.
	SourcePath string
}

// Result is the outcome of a successful compilation.
type Result struct {
	CSS string
	// Imports lists the files inlined while compiling, in the order they
	// were first read.
	Imports []string
}

// Compiler compiles theme source into CSS.
//
// Malformed input is reported as a *CompileError, never as a panic.
type Compiler interface {
	Compile(ctx context.Context, req Request) (*Result, error)
}

// CompileError is a diagnostic from the preprocessor.
type CompileError struct {
	Path    string
	Line    int
	Column  int
	Message string
}

func (e *CompileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}
