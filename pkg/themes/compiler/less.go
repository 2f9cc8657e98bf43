package compiler

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gorilla/css/scanner"
	"github.com/spf13/afero"
)

// Less compiles the subset of LESS that editor themes use: nesting with "&",
// variables, escaped strings, line comments, conditional at-rules and
// @import of other LESS files. Mixins, guards and operations are not
// evaluated.
type Less struct {
	fs afero.Fs
}

// NewLess returns a compiler that resolves imports through fs.
func NewLess(fs afero.Fs) *Less {
	return &Less{fs: fs}
}

func (l *Less) Compile(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.ScopeClass == "" {
		return nil, &CompileError{Path: req.SourcePath, Message: "missing scope class"}
	}

	nodes, err := parse(req.Content, req.SourcePath)
	if err != nil {
		return nil, err
	}

	imp := &importer{
		ctx:    ctx,
		fs:     l.fs,
		active: map[string]bool{filepath.Clean(req.SourcePath): true},
	}
	nodes, err = imp.expand(nodes, req.SourcePath)
	if err != nil {
		return nil, err
	}

	e := &emitter{path: req.SourcePath, hoisted: imp.hoisted}
	if err := e.block(nodes, []string{"." + req.ScopeClass}, nil, 0); err != nil {
		return nil, err
	}

	return &Result{CSS: e.css(), Imports: imp.imported}, nil
}

type importer struct {
	ctx      context.Context
	fs       afero.Fs
	active   map[string]bool
	imported []string
	hoisted  []string
}

// expand replaces LESS @import statements with the parsed content of the
// imported file. Plain CSS imports are hoisted to the top of the output.
func (imp *importer) expand(nodes []node, from string) ([]node, error) {
	out := make([]node, 0, len(nodes))
	for _, n := range nodes {
		switch n := n.(type) {
		case *atStatement:
			if n.name != "@import" {
				out = append(out, n)
				continue
			}
			target, css, err := importTarget(n, from)
			if err != nil {
				return nil, err
			}
			if css {
				imp.hoisted = append(imp.hoisted, "@import "+render(n.prelude)+";")
				continue
			}
			children, err := imp.load(n, target, from)
			if err != nil {
				return nil, err
			}
			out = append(out, children...)

		case *ruleset:
			children, err := imp.expand(n.children, from)
			if err != nil {
				return nil, err
			}
			n.children = children
			out = append(out, n)

		case *atBlock:
			children, err := imp.expand(n.children, from)
			if err != nil {
				return nil, err
			}
			n.children = children
			out = append(out, n)

		default:
			out = append(out, n)
		}
	}
	return out, nil
}

func (imp *importer) load(at *atStatement, target, from string) ([]node, error) {
	if err := imp.ctx.Err(); err != nil {
		return nil, err
	}
	fail := func(format string, args ...any) error {
		return &CompileError{Path: from, Line: at.at.Line, Column: at.at.Column, Message: fmt.Sprintf(format, args...)}
	}

	if imp.active[target] {
		return nil, fail("import cycle through %s", target)
	}

	data, err := afero.ReadFile(imp.fs, target)
	if err != nil {
		return nil, fail("cannot import %s: %v", target, err)
	}

	nodes, err := parse(string(data), target)
	if err != nil {
		return nil, err
	}

	if !slices.Contains(imp.imported, target) {
		imp.imported = append(imp.imported, target)
	}
	imp.active[target] = true
	defer delete(imp.active, target)

	return imp.expand(nodes, target)
}

// importTarget returns the file an @import refers to, and whether the import
// is plain CSS to be left to the browser.
func importTarget(st *atStatement, from string) (string, bool, error) {
	toks := st.prelude
	// Skip LESS import options such as (reference) or (less).
	if len(toks) > 0 && isChar(toks[0], "(") {
		for i, t := range toks {
			if isChar(t, ")") {
				toks = trimSpace(toks[i+1:])
				break
			}
		}
	}
	if len(toks) == 0 {
		return "", false, &CompileError{Path: from, Line: st.at.Line, Column: st.at.Column, Message: "@import without a target"}
	}

	var ref string
	switch t := toks[0]; t.Type {
	case scanner.TokenString:
		ref = unquote(t.Value)
	case scanner.TokenURI:
		return "", true, nil
	default:
		return "", false, &CompileError{Path: from, Line: t.Line, Column: t.Column, Message: fmt.Sprintf("unsupported @import target %q", t.Value)}
	}

	if isRemote(ref) || strings.EqualFold(path.Ext(ref), ".css") || len(toks) > 1 {
		// Media-qualified imports stay CSS imports too.
		return "", true, nil
	}
	if path.Ext(ref) == "" {
		ref += ".less"
	}
	if !filepath.IsAbs(ref) {
		ref = filepath.Join(filepath.Dir(from), filepath.FromSlash(ref))
	}
	return filepath.Clean(ref), false, nil
}

func isRemote(ref string) bool {
	return strings.HasPrefix(ref, "//") || strings.Contains(ref, "://")
}
