package compiler

import (
	"fmt"
	"strings"

	"github.com/gorilla/css/scanner"
)

// The parse tree of a LESS stylesheet. Token slices keep the raw scanner
// tokens so variables can be substituted at emit time, in the scope where
// they are used.
type (
	node interface{ pos() *scanner.Token }

	declaration struct {
		at       *scanner.Token
		property string
		value    []*scanner.Token
	}

	variable struct {
		at    *scanner.Token
		name  string
		value []*scanner.Token
	}

	atStatement struct {
		at      *scanner.Token
		name    string
		prelude []*scanner.Token
	}

	ruleset struct {
		at       *scanner.Token
		selector []*scanner.Token
		children []node
	}

	atBlock struct {
		at       *scanner.Token
		name     string
		prelude  []*scanner.Token
		children []node
	}
)

func (d *declaration) pos() *scanner.Token { return d.at }
func (v *variable) pos() *scanner.Token    { return v.at }
func (s *atStatement) pos() *scanner.Token { return s.at }
func (r *ruleset) pos() *scanner.Token     { return r.at }
func (b *atBlock) pos() *scanner.Token     { return b.at }

func isChar(t *scanner.Token, c string) bool {
	return t.Type == scanner.TokenChar && t.Value == c
}

// tokenize scans text, dropping block comments and LESS "//" line comments.
func tokenize(text, path string) ([]*scanner.Token, error) {
	s := scanner.New(text)
	var toks []*scanner.Token
	for {
		t := s.Next()
		switch t.Type {
		case scanner.TokenEOF:
			return append(dropLineComments(toks), t), nil
		case scanner.TokenError:
			return nil, &CompileError{
				Path:    path,
				Line:    t.Line,
				Column:  t.Column,
				Message: fmt.Sprintf("unrecognized input %q", t.Value),
			}
		case scanner.TokenComment:
			continue
		}
		toks = append(toks, t)
	}
}

func dropLineComments(toks []*scanner.Token) []*scanner.Token {
	out := toks[:0]
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if isChar(t, "/") && i+1 < len(toks) && isChar(toks[i+1], "/") &&
			toks[i+1].Line == t.Line && toks[i+1].Column == t.Column+1 {
			// Skip to the end of the line, keeping the newline itself.
			for i++; i < len(toks); i++ {
				if toks[i].Type == scanner.TokenS && strings.Contains(toks[i].Value, "\n") {
					out = append(out, toks[i])
					break
				}
			}
			continue
		}
		out = append(out, t)
	}
	return out
}

type parser struct {
	path string
	toks []*scanner.Token
	i    int
}

func parse(text, path string) ([]node, error) {
	toks, err := tokenize(text, path)
	if err != nil {
		return nil, err
	}
	p := &parser{path: path, toks: toks}
	return p.block(nil)
}

func (p *parser) errorf(at *scanner.Token, format string, args ...any) error {
	return &CompileError{Path: p.path, Line: at.Line, Column: at.Column, Message: fmt.Sprintf(format, args...)}
}

// block parses statements until the closing brace of open, or until EOF
// when open is nil.
func (p *parser) block(open *scanner.Token) ([]node, error) {
	var (
		nodes   []node
		pending []*scanner.Token
		depth   int
	)

	flush := func() error {
		n, err := p.statement(pending)
		pending = nil
		if err != nil || n == nil {
			return err
		}
		nodes = append(nodes, n)
		return nil
	}

	for {
		t := p.toks[p.i]
		p.i++

		switch {
		case t.Type == scanner.TokenEOF:
			if open != nil {
				return nil, p.errorf(open, "missing closing '}'")
			}
			if depth != 0 {
				return nil, p.errorf(t, "unbalanced parentheses")
			}
			return nodes, flush()

		case t.Type == scanner.TokenFunction, isChar(t, "("), isChar(t, "["):
			depth++
			pending = append(pending, t)

		case isChar(t, ")"), isChar(t, "]"):
			depth--
			if depth < 0 {
				return nil, p.errorf(t, "unexpected %q", t.Value)
			}
			pending = append(pending, t)

		case depth == 0 && isChar(t, "{"):
			header := trimSpace(pending)
			pending = nil
			children, err := p.block(t)
			if err != nil {
				return nil, err
			}
			n, err := p.blockNode(t, header, children)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, n)

		case depth == 0 && isChar(t, ";"):
			if err := flush(); err != nil {
				return nil, err
			}

		case depth == 0 && isChar(t, "}"):
			if open == nil {
				return nil, p.errorf(t, "unexpected '}'")
			}
			return nodes, flush()

		default:
			pending = append(pending, t)
		}
	}
}

func (p *parser) blockNode(open *scanner.Token, header []*scanner.Token, children []node) (node, error) {
	if len(header) == 0 {
		return nil, p.errorf(open, "missing selector before '{'")
	}
	if first := header[0]; first.Type == scanner.TokenAtKeyword {
		return &atBlock{
			at:       first,
			name:     strings.ToLower(first.Value),
			prelude:  trimSpace(header[1:]),
			children: children,
		}, nil
	}
	return &ruleset{at: header[0], selector: header, children: children}, nil
}

// statement classifies the tokens between two statement boundaries. An
// empty statement yields a nil node.
func (p *parser) statement(toks []*scanner.Token) (node, error) {
	toks = trimSpace(toks)
	if len(toks) == 0 {
		return nil, nil
	}

	first := toks[0]
	if first.Type == scanner.TokenAtKeyword {
		rest := trimSpace(toks[1:])
		if len(rest) > 0 && isChar(rest[0], ":") {
			return &variable{at: first, name: first.Value[1:], value: trimSpace(rest[1:])}, nil
		}
		return &atStatement{at: first, name: strings.ToLower(first.Value), prelude: rest}, nil
	}

	colon := -1
	for i, t := range toks {
		if isChar(t, ":") {
			colon = i
			break
		}
	}
	if colon <= 0 {
		return nil, p.errorf(first, "unsupported statement %q; mixin calls are not supported", render(toks))
	}

	property := render(toks[:colon])
	if property == "" {
		return nil, p.errorf(first, "missing property name")
	}
	return &declaration{at: first, property: property, value: trimSpace(toks[colon+1:])}, nil
}

func trimSpace(toks []*scanner.Token) []*scanner.Token {
	for len(toks) > 0 && toks[0].Type == scanner.TokenS {
		toks = toks[1:]
	}
	for len(toks) > 0 && toks[len(toks)-1].Type == scanner.TokenS {
		toks = toks[:len(toks)-1]
	}
	return toks
}

// render joins raw token text, collapsing whitespace runs to one space.
func render(toks []*scanner.Token) string {
	var sb strings.Builder
	toks = trimSpace(toks)
	for i, t := range toks {
		if t.Type == scanner.TokenS {
			if toks[i-1].Type != scanner.TokenS {
				sb.WriteByte(' ')
			}
			continue
		}
		sb.WriteString(t.Value)
	}
	return sb.String()
}

// splitTopLevel splits toks at commas outside parentheses and brackets.
func splitTopLevel(toks []*scanner.Token) [][]*scanner.Token {
	var (
		parts [][]*scanner.Token
		start int
		depth int
	)
	for i, t := range toks {
		switch {
		case t.Type == scanner.TokenFunction, isChar(t, "("), isChar(t, "["):
			depth++
		case isChar(t, ")"), isChar(t, "]"):
			depth--
		case depth == 0 && isChar(t, ","):
			parts = append(parts, toks[start:i])
			start = i + 1
		}
	}
	return append(parts, toks[start:])
}
