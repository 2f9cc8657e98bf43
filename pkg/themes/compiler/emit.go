package compiler

import (
	"fmt"
	"strings"

	"github.com/gorilla/css/scanner"
)

type scope struct {
	parent *scope
	vars   map[string]*variable
}

// newScope collects the variables declared directly in children. Later
// definitions win, wherever the use site is.
func newScope(parent *scope, children []node) *scope {
	s := &scope{parent: parent}
	for _, n := range children {
		if v, ok := n.(*variable); ok {
			if s.vars == nil {
				s.vars = make(map[string]*variable)
			}
			s.vars[v.name] = v
		}
	}
	return s
}

func (s *scope) lookup(name string) (*variable, bool) {
	for ; s != nil; s = s.parent {
		if v, ok := s.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

type emitter struct {
	path    string
	hoisted []string
	out     strings.Builder
}

func (e *emitter) errorf(at *scanner.Token, format string, args ...any) error {
	return &CompileError{Path: e.path, Line: at.Line, Column: at.Column, Message: fmt.Sprintf(format, args...)}
}

// value renders toks with variables substituted from s.
func (e *emitter) value(toks []*scanner.Token, s *scope) (string, error) {
	var sb strings.Builder
	if err := e.writeValue(&sb, trimSpace(toks), s, nil); err != nil {
		return "", err
	}
	return strings.TrimSpace(sb.String()), nil
}

func (e *emitter) writeValue(sb *strings.Builder, toks []*scanner.Token, s *scope, resolving map[string]bool) error {
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		switch {
		case t.Type == scanner.TokenS:
			if i > 0 && toks[i-1].Type != scanner.TokenS {
				sb.WriteByte(' ')
			}

		case t.Type == scanner.TokenAtKeyword:
			name := t.Value[1:]
			v, ok := s.lookup(name)
			if !ok {
				return e.errorf(t, "variable @%s is undefined", name)
			}
			if resolving[name] {
				return e.errorf(t, "recursive variable definition for @%s", name)
			}
			if resolving == nil {
				resolving = make(map[string]bool)
			}
			resolving[name] = true
			err := e.writeValue(sb, v.value, s, resolving)
			delete(resolving, name)
			if err != nil {
				return err
			}

		case isChar(t, "~") && i+1 < len(toks) && toks[i+1].Type == scanner.TokenString:
			// ~"..." is an escaped string: emitted without its quotes.
			i++
			sb.WriteString(unquote(toks[i].Value))

		default:
			sb.WriteString(t.Value)
		}
	}
	return nil
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// selectors resolves a ruleset selector list against its parents. A child
// containing "&" substitutes each parent for it; any other child becomes a
// descendant of each parent.
func (e *emitter) selectors(r *ruleset, parents []string, s *scope) ([]string, error) {
	var children []string
	for _, part := range splitTopLevel(r.selector) {
		sel, err := e.value(part, s)
		if err != nil {
			return nil, err
		}
		if sel == "" {
			return nil, e.errorf(r.at, "empty selector in list")
		}
		children = append(children, sel)
	}

	if len(parents) == 0 {
		for i, c := range children {
			children[i] = strings.TrimSpace(strings.ReplaceAll(c, "&", ""))
		}
		return children, nil
	}

	combined := make([]string, 0, len(parents)*len(children))
	for _, p := range parents {
		for _, c := range children {
			if strings.Contains(c, "&") {
				combined = append(combined, strings.ReplaceAll(c, "&", p))
			} else {
				combined = append(combined, p+" "+c)
			}
		}
	}
	return combined, nil
}

// block writes the rules of children nested under selectors.
func (e *emitter) block(children []node, selectors []string, parent *scope, depth int) error {
	s := newScope(parent, children)

	var decls []string
	for _, n := range children {
		d, ok := n.(*declaration)
		if !ok {
			continue
		}
		if len(selectors) == 0 {
			return e.errorf(d.at, "declaration %q outside of a rule", d.property)
		}
		v, err := e.value(d.value, s)
		if err != nil {
			return err
		}
		decls = append(decls, d.property+": "+v)
	}
	if len(decls) > 0 {
		e.rule(strings.Join(selectors, ",\n"+indent(depth)), decls, depth)
	}

	for _, n := range children {
		switch n := n.(type) {
		case *ruleset:
			sels, err := e.selectors(n, selectors, s)
			if err != nil {
				return err
			}
			if err := e.block(n.children, sels, s, depth); err != nil {
				return err
			}
		case *atBlock:
			if err := e.atBlock(n, selectors, s, depth); err != nil {
				return err
			}
		case *atStatement:
			if err := e.atStatement(n, s); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *emitter) atBlock(b *atBlock, selectors []string, s *scope, depth int) error {
	prelude, err := e.value(b.prelude, s)
	if err != nil {
		return err
	}
	header := b.name
	if prelude != "" {
		header += " " + prelude
	}

	switch unprefixed(b.name) {
	case "@media", "@supports", "@document", "@container", "@layer":
		// Conditional groups bubble up and keep the enclosing selectors.
		e.out.WriteString(indent(depth) + header + " {\n")
		if err := e.block(b.children, selectors, s, depth+1); err != nil {
			return err
		}
		e.out.WriteString(indent(depth) + "}\n")
		return nil

	case "@keyframes":
		e.out.WriteString(indent(depth) + header + " {\n")
		if err := e.block(b.children, nil, s, depth+1); err != nil {
			return err
		}
		e.out.WriteString(indent(depth) + "}\n")
		return nil

	default:
		// @font-face, @page and friends hold descriptors, not rules.
		inner := newScope(s, b.children)
		var decls []string
		for _, n := range b.children {
			switch n := n.(type) {
			case *declaration:
				v, err := e.value(n.value, inner)
				if err != nil {
					return err
				}
				decls = append(decls, n.property+": "+v)
			case *variable:
			default:
				return e.errorf(n.pos(), "unexpected nested block in %s", b.name)
			}
		}
		e.rule(header, decls, depth)
		return nil
	}
}

func (e *emitter) atStatement(st *atStatement, s *scope) error {
	prelude, err := e.value(st.prelude, s)
	if err != nil {
		return err
	}
	if prelude != "" {
		prelude = " " + prelude
	}
	e.hoisted = append(e.hoisted, st.name+prelude+";")
	return nil
}

func (e *emitter) rule(header string, decls []string, depth int) {
	pad := indent(depth)
	e.out.WriteString(pad + header + " {\n")
	for _, d := range decls {
		e.out.WriteString(pad + "  " + d + ";\n")
	}
	e.out.WriteString(pad + "}\n")
}

func (e *emitter) css() string {
	if len(e.hoisted) == 0 {
		return e.out.String()
	}
	return strings.Join(e.hoisted, "\n") + "\n" + e.out.String()
}

func indent(depth int) string {
	return strings.Repeat("  ", depth)
}

// unprefixed drops a vendor prefix: "@-webkit-keyframes" is "@keyframes".
func unprefixed(name string) string {
	if strings.HasPrefix(name, "@-") {
		if i := strings.IndexByte(name[2:], '-'); i >= 0 {
			return "@" + name[2+i+1:]
		}
	}
	return name
}
