package cli

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/aymanbagabas/go-udiff"
	"github.com/charmbracelet/x/ansi"
	"github.com/docker/go-units"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"

	"github.com/docker/themekit/pkg/themes/registry"
)

const (
	highlightFormatter = "terminal256"
	highlightStyle     = "monokai"
)

type Printer struct {
	out   io.Writer
	color bool

	bold func(format string, a ...any) string
	dim  func(format string, a ...any) string
	red  func(format string, a ...any) string
}

// NewPrinter returns a printer that colors its output when out is a
// terminal.
func NewPrinter(out io.Writer) *Printer {
	return NewPrinterWithColor(out, IsTerminal(out))
}

func NewPrinterWithColor(out io.Writer, enabled bool) *Printer {
	colorFunc := func(attrs ...color.Attribute) func(string, ...any) string {
		c := color.New(attrs...)
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c.SprintfFunc()
	}

	return &Printer{
		out:   out,
		color: enabled,
		bold:  colorFunc(color.Bold),
		dim:   colorFunc(color.Faint),
		red:   colorFunc(color.FgRed),
	}
}

// IsTerminal reports whether w writes to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (p *Printer) Println(a ...any) {
	fmt.Fprintln(p.out, a...)
}

func (p *Printer) Print(a ...any) {
	fmt.Fprint(p.out, a...)
}

func (p *Printer) Printf(format string, a ...any) {
	fmt.Fprintf(p.out, format, a...)
}

// PrintError prints an error message
func (p *Printer) PrintError(err error) {
	p.Printf("%s %s\n", p.red("error:"), err)
}

// PrintCSS prints a stylesheet, highlighted on terminals.
func (p *Printer) PrintCSS(css string) error {
	return p.highlight(css, "css")
}

// PrintDiff prints a unified diff between two versions of a stylesheet.
// Nothing is printed when they are equal.
func (p *Printer) PrintDiff(label, before, after string) error {
	edits := udiff.Strings(before, after)
	if len(edits) == 0 {
		return nil
	}
	diff, err := udiff.ToUnified(label+".orig", label, before, edits, 3)
	if err != nil {
		return err
	}
	return p.highlight(diff, "diff")
}

func (p *Printer) highlight(text, lexer string) error {
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	if !p.color {
		p.Print(text)
		return nil
	}
	return quick.Highlight(p.out, text, lexer, highlightFormatter, highlightStyle)
}

// PrintThemes prints one row per theme. Selected themes are marked with a
// star.
func (p *Printer) PrintThemes(themes []*registry.Theme, selected []string) {
	rows := [][]string{{"  NAME", "DISPLAY NAME", "MODE", "SOURCE"}}
	for _, t := range themes {
		marker := " "
		if slices.Contains(selected, t.Name) {
			marker = "*"
		}
		mode := "light"
		if t.Meta().Dark {
			mode = "dark"
		}
		rows = append(rows, []string{marker + " " + p.bold("%s", t.Name), t.DisplayName(), mode, p.dim("%s", t.Source.Path)})
	}
	p.printTable(rows)
}

// printTable left-aligns cells by their width on screen, so colored and
// wide (CJK, emoji) cells line up.
func (p *Printer) printTable(rows [][]string) {
	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], cellWidth(cell))
		}
	}

	var sb strings.Builder
	for _, row := range rows {
		for i, cell := range row {
			sb.WriteString(cell)
			if i == len(row)-1 {
				break
			}
			sb.WriteString(strings.Repeat(" ", widths[i]-cellWidth(cell)+columnGap))
		}
		sb.WriteByte('\n')
	}
	p.Print(sb.String())
}

const columnGap = 2

func cellWidth(s string) int {
	return runewidth.StringWidth(ansi.Strip(s))
}

// PrintTheme prints the details of a compiled theme.
func (p *Printer) PrintTheme(t *registry.Theme, rules int) {
	p.Printf("%s %s\n", p.bold("Name:"), t.Name)
	p.Printf("%s %s\n", p.bold("Display name:"), t.DisplayName())
	p.Printf("%s %s\n", p.bold("Source:"), t.Source.Path)
	p.Printf("%s %s\n", p.bold("Scope:"), t.ScopeClass)
	p.Printf("%s %t\n", p.bold("Dark:"), t.Meta().Dark)
	p.Printf("%s %d\n", p.bold("Rules:"), rules)
	p.Printf("%s %s\n", p.bold("Size:"), units.HumanSize(float64(len(t.CSS()))))

	if imports := t.Imports(); len(imports) > 0 {
		p.Printf("%s\n", p.bold("Imports:"))
		for _, imp := range imports {
			p.Printf("  %s\n", imp)
		}
	}
	if scrollbars := t.ScrollbarRules(); len(scrollbars) > 0 {
		p.Printf("%s\n", p.bold("Scrollbar rules:"))
		for _, rule := range scrollbars {
			p.Printf("  %s\n", rule)
		}
	}
}
