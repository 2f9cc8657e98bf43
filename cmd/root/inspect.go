package root

import (
	"fmt"

	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
	"github.com/spf13/cobra"

	"github.com/docker/themekit/pkg/cli"
	"github.com/docker/themekit/pkg/themes"
	"github.com/docker/themekit/pkg/themes/registry"
)

type inspectFlags struct {
	themeFlags
	showCSS bool
}

func newInspectCmd() *cobra.Command {
	var flags inspectFlags

	cmd := &cobra.Command{
		Use:   "inspect <name|file|package-dir>",
		Short: "Compile a theme and show what it contributes",
		Long:  "Compile a single theme and show its scope class, rule count, imports and scrollbar rules",
		Example: `  themekit inspect dark --themes ./themes
  themekit inspect ./themes/dark.less --css`,
		GroupID: "advanced",
		Args:    cobra.ExactArgs(1),
		RunE:    flags.runInspectCommand,
	}

	addThemeFlags(cmd, &flags.themeFlags)
	cmd.Flags().BoolVar(&flags.showCSS, "css", false, "Also print the compiled CSS")

	return cmd
}

func (f *inspectFlags) runInspectCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cli.NewPrinter(cmd.OutOrStdout())

	m, err := themes.New(themes.Options{Preferences: fixedPreferences{}})
	if err != nil {
		return err
	}
	defer m.Close()

	theme, err := f.resolve(cmd, m, args[0])
	if err != nil {
		return err
	}
	if err := m.Compile(ctx, theme); err != nil {
		return err
	}

	rules, err := countRules(theme.CSS())
	if err != nil {
		return fmt.Errorf("compiled CSS of %s does not parse: %w", theme.Name, err)
	}

	out.PrintTheme(theme, rules)
	if f.showCSS {
		out.Println()
		return out.PrintCSS(theme.CSS())
	}
	return nil
}

// resolve treats arg as a registered theme name first, then as a path.
func (f *inspectFlags) resolve(cmd *cobra.Command, m *themes.Manager, arg string) (*registry.Theme, error) {
	if isPackageDir(arg) || looksLikePath(arg) {
		loaded, err := loadSources(cmd.Context(), m, []string{arg})
		if err != nil {
			return nil, err
		}
		return loaded[0], nil
	}

	if _, err := f.loadThemes(cmd.Context(), m); err != nil {
		return nil, err
	}
	theme, ok := m.Lookup(arg)
	if !ok {
		return nil, fmt.Errorf("theme %q not found", arg)
	}
	return theme, nil
}

// countRules counts style rules, including the ones nested in at-rules.
func countRules(text string) (int, error) {
	sheet, err := parser.Parse(text)
	if err != nil {
		return 0, err
	}
	return countNested(sheet.Rules), nil
}

func countNested(rules []*css.Rule) int {
	n := 0
	for _, r := range rules {
		if r.EmbedsRules() {
			n += countNested(r.Rules)
			continue
		}
		if r.Kind == css.QualifiedRule {
			n++
		}
	}
	return n
}
