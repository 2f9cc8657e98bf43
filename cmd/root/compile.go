package root

import (
	"github.com/spf13/cobra"

	"github.com/docker/themekit/pkg/cli"
	"github.com/docker/themekit/pkg/themes"
)

type compileFlags struct {
	scrollbars bool
	noColor    bool
}

func newCompileCmd() *cobra.Command {
	var flags compileFlags

	cmd := &cobra.Command{
		Use:   "compile <file|package-dir>...",
		Short: "Compile themes and print the scoped CSS",
		Long:  "Compile CSS or LESS themes, or theme packages, and print the CSS scoped to each theme's class",
		Example: `  themekit compile ./themes/dark.less
  themekit compile --scrollbars ./extensions/night-owl`,
		GroupID: "core",
		Args:    cobra.MinimumNArgs(1),
		RunE:    flags.runCompileCommand,
	}

	cmd.Flags().BoolVar(&flags.scrollbars, "scrollbars", false, "Also print the extracted scrollbar rules")
	cmd.Flags().BoolVar(&flags.noColor, "no-color", false, "Disable syntax highlighting")

	return cmd
}

func (f *compileFlags) runCompileCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	out := cli.NewPrinter(cmd.OutOrStdout())
	if f.noColor {
		out = cli.NewPrinterWithColor(cmd.OutOrStdout(), false)
	}

	m, err := themes.New(themes.Options{Preferences: fixedPreferences{}})
	if err != nil {
		return err
	}
	defer m.Close()

	loaded, err := loadSources(ctx, m, args)
	if err != nil {
		return err
	}

	for i, theme := range loaded {
		if err := m.Compile(ctx, theme); err != nil {
			return err
		}

		if len(loaded) > 1 {
			if i > 0 {
				out.Println()
			}
			out.Printf("/* %s */\n", theme.Name)
		}
		if err := out.PrintCSS(theme.CSS()); err != nil {
			return err
		}
		if f.scrollbars {
			for _, rule := range theme.ScrollbarRules() {
				out.Println(rule)
			}
		}
	}
	return nil
}
