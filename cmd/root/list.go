package root

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/docker/themekit/pkg/cli"
	"github.com/docker/themekit/pkg/themes"
	"github.com/docker/themekit/pkg/userconfig"
)

func newListCmd() *cobra.Command {
	var flags themeFlags

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List available themes",
		Long:    "List the themes found in the themes directories. Selected themes are marked with a star.",
		Example: `  themekit list
  themekit list --themes ./themes --glob '**/*.less'`,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runListCommand(cmd, &flags)
		},
	}

	addThemeFlags(cmd, &flags)

	return cmd
}

func runListCommand(cmd *cobra.Command, flags *themeFlags) error {
	ctx := cmd.Context()
	out := cli.NewPrinter(cmd.OutOrStdout())

	prefsPath, err := flags.preferencesPath()
	if err != nil {
		return err
	}
	prefs, err := userconfig.Load(prefsPath, nil)
	if err != nil {
		return fmt.Errorf("failed to load preferences: %w", err)
	}

	// Listing never compiles, so nothing is selected here.
	m, err := themes.New(themes.Options{Preferences: fixedPreferences{}})
	if err != nil {
		return err
	}
	defer m.Close()

	_, loadErr := flags.loadThemes(ctx, m)

	if all := m.Themes(); len(all) > 0 {
		out.PrintThemes(all, prefs.Themes())
	} else if loadErr == nil {
		out.Println("No themes found")
	}

	if loadErr != nil {
		cli.NewPrinter(cmd.ErrOrStderr()).PrintError(loadErr)
		return RuntimeError{Err: loadErr}
	}
	return nil
}
