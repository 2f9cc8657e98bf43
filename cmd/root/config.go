package root

import (
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/docker/themekit/pkg/cli"
	"github.com/docker/themekit/pkg/themes/events"
	"github.com/docker/themekit/pkg/userconfig"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage user preferences",
		Long:  "View and manage the preferences themekit reacts to, stored in ~/.config/themekit/config.yaml",
		Example: `  # Show the current preferences
  themekit config show

  # Select themes in priority order
  themekit config set themes dark,default

  # Show the path to the config file
  themekit config path`,
		GroupID: "advanced",
		RunE:    runConfigShowCommand,
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())
	cmd.AddCommand(newConfigGetCmd())
	cmd.AddCommand(newConfigSetCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current preferences",
		Long:  "Display the stored preferences in YAML format",
		Args:  cobra.NoArgs,
		RunE:  runConfigShowCommand,
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show the path to the config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigPathCommand,
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "get <key>",
		Short:     "Print the effective value of a preference",
		Args:      cobra.ExactArgs(1),
		ValidArgs: preferenceKeys(),
		RunE:      runConfigGetCommand,
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change a preference",
		Long:  "Change a preference. Valid keys are " + strings.Join(preferenceKeys(), ", ") + ".",
		Args:  cobra.ExactArgs(2),
		RunE:  runConfigSetCommand,
	}
}

func preferenceKeys() []string {
	keys := make([]string, 0, len(events.PreferenceTopics))
	for _, t := range events.PreferenceTopics {
		keys = append(keys, string(t))
	}
	return keys
}

func runConfigShowCommand(cmd *cobra.Command, _ []string) error {
	out := cli.NewPrinter(cmd.OutOrStdout())

	config, err := userconfig.Load(userconfig.Path(), nil)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	data, err := yaml.MarshalWithOptions(config, yaml.IndentSequence(true), yaml.UseSingleQuote(false))
	if err != nil {
		return fmt.Errorf("failed to format config: %w", err)
	}

	out.Print(string(data))
	return nil
}

func runConfigPathCommand(cmd *cobra.Command, _ []string) error {
	out := cli.NewPrinter(cmd.OutOrStdout())
	out.Println(userconfig.Path())
	return nil
}

func runConfigGetCommand(cmd *cobra.Command, args []string) error {
	out := cli.NewPrinter(cmd.OutOrStdout())

	key, err := preferenceKey(args[0])
	if err != nil {
		return err
	}
	config, err := userconfig.Load(userconfig.Path(), nil)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	value, err := config.Get(key)
	if err != nil {
		return err
	}

	if names, ok := value.([]string); ok {
		out.Println(strings.Join(names, ","))
		return nil
	}
	out.Println(value)
	return nil
}

func runConfigSetCommand(cmd *cobra.Command, args []string) error {
	key, err := preferenceKey(args[0])
	if err != nil {
		return err
	}
	config, err := userconfig.Load(userconfig.Path(), nil)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	return config.Set(key, args[1])
}

// preferenceKey rejects unknown keys before the config file is read.
func preferenceKey(arg string) (events.Topic, error) {
	key := events.Topic(arg)
	if !key.IsPreference() {
		return "", fmt.Errorf("%w %q (valid keys: %s)", userconfig.ErrUnknownKey, arg, strings.Join(preferenceKeys(), ", "))
	}
	return key, nil
}
