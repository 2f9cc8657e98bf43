package root

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/docker/themekit/pkg/cli"
	"github.com/docker/themekit/pkg/paths"
	"github.com/docker/themekit/pkg/themes"
	"github.com/docker/themekit/pkg/themes/events"
	"github.com/docker/themekit/pkg/themes/surface"
	"github.com/docker/themekit/pkg/userconfig"
	"github.com/docker/themekit/pkg/view"
)

type watchFlags struct {
	themeFlags
	outDir   string
	debounce time.Duration
	diff     bool
}

func newWatchCmd() *cobra.Command {
	var flags watchFlags

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Apply the selected themes and keep them up to date",
		Long: `Compile the selected themes into a stylesheet directory and recompile whenever a
theme source, one of its imports, or the preferences file changes.

The combined stylesheet is written to <out>/applied.css.`,
		Example: `  themekit watch
  themekit watch --themes ./themes --out ./build`,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE:    flags.runWatchCommand,
	}

	addThemeFlags(cmd, &flags.themeFlags)
	cmd.Flags().StringVar(&flags.outDir, "out", "", "Directory the applied stylesheets are written to (default: ~/.themekit/applied)")
	cmd.Flags().DurationVar(&flags.debounce, "debounce", 0, "Delay before reacting to file changes")
	cmd.Flags().BoolVar(&flags.diff, "diff", false, "Print what changed in each theme's CSS when it is reapplied")

	return cmd
}

func (f *watchFlags) runWatchCommand(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	out := cli.NewPrinter(cmd.OutOrStdout())

	outDir := f.outDir
	if outDir == "" {
		outDir = filepath.Join(paths.GetDataDir(), "applied")
	}
	outDir, err := expandHome(outDir)
	if err != nil {
		return err
	}
	surf, err := surface.NewDir(outDir)
	if err != nil {
		return err
	}

	prefsPath, err := f.preferencesPath()
	if err != nil {
		return err
	}
	bus := events.NewBus()
	prefs, err := userconfig.Load(prefsPath, bus)
	if err != nil {
		return fmt.Errorf("failed to load preferences: %w", err)
	}

	host := view.NewHeadless(bus)
	m, err := themes.New(themes.Options{
		Preferences:   prefs,
		Surface:       surf,
		Bus:           bus,
		Views:         host,
		Host:          host,
		Watch:         true,
		WatchDebounce: f.debounce,
		Tracer:        otel.Tracer(AppName),
	})
	if err != nil {
		return err
	}
	defer m.Close()

	var (
		mu       sync.Mutex
		previous = map[string]string{}
	)
	m.Subscribe(events.TopicThemeChange, func(ev events.Event) {
		mu.Lock()
		defer mu.Unlock()

		names := make([]string, 0, len(ev.Themes))
		for _, t := range ev.Themes {
			names = append(names, t.Name)
		}
		out.Printf("Applied %s\n", strings.Join(names, ", "))

		if !f.diff {
			return
		}
		for _, t := range ev.Themes {
			css := t.CSS()
			if before, ok := previous[t.Name]; ok {
				if err := out.PrintDiff(t.Name, before, css); err != nil {
					slog.Warn("Failed to print diff", "theme", t.Name, "error", err)
				}
			}
			previous[t.Name] = css
		}
	})

	if err := m.Init(ctx); err != nil {
		return err
	}
	if _, err := f.loadThemes(ctx, m); err != nil {
		cli.NewPrinter(cmd.ErrOrStderr()).PrintError(err)
	}
	host.SetActive(view.NewHeadlessView(AppName))

	// Loaded themes that are selected were refreshed already. This makes sure
	// the selection is applied even when it falls back to the default theme.
	if err := m.Refresh(ctx, true); err != nil {
		cli.NewPrinter(cmd.ErrOrStderr()).PrintError(err)
	}

	out.Printf("Writing stylesheets to %s (Ctrl+C to stop)\n", surf.AppliedPath())
	<-ctx.Done()
	m.Wait()

	return nil
}
