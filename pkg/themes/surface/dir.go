package surface

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/natefinch/atomic"
)

// AppliedFile is the name of the file Dir keeps in sync with every live
// stylesheet, in insertion order.
const AppliedFile = "applied.css"

// Dir writes stylesheets to a directory: one <handle>.css per live sheet and
// AppliedFile with all of them concatenated. Hosts that load CSS from disk
// can point at AppliedFile.
type Dir struct {
	dir string

	mu  sync.Mutex
	mem Memory
}

// NewDir creates dir if needed and returns a surface writing into it.
func NewDir(dir string) (*Dir, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating stylesheet directory: %w", err)
	}
	d := &Dir{dir: dir}
	if err := d.writeApplied(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dir) Insert(ctx context.Context, css string) (Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	h, _ := d.mem.Insert(ctx, css)
	if err := atomic.WriteFile(d.sheetPath(h), strings.NewReader(css)); err != nil {
		_ = d.mem.Remove(ctx, h)
		return "", fmt.Errorf("writing stylesheet: %w", err)
	}
	if err := d.writeApplied(); err != nil {
		_ = d.mem.Remove(ctx, h)
		_ = os.Remove(d.sheetPath(h))
		return "", err
	}

	slog.Debug("Inserted stylesheet", "handle", h, "dir", d.dir)
	return h, nil
}

func (d *Dir) Remove(ctx context.Context, h Handle) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.mem.Remove(ctx, h); err != nil {
		return err
	}
	if err := os.Remove(d.sheetPath(h)); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to remove stylesheet file", "handle", h, "error", err)
	}

	slog.Debug("Removed stylesheet", "handle", h, "dir", d.dir)
	return d.writeApplied()
}

// Sheets returns a snapshot of the live stylesheets.
func (d *Dir) Sheets() []Sheet {
	return d.mem.Sheets()
}

// AppliedPath is the path of the combined stylesheet.
func (d *Dir) AppliedPath() string {
	return filepath.Join(d.dir, AppliedFile)
}

func (d *Dir) sheetPath(h Handle) string {
	return filepath.Join(d.dir, string(h)+".css")
}

func (d *Dir) writeApplied() error {
	var sb strings.Builder
	for _, s := range d.mem.Sheets() {
		sb.WriteString("/* " + string(s.Handle) + " */\n")
		sb.WriteString(s.CSS)
		if !strings.HasSuffix(s.CSS, "\n") {
			sb.WriteByte('\n')
		}
	}
	if err := atomic.WriteFile(d.AppliedPath(), strings.NewReader(sb.String())); err != nil {
		return fmt.Errorf("writing %s: %w", AppliedFile, err)
	}
	return nil
}
