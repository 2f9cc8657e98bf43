// Package surface holds the places compiled stylesheets are injected into.
package surface

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Handle identifies one injected stylesheet. The zero Handle means "nothing
// applied".
type Handle string

// ErrUnknownHandle is returned when removing a handle that is not live.
var ErrUnknownHandle = errors.New("unknown stylesheet handle")

// Surface accepts compiled CSS and hands back a handle for later removal.
type Surface interface {
	Insert(ctx context.Context, css string) (Handle, error)
	Remove(ctx context.Context, h Handle) error
}

// Sheet is one live stylesheet.
type Sheet struct {
	Handle Handle
	CSS    string
}

// Memory keeps live stylesheets in insertion order.
type Memory struct {
	mu     sync.Mutex
	sheets []Sheet
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Insert(_ context.Context, css string) (Handle, error) {
	h := newHandle()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sheets = append(m.sheets, Sheet{Handle: h, CSS: css})
	return h, nil
}

func (m *Memory) Remove(_ context.Context, h Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := slices.IndexFunc(m.sheets, func(s Sheet) bool { return s.Handle == h })
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrUnknownHandle, h)
	}
	m.sheets = slices.Delete(m.sheets, i, i+1)
	return nil
}

// Sheets returns a snapshot of the live stylesheets.
func (m *Memory) Sheets() []Sheet {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.sheets)
}

// Lookup returns the CSS of a live handle.
func (m *Memory) Lookup(h Handle) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sheets {
		if s.Handle == h {
			return s.CSS, true
		}
	}
	return "", false
}

func newHandle() Handle {
	return Handle(uuid.NewString())
}
