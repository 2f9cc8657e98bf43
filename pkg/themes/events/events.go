// Package events carries theme related notifications between the
// preference store, the file watcher, the view provider and the refresh
// controller.
package events

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/docker/themekit/pkg/themes/registry"
)

// Topic identifies the kind of an Event.
type Topic string

const (
	// TopicThemes fires when the selected theme names change.
	TopicThemes Topic = "themes"
	// TopicCustomScrollbars fires when the scrollbar layer is toggled.
	TopicCustomScrollbars Topic = "customScrollbars"
	TopicFontSize         Topic = "fontSize"
	TopicLineHeight       Topic = "lineHeight"
	TopicFontType         Topic = "fontType"
	// TopicFileChanged carries the path of a changed file in Event.Path.
	TopicFileChanged Topic = "fileChanged"
	// TopicActiveViewChanged fires when the editor switches views.
	TopicActiveViewChanged Topic = "activeViewChanged"
	// TopicThemeChange is emitted after a successful full reload with the
	// resolved selection in Event.Themes.
	TopicThemeChange Topic = "themeChange"
)

// PreferenceTopics are the topics published by the preference store.
var PreferenceTopics = []Topic{
	TopicThemes,
	TopicCustomScrollbars,
	TopicFontSize,
	TopicLineHeight,
	TopicFontType,
}

// IsPreference reports whether t is one of PreferenceTopics.
func (t Topic) IsPreference() bool {
	return slices.Contains(PreferenceTopics, t)
}

// Event is a single notification.
type Event struct {
	Topic  Topic
	Path   string
	Themes []*registry.Theme
}

// Handler receives events for one topic.
type Handler func(Event)

// Publisher is implemented by anything events can be sent to.
type Publisher interface {
	Publish(Event)
}

// Bus delivers events synchronously to the handlers subscribed to their
// topic, in subscription order.
type Bus struct {
	mu   sync.Mutex
	next uint64
	subs map[Topic][]subscription
}

type subscription struct {
	id uint64
	fn Handler
}

func NewBus() *Bus {
	return &Bus{subs: make(map[Topic][]subscription)}
}

// Subscribe registers fn for topic and returns a function removing it.
func (b *Bus) Subscribe(topic Topic, fn Handler) (cancel func()) {
	b.mu.Lock()
	b.next++
	id := b.next
	b.subs[topic] = append(b.subs[topic], subscription{id: id, fn: fn})
	count := len(b.subs[topic])
	b.mu.Unlock()

	slog.Debug("Event subscription added", "topic", topic, "subscribers", count)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.subs[topic] = slices.DeleteFunc(b.subs[topic], func(s subscription) bool { return s.id == id })
			if len(b.subs[topic]) == 0 {
				delete(b.subs, topic)
			}
		})
	}
}

// Publish calls every handler subscribed to ev.Topic. Handlers run on the
// caller's goroutine; the subscriber list is copied first so handlers may
// subscribe or cancel.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	subs := slices.Clone(b.subs[ev.Topic])
	b.mu.Unlock()

	for _, s := range subs {
		s.fn(ev)
	}
}

// Discard drops every event.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(Event) {}
