package concurrent

import "sync"

// Map is a map guarded by a RWMutex.
type Map[K comparable, V any] struct {
	mu     sync.RWMutex
	values map[K]V
}

func NewMap[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{
		values: make(map[K]V),
	}
}

func (m *Map[K, V]) Load(key K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	val, ok := m.values[key]
	return val, ok
}

// Swap stores value and returns the value it replaced, if any.
func (m *Map[K, V]) Swap(key K, value V) (previous V, loaded bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	previous, loaded = m.values[key]
	m.values[key] = value
	return previous, loaded
}

func (m *Map[K, V]) Length() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.values)
}

// Values returns a snapshot of the values in no particular order.
func (m *Map[K, V]) Values() []V {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]V, 0, len(m.values))
	for _, v := range m.values {
		out = append(out, v)
	}
	return out
}
