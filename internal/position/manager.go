package position

import "sort"

// Manager holds the open position records, keyed by derived key. Not safe
// for concurrent use; the host serializes operations.
type Manager struct {
	positions map[Key]*Position
}

func NewManager() *Manager {
	return &Manager{
		positions: make(map[Key]*Position),
	}
}

// Get returns the position for key, or nil.
func (m *Manager) Get(key Key) *Position {
	return m.positions[key]
}

// Set stores pos under its derived key.
func (m *Manager) Set(pos *Position) {
	m.positions[pos.Key()] = pos
}

// Remove deletes the position for key.
func (m *Manager) Remove(key Key) {
	delete(m.positions, key)
}

// Len returns the number of open positions.
func (m *Manager) Len() int {
	return len(m.positions)
}

// All returns every open position in deterministic key order.
func (m *Manager) All() []*Position {
	keys := make([]Key, 0, len(m.positions))
	for k := range m.positions {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		for n := 0; n < len(a); n++ {
			if a[n] != b[n] {
				return a[n] < b[n]
			}
		}
		return false
	})

	out := make([]*Position, 0, len(keys))
	for _, k := range keys {
		out = append(out, m.positions[k])
	}
	return out
}
