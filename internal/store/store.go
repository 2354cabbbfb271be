package store

import (
	"math/big"
	"sort"
)

// Getter is the read capability over the accounting state store.
// Components that only evaluate (valuation, liquidation checks) receive
// a Getter, never the full Store.
type Getter interface {
	// GetInt returns the value for key, or zero if the key is unset.
	// The returned value is owned by the caller.
	GetInt(key string) *big.Int
}

// Setter is the write capability over the accounting state store.
type Setter interface {
	SetInt(key string, v *big.Int)
}

// Store combines read and write access. Only the synchronizer, the
// open-interest accumulator, and the referral distributor hold a Store.
type Store interface {
	Getter
	Setter
}

// MemStore is the in-memory accounting state store. It is not safe for
// concurrent use: the host serializes operations, so the core is written
// as if single-threaded.
type MemStore struct {
	values map[string]*big.Int
}

func NewMemStore() *MemStore {
	return &MemStore{
		values: make(map[string]*big.Int),
	}
}

func (s *MemStore) GetInt(key string) *big.Int {
	if v, ok := s.values[key]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

func (s *MemStore) SetInt(key string, v *big.Int) {
	s.values[key] = new(big.Int).Set(v)
}

// Snapshot returns a copy of all non-zero entries, for persistence.
func (s *MemStore) Snapshot() map[string]*big.Int {
	out := make(map[string]*big.Int, len(s.values))
	for k, v := range s.values {
		if v.Sign() != 0 {
			out[k] = new(big.Int).Set(v)
		}
	}
	return out
}

// Restore overwrites entries from a snapshot.
func (s *MemStore) Restore(values map[string]*big.Int) {
	for k, v := range values {
		s.values[k] = new(big.Int).Set(v)
	}
}

// Keys returns all keys in deterministic order.
func (s *MemStore) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// AddInt adds delta to the value at key on any Store and returns the
// new value.
func AddInt(s Store, key string, delta *big.Int) *big.Int {
	next := s.GetInt(key)
	next.Add(next, delta)
	s.SetInt(key, next)
	return next
}
