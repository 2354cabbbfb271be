package store

import "math/big"

// Tx is a buffered write overlay on a base store. All writes made during
// one operation land in the overlay; Commit applies them to the base in
// one pass, Discard drops them. This is the all-or-nothing unit the
// orchestrator uses: any failed step discards every buffered mutation,
// including earlier accumulator updates.
type Tx struct {
	base   Store
	writes map[string]*big.Int
	done   bool
}

// Begin opens a transaction over base.
func Begin(base Store) *Tx {
	return &Tx{
		base:   base,
		writes: make(map[string]*big.Int),
	}
}

func (tx *Tx) GetInt(key string) *big.Int {
	if v, ok := tx.writes[key]; ok {
		return new(big.Int).Set(v)
	}
	return tx.base.GetInt(key)
}

func (tx *Tx) SetInt(key string, v *big.Int) {
	if tx.done {
		panic("store: write on finished tx")
	}
	tx.writes[key] = new(big.Int).Set(v)
}

// Commit applies all buffered writes to the base store.
func (tx *Tx) Commit() {
	if tx.done {
		return
	}
	for k, v := range tx.writes {
		tx.base.SetInt(k, v)
	}
	tx.done = true
}

// Discard drops all buffered writes. The base store is untouched.
func (tx *Tx) Discard() {
	tx.writes = nil
	tx.done = true
}

// Pending returns the number of buffered writes.
func (tx *Tx) Pending() int {
	return len(tx.writes)
}
