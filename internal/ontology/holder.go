package ontology

import "sync/atomic"

// Holder publishes the live Definition. Readers take one snapshot per
// request with Current and use it throughout.
type Holder struct {
	current atomic.Pointer[Definition]
	version atomic.Uint64
}

// NewHolder creates a holder publishing def.
func NewHolder(def *Definition) *Holder {
	h := &Holder{}
	h.current.Store(def)
	h.version.Store(1)
	return h
}

// Current returns the live snapshot.
func (h *Holder) Current() *Definition {
	return h.current.Load()
}

// Swap publishes def and returns the previous snapshot.
func (h *Holder) Swap(def *Definition) *Definition {
	prev := h.current.Swap(def)
	h.version.Add(1)
	return prev
}

// Version increments on every Swap.
func (h *Holder) Version() uint64 {
	return h.version.Load()
}
