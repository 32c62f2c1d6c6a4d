// Package ring provides the index pair used by the cross-core queues.
package ring

import "sync/atomic"

// Ring is a fixed-capacity write/read index pair.
// Exactly one owner advances the write index and exactly one owner
// advances the read index. Ring holds no pointers and may be placed
// in a shared mapping.
type Ring struct {
	write  atomic.Uint32
	read   atomic.Uint32
	modulo atomic.Uint32
}

// Reset zeroes both indices and fixes the capacity.
// Capacity must be a power of two.
func (r *Ring) Reset(capacity uint32) {
	if capacity < 2 || capacity&(capacity-1) != 0 {
		panic("ring: capacity must be a power of two >= 2")
	}
	r.modulo.Store(capacity - 1)
	r.write.Store(0)
	r.read.Store(0)
}

// Cap returns the capacity set by Reset.
func (r *Ring) Cap() uint32 {
	return r.modulo.Load() + 1
}

// Empty indicates write and read indices are equal.
func (r *Ring) Empty() bool {
	return r.write.Load() == r.read.Load()
}

// Len returns the number of written but unread entries.
func (r *Ring) Len() uint32 {
	return (r.write.Load() - r.read.Load()) & r.modulo.Load()
}

// WriteIndex returns the slot the next Write commits.
func (r *Ring) WriteIndex() uint32 {
	return r.write.Load()
}

// ReadIndex returns the slot the next Read retires.
func (r *Ring) ReadIndex() uint32 {
	return r.read.Load()
}

// Write advances the write index by one slot.
// No overflow check is performed.
func (r *Ring) Write() {
	r.write.Store((r.write.Load() + 1) & r.modulo.Load())
}

// Read advances the read index by one slot.
func (r *Ring) Read() {
	r.read.Store((r.read.Load() + 1) & r.modulo.Load())
}
