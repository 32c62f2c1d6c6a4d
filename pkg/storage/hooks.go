package storage

import (
	"github.com/golang/glog"

	"github.com/robotalks/corelink.go/pkg/shmem"
)

// Hooks loads the value arrays from a flash snapshot at boot and detects
// changes to be written back. A snapshot is one word per persisted field
// in table order.
type Hooks struct {
	fields Fields
	values *shmem.Values
	last   []uint32
	synced bool
}

// NewHooks creates Hooks writing values, the owner handle of the region.
func NewHooks(values *shmem.Values, fields Fields) *Hooks {
	return &Hooks{
		fields: fields,
		values: values,
		last:   make([]uint32, fields.Persisted()),
	}
}

// Words returns the snapshot length.
func (h *Hooks) Words() int {
	return len(h.last)
}

// InitFromStorage stores the snapshot into the value arrays. Words out
// of bounds are replaced by their default; an invalid snapshot loads
// all defaults. Transient fields always start at their safe value.
func (h *Hooks) InitFromStorage(snapshot []uint32, valid bool) {
	if valid && len(snapshot) != len(h.last) {
		glog.Warningf("snapshot has %d words, want %d, loading defaults", len(snapshot), len(h.last))
		valid = false
	}
	h.synced = valid
	n := 0
	for i := range h.fields {
		f := &h.fields[i]
		if f.Transient {
			h.values.Store(f.Type, f.Slot, f.Safe)
			continue
		}
		w := f.Default
		if valid {
			h.last[n] = snapshot[n]
			if f.Accepts(snapshot[n]) {
				w = snapshot[n]
			} else {
				glog.Warningf("stored %s=%#x out of bounds, using default", f.Name, snapshot[n])
			}
		}
		h.values.Store(f.Type, f.Slot, w)
		n++
	}
}

// Refresh copies the persisted fields into buf when any differs from the
// last snapshot and returns the number of words to program, or 0 when
// nothing changed. index is always reset to 0.
func (h *Hooks) Refresh(buf []uint32, index *int) int {
	*index = 0
	changed := !h.synced
	n := 0
	for i := range h.fields {
		f := &h.fields[i]
		if f.Transient {
			continue
		}
		if w := h.values.Load(f.Type, f.Slot); w != h.last[n] {
			h.last[n] = w
			changed = true
		}
		n++
	}
	if !changed {
		return 0
	}
	h.synced = true
	return copy(buf, h.last)
}

// Invalidate forces the next Refresh to report the snapshot,
// e.g. after programming failed.
func (h *Hooks) Invalidate() {
	h.synced = false
}
