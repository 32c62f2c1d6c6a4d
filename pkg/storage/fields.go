// Package storage persists the owner's value arrays to flash.
package storage

import (
	"fmt"
	"math"

	"github.com/robotalks/corelink.go/pkg/shmem"
)

// Field is one persisted or power-on initialized variable.
type Field struct {
	Name string
	Type shmem.Type
	Slot uint8
	// Min and Max bound numeric fields; both zero disables the check.
	// For bits fields Max is the mask of bits allowed to be set.
	Min, Max float64
	// Default is the word stored when the snapshot is invalid or the
	// stored word is outside the bounds.
	Default uint32
	// Transient fields are never persisted and always start at Safe.
	Transient bool
	Safe      uint32
}

// Accepts checks w against the bounds of f.
func (f *Field) Accepts(w uint32) bool {
	var n float64
	switch f.Type {
	case shmem.TypeBool:
		return w <= 1
	case shmem.TypeBits:
		return f.Max == 0 || w&^uint32(f.Max) == 0
	case shmem.TypeFloat:
		n = float64(shmem.WordFloat(w))
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return false
		}
	case shmem.TypeS8:
		n = float64(shmem.WordS8(w))
		if w != shmem.S8Word(shmem.WordS8(w)) {
			return false
		}
	case shmem.TypeS16:
		n = float64(shmem.WordS16(w))
		if w != shmem.S16Word(shmem.WordS16(w)) {
			return false
		}
	case shmem.TypeS32:
		n = float64(shmem.WordS32(w))
	case shmem.TypeU8:
		if w > math.MaxUint8 {
			return false
		}
		n = float64(w)
	case shmem.TypeU16:
		if w > math.MaxUint16 {
			return false
		}
		n = float64(w)
	default:
		n = float64(w)
	}
	if f.Min == 0 && f.Max == 0 {
		return true
	}
	return n >= f.Min && n <= f.Max
}

// Fields is a validated field table.
type Fields []Field

// Validate checks every field addresses a slot within caps and every
// default is accepted.
func (fs Fields) Validate(caps shmem.Capacity) error {
	seen := make(map[string]struct{}, len(fs))
	for i := range fs {
		f := &fs[i]
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("duplicated field %s", f.Name)
		}
		seen[f.Name] = struct{}{}
		if !f.Type.IsValid() || int(f.Slot) >= int(caps[f.Type]) {
			return fmt.Errorf("field %s: %s[%d] not allocated", f.Name, f.Type, f.Slot)
		}
		if f.Transient {
			if !f.Accepts(f.Safe) {
				return fmt.Errorf("field %s: safe value %#x out of bounds", f.Name, f.Safe)
			}
		} else if !f.Accepts(f.Default) {
			return fmt.Errorf("field %s: default %#x out of bounds", f.Name, f.Default)
		}
	}
	return nil
}

// Persisted returns the number of words in a snapshot.
func (fs Fields) Persisted() (n int) {
	for i := range fs {
		if !fs[i].Transient {
			n++
		}
	}
	return
}
