package shmem

import (
	"math"
	"sync/atomic"
)

// Type is the primitive type tag of a shared variable.
type Type uint8

// Primitive types, in the order of the value arrays.
const (
	TypeBool Type = iota
	TypeU8
	TypeS8
	TypeU16
	TypeS16
	TypeU32
	TypeS32
	TypeFloat
	TypeBits
	NumTypes
)

var typeNames = [NumTypes]string{"bool", "u8", "s8", "u16", "s16", "u32", "s32", "float", "bits"}

// String implements fmt.Stringer.
func (t Type) String() string {
	if t < NumTypes {
		return typeNames[t]
	}
	return "invalid"
}

// IsValid indicates t names one of the value arrays.
func (t Type) IsValid() bool {
	return t < NumTypes
}

// MaxSlots is the size of every per-type value array.
const MaxSlots = 64

// Capacity is the compile-time slot count of each value array.
type Capacity [NumTypes]uint8

// View is read access to the value arrays.
// Stale reads are acceptable: every write is a single aligned store.
type View interface {
	Capacity(Type) int
	Valid(Type, uint8) bool
	Load(Type, uint8) uint32
}

// Values holds one cell per slot for every primitive type.
// Only the owning role holds a *Values; everyone else reads through View.
type Values struct {
	caps  [NumTypes]atomic.Uint32
	cells [NumTypes][MaxSlots]atomic.Uint32
}

// Init zeroes all cells and sets the capacity table.
func (v *Values) Init(caps Capacity) {
	for t := range v.cells {
		n := uint32(caps[t])
		if n > MaxSlots {
			n = MaxSlots
		}
		v.caps[t].Store(n)
		for i := range v.cells[t] {
			v.cells[t][i].Store(0)
		}
	}
}

// Capacity implements View.
func (v *Values) Capacity(t Type) int {
	if !t.IsValid() {
		return 0
	}
	return int(v.caps[t].Load())
}

// Valid implements View.
func (v *Values) Valid(t Type, slot uint8) bool {
	return t.IsValid() && uint32(slot) < v.caps[t].Load()
}

// Load implements View. The caller validates the slot.
func (v *Values) Load(t Type, slot uint8) uint32 {
	return v.cells[t][slot].Load()
}

// Store writes the raw word of a slot. The caller validates the slot.
func (v *Values) Store(t Type, slot uint8, w uint32) {
	v.cells[t][slot].Store(w)
}

// Modify applies fn to a cell atomically, retrying if another context
// of the owning role wrote the cell meanwhile. Nothing is stored when
// fn returns the word unchanged.
func (v *Values) Modify(t Type, slot uint8, fn func(uint32) uint32) (old, updated uint32) {
	c := &v.cells[t][slot]
	for {
		old = c.Load()
		updated = fn(old)
		if updated == old || c.CompareAndSwap(old, updated) {
			return
		}
	}
}

// Bool reads a bool slot.
func (v *Values) Bool(slot uint8) bool { return WordBool(v.Load(TypeBool, slot)) }

// U8 reads an u8 slot.
func (v *Values) U8(slot uint8) uint8 { return uint8(v.Load(TypeU8, slot)) }

// U16 reads an u16 slot.
func (v *Values) U16(slot uint8) uint16 { return uint16(v.Load(TypeU16, slot)) }

// Float reads a float slot.
func (v *Values) Float(slot uint8) float32 { return WordFloat(v.Load(TypeFloat, slot)) }

// Bits reads a bitfield slot.
func (v *Values) Bits(slot uint8) uint32 { return v.Load(TypeBits, slot) }

// SetBool writes a bool slot.
func (v *Values) SetBool(slot uint8, b bool) { v.Store(TypeBool, slot, BoolWord(b)) }

// SetFloat writes a float slot.
func (v *Values) SetFloat(slot uint8, f float32) { v.Store(TypeFloat, slot, FloatWord(f)) }

// SetBits writes a bitfield slot.
func (v *Values) SetBits(slot uint8, bits uint32) { v.Store(TypeBits, slot, bits) }

// Word codecs. Signed values are stored sign-extended.

// BoolWord encodes a bool.
func BoolWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// WordBool decodes a bool.
func WordBool(w uint32) bool { return w != 0 }

// S8Word encodes an int8.
func S8Word(v int8) uint32 { return uint32(int32(v)) }

// WordS8 decodes an int8.
func WordS8(w uint32) int8 { return int8(int32(w)) }

// S16Word encodes an int16.
func S16Word(v int16) uint32 { return uint32(int32(v)) }

// WordS16 decodes an int16.
func WordS16(w uint32) int16 { return int16(int32(w)) }

// S32Word encodes an int32.
func S32Word(v int32) uint32 { return uint32(v) }

// WordS32 decodes an int32.
func WordS32(w uint32) int32 { return int32(w) }

// FloatWord encodes a float32.
func FloatWord(f float32) uint32 { return math.Float32bits(f) }

// WordFloat decodes a float32.
func WordFloat(w uint32) float32 { return math.Float32frombits(w) }
