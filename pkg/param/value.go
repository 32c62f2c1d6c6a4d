package param

import (
	"github.com/robotalks/corelink.go/pkg/shmem"
)

// Value is a typed parameter value. Word holds the raw cell encoding;
// Op is only meaningful for bit-field values.
type Value struct {
	Type BaseType
	Word uint32
	Op   BitOp
}

// Bool creates a bool value.
func Bool(b bool) Value { return Value{Type: shmem.TypeBool, Word: shmem.BoolWord(b)} }

// U8 creates an u8 value.
func U8(v uint8) Value { return Value{Type: shmem.TypeU8, Word: uint32(v)} }

// S8 creates a s8 value.
func S8(v int8) Value { return Value{Type: shmem.TypeS8, Word: shmem.S8Word(v)} }

// U16 creates an u16 value.
func U16(v uint16) Value { return Value{Type: shmem.TypeU16, Word: uint32(v)} }

// S16 creates a s16 value.
func S16(v int16) Value { return Value{Type: shmem.TypeS16, Word: shmem.S16Word(v)} }

// U32 creates an u32 value.
func U32(v uint32) Value { return Value{Type: shmem.TypeU32, Word: v} }

// S32 creates a s32 value.
func S32(v int32) Value { return Value{Type: shmem.TypeS32, Word: shmem.S32Word(v)} }

// Float creates a float value.
func Float(f float32) Value { return Value{Type: shmem.TypeFloat, Word: shmem.FloatWord(f)} }

// Bits creates a bit-field value applying op to the descriptor's mask.
func Bits(op BitOp) Value { return Value{Type: shmem.TypeBits, Op: op} }

// Flag is Bits(BitSet) when on, Bits(BitClear) otherwise.
func Flag(on bool) Value {
	if on {
		return Bits(BitSet)
	}
	return Bits(BitClear)
}

// AsBool decodes a bool value.
func (v Value) AsBool() bool { return shmem.WordBool(v.Word) }

// AsFloat decodes a float value.
func (v Value) AsFloat() float32 { return shmem.WordFloat(v.Word) }

// AsInt decodes any integer value, sign-extending signed types.
func (v Value) AsInt() int64 {
	switch v.Type {
	case shmem.TypeS8:
		return int64(shmem.WordS8(v.Word))
	case shmem.TypeS16:
		return int64(shmem.WordS16(v.Word))
	case shmem.TypeS32:
		return int64(shmem.WordS32(v.Word))
	}
	return int64(v.Word)
}

// Number returns the numeric value for range checks.
// ok is false for bools and bit-fields.
func (v Value) Number() (n float64, ok bool) {
	switch v.Type {
	case shmem.TypeBool, shmem.TypeBits:
		return 0, false
	case shmem.TypeFloat:
		return float64(v.AsFloat()), true
	}
	return float64(v.AsInt()), true
}
