package rpc

import (
	"fmt"

	"github.com/robotalks/corelink.go/pkg/shmem"
)

// Kind is the opcode of a request.
type Kind uint32

// Opcodes, one per primitive type and operation.
const (
	KindInvalid Kind = iota
	SetBool
	SetU8
	SetS8
	SetU16
	SetS16
	SetU32
	SetS32
	SetFloat
	SetBits
	ClearBits
	ToggleBits
	numKinds
)

var kindNames = [numKinds]string{
	"invalid", "set-bool", "set-u8", "set-s8", "set-u16", "set-s16",
	"set-u32", "set-s32", "set-float", "set-bits", "clear-bits", "toggle-bits",
}

var kindTypes = [numKinds]shmem.Type{
	shmem.NumTypes,
	shmem.TypeBool, shmem.TypeU8, shmem.TypeS8, shmem.TypeU16, shmem.TypeS16,
	shmem.TypeU32, shmem.TypeS32, shmem.TypeFloat,
	shmem.TypeBits, shmem.TypeBits, shmem.TypeBits,
}

// MaskedU8 flags a SetU8 payload carrying a bit mask in its second byte.
// Only the masked bits of the slot are replaced, merged with the byte
// the owner holds.
const MaskedU8 uint32 = 1 << 31

// MaskedU8Word encodes a SetU8 payload replacing the bits of mask with v.
func MaskedU8Word(v, mask uint8) uint32 {
	return MaskedU8 | uint32(mask)<<8 | uint32(v)
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	if k < numKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint32(k))
}

// IsValid indicates k is a known opcode.
func (k Kind) IsValid() bool {
	return k > KindInvalid && k < numKinds
}

// Type returns the value array k operates on.
func (k Kind) Type() shmem.Type {
	if k < numKinds {
		return kindTypes[k]
	}
	return shmem.NumTypes
}

// IsBitOp indicates the payload of k is a bit mask.
func (k Kind) IsBitOp() bool {
	return k == SetBits || k == ClearBits || k == ToggleBits
}

// SetKind returns the plain set opcode for a non-bitfield type.
func SetKind(t shmem.Type) Kind {
	for k := SetBool; k <= SetFloat; k++ {
		if kindTypes[k] == t {
			return k
		}
	}
	return KindInvalid
}
