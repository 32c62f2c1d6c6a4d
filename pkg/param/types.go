package param

import (
	"fmt"

	"github.com/robotalks/corelink.go/pkg/shmem"
)

// BaseType is the primitive type of a parameter.
type BaseType = shmem.Type

// Unit is the display unit of a parameter.
type Unit uint8

// Display units.
const (
	UnitNone Unit = iota
	Volt
	Ampere
	Watt
	Hertz
	Celsius
	Percent
	Second
	Degree
	WattHour
	numUnits
)

var unitSuffixes = [numUnits]string{"", "V", "A", "W", "Hz", "°C", "%", "s", "°", "Wh"}

// IsValid indicates u carries a suffix.
func (u Unit) IsValid() bool {
	return u > UnitNone && u < numUnits
}

// Suffix returns the text appended to a formatted value.
func (u Unit) Suffix() string {
	if u.IsValid() {
		return unitSuffixes[u]
	}
	return ""
}

// String implements fmt.Stringer.
func (u Unit) String() string {
	if u == UnitNone {
		return "none"
	}
	return u.Suffix()
}

// AuxKind tells how the auxiliary argument of a descriptor is interpreted.
type AuxKind uint8

// Auxiliary argument kinds.
const (
	AuxNone AuxKind = iota
	AuxBitMask
	AuxPrecision
	AuxSubCase
)

// Aux is the extra type-specific metadata of a descriptor.
type Aux struct {
	kind AuxKind
	val  uint32
}

// BitMask selects the bits a bit-field parameter addresses.
func BitMask(mask uint32) Aux {
	return Aux{kind: AuxBitMask, val: mask}
}

// Precision is the number of decimals a float parameter is rendered with.
func Precision(decimals uint8) Aux {
	return Aux{kind: AuxPrecision, val: uint32(decimals)}
}

// SubCase selects one nibble of a packed u8 slot.
func SubCase(n uint8) Aux {
	return Aux{kind: AuxSubCase, val: uint32(n)}
}

// Kind returns the kind of the argument.
func (a Aux) Kind() AuxKind {
	return a.kind
}

// Mask returns the bit mask if a is a BitMask.
func (a Aux) Mask() (uint32, bool) {
	return a.val, a.kind == AuxBitMask
}

// Decimals returns the precision if a is a Precision.
func (a Aux) Decimals() (int, bool) {
	return int(a.val), a.kind == AuxPrecision
}

// Case returns the nibble index if a is a SubCase.
func (a Aux) Case() (uint8, bool) {
	return uint8(a.val), a.kind == AuxSubCase
}

// String implements fmt.Stringer.
func (a Aux) String() string {
	switch a.kind {
	case AuxBitMask:
		return fmt.Sprintf("mask=%#x", a.val)
	case AuxPrecision:
		return fmt.Sprintf("precision=%d", a.val)
	case AuxSubCase:
		return fmt.Sprintf("case=%d", a.val)
	}
	return ""
}

// BitOp is the operation a bit-field value applies to the masked bits.
type BitOp uint8

// Bit operations.
const (
	BitSet BitOp = iota + 1
	BitClear
	BitToggle
)

// String implements fmt.Stringer.
func (op BitOp) String() string {
	switch op {
	case BitSet:
		return "set"
	case BitClear:
		return "clear"
	case BitToggle:
		return "toggle"
	}
	return fmt.Sprintf("bitop(%d)", uint8(op))
}
