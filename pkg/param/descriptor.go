// Package param exposes typed shared variables through named descriptors.
//
// Reads go straight to the value arrays; writes are sent to the owning
// core and only take effect once it acknowledges them.
package param

import (
	"fmt"
	"math/bits"

	"github.com/robotalks/corelink.go/pkg/rpc"
	"github.com/robotalks/corelink.go/pkg/shmem"
)

// Range is an inclusive bound on a numeric parameter.
type Range struct {
	Min, Max float64
}

// Between creates a Range.
func Between(min, max float64) *Range {
	return &Range{Min: min, Max: max}
}

// Contains checks n against the bounds.
func (r *Range) Contains(n float64) bool {
	return n >= r.Min && n <= r.Max
}

// Descriptor addresses one shared variable. It never owns storage.
type Descriptor struct {
	Name string
	Slot uint8
	Type BaseType
	Aux  Aux
	Unit Unit
	// Digits is the digit budget for rendering a float, 0 for unlimited.
	Digits int
	// Limits is checked before a set leaves the requesting core.
	Limits *Range
	// Cases names the values of a SubCase parameter.
	Cases []string
}

// String implements fmt.Stringer.
func (d *Descriptor) String() string {
	s := fmt.Sprintf("%s(%s[%d]", d.Name, d.Type, d.Slot)
	if aux := d.Aux.String(); aux != "" {
		s += " " + aux
	}
	return s + ")"
}

func (d *Descriptor) validate() error {
	if d.Name == "" {
		return fmt.Errorf("descriptor without name")
	}
	if !d.Type.IsValid() {
		return fmt.Errorf("%s: invalid type %v", d.Name, d.Type)
	}
	switch d.Aux.Kind() {
	case AuxBitMask:
		// a flag reads as ON or OFF, which only round-trips for one bit.
		if mask, _ := d.Aux.Mask(); bits.OnesCount32(mask) != 1 || d.Type != shmem.TypeBits {
			return fmt.Errorf("%s: bit mask requires a single bit on a bits slot", d.Name)
		}
	case AuxPrecision:
		if d.Type != shmem.TypeFloat {
			return fmt.Errorf("%s: precision requires a float slot", d.Name)
		}
	case AuxSubCase:
		if n, _ := d.Aux.Case(); n > 1 || d.Type != shmem.TypeU8 {
			return fmt.Errorf("%s: sub-case requires an u8 slot and case 0 or 1", d.Name)
		}
	default:
		if d.Type == shmem.TypeBits {
			return fmt.Errorf("%s: bits slot requires a bit mask", d.Name)
		}
	}
	return nil
}

// Table is an immutable list of descriptors indexed by name.
type Table struct {
	list   []*Descriptor
	byName map[string]*Descriptor
}

// NewTable validates descriptors and builds a Table in declaration order.
func NewTable(descs ...Descriptor) (*Table, error) {
	t := &Table{
		list:   make([]*Descriptor, 0, len(descs)),
		byName: make(map[string]*Descriptor, len(descs)),
	}
	for i := range descs {
		d := &descs[i]
		if err := d.validate(); err != nil {
			return nil, err
		}
		if _, exist := t.byName[d.Name]; exist {
			return nil, fmt.Errorf("duplicated parameter %s", d.Name)
		}
		t.list = append(t.list, d)
		t.byName[d.Name] = d
	}
	return t, nil
}

// MustNewTable is NewTable but panics on error.
func MustNewTable(descs ...Descriptor) *Table {
	t, err := NewTable(descs...)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup finds a descriptor by name.
func (t *Table) Lookup(name string) (*Descriptor, bool) {
	d, ok := t.byName[name]
	return d, ok
}

// Find is Lookup returning Illegal for unknown names.
func (t *Table) Find(name string) (*Descriptor, error) {
	if d, ok := t.byName[name]; ok {
		return d, nil
	}
	return nil, fmt.Errorf("%s: %w", name, rpc.Illegal)
}

// All returns descriptors in declaration order.
func (t *Table) All() []*Descriptor {
	return t.list
}

// Len returns the number of descriptors.
func (t *Table) Len() int {
	return len(t.list)
}
