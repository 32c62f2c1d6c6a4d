package param

import (
	"context"
	"fmt"
	"math"

	"github.com/robotalks/corelink.go/pkg/rpc"
	"github.com/robotalks/corelink.go/pkg/shmem"
)

// Setter sends a state change to the owning core and returns its result.
// *rpc.Client implements it.
type Setter interface {
	Call(ctx context.Context, kind rpc.Kind, slot uint8, word uint32) error
}

// Accessor reads and writes parameters on the requesting core.
type Accessor struct {
	View   shmem.View
	Setter Setter
}

// NewAccessor creates an Accessor.
func NewAccessor(view shmem.View, setter Setter) *Accessor {
	return &Accessor{View: view, Setter: setter}
}

func (a *Accessor) check(d *Descriptor) error {
	if d == nil || !d.Type.IsValid() || !a.View.Valid(d.Type, d.Slot) {
		return fmt.Errorf("%v: %w", d, rpc.Illegal)
	}
	if err := d.validate(); err != nil {
		return fmt.Errorf("%v: %w", err, rpc.Illegal)
	}
	return nil
}

// Get reads the current value of d from the value arrays.
func (a *Accessor) Get(d *Descriptor) (Value, error) {
	if err := a.check(d); err != nil {
		return Value{}, err
	}
	w := a.View.Load(d.Type, d.Slot)
	if mask, ok := d.Aux.Mask(); ok {
		v := Value{Type: d.Type, Word: w & mask, Op: BitClear}
		if v.Word == mask {
			v.Op = BitSet
		}
		return v, nil
	}
	if n, ok := d.Aux.Case(); ok {
		return U8(uint8(w>>(4*n)) & 0xf), nil
	}
	return Value{Type: d.Type, Word: w}, nil
}

// GetText reads d and renders it.
func (a *Accessor) GetText(d *Descriptor, withUnit bool) (string, error) {
	v, err := a.Get(d)
	if err != nil {
		return "", err
	}
	return FormatValue(d, v, withUnit), nil
}

// Set validates v locally and sends it to the owning core. It returns
// once the owner has acknowledged, with the owner's result.
func (a *Accessor) Set(ctx context.Context, d *Descriptor, v Value) error {
	if err := a.check(d); err != nil {
		return err
	}
	if v.Type != d.Type {
		return fmt.Errorf("%s: %s value: %w", d.Name, v.Type, rpc.Illegal)
	}
	if n, ok := v.Number(); ok {
		if math.IsNaN(n) || math.IsInf(n, 0) || (d.Limits != nil && !d.Limits.Contains(n)) {
			return fmt.Errorf("%s: %v: %w", d.Name, n, rpc.OutOfRange)
		}
	}

	if mask, ok := d.Aux.Mask(); ok {
		var kind rpc.Kind
		switch v.Op {
		case BitSet:
			kind = rpc.SetBits
		case BitClear:
			kind = rpc.ClearBits
		case BitToggle:
			kind = rpc.ToggleBits
		default:
			return fmt.Errorf("%s: %v: %w", d.Name, v.Op, rpc.Illegal)
		}
		return a.Setter.Call(ctx, kind, d.Slot, mask)
	}

	if n, ok := d.Aux.Case(); ok {
		if v.Word > 0xf {
			return fmt.Errorf("%s: %d: %w", d.Name, v.Word, rpc.OutOfRange)
		}
		// the owner merges the nibble into the byte it holds.
		shift := 4 * n
		return a.Setter.Call(ctx, rpc.SetU8, d.Slot, rpc.MaskedU8Word(uint8(v.Word)<<shift, uint8(0xf)<<shift))
	}
	return a.Setter.Call(ctx, rpc.SetKind(d.Type), d.Slot, v.Word)
}

// SetText parses text and sets the result.
func (a *Accessor) SetText(ctx context.Context, d *Descriptor, text string) error {
	if err := a.check(d); err != nil {
		return err
	}
	v, err := ParseValue(d, text)
	if err != nil {
		return err
	}
	return a.Set(ctx, d, v)
}
