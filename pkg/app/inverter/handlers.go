package inverter

import (
	"context"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/corelink.go/pkg/param"
	"github.com/robotalks/corelink.go/pkg/rpc"
	"github.com/robotalks/corelink.go/pkg/shmem"
)

type slotKey struct {
	t    shmem.Type
	slot uint8
}

// owner re-validates every request against the parameter limits and
// routes state changes to the control interrupt.
type owner struct {
	values  *shmem.Values
	updater rpc.Updater
	control *Control
	limits  map[slotKey][2]float64
	timeout time.Duration
}

func newOwner(values *shmem.Values, control *Control, handoffTimeout time.Duration) *owner {
	o := &owner{
		values:  values,
		updater: rpc.Updater{Values: values},
		control: control,
		limits:  make(map[slotKey][2]float64),
		timeout: handoffTimeout,
	}
	for _, d := range Params.All() {
		if d.Limits != nil && d.Aux.Kind() != param.AuxSubCase {
			o.limits[slotKey{d.Type, d.Slot}] = [2]float64{d.Limits.Min, d.Limits.Max}
		}
	}
	return o
}

// Handlers returns the dispatcher handlers.
func (o *owner) Handlers() rpc.Handlers {
	return rpc.Handlers{
		Bool: o.setBool,
		U8:   o.setU8,
		S8: func(ctx context.Context, slot uint8, v int8) rpc.Code {
			return o.checked(shmem.TypeS8, slot, float64(v), func() rpc.Code { return o.updater.S8(ctx, slot, v) })
		},
		U16: func(ctx context.Context, slot uint8, v uint16) rpc.Code {
			return o.checked(shmem.TypeU16, slot, float64(v), func() rpc.Code { return o.updater.U16(ctx, slot, v) })
		},
		S16: func(ctx context.Context, slot uint8, v int16) rpc.Code {
			return o.checked(shmem.TypeS16, slot, float64(v), func() rpc.Code { return o.updater.S16(ctx, slot, v) })
		},
		U32: func(context.Context, uint8, uint32) rpc.Code {
			// counters are written by the control interrupt only.
			return rpc.Illegal
		},
		S32: func(ctx context.Context, slot uint8, v int32) rpc.Code {
			return o.checked(shmem.TypeS32, slot, float64(v), func() rpc.Code { return o.updater.S32(ctx, slot, v) })
		},
		Float:      o.setFloat,
		SetBits:    o.bitOp(o.updater.SetBits),
		ClearBits:  o.bitOp(o.updater.ClearBits),
		ToggleBits: o.bitOp(o.updater.ToggleBits),
	}
}

func (o *owner) checked(t shmem.Type, slot uint8, n float64, apply func() rpc.Code) rpc.Code {
	if r, ok := o.limits[slotKey{t, slot}]; ok && (n < r[0] || n > r[1]) {
		return rpc.OutOfRange
	}
	return apply()
}

func (o *owner) handoffContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.timeout > 0 {
		return context.WithTimeout(ctx, o.timeout)
	}
	return context.WithCancel(ctx)
}

func (o *owner) handoffResult(what string, code rpc.Code, err error) rpc.Code {
	if err != nil {
		glog.Errorf("%s handoff abandoned: %v", what, err)
		return rpc.Illegal
	}
	return code
}

func (o *owner) setBool(ctx context.Context, slot uint8, v bool) rpc.Code {
	if slot != SlotEnable {
		return o.updater.Bool(ctx, slot, v)
	}
	ctx, cancel := o.handoffContext(ctx)
	defer cancel()
	code, err := o.control.RequestEnable(ctx, v)
	return o.handoffResult("enable", code, err)
}

func (o *owner) setU8(ctx context.Context, slot uint8, v uint8) rpc.Code {
	if slot != SlotMode {
		return o.checked(shmem.TypeU8, slot, float64(v), func() rpc.Code { return o.updater.U8(ctx, slot, v) })
	}
	mode, phases := SplitModeByte(v)
	if mode >= numModes || phases >= numPhases {
		return rpc.OutOfRange
	}
	if uint32(v) == o.values.Load(shmem.TypeU8, SlotMode) {
		return rpc.Ok
	}
	ctx, cancel := o.handoffContext(ctx)
	defer cancel()
	code, err := o.control.RequestMode(ctx, v)
	return o.handoffResult("mode", code, err)
}

func (o *owner) setFloat(ctx context.Context, slot uint8, v float32) rpc.Code {
	if slot == SlotPowerOut {
		return rpc.Illegal
	}
	return o.checked(shmem.TypeFloat, slot, float64(v), func() rpc.Code { return o.updater.Float(ctx, slot, v) })
}

func (o *owner) bitOp(apply func(context.Context, uint8, uint32) rpc.Code) func(context.Context, uint8, uint32) rpc.Code {
	return func(ctx context.Context, slot uint8, mask uint32) rpc.Code {
		switch {
		case slot == SlotStatus && mask&^StatusRelay != 0:
			// PLL lock and fault are reported by the control interrupt.
			return rpc.Illegal
		case slot == SlotOptions && mask&^optionsMask != 0:
			return rpc.OutOfRange
		}
		return apply(ctx, slot, mask)
	}
}
