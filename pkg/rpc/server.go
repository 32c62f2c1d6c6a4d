package rpc

import (
	"context"
	"math"

	"github.com/golang/glog"

	fx "github.com/robotalks/corelink.go/pkg/framework"
	"github.com/robotalks/corelink.go/pkg/shmem"
)

// Handlers lets an application substitute its own updater per type.
// A nil entry falls back to the matching Updater method.
type Handlers struct {
	Bool       func(ctx context.Context, slot uint8, v bool) Code
	U8         func(ctx context.Context, slot uint8, v uint8) Code
	S8         func(ctx context.Context, slot uint8, v int8) Code
	U16        func(ctx context.Context, slot uint8, v uint16) Code
	S16        func(ctx context.Context, slot uint8, v int16) Code
	U32        func(ctx context.Context, slot uint8, v uint32) Code
	S32        func(ctx context.Context, slot uint8, v int32) Code
	Float      func(ctx context.Context, slot uint8, v float32) Code
	SetBits    func(ctx context.Context, slot uint8, mask uint32) Code
	ClearBits  func(ctx context.Context, slot uint8, mask uint32) Code
	ToggleBits func(ctx context.Context, slot uint8, mask uint32) Code
}

// Updater is the default set of updaters writing the value arrays directly.
type Updater struct {
	Values *shmem.Values
}

// Bool stores a bool slot.
func (u Updater) Bool(_ context.Context, slot uint8, v bool) Code {
	return u.store(shmem.TypeBool, slot, shmem.BoolWord(v))
}

// U8 stores an u8 slot.
func (u Updater) U8(_ context.Context, slot uint8, v uint8) Code {
	return u.store(shmem.TypeU8, slot, uint32(v))
}

// S8 stores a s8 slot.
func (u Updater) S8(_ context.Context, slot uint8, v int8) Code {
	return u.store(shmem.TypeS8, slot, shmem.S8Word(v))
}

// U16 stores an u16 slot.
func (u Updater) U16(_ context.Context, slot uint8, v uint16) Code {
	return u.store(shmem.TypeU16, slot, uint32(v))
}

// S16 stores a s16 slot.
func (u Updater) S16(_ context.Context, slot uint8, v int16) Code {
	return u.store(shmem.TypeS16, slot, shmem.S16Word(v))
}

// U32 stores an u32 slot.
func (u Updater) U32(_ context.Context, slot uint8, v uint32) Code {
	return u.store(shmem.TypeU32, slot, v)
}

// S32 stores a s32 slot.
func (u Updater) S32(_ context.Context, slot uint8, v int32) Code {
	return u.store(shmem.TypeS32, slot, shmem.S32Word(v))
}

// Float stores a float slot. NaN and infinities are rejected.
func (u Updater) Float(_ context.Context, slot uint8, v float32) Code {
	if f := float64(v); math.IsNaN(f) || math.IsInf(f, 0) {
		return OutOfRange
	}
	return u.store(shmem.TypeFloat, slot, shmem.FloatWord(v))
}

// SetBits sets the masked bits, doing nothing if they are already set.
func (u Updater) SetBits(_ context.Context, slot uint8, mask uint32) Code {
	return u.bits(slot, mask, func(cur uint32) uint32 { return cur | mask })
}

// ClearBits clears the masked bits, doing nothing if they are already clear.
func (u Updater) ClearBits(_ context.Context, slot uint8, mask uint32) Code {
	return u.bits(slot, mask, func(cur uint32) uint32 { return cur &^ mask })
}

// ToggleBits flips the masked bits.
func (u Updater) ToggleBits(_ context.Context, slot uint8, mask uint32) Code {
	return u.bits(slot, mask, func(cur uint32) uint32 { return cur ^ mask })
}

func (u Updater) store(t shmem.Type, slot uint8, w uint32) Code {
	if !u.Values.Valid(t, slot) {
		return Illegal
	}
	u.Values.Store(t, slot, w)
	return Ok
}

func (u Updater) bits(slot uint8, mask uint32, op func(uint32) uint32) Code {
	if !u.Values.Valid(shmem.TypeBits, slot) || mask == 0 {
		return Illegal
	}
	u.Values.Modify(shmem.TypeBits, slot, op)
	return Ok
}

// Server applies requests on the owning core.
type Server struct {
	layout   *shmem.Layout
	updater  Updater
	handlers Handlers
}

// NewServer creates a Server. values must be the owner handle of the
// region layout belongs to.
func NewServer(layout *shmem.Layout, values *shmem.Values, handlers Handlers) *Server {
	s := &Server{layout: layout, updater: Updater{Values: values}, handlers: handlers}
	s.fillDefaults()
	return s
}

func (s *Server) fillDefaults() {
	h, u := &s.handlers, s.updater
	if h.Bool == nil {
		h.Bool = u.Bool
	}
	if h.U8 == nil {
		h.U8 = u.U8
	}
	if h.S8 == nil {
		h.S8 = u.S8
	}
	if h.U16 == nil {
		h.U16 = u.U16
	}
	if h.S16 == nil {
		h.S16 = u.S16
	}
	if h.U32 == nil {
		h.U32 = u.U32
	}
	if h.S32 == nil {
		h.S32 = u.S32
	}
	if h.Float == nil {
		h.Float = u.Float
	}
	if h.SetBits == nil {
		h.SetBits = u.SetBits
	}
	if h.ClearBits == nil {
		h.ClearBits = u.ClearBits
	}
	if h.ToggleBits == nil {
		h.ToggleBits = u.ToggleBits
	}
}

// ProcessPending applies at most one pending request.
// It returns false when the request ring is empty.
func (s *Server) ProcessPending(ctx context.Context) bool {
	l := s.layout
	if l.Requests.Empty() {
		return false
	}
	msg := &l.Messages[l.Requests.ReadIndex()]
	kind, slot := Kind(msg.Kind.Load()), msg.Slot.Load()

	code := Illegal
	if msg.PayloadLen.Load() == 1 && slot <= math.MaxUint8 {
		word := l.RequestPayloads[uint32(msg.PayloadIndex.Load())%shmem.RequestSlots].Load()
		code = s.dispatch(ctx, kind, uint8(slot), word)
	}
	l.Payloads.Read()

	idx := l.Responses.WriteIndex()
	l.ResponsePayloads[idx].Store(uint32(code))
	msg.ResponseLen.Store(1)
	l.Responses.Write()
	l.Requests.Read()
	// the response index is the completion signal seen by the requester.
	msg.ResponseIndex.Store(int32(idx))

	dispatchedTotal.WithLabelValues(kind.String(), code.String()).Inc()
	glog.V(2).Infof("dispatched %s slot %d: %s", kind, slot, code)
	return true
}

func (s *Server) dispatch(ctx context.Context, kind Kind, slot uint8, word uint32) Code {
	if !kind.IsValid() || !s.updater.Values.Valid(kind.Type(), slot) {
		return Illegal
	}
	h := &s.handlers
	switch kind {
	case SetBool:
		if word > 1 {
			return OutOfRange
		}
		return h.Bool(ctx, slot, shmem.WordBool(word))
	case SetU8:
		if word&MaskedU8 != 0 {
			return s.maskedU8(ctx, slot, word)
		}
		if word > math.MaxUint8 {
			return OutOfRange
		}
		return h.U8(ctx, slot, uint8(word))
	case SetS8:
		if v := int32(word); v < math.MinInt8 || v > math.MaxInt8 {
			return OutOfRange
		}
		return h.S8(ctx, slot, shmem.WordS8(word))
	case SetU16:
		if word > math.MaxUint16 {
			return OutOfRange
		}
		return h.U16(ctx, slot, uint16(word))
	case SetS16:
		if v := int32(word); v < math.MinInt16 || v > math.MaxInt16 {
			return OutOfRange
		}
		return h.S16(ctx, slot, shmem.WordS16(word))
	case SetU32:
		return h.U32(ctx, slot, word)
	case SetS32:
		return h.S32(ctx, slot, shmem.WordS32(word))
	case SetFloat:
		return h.Float(ctx, slot, shmem.WordFloat(word))
	case SetBits:
		return h.SetBits(ctx, slot, word)
	case ClearBits:
		return h.ClearBits(ctx, slot, word)
	case ToggleBits:
		return h.ToggleBits(ctx, slot, word)
	}
	return Illegal
}

// maskedU8 merges the masked bits into the current byte before handing
// the whole byte to the U8 handler.
func (s *Server) maskedU8(ctx context.Context, slot uint8, word uint32) Code {
	v, mask := uint8(word), uint8(word>>8)
	if word&^(MaskedU8|0xffff) != 0 || mask == 0 || v&^mask != 0 {
		return OutOfRange
	}
	cur := uint8(s.updater.Values.Load(shmem.TypeU8, slot))
	return s.handlers.U8(ctx, slot, cur&^mask|v)
}

// Control implements framework.Controller. It drains one request per
// iteration and schedules the next iteration immediately when it did.
func (s *Server) Control(cc fx.ControlContext) error {
	if s.ProcessPending(cc.Context()) {
		cc.TriggerNext()
	}
	return nil
}

// AddToLoop implements framework.LoopAdder.
func (s *Server) AddToLoop(l *fx.Loop) {
	l.AddController(fx.PrLvControl, s)
}
