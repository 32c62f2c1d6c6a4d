package rpc

import (
	"context"
	"runtime"
	"sync/atomic"
)

const (
	handoffIdle uint32 = iota
	handoffPending
	handoffClaimed
)

// Handoff passes one state transition from the dispatcher to a
// real-time context on the same core and waits for its result.
//
// There is exactly one requester (the dispatcher) and one servicing
// context. Clearing the pending state is the servicing context's last
// write and signals completion.
type Handoff[T any] struct {
	requested T
	result    atomic.Uint32
	state     atomic.Uint32
}

// Request parks v and spins until the real-time context services it.
// Without a deadline on ctx it waits forever. A request canceled
// before the real-time context claims it is withdrawn; once claimed it
// is always waited for.
func (h *Handoff[T]) Request(ctx context.Context, v T) (Code, error) {
	h.requested = v
	h.result.Store(uint32(Pending))
	h.state.Store(handoffPending)
	for n := 0; ; n++ {
		if h.state.Load() == handoffIdle {
			return Code(h.result.Load()), nil
		}
		if n&63 == 0 && ctx.Err() != nil {
			if h.state.CompareAndSwap(handoffPending, handoffIdle) {
				return Pending, ctx.Err()
			}
		}
		runtime.Gosched()
	}
}

// Pending indicates a request is waiting to be serviced.
func (h *Handoff[T]) Pending() bool {
	return h.state.Load() == handoffPending
}

// Service applies a pending request with fn and publishes the result.
// It is called from the real-time context on every invocation and
// returns false when nothing was pending.
func (h *Handoff[T]) Service(fn func(T) Code) bool {
	if !h.state.CompareAndSwap(handoffPending, handoffClaimed) {
		return false
	}
	h.result.Store(uint32(fn(h.requested)))
	h.state.Store(handoffIdle)
	return true
}
