package shmem

import (
	"errors"
	"sync/atomic"
	"unsafe"

	"github.com/robotalks/corelink.go/pkg/ring"
)

// RequestSlots is the capacity of the request, payload and response rings.
const RequestSlots = 8

// NoResponse is the ResponseIndex sentinel of an unanswered request.
const NoResponse int32 = -1

// Request is one pending request slot.
type Request struct {
	Kind          atomic.Uint32
	Slot          atomic.Uint32
	PayloadIndex  atomic.Int32
	PayloadLen    atomic.Int32
	ResponseIndex atomic.Int32
	ResponseLen   atomic.Int32
}

// Layout is the fixed memory block of one communicating pair of roles.
type Layout struct {
	Requests  ring.Ring
	Payloads  ring.Ring
	Responses ring.Ring

	Messages         [RequestSlots]Request
	RequestPayloads  [RequestSlots]atomic.Uint32
	ResponsePayloads [RequestSlots]atomic.Uint32

	Values Values
}

// LayoutSize is the byte size of Layout.
const LayoutSize = int(unsafe.Sizeof(Layout{}))

// ErrOwnerTaken indicates the owner handle was already handed out.
var ErrOwnerTaken = errors.New("owner handle already taken")

// Region is a mapped Layout.
type Region struct {
	layout *Layout
	mem    []byte
	owned  atomic.Bool
}

// Layout returns the shared layout.
func (r *Region) Layout() *Layout {
	return r.layout
}

// InitData zeroes all rings and value arrays. It is called once at boot
// before any role touches the region.
func (r *Region) InitData(caps Capacity) {
	l := r.layout
	l.Requests.Reset(RequestSlots)
	l.Payloads.Reset(RequestSlots)
	l.Responses.Reset(RequestSlots)
	for i := range l.Messages {
		m := &l.Messages[i]
		m.Kind.Store(0)
		m.Slot.Store(0)
		m.PayloadIndex.Store(0)
		m.PayloadLen.Store(0)
		m.ResponseIndex.Store(NoResponse)
		m.ResponseLen.Store(NoResponse)
		l.RequestPayloads[i].Store(0)
		l.ResponsePayloads[i].Store(0)
	}
	l.Values.Init(caps)
}

// Owner hands out the only mutable handle on the value arrays.
func (r *Region) Owner() (*Values, error) {
	if !r.owned.CompareAndSwap(false, true) {
		return nil, ErrOwnerTaken
	}
	return &r.layout.Values, nil
}

// View returns read access to the value arrays.
func (r *Region) View() View {
	return &r.layout.Values
}

// Close releases the mapping.
func (r *Region) Close() error {
	if r.mem == nil {
		return nil
	}
	mem := r.mem
	r.mem, r.layout = nil, nil
	return unmap(mem)
}

// New creates a heap backed Region, used where no mapping is needed.
func New(caps Capacity) *Region {
	r := &Region{layout: new(Layout)}
	r.InitData(caps)
	return r
}

// Map creates a Region in a shared mapping.
func Map(caps Capacity) (*Region, error) {
	mem, err := mapShared(LayoutSize)
	if err != nil {
		return nil, err
	}
	r := &Region{layout: (*Layout)(unsafe.Pointer(&mem[0])), mem: mem}
	r.InitData(caps)
	return r, nil
}
