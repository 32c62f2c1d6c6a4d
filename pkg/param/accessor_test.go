package param

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/corelink.go/pkg/rpc"
	"github.com/robotalks/corelink.go/pkg/shmem"
)

var testTable = MustNewTable(
	Descriptor{Name: "enable", Type: shmem.TypeBool, Slot: 0},
	Descriptor{Name: "count", Type: shmem.TypeU8, Slot: 0},
	Descriptor{Name: "trim", Type: shmem.TypeS8, Slot: 0},
	Descriptor{Name: "period", Type: shmem.TypeU16, Slot: 0, Unit: Second},
	Descriptor{Name: "offset", Type: shmem.TypeS16, Slot: 0},
	Descriptor{Name: "energy", Type: shmem.TypeU32, Slot: 0, Unit: WattHour},
	Descriptor{Name: "phase", Type: shmem.TypeS32, Slot: 0, Unit: Degree},
	Descriptor{Name: "freq", Type: shmem.TypeFloat, Slot: 3, Aux: Precision(2), Unit: Hertz, Limits: Between(45, 65)},
	Descriptor{Name: "gain", Type: shmem.TypeFloat, Slot: 1},
	Descriptor{Name: "relay", Type: shmem.TypeBits, Slot: 0, Aux: BitMask(1 << 2)},
	Descriptor{Name: "mode", Type: shmem.TypeU8, Slot: 1, Aux: SubCase(1), Cases: []string{"idle", "grid", "island"}},
	Descriptor{Name: "missing", Type: shmem.TypeU16, Slot: 9},
)

var testCaps = shmem.Capacity{
	shmem.TypeBool:  1,
	shmem.TypeU8:    2,
	shmem.TypeS8:    1,
	shmem.TypeU16:   1,
	shmem.TypeS16:   1,
	shmem.TypeU32:   1,
	shmem.TypeS32:   1,
	shmem.TypeFloat: 4,
	shmem.TypeBits:  1,
}

type countingSetter struct {
	Setter
	calls int
}

func (s *countingSetter) Call(ctx context.Context, kind rpc.Kind, slot uint8, word uint32) error {
	s.calls++
	return s.Setter.Call(ctx, kind, slot, word)
}

func newTestAccessor(t *testing.T) (*Accessor, *countingSetter) {
	region := shmem.New(testCaps)
	owner, err := region.Owner()
	require.NoError(t, err)
	srv := rpc.NewServer(region.Layout(), owner, rpc.Handlers{})
	client := rpc.NewClient(region.Layout())
	client.PollInterval = 100 * time.Microsecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ctx.Err() == nil {
			if !srv.ProcessPending(ctx) {
				time.Sleep(50 * time.Microsecond)
			}
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	setter := &countingSetter{Setter: client}
	return NewAccessor(region.View(), setter), setter
}

func mustFind(t *testing.T, name string) *Descriptor {
	d, ok := testTable.Lookup(name)
	require.True(t, ok, name)
	return d
}

func TestAccessorSetGet(t *testing.T) {
	a, _ := newTestAccessor(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		value Value
	}{
		{"enable", Bool(true)},
		{"count", U8(42)},
		{"trim", S8(-7)},
		{"period", U16(600)},
		{"offset", S16(-1000)},
		{"energy", U32(123456)},
		{"phase", S32(-90)},
		{"freq", Float(50.5)},
		{"gain", Float(0.125)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := mustFind(t, tc.name)
			require.NoError(t, a.Set(ctx, d, tc.value))
			v, err := a.Get(d)
			require.NoError(t, err)
			require.Equal(t, tc.value, v)
		})
	}
}

func TestAccessorFloatScenario(t *testing.T) {
	a, _ := newTestAccessor(t)
	d := mustFind(t, "freq")
	require.NoError(t, a.Set(context.Background(), d, Float(52.345)))
	text, err := a.GetText(d, false)
	require.NoError(t, err)
	require.Equal(t, "52.35", text)
	text, err = a.GetText(d, true)
	require.NoError(t, err)
	require.Equal(t, "52.35Hz", text)
}

func TestAccessorOutOfLimits(t *testing.T) {
	a, setter := newTestAccessor(t)
	ctx := context.Background()
	d := mustFind(t, "freq")
	require.NoError(t, a.Set(ctx, d, Float(50)))
	calls := setter.calls

	require.ErrorIs(t, a.Set(ctx, d, Float(70)), rpc.OutOfRange)
	require.ErrorIs(t, a.SetText(ctx, d, "44.9"), rpc.OutOfRange)
	// rejected before any cross-core traffic
	require.Equal(t, calls, setter.calls)
	v, err := a.Get(d)
	require.NoError(t, err)
	require.Equal(t, Float(50), v)
}

func TestAccessorSetText(t *testing.T) {
	a, setter := newTestAccessor(t)
	ctx := context.Background()
	d := mustFind(t, "count")
	require.ErrorIs(t, a.SetText(ctx, d, "999"), rpc.OutOfRange)
	require.ErrorIs(t, a.SetText(ctx, d, "abc"), rpc.InvalidText)
	require.Zero(t, setter.calls)
	require.NoError(t, a.SetText(ctx, d, "17"))
	text, err := a.GetText(d, true)
	require.NoError(t, err)
	require.Equal(t, "17", text)
}

func TestAccessorIllegal(t *testing.T) {
	a, setter := newTestAccessor(t)
	ctx := context.Background()
	d := mustFind(t, "missing")
	_, err := a.Get(d)
	require.ErrorIs(t, err, rpc.Illegal)
	_, err = a.GetText(d, true)
	require.ErrorIs(t, err, rpc.Illegal)
	require.ErrorIs(t, a.Set(ctx, d, U16(1)), rpc.Illegal)
	require.ErrorIs(t, a.SetText(ctx, d, "1"), rpc.Illegal)
	require.ErrorIs(t, a.Set(ctx, mustFind(t, "count"), U16(1)), rpc.Illegal)
	require.ErrorIs(t, a.Set(ctx, mustFind(t, "relay"), Value{Type: shmem.TypeBits}), rpc.Illegal)
	_, err = a.Get(nil)
	require.ErrorIs(t, err, rpc.Illegal)
	require.Zero(t, setter.calls)
}

func TestAccessorBits(t *testing.T) {
	a, _ := newTestAccessor(t)
	ctx := context.Background()
	d := mustFind(t, "relay")

	require.NoError(t, a.SetText(ctx, d, "ON"))
	require.EqualValues(t, 4, a.View.Load(shmem.TypeBits, 0))
	require.NoError(t, a.Set(ctx, d, Bits(BitSet)))
	require.EqualValues(t, 4, a.View.Load(shmem.TypeBits, 0))
	text, err := a.GetText(d, false)
	require.NoError(t, err)
	require.Equal(t, "ON", text)

	require.NoError(t, a.Set(ctx, d, Bits(BitToggle)))
	require.EqualValues(t, 0, a.View.Load(shmem.TypeBits, 0))
	text, err = a.GetText(d, false)
	require.NoError(t, err)
	require.Equal(t, "OFF", text)
}

func TestAccessorSubCase(t *testing.T) {
	a, _ := newTestAccessor(t)
	ctx := context.Background()
	count := &Descriptor{Name: "low", Type: shmem.TypeU8, Slot: 1}
	d := mustFind(t, "mode")

	require.NoError(t, a.Set(ctx, count, U8(0x05)))
	require.NoError(t, a.SetText(ctx, d, "island"))
	// the other nibble is preserved
	require.EqualValues(t, 0x25, a.View.Load(shmem.TypeU8, 1))
	text, err := a.GetText(d, false)
	require.NoError(t, err)
	require.Equal(t, "island", text)
	require.ErrorIs(t, a.Set(ctx, d, U8(16)), rpc.OutOfRange)
}

type gatedSetter struct {
	Setter
	entered chan struct{}
	gate    chan struct{}
}

func (s *gatedSetter) Call(ctx context.Context, kind rpc.Kind, slot uint8, word uint32) error {
	close(s.entered)
	<-s.gate
	return s.Setter.Call(ctx, kind, slot, word)
}

func TestAccessorSubCaseConcurrent(t *testing.T) {
	a, _ := newTestAccessor(t)
	ctx := context.Background()
	low := &Descriptor{Name: "low", Type: shmem.TypeU8, Slot: 1, Aux: SubCase(0), Cases: []string{"off", "on"}}
	high := mustFind(t, "mode")

	held := &gatedSetter{Setter: a.Setter, entered: make(chan struct{}), gate: make(chan struct{})}
	slow := NewAccessor(a.View, held)
	errCh := make(chan error, 1)
	go func() { errCh <- slow.Set(ctx, low, U8(1)) }()

	// the other nibble changes while the first set is on its way.
	<-held.entered
	require.NoError(t, a.Set(ctx, high, U8(2)))
	close(held.gate)
	require.NoError(t, <-errCh)
	require.EqualValues(t, 0x21, a.View.Load(shmem.TypeU8, 1))
}

func TestAccessorTextRoundTrip(t *testing.T) {
	a, setter := newTestAccessor(t)
	ctx := context.Background()
	seed := map[string]string{
		"enable": "ON",
		"count":  "255",
		"trim":   "-128",
		"period": "65535",
		"offset": "-32768",
		"energy": "4294967295",
		"phase":  "-2147483648",
		"freq":   "59.99",
		"gain":   "0.3333333",
		"relay":  "ON",
		"mode":   "grid",
	}
	for _, d := range testTable.All() {
		if d.Name == "missing" {
			continue
		}
		t.Run(d.Name, func(t *testing.T) {
			require.NoError(t, a.SetText(ctx, d, seed[d.Name]))
			before := a.View.Load(d.Type, d.Slot)
			text, err := a.GetText(d, false)
			require.NoError(t, err)
			calls := setter.calls
			require.NoError(t, a.SetText(ctx, d, text))
			assert.Equal(t, calls+1, setter.calls)
			assert.Equal(t, before, a.View.Load(d.Type, d.Slot), "text %q", text)
		})
	}

	t.Run("flag among other bits", func(t *testing.T) {
		other := &Descriptor{Name: "other", Type: shmem.TypeBits, Slot: 0, Aux: BitMask(1)}
		relay := mustFind(t, "relay")
		require.NoError(t, a.SetText(ctx, other, "ON"))
		require.NoError(t, a.SetText(ctx, relay, "OFF"))
		before := a.View.Load(shmem.TypeBits, 0)
		text, err := a.GetText(relay, false)
		require.NoError(t, err)
		require.NoError(t, a.SetText(ctx, relay, text))
		assert.Equal(t, before, a.View.Load(shmem.TypeBits, 0))
		assert.EqualValues(t, 1, before)
	})

	t.Run("multi-bit mask", func(t *testing.T) {
		wide := &Descriptor{Name: "wide", Type: shmem.TypeBits, Slot: 0, Aux: BitMask(0x3)}
		before := a.View.Load(shmem.TypeBits, 0)
		calls := setter.calls
		_, err := a.GetText(wide, false)
		require.ErrorIs(t, err, rpc.Illegal)
		require.ErrorIs(t, a.SetText(ctx, wide, "OFF"), rpc.Illegal)
		assert.Equal(t, calls, setter.calls)
		assert.Equal(t, before, a.View.Load(shmem.TypeBits, 0))
	})
}
