package inverter

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/corelink.go/pkg/rpc"
	"github.com/robotalks/corelink.go/pkg/shmem"
)

// DefaultControlPeriod is the period of the simulated control interrupt.
const DefaultControlPeriod = 100 * time.Microsecond

// Control simulates the control loop interrupt on the owning core.
// Enabling the loop and switching modes only happen inside Tick; the
// dispatcher requests them through handoffs.
type Control struct {
	Period time.Duration

	values *shmem.Values
	enable rpc.Handoff[bool]
	mode   rpc.Handoff[uint8]

	ticks    atomic.Uint64
	started  time.Time
	lastTick time.Time
	energyWs float64
	stopped  atomic.Bool
	trip     atomic.Bool
}

// NewControl creates the control interrupt writing values.
func NewControl(values *shmem.Values) *Control {
	return &Control{Period: DefaultControlPeriod, values: values}
}

// RequestEnable asks the interrupt to start or stop the control loop.
func (c *Control) RequestEnable(ctx context.Context, on bool) (rpc.Code, error) {
	return c.enable.Request(ctx, on)
}

// RequestMode asks the interrupt to store a new SlotMode byte.
func (c *Control) RequestMode(ctx context.Context, b uint8) (rpc.Code, error) {
	return c.mode.Request(ctx, b)
}

// Boot sanitizes the stored mode and starts the control loop when
// autostart is configured. It runs once after the persisted values are
// loaded, before the interrupt and the dispatcher start.
func (c *Control) Boot() {
	if mode, phases := SplitModeByte(c.values.U8(SlotMode)); mode >= numModes || phases >= numPhases {
		glog.Warningf("stored mode %#x invalid, reset to idle", c.values.U8(SlotMode))
		c.values.Store(shmem.TypeU8, SlotMode, uint32(ModeByte(ModeIdle, PhasesSingle)))
	}
	if c.values.Bool(SlotAutoStart) && c.applyEnable(true) != rpc.Ok {
		glog.Warning("autostart skipped")
	}
}

// Trip latches a fault on the next interrupt, which stops the loop.
func (c *Control) Trip() {
	c.trip.Store(true)
}

// Ticks returns the number of interrupt invocations.
func (c *Control) Ticks() uint64 {
	return c.ticks.Load()
}

// Stop halts servicing. Pending and future handoffs are left blocked,
// as with a dead interrupt.
func (c *Control) Stop() {
	c.stopped.Store(true)
}

func (c *Control) enabled() bool {
	return c.values.Bool(SlotEnable)
}

func (c *Control) setEnabled(on bool) {
	c.values.SetBool(SlotEnable, on)
	c.values.Modify(shmem.TypeBits, SlotStatus, func(status uint32) uint32 {
		if on {
			return status | StatusPLLLock
		}
		return status &^ StatusPLLLock
	})
}

func (c *Control) applyEnable(on bool) rpc.Code {
	if on == c.enabled() {
		return rpc.Ok
	}
	if on {
		if c.values.Bits(SlotStatus)&StatusFault != 0 {
			glog.Warning("enable refused: fault latched")
			return rpc.Illegal
		}
		if mode, _ := SplitModeByte(c.values.U8(SlotMode)); mode == ModeIdle {
			glog.Warning("enable refused: idle mode")
			return rpc.Illegal
		}
	}
	c.setEnabled(on)
	glog.Infof("control loop enabled=%v", on)
	return rpc.Ok
}

func (c *Control) applyMode(b uint8) rpc.Code {
	mode, phases := SplitModeByte(b)
	if mode >= numModes || phases >= numPhases {
		return rpc.OutOfRange
	}
	if c.enabled() {
		glog.Warning("mode switch refused: control loop running")
		return rpc.Illegal
	}
	c.values.Store(shmem.TypeU8, SlotMode, uint32(b))
	if mode == ModeIdle {
		c.values.Modify(shmem.TypeBits, SlotStatus, func(status uint32) uint32 { return status &^ StatusFault })
	}
	glog.Infof("mode %s phases %d", mode, phases)
	return rpc.Ok
}

// Tick is one interrupt invocation.
func (c *Control) Tick(now time.Time) {
	if c.stopped.Load() {
		return
	}
	if c.ticks.Add(1) == 1 {
		c.started, c.lastTick = now, now
	}
	if c.trip.Swap(false) {
		c.values.Modify(shmem.TypeBits, SlotStatus, func(status uint32) uint32 { return status | StatusFault })
		if c.enabled() {
			c.setEnabled(false)
			glog.Error("fault tripped, control loop stopped")
		}
	}
	c.enable.Service(c.applyEnable)
	c.mode.Service(c.applyMode)

	dt := now.Sub(c.lastTick).Seconds()
	c.lastTick = now
	var power float32
	if c.enabled() {
		power = c.values.Float(SlotVoltage) * c.values.Float(SlotCurrentLimit) * 0.95
	}
	c.values.SetFloat(SlotPowerOut, power)
	c.energyWs += float64(power) * dt
	if c.energyWs >= 3600 {
		wh := uint32(c.energyWs / 3600)
		c.energyWs -= float64(wh) * 3600
		c.values.Store(shmem.TypeU32, SlotEnergy, c.values.Load(shmem.TypeU32, SlotEnergy)+wh)
	}
	c.values.Store(shmem.TypeU32, SlotUptime, uint32(now.Sub(c.started)/time.Second))
}

// Run invokes Tick periodically until ctx is done.
func (c *Control) Run(ctx context.Context) error {
	period := c.Period
	if period <= 0 {
		period = DefaultControlPeriod
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			c.Tick(now)
		}
	}
}

// Name implements framework.Named.
func (c *Control) Name() string {
	return "control"
}
