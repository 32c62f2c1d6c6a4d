// Package inverter is the grid-tie inverter application: its shared
// variables, the owner side handlers, the control interrupt and the
// persisted configuration.
package inverter

import (
	"github.com/robotalks/corelink.go/pkg/param"
	"github.com/robotalks/corelink.go/pkg/shmem"
)

// Bool slots.
const (
	SlotEnable uint8 = iota
	SlotAutoStart
	SlotMPPT
	numBools
)

// U8 slots. The low nibble of SlotMode is the operating mode, the high
// nibble the grid phase configuration.
const (
	SlotMode uint8 = iota
	SlotRetries
	numU8s
)

// S8 slots.
const (
	SlotTrim uint8 = iota
	numS8s
)

// U16 slots.
const (
	SlotPWMFreq uint8 = iota
	SlotSoftStart
	numU16s
)

// S16 slots.
const (
	SlotTempOffset uint8 = iota
	numS16s
)

// U32 slots, written by the control interrupt only.
const (
	SlotEnergy uint8 = iota
	SlotUptime
	numU32s
)

// S32 slots.
const (
	SlotPhaseShift uint8 = iota
	numS32s
)

// Float slots.
const (
	SlotVoltage uint8 = iota
	SlotFrequency
	SlotCurrentLimit
	SlotKp
	SlotKi
	SlotPowerOut
	numFloats
)

// Bits slots.
const (
	SlotStatus uint8 = iota
	SlotOptions
	numBits
)

// SlotStatus bits.
const (
	StatusRelay uint32 = 1 << iota
	StatusPLLLock
	StatusFault
)

// SlotOptions bits.
const (
	OptionFan uint32 = 1 << iota
	OptionBuzzer
	OptionLogging
	optionsMask = OptionFan | OptionBuzzer | OptionLogging
)

// Mode is the operating mode in the low nibble of SlotMode.
type Mode uint8

// Operating modes.
const (
	ModeIdle Mode = iota
	ModeGridTie
	ModeOpenLoop
	numModes
)

// Phases is the grid configuration in the high nibble of SlotMode.
type Phases uint8

// Grid configurations.
const (
	PhasesSingle Phases = iota
	PhasesSplit
	PhasesThree
	numPhases
)

var (
	modeNames   = []string{"idle", "grid-tie", "open-loop"}
	phasesNames = []string{"single", "split", "three"}
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	if m < numModes {
		return modeNames[m]
	}
	return "invalid"
}

// ModeByte packs mode and phases into SlotMode.
func ModeByte(m Mode, p Phases) uint8 {
	return uint8(m)&0xf | uint8(p)<<4
}

// SplitModeByte is the inverse of ModeByte.
func SplitModeByte(b uint8) (Mode, Phases) {
	return Mode(b & 0xf), Phases(b >> 4)
}

// Capacity is the slot count of every value array.
var Capacity = shmem.Capacity{
	shmem.TypeBool:  numBools,
	shmem.TypeU8:    numU8s,
	shmem.TypeS8:    numS8s,
	shmem.TypeU16:   numU16s,
	shmem.TypeS16:   numS16s,
	shmem.TypeU32:   numU32s,
	shmem.TypeS32:   numS32s,
	shmem.TypeFloat: numFloats,
	shmem.TypeBits:  numBits,
}

// Params lists the parameters exposed to the host.
var Params = param.MustNewTable(
	param.Descriptor{Name: "enable", Type: shmem.TypeBool, Slot: SlotEnable},
	param.Descriptor{Name: "autostart", Type: shmem.TypeBool, Slot: SlotAutoStart},
	param.Descriptor{Name: "mppt", Type: shmem.TypeBool, Slot: SlotMPPT},
	param.Descriptor{Name: "mode", Type: shmem.TypeU8, Slot: SlotMode, Aux: param.SubCase(0), Cases: modeNames, Limits: param.Between(0, float64(numModes-1))},
	param.Descriptor{Name: "phases", Type: shmem.TypeU8, Slot: SlotMode, Aux: param.SubCase(1), Cases: phasesNames, Limits: param.Between(0, float64(numPhases-1))},
	param.Descriptor{Name: "retries", Type: shmem.TypeU8, Slot: SlotRetries, Limits: param.Between(0, 10)},
	param.Descriptor{Name: "trim", Type: shmem.TypeS8, Slot: SlotTrim, Unit: param.Percent, Limits: param.Between(-20, 20)},
	param.Descriptor{Name: "pwm_freq", Type: shmem.TypeU16, Slot: SlotPWMFreq, Unit: param.Hertz, Limits: param.Between(4000, 40000)},
	param.Descriptor{Name: "soft_start", Type: shmem.TypeU16, Slot: SlotSoftStart, Unit: param.Second, Limits: param.Between(0, 600)},
	param.Descriptor{Name: "temp_offset", Type: shmem.TypeS16, Slot: SlotTempOffset, Unit: param.Celsius, Limits: param.Between(-20, 20)},
	param.Descriptor{Name: "energy", Type: shmem.TypeU32, Slot: SlotEnergy, Unit: param.WattHour},
	param.Descriptor{Name: "uptime", Type: shmem.TypeU32, Slot: SlotUptime, Unit: param.Second},
	param.Descriptor{Name: "phase_shift", Type: shmem.TypeS32, Slot: SlotPhaseShift, Unit: param.Degree, Limits: param.Between(-180, 180)},
	param.Descriptor{Name: "v_set", Type: shmem.TypeFloat, Slot: SlotVoltage, Aux: param.Precision(1), Unit: param.Volt, Limits: param.Between(200, 260)},
	param.Descriptor{Name: "f_set", Type: shmem.TypeFloat, Slot: SlotFrequency, Aux: param.Precision(2), Unit: param.Hertz, Limits: param.Between(45, 65)},
	param.Descriptor{Name: "i_limit", Type: shmem.TypeFloat, Slot: SlotCurrentLimit, Aux: param.Precision(1), Unit: param.Ampere, Limits: param.Between(0, 32)},
	param.Descriptor{Name: "kp", Type: shmem.TypeFloat, Slot: SlotKp, Aux: param.Precision(3), Digits: 6, Limits: param.Between(0, 10)},
	param.Descriptor{Name: "ki", Type: shmem.TypeFloat, Slot: SlotKi, Aux: param.Precision(3), Digits: 6, Limits: param.Between(0, 10)},
	param.Descriptor{Name: "p_out", Type: shmem.TypeFloat, Slot: SlotPowerOut, Aux: param.Precision(0), Unit: param.Watt},
	param.Descriptor{Name: "relay", Type: shmem.TypeBits, Slot: SlotStatus, Aux: param.BitMask(StatusRelay)},
	param.Descriptor{Name: "pll_lock", Type: shmem.TypeBits, Slot: SlotStatus, Aux: param.BitMask(StatusPLLLock)},
	param.Descriptor{Name: "fault", Type: shmem.TypeBits, Slot: SlotStatus, Aux: param.BitMask(StatusFault)},
	param.Descriptor{Name: "fan", Type: shmem.TypeBits, Slot: SlotOptions, Aux: param.BitMask(OptionFan)},
	param.Descriptor{Name: "buzzer", Type: shmem.TypeBits, Slot: SlotOptions, Aux: param.BitMask(OptionBuzzer)},
	param.Descriptor{Name: "logging", Type: shmem.TypeBits, Slot: SlotOptions, Aux: param.BitMask(OptionLogging)},
)
