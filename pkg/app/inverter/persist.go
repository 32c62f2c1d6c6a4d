package inverter

import (
	"github.com/robotalks/corelink.go/pkg/shmem"
	"github.com/robotalks/corelink.go/pkg/storage"
)

// Fields is the persisted configuration, in flash image order.
// Appending keeps older images loadable only if their length matches,
// so any change here resets the configuration to defaults.
var Fields = storage.Fields{
	{Name: "enable", Type: shmem.TypeBool, Slot: SlotEnable, Transient: true},
	{Name: "autostart", Type: shmem.TypeBool, Slot: SlotAutoStart},
	{Name: "mppt", Type: shmem.TypeBool, Slot: SlotMPPT, Default: 1},
	{Name: "mode", Type: shmem.TypeU8, Slot: SlotMode, Max: 0x2f, Default: uint32(ModeByte(ModeIdle, PhasesSingle))},
	{Name: "retries", Type: shmem.TypeU8, Slot: SlotRetries, Max: 10, Default: 3},
	{Name: "trim", Type: shmem.TypeS8, Slot: SlotTrim, Min: -20, Max: 20},
	{Name: "pwm_freq", Type: shmem.TypeU16, Slot: SlotPWMFreq, Min: 4000, Max: 40000, Default: 20000},
	{Name: "soft_start", Type: shmem.TypeU16, Slot: SlotSoftStart, Max: 600, Default: 5},
	{Name: "temp_offset", Type: shmem.TypeS16, Slot: SlotTempOffset, Min: -20, Max: 20},
	{Name: "energy", Type: shmem.TypeU32, Slot: SlotEnergy},
	{Name: "uptime", Type: shmem.TypeU32, Slot: SlotUptime, Transient: true},
	{Name: "phase_shift", Type: shmem.TypeS32, Slot: SlotPhaseShift, Min: -180, Max: 180},
	{Name: "v_set", Type: shmem.TypeFloat, Slot: SlotVoltage, Min: 200, Max: 260, Default: shmem.FloatWord(230)},
	{Name: "f_set", Type: shmem.TypeFloat, Slot: SlotFrequency, Min: 45, Max: 65, Default: shmem.FloatWord(50)},
	{Name: "i_limit", Type: shmem.TypeFloat, Slot: SlotCurrentLimit, Min: 0, Max: 32, Default: shmem.FloatWord(16)},
	{Name: "kp", Type: shmem.TypeFloat, Slot: SlotKp, Min: 0, Max: 10, Default: shmem.FloatWord(0.5)},
	{Name: "ki", Type: shmem.TypeFloat, Slot: SlotKi, Min: 0, Max: 10, Default: shmem.FloatWord(0.05)},
	{Name: "p_out", Type: shmem.TypeFloat, Slot: SlotPowerOut, Transient: true},
	{Name: "status", Type: shmem.TypeBits, Slot: SlotStatus, Transient: true},
	{Name: "options", Type: shmem.TypeBits, Slot: SlotOptions, Max: float64(optionsMask), Default: OptionFan},
}
