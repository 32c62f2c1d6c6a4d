package inverter

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/robotalks/corelink.go/pkg/framework"
	"github.com/robotalks/corelink.go/pkg/storage"
)

// Config provides the options of the inverter system.
type Config struct {
	// FlashPath is the flash image file, empty keeps it in memory.
	FlashPath string
	// MapShared places the region in a shared mapping instead of the heap.
	MapShared bool

	LoopInterval   time.Duration
	ControlPeriod  time.Duration
	RefreshPeriod  time.Duration
	CallTimeout    time.Duration
	HandoffTimeout time.Duration
}

var defaultConfig = Config{
	MapShared:     true,
	LoopInterval:  framework.DefaultInterval,
	ControlPeriod: DefaultControlPeriod,
	RefreshPeriod: storage.DefaultRefreshPeriod,
	CallTimeout:   time.Second,
}

func init() {
	if val := os.Getenv("CORELINK_FLASH"); val != "" {
		defaultConfig.FlashPath = val
	}
	if val := os.Getenv("CORELINK_CALL_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			defaultConfig.CallTimeout = d
		}
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.FlashPath, "flash", defaultConfig.FlashPath, "Flash image file, in memory if empty")
	flag.BoolVar(&defaultConfig.MapShared, "shm", defaultConfig.MapShared, "Place the shared region in a shared mapping")
	flag.DurationVar(&defaultConfig.LoopInterval, "loop-interval", defaultConfig.LoopInterval, "Owner main loop interval")
	flag.DurationVar(&defaultConfig.ControlPeriod, "control-period", defaultConfig.ControlPeriod, "Control interrupt period")
	flag.DurationVar(&defaultConfig.RefreshPeriod, "refresh-period", defaultConfig.RefreshPeriod, "Flash refresh period")
	flag.DurationVar(&defaultConfig.CallTimeout, "call-timeout", defaultConfig.CallTimeout, "Timeout of a cross-core set, 0 waits forever")
	flag.DurationVar(&defaultConfig.HandoffTimeout, "handoff-timeout", defaultConfig.HandoffTimeout, "Timeout waiting for the control interrupt, 0 waits forever")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// MustNewSystem creates a System and fails on error.
func (c *Config) MustNewSystem() *System {
	s, err := c.NewSystem()
	if err != nil {
		log.Fatalln(err)
	}
	return s
}
