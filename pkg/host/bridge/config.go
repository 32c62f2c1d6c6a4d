// Package bridge exposes a device's parameters to hosts over the comm
// transports and serves the admin endpoint.
package bridge

import (
	"flag"
	"log"
	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"

	"github.com/robotalks/corelink.go/pkg/host/comm"
)

// Config provides the options of the host bridge.
type Config struct {
	Info comm.DeviceInfo

	// MQTTBrokerURL specifies the MQTT broker, empty disables it.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string
	// StreamAddr is the TCP listen address, empty disables it.
	StreamAddr string
	// WebsocketAddr is the websocket listen address, empty disables it.
	WebsocketAddr string
	// AdminAddr serves /metrics, /live and /ready, empty disables it.
	AdminAddr string
}

var defaultConfig = Config{
	Info: comm.DeviceInfo{
		Ref: comm.DeviceRef{Type: "inverter"},
	},
	StreamAddr: ":7420",
	AdminAddr:  ":7480",
}

func init() {
	if val := os.Getenv("CORELINK_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	if val := os.Getenv("CORELINK_TYPE"); val != "" {
		defaultConfig.Info.Ref.Type = val
	}
	defaultConfig.Info.Ref.ID = MachineID()
}

// MachineID retrieves the unique ID identifying the machine, or
// "unknown" when the platform does not expose one.
func MachineID() string {
	id, err := machineid.ID()
	if err != nil {
		glog.Warningf("machine id: %v", err)
		return "unknown"
	}
	return id
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Info.Ref.Type, "type", defaultConfig.Info.Ref.Type, "Device type")
	flag.StringVar(&defaultConfig.Info.Ref.ID, "id", defaultConfig.Info.Ref.ID, "Device ID")
	flag.StringVar(&defaultConfig.Info.Meta.Description, "desc", defaultConfig.Info.Meta.Description, "Device description")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL")
	flag.StringVar(&defaultConfig.StreamAddr, "listen", defaultConfig.StreamAddr, "TCP listen address")
	flag.StringVar(&defaultConfig.WebsocketAddr, "ws-listen", defaultConfig.WebsocketAddr, "Websocket listen address")
	flag.StringVar(&defaultConfig.AdminAddr, "admin", defaultConfig.AdminAddr, "Admin HTTP listen address")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// MustNewBridge creates a Bridge and fails on error.
func (c *Config) MustNewBridge(dev Device) *Bridge {
	b, err := c.NewBridge(dev)
	if err != nil {
		log.Fatalln(err)
	}
	return b
}
