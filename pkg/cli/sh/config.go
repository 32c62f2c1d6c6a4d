package sh

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	fx "github.com/robotalks/corelink.go/pkg/framework"
	"github.com/robotalks/corelink.go/pkg/host/comm"
	"github.com/robotalks/corelink.go/pkg/host/comm/mqtt"
	"github.com/robotalks/corelink.go/pkg/host/comm/stream"
	"github.com/robotalks/corelink.go/pkg/host/comm/websocket"
)

// Config provides options to reach a device.
type Config struct {
	Ref comm.DeviceRef

	// URL locates the device or the broker, e.g.
	// tcp://host:7420, ws://host:7421/corelink, mqtt://host:1883/corelink/
	URL string
	// Timeout bounds each command.
	Timeout time.Duration
}

var defaultConfig = Config{
	URL:     "mqtt://localhost:1883/corelink/",
	Timeout: 3 * time.Second,
}

func init() {
	if val := os.Getenv("CORELINK_TYPE"); val != "" {
		defaultConfig.Ref.Type = val
	}
	if val := os.Getenv("CORELINK_ID"); val != "" {
		defaultConfig.Ref.ID = val
	}
	if val := os.Getenv("CORELINK_URL"); val != "" {
		defaultConfig.URL = val
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Ref.Type, "device-type", defaultConfig.Ref.Type, "Device type to connect through MQTT.")
	flag.StringVar(&defaultConfig.Ref.ID, "device-id", defaultConfig.Ref.ID, "Device ID to connect through MQTT.")
	flag.StringVar(&defaultConfig.URL, "url", defaultConfig.URL, "Device or MQTT broker URL.")
	flag.DurationVar(&defaultConfig.Timeout, "timeout", defaultConfig.Timeout, "Command timeout.")
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

// CanConnect tells whether URL alone identifies a device.
func (c *Config) CanConnect() bool {
	u, err := url.Parse(c.URL)
	if err != nil {
		return false
	}
	if u.Scheme == "mqtt" {
		return c.Ref.IsValid()
	}
	return u.Host != ""
}

// Name names the connected device for prompts.
func (c *Config) Name() string {
	if u, err := url.Parse(c.URL); err == nil && u.Scheme != "mqtt" {
		return u.Host
	}
	return c.Ref.Name()
}

// Discover lists devices announced on the MQTT broker.
func (c *Config) Discover(ctx context.Context) ([]comm.DeviceInfo, error) {
	u, err := url.Parse(c.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "mqtt" {
		return nil, fmt.Errorf("discovery requires an mqtt:// URL")
	}
	connector, err := mqtt.NewConnector(c.URL)
	if err != nil {
		return nil, err
	}
	return connector.Discover(ctx)
}

// Session is a running connection to a device.
type Session struct {
	Name string
	Conn *comm.Conn

	closer io.Closer
	cancel context.CancelFunc
	done   chan error
}

// Open connects the device according to URL scheme.
func (c *Config) Open(ctx context.Context) (*Session, error) {
	u, err := url.Parse(c.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	s := &Session{Name: c.Name(), done: make(chan error, 1)}
	var runner fx.Runnable
	switch u.Scheme {
	case "tcp":
		rw, err := stream.Dial(ctx, u.Host)
		if err != nil {
			return nil, err
		}
		s.Conn = comm.NewConn(rw)
		runner, s.closer = s.Conn, s.Conn
	case "ws", "wss":
		rw, err := websocket.Dial(c.URL)
		if err != nil {
			return nil, err
		}
		s.Conn = comm.NewConn(rw)
		runner, s.closer = s.Conn, s.Conn
	case "mqtt":
		if !c.Ref.IsValid() {
			return nil, fmt.Errorf("device type and id must be specified")
		}
		connector, err := mqtt.NewConnector(c.URL)
		if err != nil {
			return nil, err
		}
		conn, err := connector.Connect(ctx, c.Ref)
		if err != nil {
			return nil, err
		}
		s.Conn = &conn.Conn
		runner, s.closer = conn, conn
	default:
		return nil, fmt.Errorf("unknown URL scheme: %q", u.Scheme)
	}
	if c.Timeout > 0 {
		s.Conn.Expiration = c.Timeout
	}
	var runCtx context.Context
	runCtx, s.cancel = context.WithCancel(context.Background())
	go func() { s.done <- runner.Run(runCtx) }()
	return s, nil
}

// Close disconnects the device.
func (s *Session) Close() error {
	s.cancel()
	err := s.closer.Close()
	<-s.done
	return err
}
