package mqtt

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/robotalks/corelink.go/pkg/host/comm"
)

// DefaultDiscoverTimeout defines the default timeout value of discovery.
const DefaultDiscoverTimeout = 500 * time.Millisecond

// Connector finds and connects devices through the broker.
type Connector struct {
	DiscoverTimeout time.Duration

	brokerURL   string
	options     *paho.ClientOptions
	topicPrefix string
}

// NewConnector creates a Connector.
func NewConnector(brokerURL string) (*Connector, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	return &Connector{
		DiscoverTimeout: DefaultDiscoverTimeout,
		brokerURL:       brokerURL,
		options:         opts,
		topicPrefix:     topicPrefix,
	}, nil
}

func (c *Connector) newQueue() *Queue {
	q := NewQueue(c.options, c.topicPrefix)
	q.QoS = QoSFromURL(c.brokerURL)
	return q
}

// ParseMeta decodes a retained meta message. An empty payload is a
// device gone offline.
func ParseMeta(topic string, payload []byte) (info comm.DeviceInfo, ok bool) {
	items := strings.Split(topic, "/")
	if len(items) != 3 || items[2] != "meta" || len(payload) == 0 {
		return info, false
	}
	if err := json.Unmarshal(payload, &info); err != nil {
		glog.V(1).Infof("bad meta on %q: %v", topic, err)
	}
	info.Ref = comm.DeviceRef{Type: items[0], ID: items[1]}
	return info, true
}

// Discover collects devices announcing themselves within DiscoverTimeout.
func (c *Connector) Discover(ctx context.Context) (res []comm.DeviceInfo, err error) {
	q := c.newQueue()
	if err = q.Connect(ctx); err != nil {
		return nil, err
	}
	defer q.Close()
	resCh := make(chan comm.DeviceInfo, 16)
	sub := q.Sub("+/+/meta", Handler(func(topic string, payload []byte) {
		if info, ok := ParseMeta(topic, payload); ok {
			select {
			case resCh <- info:
			case <-time.After(time.Second):
			}
		}
	}))
	defer sub.Close()

	dur := c.DiscoverTimeout
	if dur == 0 {
		dur = DefaultDiscoverTimeout
	}
	timeout := time.After(dur)
	for {
		select {
		case info := <-resCh:
			res = append(res, info)
		case <-timeout:
			return
		case <-ctx.Done():
			err = ctx.Err()
			return
		}
	}
}

// Connect connects the device identified by ref.
func (c *Connector) Connect(ctx context.Context, ref comm.DeviceRef) (*Conn, error) {
	conn := &Conn{Queue: c.newQueue()}
	conn.rw = NewPacketReadWriter(conn.Queue).ForHost(ref)
	conn.Init(conn.rw)
	if err := conn.Queue.Connect(ctx); err != nil {
		return nil, err
	}
	return conn, nil
}

// Conn is a host connection through the broker.
type Conn struct {
	comm.Conn
	Queue *Queue

	rw *ReadWriter
}

// Run runs the subscription and the connection until ctx is done.
func (c *Conn) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go c.rw.Run(ctx)
	return c.Conn.Run(ctx)
}

// Close disconnects from the broker.
func (c *Conn) Close() error {
	c.Conn.Close()
	return c.Queue.Close()
}
