package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/golang/glog"
	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	fx "github.com/robotalks/corelink.go/pkg/framework"
	"github.com/robotalks/corelink.go/pkg/host/comm"
	"github.com/robotalks/corelink.go/pkg/host/comm/mqtt"
	"github.com/robotalks/corelink.go/pkg/host/comm/stream"
	"github.com/robotalks/corelink.go/pkg/host/comm/websocket"
	"github.com/robotalks/corelink.go/pkg/param"
	"github.com/robotalks/corelink.go/pkg/rpc"
)

// Device is the parameter surface exposed to hosts.
type Device struct {
	Params   *param.Table
	Accessor *param.Accessor
	// Ready reports the health of the owning side, optional.
	Ready func() error
}

// Bridge serves a Device on every configured transport.
type Bridge struct {
	Config   *Config
	Device   Device
	Endpoint *mqtt.Endpoint
	Health   healthcheck.Handler
	Registry *prometheus.Registry

	streamLn net.Listener
	wsLn     net.Listener
	adminLn  net.Listener
}

// NewBridge creates the Bridge and binds its listeners.
func (c *Config) NewBridge(dev Device) (b *Bridge, err error) {
	if !c.Info.Ref.IsValid() {
		return nil, fmt.Errorf("device type and id must be specified")
	}
	info := c.Info
	info.Meta.Params = dev.Params.Len()
	b = &Bridge{
		Config:   c,
		Device:   dev,
		Health:   healthcheck.NewHandler(),
		Registry: prometheus.NewRegistry(),
	}
	defer func() {
		if err != nil {
			b.Close()
		}
	}()

	b.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if err = rpc.RegisterMetrics(b.Registry); err != nil {
		return nil, err
	}
	b.Health.AddLivenessCheck("goroutines", healthcheck.GoroutineCountCheck(4096))
	if dev.Ready != nil {
		b.Health.AddReadinessCheck("owner", dev.Ready)
	}

	if c.MQTTBrokerURL != "" {
		if b.Endpoint, err = mqtt.NewEndpoint(c.MQTTBrokerURL, info, dev.Params, dev.Accessor); err != nil {
			return nil, fmt.Errorf("create MQTT endpoint error: %w", err)
		}
		b.Health.AddReadinessCheck("mqtt", func() error {
			if !b.Endpoint.Queue.Client.IsConnected() {
				return errors.New("broker not connected")
			}
			return nil
		})
	}
	if c.StreamAddr != "" {
		if b.streamLn, err = net.Listen("tcp", c.StreamAddr); err != nil {
			return nil, err
		}
	}
	if c.WebsocketAddr != "" {
		if b.wsLn, err = net.Listen("tcp", c.WebsocketAddr); err != nil {
			return nil, err
		}
	}
	if c.AdminAddr != "" {
		if b.adminLn, err = net.Listen("tcp", c.AdminAddr); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// StreamAddr is the bound TCP address, nil when disabled.
func (b *Bridge) StreamAddr() net.Addr {
	return addrOf(b.streamLn)
}

// WebsocketAddr is the bound websocket address, nil when disabled.
func (b *Bridge) WebsocketAddr() net.Addr {
	return addrOf(b.wsLn)
}

// AdminAddr is the bound admin address, nil when disabled.
func (b *Bridge) AdminAddr() net.Addr {
	return addrOf(b.adminLn)
}

func addrOf(ln net.Listener) net.Addr {
	if ln == nil {
		return nil
	}
	return ln.Addr()
}

// AddToLoop implements LoopAdder.
func (b *Bridge) AddToLoop(loop *fx.Loop) {
	if b.Endpoint != nil {
		loop.Add(b.Endpoint)
	}
	if b.streamLn != nil {
		loop.AddRunnable(fx.NamedRun("stream", fx.RunFunc(b.serveStream)))
	}
	if b.wsLn != nil {
		loop.AddRunnable(fx.NamedRun("websocket", fx.RunFunc(b.serveWebsocket)))
	}
	if b.adminLn != nil {
		loop.AddRunnable(fx.NamedRun("admin", fx.RunFunc(b.serveAdmin)))
	}
}

// AdminHandler serves /metrics, /live and /ready.
func (b *Bridge) AdminHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(b.Registry, promhttp.HandlerOpts{}))
	mux.Handle("/live", b.Health)
	mux.Handle("/ready", b.Health)
	return mux
}

// Close releases the listeners.
func (b *Bridge) Close() error {
	var errs fx.AggregatedError
	for _, ln := range []net.Listener{b.streamLn, b.wsLn, b.adminLn} {
		if ln != nil {
			if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
				errs.Add(err)
			}
		}
	}
	return errs.Aggregate()
}

func (b *Bridge) newServer(rw comm.PacketReadWriter) *comm.Server {
	return comm.NewServer(rw, b.Device.Params, b.Device.Accessor)
}

func (b *Bridge) serveStream(ctx context.Context) error {
	glog.Infof("serving TCP on %s", b.streamLn.Addr())
	return stream.Serve(ctx, b.streamLn, func(ctx context.Context, rw *stream.ReadWriter) error {
		return b.newServer(rw).Serve(ctx)
	})
}

func (b *Bridge) serveWebsocket(ctx context.Context) error {
	glog.Infof("serving websocket on %s", b.wsLn.Addr())
	handler := websocket.Handler(func(ctx context.Context, rw *websocket.ReadWriter) error {
		return b.newServer(rw).Serve(ctx)
	})
	return serveHTTP(ctx, b.wsLn, handler)
}

func (b *Bridge) serveAdmin(ctx context.Context) error {
	glog.Infof("serving admin on %s", b.adminLn.Addr())
	return serveHTTP(ctx, b.adminLn, b.AdminHandler())
}

// serveHTTP serves until ctx is done. Request contexts derive from ctx.
func serveHTTP(ctx context.Context, ln net.Listener, handler http.Handler) error {
	srv := &http.Server{
		Handler:     handler,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	return fx.RunWithContextCancel(ctx, func() { srv.Close() }, func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
}
