package inverter

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/corelink.go/pkg/framework"
	"github.com/robotalks/corelink.go/pkg/param"
	"github.com/robotalks/corelink.go/pkg/rpc"
	"github.com/robotalks/corelink.go/pkg/shmem"
	"github.com/robotalks/corelink.go/pkg/storage"
)

// System wires the roles sharing one region: the owner (dispatcher,
// control interrupt and flash refresher) and the requester.
type System struct {
	Config    *Config
	Region    *shmem.Region
	Control   *Control
	Server    *rpc.Server
	Refresher *storage.Refresher
	Loop      *fx.Loop

	Client *rpc.Client
	Params *param.Accessor
}

// NewSystem boots the region: value arrays are zeroed, then loaded from
// flash, then the control loop is autostarted if configured.
func (c *Config) NewSystem() (*System, error) {
	if err := Fields.Validate(Capacity); err != nil {
		return nil, err
	}
	var region *shmem.Region
	if c.MapShared {
		var err error
		if region, err = shmem.Map(Capacity); err != nil {
			return nil, err
		}
	} else {
		region = shmem.New(Capacity)
	}
	values, err := region.Owner()
	if err != nil {
		region.Close()
		return nil, err
	}

	var flash storage.Flash = &storage.MemFlash{}
	if c.FlashPath != "" {
		flash = &storage.FileFlash{Path: c.FlashPath}
	}

	s := &System{Config: c, Region: region}
	s.Refresher = storage.NewRefresher(storage.NewHooks(values, Fields), flash)
	if c.RefreshPeriod > 0 {
		s.Refresher.Period = c.RefreshPeriod
	}
	s.Refresher.Boot()

	s.Control = NewControl(values)
	s.Control.Period = c.ControlPeriod
	s.Control.Boot()

	s.Server = rpc.NewServer(region.Layout(), values, newOwner(values, s.Control, c.HandoffTimeout).Handlers())
	s.Loop = fx.NewLoop().Add(s.Server, s.Refresher)
	s.Loop.Interval = c.LoopInterval
	s.Loop.AddRunnable(s.Control)

	s.Client = rpc.NewClient(region.Layout())
	s.Params = param.NewAccessor(region.View(), &timeoutSetter{Setter: s.Client, timeout: c.CallTimeout})
	return s, nil
}

// Run runs the owner roles until ctx is done. Changes not yet
// programmed are flushed on exit.
func (s *System) Run(ctx context.Context) error {
	err := s.Loop.Run(ctx)
	if n, ferr := s.Refresher.Sync(); ferr != nil {
		glog.Errorf("final flash sync: %v", ferr)
	} else if n > 0 {
		glog.Infof("flushed %d words on exit", n)
	}
	return err
}

// Ready reports an error when the owner loop stalls.
func (s *System) Ready() error {
	last := s.Loop.LastRun()
	if last.IsZero() {
		return fmt.Errorf("owner loop not started")
	}
	if stall := time.Since(last); stall > 100*s.Loop.Interval+time.Second {
		return fmt.Errorf("owner loop stalled for %v", stall)
	}
	return nil
}

// Close stops the requester then releases the region.
func (s *System) Close() error {
	s.Client.Close()
	return s.Region.Close()
}

// timeoutSetter bounds every call without a deadline.
type timeoutSetter struct {
	param.Setter
	timeout time.Duration
}

func (s *timeoutSetter) Call(ctx context.Context, kind rpc.Kind, slot uint8, word uint32) error {
	if _, ok := ctx.Deadline(); !ok && s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return s.Setter.Call(ctx, kind, slot, word)
}
