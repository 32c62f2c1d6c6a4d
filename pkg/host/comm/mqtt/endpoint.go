package mqtt

import (
	"context"
	"encoding/json"

	fx "github.com/robotalks/corelink.go/pkg/framework"
	"github.com/robotalks/corelink.go/pkg/host/comm"
	"github.com/robotalks/corelink.go/pkg/param"
)

// Endpoint exposes a device through the broker.
type Endpoint struct {
	Queue  *Queue
	Info   comm.DeviceInfo
	Server *comm.Server

	metaJSON []byte
}

// NewEndpoint creates an Endpoint serving params through accessor.
func NewEndpoint(brokerURL string, info comm.DeviceInfo, params *param.Table, accessor *param.Accessor) (*Endpoint, error) {
	meta, err := json.Marshal(&info)
	if err != nil {
		return nil, err
	}
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	// an empty retained meta tells hosts the device is gone.
	opts.SetBinaryWill(topicPrefix+metaTopic(info.Ref), nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("corelink:" + info.Ref.Name())
	}
	e := &Endpoint{
		Queue:    NewQueue(opts, topicPrefix),
		Info:     info,
		metaJSON: meta,
	}
	e.Queue.QoS = QoSFromURL(brokerURL)
	e.Queue.OnConnect = func(q *Queue) {
		q.PubWith(metaTopic(e.Info.Ref), e.metaJSON, 1, true)
	}
	e.Server = comm.NewServer(NewPacketReadWriter(e.Queue).ForDevice(info.Ref), params, accessor)
	return e, nil
}

// AddToLoop implements LoopAdder.
func (e *Endpoint) AddToLoop(loop *fx.Loop) {
	loop.Add(e.Server)
	loop.AddRunnable(e)
}

// Run implements Runnable.
func (e *Endpoint) Run(ctx context.Context) error {
	if err := e.Queue.Connect(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	e.Queue.PubWith(metaTopic(e.Info.Ref), nil, 1, true).Wait()
	e.Queue.Close()
	return ctx.Err()
}

func metaTopic(ref comm.DeviceRef) string {
	return ref.Name() + "/meta"
}
