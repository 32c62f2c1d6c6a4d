package comm

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/corelink.go/pkg/app/inverter"
	"github.com/robotalks/corelink.go/pkg/host/msgs"
	"github.com/robotalks/corelink.go/pkg/rpc"
)

type chanReadWriter struct {
	in   <-chan []byte
	out  chan<- []byte
	done chan struct{}
	once *sync.Once
}

func newChanPair() (*chanReadWriter, *chanReadWriter) {
	a, b := make(chan []byte, 16), make(chan []byte, 16)
	done, once := make(chan struct{}), &sync.Once{}
	return &chanReadWriter{in: a, out: b, done: done, once: once},
		&chanReadWriter{in: b, out: a, done: done, once: once}
}

func (c *chanReadWriter) ReadPacket() ([]byte, error) {
	select {
	case pkt := <-c.in:
		return pkt, nil
	case <-c.done:
		return nil, io.EOF
	}
}

func (c *chanReadWriter) WritePacket(pkt []byte) error {
	select {
	case <-c.done:
		return io.ErrClosedPipe
	default:
	}
	select {
	case c.out <- append([]byte(nil), pkt...):
		return nil
	case <-c.done:
		return io.ErrClosedPipe
	}
}

func (c *chanReadWriter) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

// probe is a command no device understands.
type probe struct {
	Note string `protobuf:"bytes,1,opt,name=note,proto3" json:"note,omitempty"`
}

func (p *probe) ProtoMessage()            {}
func (p *probe) Reset()                   { *p = probe{} }
func (p *probe) String() string           { return proto.CompactTextString(p) }
func (p *probe) NewMessage() msgs.Message { return &probe{} }
func (p *probe) TypeID() uint32           { return msgs.GroupParam | 0x7f }

type device struct {
	sys    *inverter.System
	server *Server
	conn   *Conn
}

func startDevice(t *testing.T, watch time.Duration) *device {
	conf := inverter.NewConfig()
	conf.FlashPath = ""
	conf.MapShared = false
	conf.LoopInterval = 200 * time.Microsecond
	conf.ControlPeriod = 100 * time.Microsecond
	conf.RefreshPeriod = time.Hour
	conf.CallTimeout = 5 * time.Second
	sys, err := conf.NewSystem()
	require.NoError(t, err)

	devEnd, hostEnd := newChanPair()
	d := &device{
		sys:    sys,
		server: NewServer(devEnd, inverter.Params, sys.Params),
		conn:   NewConn(hostEnd),
	}
	d.server.WatchPeriod = watch

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); sys.Run(ctx) }()
	go func() { defer wg.Done(); d.server.Serve(ctx) }()
	go func() { defer wg.Done(); d.conn.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		wg.Wait()
		sys.Close()
	})
	return d
}

func TestListParams(t *testing.T) {
	d := startDevice(t, 0)
	list, err := d.conn.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, inverter.Params.Len())
	byName := make(map[string]*msgs.ParamInfo)
	for _, info := range list {
		byName[info.Name] = info
	}
	require.Contains(t, byName, "v_set")
	assert.Equal(t, "V", byName["v_set"].Unit)
	assert.Equal(t, "200..260", byName["v_set"].Range)
	require.Contains(t, byName, "mode")
	assert.NotEmpty(t, byName["mode"].Cases)
}

func TestGetSet(t *testing.T) {
	d := startDevice(t, 0)
	ctx := context.Background()
	require.NoError(t, d.conn.Set(ctx, "v_set", "240.5"))
	val, err := d.conn.Get(ctx, "v_set", true)
	require.NoError(t, err)
	assert.Equal(t, "240.5V", val.Text)
	val, err = d.conn.Get(ctx, "v_set", false)
	require.NoError(t, err)
	assert.Equal(t, "240.5", val.Text)
}

func TestSetRejected(t *testing.T) {
	d := startDevice(t, 0)
	ctx := context.Background()

	err := d.conn.Set(ctx, "v_set", "300")
	require.Error(t, err)
	assert.True(t, errors.Is(err, rpc.OutOfRange), err.Error())
	var cmdErr *msgs.CommandErr
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, uint32(rpc.OutOfRange), cmdErr.Code)

	_, err = d.conn.Get(ctx, "nope", false)
	assert.True(t, errors.Is(err, rpc.Illegal))

	val, err := d.conn.Get(ctx, "v_set", true)
	require.NoError(t, err)
	assert.Equal(t, "230.0V", val.Text)
}

func TestUnknownCommand(t *testing.T) {
	d := startDevice(t, 0)
	_, err := d.conn.Do(context.Background(), &probe{Note: "hi"})
	require.Error(t, err)
	var cmdErr *msgs.CommandErr
	require.True(t, errors.As(err, &cmdErr))
	assert.Contains(t, cmdErr.Message, "unknown type")
}

func TestParamChangedEvents(t *testing.T) {
	d := startDevice(t, 5*time.Millisecond)
	ctx := context.Background()
	// let the watcher record the initial values.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, d.conn.Set(ctx, "f_set", "60.00"))

	timeout := time.After(5 * time.Second)
	for {
		select {
		case msg := <-d.conn.Events:
			ev, ok := msg.(*msgs.ParamChanged)
			require.True(t, ok)
			for _, v := range ev.Values {
				if v.Name == "f_set" {
					assert.Equal(t, "60.00Hz", v.Text)
					return
				}
			}
		case <-timeout:
			t.Fatal("no change published for f_set")
		}
	}
}

func TestCommandExpires(t *testing.T) {
	_, hostEnd := newChanPair()
	conn := NewConn(hostEnd)
	conn.Expiration = 20 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- conn.Run(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	res := <-conn.DoCommand(&msgs.ParamListQuery{}).ResultChan()
	assert.Nil(t, res.Msg)
	assert.Equal(t, context.DeadlineExceeded, res.Err)
}

func TestPendingFailOnClose(t *testing.T) {
	devEnd, hostEnd := newChanPair()
	conn := NewConn(hostEnd)
	done := make(chan error, 1)
	go func() { done <- conn.Run(context.Background()) }()

	future := conn.DoCommand(&msgs.ParamGet{Name: "v_set"})
	// the request reached the device side but is never answered.
	_, err := devEnd.ReadPacket()
	require.NoError(t, err)
	devEnd.Close()

	res := <-future.ResultChan()
	assert.Error(t, res.Err)
	<-done
}

func TestSendAfterClose(t *testing.T) {
	devEnd, hostEnd := newChanPair()
	devEnd.Close()
	conn := NewConn(hostEnd)
	res := <-conn.DoCommand(&msgs.ParamListQuery{}).ResultChan()
	assert.Equal(t, io.ErrClosedPipe, res.Err)
}
