package comm

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/robotalks/corelink.go/pkg/host/msgs"
)

// DefaultCommandExpiration is the default expiration expecting a result.
const DefaultCommandExpiration = 3 * time.Second

// Conn is the host side connection to a device.
type Conn struct {
	Expiration time.Duration
	// Events receives ParamChanged and other events. Events are dropped
	// when nobody reads.
	Events chan msgs.Message

	pipe     Pipe
	seq      uint32
	commands list.List
	seqMap   map[uint32]*commandFuture
	lock     sync.Mutex
}

// Init initializes Conn with defaults.
func (c *Conn) Init(rw PacketReadWriter) {
	c.Expiration = DefaultCommandExpiration
	c.Events = make(chan msgs.Message, 16)
	c.pipe.ReadWriter = rw
	c.pipe.Handler = HandleTypedMsgFunc(c.handleTypedMsg)
	c.seqMap = make(map[uint32]*commandFuture)
}

// NewConn creates a Conn over rw.
func NewConn(rw PacketReadWriter) *Conn {
	c := &Conn{}
	c.Init(rw)
	return c
}

// DoCommand sends a command and returns the future of its reply.
func (c *Conn) DoCommand(msg msgs.Message) Future {
	c.lock.Lock()
	c.seq++
	if c.seq == 0 {
		c.seq++
	}
	f := &commandFuture{
		seq:      c.seq,
		expireAt: time.Now().Add(c.Expiration),
		result:   make(chan Result, 1),
	}
	f.elem = c.commands.PushBack(f)
	c.seqMap[f.seq] = f
	c.lock.Unlock()

	// the reply may arrive before SendCommandMsg returns.
	if err := c.pipe.SendCommandMsg(msg, f.seq); err != nil {
		c.complete(f.seq, Result{Err: err})
	}
	return f
}

// Do sends a command and waits for the reply.
func (c *Conn) Do(ctx context.Context, msg msgs.Message) (msgs.Message, error) {
	select {
	case res := <-c.DoCommand(msg).ResultChan():
		return res.Msg, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// List lists the parameters of the device.
func (c *Conn) List(ctx context.Context) ([]*msgs.ParamInfo, error) {
	reply, err := c.Do(ctx, &msgs.ParamListQuery{})
	if err != nil {
		return nil, err
	}
	list, err := msgs.ExpectReply[*msgs.ParamList](reply)
	if err != nil {
		return nil, err
	}
	return list.Params, nil
}

// Get reads a parameter as text.
func (c *Conn) Get(ctx context.Context, name string, withUnit bool) (*msgs.ParamValue, error) {
	reply, err := c.Do(ctx, &msgs.ParamGet{Name: name, WithUnit: withUnit})
	if err != nil {
		return nil, err
	}
	return msgs.ExpectReply[*msgs.ParamValue](reply)
}

// Set sets a parameter from text.
func (c *Conn) Set(ctx context.Context, name, text string) error {
	reply, err := c.Do(ctx, &msgs.ParamSet{Name: name, Text: text})
	if err != nil {
		return err
	}
	_, err = msgs.ExpectReply[*msgs.CommandOK](reply)
	return err
}

// Run runs the pipe and expires unanswered commands.
func (c *Conn) Run(ctx context.Context) error {
	period := c.Expiration / 4
	if period <= 0 {
		period = DefaultCommandExpiration / 4
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	errCh := make(chan error, 1)
	go func() { errCh <- c.pipe.Run(ctx) }()
	for {
		select {
		case err := <-errCh:
			c.failAll(err)
			return err
		case now := <-ticker.C:
			c.purgeExpired(now)
		}
	}
}

// Close closes the transport.
func (c *Conn) Close() error {
	return c.pipe.Close()
}

func (c *Conn) handleTypedMsg(ctx context.Context, msg msgs.Message, typed *msgs.Typed) error {
	if typed.IsEvent() {
		select {
		case c.Events <- msg:
		default:
		}
		return nil
	}
	c.complete(typed.Sequence, Result{Msg: msg, Err: msgs.ResultErr(msg)})
	return nil
}

func (c *Conn) complete(seq uint32, res Result) {
	c.lock.Lock()
	defer c.lock.Unlock()
	f := c.seqMap[seq]
	if f == nil {
		return
	}
	c.commands.Remove(f.elem)
	delete(c.seqMap, seq)
	f.result <- res
	close(f.result)
}

func (c *Conn) purgeExpired(now time.Time) {
	c.lock.Lock()
	defer c.lock.Unlock()
	for c.commands.Len() > 0 {
		elem := c.commands.Front()
		f := elem.Value.(*commandFuture)
		if f.expireAt.After(now) {
			break
		}
		c.commands.Remove(elem)
		delete(c.seqMap, f.seq)
		f.result <- Result{Err: context.DeadlineExceeded}
		close(f.result)
	}
}

func (c *Conn) failAll(err error) {
	if err == nil {
		err = context.Canceled
	}
	c.lock.Lock()
	defer c.lock.Unlock()
	for c.commands.Len() > 0 {
		f := c.commands.Remove(c.commands.Front()).(*commandFuture)
		delete(c.seqMap, f.seq)
		f.result <- Result{Err: err}
		close(f.result)
	}
}

type commandFuture struct {
	seq      uint32
	expireAt time.Time
	elem     *list.Element
	result   chan Result
}

func (c *commandFuture) ResultChan() <-chan Result {
	return c.result
}
