package rpc

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/corelink.go/pkg/shmem"
)

// DefaultPollInterval is the scheduler yield between response polls.
const DefaultPollInterval = time.Millisecond

// ErrClientClosed is returned by calls on a closed Client.
var ErrClientClosed = errors.New("rpc client closed")

// Client issues requests from the requesting core.
//
// A Client owns a single call permit: at most one request is in flight
// at any time. A call abandoned through its context keeps the permit
// until the owner's late response is drained, so a request can never
// be matched with another request's response.
//
// Close must be called before the region is unmapped.
type Client struct {
	PollInterval time.Duration

	layout *shmem.Layout
	permit chan struct{}
	done   chan struct{}

	lock   sync.Mutex
	closed bool
	// busy counts goroutines using the layout.
	busy sync.WaitGroup
}

// NewClient creates a Client on the requester side of layout.
func NewClient(layout *shmem.Layout) *Client {
	c := &Client{
		PollInterval: DefaultPollInterval,
		layout:       layout,
		permit:       make(chan struct{}, 1),
		done:         make(chan struct{}),
	}
	c.permit <- struct{}{}
	return c
}

// Call enqueues a request and waits for the owner's result.
// The returned error is nil, a Code, or the context error.
func (c *Client) Call(ctx context.Context, kind Kind, slot uint8, word uint32) (err error) {
	start := time.Now()
	defer func() {
		callsTotal.WithLabelValues(kind.String(), resultLabel(err)).Inc()
		callSeconds.WithLabelValues(kind.String()).Observe(time.Since(start).Seconds())
	}()

	select {
	case <-c.permit:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return ErrClientClosed
	}
	if !c.begin() {
		c.permit <- struct{}{}
		return ErrClientClosed
	}

	msg := c.enqueue(kind, slot, word)
	code, err := c.await(ctx, msg)
	if err == ErrClientClosed {
		c.busy.Done()
		return err
	}
	if err != nil {
		glog.Warningf("%s slot %d abandoned: %v", kind, slot, err)
		// the drain takes over the busy count.
		go c.drain(msg)
		return err
	}
	c.busy.Done()
	c.permit <- struct{}{}
	glog.V(2).Infof("%s slot %d word %#x: %s", kind, slot, word, code)
	return code.Err()
}

func (c *Client) begin() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.closed {
		return false
	}
	c.busy.Add(1)
	return true
}

func (c *Client) enqueue(kind Kind, slot uint8, word uint32) *shmem.Request {
	l := c.layout
	idx, pidx := l.Requests.WriteIndex(), l.Payloads.WriteIndex()
	msg := &l.Messages[idx]
	msg.Kind.Store(uint32(kind))
	msg.Slot.Store(uint32(slot))
	msg.PayloadIndex.Store(int32(pidx))
	msg.PayloadLen.Store(1)
	msg.ResponseLen.Store(shmem.NoResponse)
	msg.ResponseIndex.Store(shmem.NoResponse)
	l.RequestPayloads[pidx].Store(word)
	// the request ring commits last: the owner only looks at a request
	// after its payload is in place.
	l.Payloads.Write()
	l.Requests.Write()
	return msg
}

// poll consumes the response of msg if it is published.
func (c *Client) poll(msg *shmem.Request) (Code, bool) {
	idx := msg.ResponseIndex.Load()
	if idx == shmem.NoResponse {
		return Pending, false
	}
	l := c.layout
	code := Code(l.ResponsePayloads[uint32(idx)%shmem.RequestSlots].Load())
	l.Responses.Read()
	return code, true
}

func (c *Client) await(ctx context.Context, msg *shmem.Request) (Code, error) {
	if code, ok := c.poll(msg); ok {
		return code, nil
	}
	ticker := time.NewTicker(c.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return Pending, ctx.Err()
		case <-c.done:
			return Pending, ErrClientClosed
		case <-ticker.C:
			if code, ok := c.poll(msg); ok {
				return code, nil
			}
		}
	}
}

func (c *Client) drain(msg *shmem.Request) {
	defer c.busy.Done()
	ticker := time.NewTicker(c.interval())
	defer ticker.Stop()
	for {
		if code, ok := c.poll(msg); ok {
			glog.V(2).Infof("late response drained: %s", code)
			c.permit <- struct{}{}
			return
		}
		select {
		case <-c.done:
			glog.Warning("client closed with a response pending")
			return
		case <-ticker.C:
		}
	}
}

// Close fails pending and further calls and stops draining abandoned
// ones. It returns once nothing of the Client touches the layout.
func (c *Client) Close() error {
	c.lock.Lock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
	c.lock.Unlock()
	c.busy.Wait()
	return nil
}

func (c *Client) interval() time.Duration {
	if c.PollInterval > 0 {
		return c.PollInterval
	}
	return DefaultPollInterval
}
