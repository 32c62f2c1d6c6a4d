package framework

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recorder struct {
	lock  sync.Mutex
	order []string
}

func (r *recorder) ctl(name string) Controller {
	return ControlFunc(func(ControlContext) error {
		r.lock.Lock()
		r.order = append(r.order, name)
		r.lock.Unlock()
		return nil
	})
}

func (r *recorder) snapshot() []string {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]string(nil), r.order...)
}

func TestLoopPriorityOrder(t *testing.T) {
	var rec recorder
	l := NewLoop()
	l.AddController(PrLvLow, rec.ctl("low"))
	l.AddController(PrLvTop, rec.ctl("top"))
	l.AddController(PrLvNormal, rec.ctl("normal"))
	l.PreRunAt(PrLvNormal, rec.ctl("pre"))
	l.PostRunAt(PrLvNormal, rec.ctl("post"))

	l.runIteration(context.Background())
	require.Equal(t, []string{"top", "pre", "normal", "post", "low"}, rec.snapshot())

	// hooks are one-shot
	l.runIteration(context.Background())
	require.Equal(t, []string{"top", "pre", "normal", "post", "low", "top", "normal", "low"}, rec.snapshot())
	require.EqualValues(t, 2, l.Iterations())
}

func TestLoopPostRunFromController(t *testing.T) {
	var rec recorder
	l := NewLoop()
	l.AddController(PrLvHigh, ControlFunc(func(cc ControlContext) error {
		if cc.Iteration() == 0 {
			require.Equal(t, PrLvHigh, cc.PriorityLevel())
			cc.PostRun(rec.ctl("hook"))
		}
		return nil
	}))
	l.runIteration(context.Background())
	l.runIteration(context.Background())
	require.Equal(t, []string{"hook"}, rec.snapshot())
}

func TestLoopTriggerNext(t *testing.T) {
	l := NewLoop()
	l.Interval = time.Hour
	done := make(chan struct{})
	var count int
	l.AddController(PrLvNormal, ControlFunc(func(cc ControlContext) error {
		count++
		if count < 3 {
			cc.TriggerNext()
		} else {
			close(done)
		}
		return nil
	}))
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()
	l.TriggerNext()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("loop was not triggered")
	}
	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)
	require.False(t, l.LastRun().IsZero())
}

func TestRunnerAggregatesErrors(t *testing.T) {
	errA := errors.New("a")
	r := NewRunner().Go(
		RunFunc(func(context.Context) error { return errA }),
		RunFunc(func(context.Context) error { return nil }),
		NamedRun("canceled", RunFunc(func(context.Context) error { return context.Canceled })),
	)
	err := r.Wait()
	require.Error(t, err)
	require.ErrorIs(t, err, errA)
	require.Equal(t, "a", err.Error())

	require.NoError(t, NewRunner().Go(RunFunc(func(context.Context) error { return nil })).Wait())
}

type closeCounter struct{ n int }

func (c *closeCounter) Close() error {
	c.n++
	return nil
}

func TestRunWithContextCloser(t *testing.T) {
	var c closeCounter
	require.NoError(t, RunWithContextCloser(context.Background(), &c, func() error { return nil }))
	require.Equal(t, 1, c.n)

	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	c.n = 0
	go cancel()
	err := RunWithContextCancel(ctx, func() { close(release) }, func() error {
		<-release
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
}
