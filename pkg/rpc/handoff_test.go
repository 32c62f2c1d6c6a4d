package rpc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHandoffServiced(t *testing.T) {
	var h Handoff[uint8]
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
				h.Service(func(v uint8) Code {
					if v > 3 {
						return OutOfRange
					}
					return Ok
				})
				time.Sleep(100 * time.Microsecond)
			}
		}
	}()

	code, err := h.Request(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, Ok, code)
	code, err = h.Request(context.Background(), 9)
	require.NoError(t, err)
	require.Equal(t, OutOfRange, code)
	require.False(t, h.Pending())
}

func TestHandoffBlocksUntilServiced(t *testing.T) {
	var h Handoff[bool]
	ctx, cancel := context.WithCancel(context.Background())
	type result struct {
		code Code
		err  error
	}
	done := make(chan result, 1)
	go func() {
		code, err := h.Request(ctx, true)
		done <- result{code, err}
	}()

	select {
	case <-done:
		t.Fatal("request returned without being serviced")
	case <-time.After(50 * time.Millisecond):
	}
	require.True(t, h.Pending())

	cancel()
	res := <-done
	require.ErrorIs(t, res.err, context.Canceled)
	require.Equal(t, Pending, res.code)
	require.False(t, h.Pending())
	// a withdrawn request is not applied later
	require.False(t, h.Service(func(bool) Code { return Ok }))
}

func TestHandoffServiceNothingPending(t *testing.T) {
	var h Handoff[int]
	called := false
	require.False(t, h.Service(func(int) Code { called = true; return Ok }))
	require.False(t, called)
}
