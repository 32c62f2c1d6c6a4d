package stream

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadWritePacket(t *testing.T) {
	var buf bytes.Buffer
	rw := New(&buf)
	require.NoError(t, rw.WritePacket([]byte("hello")))
	require.NoError(t, rw.WritePacket(nil))
	assert.Equal(t, []byte{5, 0, 0, 0, 'h', 'e', 'l', 'l', 'o', 0, 0, 0, 0}, buf.Bytes())

	pkt, err := rw.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(pkt))
	pkt, err = rw.ReadPacket()
	require.NoError(t, err)
	assert.Empty(t, pkt)
	_, err = rw.ReadPacket()
	assert.Equal(t, io.EOF, err)
}

func TestPacketTooLarge(t *testing.T) {
	var buf bytes.Buffer
	rw := New(&buf)
	rw.MaxPacketSize = 4
	assert.True(t, errors.Is(rw.WritePacket([]byte("hello")), ErrPacketTooLarge))
	assert.Zero(t, buf.Len())

	buf.Write([]byte{0xff, 0xff, 0, 0})
	_, err := rw.ReadPacket()
	assert.True(t, errors.Is(err, ErrPacketTooLarge))
}

func TestTruncatedPacket(t *testing.T) {
	rw := New(bytes.NewBuffer([]byte{3, 0, 0, 0, 'a'}))
	_, err := rw.ReadPacket()
	assert.Equal(t, io.ErrUnexpectedEOF, err)
}

func TestServe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, ln, func(ctx context.Context, rw *ReadWriter) error {
			for {
				pkt, err := rw.ReadPacket()
				if err != nil {
					return nil
				}
				if err = rw.WritePacket(append([]byte("echo:"), pkt...)); err != nil {
					return err
				}
			}
		})
	}()

	rw, err := Dial(ctx, ln.Addr().String())
	require.NoError(t, err)
	require.NoError(t, rw.WritePacket([]byte("ping")))
	pkt, err := rw.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, "echo:ping", string(pkt))
	require.NoError(t, rw.Close())

	cancel()
	assert.Equal(t, context.Canceled, <-done)
}
