// Package stream frames packets over byte streams such as TCP.
package stream

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/golang/glog"
	"github.com/valyala/bytebufferpool"

	fx "github.com/robotalks/corelink.go/pkg/framework"
)

// DefaultMaxPacketSize bounds a single packet unless MaxPacketSize is set.
const DefaultMaxPacketSize = 64 * 1024

// ErrPacketTooLarge indicates the length prefix exceeds the limit.
var ErrPacketTooLarge = errors.New("packet too large")

// ReadWriter implements PacketReadWriter.
// Each packet is prefixed by 4-byte (little-endian) indicate the length.
type ReadWriter struct {
	io.ReadWriter
	MaxPacketSize uint32
}

// New creates a ReadWriter with io.ReadWriter.
func New(s io.ReadWriter) *ReadWriter {
	return &ReadWriter{ReadWriter: s, MaxPacketSize: DefaultMaxPacketSize}
}

// Dial connects a TCP endpoint.
func Dial(ctx context.Context, addr string) (*ReadWriter, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

func (p *ReadWriter) limit() uint32 {
	if p.MaxPacketSize == 0 {
		return DefaultMaxPacketSize
	}
	return p.MaxPacketSize
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	var size uint32
	if err := binary.Read(p.ReadWriter, binary.LittleEndian, &size); err != nil {
		return nil, err
	}
	if size > p.limit() {
		return nil, fmt.Errorf("%w: %d bytes", ErrPacketTooLarge, size)
	}
	pkt := make([]byte, size)
	if _, err := io.ReadFull(p.ReadWriter, pkt); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return pkt, nil
}

// WritePacket implements PacketWriter. The prefix and the packet go out
// in a single write.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	if uint32(len(pkt)) > p.limit() {
		return fmt.Errorf("%w: %d bytes", ErrPacketTooLarge, len(pkt))
	}
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	buf.B = binary.LittleEndian.AppendUint32(buf.B, uint32(len(pkt)))
	buf.B = append(buf.B, pkt...)
	_, err := p.Write(buf.B)
	return err
}

// Close implements io.Closer.
func (p *ReadWriter) Close() error {
	if closer, ok := p.ReadWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// ServeFunc serves a single accepted connection.
type ServeFunc func(context.Context, *ReadWriter) error

// Serve accepts connections until ctx is done and serves each one in its
// own goroutine. It returns after all connections are done.
func Serve(ctx context.Context, ln net.Listener, fn ServeFunc) error {
	var wg sync.WaitGroup
	defer wg.Wait()
	return fx.RunWithContextCloser(ctx, ln, func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return nil
				}
				return err
			}
			glog.V(1).Infof("accepted %s", conn.RemoteAddr())
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer conn.Close()
				if err := fn(ctx, New(conn)); err != nil {
					glog.Warningf("connection %s: %v", conn.RemoteAddr(), err)
				}
			}()
		}
	})
}
