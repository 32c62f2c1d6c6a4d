// Package websocket carries packets as binary websocket frames.
package websocket

import (
	"context"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"
)

// ReadWriter implements PacketReadWriter.
type ReadWriter websocket.Conn

// New wraps websocket.Conn.
func New(conn *websocket.Conn) *ReadWriter {
	return (*ReadWriter)(conn)
}

// Dial connects a websocket endpoint, e.g. ws://host:port/path.
func Dial(url string) (*ReadWriter, error) {
	conn, err := websocket.Dial(url, "", "http://localhost/")
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() (pkt []byte, err error) {
	err = websocket.Message.Receive((*websocket.Conn)(p), &pkt)
	return
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	return websocket.Message.Send((*websocket.Conn)(p), pkt)
}

// Close implements io.Closer.
func (p *ReadWriter) Close() error {
	return (*websocket.Conn)(p).Close()
}

// ServeFunc serves a single websocket connection.
type ServeFunc func(context.Context, *ReadWriter) error

// Handler creates an http.Handler serving each connection with fn.
// The connection ends when the request context is done.
func Handler(fn ServeFunc) websocket.Handler {
	return func(conn *websocket.Conn) {
		if err := fn(conn.Request().Context(), New(conn)); err != nil {
			glog.Warningf("websocket %s: %v", conn.Request().RemoteAddr, err)
		}
	}
}
