// Package comm carries host messages over packet transports.
package comm

import (
	"github.com/robotalks/corelink.go/pkg/host/msgs"
)

// PacketReader reads packets in bytes.
type PacketReader interface {
	ReadPacket() ([]byte, error)
}

// PacketWriter writes packets in bytes.
type PacketWriter interface {
	WritePacket([]byte) error
}

// PacketReadWriter reads/writes packets in bytes.
type PacketReadWriter interface {
	PacketReader
	PacketWriter
}

// DeviceRef is a reference to a device.
type DeviceRef struct {
	// Type is the device type.
	Type string `json:"type"`
	// ID is unique ID of the device.
	ID string `json:"id"`
}

// Name retrieves the name from ref.
func (r DeviceRef) Name() string {
	return r.Type + "/" + r.ID
}

// IsValid indicates DeviceRef is valid.
func (r DeviceRef) IsValid() bool {
	return r.Type != "" && r.ID != ""
}

// DeviceMeta describes a device to hosts discovering it.
type DeviceMeta struct {
	Description string `json:"description,omitempty"`
	Params      int    `json:"params"`
}

// DeviceInfo is published by a device.
type DeviceInfo struct {
	Ref  DeviceRef  `json:"ref"`
	Meta DeviceMeta `json:"meta"`
}

// Result represents result of a command.
type Result struct {
	Msg msgs.Message
	Err error
}

// Future is the future of a sent command.
type Future interface {
	ResultChan() <-chan Result
}
