package msgs

import (
	"fmt"

	"github.com/golang/protobuf/proto"

	"github.com/robotalks/corelink.go/pkg/rpc"
)

// TypeID Groups
const (
	GroupCommand uint32 = 0x00000000
	GroupParam   uint32 = 0x00010000
)

// TypeIDs
const (
	CommandOKTypeID      uint32 = GroupCommand | TypeIDMaskReply | 0x0000
	CommandErrTypeID     uint32 = GroupCommand | TypeIDMaskReply | 0x0001
	ParamListQueryTypeID uint32 = GroupParam | 0x0000
	ParamListTypeID      uint32 = ParamListQueryTypeID | TypeIDMaskReply
	ParamGetTypeID       uint32 = GroupParam | 0x0001
	ParamValueTypeID     uint32 = ParamGetTypeID | TypeIDMaskReply
	ParamSetTypeID       uint32 = GroupParam | 0x0002
	ParamChangedTypeID   uint32 = GroupParam | TypeIDKindEvent | 0x0000
)

// CommandOK is the generic reply indicating success for commands.
type CommandOK struct {
}

// NewCommandOK creates a CommandOK.
func NewCommandOK() *CommandOK {
	return &CommandOK{}
}

// NewMessage implements Message.
func (m *CommandOK) NewMessage() Message { return &CommandOK{} }

// TypeID implements Message.
func (m *CommandOK) TypeID() uint32 { return CommandOKTypeID }

// ProtoMessage implements proto.Message.
func (m *CommandOK) ProtoMessage() {}

// Reset implements proto.Message.
func (m *CommandOK) Reset() { *m = CommandOK{} }

// String implements proto.Message.
func (m *CommandOK) String() string { return proto.CompactTextString(m) }

// CommandErr is the generic reply representing command error.
// Code carries the result code for parameter commands.
type CommandErr struct {
	Code    uint32 `protobuf:"varint,1,opt,name=code,proto3" json:"code,omitempty"`
	Message string `protobuf:"bytes,2,opt,name=message,proto3" json:"message,omitempty"`
}

// NewCommandErr creates a CommandErr from an error.
func NewCommandErr(err error) *CommandErr {
	return &CommandErr{Code: uint32(rpc.CodeOf(err)), Message: err.Error()}
}

// NewMessage implements Message.
func (m *CommandErr) NewMessage() Message { return &CommandErr{} }

// TypeID implements Message.
func (m *CommandErr) TypeID() uint32 { return CommandErrTypeID }

// ProtoMessage implements proto.Message.
func (m *CommandErr) ProtoMessage() {}

// Reset implements proto.Message.
func (m *CommandErr) Reset() { *m = CommandErr{} }

// String implements proto.Message.
func (m *CommandErr) String() string { return proto.CompactTextString(m) }

// Error implements error.
func (m *CommandErr) Error() string { return m.Message }

// Unwrap exposes the result code to errors.Is.
func (m *CommandErr) Unwrap() error {
	if m.Code == uint32(rpc.Ok) {
		return nil
	}
	return rpc.Code(m.Code)
}

// ParamListQuery lists the parameters of a device.
type ParamListQuery struct {
}

// NewMessage implements Message.
func (m *ParamListQuery) NewMessage() Message { return &ParamListQuery{} }

// TypeID implements Message.
func (m *ParamListQuery) TypeID() uint32 { return ParamListQueryTypeID }

// ProtoMessage implements proto.Message.
func (m *ParamListQuery) ProtoMessage() {}

// Reset implements proto.Message.
func (m *ParamListQuery) Reset() { *m = ParamListQuery{} }

// String implements proto.Message.
func (m *ParamListQuery) String() string { return proto.CompactTextString(m) }

// ParamInfo describes one parameter.
type ParamInfo struct {
	Name  string   `protobuf:"bytes,1,opt,name=name,proto3" json:"name,omitempty"`
	Type  string   `protobuf:"bytes,2,opt,name=type,proto3" json:"type,omitempty"`
	Slot  uint32   `protobuf:"varint,3,opt,name=slot,proto3" json:"slot"`
	Unit  string   `protobuf:"bytes,4,opt,name=unit,proto3" json:"unit,omitempty"`
	Aux   string   `protobuf:"bytes,5,opt,name=aux,proto3" json:"aux,omitempty"`
	Range string   `protobuf:"bytes,6,opt,name=range,proto3" json:"range,omitempty"`
	Cases []string `protobuf:"bytes,7,rep,name=cases,proto3" json:"cases,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *ParamInfo) ProtoMessage() {}

// Reset implements proto.Message.
func (m *ParamInfo) Reset() { *m = ParamInfo{} }

// String implements proto.Message.
func (m *ParamInfo) String() string { return proto.CompactTextString(m) }

// ParamList is the reply of ParamListQuery.
type ParamList struct {
	Params []*ParamInfo `protobuf:"bytes,1,rep,name=params,proto3" json:"params,omitempty"`
}

// NewMessage implements Message.
func (m *ParamList) NewMessage() Message { return &ParamList{} }

// TypeID implements Message.
func (m *ParamList) TypeID() uint32 { return ParamListTypeID }

// ProtoMessage implements proto.Message.
func (m *ParamList) ProtoMessage() {}

// Reset implements proto.Message.
func (m *ParamList) Reset() { *m = ParamList{} }

// String implements proto.Message.
func (m *ParamList) String() string { return proto.CompactTextString(m) }

// ParamGet reads a parameter as text.
type ParamGet struct {
	Name     string `protobuf:"bytes,1,opt,name=name,proto3" json:"name,omitempty"`
	WithUnit bool   `protobuf:"varint,2,opt,name=with_unit,proto3" json:"with_unit,omitempty"`
}

// NewMessage implements Message.
func (m *ParamGet) NewMessage() Message { return &ParamGet{} }

// TypeID implements Message.
func (m *ParamGet) TypeID() uint32 { return ParamGetTypeID }

// ProtoMessage implements proto.Message.
func (m *ParamGet) ProtoMessage() {}

// Reset implements proto.Message.
func (m *ParamGet) Reset() { *m = ParamGet{} }

// String implements proto.Message.
func (m *ParamGet) String() string { return proto.CompactTextString(m) }

// ParamValue is the reply of ParamGet.
type ParamValue struct {
	Name string `protobuf:"bytes,1,opt,name=name,proto3" json:"name,omitempty"`
	Text string `protobuf:"bytes,2,opt,name=text,proto3" json:"text"`
	Word uint32 `protobuf:"varint,3,opt,name=word,proto3" json:"word"`
}

// NewMessage implements Message.
func (m *ParamValue) NewMessage() Message { return &ParamValue{} }

// TypeID implements Message.
func (m *ParamValue) TypeID() uint32 { return ParamValueTypeID }

// ProtoMessage implements proto.Message.
func (m *ParamValue) ProtoMessage() {}

// Reset implements proto.Message.
func (m *ParamValue) Reset() { *m = ParamValue{} }

// String implements proto.Message.
func (m *ParamValue) String() string { return proto.CompactTextString(m) }

// ParamSet sets a parameter from text. The reply is CommandOK or
// CommandErr with the result code.
type ParamSet struct {
	Name string `protobuf:"bytes,1,opt,name=name,proto3" json:"name,omitempty"`
	Text string `protobuf:"bytes,2,opt,name=text,proto3" json:"text,omitempty"`
}

// NewMessage implements Message.
func (m *ParamSet) NewMessage() Message { return &ParamSet{} }

// TypeID implements Message.
func (m *ParamSet) TypeID() uint32 { return ParamSetTypeID }

// ProtoMessage implements proto.Message.
func (m *ParamSet) ProtoMessage() {}

// Reset implements proto.Message.
func (m *ParamSet) Reset() { *m = ParamSet{} }

// String implements proto.Message.
func (m *ParamSet) String() string { return proto.CompactTextString(m) }

// ParamChanged is an event reporting parameters whose value changed.
type ParamChanged struct {
	Values []*ParamValue `protobuf:"bytes,1,rep,name=values,proto3" json:"values,omitempty"`
}

// NewMessage implements Message.
func (m *ParamChanged) NewMessage() Message { return &ParamChanged{} }

// TypeID implements Message.
func (m *ParamChanged) TypeID() uint32 { return ParamChangedTypeID }

// ProtoMessage implements proto.Message.
func (m *ParamChanged) ProtoMessage() {}

// Reset implements proto.Message.
func (m *ParamChanged) Reset() { *m = ParamChanged{} }

// String implements proto.Message.
func (m *ParamChanged) String() string { return proto.CompactTextString(m) }

// ResultErr converts a reply into an error: the CommandErr itself, nil
// for any other message.
func ResultErr(msg Message) error {
	if cmdErr, ok := msg.(*CommandErr); ok {
		return cmdErr
	}
	return nil
}

// ExpectReply checks msg is of the reply type T.
func ExpectReply[T Message](msg Message) (T, error) {
	reply, ok := msg.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("unexpected reply %T", msg)
	}
	return reply, nil
}
