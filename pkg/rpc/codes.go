package rpc

import (
	"errors"
	"fmt"
)

// Code is the result code carried in a response slot.
type Code uint32

// Result codes.
const (
	Ok Code = iota
	Illegal
	InvalidText
	OutOfRange

	// Pending marks a Handoff not yet resolved by the real-time context.
	// It never crosses the core boundary.
	Pending Code = 0xff
)

var codeNames = map[Code]string{
	Ok:          "ok",
	Illegal:     "illegal",
	InvalidText: "invalid text",
	OutOfRange:  "out of range",
	Pending:     "pending",
}

// String implements fmt.Stringer.
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("code(%d)", uint32(c))
}

// Error implements error.
func (c Code) Error() string {
	return c.String()
}

// Err converts Ok to nil.
func (c Code) Err() error {
	if c == Ok {
		return nil
	}
	return c
}

// CodeOf maps an error back to a Code.
// Errors which are not a Code map to Illegal.
func CodeOf(err error) Code {
	if err == nil {
		return Ok
	}
	var code Code
	if errors.As(err, &code) {
		return code
	}
	return Illegal
}
