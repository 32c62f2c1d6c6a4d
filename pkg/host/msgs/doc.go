// Package msgs defines the messages exchanged between the comms role and
// an external host.
//
// Every message travels in a Typed envelope carrying its type ID and,
// for commands and replies, the sequence number of the command.
//
// Producer: host (commands), device (replies and events)
// Consumer: device (commands), host (replies and events)
package msgs
