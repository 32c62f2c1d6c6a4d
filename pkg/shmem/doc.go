// Package shmem defines the fixed memory layout shared by two cores.
//
// A Region holds three rings (requests, request payloads, responses),
// the pending request slots, the payload and response words, and the
// authoritative current value of every shared variable grouped by
// primitive type. The layout contains no Go pointers: both sides of
// the protocol must agree on field order and width exactly.
//
// Producer of requests: requesting core
// Consumer of requests and producer of responses: owning core
package shmem
