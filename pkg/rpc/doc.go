// Package rpc implements the cross-core request protocol over a shmem.Layout.
package rpc

// A requesting core enqueues one request at a time into the request
// ring, then polls the request slot until the owning core publishes a
// response index. The owning core drains the request ring from its
// main loop, one request per ProcessPending call, applying each request
// through an injected Handlers table.
//
// When a request must be applied from a real-time context on the owning
// core, the handler parks it in a Handoff and waits until that context
// services it.
//
// Producer: requesting core (Client)
// Consumer: owning core (Server)
