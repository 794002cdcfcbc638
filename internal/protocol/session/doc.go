// Package session owns the bench link between a host tool and the simulated
// device.
//
// Ownership boundary:
// - accepting link connections and delivering frames to the dispatcher
// - emitting device frames back over the link (protocol.Transport)
// - host-side dialing with retry/backoff
//
// Frames are delivered to the dispatcher one at a time across all sessions.
package session
