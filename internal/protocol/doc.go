// Package protocol owns the device-side command contract.
//
// Ownership boundary:
// - frame-type dispatch
// - per-family command decoding and state replies
// - motion-cycle slot staging
//
// Actuation and byte framing are collaborators; this package only borrows
// frame payloads for the duration of one Dispatch call.
package protocol
