// Package admin serves the armctl HTTP admin surface.
//
// Ownership boundary:
// - liveness, readiness and prometheus endpoints
// - read-only inspection of servos and motion cycles
// - named service actions that inject frames into the dispatcher
//
// Actions go through the same dispatcher as link frames, so they are
// serialized with link traffic and reported in the same metrics.
package admin
