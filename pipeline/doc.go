// Package pipeline executes feature operations that produce or consume
// potentially large item sequences under bounded memory.
//
// Reads run in one of two delivery modes. Buffered mode drains the producer
// into an in-memory slice up to a feature-specific hard maximum, discards the
// remainder, and attaches an out-of-band incomplete marker. Streamed mode
// forwards each item incrementally without materializing the sequence.
//
// Writes decouple production from consumption: a background task copies the
// caller's items onto a bounded channel sized to the feature's maximum write
// size while an independent loop drains one acknowledgement per accepted
// item. The bounded channel is the only shared mutable state between the two.
//
// Items are never reordered, only truncated. Producer resources are released
// exactly once on every exit path: completion, cancellation, or error.
package pipeline
