// Package kconfig centralizes the boot-time configuration knobs each
// kernel-core subsystem's Init reads, following the teacher's pattern of
// one self-contained module per global singleton (Physmem, Syslimit) but
// making the constants feeding them explicit instead of literals buried
// in Phys_init.
package kconfig

import "time"

// SchedPolicy selects the active scheduling policy (spec.md §4.2: "one
// active" policy, selected at build time).
type SchedPolicy int

const (
	PolicyRoundRobin SchedPolicy = iota
	PolicyPriority
	PolicyCFS
	PolicyEDF
	PolicyRM
)

// Config is the full set of boot-time knobs.
type Config struct {
	// Physical frame count reserved by the allocator. The teacher's
	// Phys_init reserves "128MB of pages" via a literal respgs
	// constant; this is that same knob made explicit.
	FrameCount int

	// Active scheduling policy.
	Policy SchedPolicy

	// Round-robin quantum, in ticks (the priority, CFS and EDF/RM
	// policies do not read it).
	QuantumTicks int64

	// Feedback sampler interval (spec.md §4.2: "interval ≈ 0.5 s").
	FeedbackInterval time.Duration

	// Nice value clamp (spec.md §4.2: "[−20, +19]").
	NiceMin, NiceMax int
}

// DefaultConfig returns the defaults used unless a caller overrides them.
func DefaultConfig() Config {
	return Config{
		FrameCount:       1 << 16,
		Policy:           PolicyRoundRobin,
		QuantumTicks:     10,
		FeedbackInterval: 500 * time.Millisecond,
		NiceMin:          -20,
		NiceMax:          19,
	}
}
