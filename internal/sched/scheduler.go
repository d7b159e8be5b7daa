package sched

import (
	"sync"

	"github.com/mentos-team/mentos-kernel/internal/clock"
	"github.com/mentos-team/mentos-kernel/internal/defs"
	"github.com/mentos-team/mentos-kernel/internal/kconfig"
	"github.com/mentos-team/mentos-kernel/internal/util"
)

// Scheduler drives the active Policy from the timer tick and from every
// voluntary sleep/wake (spec.md §4.2). It is single-CPU: kernel code
// holds the logical CPU until it voluntarily yields, so Tick and
// Enqueue/Pick are never called concurrently with each other — the
// mutex exists to guard against the feedback sampler reading state from
// another goroutine, not against reentrant scheduling.
type Scheduler struct {
	mu      sync.Mutex
	cfg     kconfig.Config
	policy  Policy
	clk     *clock.Clock
	current *Task
}

// New constructs a scheduler running the policy named by cfg.
func New(cfg kconfig.Config, clk *clock.Clock) *Scheduler {
	return &Scheduler{cfg: cfg, policy: NewPolicy(cfg), clk: clk}
}

// PolicyName reports the active policy's name, used by cmd/mentosctl's
// boot announcement and status output.
func (s *Scheduler) PolicyName() string { return s.policy.Name() }

// Enqueue marks t runnable.
func (s *Scheduler) Enqueue(t *Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.setState(Running)
	s.policy.Enqueue(t)
}

// Current returns the task presently selected to run, or nil.
func (s *Scheduler) Current() *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Tick advances the clock by one tick, charges the running task, and
// asks the policy whether to preempt; it returns the task that should
// run for the next tick (possibly the same one), or nil if nothing is
// runnable. This is the entry point spec.md §2's "timer → scheduler"
// data-flow line describes.
func (s *Scheduler) Tick() *Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clk.Advance()

	if s.current != nil {
		s.current.AddRunTick()
		if s.policy.Requeue(s.current) {
			prev := s.current
			s.current = nil
			s.policy.Enqueue(prev)
		}
	}
	if s.current == nil {
		s.current = s.policy.PickNext()
	}
	return s.current
}

// Yield voluntarily gives up the CPU: the current task is re-enqueued
// (if still runnable) and the next task is picked immediately, without
// waiting for a timer tick — used by kernel code at an explicit
// rescheduling point (spec.md §5: "Suspension points").
func (s *Scheduler) Yield() *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil && s.current.State() == Running {
		prev := s.current
		s.current = nil
		s.policy.Enqueue(prev)
	} else {
		s.current = nil
	}
	s.current = s.policy.PickNext()
	return s.current
}

// SetNice clamps and applies a nice delta to t (spec.md §4.2: "kernel
// clamps new nice to [−20, +19]"; lowering nice requires privilege).
func (s *Scheduler) SetNice(t *Task, delta int, privileged bool) defs.Err_t {
	if delta < 0 && !privileged {
		return -defs.EPERM
	}
	t.Nice = util.Clamp(t.Nice+delta, s.cfg.NiceMin, s.cfg.NiceMax)
	return 0
}
