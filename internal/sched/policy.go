package sched

import "github.com/mentos-team/mentos-kernel/internal/kconfig"

// Policy is satisfied by each of the pluggable scheduling disciplines
// spec.md §4.2 names (round robin, priority, CFS, EDF/RM). Exactly one
// policy is active per Scheduler, selected at construction time.
type Policy interface {
	Name() string
	// Enqueue marks t runnable under this policy.
	Enqueue(t *Task)
	// PickNext removes and returns the task that should run next, or
	// nil if nothing is runnable.
	PickNext() *Task
	// Requeue is called once per tick for the currently running task;
	// it returns true if that task should be preempted (moved back to
	// the runnable set) in favour of picking a new one.
	Requeue(current *Task) bool
}

// NewPolicy constructs the Policy named by cfg.Policy.
func NewPolicy(cfg kconfig.Config) Policy {
	switch cfg.Policy {
	case kconfig.PolicyPriority:
		return newPriorityPolicy()
	case kconfig.PolicyCFS:
		return newCFSPolicy()
	case kconfig.PolicyEDF:
		return newEDFRMPolicy(true)
	case kconfig.PolicyRM:
		return newEDFRMPolicy(false)
	default:
		return newRoundRobinPolicy(cfg.QuantumTicks)
	}
}

// niceWeight maps a clamped nice value to a CFS-style scheduling weight:
// higher weight runs more; each nice step upward scales the weight by
// 4/5 (so it roughly halves every 3 steps: 1024, 819, 655, 524), which
// follows the shape of Linux's sched_prio_to_weight closely enough for
// simulation purposes without reproducing its exact 40-entry table.
func niceWeight(nice int) int64 {
	w := int64(1024)
	for n := 0; n < nice; n++ {
		w = w * 4 / 5
	}
	for n := 0; n > nice; n-- {
		w = w * 5 / 4
	}
	if w < 1 {
		w = 1
	}
	return w
}
