package sched

import "github.com/mentos-team/mentos-kernel/internal/list"

// roundRobinPolicy keeps an ordered runnable list; the head gets a fixed
// quantum (adjusted by nice), and on expiry moves to the tail (spec.md
// §4.2).
type roundRobinPolicy struct {
	baseQuantum int64
	runq        *list.List[*Task]
}

func newRoundRobinPolicy(baseQuantum int64) *roundRobinPolicy {
	if baseQuantum <= 0 {
		baseQuantum = 10
	}
	return &roundRobinPolicy{baseQuantum: baseQuantum, runq: list.New[*Task]()}
}

func (p *roundRobinPolicy) Name() string { return "round-robin" }

func (p *roundRobinPolicy) quantumFor(t *Task) int64 {
	// a lower (higher-priority) nice value gets a longer quantum; clamp
	// so nothing ever gets a non-positive quantum.
	q := p.baseQuantum - int64(t.Nice)/4
	if q < 1 {
		q = 1
	}
	return q
}

func (p *roundRobinPolicy) Enqueue(t *Task) {
	t.quantumLeft = p.quantumFor(t)
	p.runq.PushBack(t)
}

func (p *roundRobinPolicy) PickNext() *Task {
	t, ok := p.runq.PopFront()
	if !ok {
		return nil
	}
	return t
}

func (p *roundRobinPolicy) Requeue(current *Task) bool {
	current.quantumLeft--
	return current.quantumLeft <= 0
}
