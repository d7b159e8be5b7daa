package sched

// edfRMPolicy schedules periodic tasks (declared period/deadline/wcet)
// by earliest absolute deadline (EDF) or shortest period (RM); when no
// periodic task is runnable it falls back to round robin among the
// remaining, best-effort tasks (spec.md §4.2).
type edfRMPolicy struct {
	edf      bool
	periodic []*Task
	fallback *roundRobinPolicy
}

func newEDFRMPolicy(edf bool) *edfRMPolicy {
	return &edfRMPolicy{edf: edf, fallback: newRoundRobinPolicy(10)}
}

func (p *edfRMPolicy) Name() string {
	if p.edf {
		return "edf"
	}
	return "rm"
}

func (p *edfRMPolicy) Enqueue(t *Task) {
	if t.Period > 0 {
		if t.absDeadline == 0 {
			t.absDeadline = t.Deadline
		}
		p.periodic = append(p.periodic, t)
		return
	}
	p.fallback.Enqueue(t)
}

func (p *edfRMPolicy) PickNext() *Task {
	if len(p.periodic) == 0 {
		return p.fallback.PickNext()
	}
	best := 0
	for i := range p.periodic {
		var candidateKey, bestKey int64
		if p.edf {
			candidateKey, bestKey = p.periodic[i].absDeadline, p.periodic[best].absDeadline
		} else {
			candidateKey, bestKey = p.periodic[i].Period, p.periodic[best].Period
		}
		if candidateKey < bestKey {
			best = i
		}
	}
	t := p.periodic[best]
	p.periodic = append(p.periodic[:best], p.periodic[best+1:]...)
	return t
}

func (p *edfRMPolicy) Requeue(current *Task) bool {
	if current.Period > 0 {
		current.absDeadline += current.Period
	}
	return true
}
