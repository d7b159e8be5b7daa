package sched

// cfsPolicy picks the runnable task with the smallest virtual runtime;
// vruntime advances by elapsed × 1024/niceWeight(nice), so a heavier
// (lower nice) task accumulates vruntime more slowly. Newly
// woken tasks are clamped to min_vruntime−ε so a long-sleeping task
// cannot claim the CPU by virtue of a stale, far-behind vruntime —
// while still avoiding a runaway catch-up that would starve everyone
// else.
type cfsPolicy struct {
	runnable     []*Task
	minVruntime  int64
	wakeEpsilon  int64
	ticksElapsed int64
}

func newCFSPolicy() *cfsPolicy {
	return &cfsPolicy{wakeEpsilon: 1}
}

func (p *cfsPolicy) Name() string { return "cfs" }

func (p *cfsPolicy) Enqueue(t *Task) {
	if t.vruntime < p.minVruntime-p.wakeEpsilon {
		t.vruntime = p.minVruntime - p.wakeEpsilon
	}
	p.runnable = append(p.runnable, t)
}

func (p *cfsPolicy) PickNext() *Task {
	if len(p.runnable) == 0 {
		return nil
	}
	minIdx := 0
	for i, t := range p.runnable {
		if t.vruntime < p.runnable[minIdx].vruntime {
			minIdx = i
		}
	}
	t := p.runnable[minIdx]
	p.runnable = append(p.runnable[:minIdx], p.runnable[minIdx+1:]...)
	if t.vruntime > p.minVruntime {
		p.minVruntime = t.vruntime
	}
	return t
}

// Requeue advances current's vruntime by one tick's worth of weighted
// runtime and always requests a re-pick, letting PickNext's
// smallest-vruntime rule decide whether current keeps running.
func (p *cfsPolicy) Requeue(current *Task) bool {
	w := niceWeight(current.Nice)
	// elapsed is one tick; scale inversely with weight so a "heavier"
	// (lower nice) task's vruntime grows more slowly, letting it run
	// longer before another task's vruntime catches up.
	current.vruntime += (1024 * 1) / w
	return true
}
