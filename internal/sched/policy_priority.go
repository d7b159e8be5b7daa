package sched

import "github.com/mentos-team/mentos-kernel/internal/list"

// agePeriod is how many PickNext calls pass before the front task of
// every waiting band below the top is aged up by one level, preventing
// starvation of
// low-priority tasks under sustained high-priority load (spec.md §4.2:
// "Dynamic priority = static priority + ageing").
const agePeriod = 8

// priorityPolicy runs the highest-priority runnable task; ties within a
// priority band are broken round-robin.
type priorityPolicy struct {
	bands map[int]*list.List[*Task]
	picks int
}

func newPriorityPolicy() *priorityPolicy {
	return &priorityPolicy{bands: make(map[int]*list.List[*Task])}
}

func (p *priorityPolicy) Name() string { return "priority" }

func (p *priorityPolicy) bandFor(prio int) *list.List[*Task] {
	b, ok := p.bands[prio]
	if !ok {
		b = list.New[*Task]()
		p.bands[prio] = b
	}
	return b
}

func (p *priorityPolicy) Enqueue(t *Task) {
	if t.dynPrio == 0 && t.StaticPrio != 0 {
		t.dynPrio = t.StaticPrio
	}
	p.bandFor(t.dynPrio).PushBack(t)
}

func (p *priorityPolicy) topBand() (int, *list.List[*Task]) {
	best := 0
	var bestList *list.List[*Task]
	first := true
	for prio, l := range p.bands {
		if l.Len() == 0 {
			continue
		}
		if first || prio > best {
			best, bestList, first = prio, l, false
		}
	}
	return best, bestList
}

func (p *priorityPolicy) PickNext() *Task {
	p.picks++
	if p.picks%agePeriod == 0 {
		p.age()
	}
	_, band := p.topBand()
	if band == nil {
		return nil
	}
	t, _ := band.PopFront()
	return t
}

// age promotes one waiting task from every non-top, non-empty band up a
// level, so a long queue of low-priority tasks eventually gets a turn
// even under continuous high-priority load.
func (p *priorityPolicy) age() {
	top, _ := p.topBand()
	for prio, l := range p.bands {
		if prio >= top || l.Len() == 0 {
			continue
		}
		t, ok := l.PopFront()
		if !ok {
			continue
		}
		t.dynPrio = prio + 1
		p.bandFor(t.dynPrio).PushBack(t)
	}
}

func (p *priorityPolicy) Requeue(current *Task) bool {
	// priority scheduling preempts on every tick in favour of whatever
	// is currently the highest runnable band; the caller re-enqueues
	// current and re-picks, which naturally keeps it running if no
	// higher band is now non-empty.
	return true
}
