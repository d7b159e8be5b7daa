package sched

import (
	"sync"

	"github.com/mentos-team/mentos-kernel/internal/list"
)

// waiter is one entry on a wait queue: the parked task, whether it
// should be woken exclusively (spec.md §3: "Exclusive entries are woken
// one at a time"), and an optional callback run at wake time so a caller
// parked via a lower-level primitive can be notified without polling.
type waiter struct {
	task      *Task
	exclusive bool
	callback  func()
}

// WaitQueue is a list head plus a spin-lock (spec.md §3): the primitive
// every blocking syscall — semop, msgsnd/msgrcv, waitpid — parks on. One lock per queue (spec.md §5).
type WaitQueue struct {
	mu sync.Mutex
	l  *list.List[*waiter]
}

// NewWaitQueue returns an empty wait queue.
func NewWaitQueue() *WaitQueue {
	return &WaitQueue{l: list.New[*waiter]()}
}

func (q *WaitQueue) enqueue(t *Task, exclusive bool, cb func()) *list.Node[*waiter] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.l.PushBack(&waiter{task: t, exclusive: exclusive, callback: cb})
}

// Len reports the number of parked waiters.
func (q *WaitQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.l.Len()
}

func (q *WaitQueue) removeAndWake(node *list.Node[*waiter], reason wakeReason) {
	q.mu.Lock()
	w := node.Value()
	q.l.Remove(node)
	q.mu.Unlock()

	if w.callback != nil {
		w.callback()
	}
	select {
	case w.task.wakeCh <- reason:
	default:
	}
}

// WakeOne removes and wakes the single longest-waiting entry (the front
// of the queue), whether or not it is exclusive; every other entry stays
// parked. It reports whether anything was woken.
func (q *WaitQueue) WakeOne() bool {
	q.mu.Lock()
	node := q.l.Front()
	if node == nil {
		q.mu.Unlock()
		return false
	}
	w := node.Value()
	q.l.Remove(node)
	q.mu.Unlock()

	if w.callback != nil {
		w.callback()
	}
	select {
	case w.task.wakeCh <- wokeNormal:
	default:
	}
	return true
}

// WakeAll wakes every waiter on the queue, exclusive or not, matching
// spec.md §3's "non-exclusive entries wake en masse" and the broadcast
// semantics an IPC_RMID removal needs (every waiter must observe the
// object is gone).
func (q *WaitQueue) WakeAll() {
	q.wakeAllWith(wokeNormal)
}

// RemoveAll wakes every waiter with the "removed" indication, used when
// an IPC object is destroyed out from under its waiters (spec.md §4.3's
// IPC_RMID: "wakes every waiter with a distinguished 'removed' error").
func (q *WaitQueue) RemoveAll() {
	q.wakeAllWith(wokeRemoved)
}

func (q *WaitQueue) wakeAllWith(reason wakeReason) {
	q.mu.Lock()
	waiters := make([]*waiter, 0, q.l.Len())
	q.l.Each(func(w *waiter) { waiters = append(waiters, w) })
	for {
		if _, ok := q.l.PopFront(); !ok {
			break
		}
	}
	q.mu.Unlock()

	for _, w := range waiters {
		if w.callback != nil {
			w.callback()
		}
		select {
		case w.task.wakeCh <- reason:
		default:
		}
	}
}

// Remove detaches a previously enqueued waiter without waking it. It is
// a no-op for a node that is no longer on the queue.
func (q *WaitQueue) Remove(node *list.Node[*waiter]) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.l.Remove(node)
}
