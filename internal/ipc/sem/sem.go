// Package sem implements System V semaphore sets: atomic multi-op semop,
// FIFO waiter retry on value change, and semctl (spec.md §4.3). The
// op-vector/type-filter algorithms here are spec-original — the teacher
// kernel predates SysV IPC and has no direct counterpart — but the
// table+lock+waiter-list shape follows internal/ipc's id table and
// internal/sched's wait-queue wake primitives, the same way the rest of
// this kernel core is built.
package sem

import (
	"sync"
	"time"

	"github.com/mentos-team/mentos-kernel/internal/defs"
	"github.com/mentos-team/mentos-kernel/internal/ipc"
	"github.com/mentos-team/mentos-kernel/internal/list"
	"github.com/mentos-team/mentos-kernel/internal/sched"
)

// Op is one element of a semop request vector: the member index, the
// signed delta (or zero for "wait until zero"), and whether IPC_NOWAIT
// applies to this element.
type Op struct {
	Num    int
	Delta  int16
	NoWait bool
}

// request is one pending (blocked) semop call, tracked so a later
// semop's retry walk can grant it in place without the blocked task
// polling in a loop of its own.
type request struct {
	ops     []Op
	granted bool
	failed  *defs.Err_t
}

// Set is one semaphore set: a fixed-size value array plus the FIFO
// waiter list spec.md §4.3 requires.
type Set struct {
	mu         sync.Mutex
	perm       ipc.Perm
	values     []int16
	waiters    *list.List[*request]
	queue      *sched.WaitQueue
	lastSemop  time.Time
	lastChange time.Time
}

// IpcPerm implements ipc.Object.
func (s *Set) IpcPerm() *ipc.Perm { return &s.perm }

// New constructs a semaphore set with nsems members, all initialized to
// zero, owned by perm.
func New(perm ipc.Perm, nsems int) *Set {
	return &Set{
		perm:    perm,
		values:  make([]int16, nsems),
		waiters: list.New[*request](),
		queue:   sched.NewWaitQueue(),
	}
}

// NSems reports the set's member count.
func (s *Set) NSems() int { return len(s.values) }

// applicable reports whether op can be satisfied against value v.
func applicable(op Op, v int16) bool {
	switch {
	case op.Delta > 0:
		return true
	case op.Delta < 0:
		return v >= -op.Delta
	default:
		return v == 0
	}
}

// apply mutates values in place for ops, assuming every element is
// already known applicable.
func apply(values []int16, ops []Op) {
	for _, op := range ops {
		if op.Delta > 0 || op.Delta < 0 {
			values[op.Num] += op.Delta
		}
	}
}

// trySpeculative reports whether every element of ops succeeds when the
// vector is applied left to right against a local copy of values; values
// itself is not mutated. On failure it also reports whether the blocking
// element carries NoWait.
func trySpeculative(values []int16, ops []Op) (ok bool, wouldBlockNoWait bool) {
	local := make([]int16, len(values))
	copy(local, values)
	for _, op := range ops {
		if !applicable(op, local[op.Num]) {
			return false, op.NoWait
		}
		local[op.Num] += op.Delta
	}
	return true, false
}

// Semop applies ops atomically against s (spec.md §4.3): either every
// element succeeds or none do. If an element blocks and that element's
// NoWait bit is set, the whole call fails with EAGAIN immediately;
// otherwise the caller is enqueued and retried in FIFO order each time
// any semop on this set changes a value.
func (s *Set) Semop(task *sched.Task, ops []Op) defs.Err_t {
	s.mu.Lock()
	ok, wouldBlockNoWait := trySpeculative(s.values, ops)
	if ok {
		apply(s.values, ops)
		s.lastSemop = time.Now()
		s.lastChange = time.Now()
		s.mu.Unlock()
		s.retryWaiters()
		return 0
	}
	if wouldBlockNoWait {
		s.mu.Unlock()
		return -defs.EAGAIN
	}

	req := &request{ops: ops}
	node := s.waiters.PushBack(req)
	// Park while still holding s.mu: the task is on s.queue before any
	// concurrent Semop/SetVal/SetAll can observe req and call
	// retryWaiters' WakeAll, so a grant racing this registration can
	// never be missed.
	wait := task.Park(s.queue, sched.Interruptible)
	s.mu.Unlock()

	for {
		interrupted := wait()

		s.mu.Lock()
		if req.failed != nil {
			err := *req.failed
			s.waiters.Remove(node)
			s.mu.Unlock()
			return err
		}
		if req.granted {
			s.waiters.Remove(node)
			s.mu.Unlock()
			return 0
		}
		if interrupted {
			s.waiters.Remove(node)
			s.mu.Unlock()
			return -defs.EINTR
		}
		// Spurious wake with the request still pending: re-park before
		// releasing s.mu so no grant between here and the next wait()
		// call can slip past unseen.
		wait = task.Park(s.queue, sched.Interruptible)
		s.mu.Unlock()
	}
}

// retryWaiters walks the pending-request list in FIFO order, granting
// every request that the current values now satisfy, then wakes every
// blocked task so each can observe whether it was the one granted
// (spec.md §4.3: "walk the waiter list in FIFO order and retry each").
func (s *Set) retryWaiters() {
	s.mu.Lock()
	granted := false
	s.waiters.Each(func(req *request) {
		if req.granted || req.failed != nil {
			return
		}
		if ok, _ := trySpeculative(s.values, req.ops); ok {
			apply(s.values, req.ops)
			req.granted = true
			granted = true
		}
	})
	s.mu.Unlock()
	if granted {
		s.queue.WakeAll()
	}
}

// Remove marks the set destroyed, fails every pending waiter with EIDRM,
// and wakes them (spec.md §4.3: "IPC_RMID ... wakes every waiter with a
// distinguished 'removed' error").
func (s *Set) Remove() {
	s.mu.Lock()
	s.perm.RmID = true
	eidrm := -defs.EIDRM
	s.waiters.Each(func(req *request) {
		if req.granted || req.failed != nil {
			return
		}
		req.failed = &eidrm
	})
	s.mu.Unlock()
	s.queue.RemoveAll()
}

// GetVal returns one member's current value (semctl GETVAL).
func (s *Set) GetVal(num int) (int16, defs.Err_t) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if num < 0 || num >= len(s.values) {
		return 0, -defs.EINVAL
	}
	return s.values[num], 0
}

// SetVal overwrites one member's value directly (semctl SETVAL),
// waking any waiter the new value now satisfies.
func (s *Set) SetVal(num int, val int16) defs.Err_t {
	s.mu.Lock()
	if num < 0 || num >= len(s.values) {
		s.mu.Unlock()
		return -defs.EINVAL
	}
	s.values[num] = val
	s.lastChange = time.Now()
	s.mu.Unlock()
	s.retryWaiters()
	return 0
}

// GetAll copies every member's value (semctl GETALL).
func (s *Set) GetAll() []int16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int16, len(s.values))
	copy(out, s.values)
	return out
}

// SetAll overwrites every member's value at once (semctl SETALL).
func (s *Set) SetAll(vals []int16) defs.Err_t {
	if len(vals) != len(s.values) {
		return -defs.EINVAL
	}
	s.mu.Lock()
	copy(s.values, vals)
	s.lastChange = time.Now()
	s.mu.Unlock()
	s.retryWaiters()
	return 0
}
