// Package sched implements the task table, the policy-pluggable
// scheduler, the wait-queue primitive blocking syscalls park on, and the
// periodic feedback sampler (spec.md §4.2). Task accounting follows the
// teacher's Accnt_t (biscuit/src/accnt/accnt.go); per-task cancellation
// state follows its Tnote_t (biscuit/src/tinfo/tinfo.go), generalized
// into the wait-queue wake-with-interrupted mechanism spec.md §5
// describes.
package sched

import (
	"sync"
	"sync/atomic"

	"github.com/mentos-team/mentos-kernel/internal/defs"
	"github.com/mentos-team/mentos-kernel/internal/list"
	"github.com/mentos-team/mentos-kernel/internal/mem"
	"github.com/mentos-team/mentos-kernel/internal/signal"
)

// State is one of the task states spec.md §3 names.
type State int

const (
	Running State = iota
	Interruptible
	Uninterruptible
	Stopped
	Traced
	Zombie
	Dead
)

func (s State) String() string {
	switch s {
	case Running:
		return "R"
	case Interruptible:
		return "S"
	case Uninterruptible:
		return "D"
	case Stopped:
		return "T"
	case Traced:
		return "t"
	case Zombie:
		return "Z"
	case Dead:
		return "X"
	default:
		return "?"
	}
}

type wakeReason int

const (
	wokeNormal wakeReason = iota
	wokeInterrupted
	wokeRemoved
)

// Task is a schedulable unit of execution: identity, scheduling
// attributes, memory, and signal state per spec.md §3.
type Task struct {
	Pid  defs.Pid_t
	Ppid defs.Pid_t
	Pgid defs.Pid_t
	Uid  uint32
	Gid  uint32

	AS      *mem.AddressSpace
	Signals *signal.State

	mu    sync.Mutex
	state State

	// Scheduling attributes (spec.md §3).
	Nice          int
	StaticPrio    int
	dynPrio       int
	vruntime      int64
	Period        int64 // 0 means not a periodic task
	Deadline      int64
	WCET          int64
	absDeadline   int64
	runTicks      int64
	lastScheduled int64
	quantumLeft   int64

	Cmdline string

	children   []defs.Pid_t
	exitStatus int
	exited     bool
	reapedWait chan struct{}

	waitQ    *WaitQueue
	waitNode *list.Node[*waiter]
	wakeCh   chan wakeReason

	childExitQ *WaitQueue
}

// NewTask constructs a task in the Running state with fresh signal
// state and a wake channel ready to receive one pending wake.
func NewTask(pid, ppid defs.Pid_t, as *mem.AddressSpace) *Task {
	return &Task{
		Pid:        pid,
		Ppid:       ppid,
		AS:         as,
		Signals:    &signal.State{},
		state:      Running,
		wakeCh:     make(chan wakeReason, 1),
		reapedWait: make(chan struct{}),
		childExitQ: NewWaitQueue(),
	}
}

// Exited reports whether Exit has been called (the task is a zombie
// awaiting reaping).
func (t *Task) Exited() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.exited
}

// State returns the task's current scheduling state.
func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Task) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// RunTicks returns the accumulated number of scheduler ticks this task
// has run for, consumed by the feedback sampler.
func (t *Task) RunTicks() int64 { return atomic.LoadInt64(&t.runTicks) }

// AddRunTick credits the task with one tick of CPU time.
func (t *Task) AddRunTick() { atomic.AddInt64(&t.runTicks, 1) }

// ResetRunTicks zeroes the tick counter, called by the feedback sampler
// after each digest (spec.md §4.2: "resets counters").
func (t *Task) ResetRunTicks() { atomic.StoreInt64(&t.runTicks, 0) }

// Park registers t on q under state (Interruptible or Uninterruptible) and
// returns a closure that blocks until t is woken, reporting whether the
// wake was a cancellation. The registration happens synchronously, before
// Park returns, so a caller holding some other lock that guards the wake
// condition (a semaphore set's mu, a message queue's mu) can call Park
// while still holding it and only release that lock after Park returns —
// closing the window where a concurrent granter's WakeAll/WakeOne would
// otherwise run before the task is actually on q and be silently missed.
// The returned closure must be called exactly once, after that lock is
// released.
func (t *Task) Park(q *WaitQueue, state State) func() bool {
	if state != Interruptible && state != Uninterruptible {
		panic("sched: Park requires Interruptible or Uninterruptible")
	}
	t.setState(state)
	node := q.enqueue(t, false, nil)
	t.mu.Lock()
	t.waitQ = q
	t.waitNode = node
	t.mu.Unlock()

	return func() bool {
		reason := <-t.wakeCh

		t.mu.Lock()
		t.state = Running
		t.waitQ = nil
		t.waitNode = nil
		t.mu.Unlock()

		return reason != wokeNormal
	}
}

// SleepOn atomically transitions the task to state (Interruptible or
// Uninterruptible), enqueues it on q, and blocks the calling goroutine
// until woken. It returns true if the wake was due to a cancelling
// signal (spec.md §4.2's "sleep_on(queue, state) ... yields" plus §5's
// "signal ... wakes it with a signal-interrupted indication"). Waking
// with wokeRemoved (an IPC object's IPC_RMID) also returns true, since
// callers must turn a removed-while-waiting wake into an error of their
// own (EIDRM) rather than silently reporting success.
//
// SleepOn enqueues and blocks in one step; callers that need to register
// on q before releasing a lock that guards the wake condition should use
// Park instead.
func (t *Task) SleepOn(q *WaitQueue, state State) bool {
	return t.Park(q, state)()
}

// PostSignal marks sig pending on the task and, if the task is currently
// sleeping interruptibly, wakes it immediately with the interrupted
// indication — the mechanism spec.md §5's "signal ... cancels a blocking
// IPC or waitpid" and §9's "no longjmp-equivalent is needed" describe.
func (t *Task) PostSignal(sig signal.Signal) {
	t.Signals.Post(sig)

	t.mu.Lock()
	interruptible := t.state == Interruptible
	q := t.waitQ
	node := t.waitNode
	t.mu.Unlock()

	if !interruptible || q == nil || !t.Signals.CanInterrupt() {
		return
	}
	q.removeAndWake(node, wokeInterrupted)
}

// Exit transitions the task to Zombie, recording its exit status. It does
// not touch the task's children or its parent; Table.Exit re-parents the
// children to pid 1 and wakes the parent's waitpid.
func (t *Task) Exit(status int) {
	t.mu.Lock()
	t.state = Zombie
	t.exitStatus = status
	t.exited = true
	t.mu.Unlock()
	close(t.reapedWait)
}

// ExitStatus returns the recorded exit status, valid once the task is a
// zombie.
func (t *Task) ExitStatus() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.exitStatus
}

// AddChild records a child pid for reparenting bookkeeping.
func (t *Task) AddChild(pid defs.Pid_t) {
	t.mu.Lock()
	t.children = append(t.children, pid)
	t.mu.Unlock()
}

// Children returns a snapshot of the task's child pids.
func (t *Task) Children() []defs.Pid_t {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]defs.Pid_t, len(t.children))
	copy(out, t.children)
	return out
}

// RemoveChild drops pid from the child list, used after reaping.
func (t *Task) RemoveChild(pid defs.Pid_t) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, c := range t.children {
		if c == pid {
			t.children = append(t.children[:i], t.children[i+1:]...)
			return
		}
	}
}

// Table is the process table: an arena of tasks addressed by pid, with
// parent/child links stored as pid indices rather than owning pointers,
// so the task↔children graph holds no pointer cycles. Pid 1 is the reaper every
// orphan is reparented to.
type Table struct {
	mu      sync.Mutex
	tasks   map[defs.Pid_t]*Task
	nextPid defs.Pid_t
}

// NewTable returns an empty table whose first allocated pid is 1 (the
// init/reaper task).
func NewTable() *Table {
	return &Table{tasks: make(map[defs.Pid_t]*Task), nextPid: 1}
}

// Spawn allocates a fresh pid and registers a task for it.
func (tb *Table) Spawn(ppid defs.Pid_t, as *mem.AddressSpace) *Task {
	tb.mu.Lock()
	pid := tb.nextPid
	tb.nextPid++
	tb.mu.Unlock()

	t := NewTask(pid, ppid, as)
	tb.mu.Lock()
	tb.tasks[pid] = t
	tb.mu.Unlock()

	if ppid != 0 {
		if parent, ok := tb.Get(ppid); ok {
			parent.AddChild(pid)
		}
	}
	return t
}

// Get looks up a task by pid.
func (tb *Table) Get(pid defs.Pid_t) (*Task, bool) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	t, ok := tb.tasks[pid]
	return t, ok
}

// Remove deletes a reaped task from the table.
func (tb *Table) Remove(pid defs.Pid_t) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	delete(tb.tasks, pid)
}

// Exit marks t a zombie, reparents its live children to init, and wakes
// its parent's waitpid (spec.md §4.6). This is the entry point callers
// should use instead of Task.Exit directly, since reparenting and
// parent notification both require the table.
func (tb *Table) Exit(t *Task, status int) {
	t.Exit(status)
	tb.ReparentChildren(t)
	if parent, ok := tb.Get(t.Ppid); ok {
		parent.childExitQ.WakeAll()
	}
}

// Wait implements waitpid (spec.md §4.6): blocks until a child of parent
// matching pid (0 means "any child") is a zombie, then reaps it —
// removing it from the table and returning its pid and exit status.
// WNOHANG-equivalent behaviour is requested via nohang: with no matching
// zombie yet, it returns (0, 0, 0) instead of blocking. A signal
// delivered while blocked returns EINTR.
func (tb *Table) Wait(parent *Task, pid defs.Pid_t, nohang bool) (defs.Pid_t, int, defs.Err_t) {
	for {
		children := parent.Children()
		if pid != 0 {
			found := false
			for _, cpid := range children {
				if cpid == pid {
					found = true
					break
				}
			}
			if !found {
				return 0, 0, -defs.ESRCH
			}
		}
		for _, cpid := range children {
			if pid != 0 && cpid != pid {
				continue
			}
			child, ok := tb.Get(cpid)
			if !ok || !child.Exited() {
				continue
			}
			status := child.ExitStatus()
			parent.RemoveChild(cpid)
			tb.Remove(cpid)
			return cpid, status, 0
		}
		if nohang {
			return 0, 0, 0
		}
		if interrupted := parent.SleepOn(parent.childExitQ, Interruptible); interrupted {
			return 0, 0, -defs.EINTR
		}
	}
}

// Snapshot returns every live task, in no particular order. Used by the
// feedback sampler and by cmd/mentosctl's process listing — both
// read-only consumers that must not hold the table lock while they work.
func (tb *Table) Snapshot() []*Task {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	out := make([]*Task, 0, len(tb.tasks))
	for _, t := range tb.tasks {
		out = append(out, t)
	}
	return out
}

// ReparentChildren reassigns every live child of dead to defs.InitPid,
// per spec.md §4.6.
func (tb *Table) ReparentChildren(dead *Task) {
	for _, cpid := range dead.Children() {
		child, ok := tb.Get(cpid)
		if !ok {
			continue
		}
		child.Ppid = defs.InitPid
		if init, ok := tb.Get(defs.InitPid); ok {
			init.AddChild(cpid)
		}
	}
}
