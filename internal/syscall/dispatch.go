package syscall

import (
	"github.com/mentos-team/mentos-kernel/internal/defs"
	"github.com/mentos-team/mentos-kernel/internal/ipc"
	"github.com/mentos-team/mentos-kernel/internal/ipc/msgq"
	"github.com/mentos-team/mentos-kernel/internal/ipc/sem"
	"github.com/mentos-team/mentos-kernel/internal/ipc/shm"
	"github.com/mentos-team/mentos-kernel/internal/mem"
	"github.com/mentos-team/mentos-kernel/internal/sched"
	"github.com/mentos-team/mentos-kernel/internal/signal"
)

// Kernel bundles the subsystem handles a trap needs to reach: the
// process table and scheduler, the three IPC managers, and the physical
// allocator shmget draws frames from. One Kernel exists per simulated
// boot.
type Kernel struct {
	Tasks *sched.Table
	Sched *sched.Scheduler
	Alloc *mem.Allocator

	Sems  *sem.Manager
	Shms  *shm.Manager
	Msgqs *msgq.Manager
}

// NewKernel wires a fresh set of subsystem managers around an already
// constructed task table and scheduler.
func NewKernel(tasks *sched.Table, sch *sched.Scheduler, alloc *mem.Allocator) *Kernel {
	return &Kernel{
		Tasks: tasks,
		Sched: sch,
		Alloc: alloc,
		Sems:  sem.NewManager(),
		Shms:  shm.NewManager(),
		Msgqs: msgq.NewManager(),
	}
}

// Nice implements the nice syscall: current adjusts its own nice value
// by delta (spec.md §4.2). Only uid 0 may lower it.
func (k *Kernel) Nice(caller *sched.Task, delta int) Result {
	privileged := caller.Uid == 0
	if err := k.Sched.SetNice(caller, delta, privileged); err != 0 {
		return fail(err)
	}
	return ok(int64(caller.Nice))
}

// Kill implements kill(pid, sig): posts sig to the target task.
func (k *Kernel) Kill(pid defs.Pid_t, sig signal.Signal) Result {
	target, found := k.Tasks.Get(pid)
	if !found {
		return fail(-defs.ESRCH)
	}
	target.PostSignal(sig)
	return ok(0)
}

// Exit implements the exit syscall: reparents the caller's children and
// notifies its parent's waitpid.
func (k *Kernel) Exit(caller *sched.Task, status int) Result {
	k.Tasks.Exit(caller, status)
	return ok(0)
}

// WaitPid implements waitpid(pid, options) (spec.md §4.6). wnohang mirrors
// the WNOHANG option bit.
func (k *Kernel) WaitPid(caller *sched.Task, pid defs.Pid_t, wnohang bool) (defs.Pid_t, int, Result) {
	reaped, status, err := k.Tasks.Wait(caller, pid, wnohang)
	if err != 0 {
		return 0, 0, fail(err)
	}
	return reaped, status, ok(int64(reaped))
}

// Semget/Semop/Semctl adapt internal/ipc/sem (spec.md §4.3).

func (k *Kernel) Semget(key defs.Key_t, nsems int, flags int, caller *sched.Task) Result {
	id, err := k.Sems.Get(key, nsems, flags, callerPerm(caller, flags))
	if err != 0 {
		return fail(err)
	}
	return ok(int64(id))
}

func (k *Kernel) Semop(caller *sched.Task, id defs.IpcId_t, ops []sem.Op) Result {
	set, err := k.Sems.Lookup(id)
	if err != 0 {
		return fail(err)
	}
	if err := set.Semop(caller, ops); err != 0 {
		return fail(err)
	}
	return ok(0)
}

func (k *Kernel) SemctlRmid(id defs.IpcId_t) Result {
	if err := k.Sems.Rmid(id); err != 0 {
		return fail(err)
	}
	return ok(0)
}

// Shmget/Shmat/Shmdt/Shmctl adapt internal/ipc/shm (spec.md §4.4).

func (k *Kernel) Shmget(key defs.Key_t, size int, flags int, caller *sched.Task) Result {
	id, err := k.Shms.Get(k.Alloc, key, size, flags, callerPerm(caller, flags))
	if err != 0 {
		return fail(err)
	}
	return ok(int64(id))
}

func (k *Kernel) Shmat(caller *sched.Task, id defs.IpcId_t, hint uintptr) Result {
	seg, err := k.Shms.Lookup(id)
	if err != 0 {
		return fail(err)
	}
	va := k.Shms.Attach(seg, caller.AS, caller.Pid, hint)
	return ok(int64(va))
}

func (k *Kernel) Shmdt(caller *sched.Task, id defs.IpcId_t, addr uintptr) Result {
	seg, err := k.Shms.Lookup(id)
	if err != 0 {
		return fail(err)
	}
	if err := k.Shms.Detach(seg, caller.AS, addr); err != 0 {
		return fail(err)
	}
	return ok(0)
}

func (k *Kernel) ShmctlRmid(id defs.IpcId_t) Result {
	if err := k.Shms.Rmid(id); err != 0 {
		return fail(err)
	}
	return ok(0)
}

// Msgget/Msgsnd/Msgrcv adapt internal/ipc/msgq (spec.md §4.5).

func (k *Kernel) Msgget(key defs.Key_t, flags int, caller *sched.Task) Result {
	id, err := k.Msgqs.Get(key, flags, callerPerm(caller, flags))
	if err != 0 {
		return fail(err)
	}
	return ok(int64(id))
}

func (k *Kernel) Msgsnd(caller *sched.Task, id defs.IpcId_t, msg msgq.Message, noWait bool) Result {
	q, err := k.Msgqs.Lookup(id)
	if err != 0 {
		return fail(err)
	}
	if err := q.Send(caller, caller.Pid, msg, noWait); err != 0 {
		return fail(err)
	}
	return ok(0)
}

func (k *Kernel) Msgrcv(caller *sched.Task, id defs.IpcId_t, typ int64, size int, noWait, noError bool) (msgq.Message, Result) {
	q, err := k.Msgqs.Lookup(id)
	if err != 0 {
		return msgq.Message{}, fail(err)
	}
	m, rerr := q.Recv(caller, caller.Pid, typ, size, noWait, noError)
	if rerr != 0 {
		return msgq.Message{}, fail(rerr)
	}
	return m, ok(int64(len(m.Payload)))
}

func callerPerm(caller *sched.Task, flags int) ipc.Perm {
	return ipc.Perm{
		Uid:  caller.Uid,
		Gid:  caller.Gid,
		Cuid: caller.Uid,
		Cgid: caller.Gid,
		Mode: uint32(flags & 0o777),
	}
}
