// Package syscall is the syscall adapter layer: Kernel exposes one typed
// method per implemented syscall, calling into internal/sched,
// internal/ipc/{sem,shm,msgq} and internal/mem, and turns their Err_t
// results into platform errno values. It does not decode trap frames or
// dispatch by syscall number; callers pass already-typed arguments.
// Grounded on the teacher's Fd_t/Fdops_i dispatch shape
// (biscuit/src/fd/fd.go) generalized from "one object, many syscalls" to
// "one syscall, one typed handler".
package syscall

import (
	"golang.org/x/sys/unix"

	"github.com/mentos-team/mentos-kernel/internal/defs"
)

// errnoTable maps this kernel's negated-errno convention onto the
// platform errno values golang.org/x/sys/unix exposes, so a return value
// handed back across the simulated trap boundary matches what a real
// libc caller expects (spec.md §6: "errno values follow POSIX
// numbering").
var errnoTable = map[defs.Err_t]unix.Errno{
	defs.EPERM:  unix.EPERM,
	defs.ENOENT: unix.ENOENT,
	defs.ESRCH:  unix.ESRCH,
	defs.EINTR:  unix.EINTR,
	defs.E2BIG:  unix.E2BIG,
	defs.EAGAIN: unix.EAGAIN,
	defs.ENOMEM: unix.ENOMEM,
	defs.EACCES: unix.EACCES,
	defs.EFAULT: unix.EFAULT,
	defs.EEXIST: unix.EEXIST,
	defs.EINVAL: unix.EINVAL,
	defs.ERANGE: unix.ERANGE,
	defs.EIDRM:  unix.EIDRM,
}

// ToErrno converts a kernel Err_t (negative or zero) to the platform
// errno a syscall return value would carry. Zero maps to nil.
func ToErrno(err defs.Err_t) error {
	if err == 0 {
		return nil
	}
	code := err
	if code < 0 {
		code = -code
	}
	if e, ok := errnoTable[code]; ok {
		return e
	}
	return unix.EINVAL
}

// Result is what each Kernel syscall method returns: the raw return value a successful
// call produced, and the errno a failed one carries, following the
// int64-return/separate-errno convention real syscalls use.
type Result struct {
	Value int64
	Errno error
}

func ok(v int64) Result  { return Result{Value: v} }
func fail(err defs.Err_t) Result { return Result{Value: -1, Errno: ToErrno(err)} }
