// Package pgfault implements the page-fault dispatcher spec.md §4.1
// describes: given the P/W/U error-code bits and the faulting address,
// resolve demand-paging and copy-on-write faults in place, or escalate to
// SIGSEGV (user mode) / panic (kernel mode). Grounded on gopheros's
// pageFaultHandler (gopher-os-gopher-os/src/gopheros/kernel/mm/vmm/fault.go),
// which is the only pack repo that implements a real page-fault entry
// point end to end; the COW-resolution half reuses this module's own
// internal/mem.AddressSpace.ResolveWrite/DemandPage rather than
// reimplementing frame copying here.
package pgfault

import (
	"fmt"

	"golang.org/x/arch/x86/x86asm"

	"github.com/mentos-team/mentos-kernel/internal/defs"
	"github.com/mentos-team/mentos-kernel/internal/mem"
	"github.com/mentos-team/mentos-kernel/internal/sched"
	"github.com/mentos-team/mentos-kernel/internal/signal"
)

// Frame is the trapped fault state: the faulting address and the
// error-code bits spec.md §4.1 names, plus the raw bytes at the faulting
// instruction pointer (if available) for diagnostic decoding.
type Frame struct {
	Addr       uintptr
	Write      bool
	User       bool
	InstrBytes []byte
}

// Outcome reports what the dispatcher did with a fault, for callers that
// need to distinguish "retry the instruction" from "a signal is now
// pending" without inspecting the task directly.
type Outcome int

const (
	OutcomeResolved Outcome = iota
	OutcomeSignaled
)

// Dispatcher resolves page faults against one AddressSpace/Task pair. A
// single Dispatcher is reused across every fault the simulated CPU takes;
// it holds no per-fault state.
type Dispatcher struct {
	// FlushTLB is called with the faulting address after any successful
	// resolution (spec.md §4.1: "the TLB entry for the faulting address
	// is invalidated"). Optional — a pure in-memory simulation has no TLB
	// to flush, so the zero value is a no-op.
	FlushTLB func(addr uintptr)
}

// Handle dispatches one fault per spec.md §4.1's table. On the SIGSEGV
// path it posts the signal to task and yields sch to the scheduler, as
// the spec requires ("the faulting instruction is not re-executed on
// behalf of the kernel"). A kernel-mode unresolvable fault panics.
func (d *Dispatcher) Handle(as *mem.AddressSpace, task *sched.Task, sch *sched.Scheduler, f Frame) (Outcome, defs.Err_t) {
	as.Lock()
	pte, pdePresent := as.Lookup(f.Addr)
	as.Unlock()

	switch {
	case !pdePresent:
		return d.unmapped(task, sch, f)

	case pte.Flags&mem.PTE_P == 0:
		// PDE present, PTE not present: a reserved-but-unbacked COW slot
		// is a lazy demand-paging request; anything else is a genuine
		// access to unmapped memory.
		if pte.Flags&mem.PTE_COW != 0 {
			err := as.DemandPage(f.Addr, pte.Flags|mem.PTE_U)
			if err != 0 {
				return d.segvOrPanic(task, sch, f, err)
			}
			d.flush(f.Addr)
			return OutcomeResolved, 0
		}
		return d.unmapped(task, sch, f)

	case pte.Flags&mem.PTE_COW != 0 && f.Write:
		as.Lock()
		err := as.ResolveWrite(f.Addr)
		as.Unlock()
		if err != 0 {
			return d.segvOrPanic(task, sch, f, err)
		}
		d.flush(f.Addr)
		return OutcomeResolved, 0

	default:
		// present, not COW (or COW but not a write): a genuine
		// protection violation.
		return d.segvOrPanic(task, sch, f, -defs.EFAULT)
	}
}

func (d *Dispatcher) unmapped(task *sched.Task, sch *sched.Scheduler, f Frame) (Outcome, defs.Err_t) {
	return d.segvOrPanic(task, sch, f, -defs.EFAULT)
}

func (d *Dispatcher) segvOrPanic(task *sched.Task, sch *sched.Scheduler, f Frame, err defs.Err_t) (Outcome, defs.Err_t) {
	if !f.User {
		panic(d.diagnose(f, err))
	}
	task.PostSignal(signal.SIGSEGV)
	if sch != nil {
		sch.Yield()
	}
	return OutcomeSignaled, err
}

func (d *Dispatcher) flush(addr uintptr) {
	if d.FlushTLB != nil {
		d.FlushTLB(addr)
	}
}

// diagnose renders a panic message naming the fault and, when instruction
// bytes were captured, the decoded instruction that caused it — the
// diagnostic golang.org/x/arch/x86/x86asm exists for in this module.
func (d *Dispatcher) diagnose(f Frame, err defs.Err_t) string {
	msg := fmt.Sprintf("unrecoverable page fault at %#x (write=%v user=%v): %d", f.Addr, f.Write, f.User, err)
	if len(f.InstrBytes) == 0 {
		return msg
	}
	inst, decErr := x86asm.Decode(f.InstrBytes, 64)
	if decErr != nil {
		return fmt.Sprintf("%s (instruction decode failed: %v)", msg, decErr)
	}
	return fmt.Sprintf("%s (faulting instruction: %s)", msg, inst.String())
}
