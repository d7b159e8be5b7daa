package pgfault

import (
	"testing"

	"github.com/mentos-team/mentos-kernel/internal/defs"
	"github.com/mentos-team/mentos-kernel/internal/mem"
	"github.com/mentos-team/mentos-kernel/internal/sched"
)

func TestHandleDemandPagesLazyCOWSlot(t *testing.T) {
	alloc := mem.NewAllocator(4)
	as := mem.NewAddressSpace(alloc)
	task := sched.NewTask(2, defs.InitPid, as)

	const va = 0x2000
	as.ReserveLazy(va, mem.PTE_U|mem.PTE_W)

	d := &Dispatcher{}
	flushed := false
	d.FlushTLB = func(addr uintptr) { flushed = true }

	outcome, err := d.Handle(as, task, nil, Frame{Addr: va, Write: false, User: true})
	if err != 0 {
		t.Fatalf("expected demand-page resolution to succeed, got err %d", err)
	}
	if outcome != OutcomeResolved {
		t.Fatalf("expected OutcomeResolved, got %v", outcome)
	}
	if !flushed {
		t.Fatalf("expected FlushTLB to be called after resolution")
	}
}

func TestHandleSignalsUserModeUnmappedAccess(t *testing.T) {
	alloc := mem.NewAllocator(4)
	as := mem.NewAddressSpace(alloc)
	task := sched.NewTask(2, defs.InitPid, as)

	d := &Dispatcher{}
	outcome, _ := d.Handle(as, task, nil, Frame{Addr: 0x9000, Write: false, User: true})
	if outcome != OutcomeSignaled {
		t.Fatalf("expected OutcomeSignaled for an unmapped user access, got %v", outcome)
	}
	if sig, ok := task.Signals.Deliverable(); !ok || sig != 11 {
		t.Fatalf("expected SIGSEGV (11) to become pending, got sig=%d ok=%v", sig, ok)
	}
}

func TestHandlePanicsOnUnmappedKernelAccess(t *testing.T) {
	alloc := mem.NewAllocator(4)
	as := mem.NewAddressSpace(alloc)
	task := sched.NewTask(2, defs.InitPid, as)

	d := &Dispatcher{}
	defer func() {
		if recover() == nil {
			t.Fatalf("expected a kernel-mode unmapped access to panic")
		}
	}()
	d.Handle(as, task, nil, Frame{Addr: 0x9000, Write: false, User: false})
}

func TestHandleResolvesCOWWriteFault(t *testing.T) {
	parentAlloc := mem.NewAllocator(8)
	parent := mem.NewAddressSpace(parentAlloc)
	const va = 0x3000
	if err := parent.DemandPage(va, mem.PTE_U|mem.PTE_W); err != 0 {
		t.Fatalf("setup DemandPage failed: %d", err)
	}
	child := parent.Fork()
	task := sched.NewTask(3, defs.InitPid, child)

	d := &Dispatcher{}
	outcome, err := d.Handle(child, task, nil, Frame{Addr: va, Write: true, User: true})
	if err != 0 {
		t.Fatalf("expected COW resolution to succeed, got err %d", err)
	}
	if outcome != OutcomeResolved {
		t.Fatalf("expected OutcomeResolved for a COW write fault, got %v", outcome)
	}
	pte, ok := child.Lookup(va)
	if !ok || pte.Flags&mem.PTE_COW != 0 {
		t.Fatalf("expected the COW bit to be cleared after resolution")
	}
}
