package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mentos-team/mentos-kernel/internal/defs"
	"github.com/mentos-team/mentos-kernel/internal/ftok"
	"github.com/mentos-team/mentos-kernel/internal/ipc/msgq"
	"github.com/mentos-team/mentos-kernel/internal/kconfig"
	"github.com/mentos-team/mentos-kernel/internal/mem"
	"github.com/mentos-team/mentos-kernel/internal/pgfault"
	"github.com/mentos-team/mentos-kernel/internal/signal"
)

func newScenarioCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario",
		Short: "run one of the named reference scenarios",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "fork-cow",
		Short: "fork an address space, write through the child, verify parent isolation",
		RunE:  runForkCOW,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "segv",
		Short: "dereference a null pointer in user mode and observe SIGSEGV + waitpid",
		RunE:  runSegv,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "msgq",
		Short: "msgget/msgsnd/msgrcv round trip keyed by ftok",
		RunE:  runMsgq,
	})
	return cmd
}

const scenarioVA = 0x08100000

func runForkCOW(cmd *cobra.Command, args []string) error {
	m := boot(kconfig.DefaultConfig())
	parent := m.tasks.Spawn(defs.InitPid, mem.NewAddressSpace(m.alloc))

	parent.AS.ReserveLazy(scenarioVA, mem.PTE_W|mem.PTE_U)
	if err := parent.AS.DemandPage(scenarioVA, mem.PTE_W|mem.PTE_U); err != 0 {
		return fmt.Errorf("demand page: errno %d", err)
	}
	frame, _ := parent.AS.VirtToPhys(scenarioVA)
	m.alloc.Dmap(frame)[0] = 'A'

	childAS := parent.AS.Fork()
	child := m.tasks.Spawn(parent.Pid, childAS)

	if err := childAS.ResolveWrite(scenarioVA); err != 0 {
		return fmt.Errorf("resolve write: errno %d", err)
	}
	childFrame, _ := childAS.VirtToPhys(scenarioVA)
	m.alloc.Dmap(childFrame)[0] = 'X'

	parentFrame, _ := parent.AS.VirtToPhys(scenarioVA)
	parentByte := m.alloc.Dmap(parentFrame)[0]
	childByte := m.alloc.Dmap(childFrame)[0]

	fmt.Fprintf(cmd.OutOrStdout(), "pid %d (parent) reads %q; pid %d (child) reads %q; frames differ: %v\n",
		parent.Pid, parentByte, child.Pid, childByte, parentFrame != childFrame)
	return nil
}

func runSegv(cmd *cobra.Command, args []string) error {
	m := boot(kconfig.DefaultConfig())
	parent := m.tasks.Spawn(defs.InitPid, nil)
	child := m.tasks.Spawn(parent.Pid, mem.NewAddressSpace(m.alloc))

	disp := &pgfault.Dispatcher{FlushTLB: func(uintptr) {}}
	outcome, _ := disp.Handle(child.AS, child, m.sched, pgfault.Frame{Addr: 0, Write: false, User: true})
	if outcome != pgfault.OutcomeSignaled {
		return fmt.Errorf("expected a signaled outcome, got %v", outcome)
	}

	sig, ok := child.Signals.Deliverable()
	if !ok || sig != signal.SIGSEGV {
		return fmt.Errorf("expected SIGSEGV pending, got sig=%d ok=%v", sig, ok)
	}
	m.tasks.Exit(child, 128+int(signal.SIGSEGV))

	pid, status, err := m.tasks.Wait(parent, 0, false)
	if err != 0 {
		return fmt.Errorf("waitpid: errno %d", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "pid %d terminated by SIGSEGV, waitpid reaped pid %d status %d\n", child.Pid, pid, status)
	return nil
}

func runMsgq(cmd *cobra.Command, args []string) error {
	m := boot(kconfig.DefaultConfig())
	caller := m.tasks.Spawn(defs.InitPid, nil)

	key, err := ftok.Ftok(".", 5)
	if err != nil {
		return err
	}

	res := m.sys.Msgget(key, defs.IPC_CREAT, caller)
	if res.Errno != nil {
		return res.Errno
	}
	id := defs.IpcId_t(res.Value)

	if res := m.sys.Msgsnd(caller, id, msgq.Message{Type: 1, Payload: []byte("Hello")}, false); res.Errno != nil {
		return res.Errno
	}
	first, res := m.sys.Msgrcv(caller, id, 1, 64, false, false)
	if res.Errno != nil {
		return res.Errno
	}
	fmt.Fprintf(cmd.OutOrStdout(), "first recv: %q\n", first.Payload)

	if res := m.sys.Msgsnd(caller, id, msgq.Message{Type: 1, Payload: []byte("World")}, false); res.Errno != nil {
		return res.Errno
	}
	second, res := m.sys.Msgrcv(caller, id, 1, 64, false, false)
	if res.Errno != nil {
		return res.Errno
	}
	fmt.Fprintf(cmd.OutOrStdout(), "second recv: %q\n", second.Payload)
	return nil
}
