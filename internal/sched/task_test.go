package sched

import (
	"testing"
	"time"

	"github.com/mentos-team/mentos-kernel/internal/defs"
	"github.com/mentos-team/mentos-kernel/internal/signal"
)

func TestTableWaitReapsZombieChild(t *testing.T) {
	tb := NewTable()
	init := tb.Spawn(0, nil)
	child := tb.Spawn(init.Pid, nil)

	tb.Exit(child, 3)

	pid, status, err := tb.Wait(init, 0, false)
	if err != 0 {
		t.Fatalf("expected wait to succeed, got %d", err)
	}
	if pid != child.Pid || status != 3 {
		t.Fatalf("expected to reap pid %d status 3, got pid=%d status=%d", child.Pid, pid, status)
	}
	if _, ok := tb.Get(child.Pid); ok {
		t.Fatalf("expected the reaped child to be removed from the table")
	}
}

func TestTableWaitNoHangReturnsZeroWithoutBlocking(t *testing.T) {
	tb := NewTable()
	init := tb.Spawn(0, nil)
	tb.Spawn(init.Pid, nil)

	pid, _, err := tb.Wait(init, 0, true)
	if err != 0 || pid != 0 {
		t.Fatalf("expected WNOHANG with no zombie child to return (0,0,0), got pid=%d err=%d", pid, err)
	}
}

func TestTableWaitBlocksUntilChildExits(t *testing.T) {
	tb := NewTable()
	init := tb.Spawn(0, nil)
	child := tb.Spawn(init.Pid, nil)

	done := make(chan defs.Pid_t, 1)
	go func() {
		pid, _, _ := tb.Wait(init, 0, false)
		done <- pid
	}()
	time.Sleep(10 * time.Millisecond)

	tb.Exit(child, 0)

	select {
	case pid := <-done:
		if pid != child.Pid {
			t.Fatalf("expected to reap the exited child, got pid %d", pid)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for waitpid to unblock")
	}
}

func TestPostSignalInterruptsSleepingTask(t *testing.T) {
	q := NewWaitQueue()
	task := NewTask(5, defs.InitPid, nil)

	done := make(chan bool, 1)
	go func() { done <- task.SleepOn(q, Interruptible) }()
	waitUntil(t, func() bool { return q.Len() == 1 })

	task.PostSignal(signal.SIGTERM)

	select {
	case interrupted := <-done:
		if !interrupted {
			t.Fatalf("expected a signal to interrupt the sleep")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the signal-cancelled wake")
	}
	if _, ok := task.Signals.Deliverable(); !ok {
		t.Fatalf("expected SIGTERM to remain pending for later delivery")
	}
}

func TestPostSignalDoesNotWakeUninterruptibleSleeper(t *testing.T) {
	q := NewWaitQueue()
	task := NewTask(5, defs.InitPid, nil)

	done := make(chan bool, 1)
	go func() { done <- task.SleepOn(q, Uninterruptible) }()
	waitUntil(t, func() bool { return q.Len() == 1 })

	task.PostSignal(signal.SIGTERM)

	select {
	case <-done:
		t.Fatal("expected an uninterruptible sleeper not to wake on signal")
	case <-time.After(50 * time.Millisecond):
	}
	q.WakeOne()
	<-done
}

func TestExitMarksZombieAndRecordsStatus(t *testing.T) {
	task := NewTask(5, defs.InitPid, nil)
	task.Exit(7)
	if task.State() != Zombie {
		t.Fatalf("expected Zombie state after Exit, got %v", task.State())
	}
	if task.ExitStatus() != 7 {
		t.Fatalf("expected exit status 7, got %d", task.ExitStatus())
	}
}

func TestTableReparentChildrenMovesOrphansToInit(t *testing.T) {
	tb := NewTable()
	init := tb.Spawn(0, nil)
	if init.Pid != defs.InitPid {
		t.Fatalf("expected first spawned task to be pid %d, got %d", defs.InitPid, init.Pid)
	}
	parent := tb.Spawn(defs.InitPid, nil)
	child := tb.Spawn(parent.Pid, nil)

	tb.ReparentChildren(parent)

	if child.Ppid != defs.InitPid {
		t.Fatalf("expected child to be reparented to init, got ppid %d", child.Ppid)
	}
	found := false
	for _, c := range init.Children() {
		if c == child.Pid {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected init to list the reparented child among its children")
	}
}
