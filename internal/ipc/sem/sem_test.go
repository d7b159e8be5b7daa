package sem

import (
	"testing"
	"time"

	"github.com/mentos-team/mentos-kernel/internal/defs"
	"github.com/mentos-team/mentos-kernel/internal/ipc"
	"github.com/mentos-team/mentos-kernel/internal/sched"
)

func TestSemopAppliesVectorAtomically(t *testing.T) {
	s := New(ipc.Perm{}, 2)
	s.SetAll([]int16{1, 0})
	task := sched.NewTask(1, defs.InitPid, nil)

	// the second element would block (value 0, op -1, no NoWait); since
	// the whole vector must succeed atomically, the first element's
	// value must be left untouched.
	done := make(chan defs.Err_t, 1)
	go func() { done <- s.Semop(task, []Op{{Num: 0, Delta: -1}, {Num: 1, Delta: -1}}) }()

	waitForWaiter(t, s)
	if got := s.GetAll(); got[0] != 1 {
		t.Fatalf("expected element 0 untouched while element 1 blocks, got %v", got)
	}

	// release the second element; both ops should now apply together.
	s.SetVal(1, 1)
	select {
	case err := <-done:
		if err != 0 {
			t.Fatalf("expected the blocked semop to eventually succeed, got %d", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for semop to unblock")
	}
	if got := s.GetAll(); got[0] != 0 || got[1] != 0 {
		t.Fatalf("expected both elements decremented once unblocked, got %v", got)
	}
}

func TestSemopNoWaitFailsImmediately(t *testing.T) {
	s := New(ipc.Perm{}, 1)
	task := sched.NewTask(1, defs.InitPid, nil)
	err := s.Semop(task, []Op{{Num: 0, Delta: -1, NoWait: true}})
	if err != -defs.EAGAIN {
		t.Fatalf("expected EAGAIN, got %d", err)
	}
}

func TestSemopWaitForZero(t *testing.T) {
	s := New(ipc.Perm{}, 1)
	s.SetVal(0, 1)
	task := sched.NewTask(1, defs.InitPid, nil)

	done := make(chan defs.Err_t, 1)
	go func() { done <- s.Semop(task, []Op{{Num: 0, Delta: 0}}) }()
	waitForWaiter(t, s)

	s.SetVal(0, 0)
	select {
	case err := <-done:
		if err != 0 {
			t.Fatalf("expected the wait-for-zero semop to succeed, got %d", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for zero-wait semop")
	}
}

func TestRemoveFailsPendingWaitersWithEIDRM(t *testing.T) {
	s := New(ipc.Perm{}, 1)
	task := sched.NewTask(1, defs.InitPid, nil)

	done := make(chan defs.Err_t, 1)
	go func() { done <- s.Semop(task, []Op{{Num: 0, Delta: -1}}) }()
	waitForWaiter(t, s)

	s.Remove()
	select {
	case err := <-done:
		if err != -defs.EIDRM {
			t.Fatalf("expected EIDRM after removal, got %d", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for removal to unblock the waiter")
	}
}

func TestManagerGetCreatesAndFindsByKey(t *testing.T) {
	m := NewManager()
	id1, err := m.Get(42, 3, defs.IPC_CREAT, ipc.Perm{})
	if err != 0 {
		t.Fatalf("expected creation to succeed, got %d", err)
	}
	id2, err := m.Get(42, 0, 0, ipc.Perm{})
	if err != 0 || id2 != id1 {
		t.Fatalf("expected the same id for an existing key, got id=%d err=%d", id2, err)
	}
	if _, err := m.Get(42, 3, defs.IPC_CREAT|defs.IPC_EXCL, ipc.Perm{}); err != -defs.EEXIST {
		t.Fatalf("expected EEXIST for CREAT|EXCL on an existing key, got %d", err)
	}
}

func waitForWaiter(t *testing.T, s *Set) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		n := s.waiters.Len()
		s.mu.Unlock()
		if n > 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("semop never registered as a waiter")
}
