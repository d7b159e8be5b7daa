package signal

import "testing"

func TestDeliverableOrdersLowestFirst(t *testing.T) {
	s := &State{}
	s.Post(SIGTERM)
	s.Post(SIGINT)
	s.Post(SIGHUP)

	sig, ok := s.Deliverable()
	if !ok || sig != SIGHUP {
		t.Fatalf("Deliverable() = (%d, %v), want (SIGHUP, true)", sig, ok)
	}
}

func TestBlockedSignalNotDeliverable(t *testing.T) {
	s := &State{}
	s.Block(SIGINT)
	s.Post(SIGINT)

	if _, ok := s.Deliverable(); ok {
		t.Fatal("blocked signal should not be deliverable")
	}
	if s.CanInterrupt() {
		t.Fatal("blocked pending signal should not cancel a sleep")
	}
}

func TestKillAndStopCannotBeBlocked(t *testing.T) {
	s := &State{}
	s.Block(SIGKILL)
	s.Block(SIGSTOP)
	if s.Mask()&bit(SIGKILL) != 0 || s.Mask()&bit(SIGSTOP) != 0 {
		t.Fatal("SIGKILL/SIGSTOP must never enter the blocked set")
	}
}

func TestClearRemovesFromPending(t *testing.T) {
	s := &State{}
	s.Post(SIGSEGV)
	s.Clear(SIGSEGV)
	if _, ok := s.Deliverable(); ok {
		t.Fatal("cleared signal should not remain deliverable")
	}
}

func TestIgnoredSignalDoesNotInterrupt(t *testing.T) {
	s := &State{}
	s.SetHandler(SIGTERM, Handler{Disposition: DispositionIgnore})
	s.Post(SIGTERM)
	if s.CanInterrupt() {
		t.Fatal("an ignored pending signal should not cancel a blocking sleep")
	}
}
