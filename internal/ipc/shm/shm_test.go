package shm

import (
	"testing"

	"github.com/mentos-team/mentos-kernel/internal/defs"
	"github.com/mentos-team/mentos-kernel/internal/ipc"
	"github.com/mentos-team/mentos-kernel/internal/mem"
)

func TestGetAllocatesRoundedUpPageCount(t *testing.T) {
	alloc := mem.NewAllocator(16)
	m := NewManager()
	id, err := m.Get(alloc, 1, mem.PageSize+1, defs.IPC_CREAT, ipc.Perm{})
	if err != 0 {
		t.Fatalf("expected creation to succeed, got %d", err)
	}
	seg, err := m.Lookup(id)
	if err != 0 {
		t.Fatalf("expected lookup to succeed, got %d", err)
	}
	if len(seg.frames) != 2 {
		t.Fatalf("expected a size just over one page to need 2 frames, got %d", len(seg.frames))
	}
}

func TestAttachInstallsPresentNonCOWMappings(t *testing.T) {
	alloc := mem.NewAllocator(16)
	as := mem.NewAddressSpace(alloc)
	m := NewManager()
	id, _ := m.Get(alloc, 1, mem.PageSize, defs.IPC_CREAT, ipc.Perm{})
	seg, _ := m.Lookup(id)

	va := m.Attach(seg, as, 7, 0)
	pte, ok := as.Lookup(va)
	if !ok || pte.Flags&mem.PTE_P == 0 {
		t.Fatalf("expected the attached page to be present")
	}
	if pte.Flags&mem.PTE_COW != 0 {
		t.Fatalf("expected the attached page not to carry the COW bit")
	}
	if seg.attachCount != 1 || seg.lastAttach != 7 {
		t.Fatalf("expected attach bookkeeping to be updated, got count=%d lastAttach=%d", seg.attachCount, seg.lastAttach)
	}
}

func TestDetachFreesOnDestWithZeroAttachments(t *testing.T) {
	alloc := mem.NewAllocator(16)
	as := mem.NewAddressSpace(alloc)
	m := NewManager()
	id, _ := m.Get(alloc, 1, mem.PageSize, defs.IPC_CREAT, ipc.Perm{})
	seg, _ := m.Lookup(id)

	va := m.Attach(seg, as, 7, 0)
	m.Rmid(id) // sets DEST; attachCount still 1, so not freed yet
	if err := m.Detach(seg, as, va); err != 0 {
		t.Fatalf("expected detach to succeed, got %d", err)
	}
	if _, ok := as.Lookup(va); ok {
		if pte, _ := as.Lookup(va); pte.Flags&mem.PTE_P != 0 {
			t.Fatalf("expected the page to be unmapped after detach")
		}
	}
	if seg.attachCount != 0 {
		t.Fatalf("expected attach count to drop to zero, got %d", seg.attachCount)
	}
	if free, total := alloc.Stats(); free != total {
		t.Fatalf("expected every backing frame to be reclaimed once the last attachment dropped, got %d/%d free", free, total)
	}
}
