package mem

import "testing"

func TestAllocRefcountRoundTrip(t *testing.T) {
	a := NewAllocator(8)
	pa, ok := a.AllocPage()
	if !ok {
		t.Fatal("AllocPage failed with free frames available")
	}
	if a.Refcount(pa) != 1 {
		t.Fatalf("Refcount = %d, want 1", a.Refcount(pa))
	}
	a.Refup(pa)
	if a.Refcount(pa) != 2 {
		t.Fatalf("Refcount = %d, want 2", a.Refcount(pa))
	}
	if freed := a.Refdown(pa); freed {
		t.Fatal("Refdown freed frame still referenced")
	}
	if freed := a.Refdown(pa); !freed {
		t.Fatal("Refdown did not free frame at refcount 0")
	}
}

func TestAllocExhaustion(t *testing.T) {
	a := NewAllocator(2)
	if _, ok := a.AllocPage(); !ok {
		t.Fatal("first alloc should succeed")
	}
	if _, ok := a.AllocPage(); !ok {
		t.Fatal("second alloc should succeed")
	}
	if _, ok := a.AllocPage(); ok {
		t.Fatal("third alloc should fail: allocator exhausted")
	}
}

func TestAllocPagesRollsBackOnFailure(t *testing.T) {
	a := NewAllocator(3)
	if _, ok := a.AllocPages(5); ok {
		t.Fatal("AllocPages(5) should fail against an 3-frame allocator")
	}
	free, _ := a.Stats()
	if free != 3 {
		t.Fatalf("free frames after failed AllocPages = %d, want 3 (full rollback)", free)
	}
}

func TestForkSharesAndCOWDiverges(t *testing.T) {
	a := NewAllocator(16)
	parent := NewAddressSpace(a)
	f, _ := a.AllocPage()
	const va = uintptr(0x08100000)
	parent.MapPage(va, f, PTE_U|PTE_W)

	child := parent.Fork()

	ppte, _ := parent.Lookup(va)
	cpte, _ := child.Lookup(va)
	if ppte.Frame != cpte.Frame {
		t.Fatal("immediately after fork parent and child should share the frame")
	}
	if a.Refcount(f) != 2 {
		t.Fatalf("shared frame refcount = %d, want 2", a.Refcount(f))
	}
	if !ppte.cow() || !cpte.cow() {
		t.Fatal("both parent and child PTEs should be marked COW after fork")
	}

	// child writes: resolve the write fault, which must materialise a
	// private frame for the child without disturbing the parent's page.
	if err := child.ResolveWrite(va); err != 0 {
		t.Fatalf("child ResolveWrite failed: %d", err)
	}
	childPTE, _ := child.Lookup(va)
	if childPTE.Frame == ppte.Frame {
		t.Fatal("child write should have produced a distinct frame")
	}
	if childPTE.cow() {
		t.Fatal("child PTE should no longer be COW after the write fault")
	}

	// parent's mapping and frame must be untouched.
	ppte2, _ := parent.Lookup(va)
	if ppte2.Frame != f {
		t.Fatal("parent frame should be unchanged by child's write fault")
	}
	if a.Refcount(f) != 1 {
		t.Fatalf("parent-only frame refcount after child COW = %d, want 1", a.Refcount(f))
	}
}

func TestResolveWriteClaimsSingleRefFrameInPlace(t *testing.T) {
	a := NewAllocator(4)
	as := NewAddressSpace(a)
	f, _ := a.AllocPage()
	const va = uintptr(0x1000)
	as.MapPage(va, f, PTE_U|PTE_COW)

	if err := as.ResolveWrite(va); err != 0 {
		t.Fatalf("ResolveWrite failed: %d", err)
	}
	pte, _ := as.Lookup(va)
	if pte.Frame != f {
		t.Fatal("single-referent COW page should be claimed in place, not copied")
	}
	if !pte.writable() || pte.cow() {
		t.Fatal("page should now be writable and not COW")
	}
}
