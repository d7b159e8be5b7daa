package mem

import (
	"sync"

	"github.com/mentos-team/mentos-kernel/internal/defs"
)

// PTEFlags holds the per-entry bits spec.md §3 names: present,
// read/write, user, global, accessed, dirty, plus the software-defined
// COW bit.
type PTEFlags uint32

const (
	PTE_P PTEFlags = 1 << iota
	PTE_W
	PTE_U
	PTE_G
	PTE_A
	PTE_D
	PTE_COW
)

// PTE is one page-table entry: a frame handle plus its flags. A PTE
// references a frame by Pa_t handle, never by pointer — the Allocator
// owns the frame's lifetime.
type PTE struct {
	Frame Pa_t
	Flags PTEFlags
}

func (e PTE) present() bool { return e.Flags&PTE_P != 0 }
func (e PTE) cow() bool     { return e.Flags&PTE_COW != 0 }
func (e PTE) writable() bool {
	return e.Flags&PTE_W != 0
}

// PageTable is one level of 1024 page-table entries (spec.md §3: "each
// directory entry references a page table (1024 entries)").
type PageTable struct {
	Entries [1024]PTE
}

// pde is a page-directory entry: either absent, or present and pointing
// at a page table.
type pde struct {
	table *PageTable
}

// PageDirectory is the top-level, 1024-entry page directory spec.md §3
// describes. Each AddressSpace owns exactly one.
type PageDirectory struct {
	Entries [1024]pde
}

const (
	pdShift  = 22
	ptShift  = PageShift
	ptIndex  = 0x3ff
	pdeMask  = 0x3ff
	pageMask = PageSize - 1
)

func split(va uintptr) (pdIdx, ptIdx int, off uintptr) {
	return int((va >> pdShift) & pdeMask), int((va >> ptShift) & ptIndex), va & pageMask
}

// AddressSpace is one task's page directory plus the allocator it draws
// frames from. Exclusively owned by its task (spec.md §5: "no sharing");
// the mutex protects page-table edits the way the teacher's Vm_t.Mutex
// (Lock_pmap/Unlock_pmap) does.
type AddressSpace struct {
	mu    sync.Mutex
	Dir   *PageDirectory
	Alloc *Allocator
}

// NewAddressSpace creates an empty address space backed by alloc.
func NewAddressSpace(alloc *Allocator) *AddressSpace {
	return &AddressSpace{Dir: &PageDirectory{}, Alloc: alloc}
}

// Lock/Unlock expose the address-space lock directly for callers (the
// page-fault dispatcher, fork, IPC attach) that must hold it across a
// multi-step operation; this mirrors the teacher's explicit
// Lock_pmap/Unlock_pmap pairing rather than hiding locking inside every
// helper.
func (as *AddressSpace) Lock()   { as.mu.Lock() }
func (as *AddressSpace) Unlock() { as.mu.Unlock() }

// pteFor returns the PTE slot for va, allocating the backing page table
// on demand when alloc is true. It never allocates a frame for the entry
// itself — only the page-table page holding it.
func (as *AddressSpace) pteFor(va uintptr, alloc bool) (*PTE, bool) {
	pdIdx, ptI, _ := split(va)
	e := &as.Dir.Entries[pdIdx]
	if e.table == nil {
		if !alloc {
			return nil, false
		}
		e.table = &PageTable{}
	}
	return &e.table.Entries[ptI], true
}

// Lookup returns the PTE mapping va, if any page table exists for that
// range. It does not allocate.
func (as *AddressSpace) Lookup(va uintptr) (*PTE, bool) {
	return as.pteFor(va, false)
}

// VirtToPhys returns the frame currently mapped at va, if present.
func (as *AddressSpace) VirtToPhys(va uintptr) (Pa_t, bool) {
	pte, ok := as.pteFor(va, false)
	if !ok || !pte.present() {
		return NoFrame, false
	}
	return pte.Frame, true
}

// MapPage installs frame at va with the given flags, present. If a
// mapping already existed there it is replaced and its old frame's
// refcount is dropped — the caller must already hold a reference on
// frame (Refup) before calling, matching the teacher's Page_insert
// contract ("p_pg's ref count is increased so the caller can simply
// Physmem.Refdown()" — here we invert it onto the caller for clarity).
func (as *AddressSpace) MapPage(va uintptr, f Pa_t, flags PTEFlags) {
	pte, _ := as.pteFor(va, true)
	if pte.present() {
		as.Alloc.Refdown(pte.Frame)
	}
	*pte = PTE{Frame: f, Flags: flags | PTE_P}
}

// UnmapPage clears the mapping at va, dropping the frame's refcount. It
// reports whether a present mapping was actually removed.
func (as *AddressSpace) UnmapPage(va uintptr) bool {
	pte, ok := as.pteFor(va, false)
	if !ok || !pte.present() {
		return false
	}
	as.Alloc.Refdown(pte.Frame)
	*pte = PTE{}
	return true
}

// Fork produces a child address space that shares every present,
// currently-writable page with the parent via copy-on-write: both
// parent's and child's PTE are rewritten read-only+COW and the frame's
// refcount is bumped once for the new reference, exactly spec.md §8's
// COW round-trip law ("any write by parent or child ... results in both
// holding pages with different physical frames"). Read-only and
// non-present mappings are copied as-is (no COW needed for reads).
func (as *AddressSpace) Fork() *AddressSpace {
	as.Lock()
	defer as.Unlock()

	child := NewAddressSpace(as.Alloc)
	for pdIdx := range as.Dir.Entries {
		srcT := as.Dir.Entries[pdIdx].table
		if srcT == nil {
			continue
		}
		dstT := &PageTable{}
		child.Dir.Entries[pdIdx].table = dstT
		for i, src := range srcT.Entries {
			if !src.present() {
				dstT.Entries[i] = src
				continue
			}
			if src.writable() {
				// share, make COW in both copies
				newFlags := (src.Flags &^ PTE_W) | PTE_COW
				srcT.Entries[i].Flags = newFlags
				dstT.Entries[i] = PTE{Frame: src.Frame, Flags: newFlags}
				as.Alloc.Refup(src.Frame)
			} else {
				dstT.Entries[i] = src
				as.Alloc.Refup(src.Frame)
			}
		}
	}
	return child
}

// Free releases every present mapping in this address space, dropping
// each frame's refcount (biscuit's Uvmfree). It does not free the
// AddressSpace struct itself.
func (as *AddressSpace) Free() {
	as.Lock()
	defer as.Unlock()
	for pdIdx := range as.Dir.Entries {
		t := as.Dir.Entries[pdIdx].table
		if t == nil {
			continue
		}
		for i := range t.Entries {
			if t.Entries[i].present() {
				as.Alloc.Refdown(t.Entries[i].Frame)
				t.Entries[i] = PTE{}
			}
		}
		as.Dir.Entries[pdIdx].table = nil
	}
}

// ResolveWrite implements the write-fault half of copy-on-write
// resolution (spec.md §4.1's COW row): if the frame is referenced only
// by this mapping, the page is reclaimed in place; otherwise a fresh
// frame is allocated, the old contents copied via the allocator's
// temporary mapping, and the old frame's reference dropped.
func (as *AddressSpace) ResolveWrite(va uintptr) defs.Err_t {
	pte, ok := as.pteFor(va, false)
	if !ok || !pte.present() {
		return -defs.EFAULT
	}
	if !pte.cow() {
		if pte.writable() {
			return 0 // already writable, nothing to do
		}
		return -defs.EFAULT
	}
	if as.Alloc.Refcount(pte.Frame) == 1 {
		pte.Flags = (pte.Flags &^ PTE_COW) | PTE_W
		return 0
	}
	newFrame, ok := as.Alloc.AllocPageNoZero()
	if !ok {
		return -defs.ENOMEM
	}
	*as.Alloc.Dmap(newFrame) = *as.Alloc.Dmap(pte.Frame)
	as.Alloc.Refdown(pte.Frame)
	pte.Frame = newFrame
	pte.Flags = (pte.Flags &^ PTE_COW) | PTE_W
	return 0
}

// DemandPage resolves the not-present/COW row of spec.md §4.1's table:
// allocate a fresh zeroed frame, install it, clear COW.
func (as *AddressSpace) DemandPage(va uintptr, perms PTEFlags) defs.Err_t {
	f, ok := as.Alloc.AllocPage()
	if !ok {
		return -defs.ENOMEM
	}
	as.MapPage(va, f, (perms&^PTE_COW)|PTE_A)
	return 0
}

// ReserveLazy installs a not-present, COW-flagged slot at va without
// backing it with a frame — a loader's way of promising a page will
// exist without paying for it until first touch. The page-fault
// dispatcher's not-present+COW row (spec.md §4.1) resolves it via
// DemandPage on first access.
func (as *AddressSpace) ReserveLazy(va uintptr, perms PTEFlags) {
	as.Lock()
	defer as.Unlock()
	pte, _ := as.pteFor(va, true)
	*pte = PTE{Flags: (perms &^ PTE_P) | PTE_COW}
}
