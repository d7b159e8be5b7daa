// Package shm implements System V shared memory: shmget/shmat/shmdt and
// the IPC_STAT/IPC_SET/IPC_RMID subset of shmctl spec.md §4.4 describes.
// Like internal/ipc/sem, the algorithms are spec-original (no teacher
// counterpart exists), grounded on internal/mem.AddressSpace for the
// actual page mapping and internal/ipc.Table for id management.
package shm

import (
	"sync"
	"time"

	"github.com/mentos-team/mentos-kernel/internal/defs"
	"github.com/mentos-team/mentos-kernel/internal/ipc"
	"github.com/mentos-team/mentos-kernel/internal/mem"
	"github.com/mentos-team/mentos-kernel/internal/util"
)

// flagDest, set by shmctl(IPC_RMID), marks a segment to be freed once its
// attach count drops to zero.
const flagDest = 1

// attachment records one caller's mapping of a segment, so shmdt can find
// and unmap the right range.
type attachment struct {
	as   *mem.AddressSpace
	addr uintptr
}

// Segment is one shared-memory region: the physical frames backing it
// plus bookkeeping shmctl(IPC_STAT) reports.
type Segment struct {
	mu     sync.Mutex
	perm   ipc.Perm
	Size   int
	frames []mem.Pa_t
	flags  int
	alloc  *mem.Allocator

	attachCount  int
	lastAttach   defs.Pid_t
	lastAttachAt time.Time
	attachments  []attachment
}

// IpcPerm implements ipc.Object.
func (s *Segment) IpcPerm() *ipc.Perm { return &s.perm }

// Manager owns the shared-memory id table and a per-address-space bump
// allocator for shmat's virtual-address placement (spec.md §4.4 leaves
// the hint's interpretation to the kernel beyond page alignment).
type Manager struct {
	mu     sync.Mutex
	table  *ipc.Table[*Segment]
	nextVA map[*mem.AddressSpace]uintptr
}

// shmVABase is where the first unhinted attachment in any address space
// lands; successive attachments in the same space bump forward by each
// segment's size.
const shmVABase = 0x4000_0000

// NewManager returns an empty shared-memory manager.
func NewManager() *Manager {
	return &Manager{table: ipc.NewTable[*Segment](), nextVA: make(map[*mem.AddressSpace]uintptr)}
}

// Get implements shmget: return an existing segment's id for key, or
// allocate ⌈size/page⌉ zeroed frames and register a new one if
// IPC_CREAT is set and no such key exists yet.
func (m *Manager) Get(alloc *mem.Allocator, key defs.Key_t, size int, flags int, perm ipc.Perm) (defs.IpcId_t, defs.Err_t) {
	if existing, id, ok := m.table.Lookup(key); ok {
		if flags&defs.IPC_CREAT != 0 && flags&defs.IPC_EXCL != 0 {
			return 0, -defs.EEXIST
		}
		if size > existing.Size {
			return 0, -defs.EINVAL
		}
		return id, 0
	}
	if flags&defs.IPC_CREAT == 0 {
		return 0, -defs.ENOENT
	}
	if size <= 0 {
		return 0, -defs.EINVAL
	}
	npages := util.Roundup(size, mem.PageSize) / mem.PageSize
	frames, ok := alloc.AllocPages(npages)
	if !ok {
		return 0, -defs.ENOMEM
	}
	perm.Key = key
	seg := &Segment{perm: perm, Size: size, frames: frames, alloc: alloc}
	return m.table.Insert(key, seg), 0
}

// Lookup returns the segment registered under id.
func (m *Manager) Lookup(id defs.IpcId_t) (*Segment, defs.Err_t) {
	seg, ok := m.table.Get(id)
	if !ok {
		return nil, -defs.EINVAL
	}
	return seg, 0
}

// Attach implements shmat: maps seg's frames into as as present,
// user-accessible, non-COW pages and returns the chosen virtual address.
func (m *Manager) Attach(seg *Segment, as *mem.AddressSpace, caller defs.Pid_t, hint uintptr) uintptr {
	var va uintptr
	if hint != 0 {
		va = util.Roundup(hint, mem.PageSize)
	} else {
		m.mu.Lock()
		va = m.nextVA[as]
		if va == 0 {
			va = shmVABase
		}
		m.mu.Unlock()
	}

	as.Lock()
	for i, f := range seg.frames {
		as.Alloc.Refup(f)
		as.MapPage(va+uintptr(i)*mem.PageSize, f, mem.PTE_W|mem.PTE_U)
	}
	as.Unlock()

	if hint == 0 {
		m.mu.Lock()
		m.nextVA[as] = va + uintptr(len(seg.frames))*mem.PageSize
		m.mu.Unlock()
	}

	seg.mu.Lock()
	seg.attachCount++
	seg.lastAttach = caller
	seg.lastAttachAt = time.Now()
	seg.attachments = append(seg.attachments, attachment{as: as, addr: va})
	seg.mu.Unlock()

	return va
}

// Detach implements shmdt: unmaps the attachment covering addr in as,
// flushing each page's mapping, and frees the segment once its DEST flag
// is set and its attach count reaches zero.
func (m *Manager) Detach(seg *Segment, as *mem.AddressSpace, addr uintptr) defs.Err_t {
	seg.mu.Lock()
	idx := -1
	for i, a := range seg.attachments {
		if a.as == as && a.addr == addr {
			idx = i
			break
		}
	}
	if idx < 0 {
		seg.mu.Unlock()
		return -defs.EINVAL
	}
	seg.attachments = append(seg.attachments[:idx], seg.attachments[idx+1:]...)
	seg.attachCount--
	shouldFree := seg.flags&flagDest != 0 && seg.attachCount == 0
	seg.mu.Unlock()

	as.Lock()
	for i := range seg.frames {
		as.UnmapPage(addr + uintptr(i)*mem.PageSize)
	}
	as.Unlock()

	if shouldFree {
		m.free(seg)
	}
	return 0
}

// Rmid implements shmctl(IPC_RMID): mark the segment for destruction,
// freeing it immediately if nothing is attached.
func (m *Manager) Rmid(id defs.IpcId_t) defs.Err_t {
	seg, err := m.Lookup(id)
	if err != 0 {
		return err
	}
	seg.mu.Lock()
	seg.flags |= flagDest
	empty := seg.attachCount == 0
	seg.mu.Unlock()
	if empty {
		m.free(seg)
	}
	m.table.Remove(id)
	return 0
}

// free drops the segment's own founding reference on each backing frame —
// the one AllocPages granted in Get, distinct from the per-attachment
// references Attach/Detach add and remove. Only called once attachCount is
// already zero, so this is always the frame's last reference.
func (m *Manager) free(seg *Segment) {
	for _, f := range seg.frames {
		seg.alloc.FreePage(f)
	}
}
