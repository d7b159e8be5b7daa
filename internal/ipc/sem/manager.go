package sem

import (
	"github.com/mentos-team/mentos-kernel/internal/defs"
	"github.com/mentos-team/mentos-kernel/internal/ipc"
)

// Manager owns the semaphore-set id table, mirroring shmget/shmat's
// create-or-attach shape (spec.md §4.4) for semget.
type Manager struct {
	table *ipc.Table[*Set]
}

// NewManager returns an empty semaphore manager.
func NewManager() *Manager {
	return &Manager{table: ipc.NewTable[*Set]()}
}

// Get implements semget: return an existing set's id for key, or create
// one with nsems members if IPC_CREAT is set and no such key exists.
// IPC_CREAT|IPC_EXCL both set with an existing key fails with EEXIST.
func (m *Manager) Get(key defs.Key_t, nsems int, flags int, perm ipc.Perm) (defs.IpcId_t, defs.Err_t) {
	if existing, id, ok := m.table.Lookup(key); ok {
		if flags&defs.IPC_CREAT != 0 && flags&defs.IPC_EXCL != 0 {
			return 0, -defs.EEXIST
		}
		if existing.NSems() != nsems && nsems != 0 {
			return 0, -defs.EINVAL
		}
		return id, 0
	}
	if flags&defs.IPC_CREAT == 0 {
		return 0, -defs.ENOENT
	}
	if nsems <= 0 {
		return 0, -defs.EINVAL
	}
	perm.Key = key
	set := New(perm, nsems)
	return m.table.Insert(key, set), 0
}

// Lookup returns the set registered under id.
func (m *Manager) Lookup(id defs.IpcId_t) (*Set, defs.Err_t) {
	set, ok := m.table.Get(id)
	if !ok {
		return nil, -defs.EINVAL
	}
	return set, 0
}

// Rmid marks the set destroyed, wakes its waiters with EIDRM, and
// removes it from the table (spec.md §4.3's IPC_RMID).
func (m *Manager) Rmid(id defs.IpcId_t) defs.Err_t {
	set, err := m.Lookup(id)
	if err != 0 {
		return err
	}
	set.Remove()
	m.table.Remove(id)
	return 0
}
