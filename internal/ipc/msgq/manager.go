package msgq

import (
	"github.com/mentos-team/mentos-kernel/internal/defs"
	"github.com/mentos-team/mentos-kernel/internal/ipc"
)

// Manager owns the message-queue id table; msgget's creation rules
// mirror shmget's (spec.md §4.5: "mirrors the creation rules of
// shmget").
type Manager struct {
	table *ipc.Table[*Queue]
}

// NewManager returns an empty message-queue manager.
func NewManager() *Manager {
	return &Manager{table: ipc.NewTable[*Queue]()}
}

// Get implements msgget.
func (m *Manager) Get(key defs.Key_t, flags int, perm ipc.Perm) (defs.IpcId_t, defs.Err_t) {
	if _, id, ok := m.table.Lookup(key); ok {
		if flags&defs.IPC_CREAT != 0 && flags&defs.IPC_EXCL != 0 {
			return 0, -defs.EEXIST
		}
		return id, 0
	}
	if flags&defs.IPC_CREAT == 0 {
		return 0, -defs.ENOENT
	}
	perm.Key = key
	return m.table.Insert(key, New(perm)), 0
}

// Lookup returns the queue registered under id.
func (m *Manager) Lookup(id defs.IpcId_t) (*Queue, defs.Err_t) {
	q, ok := m.table.Get(id)
	if !ok {
		return nil, -defs.EINVAL
	}
	return q, 0
}

// Rmid removes the queue from the table, waking every blocked sender and
// receiver so they observe the queue is gone.
func (m *Manager) Rmid(id defs.IpcId_t) defs.Err_t {
	q, err := m.Lookup(id)
	if err != 0 {
		return err
	}
	q.sendQ.RemoveAll()
	q.recvQ.RemoveAll()
	m.table.Remove(id)
	return 0
}
