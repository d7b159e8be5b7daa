package ipc

import (
	"sync"

	"github.com/mentos-team/mentos-kernel/internal/defs"
)

// Object is satisfied by every IPC object kind (semaphore set, shared
// segment, message queue) so Table can hold them generically while each
// subpackage keeps its own concrete type.
type Object interface {
	IpcPerm() *Perm
}

// Table is the id→object registry every *get call consults: given a key,
// find an existing object; given IPC_CREAT, allocate a fresh id. Grounded
// on the teacher's Hashtable_t (biscuit/src/hashtable/hashtable.go) for
// the "locked table of id→value" shape, simplified from its lock-free
// bucket chaining to a single mutex + map, since a kernel's live IPC id
// space is small enough that a bucket hash table's concurrency payoff
// does not apply here.
type Table[T Object] struct {
	mu     sync.Mutex
	byID   map[defs.IpcId_t]T
	byKey  map[defs.Key_t]defs.IpcId_t
	nextID defs.IpcId_t
}

// NewTable returns an empty id table.
func NewTable[T Object]() *Table[T] {
	return &Table[T]{
		byID:   make(map[defs.IpcId_t]T),
		byKey:  make(map[defs.Key_t]defs.IpcId_t),
		nextID: 1,
	}
}

// Lookup finds a key's existing object, if the key is non-private and
// already registered.
func (t *Table[T]) Lookup(key defs.Key_t) (T, defs.IpcId_t, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var zero T
	if key == defs.IPC_PRIVATE {
		return zero, 0, false
	}
	id, ok := t.byKey[key]
	if !ok {
		return zero, 0, false
	}
	obj, ok := t.byID[id]
	return obj, id, ok
}

// Insert registers a freshly created object under key (which may be
// IPC_PRIVATE) and returns its assigned id.
func (t *Table[T]) Insert(key defs.Key_t, obj T) defs.IpcId_t {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextID
	t.nextID++
	t.byID[id] = obj
	if key != defs.IPC_PRIVATE {
		t.byKey[key] = id
	}
	return id
}

// Get looks an object up by id.
func (t *Table[T]) Get(id defs.IpcId_t) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	obj, ok := t.byID[id]
	return obj, ok
}

// Remove deletes id from the table, dropping its key mapping too. The
// IPC_RMID paths call it at removal time, even while a shared-memory
// segment is still attached, so later lookups of id fail at once.
func (t *Table[T]) Remove(id defs.IpcId_t) {
	t.mu.Lock()
	defer t.mu.Unlock()
	obj, ok := t.byID[id]
	if !ok {
		return
	}
	delete(t.byID, id)
	delete(t.byKey, obj.IpcPerm().Key)
}

// Each calls f for every live object, over a snapshot taken under the
// table lock.
func (t *Table[T]) Each(f func(id defs.IpcId_t, obj T)) {
	t.mu.Lock()
	snapshot := make(map[defs.IpcId_t]T, len(t.byID))
	for id, obj := range t.byID {
		snapshot[id] = obj
	}
	t.mu.Unlock()
	for id, obj := range snapshot {
		f(id, obj)
	}
}
