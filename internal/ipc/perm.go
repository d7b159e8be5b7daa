// Package ipc implements the shared System V IPC scaffolding spec.md §4.3
// through §4.5 build on: the id→object table every *get/*ctl call looks
// up through, and the ipc_perm block every object carries. The
// semaphore/shared-memory/message-queue algorithms themselves live in
// the ipc/sem, ipc/shm, and ipc/msgq subpackages.
package ipc

import "github.com/mentos-team/mentos-kernel/internal/defs"

// Perm is the ipc_perm structure POSIX attaches to every SysV IPC
// object: owning/creating uid+gid, permission bits, and the key it was
// created under.
type Perm struct {
	Key  defs.Key_t
	Uid  uint32
	Gid  uint32
	Cuid uint32
	Cgid uint32
	Mode uint32
	RmID bool // set once IPC_RMID has been requested
}
