// Package ftok derives a SysV IPC key from a filesystem path and a
// caller-chosen id, the same way XSI ftok(3) does (spec.md §6).
package ftok

import (
	"os"

	"github.com/mentos-team/mentos-kernel/internal/defs"
)

// Ftok combines path's inode and device number with id into a Key_t,
// bit for bit matching the source formula: inode masked to 16 bits,
// device masked to 8 bits shifted by 16, id masked to 8 bits shifted by
// 24. Any filesystem with more than 64k inodes can alias two different
// paths onto the same key; this is a known, preserved-for-compatibility
// collision risk, not a bug to fix here.
func Ftok(path string, id byte) (defs.Key_t, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	ino, dev := statIdent(info)
	key := (ino & 0xFFFF) | ((dev & 0xFF) << 16) | (uint32(id)&0xFF)<<24
	return defs.Key_t(key), nil
}
