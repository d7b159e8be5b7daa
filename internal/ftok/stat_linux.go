package ftok

import (
	"os"
	"syscall"
)

// statIdent extracts the inode and device numbers os.FileInfo wraps but
// does not expose directly; there is no third-party substitute for
// reaching into the platform-specific Sys() value, so this one spot uses
// the standard library's syscall package rather than golang.org/x/sys/unix.
func statIdent(info os.FileInfo) (ino, dev uint32) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, 0
	}
	return uint32(st.Ino), uint32(st.Dev)
}
