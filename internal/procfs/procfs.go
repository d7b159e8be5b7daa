// Package procfs renders the read-only /proc/<pid>/{cmdline,stat} mirror
// spec.md §6 describes: a minimal in-memory VFS stand-in exposing
// task-table fields as text, field writer/reader shape grounded on the
// teacher's Stat_t (biscuit/src/stat/stat.go).
package procfs

import (
	"fmt"
	"strings"

	"github.com/mentos-team/mentos-kernel/internal/defs"
	"github.com/mentos-team/mentos-kernel/internal/sched"
)

// FS is the procfs stand-in: it answers cmdline/stat reads for a pid
// straight from a live task table rather than a real filesystem's inode
// tree. It is read-only and has no file creation, removal or directory
// listing.
type FS struct {
	tasks *sched.Table
}

// New wraps tasks for procfs rendering.
func New(tasks *sched.Table) *FS {
	return &FS{tasks: tasks}
}

// Cmdline renders /proc/<pid>/cmdline: the task's recorded command line,
// NUL-separated per the real kernel's convention, with a trailing NUL.
func (fs *FS) Cmdline(pid defs.Pid_t) (string, bool) {
	t, ok := fs.tasks.Get(pid)
	if !ok {
		return "", false
	}
	args := strings.Fields(t.Cmdline)
	if len(args) == 0 {
		return "", true
	}
	return strings.Join(args, "\x00") + "\x00", true
}

// Stat renders /proc/<pid>/stat in the 52-field Linux proc(5) layout,
// space-separated and newline-terminated. Only pid, comm, state, ppid,
// priority, nice, starttime and (for a zombie) exit_code carry task
// values; every other field, including vsize, startcode/endcode,
// startstack, kstkesp/kstkeip, start_data/end_data, start_brk,
// arg_start/arg_end and env_start/env_end, is rendered as 0.
func (fs *FS) Stat(pid defs.Pid_t) (string, bool) {
	t, ok := fs.tasks.Get(pid)
	if !ok {
		return "", false
	}

	fields := make([]string, 52)
	for i := range fields {
		fields[i] = "0"
	}
	fields[0] = fmt.Sprintf("%d", t.Pid)        // pid
	fields[1] = "(" + t.Cmdline + ")"           // comm
	fields[2] = t.State().String()              // state
	fields[3] = fmt.Sprintf("%d", t.Ppid)        // ppid
	fields[17] = fmt.Sprintf("%d", t.StaticPrio) // priority
	fields[18] = fmt.Sprintf("%d", t.Nice)       // nice
	fields[21] = fmt.Sprintf("%d", t.RunTicks()) // starttime (approximated by accumulated ticks)
	if t.State() == sched.Zombie {
		fields[51] = fmt.Sprintf("%d", t.ExitStatus()) // exit_code
	}

	return strings.Join(fields, " ") + "\n", true
}
