package procfs

import (
	"strings"
	"testing"

	"github.com/mentos-team/mentos-kernel/internal/sched"
)

func TestCmdlineJoinsArgsWithNUL(t *testing.T) {
	tasks := sched.NewTable()
	task := tasks.Spawn(0, nil)
	task.Cmdline = "init --boot"

	fs := New(tasks)
	line, ok := fs.Cmdline(task.Pid)
	if !ok {
		t.Fatalf("expected cmdline lookup to succeed")
	}
	if line != "init\x00--boot\x00" {
		t.Fatalf("unexpected cmdline rendering: %q", line)
	}
}

func TestCmdlineUnknownPidFails(t *testing.T) {
	fs := New(sched.NewTable())
	if _, ok := fs.Cmdline(999); ok {
		t.Fatalf("expected lookup of an unknown pid to fail")
	}
}

func TestStatRendersFiftyTwoSpaceSeparatedFields(t *testing.T) {
	tasks := sched.NewTable()
	task := tasks.Spawn(0, nil)
	task.Cmdline = "worker"
	task.Nice = 5

	fs := New(tasks)
	line, ok := fs.Stat(task.Pid)
	if !ok {
		t.Fatalf("expected stat lookup to succeed")
	}
	if !strings.HasSuffix(line, "\n") {
		t.Fatalf("expected stat line to be newline-terminated, got %q", line)
	}
	fields := strings.Split(strings.TrimSuffix(line, "\n"), " ")
	if len(fields) != 52 {
		t.Fatalf("expected 52 fields, got %d", len(fields))
	}
	if fields[18] != "5" {
		t.Fatalf("expected nice field (19th) to read 5, got %q", fields[18])
	}
}

func TestStatExposesExitCodeOnlyForZombies(t *testing.T) {
	tasks := sched.NewTable()
	task := tasks.Spawn(0, nil)

	line, _ := fs2(tasks).Stat(task.Pid)
	fields := strings.Split(strings.TrimSuffix(line, "\n"), " ")
	if fields[51] != "0" {
		t.Fatalf("expected exit_code field to be 0 before exit, got %q", fields[51])
	}

	tasks.Exit(task, 11)
	line, _ = fs2(tasks).Stat(task.Pid)
	fields = strings.Split(strings.TrimSuffix(line, "\n"), " ")
	if fields[51] != "11" {
		t.Fatalf("expected exit_code field to read 11 after exit, got %q", fields[51])
	}
}

func fs2(tasks *sched.Table) *FS { return New(tasks) }
