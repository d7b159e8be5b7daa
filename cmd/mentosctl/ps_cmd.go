package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mentos-team/mentos-kernel/internal/defs"
	"github.com/mentos-team/mentos-kernel/internal/kconfig"
)

func newPsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ps",
		Short: "list tasks, reading their /proc/<pid>/stat rendering",
		RunE: func(cmd *cobra.Command, args []string) error {
			m := boot(kconfig.DefaultConfig())
			child := m.tasks.Spawn(defs.InitPid, nil)
			child.Cmdline = "worker"
			m.sched.Enqueue(child)

			cmdWidth := 40
			if cols, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && cols > 0 {
				if budget := cols - 40; budget > 8 {
					cmdWidth = budget
				}
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PID\tPPID\tSTATE\tNICE\tCMD")
			for _, t := range m.tasks.Snapshot() {
				line, ok := m.proc.Stat(t.Pid)
				if !ok {
					continue
				}
				fields := strings.Split(strings.TrimSuffix(line, "\n"), " ")
				name := t.Cmdline
				if len(name) > cmdWidth {
					name = name[:cmdWidth]
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", fields[0], fields[3], fields[2], fields[18], name)
			}
			w.Flush()
			return nil
		},
	}
}
