// Command mentosctl drives the in-process kernel-core model through the
// concrete scenarios spec.md §8 describes: fork/COW, page faults, SysV
// IPC round trips, and a /proc browser. Command-tree shape follows the
// teacher's cobra-based cmd/root.go; the kernel core it drives lives in
// internal/.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "mentosctl:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mentosctl",
		Short:         "drive the mentos kernel-core model",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newBootCmd())
	root.AddCommand(newPsCmd())
	root.AddCommand(newScenarioCmd())
	return root
}
