package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mentos-team/mentos-kernel/internal/kconfig"
)

func newBootCmd() *cobra.Command {
	var policy string
	var seconds int

	cmd := &cobra.Command{
		Use:   "boot",
		Short: "boot the machine and run its timer/feedback loops until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := kconfig.DefaultConfig()
			if p, ok := parsePolicy(policy); ok {
				cfg.Policy = p
			}

			m := boot(cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if seconds > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, time.Duration(seconds)*time.Second)
				defer cancel()
			}

			fmt.Fprintf(cmd.OutOrStdout(), "running policy=%s frames=%d\n", m.sched.PolicyName(), cfg.FrameCount)
			return m.run(ctx, time.Second/time.Duration(10))
		},
	}
	cmd.Flags().StringVar(&policy, "policy", "rr", "scheduling policy: rr|priority|cfs|edf|rm")
	cmd.Flags().IntVar(&seconds, "seconds", 0, "stop automatically after N seconds (0 = run until interrupted)")
	return cmd
}

func parsePolicy(name string) (kconfig.SchedPolicy, bool) {
	switch name {
	case "rr", "":
		return kconfig.PolicyRoundRobin, true
	case "priority":
		return kconfig.PolicyPriority, true
	case "cfs":
		return kconfig.PolicyCFS, true
	case "edf":
		return kconfig.PolicyEDF, true
	case "rm":
		return kconfig.PolicyRM, true
	default:
		return kconfig.PolicyRoundRobin, false
	}
}
