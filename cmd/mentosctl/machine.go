package main

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mentos-team/mentos-kernel/internal/clock"
	"github.com/mentos-team/mentos-kernel/internal/kconfig"
	"github.com/mentos-team/mentos-kernel/internal/logsink"
	"github.com/mentos-team/mentos-kernel/internal/mem"
	"github.com/mentos-team/mentos-kernel/internal/procfs"
	"github.com/mentos-team/mentos-kernel/internal/sched"
	"github.com/mentos-team/mentos-kernel/internal/syscall"
)

// machine bundles one simulated boot: the clock, scheduler, task table,
// allocator, syscall adapter, and procfs mirror, all sharing the same
// kconfig.Config.
type machine struct {
	cfg   kconfig.Config
	clk   *clock.Clock
	alloc *mem.Allocator
	tasks *sched.Table
	sched *sched.Scheduler
	proc  *procfs.FS
	sys   *syscall.Kernel

	feedback *sched.FeedbackSampler
}

// boot constructs a machine and spawns pid 1 (init), following the
// teacher's Phys_init boot-announcement style via logsink.
func boot(cfg kconfig.Config) *machine {
	clk := &clock.Clock{}
	alloc := mem.NewAllocator(cfg.FrameCount)
	tasks := sched.NewTable()
	sc := sched.New(cfg, clk)
	kern := syscall.NewKernel(tasks, sc, alloc)

	init := tasks.Spawn(0, mem.NewAddressSpace(alloc))
	init.Cmdline = "init"
	sc.Enqueue(init)

	logsink.Logf(logsink.Default, logsink.Info, "booted: %d frames, policy=%s", cfg.FrameCount, sc.PolicyName())

	return &machine{
		cfg:      cfg,
		clk:      clk,
		alloc:    alloc,
		tasks:    tasks,
		sched:    sc,
		proc:     procfs.New(tasks),
		sys:      kern,
		feedback: sched.NewFeedbackSampler(cfg, clk, logsink.Default),
	}
}

// run fans out the timer-tick loop and the periodic feedback sampler as
// independent goroutines joined on ctx cancellation, following the
// teacher's runc-go Execute()/signal.NotifyContext shutdown shape
// generalized onto golang.org/x/sync/errgroup for the join.
func (m *machine) run(ctx context.Context, tickInterval time.Duration) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				m.sched.Tick()
			}
		}
	})

	g.Go(func() error {
		ticker := time.NewTicker(m.cfg.FeedbackInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if _, err := m.feedback.Sample(m.tasks.Snapshot()); err != nil {
					return err
				}
			}
		}
	})

	return g.Wait()
}
