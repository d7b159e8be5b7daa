package sched

import (
	"strings"
	"testing"

	"github.com/mentos-team/mentos-kernel/internal/clock"
	"github.com/mentos-team/mentos-kernel/internal/defs"
	"github.com/mentos-team/mentos-kernel/internal/kconfig"
	"github.com/mentos-team/mentos-kernel/internal/logsink"
)

type captureSink struct {
	lines []string
}

func (c *captureSink) Log(level logsink.Level, text string) {
	c.lines = append(c.lines, text)
}

func TestFeedbackSamplerResetsTicksAndEmitsDigest(t *testing.T) {
	cfg := kconfig.DefaultConfig()
	clk := &clock.Clock{}
	sink := &captureSink{}
	sampler := NewFeedbackSampler(cfg, clk, sink)

	a := NewTask(1, defs.InitPid, nil)
	a.Cmdline = "init"
	a.AddRunTick()
	a.AddRunTick()
	b := NewTask(2, defs.InitPid, nil)
	b.Cmdline = "worker"
	b.AddRunTick()

	profileBytes, err := sampler.Sample([]*Task{a, b})
	if err != nil {
		t.Fatalf("Sample returned an error: %v", err)
	}
	if len(profileBytes) == 0 {
		t.Fatalf("expected a non-empty encoded profile")
	}
	if a.RunTicks() != 0 || b.RunTicks() != 0 {
		t.Fatalf("expected tick counters to be reset after sampling")
	}
	if len(sink.lines) != 1 {
		t.Fatalf("expected exactly one digest line logged, got %d", len(sink.lines))
	}
	digest := sink.lines[0]
	if !strings.Contains(digest, "init") || !strings.Contains(digest, "worker") {
		t.Fatalf("expected digest to name both tasks, got: %s", digest)
	}
}

func TestFeedbackSamplerDoesNotTouchSchedulerState(t *testing.T) {
	cfg := kconfig.DefaultConfig()
	clk := &clock.Clock{}
	sch := New(cfg, clk)
	tb := NewTable()
	task := newTestTask(tb, defs.InitPid)
	sch.Enqueue(task)

	sampler := NewFeedbackSampler(cfg, clk, logsink.Default)
	before := sch.Current()
	sampler.Sample(tb.Snapshot())
	after := sch.Current()

	if before != after {
		t.Fatalf("expected the feedback sampler not to change the scheduler's current task")
	}
}
