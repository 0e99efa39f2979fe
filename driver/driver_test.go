package driver

import (
	"testing"
	"time"

	"github.com/rcornwell/nibvm/assemble"
	"github.com/rcornwell/nibvm/ast"
	"github.com/rcornwell/nibvm/cpu"
	"github.com/rcornwell/nibvm/fifo"
	"github.com/rcornwell/nibvm/layout"
	"github.com/rcornwell/nibvm/types"
)

func mustSimulator(t *testing.T, b *ast.Builder) *cpu.Simulator {
	t.Helper()
	lay, err := layout.Layout(b.Lines())
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	res, err := assemble.Assemble(lay)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	return cpu.New(res.Memory, &fifo.Input{}, &fifo.Output{})
}

func countdownProgram() *ast.Builder {
	var b ast.Builder
	b.RomPage(0).
		Value(3).
		Label("top").
		Decrement().
		UseFlags().
		Branch(types.CondZero, "end").
		Jump("top").
		Label("end").
		Pop(0).
		Return()
	return &b
}

func TestStepIgnoresBreakpoints(t *testing.T) {
	d := New(mustSimulator(t, countdownProgram()))
	start := d.PC()
	d.SetBreakpoint(start)

	status, err := d.Step()
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if status != cpu.StatusRunning {
		t.Fatalf("status = %s, want Running", status)
	}
	if d.PC() == start {
		t.Fatalf("Step did not advance the program counter")
	}
}

func TestRunBatchStopsAtBreakpoint(t *testing.T) {
	// Discover the PC one step in, then arm it as a breakpoint on a fresh
	// driver so runBatch must stop before executing that instruction.
	probe := New(mustSimulator(t, countdownProgram()))
	if _, err := probe.Step(); err != nil {
		t.Fatalf("step: %v", err)
	}
	bp := probe.PC()

	d := New(mustSimulator(t, countdownProgram()))
	d.SetBreakpoint(bp)
	d.Continue()
	result := d.runBatch(100)
	if result != ResultBreakPoint {
		t.Fatalf("runBatch result = %s, want BreakPoint", result)
	}
	if d.PC() != bp {
		t.Fatalf("PC = %s, want %s", d.PC(), bp)
	}
}

func TestRunBatchHaltsCleanly(t *testing.T) {
	d := New(mustSimulator(t, countdownProgram()))
	d.Continue()
	result := d.runBatch(1000)
	if result != ResultHalted {
		t.Fatalf("runBatch result = %s, want Halted", result)
	}
}

func TestClearBreakpointRemovesIt(t *testing.T) {
	d := New(mustSimulator(t, countdownProgram()))
	bp := d.PC()
	d.SetBreakpoint(bp)
	d.ClearBreakpoint(bp)
	d.Continue()

	result := d.runBatch(1000)
	if result != ResultHalted {
		t.Fatalf("runBatch result = %s, want Halted after clearing the breakpoint", result)
	}
}

func TestInstructionsPerSecondRoundTrip(t *testing.T) {
	d := New(mustSimulator(t, countdownProgram()))
	d.SetInstructionsPerSecond(12345)
	if got := d.InstructionsPerSecond(); got != 12345 {
		t.Fatalf("InstructionsPerSecond() = %v, want 12345", got)
	}
}

func TestInstructionsPerSliceDefaultsWhenUnset(t *testing.T) {
	d := New(mustSimulator(t, countdownProgram()))
	if n := d.instructionsPerSlice(); n <= 0 {
		t.Fatalf("instructionsPerSlice() = %d, want a positive default batch size", n)
	}
}

func infiniteLoopProgram() *ast.Builder {
	var b ast.Builder
	b.RomPage(0).Label("top").Jump("top")
	return &b
}

func TestRunBatchStallsOnOutputBacklog(t *testing.T) {
	d := New(mustSimulator(t, infiniteLoopProgram()))
	for i := 0; i < fifo.OutputBacklogLimit; i++ {
		d.sim.Output().Push(fifo.OutputEntry{})
	}
	d.Continue()

	done := make(chan Result, 1)
	go func() { done <- d.runBatch(5) }()

	select {
	case <-done:
		t.Fatalf("runBatch returned while the output backlog was still at the limit")
	case <-time.After(100 * time.Millisecond):
	}

	d.Pause()
	select {
	case result := <-done:
		if result != ResultRunning {
			t.Fatalf("runBatch result = %s, want Running (paused while stalled)", result)
		}
	case <-time.After(time.Second):
		t.Fatalf("runBatch did not observe Pause while stalled on backpressure")
	}
}

func TestResultStringCoversAllValues(t *testing.T) {
	for _, r := range []Result{
		ResultRunning, ResultHalted, ResultBreakPoint,
		ResultWaitingForInput, ResultKilled, ResultError,
	} {
		if r.String() == "" {
			t.Fatalf("Result(%d).String() is empty", int(r))
		}
	}
}
