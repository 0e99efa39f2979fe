// Package driver implements the scheduler of spec.md §4.5/§5: a
// cooperative actor that owns a cpu.Simulator and steps it either one
// instruction at a time (UI "step" command) or continuously, paced to a
// target instructions-per-second rate, honoring breakpoints and external
// cancellation. Ported from S370/emu/core's actor-loop shape
// (wg sync.WaitGroup, done chan struct{}, running bool) generalized from
// "CPU cycles plus pending hardware events" to "simulator steps plus an
// IPS pacing budget plus breakpoints" (SPEC_FULL.md §6).
package driver

/*
 * nibvm - Simulator scheduler/driver
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

import (
	"log/slog"
	"sync"
	"time"

	"github.com/rcornwell/nibvm/cpu"
	"github.com/rcornwell/nibvm/fifo"
	"github.com/rcornwell/nibvm/types"
)

// Result is why a Run batch (or the whole run) stopped.
type Result int

const (
	ResultRunning Result = iota
	ResultHalted
	ResultBreakPoint
	ResultWaitingForInput
	ResultKilled
	ResultError
)

func (r Result) String() string {
	switch r {
	case ResultRunning:
		return "Running"
	case ResultHalted:
		return "Halted"
	case ResultBreakPoint:
		return "BreakPoint"
	case ResultWaitingForInput:
		return "WaitingForInput"
	case ResultKilled:
		return "Killed"
	case ResultError:
		return "Error"
	default:
		return "?"
	}
}

// sliceBudget bounds how long a single continuous-run batch executes before
// yielding, so pacing-rate changes and Stop take effect promptly (spec.md §5
// "yields at least every ~1s so rate changes take effect").
const sliceBudget = 250 * time.Millisecond

// pollInterval is how often the background loop checks for work while
// paused.
const pollInterval = 20 * time.Millisecond

// Driver is the cooperative scheduler actor (spec.md §4.5, §5). It is the
// sole owner of the Simulator's step function; external observers take
// snapshot copies via the passthrough accessors below.
type Driver struct {
	sim *cpu.Simulator

	mu          sync.Mutex
	breakpoints map[types.ProgramPtr]struct{}
	running     bool
	lastResult  Result
	lastErr     error

	wg       sync.WaitGroup
	done     chan struct{}
	doneOnce sync.Once
}

// New wraps sim in a driver, initially paused.
func New(sim *cpu.Simulator) *Driver {
	return &Driver{
		sim:         sim,
		breakpoints: make(map[types.ProgramPtr]struct{}),
		done:        make(chan struct{}),
	}
}

// SetBreakpoint marks pc so continuous Run stops there (spec.md §4.5).
func (d *Driver) SetBreakpoint(pc types.ProgramPtr) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.breakpoints[pc] = struct{}{}
}

func (d *Driver) ClearBreakpoint(pc types.ProgramPtr) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.breakpoints, pc)
}

func (d *Driver) atBreakpoint() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.breakpoints[d.sim.PC()]
	return ok
}

// Step executes exactly one instruction, ignoring breakpoints and the
// running/paused state — spec.md §4.5: "Step always honors single-advance
// ignoring breakpoints."
func (d *Driver) Step() (cpu.Status, error) {
	return d.sim.Step()
}

// Continue resumes continuous execution; the background loop started by
// Start will begin stepping the simulator.
func (d *Driver) Continue() {
	d.mu.Lock()
	d.running = true
	d.mu.Unlock()
}

// Pause suspends continuous execution without losing simulator state.
func (d *Driver) Pause() {
	d.mu.Lock()
	d.running = false
	d.mu.Unlock()
}

func (d *Driver) isRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

func (d *Driver) setStopped(r Result, err error) {
	d.mu.Lock()
	d.running = false
	d.lastResult = r
	d.lastErr = err
	d.mu.Unlock()
}

// LastResult reports why the last continuous-run batch stopped. Step does
// not update it.
func (d *Driver) LastResult() (Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastResult, d.lastErr
}

// runBatch executes up to n instructions or until a terminal condition,
// honoring breakpoints (spec.md §4.5: "Run stops at breakpoints").
func (d *Driver) runBatch(n int) Result {
	for i := 0; i < n; i++ {
		if !d.isRunning() {
			return ResultRunning
		}
		if d.atBreakpoint() {
			d.setStopped(ResultBreakPoint, nil)
			return ResultBreakPoint
		}
		// Backpressure (spec.md §5): stall rather than letting OUTPUT race
		// ahead of a consumer that has stopped draining the FIFO.
		for d.sim.Output().Len() >= fifo.OutputBacklogLimit {
			if !d.isRunning() {
				return ResultRunning
			}
			time.Sleep(pollInterval)
		}
		status, err := d.sim.Step()
		if err != nil {
			d.setStopped(ResultError, err)
			return ResultError
		}
		switch status {
		case cpu.StatusHalted:
			if _, ok := d.sim.EndState().(cpu.Killed); ok {
				d.setStopped(ResultKilled, nil)
				return ResultKilled
			}
			d.setStopped(ResultHalted, nil)
			return ResultHalted
		case cpu.StatusWaitingForInput:
			d.setStopped(ResultWaitingForInput, nil)
			return ResultWaitingForInput
		}
	}
	return ResultRunning
}

// instructionsPerSlice converts the simulator's configured rate into a
// batch size for one sliceBudget-long run, defaulting to a generous
// unthrottled batch when no rate has been set (spec.md §5 "accumulates
// instructions_to_do from elapsed time × target rate").
func (d *Driver) instructionsPerSlice() int {
	rate := d.sim.InstructionsPerSecond()
	if rate <= 0 {
		return 100000
	}
	n := int(rate * sliceBudget.Seconds())
	if n < 1 {
		n = 1
	}
	return n
}

// Start launches the background actor loop (spec.md §5 "Driver actor —
// owns the simulator, calls step() in a loop"). Call Continue to begin
// stepping and Pause/Stop to suspend/terminate it.
func (d *Driver) Start() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case <-d.done:
				return
			default:
			}
			if !d.isRunning() {
				time.Sleep(pollInterval)
				continue
			}
			if r := d.runBatch(d.instructionsPerSlice()); r != ResultRunning {
				continue
			}
		}
	}()
}

// Stop requests cooperative shutdown of the actor loop and waits up to one
// second for it to exit. It does not change the simulator's end state; Kill
// is what ends a run as Killed (spec.md §5 Cancellation).
func (d *Driver) Stop() {
	d.doneOnce.Do(func() { close(d.done) })
	waited := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(time.Second):
		slog.Warn("timed out waiting for driver actor to stop")
	}
}

// Kill cancels the simulator cooperatively: the current or next step
// reports Killed (spec.md §5).
func (d *Driver) Kill() {
	d.sim.Kill()
}

// --- Observation passthroughs (spec.md §6.4) --------------------------------

func (d *Driver) PC() types.ProgramPtr          { return d.sim.PC() }
func (d *Driver) Reg(n types.Register) types.Word { return d.sim.Reg(n) }
func (d *Driver) DataStack() []types.Word       { return d.sim.DataStack() }
func (d *Driver) CallStack() []types.ProgramPtr { return d.sim.CallStack() }
func (d *Driver) Flags() cpu.Flags              { return d.sim.Flags() }
func (d *Driver) EndState() cpu.EndState        { return d.sim.EndState() }

func (d *Driver) SetInstructionsPerSecond(f float64) { d.sim.SetInstructionsPerSecond(f) }
func (d *Driver) InstructionsPerSecond() float64     { return d.sim.InstructionsPerSecond() }
