// Package cpu implements the simulator (spec.md §4.4): it executes the
// packed-nibble image an assemble.Result produces, one instruction at a
// time, tracking registers, the call/data stacks, the flag-delay pipeline,
// and the two I/O FIFOs (spec.md §5).
package cpu

/*
 * nibvm - Nibble CPU simulator
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
	"github.com/rcornwell/nibvm/fifo"
	"github.com/rcornwell/nibvm/memory"
	"github.com/rcornwell/nibvm/types"
	"github.com/rcornwell/nibvm/util/debug"
)

// Status is the outcome of a single Step call.
type Status int

const (
	StatusRunning Status = iota
	StatusHalted
	StatusWaitingForInput
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "Running"
	case StatusHalted:
		return "Halted"
	case StatusWaitingForInput:
		return "WaitingForInput"
	default:
		return "?"
	}
}

// EndState is the simulator's terminal status once it stops stepping
// (spec.md §6.4 "end_state() → Option<Halt|Killed|Error(kind)>").
type EndState interface {
	isEndState()
}

type Halt struct{}
type Killed struct{}
type RuntimeError struct{ Err error }

func (Halt) isEndState()        {}
func (Killed) isEndState()      {}
func (RuntimeError) isEndState() {}

// Simulator is the runtime machine (spec.md §4.4 "State"). It owns a
// private mutable copy of the ProgramMemory the assembler produced: RAM is
// written at runtime, ROM never is.
type Simulator struct {
	mem *memory.ProgramMemory

	pc     types.ProgramPtr
	pcache [256]types.Nibble

	callStack []types.ProgramPtr
	dataStack []types.Word
	maxDataStackDepth int

	registers [16]types.Word

	flags Flags
	delay flagDelay

	input  *fifo.Input
	output *fifo.Output

	instructionsPerSecond float64
	end                   EndState
}

// New constructs a simulator starting execution at ROM page 0, offset 0 —
// this module's entry-point convention (spec.md §4.4 doesn't name one
// explicitly; see DESIGN.md). mem is cloned, never mutated in place.
func New(mem *memory.ProgramMemory, input *fifo.Input, output *fifo.Output) *Simulator {
	s := &Simulator{
		mem:    mem.Clone(),
		input:  input,
		output: output,
		pc:     types.ProgramPtr{Page: types.RomLocation(0)},
	}
	s.refreshPcache()
	return s
}

// SetMaxDataStackDepth configures the data-stack bound; 0 (the default)
// means unbounded (spec.md §9 Open Question 3).
func (s *Simulator) SetMaxDataStackDepth(n int) { s.maxDataStackDepth = n }

// SetInstructionsPerSecond records the scheduler's pacing target. The
// simulator itself does not pace; the driver reads this back (spec.md §8
// round-trip property, §4.5).
func (s *Simulator) SetInstructionsPerSecond(f float64) { s.instructionsPerSecond = f }

func (s *Simulator) InstructionsPerSecond() float64 { return s.instructionsPerSecond }

// PC returns the current program pointer (spec.md §6.4 get_pc).
func (s *Simulator) PC() types.ProgramPtr { return s.pc }

// Reg returns register n (spec.md §6.4 get_reg).
func (s *Simulator) Reg(n types.Register) types.Word { return s.registers[n] }

// DataStack returns a snapshot copy of the data stack, bottom to top
// (spec.md §6.4 get_data_stack).
func (s *Simulator) DataStack() []types.Word {
	out := make([]types.Word, len(s.dataStack))
	copy(out, s.dataStack)
	return out
}

// CallStack returns a snapshot copy of the return-address stack.
func (s *Simulator) CallStack() []types.ProgramPtr {
	out := make([]types.ProgramPtr, len(s.callStack))
	copy(out, s.callStack)
	return out
}

// Memory returns a private snapshot copy of the live memory image
// (spec.md §6.4 get_memory).
func (s *Simulator) Memory() *memory.ProgramMemory { return s.mem.Clone() }

// Output returns the OUTPUT-path FIFO the driver watches for backpressure
// (spec.md §5 Backpressure).
func (s *Simulator) Output() *fifo.Output { return s.output }

// Flags returns the current ALU flags (straight out of the ALU, not the
// BRANCH-visible delayed view).
func (s *Simulator) Flags() Flags { return s.flags }

// EndState reports why the simulator stopped, or nil if it is still
// runnable (spec.md §6.4 end_state).
func (s *Simulator) EndState() EndState { return s.end }

// Kill requests cooperative termination: it sets EndState to Killed (if the
// simulator has not already ended), and every later Step reports Halted
// without executing further (spec.md §5 Cancellation).
func (s *Simulator) Kill() {
	if s.end == nil {
		s.end = Killed{}
	}
}

func (s *Simulator) refreshPcache() {
	if s.pc.Page.IsRom() {
		for i := 0; i < 256; i++ {
			s.pcache[i] = s.mem.RomNibble(s.pc.Page.Rom, uint8(i))
		}
		return
	}
	base := s.pc.Page.RamBase * 4
	for i := 0; i < 256; i++ {
		s.pcache[i] = s.mem.RamNibble(base + uint16(i))
	}
}

func (s *Simulator) pushData(v types.Word) error {
	if s.maxDataStackDepth > 0 && len(s.dataStack) >= s.maxDataStackDepth {
		return &DataStackOverflowError{}
	}
	s.dataStack = append(s.dataStack, v)
	return nil
}

// popData pops the data stack, returning 0 on underflow. The spec's error
// taxonomy (spec.md §7) has no underflow kind; treating underflow as a
// silent zero rather than panicking matches that omission (see DESIGN.md).
func (s *Simulator) popData() types.Word {
	n := len(s.dataStack)
	if n == 0 {
		return 0
	}
	v := s.dataStack[n-1]
	s.dataStack = s.dataStack[:n-1]
	return v
}

func (s *Simulator) peekData() types.Word {
	n := len(s.dataStack)
	if n == 0 {
		return 0
	}
	return s.dataStack[n-1]
}

func (s *Simulator) peek() types.Nibble { return s.pcache[s.pc.Counter] }

// advance moves pc.Counter one nibble (wrapping, spec.md §4.4 Step) and
// pushes the current flags onto the delay pipeline — called once per nibble
// fetch, not once per instruction (see SPEC_FULL.md §11.1).
func (s *Simulator) advance() {
	s.pc.Counter++
	s.delay.advance(s.flags)
}

func (s *Simulator) next() types.Nibble {
	v := s.peek()
	s.advance()
	return v
}

func word2(hi, lo types.Nibble) uint8 { return (uint8(hi) << 4) | uint8(lo) }

// Step executes exactly one instruction (spec.md §4.4 "Step"). It always
// honors the request regardless of breakpoints — the driver owns breakpoint
// policy (SPEC_FULL.md §6, Breakpoints).
func (s *Simulator) Step() (Status, error) {
	if s.end != nil {
		return StatusHalted, nil
	}

	op := s.peek()
	debug.InstrTracef(debug.LevelInstr, s.pc.Page.String(), s.pc.Counter, "opcode %d", op)
	switch op {
	case types.OpPass:
		s.advance()

	case types.OpValue:
		s.advance()
		var v types.Word
		for i := 0; i < 4; i++ {
			v = (v << 4) | types.Word(s.next())
		}
		if err := s.pushData(v); err != nil {
			return s.fail(err)
		}

	case types.OpJump:
		// spec.md §3's opcode table annotates JUMP as "flushes delay", but
		// that is the assembler's bookkeeping (flagAsSet reset to ∅ on
		// encodeJump, assemble/assemble.go), not a runtime queue operation:
		// JUMP carries no flag-affecting operand, so there is nothing here
		// for the delay queue to flush at Step time.
		s.advance()
		a1 := s.next()
		a0 := s.next()
		s.pc.Counter = word2(a1, a0)

	case types.OpBranch:
		flagsNow := s.delay.back()
		s.advance()
		cond := types.Condition(s.next())
		a1 := s.next()
		a0 := s.next()
		taken := evalCondition(cond, flagsNow, s.input.Len() > 0)
		s.delay.flush(s.flags)
		if taken {
			s.pc.Counter = word2(a1, a0)
		}

	case types.OpPush:
		s.advance()
		r := types.Register(s.next())
		if err := s.pushData(s.registers[r]); err != nil {
			return s.fail(err)
		}

	case types.OpPop:
		s.advance()
		r := types.Register(s.next())
		s.registers[r] = s.popData()

	case types.OpCall:
		s.advance()
		a1 := s.next()
		a0 := s.next()
		s.callStack = append(s.callStack, s.pc)
		s.pc.Counter = word2(a1, a0)
		s.delay.flush(s.flags)

	case types.OpReturn:
		if len(s.callStack) == 0 {
			s.end = Halt{}
			return StatusHalted, nil
		}
		n := len(s.callStack) - 1
		s.pc = s.callStack[n]
		s.callStack = s.callStack[:n]
		s.refreshPcache()

	case types.OpAdd:
		s.advance()
		r := types.Register(s.next())
		acc := s.popData()
		sum, f := addWithFlags(acc, s.registers[r], false)
		if err := s.pushData(sum); err != nil {
			return s.fail(err)
		}
		s.flags = f
		s.delay.slots[0] = f

	case types.OpRot:
		s.advance()
		shift := s.next()
		r := types.Register(s.next())
		s.registers[r] = rotateLeft16(s.registers[r], uint8(shift))

	case types.OpAlm1:
		s.advance()
		opN := s.next()
		if err := s.execAlm1(types.Alm1Op(opN)); err != nil {
			return s.fail(err)
		}

	case types.OpAlm2:
		s.advance()
		opN := s.next()
		r := s.next()
		if err := s.execAlm2(types.Alm2Op(opN), types.Register(r)); err != nil {
			return s.fail(err)
		}

	case types.OpRomCall:
		s.advance()
		page := s.next()
		b := s.next()
		a := s.next()
		s.callStack = append(s.callStack, s.pc)
		s.pc = types.ProgramPtr{Page: types.RomLocation(types.Nibble(page)), Counter: word2(b, a)}
		s.refreshPcache()
		s.delay.flush(s.flags)

	case types.OpRamCall:
		s.advance()
		b := s.next()
		a := s.next()
		s.callStack = append(s.callStack, s.pc)
		base := s.popData()
		s.pc = types.ProgramPtr{Page: types.RamLocation(base), Counter: word2(b, a)}
		s.refreshPcache()
		s.delay.flush(s.flags)

	case types.OpInput:
		v, ok := s.input.Pop()
		if !ok {
			return StatusWaitingForInput, nil
		}
		if err := s.pushData(v); err != nil {
			return s.fail(err)
		}
		s.advance()

	case types.OpOutput:
		s.advance()
		var path []types.OctDigit
		for {
			n := s.next()
			path = append(path, types.OctDigit(n&0x7))
			if n&0x8 != 0 {
				break
			}
		}
		s.output.Push(fifo.OutputEntry{Path: path, Word: s.popData()})
	}

	return StatusRunning, nil
}

func (s *Simulator) fail(err error) (Status, error) {
	s.end = RuntimeError{Err: err}
	return StatusHalted, err
}
