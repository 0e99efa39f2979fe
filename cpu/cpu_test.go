package cpu

import (
	"testing"

	"github.com/rcornwell/nibvm/assemble"
	"github.com/rcornwell/nibvm/ast"
	"github.com/rcornwell/nibvm/fifo"
	"github.com/rcornwell/nibvm/layout"
	"github.com/rcornwell/nibvm/types"
)

// TestAddWithFlagsInvariant checks spec.md §8's quantified invariant for
// every (a,b,cin) in a representative table: s = (a+b+cin) mod 2^16;
// overflow = carry_out XOR carry_into_MSB; zero/negative read off s.
func TestAddWithFlagsInvariant(t *testing.T) {
	cases := []struct {
		a, b uint16
		cin  bool
	}{
		{0, 0, false},
		{0, 0, true},
		{0xffff, 1, false},
		{0x7fff, 1, false}, // signed overflow: max positive + 1
		{0x8000, 0xffff, false},
		{0x8000, 0x8000, false}, // -32768 + -32768 overflows
		{1, 1, true},
		{0xffff, 0xffff, true},
	}
	for _, c := range cases {
		wantWide := uint32(c.a) + uint32(c.b)
		if c.cin {
			wantWide++
		}
		wantSum := types.Word(wantWide)
		wantCarry := wantWide > 0xffff
		var cinBit uint32
		if c.cin {
			cinBit = 1
		}
		wantCarryMSB := (uint32(c.a&0x7fff) + uint32(c.b&0x7fff) + cinBit) > 0x7fff
		wantOverflow := wantCarry != wantCarryMSB

		s, f := addWithFlags(c.a, c.b, c.cin)
		if s != wantSum {
			t.Fatalf("addWithFlags(%#04x,%#04x,%v) sum = %#04x, want %#04x", c.a, c.b, c.cin, s, wantSum)
		}
		if f.Zero != (wantSum == 0) {
			t.Fatalf("addWithFlags(%#04x,%#04x,%v) zero = %v, want %v", c.a, c.b, c.cin, f.Zero, wantSum == 0)
		}
		if f.Negative != (wantSum&0x8000 != 0) {
			t.Fatalf("addWithFlags(%#04x,%#04x,%v) negative mismatch", c.a, c.b, c.cin)
		}
		if f.Carry != wantCarry {
			t.Fatalf("addWithFlags(%#04x,%#04x,%v) carry = %v, want %v", c.a, c.b, c.cin, f.Carry, wantCarry)
		}
		if f.Overflow != wantOverflow {
			t.Fatalf("addWithFlags(%#04x,%#04x,%v) overflow = %v, want %v", c.a, c.b, c.cin, f.Overflow, wantOverflow)
		}
	}
}

// TestBranchFlagDelayIdenticalRegardlessOfTaken: spec.md §8 "For any BRANCH,
// the flag-delay state immediately after is identical whether or not the
// branch was taken."
func TestBranchFlagDelayIdenticalRegardlessOfTaken(t *testing.T) {
	mkSim := func(cond types.Condition) *Simulator {
		var b ast.Builder
		b.RomPage(0).
			Value(1).
			Duplicate().
			Add(0).
			UseFlags().
			Branch(cond, "end").
			Label("end").
			Return()
		lay, err := layout.Layout(b.Lines())
		if err != nil {
			t.Fatalf("layout: %v", err)
		}
		res, err := assemble.Assemble(lay)
		if err != nil {
			t.Fatalf("assemble: %v", err)
		}
		return New(res.Memory, &fifo.Input{}, &fifo.Output{})
	}

	// Zero never holds here (1+0=1), so CondZero is never taken;
	// CondNotZero is always taken. Step until just past the BRANCH for both.
	simNotTaken := mkSim(types.CondZero)
	simTaken := mkSim(types.CondNotZero)

	for _, s := range []*Simulator{simNotTaken, simTaken} {
		for i := 0; i < 32; i++ {
			if s.peek() == types.OpBranch {
				if _, err := s.Step(); err != nil {
					t.Fatalf("step: %v", err)
				}
				break
			}
			if _, err := s.Step(); err != nil {
				t.Fatalf("step: %v", err)
			}
		}
	}

	if simNotTaken.delay != simTaken.delay {
		t.Fatalf("flag-delay state differs after BRANCH: taken=%+v, not-taken=%+v", simTaken.delay, simNotTaken.delay)
	}
}

func mustAssemble(t *testing.T, b *ast.Builder) *Simulator {
	t.Helper()
	lay, err := layout.Layout(b.Lines())
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	res, err := assemble.Assemble(lay)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	return New(res.Memory, &fifo.Input{}, &fifo.Output{})
}

func runToHalt(t *testing.T, s *Simulator, maxSteps int) {
	t.Helper()
	for i := 0; i < maxSteps; i++ {
		status, err := s.Step()
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if status == StatusHalted {
			return
		}
		if status == StatusWaitingForInput {
			t.Fatalf("step %d: unexpected WaitingForInput", i)
		}
	}
	t.Fatalf("did not halt within %d steps", maxSteps)
}

// Scenario (spec.md §8 #1, adapted into a real countdown loop): decrement a
// register-sized stack value to zero, branching out via .USEFLAGS/BRANCH Z.
func TestCountdownLoopTerminatesAtZero(t *testing.T) {
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

	s := mustAssemble(t, &b)
	runToHalt(t, s, 1000)

	if got := s.Reg(0); got != 0 {
		t.Fatalf("registers[0] = %d, want 0", got)
	}
	if !s.Flags().Zero {
		t.Fatalf("flags.zero = false at loop exit, want true")
	}
}

// Scenario 2 (spec.md §8): cross-page CALL rewritten to ROMCALL; after
// simulation registers[0] == 42.
func TestCrossPageCallExecution(t *testing.T) {
	var b ast.Builder
	b.RomPage(0).Call("sub").Return()
	b.RomPage(1).Label("sub").Value(42).Pop(0).Return()

	s := mustAssemble(t, &b)
	runToHalt(t, s, 100)

	if got := s.Reg(0); got != 42 {
		t.Fatalf("registers[0] = %d, want 42", got)
	}
}

// Scenario 3 (spec.md §8): a RAM data label resolves to the chosen word
// address, which is what VALUE/POP moves into the register.
func TestRamDataLabelExecution(t *testing.T) {
	var b ast.Builder
	// A filler word precedes "buf" so its resolved address is nonzero —
	// otherwise this test couldn't distinguish a correctly-resolved label
	// from an untouched, zero-valued register.
	b.Data().Label("filler").Alloc(1).Label("buf").Alloc(4)
	b.RomPage(0).Address("buf").Pop(0).Return()

	s := mustAssemble(t, &b)
	runToHalt(t, s, 100)

	if got := s.Reg(0); got == 0 {
		t.Fatalf("registers[0] = %d, want buf's nonzero word address", got)
	}
}

// Scenario 5 (spec.md §8): OUTPUT then INPUT. The output FIFO records the
// path/word pair; a pre-loaded input value flows into the register.
func TestOutputThenInput(t *testing.T) {
	var b ast.Builder
	b.RomPage(0).
		Value(7).
		Output(1, 0).
		Input().
		Pop(0).
		Return()

	lay, err := layout.Layout(b.Lines())
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	res, err := assemble.Assemble(lay)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	in := &fifo.Input{}
	out := &fifo.Output{}
	in.Push(9)
	s := New(res.Memory, in, out)
	runToHalt(t, s, 100)

	entry, ok := out.Pop()
	if !ok {
		t.Fatalf("output FIFO is empty, want one entry")
	}
	if len(entry.Path) != 2 || entry.Path[0] != 1 || entry.Path[1] != 0 {
		t.Fatalf("output path = %v, want [1 0]", entry.Path)
	}
	if entry.Word != 7 {
		t.Fatalf("output word = %d, want 7", entry.Word)
	}
	if got := s.Reg(0); got != 9 {
		t.Fatalf("registers[0] = %d, want 9 (from INPUT)", got)
	}
}

// INPUT on an empty FIFO reports WaitingForInput without consuming the
// opcode (spec.md §4.4 "I/O").
func TestInputWaitsWithoutConsumingOpcode(t *testing.T) {
	var b ast.Builder
	b.RomPage(0).Input().Pop(0).Return()

	s := mustAssemble(t, &b)
	pcBefore := s.PC()
	status, err := s.Step()
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if status != StatusWaitingForInput {
		t.Fatalf("status = %v, want WaitingForInput", status)
	}
	if s.PC() != pcBefore {
		t.Fatalf("pc advanced on a failed INPUT: %v -> %v", pcBefore, s.PC())
	}
}
