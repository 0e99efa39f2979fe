package disassemble_test

import (
	"testing"

	"github.com/rcornwell/nibvm/assemble"
	"github.com/rcornwell/nibvm/ast"
	"github.com/rcornwell/nibvm/disassemble"
	"github.com/rcornwell/nibvm/layout"
	"github.com/rcornwell/nibvm/types"
)

func assembleRom0(t *testing.T, b *ast.Builder) *assemble.Result {
	t.Helper()
	lay, err := layout.Layout(b.Lines())
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	res, err := assemble.Assemble(lay)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	return res
}

func mnemonics(insns []disassemble.Instruction) []string {
	out := make([]string, len(insns))
	for i, insn := range insns {
		out[i] = insn.Mnemonic
	}
	return out
}

func assertMnemonics(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("mnemonics = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("mnemonics = %v, want %v", got, want)
		}
	}
}

// Round-trip (spec.md §8): assembling then disassembling a padding-free
// program recovers the original opcode sequence exactly.
func TestRoundTripNoPadding(t *testing.T) {
	var b ast.Builder
	b.RomPage(0).Add(0).Pop(0).Return()

	res := assembleRom0(t, &b)
	insns := disassemble.Page(res.Memory, 0)
	got := mnemonics(disassemble.FilterPasses(insns))
	assertMnemonics(t, got, "ADD", "POP", "RETURN")
}

// Round-trip with flag-timing padding: the assembler injects PASS nibbles
// between ADD and BRANCH; disassembling and filtering them recovers exactly
// the programmer-authored sequence (spec.md §8).
func TestRoundTripExcludesInjectedPasses(t *testing.T) {
	var b ast.Builder
	b.RomPage(0).
		Add(0).
		UseFlags().
		Branch(types.CondZero, "end").
		Label("end").
		Return()

	res := assembleRom0(t, &b)
	insns := disassemble.Page(res.Memory, 0)

	sawPass := false
	for _, insn := range insns {
		if insn.Opcode == types.OpPass {
			sawPass = true
			break
		}
	}
	if !sawPass {
		t.Fatalf("expected the assembler to inject at least one PASS for flag-timing padding")
	}

	got := mnemonics(disassemble.FilterPasses(insns))
	assertMnemonics(t, got, "ADD", "BRANCH", "RETURN")
}

// Decoded operand values round-trip too: VALUE's immediate and POP's
// register operand decode back to what was encoded.
func TestRoundTripOperandValues(t *testing.T) {
	var b ast.Builder
	b.RomPage(0).Value(0x1234).Pop(3).Return()

	res := assembleRom0(t, &b)
	insns := disassemble.FilterPasses(disassemble.Page(res.Memory, 0))
	assertMnemonics(t, mnemonics(insns), "VALUE", "POP", "RETURN")

	if insns[0].Operands[0] != 0x1234 {
		t.Fatalf("VALUE operand = %#x, want 0x1234", insns[0].Operands[0])
	}
	if insns[1].Operands[0] != 3 {
		t.Fatalf("POP operand = %d, want 3", insns[1].Operands[0])
	}
}
