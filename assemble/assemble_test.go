package assemble_test

import (
	"testing"

	"github.com/rcornwell/nibvm/assemble"
	"github.com/rcornwell/nibvm/ast"
	"github.com/rcornwell/nibvm/layout"
	"github.com/rcornwell/nibvm/types"
)

func mustLayout(t *testing.T, b *ast.Builder) *layout.Result {
	t.Helper()
	lay, err := layout.Layout(b.Lines())
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	return lay
}

// Scenario 1 (spec.md §8): tight loop binds .USEFLAGS to ADD and pads the
// minimal number of PASSes so BRANCH's delay.back holds the ADD.
func TestTightLoopUseflagsPadding(t *testing.T) {
	var b ast.Builder
	b.RomPage(0).
		Value(1).
		Label("top").
		Duplicate().
		Add(0).
		UseFlags().
		Branch(types.CondZero, "end").
		Jump("top").
		Label("end").
		Return()

	lay := mustLayout(t, &b)
	if _, err := assemble.Assemble(lay); err != nil {
		t.Fatalf("assemble: %v", err)
	}
}

// Scenario 2 (spec.md §8): cross-page CALL rewrites to ROMCALL with the
// target page and label offset.
func TestCrossPageCallRewritesToRomCall(t *testing.T) {
	var b ast.Builder
	b.RomPage(0).Call("sub").Return()
	b.RomPage(1).Label("sub").Value(42).Pop(0).Return()

	lay := mustLayout(t, &b)
	res, err := assemble.Assemble(lay)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	got := [4]types.Nibble{
		res.Memory.RomNibble(0, 0),
		res.Memory.RomNibble(0, 1),
		res.Memory.RomNibble(0, 2),
		res.Memory.RomNibble(0, 3),
	}
	want := [4]types.Nibble{assemble.OpRomCall, 1, 0, 0}
	if got != want {
		t.Fatalf("ROM0[0..4] = %v, want %v (ROMCALL, page 1, offset 0)", got, want)
	}
}

// Scenario 3 (spec.md §8): VALUE of a RAM data label resolves to the
// label's chosen RAM word address.
func TestRamDataLabelResolvesToWordAddress(t *testing.T) {
	var b ast.Builder
	b.Data().Label("buf").Alloc(4)
	b.RomPage(0).Address("buf").Pop(0).Return()

	lay := mustLayout(t, &b)
	res, err := assemble.Assemble(lay)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	// buf is the first (and only) RAM data allocation: word address 0.
	// Offset 0 holds the VALUE opcode; the 4-nibble address fixup follows
	// at offsets 1..4.
	wantAddr := uint16(0)
	gotHi := res.Memory.RomNibble(0, 1)
	gotLoMid := res.Memory.RomNibble(0, 2)
	gotLoMid2 := res.Memory.RomNibble(0, 3)
	gotLo := res.Memory.RomNibble(0, 4)
	got := uint16(gotHi)<<12 | uint16(gotLoMid)<<8 | uint16(gotLoMid2)<<4 | uint16(gotLo)
	if got != wantAddr {
		t.Fatalf("resolved address = %#04x, want %#04x", got, wantAddr)
	}
	if w := res.Memory.RamWord(0); w != 0 {
		t.Fatalf("buf word 0 = %#04x, want 0", w)
	}
}

// Scenario 4 (spec.md §8): once the ADD's flag candidate has scrolled out of
// the 6-stage delay queue, .USEFLAGS/BRANCH cannot be reconciled.
func TestFlagTimingViolationPastQueueDepth(t *testing.T) {
	var b ast.Builder
	page := b.RomPage(0).Add(0)
	for i := 0; i < 7; i++ {
		page = page.Pass()
	}
	page.UseFlags().Branch(types.CondZero, "end").Label("end").Return()

	lay := mustLayout(t, &b)
	_, err := assemble.Assemble(lay)
	if _, ok := err.(*assemble.BadUseflagsWithBranchError); !ok {
		t.Fatalf("got err %v (%T), want *BadUseflagsWithBranchError", err, err)
	}
}

// Scenario 6 (spec.md §8): two ADDs in a row; BRANCH accepts because
// .USEFLAGS's snapshot (taken right after the second ADD) contains exactly
// the second ADD, which is still in the delay queue and is padded with PASSes
// to its back.
func TestTwoAlmOpsAlternatelySettingFlags(t *testing.T) {
	var b ast.Builder
	b.RomPage(0).
		Add(0).
		Add(0).
		UseFlags().
		Branch(types.CondZero, "end").
		Label("end").
		Return()

	lay := mustLayout(t, &b)
	if _, err := assemble.Assemble(lay); err != nil {
		t.Fatalf("assemble: %v", err)
	}
}

func TestMissingLabelOnJump(t *testing.T) {
	var b ast.Builder
	b.RomPage(0).Jump("nowhere")

	lay := mustLayout(t, &b)
	_, err := assemble.Assemble(lay)
	if _, ok := err.(*assemble.MissingLabelError); !ok {
		t.Fatalf("got err %v (%T), want *MissingLabelError", err, err)
	}
}

func TestJumpToOtherPageRejected(t *testing.T) {
	var b ast.Builder
	b.RomPage(0).Jump("there")
	b.RomPage(1).Label("there").Return()

	lay := mustLayout(t, &b)
	_, err := assemble.Assemble(lay)
	if _, ok := err.(*assemble.JumpOrBranchToOtherPageError); !ok {
		t.Fatalf("got err %v (%T), want *JumpOrBranchToOtherPageError", err, err)
	}
}

func TestBadUseflagsWithNoFlagSource(t *testing.T) {
	var b ast.Builder
	b.RomPage(0).Pass().UseFlags()

	lay := mustLayout(t, &b)
	_, err := assemble.Assemble(lay)
	if _, ok := err.(*assemble.BadUseflagsError); !ok {
		t.Fatalf("got err %v (%T), want *BadUseflagsError", err, err)
	}
}

// Boundaries (spec.md §8): exactly filling a 256-nibble ROM page succeeds;
// the next emission fails RomPageFull.
func TestRomPageFullBoundary(t *testing.T) {
	var b ast.Builder
	page := b.RomPage(0)
	for i := 0; i < 256; i++ {
		page = page.Pass()
	}
	lay := mustLayout(t, &b)
	if _, err := assemble.Assemble(lay); err != nil {
		t.Fatalf("exact fill should succeed: %v", err)
	}

	var b2 ast.Builder
	page2 := b2.RomPage(0)
	for i := 0; i < 257; i++ {
		page2 = page2.Pass()
	}
	lay2 := mustLayout(t, &b2)
	_, err := assemble.Assemble(lay2)
	if _, ok := err.(*assemble.RomPageFullError); !ok {
		t.Fatalf("got err %v (%T), want *RomPageFullError", err, err)
	}
}

func TestAllocInProgIsInvalidLocation(t *testing.T) {
	var b ast.Builder
	b.RomPage(0).Alloc(1)

	lay := mustLayout(t, &b)
	_, err := assemble.Assemble(lay)
	if _, ok := err.(*assemble.InvalidCommandLocationError); !ok {
		t.Fatalf("got err %v (%T), want *InvalidCommandLocationError", err, err)
	}
}

// Duplicate labels are caught at layout time, ahead of the assembler.
func TestDuplicateLabelCaughtAtLayout(t *testing.T) {
	var b ast.Builder
	b.RomPage(0).Label("x").Return().Label("x").Return()

	_, err := layout.Layout(b.Lines())
	if _, ok := err.(*layout.DuplicateLabelError); !ok {
		t.Fatalf("got err %v (%T), want *layout.DuplicateLabelError", err, err)
	}
}

// OUTPUT always sets the terminator bit on the last path nibble, never
// earlier (spec.md §8 Boundaries).
func TestOutputTerminatorBit(t *testing.T) {
	var b ast.Builder
	b.RomPage(0).Value(7).Output(1, 0)

	lay := mustLayout(t, &b)
	res, err := assemble.Assemble(lay)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	// VALUE emits opcode(1)+4 nibbles = offsets 0..4, OUTPUT opcode at 5,
	// then two path nibbles at 6,7.
	first := res.Memory.RomNibble(0, 6)
	last := res.Memory.RomNibble(0, 7)
	if first&0x8 != 0 {
		t.Fatalf("non-terminal path nibble has terminator bit set: %v", first)
	}
	if last&0x8 == 0 {
		t.Fatalf("terminal path nibble missing terminator bit: %v", last)
	}
	if first&0x7 != 1 || last&0x7 != 0 {
		t.Fatalf("path digits = %v,%v, want 1,0", first&0x7, last&0x7)
	}
}
