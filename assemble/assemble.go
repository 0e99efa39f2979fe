// Package assemble implements the assembler/memory manager (spec.md §4.2):
// it drains the layouter's page buckets into packed nibbles, enforces the
// same-page JUMP/BRANCH/CALL constraint, validates `.USEFLAGS`/BRANCH flag
// timing, and resolves fixups at finalize (spec.md §4.3).
package assemble

/*
 * nibvm - Instruction encoder and finalizer
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
	"fmt"

	"github.com/rcornwell/nibvm/ast"
	"github.com/rcornwell/nibvm/layout"
	"github.com/rcornwell/nibvm/memory"
	"github.com/rcornwell/nibvm/types"
	"github.com/rcornwell/nibvm/util/debug"
)

// Opcodes (spec.md §3). Shared with the cpu and disassemble packages via
// types.OpXxx; aliased here so existing call sites in this file are unchanged.
const (
	OpPass    = types.OpPass
	OpValue   = types.OpValue
	OpJump    = types.OpJump
	OpBranch  = types.OpBranch
	OpPush    = types.OpPush
	OpPop     = types.OpPop
	OpCall    = types.OpCall
	OpReturn  = types.OpReturn
	OpAdd     = types.OpAdd
	OpRot     = types.OpRot
	OpAlm1    = types.OpAlm1
	OpAlm2    = types.OpAlm2
	OpRomCall = types.OpRomCall
	OpRamCall = types.OpRamCall
	OpInput   = types.OpInput
	OpOutput  = types.OpOutput
)

const ramPageLocalLimit = 256

// Result is the assembler's output: a finalized image plus the
// branch-line-to-useflags-line cross-reference table (spec.md §4.2.4 step 4).
type Result struct {
	Memory      *memory.ProgramMemory
	BranchLines map[int]int
}

// Assembler holds the global cursors, symbol tables, and fixup lists shared
// across every page bucket (spec.md §2 "Assembler / Memory Manager").
type Assembler struct {
	lay *layout.Result
	mem *memory.ProgramMemory

	romCursor [memory.RomPages]int
	romState  [memory.RomPages]*pageFlags

	ramCursor int // absolute nibble cursor into the 16384-nibble RAM plane

	pageBase map[types.AssemblyPageIdent]types.PageLocation

	labelPageLoc map[string]placedLabel
	ramLabelAddr map[string]uint16

	labelFixups   []labelFixup
	ramBaseFixups []ramBaseFixup
	ramAddrFixups []ramAddrFixup

	branchLines map[int]int
}

// Assemble runs the full assemble+finalize pipeline over a layout result.
func Assemble(lay *layout.Result) (*Result, error) {
	a := &Assembler{
		lay:          lay,
		mem:          memory.New(),
		pageBase:     make(map[types.AssemblyPageIdent]types.PageLocation),
		labelPageLoc: make(map[string]placedLabel),
		ramLabelAddr: make(map[string]uint16),
		branchLines:  make(map[int]int),
	}
	for _, bucket := range lay.Pages {
		if err := a.assembleBucket(bucket); err != nil {
			return nil, err
		}
	}
	if err := a.finalize(); err != nil {
		return nil, err
	}
	return &Result{Memory: a.mem, BranchLines: a.branchLines}, nil
}

func (a *Assembler) romFlagsFor(page types.Nibble) *pageFlags {
	if a.romState[page] == nil {
		a.romState[page] = newPageFlags()
	}
	return a.romState[page]
}

// encoder is the per-bucket cursor/flag-state view into the Assembler.
type encoder struct {
	a     *Assembler
	ident types.AssemblyPageIdent
	kind  types.PageKind

	romPage types.Nibble // valid when kind == PageRom

	ramBase     uint16 // word address, valid when kind == PageRam
	localCursor int     // nibbles written since ramBase, valid when kind == PageRam

	flags *pageFlags // nil when kind == PageData
}

func (a *Assembler) assembleBucket(b layout.Bucket) error {
	switch b.Page.Kind {
	case types.PageRom:
		e := &encoder{a: a, ident: b.Page, kind: types.PageRom, romPage: b.Page.Rom, flags: a.romFlagsFor(b.Page.Rom)}
		for _, line := range b.Lines {
			if err := e.encodeProg(line); err != nil {
				return err
			}
		}
		return nil

	case types.PageRam:
		if rem := a.ramCursor % 4; rem != 0 {
			a.ramCursor += 4 - rem
		}
		base := uint16(a.ramCursor / 4)
		a.pageBase[b.Page] = types.RamLocation(base)
		e := &encoder{a: a, ident: b.Page, kind: types.PageRam, ramBase: base, flags: newPageFlags()}
		for _, line := range b.Lines {
			if err := e.encodeProg(line); err != nil {
				return err
			}
		}
		return nil

	case types.PageData:
		e := &encoder{a: a, ident: b.Page, kind: types.PageData}
		for _, line := range b.Lines {
			if err := e.encodeData(line); err != nil {
				return err
			}
		}
		return nil

	default:
		return fmt.Errorf("internal: unknown page kind %v", b.Page.Kind)
	}
}

// emit writes one nibble at the current cursor and shifts the flag delay
// queue by one, with nothing new entering the front (spec.md §4.2.1). Use
// emitFlagged for the one nibble per instruction where a new candidate is
// actually produced.
func (e *encoder) emit(n types.Nibble) error {
	return e.emitFlagged(n, emptyFlags())
}

// emitFlagged is emit, but front is pushed into the delay queue instead of
// the empty set — used on the retiring nibble of a flag-setting instruction
// so its candidate enters the pipeline exactly once and ages out after
// falling off the 6-stage queue's back (spec.md §8 scenario 4).
func (e *encoder) emitFlagged(n types.Nibble, front FlagsState) error {
	switch e.kind {
	case types.PageRom:
		cur := e.a.romCursor[e.romPage]
		if cur >= memory.RomPageSize {
			return &RomPageFullError{Page: e.romPage}
		}
		e.a.mem.SetRomNibble(e.romPage, uint8(cur), n)
		e.a.romCursor[e.romPage] = cur + 1

	case types.PageRam:
		if e.localCursor >= ramPageLocalLimit || e.a.ramCursor >= memory.RamNibbles {
			return &RamFullError{}
		}
		e.a.mem.SetRamNibble(uint16(e.a.ramCursor), n)
		e.a.ramCursor++
		e.localCursor++

	case types.PageData:
		if e.a.ramCursor >= memory.RamNibbles {
			return &RamFullError{}
		}
		e.a.mem.SetRamNibble(uint16(e.a.ramCursor), n)
		e.a.ramCursor++
	}

	if e.flags != nil {
		e.flags.delay.push(front)
	}
	return nil
}

func (e *encoder) emitWord(w uint16) error {
	for i := 3; i >= 0; i-- {
		shift := uint(4 * i)
		if err := e.emit(types.Nibble((w >> shift) & 0xf)); err != nil {
			return err
		}
	}
	return nil
}

// curOffset is the in-page offset of the next nibble this encoder will emit.
func (e *encoder) curOffset() uint8 {
	if e.kind == types.PageRom {
		return uint8(e.a.romCursor[e.romPage])
	}
	return uint8(e.localCursor)
}

func (e *encoder) curPageLoc() types.PageLocation {
	if e.kind == types.PageRom {
		return types.RomLocation(e.romPage)
	}
	return types.RamLocation(e.ramBase)
}

func (e *encoder) curRamWordAddr() uint16 {
	return uint16(e.a.ramCursor / 4)
}

// encodeData handles the Data-bucket-only command set (spec.md §4.2.5).
func (e *encoder) encodeData(line ast.Line) error {
	switch c := line.Payload.(type) {
	case ast.Value:
		if c.Immediate.Value == nil {
			return &Invalid16BitValueError{Line: line.Start}
		}
		return e.emitWord(*c.Immediate.Value)

	case ast.Address:
		return e.a.emitLabelledRamAddress(e, c.Label.Value, line.Start)

	case ast.Alloc:
		if c.Count.Value == nil {
			return &Invalid16BitValueError{Line: line.Start}
		}
		for i := uint16(0); i < *c.Count.Value; i++ {
			if err := e.emitWord(0); err != nil {
				return err
			}
		}
		return nil

	case ast.Label:
		return e.a.bindRamLabel(c.Name.Value, line.Start, e.curRamWordAddr())

	case ast.Constant:
		return nil

	default:
		return &InvalidCommandLocationError{Line: line.Start}
	}
}

// encodeProg handles every command legal inside a Prog (Rom or Ram) bucket.
func (e *encoder) encodeProg(line ast.Line) error {
	pf := e.flags

	switch c := line.Payload.(type) {
	case ast.Label:
		pf.setPossibleFlushedFlags(e.curOffset(), line.Start)
		e.a.labelPageLoc[c.Name.Value] = placedLabel{Page: e.curPageLoc(), Offset: e.curOffset()}
		return nil

	case ast.UseFlags:
		if pf.flagAsSet.isEmpty() {
			return &BadUseflagsError{UseflagsLine: line.Start}
		}
		pf.useflag = &useflagSnapshot{flags: pf.flagAsSet, line: line.Start}
		return nil

	case ast.Constant:
		return nil

	case ast.Pass:
		return e.emit(OpPass)

	case ast.Return:
		pf.flagAsSet = emptyFlags()
		return e.emit(OpReturn)

	case ast.Jump:
		return e.encodeJump(line, c)

	case ast.Branch:
		return e.encodeBranch(line, c)

	case ast.Call:
		return e.encodeCall(line, c)

	case ast.RawRamCall:
		pf.setPossibleFlushedFlags(e.curOffset(), line.Start)
		if err := e.emit(OpRamCall); err != nil {
			return err
		}
		if err := e.emit(0); err != nil {
			return err
		}
		return e.emit(0)

	case ast.Push:
		if err := e.emit(OpPush); err != nil {
			return err
		}
		return e.emit(types.Nibble(c.Reg.Value))

	case ast.Pop:
		if err := e.emit(OpPop); err != nil {
			return err
		}
		return e.emit(types.Nibble(c.Reg.Value))

	case ast.Add:
		if err := e.emit(OpAdd); err != nil {
			return err
		}
		pf.flagAsSet = singleFlags(flagSource{Offset: int(e.curOffset()), Line: line.Start})
		return e.emitFlagged(types.Nibble(c.Reg.Value), pf.flagAsSet)

	case ast.Rotate:
		if err := e.emit(OpRot); err != nil {
			return err
		}
		if err := e.emit(c.Shift.Value); err != nil {
			return err
		}
		return e.emit(types.Nibble(c.Register.Value))

	case ast.Value:
		if c.Immediate.Value == nil {
			return &Invalid16BitValueError{Line: line.Start}
		}
		if err := e.emit(OpValue); err != nil {
			return err
		}
		return e.emitWord(*c.Immediate.Value)

	case ast.Address:
		if err := e.emit(OpValue); err != nil {
			return err
		}
		return e.a.emitLabelledRamAddress(e, c.Label.Value, line.Start)

	case ast.Alloc:
		return &InvalidCommandLocationError{Line: line.Start}

	case ast.Raw:
		for _, n := range c.Nibbles {
			if err := e.emit(n.Value); err != nil {
				return err
			}
		}
		return nil

	case ast.Input:
		pf.setPossibleFlushedFlags(e.curOffset(), line.Start)
		return e.emit(OpInput)

	case ast.Output:
		return e.encodeOutput(line, c)

	// ALM1 (unary stack ops).
	case ast.Duplicate:
		return e.encodeAlm1(line, types.Alm1Duplicate)
	case ast.Not:
		return e.encodeAlm1(line, types.Alm1Not)
	case ast.Read:
		return e.encodeAlm1(line, types.Alm1Read)
	case ast.ReadPop:
		return e.encodeAlm1(line, types.Alm1ReadPop)
	case ast.Increment:
		return e.encodeAlm1(line, types.Alm1Increment)
	case ast.IncrementCarry:
		return e.encodeAlm1(line, types.Alm1IncrementCarry)
	case ast.Decrement:
		return e.encodeAlm1(line, types.Alm1Decrement)
	case ast.DecrementCarry:
		return e.encodeAlm1(line, types.Alm1DecrementCarry)
	case ast.Negate:
		return e.encodeAlm1(line, types.Alm1Negate)
	case ast.NegateCarry:
		return e.encodeAlm1(line, types.Alm1NegateCarry)
	case ast.NoopSetFlags:
		return e.encodeAlm1(line, types.Alm1NoopSetFlags)
	case ast.PopSetFlags:
		return e.encodeAlm1(line, types.Alm1PopSetFlags)
	case ast.RightShift:
		return e.encodeAlm1(line, types.Alm1RightShift)
	case ast.RightShiftCarry:
		return e.encodeAlm1(line, types.Alm1RightShiftCarry)
	case ast.RightShiftOneIn:
		return e.encodeAlm1(line, types.Alm1RightShiftOneIn)
	case ast.ArithRightShift:
		return e.encodeAlm1(line, types.Alm1ArithRightShift)

	// ALM2 (binary stack⊕register ops).
	case ast.Swap:
		return e.encodeAlm2(line, types.Alm2Swap, c.Reg.Value)
	case ast.Sub:
		return e.encodeAlm2(line, types.Alm2Sub, c.Reg.Value)
	case ast.Write:
		return e.encodeAlm2(line, types.Alm2Write, c.Reg.Value)
	case ast.WritePop:
		return e.encodeAlm2(line, types.Alm2WritePop, c.Reg.Value)
	case ast.And:
		return e.encodeAlm2(line, types.Alm2And, c.Reg.Value)
	case ast.Nand:
		return e.encodeAlm2(line, types.Alm2Nand, c.Reg.Value)
	case ast.Or:
		return e.encodeAlm2(line, types.Alm2Or, c.Reg.Value)
	case ast.Nor:
		return e.encodeAlm2(line, types.Alm2Nor, c.Reg.Value)
	case ast.Xor:
		return e.encodeAlm2(line, types.Alm2Xor, c.Reg.Value)
	case ast.NXor:
		return e.encodeAlm2(line, types.Alm2NXor, c.Reg.Value)
	case ast.RegSetFlags:
		return e.encodeAlm2(line, types.Alm2RegSetFlags, c.Reg.Value)
	case ast.Compare:
		return e.encodeAlm2(line, types.Alm2Compare, c.Reg.Value)
	case ast.SwapAdd:
		return e.encodeAlm2(line, types.Alm2SwapAdd, c.Reg.Value)
	case ast.SwapSub:
		return e.encodeAlm2(line, types.Alm2SwapSub, c.Reg.Value)
	case ast.AddCarry:
		return e.encodeAlm2(line, types.Alm2AddCarry, c.Reg.Value)
	case ast.SubCarry:
		return e.encodeAlm2(line, types.Alm2SubCarry, c.Reg.Value)

	default:
		return fmt.Errorf("internal: unhandled command %T at line %d", c, line.Start)
	}
}

func (e *encoder) encodeAlm1(line ast.Line, op types.Alm1Op) error {
	if err := e.emit(OpAlm1); err != nil {
		return err
	}
	if !op.SetsFlags() {
		return e.emit(types.Nibble(op))
	}
	e.flags.flagAsSet = singleFlags(flagSource{Offset: int(e.curOffset()), Line: line.Start})
	return e.emitFlagged(types.Nibble(op), e.flags.flagAsSet)
}

func (e *encoder) encodeAlm2(line ast.Line, op types.Alm2Op, reg types.Register) error {
	if err := e.emit(OpAlm2); err != nil {
		return err
	}
	if err := e.emit(types.Nibble(op)); err != nil {
		return err
	}
	if !op.SetsFlags() {
		return e.emit(types.Nibble(reg))
	}
	e.flags.flagAsSet = singleFlags(flagSource{Offset: int(e.curOffset()), Line: line.Start})
	return e.emitFlagged(types.Nibble(reg), e.flags.flagAsSet)
}

func (e *encoder) encodeOutput(line ast.Line, out ast.Output) error {
	e.flags.setPossibleFlushedFlags(e.curOffset(), line.Start)
	if err := e.emit(OpOutput); err != nil {
		return err
	}
	for i, d := range out.Path {
		v := d.Value.Uint8() & 0x7
		if i == len(out.Path)-1 {
			v |= 0x8
		}
		if err := e.emit(types.Nibble(v)); err != nil {
			return err
		}
	}
	return nil
}

func (e *encoder) encodeJump(line ast.Line, j ast.Jump) error {
	target, ok := e.a.lay.LabelToPage[j.Label.Value]
	if !ok {
		return &MissingLabelError{Line: line.Start, Label: j.Label.Value}
	}
	if target != e.ident {
		return &JumpOrBranchToOtherPageError{Line: line.Start}
	}
	if err := e.emit(OpJump); err != nil {
		return err
	}
	if err := e.a.emitLabelledPageLocation(e, j.Label.Value, line.Start); err != nil {
		return err
	}
	e.flags.flagAsSet = emptyFlags()
	return nil
}

func (e *encoder) encodeBranch(line ast.Line, br ast.Branch) error {
	pf := e.flags

	if pf.useflag != nil {
		want := pf.useflag.flags
		// wait_for_flags (spec.md §4.2.4): pad with PASS until want sits
		// exactly at the delay queue's back. If want has already scrolled
		// out of the 6-stage queue, it can never be recovered by padding
		// further (spec.md §8 scenario 4).
		if d, found := pf.delay.distanceFromBack(want); found {
			debug.Debugf("assemble", debug.LevelAssembleFlags,
				"line %d: padding %d PASS to align .USEFLAGS from line %d", line.Start, d, pf.useflag.line)
			for i := 0; i < d; i++ {
				if err := e.emit(OpPass); err != nil {
					return err
				}
			}
		} else {
			return &BadUseflagsWithBranchError{BranchLine: line.Start, UseflagsLine: pf.useflag.line}
		}
		e.a.branchLines[line.Start] = pf.useflag.line
		pf.useflag = nil
	}

	target, ok := e.a.lay.LabelToPage[br.Label.Value]
	if !ok {
		return &MissingLabelError{Line: line.Start, Label: br.Label.Value}
	}
	if target != e.ident {
		return &JumpOrBranchToOtherPageError{Line: line.Start}
	}

	if err := e.emit(OpBranch); err != nil {
		return err
	}
	if err := e.emit(types.Nibble(br.Cond.Value)); err != nil {
		return err
	}
	if err := e.a.emitLabelledPageLocation(e, br.Label.Value, line.Start); err != nil {
		return err
	}
	pf.flushFlags()
	return nil
}

func (e *encoder) encodeCall(line ast.Line, c ast.Call) error {
	target, ok := e.a.lay.LabelToPage[c.Label.Value]
	if !ok {
		return &MissingLabelError{Line: line.Start, Label: c.Label.Value}
	}
	pf := e.flags
	pf.setPossibleFlushedFlags(e.curOffset(), line.Start)

	if target == e.ident {
		if err := e.emit(OpCall); err != nil {
			return err
		}
		if err := e.a.emitLabelledPageLocation(e, c.Label.Value, line.Start); err != nil {
			return err
		}
		pf.flushFlags()
		return nil
	}

	if target.Kind == types.PageRom {
		if err := e.emit(OpRomCall); err != nil {
			return err
		}
		if err := e.emit(target.Rom); err != nil {
			return err
		}
		if err := e.a.emitLabelledPageLocation(e, c.Label.Value, line.Start); err != nil {
			return err
		}
	} else {
		if err := e.emit(OpValue); err != nil {
			return err
		}
		if err := e.a.emitPageRamAddr(e, target, line.Start); err != nil {
			return err
		}
		if err := e.emit(OpRamCall); err != nil {
			return err
		}
		if err := e.a.emitLabelledPageLocation(e, c.Label.Value, line.Start); err != nil {
			return err
		}
	}
	pf.flushFlags()
	return nil
}
