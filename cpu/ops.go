package cpu

/*
 * nibvm - ALM1/ALM2 stack operation tables
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

import "github.com/rcornwell/nibvm/types"

// setFlags1 commits flags from an ALM1 (opcode 10) op: k=2 write-back
// (spec.md §4.4). The front slot also takes f, so the flags enter the
// pipeline on the instruction's last nibble, where the assembler's
// emitFlagged places the matching candidate.
func (s *Simulator) setFlags1(f Flags) {
	s.flags = f
	s.delay.slots[0] = f
	s.delay.writeBack(2, f)
}

// setFlags2 commits flags from an ALM2 (opcode 11) op: k=3 write-back, and
// the front slot as in setFlags1.
func (s *Simulator) setFlags2(f Flags) {
	s.flags = f
	s.delay.slots[0] = f
	s.delay.writeBack(3, f)
}

// execAlm1 runs one of the 16 unary stack ops (spec.md §3/§4.4). Only NOT is
// directly grounded in original_source/assembly/src/simulator.rs (the rest
// are todo!() there); the remainder follow spec.md's described semantics
// and the invert+carry-in=1 two's-complement pattern NOT/ADD establish.
//
// READ/READPOP push the loaded word into the INPUT fifo rather than the
// data stack, per spec.md §9 Open Question 1 (preserved bug, not corrected).
// The READ/non-pop vs READPOP/pop distinction on which operand they consume
// is this module's own resolution of that ambiguity (spec.md gives both the
// same one-line description); see DESIGN.md.
func (s *Simulator) execAlm1(op types.Alm1Op) error {
	switch op {
	case types.Alm1Duplicate:
		return s.pushData(s.peekData())

	case types.Alm1Not:
		v := s.popData()
		y := ^v
		if err := s.pushData(y); err != nil {
			return err
		}
		s.setFlags1(noopGetFlags(y))
		return nil

	case types.Alm1Read:
		addr := s.peekData()
		s.input.Push(s.mem.RamWord(addr))
		return nil

	case types.Alm1ReadPop:
		addr := s.popData()
		s.input.Push(s.mem.RamWord(addr))
		return nil

	case types.Alm1Increment:
		v := s.popData()
		y, f := addWithFlags(v, 1, false)
		if err := s.pushData(y); err != nil {
			return err
		}
		s.setFlags1(f)
		return nil

	case types.Alm1IncrementCarry:
		v := s.popData()
		y, f := addWithFlags(v, 1, s.flags.Carry)
		if err := s.pushData(y); err != nil {
			return err
		}
		s.setFlags1(f)
		return nil

	case types.Alm1Decrement:
		v := s.popData()
		y, f := addWithFlags(v, ^types.Word(1), true)
		if err := s.pushData(y); err != nil {
			return err
		}
		s.setFlags1(f)
		return nil

	case types.Alm1DecrementCarry:
		v := s.popData()
		y, f := addWithFlags(v, ^types.Word(1), s.flags.Carry)
		if err := s.pushData(y); err != nil {
			return err
		}
		s.setFlags1(f)
		return nil

	case types.Alm1Negate:
		v := s.popData()
		y, f := addWithFlags(0, ^v, true)
		if err := s.pushData(y); err != nil {
			return err
		}
		s.setFlags1(f)
		return nil

	case types.Alm1NegateCarry:
		v := s.popData()
		y, f := addWithFlags(0, ^v, s.flags.Carry)
		if err := s.pushData(y); err != nil {
			return err
		}
		s.setFlags1(f)
		return nil

	case types.Alm1NoopSetFlags:
		s.setFlags1(noopGetFlags(s.peekData()))
		return nil

	case types.Alm1PopSetFlags:
		s.setFlags1(noopGetFlags(s.popData()))
		return nil

	case types.Alm1RightShift:
		v := s.popData()
		carryOut := v&1 != 0
		y := v >> 1
		if err := s.pushData(y); err != nil {
			return err
		}
		s.setFlags1(Flags{Zero: y == 0, Negative: y&0x8000 != 0, Carry: carryOut})
		return nil

	case types.Alm1RightShiftCarry:
		v := s.popData()
		carryOut := v&1 != 0
		var topBit types.Word
		if s.flags.Carry {
			topBit = 0x8000
		}
		y := (v >> 1) | topBit
		if err := s.pushData(y); err != nil {
			return err
		}
		s.setFlags1(Flags{Zero: y == 0, Negative: y&0x8000 != 0, Carry: carryOut})
		return nil

	case types.Alm1RightShiftOneIn:
		v := s.popData()
		carryOut := v&1 != 0
		y := (v >> 1) | 0x8000
		if err := s.pushData(y); err != nil {
			return err
		}
		s.setFlags1(Flags{Zero: false, Negative: true, Carry: carryOut})
		return nil

	case types.Alm1ArithRightShift:
		v := s.popData()
		carryOut := v&1 != 0
		y := types.Word(int16(v) >> 1)
		if err := s.pushData(y); err != nil {
			return err
		}
		s.setFlags1(Flags{Zero: y == 0, Negative: y&0x8000 != 0, Carry: carryOut})
		return nil
	}
	return nil
}

// execAlm2 runs one of the 16 binary stack⊕register ops (spec.md §3/§4.4).
// SUB/ADDC/SUBC follow the invert+carry-in two's-complement pattern the
// original's add_with_flags establishes; CMP restores the popped operand
// (the usual non-destructive-compare convention) rather than discarding it.
func (s *Simulator) execAlm2(op types.Alm2Op, reg types.Register) error {
	r := reg
	switch op {
	case types.Alm2Swap:
		v := s.popData()
		old := s.registers[r]
		s.registers[r] = v
		return s.pushData(old)

	case types.Alm2Sub:
		v := s.popData()
		y, f := addWithFlags(v, ^s.registers[r], true)
		if err := s.pushData(y); err != nil {
			return err
		}
		s.setFlags2(f)
		return nil

	case types.Alm2Write:
		s.mem.SetRamWord(s.peekData(), s.registers[r])
		return nil

	case types.Alm2WritePop:
		s.mem.SetRamWord(s.popData(), s.registers[r])
		return nil

	case types.Alm2And:
		v := s.popData()
		y := v & s.registers[r]
		if err := s.pushData(y); err != nil {
			return err
		}
		s.setFlags2(noopGetFlags(y))
		return nil

	case types.Alm2Nand:
		v := s.popData()
		y := ^(v & s.registers[r])
		if err := s.pushData(y); err != nil {
			return err
		}
		s.setFlags2(noopGetFlags(y))
		return nil

	case types.Alm2Or:
		v := s.popData()
		y := v | s.registers[r]
		if err := s.pushData(y); err != nil {
			return err
		}
		s.setFlags2(noopGetFlags(y))
		return nil

	case types.Alm2Nor:
		v := s.popData()
		y := ^(v | s.registers[r])
		if err := s.pushData(y); err != nil {
			return err
		}
		s.setFlags2(noopGetFlags(y))
		return nil

	case types.Alm2Xor:
		v := s.popData()
		y := v ^ s.registers[r]
		if err := s.pushData(y); err != nil {
			return err
		}
		s.setFlags2(noopGetFlags(y))
		return nil

	case types.Alm2NXor:
		v := s.popData()
		y := ^(v ^ s.registers[r])
		if err := s.pushData(y); err != nil {
			return err
		}
		s.setFlags2(noopGetFlags(y))
		return nil

	case types.Alm2RegSetFlags:
		s.popData()
		s.setFlags2(noopGetFlags(s.registers[r]))
		return nil

	case types.Alm2Compare:
		v := s.popData()
		_, f := addWithFlags(v, ^s.registers[r], true)
		if err := s.pushData(v); err != nil {
			return err
		}
		s.setFlags2(f)
		return nil

	case types.Alm2SwapAdd:
		v := s.popData()
		old := s.registers[r]
		sum, f := addWithFlags(v, old, false)
		s.registers[r] = sum
		if err := s.pushData(old); err != nil {
			return err
		}
		s.setFlags2(f)
		return nil

	case types.Alm2SwapSub:
		v := s.popData()
		old := s.registers[r]
		diff, f := addWithFlags(v, ^old, true)
		s.registers[r] = diff
		if err := s.pushData(old); err != nil {
			return err
		}
		s.setFlags2(f)
		return nil

	case types.Alm2AddCarry:
		v := s.popData()
		y, f := addWithFlags(v, s.registers[r], s.flags.Carry)
		if err := s.pushData(y); err != nil {
			return err
		}
		s.setFlags2(f)
		return nil

	case types.Alm2SubCarry:
		v := s.popData()
		y, f := addWithFlags(v, ^s.registers[r], s.flags.Carry)
		if err := s.pushData(y); err != nil {
			return err
		}
		s.setFlags2(f)
		return nil
	}
	return nil
}

// evalCondition implements the 16 BRANCH predicates (spec.md §3). Only Z is
// grounded in original_source (the rest are todo!() there); the signed
// comparison pairs (N=V, N≠V and their Z-combined forms) follow the
// standard SF/OF relationship used by two's-complement condition codes.
func evalCondition(c types.Condition, f Flags, inputReady bool) bool {
	switch c {
	case types.CondInputReady:
		return inputReady
	case types.CondInputNotReady:
		return !inputReady
	case types.CondZero:
		return f.Zero
	case types.CondNotZero:
		return !f.Zero
	case types.CondNegative:
		return f.Negative
	case types.CondNotNegative:
		return !f.Negative
	case types.CondOverflow:
		return f.Overflow
	case types.CondNotOverflow:
		return !f.Overflow
	case types.CondCarry:
		return f.Carry
	case types.CondNotCarry:
		return !f.Carry
	case types.CondCarryNotZero:
		return f.Carry && !f.Zero
	case types.CondNotCarryOrZero:
		return !f.Carry || f.Zero
	case types.CondNegEqOverflow:
		return f.Negative == f.Overflow
	case types.CondNegNeOverflow:
		return f.Negative != f.Overflow
	case types.CondGreater:
		return f.Negative == f.Overflow && !f.Zero
	case types.CondLessEqual:
		return f.Negative != f.Overflow || f.Zero
	}
	return false
}
