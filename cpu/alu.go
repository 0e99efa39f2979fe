package cpu

/*
 * nibvm - Arithmetic/logic unit
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

// Flags is the concrete ALU output (spec.md §4.4), ported from the
// original's AluFlags struct (original_source/assembly/src/simulator.rs).
type Flags struct {
	Zero     bool
	Negative bool
	Carry    bool
	Overflow bool
}

// addWithFlags computes s = a+b+cin (mod 2^16) and the flags it sets
// (spec.md §8 quantified invariant, ported from the original's
// add_with_flags/to_flags).
func addWithFlags(a, b types.Word, cin bool) (types.Word, Flags) {
	var c uint8
	if cin {
		c = 1
	}
	wide := uint32(a) + uint32(b) + uint32(c)
	s := types.Word(wide)
	carryIntoMSB := (uint32(a&0x7fff) + uint32(b&0x7fff) + uint32(c)) > 0x7fff
	carryOut := wide > 0xffff
	return s, Flags{
		Zero:     s == 0,
		Negative: s&0x8000 != 0,
		Carry:    carryOut,
		Overflow: carryOut != carryIntoMSB,
	}
}

// noopGetFlags sets Z,N from v and clears C,V — used by ops that derive
// flags from a value without doing addition (NOT, bitwise ops, PSETF,
// NSETF, REGSETF; spec.md §4.4).
func noopGetFlags(v types.Word) Flags {
	return Flags{Zero: v == 0, Negative: v&0x8000 != 0}
}

// flagDelay is the simulator's 6-stage pipeline (spec.md §4.4: "front is
// newest, back is what BRANCH reads"). Unlike the assembler's symbolic
// FlagsState queue, this carries concrete Flags values and advances on
// every nibble fetch, not once per instruction (spec.md §4.4 Step;
// SPEC_FULL.md §11.1, ported from the original's per-advance
// push_back/pop_front).
type flagDelay struct {
	slots [6]Flags
}

// advance pushes cur onto the front and drops the back, called once per
// pc advance (spec.md "each advance pushes flags onto flag_delay.back and
// drops flag_delay.front" — read as a shift register, slot 0 is front).
func (d *flagDelay) advance(cur Flags) {
	copy(d.slots[1:], d.slots[:5])
	d.slots[0] = cur
}

func (d *flagDelay) back() Flags { return d.slots[5] }

// flush overwrites every slot with state (BRANCH/CALL/ROMCALL/RAMCALL).
func (d *flagDelay) flush(state Flags) {
	for i := range d.slots {
		d.slots[i] = state
	}
}

// writeBack overwrites the back-most k slots (spec.md §4.4 "flag write-back
// to delay queue"): k=2 for ALM1-class ops, k=3 for ALM2-class ops.
func (d *flagDelay) writeBack(k int, state Flags) {
	for i := 6 - k; i < 6; i++ {
		d.slots[i] = state
	}
}

// rotateLeft16 implements ROT's reg = rotate_left(reg, s) (spec.md §3).
func rotateLeft16(v types.Word, shift uint8) types.Word {
	s := shift & 15
	if s == 0 {
		return v
	}
	return (v << s) | (v >> (16 - s))
}
