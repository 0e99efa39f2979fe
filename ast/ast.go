// Package ast defines the typed line stream this project's layouter and
// assembler consume. The text-format parser that produces this stream from
// source is an external collaborator (spec.md §1) and is not implemented
// here; ast is the contract at that boundary (spec.md §6.1).
package ast

/*
 * nibvm - Positioned instruction/meta line contract
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

// Span is a byte range into the original source text, carried through for
// editor diagnostics (spec.md §6.1).
type Span struct {
	Start int
	End   int
}

// Positioned pairs a value with the span of source text it came from.
type Positioned[T any] struct {
	Span
	Value T
}

// Pos builds a Positioned value with the given span.
func Pos[T any](start, end int, v T) Positioned[T] {
	return Positioned[T]{Span: Span{Start: start, End: end}, Value: v}
}

// Line is one entry of the positioned line stream: a command, or a meta
// directive, with the span of the whole line.
type Line struct {
	Span
	Payload Payload
}

// Payload is implemented by Command and Meta. It has no methods of its own;
// the marker methods below are what make it a closed sum type.
type Payload interface {
	isPayload()
}

// Command is the sum type of all executable instruction lines.
type Command interface {
	Payload
	isCommand()
}

// Meta is the sum type of all non-executable directive lines.
type Meta interface {
	Payload
	isMeta()
}

type commandBase struct{}

func (commandBase) isPayload() {}
func (commandBase) isCommand() {}

type metaBase struct{}

func (metaBase) isPayload() {}
func (metaBase) isMeta()    {}

// --- Commands with no operands -------------------------------------------------

type Pass struct{ commandBase }
type Return struct{ commandBase }
type Input struct{ commandBase }
type RawRamCall struct{ commandBase } // programmer-authored RAMCALL, offset 0 (spec.md §4.2.3/§6.1)

// ALM1 zero-operand stack ops (spec.md §3).
type Duplicate struct{ commandBase }
type Not struct{ commandBase }
type Read struct{ commandBase }
type ReadPop struct{ commandBase }
type Increment struct{ commandBase }
type IncrementCarry struct{ commandBase }
type Decrement struct{ commandBase }
type DecrementCarry struct{ commandBase }
type Negate struct{ commandBase }
type NegateCarry struct{ commandBase }
type NoopSetFlags struct{ commandBase }
type PopSetFlags struct{ commandBase }
type RightShift struct{ commandBase }
type RightShiftCarry struct{ commandBase }
type RightShiftOneIn struct{ commandBase }
type ArithRightShift struct{ commandBase }

// --- Commands with one nibble/register operand ---------------------------------

type Push struct {
	commandBase
	Reg Positioned[types.Register]
}

type Pop struct {
	commandBase
	Reg Positioned[types.Register]
}

type Add struct {
	commandBase
	Reg Positioned[types.Register]
}

// ALM2 binary stack⊕register ops (spec.md §3), all shaped the same.
type Swap struct {
	commandBase
	Reg Positioned[types.Register]
}
type Sub struct {
	commandBase
	Reg Positioned[types.Register]
}
type Write struct {
	commandBase
	Reg Positioned[types.Register]
}
type WritePop struct {
	commandBase
	Reg Positioned[types.Register]
}
type And struct {
	commandBase
	Reg Positioned[types.Register]
}
type Nand struct {
	commandBase
	Reg Positioned[types.Register]
}
type Or struct {
	commandBase
	Reg Positioned[types.Register]
}
type Nor struct {
	commandBase
	Reg Positioned[types.Register]
}
type Xor struct {
	commandBase
	Reg Positioned[types.Register]
}
type NXor struct {
	commandBase
	Reg Positioned[types.Register]
}
type RegSetFlags struct {
	commandBase
	Reg Positioned[types.Register]
}
type Compare struct {
	commandBase
	Reg Positioned[types.Register]
}
type SwapAdd struct {
	commandBase
	Reg Positioned[types.Register]
}
type SwapSub struct {
	commandBase
	Reg Positioned[types.Register]
}
type AddCarry struct {
	commandBase
	Reg Positioned[types.Register]
}
type SubCarry struct {
	commandBase
	Reg Positioned[types.Register]
}

// Rotate is "ROT s r": reg = rotate_left(reg, s).
type Rotate struct {
	commandBase
	Shift    Positioned[types.Nibble]
	Register Positioned[types.Register]
}

// --- Commands with a 16-bit immediate -------------------------------------------

// Value pushes a 16-bit immediate. Nil means the literal text was out of
// range for 16 bits (spec.md §6.1: "None if out of range").
type Value struct {
	commandBase
	Immediate Positioned[*uint16]
}

// --- Commands with a label operand ----------------------------------------------

type Jump struct {
	commandBase
	Label Positioned[string]
}

type Call struct {
	commandBase
	Label Positioned[string]
}

type Branch struct {
	commandBase
	Cond  Positioned[types.Condition]
	Label Positioned[string]
}

// --- OUTPUT ----------------------------------------------------------------------

// Output routes the popped word down the given oct-digit path (spec.md §6.3).
type Output struct {
	commandBase
	Path []Positioned[types.OctDigit] // non-empty
}

// --- Data-section-only commands (spec.md §4.2.5) --------------------------------

// Address reserves 4 nibbles resolved to a RAM word address at finalize.
type Address struct {
	commandBase
	Label Positioned[string]
}

// Alloc emits Count zero words (nil Count means the literal was out of range).
type Alloc struct {
	commandBase
	Count Positioned[*uint16]
}

// --- Raw escape hatch --------------------------------------------------------------

// Raw emits literal nibbles verbatim; used by tests and tooling that already
// has encoded bytes (e.g. round-trip checks), not produced by normal source.
type Raw struct {
	commandBase
	Nibbles []Positioned[types.Nibble]
}

// --- Meta directives ------------------------------------------------------------

type RomPage struct {
	metaBase
	Page Positioned[types.Nibble]
}

type RamPage struct{ metaBase }

type Data struct{ metaBase }

type UseFlags struct{ metaBase }

type Label struct {
	metaBase
	Name Positioned[string]
}

// Constant binds Name to an optional immediate value. Constant-expression
// evaluation is explicitly not required in the core (spec.md §6.1); this type
// only carries the literal for display/diagnostics.
type Constant struct {
	metaBase
	Name  Positioned[string]
	Value Positioned[*uint16]
}
