package types

/*
 * nibvm - Primitive value types for the nibble CPU
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

import "fmt"

// Nibble is a 4-bit memory cell, the atomic unit of ROM/RAM addressing.
type Nibble uint8

// NewNibble validates x and returns a Nibble, or an error if x > 15.
func NewNibble(x int) (Nibble, error) {
	if x < 0 || x > 15 {
		return 0, fmt.Errorf("nibble value %d out of range [0,15]", x)
	}
	return Nibble(x), nil
}

func (n Nibble) Uint8() uint8   { return uint8(n) }
func (n Nibble) Uint16() uint16 { return uint16(n) }
func (n Nibble) Int() int       { return int(n) }

// HexDigit returns the single upper-case hex digit for n.
func (n Nibble) HexDigit() byte {
	const digits = "0123456789ABCDEF"
	return digits[n&0xf]
}

// OctDigit is an integer in [0,7], the low bits of an OUTPUT path segment.
// The continuation/terminator bit is carried separately (spec.md §6.3).
type OctDigit uint8

// NewOctDigit validates x and returns an OctDigit, or an error if x > 7.
func NewOctDigit(x int) (OctDigit, error) {
	if x < 0 || x > 7 {
		return 0, fmt.Errorf("oct-digit value %d out of range [0,7]", x)
	}
	return OctDigit(x), nil
}

func (o OctDigit) Uint8() uint8 { return uint8(o) }

// Word is the CPU's 16-bit arithmetic width.
type Word = uint16

// PagePtr is an 8-bit offset within a 256-nibble page.
type PagePtr = uint8

// Register selects one of the 16 general-purpose registers.
type Register uint8

// NewRegister validates x and returns a Register, or an error if x > 15.
func NewRegister(x int) (Register, error) {
	if x < 0 || x > 15 {
		return 0, fmt.Errorf("register value %d out of range [0,15]", x)
	}
	return Register(x), nil
}

func (r Register) Int() int { return int(r) }

// Condition is a BRANCH predicate selector (spec.md §3, opcode 3).
type Condition uint8

const (
	CondInputReady    Condition = 0  // I
	CondInputNotReady Condition = 1  // !I
	CondZero          Condition = 2  // Z
	CondNotZero       Condition = 3  // !Z
	CondNegative      Condition = 4  // N
	CondNotNegative   Condition = 5  // !N
	CondOverflow      Condition = 6  // V
	CondNotOverflow   Condition = 7  // !V
	CondCarry         Condition = 8  // C
	CondNotCarry      Condition = 9  // !C
	CondCarryNotZero  Condition = 10 // C&!Z
	CondNotCarryOrZero Condition = 11 // !C|Z
	CondNegEqOverflow Condition = 12 // N=V
	CondNegNeOverflow Condition = 13 // N!=V
	CondGreater       Condition = 14 // N=V&!Z
	CondLessEqual     Condition = 15 // N!=V|Z
)

// NewCondition validates x and returns a Condition, or an error if x > 15.
func NewCondition(x int) (Condition, error) {
	if x < 0 || x > 15 {
		return 0, fmt.Errorf("condition value %d out of range [0,15]", x)
	}
	return Condition(x), nil
}

func (c Condition) String() string {
	names := [16]string{
		"I", "!I", "Z", "!Z", "N", "!N", "V", "!V",
		"C", "!C", "C&!Z", "!C|Z", "N=V", "N!=V", "N=V&!Z", "N!=V|Z",
	}
	if int(c) < len(names) {
		return names[c]
	}
	return "?"
}

// Alm1Op is one of the 16 ALM1 (opcode 10) unary stack operations.
type Alm1Op uint8

const (
	Alm1Duplicate Alm1Op = iota
	Alm1Not
	Alm1Read
	Alm1ReadPop
	Alm1Increment
	Alm1IncrementCarry
	Alm1Decrement
	Alm1DecrementCarry
	Alm1Negate
	Alm1NegateCarry
	Alm1NoopSetFlags
	Alm1PopSetFlags
	Alm1RightShift
	Alm1RightShiftCarry
	Alm1RightShiftOneIn
	Alm1ArithRightShift
)

// Alm2Op is one of the 16 ALM2 (opcode 11) binary stack⊕register operations.
type Alm2Op uint8

const (
	Alm2Swap Alm2Op = iota
	Alm2Sub
	Alm2Write
	Alm2WritePop
	Alm2And
	Alm2Nand
	Alm2Or
	Alm2Nor
	Alm2Xor
	Alm2NXor
	Alm2RegSetFlags
	Alm2Compare
	Alm2SwapAdd
	Alm2SwapSub
	Alm2AddCarry
	Alm2SubCarry
)

// SetsFlags reports whether this ALM1 op is one of the flag-setting variants.
// Per spec.md §3/§4.2.4: DUP, READ, READPOP are pure data movement; the rest
// either define or consume a flags-relevant value.
func (op Alm1Op) SetsFlags() bool {
	switch op {
	case Alm1Duplicate, Alm1Read, Alm1ReadPop:
		return false
	default:
		return true
	}
}

// SetsFlags reports whether this ALM2 op sets flags.
// SWAP, WRITE, WRITEPOP are pure data movement and do not touch flags.
func (op Alm2Op) SetsFlags() bool {
	switch op {
	case Alm2Swap, Alm2Write, Alm2WritePop:
		return false
	default:
		return true
	}
}

// Opcode is the top-level nibble of every instruction (spec.md §3).
type Opcode = Nibble

const (
	OpPass    Opcode = 0
	OpValue   Opcode = 1
	OpJump    Opcode = 2
	OpBranch  Opcode = 3
	OpPush    Opcode = 4
	OpPop     Opcode = 5
	OpCall    Opcode = 6
	OpReturn  Opcode = 7
	OpAdd     Opcode = 8
	OpRot     Opcode = 9
	OpAlm1    Opcode = 10
	OpAlm2    Opcode = 11
	OpRomCall Opcode = 12
	OpRamCall Opcode = 13
	OpInput   Opcode = 14
	OpOutput  Opcode = 15
)

// PageKind distinguishes the three bucket kinds the layouter produces
// (spec.md §3 "Page identity", §4.1).
type PageKind uint8

const (
	PageRom PageKind = iota
	PageRam
	PageData
)

func (k PageKind) String() string {
	switch k {
	case PageRom:
		return "Rom"
	case PageRam:
		return "Ram"
	case PageData:
		return "Data"
	default:
		return "?"
	}
}

// AssemblyPageIdent identifies a page bucket during layout, before RAM pages
// have been assigned word addresses (spec.md §3 "Page identity": "{Rom(nibble),
// Ram(index)}" plus the Data bucket kind this module also tracks).
type AssemblyPageIdent struct {
	Kind  PageKind
	Rom   Nibble // valid when Kind == PageRom
	Index uint32 // Ram/Data source-order counter, valid when Kind != PageRom
}

func RomIdent(n Nibble) AssemblyPageIdent  { return AssemblyPageIdent{Kind: PageRom, Rom: n} }
func RamIdent(i uint32) AssemblyPageIdent  { return AssemblyPageIdent{Kind: PageRam, Index: i} }
func DataIdent(i uint32) AssemblyPageIdent { return AssemblyPageIdent{Kind: PageData, Index: i} }

func (p AssemblyPageIdent) String() string {
	switch p.Kind {
	case PageRom:
		return fmt.Sprintf("Rom(%d)", p.Rom)
	case PageRam:
		return fmt.Sprintf("Ram(%d)", p.Index)
	case PageData:
		return fmt.Sprintf("Data(%d)", p.Index)
	default:
		return "?"
	}
}

// PageLocation identifies a finalized page: either a ROM page number or a RAM
// code page's word base address (spec.md §3 "Page location"). Used both as
// the assembler's resolved page anchor and as the simulator's ProgramPagePtr.
type PageLocation struct {
	Kind    PageKind // PageRom or PageRam, never PageData
	Rom     Nibble
	RamBase uint16 // word address of the page's first word
}

func RomLocation(n Nibble) PageLocation          { return PageLocation{Kind: PageRom, Rom: n} }
func RamLocation(base uint16) PageLocation       { return PageLocation{Kind: PageRam, RamBase: base} }
func (p PageLocation) IsRom() bool               { return p.Kind == PageRom }

func (p PageLocation) String() string {
	if p.Kind == PageRom {
		return fmt.Sprintf("Rom(%d)", p.Rom)
	}
	return fmt.Sprintf("Ram(%#04x)", p.RamBase)
}

// Equal reports whether two page locations name the same physical page.
func (p PageLocation) Equal(o PageLocation) bool {
	return p.Kind == o.Kind && p.Rom == o.Rom && p.RamBase == o.RamBase
}

// ProgramPtr is the simulator's program counter: a page plus an 8-bit
// in-page nibble offset (spec.md §4.4).
type ProgramPtr struct {
	Page    PageLocation
	Counter uint8
}

func (p ProgramPtr) String() string {
	return fmt.Sprintf("%s:%02x", p.Page, p.Counter)
}
