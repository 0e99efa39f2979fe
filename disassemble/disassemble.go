// Package disassemble recovers a mnemonic instruction listing from an
// assembled ROM page, the inverse of assemble's nibble emission (spec.md §8
// round-trip property: "assembling then disassembling the nibble stream
// recovers the original opcode sequence, excluding injected PASS padding").
package disassemble

/*
 * nibvm - ROM page disassembler
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

	"github.com/rcornwell/nibvm/memory"
	"github.com/rcornwell/nibvm/types"
)

// Instruction is one decoded instruction: its starting offset in the page,
// a mnemonic, and its operand values in encoding order.
type Instruction struct {
	Offset   uint8
	Opcode   types.Nibble
	Mnemonic string
	Operands []int
}

var alm1Names = [16]string{
	"DUP", "NOT", "READ", "READPOP", "INC", "INCC", "DEC", "DECC",
	"NEG", "NEGC", "NSETF", "PSETF", "RSH", "RSHC", "RSH1", "ASR",
}

var alm2Names = [16]string{
	"SWAP", "SUB", "WRITE", "WRITEPOP", "AND", "NAND", "OR", "NOR",
	"XOR", "NXOR", "REGSETF", "CMP", "SWAPADD", "SWAPSUB", "ADDC", "SUBC",
}

// Page decodes every instruction in ROM page p from offset 0, stopping at
// page end (256 nibbles). The result includes PASS entries; callers that
// want the spec.md §8 round-trip comparison should filter them with
// FilterPasses.
func Page(mem *memory.ProgramMemory, p types.Nibble) []Instruction {
	var out []Instruction
	var off uint8
	overflowed := false
	for !overflowed {
		start := off
		read := func() types.Nibble {
			v := mem.RomNibble(p, off)
			if off == 255 {
				overflowed = true
			} else {
				off++
			}
			return v
		}

		op := read()
		insn := Instruction{Offset: start, Opcode: op}
		switch op {
		case types.OpPass:
			insn.Mnemonic = "PASS"
		case types.OpValue:
			insn.Mnemonic = "VALUE"
			var v int
			for i := 0; i < 4 && !overflowed; i++ {
				v = (v << 4) | int(read())
			}
			insn.Operands = []int{v}
		case types.OpJump:
			insn.Mnemonic = "JUMP"
			a1 := int(read())
			a0 := int(read())
			insn.Operands = []int{(a1 << 4) | a0}
		case types.OpBranch:
			insn.Mnemonic = "BRANCH"
			cond := int(read())
			a1 := int(read())
			a0 := int(read())
			insn.Operands = []int{cond, (a1 << 4) | a0}
		case types.OpPush:
			insn.Mnemonic = "PUSH"
			insn.Operands = []int{int(read())}
		case types.OpPop:
			insn.Mnemonic = "POP"
			insn.Operands = []int{int(read())}
		case types.OpCall:
			insn.Mnemonic = "CALL"
			a1 := int(read())
			a0 := int(read())
			insn.Operands = []int{(a1 << 4) | a0}
		case types.OpReturn:
			insn.Mnemonic = "RETURN"
		case types.OpAdd:
			insn.Mnemonic = "ADD"
			insn.Operands = []int{int(read())}
		case types.OpRot:
			insn.Mnemonic = "ROT"
			shift := int(read())
			reg := int(read())
			insn.Operands = []int{shift, reg}
		case types.OpAlm1:
			sub := int(read())
			if sub >= 0 && sub < len(alm1Names) {
				insn.Mnemonic = alm1Names[sub]
			} else {
				insn.Mnemonic = "ALM1?"
			}
			insn.Operands = []int{sub}
		case types.OpAlm2:
			sub := int(read())
			reg := int(read())
			if sub >= 0 && sub < len(alm2Names) {
				insn.Mnemonic = alm2Names[sub]
			} else {
				insn.Mnemonic = "ALM2?"
			}
			insn.Operands = []int{sub, reg}
		case types.OpRomCall:
			insn.Mnemonic = "ROMCALL"
			page := int(read())
			b := int(read())
			a := int(read())
			insn.Operands = []int{page, (b << 4) | a}
		case types.OpRamCall:
			insn.Mnemonic = "RAMCALL"
			b := int(read())
			a := int(read())
			insn.Operands = []int{(b << 4) | a}
		case types.OpInput:
			insn.Mnemonic = "INPUT"
		case types.OpOutput:
			insn.Mnemonic = "OUTPUT"
			for {
				n := int(read())
				insn.Operands = append(insn.Operands, n&0x7)
				if n&0x8 != 0 || overflowed {
					break
				}
			}
		}
		out = append(out, insn)
	}
	return out
}

// FilterPasses drops PASS entries, recovering the programmer-authored
// opcode sequence the assembler's padding inserted around (spec.md §8).
func FilterPasses(insns []Instruction) []Instruction {
	out := make([]Instruction, 0, len(insns))
	for _, i := range insns {
		if i.Opcode != types.OpPass {
			out = append(out, i)
		}
	}
	return out
}

// String renders one instruction in "MNEMONIC op1,op2" form.
func (i Instruction) String() string {
	if len(i.Operands) == 0 {
		return i.Mnemonic
	}
	s := i.Mnemonic
	for n, op := range i.Operands {
		sep := " "
		if n > 0 {
			sep = ","
		}
		s += sep + fmt.Sprintf("%d", op)
	}
	return s
}
