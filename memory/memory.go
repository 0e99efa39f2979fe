// Package memory implements the ROM/RAM image produced by the assembler's
// finalize step and consumed by the simulator (spec.md §3 "Memory model",
// §4.3 Finalizer).
package memory

/*
 * nibvm - Program memory image
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
	"io"

	"github.com/rcornwell/nibvm/types"
	"github.com/rcornwell/nibvm/util/hexfmt"
)

const (
	RomPages    = 16
	RomPageSize = 256
	RamWords    = 4096
	RamNibbles  = RamWords * 4 // 16384
)

// ProgramMemory is the assembled image: 16 ROM pages of 256 nibbles each,
// plus the 16384-nibble RAM plane (spec.md §3 "Memory model"). It is built
// by the assembler/finalizer and, by convention, treated as read-only from
// that point on; the simulator takes its own copy via Clone for the RAM
// plane it mutates at runtime.
type ProgramMemory struct {
	rom [RomPages][RomPageSize]types.Nibble
	ram [RamNibbles]types.Nibble
}

// New returns a zero-filled image.
func New() *ProgramMemory {
	return &ProgramMemory{}
}

// Clone returns an independent copy, used by the simulator for the private
// mutable copy spec.md §4.4 requires ("the simulator owns a private mutable
// copy (RAM may be written at runtime)").
func (m *ProgramMemory) Clone() *ProgramMemory {
	c := *m
	return &c
}

// RomNibble reads one nibble from a ROM page.
func (m *ProgramMemory) RomNibble(page types.Nibble, offset uint8) types.Nibble {
	return m.rom[page][offset]
}

// SetRomNibble writes one nibble to a ROM page. Callers (assemble, finalize)
// are responsible for cursor/bounds discipline; this is a raw accessor.
func (m *ProgramMemory) SetRomNibble(page types.Nibble, offset uint8, v types.Nibble) {
	m.rom[page][offset] = v
}

// RamNibble reads one nibble from the RAM plane by absolute nibble address.
func (m *ProgramMemory) RamNibble(addr uint16) types.Nibble {
	return m.ram[addr]
}

// SetRamNibble writes one nibble to the RAM plane by absolute nibble address.
func (m *ProgramMemory) SetRamNibble(addr uint16, v types.Nibble) {
	m.ram[addr] = v
}

// RamWord reads the 4-nibble big-endian word at the given word address.
func (m *ProgramMemory) RamWord(wordAddr uint16) types.Word {
	base := wordAddr * 4
	var w types.Word
	for i := 0; i < 4; i++ {
		w = (w << 4) | types.Word(m.ram[base+uint16(i)])
	}
	return w
}

// SetRamWord writes a 16-bit word as 4 big-endian nibbles at wordAddr.
func (m *ProgramMemory) SetRamWord(wordAddr uint16, v types.Word) {
	base := wordAddr * 4
	for i := 0; i < 4; i++ {
		shift := uint(12 - 4*i)
		m.ram[base+uint16(i)] = types.Nibble((v >> shift) & 0xf)
	}
}

// DumpHex pretty-prints the image as packed hex nibble runs, one line per
// nonzero-trimmed ROM page followed by the RAM plane. Ported from the
// original Rust program's Memory::pprint (spec.md §11): this module's
// Non-goals exclude persisting the assembled image, not displaying it.
func (m *ProgramMemory) DumpHex(w io.Writer) error {
	for p := 0; p < RomPages; p++ {
		end := RomPageSize
		for end > 0 && m.rom[p][end-1] == 0 {
			end--
		}
		if end == 0 {
			continue
		}
		if _, err := fmt.Fprintf(w, "ROM%X: ", p); err != nil {
			return err
		}
		if err := hexfmt.WriteNibbles(w, m.rom[p][:end]); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}

	ramEnd := RamNibbles
	for ramEnd > 0 && m.ram[ramEnd-1] == 0 {
		ramEnd--
	}
	if ramEnd == 0 {
		return nil
	}
	if _, err := fmt.Fprint(w, "RAM: "); err != nil {
		return err
	}
	if err := hexfmt.WriteNibbles(w, m.ram[:ramEnd]); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w)
	return err
}
