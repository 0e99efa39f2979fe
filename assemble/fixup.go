package assemble

import (
	"fmt"

	"github.com/rcornwell/nibvm/types"
)

// patchSlot names a spot in the assembled image a fixup will overwrite at
// finalize: either a ROM page offset or an absolute RAM plane address.
type patchSlot struct {
	rom     bool
	romPage types.Nibble
	romOff  uint8
	ramAddr uint16
}

// placedLabel is an entry of `labelled_page_locations` (spec.md §3): a
// label's owning page plus the in-page offset it was defined at.
type placedLabel struct {
	Page   types.PageLocation
	Offset uint8
}

type labelFixup struct {
	Label string
	Slot  patchSlot
	Line  int
}

type ramBaseFixup struct {
	Target types.AssemblyPageIdent
	Slot   patchSlot
	Line   int
}

type ramAddrFixup struct {
	Label string
	Slot  patchSlot
	Line  int
}

// slotHere captures the encoder's current write position as a patchSlot,
// i.e. where the next emitted nibble will land.
func (e *encoder) slotHere() patchSlot {
	if e.kind == types.PageRom {
		return patchSlot{rom: true, romPage: e.romPage, romOff: uint8(e.a.romCursor[e.romPage])}
	}
	return patchSlot{rom: false, ramAddr: uint16(e.a.ramCursor)}
}

// reserve emits n placeholder zero nibbles, to be overwritten at finalize.
func (e *encoder) reserve(n int) error {
	for i := 0; i < n; i++ {
		if err := e.emit(0); err != nil {
			return err
		}
	}
	return nil
}

// emitLabelledPageLocation implements spec.md §4.2.2's
// emit_labelled_page_location: reserve a 2-nibble page-local target fixup.
func (a *Assembler) emitLabelledPageLocation(e *encoder, label string, line int) error {
	slot := e.slotHere()
	if err := e.reserve(2); err != nil {
		return err
	}
	a.labelFixups = append(a.labelFixups, labelFixup{Label: label, Slot: slot, Line: line})
	return nil
}

// emitPageRamAddr implements emit_page_ram_addr: reserve a 4-nibble RAM page
// base address fixup (used for cross-page CALL into a RAM code page).
func (a *Assembler) emitPageRamAddr(e *encoder, target types.AssemblyPageIdent, line int) error {
	slot := e.slotHere()
	if err := e.reserve(4); err != nil {
		return err
	}
	a.ramBaseFixups = append(a.ramBaseFixups, ramBaseFixup{Target: target, Slot: slot, Line: line})
	return nil
}

// emitLabelledRamAddress implements emit_labelled_ram_address: reserve a
// 4-nibble RAM data label address fixup.
func (a *Assembler) emitLabelledRamAddress(e *encoder, label string, line int) error {
	slot := e.slotHere()
	if err := e.reserve(4); err != nil {
		return err
	}
	a.ramAddrFixups = append(a.ramAddrFixups, ramAddrFixup{Label: label, Slot: slot, Line: line})
	return nil
}

func (a *Assembler) bindRamLabel(label string, line int, addr uint16) error {
	if _, exists := a.ramLabelAddr[label]; exists {
		return &DuplicateRamLabelError{Line: line, Label: label}
	}
	a.ramLabelAddr[label] = addr
	return nil
}

func (a *Assembler) writeNibbleAt(slot patchSlot, delta int, n types.Nibble) {
	if slot.rom {
		a.mem.SetRomNibble(slot.romPage, slot.romOff+uint8(delta), n)
		return
	}
	a.mem.SetRamNibble(slot.ramAddr+uint16(delta), n)
}

// writeSlot2 writes an 8-bit page-local offset MSN-first across 2 nibbles
// (spec.md §4.2.2/§6.2).
func (a *Assembler) writeSlot2(slot patchSlot, offset uint8) {
	a.writeNibbleAt(slot, 0, types.Nibble((offset>>4)&0xf))
	a.writeNibbleAt(slot, 1, types.Nibble(offset&0xf))
}

// writeSlot4 writes a 16-bit address MSN-first across 4 nibbles.
func (a *Assembler) writeSlot4(slot patchSlot, v uint16) {
	for i := 0; i < 4; i++ {
		shift := uint(12 - 4*i)
		a.writeNibbleAt(slot, i, types.Nibble((v>>shift)&0xf))
	}
}

// finalize implements spec.md §4.3: resolve every fixup list into concrete
// nibbles now that all labels are known.
func (a *Assembler) finalize() error {
	for _, f := range a.labelFixups {
		pl, ok := a.labelPageLoc[f.Label]
		if !ok {
			return &MissingLabelError{Line: f.Line, Label: f.Label}
		}
		a.writeSlot2(f.Slot, pl.Offset)
	}
	for _, f := range a.ramBaseFixups {
		loc, ok := a.pageBase[f.Target]
		if !ok {
			return fmt.Errorf("internal: RAM page base never assigned for %v", f.Target)
		}
		a.writeSlot4(f.Slot, loc.RamBase)
	}
	for _, f := range a.ramAddrFixups {
		addr, ok := a.ramLabelAddr[f.Label]
		if !ok {
			return &MissingRamLabelError{Line: f.Line, Label: f.Label}
		}
		a.writeSlot4(f.Slot, addr)
	}
	return nil
}
