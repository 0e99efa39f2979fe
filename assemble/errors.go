package assemble

import (
	"fmt"

	"github.com/rcornwell/nibvm/types"
)

// Error taxonomy for assembly-time failures (spec.md §7).

type MissingLabelError struct {
	Line  int
	Label string
}

func (e *MissingLabelError) Error() string {
	return fmt.Sprintf("line %d: undefined label %q", e.Line, e.Label)
}

type MissingRamLabelError struct {
	Line  int
	Label string
}

func (e *MissingRamLabelError) Error() string {
	return fmt.Sprintf("line %d: undefined RAM label %q", e.Line, e.Label)
}

type DuplicateRamLabelError struct {
	Line  int
	Label string
}

func (e *DuplicateRamLabelError) Error() string {
	return fmt.Sprintf("line %d: duplicate RAM label %q", e.Line, e.Label)
}

type Invalid16BitValueError struct {
	Line int
}

func (e *Invalid16BitValueError) Error() string {
	return fmt.Sprintf("line %d: value out of range for a 16-bit word", e.Line)
}

type JumpOrBranchToOtherPageError struct {
	Line int
}

func (e *JumpOrBranchToOtherPageError) Error() string {
	return fmt.Sprintf("line %d: JUMP/BRANCH/intra-page CALL target is on another page", e.Line)
}

type BadUseflagsWithBranchError struct {
	BranchLine   int
	UseflagsLine int
}

func (e *BadUseflagsWithBranchError) Error() string {
	return fmt.Sprintf("line %d: BRANCH flags do not match .USEFLAGS snapshot at line %d", e.BranchLine, e.UseflagsLine)
}

type BadUseflagsError struct {
	UseflagsLine int
}

func (e *BadUseflagsError) Error() string {
	return fmt.Sprintf("line %d: .USEFLAGS has no flag source in scope", e.UseflagsLine)
}

type RomPageFullError struct {
	Page types.Nibble
}

func (e *RomPageFullError) Error() string {
	return fmt.Sprintf("ROM page %d is full", e.Page)
}

type RamFullError struct{}

func (e *RamFullError) Error() string { return "RAM plane is full" }

type InvalidCommandLocationError struct {
	Line int
}

func (e *InvalidCommandLocationError) Error() string {
	return fmt.Sprintf("line %d: command is not legal in this section", e.Line)
}
