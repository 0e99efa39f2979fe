package command

import (
	"testing"

	"github.com/rcornwell/nibvm/types"
)

func TestParsePCRom(t *testing.T) {
	pc, err := ParsePC("3:0a")
	if err != nil {
		t.Fatalf("ParsePC: %v", err)
	}
	want := types.ProgramPtr{Page: types.RomLocation(3), Counter: 0x0a}
	if pc != want {
		t.Fatalf("ParsePC(3:0a) = %+v, want %+v", pc, want)
	}
}

func TestParsePCRam(t *testing.T) {
	pc, err := ParsePC("r0x100:5")
	if err != nil {
		t.Fatalf("ParsePC: %v", err)
	}
	want := types.ProgramPtr{Page: types.RamLocation(0x100), Counter: 5}
	if pc != want {
		t.Fatalf("ParsePC(r0x100:5) = %+v, want %+v", pc, want)
	}
}

func TestParsePCRejectsMissingColon(t *testing.T) {
	if _, err := ParsePC("3"); err == nil {
		t.Fatalf("expected an error for a target with no ':'")
	}
}

func TestParsePCRejectsBadOffset(t *testing.T) {
	if _, err := ParsePC("3:zz"); err == nil {
		t.Fatalf("expected an error for a non-numeric offset")
	}
}

func TestProcessQuitAndExit(t *testing.T) {
	for _, verb := range []string{"quit", "exit", "QUIT"} {
		quit, err := Process(verb, nil)
		if err != nil {
			t.Fatalf("Process(%q): %v", verb, err)
		}
		if !quit {
			t.Fatalf("Process(%q) = false, want true", verb)
		}
	}
}

func TestProcessEmptyLineIsNoop(t *testing.T) {
	quit, err := Process("   ", nil)
	if err != nil || quit {
		t.Fatalf("Process(whitespace) = (%v, %v), want (false, nil)", quit, err)
	}
}

func TestProcessUnknownVerbErrors(t *testing.T) {
	_, err := Process("frobnicate", nil)
	if err == nil {
		t.Fatalf("expected an error for an unknown verb")
	}
}
