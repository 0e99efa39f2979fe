package config_test

import (
	"strings"
	"testing"

	"github.com/rcornwell/nibvm/config"
	"github.com/rcornwell/nibvm/types"
)

func TestParseBasic(t *testing.T) {
	src := `
# a comment
instructions_per_second = 1000000
max_data_stack_depth = 64
debug_file = "trace.log"
input = 1, 2, 0x10
`
	cfg, err := config.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.InstructionsPerSecond != 1000000 {
		t.Errorf("instructions_per_second = %v, want 1000000", cfg.InstructionsPerSecond)
	}
	if cfg.MaxDataStackDepth != 64 {
		t.Errorf("max_data_stack_depth = %v, want 64", cfg.MaxDataStackDepth)
	}
	if cfg.DebugFile != "trace.log" {
		t.Errorf("debug_file = %q, want trace.log", cfg.DebugFile)
	}
	want := []uint16{1, 2, 0x10}
	if len(cfg.Input) != len(want) {
		t.Fatalf("input = %v, want %v", cfg.Input, want)
	}
	for i, w := range want {
		if uint16(cfg.Input[i]) != w {
			t.Errorf("input[%d] = %#x, want %#x", i, cfg.Input[i], w)
		}
	}
}

func TestParseBreakpointsAndDebugMask(t *testing.T) {
	src := `
debug_mask = 0x3
break = 3:0a, r0x100:05
`
	cfg, err := config.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.DebugMask != 3 {
		t.Errorf("debug_mask = %v, want 3", cfg.DebugMask)
	}
	want := []types.ProgramPtr{
		{Page: types.RomLocation(3), Counter: 0x0a},
		{Page: types.RamLocation(0x100), Counter: 0x05},
	}
	if len(cfg.Breakpoints) != len(want) {
		t.Fatalf("breakpoints = %+v, want %+v", cfg.Breakpoints, want)
	}
	for i, w := range want {
		if cfg.Breakpoints[i] != w {
			t.Errorf("breakpoints[%d] = %+v, want %+v", i, cfg.Breakpoints[i], w)
		}
	}
}

func TestParseBreakpointsRejectsBadTarget(t *testing.T) {
	if _, err := config.Parse(strings.NewReader("break = nonsense\n")); err == nil {
		t.Fatalf("expected an error for a malformed breakpoint target")
	}
}

func TestParseUnknownKeyErrors(t *testing.T) {
	_, err := config.Parse(strings.NewReader("bogus = 1\n"))
	if err == nil {
		t.Fatalf("expected an error for an unknown key")
	}
}

func TestParseMissingEqualsErrors(t *testing.T) {
	_, err := config.Parse(strings.NewReader("instructions_per_second 5\n"))
	if err == nil {
		t.Fatalf("expected an error for a line missing '='")
	}
}

func TestParseEmptyIsOK(t *testing.T) {
	cfg, err := config.Parse(strings.NewReader("# only a comment\n\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.InstructionsPerSecond != 0 || cfg.MaxDataStackDepth != 0 || len(cfg.Input) != 0 {
		t.Fatalf("expected zero-value config, got %+v", cfg)
	}
}
