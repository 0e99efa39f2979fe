// Package command implements the interactive verbs of SPEC_FULL.md §11.3:
// step, run, break, show, and quit, driving a driver.Driver. Cut down from
// S370's command/command.go Command interface (Options/Attach/Detach/Set/
// Show against a device registry) to a flat verb dispatcher — this
// simulator drives one machine, not a bus of attachable devices.
package command

/*
 * nibvm - Interactive command interpreter
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
	"strconv"
	"strings"

	"github.com/rcornwell/nibvm/cpu"
	"github.com/rcornwell/nibvm/driver"
	"github.com/rcornwell/nibvm/types"
)

// Names lists the recognized verbs, used both for dispatch and for the
// reader package's completer.
var Names = []string{"step", "run", "break", "clear", "show", "rate", "quit", "exit", "help"}

// Process interprets one command line against d, returning true if the
// session should end.
func Process(line string, d *driver.Driver) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	verb := strings.ToLower(fields[0])
	args := fields[1:]

	switch verb {
	case "quit", "exit":
		return true, nil

	case "help":
		fmt.Println("commands: step [n] | run | break page:offset | clear page:offset | show pc|reg N|stack|flags|end | rate ips | quit")
		return false, nil

	case "step":
		n := 1
		if len(args) > 0 {
			v, err := strconv.Atoi(args[0])
			if err != nil {
				return false, fmt.Errorf("step: %w", err)
			}
			n = v
		}
		for i := 0; i < n; i++ {
			status, err := d.Step()
			if err != nil {
				return false, err
			}
			if status != cpu.StatusRunning {
				fmt.Printf("status = %s\n", status)
				break
			}
		}
		fmt.Printf("pc = %s\n", d.PC())
		return false, nil

	case "run":
		d.Continue()
		return false, nil

	case "break":
		if len(args) != 1 {
			return false, fmt.Errorf("break: need page:offset")
		}
		pc, err := ParsePC(args[0])
		if err != nil {
			return false, err
		}
		d.SetBreakpoint(pc)
		return false, nil

	case "clear":
		if len(args) != 1 {
			return false, fmt.Errorf("clear: need page:offset")
		}
		pc, err := ParsePC(args[0])
		if err != nil {
			return false, err
		}
		d.ClearBreakpoint(pc)
		return false, nil

	case "rate":
		if len(args) != 1 {
			return false, fmt.Errorf("rate: need instructions/sec")
		}
		f, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return false, err
		}
		d.SetInstructionsPerSecond(f)
		return false, nil

	case "show":
		return false, show(args, d)

	default:
		return false, fmt.Errorf("unknown command: %s", verb)
	}
}

func show(args []string, d *driver.Driver) error {
	if len(args) == 0 {
		return fmt.Errorf("show: need pc|reg|stack|flags|end")
	}
	switch strings.ToLower(args[0]) {
	case "pc":
		fmt.Printf("pc = %s\n", d.PC())
	case "reg":
		if len(args) != 2 {
			for i := 0; i < 16; i++ {
				fmt.Printf("r%-2d = %#06x\n", i, d.Reg(types.Register(i)))
			}
			return nil
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return err
		}
		fmt.Printf("r%d = %#06x\n", n, d.Reg(types.Register(n)))
	case "stack":
		fmt.Printf("data stack = %v\n", d.DataStack())
		fmt.Printf("call stack = %v\n", d.CallStack())
	case "flags":
		fmt.Printf("flags = %+v\n", d.Flags())
	case "end":
		fmt.Printf("end state = %v\n", d.EndState())
	default:
		return fmt.Errorf("show: unknown field %q", args[0])
	}
	return nil
}

// ParsePC parses "page:offset" where page is either a decimal ROM page
// number (0-15) or "r<base>" for a RAM code page base word address. The
// offset is hexadecimal (optionally 0x-prefixed), the form ProgramPtr.String
// prints.
func ParsePC(s string) (types.ProgramPtr, error) {
	page, off, ok := strings.Cut(s, ":")
	if !ok {
		return types.ProgramPtr{}, fmt.Errorf("expected page:offset, got %q", s)
	}
	offset, err := strconv.ParseUint(strings.TrimPrefix(off, "0x"), 16, 8)
	if err != nil {
		return types.ProgramPtr{}, fmt.Errorf("offset: %w", err)
	}
	if strings.HasPrefix(page, "r") {
		base, err := strconv.ParseUint(page[1:], 0, 16)
		if err != nil {
			return types.ProgramPtr{}, fmt.Errorf("ram base: %w", err)
		}
		return types.ProgramPtr{Page: types.RamLocation(uint16(base)), Counter: uint8(offset)}, nil
	}
	pageNum, err := strconv.ParseUint(page, 0, 8)
	if err != nil {
		return types.ProgramPtr{}, fmt.Errorf("rom page: %w", err)
	}
	return types.ProgramPtr{Page: types.RomLocation(types.Nibble(pageNum)), Counter: uint8(offset)}, nil
}
