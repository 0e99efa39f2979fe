// Package config parses the simulator's startup configuration file: the
// instructions-per-second pacing target, the data-stack depth bound, an
// optional debug log path, and a seed list for the input FIFO. Line format
// and comment/whitespace handling follow config/configparser's key=value
// scanner, cut down from that package's multi-device model registry (this
// simulator configures one machine, not a bus of peripherals) — see
// DESIGN.md.
package config

/*
 * nibvm - Simulator configuration file parser
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
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rcornwell/nibvm/types"
)

// Config holds the startup settings a .cfg file supplies (SPEC_FULL.md §3.3,
// §6).
type Config struct {
	InstructionsPerSecond float64
	MaxDataStackDepth     int
	DebugFile             string
	DebugMask             int
	Input                 []types.Word
	Breakpoints           []types.ProgramPtr
}

// Load reads and parses a configuration file. '#' starts a comment that
// runs to end of line; blank lines are ignored; every other line is
// key = value (configparser.go's comment-stripping/scanning convention).
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads configuration lines from r.
func Parse(r io.Reader) (*Config, error) {
	cfg := &Config{}
	scanner := bufio.NewScanner(r)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := stripComment(scanner.Text())
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("config line %d: missing '=': %q", lineNumber, line)
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if err := cfg.set(key, value, lineNumber); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func stripComment(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		return line[:i]
	}
	return line
}

// parsePageOffset parses a "page:offset" breakpoint target: page is either a
// decimal ROM page number (0-15) or "r<base>" for a RAM code page's word
// address base; offset is hexadecimal (optionally 0x-prefixed). Mirrors
// command.ParsePC's grammar so a config file's "break" directive and the
// CLI's -break flag accept the same syntax.
func parsePageOffset(s string) (types.ProgramPtr, error) {
	page, off, ok := strings.Cut(s, ":")
	if !ok {
		return types.ProgramPtr{}, fmt.Errorf("breakpoint %q: expected page:offset", s)
	}
	offset, err := strconv.ParseUint(strings.TrimPrefix(off, "0x"), 16, 8)
	if err != nil {
		return types.ProgramPtr{}, fmt.Errorf("breakpoint %q: offset: %w", s, err)
	}
	if strings.HasPrefix(page, "r") {
		base, err := strconv.ParseUint(page[1:], 0, 16)
		if err != nil {
			return types.ProgramPtr{}, fmt.Errorf("breakpoint %q: ram base: %w", s, err)
		}
		return types.ProgramPtr{Page: types.RamLocation(uint16(base)), Counter: uint8(offset)}, nil
	}
	pageNum, err := strconv.ParseUint(page, 0, 8)
	if err != nil {
		return types.ProgramPtr{}, fmt.Errorf("breakpoint %q: rom page: %w", s, err)
	}
	return types.ProgramPtr{Page: types.RomLocation(types.Nibble(pageNum)), Counter: uint8(offset)}, nil
}

func (c *Config) set(key, value string, lineNumber int) error {
	switch key {
	case "instructions_per_second":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("config line %d: instructions_per_second: %w", lineNumber, err)
		}
		c.InstructionsPerSecond = f

	case "max_data_stack_depth":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("config line %d: max_data_stack_depth: %w", lineNumber, err)
		}
		c.MaxDataStackDepth = n

	case "debug_file":
		c.DebugFile = strings.Trim(value, "\"")

	case "debug_mask":
		n, err := strconv.ParseUint(value, 0, 32)
		if err != nil {
			return fmt.Errorf("config line %d: debug_mask: %w", lineNumber, err)
		}
		c.DebugMask = int(n)

	case "break", "breakpoints":
		for _, tok := range strings.Split(value, ",") {
			tok = strings.TrimSpace(tok)
			if tok == "" {
				continue
			}
			pc, err := parsePageOffset(tok)
			if err != nil {
				return fmt.Errorf("config line %d: %w", lineNumber, err)
			}
			c.Breakpoints = append(c.Breakpoints, pc)
		}

	case "input":
		for _, tok := range strings.Split(value, ",") {
			tok = strings.TrimSpace(tok)
			if tok == "" {
				continue
			}
			n, err := strconv.ParseUint(tok, 0, 16)
			if err != nil {
				return fmt.Errorf("config line %d: input value %q: %w", lineNumber, tok, err)
			}
			c.Input = append(c.Input, types.Word(n))
		}

	default:
		return fmt.Errorf("config line %d: unknown key %q", lineNumber, key)
	}
	return nil
}
