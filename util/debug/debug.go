// Package debug logs gated trace output to a file set up by config.
// Ported from S370's device/channel-keyed Debugf family, re-keyed for this
// module's two tracing domains: assembly (layout/flag-queue decisions) and
// simulation (per-instruction state) — see DESIGN.md.
package debug

/*
 * nibvm - Log debug data to a file
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
	"os"
)

var (
	logFile *os.File
	mask    int
)

// Trace-category bits for the debug_mask config directive / Debugf's and
// InstrTracef's level argument (SPEC_FULL.md §3.3). A message is written
// only when mask&level is non-zero, the same gating convention the original
// Debugf/DebugDevf/DebugChanf family used.
const (
	LevelAssembleFlags = 1 << iota // flag-delay pipeline decisions (assemble)
	LevelInstr                     // per-instruction trace (simulate)
)

// Open points future Debugf/InstrTracef calls at fileName, truncating it.
func Open(fileName string) error {
	if logFile != nil {
		return fmt.Errorf("debug file already open: %s", logFile.Name())
	}
	file, err := os.Create(fileName)
	if err != nil {
		return fmt.Errorf("unable to create debug file: %s: %w", fileName, err)
	}
	logFile = file
	return nil
}

// Close releases the debug file, if one was opened.
func Close() error {
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

// SetMask sets the trace-category bitmask gating Debugf/InstrTracef, as
// loaded from the config file's debug_mask directive.
func SetMask(m int) { mask = m }

// Debugf writes a gated message tagged with stage ("assemble" or
// "simulate") when mask&level is non-zero.
func Debugf(stage string, level int, format string, a ...interface{}) {
	if logFile == nil || (mask&level) == 0 {
		return
	}
	fmt.Fprintf(logFile, stage+": "+format+"\n", a...)
}

// InstrTracef traces one executed instruction at a program pointer.
func InstrTracef(level int, page string, offset uint8, format string, a ...interface{}) {
	if logFile == nil || (mask&level) == 0 {
		return
	}
	prefix := fmt.Sprintf("simulate %s:%02x: ", page, offset)
	fmt.Fprintf(logFile, prefix+format+"\n", a...)
}
