/*
 * nibvm - Main process.
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

package main

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	getopt "github.com/pborman/getopt/v2"

	"github.com/rcornwell/nibvm/assemble"
	"github.com/rcornwell/nibvm/ast"
	"github.com/rcornwell/nibvm/command/command"
	"github.com/rcornwell/nibvm/command/reader"
	"github.com/rcornwell/nibvm/config"
	"github.com/rcornwell/nibvm/cpu"
	"github.com/rcornwell/nibvm/driver"
	"github.com/rcornwell/nibvm/fifo"
	"github.com/rcornwell/nibvm/layout"
	"github.com/rcornwell/nibvm/types"
	debugutil "github.com/rcornwell/nibvm/util/debug"
	"github.com/rcornwell/nibvm/util/logger"
)

var Logger *slog.Logger

// demoProgram stands in for the source-text parser, which spec.md §1 places
// out of scope ("assumed to yield a typed line stream with byte spans").
// Until that external component exists, -source loading is not wired and
// the CLI exercises this built-in program so the full layout → assemble →
// simulate pipeline has something to run end to end.
func demoProgram() []ast.Line {
	var b ast.Builder
	b.RomPage(0).
		Value(3).
		Label("top").
		Decrement().
		UseFlags().
		Branch(types.CondZero, "end").
		Jump("top").
		Label("end").
		Pop(0).
		Return()
	return b.Lines()
}

func main() {
	optConfig := getopt.StringLong("config", 'c', "", "Configuration file")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optDebugFile := getopt.StringLong("debugfile", 'd', "", "Debug trace file")
	optSource := getopt.StringLong("source", 's', "", "Assembly source file (reserved; see -help)")
	optRate := getopt.StringLong("rate", 'r', "", "Instructions per second (0 or empty = unthrottled)")
	optBreak := getopt.StringLong("break", 'b', "", "Comma-separated breakpoints, page:offset")
	optDump := getopt.BoolLong("dump", 'u', "Dump assembled memory image and exit")
	optInteractive := getopt.BoolLong("interactive", 'i', "Drop into the interactive REPL instead of running to completion")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var logFile *os.File
	if *optLogFile != "" {
		logFile, _ = os.Create(*optLogFile)
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelInfo)
	Logger = slog.New(logger.NewHandler(logFile, &slog.HandlerOptions{Level: programLevel, AddSource: false}, new(bool)))
	slog.SetDefault(Logger)

	Logger.Info("nibvm started")

	var cfg config.Config
	if *optConfig != "" {
		loaded, err := config.Load(*optConfig)
		if err != nil {
			Logger.Error(err.Error())
			os.Exit(1)
		}
		cfg = *loaded
	}

	debugFile := *optDebugFile
	if debugFile == "" {
		debugFile = cfg.DebugFile
	}
	if debugFile != "" {
		if err := debugutil.Open(debugFile); err != nil {
			Logger.Error(err.Error())
			os.Exit(1)
		}
		defer debugutil.Close()
		debugutil.SetMask(cfg.DebugMask)
	}

	if *optSource != "" {
		Logger.Warn("-source is not wired to a text parser yet (spec.md §1 Non-goals); running the built-in demo program instead")
	}

	lay, err := layout.Layout(demoProgram())
	if err != nil {
		Logger.Error("layout: " + err.Error())
		os.Exit(1)
	}

	res, err := assemble.Assemble(lay)
	if err != nil {
		Logger.Error("assemble: " + err.Error())
		os.Exit(1)
	}

	if *optDump {
		if err := res.Memory.DumpHex(os.Stdout); err != nil {
			Logger.Error("dump: " + err.Error())
			os.Exit(1)
		}
		return
	}

	in := &fifo.Input{}
	out := &fifo.Output{}
	for _, w := range cfg.Input {
		in.Push(w)
	}

	sim := cpu.New(res.Memory, in, out)
	if cfg.MaxDataStackDepth > 0 {
		sim.SetMaxDataStackDepth(cfg.MaxDataStackDepth)
	}
	rate := cfg.InstructionsPerSecond
	if *optRate != "" {
		f, err := strconv.ParseFloat(*optRate, 64)
		if err != nil {
			Logger.Error("rate: " + err.Error())
			os.Exit(1)
		}
		rate = f
	}
	sim.SetInstructionsPerSecond(rate)

	d := driver.New(sim)
	for _, pc := range cfg.Breakpoints {
		d.SetBreakpoint(pc)
	}
	if *optBreak != "" {
		for _, bp := range strings.Split(*optBreak, ",") {
			pc, err := command.ParsePC(strings.TrimSpace(bp))
			if err != nil {
				Logger.Error("break: " + err.Error())
				os.Exit(1)
			}
			d.SetBreakpoint(pc)
		}
	}

	if *optInteractive {
		d.Start()
		defer d.Stop()
		reader.ConsoleReader(d)
		return
	}

	runToCompletion(d)
}

func runToCompletion(d *driver.Driver) {
	for {
		status, err := d.Step()
		if err != nil {
			Logger.Error("step: " + err.Error())
			os.Exit(1)
		}
		if status != cpu.StatusRunning {
			Logger.Info("run finished", "status", status.String(), "pc", d.PC().String())
			return
		}
	}
}

