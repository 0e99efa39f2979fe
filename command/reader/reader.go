// Package reader drives the interactive REPL: readline input via liner,
// dispatched through command.Process against a driver.Driver. Adapted
// near-verbatim from S370's command/reader.ConsoleReader, swapping the
// core.Core target for driver.Driver and the parser package for command.
package reader

/*
 * nibvm - Console command reader
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
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/peterh/liner"
	"github.com/rcornwell/nibvm/command/command"
	"github.com/rcornwell/nibvm/driver"
)

// ConsoleReader runs the REPL until the user quits or aborts (Ctrl-D).
func ConsoleReader(d *driver.Driver) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(func(partial string) []string {
		var out []string
		for _, name := range command.Names {
			if strings.HasPrefix(name, partial) {
				out = append(out, name)
			}
		}
		return out
	})

	for {
		text, err := line.Prompt("nibvm> ")
		if err == nil {
			line.AppendHistory(text)
			quit, err := command.Process(text, d)
			if err != nil {
				fmt.Println("Error: " + err.Error())
			}
			if quit {
				return
			}
			continue
		}

		if errors.Is(err, liner.ErrPromptAborted) {
			return
		}
		slog.Error("error reading line: " + err.Error())
		return
	}
}
