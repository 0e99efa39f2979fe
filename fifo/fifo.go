// Package fifo implements the two shared queues the driver and the UI/IO
// actor exchange data through (spec.md §5): the input FIFO (words the
// program reads with INPUT) and the output FIFO (path/word pairs the
// program writes with OUTPUT). Both are mutex-guarded rather than
// channel-based, matching spec.md §5's "each behind its own sync.Mutex"
// shared-resource policy — the driver polls non-blockingly (INPUT must be
// able to report WaitingForInput instead of blocking the whole actor).
package fifo

/*
 * nibvm - Input/output FIFOs
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
	"sync"

	"github.com/rcornwell/nibvm/types"
)

// OutputBacklogLimit is the depth at which the driver stalls rather than
// letting the output FIFO grow unbounded (spec.md §5 "Backpressure").
const OutputBacklogLimit = 1000

// Input is the word-valued FIFO INPUT pops from.
type Input struct {
	mu    sync.Mutex
	items []types.Word
}

// Push enqueues a value for the program to INPUT. Called by the UI/IO actor.
func (f *Input) Push(v types.Word) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, v)
}

// Pop removes and returns the oldest value, or ok=false if empty.
func (f *Input) Pop() (types.Word, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.items) == 0 {
		return 0, false
	}
	v := f.items[0]
	f.items = f.items[1:]
	return v, true
}

// Len reports the number of values currently queued.
func (f *Input) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// Output is the (path, word) pair queue OUTPUT pushes into (spec.md §6.3).
type Output struct {
	mu    sync.Mutex
	items []OutputEntry
}

// OutputEntry is one emitted (path, word) pair.
type OutputEntry struct {
	Path []types.OctDigit
	Word types.Word
}

// Push enqueues an OUTPUT result. Called by the driver during step().
func (f *Output) Push(e OutputEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, e)
}

// Pop removes and returns the oldest entry, or ok=false if empty. Called by
// the UI/IO actor to drain emitted output.
func (f *Output) Pop() (OutputEntry, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.items) == 0 {
		return OutputEntry{}, false
	}
	e := f.items[0]
	f.items = f.items[1:]
	return e, true
}

// Len reports the number of entries currently queued, used by the driver to
// decide whether to stall on backpressure (spec.md §5).
func (f *Output) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}
