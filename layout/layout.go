// Package layout implements the page layouter (spec.md §4.1): it partitions
// a positioned line stream into ordered page buckets and builds the
// label-to-owning-page symbol table the assembler consumes.
package layout

import (
	"fmt"

	"github.com/rcornwell/nibvm/ast"
	"github.com/rcornwell/nibvm/types"
)

// Bucket is one `(AssemblyPageIdent, []Line)` grouping of source.
type Bucket struct {
	Page  types.AssemblyPageIdent
	Lines []ast.Line
}

// Result is the layouter's output: the ordered page buckets plus the
// page-local and RAM-data label symbol tables (spec.md §4.1 "Output").
type Result struct {
	Pages []Bucket

	// LabelToPage maps labels defined inside Prog (Rom/Ram) buckets to the
	// bucket that owns them.
	LabelToPage map[string]types.AssemblyPageIdent

	// DataLabels is the set of labels defined inside Data buckets. They are
	// not page-owned; the assembler resolves them to RAM word addresses.
	DataLabels map[string]struct{}
}

// SourceSpans returns the source-text interval of every line belonging to
// the given page, across all buckets sharing that identity (spec.md §4.1:
// "a helper that returns the set of source-text intervals a page occupies",
// for editor error-highlighting).
func (r *Result) SourceSpans(page types.AssemblyPageIdent) []ast.Span {
	var spans []ast.Span
	for _, b := range r.Pages {
		if b.Page != page {
			continue
		}
		for _, line := range b.Lines {
			spans = append(spans, line.Span)
		}
	}
	return spans
}

// DuplicateLabelError reports a label defined more than once in Prog buckets.
type DuplicateLabelError struct {
	Line  int
	Label string
}

func (e *DuplicateLabelError) Error() string {
	return fmt.Sprintf("line %d: duplicate label %q", e.Line, e.Label)
}

// MissingPageStartError reports a command/meta line before any section
// directive (`..ROM`/`..RAM`/`..DATA`) has been seen.
type MissingPageStartError struct {
	Line int
}

func (e *MissingPageStartError) Error() string {
	return fmt.Sprintf("line %d: no active page (missing ..ROM/..RAM/..DATA)", e.Line)
}

// Layout partitions lines into page buckets in source order (spec.md §4.1).
func Layout(lines []ast.Line) (*Result, error) {
	res := &Result{
		LabelToPage: make(map[string]types.AssemblyPageIdent),
		DataLabels:  make(map[string]struct{}),
	}

	var current types.AssemblyPageIdent
	haveCurrent := false
	var ramCounter, dataCounter uint32

	pushBucket := func(ident types.AssemblyPageIdent) {
		res.Pages = append(res.Pages, Bucket{Page: ident})
		current = ident
		haveCurrent = true
	}

	for _, line := range lines {
		switch m := line.Payload.(type) {
		case ast.RomPage:
			pushBucket(types.RomIdent(m.Page.Value))
			continue
		case ast.RamPage:
			pushBucket(types.RamIdent(ramCounter))
			ramCounter++
			continue
		case ast.Data:
			pushBucket(types.DataIdent(dataCounter))
			dataCounter++
			continue
		}

		if !haveCurrent {
			return nil, &MissingPageStartError{Line: line.Start}
		}

		if lbl, ok := line.Payload.(ast.Label); ok {
			if current.Kind == types.PageData {
				res.DataLabels[lbl.Name.Value] = struct{}{}
			} else {
				if _, exists := res.LabelToPage[lbl.Name.Value]; exists {
					return nil, &DuplicateLabelError{Line: line.Start, Label: lbl.Name.Value}
				}
				res.LabelToPage[lbl.Name.Value] = current
			}
		}

		last := &res.Pages[len(res.Pages)-1]
		last.Lines = append(last.Lines, line)
	}

	return res, nil
}
