package assemble

// flagSource is one candidate origin of the flags a BRANCH might observe:
// the offset within its page where the producing instruction was emitted,
// and the source line, for editor cross-references (spec.md §4.2.4).
type flagSource struct {
	Offset int
	Line   int
}

// FlagsState is the candidate-set representation spec.md §4.2.4 calls for:
// multi-valued so control-flow joins at labels can be modeled as the union
// of every path's flag origin.
type FlagsState map[flagSource]struct{}

func emptyFlags() FlagsState { return FlagsState{} }

func singleFlags(src flagSource) FlagsState {
	return FlagsState{src: struct{}{}}
}

func (s FlagsState) isEmpty() bool { return len(s) == 0 }

func (s FlagsState) equal(o FlagsState) bool {
	if len(s) != len(o) {
		return false
	}
	for k := range s {
		if _, ok := o[k]; !ok {
			return false
		}
	}
	return true
}

func (s FlagsState) union(o FlagsState) FlagsState {
	out := make(FlagsState, len(s)+len(o))
	for k := range s {
		out[k] = struct{}{}
	}
	for k := range o {
		out[k] = struct{}{}
	}
	return out
}

// flagQueue is the 6-stage delay pipeline. Slot 0 is "front" (just produced,
// straight out of the ALU); slot 5 is "back" (what BRANCH reads) — spec.md §3.
type flagQueue struct {
	slots [6]FlagsState
}

func newFlagQueue() flagQueue {
	var q flagQueue
	for i := range q.slots {
		q.slots[i] = emptyFlags()
	}
	return q
}

// push prepends newFront and drops the old back, per spec.md §4.2.1
// ("shifts the flag delay queue by one").
func (q *flagQueue) push(newFront FlagsState) {
	copy(q.slots[1:], q.slots[:5])
	q.slots[0] = newFront
}

func (q *flagQueue) back() FlagsState { return q.slots[5] }

// flushTo overwrites every slot with state (spec.md §4.2.4 flush_flags()).
func (q *flagQueue) flushTo(state FlagsState) {
	for i := range q.slots {
		q.slots[i] = state
	}
}

// unionAll merges state into every slot (spec.md §4.2.4 set_possible_flushed_flags).
func (q *flagQueue) unionAll(state FlagsState) {
	for i := range q.slots {
		q.slots[i] = q.slots[i].union(state)
	}
}

// writeBack overwrites the back-most k slots with state, the symbolic
// counterpart of the simulator's flag write-back (spec.md §4.4, k ∈ {2,3}).
// The encoder does not call it; the simulator uses cpu's own flagDelay.
func (q *flagQueue) writeBack(k int, state FlagsState) {
	for i := 6 - k; i < 6; i++ {
		q.slots[i] = state
	}
}

// distanceFromBack scans from back toward front looking for target,
// returning the number of pushes needed before target would sit at back
// (spec.md §4.2.4 wait_for_flags).
func (q *flagQueue) distanceFromBack(target FlagsState) (int, bool) {
	for i := 5; i >= 0; i-- {
		if q.slots[i].equal(target) {
			return 5 - i, true
		}
	}
	return 0, false
}

// useflagSnapshot is the state captured by a `.USEFLAGS` meta line.
type useflagSnapshot struct {
	flags FlagsState
	line  int
}

// pageFlags is the per-page flag-pipeline state (spec.md §4.2 "Per-page
// state": flag_as_set, flag_delay_queue). ROM pages persist one of these
// across every `..ROM n` bucket sharing page n; RAM pages get a fresh one
// per bucket.
type pageFlags struct {
	flagAsSet FlagsState
	delay     flagQueue
	useflag   *useflagSnapshot
}

func newPageFlags() *pageFlags {
	return &pageFlags{flagAsSet: emptyFlags(), delay: newFlagQueue()}
}

// setPossibleFlushedFlags implements spec.md §4.2.4's union-update for
// instructions with non-deterministic flag state at completion: CALL,
// ROMCALL, RAMCALL, raw-RAM-call, label definitions, and — generalizing the
// opcode table's "no (unknown)" column uniformly — INPUT and OUTPUT too
// (see DESIGN.md Open Question 2).
func (pf *pageFlags) setPossibleFlushedFlags(offset uint8, line int) {
	src := singleFlags(flagSource{Offset: int(offset), Line: line})
	pf.flagAsSet = pf.flagAsSet.union(src)
	pf.delay.unionAll(src)
}

// flushFlags implements spec.md §4.2.4's flush_flags(): CALL, ROMCALL,
// RAMCALL, and BRANCH overwrite every delay-queue slot with flag_as_set.
func (pf *pageFlags) flushFlags() {
	pf.delay.flushTo(pf.flagAsSet)
}
