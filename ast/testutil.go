package ast

import "github.com/rcornwell/nibvm/types"

// Line-builder helpers standing in for the external text-format parser
// (spec.md §1), so layout/assemble/cpu tests can construct Line values
// directly. Spans are synthesized from a running counter rather than real
// byte offsets since no text backs these lines.

// Builder accumulates Lines with monotonically increasing synthetic spans.
type Builder struct {
	lines []Line
	pos   int
}

func (b *Builder) add(p Payload) *Builder {
	start := b.pos
	b.pos += 8
	b.lines = append(b.lines, Line{Span: Span{Start: start, End: b.pos}, Payload: p})
	return b
}

// Lines returns the accumulated line stream.
func (b *Builder) Lines() []Line { return b.lines }

func (b *Builder) RomPage(page types.Nibble) *Builder {
	return b.add(RomPage{Page: here(b, page)})
}

func (b *Builder) RamPage() *Builder { return b.add(RamPage{}) }
func (b *Builder) Data() *Builder    { return b.add(Data{}) }
func (b *Builder) UseFlags() *Builder { return b.add(UseFlags{}) }

func (b *Builder) Label(name string) *Builder {
	return b.add(Label{Name: here(b, name)})
}

func (b *Builder) Constant(name string, value *uint16) *Builder {
	return b.add(Constant{Name: here(b, name), Value: here(b, value)})
}

func (b *Builder) Pass() *Builder       { return b.add(Pass{}) }
func (b *Builder) Return() *Builder     { return b.add(Return{}) }
func (b *Builder) Input() *Builder      { return b.add(Input{}) }
func (b *Builder) RawRamCall() *Builder { return b.add(RawRamCall{}) }

func (b *Builder) Duplicate() *Builder      { return b.add(Duplicate{}) }
func (b *Builder) Not() *Builder            { return b.add(Not{}) }
func (b *Builder) Read() *Builder           { return b.add(Read{}) }
func (b *Builder) ReadPop() *Builder        { return b.add(ReadPop{}) }
func (b *Builder) Increment() *Builder      { return b.add(Increment{}) }
func (b *Builder) IncrementCarry() *Builder { return b.add(IncrementCarry{}) }
func (b *Builder) Decrement() *Builder      { return b.add(Decrement{}) }
func (b *Builder) DecrementCarry() *Builder { return b.add(DecrementCarry{}) }
func (b *Builder) Negate() *Builder         { return b.add(Negate{}) }
func (b *Builder) NegateCarry() *Builder    { return b.add(NegateCarry{}) }
func (b *Builder) NoopSetFlags() *Builder   { return b.add(NoopSetFlags{}) }
func (b *Builder) PopSetFlags() *Builder    { return b.add(PopSetFlags{}) }
func (b *Builder) RightShift() *Builder        { return b.add(RightShift{}) }
func (b *Builder) RightShiftCarry() *Builder   { return b.add(RightShiftCarry{}) }
func (b *Builder) RightShiftOneIn() *Builder   { return b.add(RightShiftOneIn{}) }
func (b *Builder) ArithRightShift() *Builder   { return b.add(ArithRightShift{}) }

func (b *Builder) Push(r types.Register) *Builder { return b.add(Push{Reg: here(b, r)}) }
func (b *Builder) Pop(r types.Register) *Builder  { return b.add(Pop{Reg: here(b, r)}) }
func (b *Builder) Add(r types.Register) *Builder  { return b.add(Add{Reg: here(b, r)}) }

func (b *Builder) Swap(r types.Register) *Builder     { return b.add(Swap{Reg: here(b, r)}) }
func (b *Builder) Sub(r types.Register) *Builder      { return b.add(Sub{Reg: here(b, r)}) }
func (b *Builder) Write(r types.Register) *Builder    { return b.add(Write{Reg: here(b, r)}) }
func (b *Builder) WritePop(r types.Register) *Builder { return b.add(WritePop{Reg: here(b, r)}) }
func (b *Builder) And(r types.Register) *Builder      { return b.add(And{Reg: here(b, r)}) }
func (b *Builder) Nand(r types.Register) *Builder     { return b.add(Nand{Reg: here(b, r)}) }
func (b *Builder) Or(r types.Register) *Builder       { return b.add(Or{Reg: here(b, r)}) }
func (b *Builder) Nor(r types.Register) *Builder      { return b.add(Nor{Reg: here(b, r)}) }
func (b *Builder) Xor(r types.Register) *Builder      { return b.add(Xor{Reg: here(b, r)}) }
func (b *Builder) NXor(r types.Register) *Builder     { return b.add(NXor{Reg: here(b, r)}) }
func (b *Builder) RegSetFlags(r types.Register) *Builder { return b.add(RegSetFlags{Reg: here(b, r)}) }
func (b *Builder) Compare(r types.Register) *Builder  { return b.add(Compare{Reg: here(b, r)}) }
func (b *Builder) SwapAdd(r types.Register) *Builder  { return b.add(SwapAdd{Reg: here(b, r)}) }
func (b *Builder) SwapSub(r types.Register) *Builder  { return b.add(SwapSub{Reg: here(b, r)}) }
func (b *Builder) AddCarry(r types.Register) *Builder { return b.add(AddCarry{Reg: here(b, r)}) }
func (b *Builder) SubCarry(r types.Register) *Builder { return b.add(SubCarry{Reg: here(b, r)}) }

func (b *Builder) Rotate(shift types.Nibble, reg types.Register) *Builder {
	return b.add(Rotate{Shift: here(b, shift), Register: here(b, reg)})
}

func (b *Builder) Value(v uint16) *Builder {
	vv := v
	return b.add(Value{Immediate: here(b, &vv)})
}

func (b *Builder) ValueOverflow() *Builder {
	return b.add(Value{Immediate: here[*uint16](b, nil)})
}

func (b *Builder) Jump(label string) *Builder {
	return b.add(Jump{Label: here(b, label)})
}

func (b *Builder) Call(label string) *Builder {
	return b.add(Call{Label: here(b, label)})
}

func (b *Builder) Branch(cond types.Condition, label string) *Builder {
	return b.add(Branch{Cond: here(b, cond), Label: here(b, label)})
}

func (b *Builder) Output(path ...types.OctDigit) *Builder {
	ps := make([]Positioned[types.OctDigit], len(path))
	for i, d := range path {
		ps[i] = here(b, d)
	}
	return b.add(Output{Path: ps})
}

func (b *Builder) Address(label string) *Builder {
	return b.add(Address{Label: here(b, label)})
}

func (b *Builder) Alloc(n uint16) *Builder {
	nn := n
	return b.add(Alloc{Count: here(b, &nn)})
}

func (b *Builder) Raw(nibbles ...types.Nibble) *Builder {
	ps := make([]Positioned[types.Nibble], len(nibbles))
	for i, n := range nibbles {
		ps[i] = here(b, n)
	}
	return b.add(Raw{Nibbles: ps})
}

func here[T any](b *Builder, v T) Positioned[T] {
	return Pos(b.pos, b.pos, v)
}
