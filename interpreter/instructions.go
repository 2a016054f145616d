package interpreter

import (
	"github.com/elmattic/psyche-sub000/stack"
	"github.com/elmattic/psyche-sub000/u256"
)

// Every two-operand handler below pops its first operand as the value
// that was on top of the stack — the "major"/left-hand operand of the
// operation (opSub computes x-y where x is popped first). This mirrors
// the teacher's instructions_test.go convention: callers push the
// right-hand operand first, then the left-hand operand, so the left
// operand ends up on top and is popped first.

func opStop(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	return nil, errHalt
}

func opAdd(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	x := scope.Stack.Pop()
	y := scope.Stack.Pop()
	u256.Add(&x, &x, &y)
	scope.Stack.Push(&x)
	*pc++
	return nil, nil
}

func opMul(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	x := scope.Stack.Pop()
	y := scope.Stack.Pop()
	u256.Mul(&x, &x, &y)
	scope.Stack.Push(&x)
	*pc++
	return nil, nil
}

func opSub(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	x := scope.Stack.Pop()
	y := scope.Stack.Pop()
	u256.Sub(&x, &x, &y)
	scope.Stack.Push(&x)
	*pc++
	return nil, nil
}

func opDiv(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	x := scope.Stack.Pop()
	y := scope.Stack.Pop()
	u256.Div(&x, &x, &y)
	scope.Stack.Push(&x)
	*pc++
	return nil, nil
}

func opSDiv(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	x := scope.Stack.Pop()
	y := scope.Stack.Pop()
	u256.SDiv(&x, &x, &y)
	scope.Stack.Push(&x)
	*pc++
	return nil, nil
}

func opMod(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	x := scope.Stack.Pop()
	y := scope.Stack.Pop()
	u256.Mod(&x, &x, &y)
	scope.Stack.Push(&x)
	*pc++
	return nil, nil
}

func opSMod(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	x := scope.Stack.Pop()
	y := scope.Stack.Pop()
	u256.SMod(&x, &x, &y)
	scope.Stack.Push(&x)
	*pc++
	return nil, nil
}

func opAddMod(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	x := scope.Stack.Pop()
	y := scope.Stack.Pop()
	m := scope.Stack.Pop()
	u256.AddMod(&x, &x, &y, &m)
	scope.Stack.Push(&x)
	*pc++
	return nil, nil
}

func opMulMod(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	x := scope.Stack.Pop()
	y := scope.Stack.Pop()
	m := scope.Stack.Pop()
	u256.MulMod(&x, &x, &y, &m)
	scope.Stack.Push(&x)
	*pc++
	return nil, nil
}

// opExp: stack order is base on top (popped first), exponent below it.
func opExp(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	base := scope.Stack.Pop()
	exponent := scope.Stack.Pop()
	u256.Exp(&base, &base, &exponent)
	scope.Stack.Push(&base)
	*pc++
	return nil, nil
}

// opSignExtend: stack order is b on top (popped first), x below it.
func opSignExtend(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	b := scope.Stack.Pop()
	x := scope.Stack.Pop()
	u256.SignExtend(&x, &b, &x)
	scope.Stack.Push(&x)
	*pc++
	return nil, nil
}

func opLt(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	x := scope.Stack.Pop()
	y := scope.Stack.Pop()
	result := u256.Lt(&x, &y)
	u256.BoolToInt(&x, result)
	scope.Stack.Push(&x)
	*pc++
	return nil, nil
}

func opGt(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	x := scope.Stack.Pop()
	y := scope.Stack.Pop()
	result := u256.Gt(&x, &y)
	u256.BoolToInt(&x, result)
	scope.Stack.Push(&x)
	*pc++
	return nil, nil
}

func opSlt(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	x := scope.Stack.Pop()
	y := scope.Stack.Pop()
	result := u256.Slt(&x, &y)
	u256.BoolToInt(&x, result)
	scope.Stack.Push(&x)
	*pc++
	return nil, nil
}

func opSgt(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	x := scope.Stack.Pop()
	y := scope.Stack.Pop()
	result := u256.Sgt(&x, &y)
	u256.BoolToInt(&x, result)
	scope.Stack.Push(&x)
	*pc++
	return nil, nil
}

func opEq(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	x := scope.Stack.Pop()
	y := scope.Stack.Pop()
	result := u256.Eq(&x, &y)
	u256.BoolToInt(&x, result)
	scope.Stack.Push(&x)
	*pc++
	return nil, nil
}

func opIsZero(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	x := scope.Stack.Pop()
	result := u256.IsZero(&x)
	u256.BoolToInt(&x, result)
	scope.Stack.Push(&x)
	*pc++
	return nil, nil
}

func opAnd(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	x := scope.Stack.Pop()
	y := scope.Stack.Pop()
	u256.And(&x, &x, &y)
	scope.Stack.Push(&x)
	*pc++
	return nil, nil
}

func opOr(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	x := scope.Stack.Pop()
	y := scope.Stack.Pop()
	u256.Or(&x, &x, &y)
	scope.Stack.Push(&x)
	*pc++
	return nil, nil
}

func opXor(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	x := scope.Stack.Pop()
	y := scope.Stack.Pop()
	u256.Xor(&x, &x, &y)
	scope.Stack.Push(&x)
	*pc++
	return nil, nil
}

func opNot(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	x := scope.Stack.Pop()
	u256.Not(&x, &x)
	scope.Stack.Push(&x)
	*pc++
	return nil, nil
}

// opByte: stack order is i on top (popped first), x below it.
func opByte(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	i := scope.Stack.Pop()
	x := scope.Stack.Pop()
	u256.Byte(&x, &i, &x)
	scope.Stack.Push(&x)
	*pc++
	return nil, nil
}

// opShl: stack order is the shift count on top (popped first), the
// value below it.
func opShl(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	n := scope.Stack.Pop()
	x := scope.Stack.Pop()
	u256.Shl(&x, &n, &x)
	scope.Stack.Push(&x)
	*pc++
	return nil, nil
}

func opShr(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	n := scope.Stack.Pop()
	x := scope.Stack.Pop()
	u256.Shr(&x, &n, &x)
	scope.Stack.Push(&x)
	*pc++
	return nil, nil
}

func opSar(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	n := scope.Stack.Pop()
	x := scope.Stack.Pop()
	u256.Sar(&x, &n, &x)
	scope.Stack.Push(&x)
	*pc++
	return nil, nil
}

// opSha3: stack order is offset on top (popped first), size below it.
// gasSha3 has already extended memory to cover [offset, offset+size).
func opSha3(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	offset := scope.Stack.Pop()
	size := scope.Stack.Pop()
	off, _ := toUint64Checked(&offset)
	sz, _ := toUint64Checked(&size)

	data := scope.Memory.Slice(off, sz)
	digest := u256.Keccak256(data)
	scope.Stack.Push(digest)
	*pc++
	return nil, nil
}

func opPop(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	scope.Stack.Pop()
	*pc++
	return nil, nil
}

// opMLoad: gasMLoad has already extended memory to cover [offset,
// offset+32).
func opMLoad(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	offset := scope.Stack.Pop()
	off, _ := toUint64Checked(&offset)
	val := scope.Memory.Read(off)
	scope.Stack.Push(&val)
	*pc++
	return nil, nil
}

// opMStore: stack order is offset on top (popped first), value below it.
func opMStore(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	offset := scope.Stack.Pop()
	val := scope.Stack.Pop()
	off, _ := toUint64Checked(&offset)
	scope.Memory.Write(off, &val)
	*pc++
	return nil, nil
}

func opMStore8(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	offset := scope.Stack.Pop()
	val := scope.Stack.Pop()
	off, _ := toUint64Checked(&offset)
	scope.Memory.WriteByte(off, byte(val.Uint64()))
	*pc++
	return nil, nil
}

// opJump: pop addr; it must be in range, store JUMPDEST, and not lie
// inside a PUSH immediate (§4.4). The target's own address is where
// rom.Build keys the new block's BbInfo (a fragment splits before every
// JUMPDEST, not after it), so pc resumes at addr, not addr+1, letting
// the next loop iteration's block-entry check fire at the JUMPDEST and
// then dispatch it as the genuine no-op it is.
func opJump(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	addrVal := scope.Stack.Pop()
	addr, ok := toUint64Checked(&addrVal)
	if !ok || !in.rom.IsValidDest(addr) {
		return nil, ErrInvalidJumpDest
	}
	*pc = addr
	return nil, nil
}

// opJumpi: stack order is addr on top (popped first), cond below it.
// See opJump for why pc resumes at addr, not addr+1.
func opJumpi(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	addrVal := scope.Stack.Pop()
	cond := scope.Stack.Pop()
	if u256.IsZero(&cond) {
		*pc++
		return nil, nil
	}
	addr, ok := toUint64Checked(&addrVal)
	if !ok || !in.rom.IsValidDest(addr) {
		return nil, ErrInvalidJumpDest
	}
	*pc = addr
	return nil, nil
}

func opPc(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	val := u256.New(*pc)
	scope.Stack.Push(val)
	*pc++
	return nil, nil
}

func opMsize(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	val := u256.New(uint64(scope.Memory.SizeInBytes()))
	scope.Stack.Push(val)
	*pc++
	return nil, nil
}

func opGas(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	val := u256.New(in.gas)
	scope.Stack.Push(val)
	*pc++
	return nil, nil
}

func opJumpdest(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	*pc++
	return nil, nil
}

// opBeginSub: a run only ever executes BEGINSUB by falling straight
// into it (JUMPSUB lands one byte past it, at addr+1), which §4.4
// defines as always fatal.
func opBeginSub(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	return nil, ErrBeginSubEntry
}

// opJumpSub: return-stack overflow is checked before target validity
// (§9's Open Question, resolved return-stack-first). Unlike opJump,
// pc resumes at addr+1, one byte past BEGINSUB itself: dispatching
// BEGINSUB always raises ErrBeginSubEntry (opBeginSub), so a taken
// JUMPSUB must skip over it. rom.Build gives the byte right after
// BEGINSUB its own BbInfo entry for exactly this landing spot.
func opJumpSub(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	addrVal := scope.Stack.Pop()
	if scope.ReturnStack.Len() >= stack.MaxReturnStackSize {
		return nil, ErrReturnStackOverflow
	}
	addr, ok := toUint64Checked(&addrVal)
	if !ok || !in.rom.IsValidSubEntry(addr) {
		return nil, ErrInvalidBeginSub
	}
	scope.ReturnStack.Push(uint32(*pc + 1))
	*pc = addr + 1
	return nil, nil
}

func opReturnSub(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if scope.ReturnStack.Len() == 0 {
		return nil, ErrReturnStackUnderflow
	}
	*pc = uint64(scope.ReturnStack.Pop())
	return nil, nil
}

// makePush returns the PUSHn handler: read n bytes as a big-endian
// integer (ROM stores them byte-reversed for a native load, so
// ImmediateAt's result is un-reversed here), push, advance pc by 1+n.
func makePush(n int) executionFunc {
	return func(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
		imm := in.rom.ImmediateAt(*pc, n)
		var buf [32]byte
		k := len(imm)
		for i := 0; i < k; i++ {
			buf[32-k+i] = imm[k-1-i]
		}
		var val u256.Int
		val.SetBytes(buf[:])
		scope.Stack.Push(&val)
		*pc += uint64(1 + n)
		return nil, nil
	}
}

func makeDup(n int) executionFunc {
	return func(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
		scope.Stack.Dup(n)
		*pc++
		return nil, nil
	}
}

// makeSwap returns the SWAPn handler. Stack.Swap is 1-based against
// the top slot itself (Swap(1) is a no-op); SWAPn exchanges the top
// with the (n+1)-from-top element, so it calls Swap(n+1).
func makeSwap(n int) executionFunc {
	return func(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
		scope.Stack.Swap(n + 1)
		*pc++
		return nil, nil
	}
}

// opReturn: stack order is offset on top (popped first), size below
// it. gasReturn has already extended memory to cover the window.
func opReturn(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	offsetVal := scope.Stack.Pop()
	sizeVal := scope.Stack.Pop()
	offset, _ := toUint64Checked(&offsetVal)
	size, _ := toUint64Checked(&sizeVal)
	in.lastReturnOffset = offset
	in.lastReturnSize = size
	ret := scope.Memory.GetCopy(int64(offset), int64(size))
	return ret, errHalt
}

func opInvalid(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	return nil, ErrInvalidInstruction
}

// opUnsupported is the fatal-unimplemented arm every host/account/log/
// call opcode routes to (§4.4, §9): this build never executes them, so
// it reuses InvalidInstruction as the deterministic trap rather than
// inventing a tenth error kind outside §7's closed taxonomy.
func opUnsupported(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	return nil, ErrInvalidInstruction
}
