package interpreter

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"

	"github.com/elmattic/psyche-sub000/memory"
	"github.com/elmattic/psyche-sub000/opcodes"
	"github.com/elmattic/psyche-sub000/params"
	"github.com/elmattic/psyche-sub000/rom"
	"github.com/elmattic/psyche-sub000/stack"
)

type twoOperandTest struct {
	name     string
	x, y     *big.Int
	expected *big.Int
}

// testTwoOperandOp pushes y then x (so x, the "major" operand, ends up
// on top and is popped first — see instructions.go's package comment),
// runs opFn, and checks the single value left on the stack.
func testTwoOperandOp(t *testing.T, opFn executionFunc, tests []twoOperandTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := stack.New()
			defer stack.ReturnNormalStack(s)

			x := new(uint256.Int).SetFromBig(tt.x)
			y := new(uint256.Int).SetFromBig(tt.y)
			s.Push(y)
			s.Push(x)

			scope := &ScopeContext{Stack: s}
			pc := uint64(0)
			if _, err := opFn(&pc, nil, scope); err != nil {
				t.Fatalf("opFn: %v", err)
			}

			result := s.Pop()
			expected := new(uint256.Int).SetFromBig(tt.expected)
			if result.Cmp(expected) != 0 {
				t.Errorf("result = %v, want %v", &result, expected)
			}
			if pc != 1 {
				t.Errorf("pc = %d, want 1", pc)
			}
		})
	}
}

func TestOpAdd(t *testing.T) {
	testTwoOperandOp(t, opAdd, []twoOperandTest{
		{"simple", big.NewInt(5), big.NewInt(3), big.NewInt(8)},
		{"zero_plus_zero", big.NewInt(0), big.NewInt(0), big.NewInt(0)},
		{"large_numbers", big.NewInt(1000000), big.NewInt(2000000), big.NewInt(3000000)},
	})
}

func TestOpSub(t *testing.T) {
	testTwoOperandOp(t, opSub, []twoOperandTest{
		{"simple", big.NewInt(10), big.NewInt(3), big.NewInt(7)},
		{"result_zero", big.NewInt(5), big.NewInt(5), big.NewInt(0)},
		{
			"from_zero",
			big.NewInt(0), big.NewInt(5),
			new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(5)),
		},
	})
}

func TestOpMul(t *testing.T) {
	testTwoOperandOp(t, opMul, []twoOperandTest{
		{"simple", big.NewInt(6), big.NewInt(7), big.NewInt(42)},
		{"by_zero", big.NewInt(0), big.NewInt(100), big.NewInt(0)},
	})
}

func TestOpDivByZeroIsZero(t *testing.T) {
	testTwoOperandOp(t, opDiv, []twoOperandTest{
		{"by_zero", big.NewInt(10), big.NewInt(0), big.NewInt(0)},
		{"simple", big.NewInt(10), big.NewInt(2), big.NewInt(5)},
	})
}

func TestOpMod(t *testing.T) {
	testTwoOperandOp(t, opMod, []twoOperandTest{
		{"simple", big.NewInt(10), big.NewInt(3), big.NewInt(1)},
		{"by_zero", big.NewInt(10), big.NewInt(0), big.NewInt(0)},
	})
}

func TestOpLt(t *testing.T) {
	testTwoOperandOp(t, opLt, []twoOperandTest{
		{"true", big.NewInt(3), big.NewInt(5), big.NewInt(1)},
		{"false", big.NewInt(5), big.NewInt(3), big.NewInt(0)},
		{"equal", big.NewInt(5), big.NewInt(5), big.NewInt(0)},
	})
}

func TestOpEq(t *testing.T) {
	testTwoOperandOp(t, opEq, []twoOperandTest{
		{"equal", big.NewInt(5), big.NewInt(5), big.NewInt(1)},
		{"not_equal", big.NewInt(5), big.NewInt(3), big.NewInt(0)},
	})
}

func TestOpAnd(t *testing.T) {
	testTwoOperandOp(t, opAnd, []twoOperandTest{
		{"simple", big.NewInt(0b1100), big.NewInt(0b1010), big.NewInt(0b1000)},
	})
}

func TestOpShl(t *testing.T) {
	// opShl: n (shift count) popped first, x second — pushed x then n.
	s := stack.New()
	defer stack.ReturnNormalStack(s)
	x := uint256.NewInt(1)
	n := uint256.NewInt(255)
	s.Push(x)
	s.Push(n)

	scope := &ScopeContext{Stack: s}
	pc := uint64(0)
	if _, err := opShl(&pc, nil, scope); err != nil {
		t.Fatalf("opShl: %v", err)
	}
	result := s.Pop()
	want := new(uint256.Int).Lsh(uint256.NewInt(1), 255)
	if result.Cmp(want) != 0 {
		t.Errorf("result = %v, want %v", &result, want)
	}
}

func TestOpPop(t *testing.T) {
	s := stack.New()
	defer stack.ReturnNormalStack(s)
	s.Push(uint256.NewInt(1))
	s.Push(uint256.NewInt(2))

	scope := &ScopeContext{Stack: s}
	pc := uint64(0)
	if _, err := opPop(&pc, nil, scope); err != nil {
		t.Fatalf("opPop: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("len = %d, want 1", s.Len())
	}
	if s.Peek().Uint64() != 1 {
		t.Errorf("top = %v, want 1", s.Peek())
	}
}

func TestOpMStoreThenMLoad(t *testing.T) {
	schedule := params.NewSchedule(params.Berlin)
	mem, err := memory.NewMemory(1000000, schedule)
	if err != nil {
		t.Fatalf("memory.NewMemory: %v", err)
	}
	defer mem.Close()
	mem.Resize(32)

	s := stack.New()
	defer stack.ReturnNormalStack(s)
	// MSTORE: offset on top (popped first), value below it.
	s.Push(uint256.NewInt(0xdeadbeef))
	s.Push(uint256.NewInt(0))

	scope := &ScopeContext{Stack: s, Memory: mem}
	pc := uint64(0)
	if _, err := opMStore(&pc, nil, scope); err != nil {
		t.Fatalf("opMStore: %v", err)
	}

	s.Push(uint256.NewInt(0))
	if _, err := opMLoad(&pc, nil, scope); err != nil {
		t.Fatalf("opMLoad: %v", err)
	}
	got := s.Pop()
	if got.Uint64() != 0xdeadbeef {
		t.Errorf("loaded = %v, want 0xdeadbeef", &got)
	}
}

func TestMakeSwapMatchesSwapNPlusOne(t *testing.T) {
	s := stack.New()
	defer stack.ReturnNormalStack(s)
	s.Push(uint256.NewInt(1))
	s.Push(uint256.NewInt(2))
	s.Push(uint256.NewInt(3))

	scope := &ScopeContext{Stack: s}
	pc := uint64(0)
	// SWAP1 exchanges top with the 2nd-from-top element: [1,2,3] -> [1,3,2].
	if _, err := makeSwap(1)(&pc, nil, scope); err != nil {
		t.Fatalf("makeSwap(1): %v", err)
	}
	if s.Peek().Uint64() != 2 {
		t.Fatalf("top after SWAP1 = %v, want 2", s.Peek())
	}
	s.Pop()
	if s.Peek().Uint64() != 3 {
		t.Errorf("2nd after SWAP1+pop = %v, want 3", s.Peek())
	}
}

func TestMakeDupMatchesDupN(t *testing.T) {
	s := stack.New()
	defer stack.ReturnNormalStack(s)
	s.Push(uint256.NewInt(1))
	s.Push(uint256.NewInt(2))

	scope := &ScopeContext{Stack: s}
	pc := uint64(0)
	// DUP1 duplicates the current top.
	if _, err := makeDup(1)(&pc, nil, scope); err != nil {
		t.Fatalf("makeDup(1): %v", err)
	}
	if s.Len() != 3 {
		t.Fatalf("len = %d, want 3", s.Len())
	}
	if s.Peek().Uint64() != 2 {
		t.Errorf("top after DUP1 = %v, want 2", s.Peek())
	}
}

func TestMakePushUnreversesImmediate(t *testing.T) {
	schedule := params.NewSchedule(params.Berlin)
	code := []byte{byte(opcodes.PUSH2), 0x12, 0x34}
	r, err := rom.Build(code, schedule)
	if err != nil {
		t.Fatalf("rom.Build: %v", err)
	}

	s := stack.New()
	defer stack.ReturnNormalStack(s)
	in := &EVMInterpreter{rom: r}
	scope := &ScopeContext{Stack: s}

	pc := uint64(0)
	if _, err := makePush(2)(&pc, in, scope); err != nil {
		t.Fatalf("makePush(2): %v", err)
	}
	if pc != 3 {
		t.Errorf("pc = %d, want 3", pc)
	}
	got := s.Pop()
	want := uint256.NewInt(0x1234)
	if got.Cmp(want) != 0 {
		t.Errorf("pushed = %v, want %v", &got, want)
	}
}

func TestOpJumpSubSkipsBeginSub(t *testing.T) {
	// JUMPDEST BEGINSUB PUSH1 0x01 RETURNSUB
	code := []byte{
		byte(opcodes.JUMPDEST),
		byte(opcodes.BEGINSUB),
		byte(opcodes.PUSH1), 0x01,
		byte(opcodes.RETURNSUB),
	}
	schedule := params.NewSchedule(params.Berlin)
	r, err := rom.Build(code, schedule)
	if err != nil {
		t.Fatalf("rom.Build: %v", err)
	}

	s := stack.New()
	defer stack.ReturnNormalStack(s)
	rst := stack.NewReturnStack()
	defer stack.ReturnRStack(rst)

	in := &EVMInterpreter{rom: r}
	scope := &ScopeContext{Stack: s, ReturnStack: rst}

	s.Push(uint256.NewInt(1)) // target: address of BEGINSUB
	pc := uint64(10)          // caller's return address context
	if _, err := opJumpSub(&pc, in, scope); err != nil {
		t.Fatalf("opJumpSub: %v", err)
	}
	if pc != 2 {
		t.Errorf("pc = %d, want 2 (one past BEGINSUB)", pc)
	}
	if rst.Len() != 1 {
		t.Fatalf("return stack len = %d, want 1", rst.Len())
	}
}

func TestOpJumpSubRejectsNonBeginSubTarget(t *testing.T) {
	code := []byte{byte(opcodes.STOP)}
	schedule := params.NewSchedule(params.Berlin)
	r, err := rom.Build(code, schedule)
	if err != nil {
		t.Fatalf("rom.Build: %v", err)
	}

	s := stack.New()
	defer stack.ReturnNormalStack(s)
	rst := stack.NewReturnStack()
	defer stack.ReturnRStack(rst)

	in := &EVMInterpreter{rom: r}
	scope := &ScopeContext{Stack: s, ReturnStack: rst}

	s.Push(uint256.NewInt(0)) // address 0 stores STOP, not BEGINSUB
	pc := uint64(0)
	_, err = opJumpSub(&pc, in, scope)
	if err != ErrInvalidBeginSub {
		t.Errorf("err = %v, want ErrInvalidBeginSub", err)
	}
}
