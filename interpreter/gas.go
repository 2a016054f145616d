package interpreter

import (
	"github.com/elmattic/psyche-sub000/memory"
	"github.com/elmattic/psyche-sub000/params"
	"github.com/elmattic/psyche-sub000/u256"
)

// dynamicGasFunc computes and charges the variable portion of an
// opcode's gas cost (§6), performing any memory extension the opcode
// needs as a side effect so execute can assume memory is already sized
// by the time it runs.
type dynamicGasFunc func(in *EVMInterpreter, scope *ScopeContext) (uint64, error)

// memoryNeed reads (offset, size) from the stack without popping them —
// back is how many positions below the top each sits — and returns the
// byte address one past the last byte the opcode will touch, or reports
// failure when either operand doesn't fit a 64-bit budget or their sum
// overflows (§4.3).
func memoryNeed(scope *ScopeContext, offsetBack, sizeBack int) (uint64, bool) {
	offset, ok := toUint64Checked(scope.Stack.Back(offsetBack))
	if !ok {
		return 0, false
	}
	size, ok := toUint64Checked(scope.Stack.Back(sizeBack))
	if !ok {
		return 0, false
	}
	if size == 0 {
		return 0, true
	}
	end, ok := addUint64Checked(offset, size)
	if !ok {
		return 0, false
	}
	return end, true
}

// chargeMemoryExtension resizes scope.Memory to cover need bytes (if
// it doesn't already) and returns the §6 extension cost. The cost is
// checked against the run's remaining gas before Resize is called:
// Memory's backing store is reserved only up to the largest word
// count the run's gas limit could ever afford (memory.NewMemory), so
// an extension this run cannot pay for would resize past that
// reservation's capacity — caught here as OutOfGas instead of a
// runtime slice-bounds panic.
func chargeMemoryExtension(in *EVMInterpreter, scope *ScopeContext, need uint64) (uint64, error) {
	if need == 0 {
		return 0, nil
	}
	w0 := memory.WordCount(uint64(scope.Memory.Len()))
	w1 := memory.WordCount(need)
	if w1 <= w0 {
		return 0, nil
	}
	cost := memory.ExtensionCost(w0, w1, in.schedule)
	if cost > in.gas {
		return 0, ErrOutOfGas
	}
	scope.Memory.Resize(w1 * 32)
	scope.Memory.SetLastGasCost(cost)
	return cost, nil
}

func gasMLoad(in *EVMInterpreter, scope *ScopeContext) (uint64, error) {
	offset, ok := toUint64Checked(scope.Stack.Back(0))
	if !ok {
		return 0, ErrOutOfGas
	}
	end, ok := addUint64Checked(offset, 32)
	if !ok {
		return 0, ErrOutOfGas
	}
	return chargeMemoryExtension(in, scope, end)
}

func gasMStore(in *EVMInterpreter, scope *ScopeContext) (uint64, error) {
	offset, ok := toUint64Checked(scope.Stack.Back(0))
	if !ok {
		return 0, ErrOutOfGas
	}
	end, ok := addUint64Checked(offset, 32)
	if !ok {
		return 0, ErrOutOfGas
	}
	return chargeMemoryExtension(in, scope, end)
}

func gasMStore8(in *EVMInterpreter, scope *ScopeContext) (uint64, error) {
	offset, ok := toUint64Checked(scope.Stack.Back(0))
	if !ok {
		return 0, ErrOutOfGas
	}
	end, ok := addUint64Checked(offset, 1)
	if !ok {
		return 0, ErrOutOfGas
	}
	return chargeMemoryExtension(in, scope, end)
}

// gasSha3 charges memory extension for [offset, offset+size) plus the
// §6 Sha3Word word cost. Stack order: offset is on top (Back(0)), size
// is below it (Back(1)) — mirroring RETURN's operand order.
func gasSha3(in *EVMInterpreter, scope *ScopeContext) (uint64, error) {
	end, ok := memoryNeed(scope, 0, 1)
	if !ok {
		return 0, ErrOutOfGas
	}
	extCost, err := chargeMemoryExtension(in, scope, end)
	if err != nil {
		return 0, err
	}
	size, _ := toUint64Checked(scope.Stack.Back(1))
	words := memory.WordCount(size)
	wordCost := in.schedule.Fee(params.Sha3Word)
	total, ok := addUint64Checked(extCost, wordCost*words)
	if !ok {
		return 0, ErrOutOfGas
	}
	return total, nil
}

// gasReturn charges memory extension for [offset, offset+size). Stack
// order matches SHA3: offset on top, size below it.
func gasReturn(in *EVMInterpreter, scope *ScopeContext) (uint64, error) {
	end, ok := memoryNeed(scope, 0, 1)
	if !ok {
		return 0, ErrOutOfGas
	}
	return chargeMemoryExtension(in, scope, end)
}

// gasExp charges the §6 EXP dynamic component: ExpByte * (1 +
// (b-1)/8) where b is the exponent's significant byte length. Stack
// order: base is on top (Back(0)), exponent is below it (Back(1)).
func gasExp(in *EVMInterpreter, scope *ScopeContext) (uint64, error) {
	exponent := scope.Stack.Back(1)
	b := u256.ExpByteLen(exponent)
	if b == 0 {
		return 0, nil
	}
	return in.schedule.Fee(params.ExpByte) * uint64(1+(b-1)/8), nil
}
