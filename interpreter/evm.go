package interpreter

import (
	"errors"

	"github.com/elmattic/psyche-sub000/memory"
	"github.com/elmattic/psyche-sub000/params"
	"github.com/elmattic/psyche-sub000/rom"
	"github.com/elmattic/psyche-sub000/stack"
	"github.com/elmattic/psyche-sub000/u256"
)

// ErrGasLimitUnsupported is returned when the caller's gas limit's top
// 192 bits are nonzero: only the low 64 bits of the invocation's U256
// gas limit are ever honored (§6).
var ErrGasLimitUnsupported = errors.New("interpreter: gas limit exceeds 64 bits")

// ReturnData is the invocation contract's output (§6): when Err is
// nil, mem[Offset:Offset+Size] is the authoritative return slice;
// otherwise Offset and Size are both zero.
type ReturnData struct {
	Offset       uint64
	Size         uint64
	GasRemaining uint64
	Err          error
}

// Execute is the interpreter entry point (§6): it runs code's ROM
// against an already-initialized Memory (sized for gasLimit by its own
// constructor) under schedule, starting with a fresh operand stack and
// return stack drawn from their pools, and returns the shaped result.
//
// mem is owned by the caller for the duration of the call (§5) and is
// not released here; callers that allocated it via memory.NewMemory
// are responsible for calling mem.Close() once the run's result has
// been consumed.
func Execute(mem *memory.Memory, r *rom.ROM, schedule *params.Schedule, gasLimit *u256.Int, cfg Config) ReturnData {
	if !gasLimit.IsUint64() {
		return ReturnData{Err: ErrGasLimitUnsupported}
	}
	gas := gasLimit.Uint64()

	st := stack.New()
	defer stack.ReturnNormalStack(st)
	rst := stack.NewReturnStack()
	defer stack.ReturnRStack(rst)

	scope := &ScopeContext{Stack: st, ReturnStack: rst, Memory: mem}

	in := NewEVMInterpreter(schedule, cfg)
	gasRemaining, err := in.run(r, scope, gas)
	if err != nil {
		return ReturnData{GasRemaining: gasRemaining, Err: err}
	}
	return ReturnData{
		Offset:       in.lastReturnOffset,
		Size:         in.lastReturnSize,
		GasRemaining: gasRemaining,
	}
}
