package interpreter

import (
	"github.com/elmattic/psyche-sub000/params"
	"github.com/elmattic/psyche-sub000/rom"
	"github.com/elmattic/psyche-sub000/stack"
)

// EVMInterpreter drives one run: the fetch-decode-dispatch loop over a
// ROM, consulting BbInfo at every block entry for the combined
// gas/stack precheck (§4.4) and otherwise executing opcodes straight
// line until a terminator. One EVMInterpreter is constructed per run by
// Execute; it holds no state that outlives that run.
type EVMInterpreter struct {
	schedule *params.Schedule
	table    *JumpTable
	cfg      Config

	rom *rom.ROM

	// gas mirrors run's local counter so opGas can read "remaining gas"
	// (its own value depends on every charge made up to and including
	// itself, §4.4) without threading an extra parameter through every
	// executionFunc.
	gas uint64

	// lastReturnOffset/lastReturnSize record RETURN's operands so
	// Execute can hand the caller the invocation contract's
	// {offset, size} pair (§6) without re-deriving them from the copied
	// byte slice execute() also returns.
	lastReturnOffset uint64
	lastReturnSize   uint64
}

// NewEVMInterpreter builds an interpreter bound to schedule, using the
// single fork-independent jump table (see jumptable.go).
func NewEVMInterpreter(schedule *params.Schedule, cfg Config) *EVMInterpreter {
	return &EVMInterpreter{schedule: schedule, table: defaultJumpTable, cfg: cfg}
}

// run executes r from address 0 until a halt or a fatal error,
// returning the gas remaining and the error (nil on a clean halt).
func (in *EVMInterpreter) run(r *rom.ROM, scope *ScopeContext, gas uint64) (uint64, error) {
	in.rom = r
	in.gas = gas
	pc := uint64(0)

	for {
		if info, ok := r.BbInfoAt(pc); ok {
			if in.gas < info.Gas {
				return in.gas, ErrOutOfGas
			}
			depth := uint64(scope.Stack.Len())
			if depth < uint64(info.StackMinSize) {
				return in.gas, ErrStackUnderflow
			}
			if depth+uint64(info.StackRelMaxSize) > stack.MaxStackSize {
				return in.gas, ErrStackOverflow
			}
			in.gas -= info.Gas
		}

		code := r.CodeAt(pc)
		oper := in.table[code]
		if oper == nil {
			return in.gas, ErrInvalidInstruction
		}

		var cost uint64
		if oper.dynamicGas != nil {
			dynCost, err := oper.dynamicGas(in, scope)
			if err != nil {
				return in.gas, err
			}
			if dynCost > in.gas {
				return in.gas, ErrOutOfGas
			}
			cost = dynCost
			in.gas -= cost
		}

		if in.cfg.Debug && in.cfg.Tracer != nil {
			in.cfg.Tracer.CaptureState(pc, code, in.gas, cost, scope, nil)
		}

		beforePC := pc
		_, err := oper.execute(&pc, in, scope)
		if err == errHalt {
			return in.gas, nil
		}
		if err != nil {
			if in.cfg.Debug && in.cfg.Tracer != nil {
				in.cfg.Tracer.CaptureState(beforePC, code, in.gas, cost, scope, err)
			}
			return in.gas, err
		}
	}
}
