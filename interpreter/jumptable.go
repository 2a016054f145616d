package interpreter

import "github.com/elmattic/psyche-sub000/opcodes"

// executionFunc runs one opcode. It is responsible for advancing *pc to
// the address execution should resume at — pc+1 for most opcodes,
// pc+1+n for PUSHn, the JUMPDEST's own address for a taken JUMP/JUMPI,
// one byte past BEGINSUB for JUMPSUB — so the
// dispatch loop never special-cases control flow. A non-nil error
// aborts the run; errHalt signals a clean stop (STOP, RETURN), with
// the returned []byte carrying RETURN's data (nil for STOP).
type executionFunc func(pc *uint64, in *EVMInterpreter, scope *ScopeContext) ([]byte, error)

// operation is one jump-table slot: the handler plus its optional
// dynamic-gas component (§6). Static gas is already folded into the
// block's BbInfo and charged once at block entry (§4.4); operation
// never repeats it.
type operation struct {
	execute    executionFunc
	dynamicGas dynamicGasFunc // nil when the opcode has no variable cost
}

// JumpTable maps each of the 256 opcode bytes to its operation. Unlike
// the teacher, which keeps one JumpTable per fork (newFrontierInstructionSet,
// newBerlinInstructionSet, ...) because its jump table is also where
// fork-gating happens, this package's jump table is fork-independent:
// ROM.Build already rewrites any opcode not yet introduced under the
// run's fork to INVALID in the code image (§4.2 step 1), so by the time
// dispatch reads a byte, fork-gating has already happened. A single
// table here reproduces the same observable behavior with one table
// instead of ten.
type JumpTable [256]*operation

var defaultJumpTable = newJumpTable()

func op(fn executionFunc) *operation { return &operation{execute: fn} }

func opWithGas(fn executionFunc, gas dynamicGasFunc) *operation {
	return &operation{execute: fn, dynamicGas: gas}
}

// newJumpTable builds the single fork-independent dispatch table. Every
// byte in the supported set (§6: 0x00-0x0b, 0x10-0x1d, 0x20, 0x50-0x5e,
// 0x60-0x9f, 0xf3, 0xfe) gets its real handler; every opcode marked
// Supported=false in the opcodes package (host/account/log/call
// opcodes, including REVERT/SELFDESTRUCT and the CREATE family) routes
// to opUnsupported; every remaining byte (true gaps in the 256-byte
// space) is left nil and dispatch reports InvalidInstruction.
func newJumpTable() *JumpTable {
	var t JumpTable

	t[opcodes.STOP] = op(opStop)
	t[opcodes.ADD] = op(opAdd)
	t[opcodes.MUL] = op(opMul)
	t[opcodes.SUB] = op(opSub)
	t[opcodes.DIV] = op(opDiv)
	t[opcodes.SDIV] = op(opSDiv)
	t[opcodes.MOD] = op(opMod)
	t[opcodes.SMOD] = op(opSMod)
	t[opcodes.ADDMOD] = op(opAddMod)
	t[opcodes.MULMOD] = op(opMulMod)
	t[opcodes.EXP] = opWithGas(opExp, gasExp)
	t[opcodes.SIGNEXTEND] = op(opSignExtend)

	t[opcodes.LT] = op(opLt)
	t[opcodes.GT] = op(opGt)
	t[opcodes.SLT] = op(opSlt)
	t[opcodes.SGT] = op(opSgt)
	t[opcodes.EQ] = op(opEq)
	t[opcodes.ISZERO] = op(opIsZero)
	t[opcodes.AND] = op(opAnd)
	t[opcodes.OR] = op(opOr)
	t[opcodes.XOR] = op(opXor)
	t[opcodes.NOT] = op(opNot)
	t[opcodes.BYTE] = op(opByte)
	t[opcodes.SHL] = op(opShl)
	t[opcodes.SHR] = op(opShr)
	t[opcodes.SAR] = op(opSar)

	t[opcodes.KECCAK256] = opWithGas(opSha3, gasSha3)

	for _, hostOp := range []opcodes.OpCode{
		opcodes.ADDRESS, opcodes.BALANCE, opcodes.ORIGIN, opcodes.CALLER,
		opcodes.CALLVALUE, opcodes.CALLDATALOAD, opcodes.CALLDATASIZE,
		opcodes.CALLDATACOPY, opcodes.CODESIZE, opcodes.CODECOPY,
		opcodes.GASPRICE, opcodes.EXTCODESIZE, opcodes.EXTCODECOPY,
		opcodes.RETURNDATASIZE, opcodes.RETURNDATACOPY, opcodes.EXTCODEHASH,
		opcodes.BLOCKHASH, opcodes.COINBASE, opcodes.TIMESTAMP, opcodes.NUMBER,
		opcodes.DIFFICULTY, opcodes.GASLIMIT, opcodes.CHAINID, opcodes.SELFBALANCE,
		opcodes.BASEFEE, opcodes.SLOAD, opcodes.SSTORE,
		opcodes.LOG0, opcodes.LOG1, opcodes.LOG2, opcodes.LOG3, opcodes.LOG4,
		opcodes.CREATE, opcodes.CALL, opcodes.CALLCODE, opcodes.DELEGATECALL,
		opcodes.CREATE2, opcodes.STATICCALL, opcodes.REVERT, opcodes.SELFDESTRUCT,
	} {
		t[hostOp] = op(opUnsupported)
	}

	t[opcodes.POP] = op(opPop)
	t[opcodes.MLOAD] = opWithGas(opMLoad, gasMLoad)
	t[opcodes.MSTORE] = opWithGas(opMStore, gasMStore)
	t[opcodes.MSTORE8] = opWithGas(opMStore8, gasMStore8)
	t[opcodes.JUMP] = op(opJump)
	t[opcodes.JUMPI] = op(opJumpi)
	t[opcodes.PC] = op(opPc)
	t[opcodes.MSIZE] = op(opMsize)
	t[opcodes.GAS] = op(opGas)
	t[opcodes.JUMPDEST] = op(opJumpdest)
	t[opcodes.BEGINSUB] = op(opBeginSub)
	t[opcodes.RETURNSUB] = op(opReturnSub)
	t[opcodes.JUMPSUB] = op(opJumpSub)

	for i := 0; i < 32; i++ {
		n := i + 1
		t[opcodes.PUSH1+opcodes.OpCode(i)] = op(makePush(n))
	}
	for i := 0; i < 16; i++ {
		n := i + 1
		t[opcodes.DUP1+opcodes.OpCode(i)] = op(makeDup(n))
		t[opcodes.SWAP1+opcodes.OpCode(i)] = op(makeSwap(n))
	}

	t[opcodes.RETURN] = opWithGas(opReturn, gasReturn)
	t[opcodes.INVALID] = op(opInvalid)

	return &t
}
