package interpreter

import "github.com/elmattic/psyche-sub000/opcodes"

// Tracer is the step-tracing hook surface; tracelog.StepTracer
// implements it. Kept minimal compared to the teacher's EVMLogger
// (no CaptureStart/CaptureEnd call-frame hooks — there are no call
// frames in this core, §1 Non-goals).
type Tracer interface {
	CaptureState(pc uint64, op opcodes.OpCode, gas, cost uint64, scope *ScopeContext, err error)
}

// Config is the interpreter's run-time configuration. Trimmed from the
// teacher's Config: NoRecursion/NoBaseFee don't apply (there is no call
// depth and no BASEFEE opcode support here), SkipAnalysis doesn't apply
// (ROM construction is mandatory, not a cacheable optimization pass),
// and ExtraEips doesn't apply (fork-gated opcode introduction is already
// modeled by the Schedule/ROM pair rather than toggled per EIP number).
type Config struct {
	Debug  bool
	Tracer Tracer
}
