package interpreter

import (
	"github.com/elmattic/psyche-sub000/memory"
	"github.com/elmattic/psyche-sub000/stack"
)

// ScopeContext bundles the per-run mutable state an opcode handler
// touches: the operand stack, the subroutine return stack, and linear
// memory. Grounded on the teacher's ScopeContext, trimmed of the
// Contract/CallContext fields that only make sense with account state
// and call frames (Non-goal, see DESIGN.md).
type ScopeContext struct {
	Stack       *stack.Stack
	ReturnStack *stack.ReturnStack
	Memory      *memory.Memory
}
