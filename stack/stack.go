// Package stack implements the interpreter's operand stack and return
// stack. Both are fixed-capacity (1024 and 1023 slots respectively, §3)
// and both are pool-backed so a hot dispatch loop running many
// contracts back to back does not allocate per run.
package stack

import (
	"sync"

	"github.com/holiman/uint256"
)

// MaxStackSize is the operand stack's fixed capacity.
const MaxStackSize = 1024

// Stack is the interpreter's operand stack: capacity exactly
// MaxStackSize U256 values, contiguous, top-pointer discipline. The
// block-entry precheck (§4.4) guarantees every Push/Pop here runs
// within bounds, so none of these methods re-validate capacity
// themselves — callers that bypass the precheck get a panic on reading
// past the bottom (not a typed error), and a Push past MaxStackSize
// grows the backing slice instead of failing.
type Stack struct {
	data []uint256.Int
}

var stackPool = sync.Pool{
	New: func() interface{} {
		return &Stack{data: make([]uint256.Int, 0, MaxStackSize)}
	},
}

// New returns an empty Stack, reused from the pool when possible.
func New() *Stack {
	return stackPool.Get().(*Stack)
}

// ReturnNormalStack resets s and returns it to the pool.
func ReturnNormalStack(s *Stack) {
	s.Reset()
	stackPool.Put(s)
}

// Reset empties the stack without releasing its backing array.
func (s *Stack) Reset() {
	s.data = s.data[:0]
}

// Len returns the current number of elements.
func (s *Stack) Len() int { return len(s.data) }

// Cap returns the stack's fixed capacity.
func (s *Stack) Cap() int { return cap(s.data) }

// Push appends v to the top of the stack. v is copied by value.
func (s *Stack) Push(v *uint256.Int) {
	s.data = append(s.data, *v)
}

// PushN pushes vs in order, so the last element of vs ends up on top —
// matching a ROM literal sequence read left to right.
func (s *Stack) PushN(vs ...uint256.Int) {
	s.data = append(s.data, vs...)
}

// Pop removes and returns the top element.
func (s *Stack) Pop() uint256.Int {
	n := len(s.data) - 1
	v := s.data[n]
	s.data = s.data[:n]
	return v
}

// Peek returns a pointer to the top element without removing it. The
// pointer aliases the stack's backing array and is invalidated by the
// next Push/Pop.
func (s *Stack) Peek() *uint256.Int {
	return &s.data[len(s.data)-1]
}

// Back returns a pointer to the element n below the top (Back(0) ==
// Peek()).
func (s *Stack) Back(n int) *uint256.Int {
	return &s.data[len(s.data)-1-n]
}

// Swap exchanges the top element with the element n-from-top, 1-based
// (Swap(1) is a no-op on the top slot itself; SWAPn per §4.4 calls
// Swap(n+1), exchanging top with the (n+1)-from-top element).
func (s *Stack) Swap(n int) {
	top := len(s.data) - 1
	other := len(s.data) - n
	s.data[top], s.data[other] = s.data[other], s.data[top]
}

// Dup pushes a copy of the element n below the top, 1-based (Dup(1)
// duplicates the current top; DUPn per §4.4 calls Dup(n)).
func (s *Stack) Dup(n int) {
	s.data = append(s.data, s.data[len(s.data)-n])
}

// Data exposes the live backing slice, bottom first. Used by tracing
// and by tests that want to assert the full stack shape.
func (s *Stack) Data() []uint256.Int { return s.data }
