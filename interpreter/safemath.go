package interpreter

import "github.com/elmattic/psyche-sub000/u256"

// toUint64Checked narrows a U256 stack operand to uint64, reporting
// whether it fits. Adapted from the teacher's safemath.go narrowing
// helpers (SafeUint256ToUint64): a memory offset or size that doesn't
// fit in 64 bits can never be affordable under a 64-bit gas budget, so
// every caller here treats a failed narrow as an automatic OutOfGas
// rather than as a distinct overflow error (§4.3: "on failure the
// caller raises out of gas").
func toUint64Checked(x *u256.Int) (uint64, bool) {
	if !x.IsUint64() {
		return 0, false
	}
	return x.Uint64(), true
}

// addUint64Checked returns a+b and whether the sum fit in a uint64
// (false when it overflowed),
// guarding the offset+size and offset+31 bounds checks §4.3 requires
// before any memory access.
func addUint64Checked(a, b uint64) (uint64, bool) {
	sum := a + b
	return sum, sum >= a
}
