// Package u256 implements the §4.1 256-bit arithmetic primitives as a thin,
// independently-testable layer over github.com/holiman/uint256 — the same
// library the teacher's stack (internal/vm/stack) and memory packages use
// as their native word type. Every function here takes its operands in
// EVM pop order (the first stack-popped value is the first argument) and
// writes its result into a caller-supplied destination, matching the
// receiver-mutates convention uint256.Int itself uses.
package u256

import "github.com/holiman/uint256"

// Int is the EVM's native 256-bit word.
type Int = uint256.Int

// New returns a *Int initialized to v.
func New(v uint64) *Int { return uint256.NewInt(v) }

// Add sets z = (a+b) mod 2^256 and returns z.
func Add(z, a, b *Int) *Int { return z.Add(a, b) }

// Sub sets z = (a-b) mod 2^256 and returns z.
func Sub(z, a, b *Int) *Int { return z.Sub(a, b) }

// Mul sets z = (a*b) mod 2^256 and returns z. uint256.Int.Mul performs the
// grade-school 4x4-limb multiplication §4.1 describes, truncating the
// 512-bit intermediate to the low 256 bits.
func Mul(z, a, b *Int) *Int { return z.Mul(a, b) }

// Div sets z = a/b, or 0 if b == 0, and returns z.
func Div(z, a, b *Int) *Int { return z.Div(a, b) }

// Mod sets z = a%b, or 0 if b == 0, and returns z.
func Mod(z, a, b *Int) *Int { return z.Mod(a, b) }

// SDiv sets z = a/b interpreting both as two's-complement signed 256-bit
// integers, or 0 if b == 0. SDiv(MIN_I256, -1) = MIN_I256 (§9 Open
// Question resolved in the teacher's direction: wrap, don't trap).
func SDiv(z, a, b *Int) *Int { return z.SDiv(a, b) }

// SMod sets z = a%b interpreting both as signed 256-bit integers, or 0 if
// b == 0. The result takes the sign of the dividend a.
func SMod(z, a, b *Int) *Int { return z.SMod(a, b) }

// AddMod sets z = (a+b) mod m, computed without intermediate overflow
// (uint256.Int carries the addition into a 257th bit internally before
// reducing), or 0 if m == 0.
func AddMod(z, a, b, m *Int) *Int { return z.AddMod(a, b, m) }

// MulMod sets z = (a*b) mod m, computed over the full 512-bit product
// before reducing, or 0 if m == 0.
func MulMod(z, a, b, m *Int) *Int { return z.MulMod(a, b, m) }

// Exp sets z = base**exponent mod 2^256 via left-to-right square-and-
// multiply, and returns z. Exp(_, 0) = 1.
func Exp(z, base, exponent *Int) *Int { return z.Exp(base, exponent) }

// ExpByteLen returns the number of significant bytes of exponent — the "b"
// in §6's EXP dynamic-gas formula. 0 has a byte length of 0.
func ExpByteLen(exponent *Int) int { return exponent.ByteLen() }

// SignExtend sets z to x with bit k = 8*b+7 replicated into bits k+1..255,
// where b identifies the byte boundary to extend from (stack order:
// SIGNEXTEND pops b then x). x is returned unchanged when b >= 31.
func SignExtend(z, b, x *Int) *Int {
	if !b.IsUint64() || b.Uint64() >= 31 {
		return z.Set(x)
	}
	bn := b.Uint64()
	k := 8*bn + 7 // bit index of the sign bit to replicate, 0 = LSB
	limbIdx := k / 64
	bitInLimb := k % 64
	signBit := (x[limbIdx] >> bitInLimb) & 1

	var fill uint64
	if signBit == 1 {
		fill = ^uint64(0)
	}

	var res Int
	for i := uint64(0); i < 4; i++ {
		switch {
		case i < limbIdx:
			res[i] = x[i]
		case i == limbIdx:
			keepMask := (uint64(1) << (bitInLimb + 1)) - 1
			if bitInLimb == 63 {
				keepMask = ^uint64(0)
			}
			res[i] = (x[i] & keepMask) | (fill &^ keepMask)
		default:
			res[i] = fill
		}
	}
	*z = res
	return z
}

// Lt reports whether a < b (unsigned).
func Lt(a, b *Int) bool { return a.Lt(b) }

// Gt reports whether a > b (unsigned).
func Gt(a, b *Int) bool { return a.Gt(b) }

// Slt reports whether a < b interpreting both as signed 256-bit integers.
func Slt(a, b *Int) bool { return a.Slt(b) }

// Sgt reports whether a > b interpreting both as signed 256-bit integers.
func Sgt(a, b *Int) bool { return a.Sgt(b) }

// Eq reports whether a == b.
func Eq(a, b *Int) bool { return a.Eq(b) }

// IsZero reports whether a == 0.
func IsZero(a *Int) bool { return a.IsZero() }

// BoolToInt converts an EVM boolean result (as produced by Lt/Gt/.../Eq/
// IsZero) into the canonical U256 0/1 encoding the stack holds.
func BoolToInt(z *Int, b bool) *Int {
	if b {
		return z.SetOne()
	}
	return z.Clear()
}

// And sets z = a & b and returns z.
func And(z, a, b *Int) *Int { return z.And(a, b) }

// Or sets z = a | b and returns z.
func Or(z, a, b *Int) *Int { return z.Or(a, b) }

// Xor sets z = a ^ b and returns z.
func Xor(z, a, b *Int) *Int { return z.Xor(a, b) }

// Not sets z = ^a (bitwise complement over all 256 bits) and returns z.
func Not(z, a *Int) *Int { return z.Not(a) }

// Byte sets z to the big-endian byte i of x (0 = most significant byte),
// zero-extended, or 0 if i >= 32. Stack order: BYTE pops i then x.
//
// Implemented directly against x's limb layout rather than delegating to
// a single library call: x is stored as four 64-bit limbs in little-endian
// limb order (§3, x[3] most significant), each limb itself holding its
// bytes in native order, so byte i (big-endian over the whole 256 bits)
// lives in limb 3-i/8 at big-endian byte offset i%8 within that limb.
func Byte(z, i, x *Int) *Int {
	if !i.IsUint64() || i.Uint64() >= 32 {
		return z.Clear()
	}
	idx := i.Uint64()
	limb := x[3-idx/8]
	shift := 8 * (7 - idx%8)
	return z.SetUint64((limb >> shift) & 0xff)
}

// shiftCount returns (n, true) when n's value fits in a native shift
// count and at least one bit below 256 might be set; it returns
// (0, false) when any of n's upper 248 bits is nonzero, signaling the
// §4.1 "any upper bit set => result is 0 (or sign-saturated for SAR)"
// case.
func shiftCount(n *Int) (uint, bool) {
	if !n.IsUint64() {
		return 0, false
	}
	v := n.Uint64()
	if v >= 256 {
		return 0, false
	}
	return uint(v), true
}

// Shl sets z = x << n (logical), or 0 if n >= 256. Stack order: SHL pops n
// then x.
func Shl(z, n, x *Int) *Int {
	count, ok := shiftCount(n)
	if !ok {
		return z.Clear()
	}
	return z.Lsh(x, count)
}

// Shr sets z = x >> n (logical), or 0 if n >= 256. Stack order: SHR pops n
// then x.
func Shr(z, n, x *Int) *Int {
	count, ok := shiftCount(n)
	if !ok {
		return z.Clear()
	}
	return z.Rsh(x, count)
}

// Sar sets z = x >> n (arithmetic, sign-extending), saturating to all-0 or
// all-1 (matching x's sign) when n >= 256. Stack order: SAR pops n then x.
func Sar(z, n, x *Int) *Int {
	count, ok := shiftCount(n)
	if !ok {
		if isNegative(x) {
			return z.SetAllOne()
		}
		return z.Clear()
	}
	return z.SRsh(x, count)
}

// isNegative reports whether x's top bit (bit 255, the sign bit under a
// two's-complement reading) is set. uint256.Int stores its four limbs in
// little-endian limb order (§3), so the sign bit lives in the high bit of
// the last limb.
func isNegative(x *Int) bool { return x[3]>>63 != 0 }
