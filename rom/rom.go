// Package rom builds the preprocessed view of a contract's bytecode
// that the interpreter actually runs against: a code image with PUSH
// immediates byte-reversed for native little-endian loads, a bitmap of
// addresses that cannot be valid jump destinations because they lie
// inside a PUSH immediate, and a per-basic-block summary of the gas
// and stack bookkeeping the interpreter charges in one shot at block
// entry (§4.2).
package rom

import (
	"errors"
	"math"

	"github.com/elmattic/psyche-sub000/opcodes"
	"github.com/elmattic/psyche-sub000/params"
)

// MaxCodeSize is the largest bytecode ROM construction accepts (§3).
const MaxCodeSize = 32768

// ErrCodeTooLarge is returned when the input bytecode exceeds
// MaxCodeSize.
var ErrCodeTooLarge = errors.New("rom: bytecode exceeds MAX_CODESIZE")

// BbInfo is the precomputed summary for one basic block: the minimum
// pre-block stack depth every instruction in the block needs, the
// peak depth reached relative to that minimum, and the block's total
// static gas cost (§3).
type BbInfo struct {
	StackMinSize    uint16
	StackRelMaxSize uint16
	Gas             uint64
}

// ROM is the preprocessed, immutable view of one contract's bytecode.
// It is built once per run and consulted read-only afterward.
type ROM struct {
	code         []byte // code image; PUSH immediates stored byte-reversed
	invalidDests []bool // true at addresses lying inside a PUSH immediate
	blocks       map[uint64]BbInfo
}

// Build constructs a ROM from raw bytecode under schedule. It fails
// only when the bytecode exceeds MaxCodeSize; bytecode containing
// opcodes not yet introduced under schedule's fork is accepted and
// silently rewritten to INVALID at those addresses (§4.2 step 1).
func Build(code []byte, schedule *params.Schedule) (*ROM, error) {
	if len(code) > MaxCodeSize {
		return nil, ErrCodeTooLarge
	}

	r := &ROM{
		code:         make([]byte, len(code)),
		invalidDests: make([]bool, len(code)),
		blocks:       make(map[uint64]BbInfo),
	}
	copy(r.code, code)

	r.buildCodeImage(schedule)
	r.buildInvalidDestBitmap()
	r.buildBlockSummaries(schedule)

	return r, nil
}

// buildCodeImage reverses each PUSH's immediate bytes in place (so a
// native little-endian load of 1/2/4 bytes reconstructs the original
// big-endian immediate) and rewrites any opcode not yet introduced
// under schedule's fork to INVALID.
func (r *ROM) buildCodeImage(schedule *params.Schedule) {
	n := len(r.code)
	for i := 0; i < n; {
		op := opcodes.OpCode(r.code[i])
		if !op.IntroducedIn(schedule.Fork()) {
			r.code[i] = byte(opcodes.INVALID)
		}
		if op.IsPush() {
			size := op.PushSize()
			reverseImmediate(r.code, i+1, size, n)
			i += 1 + size
			continue
		}
		i++
	}
}

// reverseImmediate reverses up to size bytes of buf starting at
// offset, clamped to buf's extent (a PUSH's immediate may be
// truncated by the end of the bytecode).
func reverseImmediate(buf []byte, offset, size, n int) {
	end := offset + size
	if end > n {
		end = n
	}
	for lo, hi := offset, end-1; lo < hi; lo, hi = lo+1, hi-1 {
		buf[lo], buf[hi] = buf[hi], buf[lo]
	}
}

// buildInvalidDestBitmap marks every address lying inside a PUSH
// immediate. These addresses can never be jump destinations even if
// their stored byte happens to equal JUMPDEST or BEGINSUB (§3, §4.2
// step 2, §9).
func (r *ROM) buildInvalidDestBitmap() {
	n := len(r.code)
	for i := 0; i < n; {
		op := opcodes.OpCode(r.code[i])
		if op.IsPush() {
			size := op.PushSize()
			end := i + 1 + size
			if end > n {
				end = n
			}
			for j := i + 1; j < end; j++ {
				r.invalidDests[j] = true
			}
			i += 1 + size
			continue
		}
		i++
	}
}

// fragment is an intermediate block record produced by the forward
// pass, before the backward pass folds partial fragments into full
// BbInfo summaries (§4.2 step 3).
type fragment struct {
	start   uint64
	basic   bool // true: ends on a terminator; false: ends on JUMPDEST
	min     uint16
	max     uint16
	gas     uint64
	endSize uint16 // stack_size at the fragment's end (post-last-op)
}

// buildBlockSummaries runs the forward pass (linear walk accumulating
// per-fragment stack/gas deltas) followed by the backward pass (fold
// partial fragments into full BbInfo records), per §4.2 step 3.
func (r *ROM) buildBlockSummaries(schedule *params.Schedule) {
	frags := r.forwardPass(schedule)
	r.backwardPass(frags)
}

// applyDelta advances (stackSize, stackMin, stackMax) by one opcode's
// (delta, alpha) pair, per §4.2 step 3's forward-pass rule: a pop that
// would underflow the fragment-local stack instead raises stackMin by
// the shortfall and resets stackSize to alpha; otherwise stackSize
// moves by alpha-delta, saturating at the u16 maximum.
func applyDelta(stackSize, stackMin, stackMax *uint16, delta, alpha uint16) {
	if delta > *stackSize {
		shortfall := delta - *stackSize
		*stackMin += shortfall
		*stackSize = alpha
	} else {
		sum := uint32(*stackSize) - uint32(delta) + uint32(alpha)
		if sum > math.MaxUint16 {
			sum = math.MaxUint16
		}
		*stackSize = uint16(sum)
	}
	if *stackSize > *stackMax {
		*stackMax = *stackSize
	}
}

// forwardPass walks the bytecode linearly, splitting it into
// fragments at every terminator (a "basic" fragment, which also ends
// the semantic block) and at every JUMPDEST (a "partial" fragment: the
// JUMPDEST itself opens the next fragment rather than closing the
// current one, since it is a block entry in its own right, §3).
func (r *ROM) forwardPass(schedule *params.Schedule) []fragment {
	var frags []fragment
	n := len(r.code)

	var stackSize, stackMin, stackMax uint16
	var gas uint64
	start := uint64(0)

	emit := func(basic bool) {
		frags = append(frags, fragment{
			start:   start,
			basic:   basic,
			min:     stackMin,
			max:     stackMax,
			gas:     gas,
			endSize: stackSize,
		})
	}
	reset := func(newStart uint64) {
		stackSize, stackMin, stackMax = 0, 0, 0
		gas = 0
		start = newStart
	}

	for i := 0; i < n; {
		op := opcodes.OpCode(r.code[i])

		if op == opcodes.JUMPDEST && uint64(i) != start {
			emit(false)
			reset(uint64(i))
		}

		info := opcodes.Lookup(op)
		applyDelta(&stackSize, &stackMin, &stackMax, info.Delta, info.Alpha)
		gas += schedule.Fee(info.Fee)

		size := 1
		if op.IsPush() {
			size = 1 + op.PushSize()
		}

		// BEGINSUB ends its fragment just like a terminator, even
		// though it isn't one: reaching it by straight-line fallthrough
		// is always a fatal BeginSubEntry (§4.4), so nothing legitimate
		// ever executes past it that way, and the byte right after it
		// is the real entry point JUMPSUB resumes at — it needs its own
		// BbInfo record for that post-JUMPSUB block-entry check (§3's
		// BlockEntry state, §9).
		if op.IsTerminator() || op == opcodes.BEGINSUB {
			emit(true)
			reset(uint64(i) + uint64(size))
		}

		i += size
	}
	if start < uint64(n) {
		emit(true)
	}
	return frags
}

// backwardPass iterates fragments in reverse, folding each partial
// fragment's summary together with the running block summary inherited
// from its successor, and records one BbInfo per fragment start
// address (§4.2 step 3, backward pass).
func (r *ROM) backwardPass(frags []fragment) {
	var runningMin, runningMax uint16
	var runningGas uint64
	have := false

	for i := len(frags) - 1; i >= 0; i-- {
		f := frags[i]
		switch {
		case f.basic:
			runningMin, runningMax, runningGas = f.min, f.max, f.gas
			have = true
		case !have:
			runningMin, runningMax, runningGas = f.min, f.max, f.gas
			have = true
		default:
			var needed, more uint16
			if runningMin > f.endSize {
				needed = runningMin - f.endSize
			}
			if f.endSize > runningMin {
				more = f.endSize - runningMin
			}
			// max of two candidates, not their sum (original_source/src/vm.rs:1479-1483):
			// folding f's peak against the downstream run can bottom out
			// either inside f itself (f.max bumped by needed) or further
			// downstream (the running max bumped by more) — whichever is
			// higher is the fragment's true relative peak.
			foldedMax := f.max + needed
			carriedMax := runningMax + more
			if carriedMax > foldedMax {
				foldedMax = carriedMax
			}
			runningMin = f.min + needed
			runningMax = foldedMax
			runningGas = f.gas + runningGas
		}
		r.blocks[f.start] = BbInfo{
			StackMinSize:    runningMin,
			StackRelMaxSize: saturatingSub(runningMax, runningMin),
			Gas:             runningGas,
		}
	}
}

func saturatingSub(a, b uint16) uint16 {
	if a < b {
		return 0
	}
	return a - b
}

// BbInfoAt returns the basic-block summary for the block starting at
// addr. ok is false for an address that does not begin a block.
func (r *ROM) BbInfoAt(addr uint64) (info BbInfo, ok bool) {
	info, ok = r.blocks[addr]
	return info, ok
}

// CodeAt returns the (possibly rewritten) opcode byte at addr, or STOP
// if addr is outside the code's extent — an address one past the end
// reads as an implicit STOP, matching the convention that bytecode is
// always followed by an infinite run of zero (STOP) bytes.
func (r *ROM) CodeAt(addr uint64) opcodes.OpCode {
	if addr >= uint64(len(r.code)) {
		return opcodes.STOP
	}
	return opcodes.OpCode(r.code[addr])
}

// ImmediateAt returns the size little-endian-laid-out bytes starting
// at addr+1, ready for a native integer load (the PUSH immediate
// reversal buildCodeImage performed). The slice is shorter than size
// if the immediate was truncated by the end of the bytecode.
func (r *ROM) ImmediateAt(addr uint64, size int) []byte {
	start := addr + 1
	n := uint64(len(r.code))
	if start >= n {
		return nil
	}
	end := start + uint64(size)
	if end > n {
		end = n
	}
	return r.code[start:end]
}

// Len returns the bytecode length in bytes.
func (r *ROM) Len() int { return len(r.code) }

// IsValidDest reports whether addr is a legal JUMP/JUMPI target: in
// range, not inside a PUSH immediate, and stores JUMPDEST.
func (r *ROM) IsValidDest(addr uint64) bool {
	if addr >= uint64(len(r.code)) || r.invalidDests[addr] {
		return false
	}
	return opcodes.OpCode(r.code[addr]) == opcodes.JUMPDEST
}

// IsValidSubEntry reports whether addr is a legal JUMPSUB target: in
// range, not inside a PUSH immediate, and stores BEGINSUB.
func (r *ROM) IsValidSubEntry(addr uint64) bool {
	if addr >= uint64(len(r.code)) || r.invalidDests[addr] {
		return false
	}
	return opcodes.OpCode(r.code[addr]) == opcodes.BEGINSUB
}

// Disassemble renders the code image as a sequence of mnemonic lines,
// one per instruction, in the form "MNEMONIC 0xhex" for PUSHes and
// bare "MNEMONIC" otherwise. It falls directly out of having a code
// image and an immediate-extraction helper already in hand, rather
// than re-walking the bytecode with separate logic.
func (r *ROM) Disassemble() []string {
	var lines []string
	n := len(r.code)
	for i := 0; i < n; {
		op := opcodes.OpCode(r.code[i])
		line := op.String()
		if op.IsPush() {
			size := op.PushSize()
			// ImmediateAt returns the code image's reversed (native-load)
			// byte order; un-reverse it here to print the canonical
			// big-endian immediate a reader expects.
			imm := append([]byte(nil), r.ImmediateAt(uint64(i), size)...)
			for lo, hi := 0, len(imm)-1; lo < hi; lo, hi = lo+1, hi-1 {
				imm[lo], imm[hi] = imm[hi], imm[lo]
			}
			line += " 0x" + hexString(imm)
			i += 1 + size
		} else {
			i++
		}
		lines = append(lines, line)
	}
	return lines
}

const hexChars = "0123456789abcdef"

func hexString(b []byte) string {
	out := make([]byte, 0, len(b)*2)
	for _, c := range b {
		out = append(out, hexChars[c>>4], hexChars[c&0xf])
	}
	return string(out)
}
