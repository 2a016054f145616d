// Package memory implements the interpreter's linear memory: a
// lazily-sized byte buffer, measured in 32-byte words, reserved once
// up front via an anonymous OS mapping and never reallocated mid-run
// (§4.3, §5, §9).
package memory

import (
	"math/big"

	"github.com/holiman/uint256"
	"golang.org/x/sys/unix"

	"github.com/elmattic/psyche-sub000/params"
)

// wordSize is the unit memory is priced and resized in.
const wordSize = 32

// Memory is the interpreter's byte-addressable linear memory. store is
// backed by a single mmap reservation sized at construction time to the
// largest word count the run's gas budget could ever pay for; Resize
// only moves the logical length within that reservation, so no
// reallocation or copy ever happens on the hot path.
type Memory struct {
	store       []byte
	lastGasCost uint64
}

// NewMemory reserves, via an anonymous mmap, enough virtual bytes to
// hold the largest word count w satisfying the extension-cost formula
// C(w) = schedule.MemoryGas()*w + w²/512 ≤ gasLimit, found by binary
// search (§4.3, §9). The returned Memory starts at logical length 0;
// Close must be called when the run ends to release the mapping.
//
// Per §6, only the gas limit's low 64 bits are ever honored by the
// interpreter entry point, so gasLimit here is already a plain uint64;
// per §4.3's memory-specific caveat, a gas limit whose top 128 bits
// (of the full U256 the caller started from) were nonzero must have
// been rejected by the caller as unsupported before this is ever
// invoked.
func NewMemory(gasLimit uint64, schedule *params.Schedule) (*Memory, error) {
	maxWords := maxAffordableWords(gasLimit, schedule.MemoryGas())
	reserveBytes := maxWords * wordSize

	var region []byte
	if reserveBytes > 0 {
		mapped, err := unix.Mmap(-1, 0, int(reserveBytes),
			unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
		if err != nil {
			return nil, err
		}
		region = mapped
	}

	return &Memory{store: region[:0]}, nil
}

// maxAffordableWords finds, via binary search, the largest w such that
// memoryGas*w + w*w/512 <= gasLimit. The search runs in big.Int: w can
// grow large enough (gasLimit near u64::MAX) that w*w overflows a
// 64-bit intermediate, and this runs exactly once per Memory, not on
// any hot path, so the extra precision costs nothing observable.
func maxAffordableWords(gasLimit, memoryGas uint64) uint64 {
	limit := new(big.Int).SetUint64(gasLimit)
	mg := new(big.Int).SetUint64(memoryGas)
	const div = 512

	cost := func(w *big.Int) *big.Int {
		linear := new(big.Int).Mul(mg, w)
		quad := new(big.Int).Mul(w, w)
		quad.Div(quad, big.NewInt(div))
		return linear.Add(linear, quad)
	}

	lo, hi := uint64(0), uint64(1)
	for cost(new(big.Int).SetUint64(hi)).Cmp(limit) <= 0 {
		lo = hi
		hi *= 2
		if hi == 0 { // overflow guard: hi already covers the full uint64 range
			hi = ^uint64(0)
			break
		}
	}
	for lo < hi {
		mid := lo + (hi-lo+1)/2
		if cost(new(big.Int).SetUint64(mid)).Cmp(limit) <= 0 {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// Close releases the mmap reservation. Callers run it once per Memory
// when the interpreter run completes (§5: "release happens when the
// run object is dropped").
func (m *Memory) Close() error {
	if cap(m.store) == 0 {
		return nil
	}
	full := m.store[:cap(m.store)]
	return unix.Munmap(full)
}

// Len returns the current logical size in bytes.
func (m *Memory) Len() int { return len(m.store) }

// Resize grows the logical length to size bytes, rounded up by the
// caller to a word boundary before calling (the interpreter's dynamic
// gas computation does this rounding). It never shrinks and never
// reallocates: size must not exceed the reservation computed at
// construction, which the interpreter guarantees by charging OOG
// before any extension that would exceed it.
func (m *Memory) Resize(size uint64) {
	if uint64(len(m.store)) < size {
		m.store = m.store[:size]
	}
}

// SetLastGasCost records the gas cost of the most recent extension,
// mirroring the teacher's bookkeeping field of the same name.
func (m *Memory) SetLastGasCost(cost uint64) { m.lastGasCost = cost }

// LastGasCost returns the gas cost of the most recent extension.
func (m *Memory) LastGasCost() uint64 { return m.lastGasCost }

// Set writes data into memory starting at offset. It is a no-op when
// size is 0. Callers must have already Resize'd far enough that
// offset+size fits.
func (m *Memory) Set(offset, size uint64, data []byte) {
	if size == 0 {
		return
	}
	copy(m.store[offset:offset+size], data)
}

// Set32 writes val as a big-endian 32-byte word at offset (MSTORE).
func (m *Memory) Set32(offset uint64, val *uint256.Int) {
	var buf [32]byte
	val.WriteToSlice(buf[:])
	copy(m.store[offset:offset+32], buf[:])
}

// SetByte writes a single byte at offset (MSTORE8).
func (m *Memory) SetByte(offset uint64, b byte) {
	m.store[offset] = b
}

// GetCopy returns an independent copy of size bytes starting at
// offset, or nil when size is 0 or offset is already past the end.
func (m *Memory) GetCopy(offset, size int64) []byte {
	if size == 0 || int64(len(m.store)) <= offset {
		return nil
	}
	end := offset + size
	if end > int64(len(m.store)) {
		end = int64(len(m.store))
	}
	cp := make([]byte, size)
	copy(cp, m.store[offset:end])
	return cp
}

// GetPtr returns a slice aliasing memory's backing storage, or nil
// when size is 0.
func (m *Memory) GetPtr(offset, size int64) []byte {
	if size == 0 {
		return nil
	}
	return m.store[offset : offset+size]
}

// Data returns the whole live backing slice.
func (m *Memory) Data() []byte { return m.store }

// Copy moves size bytes from src to dst within memory, honoring Go's
// overlapping-copy semantics. No opcode handler in the interpreter
// calls it (MCOPY is out of this core's supported range, §3).
func (m *Memory) Copy(dst, src, size uint64) {
	if size == 0 {
		return
	}
	copy(m.store[dst:dst+size], m.store[src:src+size])
}

// Reset empties the logical length and gas bookkeeping without
// releasing the mmap reservation.
func (m *Memory) Reset() {
	m.store = m.store[:0]
	m.lastGasCost = 0
}

// Read returns the 32-byte big-endian word at offset as a U256
// (MLOAD's core).
func (m *Memory) Read(offset uint64) uint256.Int {
	var z uint256.Int
	z.SetBytes(m.store[offset : offset+32])
	return z
}

// Write stores val as a big-endian 32-byte word at offset. Alias of
// Set32 under the spec's own vocabulary (§4.3).
func (m *Memory) Write(offset uint64, val *uint256.Int) { m.Set32(offset, val) }

// WriteByte stores a single byte at offset. Alias of SetByte.
func (m *Memory) WriteByte(offset uint64, b byte) { m.SetByte(offset, b) }

// SizeInBytes returns the current logical size in bytes.
func (m *Memory) SizeInBytes() int { return m.Len() }

// Slice returns a view of size bytes starting at offset, aliasing
// memory's backing storage. Alias of GetPtr under the spec's own
// vocabulary.
func (m *Memory) Slice(offset, size uint64) []byte {
	return m.GetPtr(int64(offset), int64(size))
}

// ExtensionCost returns the gas cost of extending memory from w0 words
// to w1 words (w1 > w0), per §6's formula
// 3*(w1-w0) + (w1²-w0²)/512, capped at u64::MAX. Saturating rather than
// panicking on overflow: an attacker-chosen size should turn into
// OutOfGas, not a crash.
func ExtensionCost(w0, w1 uint64, schedule *params.Schedule) uint64 {
	if w1 <= w0 {
		return 0
	}
	mg := schedule.MemoryGas()
	c0 := new(big.Int).Add(
		new(big.Int).Mul(big.NewInt(int64(mg)), big.NewInt(int64(w0))),
		new(big.Int).Div(new(big.Int).Mul(big.NewInt(int64(w0)), big.NewInt(int64(w0))), big.NewInt(512)),
	)
	c1 := new(big.Int).Add(
		new(big.Int).Mul(big.NewInt(int64(mg)), big.NewInt(int64(w1))),
		new(big.Int).Div(new(big.Int).Mul(big.NewInt(int64(w1)), big.NewInt(int64(w1))), big.NewInt(512)),
	)
	diff := new(big.Int).Sub(c1, c0)
	maxU64 := new(big.Int).SetUint64(^uint64(0))
	if diff.Cmp(maxU64) > 0 {
		return ^uint64(0)
	}
	return diff.Uint64()
}

// WordCount returns the number of 32-byte words needed to cover size
// bytes, rounding up (ceil(size/32)).
func WordCount(size uint64) uint64 {
	words := size / wordSize
	if size%wordSize != 0 {
		words++
	}
	return words
}
