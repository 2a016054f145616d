package rom

import (
	"testing"

	"github.com/elmattic/psyche-sub000/opcodes"
	"github.com/elmattic/psyche-sub000/params"
)

func berlin() *params.Schedule { return params.NewSchedule(params.Berlin) }

func TestBuildRejectsOversizedCode(t *testing.T) {
	code := make([]byte, MaxCodeSize+1)
	_, err := Build(code, berlin())
	if err != ErrCodeTooLarge {
		t.Fatalf("Build() error = %v, want ErrCodeTooLarge", err)
	}
}

func TestPushImmediateReversedInImage(t *testing.T) {
	// PUSH2 0x1234 -> stored as 0x34 0x12 so a native 2-byte load
	// reconstructs the big-endian immediate.
	code := []byte{byte(opcodes.PUSH2), 0x12, 0x34}
	r, err := Build(code, berlin())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	imm := r.ImmediateAt(0, 2)
	if imm[0] != 0x34 || imm[1] != 0x12 {
		t.Errorf("ImmediateAt(0,2) = %x, want reversed [34 12]", imm)
	}
}

func TestInvalidDestInsidePushImmediate(t *testing.T) {
	// PUSH1 0x5b (the byte value of JUMPDEST, stuffed as an immediate).
	code := []byte{byte(opcodes.PUSH1), byte(opcodes.JUMPDEST)}
	r, err := Build(code, berlin())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if r.IsValidDest(1) {
		t.Error("address inside a PUSH immediate must never be a valid jump destination, even if it stores 0x5b")
	}
}

func TestJumpDestStartsNewBlock(t *testing.T) {
	// PUSH1 0x04 JUMP STOP JUMPDEST PUSH1 0x00
	code := []byte{
		byte(opcodes.PUSH1), 0x04,
		byte(opcodes.JUMP),
		byte(opcodes.STOP),
		byte(opcodes.JUMPDEST),
		byte(opcodes.PUSH1), 0x00,
	}
	r, err := Build(code, berlin())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if !r.IsValidDest(4) {
		t.Fatal("address 4 (JUMPDEST) should be a valid jump destination")
	}

	entry, ok := r.BbInfoAt(0)
	if !ok {
		t.Fatal("expected a block entry at address 0")
	}
	// PUSH1 (VeryLow=3) + JUMP (Mid=8) = 11 static gas, net zero stack
	// depth once JUMP consumes the pushed value.
	if entry.Gas != 11 {
		t.Errorf("block 0 gas = %d, want 11", entry.Gas)
	}
	if entry.StackMinSize != 0 {
		t.Errorf("block 0 stack_min_size = %d, want 0", entry.StackMinSize)
	}

	jdEntry, ok := r.BbInfoAt(4)
	if !ok {
		t.Fatal("expected a block entry at address 4 (JUMPDEST)")
	}
	// JUMPDEST (Jumpdest=1) + PUSH1 (VeryLow=3) = 4.
	if jdEntry.Gas != 4 {
		t.Errorf("block 4 gas = %d, want 4", jdEntry.Gas)
	}
}

func TestUnsupportedOpcodeRewrittenToInvalidBeforeItsFork(t *testing.T) {
	// SHL/SHR/SAR were introduced at Constantinople; under Frontier they
	// must be rewritten to INVALID in the code image.
	code := []byte{byte(opcodes.SHL)}
	r, err := Build(code, params.NewSchedule(params.Frontier))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if r.CodeAt(0) != opcodes.INVALID {
		t.Errorf("CodeAt(0) = %v, want INVALID (SHL predates Constantinople)", r.CodeAt(0))
	}
}

func TestSupportedOpcodeUnchangedUnderItsOwnFork(t *testing.T) {
	code := []byte{byte(opcodes.SHL)}
	r, err := Build(code, params.NewSchedule(params.Constantinople))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if r.CodeAt(0) != opcodes.SHL {
		t.Errorf("CodeAt(0) = %v, want SHL", r.CodeAt(0))
	}
}

func TestCodeAtPastEndReadsStop(t *testing.T) {
	code := []byte{byte(opcodes.STOP)}
	r, err := Build(code, berlin())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if r.CodeAt(100) != opcodes.STOP {
		t.Errorf("CodeAt(100) = %v, want STOP", r.CodeAt(100))
	}
}

func TestBeginSubStartsNewBlockAfterItself(t *testing.T) {
	// JUMPDEST BEGINSUB PUSH1 0x01 RETURNSUB
	code := []byte{
		byte(opcodes.JUMPDEST),
		byte(opcodes.BEGINSUB),
		byte(opcodes.PUSH1), 0x01,
		byte(opcodes.RETURNSUB),
	}
	r, err := Build(code, berlin())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if !r.IsValidSubEntry(1) {
		t.Fatal("address 1 (BEGINSUB) should be a valid JUMPSUB target")
	}

	// JUMPSUB resumes at addr+1, one byte past BEGINSUB: that address
	// must carry its own block entry so the post-JUMPSUB check fires.
	entry, ok := r.BbInfoAt(2)
	if !ok {
		t.Fatal("expected a block entry at address 2 (one past BEGINSUB)")
	}
	// PUSH1 (VeryLow=3) + RETURNSUB (Low=5) = 8 static gas.
	if entry.Gas != 8 {
		t.Errorf("block 2 gas = %d, want 8", entry.Gas)
	}

	// The block ending at BEGINSUB (address 0's JUMPDEST fragment) must
	// not have folded the subroutine body's gas/stack into its own
	// summary: fallthrough into BEGINSUB always faults, so nothing
	// downstream of it is reachable from address 0.
	preEntry, ok := r.BbInfoAt(0)
	if !ok {
		t.Fatal("expected a block entry at address 0 (JUMPDEST)")
	}
	// JUMPDEST (Jumpdest=1) + BEGINSUB (Zero=0) = 1 static gas.
	if preEntry.Gas != 1 {
		t.Errorf("block 0 gas = %d, want 1", preEntry.Gas)
	}
}

func TestDisassembleRendersPushImmediateBigEndian(t *testing.T) {
	code := []byte{byte(opcodes.PUSH2), 0x12, 0x34, byte(opcodes.STOP)}
	r, err := Build(code, berlin())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	lines := r.Disassemble()
	if len(lines) != 2 {
		t.Fatalf("Disassemble() produced %d lines, want 2", len(lines))
	}
	if lines[0] != "PUSH2 0x1234" {
		t.Errorf("lines[0] = %q, want %q", lines[0], "PUSH2 0x1234")
	}
	if lines[1] != "STOP" {
		t.Errorf("lines[1] = %q, want %q", lines[1], "STOP")
	}
}
