package params

// FeeClass names one of the 14 static gas costs an opcode can be billed
// under. The interpreter's block-entry check sums a block's FeeClass costs
// once; Sha3Word/ExpByte are metered dynamically in addition to these.
type FeeClass int

const (
	Zero FeeClass = iota
	Base
	VeryLow
	Low
	Mid
	High
	Balance
	Jumpdest
	Exp
	ExpByte
	Sha3
	Sha3Word
	Copy
	Blockhash

	numFeeClasses int = iota
)

// MemoryGas is the linear coefficient of the memory-extension cost formula
// C(w) = MemoryGas*w + w*w/512. It is 3 across every supported fork.
const MemoryGas uint64 = 3

// baseRow holds the Berlin row from §6; every fork's row is this row with
// Balance/ExpByte overridden where the fork changed them. Sha3/Sha3Word/Copy
// /Blockhash/Jumpdest/the arithmetic classes never change across forks in
// the supported subset.
var baseRow = [numFeeClasses]uint64{
	Zero:     0,
	Base:     2,
	VeryLow:  3,
	Low:      5,
	Mid:      8,
	High:     10,
	Balance:  400,
	Jumpdest: 1,
	Exp:      10,
	ExpByte:  50,
	Sha3:     30,
	Sha3Word: 6,
	Copy:     3,
	Blockhash: 20,
}

// Schedule is a fork-bound projection of FeeClass to a concrete gas cost.
type Schedule struct {
	fork Fork
	fees [numFeeClasses]uint64
}

// NewSchedule builds the fee table for fork. Panics on an unrecognized fork;
// callers are expected to validate user input before constructing a
// Schedule (mirrors the teacher's fail-fast posture for internal
// configuration objects).
func NewSchedule(fork Fork) *Schedule {
	if !fork.Valid() {
		panic("params: unrecognized fork")
	}
	row := baseRow
	switch {
	case fork <= Homestead:
		row[Balance] = 20
		row[ExpByte] = 10
	case fork == TangerineWhistle:
		row[Balance] = 400
		row[ExpByte] = 10
	default: // SpuriousDragon and later
		row[Balance] = 400
		row[ExpByte] = 50
	}
	return &Schedule{fork: fork, fees: row}
}

// Fork returns the fork this schedule was built for.
func (s *Schedule) Fork() Fork { return s.fork }

// Fee returns the static gas cost for class under this schedule.
func (s *Schedule) Fee(class FeeClass) uint64 {
	return s.fees[class]
}

// MemoryGas returns the linear memory-extension coefficient (always 3).
func (s *Schedule) MemoryGas() uint64 { return MemoryGas }
