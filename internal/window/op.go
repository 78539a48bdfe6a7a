package window

import "fmt"

type opKind int

const (
	opInvalid opKind = iota
	opSum
	opAvg
	opCount
	opMax
	opMin
	opStdDevPop
	opDenseRank
	opRowNumber
	opLag
	opLead
	opPercentRank
	opNTile
)

// Op is an aggregate or ranking operator.
type Op struct {
	kind opKind
	n    int
}

// Frame-honouring aggregates.
var (
	Sum       = Op{kind: opSum}
	Avg       = Op{kind: opAvg}
	Count     = Op{kind: opCount}
	Max       = Op{kind: opMax}
	Min       = Op{kind: opMin}
	StdDevPop = Op{kind: opStdDevPop}
)

// Ranking operators. They ignore the frame.
var (
	DenseRank   = Op{kind: opDenseRank}
	RowNumber   = Op{kind: opRowNumber}
	PercentRank = Op{kind: opPercentRank}
)

// Lag returns the value n rows before the current row.
func Lag(n int) Op { return Op{kind: opLag, n: n} }

// Lead returns the value n rows after the current row.
func Lead(n int) Op { return Op{kind: opLead, n: n} }

// NTile splits the partition into buckets numbered from 1.
func NTile(buckets int) Op { return Op{kind: opNTile, n: buckets} }

func (o Op) needsValue() bool {
	switch o.kind {
	case opSum, opAvg, opMax, opMin, opStdDevPop, opLag, opLead:
		return true
	}
	return false
}

func (o Op) validate() error {
	switch o.kind {
	case opInvalid:
		return ErrUnknownOp
	case opNTile:
		if o.n <= 0 {
			return fmt.Errorf("%w: ntile needs at least one bucket, got %d", ErrInvalidFrame, o.n)
		}
	case opLag, opLead:
		if o.n < 0 {
			return fmt.Errorf("%w: %s offset %d is negative", ErrInvalidFrame, o, o.n)
		}
	}
	return nil
}

func (o Op) String() string {
	switch o.kind {
	case opSum:
		return "sum"
	case opAvg:
		return "avg"
	case opCount:
		return "count"
	case opMax:
		return "max"
	case opMin:
		return "min"
	case opStdDevPop:
		return "stddev_pop"
	case opDenseRank:
		return "dense_rank"
	case opRowNumber:
		return "row_number"
	case opLag:
		return fmt.Sprintf("lag(%d)", o.n)
	case opLead:
		return fmt.Sprintf("lead(%d)", o.n)
	case opPercentRank:
		return "percent_rank"
	case opNTile:
		return fmt.Sprintf("ntile(%d)", o.n)
	}
	return "invalid"
}
