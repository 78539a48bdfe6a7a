// Package stats provides percentile and dispersion statistics built on the
// window evaluator, so sorting and tie-breaking follow the same rules as every
// other windowed computation.
package stats

import (
	"cmp"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/ledgerscope/internal/model"
	"github.com/Veraticus/ledgerscope/internal/window"
)

// sample adapts a bare value to model.Record; its id is the input position.
type sample struct {
	v  decimal.Decimal
	id int64
}

func (s sample) RecordID() int64 { return s.id }

func samples(values []decimal.Decimal) []sample {
	out := make([]sample, len(values))
	for i, v := range values {
		out[i] = sample{id: int64(i), v: v}
	}
	return out
}

func sampleValue(s sample) decimal.Decimal { return s.v }

func ascending(a, b sample) int { return a.v.Cmp(b.v) }

// Median returns the middle value, or the mean of the two middle values for
// an even count. It reports false for empty input.
func Median(values []decimal.Decimal) (decimal.Decimal, bool) {
	medians, err := MedianBy[sample, int](samples(values), nil, sampleValue)
	if err != nil || len(medians) == 0 {
		return decimal.Zero, false
	}
	m, ok := medians[0]
	return m, ok
}

// MedianBy computes the median of value per partition. Rows are numbered
// with RowNumber and the middle rows picked using the partition size.
func MedianBy[T model.Record, K cmp.Ordered](records []T, partition func(T) K, value func(T) decimal.Decimal) (map[K]decimal.Decimal, error) {
	rows, err := window.Evaluate(records, window.Spec[T, K]{
		Partition: partition,
		Order:     func(a, b T) int { return value(a).Cmp(value(b)) },
		Frame:     window.Unbounded(),
		Op:        window.RowNumber,
	})
	if err != nil {
		return nil, err
	}

	type middle struct {
		sum   decimal.Decimal
		count int64
	}
	mids := make(map[K]*middle)
	for _, r := range rows {
		n := int64(r.PartitionSize)
		rn := r.Value.Int64()
		isMiddle := rn == (n+1)/2 || (n%2 == 0 && rn == n/2+1)
		if !isMiddle {
			continue
		}
		m, ok := mids[r.Partition]
		if !ok {
			m = &middle{}
			mids[r.Partition] = m
		}
		m.sum = m.sum.Add(value(r.Record))
		m.count++
	}

	out := make(map[K]decimal.Decimal, len(mids))
	for k, m := range mids {
		out[k] = m.sum.Div(decimal.NewFromInt(m.count))
	}
	return out, nil
}

// StdDevPop returns the population standard deviation (divides by n).
func StdDevPop(values []decimal.Decimal) (decimal.Decimal, bool) {
	return whole(values, window.StdDevPop)
}

// Mean returns the arithmetic mean.
func Mean(values []decimal.Decimal) (decimal.Decimal, bool) {
	return whole(values, window.Avg)
}

func whole(values []decimal.Decimal, op window.Op) (decimal.Decimal, bool) {
	rows, err := window.Evaluate(samples(values), window.Spec[sample, int]{
		Value: sampleValue,
		Frame: window.Unbounded(),
		Op:    op,
	})
	if err != nil || len(rows) == 0 || !rows[0].Value.Valid {
		return decimal.Zero, false
	}
	return rows[0].Value.Num, true
}

// PercentRanks returns the percent rank of each value, in input order.
func PercentRanks(values []decimal.Decimal) []decimal.Decimal {
	return byPosition(values, window.PercentRank)
}

// NTiles returns the 1-based bucket of each value ranked descending, in
// input order. Bucket 1 holds the largest values.
func NTiles(values []decimal.Decimal, buckets int) ([]int, error) {
	rows, err := window.Evaluate(samples(values), window.Spec[sample, int]{
		Order: func(a, b sample) int { return b.v.Cmp(a.v) },
		Frame: window.Unbounded(),
		Op:    window.NTile(buckets),
	})
	if err != nil {
		return nil, err
	}
	out := make([]int, len(values))
	for _, r := range rows {
		out[r.Record.id] = int(r.Value.Int64())
	}
	return out, nil
}

func byPosition(values []decimal.Decimal, op window.Op) []decimal.Decimal {
	rows, err := window.Evaluate(samples(values), window.Spec[sample, int]{
		Order: ascending,
		Frame: window.Unbounded(),
		Op:    op,
	})
	if err != nil {
		return nil
	}
	out := make([]decimal.Decimal, len(values))
	for _, r := range rows {
		out[r.Record.id] = r.Value.Num
	}
	return out
}
