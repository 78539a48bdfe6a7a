package window

import (
	"cmp"

	"github.com/Veraticus/ledgerscope/internal/model"
)

// Values returns the computed values in row order.
func Values[T model.Record, K cmp.Ordered](rows []Row[T, K]) []Value {
	out := make([]Value, len(rows))
	for i, r := range rows {
		out[i] = r.Value
	}
	return out
}

// ByRecord indexes rows by RecordID. Record ids must be unique across the
// evaluated input.
func ByRecord[T model.Record, K cmp.Ordered](rows []Row[T, K]) map[int64]Row[T, K] {
	out := make(map[int64]Row[T, K], len(rows))
	for _, r := range rows {
		out[r.Record.RecordID()] = r
	}
	return out
}

// Last returns the final row of every partition, keyed by partition.
func Last[T model.Record, K cmp.Ordered](rows []Row[T, K]) map[K]Row[T, K] {
	out := make(map[K]Row[T, K])
	for _, r := range rows {
		if r.Position == r.PartitionSize-1 {
			out[r.Partition] = r
		}
	}
	return out
}

// ByPartition groups rows by partition key, keeping row order.
func ByPartition[T model.Record, K cmp.Ordered](rows []Row[T, K]) map[K][]Row[T, K] {
	out := make(map[K][]Row[T, K])
	for _, r := range rows {
		out[r.Partition] = append(out[r.Partition], r)
	}
	return out
}
