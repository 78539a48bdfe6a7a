// Package window implements a partition-order-frame evaluator for windowed
// computations over ledger records.
//
// # Overview
//
// A Spec describes one computation:
//
//  1. Partition groups records by key. Partitions are independent.
//  2. Order sorts rows within a partition. Rows it reports as equal are peers
//     for the ranking operators.
//  3. TieBreak breaks peer ties so every partition has one deterministic
//     order. It defaults to ascending RecordID.
//  4. Frame selects which rows an aggregate sees from each row's position.
//  5. Op is the aggregate or ranking operator evaluated per row.
//
// # Running balance
//
//	rows, err := window.Evaluate(txns, window.Spec[model.Transaction, int64]{
//		Partition: func(t model.Transaction) int64 { return t.AccountID },
//		Order:     model.CompareByTime,
//		Value:     func(t model.Transaction) decimal.Decimal { return t.Amount.Decimal() },
//		Frame:     window.RunningFromStart(),
//		Op:        window.Sum,
//	})
//
// # Trailing baseline
//
// Bounded(10, -1) ends one row before the current row, so Avg compares each
// row against the ten rows before it. The first row of a partition has an
// empty frame and its Value is undefined.
package window
