package window

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/ledgerscope/internal/model"
)

// Spec configures one windowed computation.
type Spec[T model.Record, K cmp.Ordered] struct {
	// Partition selects the partition key. Nil puts every record in one partition.
	Partition func(T) K
	// Order defines peers: rows it reports equal share a rank.
	Order func(a, b T) int
	// TieBreak orders peers. Nil means ascending RecordID.
	TieBreak func(a, b T) int
	// Value selects the metric for aggregates, Lag and Lead.
	Value func(T) decimal.Decimal
	Frame Frame
	Op    Op
	// Workers > 1 evaluates partitions concurrently.
	Workers int
}

// Row is one record with its computed value (a windowed row).
type Row[T model.Record, K cmp.Ordered] struct {
	Record        T
	Partition     K
	Value         Value
	Position      int
	PartitionSize int
}

// Evaluate runs spec over records. The result lists partitions in ascending
// key order and rows within a partition in (Order, TieBreak) order. The input
// slice is not modified.
func Evaluate[T model.Record, K cmp.Ordered](records []T, spec Spec[T, K]) ([]Row[T, K], error) {
	if err := spec.Frame.Validate(); err != nil {
		return nil, err
	}
	if err := spec.Op.validate(); err != nil {
		return nil, err
	}
	if spec.Op.needsValue() && spec.Value == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingValue, spec.Op)
	}
	if len(records) == 0 {
		return nil, nil
	}

	keys, groups := partition(records, spec.Partition)

	var results [][]Row[T, K]
	if spec.Workers > 1 && len(keys) > 1 {
		results = evaluateParallel(keys, groups, spec)
	} else {
		results = make([][]Row[T, K], len(keys))
		for i, k := range keys {
			results[i] = evaluatePartition(k, groups[k], spec)
		}
	}

	out := make([]Row[T, K], 0, len(records))
	for _, rows := range results {
		out = append(out, rows...)
	}
	return out, nil
}

func partition[T model.Record, K cmp.Ordered](records []T, keyFn func(T) K) ([]K, map[K][]T) {
	groups := make(map[K][]T)
	for _, r := range records {
		var k K
		if keyFn != nil {
			k = keyFn(r)
		}
		groups[k] = append(groups[k], r)
	}
	keys := make([]K, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, groups
}

type partitionResult[T model.Record, K cmp.Ordered] struct {
	rows  []Row[T, K]
	index int
}

// evaluateParallel hands partitions to a worker pool. Each worker owns the
// buffer of the partition it evaluates; results are merged by the caller.
func evaluateParallel[T model.Record, K cmp.Ordered](keys []K, groups map[K][]T, spec Spec[T, K]) [][]Row[T, K] {
	workChan := make(chan int, len(keys))
	for i := range keys {
		workChan <- i
	}
	close(workChan)

	resultsChan := make(chan partitionResult[T, K], len(keys))

	workers := min(spec.Workers, len(keys))
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range workChan {
				k := keys[i]
				resultsChan <- partitionResult[T, K]{index: i, rows: evaluatePartition(k, groups[k], spec)}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	results := make([][]Row[T, K], len(keys))
	for r := range resultsChan {
		results[r.index] = r.rows
	}
	return results
}

func evaluatePartition[T model.Record, K cmp.Ordered](key K, records []T, spec Spec[T, K]) []Row[T, K] {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, totalOrder(spec.Order, spec.TieBreak))

	n := len(sorted)
	rows := make([]Row[T, K], n)
	for i, r := range sorted {
		rows[i] = Row[T, K]{Record: r, Partition: key, Position: i, PartitionSize: n}
	}

	var values []decimal.Decimal
	if spec.Value != nil {
		values = make([]decimal.Decimal, n)
		for i, r := range sorted {
			values[i] = spec.Value(r)
		}
	}

	switch spec.Op.kind {
	case opSum, opAvg, opCount, opStdDevPop:
		fillPrefixAggregate(rows, values, spec.Frame, spec.Op)
	case opMax, opMin:
		fillExtremum(rows, values, spec.Frame, spec.Op.kind == opMax)
	case opRowNumber:
		for i := range rows {
			rows[i].Value = Int(i + 1)
		}
	case opDenseRank:
		rank := 0
		for i := range rows {
			if i == 0 || !peers(spec.Order, sorted[i-1], sorted[i]) {
				rank++
			}
			rows[i].Value = Int(rank)
		}
	case opPercentRank:
		fillPercentRank(rows, sorted, spec.Order)
	case opNTile:
		for i := range rows {
			rows[i].Value = Int(ntileBucket(i, n, spec.Op.n))
		}
	case opLag, opLead:
		offset := spec.Op.n
		if spec.Op.kind == opLag {
			offset = -offset
		}
		for i := range rows {
			j := i + offset
			if j >= 0 && j < n {
				rows[i].Value = Defined(values[j])
			}
		}
	}
	return rows
}

func totalOrder[T model.Record](order, tieBreak func(a, b T) int) func(a, b T) int {
	return func(a, b T) int {
		if order != nil {
			if c := order(a, b); c != 0 {
				return c
			}
		}
		if tieBreak != nil {
			return tieBreak(a, b)
		}
		return cmp.Compare(a.RecordID(), b.RecordID())
	}
}

func peers[T model.Record](order func(a, b T) int, a, b T) bool {
	return order == nil || order(a, b) == 0
}

// fillPrefixAggregate uses prefix sums of x and x² so every frame costs O(1).
func fillPrefixAggregate[T model.Record, K cmp.Ordered](rows []Row[T, K], values []decimal.Decimal, frame Frame, op Op) {
	n := len(rows)
	sums := make([]decimal.Decimal, n+1)
	squares := make([]decimal.Decimal, n+1)
	for i := 0; i < n; i++ {
		v := decimal.Zero
		if values != nil {
			v = values[i]
		}
		sums[i+1] = sums[i].Add(v)
		squares[i+1] = squares[i].Add(v.Mul(v))
	}

	for i := range rows {
		lo, hi := frame.bounds(i, n)
		count := hi - lo
		if op.kind == opCount {
			rows[i].Value = Int(max(count, 0))
			continue
		}
		if count <= 0 {
			rows[i].Value = Undefined
			continue
		}
		sum := sums[hi].Sub(sums[lo])
		cnt := decimal.NewFromInt(int64(count))
		switch op.kind {
		case opSum:
			rows[i].Value = Defined(sum)
		case opAvg:
			rows[i].Value = Defined(sum.Div(cnt))
		case opStdDevPop:
			sq := squares[hi].Sub(squares[lo])
			rows[i].Value = Defined(stddevPop(sum, sq, cnt))
		}
	}
}

// stddevPop computes sqrt((n*Σx² - (Σx)²) / n²). The numerator is exact, so
// it is never negative.
func stddevPop(sum, squares, n decimal.Decimal) decimal.Decimal {
	numerator := n.Mul(squares).Sub(sum.Mul(sum))
	if numerator.Sign() <= 0 {
		return decimal.Zero
	}
	variance := numerator.Div(n.Mul(n))
	f, _ := variance.Float64()
	return decimal.NewFromFloat(math.Sqrt(f))
}

func fillExtremum[T model.Record, K cmp.Ordered](rows []Row[T, K], values []decimal.Decimal, frame Frame, wantMax bool) {
	n := len(rows)
	better := func(a, b decimal.Decimal) bool {
		if wantMax {
			return a.GreaterThan(b)
		}
		return a.LessThan(b)
	}

	if frame.Kind == FrameRunning {
		best := values[0]
		for i := range rows {
			if better(values[i], best) {
				best = values[i]
			}
			rows[i].Value = Defined(best)
		}
		return
	}

	for i := range rows {
		lo, hi := frame.bounds(i, n)
		if lo >= hi {
			rows[i].Value = Undefined
			continue
		}
		best := values[lo]
		for j := lo + 1; j < hi; j++ {
			if better(values[j], best) {
				best = values[j]
			}
		}
		rows[i].Value = Defined(best)
	}
}

// fillPercentRank assigns (rank-1)/(n-1) where peers share the lowest rank.
func fillPercentRank[T model.Record, K cmp.Ordered](rows []Row[T, K], sorted []T, order func(a, b T) int) {
	n := len(rows)
	if n == 1 {
		rows[0].Value = Defined(decimal.Zero)
		return
	}
	denominator := decimal.NewFromInt(int64(n - 1))
	first := 0
	for i := range rows {
		if i > 0 && !peers(order, sorted[i-1], sorted[i]) {
			first = i
		}
		rows[i].Value = Defined(decimal.NewFromInt(int64(first)).Div(denominator))
	}
}

// ntileBucket returns the 1-based bucket of position i. The first n%b
// buckets carry one extra row.
func ntileBucket(i, n, buckets int) int {
	if buckets > n {
		buckets = n
	}
	size := n / buckets
	extra := n % buckets
	large := extra * (size + 1)
	if i < large {
		return i/(size+1) + 1
	}
	return extra + (i-large)/size + 1
}
