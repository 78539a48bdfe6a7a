package window

import (
	"cmp"
	"fmt"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/ledgerscope/internal/model"
)

type point struct {
	group string
	id    int64
	at    int
	v     int64
}

func (p point) RecordID() int64 { return p.id }

func byAt(a, b point) int    { return cmp.Compare(a.at, b.at) }
func byValue(a, b point) int { return cmp.Compare(a.v, b.v) }
func byValueDesc(a, b point) int {
	return cmp.Compare(b.v, a.v)
}
func value(p point) decimal.Decimal { return decimal.NewFromInt(p.v) }
func group(p point) string          { return p.group }

func ints(t *testing.T, rows []Row[point, string]) []string {
	t.Helper()
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Value.String()
	}
	return out
}

func TestEvaluate_RunningSumMatchesLedgerBalance(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	txns := []model.Transaction{
		{ID: 3, AccountID: 1, Timestamp: base.Add(2 * time.Hour), Amount: model.MustParseMoney("-25.10")},
		{ID: 1, AccountID: 1, Timestamp: base, Amount: model.MustParseMoney("100.00")},
		{ID: 2, AccountID: 1, Timestamp: base, Amount: model.MustParseMoney("0.30")},
		{ID: 4, AccountID: 2, Timestamp: base, Amount: model.MustParseMoney("10.00")},
		{ID: 5, AccountID: 2, Timestamp: base.Add(time.Minute), Amount: model.MustParseMoney("-2.50")},
	}

	rows, err := Evaluate(txns, Spec[model.Transaction, int64]{
		Partition: func(t model.Transaction) int64 { return t.AccountID },
		Order:     model.CompareByTime,
		Value:     func(t model.Transaction) decimal.Decimal { return t.Amount.Decimal() },
		Frame:     RunningFromStart(),
		Op:        Sum,
	})
	require.NoError(t, err)
	require.Len(t, rows, 5)

	got := make([]string, len(rows))
	ids := make([]int64, len(rows))
	for i, r := range rows {
		got[i] = r.Value.Num.StringFixed(2)
		ids[i] = r.Record.ID
	}
	// Equal timestamps fall back to id order.
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, ids)
	assert.Equal(t, []string{"100.00", "100.30", "75.20", "10.00", "7.50"}, got)

	totals := map[int64]decimal.Decimal{}
	for _, txn := range txns {
		totals[txn.AccountID] = totals[txn.AccountID].Add(txn.Amount.Decimal())
	}
	for acct, last := range Last(rows) {
		assert.True(t, totals[acct].Equal(last.Value.Num), "account %d final balance", acct)
	}
}

func TestEvaluate_RunningSumOrderIndependentTotal(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	records := make([]point, 200)
	total := decimal.Zero
	for i := range records {
		v := rng.Int63n(2000) - 1000
		records[i] = point{id: int64(i + 1), at: rng.Intn(50), v: v}
		total = total.Add(decimal.NewFromInt(v))
	}

	for shuffle := 0; shuffle < 3; shuffle++ {
		rng.Shuffle(len(records), func(i, j int) { records[i], records[j] = records[j], records[i] })
		rows, err := Evaluate(records, Spec[point, string]{
			Order: byAt, Value: value, Frame: RunningFromStart(), Op: Sum,
		})
		require.NoError(t, err)
		assert.True(t, total.Equal(rows[len(rows)-1].Value.Num))
	}
}

func TestEvaluate_DenseRank(t *testing.T) {
	records := []point{
		{id: 1, group: "a", v: 50},
		{id: 2, group: "a", v: 70},
		{id: 3, group: "a", v: 50},
		{id: 4, group: "a", v: 10},
		{id: 5, group: "a", v: 70},
		{id: 6, group: "b", v: 1},
	}

	rows, err := Evaluate(records, Spec[point, string]{
		Partition: group, Order: byValueDesc, Frame: Unbounded(), Op: DenseRank,
	})
	require.NoError(t, err)

	ranks := map[int64]int64{}
	for _, r := range rows {
		ranks[r.Record.id] = r.Value.Int64()
	}
	assert.Equal(t, map[int64]int64{2: 1, 5: 1, 1: 2, 3: 2, 4: 3, 6: 1}, ranks)

	// No gaps between consecutive distinct ranks.
	prev := int64(0)
	for _, r := range rows {
		if r.Partition != "a" {
			continue
		}
		assert.LessOrEqual(t, r.Value.Int64()-prev, int64(1))
		prev = r.Value.Int64()
	}
}

func TestEvaluate_RowNumberUsesTieBreak(t *testing.T) {
	records := []point{{id: 3, v: 5}, {id: 1, v: 5}, {id: 2, v: 5}}

	rows, err := Evaluate(records, Spec[point, string]{Order: byValue, Frame: Unbounded(), Op: RowNumber})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows[0].Record.id)
	assert.Equal(t, []string{"1", "2", "3"}, ints(t, rows))

	rows, err = Evaluate(records, Spec[point, string]{
		Order:    byValue,
		TieBreak: func(a, b point) int { return cmp.Compare(b.id, a.id) },
		Frame:    Unbounded(),
		Op:       RowNumber,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), rows[0].Record.id)
}

func TestEvaluate_PercentRank(t *testing.T) {
	records := []point{{id: 1, v: 10}, {id: 2, v: 20}, {id: 3, v: 30}, {id: 4, v: 40}, {id: 5, v: 50}}

	rows, err := Evaluate(records, Spec[point, string]{Order: byValue, Frame: Unbounded(), Op: PercentRank})
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "0.25", "0.5", "0.75", "1"}, ints(t, rows))

	single, err := Evaluate(records[:1], Spec[point, string]{Order: byValue, Frame: Unbounded(), Op: PercentRank})
	require.NoError(t, err)
	assert.Equal(t, "0", single[0].Value.String())

	ties := []point{{id: 1, v: 10}, {id: 2, v: 10}, {id: 3, v: 30}}
	rows, err = Evaluate(ties, Spec[point, string]{Order: byValue, Frame: Unbounded(), Op: PercentRank})
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "0", "1"}, ints(t, rows))
}

func TestEvaluate_NTile(t *testing.T) {
	records := make([]point, 100)
	for i := range records {
		records[i] = point{id: int64(i + 1), v: int64(i * 3)}
	}

	rows, err := Evaluate(records, Spec[point, string]{Order: byValueDesc, Frame: Unbounded(), Op: NTile(20)})
	require.NoError(t, err)

	counts := map[int64]int{}
	for _, r := range rows {
		counts[r.Value.Int64()]++
	}
	require.Len(t, counts, 20)
	for bucket, n := range counts {
		assert.Equal(t, 5, n, "bucket %d", bucket)
	}

	// Bucket 1 holds the five largest values.
	for _, r := range rows[:5] {
		assert.Equal(t, int64(1), r.Value.Int64())
		assert.GreaterOrEqual(t, r.Record.v, int64(95*3))
	}
}

func TestEvaluate_NTileRemainderGoesToEarliestBuckets(t *testing.T) {
	records := make([]point, 10)
	for i := range records {
		records[i] = point{id: int64(i + 1), v: int64(i)}
	}
	rows, err := Evaluate(records, Spec[point, string]{Order: byValue, Frame: Unbounded(), Op: NTile(4)})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "1", "1", "2", "2", "2", "3", "3", "4", "4"}, ints(t, rows))

	rows, err = Evaluate(records[:3], Spec[point, string]{Order: byValue, Frame: Unbounded(), Op: NTile(5)})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, ints(t, rows))
}

func TestEvaluate_RollingAverage(t *testing.T) {
	records := []point{
		{id: 1, at: 1, v: 100},
		{id: 2, at: 2, v: 200},
		{id: 3, at: 3, v: 600},
		{id: 4, at: 4, v: 0},
	}

	rows, err := Evaluate(records, Spec[point, string]{Order: byAt, Value: value, Frame: Bounded(2, 0), Op: Avg})
	require.NoError(t, err)
	// First bucket averages only itself; the third averages buckets 1-3.
	assert.Equal(t, []string{"100", "150", "300", "266.6666666666666667"}, ints(t, rows))
}

func TestEvaluate_TrailingBaselineExcludesCurrentRow(t *testing.T) {
	records := make([]point, 12)
	for i := range records {
		records[i] = point{id: int64(i + 1), at: i, v: 10}
	}
	records[11].v = 500

	rows, err := Evaluate(records, Spec[point, string]{Order: byAt, Value: value, Frame: Bounded(10, -1), Op: Avg})
	require.NoError(t, err)

	assert.False(t, rows[0].Value.Valid, "first row has no prior rows")
	assert.Equal(t, "10", rows[1].Value.String())
	assert.Equal(t, "10", rows[11].Value.String(), "spike row is not part of its own baseline")

	single, err := Evaluate(records[:1], Spec[point, string]{Order: byAt, Value: value, Frame: Bounded(10, -1), Op: Avg})
	require.NoError(t, err)
	require.Len(t, single, 1)
	assert.Equal(t, Undefined, single[0].Value)

	counts, err := Evaluate(records[:1], Spec[point, string]{Order: byAt, Frame: Bounded(10, -1), Op: Count})
	require.NoError(t, err)
	assert.Equal(t, "0", counts[0].Value.String())
}

func TestEvaluate_LagLead(t *testing.T) {
	records := []point{{id: 1, at: 1, v: 5}, {id: 2, at: 2, v: 8}, {id: 3, at: 3, v: 13}}

	lag, err := Evaluate(records, Spec[point, string]{Order: byAt, Value: value, Frame: Unbounded(), Op: Lag(1)})
	require.NoError(t, err)
	assert.Equal(t, []string{"NULL", "5", "8"}, ints(t, lag))

	lead, err := Evaluate(records, Spec[point, string]{Order: byAt, Value: value, Frame: Unbounded(), Op: Lead(2)})
	require.NoError(t, err)
	assert.Equal(t, []string{"13", "NULL", "NULL"}, ints(t, lead))
}

func TestEvaluate_MaxMinStdDev(t *testing.T) {
	vals := []int64{2, 4, 4, 4, 5, 5, 7, 9}
	records := make([]point, len(vals))
	for i, v := range vals {
		records[i] = point{id: int64(i + 1), at: i, v: v}
	}

	sd, err := Evaluate(records, Spec[point, string]{Order: byAt, Value: value, Frame: Unbounded(), Op: StdDevPop})
	require.NoError(t, err)
	assert.Equal(t, "2", sd[0].Value.String())

	mx, err := Evaluate(records, Spec[point, string]{Order: byAt, Value: value, Frame: RunningFromStart(), Op: Max})
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "4", "4", "4", "5", "5", "7", "9"}, ints(t, mx))

	mn, err := Evaluate(records, Spec[point, string]{Order: byAt, Value: value, Frame: Bounded(1, 1), Op: Min})
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "2", "4", "4", "4", "5", "5", "7"}, ints(t, mn))
}

func TestEvaluate_Errors(t *testing.T) {
	records := []point{{id: 1}}
	tests := []struct {
		want error
		spec Spec[point, string]
		name string
	}{
		{name: "negative width", spec: Spec[point, string]{Value: value, Frame: Bounded(1, -3), Op: Avg}, want: ErrInvalidFrame},
		{name: "zero width", spec: Spec[point, string]{Value: value, Frame: Bounded(0, -1), Op: Sum}, want: ErrInvalidFrame},
		{name: "running with following", spec: Spec[point, string]{Value: value, Frame: Frame{Kind: FrameRunning, Following: 2}, Op: Sum}, want: ErrInvalidFrame},
		{name: "unbounded with bounds", spec: Spec[point, string]{Frame: Frame{Kind: FrameUnbounded, Preceding: 1}, Op: Count}, want: ErrInvalidFrame},
		{name: "zero buckets", spec: Spec[point, string]{Frame: Unbounded(), Op: NTile(0)}, want: ErrInvalidFrame},
		{name: "negative lag", spec: Spec[point, string]{Value: value, Frame: Unbounded(), Op: Lag(-1)}, want: ErrInvalidFrame},
		{name: "missing value", spec: Spec[point, string]{Frame: Unbounded(), Op: Sum}, want: ErrMissingValue},
		{name: "zero op", spec: Spec[point, string]{Frame: Unbounded()}, want: ErrUnknownOp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Evaluate(records, tt.spec)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEvaluate_ExtremeBounds(t *testing.T) {
	records := []point{{id: 1, at: 1, v: 5}, {id: 2, at: 2, v: 8}, {id: 3, at: 3, v: 13}}
	tests := []struct {
		frame Frame
		name  string
		want  []string
	}{
		{name: "huge following", frame: Bounded(1, math.MaxInt-1), want: []string{"26", "26", "21"}},
		{name: "whole range", frame: Bounded(math.MaxInt, math.MaxInt), want: []string{"26", "26", "26"}},
		{name: "huge preceding", frame: Bounded(math.MaxInt, 0), want: []string{"5", "13", "26"}},
		{name: "far future window", frame: Bounded(-math.MaxInt, math.MaxInt), want: []string{"NULL", "NULL", "NULL"}},
		{name: "far past window", frame: Bounded(math.MaxInt, -math.MaxInt), want: []string{"NULL", "NULL", "NULL"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.frame.Validate())
			rows, err := Evaluate(records, Spec[point, string]{Order: byAt, Value: value, Frame: tt.frame, Op: Sum})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ints(t, rows))
		})
	}

	assert.ErrorIs(t, Bounded(math.MinInt, math.MaxInt).Validate(), ErrInvalidFrame)
	assert.ErrorIs(t, Bounded(0, math.MinInt).Validate(), ErrInvalidFrame)
	assert.ErrorIs(t, Bounded(-math.MaxInt, math.MaxInt-1).Validate(), ErrInvalidFrame)
}

func TestEvaluate_EmptyInput(t *testing.T) {
	rows, err := Evaluate([]point{}, Spec[point, string]{Value: value, Frame: RunningFromStart(), Op: Sum})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestEvaluate_ParallelMatchesSequential(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	records := make([]point, 500)
	for i := range records {
		records[i] = point{
			id:    int64(i + 1),
			group: fmt.Sprintf("g%02d", rng.Intn(25)),
			at:    rng.Intn(100),
			v:     rng.Int63n(1000),
		}
	}

	spec := Spec[point, string]{Partition: group, Order: byAt, Value: value, Frame: Bounded(3, 0), Op: Avg}
	sequential, err := Evaluate(records, spec)
	require.NoError(t, err)

	spec.Workers = 4
	parallel, err := Evaluate(records, spec)
	require.NoError(t, err)

	require.Equal(t, len(sequential), len(parallel))
	for i := range sequential {
		assert.Equal(t, sequential[i].Record, parallel[i].Record)
		assert.True(t, sequential[i].Value.Equal(parallel[i].Value))
	}

	again, err := Evaluate(records, spec)
	require.NoError(t, err)
	assert.Equal(t, ints(t, parallel), ints(t, again), "re-running must be idempotent")
}
