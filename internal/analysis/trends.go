package analysis

import (
	"maps"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/ledgerscope/internal/calendar"
	"github.com/Veraticus/ledgerscope/internal/model"
	"github.com/Veraticus/ledgerscope/internal/window"
)

var hundred = decimal.NewFromInt(100)

type monthKey struct {
	month     model.Month
	accountID int64
}

// MonthlyDeposits totals deposits per account and calendar month. Every
// month from an account's first to its last deposit is present; months with
// no deposits have a zero total.
func (e *Engine) MonthlyDeposits(l model.Ledger) ([]MonthlyBucket, error) {
	totals := make(map[monthKey]*MonthlyBucket)
	spans := make(map[int64][2]model.Month)
	for _, t := range l.Transactions {
		if t.Type != model.TypeDeposit {
			continue
		}
		k := monthKey{month: model.MonthOf(t.Timestamp), accountID: t.AccountID}
		b, ok := totals[k]
		if !ok {
			b = &MonthlyBucket{Month: k.month, AccountID: k.accountID}
			totals[k] = b
		}
		b.Total = b.Total.Add(t.Amount)
		b.Count++

		span, seen := spans[t.AccountID]
		switch {
		case !seen:
			span = [2]model.Month{k.month, k.month}
		case k.month.Before(span[0]):
			span[0] = k.month
		case k.month.After(span[1]):
			span[1] = k.month
		}
		spans[t.AccountID] = span
	}

	var out []MonthlyBucket
	for _, id := range slices.Sorted(maps.Keys(spans)) {
		months, err := calendar.Span(spans[id][0], spans[id][1])
		if err != nil {
			return nil, err
		}
		for m := range months {
			b := MonthlyBucket{Month: m, AccountID: id}
			if found, ok := totals[monthKey{month: m, accountID: id}]; ok {
				b = *found
			}
			b.seq = int64(len(out))
			out = append(out, b)
		}
	}
	return out, nil
}

func bucketSpec(frame window.Frame, op window.Op, workers int) window.Spec[MonthlyBucket, int64] {
	return window.Spec[MonthlyBucket, int64]{
		Partition: func(b MonthlyBucket) int64 { return b.AccountID },
		Order:     func(a, b MonthlyBucket) int { return a.Month.Compare(b.Month) },
		Value:     func(b MonthlyBucket) decimal.Decimal { return b.Total.Decimal() },
		Frame:     frame,
		Op:        op,
		Workers:   workers,
	}
}

// RollingDeposits averages each monthly bucket with the buckets before it,
// up to the rolling window size.
func (e *Engine) RollingDeposits(l model.Ledger) ([]RollingRow, error) {
	buckets, err := e.MonthlyDeposits(l)
	if err != nil {
		return nil, err
	}
	frame := window.Bounded(e.opts.RollingWindow-1, 0)
	rows, err := window.Evaluate(buckets, bucketSpec(frame, window.Avg, e.opts.Workers))
	if err != nil {
		return nil, err
	}

	out := make([]RollingRow, len(rows))
	for i, r := range rows {
		out[i] = RollingRow{Average: round(r.Value, 2), MonthlyBucket: r.Record}
	}
	return out, nil
}

// MonthOverMonth compares each monthly bucket with the previous month of the
// same account.
func (e *Engine) MonthOverMonth(l model.Ledger) ([]GrowthRow, error) {
	buckets, err := e.MonthlyDeposits(l)
	if err != nil {
		return nil, err
	}
	rows, err := window.Evaluate(buckets, bucketSpec(window.Unbounded(), window.Lag(1), e.opts.Workers))
	if err != nil {
		return nil, err
	}

	out := make([]GrowthRow, len(rows))
	for i, r := range rows {
		row := GrowthRow{Prior: r.Value, MonthlyBucket: r.Record}
		if r.Value.Valid {
			delta := r.Record.Total.Decimal().Sub(r.Value.Num)
			row.Delta = window.Defined(delta)
			row.Growth = round(window.Ratio(delta.Mul(hundred), r.Value.Num), 2)
		}
		out[i] = row
	}
	return out, nil
}

// Spikes flags transactions whose absolute amount exceeds the spike
// multiplier times the average absolute amount of the account's preceding
// transactions. A transaction with no preceding rows is never a spike.
func (e *Engine) Spikes(l model.Ledger) ([]Spike, error) {
	rows, err := window.Evaluate(l.Transactions, window.Spec[model.Transaction, int64]{
		Partition: transactionAccount,
		Order:     model.CompareByTime,
		Value:     absAmount,
		Frame:     window.Bounded(e.opts.SpikeLookback, -1),
		Op:        window.Avg,
		Workers:   e.opts.Workers,
	})
	if err != nil {
		return nil, err
	}

	var out []Spike
	for _, r := range rows {
		if !r.Value.Valid {
			continue
		}
		amount := absAmount(r.Record)
		if !amount.GreaterThan(e.opts.SpikeMultiplier.Mul(r.Value.Num)) {
			continue
		}
		out = append(out, Spike{
			Timestamp:     r.Record.Timestamp,
			Amount:        r.Record.Amount,
			Baseline:      r.Value.Num.Round(2),
			Ratio:         round(window.Ratio(amount, r.Value.Num), 2),
			AccountID:     r.Record.AccountID,
			TransactionID: r.Record.ID,
		})
	}
	return out, nil
}

func round(v window.Value, places int32) window.Value {
	if !v.Valid {
		return v
	}
	return window.Defined(v.Num.Round(places))
}
