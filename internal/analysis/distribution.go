package analysis

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/ledgerscope/internal/model"
	"github.com/Veraticus/ledgerscope/internal/stats"
	"github.com/Veraticus/ledgerscope/internal/window"
)

// unknownAccountType groups transactions whose account is not in the ledger.
const unknownAccountType = "unknown"

func accountTypes(l model.Ledger) func(model.Transaction) string {
	index := l.AccountIndex()
	return func(t model.Transaction) string {
		if a, ok := index[t.AccountID]; ok && a.Type != "" {
			return a.Type
		}
		return unknownAccountType
	}
}

func absAmount(t model.Transaction) decimal.Decimal { return t.Amount.Decimal().Abs() }

// TransactionOutliers percent-ranks absolute transaction amounts within each
// account type and keeps the rows at or above the outlier percentile.
func (e *Engine) TransactionOutliers(l model.Ledger) ([]Outlier, error) {
	typeOf := accountTypes(l)
	rows, err := window.Evaluate(l.Transactions, window.Spec[model.Transaction, string]{
		Partition: typeOf,
		Order:     func(a, b model.Transaction) int { return absAmount(a).Cmp(absAmount(b)) },
		Frame:     window.Unbounded(),
		Op:        window.PercentRank,
		Workers:   e.opts.Workers,
	})
	if err != nil {
		return nil, err
	}

	var out []Outlier
	for _, r := range rows {
		if r.Value.Num.LessThan(e.opts.OutlierPercentile) {
			continue
		}
		out = append(out, Outlier{
			PercentRank:   r.Value.Num,
			AccountType:   r.Partition,
			Amount:        r.Record.Amount,
			AccountID:     r.Record.AccountID,
			TransactionID: r.Record.ID,
		})
	}
	return out, nil
}

// MedianTransactionByType returns the median absolute transaction amount of
// each account type, sorted by type.
func (e *Engine) MedianTransactionByType(l model.Ledger) ([]TypeMedian, error) {
	typeOf := accountTypes(l)
	medians, err := stats.MedianBy[model.Transaction, string](l.Transactions, typeOf, absAmount)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(medians))
	for _, t := range l.Transactions {
		counts[typeOf(t)]++
	}

	out := make([]TypeMedian, 0, len(medians))
	for typ, m := range medians {
		out = append(out, TypeMedian{
			AccountType: typ,
			Median:      model.MoneyFromDecimal(m),
			Count:       counts[typ],
		})
	}
	slices.SortFunc(out, func(a, b TypeMedian) int { return cmp.Compare(a.AccountType, b.AccountType) })
	return out, nil
}

type dayKey struct {
	day       model.Date
	accountID int64
}

// dailyFlows nets each account's transactions per UTC day.
func dailyFlows(transactions []model.Transaction) []dailyFlow {
	index := make(map[dayKey]int)
	var flows []dailyFlow
	for _, t := range transactions {
		k := dayKey{day: t.Day(), accountID: t.AccountID}
		i, ok := index[k]
		if !ok {
			i = len(flows)
			index[k] = i
			flows = append(flows, dailyFlow{Day: k.day, AccountID: k.accountID, seq: int64(i)})
		}
		flows[i].Net = flows[i].Net.Add(t.Amount.Decimal())
	}
	return flows
}

// Volatility computes the population standard deviation of each account's
// daily net flow and ranks accounts from most to least volatile.
func (e *Engine) Volatility(l model.Ledger) ([]VolatilityRow, error) {
	flows, err := window.Evaluate(dailyFlows(l.Transactions), window.Spec[dailyFlow, int64]{
		Partition: func(d dailyFlow) int64 { return d.AccountID },
		Order:     func(a, b dailyFlow) int { return a.Day.Compare(b.Day) },
		Value:     func(d dailyFlow) decimal.Decimal { return d.Net },
		Frame:     window.Unbounded(),
		Op:        window.StdDevPop,
		Workers:   e.opts.Workers,
	})
	if err != nil {
		return nil, err
	}

	last := window.Last(flows)
	accounts := make([]VolatilityRow, 0, len(last))
	for id, r := range last {
		accounts = append(accounts, VolatilityRow{
			StdDev:    r.Value.Num,
			AccountID: id,
			Days:      r.PartitionSize,
		})
	}

	ranked, err := window.Evaluate(accounts, window.Spec[VolatilityRow, int]{
		Order: func(a, b VolatilityRow) int { return b.StdDev.Cmp(a.StdDev) },
		Frame: window.Unbounded(),
		Op:    window.DenseRank,
	})
	if err != nil {
		return nil, err
	}

	out := make([]VolatilityRow, len(ranked))
	for i, r := range ranked {
		out[i] = r.Record
		out[i].Rank = int(r.Value.Int64())
	}
	return out, nil
}

// LoanBuckets splits loans into principal buckets, largest principals in
// bucket 1. Equal principals are ordered by loan id.
func (e *Engine) LoanBuckets(l model.Ledger) ([]LoanBucket, error) {
	rows, err := window.Evaluate(l.Loans, window.Spec[model.Loan, int]{
		Order: func(a, b model.Loan) int { return b.Principal.Cmp(a.Principal) },
		Frame: window.Unbounded(),
		Op:    window.NTile(e.opts.LoanBuckets),
	})
	if err != nil {
		return nil, err
	}

	out := make([]LoanBucket, len(rows))
	for i, r := range rows {
		out[i] = LoanBucket{
			Principal: r.Record.Principal,
			Status:    r.Record.Status,
			LoanID:    r.Record.ID,
			AccountID: r.Record.AccountID,
			Bucket:    int(r.Value.Int64()),
		}
	}
	return out, nil
}
