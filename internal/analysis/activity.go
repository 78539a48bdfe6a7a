package analysis

import (
	"maps"
	"slices"
	"time"

	"github.com/Veraticus/ledgerscope/internal/calendar"
	"github.com/Veraticus/ledgerscope/internal/model"
	"github.com/Veraticus/ledgerscope/internal/window"
)

// postedBy drops transactions after the as-of time.
func (e *Engine) postedBy(transactions []model.Transaction) []model.Transaction {
	out := make([]model.Transaction, 0, len(transactions))
	for _, t := range transactions {
		if !t.Timestamp.After(e.opts.AsOf) {
			out = append(out, t)
		}
	}
	return out
}

// InactiveMonths lists, per account, the months from its first transaction
// through the as-of month that have no transactions.
func (e *Engine) InactiveMonths(l model.Ledger) ([]InactiveMonth, error) {
	active := make(map[int64]map[model.Month]bool)
	first := make(map[int64]model.Month)
	for _, t := range e.postedBy(l.Transactions) {
		m := model.MonthOf(t.Timestamp)
		if active[t.AccountID] == nil {
			active[t.AccountID] = make(map[model.Month]bool)
		}
		active[t.AccountID][m] = true
		if f, ok := first[t.AccountID]; !ok || m.Before(f) {
			first[t.AccountID] = m
		}
	}

	end := model.MonthOf(e.opts.AsOf)
	var out []InactiveMonth
	for _, id := range slices.Sorted(maps.Keys(first)) {
		months, err := calendar.Span(first[id], end)
		if err != nil {
			return nil, err
		}
		for _, m := range calendar.Gaps(months, active[id]) {
			out = append(out, InactiveMonth{Month: m, AccountID: id})
		}
	}
	return out, nil
}

// DormantAccounts lists accounts with no transaction during the dormancy
// window ending at the as-of time. Accounts that never transacted are
// dormant once they have been open longer than the window.
func (e *Engine) DormantAccounts(l model.Ledger) ([]DormantAccount, error) {
	rows, err := window.Evaluate(e.postedBy(l.Transactions), window.Spec[model.Transaction, int64]{
		Partition: transactionAccount,
		Order:     model.CompareByTime,
		Frame:     window.Unbounded(),
		Op:        window.RowNumber,
		Workers:   e.opts.Workers,
	})
	if err != nil {
		return nil, err
	}
	last := window.Last(rows)

	opened := make(map[int64]time.Time, len(l.Accounts))
	for _, a := range l.Accounts {
		opened[a.ID] = a.OpenedAt
	}
	for id := range last {
		if _, ok := opened[id]; !ok {
			opened[id] = time.Time{}
		}
	}

	cutoff := e.opts.AsOf.AddDate(0, -e.opts.DormancyMonths, 0)
	asOf := model.MonthOf(e.opts.AsOf)
	var out []DormantAccount
	for _, id := range slices.Sorted(maps.Keys(opened)) {
		d := DormantAccount{AccountID: id}
		since := opened[id]
		if r, ok := last[id]; ok {
			ts := r.Record.Timestamp
			d.LastActivity = &ts
			since = ts
		}
		if !since.IsZero() && !since.Before(cutoff) {
			continue
		}
		if !since.IsZero() {
			d.MonthsInactive = model.MonthOf(since).MonthsUntil(asOf)
		}
		out = append(out, d)
	}
	return out, nil
}
