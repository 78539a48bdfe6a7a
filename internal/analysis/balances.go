package analysis

import (
	"github.com/shopspring/decimal"

	"github.com/Veraticus/ledgerscope/internal/model"
	"github.com/Veraticus/ledgerscope/internal/window"
)

func transactionAccount(t model.Transaction) int64 { return t.AccountID }
func transactionAmount(t model.Transaction) decimal.Decimal { return t.Amount.Decimal() }

// RunningBalances reconstructs each account's balance after every
// transaction, in (timestamp, id) order.
func (e *Engine) RunningBalances(l model.Ledger) ([]BalanceRow, error) {
	rows, err := window.Evaluate(l.Transactions, window.Spec[model.Transaction, int64]{
		Partition: transactionAccount,
		Order:     model.CompareByTime,
		Value:     transactionAmount,
		Frame:     window.RunningFromStart(),
		Op:        window.Sum,
		Workers:   e.opts.Workers,
	})
	if err != nil {
		return nil, err
	}

	out := make([]BalanceRow, len(rows))
	for i, r := range rows {
		out[i] = BalanceRow{
			Timestamp:     r.Record.Timestamp,
			Amount:        r.Record.Amount,
			Balance:       model.MoneyFromDecimal(r.Value.Num),
			AccountID:     r.Record.AccountID,
			TransactionID: r.Record.ID,
		}
	}
	return out, nil
}

// BalanceRanks dense-ranks accounts by balance, largest first, within each
// branch.
func (e *Engine) BalanceRanks(l model.Ledger) ([]BranchRank, error) {
	rows, err := window.Evaluate(l.Accounts, window.Spec[model.Account, int64]{
		Partition: func(a model.Account) int64 { return a.BranchID },
		Order:     func(a, b model.Account) int { return b.Balance.Cmp(a.Balance) },
		Frame:     window.Unbounded(),
		Op:        window.DenseRank,
		Workers:   e.opts.Workers,
	})
	if err != nil {
		return nil, err
	}

	out := make([]BranchRank, len(rows))
	for i, r := range rows {
		out[i] = BranchRank{
			Balance:   r.Record.Balance,
			BranchID:  r.Partition,
			AccountID: r.Record.ID,
			Rank:      int(r.Value.Int64()),
		}
	}
	return out, nil
}

// FeeTotals accumulates each account's fees in (fee date, id) order.
func (e *Engine) FeeTotals(l model.Ledger) ([]FeeTotal, error) {
	rows, err := window.Evaluate(l.Fees, window.Spec[model.Fee, int64]{
		Partition: func(f model.Fee) int64 { return f.AccountID },
		Order:     func(a, b model.Fee) int { return a.FeeDate.Compare(b.FeeDate) },
		Value:     func(f model.Fee) decimal.Decimal { return f.Amount.Decimal() },
		Frame:     window.RunningFromStart(),
		Op:        window.Sum,
		Workers:   e.opts.Workers,
	})
	if err != nil {
		return nil, err
	}

	out := make([]FeeTotal, len(rows))
	for i, r := range rows {
		out[i] = FeeTotal{
			FeeDate:   r.Record.FeeDate,
			Type:      r.Record.Type,
			Amount:    r.Record.Amount,
			Running:   model.MoneyFromDecimal(r.Value.Num),
			AccountID: r.Record.AccountID,
			FeeID:     r.Record.ID,
		}
	}
	return out, nil
}
