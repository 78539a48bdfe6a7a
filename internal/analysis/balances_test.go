package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/ledgerscope/internal/model"
	"github.com/Veraticus/ledgerscope/internal/testutil"
)

func moneyStrings[T any](rows []T, get func(T) model.Money) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = get(r).String()
	}
	return out
}

func TestEngine_RunningBalances(t *testing.T) {
	rows, err := newTestEngine(t).RunningBalances(smallBank(t))
	require.NoError(t, err)

	byAccount := make(map[int64][]BalanceRow)
	for _, r := range rows {
		byAccount[r.AccountID] = append(byAccount[r.AccountID], r)
	}

	tests := []struct {
		name    string
		want    []string
		account int64
	}{
		{name: "deposits and a withdrawal", account: 10, want: []string{"100.00", "60.00", "260.00", "860.00"}},
		{name: "interest is a credit", account: 11, want: []string{"1000.00", "1002.50", "1052.50"}},
		{name: "two postings", account: 20, want: []string{"300.00", "275.00"}},
		{name: "single posting", account: 21, want: []string{"80.00"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := byAccount[tt.account]
			assert.Equal(t, tt.want, moneyStrings(got, func(r BalanceRow) model.Money { return r.Balance }))
			for i := 1; i < len(got); i++ {
				assert.False(t, got[i].Timestamp.Before(got[i-1].Timestamp))
			}
		})
	}
}

func TestEngine_RunningBalances_SameTimestampOrdersByID(t *testing.T) {
	at := testutil.At(2023, 1, 1)
	l := testutil.NewLedgerBuilder(t).
		WithDeposit(1, "10.00", at).
		WithWithdrawal(1, "3.00", at).
		WithDeposit(1, "5.00", at).
		Ingest()

	rows, err := newTestEngine(t).RunningBalances(l)
	require.NoError(t, err)
	assert.Equal(t, []string{"10.00", "7.00", "12.00"}, moneyStrings(rows, func(r BalanceRow) model.Money { return r.Balance }))
	assert.Equal(t, int64(1), rows[0].TransactionID)
	assert.Equal(t, int64(3), rows[2].TransactionID)
}

func TestEngine_BalanceRanks(t *testing.T) {
	l := smallBank(t)
	l.Accounts = append(l.Accounts, model.Account{ID: 12, BranchID: 1, Type: "checking", Balance: model.MustParseMoney("1500.00")})

	rows, err := newTestEngine(t).BalanceRanks(l)
	require.NoError(t, err)

	type rank struct {
		branch, account int64
		rank            int
	}
	got := make([]rank, len(rows))
	for i, r := range rows {
		got[i] = rank{branch: r.BranchID, account: r.AccountID, rank: r.Rank}
	}
	assert.Equal(t, []rank{
		{branch: 1, account: 11, rank: 1},
		{branch: 1, account: 10, rank: 2},
		{branch: 1, account: 12, rank: 2},
		{branch: 2, account: 20, rank: 1},
		{branch: 2, account: 21, rank: 2},
	}, got)
}

func TestEngine_FeeTotals(t *testing.T) {
	rows, err := newTestEngine(t).FeeTotals(smallBank(t))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"5.00", "40.00", "5.00"}, moneyStrings(rows, func(r FeeTotal) model.Money { return r.Running }))
	assert.Equal(t, []int64{10, 10, 20}, []int64{rows[0].AccountID, rows[1].AccountID, rows[2].AccountID})
	assert.Equal(t, "overdraft", rows[1].Type)
}

func TestEngine_EmptyLedger(t *testing.T) {
	e := newTestEngine(t)
	var l model.Ledger

	balances, err := e.RunningBalances(l)
	require.NoError(t, err)
	assert.Empty(t, balances)

	ranks, err := e.BalanceRanks(l)
	require.NoError(t, err)
	assert.Empty(t, ranks)

	fees, err := e.FeeTotals(l)
	require.NoError(t, err)
	assert.Empty(t, fees)

	assert.Empty(t, e.RapidInOut(l))
}
