package model

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTransaction(t *testing.T) {
	tests := []struct {
		name   string
		typ    TransactionType
		amount string
		want   string
	}{
		{name: "deposit stays positive", typ: TypeDeposit, amount: "100.00", want: "100.00"},
		{name: "negative deposit flipped", typ: TypeDeposit, amount: "-100.00", want: "100.00"},
		{name: "interest positive", typ: TypeInterest, amount: "-1.25", want: "1.25"},
		{name: "positive withdrawal negated", typ: TypeWithdrawal, amount: "40", want: "-40.00"},
		{name: "negative withdrawal kept", typ: TypeWithdrawal, amount: "-40", want: "-40.00"},
		{name: "fee debit", typ: TypeFee, amount: "5", want: "-5.00"},
		{name: "unknown keeps sign", typ: "adjustment", amount: "-7.5", want: "-7.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := Transaction{ID: 1, AccountID: 1, Type: tt.typ, Amount: MustParseMoney(tt.amount)}
			got := NormalizeTransaction(txn)
			assert.Equal(t, tt.want, got.Amount.String())
			assert.Equal(t, tt.want, NormalizeTransaction(got).Amount.String(), "normalization must be idempotent")
		})
	}
}

func TestMoneyFromFloat_RejectsNonFinite(t *testing.T) {
	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := MoneyFromFloat(f)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMalformedRecord))
	}

	m, err := MoneyFromFloat(12.5)
	require.NoError(t, err)
	assert.Equal(t, "12.50", m.String())
}

func TestParseMoney(t *testing.T) {
	_, err := ParseMoney("abc")
	assert.ErrorIs(t, err, ErrMalformedRecord)

	_, err = ParseMoney("  ")
	assert.ErrorIs(t, err, ErrMalformedRecord)

	m, err := ParseMoney("0.1")
	require.NoError(t, err)
	total := Zero
	for i := 0; i < 10; i++ {
		total = total.Add(m)
	}
	assert.True(t, total.Equal(MoneyFromInt(1)), "repeated summation must not drift")
}

func TestIngestLedger(t *testing.T) {
	ts := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	in := Ledger{
		Accounts: []Account{{ID: 1, Type: "checking"}, {ID: 0}, {ID: 1, Type: "savings"}},
		Transactions: []Transaction{
			{ID: 1, AccountID: 1, Type: TypeWithdrawal, Amount: MustParseMoney("20"), Timestamp: ts},
			{ID: 2, AccountID: 1, Type: TypeDeposit, Amount: MustParseMoney("50")},
		},
		Transfers: []Transfer{
			{ID: 1, FromAccountID: 1, ToAccountID: 1, Amount: MustParseMoney("-10"), TransactionAt: ts},
		},
		Fees: []Fee{
			{ID: 1, AccountID: 1, Amount: MustParseMoney("2.50")},
			{ID: 2, AccountID: 1, Amount: MustParseMoney("-1")},
			{ID: 0, AccountID: 1, Amount: MustParseMoney("3")},
			{ID: 3, Amount: MustParseMoney("3")},
		},
		Loans: []Loan{
			{ID: 1, AccountID: 1, Principal: MoneyFromInt(1000), InterestRate: decimal.RequireFromString("0.05")},
			{ID: 2, AccountID: 1, Principal: MoneyFromInt(1000), InterestRate: decimal.RequireFromString("-0.01")},
			{ID: 0, AccountID: 1, Principal: MoneyFromInt(500), InterestRate: decimal.RequireFromString("0.05")},
			{ID: 3, Principal: MoneyFromInt(500), InterestRate: decimal.RequireFromString("0.05")},
		},
	}

	out, rejected := IngestLedger(in)

	require.Len(t, out.Accounts, 1)
	assert.Equal(t, "checking", out.Accounts[0].Type, "first account with an id wins")
	require.Len(t, out.Transactions, 1)
	assert.Equal(t, "-20.00", out.Transactions[0].Amount.String())
	require.Len(t, out.Transfers, 1)
	assert.Equal(t, "10.00", out.Transfers[0].Amount.String())
	assert.True(t, out.Transfers[0].IsSelfTransfer())
	assert.Len(t, out.Fees, 1)
	assert.Len(t, out.Loans, 1)

	assert.Len(t, rejected, 9)
	for _, r := range rejected {
		assert.ErrorIs(t, r, ErrMalformedRecord)
	}

	// Inputs are untouched.
	assert.Equal(t, "20.00", in.Transactions[0].Amount.String())
	assert.Equal(t, "-10.00", in.Transfers[0].Amount.String())
}

func TestMonthArithmetic(t *testing.T) {
	m := MustParseMonth("2023-12")
	assert.Equal(t, "2024-01", m.Next().String())
	assert.Equal(t, "2023-11", m.Prev().String())
	assert.Equal(t, "2022-12", m.AddMonths(-12).String())
	assert.Equal(t, 13, m.MonthsUntil(MustParseMonth("2025-01")))
	assert.True(t, m.Before(m.Next()))
	assert.Equal(t, "2023-12-01", m.Start().String())
}

func TestDate(t *testing.T) {
	d := DateOf(time.Date(2024, 2, 28, 23, 30, 0, 0, time.UTC))
	assert.Equal(t, "2024-02-29", d.AddDays(1).String())
	assert.Equal(t, "2024-02", d.CalendarMonth().String())

	parsed, err := ParseDate("2024-02-28")
	require.NoError(t, err)
	assert.Equal(t, 0, parsed.Compare(d))
}
