package analysis

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/ledgerscope/internal/model"
	"github.com/Veraticus/ledgerscope/internal/window"
)

// BalanceRow is a transaction with the account balance after it posted.
type BalanceRow struct {
	Timestamp     time.Time   `json:"timestamp"`
	Amount        model.Money `json:"amount"`
	Balance       model.Money `json:"balance"`
	AccountID     int64       `json:"account_id"`
	TransactionID int64       `json:"transaction_id"`
}

// BranchRank is an account's balance rank within its branch. Rank 1 is the
// largest balance; equal balances share a rank.
type BranchRank struct {
	Balance   model.Money `json:"balance"`
	BranchID  int64       `json:"branch_id"`
	AccountID int64       `json:"account_id"`
	Rank      int         `json:"rank"`
}

// Outlier is a transaction whose absolute amount ranks at or above the
// outlier percentile among transactions on the same account type.
type Outlier struct {
	PercentRank   decimal.Decimal `json:"percent_rank"`
	AccountType   string          `json:"account_type"`
	Amount        model.Money     `json:"amount"`
	AccountID     int64           `json:"account_id"`
	TransactionID int64           `json:"transaction_id"`
}

// TypeMedian is the median absolute transaction amount of an account type.
type TypeMedian struct {
	AccountType string      `json:"account_type"`
	Median      model.Money `json:"median"`
	Count       int         `json:"count"`
}

// MonthlyBucket totals one account's deposits in one calendar month.
type MonthlyBucket struct {
	Month     model.Month `json:"month"`
	Total     model.Money `json:"total"`
	AccountID int64       `json:"account_id"`
	Count     int         `json:"count"`
	seq       int64
}

// RecordID implements model.Record.
func (b MonthlyBucket) RecordID() int64 { return b.seq }

// RollingRow is a monthly bucket with its trailing average.
type RollingRow struct {
	Average window.Value `json:"average"`
	MonthlyBucket
}

// GrowthRow compares a monthly bucket with the previous month. Delta and
// Growth are undefined when there is no previous month; Growth is also
// undefined when the previous total is zero. Growth is a percentage.
type GrowthRow struct {
	Prior  window.Value `json:"prior"`
	Delta  window.Value `json:"delta"`
	Growth window.Value `json:"growth_pct"`
	MonthlyBucket
}

// Spike is a transaction far above the average of the ones before it.
type Spike struct {
	Timestamp     time.Time       `json:"timestamp"`
	Amount        model.Money     `json:"amount"`
	Baseline      decimal.Decimal `json:"baseline"`
	Ratio         window.Value    `json:"ratio"`
	AccountID     int64           `json:"account_id"`
	TransactionID int64           `json:"transaction_id"`
}

// dailyFlow is one account's net transaction flow on one day.
type dailyFlow struct {
	Day       model.Date
	Net       decimal.Decimal
	AccountID int64
	seq       int64
}

func (d dailyFlow) RecordID() int64 { return d.seq }

// VolatilityRow is the population standard deviation of an account's daily
// net flow. Rank 1 is the most volatile account.
type VolatilityRow struct {
	StdDev    decimal.Decimal `json:"stddev"`
	AccountID int64           `json:"account_id"`
	Days      int             `json:"days"`
	Rank      int             `json:"rank"`
}

// RecordID implements model.Record.
func (v VolatilityRow) RecordID() int64 { return v.AccountID }

// LoanBucket places a loan in a principal bucket. Bucket 1 holds the largest
// principals.
type LoanBucket struct {
	Principal model.Money      `json:"principal"`
	Status    model.LoanStatus `json:"status"`
	LoanID    int64            `json:"loan_id"`
	AccountID int64            `json:"account_id"`
	Bucket    int              `json:"bucket"`
}

// InactiveMonth is a calendar month without transactions, between an
// account's first transaction and the as-of month.
type InactiveMonth struct {
	Month     model.Month `json:"month"`
	AccountID int64       `json:"account_id"`
}

// DormantAccount has had no transaction during the dormancy window.
// LastActivity is nil when the account never transacted.
type DormantAccount struct {
	LastActivity   *time.Time `json:"last_activity"`
	AccountID      int64      `json:"account_id"`
	MonthsInactive int        `json:"months_inactive"`
}

// FeeTotal is a fee with the account's cumulative fees through it.
type FeeTotal struct {
	FeeDate   model.Date  `json:"fee_date"`
	Type      string      `json:"fee_type"`
	Amount    model.Money `json:"amount"`
	Running   model.Money `json:"running_total"`
	AccountID int64       `json:"account_id"`
	FeeID     int64       `json:"fee_id"`
}
