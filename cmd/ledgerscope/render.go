package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/Veraticus/ledgerscope/internal/aml"
	"github.com/Veraticus/ledgerscope/internal/analysis"
	"github.com/Veraticus/ledgerscope/internal/cli"
	"github.com/Veraticus/ledgerscope/internal/window"
)

const timeLayout = "2006-01-02 15:04"

func id(n int64) string { return strconv.FormatInt(n, 10) }

func value(v window.Value) string {
	if !v.Valid {
		return "-"
	}
	return v.Num.StringFixed(2)
}

func lastActivity(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Format(dateLayout)
}

// tableFor lays out the typed rows of an analysis result.
func tableFor(title string, rows any) (cli.Table, error) {
	t := cli.Table{Title: title}
	switch rs := rows.(type) {
	case []analysis.BalanceRow:
		t.Headers = []string{"Account", "Transaction", "Time", "Amount", "Balance"}
		for _, r := range rs {
			t.Rows = append(t.Rows, []string{id(r.AccountID), id(r.TransactionID), r.Timestamp.Format(timeLayout), r.Amount.String(), r.Balance.String()})
		}
	case []analysis.BranchRank:
		t.Headers = []string{"Branch", "Rank", "Account", "Balance"}
		for _, r := range rs {
			t.Rows = append(t.Rows, []string{id(r.BranchID), strconv.Itoa(r.Rank), id(r.AccountID), r.Balance.String()})
		}
	case []analysis.Outlier:
		t.Headers = []string{"Account Type", "Account", "Transaction", "Amount", "Percent Rank"}
		for _, r := range rs {
			t.Rows = append(t.Rows, []string{r.AccountType, id(r.AccountID), id(r.TransactionID), r.Amount.String(), r.PercentRank.StringFixed(4)})
		}
	case []analysis.TypeMedian:
		t.Headers = []string{"Account Type", "Transactions", "Median"}
		for _, r := range rs {
			t.Rows = append(t.Rows, []string{r.AccountType, strconv.Itoa(r.Count), r.Median.String()})
		}
	case []analysis.MonthlyBucket:
		t.Headers = []string{"Account", "Month", "Deposits", "Total"}
		for _, r := range rs {
			t.Rows = append(t.Rows, []string{id(r.AccountID), r.Month.String(), strconv.Itoa(r.Count), r.Total.String()})
		}
	case []analysis.RollingRow:
		t.Headers = []string{"Account", "Month", "Total", "Rolling Avg"}
		for _, r := range rs {
			t.Rows = append(t.Rows, []string{id(r.AccountID), r.Month.String(), r.Total.String(), value(r.Average)})
		}
	case []analysis.GrowthRow:
		t.Headers = []string{"Account", "Month", "Total", "Prior", "Delta", "Growth %"}
		for _, r := range rs {
			t.Rows = append(t.Rows, []string{id(r.AccountID), r.Month.String(), r.Total.String(), value(r.Prior), value(r.Delta), value(r.Growth)})
		}
	case []analysis.Spike:
		t.Headers = []string{"Account", "Transaction", "Time", "Amount", "Baseline", "Ratio"}
		for _, r := range rs {
			t.Rows = append(t.Rows, []string{id(r.AccountID), id(r.TransactionID), r.Timestamp.Format(timeLayout), r.Amount.String(), r.Baseline.StringFixed(2), value(r.Ratio)})
		}
	case []analysis.VolatilityRow:
		t.Headers = []string{"Rank", "Account", "Active Days", "Std Dev"}
		for _, r := range rs {
			t.Rows = append(t.Rows, []string{strconv.Itoa(r.Rank), id(r.AccountID), strconv.Itoa(r.Days), r.StdDev.StringFixed(2)})
		}
	case []analysis.LoanBucket:
		t.Headers = []string{"Bucket", "Loan", "Account", "Status", "Principal"}
		for _, r := range rs {
			t.Rows = append(t.Rows, []string{strconv.Itoa(r.Bucket), id(r.LoanID), id(r.AccountID), string(r.Status), r.Principal.String()})
		}
	case []analysis.InactiveMonth:
		t.Headers = []string{"Account", "Inactive Month"}
		for _, r := range rs {
			t.Rows = append(t.Rows, []string{id(r.AccountID), r.Month.String()})
		}
	case []analysis.DormantAccount:
		t.Headers = []string{"Account", "Last Activity", "Months Inactive"}
		for _, r := range rs {
			t.Rows = append(t.Rows, []string{id(r.AccountID), lastActivity(r.LastActivity), strconv.Itoa(r.MonthsInactive)})
		}
	case []analysis.FeeTotal:
		t.Headers = []string{"Account", "Fee", "Date", "Type", "Amount", "Running Total"}
		for _, r := range rs {
			t.Rows = append(t.Rows, []string{id(r.AccountID), id(r.FeeID), r.FeeDate.String(), r.Type, r.Amount.String(), r.Running.String()})
		}
	case []aml.RiskSignal:
		t.Headers = []string{"Day", "Account", "In", "In Amount", "Out", "Out Amount", "Flagged"}
		for _, r := range rs {
			flag := ""
			if r.Flagged {
				flag = cli.FormatFlag(r.Reason())
			}
			t.Rows = append(t.Rows, []string{r.Day.String(), id(r.AccountID), strconv.Itoa(r.InboundCount), r.InboundAmount.String(), strconv.Itoa(r.OutboundCount), r.OutboundAmount.String(), flag})
		}
	default:
		return t, fmt.Errorf("no table layout for %T", rows)
	}
	return t, nil
}
