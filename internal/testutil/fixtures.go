package testutil

import (
	"time"

	"github.com/Veraticus/ledgerscope/internal/model"
)

// Fixture is a predefined ledger for a test scenario.
type Fixture struct {
	apply       func(*LedgerBuilder)
	Name        string
	Description string
}

// Predefined fixtures for common test scenarios.
var (
	// FixtureSmallBank has two branches with two accounts each and a few
	// months of activity on every account.
	FixtureSmallBank = Fixture{
		Name:        "SmallBank",
		Description: "Two branches, four accounts, Jan-Apr 2023 activity",
		apply: func(b *LedgerBuilder) {
			b.WithBranch(1, "Downtown").
				WithBranch(2, "Harbor").
				WithAccount(10, 1, "checking", "1500.00").
				WithAccount(11, 1, "savings", "9000.00").
				WithAccount(20, 2, "checking", "1500.00").
				WithAccount(21, 2, "savings", "250.00").
				WithCustomer(100, 1, 10, 11).
				WithCustomer(200, 2, 20, 21)

			b.WithDeposit(10, "100.00", At(2023, time.January, 5)).
				WithWithdrawal(10, "40.00", At(2023, time.January, 20)).
				WithDeposit(10, "200.00", At(2023, time.February, 5)).
				WithDeposit(10, "600.00", At(2023, time.March, 5))

			b.WithDeposit(11, "1000.00", At(2023, time.January, 2)).
				WithTransaction(11, model.TypeInterest, "2.50", At(2023, time.January, 31)).
				WithDeposit(11, "50.00", At(2023, time.April, 2))

			b.WithDeposit(20, "300.00", At(2023, time.January, 9)).
				WithWithdrawal(20, "25.00", At(2023, time.February, 9))

			b.WithDeposit(21, "80.00", At(2023, time.March, 15))

			b.WithFee(10, "maintenance", "5.00", model.NewDate(2023, time.January, 31)).
				WithFee(10, "overdraft", "35.00", model.NewDate(2023, time.February, 14)).
				WithFee(20, "maintenance", "5.00", model.NewDate(2023, time.January, 31))

			b.WithLoan(10, "25000.00", "0.055").
				WithLoan(20, "5000.00", "0.0725")
		},
	}

	// FixtureRapidMovement has an account receiving funds that leave again
	// the same day, the pattern the AML rule flags.
	FixtureRapidMovement = Fixture{
		Name:        "RapidMovement",
		Description: "Account 30 receives and forwards funds on 2023-05-10",
		apply: func(b *LedgerBuilder) {
			b.WithBranch(3, "Airport").
				WithAccount(30, 3, "checking", "0.00").
				WithAccount(31, 3, "checking", "0.00").
				WithAccount(32, 3, "checking", "0.00")

			day := func(h int) time.Time { return time.Date(2023, time.May, 10, h, 0, 0, 0, time.UTC) }
			for i := 0; i < 5; i++ {
				b.WithTransfer(31, 30, "1900.00", day(8+i))
			}
			for i := 0; i < 5; i++ {
				b.WithTransfer(30, 32, "2000.00", day(14+i))
			}
		},
	}
)
