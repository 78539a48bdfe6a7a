package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/ledgerscope/internal/calendar"
	"github.com/Veraticus/ledgerscope/internal/model"
	"github.com/Veraticus/ledgerscope/internal/testutil"
)

func TestEngine_InactiveMonths(t *testing.T) {
	rows, err := newTestEngine(t).InactiveMonths(smallBank(t))
	require.NoError(t, err)
	require.Len(t, rows, 14)

	gaps := make(map[int64][]string)
	for _, r := range rows {
		gaps[r.AccountID] = append(gaps[r.AccountID], r.Month.String())
	}
	assert.Equal(t, []string{"2023-04", "2023-05", "2023-06"}, gaps[10])
	assert.Equal(t, []string{"2023-02", "2023-03", "2023-05", "2023-06"}, gaps[11])
	assert.Equal(t, []string{"2023-03", "2023-04", "2023-05", "2023-06"}, gaps[20])
	assert.Equal(t, []string{"2023-04", "2023-05", "2023-06"}, gaps[21])
}

func TestEngine_InactiveMonths_IgnoresLaterActivity(t *testing.T) {
	e := newTestEngine(t, func(o *Options) { o.AsOf = testutil.At(2023, time.February, 15) })
	rows, err := e.InactiveMonths(smallBank(t))
	require.NoError(t, err)

	// account 21 first transacts in March, after the as-of date
	for _, r := range rows {
		assert.NotEqual(t, int64(21), r.AccountID)
		assert.False(t, r.Month.After(model.MustParseMonth("2023-02")))
	}
}

func TestEngine_InactiveMonths_RangeTooLarge(t *testing.T) {
	e := newTestEngine(t, func(o *Options) { o.AsOf = time.Date(3000, time.January, 1, 0, 0, 0, 0, time.UTC) })
	_, err := e.InactiveMonths(smallBank(t))
	assert.ErrorIs(t, err, calendar.ErrRangeTooLarge)
}

func TestEngine_DormantAccounts(t *testing.T) {
	l := smallBank(t)
	l.Accounts = append(l.Accounts,
		model.Account{ID: 98, BranchID: 1, OpenedAt: testutil.At(2010, time.May, 1)},
		model.Account{ID: 99, BranchID: 1, OpenedAt: testutil.At(2023, time.June, 1)},
		model.Account{ID: 97, BranchID: 1},
	)

	tests := []struct {
		name     string
		asOf     time.Time
		want     []int64
		dormancy int
	}{
		{
			name:     "recent activity everywhere",
			asOf:     asOf,
			dormancy: 12,
			want:     []int64{97, 98},
		},
		{
			name:     "short window",
			asOf:     asOf,
			dormancy: 3,
			want:     []int64{10, 20, 21, 97, 98},
		},
		{
			name:     "a year later",
			asOf:     testutil.At(2024, time.June, 30),
			dormancy: 12,
			want:     []int64{10, 11, 20, 21, 97, 98, 99},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, func(o *Options) {
				o.AsOf = tt.asOf
				o.DormancyMonths = tt.dormancy
			})
			rows, err := e.DormantAccounts(l)
			require.NoError(t, err)

			ids := make([]int64, len(rows))
			for i, r := range rows {
				ids[i] = r.AccountID
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestEngine_DormantAccounts_Details(t *testing.T) {
	e := newTestEngine(t, func(o *Options) { o.DormancyMonths = 3 })
	rows, err := e.DormantAccounts(smallBank(t))
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	first := rows[0]
	assert.Equal(t, int64(10), first.AccountID)
	require.NotNil(t, first.LastActivity)
	assert.Equal(t, testutil.At(2023, time.March, 5), *first.LastActivity)
	assert.Equal(t, 3, first.MonthsInactive)
}
