package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/ledgerscope/internal/service"
)

func TestFixturesIngestCleanly(t *testing.T) {
	for _, f := range []Fixture{FixtureSmallBank, FixtureRapidMovement} {
		t.Run(f.Name, func(t *testing.T) {
			l := NewLedgerBuilder(t).WithFixture(f).Ingest()
			assert.NotEmpty(t, l.Accounts)
		})
	}
}

func TestSetupTestDB_RoundTrip(t *testing.T) {
	raw := NewLedgerBuilder(t).WithFixture(FixtureSmallBank).Build()
	db := SetupTestDB(t).Seed(raw)

	loaded, rejected, err := db.Store.LoadLedger(context.Background(), service.LedgerFilter{})
	require.NoError(t, err)
	assert.Empty(t, rejected)
	assert.Len(t, loaded.Accounts, len(raw.Accounts))
	assert.Len(t, loaded.Transactions, len(raw.Transactions))
	assert.Len(t, loaded.Fees, len(raw.Fees))
	assert.Len(t, loaded.Loans, len(raw.Loans))
	assert.Len(t, loaded.Owners, len(raw.Owners))
}
