package analysis

import (
	"context"
	"fmt"

	"github.com/Veraticus/ledgerscope/internal/common"
	"github.com/Veraticus/ledgerscope/internal/model"
	"github.com/Veraticus/ledgerscope/internal/service"
)

// Deps contains all dependencies required by the analysis service.
type Deps struct {
	// Reader loads ledgers from the persistence layer.
	Reader service.LedgerReader
	// Engine runs the analyses.
	Engine *Engine
}

// Validate ensures all required dependencies are provided.
func (d *Deps) Validate() error {
	if d.Reader == nil {
		return fmt.Errorf("ledger reader dependency is required")
	}
	if d.Engine == nil {
		return fmt.Errorf("engine dependency is required")
	}
	return nil
}

// Service loads a ledger and runs analyses over it.
type Service struct {
	deps Deps
}

// NewService creates a service with the provided dependencies.
func NewService(deps Deps) (*Service, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}
	return &Service{deps: deps}, nil
}

// Load reads the ledger matching filter. Rejected rows are logged and
// returned alongside the usable records.
func (s *Service) Load(ctx context.Context, filter service.LedgerFilter) (model.Ledger, []model.Rejection, error) {
	l, rejected, err := s.deps.Reader.LoadLedger(ctx, filter)
	if err != nil {
		return model.Ledger{}, nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	for _, r := range rejected {
		common.LogDebug("Rejected record", common.Fields{
			"kind":  string(r.Kind),
			"id":    r.ID,
			"error": r.Err.Error(),
		})
	}
	if len(rejected) > 0 {
		common.LogInfo("Ledger loaded with rejected records", common.Fields{
			"rejections": len(rejected),
		})
	}
	return l, rejected, nil
}

// Run loads the ledger once and runs every named analysis over it.
func (s *Service) Run(ctx context.Context, filter service.LedgerFilter, names ...string) ([]*Result, error) {
	l, rejected, err := s.Load(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(l.Transactions) == 0 && len(l.Transfers) == 0 && len(l.Accounts) == 0 {
		if len(filter.AccountIDs) > 0 {
			return nil, fmt.Errorf("%w: accounts %v: %w", common.ErrNotFound, filter.AccountIDs, common.ErrEmptyLedger)
		}
		return nil, fmt.Errorf("%w: filter matched no records", common.ErrEmptyLedger)
	}
	return s.deps.Engine.RunAll(ctx, l, rejected, names)
}
