package analysis

import (
	"github.com/Veraticus/ledgerscope/internal/aml"
	"github.com/Veraticus/ledgerscope/internal/model"
)

// RapidInOut runs the rapid in/out transfer pipeline and returns every
// (account, day) signal, flagged ones marked, in priority order.
func (e *Engine) RapidInOut(l model.Ledger) []aml.RiskSignal {
	return aml.Detect(l.Transfers, e.opts.AML)
}
