package claims

import (
	"github.com/clearbill/clearbill/internal/clearinghouse"
)

// TransactionMatcher selects the clearinghouse transaction that belongs to a
// claim. The clearinghouse list endpoint has no claim-scoped filter, so
// matching is client-side; the strategy is an interface so a future
// push-based integration can replace it without touching the lifecycle
// service.
type TransactionMatcher interface {
	// FindMatch returns the matched transaction, or ok=false when no listed
	// transaction can be attributed to the claim. A miss is a legitimate
	// outcome ("nothing has arrived yet"), not an error.
	FindMatch(controlNumber string, txs []clearinghouse.Transaction) (*clearinghouse.Transaction, bool)
}

// ControlNumberMatcher matches by embedded X12 control number, falling back
// to inbound recency.
//
//  1. A transaction whose X12 metadata control number equals the claim's
//     control number is authoritative.
//  2. Otherwise the most recently listed inbound transaction is assumed to
//     be ours. This heuristic can mis-link; it exists only because the list
//     endpoint cannot filter by claim.
type ControlNumberMatcher struct{}

func (ControlNumberMatcher) FindMatch(controlNumber string, txs []clearinghouse.Transaction) (*clearinghouse.Transaction, bool) {
	if controlNumber != "" {
		for i := range txs {
			if txs[i].ControlNumber() == controlNumber {
				return &txs[i], true
			}
		}
	}

	// Recency fallback: latest inbound CreatedAt wins, later list position
	// breaking ties.
	var newest *clearinghouse.Transaction
	for i := range txs {
		if !txs[i].IsInbound() {
			continue
		}
		if newest == nil || !txs[i].CreatedAt.Before(newest.CreatedAt) {
			newest = &txs[i]
		}
	}
	if newest == nil {
		return nil, false
	}
	return newest, true
}
