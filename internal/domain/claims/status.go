package claims

import (
	"strconv"

	"github.com/clearbill/clearbill/internal/clearinghouse"
)

// 277 claim-status category codes, grouped by outcome. Codes outside these
// sets are unrecognized and leave the claim status unchanged.
var (
	acceptedCategoryCodes = map[string]bool{"1": true, "2": true, "20": true, "22": true}
	deniedCategoryCodes   = map[string]bool{"4": true, "27": true}
	pendingCategoryCodes  = map[string]bool{"3": true, "15": true, "16": true}
)

// DeriveStatus maps a payer response onto the canonical claim status. Pure
// and total: an unrecognized response returns current unchanged, never an
// error.
//
// A claim that predates status tracking may arrive here still marked draft
// (or with no status at all); it is coerced to submitted before the mapping
// table applies, since a claim cannot be checked before it was submitted.
//
// Remittance outranks 277 status information when both are present: an 835
// is the payer's final word on payment.
func DeriveStatus(current ClaimStatus, resp *clearinghouse.PayerResponse) ClaimStatus {
	if current == "" || current == StatusDraft {
		current = StatusSubmitted
	}
	if resp == nil {
		return current
	}

	if resp.HasRemittance() {
		return deriveFromRemittance(current, resp.ClaimPaymentInformation)
	}

	for _, si := range resp.StatusInformation {
		switch {
		case acceptedCategoryCodes[si.StatusCategoryCode]:
			return StatusAccepted
		case deniedCategoryCodes[si.StatusCategoryCode]:
			return StatusDenied
		case pendingCategoryCodes[si.StatusCategoryCode]:
			return StatusPending
		}
	}

	return current
}

func deriveFromRemittance(current ClaimStatus, payments []clearinghouse.ClaimPaymentInformation) ClaimStatus {
	sawZero := false
	for _, p := range payments {
		if p.ClaimPaymentAmount == nil {
			continue
		}
		amount, err := strconv.ParseFloat(*p.ClaimPaymentAmount, 64)
		if err != nil {
			continue
		}
		if amount > 0 {
			return StatusPaid
		}
		sawZero = true
	}
	if sawZero {
		return StatusDenied
	}
	// Payment information present but no parseable amount: the payer has
	// adjudicated the claim without reporting a figure yet.
	return StatusAccepted
}
