// Package clearinghouse wraps the external claims clearinghouse API: claim
// submission, claim status checks, and the poll-only transaction list/output
// endpoints that carry 277 status and 835 remittance payloads.
package clearinghouse

import (
	"strings"
	"time"
)

// inboundOperation marks a transaction converted from X12 into guide JSON,
// i.e. a payer-originated 277/835 delivered to us.
const inboundOperation = "X12->GuideJSON"

// Transaction is one entry from the transaction list endpoint.
type Transaction struct {
	TransactionID string    `json:"transactionId"`
	Operation     string    `json:"operation"`
	CreatedAt     time.Time `json:"createdAt"`
	X12           X12Data   `json:"x12"`
}

type X12Data struct {
	Metadata X12Metadata `json:"metadata"`
}

type X12Metadata struct {
	Transaction X12Transaction `json:"transaction"`
}

type X12Transaction struct {
	ControlNumber string `json:"controlNumber"`
}

// ControlNumber returns the control number embedded in the transaction's X12
// metadata, or "" when the clearinghouse did not extract one.
func (t *Transaction) ControlNumber() string {
	return t.X12.Metadata.Transaction.ControlNumber
}

// IsInbound reports whether the transaction's operation indicates an inbound
// conversion (payer to provider).
func (t *Transaction) IsInbound() bool {
	return strings.Contains(t.Operation, inboundOperation)
}

// SubmitAck is the clearinghouse acknowledgement of a claim submission.
type SubmitAck struct {
	ControlNumber string `json:"controlNumber"`
	Ack           string `json:"ack"`
}

// StatusQuery is the request body for the real-time claim status endpoint.
type StatusQuery struct {
	ControlNumber           string          `json:"controlNumber"`
	TradingPartnerServiceID string          `json:"tradingPartnerServiceId"`
	Encounter               EncounterQuery  `json:"encounter"`
	Subscriber              SubscriberQuery `json:"subscriber"`
}

type EncounterQuery struct {
	BeginningDateOfService string `json:"beginningDateOfService"`
	EndDateOfService       string `json:"endDateOfService"`
}

type SubscriberQuery struct {
	MemberID    string `json:"memberId"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	DateOfBirth string `json:"dateOfBirth"`
}

// StatusInformation is one 277 claim-status entry. Category codes are
// payer-assigned strings ("1", "20", ...).
type StatusInformation struct {
	StatusCategoryCode string `json:"statusCategoryCode"`
	StatusCode         string `json:"statusCode,omitempty"`
	EffectiveDate      string `json:"effectiveDate,omitempty"`
}

// ClaimPaymentInformation is one 835 remittance entry. ClaimPaymentAmount is
// a pointer because some payers omit the amount field entirely, which is a
// distinct signal from a "0.00" payment.
type ClaimPaymentInformation struct {
	ClaimPaymentAmount   *string `json:"claimPaymentAmount,omitempty"`
	TotalChargeAmount    string  `json:"totalChargeAmount,omitempty"`
	PatientControlNumber string  `json:"patientControlNumber,omitempty"`
	PayerName            string  `json:"payerName,omitempty"`
}

// PayerResponse is the union payload returned by the status-check and
// transaction-output endpoints: 277 status information, 835 remittance
// information, or both.
type PayerResponse struct {
	ControlNumber           string                    `json:"controlNumber,omitempty"`
	StatusInformation       []StatusInformation       `json:"statusInformation,omitempty"`
	ClaimPaymentInformation []ClaimPaymentInformation `json:"claimPaymentInformation,omitempty"`
}

// HasRemittance reports whether the response carries any 835 payment entries.
func (r *PayerResponse) HasRemittance() bool {
	return len(r.ClaimPaymentInformation) > 0
}
