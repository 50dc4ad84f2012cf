package claims

import (
	"time"

	"github.com/google/uuid"
)

// ClaimStatus is the canonical lifecycle status of a claim. Transitions move
// from draft toward the terminal states and are written only by the lifecycle
// service, driven by DeriveStatus.
type ClaimStatus string

const (
	StatusDraft     ClaimStatus = "draft"
	StatusSubmitted ClaimStatus = "submitted"
	StatusPending   ClaimStatus = "pending"
	StatusAccepted  ClaimStatus = "accepted"
	StatusDenied    ClaimStatus = "denied"
	StatusPaid      ClaimStatus = "paid"
)

// IsTerminal reports whether no further automatic checking is useful.
func (s ClaimStatus) IsTerminal() bool {
	return s == StatusDenied || s == StatusPaid
}

var validStatuses = map[ClaimStatus]bool{
	StatusDraft: true, StatusSubmitted: true, StatusPending: true,
	StatusAccepted: true, StatusDenied: true, StatusPaid: true,
}

// Valid reports whether s is a known status code.
func (s ClaimStatus) Valid() bool { return validStatuses[s] }

// ClaimDraft is the user-edited claim as it arrives from the portal. Dates are
// UI strings (YYYY-MM-DD); the compiler normalizes them.
type ClaimDraft struct {
	Patient      PatientInfo   `json:"patient"`
	Insurance    InsuranceInfo `json:"insurance"`
	Provider     ProviderInfo  `json:"provider"`
	Diagnoses    []Diagnosis   `json:"diagnoses"`
	ServiceLines []ServiceLine `json:"service_lines"`
}

type PatientInfo struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	DateOfBirth  string `json:"date_of_birth"`
	MemberID     string `json:"member_id"`
	Relationship string `json:"relationship"`
}

type InsuranceInfo struct {
	PayerID         string `json:"payer_id"`
	PayerName       string `json:"payer_name"`
	PolicyNumber    string `json:"policy_number"`
	GroupNumber     string `json:"group_number"`
	PriorAuthNeeded bool   `json:"prior_auth_needed"`
	PriorAuthNumber string `json:"prior_auth_number"`
}

type ProviderInfo struct {
	BillingNPI         string `json:"billing_npi"`
	RenderingNPI       string `json:"rendering_npi"`
	TaxID              string `json:"tax_id"`
	TaxonomyCode       string `json:"taxonomy_code"`
	FacilityName       string `json:"facility_name"`
	PlaceOfServiceCode string `json:"place_of_service_code"`
}

// Diagnosis carries a 1-based priority; priorities must be contiguous
// starting at 1 and service-line pointers reference them.
type Diagnosis struct {
	Priority int    `json:"priority"`
	Code     string `json:"code"`
}

// ServiceLine is one billed procedure. Modifiers is a fixed 4-slot array in
// the editing UI; empty slots are dropped at compile time.
type ServiceLine struct {
	ProcedureCode     string    `json:"procedure_code"`
	Modifiers         [4]string `json:"modifiers"`
	Units             int       `json:"units"`
	Charge            float64   `json:"charge"`
	DateFrom          string    `json:"date_from"`
	DateTo            string    `json:"date_to"`
	DiagnosisPointers []int     `json:"diagnosis_pointers"`
}

// CanonicalClaimDocument is the immutable 837P-style submission document
// produced once per submission attempt. Its control number is the sole
// correlation key with the clearinghouse.
type CanonicalClaimDocument struct {
	ControlNumber           string             `json:"controlNumber"`
	TradingPartnerServiceID string             `json:"tradingPartnerServiceId"`
	Subscriber              Subscriber         `json:"subscriber"`
	Billing                 BillingProvider    `json:"billing"`
	Rendering               *RenderingProvider `json:"rendering,omitempty"`
	ClaimInformation        ClaimInformation   `json:"claimInformation"`
}

type Subscriber struct {
	MemberID     string  `json:"memberId"`
	FirstName    string  `json:"firstName"`
	LastName     string  `json:"lastName"`
	DateOfBirth  *string `json:"dateOfBirth,omitempty"`
	Relationship string  `json:"relationship,omitempty"`
}

type BillingProvider struct {
	NPI          string `json:"npi"`
	EmployerID   string `json:"employerId,omitempty"`
	TaxonomyCode string `json:"taxonomyCode,omitempty"`
	FacilityName string `json:"facilityName,omitempty"`
}

type RenderingProvider struct {
	NPI string `json:"npi"`
}

type ClaimInformation struct {
	PatientControlNumber      string           `json:"patientControlNumber"`
	ClaimChargeAmount         string           `json:"claimChargeAmount"`
	PlaceOfServiceCode        string           `json:"placeOfServiceCode,omitempty"`
	ClaimFrequencyCode        string           `json:"claimFrequencyCode"`
	PriorAuthorizationNumber  string           `json:"priorAuthorizationNumber,omitempty"`
	HealthCareCodeInformation []HealthCareCode `json:"healthCareCodeInformation"`
	ServiceLines              []CompiledLine   `json:"serviceLines"`
}

type HealthCareCode struct {
	DiagnosisTypeCode string `json:"diagnosisTypeCode"`
	DiagnosisCode     string `json:"diagnosisCode"`
}

type CompiledLine struct {
	ServiceDate         string              `json:"serviceDate"`
	ServiceDateEnd      *string             `json:"serviceDateEnd,omitempty"`
	ProfessionalService ProfessionalService `json:"professionalService"`
}

type ProfessionalService struct {
	ProcedureIdentifier            string   `json:"procedureIdentifier"`
	ProcedureCode                  string   `json:"procedureCode"`
	ProcedureModifiers             []string `json:"procedureModifiers,omitempty"`
	LineItemChargeAmount           string   `json:"lineItemChargeAmount"`
	MeasurementUnit                string   `json:"measurementUnit"`
	ServiceUnitCount               string   `json:"serviceUnitCount"`
	CompositeDiagnosisCodePointers DiagnosisPointers `json:"compositeDiagnosisCodePointers"`
}

type DiagnosisPointers struct {
	DiagnosisCodePointers []int `json:"diagnosisCodePointers"`
}

// Claim maps to the claims table. It is the persisted aggregate: identity,
// the last-submitted document, the derived status, and the currently linked
// clearinghouse transaction. Created on first submission, never deleted.
type Claim struct {
	ID                  uuid.UUID               `db:"id" json:"id"`
	Status              ClaimStatus             `db:"status" json:"status"`
	ControlNumber       string                  `db:"control_number" json:"control_number"`
	PayerID             string                  `db:"payer_id" json:"payer_id"`
	MemberID            string                  `db:"member_id" json:"member_id"`
	SubscriberFirst     string                  `db:"subscriber_first_name" json:"subscriber_first_name"`
	SubscriberLast      string                  `db:"subscriber_last_name" json:"subscriber_last_name"`
	SubscriberDOB       string                  `db:"subscriber_dob" json:"subscriber_dob"`
	ServiceDateFrom     string                  `db:"service_date_from" json:"service_date_from"`
	ServiceDateTo       string                  `db:"service_date_to" json:"service_date_to"`
	Document            *CanonicalClaimDocument `db:"document" json:"document,omitempty"`
	LinkedTransactionID *string                 `db:"linked_transaction_id" json:"linked_transaction_id,omitempty"`
	CreatedAt           time.Time               `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time               `db:"updated_at" json:"updated_at"`
}

// EventType classifies claim lifecycle events.
type EventType string

const (
	EventSubmission         EventType = "submission"
	EventStatusCheck        EventType = "status_check"
	EventTransactionLinked  EventType = "transaction_linked"
	EventRemittanceReceived EventType = "remittance_received"
)

// ClaimEvent maps to the append-only claim_status_events table. Events are
// never mutated or deleted; descending order backs the timeline display,
// ascending order backs audit replay.
type ClaimEvent struct {
	ID            uuid.UUID      `db:"id" json:"id"`
	ClaimID       uuid.UUID      `db:"claim_id" json:"claim_id"`
	Type          EventType      `db:"type" json:"type"`
	Payload       map[string]any `db:"payload" json:"payload,omitempty"`
	TransactionID *string        `db:"transaction_id" json:"transaction_id,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
}
