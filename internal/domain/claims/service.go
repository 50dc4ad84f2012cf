package claims

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/clearbill/clearbill/internal/clearinghouse"
)

// Gateway is the clearinghouse surface the lifecycle service depends on.
// Satisfied by *clearinghouse.Client.
type Gateway interface {
	Submit(ctx context.Context, document any, idempotencyKey string) (*clearinghouse.SubmitAck, error)
	CheckStatus(ctx context.Context, q *clearinghouse.StatusQuery) (*clearinghouse.PayerResponse, error)
	ListTransactions(ctx context.Context) ([]clearinghouse.Transaction, error)
	GetOutput(ctx context.Context, transactionID string) (*clearinghouse.PayerResponse, error)
}

// LinkResult is the outcome of a correlation attempt. Matched=false is the
// informational "nothing has arrived yet" case, not a failure.
type LinkResult struct {
	Claim         *Claim `json:"claim"`
	Matched       bool   `json:"matched"`
	TransactionID string `json:"transaction_id,omitempty"`
}

// Service orchestrates the claim lifecycle: it is the only writer of
// Claim.status and the event log.
//
// Lifecycle operations (CheckStatus, LinkRemittance) are single-flighted per
// claim: both read-modify-write the claim row and append events, so a call
// arriving while another is in flight for the same claim coalesces onto it
// and receives its result. This is also what keeps the automatic
// check-on-load and a racing manual check down to one remote call.
type Service struct {
	claims   ClaimRepository
	events   EventRepository
	gateway  Gateway
	matcher  TransactionMatcher
	logger   zerolog.Logger
	inflight singleflight.Group
}

func NewService(claims ClaimRepository, events EventRepository, gateway Gateway, matcher TransactionMatcher, logger zerolog.Logger) *Service {
	return &Service{
		claims:  claims,
		events:  events,
		gateway: gateway,
		matcher: matcher,
		logger:  logger,
	}
}

// Submit compiles the draft, submits the document to the clearinghouse with
// the control number as idempotency key, and creates the claim in submitted
// status. If the clearinghouse rejects the submission the claim is not
// created: from the caller's point of view claim creation and remote
// submission are atomic.
func (s *Service) Submit(ctx context.Context, draft *ClaimDraft) (*Claim, error) {
	doc, err := Compile(draft)
	if err != nil {
		return nil, err
	}

	ack, err := s.gateway.Submit(ctx, doc, doc.ControlNumber)
	if err != nil {
		return nil, err
	}

	claim := &Claim{
		Status:          StatusSubmitted,
		ControlNumber:   doc.ControlNumber,
		PayerID:         doc.TradingPartnerServiceID,
		MemberID:        doc.Subscriber.MemberID,
		SubscriberFirst: doc.Subscriber.FirstName,
		SubscriberLast:  doc.Subscriber.LastName,
		ServiceDateFrom: serviceDateFrom(doc),
		ServiceDateTo:   serviceDateTo(doc),
		Document:        doc,
	}
	if doc.Subscriber.DateOfBirth != nil {
		claim.SubscriberDOB = *doc.Subscriber.DateOfBirth
	}
	if err := s.claims.Create(ctx, claim); err != nil {
		return nil, fmt.Errorf("create claim: %w", err)
	}

	s.appendEvent(ctx, claim.ID, EventSubmission, map[string]any{
		"control_number": doc.ControlNumber,
		"charge_amount":  doc.ClaimInformation.ClaimChargeAmount,
		"ack":            ack.Ack,
	}, nil)

	return claim, nil
}

// GetClaim returns the claim without side effects.
func (s *Service) GetClaim(ctx context.Context, id uuid.UUID) (*Claim, error) {
	return s.claims.GetByID(ctx, id)
}

// LoadClaim returns the claim and, when its status is non-terminal, triggers
// one automatic status check in the background. The check shares the
// per-claim single flight with manual checks, so a page load racing a user
// click still results in exactly one remote call.
func (s *Service) LoadClaim(ctx context.Context, id uuid.UUID) (*Claim, error) {
	claim, err := s.claims.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !claim.Status.IsTerminal() {
		go func() {
			// Detached from the request context: a determination already in
			// flight must complete and persist even if the caller navigates
			// away.
			if _, err := s.CheckStatus(context.Background(), id); err != nil {
				s.logger.Warn().Err(err).Str("claim_id", id.String()).Msg("automatic status check failed")
			}
		}()
	}
	return claim, nil
}

// ListClaims backs the dashboard list.
func (s *Service) ListClaims(ctx context.Context, limit, offset int) ([]*Claim, int, error) {
	return s.claims.List(ctx, limit, offset)
}

// ListEvents returns the claim's event timeline.
func (s *Service) ListEvents(ctx context.Context, claimID uuid.UUID, ascending bool, limit, offset int) ([]*ClaimEvent, int, error) {
	if _, err := s.claims.GetByID(ctx, claimID); err != nil {
		return nil, 0, err
	}
	return s.events.ListByClaim(ctx, claimID, ascending, limit, offset)
}

// CheckStatus runs a claim status inquiry against the clearinghouse, derives
// the new canonical status, persists it, and appends a status_check event.
func (s *Service) CheckStatus(ctx context.Context, claimID uuid.UUID) (*Claim, error) {
	v, err, _ := s.inflight.Do(claimID.String(), func() (any, error) {
		return s.checkStatus(context.WithoutCancel(ctx), claimID)
	})
	if err != nil {
		return nil, err
	}
	// Both lifecycle operations share the claim's flight, so a coalesced
	// LinkRemittance call can land here with its own result type.
	if lr, ok := v.(*LinkResult); ok {
		return lr.Claim, nil
	}
	return v.(*Claim), nil
}

func (s *Service) checkStatus(ctx context.Context, claimID uuid.UUID) (*Claim, error) {
	claim, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}

	// Denied and paid are final; a check cannot move the claim anywhere.
	if claim.Status.IsTerminal() {
		return claim, nil
	}

	// Checked locally before any network call.
	var missing []string
	if claim.ControlNumber == "" {
		missing = append(missing, "controlNumber")
	}
	if claim.PayerID == "" {
		missing = append(missing, "tradingPartnerServiceId")
	}
	if claim.MemberID == "" {
		missing = append(missing, "subscriber.memberId")
	}
	if len(missing) > 0 {
		return nil, &MissingFieldsError{Fields: missing}
	}

	resp, err := s.gateway.CheckStatus(ctx, &clearinghouse.StatusQuery{
		ControlNumber:           claim.ControlNumber,
		TradingPartnerServiceID: claim.PayerID,
		Encounter: clearinghouse.EncounterQuery{
			BeginningDateOfService: claim.ServiceDateFrom,
			EndDateOfService:       claim.ServiceDateTo,
		},
		Subscriber: clearinghouse.SubscriberQuery{
			MemberID:    claim.MemberID,
			FirstName:   claim.SubscriberFirst,
			LastName:    claim.SubscriberLast,
			DateOfBirth: claim.SubscriberDOB,
		},
	})
	if err != nil {
		// Failed attempts leave local state untouched and are not logged as
		// events; the event log records successful transitions only.
		return nil, err
	}

	return s.applyResponse(ctx, claim, resp, EventStatusCheck, claim.LinkedTransactionID)
}

// LinkRemittance polls the transaction list, correlates a transaction to the
// claim, fetches its output, and applies the derived status.
func (s *Service) LinkRemittance(ctx context.Context, claimID uuid.UUID) (*LinkResult, error) {
	v, err, _ := s.inflight.Do(claimID.String(), func() (any, error) {
		return s.linkRemittance(context.WithoutCancel(ctx), claimID)
	})
	if err != nil {
		return nil, err
	}
	// A coalesced CheckStatus call can land here first; its result is a
	// *Claim, which for the caller means "no link happened this round".
	if claim, ok := v.(*Claim); ok {
		return &LinkResult{Claim: claim, Matched: false}, nil
	}
	return v.(*LinkResult), nil
}

func (s *Service) linkRemittance(ctx context.Context, claimID uuid.UUID) (*LinkResult, error) {
	claim, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}

	txs, err := s.gateway.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}

	tx, ok := s.matcher.FindMatch(claim.ControlNumber, txs)
	if !ok {
		// Correlation miss: nothing has arrived yet. Status untouched.
		return &LinkResult{Claim: claim, Matched: false}, nil
	}

	// Re-linking replaces any earlier link: a 277 may be superseded by the
	// 835 for the same claim.
	if err := s.claims.LinkTransaction(ctx, claimID, tx.TransactionID); err != nil {
		return nil, fmt.Errorf("link transaction: %w", err)
	}
	s.appendEvent(ctx, claimID, EventTransactionLinked, map[string]any{
		"operation":      tx.Operation,
		"control_number": tx.ControlNumber(),
	}, &tx.TransactionID)

	resp, err := s.gateway.GetOutput(ctx, tx.TransactionID)
	if err != nil {
		return nil, err
	}

	eventType := EventStatusCheck
	if resp.HasRemittance() {
		eventType = EventRemittanceReceived
	}
	updated, err := s.applyResponse(ctx, claim, resp, eventType, &tx.TransactionID)
	if err != nil {
		return nil, err
	}

	return &LinkResult{Claim: updated, Matched: true, TransactionID: tx.TransactionID}, nil
}

// applyResponse derives and persists the new status and appends the event.
// The status update is the operation of record; an event append failure is
// logged but does not fail the operation.
func (s *Service) applyResponse(ctx context.Context, claim *Claim, resp *clearinghouse.PayerResponse, eventType EventType, transactionID *string) (*Claim, error) {
	previous := claim.Status
	next := DeriveStatus(previous, resp)
	if next == previous && len(resp.StatusInformation) > 0 && !resp.HasRemittance() {
		s.logger.Warn().
			Str("claim_id", claim.ID.String()).
			Str("category_code", resp.StatusInformation[0].StatusCategoryCode).
			Msg("unrecognized payer status code; claim status unchanged")
	}

	if next != previous {
		if err := s.claims.UpdateStatus(ctx, claim.ID, next); err != nil {
			return nil, fmt.Errorf("update claim status: %w", err)
		}
		claim.Status = next
	}

	payload := map[string]any{
		"previous_status": string(previous),
		"derived_status":  string(next),
	}
	if resp.HasRemittance() && resp.ClaimPaymentInformation[0].ClaimPaymentAmount != nil {
		payload["payment_amount"] = *resp.ClaimPaymentInformation[0].ClaimPaymentAmount
	}
	s.appendEvent(ctx, claim.ID, eventType, payload, transactionID)

	return claim, nil
}

func (s *Service) appendEvent(ctx context.Context, claimID uuid.UUID, eventType EventType, payload map[string]any, transactionID *string) {
	err := s.events.Append(ctx, &ClaimEvent{
		ClaimID:       claimID,
		Type:          eventType,
		Payload:       payload,
		TransactionID: transactionID,
	})
	if err != nil {
		s.logger.Error().Err(err).
			Str("claim_id", claimID.String()).
			Str("event_type", string(eventType)).
			Msg("failed to append claim event")
	}
}

func serviceDateFrom(doc *CanonicalClaimDocument) string {
	if len(doc.ClaimInformation.ServiceLines) == 0 {
		return ""
	}
	return doc.ClaimInformation.ServiceLines[0].ServiceDate
}

func serviceDateTo(doc *CanonicalClaimDocument) string {
	lines := doc.ClaimInformation.ServiceLines
	if len(lines) == 0 {
		return ""
	}
	last := lines[len(lines)-1]
	if last.ServiceDateEnd != nil {
		return *last.ServiceDateEnd
	}
	return last.ServiceDate
}
