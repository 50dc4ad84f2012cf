package claims

import (
	"context"

	"github.com/google/uuid"
)

type ClaimRepository interface {
	Create(ctx context.Context, c *Claim) error
	GetByID(ctx context.Context, id uuid.UUID) (*Claim, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status ClaimStatus) error
	LinkTransaction(ctx context.Context, id uuid.UUID, transactionID string) error
	List(ctx context.Context, limit, offset int) ([]*Claim, int, error)
}

// EventRepository is append-only: events are never updated or deleted.
type EventRepository interface {
	Append(ctx context.Context, e *ClaimEvent) error
	// ListByClaim returns events ordered by created_at descending (timeline
	// display) or ascending (audit replay).
	ListByClaim(ctx context.Context, claimID uuid.UUID, ascending bool, limit, offset int) ([]*ClaimEvent, int, error)
}
