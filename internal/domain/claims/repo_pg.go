package claims

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type claimRepoPG struct{ pool *pgxpool.Pool }

func NewClaimRepoPG(pool *pgxpool.Pool) ClaimRepository { return &claimRepoPG{pool: pool} }

const claimCols = `id, status, control_number, payer_id, member_id,
	subscriber_first_name, subscriber_last_name, subscriber_dob,
	service_date_from, service_date_to, document, linked_transaction_id,
	created_at, updated_at`

func (r *claimRepoPG) scanClaim(row pgx.Row) (*Claim, error) {
	var c Claim
	var doc []byte
	err := row.Scan(&c.ID, &c.Status, &c.ControlNumber, &c.PayerID, &c.MemberID,
		&c.SubscriberFirst, &c.SubscriberLast, &c.SubscriberDOB,
		&c.ServiceDateFrom, &c.ServiceDateTo, &doc, &c.LinkedTransactionID,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if len(doc) > 0 {
		c.Document = &CanonicalClaimDocument{}
		if err := json.Unmarshal(doc, c.Document); err != nil {
			return nil, fmt.Errorf("decode claim document: %w", err)
		}
	}
	return &c, nil
}

func (r *claimRepoPG) Create(ctx context.Context, c *Claim) error {
	c.ID = uuid.New()
	doc, err := json.Marshal(c.Document)
	if err != nil {
		return fmt.Errorf("encode claim document: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO claims (id, status, control_number, payer_id, member_id,
			subscriber_first_name, subscriber_last_name, subscriber_dob,
			service_date_from, service_date_to, document, linked_transaction_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		c.ID, c.Status, c.ControlNumber, c.PayerID, c.MemberID,
		c.SubscriberFirst, c.SubscriberLast, c.SubscriberDOB,
		c.ServiceDateFrom, c.ServiceDateTo, doc, c.LinkedTransactionID)
	return err
}

func (r *claimRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Claim, error) {
	return r.scanClaim(r.pool.QueryRow(ctx, `SELECT `+claimCols+` FROM claims WHERE id = $1`, id))
}

func (r *claimRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status ClaimStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE claims SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *claimRepoPG) LinkTransaction(ctx context.Context, id uuid.UUID, transactionID string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE claims SET linked_transaction_id = $2, updated_at = NOW() WHERE id = $1`, id, transactionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *claimRepoPG) List(ctx context.Context, limit, offset int) ([]*Claim, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM claims`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+claimCols+` FROM claims ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Claim
	for rows.Next() {
		c, err := r.scanClaim(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}

type eventRepoPG struct{ pool *pgxpool.Pool }

func NewEventRepoPG(pool *pgxpool.Pool) EventRepository { return &eventRepoPG{pool: pool} }

func (r *eventRepoPG) Append(ctx context.Context, e *ClaimEvent) error {
	e.ID = uuid.New()
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("encode event payload: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO claim_status_events (id, claim_id, type, payload, transaction_id)
		VALUES ($1,$2,$3,$4,$5)`,
		e.ID, e.ClaimID, e.Type, payload, e.TransactionID)
	return err
}

func (r *eventRepoPG) ListByClaim(ctx context.Context, claimID uuid.UUID, ascending bool, limit, offset int) ([]*ClaimEvent, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM claim_status_events WHERE claim_id = $1`, claimID).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := "DESC"
	if ascending {
		order = "ASC"
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, claim_id, type, payload, transaction_id, created_at
		FROM claim_status_events WHERE claim_id = $1
		ORDER BY created_at `+order+` LIMIT $2 OFFSET $3`, claimID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*ClaimEvent
	for rows.Next() {
		var e ClaimEvent
		var payload []byte
		if err := rows.Scan(&e.ID, &e.ClaimID, &e.Type, &payload, &e.TransactionID, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &e.Payload); err != nil {
				return nil, 0, fmt.Errorf("decode event payload: %w", err)
			}
		}
		items = append(items, &e)
	}
	return items, total, rows.Err()
}
