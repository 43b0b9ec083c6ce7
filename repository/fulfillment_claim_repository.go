package repository

import (
	"context"
	"errors"
	"fmt"

	"socialbets/database"
	"socialbets/domain/entities"
	"socialbets/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

type fulfillmentClaimRepository struct {
	q Queryable
}

// NewFulfillmentClaimRepository creates a new fulfillment claim repository
func NewFulfillmentClaimRepository(db *database.DB) interfaces.FulfillmentClaimRepository {
	return &fulfillmentClaimRepository{q: db.Pool}
}

func newFulfillmentClaimRepository(tx Queryable) interfaces.FulfillmentClaimRepository {
	return &fulfillmentClaimRepository{q: tx}
}

func (r *fulfillmentClaimRepository) Create(ctx context.Context, claim *entities.LoserFulfillmentClaim) (bool, error) {
	query := `
		INSERT INTO loser_fulfillment_claims (bet_id, loser_id, claimed_at, proof_url, proof_description)
		VALUES ($1, $2, COALESCE($3, NOW()), $4, $5)
		ON CONFLICT (bet_id, loser_id) DO NOTHING
		RETURNING id, claimed_at`

	var claimedAt any
	if !claim.ClaimedAt.IsZero() {
		claimedAt = claim.ClaimedAt
	}

	err := r.q.QueryRow(ctx, query,
		claim.BetID,
		claim.LoserID,
		claimedAt,
		claim.ProofURL,
		claim.ProofDescription,
	).Scan(&claim.ID, &claim.ClaimedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create fulfillment claim: %w", err)
	}
	return true, nil
}

func (r *fulfillmentClaimRepository) ListByBet(ctx context.Context, betID int64) ([]*entities.LoserFulfillmentClaim, error) {
	query := `
		SELECT id, bet_id, loser_id, claimed_at, proof_url, proof_description
		FROM loser_fulfillment_claims
		WHERE bet_id = $1
		ORDER BY claimed_at, id`

	rows, err := r.q.Query(ctx, query, betID)
	if err != nil {
		return nil, fmt.Errorf("failed to query fulfillment claims: %w", err)
	}
	defer rows.Close()

	var claims []*entities.LoserFulfillmentClaim
	for rows.Next() {
		var c entities.LoserFulfillmentClaim
		if err := rows.Scan(&c.ID, &c.BetID, &c.LoserID, &c.ClaimedAt, &c.ProofURL, &c.ProofDescription); err != nil {
			return nil, fmt.Errorf("failed to scan fulfillment claim: %w", err)
		}
		claims = append(claims, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fulfillment claims: %w", err)
	}

	return claims, nil
}
