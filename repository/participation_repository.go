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

const participationColumns = `
	id, bet_id, user_id, chosen_option, predicted_value,
	bet_amount, potential_winnings, actual_winnings, status, result,
	insurance_applied, insurance_refund_percentage, insurance_refund_amount, insurance_item_id,
	settled_at, created_at, updated_at`

type participationRepository struct {
	q Queryable
}

// NewParticipationRepository creates a new participation repository
func NewParticipationRepository(db *database.DB) interfaces.ParticipationRepository {
	return &participationRepository{q: db.Pool}
}

func newParticipationRepository(tx Queryable) interfaces.ParticipationRepository {
	return &participationRepository{q: tx}
}

func (r *participationRepository) Create(ctx context.Context, p *entities.BetParticipation) error {
	query := `
		INSERT INTO bet_participations (
			bet_id, user_id, chosen_option, predicted_value,
			bet_amount, potential_winnings, status,
			insurance_applied, insurance_refund_percentage, insurance_refund_amount, insurance_item_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`

	if p.Status == "" {
		p.Status = entities.ParticipationStatusActive
	}

	err := r.q.QueryRow(ctx, query,
		p.BetID,
		p.UserID,
		p.ChosenOption,
		p.PredictedValue,
		p.BetAmount,
		p.PotentialWinnings,
		p.Status,
		p.InsuranceApplied,
		p.InsuranceRefundPercentage,
		p.InsuranceRefundAmount,
		p.InsuranceItemID,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create participation: %w", err)
	}

	return nil
}

func (r *participationRepository) ListByBet(ctx context.Context, betID int64) ([]*entities.BetParticipation, error) {
	query := `SELECT ` + participationColumns + ` FROM bet_participations WHERE bet_id = $1 ORDER BY id`

	rows, err := r.q.Query(ctx, query, betID)
	if err != nil {
		return nil, fmt.Errorf("failed to query participations: %w", err)
	}
	defer rows.Close()

	var participations []*entities.BetParticipation
	for rows.Next() {
		p, err := scanParticipation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participation: %w", err)
		}
		participations = append(participations, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participations: %w", err)
	}

	return participations, nil
}

func (r *participationRepository) GetByBetAndUser(ctx context.Context, betID, userID int64) (*entities.BetParticipation, error) {
	query := `SELECT ` + participationColumns + ` FROM bet_participations WHERE bet_id = $1 AND user_id = $2`

	p, err := scanParticipation(r.q.QueryRow(ctx, query, betID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participation: %w", err)
	}
	return p, nil
}

func (r *participationRepository) Settle(ctx context.Context, p *entities.BetParticipation) (bool, error) {
	query := `
		UPDATE bet_participations
		SET status = $2,
			result = $3,
			actual_winnings = $4,
			insurance_applied = $5,
			insurance_refund_percentage = $6,
			insurance_refund_amount = $7,
			insurance_item_id = $8,
			settled_at = $9,
			updated_at = NOW()
		WHERE id = $1 AND settled_at IS NULL
		RETURNING updated_at`

	err := r.q.QueryRow(ctx, query,
		p.ID,
		p.Status,
		p.Result,
		p.ActualWinnings,
		p.InsuranceApplied,
		p.InsuranceRefundPercentage,
		p.InsuranceRefundAmount,
		p.InsuranceItemID,
		p.SettledAt,
	).Scan(&p.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to settle participation %d: %w", p.ID, err)
	}
	return true, nil
}

func (r *participationRepository) ListLoserIDs(ctx context.Context, betID int64) ([]int64, error) {
	query := `
		SELECT user_id FROM bet_participations
		WHERE bet_id = $1 AND status = 'lost'
		ORDER BY user_id`

	rows, err := r.q.Query(ctx, query, betID)
	if err != nil {
		return nil, fmt.Errorf("failed to query losers: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to scan loser ids: %w", err)
	}
	return ids, nil
}

func scanParticipation(row rowScanner) (*entities.BetParticipation, error) {
	var p entities.BetParticipation
	err := row.Scan(
		&p.ID,
		&p.BetID,
		&p.UserID,
		&p.ChosenOption,
		&p.PredictedValue,
		&p.BetAmount,
		&p.PotentialWinnings,
		&p.ActualWinnings,
		&p.Status,
		&p.Result,
		&p.InsuranceApplied,
		&p.InsuranceRefundPercentage,
		&p.InsuranceRefundAmount,
		&p.InsuranceItemID,
		&p.SettledAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
