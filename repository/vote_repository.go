package repository

import (
	"context"
	"fmt"
	"time"

	"socialbets/database"
	"socialbets/domain/entities"
	"socialbets/domain/interfaces"
)

const voteColumns = `id, bet_id, resolver_id, chosen_option, reasoning, cast_at, revoked_at, is_active`

type voteRepository struct {
	q Queryable
}

// NewVoteRepository creates a new resolution vote repository
func NewVoteRepository(db *database.DB) interfaces.VoteRepository {
	return &voteRepository{q: db.Pool}
}

func newVoteRepository(tx Queryable) interfaces.VoteRepository {
	return &voteRepository{q: tx}
}

// Create inserts the vote. The partial unique index on active votes rejects a
// second active vote from the same resolver, so callers revoke first.
func (r *voteRepository) Create(ctx context.Context, vote *entities.ResolutionVote) error {
	query := `
		INSERT INTO resolution_votes (bet_id, resolver_id, chosen_option, reasoning, cast_at, is_active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		RETURNING id, cast_at`

	castAt := vote.CastAt
	if castAt.IsZero() {
		castAt = time.Now()
	}

	err := r.q.QueryRow(ctx, query,
		vote.BetID,
		vote.ResolverID,
		vote.ChosenOption,
		vote.Reasoning,
		castAt,
	).Scan(&vote.ID, &vote.CastAt)
	if err != nil {
		return fmt.Errorf("failed to create resolution vote: %w", err)
	}
	vote.IsActive = true
	vote.RevokedAt = nil

	if len(vote.WinnerIDs) == 0 {
		return nil
	}

	_, err = r.q.Exec(ctx, `
		INSERT INTO vote_winners (vote_id, winner_user_id)
		SELECT $1, unnest($2::bigint[])
		ON CONFLICT DO NOTHING`,
		vote.ID, vote.WinnerIDs,
	)
	if err != nil {
		return fmt.Errorf("failed to record vote winners: %w", err)
	}

	return nil
}

func (r *voteRepository) RevokeActive(ctx context.Context, betID, resolverID int64, at time.Time) (bool, error) {
	query := `
		UPDATE resolution_votes
		SET is_active = FALSE, revoked_at = $3
		WHERE bet_id = $1 AND resolver_id = $2 AND is_active`

	tag, err := r.q.Exec(ctx, query, betID, resolverID, at)
	if err != nil {
		return false, fmt.Errorf("failed to revoke vote: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *voteRepository) GetActiveByBet(ctx context.Context, betID int64) ([]*entities.ResolutionVote, error) {
	query := `SELECT ` + voteColumns + ` FROM resolution_votes WHERE bet_id = $1 AND is_active ORDER BY cast_at, id`
	return r.list(ctx, query, betID)
}

func (r *voteRepository) ListByBet(ctx context.Context, betID int64) ([]*entities.ResolutionVote, error) {
	query := `SELECT ` + voteColumns + ` FROM resolution_votes WHERE bet_id = $1 ORDER BY cast_at, id`
	return r.list(ctx, query, betID)
}

func (r *voteRepository) list(ctx context.Context, query string, betID int64) ([]*entities.ResolutionVote, error) {
	rows, err := r.q.Query(ctx, query, betID)
	if err != nil {
		return nil, fmt.Errorf("failed to query resolution votes: %w", err)
	}
	defer rows.Close()

	var votes []*entities.ResolutionVote
	for rows.Next() {
		var v entities.ResolutionVote
		err := rows.Scan(
			&v.ID,
			&v.BetID,
			&v.ResolverID,
			&v.ChosenOption,
			&v.Reasoning,
			&v.CastAt,
			&v.RevokedAt,
			&v.IsActive,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resolution vote: %w", err)
		}
		votes = append(votes, &v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating resolution votes: %w", err)
	}

	if err := r.attachWinners(ctx, votes); err != nil {
		return nil, err
	}
	return votes, nil
}

func (r *voteRepository) attachWinners(ctx context.Context, votes []*entities.ResolutionVote) error {
	if len(votes) == 0 {
		return nil
	}

	byID := make(map[int64]*entities.ResolutionVote, len(votes))
	ids := make([]int64, 0, len(votes))
	for _, v := range votes {
		byID[v.ID] = v
		ids = append(ids, v.ID)
	}

	rows, err := r.q.Query(ctx, `
		SELECT vote_id, winner_user_id FROM vote_winners
		WHERE vote_id = ANY($1)
		ORDER BY vote_id, winner_user_id`, ids)
	if err != nil {
		return fmt.Errorf("failed to query vote winners: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var w entities.VoteWinner
		if err := rows.Scan(&w.VoteID, &w.WinnerUserID); err != nil {
			return fmt.Errorf("failed to scan vote winner: %w", err)
		}
		if v, ok := byID[w.VoteID]; ok {
			v.WinnerIDs = append(v.WinnerIDs, w.WinnerUserID)
		}
	}

	return rows.Err()
}
