package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"socialbets/database"
	"socialbets/domain/entities"
	"socialbets/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

const betColumns = `
	id, group_id, creator_id, title, description, category,
	bet_type, stake_type, fixed_stake_amount, min_stake_amount, max_stake_amount, social_stake_description,
	resolution_method, minimum_votes_required, allow_creator_vote,
	betting_deadline, resolve_date, options,
	status, outcome_kind, outcome_option, outcome_winner_ids, outcome_tied_ids, cancellation_reason, version,
	resolved_at, cancelled_at, created_at, updated_at`

type betRepository struct {
	q Queryable
}

// NewBetRepository creates a new bet repository
func NewBetRepository(db *database.DB) interfaces.BetRepository {
	return &betRepository{q: db.Pool}
}

// newBetRepository creates a new bet repository bound to a transaction
func newBetRepository(tx Queryable) interfaces.BetRepository {
	return &betRepository{q: tx}
}

func (r *betRepository) Create(ctx context.Context, bet *entities.Bet, assignedResolvers []int64) error {
	query := `
		INSERT INTO bets (
			group_id, creator_id, title, description, category,
			bet_type, stake_type, fixed_stake_amount, min_stake_amount, max_stake_amount, social_stake_description,
			resolution_method, minimum_votes_required, allow_creator_vote,
			betting_deadline, resolve_date, options, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id, version, created_at, updated_at`

	if bet.Status == "" {
		bet.Status = entities.BetStatusOpen
	}
	options := bet.Options
	if options == nil {
		options = []string{}
	}

	err := r.q.QueryRow(ctx, query,
		bet.GroupID,
		bet.CreatorID,
		bet.Title,
		bet.Description,
		bet.Category,
		bet.BetType,
		bet.StakeType,
		bet.FixedStakeAmount,
		bet.MinStakeAmount,
		bet.MaxStakeAmount,
		bet.SocialStakeDescription,
		bet.ResolutionMethod,
		bet.MinimumVotesRequired,
		bet.AllowCreatorVote,
		bet.BettingDeadline,
		bet.ResolveDate,
		options,
		bet.Status,
	).Scan(&bet.ID, &bet.Version, &bet.CreatedAt, &bet.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create bet: %w", err)
	}

	if len(assignedResolvers) == 0 {
		return nil
	}

	_, err = r.q.Exec(ctx, `
		INSERT INTO bet_assigned_resolvers (bet_id, user_id)
		SELECT $1, unnest($2::bigint[])
		ON CONFLICT DO NOTHING`,
		bet.ID, assignedResolvers,
	)
	if err != nil {
		return fmt.Errorf("failed to assign resolvers: %w", err)
	}

	return nil
}

func (r *betRepository) GetByID(ctx context.Context, id int64) (*entities.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *betRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Bet, error) {
	query := `SELECT ` + betColumns + ` FROM bets WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, query, id)
}

func (r *betRepository) getOne(ctx context.Context, query string, id int64) (*entities.Bet, error) {
	bet, err := scanBet(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bet: %w", err)
	}
	return bet, nil
}

func (r *betRepository) TransitionStatus(ctx context.Context, bet *entities.Bet, from entities.BetStatus) (bool, error) {
	query := `
		UPDATE bets
		SET status = $2,
			outcome_kind = $3,
			outcome_option = $4,
			outcome_winner_ids = $5,
			outcome_tied_ids = $6,
			cancellation_reason = $7,
			resolved_at = $8,
			cancelled_at = $9,
			version = version + 1,
			updated_at = NOW()
		WHERE id = $1 AND status = $10
		RETURNING version, updated_at`

	cols := outcomeToColumns(bet.Outcome)
	err := r.q.QueryRow(ctx, query,
		bet.ID,
		bet.Status,
		cols.kind,
		cols.option,
		cols.winners,
		cols.tied,
		bet.CancellationReason,
		bet.ResolvedAt,
		bet.CancelledAt,
		from,
	).Scan(&bet.Version, &bet.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to transition bet %d from %s to %s: %w", bet.ID, from, bet.Status, err)
	}
	return true, nil
}

func (r *betRepository) ListOpenPastDeadline(ctx context.Context, now time.Time, limit int) ([]int64, error) {
	query := `
		SELECT id FROM bets
		WHERE status = 'open' AND betting_deadline <= $1
		ORDER BY betting_deadline, id
		LIMIT $2`
	return r.listIDs(ctx, query, now, limit)
}

func (r *betRepository) ListClosedPastResolveDate(ctx context.Context, now time.Time, limit int) ([]int64, error) {
	query := `
		SELECT id FROM bets
		WHERE status = 'closed' AND resolve_date <= $1
		ORDER BY resolve_date, id
		LIMIT $2`
	return r.listIDs(ctx, query, now, limit)
}

func (r *betRepository) ListWithUnsettledParticipations(ctx context.Context, limit int) ([]int64, error) {
	// Creator marker rows only carry a stake to return when the bet is cancelled.
	// Least recently attempted bets come first so a bet that keeps failing
	// cannot hold the batch.
	query := `
		SELECT b.id
		FROM bets b
		WHERE EXISTS (
			SELECT 1 FROM bet_participations p
			WHERE p.bet_id = b.id
			  AND p.settled_at IS NULL
			  AND (
				(b.status = 'resolved' AND p.status = 'active')
				OR (b.status = 'cancelled' AND p.status IN ('active', 'creator'))
			  )
		)
		ORDER BY b.reconcile_attempted_at NULLS FIRST, b.id
		LIMIT $1`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query bets with unsettled participations: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to scan bet ids: %w", err)
	}
	return ids, nil
}

func (r *betRepository) listIDs(ctx context.Context, query string, now time.Time, limit int) ([]int64, error) {
	rows, err := r.q.Query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query bets: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to scan bet ids: %w", err)
	}
	return ids, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBet(row rowScanner) (*entities.Bet, error) {
	var bet entities.Bet
	var cols outcomeColumns

	err := row.Scan(
		&bet.ID,
		&bet.GroupID,
		&bet.CreatorID,
		&bet.Title,
		&bet.Description,
		&bet.Category,
		&bet.BetType,
		&bet.StakeType,
		&bet.FixedStakeAmount,
		&bet.MinStakeAmount,
		&bet.MaxStakeAmount,
		&bet.SocialStakeDescription,
		&bet.ResolutionMethod,
		&bet.MinimumVotesRequired,
		&bet.AllowCreatorVote,
		&bet.BettingDeadline,
		&bet.ResolveDate,
		&bet.Options,
		&bet.Status,
		&cols.kind,
		&cols.option,
		&cols.winners,
		&cols.tied,
		&bet.CancellationReason,
		&bet.Version,
		&bet.ResolvedAt,
		&bet.CancelledAt,
		&bet.CreatedAt,
		&bet.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	outcome, err := cols.toOutcome(bet.CancellationReason)
	if err != nil {
		return nil, fmt.Errorf("bet %d: %w", bet.ID, err)
	}
	bet.Outcome = outcome
	return &bet, nil
}

// outcomeColumns is the flattened storage form of entities.Outcome
type outcomeColumns struct {
	kind    *string
	option  *int
	winners []int64
	tied    []int64
}

func outcomeToColumns(o entities.Outcome) outcomeColumns {
	if o == nil {
		return outcomeColumns{}
	}

	kind := string(o.Kind())
	cols := outcomeColumns{kind: &kind}
	switch v := o.(type) {
	case entities.SingleChoice:
		option := v.Option
		cols.option = &option
	case entities.NamedWinners:
		cols.winners = v.Winners
		cols.tied = v.Tied
	}
	return cols
}

func (c outcomeColumns) toOutcome(cancellationReason *string) (entities.Outcome, error) {
	if c.kind == nil {
		return nil, nil
	}

	switch entities.OutcomeKind(*c.kind) {
	case entities.OutcomeKindSingleChoice:
		if c.option == nil {
			return nil, fmt.Errorf("single choice outcome without option")
		}
		return entities.SingleChoice{Option: *c.option}, nil
	case entities.OutcomeKindDraw:
		return entities.Draw{}, nil
	case entities.OutcomeKindCancelled:
		reason := ""
		if cancellationReason != nil {
			reason = *cancellationReason
		}
		return entities.Cancelled{Reason: reason}, nil
	case entities.OutcomeKindNamedWinners:
		return entities.NamedWinners{Winners: c.winners, Tied: c.tied}, nil
	default:
		return nil, fmt.Errorf("unknown outcome kind %q", *c.kind)
	}
}

func (r *betRepository) MarkReconcileAttempted(ctx context.Context, betID int64, at time.Time) error {
	query := `UPDATE bets SET reconcile_attempted_at = $2 WHERE id = $1`
	if _, err := r.q.Exec(ctx, query, betID, at); err != nil {
		return fmt.Errorf("failed to mark reconcile attempt: %w", err)
	}
	return nil
}
