package repository

import (
	"context"
	"fmt"

	"socialbets/database"
	"socialbets/domain/interfaces"

	"github.com/jackc/pgx/v5"
)

// resolverRosterRepository reads the resolvers assigned to a bet at creation time
type resolverRosterRepository struct {
	q Queryable
}

// NewResolverRosterRepository creates a roster backed by bet_assigned_resolvers
func NewResolverRosterRepository(db *database.DB) interfaces.GroupMembership {
	return &resolverRosterRepository{q: db.Pool}
}

func newResolverRosterRepository(tx Queryable) interfaces.GroupMembership {
	return &resolverRosterRepository{q: tx}
}

func (r *resolverRosterRepository) GetEligibleResolvers(ctx context.Context, betID int64) ([]int64, error) {
	query := `
		SELECT user_id FROM bet_assigned_resolvers
		WHERE bet_id = $1
		ORDER BY user_id`

	rows, err := r.q.Query(ctx, query, betID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assigned resolvers: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to scan assigned resolvers: %w", err)
	}
	return ids, nil
}
