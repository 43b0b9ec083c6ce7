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

// ItemTypeBetInsurance marks inventory items that refund part of a losing stake
const ItemTypeBetInsurance = "bet_insurance"

// inventoryRepository exposes consumed insurance items from user_inventory_items
type inventoryRepository struct {
	q Queryable
}

// NewInventoryRepository creates a new inventory repository
func NewInventoryRepository(db *database.DB) interfaces.InsuranceProvider {
	return &inventoryRepository{q: db.Pool}
}

func newInventoryRepository(tx Queryable) interfaces.InsuranceProvider {
	return &inventoryRepository{q: tx}
}

func (r *inventoryRepository) GetActiveInsurance(ctx context.Context, userID, betID int64) (*entities.InsurancePolicy, error) {
	query := `
		SELECT id, user_id, used_on_bet_id, COALESCE(refund_percentage, 0)
		FROM user_inventory_items
		WHERE user_id = $1
		  AND used_on_bet_id = $2
		  AND used_at IS NOT NULL
		  AND item_type = $3
		ORDER BY used_at DESC, id DESC
		LIMIT 1`

	var policy entities.InsurancePolicy
	err := r.q.QueryRow(ctx, query, userID, betID, ItemTypeBetInsurance).Scan(
		&policy.ItemID,
		&policy.UserID,
		&policy.BetID,
		&policy.RefundPercentage,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get insurance for user %d on bet %d: %w", userID, betID, err)
	}
	return &policy, nil
}

func (r *inventoryRepository) ReturnItem(ctx context.Context, userID, itemID int64) error {
	query := `
		UPDATE user_inventory_items
		SET used_at = NULL, used_on_bet_id = NULL
		WHERE id = $1 AND user_id = $2 AND used_at IS NOT NULL`

	tag, err := r.q.Exec(ctx, query, itemID, userID)
	if err != nil {
		return fmt.Errorf("failed to return inventory item %d: %w", itemID, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Already returned by an earlier settlement pass
	var exists bool
	err = r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_inventory_items WHERE id = $1 AND user_id = $2)`,
		itemID, userID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to look up inventory item %d: %w", itemID, err)
	}
	if !exists {
		return fmt.Errorf("inventory item %d not found for user %d", itemID, userID)
	}
	return nil
}
