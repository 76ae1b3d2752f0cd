package repository

import (
	"context"
	"fmt"

	"codeclash/database"
	"codeclash/models"
	"github.com/jackc/pgx/v5"
)

// HoldRepository implements the HoldRepository interface
type HoldRepository struct {
	q queryable
}

// NewHoldRepository creates a new hold repository
func NewHoldRepository(db *database.DB) *HoldRepository {
	return &HoldRepository{q: db.Pool}
}

func newHoldRepositoryWithTx(tx queryable) *HoldRepository {
	return &HoldRepository{q: tx}
}

const holdColumns = `
	id, account_id, match_id, amount_reserved, status, amount_settled, created_at, updated_at
`

func scanHold(row pgx.Row) (*models.CreditHold, error) {
	var h models.CreditHold
	err := row.Scan(
		&h.ID,
		&h.AccountID,
		&h.MatchID,
		&h.AmountReserved,
		&h.Status,
		&h.AmountSettled,
		&h.CreatedAt,
		&h.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// Create inserts a new active hold. The partial unique index rejects a
// second active hold for the same (account, match) pair.
func (r *HoldRepository) Create(ctx context.Context, hold *models.CreditHold) error {
	query := `
		INSERT INTO credit_holds (account_id, match_id, amount_reserved, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		hold.AccountID,
		hold.MatchID,
		hold.AmountReserved,
		models.HoldStatusActive,
	).Scan(&hold.ID, &hold.CreatedAt, &hold.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create hold for account %d match %d: %w", hold.AccountID, hold.MatchID, err)
	}

	hold.Status = models.HoldStatusActive
	return nil
}

// GetByID retrieves a hold by its ID
func (r *HoldRepository) GetByID(ctx context.Context, id int64) (*models.CreditHold, error) {
	query := `SELECT` + holdColumns + `FROM credit_holds WHERE id = $1`

	hold, err := scanHold(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get hold %d: %w", id, err)
	}

	return hold, nil
}

// GetActiveByMatch returns all active holds on a match
func (r *HoldRepository) GetActiveByMatch(ctx context.Context, matchID int64) ([]*models.CreditHold, error) {
	query := `SELECT` + holdColumns + `FROM credit_holds WHERE match_id = $1 AND status = 'active' ORDER BY id`

	rows, err := r.q.Query(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active holds for match %d: %w", matchID, err)
	}
	defer rows.Close()

	var holds []*models.CreditHold
	for rows.Next() {
		h, err := scanHold(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan hold: %w", err)
		}
		holds = append(holds, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate holds: %w", err)
	}

	return holds, nil
}

// MarkReleased flips an active hold to released. Guarding on the active
// status makes release and settlement idempotent at the row level.
func (r *HoldRepository) MarkReleased(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE credit_holds
		SET status = 'released', updated_at = NOW()
		WHERE id = $1 AND status = 'active'
	`

	result, err := r.q.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to release hold %d: %w", id, err)
	}

	return result.RowsAffected() > 0, nil
}

// MarkSettled flips an active hold to settled recording the net credited amount
func (r *HoldRepository) MarkSettled(ctx context.Context, id int64, amountSettled int64) (bool, error) {
	query := `
		UPDATE credit_holds
		SET status = 'settled', amount_settled = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'active'
	`

	result, err := r.q.Exec(ctx, query, amountSettled, id)
	if err != nil {
		return false, fmt.Errorf("failed to settle hold %d: %w", id, err)
	}

	return result.RowsAffected() > 0, nil
}
