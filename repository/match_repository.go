package repository

import (
	"context"
	"fmt"
	"time"

	"codeclash/database"
	"codeclash/models"
	"github.com/jackc/pgx/v5"
)

// MatchRepository implements the MatchRepository interface
type MatchRepository struct {
	q queryable
}

// NewMatchRepository creates a new match repository
func NewMatchRepository(db *database.DB) *MatchRepository {
	return &MatchRepository{q: db.Pool}
}

// newMatchRepositoryWithTx creates a new match repository with a transaction
func newMatchRepositoryWithTx(tx queryable) *MatchRepository {
	return &MatchRepository{q: tx}
}

const matchColumns = `
	id, status, mode, creator_id, challenge_id, stake_amount, duration_minutes,
	config_hash, dispute_status, created_at, start_at, end_at, lock_at
`

func scanMatch(row pgx.Row) (*models.Match, error) {
	var m models.Match
	err := row.Scan(
		&m.ID,
		&m.Status,
		&m.Mode,
		&m.CreatorID,
		&m.ChallengeID,
		&m.StakeAmount,
		&m.DurationMinutes,
		&m.ConfigHash,
		&m.DisputeStatus,
		&m.CreatedAt,
		&m.StartAt,
		&m.EndAt,
		&m.LockAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserts a new match
func (r *MatchRepository) Create(ctx context.Context, match *models.Match) error {
	query := `
		INSERT INTO matches (status, mode, creator_id, challenge_id, stake_amount, duration_minutes, config_hash, dispute_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		match.Status,
		match.Mode,
		match.CreatorID,
		match.ChallengeID,
		match.StakeAmount,
		match.DurationMinutes,
		match.ConfigHash,
		match.DisputeStatus,
	).Scan(&match.ID, &match.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create match: %w", err)
	}

	return nil
}

// GetByID retrieves a match by its ID
func (r *MatchRepository) GetByID(ctx context.Context, id int64) (*models.Match, error) {
	query := `SELECT` + matchColumns + `FROM matches WHERE id = $1`

	match, err := scanMatch(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match %d: %w", id, err)
	}

	return match, nil
}

// UpdateStatus moves the match from the expected status to the new one. The
// WHERE clause on the old status is the optimistic check that serializes
// racing transitions: exactly one caller sees true.
func (r *MatchRepository) UpdateStatus(ctx context.Context, id int64, from, to models.MatchStatus) (bool, error) {
	query := `
		UPDATE matches
		SET status = $1
		WHERE id = $2 AND status = $3
	`

	result, err := r.q.Exec(ctx, query, to, id, from)
	if err != nil {
		return false, fmt.Errorf("failed to update status for match %d: %w", id, err)
	}

	return result.RowsAffected() > 0, nil
}

// UpdateStatusWithSchedule applies the status change together with the
// one-time phase timestamps. The timestamp columns are only written when
// still NULL; they are never mutated after being set.
func (r *MatchRepository) UpdateStatusWithSchedule(ctx context.Context, id int64, from, to models.MatchStatus, startAt, endAt, lockAt time.Time) (bool, error) {
	query := `
		UPDATE matches
		SET status = $1,
		    start_at = COALESCE(start_at, $2),
		    end_at = COALESCE(end_at, $3),
		    lock_at = COALESCE(lock_at, $4)
		WHERE id = $5 AND status = $6
	`

	result, err := r.q.Exec(ctx, query, to, startAt, endAt, lockAt, id, from)
	if err != nil {
		return false, fmt.Errorf("failed to update status with schedule for match %d: %w", id, err)
	}

	return result.RowsAffected() > 0, nil
}
