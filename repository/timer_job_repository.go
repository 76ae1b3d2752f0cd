package repository

import (
	"context"
	"fmt"
	"time"

	"codeclash/database"
	"codeclash/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TimerJobRepository implements the TimerJobRepository interface
type TimerJobRepository struct {
	q queryable
}

// NewTimerJobRepository creates a new timer job repository
func NewTimerJobRepository(db *database.DB) *TimerJobRepository {
	return &TimerJobRepository{q: db.Pool}
}

func newTimerJobRepositoryWithTx(tx queryable) *TimerJobRepository {
	return &TimerJobRepository{q: tx}
}

const timerJobColumns = `
	id, match_id, to_status, fire_at, fired_at, created_at
`

func scanTimerJob(row pgx.Row) (*models.TimerJob, error) {
	var j models.TimerJob
	err := row.Scan(
		&j.ID,
		&j.MatchID,
		&j.ToStatus,
		&j.FireAt,
		&j.FiredAt,
		&j.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// Create inserts a pending job. The partial unique index on pending
// (match_id, to_status) rejects a second unfired job for the same pair.
func (r *TimerJobRepository) Create(ctx context.Context, job *models.TimerJob) error {
	query := `
		INSERT INTO timer_jobs (id, match_id, to_status, fire_at)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`

	err := r.q.QueryRow(ctx, query,
		job.ID,
		job.MatchID,
		job.ToStatus,
		job.FireAt,
	).Scan(&job.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create timer job for match %d: %w", job.MatchID, err)
	}

	return nil
}

// GetByID retrieves a job, or nil when absent
func (r *TimerJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.TimerJob, error) {
	query := `SELECT` + timerJobColumns + `FROM timer_jobs WHERE id = $1`

	job, err := scanTimerJob(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get timer job %s: %w", id, err)
	}

	return job, nil
}

// GetPending returns all unfired jobs ordered by deadline
func (r *TimerJobRepository) GetPending(ctx context.Context) ([]*models.TimerJob, error) {
	query := `SELECT` + timerJobColumns + `FROM timer_jobs WHERE fired_at IS NULL ORDER BY fire_at`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending timer jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.TimerJob
	for rows.Next() {
		j, err := scanTimerJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan timer job: %w", err)
		}
		jobs = append(jobs, j)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate timer jobs: %w", err)
	}

	return jobs, nil
}

// GetPendingByMatch returns a match's unfired jobs ordered by deadline
func (r *TimerJobRepository) GetPendingByMatch(ctx context.Context, matchID int64) ([]*models.TimerJob, error) {
	query := `SELECT` + timerJobColumns + `FROM timer_jobs WHERE match_id = $1 AND fired_at IS NULL ORDER BY fire_at`

	rows, err := r.q.Query(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending timer jobs for match %d: %w", matchID, err)
	}
	defer rows.Close()

	var jobs []*models.TimerJob
	for rows.Next() {
		j, err := scanTimerJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan timer job: %w", err)
		}
		jobs = append(jobs, j)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate timer jobs: %w", err)
	}

	return jobs, nil
}

// MarkFired stamps fired_at once; a second call returns false
func (r *TimerJobRepository) MarkFired(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	query := `
		UPDATE timer_jobs
		SET fired_at = $1
		WHERE id = $2 AND fired_at IS NULL
	`

	result, err := r.q.Exec(ctx, query, at, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark timer job %s fired: %w", id, err)
	}

	return result.RowsAffected() > 0, nil
}

// Delete removes a pending job; a fired job is kept for audit
func (r *TimerJobRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `DELETE FROM timer_jobs WHERE id = $1 AND fired_at IS NULL`

	result, err := r.q.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete timer job %s: %w", id, err)
	}

	return result.RowsAffected() > 0, nil
}
