package repository

import (
	"context"
	"fmt"
	"time"

	"codeclash/database"
	"codeclash/models"
	"github.com/jackc/pgx/v5"
)

// RankingRepository implements the RankingRepository interface
type RankingRepository struct {
	q queryable
}

// NewRankingRepository creates a new ranking repository
func NewRankingRepository(db *database.DB) *RankingRepository {
	return &RankingRepository{q: db.Pool}
}

func newRankingRepositoryWithTx(tx queryable) *RankingRepository {
	return &RankingRepository{q: tx}
}

const rankingColumns = `
	id, user_id, season_id, rating, deviation, volatility, games_played, updated_at
`

func scanRanking(row pgx.Row) (*models.Ranking, error) {
	var rk models.Ranking
	err := row.Scan(
		&rk.ID,
		&rk.UserID,
		&rk.SeasonID,
		&rk.Rating,
		&rk.Deviation,
		&rk.Volatility,
		&rk.GamesPlayed,
		&rk.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rk, nil
}

// GetOrCreate returns the (user, season) ranking row, creating it at the
// rating defaults on first access. The upsert makes concurrent first
// accesses safe.
func (r *RankingRepository) GetOrCreate(ctx context.Context, userID, seasonID int64) (*models.Ranking, error) {
	query := `
		INSERT INTO rankings (user_id, season_id, rating, deviation, volatility)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, season_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING` + rankingColumns + `
	`

	ranking, err := scanRanking(r.q.QueryRow(ctx, query,
		userID, seasonID,
		models.DefaultRating, models.DefaultDeviation, models.DefaultVolatility,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to get or create ranking for user %d season %d: %w", userID, seasonID, err)
	}

	return ranking, nil
}

// Update persists a recomputed ranking
func (r *RankingRepository) Update(ctx context.Context, ranking *models.Ranking) error {
	query := `
		UPDATE rankings
		SET rating = $1, deviation = $2, volatility = $3, games_played = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING updated_at
	`

	err := r.q.QueryRow(ctx, query,
		ranking.Rating,
		ranking.Deviation,
		ranking.Volatility,
		ranking.GamesPlayed,
		ranking.ID,
	).Scan(&ranking.UpdatedAt)

	if err == pgx.ErrNoRows {
		return fmt.Errorf("ranking %d not found", ranking.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update ranking %d: %w", ranking.ID, err)
	}

	return nil
}

// GetStale returns rankings in a season not updated since the cutoff
func (r *RankingRepository) GetStale(ctx context.Context, seasonID int64, cutoff time.Time) ([]*models.Ranking, error) {
	query := `SELECT` + rankingColumns + `FROM rankings WHERE season_id = $1 AND updated_at < $2 ORDER BY updated_at`

	rows, err := r.q.Query(ctx, query, seasonID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to get stale rankings for season %d: %w", seasonID, err)
	}
	defer rows.Close()

	var rankings []*models.Ranking
	for rows.Next() {
		rk, err := scanRanking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ranking: %w", err)
		}
		rankings = append(rankings, rk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rankings: %w", err)
	}

	return rankings, nil
}
