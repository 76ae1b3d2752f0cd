package repository

import (
	"context"
	"fmt"
	"time"

	"codeclash/database"
	"codeclash/models"
	"github.com/jackc/pgx/v5"
)

// SeasonRepository implements the SeasonRepository interface
type SeasonRepository struct {
	q queryable
}

// NewSeasonRepository creates a new season repository
func NewSeasonRepository(db *database.DB) *SeasonRepository {
	return &SeasonRepository{q: db.Pool}
}

func newSeasonRepositoryWithTx(tx queryable) *SeasonRepository {
	return &SeasonRepository{q: tx}
}

const seasonColumns = `
	id, name, start_at, end_at, min_games_for_ranking, placement_games, inactivity_period_days, created_at
`

func scanSeason(row pgx.Row) (*models.Season, error) {
	var s models.Season
	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.StartAt,
		&s.EndAt,
		&s.MinGamesForRanking,
		&s.PlacementGames,
		&s.InactivityPeriodDays,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetCurrent returns the season containing the given instant, or nil
func (r *SeasonRepository) GetCurrent(ctx context.Context, at time.Time) (*models.Season, error) {
	query := `SELECT` + seasonColumns + `FROM seasons WHERE start_at <= $1 AND end_at > $1 ORDER BY start_at DESC LIMIT 1`

	season, err := scanSeason(r.q.QueryRow(ctx, query, at))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get current season: %w", err)
	}

	return season, nil
}

// Create inserts a new season
func (r *SeasonRepository) Create(ctx context.Context, season *models.Season) error {
	query := `
		INSERT INTO seasons (name, start_at, end_at, min_games_for_ranking, placement_games, inactivity_period_days)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		season.Name,
		season.StartAt,
		season.EndAt,
		season.MinGamesForRanking,
		season.PlacementGames,
		season.InactivityPeriodDays,
	).Scan(&season.ID, &season.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create season %q: %w", season.Name, err)
	}

	return nil
}
