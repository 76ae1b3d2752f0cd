package models

import "time"

// Default Glicko-2 values for a player with no rated games
const (
	DefaultRating     = 1500.0
	DefaultDeviation  = 350.0
	DefaultVolatility = 0.06
)

// Ranking holds a user's Glicko-2 triple for one season. Rows are created
// lazily on first access and mutated only by the rating engine.
type Ranking struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	SeasonID    int64     `db:"season_id"`
	Rating      float64   `db:"rating"`
	Deviation   float64   `db:"deviation"`
	Volatility  float64   `db:"volatility"`
	GamesPlayed int       `db:"games_played"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Season represents a competitive season window with its ranking rules
type Season struct {
	ID                   int64     `db:"id"`
	Name                 string    `db:"name"`
	StartAt              time.Time `db:"start_at"`
	EndAt                time.Time `db:"end_at"`
	MinGamesForRanking   int       `db:"min_games_for_ranking"`
	PlacementGames       int       `db:"placement_games"`
	InactivityPeriodDays int       `db:"inactivity_period_days"`
	CreatedAt            time.Time `db:"created_at"`
}

// Contains checks if the given instant falls inside the season window
func (s *Season) Contains(t time.Time) bool {
	return !t.Before(s.StartAt) && t.Before(s.EndAt)
}
