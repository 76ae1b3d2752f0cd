package service

import (
	"context"
	"fmt"
	"time"

	"codeclash/config"
	"codeclash/events"
	"codeclash/models"
	"codeclash/rating"

	log "github.com/sirupsen/logrus"
)

type ratingService struct {
	uowFactory UnitOfWorkFactory
	config     *config.Config
	bus        *events.Bus
}

// NewRatingService creates the Glicko-2 rating engine service. The bus is
// used directly for failure events, which must survive the rolled-back
// transaction that produced them.
func NewRatingService(uowFactory UnitOfWorkFactory, cfg *config.Config, bus *events.Bus) RatingService {
	return &ratingService{
		uowFactory: uowFactory,
		config:     cfg,
		bus:        bus,
	}
}

// ApplyMatchResult updates both participants' rankings from pre-match
// snapshots of each other. Both updates commit together or not at all.
func (s *ratingService) ApplyMatchResult(ctx context.Context, matchID int64, winnerID *int64, isDraw bool) error {
	if err := s.applyMatchResult(ctx, matchID, winnerID, isDraw); err != nil {
		s.bus.Emit(ctx, events.RatingUpdateFailedEvent{
			MatchID: matchID,
			Err:     err.Error(),
		})
		return err
	}
	return nil
}

func (s *ratingService) applyMatchResult(ctx context.Context, matchID int64, winnerID *int64, isDraw bool) error {
	if !isDraw && winnerID == nil {
		return NewComputationFailure("a decisive result requires a winner")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	participants, err := uow.ParticipantRepository().GetByMatch(ctx, matchID)
	if err != nil {
		return fmt.Errorf("failed to get participants: %w", err)
	}
	if len(participants) != 2 {
		return NewComputationFailure("match %d does not have two participants", matchID)
	}

	season, err := getOrCreateSeason(ctx, uow, s.config)
	if err != nil {
		return err
	}

	first, err := uow.RankingRepository().GetOrCreate(ctx, participants[0].UserID, season.ID)
	if err != nil {
		return fmt.Errorf("failed to get ranking: %w", err)
	}
	second, err := uow.RankingRepository().GetOrCreate(ctx, participants[1].UserID, season.ID)
	if err != nil {
		return fmt.Errorf("failed to get ranking: %w", err)
	}

	// Pre-match snapshots: each side is rated against the opponent's values
	// from before this match, so update order does not matter.
	firstPlayer := playerFromRanking(first)
	secondPlayer := playerFromRanking(second)

	firstScore, secondScore := 0.5, 0.5
	if !isDraw {
		switch *winnerID {
		case first.UserID:
			firstScore, secondScore = 1, 0
		case second.UserID:
			firstScore, secondScore = 0, 1
		default:
			return NewComputationFailure("winner %d is not a participant of match %d", *winnerID, matchID)
		}
	}

	firstNew := rating.Update(firstPlayer, []rating.Result{{Opponent: secondPlayer, Score: firstScore}}, s.config.RatingTau)
	secondNew := rating.Update(secondPlayer, []rating.Result{{Opponent: firstPlayer, Score: secondScore}}, s.config.RatingTau)

	applyPlayerToRanking(first, firstNew)
	applyPlayerToRanking(second, secondNew)

	if err := uow.RankingRepository().Update(ctx, first); err != nil {
		return fmt.Errorf("failed to update ranking: %w", err)
	}
	if err := uow.RankingRepository().Update(ctx, second); err != nil {
		return fmt.Errorf("failed to update ranking: %w", err)
	}

	uow.EventBus().Publish(events.RatingsUpdatedEvent{
		MatchID:  matchID,
		SeasonID: season.ID,
		Ratings: map[int64]float64{
			first.UserID:  first.Rating,
			second.UserID: second.Rating,
		},
	})

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"matchId":  matchID,
		"seasonId": season.ID,
	}).Info("Ratings updated")

	return nil
}

// SweepInactive inflates the deviation of rankings idle for at least one
// rating period. Each swept ranking is aged by the number of whole periods
// missed; deviations already at the ceiling are left alone.
func (s *ratingService) SweepInactive(ctx context.Context) (int, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	season, err := getOrCreateSeason(ctx, uow, s.config)
	if err != nil {
		return 0, err
	}

	period := time.Duration(s.config.RatingPeriodDays) * 24 * time.Hour
	now := time.Now().UTC()

	stale, err := uow.RankingRepository().GetStale(ctx, season.ID, now.Add(-period))
	if err != nil {
		return 0, fmt.Errorf("failed to get stale rankings: %w", err)
	}

	swept := 0
	for _, rk := range stale {
		missed := int(now.Sub(rk.UpdatedAt) / period)
		if missed <= 0 {
			continue
		}

		aged := rating.AgeByPeriods(playerFromRanking(rk), missed)
		if aged.Deviation == rk.Deviation {
			continue
		}

		rk.Deviation = aged.Deviation
		if err := uow.RankingRepository().Update(ctx, rk); err != nil {
			return 0, fmt.Errorf("failed to update ranking %d: %w", rk.ID, err)
		}
		swept++
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if swept > 0 {
		log.WithFields(log.Fields{
			"seasonId": season.ID,
			"swept":    swept,
		}).Info("Inflated deviation of inactive rankings")
	}

	return swept, nil
}

// CurrentSeason returns the current season, creating one when none covers
// the present time.
func (s *ratingService) CurrentSeason(ctx context.Context) (*models.Season, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	season, err := getOrCreateSeason(ctx, uow, s.config)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return season, nil
}

// StakeCapFor returns the maximum stake the user's current rating and
// deviation permit. Players still in placement get the configured default.
func (s *ratingService) StakeCapFor(ctx context.Context, userID int64) (int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	season, err := getOrCreateSeason(ctx, uow, s.config)
	if err != nil {
		return 0, err
	}

	ranking, err := uow.RankingRepository().GetOrCreate(ctx, userID, season.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to get ranking: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if ranking.GamesPlayed < season.PlacementGames {
		return s.config.DefaultStakeCap, nil
	}

	return rating.StakeCap(ranking.Rating, ranking.Deviation), nil
}

func playerFromRanking(rk *models.Ranking) rating.Player {
	return rating.Player{
		Rating:     rk.Rating,
		Deviation:  rk.Deviation,
		Volatility: rk.Volatility,
	}
}

func applyPlayerToRanking(rk *models.Ranking, p rating.Player) {
	rk.Rating = p.Rating
	rk.Deviation = p.Deviation
	rk.Volatility = p.Volatility
	rk.GamesPlayed++
}

// getOrCreateSeason returns the season covering now, creating a new one at
// the start of the current month when the calendar has run past the last
// configured season.
func getOrCreateSeason(ctx context.Context, uow UnitOfWork, cfg *config.Config) (*models.Season, error) {
	now := time.Now().UTC()

	season, err := uow.SeasonRepository().GetCurrent(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get current season: %w", err)
	}
	if season != nil {
		return season, nil
	}

	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	season = &models.Season{
		Name:                 fmt.Sprintf("Season %d-%02d", now.Year(), int(now.Month())),
		StartAt:              start,
		EndAt:                start.AddDate(0, cfg.SeasonLengthMonths, 0),
		MinGamesForRanking:   10,
		PlacementGames:       5,
		InactivityPeriodDays: cfg.RatingPeriodDays,
	}
	if err := uow.SeasonRepository().Create(ctx, season); err != nil {
		return nil, fmt.Errorf("failed to create season: %w", err)
	}

	log.WithFields(log.Fields{
		"seasonId": season.ID,
		"name":     season.Name,
	}).Info("Created season")

	return season, nil
}
