package service

import (
	"context"
	"testing"
	"time"

	"codeclash/events"
	"codeclash/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Test utilities

type ratingServiceFixture struct {
	service         RatingService
	bus             *events.Bus
	uow             *MockUnitOfWork
	participantRepo *MockParticipantRepository
	rankingRepo     *MockRankingRepository
	seasonRepo      *MockSeasonRepository
}

func newRatingServiceFixture() *ratingServiceFixture {
	f := &ratingServiceFixture{
		bus:             events.NewBus(),
		uow:             new(MockUnitOfWork),
		participantRepo: new(MockParticipantRepository),
		rankingRepo:     new(MockRankingRepository),
		seasonRepo:      new(MockSeasonRepository),
	}

	f.uow.SetRepositories(nil, f.participantRepo, nil, nil)
	f.uow.SetRatingRepositories(f.rankingRepo, f.seasonRepo)
	setupBasicTransactionMocks(f.uow)

	factory := new(MockUnitOfWorkFactory)
	factory.On("Create").Return(f.uow)

	f.service = NewRatingService(factory, testConfig(), f.bus)
	return f
}

func createTestSeason(id int64) *models.Season {
	now := time.Now().UTC()
	return &models.Season{
		ID:                   id,
		Name:                 "Season Test",
		StartAt:              now.AddDate(0, -1, 0),
		EndAt:                now.AddDate(0, 2, 0),
		MinGamesForRanking:   10,
		PlacementGames:       5,
		InactivityPeriodDays: 7,
	}
}

func createTestRanking(id, userID, seasonID int64) *models.Ranking {
	return &models.Ranking{
		ID:         id,
		UserID:     userID,
		SeasonID:   seasonID,
		Rating:     models.DefaultRating,
		Deviation:  models.DefaultDeviation,
		Volatility: models.DefaultVolatility,
		UpdatedAt:  time.Now().UTC(),
	}
}

// Tests

func TestRatingService_ApplyMatchResult(t *testing.T) {
	ctx := context.Background()

	t.Run("winner gains and loser drops", func(t *testing.T) {
		f := newRatingServiceFixture()

		season := createTestSeason(1)
		winner := createTestRanking(1, 100, 1)
		loser := createTestRanking(2, 200, 1)

		f.participantRepo.On("GetByMatch", mock.Anything, int64(5)).Return([]*models.MatchParticipant{
			createTestParticipantModel(1, 5, 100, models.SeatA),
			createTestParticipantModel(2, 5, 200, models.SeatB),
		}, nil)
		f.seasonRepo.On("GetCurrent", mock.Anything, mock.AnythingOfType("time.Time")).Return(season, nil)
		f.rankingRepo.On("GetOrCreate", mock.Anything, int64(100), int64(1)).Return(winner, nil)
		f.rankingRepo.On("GetOrCreate", mock.Anything, int64(200), int64(1)).Return(loser, nil)
		f.rankingRepo.On("Update", mock.Anything, winner).Return(nil)
		f.rankingRepo.On("Update", mock.Anything, loser).Return(nil)

		winnerID := int64(100)
		err := f.service.ApplyMatchResult(ctx, 5, &winnerID, false)
		require.NoError(t, err)

		assert.Greater(t, winner.Rating, models.DefaultRating)
		assert.Less(t, loser.Rating, models.DefaultRating)
		assert.Equal(t, 1, winner.GamesPlayed)
		assert.Equal(t, 1, loser.GamesPlayed)
		assert.Less(t, winner.Deviation, models.DefaultDeviation)
		f.rankingRepo.AssertExpectations(t)
	})

	t.Run("draw between equals leaves ratings level", func(t *testing.T) {
		f := newRatingServiceFixture()

		season := createTestSeason(1)
		first := createTestRanking(1, 100, 1)
		second := createTestRanking(2, 200, 1)

		f.participantRepo.On("GetByMatch", mock.Anything, int64(5)).Return([]*models.MatchParticipant{
			createTestParticipantModel(1, 5, 100, models.SeatA),
			createTestParticipantModel(2, 5, 200, models.SeatB),
		}, nil)
		f.seasonRepo.On("GetCurrent", mock.Anything, mock.AnythingOfType("time.Time")).Return(season, nil)
		f.rankingRepo.On("GetOrCreate", mock.Anything, int64(100), int64(1)).Return(first, nil)
		f.rankingRepo.On("GetOrCreate", mock.Anything, int64(200), int64(1)).Return(second, nil)
		f.rankingRepo.On("Update", mock.Anything, mock.AnythingOfType("*models.Ranking")).Return(nil)

		err := f.service.ApplyMatchResult(ctx, 5, nil, true)
		require.NoError(t, err)

		assert.InDelta(t, models.DefaultRating, first.Rating, 0.001)
		assert.InDelta(t, models.DefaultRating, second.Rating, 0.001)
	})

	t.Run("failure is surfaced on the bus and returned", func(t *testing.T) {
		f := newRatingServiceFixture()

		failed := make(chan events.Event, 1)
		f.bus.Subscribe(events.EventTypeRatingUpdateFailed, func(ctx context.Context, e events.Event) {
			failed <- e
		})

		// One-sided match cannot be rated
		f.participantRepo.On("GetByMatch", mock.Anything, int64(5)).Return([]*models.MatchParticipant{
			createTestParticipantModel(1, 5, 100, models.SeatA),
		}, nil)

		winnerID := int64(100)
		err := f.service.ApplyMatchResult(ctx, 5, &winnerID, false)
		require.Error(t, err)
		assert.Equal(t, ErrorCodeComputationFailure, CodeOf(err))

		select {
		case e := <-failed:
			assert.Equal(t, int64(5), e.(events.RatingUpdateFailedEvent).MatchID)
		case <-time.After(2 * time.Second):
			t.Fatal("rating failure event was not emitted")
		}
	})

	t.Run("winner outside the match is rejected", func(t *testing.T) {
		f := newRatingServiceFixture()

		season := createTestSeason(1)
		f.participantRepo.On("GetByMatch", mock.Anything, int64(5)).Return([]*models.MatchParticipant{
			createTestParticipantModel(1, 5, 100, models.SeatA),
			createTestParticipantModel(2, 5, 200, models.SeatB),
		}, nil)
		f.seasonRepo.On("GetCurrent", mock.Anything, mock.AnythingOfType("time.Time")).Return(season, nil)
		f.rankingRepo.On("GetOrCreate", mock.Anything, int64(100), int64(1)).Return(createTestRanking(1, 100, 1), nil)
		f.rankingRepo.On("GetOrCreate", mock.Anything, int64(200), int64(1)).Return(createTestRanking(2, 200, 1), nil)

		winnerID := int64(999)
		err := f.service.ApplyMatchResult(ctx, 5, &winnerID, false)
		assert.Equal(t, ErrorCodeComputationFailure, CodeOf(err))
		f.rankingRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}

func TestRatingService_SweepInactive(t *testing.T) {
	ctx := context.Background()

	t.Run("idle rankings are aged by whole missed periods", func(t *testing.T) {
		f := newRatingServiceFixture()

		season := createTestSeason(1)
		idle := createTestRanking(1, 100, 1)
		idle.Deviation = 100
		idle.UpdatedAt = time.Now().UTC().Add(-15 * 24 * time.Hour) // two 7-day periods

		f.seasonRepo.On("GetCurrent", mock.Anything, mock.AnythingOfType("time.Time")).Return(season, nil)
		f.rankingRepo.On("GetStale", mock.Anything, int64(1), mock.AnythingOfType("time.Time")).Return([]*models.Ranking{idle}, nil)
		f.rankingRepo.On("Update", mock.Anything, idle).Return(nil)

		swept, err := f.service.SweepInactive(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, swept)
		assert.Greater(t, idle.Deviation, 100.0)
		assert.LessOrEqual(t, idle.Deviation, models.DefaultDeviation)
	})

	t.Run("deviation already at the ceiling is left alone", func(t *testing.T) {
		f := newRatingServiceFixture()

		season := createTestSeason(1)
		capped := createTestRanking(1, 100, 1)
		capped.UpdatedAt = time.Now().UTC().Add(-30 * 24 * time.Hour)

		f.seasonRepo.On("GetCurrent", mock.Anything, mock.AnythingOfType("time.Time")).Return(season, nil)
		f.rankingRepo.On("GetStale", mock.Anything, int64(1), mock.AnythingOfType("time.Time")).Return([]*models.Ranking{capped}, nil)

		swept, err := f.service.SweepInactive(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, swept)
		f.rankingRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}

func TestRatingService_CurrentSeason(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a season when none covers now", func(t *testing.T) {
		f := newRatingServiceFixture()

		f.seasonRepo.On("GetCurrent", mock.Anything, mock.AnythingOfType("time.Time")).Return(nil, nil)
		f.seasonRepo.On("Create", mock.Anything, mock.MatchedBy(func(s *models.Season) bool {
			return s.EndAt.After(s.StartAt) && s.InactivityPeriodDays == 7
		})).Return(nil)

		season, err := f.service.CurrentSeason(ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, season.Name)
		f.seasonRepo.AssertExpectations(t)
	})
}

func TestRatingService_StakeCapFor(t *testing.T) {
	ctx := context.Background()

	t.Run("placement players get the default cap", func(t *testing.T) {
		f := newRatingServiceFixture()

		season := createTestSeason(1)
		ranking := createTestRanking(1, 100, 1)
		ranking.GamesPlayed = 2

		f.seasonRepo.On("GetCurrent", mock.Anything, mock.AnythingOfType("time.Time")).Return(season, nil)
		f.rankingRepo.On("GetOrCreate", mock.Anything, int64(100), int64(1)).Return(ranking, nil)

		limit, err := f.service.StakeCapFor(ctx, 100)
		require.NoError(t, err)
		assert.Equal(t, int64(100), limit)
	})

	t.Run("established players get a rating-derived cap", func(t *testing.T) {
		f := newRatingServiceFixture()

		season := createTestSeason(1)
		ranking := createTestRanking(1, 100, 1)
		ranking.GamesPlayed = 20
		ranking.Rating = 1800
		ranking.Deviation = 50

		f.seasonRepo.On("GetCurrent", mock.Anything, mock.AnythingOfType("time.Time")).Return(season, nil)
		f.rankingRepo.On("GetOrCreate", mock.Anything, int64(100), int64(1)).Return(ranking, nil)

		limit, err := f.service.StakeCapFor(ctx, 100)
		require.NoError(t, err)
		// 1800 - 1.96*50 = 1702 -> 50 + 1702/4 = 475
		assert.Equal(t, int64(475), limit)
	})
}
