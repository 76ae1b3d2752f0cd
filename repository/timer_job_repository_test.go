package repository

import (
	"context"
	"testing"
	"time"

	"codeclash/models"
	"codeclash/repository/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerJobRepository(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	matchRepo := NewMatchRepository(testDB.DB)
	repo := NewTimerJobRepository(testDB.DB)
	ctx := context.Background()

	newMatch := func(t *testing.T) *models.Match {
		match := testutil.CreateTestMatch(100, models.MatchStatusInProgress)
		require.NoError(t, matchRepo.Create(ctx, match))
		return match
	}

	newJob := func(matchID int64, toStatus models.MatchStatus, fireAt time.Time) *models.TimerJob {
		return &models.TimerJob{
			ID:       uuid.New(),
			MatchID:  matchID,
			ToStatus: toStatus,
			FireAt:   fireAt,
		}
	}

	t.Run("create and get", func(t *testing.T) {
		match := newMatch(t)
		fireAt := time.Now().UTC().Add(time.Hour).Truncate(time.Microsecond)
		job := newJob(match.ID, models.MatchStatusSubmissionLocked, fireAt)

		require.NoError(t, repo.Create(ctx, job))
		assert.False(t, job.CreatedAt.IsZero())

		loaded, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		require.NotNil(t, loaded)
		assert.Equal(t, match.ID, loaded.MatchID)
		assert.Equal(t, models.MatchStatusSubmissionLocked, loaded.ToStatus)
		assert.WithinDuration(t, fireAt, loaded.FireAt, 0)
		assert.Nil(t, loaded.FiredAt)
	})

	t.Run("one pending job per match and target", func(t *testing.T) {
		match := newMatch(t)
		fireAt := time.Now().UTC().Add(time.Hour)

		require.NoError(t, repo.Create(ctx, newJob(match.ID, models.MatchStatusSubmissionLocked, fireAt)))
		err := repo.Create(ctx, newJob(match.ID, models.MatchStatusSubmissionLocked, fireAt.Add(time.Minute)))
		assert.Error(t, err)

		// A different target status is a different timer
		assert.NoError(t, repo.Create(ctx, newJob(match.ID, models.MatchStatusJudging, fireAt)))
	})

	t.Run("firing frees the pending slot", func(t *testing.T) {
		match := newMatch(t)
		fireAt := time.Now().UTC().Add(time.Hour)

		job := newJob(match.ID, models.MatchStatusSubmissionLocked, fireAt)
		require.NoError(t, repo.Create(ctx, job))
		fired, err := repo.MarkFired(ctx, job.ID, time.Now().UTC())
		require.NoError(t, err)
		require.True(t, fired)

		assert.NoError(t, repo.Create(ctx, newJob(match.ID, models.MatchStatusSubmissionLocked, fireAt)))
	})

	t.Run("fired stamps only once", func(t *testing.T) {
		match := newMatch(t)
		job := newJob(match.ID, models.MatchStatusSubmissionLocked, time.Now().UTC())
		require.NoError(t, repo.Create(ctx, job))

		firstAt := time.Now().UTC().Truncate(time.Microsecond)
		fired, err := repo.MarkFired(ctx, job.ID, firstAt)
		require.NoError(t, err)
		assert.True(t, fired)

		fired, err = repo.MarkFired(ctx, job.ID, firstAt.Add(time.Minute))
		require.NoError(t, err)
		assert.False(t, fired)

		loaded, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		require.NotNil(t, loaded.FiredAt)
		assert.WithinDuration(t, firstAt, *loaded.FiredAt, 0)
	})

	t.Run("pending lookups skip fired jobs", func(t *testing.T) {
		match := newMatch(t)
		other := newMatch(t)
		fireAt := time.Now().UTC().Add(time.Hour)

		pending := newJob(match.ID, models.MatchStatusSubmissionLocked, fireAt)
		firedJob := newJob(match.ID, models.MatchStatusJudging, fireAt.Add(time.Minute))
		elsewhere := newJob(other.ID, models.MatchStatusSubmissionLocked, fireAt)
		require.NoError(t, repo.Create(ctx, pending))
		require.NoError(t, repo.Create(ctx, firedJob))
		require.NoError(t, repo.Create(ctx, elsewhere))

		_, err := repo.MarkFired(ctx, firedJob.ID, time.Now().UTC())
		require.NoError(t, err)

		byMatch, err := repo.GetPendingByMatch(ctx, match.ID)
		require.NoError(t, err)
		require.Len(t, byMatch, 1)
		assert.Equal(t, pending.ID, byMatch[0].ID)

		all, err := repo.GetPending(ctx)
		require.NoError(t, err)
		ids := make([]uuid.UUID, 0, len(all))
		for _, j := range all {
			ids = append(ids, j.ID)
		}
		assert.Contains(t, ids, pending.ID)
		assert.Contains(t, ids, elsewhere.ID)
		assert.NotContains(t, ids, firedJob.ID)
	})

	t.Run("delete removes only pending jobs", func(t *testing.T) {
		match := newMatch(t)
		job := newJob(match.ID, models.MatchStatusSubmissionLocked, time.Now().UTC().Add(time.Hour))
		require.NoError(t, repo.Create(ctx, job))

		deleted, err := repo.Delete(ctx, job.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		firedJob := newJob(match.ID, models.MatchStatusJudging, time.Now().UTC())
		require.NoError(t, repo.Create(ctx, firedJob))
		_, err = repo.MarkFired(ctx, firedJob.ID, time.Now().UTC())
		require.NoError(t, err)

		deleted, err = repo.Delete(ctx, firedJob.ID)
		require.NoError(t, err)
		assert.False(t, deleted, "fired jobs are kept for audit")
	})
}
