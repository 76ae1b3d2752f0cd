package service

import (
	"context"
	"time"

	"codeclash/events"
	"codeclash/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockMatchRepository is a mock implementation of MatchRepository
type MockMatchRepository struct {
	mock.Mock
}

func (m *MockMatchRepository) Create(ctx context.Context, match *models.Match) error {
	args := m.Called(ctx, match)
	return args.Error(0)
}

func (m *MockMatchRepository) GetByID(ctx context.Context, id int64) (*models.Match, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Match), args.Error(1)
}

func (m *MockMatchRepository) UpdateStatus(ctx context.Context, id int64, from, to models.MatchStatus) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockMatchRepository) UpdateStatusWithSchedule(ctx context.Context, id int64, from, to models.MatchStatus, startAt, endAt, lockAt time.Time) (bool, error) {
	args := m.Called(ctx, id, from, to, startAt, endAt, lockAt)
	return args.Bool(0), args.Error(1)
}

// MockParticipantRepository is a mock implementation of ParticipantRepository
type MockParticipantRepository struct {
	mock.Mock
}

func (m *MockParticipantRepository) Create(ctx context.Context, participant *models.MatchParticipant) error {
	args := m.Called(ctx, participant)
	return args.Error(0)
}

func (m *MockParticipantRepository) GetByMatch(ctx context.Context, matchID int64) ([]*models.MatchParticipant, error) {
	args := m.Called(ctx, matchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.MatchParticipant), args.Error(1)
}

func (m *MockParticipantRepository) GetByMatchAndUser(ctx context.Context, matchID, userID int64) (*models.MatchParticipant, error) {
	args := m.Called(ctx, matchID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MatchParticipant), args.Error(1)
}

func (m *MockParticipantRepository) SetReady(ctx context.Context, id int64, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockParticipantRepository) SetForfeit(ctx context.Context, id int64, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockParticipantRepository) SetSubmission(ctx context.Context, id int64, submissionID string) error {
	args := m.Called(ctx, id, submissionID)
	return args.Error(0)
}

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetByUserID(ctx context.Context, userID int64) (*models.CreditAccount, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CreditAccount), args.Error(1)
}

func (m *MockAccountRepository) Create(ctx context.Context, userID int64, initialBalance int64) (*models.CreditAccount, error) {
	args := m.Called(ctx, userID, initialBalance)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CreditAccount), args.Error(1)
}

func (m *MockAccountRepository) Reserve(ctx context.Context, accountID int64, amount int64) error {
	args := m.Called(ctx, accountID, amount)
	return args.Error(0)
}

func (m *MockAccountRepository) ReleaseReserved(ctx context.Context, accountID int64, amount int64) error {
	args := m.Called(ctx, accountID, amount)
	return args.Error(0)
}

func (m *MockAccountRepository) SettleReserved(ctx context.Context, accountID int64, reservedAmount, creditAmount int64) error {
	args := m.Called(ctx, accountID, reservedAmount, creditAmount)
	return args.Error(0)
}

// MockHoldRepository is a mock implementation of HoldRepository
type MockHoldRepository struct {
	mock.Mock
}

func (m *MockHoldRepository) Create(ctx context.Context, hold *models.CreditHold) error {
	args := m.Called(ctx, hold)
	return args.Error(0)
}

func (m *MockHoldRepository) GetByID(ctx context.Context, id int64) (*models.CreditHold, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CreditHold), args.Error(1)
}

func (m *MockHoldRepository) GetActiveByMatch(ctx context.Context, matchID int64) ([]*models.CreditHold, error) {
	args := m.Called(ctx, matchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.CreditHold), args.Error(1)
}

func (m *MockHoldRepository) MarkReleased(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockHoldRepository) MarkSettled(ctx context.Context, id int64, amountSettled int64) (bool, error) {
	args := m.Called(ctx, id, amountSettled)
	return args.Bool(0), args.Error(1)
}

// MockRankingRepository is a mock implementation of RankingRepository
type MockRankingRepository struct {
	mock.Mock
}

func (m *MockRankingRepository) GetOrCreate(ctx context.Context, userID, seasonID int64) (*models.Ranking, error) {
	args := m.Called(ctx, userID, seasonID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ranking), args.Error(1)
}

func (m *MockRankingRepository) Update(ctx context.Context, ranking *models.Ranking) error {
	args := m.Called(ctx, ranking)
	return args.Error(0)
}

func (m *MockRankingRepository) GetStale(ctx context.Context, seasonID int64, cutoff time.Time) ([]*models.Ranking, error) {
	args := m.Called(ctx, seasonID, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Ranking), args.Error(1)
}

// MockSeasonRepository is a mock implementation of SeasonRepository
type MockSeasonRepository struct {
	mock.Mock
}

func (m *MockSeasonRepository) GetCurrent(ctx context.Context, at time.Time) (*models.Season, error) {
	args := m.Called(ctx, at)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Season), args.Error(1)
}

func (m *MockSeasonRepository) Create(ctx context.Context, season *models.Season) error {
	args := m.Called(ctx, season)
	return args.Error(0)
}

// MockTimerJobRepository is a mock implementation of TimerJobRepository
type MockTimerJobRepository struct {
	mock.Mock
}

func (m *MockTimerJobRepository) Create(ctx context.Context, job *models.TimerJob) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockTimerJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.TimerJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TimerJob), args.Error(1)
}

func (m *MockTimerJobRepository) GetPending(ctx context.Context) ([]*models.TimerJob, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.TimerJob), args.Error(1)
}

func (m *MockTimerJobRepository) GetPendingByMatch(ctx context.Context, matchID int64) ([]*models.TimerJob, error) {
	args := m.Called(ctx, matchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.TimerJob), args.Error(1)
}

func (m *MockTimerJobRepository) MarkFired(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockTimerJobRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// collectingPublisher records published events without expectations; handy
// when a test only cares that certain events were staged.
type collectingPublisher struct {
	events []events.Event
}

func (p *collectingPublisher) Publish(e events.Event) {
	p.events = append(p.events, e)
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Begin, Commit and
// Rollback are expectation-driven; the repository getters return whatever
// was set via the Set helpers.
type MockUnitOfWork struct {
	mock.Mock
	matchRepo       MatchRepository
	participantRepo ParticipantRepository
	accountRepo     AccountRepository
	holdRepo        HoldRepository
	rankingRepo     RankingRepository
	seasonRepo      SeasonRepository
	timerJobRepo    TimerJobRepository
	eventBus        EventPublisher
}

// SetRepositories wires the match-side repositories
func (m *MockUnitOfWork) SetRepositories(match MatchRepository, participant ParticipantRepository, account AccountRepository, hold HoldRepository) {
	m.matchRepo = match
	m.participantRepo = participant
	m.accountRepo = account
	m.holdRepo = hold
}

// SetRatingRepositories wires the rating-side repositories
func (m *MockUnitOfWork) SetRatingRepositories(ranking RankingRepository, season SeasonRepository) {
	m.rankingRepo = ranking
	m.seasonRepo = season
}

// SetTimerJobRepository wires the timer job repository
func (m *MockUnitOfWork) SetTimerJobRepository(timerJob TimerJobRepository) {
	m.timerJobRepo = timerJob
}

// SetEventBus wires the event publisher; when unset events are dropped
func (m *MockUnitOfWork) SetEventBus(bus EventPublisher) {
	m.eventBus = bus
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) MatchRepository() MatchRepository {
	return m.matchRepo
}

func (m *MockUnitOfWork) ParticipantRepository() ParticipantRepository {
	return m.participantRepo
}

func (m *MockUnitOfWork) AccountRepository() AccountRepository {
	return m.accountRepo
}

func (m *MockUnitOfWork) HoldRepository() HoldRepository {
	return m.holdRepo
}

func (m *MockUnitOfWork) RankingRepository() RankingRepository {
	return m.rankingRepo
}

func (m *MockUnitOfWork) SeasonRepository() SeasonRepository {
	return m.seasonRepo
}

func (m *MockUnitOfWork) TimerJobRepository() TimerJobRepository {
	return m.timerJobRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	if m.eventBus == nil {
		return &collectingPublisher{}
	}
	return m.eventBus
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}

// MockTimerCoordinator is a mock implementation of TimerCoordinator
type MockTimerCoordinator struct {
	mock.Mock
}

func (m *MockTimerCoordinator) Schedule(ctx context.Context, matchID int64, fireAt time.Time, toStatus models.MatchStatus) (uuid.UUID, error) {
	args := m.Called(ctx, matchID, fireAt, toStatus)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockTimerCoordinator) Cancel(ctx context.Context, handle uuid.UUID) error {
	args := m.Called(ctx, handle)
	return args.Error(0)
}

func (m *MockTimerCoordinator) RecoverPending(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockRatingService is a mock implementation of RatingService
type MockRatingService struct {
	mock.Mock
}

func (m *MockRatingService) ApplyMatchResult(ctx context.Context, matchID int64, winnerID *int64, isDraw bool) error {
	args := m.Called(ctx, matchID, winnerID, isDraw)
	return args.Error(0)
}

func (m *MockRatingService) SweepInactive(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockRatingService) CurrentSeason(ctx context.Context) (*models.Season, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Season), args.Error(1)
}

func (m *MockRatingService) StakeCapFor(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}
