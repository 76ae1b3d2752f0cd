package service

import (
	"context"
	"time"

	"codeclash/events"
	"codeclash/models"

	"github.com/google/uuid"
)

// MatchRepository defines the interface for match data access
type MatchRepository interface {
	// Create inserts a new match and fills in its generated fields
	Create(ctx context.Context, match *models.Match) error

	// GetByID retrieves a match by its ID, or nil when absent
	GetByID(ctx context.Context, id int64) (*models.Match, error)

	// UpdateStatus moves the match from the expected status to the new one.
	// Returns false without error when the optimistic status check fails.
	UpdateStatus(ctx context.Context, id int64, from, to models.MatchStatus) (bool, error)

	// UpdateStatusWithSchedule is UpdateStatus plus the one-time phase
	// timestamps, persisted atomically with the status change.
	UpdateStatusWithSchedule(ctx context.Context, id int64, from, to models.MatchStatus, startAt, endAt, lockAt time.Time) (bool, error)
}

// ParticipantRepository defines the interface for match participant data access
type ParticipantRepository interface {
	// Create inserts a new participant row
	Create(ctx context.Context, participant *models.MatchParticipant) error

	// GetByMatch returns all participants of a match ordered by seat
	GetByMatch(ctx context.Context, matchID int64) ([]*models.MatchParticipant, error)

	// GetByMatchAndUser returns the participant row for a user, or nil
	GetByMatchAndUser(ctx context.Context, matchID, userID int64) (*models.MatchParticipant, error)

	// SetReady stamps ready_at; returns false if it was already set
	SetReady(ctx context.Context, id int64, at time.Time) (bool, error)

	// SetForfeit stamps forfeit_at; returns false if it was already set
	SetForfeit(ctx context.Context, id int64, at time.Time) (bool, error)

	// SetSubmission records the external submission service's id
	SetSubmission(ctx context.Context, id int64, submissionID string) error
}

// AccountRepository defines the interface for credit account data access
type AccountRepository interface {
	// GetByUserID retrieves an account by owner, or nil when absent
	GetByUserID(ctx context.Context, userID int64) (*models.CreditAccount, error)

	// Create creates an account with the given starting balance
	Create(ctx context.Context, userID int64, initialBalance int64) (*models.CreditAccount, error)

	// Reserve atomically moves amount from available to reserved, failing if
	// the available balance is insufficient
	Reserve(ctx context.Context, accountID int64, amount int64) error

	// ReleaseReserved atomically moves amount from reserved back to available
	ReleaseReserved(ctx context.Context, accountID int64, amount int64) error

	// SettleReserved atomically removes reservedAmount from reserved and adds
	// creditAmount to available in a single statement
	SettleReserved(ctx context.Context, accountID int64, reservedAmount, creditAmount int64) error
}

// HoldRepository defines the interface for credit hold data access
type HoldRepository interface {
	// Create inserts a new active hold
	Create(ctx context.Context, hold *models.CreditHold) error

	// GetByID retrieves a hold by its ID, or nil when absent
	GetByID(ctx context.Context, id int64) (*models.CreditHold, error)

	// GetActiveByMatch returns all active holds on a match
	GetActiveByMatch(ctx context.Context, matchID int64) ([]*models.CreditHold, error)

	// MarkReleased flips an active hold to released; returns false when the
	// hold was not active
	MarkReleased(ctx context.Context, id int64) (bool, error)

	// MarkSettled flips an active hold to settled recording the net credited
	// amount; returns false when the hold was not active
	MarkSettled(ctx context.Context, id int64, amountSettled int64) (bool, error)
}

// RankingRepository defines the interface for ranking data access
type RankingRepository interface {
	// GetOrCreate returns the (user, season) ranking row, creating it at the
	// rating defaults on first access
	GetOrCreate(ctx context.Context, userID, seasonID int64) (*models.Ranking, error)

	// Update persists a recomputed ranking
	Update(ctx context.Context, ranking *models.Ranking) error

	// GetStale returns rankings in a season not updated since the cutoff
	GetStale(ctx context.Context, seasonID int64, cutoff time.Time) ([]*models.Ranking, error)
}

// SeasonRepository defines the interface for season data access
type SeasonRepository interface {
	// GetCurrent returns the season containing the given instant, or nil
	GetCurrent(ctx context.Context, at time.Time) (*models.Season, error)

	// Create inserts a new season
	Create(ctx context.Context, season *models.Season) error
}

// TimerJobRepository defines the interface for durable timer job data access
type TimerJobRepository interface {
	// Create inserts a pending job; the unique pending index rejects a second
	// unfired job for the same (match, target status)
	Create(ctx context.Context, job *models.TimerJob) error

	// GetByID retrieves a job, or nil when absent
	GetByID(ctx context.Context, id uuid.UUID) (*models.TimerJob, error)

	// GetPending returns all unfired jobs ordered by deadline
	GetPending(ctx context.Context) ([]*models.TimerJob, error)

	// GetPendingByMatch returns a match's unfired jobs ordered by deadline
	GetPendingByMatch(ctx context.Context, matchID int64) ([]*models.TimerJob, error)

	// MarkFired stamps fired_at; returns false if the job already fired
	MarkFired(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)

	// Delete removes a pending job; returns false if it was absent or fired
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

// TransitionContext carries the actor and reason of a requested transition
type TransitionContext struct {
	UserID *int64
	Reason string
}

// TransitionResult is the structured outcome of a state machine operation.
// Failed validations come back with Success=false and a display-ready
// reason; they are never raised as errors.
type TransitionResult struct {
	Success        bool
	MatchID        int64
	PreviousStatus models.MatchStatus
	NewStatus      models.MatchStatus
	ErrorCode      ErrorCode
	Reason         string
}

// TimerInfo is the clock portion of a match state projection
type TimerInfo struct {
	StartAt     *time.Time
	EndAt       *time.Time
	LockAt      *time.Time
	RemainingMs int64
}

// MatchState is the read-only projection served to live-update transports
type MatchState struct {
	Match        *models.Match
	Participants []*models.MatchParticipant
	Timer        TimerInfo
}

// CreateMatchParams carries the configuration of a new match
type CreateMatchParams struct {
	CreatorID       int64
	Mode            models.MatchMode
	ChallengeID     string
	StakeAmount     int64
	DurationMinutes int
}

// MatchService owns the canonical match status and drives the ledger and
// rating engine from its transitions.
type MatchService interface {
	// CreateMatch creates a match with its creator participant (seat A) and,
	// for a staked match, the creator's hold
	CreateMatch(ctx context.Context, params CreateMatchParams) (*models.Match, error)

	// Transition applies a direct status transition on behalf of the actor
	Transition(ctx context.Context, matchID int64, to models.MatchStatus, tc TransitionContext) *TransitionResult

	// Forfeit concedes the match for the calling participant; the opponent is
	// the implied winner
	Forfeit(ctx context.Context, matchID, userID int64) *TransitionResult

	// Cancel archives a not-yet-matched match and releases all active holds;
	// creator only
	Cancel(ctx context.Context, matchID, userID int64) *TransitionResult

	// HandleTimerExpiration applies the timer edge for the match's current
	// status; no edge means a reported InvalidTransition
	HandleTimerExpiration(ctx context.Context, matchID int64) *TransitionResult

	// HandleParticipantJoin seats a user; a second join auto-transitions
	// open->matched. Returns the implicit transition result, or nil when no
	// transition fired.
	HandleParticipantJoin(ctx context.Context, matchID, userID int64, seat models.Seat) (*TransitionResult, error)

	// HandleParticipantReady marks a participant ready; the second ready
	// auto-transitions matched->in_progress and schedules the lock timer.
	// Returns the implicit transition result, or nil when no transition fired.
	HandleParticipantReady(ctx context.Context, matchID, userID int64) (*TransitionResult, error)

	// RecordSubmission stores the external submission id on the participant
	RecordSubmission(ctx context.Context, matchID, userID int64, submissionID string) error

	// FinalizeMatch completes judging: transitions to finalized, settles all
	// holds in the same transaction, then attempts the rating update
	FinalizeMatch(ctx context.Context, matchID int64, winnerID *int64, isDraw bool) *TransitionResult

	// GetMatchState returns the read-only projection of a match
	GetMatchState(ctx context.Context, matchID int64) (*MatchState, error)
}

// LedgerService manages credit accounts and the holds staked on matches
type LedgerService interface {
	// GetOrCreateAccount retrieves a user's account, creating it with the
	// configured starting balance when absent
	GetOrCreateAccount(ctx context.Context, userID int64) (*models.CreditAccount, error)

	// PlaceHold reserves amount of the user's available balance against a match
	PlaceHold(ctx context.Context, userID, matchID int64, amount int64) (*models.CreditHold, error)

	// ReleaseHold restores a hold's reserved amount to the available balance
	ReleaseHold(ctx context.Context, holdID int64) error

	// SettleMatch converts all active holds on the match into final balance
	// changes; idempotent, a match without active holds is a no-op success
	SettleMatch(ctx context.Context, matchID int64, winnerID *int64, isDraw bool) (*models.SettlementOutcome, error)
}

// RatingService recomputes Glicko-2 rankings after finalized matches and
// runs the periodic inactivity decay.
type RatingService interface {
	// ApplyMatchResult updates both participants' rankings from pre-match
	// snapshots of each other
	ApplyMatchResult(ctx context.Context, matchID int64, winnerID *int64, isDraw bool) error

	// SweepInactive inflates the deviation of rankings idle for at least one
	// rating period; returns the number of rankings touched
	SweepInactive(ctx context.Context) (int, error)

	// CurrentSeason returns the current season, creating one when none covers
	// the present time
	CurrentSeason(ctx context.Context) (*models.Season, error)

	// StakeCapFor returns the maximum stake the user's current rating and
	// deviation permit
	StakeCapFor(ctx context.Context, userID int64) (int64, error)
}

// TimerCoordinator schedules delayed match transitions. It holds no match
// state; firings call back into the state machine's timer-expiration entry
// point and are validated there like any other transition.
type TimerCoordinator interface {
	// Schedule arms a firing at fireAt driving the match toward toStatus. A
	// deadline already in the past fires synchronously; the returned handle
	// then identifies an already-completed job.
	Schedule(ctx context.Context, matchID int64, fireAt time.Time, toStatus models.MatchStatus) (uuid.UUID, error)

	// Cancel removes a still-pending firing
	Cancel(ctx context.Context, handle uuid.UUID) error

	// RecoverPending re-arms unfired jobs at startup, firing immediately any
	// whose deadline has already passed
	RecoverPending(ctx context.Context) error
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and flushes staged events
	Commit() error

	// Rollback rolls back the transaction and discards staged events
	Rollback() error

	// Repository getters
	MatchRepository() MatchRepository
	ParticipantRepository() ParticipantRepository
	AccountRepository() AccountRepository
	HoldRepository() HoldRepository
	RankingRepository() RankingRepository
	SeasonRepository() SeasonRepository
	TimerJobRepository() TimerJobRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
