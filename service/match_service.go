package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"codeclash/config"
	"codeclash/events"
	"codeclash/models"

	log "github.com/sirupsen/logrus"
)

// judgingGracePeriod is the window between submission lock and the start of
// judging, left open so in-flight submissions can drain.
const judgingGracePeriod = time.Minute

// matchLocks serializes operations per match so two concurrent requests on
// the same match cannot interleave. Operations on different matches proceed
// independently. Entries are refcounted and evicted once the last holder
// releases, so the map does not grow with every match ever touched.
type matchLocks struct {
	mu    sync.Mutex
	locks map[int64]*matchLock
}

type matchLock struct {
	sync.Mutex
	refs int
}

func (l *matchLocks) lock(matchID int64) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[int64]*matchLock)
	}
	m, ok := l.locks[matchID]
	if !ok {
		m = &matchLock{}
		l.locks[matchID] = m
	}
	m.refs++
	l.mu.Unlock()

	m.Lock()
}

func (l *matchLocks) unlock(matchID int64) {
	l.mu.Lock()
	m := l.locks[matchID]
	m.refs--
	if m.refs == 0 {
		delete(l.locks, matchID)
	}
	l.mu.Unlock()

	m.Unlock()
}

type matchService struct {
	uowFactory UnitOfWorkFactory
	config     *config.Config
	ratings    RatingService
	timers     TimerCoordinator
	locks      matchLocks
}

// NewMatchService creates the match lifecycle service
func NewMatchService(uowFactory UnitOfWorkFactory, cfg *config.Config, ratings RatingService, timers TimerCoordinator) MatchService {
	return &matchService{
		uowFactory: uowFactory,
		config:     cfg,
		ratings:    ratings,
		timers:     timers,
	}
}

func transitionSuccess(matchID int64, from, to models.MatchStatus) *TransitionResult {
	return &TransitionResult{
		Success:        true,
		MatchID:        matchID,
		PreviousStatus: from,
		NewStatus:      to,
	}
}

func transitionFailure(matchID int64, from models.MatchStatus, code ErrorCode, format string, args ...interface{}) *TransitionResult {
	return &TransitionResult{
		MatchID:        matchID,
		PreviousStatus: from,
		ErrorCode:      code,
		Reason:         fmt.Sprintf(format, args...),
	}
}

func internalFailure(matchID int64, from models.MatchStatus, err error) *TransitionResult {
	log.WithFields(log.Fields{
		"matchId": matchID,
		"error":   err,
	}).Error("Match operation failed")
	return &TransitionResult{
		MatchID:        matchID,
		PreviousStatus: from,
		Reason:         "internal error",
	}
}

// CreateMatch creates a match with its creator participant (seat A) and, for
// a staked match, the creator's hold.
func (s *matchService) CreateMatch(ctx context.Context, params CreateMatchParams) (*models.Match, error) {
	if params.ChallengeID == "" {
		return nil, fmt.Errorf("challenge id is required")
	}
	if params.StakeAmount < 0 {
		return nil, fmt.Errorf("stake amount cannot be negative")
	}
	if params.DurationMinutes <= 0 {
		params.DurationMinutes = s.config.DefaultMatchDurationMinutes
	}
	if params.Mode == "" {
		params.Mode = models.MatchModeRanked
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	match := &models.Match{
		Status:          models.MatchStatusCreated,
		Mode:            params.Mode,
		CreatorID:       params.CreatorID,
		ChallengeID:     params.ChallengeID,
		StakeAmount:     params.StakeAmount,
		DurationMinutes: params.DurationMinutes,
		ConfigHash:      models.ComputeConfigHash(params.ChallengeID, params.StakeAmount, params.DurationMinutes),
		DisputeStatus:   models.DisputeStatusNone,
	}
	if err := uow.MatchRepository().Create(ctx, match); err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}

	participant := &models.MatchParticipant{
		MatchID: match.ID,
		UserID:  params.CreatorID,
		Seat:    models.SeatA,
	}
	if err := uow.ParticipantRepository().Create(ctx, participant); err != nil {
		return nil, fmt.Errorf("failed to seat creator: %w", err)
	}

	if match.StakeAmount > 0 {
		if _, err := placeHold(ctx, uow, params.CreatorID, match.ID, match.StakeAmount, s.config.StartingBalance); err != nil {
			return nil, err
		}
	}

	uow.EventBus().Publish(events.ParticipantJoinedEvent{
		MatchID: match.ID,
		UserID:  params.CreatorID,
		Seat:    models.SeatA,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"matchId":     match.ID,
		"creatorId":   params.CreatorID,
		"challengeId": params.ChallengeID,
		"stake":       params.StakeAmount,
	}).Info("Match created")

	return match, nil
}

// Transition applies a direct status transition on behalf of the actor
func (s *matchService) Transition(ctx context.Context, matchID int64, to models.MatchStatus, tc TransitionContext) *TransitionResult {
	s.locks.lock(matchID)
	defer s.locks.unlock(matchID)

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return internalFailure(matchID, "", err)
	}
	defer uow.Rollback()

	match, err := uow.MatchRepository().GetByID(ctx, matchID)
	if err != nil {
		return internalFailure(matchID, "", err)
	}
	if match == nil {
		return transitionFailure(matchID, "", ErrorCodeNotFound, "match %d not found", matchID)
	}

	if !models.IsKnownStatus(to) {
		return transitionFailure(matchID, match.Status, ErrorCodeInvalidTransition, "unknown status %q", to)
	}

	result := s.applyTransition(ctx, uow, match, to, tc)
	if !result.Success {
		return result
	}

	if err := uow.Commit(); err != nil {
		return internalFailure(matchID, match.Status, err)
	}

	s.afterTransition(ctx, match, to)

	return result
}

// applyTransition validates and persists a status change inside the caller's
// transaction and stages the transition event. The caller holds the match
// lock and commits.
func (s *matchService) applyTransition(ctx context.Context, uow UnitOfWork, match *models.Match, to models.MatchStatus, tc TransitionContext) *TransitionResult {
	from := match.Status

	if !models.IsValidTransition(from, to) {
		return transitionFailure(match.ID, from, ErrorCodeInvalidTransition,
			"cannot transition match from %q to %q", from, to)
	}

	var applied bool
	var err error
	if to == models.MatchStatusInProgress {
		// Entering play pins the clock: endAt and lockAt are derived from
		// startAt exactly once.
		startAt := time.Now().UTC()
		endAt := startAt.Add(match.Duration())
		applied, err = uow.MatchRepository().UpdateStatusWithSchedule(ctx, match.ID, from, to, startAt, endAt, endAt)
		if applied {
			match.StartAt = &startAt
			match.EndAt = &endAt
			match.LockAt = &endAt
		}
	} else {
		applied, err = uow.MatchRepository().UpdateStatus(ctx, match.ID, from, to)
	}
	if err != nil {
		return internalFailure(match.ID, from, err)
	}
	if !applied {
		return transitionFailure(match.ID, from, ErrorCodeConflict,
			"match %d is no longer %q", match.ID, from)
	}

	match.Status = to

	uow.EventBus().Publish(events.MatchTransitionedEvent{
		MatchID:        match.ID,
		PreviousStatus: from,
		NewStatus:      to,
		ActorUserID:    tc.UserID,
		Reason:         tc.Reason,
		Timestamp:      time.Now().UTC(),
	})

	return transitionSuccess(match.ID, from, to)
}

// afterTransition runs the post-commit side effects of a status change:
// arming the lock timer when play starts and clearing pending timers when
// the match reaches a terminal state.
func (s *matchService) afterTransition(ctx context.Context, match *models.Match, to models.MatchStatus) {
	switch to {
	case models.MatchStatusInProgress:
		if match.EndAt == nil {
			return
		}
		if _, err := s.timers.Schedule(ctx, match.ID, *match.EndAt, models.MatchStatusSubmissionLocked); err != nil {
			log.WithFields(log.Fields{
				"matchId": match.ID,
				"error":   err,
			}).Error("Failed to schedule submission lock timer")
		}
	case models.MatchStatusFinalized, models.MatchStatusArchived:
		s.cancelPendingTimers(ctx, match.ID)
	}
}

// cancelPendingTimers removes any unfired timer jobs for a match that has
// reached a terminal state.
func (s *matchService) cancelPendingTimers(ctx context.Context, matchID int64) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		log.WithFields(log.Fields{"matchId": matchID, "error": err}).Error("Failed to look up pending timers")
		return
	}
	defer uow.Rollback()

	jobs, err := uow.TimerJobRepository().GetPendingByMatch(ctx, matchID)
	if err != nil {
		log.WithFields(log.Fields{"matchId": matchID, "error": err}).Error("Failed to look up pending timers")
		return
	}
	uow.Rollback()

	for _, job := range jobs {
		if err := s.timers.Cancel(ctx, job.ID); err != nil {
			log.WithFields(log.Fields{
				"matchId": matchID,
				"jobId":   job.ID,
				"error":   err,
			}).Warn("Failed to cancel pending timer")
		}
	}
}

// Forfeit concedes the match for the calling participant. The opponent wins
// and settlement happens in the same transaction as the status change.
func (s *matchService) Forfeit(ctx context.Context, matchID, userID int64) *TransitionResult {
	s.locks.lock(matchID)
	defer s.locks.unlock(matchID)

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return internalFailure(matchID, "", err)
	}
	defer uow.Rollback()

	match, err := uow.MatchRepository().GetByID(ctx, matchID)
	if err != nil {
		return internalFailure(matchID, "", err)
	}
	if match == nil {
		return transitionFailure(matchID, "", ErrorCodeNotFound, "match %d not found", matchID)
	}

	if !match.CanBeForfeited() {
		return transitionFailure(matchID, match.Status, ErrorCodeInvalidTransition,
			"cannot forfeit match in %q state", match.Status)
	}

	participants, err := uow.ParticipantRepository().GetByMatch(ctx, matchID)
	if err != nil {
		return internalFailure(matchID, match.Status, err)
	}

	participant := models.ParticipantFor(participants, userID)
	if participant == nil {
		return transitionFailure(matchID, match.Status, ErrorCodeForbidden,
			"user %d is not a participant of match %d", userID, matchID)
	}
	if participant.HasForfeited() {
		return transitionFailure(matchID, match.Status, ErrorCodeConflict,
			"user %d has already forfeited match %d", userID, matchID)
	}

	opponent := models.OpponentOf(participants, userID)
	if opponent == nil {
		return transitionFailure(matchID, match.Status, ErrorCodeConflict,
			"match %d has no opponent to award", matchID)
	}

	marked, err := uow.ParticipantRepository().SetForfeit(ctx, participant.ID, time.Now().UTC())
	if err != nil {
		return internalFailure(matchID, match.Status, err)
	}
	if !marked {
		return transitionFailure(matchID, match.Status, ErrorCodeConflict,
			"user %d has already forfeited match %d", userID, matchID)
	}

	result := s.applyTransition(ctx, uow, match, models.MatchStatusFinalized, TransitionContext{
		UserID: &userID,
		Reason: "forfeit",
	})
	if !result.Success {
		return result
	}

	if _, err := settleHoldsForMatch(ctx, uow, matchID, &opponent.UserID, false, s.config.PlatformFeeBps); err != nil {
		return internalFailure(matchID, match.Status, err)
	}

	uow.EventBus().Publish(events.MatchForfeitedEvent{
		MatchID:          matchID,
		ForfeitingUserID: userID,
		WinnerUserID:     opponent.UserID,
	})

	if err := uow.Commit(); err != nil {
		return internalFailure(matchID, match.Status, err)
	}

	s.cancelPendingTimers(ctx, matchID)
	s.applyRatings(ctx, match, &opponent.UserID, false)

	log.WithFields(log.Fields{
		"matchId":  matchID,
		"userId":   userID,
		"winnerId": opponent.UserID,
	}).Info("Match forfeited")

	return result
}

// Cancel archives a not-yet-matched match and releases all active holds.
// Only the creator may cancel.
func (s *matchService) Cancel(ctx context.Context, matchID, userID int64) *TransitionResult {
	s.locks.lock(matchID)
	defer s.locks.unlock(matchID)

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return internalFailure(matchID, "", err)
	}
	defer uow.Rollback()

	match, err := uow.MatchRepository().GetByID(ctx, matchID)
	if err != nil {
		return internalFailure(matchID, "", err)
	}
	if match == nil {
		return transitionFailure(matchID, "", ErrorCodeNotFound, "match %d not found", matchID)
	}

	if match.CreatorID != userID {
		return transitionFailure(matchID, match.Status, ErrorCodeForbidden,
			"only the creator can cancel match %d", matchID)
	}
	if !match.CanBeCancelled() {
		return transitionFailure(matchID, match.Status, ErrorCodeInvalidTransition,
			"cannot cancel match in %q state", match.Status)
	}

	released, err := releaseHoldsForMatch(ctx, uow, matchID)
	if err != nil {
		return internalFailure(matchID, match.Status, err)
	}

	result := s.applyTransition(ctx, uow, match, models.MatchStatusArchived, TransitionContext{
		UserID: &userID,
		Reason: "cancelled",
	})
	if !result.Success {
		return result
	}

	uow.EventBus().Publish(events.MatchCancelledEvent{
		MatchID:       matchID,
		CreatorUserID: userID,
		HoldsReleased: released,
	})

	if err := uow.Commit(); err != nil {
		return internalFailure(matchID, match.Status, err)
	}

	log.WithFields(log.Fields{
		"matchId":       matchID,
		"holdsReleased": released,
	}).Info("Match cancelled")

	return result
}

// HandleTimerExpiration applies the timer edge for the match's current
// status. A firing that arrives after the match moved on is reported as an
// invalid transition and never retried.
func (s *matchService) HandleTimerExpiration(ctx context.Context, matchID int64) *TransitionResult {
	s.locks.lock(matchID)
	defer s.locks.unlock(matchID)

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return internalFailure(matchID, "", err)
	}
	defer uow.Rollback()

	match, err := uow.MatchRepository().GetByID(ctx, matchID)
	if err != nil {
		return internalFailure(matchID, "", err)
	}
	if match == nil {
		return transitionFailure(matchID, "", ErrorCodeNotFound, "match %d not found", matchID)
	}

	target, ok := models.TimerTargetFor(match.Status)
	if !ok {
		return transitionFailure(matchID, match.Status, ErrorCodeInvalidTransition,
			"no timer transition from %q", match.Status)
	}

	result := s.applyTransition(ctx, uow, match, target, TransitionContext{Reason: "timer expired"})
	if !result.Success {
		return result
	}

	if err := uow.Commit(); err != nil {
		return internalFailure(matchID, match.Status, err)
	}

	if target == models.MatchStatusSubmissionLocked {
		fireAt := time.Now().UTC().Add(judgingGracePeriod)
		if _, err := s.timers.Schedule(ctx, matchID, fireAt, models.MatchStatusJudging); err != nil {
			log.WithFields(log.Fields{
				"matchId": matchID,
				"error":   err,
			}).Error("Failed to schedule judging timer")
		}
	}

	return result
}

// HandleParticipantJoin seats a user in an open match. The second join
// auto-transitions the match open -> matched.
func (s *matchService) HandleParticipantJoin(ctx context.Context, matchID, userID int64, seat models.Seat) (*TransitionResult, error) {
	s.locks.lock(matchID)
	defer s.locks.unlock(matchID)

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	match, err := uow.MatchRepository().GetByID(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	if match == nil {
		return nil, NewNotFound("match %d not found", matchID)
	}
	if match.Status != models.MatchStatusOpen {
		return nil, NewConflict("match %d is not open for joining", matchID)
	}

	participants, err := uow.ParticipantRepository().GetByMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	if models.ParticipantFor(participants, userID) != nil {
		return nil, NewConflict("user %d already joined match %d", userID, matchID)
	}
	if len(participants) >= 2 {
		return nil, NewConflict("match %d is full", matchID)
	}

	if seat == "" {
		seat = models.SeatB
		if len(participants) == 0 || participants[0].Seat == models.SeatB {
			seat = models.SeatA
		}
	}
	for _, p := range participants {
		if p.Seat == seat {
			return nil, NewConflict("seat %s of match %d is taken", seat, matchID)
		}
	}

	participant := &models.MatchParticipant{
		MatchID: matchID,
		UserID:  userID,
		Seat:    seat,
	}
	if err := uow.ParticipantRepository().Create(ctx, participant); err != nil {
		return nil, fmt.Errorf("failed to seat participant: %w", err)
	}

	if match.StakeAmount > 0 {
		if _, err := placeHold(ctx, uow, userID, matchID, match.StakeAmount, s.config.StartingBalance); err != nil {
			return nil, err
		}
	}

	uow.EventBus().Publish(events.ParticipantJoinedEvent{
		MatchID: matchID,
		UserID:  userID,
		Seat:    seat,
	})

	var result *TransitionResult
	if len(participants)+1 == 2 {
		result = s.applyTransition(ctx, uow, match, models.MatchStatusMatched, TransitionContext{
			UserID: &userID,
			Reason: "both seats filled",
		})
		if !result.Success {
			return nil, NewConflict("%s", result.Reason)
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"matchId": matchID,
		"userId":  userID,
		"seat":    seat,
	}).Info("Participant joined match")

	return result, nil
}

// HandleParticipantReady marks a participant ready. When both sides are
// ready the match auto-transitions matched -> in_progress, its clock is
// pinned and the submission lock timer is armed.
func (s *matchService) HandleParticipantReady(ctx context.Context, matchID, userID int64) (*TransitionResult, error) {
	s.locks.lock(matchID)
	defer s.locks.unlock(matchID)

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	match, err := uow.MatchRepository().GetByID(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	if match == nil {
		return nil, NewNotFound("match %d not found", matchID)
	}
	if match.Status != models.MatchStatusMatched {
		return nil, NewInvalidTransition("cannot ready up while match %d is %q", matchID, match.Status)
	}

	participants, err := uow.ParticipantRepository().GetByMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}

	participant := models.ParticipantFor(participants, userID)
	if participant == nil {
		return nil, NewForbidden("user %d is not a participant of match %d", userID, matchID)
	}

	marked, err := uow.ParticipantRepository().SetReady(ctx, participant.ID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to mark ready: %w", err)
	}
	if !marked {
		return nil, NewConflict("user %d is already ready in match %d", userID, matchID)
	}

	uow.EventBus().Publish(events.ParticipantReadyEvent{
		MatchID: matchID,
		UserID:  userID,
	})

	var result *TransitionResult
	opponent := models.OpponentOf(participants, userID)
	if opponent != nil && opponent.IsReady() {
		result = s.applyTransition(ctx, uow, match, models.MatchStatusInProgress, TransitionContext{
			UserID: &userID,
			Reason: "both participants ready",
		})
		if !result.Success {
			return nil, NewConflict("%s", result.Reason)
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if result != nil {
		s.afterTransition(ctx, match, models.MatchStatusInProgress)
	}

	return result, nil
}

// RecordSubmission stores the external submission id on the participant.
// Submissions are only accepted while the match is in progress.
func (s *matchService) RecordSubmission(ctx context.Context, matchID, userID int64, submissionID string) error {
	if submissionID == "" {
		return fmt.Errorf("submission id is required")
	}

	s.locks.lock(matchID)
	defer s.locks.unlock(matchID)

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	match, err := uow.MatchRepository().GetByID(ctx, matchID)
	if err != nil {
		return fmt.Errorf("failed to get match: %w", err)
	}
	if match == nil {
		return NewNotFound("match %d not found", matchID)
	}
	if !match.AcceptsSubmissions() {
		return NewConflict("match %d no longer accepts submissions", matchID)
	}

	participant, err := uow.ParticipantRepository().GetByMatchAndUser(ctx, matchID, userID)
	if err != nil {
		return fmt.Errorf("failed to get participant: %w", err)
	}
	if participant == nil {
		return NewForbidden("user %d is not a participant of match %d", userID, matchID)
	}

	if err := uow.ParticipantRepository().SetSubmission(ctx, participant.ID, submissionID); err != nil {
		return fmt.Errorf("failed to record submission: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// FinalizeMatch completes judging: the status moves to finalized and all
// holds settle in the same transaction. The rating update runs after the
// commit; its failure never unwinds the settlement.
func (s *matchService) FinalizeMatch(ctx context.Context, matchID int64, winnerID *int64, isDraw bool) *TransitionResult {
	s.locks.lock(matchID)
	defer s.locks.unlock(matchID)

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return internalFailure(matchID, "", err)
	}
	defer uow.Rollback()

	match, err := uow.MatchRepository().GetByID(ctx, matchID)
	if err != nil {
		return internalFailure(matchID, "", err)
	}
	if match == nil {
		return transitionFailure(matchID, "", ErrorCodeNotFound, "match %d not found", matchID)
	}

	if !isDraw {
		if winnerID == nil {
			return transitionFailure(matchID, match.Status, ErrorCodeConflict,
				"a decisive result requires a winner")
		}
		participant, err := uow.ParticipantRepository().GetByMatchAndUser(ctx, matchID, *winnerID)
		if err != nil {
			return internalFailure(matchID, match.Status, err)
		}
		if participant == nil {
			return transitionFailure(matchID, match.Status, ErrorCodeConflict,
				"winner %d is not a participant of match %d", *winnerID, matchID)
		}
	}

	result := s.applyTransition(ctx, uow, match, models.MatchStatusFinalized, TransitionContext{
		Reason: "judging complete",
	})
	if !result.Success {
		return result
	}

	if _, err := settleHoldsForMatch(ctx, uow, matchID, winnerID, isDraw, s.config.PlatformFeeBps); err != nil {
		return internalFailure(matchID, match.Status, err)
	}

	if err := uow.Commit(); err != nil {
		return internalFailure(matchID, match.Status, err)
	}

	s.cancelPendingTimers(ctx, matchID)
	s.applyRatings(ctx, match, winnerID, isDraw)

	log.WithFields(log.Fields{
		"matchId": matchID,
		"isDraw":  isDraw,
	}).Info("Match finalized")

	return result
}

// applyRatings runs the post-settlement rating update for ranked matches.
// Failures are logged and surfaced through the event bus only; the match
// stays finalized.
func (s *matchService) applyRatings(ctx context.Context, match *models.Match, winnerID *int64, isDraw bool) {
	if match.Mode != models.MatchModeRanked {
		return
	}
	if err := s.ratings.ApplyMatchResult(ctx, match.ID, winnerID, isDraw); err != nil {
		log.WithFields(log.Fields{
			"matchId": match.ID,
			"error":   err,
		}).Error("Rating update failed after settlement")
	}
}

// GetMatchState returns the read-only projection of a match
func (s *matchService) GetMatchState(ctx context.Context, matchID int64) (*MatchState, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	match, err := uow.MatchRepository().GetByID(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	if match == nil {
		return nil, NewNotFound("match %d not found", matchID)
	}

	participants, err := uow.ParticipantRepository().GetByMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	timer := TimerInfo{
		StartAt: match.StartAt,
		EndAt:   match.EndAt,
		LockAt:  match.LockAt,
	}
	if match.Status == models.MatchStatusInProgress && match.EndAt != nil {
		if remaining := time.Until(*match.EndAt); remaining > 0 {
			timer.RemainingMs = remaining.Milliseconds()
		}
	}

	return &MatchState{
		Match:        match,
		Participants: participants,
		Timer:        timer,
	}, nil
}
