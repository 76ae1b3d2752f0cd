package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"codeclash/models"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// TimerExpirationHandler is the state machine entry point a timer firing
// calls into. Firings carry no target status of their own; the handler
// derives the edge from the match's current status and rejects stale
// firings like any other invalid transition.
type TimerExpirationHandler interface {
	HandleTimerExpiration(ctx context.Context, matchID int64) *TransitionResult
}

// MatchTimerCoordinator schedules delayed match transitions. Every firing is
// backed by a timer_jobs row, so scheduled work survives a restart: the
// in-process jobs are re-armed from the table by RecoverPending.
type MatchTimerCoordinator struct {
	uowFactory UnitOfWorkFactory
	scheduler  gocron.Scheduler
	handler    TimerExpirationHandler

	mu   sync.Mutex
	jobs map[uuid.UUID]gocron.Job
}

// NewTimerCoordinator creates the timer coordinator. The expiration handler
// is injected separately because the match service and the coordinator
// reference each other.
func NewTimerCoordinator(uowFactory UnitOfWorkFactory) (*MatchTimerCoordinator, error) {
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &MatchTimerCoordinator{
		uowFactory: uowFactory,
		scheduler:  scheduler,
		jobs:       make(map[uuid.UUID]gocron.Job),
	}, nil
}

// SetHandler wires the state machine entry point; must be called before
// Start or Schedule.
func (c *MatchTimerCoordinator) SetHandler(handler TimerExpirationHandler) {
	c.handler = handler
}

// Start begins processing armed jobs
func (c *MatchTimerCoordinator) Start() {
	c.scheduler.Start()
}

// Shutdown stops the scheduler; durable jobs stay pending for the next start
func (c *MatchTimerCoordinator) Shutdown() error {
	return c.scheduler.Shutdown()
}

// Schedule arms a firing at fireAt driving the match toward toStatus. The
// job row is written first so the firing survives a crash between here and
// the in-process timer. A deadline already in the past fires synchronously.
func (c *MatchTimerCoordinator) Schedule(ctx context.Context, matchID int64, fireAt time.Time, toStatus models.MatchStatus) (uuid.UUID, error) {
	job := &models.TimerJob{
		ID:       uuid.New(),
		MatchID:  matchID,
		ToStatus: toStatus,
		FireAt:   fireAt,
	}

	uow := c.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.TimerJobRepository().Create(ctx, job); err != nil {
		return uuid.Nil, err
	}

	if err := uow.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if job.IsDue(time.Now().UTC()) {
		c.fire(ctx, job.ID, job.MatchID)
		return job.ID, nil
	}

	if err := c.arm(job); err != nil {
		return uuid.Nil, err
	}

	log.WithFields(log.Fields{
		"jobId":    job.ID,
		"matchId":  matchID,
		"toStatus": toStatus,
		"fireAt":   fireAt,
	}).Debug("Timer scheduled")

	return job.ID, nil
}

// Cancel removes a still-pending firing. Cancelling a job that already
// fired is a no-op.
func (c *MatchTimerCoordinator) Cancel(ctx context.Context, handle uuid.UUID) error {
	uow := c.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	deleted, err := uow.TimerJobRepository().Delete(ctx, handle)
	if err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	c.disarm(handle)

	if deleted {
		log.WithFields(log.Fields{"jobId": handle}).Debug("Timer cancelled")
	}

	return nil
}

// RecoverPending re-arms unfired jobs at startup. Jobs whose deadline passed
// while the process was down fire immediately; the state machine decides
// whether each late firing is still meaningful.
func (c *MatchTimerCoordinator) RecoverPending(ctx context.Context) error {
	uow := c.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	pending, err := uow.TimerJobRepository().GetPending(ctx)
	if err != nil {
		return err
	}
	uow.Rollback()

	now := time.Now().UTC()
	recovered, fired := 0, 0
	for _, job := range pending {
		if job.IsDue(now) {
			c.fire(ctx, job.ID, job.MatchID)
			fired++
			continue
		}
		if err := c.arm(job); err != nil {
			return err
		}
		recovered++
	}

	log.WithFields(log.Fields{
		"rearmed":   recovered,
		"firedLate": fired,
	}).Info("Recovered pending timers")

	return nil
}

// arm registers the in-process one-time job for a pending row
func (c *MatchTimerCoordinator) arm(job *models.TimerJob) error {
	jobID, matchID := job.ID, job.MatchID

	scheduled, err := c.scheduler.NewJob(
		gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(job.FireAt)),
		gocron.NewTask(func() {
			c.fire(context.Background(), jobID, matchID)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to arm timer job %s: %w", job.ID, err)
	}

	c.mu.Lock()
	c.jobs[job.ID] = scheduled
	c.mu.Unlock()

	return nil
}

// disarm drops the in-process job for a handle, if any
func (c *MatchTimerCoordinator) disarm(handle uuid.UUID) {
	c.mu.Lock()
	scheduled, ok := c.jobs[handle]
	if ok {
		delete(c.jobs, handle)
	}
	c.mu.Unlock()

	if ok {
		if err := c.scheduler.RemoveJob(scheduled.ID()); err != nil {
			log.WithFields(log.Fields{
				"jobId": handle,
				"error": err,
			}).Debug("In-process timer already gone")
		}
	}
}

// fire drives the state machine and only then spends the job row. A crash
// before the stamp leaves the row pending, so RecoverPending refires it; the
// duplicate is harmless because the state machine's optimistic status check
// rejects it. A firing rejected as an invalid transition is terminal: the
// match moved on and the job is spent.
func (c *MatchTimerCoordinator) fire(ctx context.Context, jobID uuid.UUID, matchID int64) {
	c.disarm(jobID)

	uow := c.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		log.WithFields(log.Fields{"jobId": jobID, "error": err}).Error("Failed to fire timer")
		return
	}
	job, err := uow.TimerJobRepository().GetByID(ctx, jobID)
	uow.Rollback()
	if err != nil {
		log.WithFields(log.Fields{"jobId": jobID, "error": err}).Error("Failed to fire timer")
		return
	}
	if job == nil || job.FiredAt != nil {
		// Cancelled or already fired
		return
	}

	result := c.handler.HandleTimerExpiration(ctx, matchID)
	if !result.Success && result.ErrorCode == "" {
		// Infrastructure failure: the transition may not be durable, so the
		// job stays pending and recovery retries it
		log.WithFields(log.Fields{
			"jobId":   jobID,
			"matchId": matchID,
			"reason":  result.Reason,
		}).Error("Timer firing failed; job left pending")
		return
	}

	uow = c.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		log.WithFields(log.Fields{"jobId": jobID, "error": err}).Error("Failed to spend timer job")
		return
	}
	defer uow.Rollback()
	if _, err := uow.TimerJobRepository().MarkFired(ctx, jobID, time.Now().UTC()); err != nil {
		log.WithFields(log.Fields{"jobId": jobID, "error": err}).Error("Failed to spend timer job")
		return
	}
	if err := uow.Commit(); err != nil {
		log.WithFields(log.Fields{"jobId": jobID, "error": err}).Error("Failed to spend timer job")
		return
	}

	if !result.Success {
		log.WithFields(log.Fields{
			"jobId":   jobID,
			"matchId": matchID,
			"code":    result.ErrorCode,
			"reason":  result.Reason,
		}).Info("Timer firing did not apply")
		return
	}

	log.WithFields(log.Fields{
		"jobId":     jobID,
		"matchId":   matchID,
		"newStatus": result.NewStatus,
	}).Info("Timer fired")
}
