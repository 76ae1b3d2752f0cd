package repository

import (
	"context"
	"fmt"

	"codeclash/database"
	"codeclash/events"
	"codeclash/service"
	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db               *database.DB
	tx               pgx.Tx
	ctx              context.Context
	transactionalBus *events.TransactionalBus
	matchRepo        service.MatchRepository
	participantRepo  service.ParticipantRepository
	accountRepo      service.AccountRepository
	holdRepo         service.HoldRepository
	rankingRepo      service.RankingRepository
	seasonRepo       service.SeasonRepository
	timerJobRepo     service.TimerJobRepository
}

type unitOfWorkFactory struct {
	db       *database.DB
	eventBus *events.Bus
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:       db,
		eventBus: eventBus,
	}
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		db:               f.db,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	// Create repositories bound to the transaction
	u.matchRepo = newMatchRepositoryWithTx(tx)
	u.participantRepo = newParticipantRepositoryWithTx(tx)
	u.accountRepo = newAccountRepositoryWithTx(tx)
	u.holdRepo = newHoldRepositoryWithTx(tx)
	u.rankingRepo = newRankingRepositoryWithTx(tx)
	u.seasonRepo = newSeasonRepositoryWithTx(tx)
	u.timerJobRepo = newTimerJobRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction and flushes staged events
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	err := u.tx.Commit(u.ctx)
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil

	if u.transactionalBus != nil {
		u.transactionalBus.Flush(u.ctx)
	}

	return nil
}

// Rollback rolls back the transaction and discards staged events
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil

	if u.transactionalBus != nil {
		u.transactionalBus.Discard()
	}

	return nil
}

// MatchRepository returns the match repository for this unit of work
func (u *unitOfWork) MatchRepository() service.MatchRepository {
	if u.matchRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.matchRepo
}

// ParticipantRepository returns the participant repository for this unit of work
func (u *unitOfWork) ParticipantRepository() service.ParticipantRepository {
	if u.participantRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.participantRepo
}

// AccountRepository returns the account repository for this unit of work
func (u *unitOfWork) AccountRepository() service.AccountRepository {
	if u.accountRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.accountRepo
}

// HoldRepository returns the hold repository for this unit of work
func (u *unitOfWork) HoldRepository() service.HoldRepository {
	if u.holdRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.holdRepo
}

// RankingRepository returns the ranking repository for this unit of work
func (u *unitOfWork) RankingRepository() service.RankingRepository {
	if u.rankingRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.rankingRepo
}

// SeasonRepository returns the season repository for this unit of work
func (u *unitOfWork) SeasonRepository() service.SeasonRepository {
	if u.seasonRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.seasonRepo
}

// TimerJobRepository returns the timer job repository for this unit of work
func (u *unitOfWork) TimerJobRepository() service.TimerJobRepository {
	if u.timerJobRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.timerJobRepo
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	if u.transactionalBus == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalBus
}
