package service

import (
	"context"
	"fmt"

	"codeclash/config"
	"codeclash/events"
	"codeclash/models"

	log "github.com/sirupsen/logrus"
)

type ledgerService struct {
	uowFactory UnitOfWorkFactory
	config     *config.Config
}

// NewLedgerService creates a new stake ledger service
func NewLedgerService(uowFactory UnitOfWorkFactory, cfg *config.Config) LedgerService {
	return &ledgerService{
		uowFactory: uowFactory,
		config:     cfg,
	}
}

// GetOrCreateAccount retrieves a user's account, creating it with the
// configured starting balance when absent
func (s *ledgerService) GetOrCreateAccount(ctx context.Context, userID int64) (*models.CreditAccount, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := getOrCreateAccount(ctx, uow, userID, s.config.StartingBalance)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return account, nil
}

// PlaceHold reserves amount of the user's available balance against a match
func (s *ledgerService) PlaceHold(ctx context.Context, userID, matchID int64, amount int64) (*models.CreditHold, error) {
	if amount <= 0 {
		return nil, NewConflict("hold amount must be positive")
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	hold, err := placeHold(ctx, uow, userID, matchID, amount, s.config.StartingBalance)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return hold, nil
}

// ReleaseHold restores a hold's reserved amount to the available balance
func (s *ledgerService) ReleaseHold(ctx context.Context, holdID int64) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	hold, err := uow.HoldRepository().GetByID(ctx, holdID)
	if err != nil {
		return fmt.Errorf("failed to get hold: %w", err)
	}
	if hold == nil {
		return NewNotFound("hold %d not found", holdID)
	}
	if !hold.IsActive() {
		return NewConflict("hold %d is already %s", holdID, hold.Status)
	}

	if err := releaseHold(ctx, uow, hold); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// SettleMatch converts all active holds on the match into final balance
// changes. Re-invoking after a partial failure is safe: holds that are no
// longer active do not participate again.
func (s *ledgerService) SettleMatch(ctx context.Context, matchID int64, winnerID *int64, isDraw bool) (*models.SettlementOutcome, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	outcome, err := settleHoldsForMatch(ctx, uow, matchID, winnerID, isDraw, s.config.PlatformFeeBps)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return outcome, nil
}

// getOrCreateAccount is the within-transaction account lookup shared by the
// ledger and match services.
func getOrCreateAccount(ctx context.Context, uow UnitOfWork, userID int64, startingBalance int64) (*models.CreditAccount, error) {
	account, err := uow.AccountRepository().GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account != nil {
		return account, nil
	}

	account, err = uow.AccountRepository().Create(ctx, userID, startingBalance)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	log.WithFields(log.Fields{
		"userId":          userID,
		"startingBalance": startingBalance,
	}).Info("Created credit account")

	return account, nil
}

// placeHold reserves credits and records the hold inside the caller's
// transaction.
func placeHold(ctx context.Context, uow UnitOfWork, userID, matchID int64, amount int64, startingBalance int64) (*models.CreditHold, error) {
	account, err := getOrCreateAccount(ctx, uow, userID, startingBalance)
	if err != nil {
		return nil, err
	}

	if account.BalanceAvailable < amount {
		return nil, NewConflict("insufficient balance: have %d available, need %d", account.BalanceAvailable, amount)
	}

	if err := uow.AccountRepository().Reserve(ctx, account.ID, amount); err != nil {
		return nil, fmt.Errorf("failed to reserve balance: %w", err)
	}

	hold := &models.CreditHold{
		AccountID:      account.ID,
		MatchID:        matchID,
		AmountReserved: amount,
	}
	if err := uow.HoldRepository().Create(ctx, hold); err != nil {
		return nil, fmt.Errorf("failed to create hold: %w", err)
	}

	uow.EventBus().Publish(events.HoldPlacedEvent{
		HoldID:    hold.ID,
		AccountID: account.ID,
		MatchID:   matchID,
		Amount:    amount,
	})

	return hold, nil
}

// releaseHold restores one active hold inside the caller's transaction.
func releaseHold(ctx context.Context, uow UnitOfWork, hold *models.CreditHold) error {
	released, err := uow.HoldRepository().MarkReleased(ctx, hold.ID)
	if err != nil {
		return fmt.Errorf("failed to release hold: %w", err)
	}
	if !released {
		// Lost a race with another release or settlement; nothing to restore
		return nil
	}

	if err := uow.AccountRepository().ReleaseReserved(ctx, hold.AccountID, hold.AmountReserved); err != nil {
		return fmt.Errorf("failed to restore reserved balance: %w", err)
	}

	uow.EventBus().Publish(events.HoldReleasedEvent{
		HoldID:    hold.ID,
		AccountID: hold.AccountID,
		MatchID:   hold.MatchID,
		Amount:    hold.AmountReserved,
	})

	return nil
}

// releaseHoldsForMatch releases every active hold on a match; used on cancel.
func releaseHoldsForMatch(ctx context.Context, uow UnitOfWork, matchID int64) (int, error) {
	holds, err := uow.HoldRepository().GetActiveByMatch(ctx, matchID)
	if err != nil {
		return 0, fmt.Errorf("failed to get active holds: %w", err)
	}

	for _, hold := range holds {
		if err := releaseHold(ctx, uow, hold); err != nil {
			return 0, err
		}
	}

	return len(holds), nil
}

// settleHoldsForMatch is the terminal ledger movement for a match. The pot is
// the sum of all active holds; the platform keeps floor(pot * fee). On a
// draw each side gets its reserve back minus floor(fee/2); the rounding
// remainder on an odd fee stays with the players. On a decisive result the
// winner takes the pot minus the fee and the loser gets nothing. A match
// with no active holds settles as a no-op.
func settleHoldsForMatch(ctx context.Context, uow UnitOfWork, matchID int64, winnerID *int64, isDraw bool, feeBps int64) (*models.SettlementOutcome, error) {
	holds, err := uow.HoldRepository().GetActiveByMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active holds: %w", err)
	}

	outcome := &models.SettlementOutcome{
		MatchID:  matchID,
		IsDraw:   isDraw,
		Credited: make(map[int64]int64),
	}
	if winnerID != nil {
		outcome.WinnerID = *winnerID
	}

	if len(holds) == 0 {
		return outcome, nil
	}

	var totalPot int64
	for _, hold := range holds {
		totalPot += hold.AmountReserved
	}
	platformFee := totalPot * feeBps / 10000

	outcome.TotalPot = totalPot
	outcome.PlatformFee = platformFee

	var winnerAccountID int64
	if !isDraw {
		if winnerID == nil {
			return nil, NewConflict("decisive settlement requires a winner")
		}
		winnerAccount, err := uow.AccountRepository().GetByUserID(ctx, *winnerID)
		if err != nil {
			return nil, fmt.Errorf("failed to get winner account: %w", err)
		}
		if winnerAccount == nil {
			return nil, NewNotFound("winner %d has no credit account", *winnerID)
		}
		winnerAccountID = winnerAccount.ID
	}

	for _, hold := range holds {
		var credited int64
		switch {
		case isDraw:
			credited = hold.AmountReserved - platformFee/2
			if credited < 0 {
				credited = 0
			}
		case hold.AccountID == winnerAccountID:
			credited = totalPot - platformFee
		default:
			credited = 0
		}

		settled, err := uow.HoldRepository().MarkSettled(ctx, hold.ID, credited)
		if err != nil {
			return nil, fmt.Errorf("failed to settle hold %d: %w", hold.ID, err)
		}
		if !settled {
			continue
		}

		if err := uow.AccountRepository().SettleReserved(ctx, hold.AccountID, hold.AmountReserved, credited); err != nil {
			return nil, fmt.Errorf("failed to settle account %d: %w", hold.AccountID, err)
		}

		outcome.Credited[hold.AccountID] = credited
	}

	uow.EventBus().Publish(events.MatchSettledEvent{
		MatchID:     matchID,
		WinnerID:    outcome.WinnerID,
		IsDraw:      isDraw,
		TotalPot:    totalPot,
		PlatformFee: platformFee,
	})

	log.WithFields(log.Fields{
		"matchId":     matchID,
		"totalPot":    totalPot,
		"platformFee": platformFee,
		"isDraw":      isDraw,
	}).Info("Match settled")

	return outcome, nil
}
