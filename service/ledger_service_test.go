package service

import (
	"context"
	"testing"

	"codeclash/config"
	"codeclash/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Test utilities

func testConfig() *config.Config {
	return &config.Config{
		StartingBalance:             1000,
		PlatformFeeBps:              1000, // 10%
		DefaultStakeCap:             100,
		DefaultMatchDurationMinutes: 60,
		RatingPeriodDays:            7,
		RatingTau:                   0.5,
		SeasonLengthMonths:          3,
		Environment:                 "test",
	}
}

func createTestLedgerService() (LedgerService, *MockUnitOfWork, *MockAccountRepository, *MockHoldRepository) {
	mockUoW := new(MockUnitOfWork)
	mockFactory := new(MockUnitOfWorkFactory)
	accountRepo := new(MockAccountRepository)
	holdRepo := new(MockHoldRepository)

	mockUoW.SetRepositories(nil, nil, accountRepo, holdRepo)
	mockFactory.On("Create").Return(mockUoW)

	service := NewLedgerService(mockFactory, testConfig())
	return service, mockUoW, accountRepo, holdRepo
}

func setupBasicTransactionMocks(mockUoW *MockUnitOfWork) {
	mockUoW.On("Begin", mock.Anything).Return(nil)
	mockUoW.On("Commit").Return(nil)
	mockUoW.On("Rollback").Return(nil)
}

func createTestAccount(id, userID, available, reserved int64) *models.CreditAccount {
	return &models.CreditAccount{
		ID:               id,
		UserID:           userID,
		BalanceAvailable: available,
		BalanceReserved:  reserved,
	}
}

func createTestActiveHold(id, accountID, matchID, amount int64) *models.CreditHold {
	return &models.CreditHold{
		ID:             id,
		AccountID:      accountID,
		MatchID:        matchID,
		AmountReserved: amount,
		Status:         models.HoldStatusActive,
	}
}

// Tests

func TestLedgerService_GetOrCreateAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("existing account is returned", func(t *testing.T) {
		service, mockUoW, accountRepo, _ := createTestLedgerService()
		setupBasicTransactionMocks(mockUoW)

		existing := createTestAccount(1, 100, 750, 250)
		accountRepo.On("GetByUserID", mock.Anything, int64(100)).Return(existing, nil)

		account, err := service.GetOrCreateAccount(ctx, 100)
		require.NoError(t, err)
		assert.Equal(t, existing, account)
		accountRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing account is created with the starting balance", func(t *testing.T) {
		service, mockUoW, accountRepo, _ := createTestLedgerService()
		setupBasicTransactionMocks(mockUoW)

		created := createTestAccount(1, 100, 1000, 0)
		accountRepo.On("GetByUserID", mock.Anything, int64(100)).Return(nil, nil)
		accountRepo.On("Create", mock.Anything, int64(100), int64(1000)).Return(created, nil)

		account, err := service.GetOrCreateAccount(ctx, 100)
		require.NoError(t, err)
		assert.Equal(t, int64(1000), account.BalanceAvailable)
		accountRepo.AssertExpectations(t)
	})
}

func TestLedgerService_PlaceHold(t *testing.T) {
	ctx := context.Background()

	t.Run("reserves and records the hold", func(t *testing.T) {
		service, mockUoW, accountRepo, holdRepo := createTestLedgerService()
		setupBasicTransactionMocks(mockUoW)

		account := createTestAccount(1, 100, 1000, 0)
		accountRepo.On("GetByUserID", mock.Anything, int64(100)).Return(account, nil)
		accountRepo.On("Reserve", mock.Anything, int64(1), int64(100)).Return(nil)
		holdRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.CreditHold")).Return(nil)

		hold, err := service.PlaceHold(ctx, 100, 5, 100)
		require.NoError(t, err)
		assert.Equal(t, int64(1), hold.AccountID)
		assert.Equal(t, int64(5), hold.MatchID)
		assert.Equal(t, int64(100), hold.AmountReserved)
		accountRepo.AssertExpectations(t)
		holdRepo.AssertExpectations(t)
	})

	t.Run("insufficient balance", func(t *testing.T) {
		service, mockUoW, accountRepo, _ := createTestLedgerService()
		setupBasicTransactionMocks(mockUoW)

		account := createTestAccount(1, 100, 50, 0)
		accountRepo.On("GetByUserID", mock.Anything, int64(100)).Return(account, nil)

		_, err := service.PlaceHold(ctx, 100, 5, 100)
		require.Error(t, err)
		assert.Equal(t, ErrorCodeConflict, CodeOf(err))
		accountRepo.AssertNotCalled(t, "Reserve", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		service, _, _, _ := createTestLedgerService()

		_, err := service.PlaceHold(ctx, 100, 5, 0)
		require.Error(t, err)
		assert.Equal(t, ErrorCodeConflict, CodeOf(err))
	})
}

func TestLedgerService_ReleaseHold(t *testing.T) {
	ctx := context.Background()

	t.Run("restores the reserved amount", func(t *testing.T) {
		service, mockUoW, accountRepo, holdRepo := createTestLedgerService()
		setupBasicTransactionMocks(mockUoW)

		hold := createTestActiveHold(7, 1, 5, 100)
		holdRepo.On("GetByID", mock.Anything, int64(7)).Return(hold, nil)
		holdRepo.On("MarkReleased", mock.Anything, int64(7)).Return(true, nil)
		accountRepo.On("ReleaseReserved", mock.Anything, int64(1), int64(100)).Return(nil)

		err := service.ReleaseHold(ctx, 7)
		require.NoError(t, err)
		holdRepo.AssertExpectations(t)
		accountRepo.AssertExpectations(t)
	})

	t.Run("hold not found", func(t *testing.T) {
		service, mockUoW, _, holdRepo := createTestLedgerService()
		setupBasicTransactionMocks(mockUoW)

		holdRepo.On("GetByID", mock.Anything, int64(7)).Return(nil, nil)

		err := service.ReleaseHold(ctx, 7)
		assert.Equal(t, ErrorCodeNotFound, CodeOf(err))
	})

	t.Run("hold already settled", func(t *testing.T) {
		service, mockUoW, _, holdRepo := createTestLedgerService()
		setupBasicTransactionMocks(mockUoW)

		hold := createTestActiveHold(7, 1, 5, 100)
		hold.Status = models.HoldStatusSettled
		holdRepo.On("GetByID", mock.Anything, int64(7)).Return(hold, nil)

		err := service.ReleaseHold(ctx, 7)
		assert.Equal(t, ErrorCodeConflict, CodeOf(err))
	})
}

func TestLedgerService_SettleMatch(t *testing.T) {
	ctx := context.Background()

	t.Run("decisive result pays winner the pot minus the fee", func(t *testing.T) {
		service, mockUoW, accountRepo, holdRepo := createTestLedgerService()
		setupBasicTransactionMocks(mockUoW)

		winnerID := int64(100)
		holds := []*models.CreditHold{
			createTestActiveHold(1, 10, 5, 100),
			createTestActiveHold(2, 20, 5, 100),
		}
		holdRepo.On("GetActiveByMatch", mock.Anything, int64(5)).Return(holds, nil)
		accountRepo.On("GetByUserID", mock.Anything, winnerID).Return(createTestAccount(10, winnerID, 900, 100), nil)

		holdRepo.On("MarkSettled", mock.Anything, int64(1), int64(180)).Return(true, nil)
		holdRepo.On("MarkSettled", mock.Anything, int64(2), int64(0)).Return(true, nil)
		accountRepo.On("SettleReserved", mock.Anything, int64(10), int64(100), int64(180)).Return(nil)
		accountRepo.On("SettleReserved", mock.Anything, int64(20), int64(100), int64(0)).Return(nil)

		outcome, err := service.SettleMatch(ctx, 5, &winnerID, false)
		require.NoError(t, err)
		assert.Equal(t, int64(200), outcome.TotalPot)
		assert.Equal(t, int64(20), outcome.PlatformFee)
		assert.Equal(t, int64(180), outcome.Credited[10])
		assert.Equal(t, int64(0), outcome.Credited[20])
		holdRepo.AssertExpectations(t)
		accountRepo.AssertExpectations(t)
	})

	t.Run("draw refunds each side minus half the fee", func(t *testing.T) {
		service, mockUoW, accountRepo, holdRepo := createTestLedgerService()
		setupBasicTransactionMocks(mockUoW)

		holds := []*models.CreditHold{
			createTestActiveHold(1, 10, 5, 100),
			createTestActiveHold(2, 20, 5, 100),
		}
		holdRepo.On("GetActiveByMatch", mock.Anything, int64(5)).Return(holds, nil)

		holdRepo.On("MarkSettled", mock.Anything, int64(1), int64(90)).Return(true, nil)
		holdRepo.On("MarkSettled", mock.Anything, int64(2), int64(90)).Return(true, nil)
		accountRepo.On("SettleReserved", mock.Anything, int64(10), int64(100), int64(90)).Return(nil)
		accountRepo.On("SettleReserved", mock.Anything, int64(20), int64(100), int64(90)).Return(nil)

		outcome, err := service.SettleMatch(ctx, 5, nil, true)
		require.NoError(t, err)
		assert.True(t, outcome.IsDraw)
		assert.Equal(t, int64(90), outcome.Credited[10])
		assert.Equal(t, int64(90), outcome.Credited[20])
		holdRepo.AssertExpectations(t)
	})

	t.Run("no active holds is a no-op success", func(t *testing.T) {
		service, mockUoW, _, holdRepo := createTestLedgerService()
		setupBasicTransactionMocks(mockUoW)

		winnerID := int64(100)
		holdRepo.On("GetActiveByMatch", mock.Anything, int64(5)).Return([]*models.CreditHold{}, nil)

		outcome, err := service.SettleMatch(ctx, 5, &winnerID, false)
		require.NoError(t, err)
		assert.Equal(t, int64(0), outcome.TotalPot)
		holdRepo.AssertNotCalled(t, "MarkSettled", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("hold lost a settlement race is skipped", func(t *testing.T) {
		service, mockUoW, accountRepo, holdRepo := createTestLedgerService()
		setupBasicTransactionMocks(mockUoW)

		winnerID := int64(100)
		holds := []*models.CreditHold{createTestActiveHold(1, 10, 5, 100)}
		holdRepo.On("GetActiveByMatch", mock.Anything, int64(5)).Return(holds, nil)
		accountRepo.On("GetByUserID", mock.Anything, winnerID).Return(createTestAccount(10, winnerID, 900, 100), nil)
		holdRepo.On("MarkSettled", mock.Anything, int64(1), int64(90)).Return(false, nil)

		outcome, err := service.SettleMatch(ctx, 5, &winnerID, false)
		require.NoError(t, err)
		assert.Empty(t, outcome.Credited)
		accountRepo.AssertNotCalled(t, "SettleReserved", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("decisive result without a winner is rejected", func(t *testing.T) {
		service, mockUoW, _, holdRepo := createTestLedgerService()
		setupBasicTransactionMocks(mockUoW)

		holds := []*models.CreditHold{createTestActiveHold(1, 10, 5, 100)}
		holdRepo.On("GetActiveByMatch", mock.Anything, int64(5)).Return(holds, nil)

		_, err := service.SettleMatch(ctx, 5, nil, false)
		assert.Equal(t, ErrorCodeConflict, CodeOf(err))
	})
}
