package repository

import (
	"context"
	"fmt"

	"codeclash/database"
	"codeclash/models"
	"github.com/jackc/pgx/v5"
)

// AccountRepository implements the AccountRepository interface
type AccountRepository struct {
	q queryable
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{q: db.Pool}
}

func newAccountRepositoryWithTx(tx queryable) *AccountRepository {
	return &AccountRepository{q: tx}
}

const accountColumns = `
	id, user_id, balance_available, balance_reserved, created_at, updated_at
`

func scanAccount(row pgx.Row) (*models.CreditAccount, error) {
	var a models.CreditAccount
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.BalanceAvailable,
		&a.BalanceReserved,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetByUserID retrieves an account by owner
func (r *AccountRepository) GetByUserID(ctx context.Context, userID int64) (*models.CreditAccount, error) {
	query := `SELECT` + accountColumns + `FROM credit_accounts WHERE user_id = $1`

	account, err := scanAccount(r.q.QueryRow(ctx, query, userID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account for user %d: %w", userID, err)
	}

	return account, nil
}

// Create creates an account with the given starting balance
func (r *AccountRepository) Create(ctx context.Context, userID int64, initialBalance int64) (*models.CreditAccount, error) {
	query := `
		INSERT INTO credit_accounts (user_id, balance_available)
		VALUES ($1, $2)
		RETURNING` + accountColumns + `
	`

	account, err := scanAccount(r.q.QueryRow(ctx, query, userID, initialBalance))
	if err != nil {
		return nil, fmt.Errorf("failed to create account for user %d: %w", userID, err)
	}

	return account, nil
}

// Reserve atomically moves amount from available to reserved. The guarded
// UPDATE keeps both balances non-negative; zero rows means insufficient
// available balance.
func (r *AccountRepository) Reserve(ctx context.Context, accountID int64, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive")
	}

	query := `
		UPDATE credit_accounts
		SET balance_available = balance_available - $1,
		    balance_reserved = balance_reserved + $1,
		    updated_at = NOW()
		WHERE id = $2 AND balance_available >= $1
	`

	result, err := r.q.Exec(ctx, query, amount, accountID)
	if err != nil {
		return fmt.Errorf("failed to reserve %d on account %d: %w", amount, accountID, err)
	}

	if result.RowsAffected() == 0 {
		account, err := r.getByID(ctx, accountID)
		if err != nil {
			return fmt.Errorf("failed to check account: %w", err)
		}
		if account == nil {
			return fmt.Errorf("account %d not found", accountID)
		}
		return fmt.Errorf("insufficient balance: have %d available, need %d", account.BalanceAvailable, amount)
	}

	return nil
}

// ReleaseReserved atomically moves amount from reserved back to available
func (r *AccountRepository) ReleaseReserved(ctx context.Context, accountID int64, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive")
	}

	query := `
		UPDATE credit_accounts
		SET balance_available = balance_available + $1,
		    balance_reserved = balance_reserved - $1,
		    updated_at = NOW()
		WHERE id = $2 AND balance_reserved >= $1
	`

	result, err := r.q.Exec(ctx, query, amount, accountID)
	if err != nil {
		return fmt.Errorf("failed to release %d on account %d: %w", amount, accountID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("account %d has less than %d reserved", accountID, amount)
	}

	return nil
}

// SettleReserved removes reservedAmount from reserved and adds creditAmount
// to available in one statement, so the account is never transiently
// inconsistent with its holds.
func (r *AccountRepository) SettleReserved(ctx context.Context, accountID int64, reservedAmount, creditAmount int64) error {
	if reservedAmount <= 0 {
		return fmt.Errorf("reserved amount must be positive")
	}
	if creditAmount < 0 {
		return fmt.Errorf("credit amount must not be negative")
	}

	query := `
		UPDATE credit_accounts
		SET balance_available = balance_available + $1,
		    balance_reserved = balance_reserved - $2,
		    updated_at = NOW()
		WHERE id = $3 AND balance_reserved >= $2
	`

	result, err := r.q.Exec(ctx, query, creditAmount, reservedAmount, accountID)
	if err != nil {
		return fmt.Errorf("failed to settle %d reserved on account %d: %w", reservedAmount, accountID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("account %d has less than %d reserved", accountID, reservedAmount)
	}

	return nil
}

func (r *AccountRepository) getByID(ctx context.Context, id int64) (*models.CreditAccount, error) {
	query := `SELECT` + accountColumns + `FROM credit_accounts WHERE id = $1`

	account, err := scanAccount(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return account, nil
}
