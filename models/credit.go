package models

import "time"

// HoldStatus represents the lifecycle state of a credit hold
type HoldStatus string

const (
	HoldStatusActive   HoldStatus = "active"
	HoldStatusReleased HoldStatus = "released"
	HoldStatusSettled  HoldStatus = "settled"
)

// CreditAccount represents a user's credit balances. The available and
// reserved balances are both non-negative at all times; their sum only moves
// through ledger operations.
type CreditAccount struct {
	ID               int64     `db:"id"`
	UserID           int64     `db:"user_id"`
	BalanceAvailable int64     `db:"balance_available"`
	BalanceReserved  int64     `db:"balance_reserved"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

// Total returns the account's full credit position
func (a *CreditAccount) Total() int64 {
	return a.BalanceAvailable + a.BalanceReserved
}

// CreditHold represents credits reserved against a match's stake. Holds are
// never deleted; settlement or release flips the status.
type CreditHold struct {
	ID             int64      `db:"id"`
	AccountID      int64      `db:"account_id"`
	MatchID        int64      `db:"match_id"`
	AmountReserved int64      `db:"amount_reserved"`
	Status         HoldStatus `db:"status"`
	AmountSettled  *int64     `db:"amount_settled"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

// IsActive checks if the hold still reserves credits
func (h *CreditHold) IsActive() bool {
	return h.Status == HoldStatusActive
}

// SettlementOutcome describes how a settled match's pot was distributed
type SettlementOutcome struct {
	MatchID     int64
	WinnerID    int64
	IsDraw      bool
	TotalPot    int64
	PlatformFee int64
	// Credited maps account id to the net amount returned to its available balance
	Credited map[int64]int64
}
