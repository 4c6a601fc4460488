package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EntryKind string

const (
	EntryKindAdReward            EntryKind = "ad_reward"
	EntryKindReferralSignupBonus EntryKind = "referral_signup_bonus"
	EntryKindReferralCommission  EntryKind = "referral_commission"
	EntryKindDailyBonus          EntryKind = "daily_bonus"
	EntryKindWithdrawal          EntryKind = "withdrawal"
)

// LedgerEntry is the append-only audit record of a single balance
// mutation. Amount is positive for credits, negative for debits.
type LedgerEntry struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	AccountID      int64           `json:"account_id" db:"account_id"`
	Kind           EntryKind       `json:"kind" db:"kind"`
	Amount         decimal.Decimal `json:"amount" db:"amount"`
	Description    *string         `json:"description,omitempty" db:"description"`
	IdempotencyKey *string         `json:"idempotency_key,omitempty" db:"idempotency_key"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}
