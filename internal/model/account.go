package model

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type Account struct {
	ID               int64           `json:"id" db:"id"`
	Username         *string         `json:"username,omitempty" db:"username"`
	FirstName        *string         `json:"first_name,omitempty" db:"first_name"`
	Balance          decimal.Decimal `json:"balance" db:"balance"`
	AdsWatched       int             `json:"ads_watched" db:"ads_watched"`
	TotalEarnings    decimal.Decimal `json:"total_earnings" db:"total_earnings"`
	CommissionEarned decimal.Decimal `json:"commission_earned" db:"commission_earned"`
	ReferralCount    int             `json:"referral_count" db:"referral_count"`
	ReferrerID       *int64          `json:"referrer_id,omitempty" db:"referrer_id"`
	BonusClaimedOn   *time.Time      `json:"bonus_claimed_on,omitempty" db:"bonus_claimed_on"`
	AdWatchedAt      *time.Time      `json:"ad_watched_at,omitempty" db:"ad_watched_at"`
	Version          int64           `json:"-" db:"version"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// DisplayName picks the best available label for leaderboards and
// commission notifications.
func (a *Account) DisplayName() string {
	if a.Username != nil && *a.Username != "" {
		return "@" + *a.Username
	}
	if a.FirstName != nil && *a.FirstName != "" {
		return *a.FirstName
	}
	return strconv.FormatInt(a.ID, 10)
}

// Clone returns a deep copy so callers can compute a new state without
// mutating the stored record.
func (a *Account) Clone() *Account {
	clone := *a
	if a.Username != nil {
		v := *a.Username
		clone.Username = &v
	}
	if a.FirstName != nil {
		v := *a.FirstName
		clone.FirstName = &v
	}
	if a.ReferrerID != nil {
		v := *a.ReferrerID
		clone.ReferrerID = &v
	}
	if a.BonusClaimedOn != nil {
		v := *a.BonusClaimedOn
		clone.BonusClaimedOn = &v
	}
	if a.AdWatchedAt != nil {
		v := *a.AdWatchedAt
		clone.AdWatchedAt = &v
	}
	return &clone
}

type LeaderboardRow struct {
	ID      int64           `json:"id" db:"id"`
	Name    string          `json:"name" db:"name"`
	Balance decimal.Decimal `json:"balance" db:"balance"`
}
