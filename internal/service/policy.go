package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ankitmallick776-glitch/cashyads/internal/model"
)

// Eligibility rules. All functions here are pure: they read account
// state and the clock value handed to them, nothing else.

// CanClaimBonus reports whether the daily bonus is still unclaimed for
// the calendar date of today. Covers both "never claimed" and "claimed
// on an earlier day".
func CanClaimBonus(account *model.Account, today time.Time) bool {
	if account.BonusClaimedOn == nil {
		return true
	}
	return !sameDate(*account.BonusClaimedOn, today)
}

// CanWithdraw reports whether both withdrawal thresholds are met.
func CanWithdraw(account *model.Account, minBalance decimal.Decimal, minReferrals int) bool {
	return account.Balance.GreaterThanOrEqual(minBalance) && account.ReferralCount >= minReferrals
}

// CanWatchAd reports whether the ad cooldown has elapsed. A zero
// cooldown means unlimited watching.
func CanWatchAd(account *model.Account, now time.Time, cooldown time.Duration) bool {
	if cooldown <= 0 || account.AdWatchedAt == nil {
		return true
	}
	return now.Sub(*account.AdWatchedAt) >= cooldown
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
