package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ankitmallick776-glitch/cashyads/internal/model"
	"github.com/ankitmallick776-glitch/cashyads/internal/notify"
	"github.com/ankitmallick776-glitch/cashyads/internal/store"
)

// LedgerConfig carries the reward policy knobs. All of them come from
// the environment; nothing in the engine is hardcoded.
type LedgerConfig struct {
	CommissionRate       decimal.Decimal
	DailyBonus           decimal.Decimal
	SignupBonus          decimal.Decimal
	MinWithdrawBalance   decimal.Decimal
	MinWithdrawReferrals int
	MaxRetries           int
	StoreTimeout         time.Duration
}

// LedgerService applies balance-mutating events to accounts with
// all-or-nothing semantics per account: the new account state and its
// ledger entries are committed by a single compare-and-swap, retried a
// bounded number of times on version conflicts.
type LedgerService struct {
	store    store.Store
	notifier notify.Notifier
	cfg      LedgerConfig
}

func NewLedgerService(st store.Store, notifier notify.Notifier, cfg LedgerConfig) *LedgerService {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}
	return &LedgerService{store: st, notifier: notifier, cfg: cfg}
}

type AdRewardResult struct {
	Reward     decimal.Decimal `json:"reward"`
	NewBalance decimal.Decimal `json:"new_balance"`
	AdsWatched int             `json:"ads_watched"`
	Duplicate  bool            `json:"duplicate"`
}

type BonusResult struct {
	Amount     decimal.Decimal `json:"amount"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

type WithdrawalResult struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method"`
}

// ApplyAdReward credits the watcher for one completed ad and, when the
// watcher was referred, credits the referrer's commission. The two
// credits are independent compare-and-swap operations: the watcher
// credit is authoritative, and a referrer credit that exhausts its
// retries is logged for reconciliation instead of failing the call.
func (s *LedgerService) ApplyAdReward(ctx context.Context, accountID int64, amount decimal.Decimal, eventKey string) (*AdRewardResult, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("ad reward must be positive, got %s", amount)
	}

	var watcher *model.Account
	updated, err := s.mutate(ctx, accountID, func(next *model.Account) ([]model.LedgerEntry, error) {
		watcher = next
		now := time.Now()
		next.Balance = next.Balance.Add(amount)
		next.TotalEarnings = next.TotalEarnings.Add(amount)
		next.AdsWatched++
		next.AdWatchedAt = &now
		return []model.LedgerEntry{
			newEntry(accountID, model.EntryKindAdReward, amount, "video ad reward", eventKey),
		}, nil
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEvent) {
			return s.originalAdReward(ctx, accountID, eventKey)
		}
		return nil, err
	}

	if updated.ReferrerID != nil {
		commission := amount.Mul(s.cfg.CommissionRate).Round(2)
		if commission.GreaterThan(decimal.Zero) {
			s.creditCommission(ctx, *updated.ReferrerID, commission, eventKey, watcher.DisplayName())
		}
	}

	return &AdRewardResult{
		Reward:     amount,
		NewBalance: updated.Balance,
		AdsWatched: updated.AdsWatched,
	}, nil
}

// originalAdReward rebuilds the result of an already-applied event so
// at-least-once webhook delivery always gets the same answer.
func (s *LedgerService) originalAdReward(ctx context.Context, accountID int64, eventKey string) (*AdRewardResult, error) {
	opCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	entry, err := s.store.FindEntryByIdempotencyKey(opCtx, eventKey)
	if err != nil {
		return nil, fmt.Errorf("resolve duplicate event %q: %w", eventKey, err)
	}
	account, err := s.store.Load(opCtx, accountID)
	if err != nil {
		return nil, err
	}

	return &AdRewardResult{
		Reward:     entry.Amount,
		NewBalance: account.Balance,
		AdsWatched: account.AdsWatched,
		Duplicate:  true,
	}, nil
}

// creditCommission applies the referrer side of an ad reward under its
// own idempotency key. Failure never propagates to the watcher.
func (s *LedgerService) creditCommission(ctx context.Context, referrerID int64, commission decimal.Decimal, eventKey, watcherName string) {
	key := eventKey + ":commission"
	description := fmt.Sprintf("referral commission from %s", watcherName)

	referrer, err := s.mutate(ctx, referrerID, func(next *model.Account) ([]model.LedgerEntry, error) {
		next.Balance = next.Balance.Add(commission)
		next.CommissionEarned = next.CommissionEarned.Add(commission)
		return []model.LedgerEntry{
			newEntry(referrerID, model.EntryKindReferralCommission, commission, description, key),
		}, nil
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEvent) {
			return
		}
		log.Printf("RECONCILE: commission %s for referrer %d (event %s) not applied: %v", commission, referrerID, eventKey, err)
		return
	}

	go func() {
		if err := s.notifier.NotifyReferralCommission(referrerID, watcherName, commission, referrer.Balance); err != nil {
			log.Printf("Failed to notify referrer %d: %v", referrerID, err)
		}
	}()
}

// ApplyReferralSignup credits the referrer's one-time signup bonus and
// referral counter. Self-referrals and unknown referrers are silent
// no-ops so they never fail the signup itself.
func (s *LedgerService) ApplyReferralSignup(ctx context.Context, newAccountID, referrerID int64) error {
	if referrerID == 0 || referrerID == newAccountID {
		return nil
	}

	key := fmt.Sprintf("signup:%d", newAccountID)
	description := fmt.Sprintf("signup bonus for referring %d", newAccountID)

	_, err := s.mutate(ctx, referrerID, func(next *model.Account) ([]model.LedgerEntry, error) {
		next.Balance = next.Balance.Add(s.cfg.SignupBonus)
		next.TotalEarnings = next.TotalEarnings.Add(s.cfg.SignupBonus)
		next.ReferralCount++
		return []model.LedgerEntry{
			newEntry(referrerID, model.EntryKindReferralSignupBonus, s.cfg.SignupBonus, description, key),
		}, nil
	})
	if errors.Is(err, store.ErrAccountNotFound) || errors.Is(err, store.ErrDuplicateEvent) {
		return nil
	}
	return err
}

// ClaimDailyBonus credits the fixed daily bonus at most once per
// calendar date.
func (s *LedgerService) ClaimDailyBonus(ctx context.Context, accountID int64, today time.Time) (*BonusResult, error) {
	key := fmt.Sprintf("bonus:%d:%s", accountID, today.Format("2006-01-02"))

	updated, err := s.mutate(ctx, accountID, func(next *model.Account) ([]model.LedgerEntry, error) {
		if !CanClaimBonus(next, today) {
			return nil, ErrBonusAlreadyClaimed
		}
		claimed := today
		next.Balance = next.Balance.Add(s.cfg.DailyBonus)
		next.TotalEarnings = next.TotalEarnings.Add(s.cfg.DailyBonus)
		next.BonusClaimedOn = &claimed
		return []model.LedgerEntry{
			newEntry(accountID, model.EntryKindDailyBonus, s.cfg.DailyBonus, "daily bonus", key),
		}, nil
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEvent) {
			return nil, ErrBonusAlreadyClaimed
		}
		return nil, err
	}

	return &BonusResult{Amount: s.cfg.DailyBonus, NewBalance: updated.Balance}, nil
}

// RequestWithdrawal debits the entire balance to zero once both
// eligibility thresholds are met and returns the debited amount for
// downstream manual payout. Payout execution is out of scope here.
func (s *LedgerService) RequestWithdrawal(ctx context.Context, accountID int64, method string) (*WithdrawalResult, error) {
	var debited decimal.Decimal

	_, err := s.mutate(ctx, accountID, func(next *model.Account) ([]model.LedgerEntry, error) {
		if err := s.checkWithdrawal(next); err != nil {
			return nil, err
		}
		debited = next.Balance
		next.Balance = decimal.Zero
		description := fmt.Sprintf("withdrawal via %s", method)
		return []model.LedgerEntry{
			newEntry(accountID, model.EntryKindWithdrawal, debited.Neg(), description, ""),
		}, nil
	})
	if err != nil {
		return nil, err
	}

	return &WithdrawalResult{Amount: debited, Method: method}, nil
}

func (s *LedgerService) checkWithdrawal(account *model.Account) error {
	if account.Balance.LessThan(s.cfg.MinWithdrawBalance) {
		return &WithdrawalNotEligibleError{
			Reason:       WithdrawalReasonBalance,
			AmountNeeded: s.cfg.MinWithdrawBalance.Sub(account.Balance),
		}
	}
	if account.ReferralCount < s.cfg.MinWithdrawReferrals {
		return &WithdrawalNotEligibleError{
			Reason:          WithdrawalReasonReferrals,
			ReferralsNeeded: s.cfg.MinWithdrawReferrals - account.ReferralCount,
		}
	}
	return nil
}

// Leaderboard returns the top n accounts by balance.
func (s *LedgerService) Leaderboard(ctx context.Context, n int) ([]model.LeaderboardRow, error) {
	if n <= 0 {
		n = 10
	}
	if n > 100 {
		n = 100
	}
	opCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.store.TopByBalance(opCtx, n)
}

// History returns an account's ledger entries, newest first.
func (s *LedgerService) History(ctx context.Context, accountID int64, limit, offset int) ([]model.LedgerEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	opCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	if _, err := s.store.Load(opCtx, accountID); err != nil {
		return nil, err
	}
	return s.store.LedgerHistory(opCtx, accountID, limit, offset)
}

// mutate runs one load-compute-swap cycle with bounded retries on
// version conflicts. compute receives a private copy it may modify and
// returns the ledger entries to append atomically with the swap.
// Domain errors returned by compute abort without retrying.
func (s *LedgerService) mutate(ctx context.Context, accountID int64, compute func(next *model.Account) ([]model.LedgerEntry, error)) (*model.Account, error) {
	for attempt := 0; attempt < s.cfg.MaxRetries; attempt++ {
		opCtx, cancel := s.withTimeout(ctx)
		account, err := s.store.Load(opCtx, accountID)
		if err != nil {
			cancel()
			return nil, err
		}

		next := account.Clone()
		entries, err := compute(next)
		if err != nil {
			cancel()
			return nil, err
		}

		err = s.store.CompareAndSwap(opCtx, next, entries...)
		cancel()
		if err == nil {
			return next, nil
		}
		if errors.Is(err, store.ErrVersionConflict) {
			continue
		}
		return nil, err
	}
	return nil, ErrTransientFailure
}

func (s *LedgerService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.StoreTimeout)
}

func newEntry(accountID int64, kind model.EntryKind, amount decimal.Decimal, description, key string) model.LedgerEntry {
	entry := model.LedgerEntry{
		AccountID:   accountID,
		Kind:        kind,
		Amount:      amount,
		Description: &description,
	}
	if key != "" {
		entry.IdempotencyKey = &key
	}
	return entry
}
