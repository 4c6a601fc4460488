package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ankitmallick776-glitch/cashyads/internal/model"
	"github.com/ankitmallick776-glitch/cashyads/internal/store"
)

// TelegramIdentity is the external identity an inbound chat event
// carries.
type TelegramIdentity struct {
	ID         int64
	Username   *string
	FirstName  *string
	ReferrerID *int64
}

type AccountService struct {
	store     store.Store
	ledgerSvc *LedgerService
	timeout   time.Duration
}

func NewAccountService(st store.Store, ledgerSvc *LedgerService, timeout time.Duration) *AccountService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AccountService{store: st, ledgerSvc: ledgerSvc, timeout: timeout}
}

// GetOrCreate resolves the account for an external identity, creating
// it on first contact. Creation is idempotent: re-invocation with the
// same identity returns the existing record and never double-pays the
// referral signup bonus. The referrer link is set once here and never
// changes afterwards.
func (s *AccountService) GetOrCreate(ctx context.Context, identity TelegramIdentity) (*model.Account, bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	account := &model.Account{
		ID:               identity.ID,
		Username:         identity.Username,
		FirstName:        identity.FirstName,
		Balance:          decimal.Zero,
		TotalEarnings:    decimal.Zero,
		CommissionEarned: decimal.Zero,
	}

	// Self-referral is rejected at the source: the account is created
	// without a referrer link.
	if identity.ReferrerID != nil && *identity.ReferrerID != identity.ID {
		account.ReferrerID = identity.ReferrerID
	}

	account, created, err := s.store.CreateIfAbsent(opCtx, account)
	if err != nil {
		return nil, false, err
	}

	if created && account.ReferrerID != nil {
		// The signup bonus itself is a no-op when the referrer does not
		// exist; the signup never fails because of it.
		if err := s.ledgerSvc.ApplyReferralSignup(ctx, account.ID, *account.ReferrerID); err != nil {
			return nil, false, err
		}
	}

	return account, created, nil
}

// Get returns the account or store.ErrAccountNotFound.
func (s *AccountService) Get(ctx context.Context, id int64) (*model.Account, error) {
	opCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.store.Load(opCtx, id)
}
