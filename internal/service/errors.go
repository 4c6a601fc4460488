package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrBonusAlreadyClaimed = errors.New("daily bonus already claimed today")

	// ErrTransientFailure is surfaced after bounded retries against the
	// store were exhausted; the caller may safely retry the whole
	// operation.
	ErrTransientFailure = errors.New("transient failure, please retry")
)

// WithdrawalNotEligibleError reports which threshold blocked a
// withdrawal and how far short the account is.
type WithdrawalNotEligibleError struct {
	Reason          string
	AmountNeeded    decimal.Decimal
	ReferralsNeeded int
}

func (e *WithdrawalNotEligibleError) Error() string {
	switch e.Reason {
	case WithdrawalReasonBalance:
		return fmt.Sprintf("withdrawal not eligible: need %s more balance", e.AmountNeeded.StringFixed(2))
	case WithdrawalReasonReferrals:
		return fmt.Sprintf("withdrawal not eligible: need %d more referrals", e.ReferralsNeeded)
	default:
		return "withdrawal not eligible"
	}
}

const (
	WithdrawalReasonBalance   = "insufficient_balance"
	WithdrawalReasonReferrals = "insufficient_referrals"
)
