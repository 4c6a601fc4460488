package notify

import "github.com/shopspring/decimal"

// Notifier is the outbound port used to tell a referrer about a
// commission credit. Delivery is best-effort: errors are logged by the
// caller and never fail the ledger mutation they report on.
type Notifier interface {
	NotifyReferralCommission(referrerID int64, watcherName string, commission, newBalance decimal.Decimal) error
}

// Nop drops all notifications. Used when no bot is configured and in
// tests.
type Nop struct{}

func (Nop) NotifyReferralCommission(int64, string, decimal.Decimal, decimal.Decimal) error {
	return nil
}
