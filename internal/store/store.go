package store

import (
	"context"
	"errors"

	"github.com/ankitmallick776-glitch/cashyads/internal/model"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrVersionConflict = errors.New("account version conflict")
	ErrDuplicateEvent  = errors.New("duplicate idempotency key")
	ErrEntryNotFound   = errors.New("ledger entry not found")
)

// Store is the persistence port the ledger engine depends on. The
// engine never touches a concrete storage technology directly.
type Store interface {
	// Load returns the current account record, including its version
	// token, or ErrAccountNotFound.
	Load(ctx context.Context, id int64) (*model.Account, error)

	// CreateIfAbsent inserts the account if no record with the same id
	// exists. The bool reports whether a new record was created;
	// re-invocation with the same id returns the existing record.
	CreateIfAbsent(ctx context.Context, account *model.Account) (*model.Account, bool, error)

	// CompareAndSwap persists account iff the stored version equals
	// account.Version, bumping the version and appending the given
	// ledger entries in the same atomic boundary. Returns
	// ErrVersionConflict on a stale version and ErrDuplicateEvent when
	// an entry's idempotency key was already recorded; in both cases
	// nothing is applied.
	CompareAndSwap(ctx context.Context, account *model.Account, entries ...model.LedgerEntry) error

	// AppendLedgerEntry appends a single entry outside of an account
	// swap (reconciliation records). Duplicate idempotency keys return
	// ErrDuplicateEvent.
	AppendLedgerEntry(ctx context.Context, entry model.LedgerEntry) error

	// FindEntryByIdempotencyKey resolves a previously applied event, or
	// ErrEntryNotFound.
	FindEntryByIdempotencyKey(ctx context.Context, key string) (*model.LedgerEntry, error)

	// TopByBalance returns up to n accounts ordered by balance
	// descending, ties broken by id ascending.
	TopByBalance(ctx context.Context, n int) ([]model.LeaderboardRow, error)

	// LedgerHistory returns an account's entries, newest first.
	LedgerHistory(ctx context.Context, accountID int64, limit, offset int) ([]model.LedgerEntry, error)
}
