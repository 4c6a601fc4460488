package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ankitmallick776-glitch/cashyads/internal/model"
	"github.com/ankitmallick776-glitch/cashyads/internal/store"
)

func (r *Repository) Load(ctx context.Context, id int64) (*model.Account, error) {
	var account model.Account
	err := r.db.GetContext(ctx, &account, "SELECT * FROM accounts WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *Repository) CreateIfAbsent(ctx context.Context, account *model.Account) (*model.Account, bool, error) {
	query := `
		INSERT INTO accounts (id, username, first_name, balance, total_earnings, commission_earned, referrer_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
		RETURNING version, created_at, updated_at`

	created := account.Clone()
	err := r.db.QueryRowContext(ctx, query,
		account.ID,
		account.Username,
		account.FirstName,
		account.Balance,
		account.TotalEarnings,
		account.CommissionEarned,
		account.ReferrerID,
	).Scan(&created.Version, &created.CreatedAt, &created.UpdatedAt)

	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to create account %d: %w", account.ID, err)
	}

	// Conflict: the account already exists.
	existing, err := r.Load(ctx, account.ID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// CompareAndSwap commits the account state and its ledger entries in
// one transaction. The version guard makes lost updates impossible:
// zero rows updated means another writer got there first.
func (r *Repository) CompareAndSwap(ctx context.Context, account *model.Account, entries ...model.LedgerEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE accounts SET
			username = $2,
			first_name = $3,
			balance = $4,
			ads_watched = $5,
			total_earnings = $6,
			commission_earned = $7,
			referral_count = $8,
			bonus_claimed_on = $9,
			ad_watched_at = $10,
			version = version + 1,
			updated_at = NOW()
		WHERE id = $1 AND version = $11`,
		account.ID,
		account.Username,
		account.FirstName,
		account.Balance,
		account.AdsWatched,
		account.TotalEarnings,
		account.CommissionEarned,
		account.ReferralCount,
		account.BonusClaimedOn,
		account.AdWatchedAt,
		account.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update account %d: %w", account.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, err := r.Load(ctx, account.ID); errors.Is(err, store.ErrAccountNotFound) {
			return store.ErrAccountNotFound
		}
		return store.ErrVersionConflict
	}

	for _, entry := range entries {
		if err := insertEntry(ctx, tx, entry); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *Repository) AppendLedgerEntry(ctx context.Context, entry model.LedgerEntry) error {
	return insertEntry(ctx, r.db, entry)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func insertEntry(ctx context.Context, db execer, entry model.LedgerEntry) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO ledger_entries (account_id, kind, amount, description, idempotency_key)
		VALUES ($1, $2, $3, $4, $5)`,
		entry.AccountID,
		entry.Kind,
		entry.Amount,
		entry.Description,
		entry.IdempotencyKey,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return store.ErrDuplicateEvent
		}
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

func (r *Repository) FindEntryByIdempotencyKey(ctx context.Context, key string) (*model.LedgerEntry, error) {
	var entry model.LedgerEntry
	err := r.db.GetContext(ctx, &entry, "SELECT * FROM ledger_entries WHERE idempotency_key = $1", key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrEntryNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func (r *Repository) TopByBalance(ctx context.Context, n int) ([]model.LeaderboardRow, error) {
	var rows []model.LeaderboardRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT id,
		       COALESCE('@' || NULLIF(username, ''), NULLIF(first_name, ''), id::TEXT) AS name,
		       balance
		FROM accounts
		ORDER BY balance DESC, id ASC
		LIMIT $1`, n)
	return rows, err
}

// LedgerHistory returns the most recent entries for an account.
func (r *Repository) LedgerHistory(ctx context.Context, accountID int64, limit, offset int) ([]model.LedgerEntry, error) {
	var entries []model.LedgerEntry
	err := r.db.SelectContext(ctx, &entries, `
		SELECT * FROM ledger_entries
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		accountID, limit, offset)
	return entries, err
}
