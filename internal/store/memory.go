package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ankitmallick776-glitch/cashyads/internal/model"
)

// Memory is an in-process Store used by tests and local runs without a
// database. Safe for concurrent use.
type Memory struct {
	mu       sync.Mutex
	accounts map[int64]*model.Account
	entries  []model.LedgerEntry
	byKey    map[string]int
}

func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[int64]*model.Account),
		byKey:    make(map[string]int),
	}
}

func (m *Memory) Load(ctx context.Context, id int64) (*model.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	account, ok := m.accounts[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return account.Clone(), nil
}

func (m *Memory) CreateIfAbsent(ctx context.Context, account *model.Account) (*model.Account, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.accounts[account.ID]; ok {
		return existing.Clone(), false, nil
	}

	stored := account.Clone()
	now := time.Now()
	stored.Version = 1
	stored.CreatedAt = now
	stored.UpdatedAt = now
	m.accounts[account.ID] = stored

	return stored.Clone(), true, nil
}

func (m *Memory) CompareAndSwap(ctx context.Context, account *model.Account, entries ...model.LedgerEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.accounts[account.ID]
	if !ok {
		return ErrAccountNotFound
	}
	if stored.Version != account.Version {
		return ErrVersionConflict
	}

	for _, entry := range entries {
		if entry.IdempotencyKey == nil {
			continue
		}
		if _, dup := m.byKey[*entry.IdempotencyKey]; dup {
			return ErrDuplicateEvent
		}
	}

	next := account.Clone()
	next.Version++
	next.UpdatedAt = time.Now()
	m.accounts[account.ID] = next

	for _, entry := range entries {
		m.append(entry)
	}

	return nil
}

func (m *Memory) AppendLedgerEntry(ctx context.Context, entry model.LedgerEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if entry.IdempotencyKey != nil {
		if _, dup := m.byKey[*entry.IdempotencyKey]; dup {
			return ErrDuplicateEvent
		}
	}
	m.append(entry)
	return nil
}

// append assumes the caller holds the lock and has checked the key.
func (m *Memory) append(entry model.LedgerEntry) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	m.entries = append(m.entries, entry)
	if entry.IdempotencyKey != nil {
		m.byKey[*entry.IdempotencyKey] = len(m.entries) - 1
	}
}

func (m *Memory) FindEntryByIdempotencyKey(ctx context.Context, key string) (*model.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	idx, ok := m.byKey[key]
	if !ok {
		return nil, ErrEntryNotFound
	}
	entry := m.entries[idx]
	return &entry, nil
}

func (m *Memory) TopByBalance(ctx context.Context, n int) ([]model.LeaderboardRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rows := make([]model.LeaderboardRow, 0, len(m.accounts))
	for _, account := range m.accounts {
		rows = append(rows, model.LeaderboardRow{
			ID:      account.ID,
			Name:    account.DisplayName(),
			Balance: account.Balance,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Balance.Equal(rows[j].Balance) {
			return rows[i].Balance.GreaterThan(rows[j].Balance)
		}
		return rows[i].ID < rows[j].ID
	})

	if n < len(rows) {
		rows = rows[:n]
	}
	return rows, nil
}

func (m *Memory) LedgerHistory(ctx context.Context, accountID int64, limit, offset int) ([]model.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries := m.Entries(accountID)

	// Newest first.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	if offset >= len(entries) {
		return nil, nil
	}
	entries = entries[offset:]
	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries, nil
}

// Entries returns a snapshot of all ledger entries for an account, in
// append order. Test helper.
func (m *Memory) Entries(accountID int64) []model.LedgerEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.LedgerEntry
	for _, entry := range m.entries {
		if entry.AccountID == accountID {
			out = append(out, entry)
		}
	}
	return out
}
