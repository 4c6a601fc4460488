package store

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ankitmallick776-glitch/cashyads/internal/model"
)

func create(t *testing.T, mem *Memory, id int64, balance string) *model.Account {
	t.Helper()
	account, _, err := mem.CreateIfAbsent(context.Background(), &model.Account{
		ID:      id,
		Balance: decimal.RequireFromString(balance),
	})
	if err != nil {
		t.Fatalf("create %d: %v", id, err)
	}
	return account
}

func TestCreateIfAbsent(t *testing.T) {
	mem := NewMemory()

	first, created, err := mem.CreateIfAbsent(context.Background(), &model.Account{ID: 1})
	if err != nil {
		t.Fatalf("CreateIfAbsent: %v", err)
	}
	if !created {
		t.Error("expected creation")
	}
	if first.Version != 1 {
		t.Errorf("new account should have version 1, got %d", first.Version)
	}

	second, created, err := mem.CreateIfAbsent(context.Background(), &model.Account{ID: 1})
	if err != nil {
		t.Fatalf("CreateIfAbsent again: %v", err)
	}
	if created {
		t.Error("second call must not create")
	}
	if second.ID != 1 {
		t.Errorf("expected existing account, got %d", second.ID)
	}
}

func TestCompareAndSwapStaleVersion(t *testing.T) {
	mem := NewMemory()
	create(t, mem, 1, "0")

	a, _ := mem.Load(context.Background(), 1)
	b, _ := mem.Load(context.Background(), 1)

	a.Balance = decimal.RequireFromString("10")
	if err := mem.CompareAndSwap(context.Background(), a); err != nil {
		t.Fatalf("first swap: %v", err)
	}

	b.Balance = decimal.RequireFromString("20")
	if err := mem.CompareAndSwap(context.Background(), b); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	got, _ := mem.Load(context.Background(), 1)
	if !got.Balance.Equal(decimal.RequireFromString("10")) {
		t.Errorf("stale writer won: balance %s", got.Balance)
	}
}

func TestCompareAndSwapUnknownAccount(t *testing.T) {
	mem := NewMemory()
	if err := mem.CompareAndSwap(context.Background(), &model.Account{ID: 99, Version: 1}); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestCompareAndSwapRejectsDuplicateKeyAtomically(t *testing.T) {
	mem := NewMemory()
	create(t, mem, 1, "0")
	key := "evt-1"

	a, _ := mem.Load(context.Background(), 1)
	a.Balance = decimal.RequireFromString("5")
	entry := model.LedgerEntry{AccountID: 1, Kind: model.EntryKindAdReward, Amount: decimal.RequireFromString("5"), IdempotencyKey: &key}
	if err := mem.CompareAndSwap(context.Background(), a, entry); err != nil {
		t.Fatalf("first swap: %v", err)
	}

	// Same key again: neither the account nor the ledger may change.
	b, _ := mem.Load(context.Background(), 1)
	b.Balance = decimal.RequireFromString("10")
	if err := mem.CompareAndSwap(context.Background(), b, entry); !errors.Is(err, ErrDuplicateEvent) {
		t.Fatalf("expected ErrDuplicateEvent, got %v", err)
	}

	got, _ := mem.Load(context.Background(), 1)
	if !got.Balance.Equal(decimal.RequireFromString("5")) {
		t.Errorf("duplicate event mutated the account: balance %s", got.Balance)
	}
	if len(mem.Entries(1)) != 1 {
		t.Errorf("duplicate event appended an entry: %d entries", len(mem.Entries(1)))
	}
}

func TestFindEntryByIdempotencyKey(t *testing.T) {
	mem := NewMemory()
	create(t, mem, 1, "0")
	key := "evt-find"

	entry := model.LedgerEntry{AccountID: 1, Kind: model.EntryKindDailyBonus, Amount: decimal.RequireFromString("0.5"), IdempotencyKey: &key}
	if err := mem.AppendLedgerEntry(context.Background(), entry); err != nil {
		t.Fatalf("append: %v", err)
	}

	found, err := mem.FindEntryByIdempotencyKey(context.Background(), key)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !found.Amount.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("wrong entry found: %s", found.Amount)
	}

	if _, err := mem.FindEntryByIdempotencyKey(context.Background(), "missing"); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestTopByBalanceOrderingAndTies(t *testing.T) {
	mem := NewMemory()
	create(t, mem, 3, "100")
	create(t, mem, 1, "100")
	create(t, mem, 2, "250")
	create(t, mem, 4, "50")

	rows, err := mem.TopByBalance(context.Background(), 3)
	if err != nil {
		t.Fatalf("TopByBalance: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	wantIDs := []int64{2, 1, 3} // 250 first, then the 100-tie by id ascending
	for i, want := range wantIDs {
		if rows[i].ID != want {
			t.Errorf("row %d: expected id %d, got %d", i, want, rows[i].ID)
		}
	}
}
