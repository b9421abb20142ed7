package storage

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"haushalt/internal/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "transactions.db"))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleTx(id string, amount float64) core.Transaction {
	return core.Transaction{
		ID:          id,
		Account:     "Main",
		BookingDate: time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC),
		Amount:      amount,
		Currency:    "EUR",
		Remittance:  "POS purchase",
	}
}

func TestStore_InsertSkipsDuplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n, err := s.Insert(ctx, []core.Transaction{sampleTx("t1", -10), sampleTx("t2", -20)})
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Insert() = %d, want 2", n)
	}

	// Overlapping redelivery: one known id, one new.
	n, err = s.Insert(ctx, []core.Transaction{sampleTx("t2", -20), sampleTx("t3", -30)})
	if err != nil {
		t.Fatalf("second Insert() error = %v", err)
	}
	if n != 1 {
		t.Errorf("second Insert() = %d, want 1", n)
	}

	all, err := s.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("GetAll() = %d rows, want 3", len(all))
	}
}

func TestStore_InsertRejectsInvalid(t *testing.T) {
	s := newTestStore(t)
	bad := sampleTx("", -10)
	if _, err := s.Insert(context.Background(), []core.Transaction{bad}); err == nil {
		t.Error("Insert() with empty id should error")
	}
}

func TestStore_GetAllRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	in := sampleTx("t1", -42.50)
	in.ValueDate = time.Date(2024, 2, 6, 0, 0, 0, 0, time.UTC)
	in.CounterpartyRef = "REF-1"
	in.Category = "Food"
	if _, err := s.Insert(ctx, []core.Transaction{in}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	all, err := s.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("GetAll() = %d rows, want 1", len(all))
	}
	got := all[0]
	if got.ID != in.ID || got.Amount != in.Amount || got.Category != in.Category ||
		got.CounterpartyRef != in.CounterpartyRef || !got.BookingDate.Equal(in.BookingDate) ||
		!got.ValueDate.Equal(in.ValueDate) {
		t.Errorf("round trip = %+v, want %+v", got, in)
	}
}

func TestStore_GetAllNullValueDate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Insert(ctx, []core.Transaction{sampleTx("t1", -10)}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	all, err := s.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if !all[0].ValueDate.IsZero() {
		t.Errorf("ValueDate = %v, want zero for NULL column", all[0].ValueDate)
	}
}

func TestStore_SetCategory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Insert(ctx, []core.Transaction{sampleTx("t1", -10)}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := s.SetCategory(ctx, "t1", "Food"); err != nil {
		t.Fatalf("SetCategory() error = %v", err)
	}

	all, err := s.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll() error = %v", err)
	}
	if all[0].Category != "Food" {
		t.Errorf("Category = %q, want Food", all[0].Category)
	}

	err = s.SetCategory(ctx, "missing", "Food")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("SetCategory() on unknown id error = %v, want not-found", err)
	}
}

func TestStore_ApplyCategoriesAndCountUnlabeled(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	txs := []core.Transaction{sampleTx("t1", -10), sampleTx("t2", -20), sampleTx("t3", -30)}
	if _, err := s.Insert(ctx, txs); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	n, err := s.CountUnlabeled(ctx)
	if err != nil {
		t.Fatalf("CountUnlabeled() error = %v", err)
	}
	if n != 3 {
		t.Errorf("CountUnlabeled() = %d, want 3", n)
	}

	err = s.ApplyCategories(ctx, map[string]string{"t1": "Food", "t2": "Rent"})
	if err != nil {
		t.Fatalf("ApplyCategories() error = %v", err)
	}

	n, err = s.CountUnlabeled(ctx)
	if err != nil {
		t.Fatalf("CountUnlabeled() error = %v", err)
	}
	if n != 1 {
		t.Errorf("CountUnlabeled() = %d, want 1", n)
	}
}
