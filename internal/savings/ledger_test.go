package savings

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"haushalt/internal/core"
)

func entry(date string, partner, remittance string, amount float64) core.SavingsEntry {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}
	return core.SavingsEntry{
		BookingDate: d,
		Partner:     partner,
		Remittance:  remittance,
		Amount:      amount,
	}
}

func TestLedger_ReadMissingFile(t *testing.T) {
	l := NewLedger(filepath.Join(t.TempDir(), "savings.csv"))
	got, err := l.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Read() = %d rows, want empty ledger", len(got))
	}
}

func TestLedger_AppendIsIdempotent(t *testing.T) {
	l := NewLedger(filepath.Join(t.TempDir(), "savings.csv"))
	e := entry("2024-01-05", "Bank", "Interest", 12.50)

	first, err := l.Append(e)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("first Append() = %d rows, want 1", len(first))
	}

	second, err := l.Append(e)
	if err != nil {
		t.Fatalf("second Append() error = %v", err)
	}
	if len(second) != 1 {
		t.Errorf("second Append() = %d rows, want 1 (duplicate is a no-op)", len(second))
	}

	stored, err := l.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(stored) != 1 {
		t.Errorf("stored rows = %d, want 1", len(stored))
	}
	if stored[0].Amount != 12.50 || stored[0].Partner != "Bank" {
		t.Errorf("stored row = %+v, want the original entry", stored[0])
	}
}

func TestLedger_AppendSortsByDate(t *testing.T) {
	l := NewLedger(filepath.Join(t.TempDir(), "savings.csv"))

	for _, e := range []core.SavingsEntry{
		entry("2024-03-01", "Bank", "March deposit", 100),
		entry("2024-01-05", "Bank", "Interest", 12.50),
		entry("2024-02-10", "Bank", "February deposit", 100),
	} {
		if _, err := l.Append(e); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	got, err := l.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Read() = %d rows, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].BookingDate.Before(got[i-1].BookingDate) {
			t.Errorf("rows not sorted by date: %v before %v", got[i].BookingDate, got[i-1].BookingDate)
		}
	}
}

func TestLedger_WriteReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "savings.csv")
	l := NewLedger(path)

	if err := l.Write([]core.SavingsEntry{entry("2024-01-05", "Bank", "Interest", 12.50)}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if lines[0] != "bookingDate,partner,partnerIBAN,remittance,purpose,amount" {
		t.Errorf("header = %q, want canonical column order", lines[0])
	}
	if len(lines) != 2 {
		t.Fatalf("file has %d lines, want header plus 1 row", len(lines))
	}
	if lines[1] != "2024-01-05,Bank,,Interest,,12.5" {
		t.Errorf("row = %q", lines[1])
	}

	// No temp file debris after a successful write.
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	for _, de := range dirEntries {
		if de.Name() != "savings.csv" {
			t.Errorf("leftover file %q in ledger directory", de.Name())
		}
	}
}

func TestDedupe(t *testing.T) {
	a := entry("2024-01-05", "Bank", "Interest", 12.50)
	b := a
	b.Purpose = "kept from first occurrence only"
	c := entry("2024-01-05", "Bank", "Interest", 13.00) // different amount, distinct key

	got := Dedupe([]core.SavingsEntry{a, b, c})
	if len(got) != 2 {
		t.Fatalf("Dedupe() = %d rows, want 2", len(got))
	}
	if got[0].Purpose != "" {
		t.Errorf("Dedupe kept the later duplicate, want first occurrence")
	}
	if got[1].Amount != 13.00 {
		t.Errorf("distinct row lost: %+v", got)
	}
}
