package savings

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"haushalt/internal/core"
)

// header is the canonical column order of the ledger file.
var header = []string{"bookingDate", "partner", "partnerIBAN", "remittance", "purpose", "amount"}

// Ledger owns the canonical savings CSV. Reads tolerate a missing file;
// writes go through a temp file and an atomic rename, so the stored file
// is always either the old or the new complete version. Concurrent
// writers need external locking; the read-merge-write sequence itself is
// not safe for them.
type Ledger struct {
	path string
}

func NewLedger(path string) *Ledger {
	return &Ledger{path: path}
}

func (l *Ledger) Path() string {
	return l.path
}

// Read loads all ledger rows. A missing or empty file yields an empty
// ledger.
func (l *Ledger) Read() ([]core.SavingsEntry, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	entries := make([]core.SavingsEntry, 0, len(records)-1)
	for i, rec := range records[1:] { // skip header
		if len(rec) < len(header) {
			return nil, fmt.Errorf("ledger row %d: expected %d columns, got %d", i+2, len(header), len(rec))
		}
		date, err := time.Parse("2006-01-02", rec[0])
		if err != nil {
			return nil, fmt.Errorf("ledger row %d: parse date: %w", i+2, err)
		}
		amount, err := strconv.ParseFloat(rec[5], 64)
		if err != nil {
			return nil, fmt.Errorf("ledger row %d: parse amount: %w", i+2, err)
		}
		entries = append(entries, core.SavingsEntry{
			BookingDate: date,
			Partner:     rec[1],
			PartnerIBAN: rec[2],
			Remittance:  rec[3],
			Purpose:     rec[4],
			Amount:      amount,
		})
	}
	return entries, nil
}

// Append merges one normalized entry into the ledger: dedupe on the
// composite key keeping the first occurrence, sort by date ascending,
// write atomically. Re-submitting an identical entry is a no-op. Returns
// the full updated set.
func (l *Ledger) Append(entry core.SavingsEntry) ([]core.SavingsEntry, error) {
	existing, err := l.Read()
	if err != nil {
		return nil, err
	}

	merged := Dedupe(append(existing, entry))
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].BookingDate.Before(merged[j].BookingDate)
	})

	if err := l.Write(merged); err != nil {
		return nil, err
	}

	slog.Info("Ledger entry appended",
		"date", entry.BookingDate.Format("2006-01-02"),
		"partner", entry.Partner,
		"amount", entry.Amount,
		"rows", len(merged))
	return merged, nil
}

// Write replaces the ledger file with the given rows via a temp file and
// rename, so a crash mid-write never leaves a truncated file behind.
func (l *Ledger) Write(entries []core.SavingsEntry) error {
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ledger directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(l.path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp ledger: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("write ledger header: %w", err)
	}
	for _, e := range entries {
		rec := []string{
			e.BookingDate.Format("2006-01-02"),
			e.Partner,
			e.PartnerIBAN,
			e.Remittance,
			e.Purpose,
			core.FormatAmount(e.Amount),
		}
		if err := w.Write(rec); err != nil {
			tmp.Close()
			return fmt.Errorf("write ledger row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush ledger: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp ledger: %w", err)
	}
	if err := os.Rename(tmp.Name(), l.path); err != nil {
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}

// Dedupe collapses rows sharing the composite
// (bookingDate, partner, remittance, amount) key, keeping the first.
func Dedupe(entries []core.SavingsEntry) []core.SavingsEntry {
	seen := make(map[string]bool, len(entries))
	out := make([]core.SavingsEntry, 0, len(entries))
	for _, e := range entries {
		key := e.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	return out
}
