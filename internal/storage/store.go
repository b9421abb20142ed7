// Package storage persists transactions in SQLite. It is the one
// stateful collaborator of the classification and aggregation engines:
// both consume full snapshots from here and hand category updates back.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"haushalt/internal/core"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Insert stores new transactions, silently skipping ids already present.
// The bank source re-delivers overlapping history on every fetch, so
// duplicate ids are expected, not an error. Returns the number of rows
// actually inserted.
func (s *Store) Insert(ctx context.Context, txs []core.Transaction) (int, error) {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert tx: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO transactions
			(transactionId, account, bookingDate, valueDate, amount, currency, remittance, counterpartyRef, category)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, t := range txs {
		if err := t.Validate(); err != nil {
			return 0, fmt.Errorf("invalid transaction %q: %w", t.ID, err)
		}
		res, err := stmt.ExecContext(ctx,
			t.ID, t.Account,
			t.BookingDate.Format("2006-01-02"), nullableDate(t.ValueDate),
			t.Amount, t.Currency, t.Remittance, t.CounterpartyRef,
			nullableString(t.Category))
		if err != nil {
			return 0, fmt.Errorf("insert transaction %q: %w", t.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		inserted += int(n)
	}

	if err := dbTx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert tx: %w", err)
	}

	slog.InfoContext(ctx, "Transactions inserted",
		"fetched", len(txs), "new", inserted)
	return inserted, nil
}

// GetAll returns the full transaction set ordered by booking date.
func (s *Store) GetAll(ctx context.Context) ([]core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT transactionId, account, bookingDate, valueDate, amount, currency, remittance, counterpartyRef, category
		FROM transactions
		ORDER BY bookingDate, transactionId`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var t core.Transaction
		var bookingDate string
		var valueDate, category sql.NullString
		if err := rows.Scan(&t.ID, &t.Account, &bookingDate, &valueDate,
			&t.Amount, &t.Currency, &t.Remittance, &t.CounterpartyRef, &category); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.BookingDate, err = time.Parse("2006-01-02", bookingDate)
		if err != nil {
			return nil, fmt.Errorf("parse booking date %q: %w", bookingDate, err)
		}
		if valueDate.Valid {
			t.ValueDate, err = time.Parse("2006-01-02", valueDate.String)
			if err != nil {
				return nil, fmt.Errorf("parse value date %q: %w", valueDate.String, err)
			}
		}
		t.Category = category.String
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// SetCategory applies a manual category override to one transaction.
func (s *Store) SetCategory(ctx context.Context, id, category string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET category = ? WHERE transactionId = ?`,
		nullableString(category), id)
	if err != nil {
		return fmt.Errorf("set category: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %q not found", id)
	}
	return nil
}

// ApplyCategories writes a full classification result back in one
// transaction, so readers never observe a half-applied run.
func (s *Store) ApplyCategories(ctx context.Context, categories map[string]string) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin category tx: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.PrepareContext(ctx,
		`UPDATE transactions SET category = ? WHERE transactionId = ?`)
	if err != nil {
		return fmt.Errorf("prepare category update: %w", err)
	}
	defer stmt.Close()

	for id, category := range categories {
		if _, err := stmt.ExecContext(ctx, nullableString(category), id); err != nil {
			return fmt.Errorf("update category for %q: %w", id, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit category tx: %w", err)
	}

	slog.InfoContext(ctx, "Categories applied", "count", len(categories))
	return nil
}

// CountUnlabeled returns how many transactions still have no category.
func (s *Store) CountUnlabeled(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE category IS NULL OR category = ''`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unlabeled: %w", err)
	}
	return n, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format("2006-01-02")
}
