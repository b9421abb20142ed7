package core

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

const (
	// CategoryTransfer marks money moved between the user's own accounts.
	// Transfers are excluded from income/expense but feed the savings total.
	CategoryTransfer = "Transfer"

	// CategoryUncategorized is the presentation label for transactions no
	// rule matched. Stored as an empty category, filled in at aggregation.
	CategoryUncategorized = "Uncategorized"
)

type (
	// Transaction is one booked bank transaction. Amounts are signed:
	// positive is an inflow, negative an outflow. The classifier never
	// re-signs an amount.
	Transaction struct {
		ID              string
		Account         string
		BookingDate     time.Time
		ValueDate       time.Time
		Amount          float64
		Currency        string
		Remittance      string
		CounterpartyRef string
		Category        string // empty means unclassified
	}

	// SavingsEntry is one row of the canonical savings ledger.
	SavingsEntry struct {
		BookingDate time.Time
		Partner     string
		PartnerIBAN string
		Remittance  string
		Purpose     string
		Amount      float64
	}

	// Budgets maps a category name to its monthly limit. The pseudo
	// category "Other" collects spending in all unbudgeted categories.
	Budgets map[string]float64
)

var (
	ErrEmptyID      = errors.New("empty transaction id")
	ErrZeroDate     = errors.New("date cannot be zero")
	ErrEmptyPartner = errors.New("empty partner")
)

// YearMonth returns the transaction's month bucket as "YYYY-MM".
func (t Transaction) YearMonth() string {
	return t.BookingDate.Format("2006-01")
}

// IsTransfer reports whether the transaction moves money between own accounts.
func (t Transaction) IsTransfer() bool {
	return t.Category == CategoryTransfer
}

// DisplayCategory returns the category with the unclassified fallback applied.
func (t Transaction) DisplayCategory() string {
	if t.Category == "" {
		return CategoryUncategorized
	}
	return t.Category
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrEmptyID
	}
	if t.BookingDate.IsZero() {
		return ErrZeroDate
	}
	return nil
}

// AsTransaction converts a ledger entry into the transaction shape the
// aggregation engine consumes. Savings entries count as transfers.
func (e SavingsEntry) AsTransaction(account string) Transaction {
	return Transaction{
		ID:              e.Key(),
		Account:         account,
		BookingDate:     e.BookingDate,
		Amount:          e.Amount,
		Remittance:      e.Remittance,
		CounterpartyRef: e.Purpose,
		Category:        CategoryTransfer,
	}
}

// Key is the composite dedupe key for ledger entries. Re-submitting a row
// with the same key is a no-op.
func (e SavingsEntry) Key() string {
	return e.BookingDate.Format("2006-01-02") + "|" + e.Partner + "|" + e.Remittance + "|" + FormatAmount(e.Amount)
}

func (e SavingsEntry) Validate() error {
	if e.BookingDate.IsZero() {
		return ErrZeroDate
	}
	if strings.TrimSpace(e.Partner) == "" {
		return ErrEmptyPartner
	}
	return nil
}

// FormatAmount renders an amount as a plain decimal string, the form used
// in ledger CSVs and dedupe keys.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// IsIncomeCategory reports whether a category groups as income. The name
// check mirrors the upstream data where income categories carry the word
// in their label, e.g. "Salary (income)".
// TODO: make the marker configurable instead of the literal substring.
func IsIncomeCategory(name string) bool {
	return strings.Contains(strings.ToLower(name), "income")
}
