// Package savings normalizes manually entered and bank-exported savings
// rows into the canonical six-column ledger schema and keeps the ledger
// file deduplicated and date-sorted.
package savings

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"haushalt/internal/core"
)

// Direction forces the sign of a manual entry's amount, independent of
// any sign embedded in the raw text.
type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// ValidationError reports a raw entry that failed normalization. The
// reason is meant to be shown to the person entering the row; the input
// is never partially applied.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// RawEntry is one manual ledger entry as typed in, before normalization.
type RawEntry struct {
	Date       string
	Partner    string
	IBAN       string
	Remittance string
	Purpose    string
	Amount     string
	Direction  Direction
}

var (
	isoDate    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	whitespace = regexp.MustCompile(`\s`)
)

// dateLayouts are the accepted non-ISO entry formats.
var dateLayouts = []string{"02.01.2006", "02/01/2006"}

// ParseDate accepts ISO (YYYY-MM-DD), DD.MM.YYYY or DD/MM/YYYY and
// normalizes to a calendar date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, &ValidationError{Field: "date", Reason: "date is required"}
	}
	if isoDate.MatchString(s) {
		t, err := time.Parse("2006-01-02", s)
		if err == nil {
			return t, nil
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &ValidationError{Field: "date", Reason: fmt.Sprintf("unrecognized date %q", s)}
}

// ParseAmount accepts EU grouping ("1.234,56") or plain decimal. A comma
// selects the EU reading, where dots are thousand separators; without a
// comma the text parses as a plain decimal.
func ParseAmount(s string) (float64, error) {
	s = whitespace.ReplaceAllString(s, "")
	if s == "" {
		return 0, &ValidationError{Field: "amount", Reason: "amount is required"}
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	if s == "." || s == "-" {
		return 0, &ValidationError{Field: "amount", Reason: "not a number"}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &ValidationError{Field: "amount", Reason: fmt.Sprintf("not a number: %q", s)}
	}
	return v, nil
}

// NormalizeIBAN uppercases and strips whitespace. The format is not
// validated beyond that; a wrong IBAN should not block a submission.
func NormalizeIBAN(s string) string {
	return strings.ToUpper(whitespace.ReplaceAllString(s, ""))
}

// Normalize validates a raw entry and produces the canonical row. The
// direction flag decides the sign regardless of the typed text.
func Normalize(raw RawEntry) (core.SavingsEntry, error) {
	date, err := ParseDate(raw.Date)
	if err != nil {
		return core.SavingsEntry{}, err
	}
	amount, err := ParseAmount(raw.Amount)
	if err != nil {
		return core.SavingsEntry{}, err
	}
	switch raw.Direction {
	case DirectionOut:
		amount = -abs(amount)
	case DirectionIn:
		amount = abs(amount)
	default:
		return core.SavingsEntry{}, &ValidationError{Field: "direction", Reason: fmt.Sprintf("must be IN or OUT, got %q", raw.Direction)}
	}

	return core.SavingsEntry{
		BookingDate: date,
		Partner:     strings.TrimSpace(raw.Partner),
		PartnerIBAN: NormalizeIBAN(raw.IBAN),
		Remittance:  strings.TrimSpace(raw.Remittance),
		Purpose:     strings.TrimSpace(raw.Purpose),
		Amount:      amount,
	}, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
