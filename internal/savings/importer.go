package savings

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"haushalt/internal/core"
)

// columnMap translates the bank export's German headers to the canonical
// schema, matched case-insensitively.
var columnMap = map[string]string{
	"buchungstag":              "bookingDate",
	"name zahlungsbeteiligter": "partner",
	"iban zahlungsbeteiligter": "partnerIBAN",
	"buchungstext":             "remittance",
	"verwendungszweck":         "purpose",
	"betrag":                   "amount",
}

// Importer converts a semicolon-separated bank export of the savings
// account into the canonical ledger. Rows without a parseable date or
// amount are dropped, as are entries from configured ignore lists
// (internal counter-bookings that would double count transfers).
type Importer struct {
	out            *Ledger
	ignoreIBANs    map[string]bool
	ignorePartners map[string]bool
}

func NewImporter(out *Ledger, ignoreIBANs, ignorePartners []string) *Importer {
	imp := &Importer{
		out:            out,
		ignoreIBANs:    make(map[string]bool, len(ignoreIBANs)),
		ignorePartners: make(map[string]bool, len(ignorePartners)),
	}
	for _, iban := range ignoreIBANs {
		imp.ignoreIBANs[NormalizeIBAN(iban)] = true
	}
	for _, p := range ignorePartners {
		imp.ignorePartners[p] = true
	}
	return imp
}

// Run reads the export at srcPath and writes the normalized, sorted,
// deduplicated result to the canonical ledger. Returns the number of
// rows written.
func (imp *Importer) Run(srcPath string) (int, error) {
	f, err := os.Open(srcPath)
	if err != nil {
		return 0, fmt.Errorf("open export: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = ';'
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("read export: %w", err)
	}
	if len(records) == 0 {
		return 0, fmt.Errorf("export is empty: %s", srcPath)
	}

	cols := mapColumns(records[0])
	entries := make([]core.SavingsEntry, 0, len(records)-1)
	dropped := 0
	for _, rec := range records[1:] {
		entry, ok := imp.convertRow(rec, cols)
		if !ok {
			dropped++
			continue
		}
		entries = append(entries, entry)
	}

	entries = Dedupe(entries)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].BookingDate.Before(entries[j].BookingDate)
	})

	if err := imp.out.Write(entries); err != nil {
		return 0, err
	}
	slog.Info("Savings export imported",
		"source", srcPath, "rows", len(entries), "dropped", dropped)
	return len(entries), nil
}

// mapColumns resolves each canonical column to its index in the export
// header, or -1 when the export lacks it.
func mapColumns(headerRow []string) map[string]int {
	cols := make(map[string]int, len(columnMap))
	for _, canonical := range columnMap {
		cols[canonical] = -1
	}
	for i, name := range headerRow {
		if canonical, ok := columnMap[strings.ToLower(strings.TrimSpace(name))]; ok {
			cols[canonical] = i
		}
	}
	return cols
}

func (imp *Importer) convertRow(rec []string, cols map[string]int) (core.SavingsEntry, bool) {
	field := func(name string) string {
		idx := cols[name]
		if idx < 0 || idx >= len(rec) {
			return ""
		}
		return rec[idx]
	}

	date, err := ParseDate(field("bookingDate"))
	if err != nil {
		return core.SavingsEntry{}, false
	}
	amount, err := ParseAmount(stripCurrencyArtifacts(field("amount")))
	if err != nil {
		return core.SavingsEntry{}, false
	}

	entry := core.SavingsEntry{
		BookingDate: date,
		Partner:     strings.TrimSpace(field("partner")),
		PartnerIBAN: NormalizeIBAN(field("partnerIBAN")),
		Remittance:  strings.TrimSpace(field("remittance")),
		Purpose:     strings.TrimSpace(field("purpose")),
		Amount:      amount,
	}

	if imp.ignoreIBANs[entry.PartnerIBAN] || imp.ignorePartners[entry.Partner] {
		return core.SavingsEntry{}, false
	}
	return entry, true
}

// stripCurrencyArtifacts removes "+€" / "-€" style prefixes some exports
// embed in the amount column, keeping the sign.
func stripCurrencyArtifacts(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "+")
	return strings.ReplaceAll(s, "€", "")
}
