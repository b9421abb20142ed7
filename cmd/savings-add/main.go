package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"haushalt/internal/config"
	applog "haushalt/internal/log"
	"haushalt/internal/savings"
)

// savings-add appends one manually entered row to the canonical savings
// ledger. Validation errors are printed with their reason and nothing is
// written.
func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.ComponentSavings)
	applog.SetDefault(logger)

	date := flag.String("date", "", "booking date (YYYY-MM-DD, DD.MM.YYYY or DD/MM/YYYY)")
	partner := flag.String("partner", "", "partner name, e.g. 'Bank XYZ'")
	iban := flag.String("iban", "", "partner IBAN (optional)")
	remittance := flag.String("remittance", "", "remittance text, e.g. 'Interest 2025'")
	purpose := flag.String("purpose", "", "optional note / purpose")
	amount := flag.String("amount", "", "amount, EU format allowed, e.g. '1.234,56'")
	direction := flag.String("direction", "IN", "IN for inflow, OUT for outflow")
	flag.Parse()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	entry, err := savings.Normalize(savings.RawEntry{
		Date:       *date,
		Partner:    *partner,
		IBAN:       *iban,
		Remittance: *remittance,
		Purpose:    *purpose,
		Amount:     *amount,
		Direction:  savings.Direction(*direction),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "entry rejected: %v\n", err)
		os.Exit(1)
	}

	rows, err := savings.NewLedger(cfg.SavingsLedgerPath).Append(entry)
	if err != nil {
		logger.Error("Failed to append ledger entry", applog.FieldError, err)
		os.Exit(1)
	}

	fmt.Printf("Added entry for %s (%.2f). Ledger now has %d rows.\n",
		entry.BookingDate.Format("2006-01-02"), entry.Amount, len(rows))
}
