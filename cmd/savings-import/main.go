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

// savings-import normalizes a raw bank export of the savings account
// into the canonical ledger, applying the configured ignore lists.
func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.ComponentSavings)
	applog.SetDefault(logger)

	src := flag.String("src", "", "path to the semicolon-separated bank export")
	flag.Parse()

	if *src == "" {
		fmt.Fprintln(os.Stderr, "usage: savings-import -src <export.csv>")
		os.Exit(2)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	settings, err := config.LoadSettings(cfg.SettingsPath)
	if err != nil {
		logger.Error("Failed to load settings", applog.FieldError, err, applog.FieldPath, cfg.SettingsPath)
		os.Exit(1)
	}

	ledger := savings.NewLedger(cfg.SavingsLedgerPath)
	importer := savings.NewImporter(ledger, settings.IgnoreIBANs, settings.IgnorePartners)

	rows, err := importer.Run(*src)
	if err != nil {
		logger.Error("Import failed", applog.FieldError, err, applog.FieldPath, *src)
		os.Exit(1)
	}

	fmt.Printf("Processed and saved %d rows to %s\n", rows, ledger.Path())
}
