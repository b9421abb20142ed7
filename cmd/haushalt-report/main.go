package main

import (
	"context"
	"flag"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"haushalt/internal/analytics"
	"haushalt/internal/config"
	applog "haushalt/internal/log"
	"haushalt/internal/report"
	"haushalt/internal/savings"
	"haushalt/internal/storage"
)

// SavingsAccount is the pseudo account the ledger feeds into the
// aggregation scope under.
const SavingsAccount = "Savings"

func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.ComponentApp)
	applog.SetDefault(logger)

	month := flag.String("month", "", "reporting month as YYYY-MM (default: latest month in scope)")
	accountsFlag := flag.String("accounts", "", "comma-separated account selection (default: all)")
	flag.Parse()

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

	store, err := storage.NewStore(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open transaction store", applog.FieldError, err, applog.FieldPath, cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()

	txs, err := store.GetAll(context.Background())
	if err != nil {
		logger.Error("Failed to load transactions", applog.FieldError, err)
		os.Exit(1)
	}

	// The savings ledger joins the scope as a transfer-only account.
	entries, err := savings.NewLedger(cfg.SavingsLedgerPath).Read()
	if err != nil {
		logger.Error("Failed to read savings ledger", applog.FieldError, err, applog.FieldPath, cfg.SavingsLedgerPath)
		os.Exit(1)
	}
	for _, e := range entries {
		txs = append(txs, e.AsTransaction(SavingsAccount))
	}

	var accounts []string
	if *accountsFlag != "" {
		for _, name := range strings.Split(*accountsFlag, ",") {
			accounts = append(accounts, strings.TrimSpace(name))
		}
	}

	agg := analytics.NewAggregator(settings.Budgets)
	rep := agg.Aggregate(txs, accounts, *month)
	report.Render(os.Stdout, rep)
}
