package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"haushalt/internal/amqp"
	"haushalt/internal/bank"
	"haushalt/internal/config"
	"haushalt/internal/core"
	applog "haushalt/internal/log"
	"haushalt/internal/rules"
	"haushalt/internal/storage"
)

// haushalt-daily is the cron entrypoint: download new transactions from
// the bank API, classify the whole store against the rule list, and
// announce the run over AMQP when configured.
func main() {
	// Load .env file for local development (ignore errors in production)
	_ = godotenv.Load()

	logger := applog.New(applog.ComponentApp)
	applog.SetDefault(logger)

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewStore(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open transaction store", applog.FieldError, err, applog.FieldPath, cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()

	if cfg.BankSecretID != "" {
		if err := download(ctx, cfg, settings, store); err != nil {
			// Labeling still runs on whatever is already stored.
			logger.Error("Download failed, continuing with stored transactions", applog.FieldError, err)
		}
	} else {
		logger.Info("Bank secrets not configured, skipping download")
	}

	labeled, total, err := classify(ctx, cfg, store)
	if err != nil {
		logger.Error("Classification failed", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Classification run finished",
		"total", total, "labeled", labeled, "unlabeled", total-labeled)

	if cfg.AMQPURL != "" {
		publishRun(ctx, cfg, logger, total, labeled)
	}
}

// download fetches booked transactions for every bank-wired account
// concurrently and inserts the new ones.
func download(ctx context.Context, cfg *config.Config, settings *config.Settings, store *storage.Store) error {
	accounts := settings.BankAccounts()
	if len(accounts) == 0 {
		return nil
	}

	client := bank.NewClient(cfg.BankBaseURL, cfg.BankSecretID, cfg.BankSecretKey)

	var mu sync.Mutex
	var fetched []core.Transaction

	g, gctx := errgroup.WithContext(ctx)
	for _, acc := range accounts {
		g.Go(func() error {
			txs, err := client.FetchBooked(gctx, acc.BankAccountID, acc.Name)
			if err != nil {
				return err
			}
			mu.Lock()
			fetched = append(fetched, txs...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	_, err := store.Insert(ctx, fetched)
	return err
}

// classify re-runs the full rule list over the whole store and writes
// the categories back. Returns (labeled, total).
func classify(ctx context.Context, cfg *config.Config, store *storage.Store) (int, int, error) {
	ruleList, err := rules.NewStore(cfg.RulesPath).Load()
	if err != nil {
		return 0, 0, err
	}

	engine, err := rules.NewEngine(ruleList)
	if err != nil {
		// Invalid rules are skipped; classify with the rest.
		applog.New(applog.ComponentRules).Warn("Some rules failed to compile", applog.FieldError, err)
	}

	txs, err := store.GetAll(ctx)
	if err != nil {
		return 0, 0, err
	}

	classified := engine.Classify(txs)
	categories := make(map[string]string, len(classified))
	labeled := 0
	for _, t := range classified {
		categories[t.ID] = t.Category
		if t.Category != "" {
			labeled++
		}
	}

	if err := store.ApplyCategories(ctx, categories); err != nil {
		return 0, 0, err
	}
	return labeled, len(classified), nil
}

func publishRun(ctx context.Context, cfg *config.Config, logger *applog.Logger, total, labeled int) {
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to connect to AMQP", applog.FieldError, err)
		return
	}
	defer client.Close()

	msg := amqp.NewClassificationRunMessage(total, labeled)
	if err := client.PublishClassificationRun(ctx, msg); err != nil {
		logger.Error("Failed to publish classification run", applog.FieldError, err)
	}
}
