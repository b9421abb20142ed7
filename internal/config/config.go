package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"haushalt/internal/core"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Storage
	SQLiteDBPath      string
	RulesPath         string
	SavingsLedgerPath string

	// Settings file (budgets, accounts, ignore lists)
	SettingsPath string

	// Bank API
	BankBaseURL   string
	BankSecretID  string
	BankSecretKey string

	// AMQP (optional; empty URL disables event publishing)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// Account pairs a local display name with the bank API account id.
// Accounts without an id are file-fed (CSV import) and are skipped by
// the daily download.
type Account struct {
	Name          string `yaml:"name"`
	BankAccountID string `yaml:"bank_account_id,omitempty"`
}

// Settings is the YAML-backed part of the configuration: the budget
// table and account list the aggregation scope is built from, plus the
// savings-import ignore lists.
type Settings struct {
	Budgets        core.Budgets `yaml:"budgets"`
	Accounts       []Account    `yaml:"accounts"`
	IgnoreIBANs    []string     `yaml:"ignore_ibans"`
	IgnorePartners []string     `yaml:"ignore_partners"`
}

func Load() *Config {
	return &Config{
		SQLiteDBPath:      getEnv("SQLITE_DB_PATH", "./data/transactions.db"),
		RulesPath:         getEnv("RULES_PATH", "./data/rules.json"),
		SavingsLedgerPath: getEnv("SAVINGS_LEDGER_PATH", "./data/savings_account.csv"),

		SettingsPath: getEnv("SETTINGS_PATH", "./settings.yaml"),

		BankBaseURL:   getEnv("BANK_BASE_URL", ""),
		BankSecretID:  getEnv("GC_SECRET_ID", ""),
		BankSecretKey: getEnv("GC_SECRET_KEY", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "haushalt"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "classification_runs"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	for name, path := range map[string]string{
		"SQLite database path": c.SQLiteDBPath,
		"rules path":           c.RulesPath,
		"savings ledger path":  c.SavingsLedgerPath,
	} {
		if path == "" {
			errors = append(errors, fmt.Sprintf("%s cannot be empty", name))
			continue
		}
		dir := filepath.Dir(path)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create directory '%s' for %s: %v", dir, name, err))
				}
			}
		}
	}

	// Bank secrets come as a pair
	if (c.BankSecretID == "") != (c.BankSecretKey == "") {
		errors = append(errors, "GC_SECRET_ID and GC_SECRET_KEY must both be set or both be empty")
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// LoadSettings reads and validates the YAML settings file.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings file: %w", err)
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse settings file: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the settings for problems, collecting all of them.
func (s *Settings) Validate() error {
	var errors []string

	for category, limit := range s.Budgets {
		if strings.TrimSpace(category) == "" {
			errors = append(errors, "budget category name cannot be empty")
		}
		if limit < 0 {
			errors = append(errors, fmt.Sprintf("budget for '%s' cannot be negative: %v", category, limit))
		}
	}

	seen := make(map[string]bool)
	for i, acc := range s.Accounts {
		if strings.TrimSpace(acc.Name) == "" {
			errors = append(errors, fmt.Sprintf("account %d has an empty name", i))
			continue
		}
		if seen[acc.Name] {
			errors = append(errors, fmt.Sprintf("duplicate account name '%s'", acc.Name))
		}
		seen[acc.Name] = true
	}

	if len(errors) > 0 {
		return fmt.Errorf("settings validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// AccountNames returns the configured account names in file order.
func (s *Settings) AccountNames() []string {
	names := make([]string, 0, len(s.Accounts))
	for _, acc := range s.Accounts {
		names = append(names, acc.Name)
	}
	return names
}

// BankAccounts returns only the accounts wired to the bank API.
func (s *Settings) BankAccounts() []Account {
	var out []Account
	for _, acc := range s.Accounts {
		if acc.BankAccountID != "" {
			out = append(out, acc)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
