// Package bank fetches booked transactions from the GoCardless bank
// account data API. It is an external collaborator of the core: the
// engines never talk to it directly, the daily flow does.
package bank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"haushalt/internal/core"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://bankaccountdata.gocardless.com"

const tokenCacheKey = "access_token"

// Client talks to the bank data API. Access tokens are cached with a TTL
// shorter than their server-side lifetime, and requests are rate limited
// to stay under the provider's per-day quota.
type Client struct {
	baseURL   string
	secretID  string
	secretKey string
	http      *http.Client
	tokens    *gocache.Cache
	limiter   *rate.Limiter
}

func NewClient(baseURL, secretID, secretKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:   baseURL,
		secretID:  secretID,
		secretKey: secretKey,
		http:      &http.Client{Timeout: 30 * time.Second},
		// Tokens live 24h server-side; refresh well before that.
		tokens: gocache.New(12*time.Hour, time.Hour),
		// The provider allows a small number of account calls per day;
		// one request per two seconds keeps bursts polite.
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 1),
	}
}

type tokenResponse struct {
	Access string `json:"access"`
}

type transactionsResponse struct {
	Transactions struct {
		Booked []bookedTransaction `json:"booked"`
	} `json:"transactions"`
}

type bookedTransaction struct {
	TransactionID     string `json:"transactionId"`
	BookingDate       string `json:"bookingDate"`
	ValueDate         string `json:"valueDate"`
	TransactionAmount struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
	} `json:"transactionAmount"`
	RemittanceStructured   string `json:"remittanceInformationStructured"`
	RemittanceUnstructured string `json:"remittanceInformationUnstructured"`
	InternalTransactionID  string `json:"internalTransactionId"`
}

// FetchBooked returns the booked transactions of one bank account,
// tagged with the given local account name.
func (c *Client) FetchBooked(ctx context.Context, accountID, accountName string) ([]core.Transaction, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	url := fmt.Sprintf("%s/api/v2/accounts/%s/transactions/", c.baseURL, accountID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build transactions request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch transactions: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch transactions: status %d: %s", resp.StatusCode, body)
	}

	var payload transactionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}

	txs := make([]core.Transaction, 0, len(payload.Transactions.Booked))
	for _, b := range payload.Transactions.Booked {
		t, err := b.toTransaction(accountName)
		if err != nil {
			slog.WarnContext(ctx, "Skipping malformed booked transaction",
				"transaction_id", b.TransactionID, "error", err)
			continue
		}
		txs = append(txs, t)
	}

	slog.InfoContext(ctx, "Fetched booked transactions",
		"account", accountName, "count", len(txs))
	return txs, nil
}

func (b bookedTransaction) toTransaction(account string) (core.Transaction, error) {
	bookingDate, err := time.Parse("2006-01-02", b.BookingDate)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse booking date: %w", err)
	}
	var valueDate time.Time
	if b.ValueDate != "" {
		valueDate, err = time.Parse("2006-01-02", b.ValueDate)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("parse value date: %w", err)
		}
	}
	amount, err := strconv.ParseFloat(b.TransactionAmount.Amount, 64)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse amount %q: %w", b.TransactionAmount.Amount, err)
	}

	currency := b.TransactionAmount.Currency
	if currency == "" {
		currency = "EUR"
	}
	remittance := b.RemittanceStructured
	if remittance == "" {
		remittance = b.RemittanceUnstructured
	}

	return core.Transaction{
		ID:              b.TransactionID,
		Account:         account,
		BookingDate:     bookingDate,
		ValueDate:       valueDate,
		Amount:          amount,
		Currency:        currency,
		Remittance:      remittance,
		CounterpartyRef: b.InternalTransactionID,
	}, nil
}

// accessToken exchanges the secret pair for an access token, reusing a
// cached one while it is fresh.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	if cached, ok := c.tokens.Get(tokenCacheKey); ok {
		return cached.(string), nil
	}

	body, err := json.Marshal(map[string]string{
		"secret_id":  c.secretID,
		"secret_key": c.secretKey,
	})
	if err != nil {
		return "", fmt.Errorf("encode token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v2/token/new/", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("request token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("request token: status %d: %s", resp.StatusCode, respBody)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tr.Access == "" {
		return "", fmt.Errorf("token response missing access token")
	}

	c.tokens.Set(tokenCacheKey, tr.Access, gocache.DefaultExpiration)
	return tr.Access, nil
}
