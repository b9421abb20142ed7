package bank

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const transactionsPayload = `{
	"transactions": {
		"booked": [
			{
				"transactionId": "tx-1",
				"bookingDate": "2024-02-05",
				"valueDate": "2024-02-06",
				"transactionAmount": {"amount": "-42.50", "currency": "EUR"},
				"remittanceInformationStructured": "REWE SAGT DANKE",
				"internalTransactionId": "int-1"
			},
			{
				"transactionId": "tx-2",
				"bookingDate": "2024-02-07",
				"transactionAmount": {"amount": "2000.00"},
				"remittanceInformationUnstructured": "Salary February"
			},
			{
				"transactionId": "tx-broken",
				"bookingDate": "not a date",
				"transactionAmount": {"amount": "1.00"}
			}
		]
	}
}`

func newAPIServer(t *testing.T, tokenExchanges *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v2/token/new/", func(w http.ResponseWriter, r *http.Request) {
		var creds map[string]string
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		if creds["secret_id"] != "sid" || creds["secret_key"] != "skey" {
			http.Error(w, "bad credentials", http.StatusUnauthorized)
			return
		}
		tokenExchanges.Add(1)
		json.NewEncoder(w).Encode(map[string]string{"access": "test-token"})
	})
	mux.HandleFunc("GET /api/v2/accounts/{id}/transactions/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}
		w.Write([]byte(transactionsPayload))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_FetchBooked(t *testing.T) {
	var exchanges atomic.Int32
	srv := newAPIServer(t, &exchanges)
	c := NewClient(srv.URL, "sid", "skey")

	txs, err := c.FetchBooked(context.Background(), "acc-1", "Main")
	if err != nil {
		t.Fatalf("FetchBooked() error = %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("FetchBooked() = %d transactions, want 2 (malformed row skipped)", len(txs))
	}

	first := txs[0]
	if first.ID != "tx-1" || first.Account != "Main" {
		t.Errorf("first tx identity = %q/%q, want tx-1/Main", first.ID, first.Account)
	}
	if first.Amount != -42.50 || first.Currency != "EUR" {
		t.Errorf("first tx amount = %v %s, want -42.50 EUR", first.Amount, first.Currency)
	}
	if first.Remittance != "REWE SAGT DANKE" {
		t.Errorf("Remittance = %q, want structured remittance preferred", first.Remittance)
	}
	if first.CounterpartyRef != "int-1" {
		t.Errorf("CounterpartyRef = %q, want int-1", first.CounterpartyRef)
	}
	if !first.BookingDate.Equal(time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("BookingDate = %v", first.BookingDate)
	}
	if !first.ValueDate.Equal(time.Date(2024, 2, 6, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("ValueDate = %v", first.ValueDate)
	}

	second := txs[1]
	if second.Currency != "EUR" {
		t.Errorf("missing currency should default to EUR, got %q", second.Currency)
	}
	if second.Remittance != "Salary February" {
		t.Errorf("Remittance = %q, want unstructured fallback", second.Remittance)
	}
	if !second.ValueDate.IsZero() {
		t.Errorf("missing value date should stay zero, got %v", second.ValueDate)
	}
}

func TestClient_TokenIsCached(t *testing.T) {
	var exchanges atomic.Int32
	srv := newAPIServer(t, &exchanges)
	c := NewClient(srv.URL, "sid", "skey")
	// The default limiter would make the second fetch wait two seconds.
	c.limiter.SetLimit(1000)

	ctx := context.Background()
	if _, err := c.FetchBooked(ctx, "acc-1", "Main"); err != nil {
		t.Fatalf("first FetchBooked() error = %v", err)
	}
	if _, err := c.FetchBooked(ctx, "acc-2", "Joint"); err != nil {
		t.Fatalf("second FetchBooked() error = %v", err)
	}
	if got := exchanges.Load(); got != 1 {
		t.Errorf("token exchanges = %d, want 1 (cached token reused)", got)
	}
}

func TestClient_BadCredentials(t *testing.T) {
	var exchanges atomic.Int32
	srv := newAPIServer(t, &exchanges)
	c := NewClient(srv.URL, "sid", "wrong")

	if _, err := c.FetchBooked(context.Background(), "acc-1", "Main"); err == nil {
		t.Error("FetchBooked() with bad credentials should error")
	}
}

func TestNewClient_DefaultBaseURL(t *testing.T) {
	c := NewClient("", "sid", "skey")
	if c.baseURL != DefaultBaseURL {
		t.Errorf("baseURL = %q, want %q", c.baseURL, DefaultBaseURL)
	}
}
