package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"financas/internal/auth"
	"financas/internal/core"
)

type fakeLedger struct {
	account      core.Account
	summary      core.Summary
	overview     core.CardOverview
	transactions []core.Transaction
	categories   []core.Category

	recordErr    error
	recordedType core.TransactionType
	recordedAmt  core.Money

	payResult core.PaymentResult
	payErr    error

	summaryCalls int
	resetCalled  bool
}

func (f *fakeLedger) RecordTransaction(_ context.Context, _ int64, txType core.TransactionType, amount core.Money, category, _ string) (int64, error) {
	entry := core.Transaction{AccountID: 1, Type: txType, Amount: amount, Category: category}
	if err := entry.Validate(); err != nil {
		return 0, err
	}
	if f.recordErr != nil {
		return 0, f.recordErr
	}
	f.recordedType = txType
	f.recordedAmt = amount
	return 42, nil
}

func (f *fakeLedger) AdjustBalance(_ context.Context, _ int64, deltaCents int64, _ string) (core.Money, error) {
	if deltaCents == 0 {
		return core.Money{}, core.ErrInvalidAmount
	}
	return core.Money{Cents: f.account.Balance.Cents + deltaCents}, nil
}

func (f *fakeLedger) PayCreditBill(_ context.Context, _ int64, _ core.PaymentType, _ core.Money) (core.PaymentResult, error) {
	if f.payErr != nil {
		return core.PaymentResult{}, f.payErr
	}
	return f.payResult, nil
}

func (f *fakeLedger) ResetStatement(context.Context, int64) error {
	f.resetCalled = true
	return nil
}

func (f *fakeLedger) Summary(context.Context, int64, time.Time) (core.Summary, error) {
	f.summaryCalls++
	return f.summary, nil
}

func (f *fakeLedger) CardOverview(context.Context, int64, time.Time) (core.CardOverview, error) {
	return f.overview, nil
}

func (f *fakeLedger) UpdateCardSettings(_ context.Context, _ int64, settings core.CardSettings) (core.Account, error) {
	account := f.account
	if settings.CreditLimit != nil {
		if settings.CreditLimit.Cents < account.CreditUsed.Cents {
			return core.Account{}, core.ErrCreditLimit
		}
		account.CreditLimit = *settings.CreditLimit
	}
	if settings.DueDay != nil {
		account.CreditDueDay = *settings.DueDay
	}
	return account, nil
}

func (f *fakeLedger) ListTransactions(context.Context, int64, int) ([]core.Transaction, error) {
	return f.transactions, nil
}

func (f *fakeLedger) ListCategories(context.Context) ([]core.Category, error) {
	return f.categories, nil
}

func (f *fakeLedger) GetAccountByUserID(context.Context, int64) (core.Account, error) {
	return f.account, nil
}

type fakeAuth struct{}

func (fakeAuth) Login(_ context.Context, username, password string) (string, error) {
	if username == "admin" && password == "secret" {
		return "valid-token", nil
	}
	return "", auth.ErrInvalidCredentials
}

func (fakeAuth) Verify(token string) (auth.Claims, error) {
	if token == "valid-token" {
		return auth.Claims{UserID: 1, Username: "admin"}, nil
	}
	return auth.Claims{}, auth.ErrInvalidToken
}

func (fakeAuth) ChangePassword(_ context.Context, _ int64, current, next string) error {
	if current != "secret" {
		return auth.ErrInvalidCredentials
	}
	if len(next) < 4 {
		return auth.ErrWeakPassword
	}
	return nil
}

func newTestServer(t *testing.T, ledger *fakeLedger) *Server {
	t.Helper()
	if ledger.account.ID == 0 {
		ledger.account = core.Account{
			ID:           1,
			UserID:       1,
			Balance:      core.Money{Cents: 10000},
			CreditLimit:  core.Money{Cents: 50000},
			CreditUsed:   core.Money{Cents: 5000},
			CreditDueDay: 15,
		}
	}
	s := NewServer(":0", ledger, fakeAuth{}, 1000)
	t.Cleanup(func() { s.Shutdown(context.Background()) })
	return s
}

func doRequest(s *Server, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestLogin(t *testing.T) {
	s := newTestServer(t, &fakeLedger{})

	t.Run("success", func(t *testing.T) {
		rec := doRequest(s, http.MethodPost, "/api/login", "", `{"username":"admin","password":"secret"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
		}
		if body := decodeBody(t, rec); body["token"] != "valid-token" {
			t.Errorf("token = %v", body["token"])
		}
	})

	t.Run("bad password", func(t *testing.T) {
		rec := doRequest(s, http.MethodPost, "/api/login", "", `{"username":"admin","password":"nope"}`)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		rec := doRequest(s, http.MethodGet, "/api/login", "", "")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want 405", rec.Code)
		}
	})
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, &fakeLedger{})

	paths := []string{"/api/auth", "/api/transactions", "/api/balance", "/api/credit-card", "/api/categories"}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			if rec := doRequest(s, http.MethodGet, path, "", ""); rec.Code != http.StatusUnauthorized {
				t.Errorf("no token: status = %d, want 401", rec.Code)
			}
			if rec := doRequest(s, http.MethodGet, path, "forged", ""); rec.Code != http.StatusUnauthorized {
				t.Errorf("bad token: status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestAuthCheck(t *testing.T) {
	s := newTestServer(t, &fakeLedger{})

	rec := doRequest(s, http.MethodGet, "/api/auth", "valid-token", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["authenticated"] != true {
		t.Errorf("authenticated = %v, want true", body["authenticated"])
	}
}

func TestCreateTransaction(t *testing.T) {
	ledger := &fakeLedger{}
	s := newTestServer(t, ledger)

	t.Run("created", func(t *testing.T) {
		rec := doRequest(s, http.MethodPost, "/api/transactions", "valid-token",
			`{"type":"debit","amount":"25.50","category":"Food","description":"lunch"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201, body %s", rec.Code, rec.Body.String())
		}
		if ledger.recordedAmt.Cents != 2550 {
			t.Errorf("recorded cents = %d, want 2550", ledger.recordedAmt.Cents)
		}
		if ledger.recordedType != core.Debit {
			t.Errorf("recorded type = %s, want debit", ledger.recordedType)
		}
	})

	t.Run("numeric JSON amount", func(t *testing.T) {
		rec := doRequest(s, http.MethodPost, "/api/transactions", "valid-token",
			`{"type":"credit","amount":12.34,"category":"Shopping"}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201, body %s", rec.Code, rec.Body.String())
		}
		if ledger.recordedAmt.Cents != 1234 {
			t.Errorf("recorded cents = %d, want 1234", ledger.recordedAmt.Cents)
		}
	})

	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid amount", `{"type":"debit","amount":"abc","category":"Food"}`, http.StatusBadRequest},
		{"zero amount", `{"type":"debit","amount":"0","category":"Food"}`, http.StatusBadRequest},
		{"unknown type", `{"type":"transfer","amount":"5.00","category":"Food"}`, http.StatusBadRequest},
		{"empty category", `{"type":"debit","amount":"5.00","category":""}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(s, http.MethodPost, "/api/transactions", "valid-token", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d, body %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestCreateTransactionCreditLimit(t *testing.T) {
	ledger := &fakeLedger{recordErr: core.ErrCreditLimit}
	s := newTestServer(t, ledger)

	rec := doRequest(s, http.MethodPost, "/api/transactions", "valid-token",
		`{"type":"credit","amount":"9999.00","category":"Shopping"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestListTransactions(t *testing.T) {
	ledger := &fakeLedger{
		transactions: []core.Transaction{
			{ID: 2, Type: core.Debit, Amount: core.Money{Cents: 2550}, Category: "Food", CreatedAt: time.Now()},
			{ID: 1, Type: core.Salary, Amount: core.Money{Cents: 500000}, Category: "Salary", CreatedAt: time.Now()},
		},
		categories: []core.Category{{Name: "Food", Icon: "🍔", Kind: "expense"}},
	}
	s := newTestServer(t, ledger)

	rec := doRequest(s, http.MethodGet, "/api/transactions", "valid-token", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	list, ok := body["transactions"].([]any)
	if !ok || len(list) != 2 {
		t.Fatalf("transactions = %v, want 2 entries", body["transactions"])
	}
	first := list[0].(map[string]any)
	if first["amount"] != 25.5 {
		t.Errorf("amount = %v, want 25.5", first["amount"])
	}
	if first["icon"] != "🍔" {
		t.Errorf("icon = %v, want burger", first["icon"])
	}
}

func TestGetSummaryCached(t *testing.T) {
	ledger := &fakeLedger{
		summary: core.Summary{
			Balance:         core.Money{Cents: 10000},
			CreditAvailable: core.Money{Cents: 45000},
		},
	}
	s := newTestServer(t, ledger)

	for i := 0; i < 3; i++ {
		rec := doRequest(s, http.MethodGet, "/api/balance", "valid-token", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
	}
	if ledger.summaryCalls != 1 {
		t.Errorf("summary calls = %d, want 1 (cached afterwards)", ledger.summaryCalls)
	}

	// A mutation invalidates the cached summary.
	doRequest(s, http.MethodPost, "/api/transactions", "valid-token",
		`{"type":"debit","amount":"1.00","category":"Food"}`)
	doRequest(s, http.MethodGet, "/api/balance", "valid-token", "")
	if ledger.summaryCalls != 2 {
		t.Errorf("summary calls after mutation = %d, want 2", ledger.summaryCalls)
	}
}

func TestAdjustBalance(t *testing.T) {
	s := newTestServer(t, &fakeLedger{})

	rec := doRequest(s, http.MethodPut, "/api/balance", "valid-token",
		`{"amount":"-30.00","description":"correction"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	if body := decodeBody(t, rec); body["balance"] != 70.0 {
		t.Errorf("balance = %v, want 70", body["balance"])
	}

	rec = doRequest(s, http.MethodPut, "/api/balance", "valid-token", `{"amount":"0"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("zero adjustment: status = %d, want 400", rec.Code)
	}
}

func TestCardOverview(t *testing.T) {
	ledger := &fakeLedger{
		overview: core.CardOverview{
			Limit:        core.Money{Cents: 50000},
			Used:         core.Money{Cents: 5000},
			Available:    core.Money{Cents: 45000},
			DueDay:       15,
			DaysUntilDue: 5,
			PercentUsed:  10,
		},
	}
	s := newTestServer(t, ledger)

	rec := doRequest(s, http.MethodGet, "/api/credit-card", "valid-token", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["limit"] != 500.0 || body["used"] != 50.0 {
		t.Errorf("limit/used = %v/%v, want 500/50", body["limit"], body["used"])
	}
	if body["days_until_due"] != 5.0 {
		t.Errorf("days_until_due = %v, want 5", body["days_until_due"])
	}
}

func TestPayBill(t *testing.T) {
	ledger := &fakeLedger{
		payResult: core.PaymentResult{
			PaidAmount:      core.Money{Cents: 4500},
			NewBalance:      core.Money{Cents: 5500},
			NewCreditUsed:   core.Money{},
			CreditAvailable: core.Money{Cents: 50000},
		},
	}
	s := newTestServer(t, ledger)

	rec := doRequest(s, http.MethodPost, "/api/credit-card", "valid-token", `{"payment_type":"full"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["paid_amount"] != 45.0 || body["balance"] != 55.0 {
		t.Errorf("paid/balance = %v/%v, want 45/55", body["paid_amount"], body["balance"])
	}
}

func TestPayBillInsufficientFunds(t *testing.T) {
	ledger := &fakeLedger{payErr: core.ErrInsufficientFunds}
	s := newTestServer(t, ledger)

	rec := doRequest(s, http.MethodPost, "/api/credit-card", "valid-token", `{"payment_type":"full"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestPayBillCustomAmount(t *testing.T) {
	ledger := &fakeLedger{payResult: core.PaymentResult{PaidAmount: core.Money{Cents: 1500}}}
	s := newTestServer(t, ledger)

	rec := doRequest(s, http.MethodPost, "/api/credit-card", "valid-token", `{"amount":"15.00"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(s, http.MethodPost, "/api/credit-card", "valid-token", `{"amount":"oops"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad amount: status = %d, want 400", rec.Code)
	}
}

func TestCardSettings(t *testing.T) {
	s := newTestServer(t, &fakeLedger{})

	t.Run("update both", func(t *testing.T) {
		rec := doRequest(s, http.MethodPut, "/api/credit-card", "valid-token",
			`{"credit_limit":"800.00","due_day":10}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
		}
		body := decodeBody(t, rec)
		if body["credit_limit"] != 800.0 || body["due_day"] != 10.0 {
			t.Errorf("settings = %v, want limit 800 day 10", body)
		}
	})

	t.Run("limit below usage", func(t *testing.T) {
		rec := doRequest(s, http.MethodPut, "/api/credit-card", "valid-token",
			`{"credit_limit":"10.00"}`)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Errorf("status = %d, want 422", rec.Code)
		}
	})

	t.Run("invalid due day", func(t *testing.T) {
		rec := doRequest(s, http.MethodPut, "/api/credit-card", "valid-token", `{"due_day":32}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestResetStatement(t *testing.T) {
	ledger := &fakeLedger{}
	s := newTestServer(t, ledger)

	rec := doRequest(s, http.MethodDelete, "/api/credit-card", "valid-token", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !ledger.resetCalled {
		t.Error("ResetStatement was not called")
	}
}

func TestChangePassword(t *testing.T) {
	s := newTestServer(t, &fakeLedger{})

	rec := doRequest(s, http.MethodPut, "/api/password", "valid-token",
		`{"current_password":"secret","new_password":"longenough"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(s, http.MethodPut, "/api/password", "valid-token",
		`{"current_password":"wrong","new_password":"longenough"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong current: status = %d, want 401", rec.Code)
	}

	rec = doRequest(s, http.MethodPut, "/api/password", "valid-token",
		`{"current_password":"secret","new_password":"abc"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("weak password: status = %d, want 400", rec.Code)
	}
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t, &fakeLedger{})

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doRequest(s, http.MethodGet, path, "", "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
		}
	}
}
