package http

import (
	"net/http"
	"time"

	"financas/internal/core"
)

type cardOverviewView struct {
	Limit              float64           `json:"limit"`
	Used               float64           `json:"used"`
	Available          float64           `json:"available"`
	DueDay             int               `json:"due_day"`
	DaysUntilDue       int               `json:"days_until_due"`
	PercentUsed        float64           `json:"percent_used"`
	RecentTransactions []transactionView `json:"recent_transactions"`
	CategoryBreakdown  []categorySpend   `json:"category_breakdown"`
}

type categorySpend struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
	Count    int64   `json:"count"`
}

func (s *Server) handleCreditCard(w http.ResponseWriter, r *http.Request, account core.Account) {
	switch r.Method {
	case http.MethodGet:
		s.handleCardOverview(w, r, account)
	case http.MethodPost:
		s.handlePayBill(w, r, account)
	case http.MethodPut:
		s.handleCardSettings(w, r, account)
	case http.MethodDelete:
		s.handleResetStatement(w, r, account)
	default:
		methodNotAllowed(w, "GET, POST, PUT, DELETE")
	}
}

func (s *Server) handleCardOverview(w http.ResponseWriter, r *http.Request, account core.Account) {
	key := s.cacheKey(account.ID)
	overview, ok := s.cardCache.Get(key)
	if !ok {
		var err error
		overview, err = s.ledger.CardOverview(r.Context(), account.ID, time.Now())
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.cardCache.Set(key, overview)
	}

	recent := make([]transactionView, 0, len(overview.RecentTransactions))
	for _, t := range overview.RecentTransactions {
		recent = append(recent, transactionView{
			ID:          t.ID,
			Type:        string(t.Type),
			Amount:      t.Amount.Decimal(),
			Category:    t.Category,
			Description: t.Description,
			CreatedAt:   t.CreatedAt,
		})
	}
	breakdown := make([]categorySpend, 0, len(overview.CategoryBreakdown))
	for _, c := range overview.CategoryBreakdown {
		breakdown = append(breakdown, categorySpend{
			Category: c.Category,
			Total:    c.Total.Decimal(),
			Count:    c.Count,
		})
	}

	writeJSON(w, http.StatusOK, cardOverviewView{
		Limit:              overview.Limit.Decimal(),
		Used:               overview.Used.Decimal(),
		Available:          overview.Available.Decimal(),
		DueDay:             overview.DueDay,
		DaysUntilDue:       overview.DaysUntilDue,
		PercentUsed:        overview.PercentUsed,
		RecentTransactions: recent,
		CategoryBreakdown:  breakdown,
	})
}

func (s *Server) handlePayBill(w http.ResponseWriter, r *http.Request, account core.Account) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	paymentType := core.PaymentType(parser.Get("payment_type"))
	var explicit core.Money
	if paymentType != core.PaymentFull && paymentType != core.PaymentMinimum {
		paymentType = core.PaymentCustom
		cents, err := core.ParseDecimalToCents(parser.Get("amount"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		explicit = core.Money{Cents: cents}
	}

	result, err := s.ledger.PayCreditBill(r.Context(), account.ID, paymentType, explicit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateReadCaches(account.ID)

	writeJSON(w, http.StatusOK, map[string]any{
		"paid_amount":      result.PaidAmount.Decimal(),
		"balance":          result.NewBalance.Decimal(),
		"credit_used":      result.NewCreditUsed.Decimal(),
		"credit_available": result.CreditAvailable.Decimal(),
	})
}

func (s *Server) handleCardSettings(w http.ResponseWriter, r *http.Request, account core.Account) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	var settings core.CardSettings
	if parser.Has("credit_limit") {
		cents, err := core.ParseDecimalToCents(parser.Get("credit_limit"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		settings.CreditLimit = &core.Money{Cents: cents}
	}
	if parser.Has("due_day") {
		day, err := parseDueDay(parser.Get("due_day"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		settings.DueDay = &day
	}

	updated, err := s.ledger.UpdateCardSettings(r.Context(), account.ID, settings)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateReadCaches(account.ID)

	writeJSON(w, http.StatusOK, map[string]any{
		"credit_limit": updated.CreditLimit.Decimal(),
		"due_day":      updated.CreditDueDay,
	})
}

func (s *Server) handleResetStatement(w http.ResponseWriter, r *http.Request, account core.Account) {
	if err := s.ledger.ResetStatement(r.Context(), account.ID); err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateReadCaches(account.ID)

	writeJSON(w, http.StatusOK, map[string]string{"status": "statement reset"})
}
