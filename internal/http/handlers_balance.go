package http

import (
	"net/http"
	"time"

	"financas/internal/core"
)

type summaryView struct {
	Balance         float64 `json:"balance"`
	CreditLimit     float64 `json:"credit_limit"`
	CreditUsed      float64 `json:"credit_used"`
	CreditAvailable float64 `json:"credit_available"`
	TodayExpenses   float64 `json:"today_expenses"`
	MonthExpenses   float64 `json:"month_expenses"`
	MonthIncome     float64 `json:"month_income"`
	MonthBalance    float64 `json:"month_balance"`
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request, account core.Account) {
	switch r.Method {
	case http.MethodGet:
		s.handleGetSummary(w, r, account)
	case http.MethodPut:
		s.handleAdjustBalance(w, r, account)
	default:
		methodNotAllowed(w, "GET, PUT")
	}
}

func (s *Server) handleGetSummary(w http.ResponseWriter, r *http.Request, account core.Account) {
	key := s.cacheKey(account.ID)
	summary, ok := s.summaryCache.Get(key)
	if !ok {
		var err error
		summary, err = s.ledger.Summary(r.Context(), account.ID, time.Now())
		if err != nil {
			writeError(w, r, err)
			return
		}
		s.summaryCache.Set(key, summary)
	}

	writeJSON(w, http.StatusOK, summaryView{
		Balance:         summary.Balance.Decimal(),
		CreditLimit:     summary.CreditLimit.Decimal(),
		CreditUsed:      summary.CreditUsed.Decimal(),
		CreditAvailable: summary.CreditAvailable.Decimal(),
		TodayExpenses:   summary.TodayExpenses.Decimal(),
		MonthExpenses:   summary.MonthExpenses.Decimal(),
		MonthIncome:     summary.MonthIncome.Decimal(),
		MonthBalance:    summary.MonthBalance.Decimal(),
	})
}

func (s *Server) handleAdjustBalance(w http.ResponseWriter, r *http.Request, account core.Account) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	delta, err := core.ParseSignedDecimalToCents(parser.Get("amount"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	newBalance, err := s.ledger.AdjustBalance(r.Context(), account.ID, delta, parser.Get("description"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateReadCaches(account.ID)

	writeJSON(w, http.StatusOK, map[string]any{"balance": newBalance.Decimal()})
}
