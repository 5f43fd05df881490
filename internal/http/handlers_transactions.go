package http

import (
	"net/http"
	"strconv"
	"time"

	"financas/internal/core"
)

const defaultTransactionLimit = 20

type transactionView struct {
	ID          int64     `json:"id"`
	Type        string    `json:"type"`
	Amount      float64   `json:"amount"`
	Category    string    `json:"category"`
	Icon        string    `json:"icon,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request, account core.Account) {
	switch r.Method {
	case http.MethodGet:
		s.handleListTransactions(w, r, account)
	case http.MethodPost:
		s.handleCreateTransaction(w, r, account)
	default:
		methodNotAllowed(w, "GET, POST")
	}
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request, account core.Account) {
	limit := defaultTransactionLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	transactions, err := s.ledger.ListTransactions(r.Context(), account.ID, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	icons := s.categoryIcons(r)

	views := make([]transactionView, 0, len(transactions))
	for _, t := range transactions {
		views = append(views, transactionView{
			ID:          t.ID,
			Type:        string(t.Type),
			Amount:      t.Amount.Decimal(),
			Category:    t.Category,
			Icon:        icons[t.Category],
			Description: t.Description,
			CreatedAt:   t.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"transactions": views})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request, account core.Account) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	cents, err := core.ParseDecimalToCents(parser.Get("amount"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	txType := core.TransactionType(parser.Get("type"))
	category := parser.Get("category")
	description := parser.Get("description")

	id, err := s.ledger.RecordTransaction(r.Context(), account.ID, txType,
		core.Money{Cents: cents}, category, description)
	if err != nil {
		writeError(w, r, err)
		return
	}

	s.invalidateReadCaches(account.ID)

	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request, _ core.Account) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET")
		return
	}

	categories, err := s.ledger.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	type categoryView struct {
		Name string `json:"name"`
		Icon string `json:"icon"`
		Kind string `json:"kind"`
	}
	views := make([]categoryView, 0, len(categories))
	for _, c := range categories {
		views = append(views, categoryView{Name: c.Name, Icon: c.Icon, Kind: c.Kind})
	}

	writeJSON(w, http.StatusOK, map[string]any{"categories": views})
}

// categoryIcons maps category names to icons for list rendering. Lookup
// failures just mean bare labels.
func (s *Server) categoryIcons(r *http.Request) map[string]string {
	categories, err := s.ledger.ListCategories(r.Context())
	if err != nil {
		return nil
	}
	icons := make(map[string]string, len(categories))
	for _, c := range categories {
		icons[c.Name] = c.Icon
	}
	return icons
}
