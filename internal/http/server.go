// Package http exposes the JSON API over the account ledger.
package http

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"financas/internal/auth"
	"financas/internal/cache"
	"financas/internal/core"
	"financas/internal/middleware/ratelimit"
	"financas/internal/middleware/security"
	"financas/internal/middleware/trace"
)

// Ledger is the slice of the service layer the handlers need.
type Ledger interface {
	RecordTransaction(ctx context.Context, accountID int64, txType core.TransactionType, amount core.Money, category, description string) (int64, error)
	AdjustBalance(ctx context.Context, accountID int64, deltaCents int64, description string) (core.Money, error)
	PayCreditBill(ctx context.Context, accountID int64, paymentType core.PaymentType, explicit core.Money) (core.PaymentResult, error)
	ResetStatement(ctx context.Context, accountID int64) error
	Summary(ctx context.Context, accountID int64, now time.Time) (core.Summary, error)
	CardOverview(ctx context.Context, accountID int64, now time.Time) (core.CardOverview, error)
	UpdateCardSettings(ctx context.Context, accountID int64, settings core.CardSettings) (core.Account, error)
	ListTransactions(ctx context.Context, accountID int64, limit int) ([]core.Transaction, error)
	ListCategories(ctx context.Context) ([]core.Category, error)
	GetAccountByUserID(ctx context.Context, userID int64) (core.Account, error)
}

// Authenticator issues and checks session tokens.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, error)
	Verify(token string) (auth.Claims, error)
	ChangePassword(ctx context.Context, userID int64, current, next string) error
}

type Server struct {
	http.Server

	ledger Ledger
	auth   Authenticator

	traceMW     *trace.Middleware
	headersMW   *security.HeadersMiddleware
	rateLimiter *ratelimit.Limiter

	// Read-side caches, invalidated on every ledger mutation.
	summaryCache *cache.LRUCache[core.Summary]
	cardCache    *cache.LRUCache[core.CardOverview]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

func NewServer(addr string, ledger Ledger, authenticator Authenticator, requestsPerMinute int) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		ledger:    ledger,
		auth:      authenticator,
		traceMW:   trace.NewMiddleware(clientIP),
		headersMW: security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: requestsPerMinute,
		}),
		summaryCache: cache.NewLRUCache[core.Summary](100, 30*time.Second),
		cardCache:    cache.NewLRUCache[core.CardOverview](100, 30*time.Second),
		cacheManager: cache.NewManager(),
	}

	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.Register(s.cardCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.Handle("/api/login", s.public(http.HandlerFunc(s.handleLogin)))
	mux.Handle("/api/auth", s.protected(s.handleAuthCheck))
	mux.Handle("/api/password", s.protected(s.handleChangePassword))
	mux.Handle("/api/transactions", s.protected(s.handleTransactions))
	mux.Handle("/api/balance", s.protected(s.handleBalance))
	mux.Handle("/api/credit-card", s.protected(s.handleCreditCard))
	mux.Handle("/api/categories", s.protected(s.handleCategories))

	return s
}

// public chains the middleware shared by every route: tracing, rate
// limiting, security headers.
func (s *Server) public(next http.Handler) http.Handler {
	limited := s.rateLimiter.Middleware(clientIP, nil)
	return s.traceMW.Middleware(limited(s.headersMW.Middleware(next)))
}

// protected adds token verification on top of the public chain. The
// authenticated account lands in the request context.
func (s *Server) protected(next func(http.ResponseWriter, *http.Request, core.Account)) http.Handler {
	return s.public(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, r, auth.ErrInvalidToken)
			return
		}

		claims, err := s.auth.Verify(token)
		if err != nil {
			writeError(w, r, err)
			return
		}

		account, err := s.ledger.GetAccountByUserID(r.Context(), claims.UserID)
		if err != nil {
			writeError(w, r, err)
			return
		}

		next(w, r, account)
	}))
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}

// clientIP extracts the caller address, honouring proxy headers.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

func (s *Server) cacheKey(accountID int64) string {
	return strconv.FormatInt(accountID, 10)
}

// invalidateReadCaches drops derived views after any ledger mutation.
func (s *Server) invalidateReadCaches(accountID int64) {
	key := s.cacheKey(accountID)
	s.summaryCache.Delete(key)
	s.cardCache.Delete(key)
}

// Shutdown stops the HTTP server and the background cleanup goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
