// Package http exposes the JSON API over the sync engine, aggregation,
// budget tracking and currency selection.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"budgetfy/internal/aggregate"
	"budgetfy/internal/budget"
	"budgetfy/internal/currency"
	"budgetfy/internal/log"
	"budgetfy/internal/sync"
)

// PreferenceStore persists small user preferences such as the selected
// display currency.
type PreferenceStore interface {
	SetPreference(ctx context.Context, key, value string) error
	GetPreference(ctx context.Context, key string) (string, error)
}

type Server struct {
	http.Server

	engine     *sync.Engine
	aggregates *aggregate.Service
	budgets    *budget.Tracker
	currencies *currency.Service
	prefs      PreferenceStore
	logger     *log.Logger

	started time.Time
}

func NewServer(addr string, engine *sync.Engine, aggregates *aggregate.Service,
	budgets *budget.Tracker, currencies *currency.Service, prefs PreferenceStore,
	logger *log.Logger) *Server {

	s := &Server{
		engine:     engine,
		aggregates: aggregates,
		budgets:    budgets,
		currencies: currencies,
		prefs:      prefs,
		logger:     logger,
		started:    time.Now(),
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(log.Middleware(s.logger))
	r.Use(log.RequestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/trips", func(r chi.Router) {
			r.Post("/", s.handleCreateTrip)
			r.Get("/", s.handleListTrips)

			r.Route("/{tripID}", func(r chi.Router) {
				r.Delete("/", s.handleDeleteTrip)
				r.Get("/expenses", s.handleListExpenses)
				r.Delete("/expenses/{expenseID}", s.handleDeleteExpense)
				r.Get("/total", s.handleTripTotal)
				r.Put("/budget", s.handleSetBudget)
				r.Get("/budget", s.handleGetBudget)
				r.Delete("/budget", s.handleClearBudget)
			})
		})

		r.Post("/expenses", s.handleCreateExpense)

		r.Route("/stats", func(r chi.Router) {
			r.Get("/total", s.handleOverallTotal)
			r.Get("/categories", s.handleCategoryTotals)
		})

		r.Get("/currencies", s.handleListCurrencies)
		r.Get("/currency", s.handleGetCurrency)
		r.Put("/currency", s.handleSelectCurrency)

		r.Get("/operations", s.handleOperations)
		r.Post("/signout", s.handleSignOut)
	})

	return r
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.Server.Shutdown(ctx)
}
