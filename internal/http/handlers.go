package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"budgetfy/internal/budget"
	"budgetfy/internal/core"
	"budgetfy/internal/currency"
	"budgetfy/internal/remote"
	"budgetfy/internal/storage"
	"budgetfy/internal/sync"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	})
}

// amountField accepts an amount as a JSON number or as a user-entered string
// ("12.50", "12,50").
type amountField string

func (a *amountField) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = amountField(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*a = amountField(n.String())
	return nil
}

func (a amountField) Parse() (float64, error) {
	return core.ParseAmount(string(a))
}

type createTripRequest struct {
	Place   string `json:"place"`
	Country string `json:"country"`
	UserID  string `json:"userId"`
}

func (s *Server) handleCreateTrip(w http.ResponseWriter, r *http.Request) {
	var req createTripRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	trip, err := s.engine.CreateTrip(r.Context(), core.Trip{
		Place:   req.Place,
		Country: req.Country,
		UserID:  req.UserID,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, trip)
}

func (s *Server) handleListTrips(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, errors.New("userId query parameter is required"))
		return
	}

	trips, err := s.engine.FetchTripsForUser(r.Context(), userID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trips": trips})
}

func (s *Server) handleDeleteTrip(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.DeleteTrip(r.Context(), chi.URLParam(r, "tripID")); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createExpenseRequest struct {
	Title       string      `json:"title"`
	Amount      amountField `json:"amount"`
	Category    string      `json:"category"`
	Description string      `json:"description"`
	TripID      string      `json:"tripId"`
	UserID      string      `json:"userId"`
	Date        string      `json:"date"`
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req createExpenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	amount, err := req.Amount.Parse()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	expense, err := s.engine.CreateExpense(r.Context(), core.Expense{
		Title:       req.Title,
		Amount:      amount,
		Category:    req.Category,
		Description: req.Description,
		TripID:      req.TripID,
		UserID:      req.UserID,
		Date:        req.Date,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, expense)
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "tripID")
	expenses, err := s.engine.FetchExpensesForTrip(r.Context(), tripID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tripId": tripID, "expenses": expenses})
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "tripID")
	expenseID := chi.URLParam(r, "expenseID")
	if err := s.engine.DeleteExpense(r.Context(), tripID, expenseID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTripTotal(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "tripID")
	target := s.currencies.Target()
	writeJSON(w, http.StatusOK, map[string]any{
		"tripId":   tripID,
		"total":    s.aggregates.TotalForTrip(tripID, target),
		"currency": target,
	})
}

func (s *Server) handleOverallTotal(w http.ResponseWriter, r *http.Request) {
	target := s.currencies.Target()
	writeJSON(w, http.StatusOK, map[string]any{
		"total":    s.aggregates.OverallTotal(target),
		"currency": target,
	})
}

func (s *Server) handleCategoryTotals(w http.ResponseWriter, r *http.Request) {
	target := s.currencies.Target()

	var totals []core.CategoryTotal
	if tripID := r.URL.Query().Get("tripId"); tripID != "" {
		totals = s.aggregates.TotalsByCategory(tripID, target)
	} else {
		totals = s.aggregates.OverallTotalsByCategory(target)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"categories": totals,
		"currency":   target,
	})
}

type setBudgetRequest struct {
	Amount amountField `json:"amount"`
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var req setBudgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	amount, err := req.Amount.Parse()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	b := core.Budget{TripID: chi.URLParam(r, "tripID"), Amount: amount}
	if err := s.budgets.Set(r.Context(), b); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	status, err := s.budgets.Status(r.Context(), chi.URLParam(r, "tripID"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleClearBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.budgets.Clear(r.Context(), chi.URLParam(r, "tripID")); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCurrencies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"currencies": currency.Catalog})
}

func (s *Server) handleGetCurrency(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.currencies.Target())
}

type selectCurrencyRequest struct {
	Code string `json:"code"`
}

func (s *Server) handleSelectCurrency(w http.ResponseWriter, r *http.Request) {
	var req selectCurrencyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, errors.New("code is required"))
		return
	}

	selected, err := s.currencies.SelectTarget(r.Context(), req.Code)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	// Persistence is best-effort; the selection is already live.
	if s.prefs != nil {
		if raw, merr := json.Marshal(selected); merr == nil {
			if perr := s.prefs.SetPreference(r.Context(), storage.PrefTargetCurrency, string(raw)); perr != nil {
				s.logger.WarnContext(r.Context(), "Failed to persist currency selection", "error", perr)
			}
		}
	}

	writeJSON(w, http.StatusOK, selected)
}

func (s *Server) handleOperations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"operations": s.engine.Operations()})
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	s.engine.SignOut(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// writeDomainError maps engine and tracker errors onto HTTP status codes.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, sync.ErrOpInFlight):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, sync.ErrUnknownTrip),
		errors.Is(err, remote.ErrNotFound),
		errors.Is(err, budget.ErrNoBudget):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, currency.ErrUnknownCurrency):
		writeError(w, http.StatusBadRequest, err)
	case isValidationError(err):
		writeError(w, http.StatusBadRequest, err)
	case remote.IsTransient(err):
		writeError(w, http.StatusBadGateway, err)
	default:
		s.logger.ErrorContext(r.Context(), "Request failed", "error", err)
		writeError(w, http.StatusInternalServerError, err)
	}
}

func isValidationError(err error) bool {
	for _, sentinel := range []error{
		core.ErrEmptyPlace, core.ErrEmptyCountry, core.ErrEmptyUserID,
		core.ErrEmptyTitle, core.ErrEmptyCategory, core.ErrEmptyTripID,
		core.ErrInvalidAmount, core.ErrDescriptionTooLong,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
