package core

import (
	"errors"
	"math"
	"strings"
)

// BaseCurrency is the fixed currency every Expense amount is stored in.
// Conversion to the user-selected target currency happens at display time only.
const BaseCurrency = "INR"

type (
	Trip struct {
		ID        string `json:"id"`
		Place     string `json:"place"`
		Country   string `json:"country"`
		UserID    string `json:"userId"`
		CreatedAt string `json:"createdAt"` // RFC3339, assigned by the remote collaborator
	}

	Expense struct {
		ID          string  `json:"id"`
		Title       string  `json:"title"`
		Amount      float64 `json:"amount"` // base currency, never rounded in storage
		Category    string  `json:"category"`
		Description string  `json:"description,omitempty"`
		TripID      string  `json:"tripId"`
		UserID      string  `json:"userId"`
		CreatedAt   string  `json:"createdAt"` // RFC3339, assigned by the remote collaborator
		Date        string  `json:"date"` // RFC3339, user-entered expense date
	}

	Budget struct {
		TripID string  `json:"tripId"`
		Amount float64 `json:"amount"` // base currency
	}
)

var (
	ErrEmptyPlace    = errors.New("empty place")
	ErrEmptyCountry  = errors.New("empty country")
	ErrEmptyUserID   = errors.New("empty user id")
	ErrEmptyTitle    = errors.New("empty title")
	ErrEmptyCategory = errors.New("empty category")
	ErrEmptyTripID   = errors.New("empty trip id")
	ErrInvalidAmount = errors.New("invalid amount")

	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
)

func (t Trip) Validate() error {
	if strings.TrimSpace(t.Place) == "" {
		return ErrEmptyPlace
	}
	if strings.TrimSpace(t.Country) == "" {
		return ErrEmptyCountry
	}
	if strings.TrimSpace(t.UserID) == "" {
		return ErrEmptyUserID
	}
	return nil
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return ErrEmptyTitle
	}
	if err := validAmount(e.Amount); err != nil {
		return err
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(e.TripID) == "" {
		return ErrEmptyTripID
	}
	if strings.TrimSpace(e.UserID) == "" {
		return ErrEmptyUserID
	}
	if len(e.Description) > 200 {
		return ErrDescriptionTooLong
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.TripID) == "" {
		return ErrEmptyTripID
	}
	return validAmount(b.Amount)
}

// validAmount accepts any finite, non-negative value.
func validAmount(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return ErrInvalidAmount
	}
	return nil
}
