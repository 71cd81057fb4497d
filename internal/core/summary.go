package core

// CategoryTotal is a converted amount aggregated under one category key.
type CategoryTotal struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
}

// TripOverview is a compact summary for a single trip in the display currency.
type TripOverview struct {
	TripID     string          `json:"tripId"`
	Total      float64         `json:"total"`
	ByCategory []CategoryTotal `json:"byCategory"`
}
