package models

import "time"

// PriceRecommendation is a persisted pricing suggestion for one product.
// Immutable after creation except for the Applied flag, which is flipped
// through the explicit apply action.
type PriceRecommendation struct {
	ID               string    `json:"id"`
	ProductID        string    `json:"product_id"`
	ProductName      string    `json:"product_name,omitempty"`
	Category         string    `json:"category"`
	CurrentPrice     float64   `json:"current_price"`
	RecommendedPrice float64   `json:"recommended_price"`
	PriceChangePct   float64   `json:"price_change_pct"`
	Confidence       float64   `json:"confidence"` // 0-1
	Reason           string    `json:"reason"`
	ModelVersion     string    `json:"model_version"`
	Applied          bool      `json:"applied"`
	CreatedAt        time.Time `json:"created_at"`
	ValidUntil       time.Time `json:"valid_until"`
}

// DemandForecast is a persisted per-city unit-volume prediction. Created
// only from successful external-predictor output; there is no fallback
// path for demand.
type DemandForecast struct {
	ID              string    `json:"id,omitempty"`
	ProductID       string    `json:"product_id"`
	City            string    `json:"city"`
	Category        string    `json:"category"`
	ForecastDate    string    `json:"date"` // YYYY-MM-DD
	PredictedDemand float64   `json:"predicted_demand"`
	DayOfWeek       string    `json:"day_of_week"`
	Confidence      float64   `json:"confidence"`
	CreatedAt       time.Time `json:"created_at,omitempty"`
}
