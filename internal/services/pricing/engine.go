package pricing

import (
	"math"
	"time"

	"AgriPulse/internal/domain/models"
)

// FallbackModelVersion tags recommendations produced by the rule engine,
// distinguishing them from externally-modeled output.
const FallbackModelVersion = "fallback-rule-v1"

// FallbackConfidence is deliberately lower than any externally-modeled
// confidence to signal reduced trust.
const FallbackConfidence = 0.75

// Validity window for rule-based recommendations.
const fallbackValidity = 24 * time.Hour

// Input defaults when a snapshot carries no usable value.
const (
	defaultPrice       = 25.0
	defaultStockLevel  = 100
	defaultDemandScore = 50.0
	defaultDaysLeft    = 7
)

// Recommend computes a deterministic rule-based price recommendation for
// one product snapshot. Pure function: identical input (and clock)
// produces identical output, and no numeric input can make it return
// NaN or infinite values.
//
// The rule chain is multiplicative and applied in fixed order; when
// several rules fire, the reason of the last applicable rule wins.
func Recommend(p models.ProductSnapshot, now time.Time) models.PriceRecommendation {
	price := p.CurrentPrice
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		price = defaultPrice
	}
	stock := p.StockLevel
	if stock < 0 {
		stock = defaultStockLevel
	}
	demand := p.DemandScore
	if demand < 0 || math.IsNaN(demand) || math.IsInf(demand, 0) {
		demand = defaultDemandScore
	}
	daysLeft := p.DaysLeft
	if daysLeft < 0 {
		daysLeft = defaultDaysLeft
	}

	multiplier := 1.0
	reason := "no adjustment"

	switch {
	case demand > 70:
		multiplier *= 1.05
		reason = "high demand"
	case demand < 30:
		multiplier *= 0.95
		reason = "low demand"
	}

	switch {
	case stock < 50:
		multiplier *= 1.03
		reason = "low stock"
	case stock > 200:
		multiplier *= 0.97
		reason = "high inventory"
	}

	switch {
	case daysLeft <= 2:
		multiplier *= 0.80
		reason = "near expiry, urgent"
	case daysLeft <= 5:
		multiplier *= 0.90
		reason = "near expiry"
	}

	// Price is rounded before the percentage is computed; the small
	// double-rounding discrepancy is tolerable at 2dp.
	recommended := round2(price * multiplier)
	changePct := round2((recommended - price) / price * 100)

	// The ID is assigned at persistence time; leaving it empty keeps the
	// engine a pure function of its inputs.
	return models.PriceRecommendation{
		ProductID:        p.ProductID,
		ProductName:      p.Name,
		Category:         p.Category,
		CurrentPrice:     price,
		RecommendedPrice: recommended,
		PriceChangePct:   changePct,
		Confidence:       FallbackConfidence,
		Reason:           reason,
		ModelVersion:     FallbackModelVersion,
		CreatedAt:        now,
		ValidUntil:       now.Add(fallbackValidity),
	}
}

// RecommendBatch runs the rule engine over a batch of snapshots.
func RecommendBatch(ps []models.ProductSnapshot, now time.Time) []models.PriceRecommendation {
	out := make([]models.PriceRecommendation, 0, len(ps))
	for _, p := range ps {
		out = append(out, Recommend(p, now))
	}
	return out
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
