package pricing

import (
	"math"
	"reflect"
	"testing"
	"time"

	"AgriPulse/internal/domain/models"
)

func snap(price float64, stock int, demand float64, daysLeft int) models.ProductSnapshot {
	return models.ProductSnapshot{
		ProductID:    "p-1",
		Name:         "tomato",
		Category:     "vegetable",
		CurrentPrice: price,
		StockLevel:   stock,
		DemandScore:  demand,
		DaysLeft:     daysLeft,
	}
}

func TestRecommendScenario(t *testing.T) {
	// 1.05 (demand) * 1.03 (stock) * 0.80 (urgent expiry) = 0.8652
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rec := Recommend(snap(40, 30, 80, 1), now)

	if rec.RecommendedPrice != 34.61 {
		t.Fatalf("recommended price = %v, want 34.61", rec.RecommendedPrice)
	}
	if rec.Reason != "near expiry, urgent" {
		t.Fatalf("reason = %q, want last applicable rule", rec.Reason)
	}
	if rec.Confidence != FallbackConfidence {
		t.Fatalf("confidence = %v, want %v", rec.Confidence, FallbackConfidence)
	}
	if rec.ModelVersion != FallbackModelVersion {
		t.Fatalf("model version = %q", rec.ModelVersion)
	}
	if !rec.ValidUntil.Equal(now.Add(24 * time.Hour)) {
		t.Fatalf("valid until = %v", rec.ValidUntil)
	}
}

func TestRecommendBoundaries(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name       string
		in         models.ProductSnapshot
		wantMult   float64
		wantReason string
	}{
		{"demand exactly 70 is neutral", snap(100, 100, 70, 7), 1.0, "no adjustment"},
		{"demand just above 70", snap(100, 100, 70.5, 7), 1.05, "high demand"},
		{"demand exactly 30 is neutral", snap(100, 100, 30, 7), 1.0, "no adjustment"},
		{"demand below 30", snap(100, 100, 29, 7), 0.95, "low demand"},
		{"stock exactly 50 is neutral", snap(100, 50, 50, 7), 1.0, "no adjustment"},
		{"stock exactly 200 is neutral", snap(100, 200, 50, 7), 1.0, "no adjustment"},
		{"stock above 200", snap(100, 201, 50, 7), 0.97, "high inventory"},
		{"days 2 hits urgent tier", snap(100, 100, 50, 2), 0.80, "near expiry, urgent"},
		{"days 5 hits lesser tier", snap(100, 100, 50, 5), 0.90, "near expiry"},
		{"days 6 hits neither", snap(100, 100, 50, 6), 1.0, "no adjustment"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := Recommend(tc.in, now)
			want := math.Round(tc.in.CurrentPrice*tc.wantMult*100) / 100
			if rec.RecommendedPrice != want {
				t.Fatalf("price = %v, want %v", rec.RecommendedPrice, want)
			}
			if rec.Reason != tc.wantReason {
				t.Fatalf("reason = %q, want %q", rec.Reason, tc.wantReason)
			}
		})
	}
}

func TestRecommendDefaults(t *testing.T) {
	now := time.Now()
	rec := Recommend(models.ProductSnapshot{ProductID: "p-2", CurrentPrice: 0, StockLevel: 0, DemandScore: 50, DaysLeft: 7}, now)
	// zero price falls back to the 25.0 default; stock 0 is a legitimate
	// low-stock signal, not a missing value
	if rec.CurrentPrice != 25.0 {
		t.Fatalf("current price = %v, want default 25.0", rec.CurrentPrice)
	}
	if rec.Reason != "low stock" {
		t.Fatalf("reason = %q, want low stock", rec.Reason)
	}
}

func TestRecommendNeverNaN(t *testing.T) {
	now := time.Now()
	inputs := []models.ProductSnapshot{
		snap(math.NaN(), 100, 50, 7),
		snap(math.Inf(1), 100, 50, 7),
		snap(-12, -4, math.NaN(), -1),
		snap(0, 0, 0, 0),
	}
	for _, in := range inputs {
		rec := Recommend(in, now)
		if math.IsNaN(rec.RecommendedPrice) || math.IsInf(rec.RecommendedPrice, 0) {
			t.Fatalf("non-finite recommended price for input %+v", in)
		}
		if math.IsNaN(rec.PriceChangePct) || math.IsInf(rec.PriceChangePct, 0) {
			t.Fatalf("non-finite change pct for input %+v", in)
		}
	}
}

func TestRecommendIdempotent(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	in := snap(40, 30, 80, 1)
	a := Recommend(in, now)
	b := Recommend(in, now)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("engine is not idempotent: %+v vs %+v", a, b)
	}
}
