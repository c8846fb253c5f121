package models

import "time"

// Product is the catalog's authoritative record for a tradable good.
type Product struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Category     string    `json:"category"` // "vegetable", "fruit", "grain", "dairy"
	Unit         string    `json:"unit"`     // "kg", "crate", "litre"
	CurrentPrice float64   `json:"current_price"`
	StockLevel   int       `json:"stock_level"`
	DemandScore  float64   `json:"demand_score"` // 0-100 rolling demand index
	DaysLeft     int       `json:"days_left"`    // days until spoilage
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// City represents a target market for demand forecasting.
type City struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Region     string `json:"region"`
	Population int64  `json:"population"`
}

// ProductReference is a user-supplied pointer to a product, either by stable
// id or by free-text name, optionally carrying contextual overrides.
type ProductReference struct {
	ProductID    string   `json:"product_id,omitempty"`
	Name         string   `json:"name,omitempty"`
	CurrentPrice *float64 `json:"current_price,omitempty"`
	StockLevel   *int     `json:"stock_level,omitempty"`
	DemandScore  *float64 `json:"demand_score,omitempty"`
	DaysLeft     *int     `json:"days_left,omitempty"`
	Weekday      string   `json:"weekday,omitempty"`
	Season       string   `json:"season,omitempty"`
}

// ProductSnapshot is a resolved reference: canonical identity from the
// catalog merged with any contextual overrides from the caller. Every
// snapshot carries id, name and category; unresolved references never
// become snapshots.
type ProductSnapshot struct {
	ProductID    string  `json:"product_id"`
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	CurrentPrice float64 `json:"current_price"`
	StockLevel   int     `json:"stock_level"`
	DemandScore  float64 `json:"demand_score"`
	DaysLeft     int     `json:"days_left"`
	Weekday      string  `json:"weekday,omitempty"`
	Season       string  `json:"season,omitempty"`
}

// Snapshot merges a canonical product with reference overrides.
func Snapshot(p *Product, ref ProductReference) ProductSnapshot {
	s := ProductSnapshot{
		ProductID:    p.ID,
		Name:         p.Name,
		Category:     p.Category,
		CurrentPrice: p.CurrentPrice,
		StockLevel:   p.StockLevel,
		DemandScore:  p.DemandScore,
		DaysLeft:     p.DaysLeft,
		Weekday:      ref.Weekday,
		Season:       ref.Season,
	}
	if ref.CurrentPrice != nil {
		s.CurrentPrice = *ref.CurrentPrice
	}
	if ref.StockLevel != nil {
		s.StockLevel = *ref.StockLevel
	}
	if ref.DemandScore != nil {
		s.DemandScore = *ref.DemandScore
	}
	if ref.DaysLeft != nil {
		s.DaysLeft = *ref.DaysLeft
	}
	return s
}
