package models

// PriceTick is one wholesale market price observation from the live feed.
type PriceTick struct {
	ProductID string  `json:"product_id"`
	Market    string  `json:"market"` // originating city/market code
	Price     float64 `json:"price"`
	Volume    float64 `json:"volume"`
	Timestamp int64   `json:"ts"` // unix seconds
}
