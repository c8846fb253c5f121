package models

// Requests for the recommendation/forecast HTTP endpoints. Defined in
// domain for consistency and reuse.

type ProductRefInput struct {
	ProductID    string   `json:"product_id"`
	Name         string   `json:"name"`
	CurrentPrice *float64 `json:"current_price" validate:"omitempty,gt=0"`
	StockLevel   *int     `json:"stock_level" validate:"omitempty,gte=0"`
	DemandScore  *float64 `json:"demand_score" validate:"omitempty,gte=0,lte=100"`
	DaysLeft     *int     `json:"days_left" validate:"omitempty,gte=0"`
	Weekday      string   `json:"weekday"`
	Season       string   `json:"season" validate:"omitempty,oneof=spring summer autumn winter"`
}

// Reference converts the transport struct into the domain reference.
func (in ProductRefInput) Reference() ProductReference {
	return ProductReference{
		ProductID:    in.ProductID,
		Name:         in.Name,
		CurrentPrice: in.CurrentPrice,
		StockLevel:   in.StockLevel,
		DemandScore:  in.DemandScore,
		DaysLeft:     in.DaysLeft,
		Weekday:      in.Weekday,
		Season:       in.Season,
	}
}

type GeneratePricingRequest struct {
	Products []ProductRefInput `json:"products" validate:"required,min=1,dive"`
}

type GenerateForecastRequest struct {
	Products []ProductRefInput `json:"products" validate:"required,min=1,dive"`
	Days     int               `json:"days" default:"7" validate:"gte=1,lte=30"`
	Cities   []string          `json:"cities" validate:"omitempty,dive,min=1"`
}

type UpsertProductRequest struct {
	ID           string  `json:"id" validate:"required"`
	Name         string  `json:"name" validate:"required"`
	Category     string  `json:"category" validate:"required,oneof=vegetable fruit grain dairy"`
	Unit         string  `json:"unit" default:"kg" validate:"oneof=kg crate litre"`
	CurrentPrice float64 `json:"current_price" validate:"gte=0"`
	StockLevel   int     `json:"stock_level" validate:"gte=0"`
	DemandScore  float64 `json:"demand_score" validate:"gte=0,lte=100"`
	DaysLeft     int     `json:"days_left" validate:"gte=0"`
}

// Product converts the transport struct into the catalog entity.
func (in UpsertProductRequest) Product() *Product {
	return &Product{
		ID:           in.ID,
		Name:         in.Name,
		Category:     in.Category,
		Unit:         in.Unit,
		CurrentPrice: in.CurrentPrice,
		StockLevel:   in.StockLevel,
		DemandScore:  in.DemandScore,
		DaysLeft:     in.DaysLeft,
	}
}

type ListRequest struct {
	Limit  int `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
	Offset int `query:"offset" json:"offset" validate:"gte=0"`
}

type ListForecastsRequest struct {
	ProductID string `query:"product_id" json:"product_id"`
	City      string `query:"city" json:"city"`
	From      string `query:"from" json:"from"`
	To        string `query:"to" json:"to"`
	Limit     int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}

// PricingResult is the response body for a batch pricing request. Note is
// set when the rule-based fallback produced the recommendations.
type PricingResult struct {
	Recommendations []PriceRecommendation `json:"recommendations"`
	Count           int                   `json:"count"`
	ModelVersion    string                `json:"model_version"`
	Note            string                `json:"note,omitempty"`
	Message         string                `json:"message"`
}

// ForecastResult is the response body for a batch demand request.
type ForecastResult struct {
	Forecasts    []DemandForecast `json:"forecasts"`
	Count        int              `json:"count"`
	ModelVersion string           `json:"model_version"`
	Message      string           `json:"message"`
}
