package repository

import (
	"context"
	"time"

	"AgriPulse/internal/domain/models"
)

// Catalog provides read/write access to canonical products and cities.
type Catalog interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	GetProductByName(ctx context.Context, name string) (*models.Product, error)
	ListProducts(ctx context.Context, limit, offset int) ([]models.Product, int64, error)
	UpsertProduct(ctx context.Context, p *models.Product) error
	SetCurrentPrice(ctx context.Context, id string, price float64, at time.Time) error
	ListCities(ctx context.Context, limit, offset int) ([]models.City, int64, error)
	UpsertCity(ctx context.Context, c *models.City) error
	Health(ctx context.Context) error
}

// RecommendationStore persists price recommendations. Inserts are
// append-only; Apply is the only mutation.
type RecommendationStore interface {
	InsertBatch(ctx context.Context, recs []models.PriceRecommendation) error
	Get(ctx context.Context, id string) (*models.PriceRecommendation, error)
	Apply(ctx context.Context, id string) (*models.PriceRecommendation, error)
	List(ctx context.Context, limit, offset int) ([]models.PriceRecommendation, int64, error)
}

// ForecastStore persists demand forecasts (append-only time series).
type ForecastStore interface {
	InsertBatch(ctx context.Context, fcs []models.DemandForecast) error
	List(ctx context.Context, f ForecastFilter) ([]models.DemandForecast, error)
	Health(ctx context.Context) error
}

// ForecastFilter narrows forecast queries.
type ForecastFilter struct {
	ProductID string
	City      string
	From      time.Time
	To        time.Time
	Limit     int
}

// TickStore persists wholesale price ticks.
type TickStore interface {
	Store(ctx context.Context, t *models.PriceTick) error
	StoreBatch(ctx context.Context, ticks []*models.PriceTick) error
	Query(ctx context.Context, productID string, from, to time.Time, limit int) ([]*models.PriceTick, error)
	Health(ctx context.Context) error
}

// MarketStream is a live wholesale price feed.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.PriceTick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Publisher emits domain events (ticks, created recommendations/forecasts).
type Publisher interface {
	PublishTick(ctx context.Context, t *models.PriceTick) error
	PublishTickBatch(ctx context.Context, ticks []*models.PriceTick) error
	PublishRecommendations(ctx context.Context, recs []models.PriceRecommendation) error
	PublishForecasts(ctx context.Context, fcs []models.DemandForecast) error
	Close() error
}

// Metrics abstracts operational counters so use cases don't depend on a
// concrete metrics backend.
type Metrics interface {
	RecordInvocation(operation, outcome string)
	RecordFallback(reason string)
	RecordError(kind string)
	RecordLastPrice(productID string, price float64)
	RecordLatency(op string, seconds float64)
	RecordMessageSent(backend, productID string)
}
