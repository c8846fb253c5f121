package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"AgriPulse/internal/domain/models"
	domrepo "AgriPulse/internal/domain/repository"
	domsvc "AgriPulse/internal/domain/service"
	"AgriPulse/internal/services/pricing"
	applogger "AgriPulse/pkg/logger"

	"github.com/google/uuid"
)

// FallbackNote annotates pricing responses produced by the rule engine.
const FallbackNote = "external predictor unavailable; rule-based fallback used"

// ErrPredictorFailed is surfaced for demand-forecasting requests when the
// external predictor cannot produce a usable result. Pricing requests
// never surface it; they fall back instead.
var ErrPredictorFailed = errors.New("external predictor failed")

// Orchestrator coordinates one inbound batch request: resolve references,
// attempt the external prediction, persist the result best-effort, and
// for pricing fall back to the rule engine on any predictor failure.
type Orchestrator struct {
	resolver  domsvc.ProductResolver
	gateway   domsvc.PredictionGateway
	recs      domrepo.RecommendationStore
	forecasts domrepo.ForecastStore
	publisher domrepo.Publisher
	metrics   domrepo.Metrics
	logger    *applogger.Logger
	now       func() time.Time
}

func NewOrchestrator(
	resolver domsvc.ProductResolver,
	gateway domsvc.PredictionGateway,
	recs domrepo.RecommendationStore,
	forecasts domrepo.ForecastStore,
	publisher domrepo.Publisher,
	metrics domrepo.Metrics,
	logger *applogger.Logger,
) *Orchestrator {
	return &Orchestrator{
		resolver:  resolver,
		gateway:   gateway,
		recs:      recs,
		forecasts: forecasts,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// GeneratePricing runs the pricing pipeline for a batch of references.
// Pricing is maximally resilient: any predictor outcome other than clean
// success falls back to the deterministic rule engine, and persistence
// failures never block the response.
func (o *Orchestrator) GeneratePricing(ctx context.Context, refs []models.ProductReference) (*models.PricingResult, error) {
	snapshots, err := o.resolveBatch(ctx, refs)
	if err != nil {
		return nil, err
	}

	req := &models.PredictionRequest{Products: snapshots}
	out := o.gateway.Invoke(ctx, models.OpPredictPricing, req)

	if out.Usable() {
		recs := o.stampRecommendations(out.Payload.Recommendations, snapshots, out.Payload.ModelVersion)
		o.persistRecommendations(ctx, recs)
		return &models.PricingResult{
			Recommendations: recs,
			Count:           len(recs),
			ModelVersion:    out.Payload.ModelVersion,
			Message:         fmt.Sprintf("generated %d recommendations", len(recs)),
		}, nil
	}

	if o.metrics != nil {
		o.metrics.RecordFallback(string(out.Kind))
	}
	if o.logger != nil {
		o.logger.Warn("pricing falling back to rule engine",
			applogger.String("outcome", string(out.Kind)),
			applogger.Int("products", len(snapshots)),
		)
	}

	recs := pricing.RecommendBatch(snapshots, o.now())
	for i := range recs {
		recs[i].ID = uuid.NewString()
	}
	o.persistRecommendations(ctx, recs)
	return &models.PricingResult{
		Recommendations: recs,
		Count:           len(recs),
		ModelVersion:    pricing.FallbackModelVersion,
		Note:            FallbackNote,
		Message:         fmt.Sprintf("generated %d recommendations", len(recs)),
	}, nil
}

// GenerateForecast runs the demand pipeline. There is no fallback:
// unvalidated demand numbers are considered more harmful than a
// rule-based price, so any predictor failure is surfaced and nothing is
// persisted.
func (o *Orchestrator) GenerateForecast(ctx context.Context, refs []models.ProductReference, days int, cities []string) (*models.ForecastResult, error) {
	snapshots, err := o.resolveBatch(ctx, refs)
	if err != nil {
		return nil, err
	}

	req := &models.PredictionRequest{Products: snapshots, Days: days, Cities: cities}
	out := o.gateway.Invoke(ctx, models.OpPredictDemand, req)

	if !out.Usable() {
		detail := string(out.Kind)
		if out.Payload != nil && out.Payload.Error != "" {
			detail = out.Payload.Error
		}
		return nil, fmt.Errorf("%w: %s", ErrPredictorFailed, detail)
	}

	now := o.now()
	fcs := out.Payload.Forecasts
	for i := range fcs {
		fcs[i].ID = uuid.NewString()
		fcs[i].CreatedAt = now
	}
	o.persistForecasts(ctx, fcs)
	return &models.ForecastResult{
		Forecasts:    fcs,
		Count:        len(fcs),
		ModelVersion: out.Payload.ModelVersion,
		Message:      fmt.Sprintf("generated %d forecasts", len(fcs)),
	}, nil
}

// GetRecommendation fetches a stored recommendation by id.
func (o *Orchestrator) GetRecommendation(ctx context.Context, id string) (*models.PriceRecommendation, error) {
	return o.recs.Get(ctx, id)
}

// Apply flips the applied flag on a stored recommendation.
func (o *Orchestrator) Apply(ctx context.Context, id string) (*models.PriceRecommendation, error) {
	return o.recs.Apply(ctx, id)
}

// ListRecommendations pages through stored recommendations.
func (o *Orchestrator) ListRecommendations(ctx context.Context, limit, offset int) ([]models.PriceRecommendation, int64, error) {
	return o.recs.List(ctx, limit, offset)
}

// ListForecasts pages through stored forecasts.
func (o *Orchestrator) ListForecasts(ctx context.Context, f domrepo.ForecastFilter) ([]models.DemandForecast, error) {
	return o.forecasts.List(ctx, f)
}

func (o *Orchestrator) resolveBatch(ctx context.Context, refs []models.ProductReference) ([]models.ProductSnapshot, error) {
	if len(refs) == 0 {
		return nil, domrepo.ErrEmptyBatch
	}
	snapshots, err := o.resolver.Resolve(ctx, refs)
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, domrepo.ErrEmptyBatch
	}
	return snapshots, nil
}

// stampRecommendations fills in fields the external model does not own:
// ids, identity from the resolved snapshot, timestamps and validity.
func (o *Orchestrator) stampRecommendations(recs []models.PriceRecommendation, snapshots []models.ProductSnapshot, modelVersion string) []models.PriceRecommendation {
	byID := make(map[string]models.ProductSnapshot, len(snapshots))
	for _, s := range snapshots {
		byID[s.ProductID] = s
	}
	now := o.now()
	for i := range recs {
		recs[i].ID = uuid.NewString()
		recs[i].CreatedAt = now
		if recs[i].ValidUntil.IsZero() {
			recs[i].ValidUntil = now.Add(24 * time.Hour)
		}
		if recs[i].ModelVersion == "" {
			recs[i].ModelVersion = modelVersion
		}
		if s, ok := byID[recs[i].ProductID]; ok {
			if recs[i].ProductName == "" {
				recs[i].ProductName = s.Name
			}
			if recs[i].Category == "" {
				recs[i].Category = s.Category
			}
			if recs[i].CurrentPrice == 0 {
				recs[i].CurrentPrice = s.CurrentPrice
			}
		}
	}
	return recs
}

// persistRecommendations is best-effort: the caller's primary interest is
// the computed recommendation, not its durability.
func (o *Orchestrator) persistRecommendations(ctx context.Context, recs []models.PriceRecommendation) {
	if len(recs) == 0 {
		return
	}
	if err := o.recs.InsertBatch(ctx, recs); err != nil {
		if o.metrics != nil {
			o.metrics.RecordError("persist_recommendations")
		}
		if o.logger != nil {
			o.logger.Error("persisting recommendations failed", applogger.Error(err))
		}
	}
	if o.publisher != nil {
		if err := o.publisher.PublishRecommendations(ctx, recs); err != nil {
			if o.metrics != nil {
				o.metrics.RecordError("publish_recommendations")
			}
			if o.logger != nil {
				o.logger.Warn("publishing recommendations failed", applogger.Error(err))
			}
		}
	}
}

func (o *Orchestrator) persistForecasts(ctx context.Context, fcs []models.DemandForecast) {
	if len(fcs) == 0 {
		return
	}
	if err := o.forecasts.InsertBatch(ctx, fcs); err != nil {
		if o.metrics != nil {
			o.metrics.RecordError("persist_forecasts")
		}
		if o.logger != nil {
			o.logger.Error("persisting forecasts failed", applogger.Error(err))
		}
	}
	if o.publisher != nil {
		if err := o.publisher.PublishForecasts(ctx, fcs); err != nil {
			if o.metrics != nil {
				o.metrics.RecordError("publish_forecasts")
			}
			if o.logger != nil {
				o.logger.Warn("publishing forecasts failed", applogger.Error(err))
			}
		}
	}
}
