package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"AgriPulse/internal/domain/models"
	domrepo "AgriPulse/internal/domain/repository"
	"AgriPulse/internal/services/pricing"
)

type fakeResolver struct {
	snapshots []models.ProductSnapshot
	err       error
	calls     int
}

func (f *fakeResolver) Resolve(_ context.Context, refs []models.ProductReference) ([]models.ProductSnapshot, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.snapshots, nil
}

type fakeGateway struct {
	outcome *models.PredictionOutcome
	calls   int
	lastOp  models.Operation
	lastReq *models.PredictionRequest
}

func (f *fakeGateway) Invoke(_ context.Context, op models.Operation, req *models.PredictionRequest) *models.PredictionOutcome {
	f.calls++
	f.lastOp = op
	f.lastReq = req
	return f.outcome
}

type fakeRecStore struct {
	inserted  []models.PriceRecommendation
	insertErr error
}

func (f *fakeRecStore) InsertBatch(_ context.Context, recs []models.PriceRecommendation) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, recs...)
	return nil
}
func (f *fakeRecStore) Get(context.Context, string) (*models.PriceRecommendation, error) {
	return nil, domrepo.ErrNotFound
}
func (f *fakeRecStore) Apply(_ context.Context, id string) (*models.PriceRecommendation, error) {
	for i := range f.inserted {
		if f.inserted[i].ID == id {
			f.inserted[i].Applied = true
			return &f.inserted[i], nil
		}
	}
	return nil, domrepo.ErrNotFound
}
func (f *fakeRecStore) List(context.Context, int, int) ([]models.PriceRecommendation, int64, error) {
	return f.inserted, int64(len(f.inserted)), nil
}

type fakeForecastStore struct {
	inserted []models.DemandForecast
}

func (f *fakeForecastStore) InsertBatch(_ context.Context, fcs []models.DemandForecast) error {
	f.inserted = append(f.inserted, fcs...)
	return nil
}
func (f *fakeForecastStore) List(context.Context, domrepo.ForecastFilter) ([]models.DemandForecast, error) {
	return f.inserted, nil
}
func (f *fakeForecastStore) Health(context.Context) error { return nil }

type nopMetrics struct{}

func (nopMetrics) RecordInvocation(string, string)  {}
func (nopMetrics) RecordFallback(string)            {}
func (nopMetrics) RecordError(string)               {}
func (nopMetrics) RecordLastPrice(string, float64)  {}
func (nopMetrics) RecordLatency(string, float64)    {}
func (nopMetrics) RecordMessageSent(string, string) {}

func testSnapshots() []models.ProductSnapshot {
	return []models.ProductSnapshot{
		{ProductID: "p-1", Name: "tomato", Category: "vegetable", CurrentPrice: 40, StockLevel: 30, DemandScore: 80, DaysLeft: 1},
		{ProductID: "p-2", Name: "mango", Category: "fruit", CurrentPrice: 30, StockLevel: 120, DemandScore: 55, DaysLeft: 8},
	}
}

func newTestOrchestrator(res *fakeResolver, gw *fakeGateway, recs *fakeRecStore, fcs *fakeForecastStore) *Orchestrator {
	return NewOrchestrator(res, gw, recs, fcs, nil, nopMetrics{}, nil)
}

func TestGeneratePricingSuccess(t *testing.T) {
	gw := &fakeGateway{outcome: &models.PredictionOutcome{
		Kind: models.OutcomeSuccess,
		Payload: &models.PredictionResponse{
			Success:      true,
			ModelVersion: "xgb-v3",
			Recommendations: []models.PriceRecommendation{
				{ProductID: "p-1", RecommendedPrice: 42.5, PriceChangePct: 6.25, Confidence: 0.9, Reason: "seasonal demand"},
			},
		},
	}}
	recs := &fakeRecStore{}
	o := newTestOrchestrator(&fakeResolver{snapshots: testSnapshots()}, gw, recs, &fakeForecastStore{})

	res, err := o.GeneratePricing(context.Background(), []models.ProductReference{{ProductID: "p-1"}})
	if err != nil {
		t.Fatalf("generate pricing: %v", err)
	}
	if res.Note != "" {
		t.Fatalf("success path must not carry the fallback note: %q", res.Note)
	}
	if res.ModelVersion != "xgb-v3" || res.Count != 1 {
		t.Fatalf("result = %+v", res)
	}
	if gw.lastOp != models.OpPredictPricing {
		t.Fatalf("operation = %s", gw.lastOp)
	}
	if len(recs.inserted) != 1 {
		t.Fatalf("recommendations not persisted")
	}
	r := res.Recommendations[0]
	if r.ID == "" || r.CreatedAt.IsZero() || r.ValidUntil.IsZero() {
		t.Fatalf("recommendation not stamped: %+v", r)
	}
	if r.ProductName != "tomato" || r.Category != "vegetable" || r.CurrentPrice != 40 {
		t.Fatalf("identity not filled from snapshot: %+v", r)
	}
}

func TestGeneratePricingFallsBackOnEveryFailureKind(t *testing.T) {
	failures := []*models.PredictionOutcome{
		{Kind: models.OutcomeTimeout},
		{Kind: models.OutcomeProcessFailure, ExitCode: 1, Stderr: "traceback"},
		{Kind: models.OutcomeParseFailure, Raw: "garbage"},
		{Kind: models.OutcomeStartFailure, Err: errors.New("no such file")},
		{Kind: models.OutcomeSuccess, Payload: &models.PredictionResponse{Success: false, Error: "bad input"}},
	}

	for _, outcome := range failures {
		t.Run(string(outcome.Kind), func(t *testing.T) {
			recs := &fakeRecStore{}
			o := newTestOrchestrator(&fakeResolver{snapshots: testSnapshots()}, &fakeGateway{outcome: outcome}, recs, &fakeForecastStore{})

			res, err := o.GeneratePricing(context.Background(), []models.ProductReference{{ProductID: "p-1"}, {ProductID: "p-2"}})
			if err != nil {
				t.Fatalf("pricing must not fail: %v", err)
			}
			if res.Note != FallbackNote {
				t.Fatalf("note = %q", res.Note)
			}
			if res.Count != 2 {
				t.Fatalf("count = %d, want one per resolved product", res.Count)
			}
			for _, r := range res.Recommendations {
				if r.ModelVersion != pricing.FallbackModelVersion {
					t.Fatalf("model version = %q", r.ModelVersion)
				}
				if r.Confidence != 0.75 {
					t.Fatalf("confidence = %v, want 0.75", r.Confidence)
				}
				if r.ID == "" {
					t.Fatalf("missing id")
				}
			}
			if len(recs.inserted) != 2 {
				t.Fatalf("fallback output not persisted")
			}
		})
	}
}

func TestGeneratePricingPersistenceFailureDoesNotBlockResponse(t *testing.T) {
	recs := &fakeRecStore{insertErr: errors.New("disk full")}
	gw := &fakeGateway{outcome: &models.PredictionOutcome{Kind: models.OutcomeTimeout}}
	o := newTestOrchestrator(&fakeResolver{snapshots: testSnapshots()}, gw, recs, &fakeForecastStore{})

	res, err := o.GeneratePricing(context.Background(), []models.ProductReference{{ProductID: "p-1"}})
	if err != nil {
		t.Fatalf("persistence failure must not surface: %v", err)
	}
	if res.Count != 2 {
		t.Fatalf("count = %d", res.Count)
	}
}

func TestGeneratePricingEmptyBatch(t *testing.T) {
	gw := &fakeGateway{outcome: &models.PredictionOutcome{Kind: models.OutcomeSuccess}}
	o := newTestOrchestrator(&fakeResolver{}, gw, &fakeRecStore{}, &fakeForecastStore{})

	_, err := o.GeneratePricing(context.Background(), nil)
	if !errors.Is(err, domrepo.ErrEmptyBatch) {
		t.Fatalf("want ErrEmptyBatch, got %v", err)
	}
	if gw.calls != 0 {
		t.Fatalf("predictor must not be invoked for an empty batch")
	}
}

func TestGeneratePricingZeroResolved(t *testing.T) {
	gw := &fakeGateway{outcome: &models.PredictionOutcome{Kind: models.OutcomeSuccess}}
	o := newTestOrchestrator(&fakeResolver{snapshots: nil}, gw, &fakeRecStore{}, &fakeForecastStore{})

	_, err := o.GeneratePricing(context.Background(), []models.ProductReference{{Name: "unknown"}})
	if !errors.Is(err, domrepo.ErrEmptyBatch) {
		t.Fatalf("want ErrEmptyBatch, got %v", err)
	}
	if gw.calls != 0 {
		t.Fatalf("predictor must not be invoked when nothing resolves")
	}
}

func TestGeneratePricingCatalogUnavailable(t *testing.T) {
	gw := &fakeGateway{outcome: &models.PredictionOutcome{Kind: models.OutcomeSuccess}}
	o := newTestOrchestrator(&fakeResolver{err: domrepo.ErrCatalogUnavailable}, gw, &fakeRecStore{}, &fakeForecastStore{})

	_, err := o.GeneratePricing(context.Background(), []models.ProductReference{{ProductID: "p-1"}})
	if !errors.Is(err, domrepo.ErrCatalogUnavailable) {
		t.Fatalf("catalog unavailability must not look like zero matches: %v", err)
	}
	if gw.calls != 0 {
		t.Fatalf("predictor must not be invoked")
	}
}

func TestGenerateForecastSuccess(t *testing.T) {
	gw := &fakeGateway{outcome: &models.PredictionOutcome{
		Kind: models.OutcomeSuccess,
		Payload: &models.PredictionResponse{
			Success:      true,
			ModelVersion: "lstm-v2",
			Forecasts: []models.DemandForecast{
				{ProductID: "p-1", City: "hanoi", Category: "vegetable", ForecastDate: "2025-06-02", PredictedDemand: 340, DayOfWeek: "Monday", Confidence: 0.88},
			},
		},
	}}
	fcs := &fakeForecastStore{}
	o := newTestOrchestrator(&fakeResolver{snapshots: testSnapshots()}, gw, &fakeRecStore{}, fcs)

	res, err := o.GenerateForecast(context.Background(), []models.ProductReference{{ProductID: "p-1"}}, 7, []string{"hanoi"})
	if err != nil {
		t.Fatalf("generate forecast: %v", err)
	}
	if res.Count != 1 || res.ModelVersion != "lstm-v2" {
		t.Fatalf("result = %+v", res)
	}
	if gw.lastOp != models.OpPredictDemand {
		t.Fatalf("operation = %s", gw.lastOp)
	}
	if gw.lastReq.Days != 7 || len(gw.lastReq.Cities) != 1 {
		t.Fatalf("request params lost: %+v", gw.lastReq)
	}
	if len(fcs.inserted) != 1 {
		t.Fatalf("forecasts not persisted")
	}
	if fcs.inserted[0].ID == "" || fcs.inserted[0].CreatedAt.IsZero() {
		t.Fatalf("forecast not stamped: %+v", fcs.inserted[0])
	}
}

func TestGenerateForecastHasNoFallback(t *testing.T) {
	failures := []*models.PredictionOutcome{
		{Kind: models.OutcomeTimeout},
		{Kind: models.OutcomeProcessFailure, ExitCode: 2},
		{Kind: models.OutcomeParseFailure},
		{Kind: models.OutcomeStartFailure, Err: errors.New("enoent")},
		{Kind: models.OutcomeSuccess, Payload: &models.PredictionResponse{Success: false, Error: "series too short"}},
	}

	for _, outcome := range failures {
		t.Run(string(outcome.Kind), func(t *testing.T) {
			fcs := &fakeForecastStore{}
			o := newTestOrchestrator(&fakeResolver{snapshots: testSnapshots()}, &fakeGateway{outcome: outcome}, &fakeRecStore{}, fcs)

			_, err := o.GenerateForecast(context.Background(), []models.ProductReference{{ProductID: "p-1"}}, 7, nil)
			if !errors.Is(err, ErrPredictorFailed) {
				t.Fatalf("want ErrPredictorFailed, got %v", err)
			}
			if len(fcs.inserted) != 0 {
				t.Fatalf("failed forecast run must persist nothing")
			}
		})
	}
}

func TestApplyRecommendation(t *testing.T) {
	recs := &fakeRecStore{inserted: []models.PriceRecommendation{
		{ID: "r-1", ProductID: "p-1", RecommendedPrice: 34.61},
	}}
	o := newTestOrchestrator(&fakeResolver{}, &fakeGateway{}, recs, &fakeForecastStore{})

	got, err := o.Apply(context.Background(), "r-1")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !got.Applied {
		t.Fatalf("applied flag not flipped")
	}

	if _, err := o.Apply(context.Background(), "r-404"); !errors.Is(err, domrepo.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestFallbackDeterministicTimestamps(t *testing.T) {
	gw := &fakeGateway{outcome: &models.PredictionOutcome{Kind: models.OutcomeStartFailure, Err: errors.New("enoent")}}
	o := newTestOrchestrator(&fakeResolver{snapshots: testSnapshots()[:1]}, gw, &fakeRecStore{}, &fakeForecastStore{})
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	o.now = func() time.Time { return fixed }

	res, err := o.GeneratePricing(context.Background(), []models.ProductReference{{ProductID: "p-1"}})
	if err != nil {
		t.Fatalf("pricing: %v", err)
	}
	r := res.Recommendations[0]
	if !r.CreatedAt.Equal(fixed) || !r.ValidUntil.Equal(fixed.Add(24*time.Hour)) {
		t.Fatalf("validity window wrong: %+v", r)
	}
	if r.RecommendedPrice != 34.61 {
		t.Fatalf("scenario price = %v, want 34.61", r.RecommendedPrice)
	}
}
