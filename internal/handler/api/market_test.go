package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"AgriPulse/internal/domain/models"
	domrepo "AgriPulse/internal/domain/repository"
	internalrepo "AgriPulse/internal/repository"
	"AgriPulse/internal/services/resolver"
	"AgriPulse/internal/usecase"
	applogger "AgriPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

type stubGateway struct {
	out *models.PredictionOutcome
}

func (g *stubGateway) Invoke(ctx context.Context, op models.Operation, req *models.PredictionRequest) *models.PredictionOutcome {
	return g.out
}

type stubForecastStore struct {
	inserted []models.DemandForecast
}

func (s *stubForecastStore) InsertBatch(ctx context.Context, fcs []models.DemandForecast) error {
	s.inserted = append(s.inserted, fcs...)
	return nil
}

func (s *stubForecastStore) List(ctx context.Context, f domrepo.ForecastFilter) ([]models.DemandForecast, error) {
	return s.inserted, nil
}

func (s *stubForecastStore) Health(ctx context.Context) error { return nil }

type noMetrics struct{}

func (noMetrics) RecordInvocation(string, string)  {}
func (noMetrics) RecordFallback(string)            {}
func (noMetrics) RecordError(string)               {}
func (noMetrics) RecordLastPrice(string, float64)  {}
func (noMetrics) RecordLatency(string, float64)    {}
func (noMetrics) RecordMessageSent(string, string) {}

func newTestHandler(t *testing.T, out *models.PredictionOutcome) (*MarketHandler, *echo.Echo) {
	t.Helper()
	store, err := internalrepo.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	err = store.UpsertProduct(context.Background(), &models.Product{
		ID: "p-tomato", Name: "Tomato", Category: "vegetable", Unit: "kg",
		CurrentPrice: 40, StockLevel: 30, DemandScore: 80, DaysLeft: 1,
	})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}

	l, err := applogger.New(&applogger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	res := resolver.New(store, nil, l)
	orch := usecase.NewOrchestrator(res, &stubGateway{out: out}, store, &stubForecastStore{}, nil, noMetrics{}, l)
	h := NewMarketHandler(l, orch, store, nil, nil)

	e := echo.New()
	h.RegisterRoutes(e)
	return h, e
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestGeneratePricingFallsBack(t *testing.T) {
	_, e := newTestHandler(t, &models.PredictionOutcome{Kind: models.OutcomeProcessFailure, ExitCode: 2})

	rec := doJSON(e, http.MethodPost, "/api/recommendations/generate",
		`{"products":[{"product_id":"p-tomato"}]}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, body = %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, "fallback-rule-v1") {
		t.Fatalf("expected fallback model version in body: %s", body)
	}
	if !strings.Contains(body, "rule-based fallback used") {
		t.Fatalf("expected fallback note in body: %s", body)
	}
}

func TestGeneratePricingPredictorSuccess(t *testing.T) {
	out := &models.PredictionOutcome{
		Kind: models.OutcomeSuccess,
		Payload: &models.PredictionResponse{
			Success:      true,
			ModelVersion: "ml-v2",
			Recommendations: []models.PriceRecommendation{{
				ProductID:        "p-tomato",
				CurrentPrice:     40,
				RecommendedPrice: 38.5,
				PriceChangePct:   -3.75,
				Confidence:       0.9,
				Reason:           "demand cooling",
			}},
		},
	}
	_, e := newTestHandler(t, out)

	rec := doJSON(e, http.MethodPost, "/api/recommendations/generate",
		`{"products":[{"product_id":"p-tomato"}]}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, body = %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, "ml-v2") {
		t.Fatalf("expected model version in body: %s", body)
	}
	if strings.Contains(body, "rule-based fallback used") {
		t.Fatalf("unexpected fallback note: %s", body)
	}
}

func TestGeneratePricingValidation(t *testing.T) {
	_, e := newTestHandler(t, &models.PredictionOutcome{Kind: models.OutcomeTimeout})

	rec := doJSON(e, http.MethodPost, "/api/recommendations/generate", `{"products":[]}`)

	// The response envelope carries the status; transport is always 200.
	if !strings.Contains(rec.Body.String(), `"status":400`) {
		t.Fatalf("expected validation error, body = %s", rec.Body.String())
	}
}

func TestGeneratePricingNoResolvableProducts(t *testing.T) {
	_, e := newTestHandler(t, &models.PredictionOutcome{Kind: models.OutcomeTimeout})

	rec := doJSON(e, http.MethodPost, "/api/recommendations/generate",
		`{"products":[{"name":"Durian"}]}`)

	if !strings.Contains(rec.Body.String(), `"status":400`) {
		t.Fatalf("expected bad request, body = %s", rec.Body.String())
	}
}

func TestGenerateForecastSurfacesPredictorFailure(t *testing.T) {
	_, e := newTestHandler(t, &models.PredictionOutcome{Kind: models.OutcomeTimeout})

	rec := doJSON(e, http.MethodPost, "/api/forecasts/generate",
		`{"products":[{"product_id":"p-tomato"}],"days":7}`)

	if !strings.Contains(rec.Body.String(), `"status":500`) {
		t.Fatalf("expected internal error, body = %s", rec.Body.String())
	}
}

func TestApplyRecommendationNotFound(t *testing.T) {
	_, e := newTestHandler(t, &models.PredictionOutcome{Kind: models.OutcomeTimeout})

	rec := doJSON(e, http.MethodPost, "/api/recommendations/nope/apply", "")

	if !strings.Contains(rec.Body.String(), `"status":404`) {
		t.Fatalf("expected not found, body = %s", rec.Body.String())
	}
}

func TestListProducts(t *testing.T) {
	_, e := newTestHandler(t, &models.PredictionOutcome{Kind: models.OutcomeTimeout})

	rec := doJSON(e, http.MethodGet, "/api/products", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "p-tomato") || !strings.Contains(body, `"total":1`) {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestHealthz(t *testing.T) {
	_, e := newTestHandler(t, &models.PredictionOutcome{Kind: models.OutcomeTimeout})

	rec := doJSON(e, http.MethodGet, "/healthz", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"catalog":"up"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}
