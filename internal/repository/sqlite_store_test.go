package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"AgriPulse/internal/domain/models"
	domrepo "AgriPulse/internal/domain/repository"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedProduct(t *testing.T, s *SQLiteStore, id, name string) {
	t.Helper()
	err := s.UpsertProduct(context.Background(), &models.Product{
		ID:           id,
		Name:         name,
		Category:     "vegetable",
		Unit:         "kg",
		CurrentPrice: 40,
		StockLevel:   30,
		DemandScore:  80,
		DaysLeft:     1,
	})
	if err != nil {
		t.Fatalf("UpsertProduct: %v", err)
	}
}

func TestProductRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedProduct(t, s, "p-tomato", "Tomato")

	p, err := s.GetProduct(ctx, "p-tomato")
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if p.Name != "Tomato" || p.CurrentPrice != 40 {
		t.Fatalf("unexpected product: %+v", p)
	}
	if p.CreatedAt.IsZero() || p.UpdatedAt.IsZero() {
		t.Fatalf("timestamps not set: %+v", p)
	}
}

func TestProductLookupByNameIsCaseInsensitive(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedProduct(t, s, "p-tomato", "Tomato")

	for _, name := range []string{"Tomato", "tomato", "TOMATO"} {
		p, err := s.GetProductByName(ctx, name)
		if err != nil {
			t.Fatalf("GetProductByName(%q): %v", name, err)
		}
		if p.ID != "p-tomato" {
			t.Fatalf("GetProductByName(%q) = %s", name, p.ID)
		}
	}
}

func TestProductNotFound(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.GetProduct(context.Background(), "nope"); !errors.Is(err, domrepo.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if _, err := s.GetProductByName(context.Background(), "nope"); !errors.Is(err, domrepo.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestUpsertProductUpdatesExisting(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedProduct(t, s, "p-onion", "Onion")

	err := s.UpsertProduct(ctx, &models.Product{
		ID: "p-onion", Name: "Onion", Category: "vegetable", Unit: "kg",
		CurrentPrice: 55, StockLevel: 10, DemandScore: 20, DaysLeft: 9,
	})
	if err != nil {
		t.Fatalf("second UpsertProduct: %v", err)
	}

	p, err := s.GetProduct(ctx, "p-onion")
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if p.CurrentPrice != 55 || p.StockLevel != 10 {
		t.Fatalf("update not applied: %+v", p)
	}

	_, total, err := s.ListProducts(ctx, 10, 0)
	if err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	if total != 1 {
		t.Fatalf("want 1 product after upsert, got %d", total)
	}
}

func TestSetCurrentPrice(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	seedProduct(t, s, "p-tomato", "Tomato")

	at := time.Now().UTC()
	if err := s.SetCurrentPrice(ctx, "p-tomato", 42.5, at); err != nil {
		t.Fatalf("SetCurrentPrice: %v", err)
	}
	p, _ := s.GetProduct(ctx, "p-tomato")
	if p.CurrentPrice != 42.5 {
		t.Fatalf("price = %v, want 42.5", p.CurrentPrice)
	}

	if err := s.SetCurrentPrice(ctx, "missing", 1, at); !errors.Is(err, domrepo.ErrNotFound) {
		t.Fatalf("want ErrNotFound for missing product, got %v", err)
	}
}

func TestCityRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	err := s.UpsertCity(ctx, &models.City{ID: "c-hanoi", Name: "Hanoi", Region: "north", Population: 8_000_000})
	if err != nil {
		t.Fatalf("UpsertCity: %v", err)
	}
	cities, total, err := s.ListCities(ctx, 10, 0)
	if err != nil {
		t.Fatalf("ListCities: %v", err)
	}
	if total != 1 || len(cities) != 1 || cities[0].Name != "Hanoi" {
		t.Fatalf("unexpected cities: total=%d %+v", total, cities)
	}
}

func sampleRec(id string, created time.Time) models.PriceRecommendation {
	return models.PriceRecommendation{
		ID:               id,
		ProductID:        "p-tomato",
		ProductName:      "Tomato",
		Category:         "vegetable",
		CurrentPrice:     40,
		RecommendedPrice: 34.61,
		PriceChangePct:   -13.48,
		Confidence:       0.75,
		Reason:           "near expiry, urgent",
		ModelVersion:     "fallback-rule-v1",
		CreatedAt:        created,
		ValidUntil:       created.Add(24 * time.Hour),
	}
}

func TestRecommendationInsertGetList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	recs := []models.PriceRecommendation{
		sampleRec("r1", base),
		sampleRec("r2", base.Add(time.Minute)),
		sampleRec("r3", base.Add(2*time.Minute)),
	}
	if err := s.InsertBatch(ctx, recs); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}

	got, err := s.Get(ctx, "r2")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.RecommendedPrice != 34.61 || got.Applied {
		t.Fatalf("unexpected recommendation: %+v", got)
	}

	list, total, err := s.List(ctx, 2, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 3 {
		t.Fatalf("total = %d, want 3", total)
	}
	if len(list) != 2 || list[0].ID != "r3" || list[1].ID != "r2" {
		t.Fatalf("want newest first, got %+v", list)
	}
}

func TestRecommendationApply(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if err := s.InsertBatch(ctx, []models.PriceRecommendation{sampleRec("r1", time.Now().UTC())}); err != nil {
		t.Fatalf("InsertBatch: %v", err)
	}

	rec, err := s.Apply(ctx, "r1")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !rec.Applied {
		t.Fatalf("Applied flag not set: %+v", rec)
	}

	// applying twice is idempotent
	rec, err = s.Apply(ctx, "r1")
	if err != nil || !rec.Applied {
		t.Fatalf("second Apply: %v %+v", err, rec)
	}

	if _, err := s.Apply(ctx, "missing"); !errors.Is(err, domrepo.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestRecommendationInsertEmptyBatch(t *testing.T) {
	s := openTestStore(t)
	if err := s.InsertBatch(context.Background(), nil); err != nil {
		t.Fatalf("empty InsertBatch should be a no-op, got %v", err)
	}
}
