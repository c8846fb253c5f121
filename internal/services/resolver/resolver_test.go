package resolver

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"AgriPulse/internal/domain/models"
	domrepo "AgriPulse/internal/domain/repository"
)

type fakeCatalog struct {
	products []models.Product
	fail     bool
	lookups  int
}

func (f *fakeCatalog) GetProduct(_ context.Context, id string) (*models.Product, error) {
	f.lookups++
	if f.fail {
		return nil, errors.New("connection refused")
	}
	for i := range f.products {
		if f.products[i].ID == id {
			return &f.products[i], nil
		}
	}
	return nil, domrepo.ErrNotFound
}

func (f *fakeCatalog) GetProductByName(_ context.Context, name string) (*models.Product, error) {
	f.lookups++
	if f.fail {
		return nil, errors.New("connection refused")
	}
	for i := range f.products {
		if strings.EqualFold(f.products[i].Name, name) {
			return &f.products[i], nil
		}
	}
	return nil, domrepo.ErrNotFound
}

func (f *fakeCatalog) ListProducts(context.Context, int, int) ([]models.Product, int64, error) {
	return nil, 0, nil
}
func (f *fakeCatalog) UpsertProduct(context.Context, *models.Product) error { return nil }
func (f *fakeCatalog) SetCurrentPrice(context.Context, string, float64, time.Time) error {
	return nil
}
func (f *fakeCatalog) ListCities(context.Context, int, int) ([]models.City, int64, error) {
	return nil, 0, nil
}
func (f *fakeCatalog) UpsertCity(context.Context, *models.City) error { return nil }
func (f *fakeCatalog) Health(context.Context) error                   { return nil }

func catalogWith(products ...models.Product) *fakeCatalog {
	return &fakeCatalog{products: products}
}

func TestResolvePreservesOrderAndDrops(t *testing.T) {
	cat := catalogWith(
		models.Product{ID: "p-1", Name: "Tomato", Category: "vegetable", CurrentPrice: 12},
		models.Product{ID: "p-2", Name: "Mango", Category: "fruit", CurrentPrice: 30},
	)
	r := New(cat, nil, nil)

	refs := []models.ProductReference{
		{Name: "mango"},          // name match, case-insensitive
		{ProductID: "p-404"},     // unresolvable, dropped
		{ProductID: "p-1"},       // id match
		{Name: "dragon fruit"},   // unresolvable, dropped
		{Name: "  TOMATO  "},     // trimmed name match, duplicate allowed
	}
	got, err := r.Resolve(context.Background(), refs)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(got) >= len(refs) {
		t.Fatalf("expected strictly fewer resolved entries, got %d of %d", len(got), len(refs))
	}
	wantIDs := []string{"p-2", "p-1", "p-1"}
	for i, id := range wantIDs {
		if got[i].ProductID != id {
			t.Fatalf("position %d: got %s, want %s", i, got[i].ProductID, id)
		}
	}
	for _, s := range got {
		if s.ProductID == "" || s.Name == "" || s.Category == "" {
			t.Fatalf("snapshot missing canonical identity: %+v", s)
		}
	}
}

func TestResolveIDTakesPrecedenceOverName(t *testing.T) {
	cat := catalogWith(
		models.Product{ID: "p-1", Name: "Tomato", Category: "vegetable"},
		models.Product{ID: "p-2", Name: "Mango", Category: "fruit"},
	)
	r := New(cat, nil, nil)

	got, err := r.Resolve(context.Background(), []models.ProductReference{
		{ProductID: "p-2", Name: "Tomato"},
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(got) != 1 || got[0].ProductID != "p-2" {
		t.Fatalf("id match must win over name: %+v", got)
	}
}

func TestResolveOverridesApplied(t *testing.T) {
	cat := catalogWith(models.Product{
		ID: "p-1", Name: "Tomato", Category: "vegetable",
		CurrentPrice: 12, StockLevel: 300, DemandScore: 40, DaysLeft: 10,
	})
	r := New(cat, nil, nil)

	price := 9.5
	stock := 20
	got, err := r.Resolve(context.Background(), []models.ProductReference{
		{ProductID: "p-1", CurrentPrice: &price, StockLevel: &stock, Season: "summer"},
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	s := got[0]
	if s.CurrentPrice != 9.5 || s.StockLevel != 20 {
		t.Fatalf("overrides not applied: %+v", s)
	}
	if s.DemandScore != 40 || s.DaysLeft != 10 {
		t.Fatalf("catalog values lost: %+v", s)
	}
	if s.Season != "summer" {
		t.Fatalf("season not carried: %+v", s)
	}
}

func TestResolveCatalogUnavailable(t *testing.T) {
	cat := catalogWith()
	cat.fail = true
	r := New(cat, nil, nil)

	_, err := r.Resolve(context.Background(), []models.ProductReference{{ProductID: "p-1"}})
	if !errors.Is(err, domrepo.ErrCatalogUnavailable) {
		t.Fatalf("want ErrCatalogUnavailable, got %v", err)
	}
}

func TestResolveEmptyReferenceDropped(t *testing.T) {
	cat := catalogWith(models.Product{ID: "p-1", Name: "Tomato", Category: "vegetable"})
	r := New(cat, nil, nil)

	got, err := r.Resolve(context.Background(), []models.ProductReference{{}, {ProductID: "p-1"}})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("empty reference must be dropped, got %d", len(got))
	}
	if cat.lookups != 1 {
		t.Fatalf("empty reference must not hit the catalog, lookups=%d", cat.lookups)
	}
}
