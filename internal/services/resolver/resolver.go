package resolver

import (
	"context"
	"errors"
	"strings"
	"time"

	"AgriPulse/internal/domain/models"
	domrepo "AgriPulse/internal/domain/repository"
	domsvc "AgriPulse/internal/domain/service"
	"AgriPulse/pkg/cache"
	applogger "AgriPulse/pkg/logger"
)

const lookupTTL = 30 * time.Second

// CatalogResolver resolves product references against the canonical
// catalog. Read-only; lookups are cached briefly because batch requests
// routinely repeat the same handful of products.
type CatalogResolver struct {
	catalog domrepo.Catalog
	cache   cache.Service
	logger  *applogger.Logger
}

func New(catalog domrepo.Catalog, c cache.Service, l *applogger.Logger) *CatalogResolver {
	return &CatalogResolver{catalog: catalog, cache: c, logger: l}
}

// Resolve maps references to snapshots, preserving input order. Entries
// matching no catalog record are dropped. An exact id match wins; a
// free-text name falls back to case-insensitive equality.
//
// A store error is surfaced as ErrCatalogUnavailable so callers can
// distinguish "no matches" from "catalog could not be consulted".
func (r *CatalogResolver) Resolve(ctx context.Context, refs []models.ProductReference) ([]models.ProductSnapshot, error) {
	out := make([]models.ProductSnapshot, 0, len(refs))
	for _, ref := range refs {
		p, err := r.lookup(ctx, ref)
		if err != nil {
			if errors.Is(err, domrepo.ErrNotFound) {
				if r.logger != nil {
					r.logger.Debug("resolver: dropping unresolvable reference",
						applogger.String("product_id", ref.ProductID),
						applogger.String("name", ref.Name),
					)
				}
				continue
			}
			return nil, domrepo.ErrCatalogUnavailable
		}
		out = append(out, models.Snapshot(p, ref))
	}
	return out, nil
}

func (r *CatalogResolver) lookup(ctx context.Context, ref models.ProductReference) (*models.Product, error) {
	key := cacheKey(ref)
	if r.cache != nil && key != "" {
		var cached models.Product
		if err := r.cache.Get(ctx, key, &cached); err == nil && cached.ID != "" {
			return &cached, nil
		}
	}

	var p *models.Product
	var err error
	switch {
	case ref.ProductID != "":
		p, err = r.catalog.GetProduct(ctx, ref.ProductID)
	case strings.TrimSpace(ref.Name) != "":
		p, err = r.catalog.GetProductByName(ctx, strings.TrimSpace(ref.Name))
	default:
		return nil, domrepo.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if r.cache != nil && key != "" {
		_ = r.cache.Set(ctx, key, p, lookupTTL)
	}
	return p, nil
}

func cacheKey(ref models.ProductReference) string {
	if ref.ProductID != "" {
		return cache.GenerateKey("catalog:id", ref.ProductID)
	}
	if n := strings.TrimSpace(ref.Name); n != "" {
		return cache.GenerateKey("catalog:name", strings.ToLower(n))
	}
	return ""
}

var _ domsvc.ProductResolver = (*CatalogResolver)(nil)
