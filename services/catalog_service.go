package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"storefront/cache"
	"storefront/models"
	"storefront/query"
)

const categoriesKey = "categories"

type CatalogRepository interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListProducts(ctx context.Context, filter query.ProductFilter) ([]models.Product, error)
}

type FallbackDataset interface {
	Categories() ([]models.Category, error)
	Products() ([]models.Product, error)
}

type CatalogConfig struct {
	QueryTimeout  time.Duration
	CategoriesTTL time.Duration
	PrimaryTTL    time.Duration
	FallbackTTL   time.Duration
}

// CatalogPage is what the cache holds. Origin is the tier that produced it.
type CatalogPage struct {
	Categories []models.Category
	Products   []models.Product
	Origin     models.Provenance
}

type ProductPage struct {
	Products   []models.Product
	Source     models.Provenance
	CachedFrom models.Provenance
}

type CategoryPage struct {
	Categories []models.Category
	Source     models.Provenance
	CachedFrom models.Provenance
}

// CatalogService answers catalog reads from the cache, then the primary
// store, then the bundled fallback dataset.
type CatalogService struct {
	repo     CatalogRepository
	fallback FallbackDataset
	cache    *cache.Store[CatalogPage]
	cfg      CatalogConfig
	log      *slog.Logger
	tracer   trace.Tracer
	flights  singleflight.Group
}

func NewCatalogService(repo CatalogRepository, fallback FallbackDataset, store *cache.Store[CatalogPage], cfg CatalogConfig, log *slog.Logger) *CatalogService {
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = 2 * time.Second
	}
	return &CatalogService{
		repo:     repo,
		fallback: fallback,
		cache:    store,
		cfg:      cfg,
		log:      log.With(slog.String("component", "catalog")),
		tracer:   otel.Tracer("storefront/services"),
	}
}

// flight is the result of one collapsed load. hit is set when the load
// found the key already cached by a flight that finished just before it.
type flight struct {
	page CatalogPage
	hit  bool
}

func (s *CatalogService) ListProducts(ctx context.Context, filter query.ProductFilter) (ProductPage, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.ListProducts")
	defer span.End()

	filter = filter.Normalize()
	key := filter.CacheKey("products")
	span.SetAttributes(attribute.String("catalog.key", key))

	page, source, err := s.lookup(ctx, key, func(ctx context.Context) (CatalogPage, error) {
		return s.loadProducts(ctx, filter)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ProductPage{}, err
	}
	span.SetAttributes(attribute.String("catalog.source", string(source)))

	out := ProductPage{Products: cloneOrEmpty(page.Products), Source: source}
	if source == models.SourceCache {
		out.CachedFrom = page.Origin
	}
	return out, nil
}

func (s *CatalogService) ListCategories(ctx context.Context) (CategoryPage, error) {
	ctx, span := s.tracer.Start(ctx, "catalog.ListCategories")
	defer span.End()

	page, source, err := s.lookup(ctx, categoriesKey, s.loadCategories)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return CategoryPage{}, err
	}
	span.SetAttributes(attribute.String("catalog.source", string(source)))

	out := CategoryPage{Categories: cloneOrEmpty(page.Categories), Source: source}
	if source == models.SourceCache {
		out.CachedFrom = page.Origin
	}
	return out, nil
}

// PurgeCache drops every cached page and reports how many there were.
func (s *CatalogService) PurgeCache() int {
	n := s.cache.Purge()
	s.log.Info("catalog cache purged", slog.Int("entries", n))
	return n
}

func (s *CatalogService) CacheSize() int {
	return s.cache.Len()
}

func (s *CatalogService) lookup(ctx context.Context, key string, load func(context.Context) (CatalogPage, error)) (CatalogPage, models.Provenance, error) {
	if page, ok := s.cache.Get(key); ok {
		return page, models.SourceCache, nil
	}

	v, err, _ := s.flights.Do(key, func() (any, error) {
		if page, ok := s.cache.Get(key); ok {
			return flight{page: page, hit: true}, nil
		}
		page, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return flight{page: page}, nil
	})
	if err != nil {
		return CatalogPage{}, "", err
	}
	f := v.(flight)
	if f.hit {
		return f.page, models.SourceCache, nil
	}
	return f.page, f.page.Origin, nil
}

// storeContext detaches the primary call from the request so a collapsed
// flight is not cut short by whichever caller started it.
func (s *CatalogService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.cfg.QueryTimeout)
}

func (s *CatalogService) loadProducts(ctx context.Context, filter query.ProductFilter) (CatalogPage, error) {
	key := filter.CacheKey("products")

	qctx, cancel := s.storeContext(ctx)
	products, err := s.repo.ListProducts(qctx, filter)
	cancel()
	if err == nil {
		page := CatalogPage{Products: cloneOrEmpty(products), Origin: models.SourcePrimary}
		s.cache.Put(key, page, s.cfg.PrimaryTTL)
		return page, nil
	}
	s.storeFailed(ctx, "list_products", err)

	all, ferr := s.fallback.Products()
	if ferr != nil {
		return CatalogPage{}, fmt.Errorf("%w: %w", ErrFallbackExhausted, ferr)
	}
	page := CatalogPage{Products: filter.Apply(all), Origin: models.SourceFallback}
	s.cache.Put(key, page, s.cfg.FallbackTTL)
	return page, nil
}

func (s *CatalogService) loadCategories(ctx context.Context) (CatalogPage, error) {
	qctx, cancel := s.storeContext(ctx)
	categories, err := s.repo.ListCategories(qctx)
	cancel()
	if err == nil {
		page := CatalogPage{Categories: cloneOrEmpty(categories), Origin: models.SourcePrimary}
		s.cache.Put(categoriesKey, page, s.cfg.CategoriesTTL)
		return page, nil
	}
	s.storeFailed(ctx, "list_categories", err)

	categories, ferr := s.fallback.Categories()
	if ferr != nil {
		return CatalogPage{}, fmt.Errorf("%w: %w", ErrFallbackExhausted, ferr)
	}
	page := CatalogPage{Categories: categories, Origin: models.SourceFallback}
	s.cache.Put(categoriesKey, page, s.cfg.FallbackTTL)
	return page, nil
}

func (s *CatalogService) storeFailed(ctx context.Context, op string, err error) {
	err = fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	trace.SpanFromContext(ctx).AddEvent("fallback", trace.WithAttributes(attribute.String("error", err.Error())))
	s.log.WarnContext(ctx, "serving catalog from fallback",
		slog.String("op", op),
		slog.String("error", err.Error()))
}

func cloneOrEmpty[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return slices.Clone(in)
}
