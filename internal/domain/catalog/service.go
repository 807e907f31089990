package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"vet-clinic-web/internal/platform/logger"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

// Source es el CMS visto desde el catálogo.
type Source interface {
	ListServices(ctx context.Context) ([]ServiceEntry, error)
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id string) (Product, error)
}

// Cache guarda respuestas del CMS serializadas. Un miss devuelve (false, nil).
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
}

const (
	cacheKeyServices = "catalog:services"
	cacheKeyProducts = "catalog:products"
)

type Service struct {
	src   Source
	cache Cache
	ttl   time.Duration
	log   logger.Logger
}

// NewService arma el catálogo. cache puede ser nil (sin cache).
func NewService(src Source, cache Cache, ttl time.Duration, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{src: src, cache: cache, ttl: ttl, log: log}
}

// Services devuelve el catálogo de servicios (read-through cache).
func (s *Service) Services(ctx context.Context) (Catalog, error) {
	var out []ServiceEntry
	if err := s.readThrough(ctx, cacheKeyServices, &out, func() (any, error) {
		items, err := s.src.ListServices(ctx)
		out = items
		return items, err
	}); err != nil {
		return nil, err
	}
	return Catalog(out), nil
}

func (s *Service) Products(ctx context.Context, q ProductQuery) ([]Product, error) {
	all, err := s.allProducts(ctx)
	if err != nil {
		return nil, err
	}
	return FilterProducts(all, q), nil
}

func (s *Service) LatestProducts(ctx context.Context, n int) ([]Product, error) {
	all, err := s.allProducts(ctx)
	if err != nil {
		return nil, err
	}
	return Latest(all, n), nil
}

// Product busca un producto por id directo en el CMS (sin cache: el detalle cambia stock/precio).
func (s *Service) Product(ctx context.Context, id string) (Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Product{}, ErrInvalidInput
	}
	return s.src.GetProduct(ctx, id)
}

func (s *Service) allProducts(ctx context.Context) ([]Product, error) {
	var out []Product
	err := s.readThrough(ctx, cacheKeyProducts, &out, func() (any, error) {
		items, err := s.src.ListProducts(ctx)
		out = items
		return items, err
	})
	return out, err
}

// readThrough intenta la cache; en miss llama load (que debe llenar dst) y guarda.
// Los errores de cache se registran pero no se propagan: el CMS es la fuente de verdad.
func (s *Service) readThrough(ctx context.Context, key string, dst any, load func() (any, error)) error {
	if s.cache != nil {
		hit, err := s.cache.Get(ctx, key, dst)
		if err != nil {
			s.log.Warn("catalog cache get failed", logger.Fields{"key": key, "err": err})
		}
		if hit {
			return nil
		}
	}

	v, err := load()
	if err != nil {
		return err
	}

	if s.cache != nil && s.ttl > 0 {
		if err := s.cache.Set(ctx, key, v, s.ttl); err != nil {
			s.log.Warn("catalog cache set failed", logger.Fields{"key": key, "err": err})
		}
	}
	return nil
}
