package directory

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/samber/lo"

	"github.com/sudo-init-do/servicehub/internal/apperr"
	"github.com/sudo-init-do/servicehub/internal/geo"
	"github.com/sudo-init-do/servicehub/internal/marketplace"
	"github.com/sudo-init-do/servicehub/internal/metrics"
)

const (
	DefaultCacheSize = 512
	// geoScanCap bounds how many bounding-box candidates a radius search
	// ranks in memory.
	geoScanCap = 1000
)

// Service answers directory reads. Single listings are served from an LRU
// cache; listings are immutable once seeded, so entries never go stale.
type Service struct {
	store  Store
	cache  *lru.Cache[string, ServiceProvider]
	limits marketplace.Limits
}

func NewService(store Store, cacheSize int, limits marketplace.Limits) (*Service, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, ServiceProvider](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("directory cache: %w", err)
	}
	if limits.DefaultPageSize <= 0 {
		limits = marketplace.DefaultLimits
	}
	return &Service{store: store, cache: cache, limits: limits}, nil
}

func (s *Service) Get(ctx context.Context, id string) (ServiceProvider, error) {
	if p, ok := s.cache.Get(id); ok {
		metrics.DirectoryCacheLookups.WithLabelValues("hit").Inc()
		return p, nil
	}
	metrics.DirectoryCacheLookups.WithLabelValues("miss").Inc()
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return ServiceProvider{}, err
	}
	s.cache.Add(id, p)
	return p, nil
}

// Filter is the caller-facing directory filter.
type Filter struct {
	Category     string
	Location     string
	Search       string
	VerifiedOnly bool
	MinRating    *float64
	Latitude     *float64
	Longitude    *float64
	RadiusKM     *float64
	Page         marketplace.Page
}

type ProviderList struct {
	Providers []ProviderView `json:"providers"`
	Page      int            `json:"page"`
	PageSize  int            `json:"page_size"`
}

func center(lat, lon, radiusKM *float64) (*geo.Point, float64, error) {
	if (lat == nil) != (lon == nil) {
		return nil, 0, fmt.Errorf("%w: latitude and longitude must be given together", apperr.ErrInvalidInput)
	}
	if lat == nil {
		return nil, 0, nil
	}
	p := geo.Point{Lat: *lat, Lon: *lon}
	if err := p.Validate(); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	radius := marketplace.DefaultRadiusKM
	if radiusKM != nil {
		if !(*radiusKM > 0) || math.IsInf(*radiusKM, 1) {
			return nil, 0, fmt.Errorf("%w: radius_km must be a positive number", apperr.ErrInvalidInput)
		}
		radius = *radiusKM
	}
	return &p, radius, nil
}

// List filters and pages the directory. Without coordinates the order is
// rating descending; with them, only providers inside the radius are kept,
// closest first.
func (s *Service) List(ctx context.Context, f Filter) (ProviderList, error) {
	if f.MinRating != nil && !(*f.MinRating >= 0 && *f.MinRating <= 5) {
		return ProviderList{}, fmt.Errorf("%w: min_rating must be between 0 and 5", apperr.ErrInvalidInput)
	}
	origin, radius, err := center(f.Latitude, f.Longitude, f.RadiusKM)
	if err != nil {
		return ProviderList{}, err
	}
	page := s.limits.Clamp(f.Page)
	q := Query{
		Category:     strings.TrimSpace(f.Category),
		Location:     strings.TrimSpace(f.Location),
		Search:       strings.TrimSpace(f.Search),
		VerifiedOnly: f.VerifiedOnly,
		MinRating:    f.MinRating,
	}

	if origin == nil {
		q.Limit, q.Offset = page.Size, page.Offset()
		ps, err := s.store.List(ctx, q)
		if err != nil {
			return ProviderList{}, err
		}
		views := lo.Map(ps, func(p ServiceProvider, _ int) ProviderView { return ProviderView{ServiceProvider: p} })
		return ProviderList{Providers: views, Page: page.Number, PageSize: page.Size}, nil
	}

	box := geo.BoundingBox(*origin, radius)
	q.Box = &box
	q.Limit = geoScanCap
	ps, err := s.store.List(ctx, q)
	if err != nil {
		return ProviderList{}, err
	}
	views := marketplace.Window(within(ps, *origin, radius), page.Offset(), page.Size)
	return ProviderList{Providers: views, Page: page.Number, PageSize: page.Size}, nil
}

// within keeps providers no further than radius from origin, closest first.
// Equal distances keep the input order.
func within(ps []ServiceProvider, origin geo.Point, radius float64) []ProviderView {
	out := make([]ProviderView, 0, len(ps))
	for _, p := range ps {
		d := geo.Distance(origin, p.Point())
		if d > radius {
			continue
		}
		out = append(out, ProviderView{ServiceProvider: p, DistanceKM: lo.ToPtr(geo.Round2(d))})
	}
	slices.SortStableFunc(out, func(a, b ProviderView) int { return cmp.Compare(*a.DistanceKM, *b.DistanceKM) })
	return out
}
