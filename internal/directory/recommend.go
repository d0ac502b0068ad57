package directory

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/sudo-init-do/servicehub/internal/apperr"
	"github.com/sudo-init-do/servicehub/internal/geo"
	"github.com/sudo-init-do/servicehub/internal/marketplace"
)

const recommendLimit = 10

type RecommendationInput struct {
	ServiceCategory string   `json:"service_category"`
	Description     string   `json:"description"`
	Location        string   `json:"location"`
	Latitude        *float64 `json:"latitude"`
	Longitude       *float64 `json:"longitude"`
	RadiusKM        *float64 `json:"radius_km"`
}

type Recommendations struct {
	Providers  []ProviderView `json:"recommended_providers"`
	TotalFound int            `json:"total_providers_found"`
}

func (in RecommendationInput) validate() error {
	if strings.TrimSpace(in.ServiceCategory) == "" {
		return fmt.Errorf("%w: service_category is required", apperr.ErrInvalidInput)
	}
	if !marketplace.IsCategory(in.ServiceCategory) {
		return fmt.Errorf("%w: unknown service_category %q", apperr.ErrInvalidInput, in.ServiceCategory)
	}
	if strings.TrimSpace(in.Description) == "" {
		return fmt.Errorf("%w: description is required", apperr.ErrInvalidInput)
	}
	return nil
}

// rankRecommended orders candidates verified first, then by rating and
// review count.
func rankRecommended(a, b ServiceProvider) int {
	if a.Verified != b.Verified {
		if a.Verified {
			return -1
		}
		return 1
	}
	return byRating(a, b)
}

// Recommend suggests directory providers for a prospective request. Invalid
// input is an error; a failing store is not, since recommendations only
// enrich the request form. That case yields an empty result.
func (s *Service) Recommend(ctx context.Context, in RecommendationInput) (Recommendations, error) {
	if err := in.validate(); err != nil {
		return Recommendations{}, err
	}
	origin, radius, err := center(in.Latitude, in.Longitude, in.RadiusKM)
	if err != nil {
		return Recommendations{}, err
	}

	q := Query{Category: in.ServiceCategory}
	if origin != nil {
		box := geo.BoundingBox(*origin, radius)
		q.Box = &box
	}
	q.Limit = geoScanCap
	candidates, err := s.store.List(ctx, q)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("category", in.ServiceCategory).Msg("recommendations unavailable")
		return Recommendations{Providers: []ProviderView{}}, nil
	}

	slices.SortStableFunc(candidates, rankRecommended)
	var ranked []ProviderView
	if origin != nil {
		ranked = within(candidates, *origin, radius)
	} else {
		ranked = lo.Map(candidates, func(p ServiceProvider, _ int) ProviderView { return ProviderView{ServiceProvider: p} })
	}
	return Recommendations{
		Providers:  marketplace.Window(ranked, 0, recommendLimit),
		TotalFound: len(ranked),
	}, nil
}
