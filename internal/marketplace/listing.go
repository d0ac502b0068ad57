package marketplace

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/sudo-init-do/servicehub/internal/apperr"
	"github.com/sudo-init-do/servicehub/internal/geo"
)

const (
	DefaultRadiusKM = 50.0
	// geoScanCap bounds how many bounding-box candidates a radius search
	// ranks in memory.
	geoScanCap = 1000
)

// RequestFilter is the caller-facing listing filter. Empty fields do not
// constrain the result.
type RequestFilter struct {
	Category         string
	Status           string
	Location         string
	Search           string
	BudgetMin        *float64
	BudgetMax        *float64
	Urgency          string
	HasImages        *bool
	ShowBestBidsOnly bool
	Latitude         *float64
	Longitude        *float64
	RadiusKM         *float64
	Sort             string
	Order            string
	Page             Page
}

type RequestList struct {
	Requests []RequestView `json:"requests"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

func parseOrder(s string) (desc bool, err error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "desc":
		return true, nil
	case "asc":
		return false, nil
	default:
		return false, fmt.Errorf("%w: order must be asc or desc", apperr.ErrInvalidInput)
	}
}

// origin returns the search center, or nil when no coordinates were given.
func (f RequestFilter) origin() (*geo.Point, float64, error) {
	if err := validateCoordinates(f.Latitude, f.Longitude); err != nil {
		return nil, 0, err
	}
	if f.Latitude == nil {
		return nil, 0, nil
	}
	radius := DefaultRadiusKM
	if f.RadiusKM != nil {
		if !(*f.RadiusKM > 0) || math.IsInf(*f.RadiusKM, 1) {
			return nil, 0, fmt.Errorf("%w: radius_km must be a positive number", apperr.ErrInvalidInput)
		}
		radius = *f.RadiusKM
	}
	return &geo.Point{Lat: *f.Latitude, Lon: *f.Longitude}, radius, nil
}

// finite rejects NaN and infinities, which compare differently in memory and
// in Postgres.
func finite(name string, v *float64) error {
	if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
		return fmt.Errorf("%w: %s must be a finite number", apperr.ErrInvalidInput, name)
	}
	return nil
}

func (s *Service) buildQuery(f RequestFilter) (RequestQuery, error) {
	if err := finite("budget_min", f.BudgetMin); err != nil {
		return RequestQuery{}, err
	}
	if err := finite("budget_max", f.BudgetMax); err != nil {
		return RequestQuery{}, err
	}
	q := RequestQuery{
		Category:         strings.TrimSpace(f.Category),
		Location:         strings.TrimSpace(f.Location),
		Search:           strings.TrimSpace(f.Search),
		BudgetMin:        f.BudgetMin,
		BudgetMax:        f.BudgetMax,
		HasImages:        f.HasImages,
		ShowBestBidsOnly: f.ShowBestBidsOnly,
		Now:              s.now(),
	}
	var err error
	if f.Status != "" {
		if q.Status, err = ParseRequestStatus(f.Status); err != nil {
			return q, err
		}
	}
	if f.Urgency != "" {
		if q.Urgency, err = ParseUrgency(f.Urgency); err != nil {
			return q, err
		}
	}
	if q.Sort, err = ParseSortField(f.Sort); err != nil {
		return q, err
	}
	if q.Desc, err = parseOrder(f.Order); err != nil {
		return q, err
	}
	return q, nil
}

// ListRequests filters, sorts and pages requests. With coordinates, results
// are restricted to the radius and ordered by distance instead.
func (s *Service) ListRequests(ctx context.Context, f RequestFilter) (RequestList, error) {
	q, err := s.buildQuery(f)
	if err != nil {
		return RequestList{}, err
	}
	center, radius, err := f.origin()
	if err != nil {
		return RequestList{}, err
	}
	page := s.limits.Clamp(f.Page)

	var rs []ServiceRequest
	if center == nil {
		q.Limit, q.Offset = page.Size, page.Offset()
		if rs, err = s.store.ListRequests(ctx, q); err != nil {
			return RequestList{}, err
		}
	} else {
		box := geo.BoundingBox(*center, radius)
		q.Box = &box
		q.Limit = geoScanCap
		candidates, err := s.store.ListRequests(ctx, q)
		if err != nil {
			return RequestList{}, err
		}
		rs = Window(nearest(candidates, *center, radius), page.Offset(), page.Size)
	}

	views, err := s.decorate(ctx, rs, center)
	if err != nil {
		return RequestList{}, err
	}
	return RequestList{Requests: views, Page: page.Number, PageSize: page.Size}, nil
}

// nearest keeps requests within radius of center, closest first. Requests
// without coordinates are dropped.
func nearest(rs []ServiceRequest, center geo.Point, radius float64) []ServiceRequest {
	type ranked struct {
		r ServiceRequest
		d float64
	}
	in := make([]ranked, 0, len(rs))
	for _, r := range rs {
		if r.Latitude == nil || r.Longitude == nil {
			continue
		}
		d := geo.Distance(center, geo.Point{Lat: *r.Latitude, Lon: *r.Longitude})
		if d <= radius {
			in = append(in, ranked{r: r, d: d})
		}
	}
	slices.SortStableFunc(in, func(a, b ranked) int { return cmp.Compare(a.d, b.d) })
	return lo.Map(in, func(x ranked, _ int) ServiceRequest { return x.r })
}

// decorate attaches the read-time fields. center may be nil.
func (s *Service) decorate(ctx context.Context, rs []ServiceRequest, center *geo.Point) ([]RequestView, error) {
	ids := lo.Map(rs, func(r ServiceRequest, _ int) string { return r.ID })
	stats, err := s.store.BidStats(ctx, ids)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]RequestView, 0, len(rs))
	for _, r := range rs {
		v := RequestView{
			ServiceRequest: r,
			UrgencyLevel:   UrgencyOf(r.Deadline, now),
			ImageCount:     len(r.Images),
		}
		if st, ok := stats[r.ID]; ok && st.Count > 0 {
			v.BidCount = st.Count
			v.AvgBidPrice = lo.ToPtr(st.Avg)
			v.MinBidPrice = lo.ToPtr(st.Min)
			v.MaxBidPrice = lo.ToPtr(st.Max)
		}
		if center != nil && r.Latitude != nil && r.Longitude != nil {
			d := geo.Distance(*center, geo.Point{Lat: *r.Latitude, Lon: *r.Longitude})
			v.DistanceKM = lo.ToPtr(geo.Round2(d))
		}
		out = append(out, v)
	}
	return out, nil
}
