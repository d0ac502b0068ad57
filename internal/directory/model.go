package directory

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/sudo-init-do/servicehub/internal/geo"
)

// ServiceProvider is a business listing in the browseable directory. It is
// not tied to a registered user.
type ServiceProvider struct {
	ID           string    `json:"id"`
	BusinessName string    `json:"business_name"`
	Description  string    `json:"description"`
	Categories   []string  `json:"services"`
	Location     string    `json:"location"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	Phone        string    `json:"phone,omitempty"`
	Email        string    `json:"email,omitempty"`
	Website      string    `json:"website,omitempty"`
	Rating       float64   `json:"google_rating"`
	ReviewCount  int       `json:"google_reviews_count"`
	Verified     bool      `json:"verified"`
	CreatedAt    time.Time `json:"created_at"`
}

func (p ServiceProvider) Point() geo.Point {
	return geo.Point{Lat: p.Latitude, Lon: p.Longitude}
}

func (p ServiceProvider) Offers(category string) bool {
	return slices.Contains(p.Categories, category)
}

// ProviderView is a listing entry with its distance from the search center,
// when there was one.
type ProviderView struct {
	ServiceProvider
	DistanceKM *float64 `json:"distance_km,omitempty"`
}

// Query is the store-level provider filter. Zero values do not constrain.
type Query struct {
	Category     string
	Location     string
	Search       string
	VerifiedOnly bool
	MinRating    *float64
	Box          *geo.Box

	Limit  int
	Offset int
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func (q Query) Matches(p ServiceProvider) bool {
	if q.Category != "" && !p.Offers(q.Category) {
		return false
	}
	if q.Location != "" && !containsFold(p.Location, q.Location) {
		return false
	}
	if q.Search != "" && !containsFold(p.BusinessName, q.Search) && !containsFold(p.Description, q.Search) {
		return false
	}
	if q.VerifiedOnly && !p.Verified {
		return false
	}
	if q.MinRating != nil && p.Rating < *q.MinRating {
		return false
	}
	if q.Box != nil && !q.Box.Contains(p.Point()) {
		return false
	}
	return true
}

// byRating is the directory's default order: rating, then review count, both
// descending, ties broken by id.
func byRating(a, b ServiceProvider) int {
	if c := cmp.Compare(b.Rating, a.Rating); c != 0 {
		return c
	}
	if c := cmp.Compare(b.ReviewCount, a.ReviewCount); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}
