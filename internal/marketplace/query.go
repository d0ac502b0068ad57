package marketplace

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/sudo-init-do/servicehub/internal/apperr"
	"github.com/sudo-init-do/servicehub/internal/geo"
)

type Urgency string

const (
	UrgencyUrgent   Urgency = "urgent"
	UrgencyModerate Urgency = "moderate"
	UrgencyFlexible Urgency = "flexible"
)

const (
	urgentWindow   = 7 * 24 * time.Hour
	flexibleWindow = 30 * 24 * time.Hour
)

func ParseUrgency(s string) (Urgency, error) {
	switch u := Urgency(strings.ToLower(strings.TrimSpace(s))); u {
	case UrgencyUrgent, UrgencyModerate, UrgencyFlexible:
		return u, nil
	default:
		return "", fmt.Errorf("%w: urgency must be urgent, moderate or flexible", apperr.ErrInvalidInput)
	}
}

// UrgencyOf buckets a deadline relative to now. No deadline is flexible.
func UrgencyOf(deadline *time.Time, now time.Time) Urgency {
	switch {
	case deadline == nil:
		return UrgencyFlexible
	case !deadline.After(now.Add(urgentWindow)):
		return UrgencyUrgent
	case !deadline.Before(now.Add(flexibleWindow)):
		return UrgencyFlexible
	default:
		return UrgencyModerate
	}
}

type SortField string

const (
	SortCreatedAt SortField = "created_at"
	SortBudgetMin SortField = "budget_min"
	SortBudgetMax SortField = "budget_max"
	SortDeadline  SortField = "deadline"
	SortTitle     SortField = "title"
)

var sortFields = []SortField{SortCreatedAt, SortBudgetMin, SortBudgetMax, SortDeadline, SortTitle}

func ParseSortField(s string) (SortField, error) {
	if s == "" {
		return SortCreatedAt, nil
	}
	f := SortField(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(sortFields, f) {
		return "", fmt.Errorf("%w: sort must be one of created_at, budget_min, budget_max, deadline, title", apperr.ErrInvalidInput)
	}
	return f, nil
}

// RequestQuery is the store-level filter for listing requests. Zero values
// mean "no constraint".
type RequestQuery struct {
	OwnerID          string
	Category         string
	Status           RequestStatus
	Location         string
	Search           string
	BudgetMin        *float64
	BudgetMax        *float64
	Urgency          Urgency
	HasImages        *bool
	ShowBestBidsOnly bool
	// Box keeps only requests with coordinates inside it.
	Box *geo.Box
	// Now anchors the urgency buckets.
	Now time.Time

	Sort   SortField
	Desc   bool
	Limit  int
	Offset int
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// Matches is the in-process form of the filter. The Postgres store compiles
// the same predicate to SQL.
func (q RequestQuery) Matches(r ServiceRequest) bool {
	if q.OwnerID != "" && r.OwnerID != q.OwnerID {
		return false
	}
	if q.Category != "" && r.Category != q.Category {
		return false
	}
	if q.Status != "" && r.Status != q.Status {
		return false
	}
	if q.Location != "" && !containsFold(r.Location, q.Location) {
		return false
	}
	if q.Search != "" && !containsFold(r.Title, q.Search) && !containsFold(r.Description, q.Search) {
		return false
	}
	if q.BudgetMin != nil && r.BudgetMax != nil && *r.BudgetMax < *q.BudgetMin {
		return false
	}
	if q.BudgetMax != nil && r.BudgetMin != nil && *r.BudgetMin > *q.BudgetMax {
		return false
	}
	if q.Urgency != "" && UrgencyOf(r.Deadline, q.Now) != q.Urgency {
		return false
	}
	if q.HasImages != nil && (len(r.Images) > 0) != *q.HasImages {
		return false
	}
	if q.ShowBestBidsOnly && !r.ShowBestBids {
		return false
	}
	if q.Box != nil {
		if r.Latitude == nil || r.Longitude == nil {
			return false
		}
		if !q.Box.Contains(geo.Point{Lat: *r.Latitude, Lon: *r.Longitude}) {
			return false
		}
	}
	return true
}

// compareOptional orders nil after every value regardless of direction.
func compareOptional[T cmp.Ordered](a, b *T, desc bool) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	if desc {
		return cmp.Compare(*b, *a)
	}
	return cmp.Compare(*a, *b)
}

func timeUnix(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	v := t.UnixNano()
	return &v
}

// SortRequests orders rs the way the Postgres store's ORDER BY does: the
// chosen field with nulls last, ties broken by id.
func SortRequests(rs []ServiceRequest, field SortField, desc bool) {
	slices.SortStableFunc(rs, func(a, b ServiceRequest) int {
		var c int
		switch field {
		case SortBudgetMin:
			c = compareOptional(a.BudgetMin, b.BudgetMin, desc)
		case SortBudgetMax:
			c = compareOptional(a.BudgetMax, b.BudgetMax, desc)
		case SortDeadline:
			c = compareOptional(timeUnix(a.Deadline), timeUnix(b.Deadline), desc)
		case SortTitle:
			ta, tb := strings.ToLower(a.Title), strings.ToLower(b.Title)
			c = compareOptional(&ta, &tb, desc)
		default:
			ca, cb := a.CreatedAt.UnixNano(), b.CreatedAt.UnixNano()
			c = compareOptional(&ca, &cb, desc)
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// Window applies offset and limit to an already ordered slice.
func Window[T any](items []T, offset, limit int) []T {
	if offset < 0 || offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
