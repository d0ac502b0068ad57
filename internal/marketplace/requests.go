package marketplace

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sudo-init-do/servicehub/internal/apperr"
	"github.com/sudo-init-do/servicehub/internal/geo"
	"github.com/sudo-init-do/servicehub/internal/metrics"
	"github.com/sudo-init-do/servicehub/internal/user"
)

type RequestInput struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Category     string   `json:"category"`
	Subcategory  string   `json:"subcategory"`
	BudgetMin    *float64 `json:"budget_min"`
	BudgetMax    *float64 `json:"budget_max"`
	Deadline     string   `json:"deadline"`
	Location     string   `json:"location"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	Images       []string `json:"images"`
	ShowBestBids bool     `json:"show_best_bids"`
}

// RequestPatch carries the editable fields of a request. Nil means unchanged.
// An empty deadline clears it.
type RequestPatch struct {
	Title        *string   `json:"title"`
	Description  *string   `json:"description"`
	Category     *string   `json:"category"`
	BudgetMin    *float64  `json:"budget_min"`
	BudgetMax    *float64  `json:"budget_max"`
	Deadline     *string   `json:"deadline"`
	Location     *string   `json:"location"`
	Images       *[]string `json:"images"`
	ShowBestBids *bool     `json:"show_best_bids"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseTimestamp accepts ISO-8601 with or without zone; zoneless values are UTC.
func parseTimestamp(field, s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %s must be an ISO-8601 timestamp", apperr.ErrInvalidInput, field)
}

func parseOptionalTimestamp(field, s string) (*time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	t, err := parseTimestamp(field, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func validateBudget(v *float64, field string) error {
	if v != nil && *v < 0 {
		return fmt.Errorf("%w: %s must not be negative", apperr.ErrInvalidInput, field)
	}
	return nil
}

func validateCoordinates(lat, lon *float64) error {
	if (lat == nil) != (lon == nil) {
		return fmt.Errorf("%w: latitude and longitude must be given together", apperr.ErrInvalidInput)
	}
	if lat == nil {
		return nil
	}
	if err := (geo.Point{Lat: *lat, Lon: *lon}).Validate(); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	return nil
}

func requireOwner(r ServiceRequest, actor user.User) error {
	if !r.OwnedBy(actor) {
		return fmt.Errorf("%w: only the request owner may do this", apperr.ErrForbidden)
	}
	return nil
}

func (s *Service) CreateRequest(ctx context.Context, actor user.User, in RequestInput) (ServiceRequest, error) {
	if !actor.HasRole(user.RoleCustomer) {
		return ServiceRequest{}, fmt.Errorf("%w: customer role required", apperr.ErrForbidden)
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return ServiceRequest{}, fmt.Errorf("%w: title is required", apperr.ErrInvalidInput)
	}
	if err := validateCategory(in.Category, in.Subcategory); err != nil {
		return ServiceRequest{}, err
	}
	if err := validateBudget(in.BudgetMin, "budget_min"); err != nil {
		return ServiceRequest{}, err
	}
	if err := validateBudget(in.BudgetMax, "budget_max"); err != nil {
		return ServiceRequest{}, err
	}
	if err := validateCoordinates(in.Latitude, in.Longitude); err != nil {
		return ServiceRequest{}, err
	}
	deadline, err := parseOptionalTimestamp("deadline", in.Deadline)
	if err != nil {
		return ServiceRequest{}, err
	}

	now := s.now()
	r := ServiceRequest{
		ID:           uuid.NewString(),
		OwnerID:      actor.ID,
		OwnerName:    actor.FullName(),
		Title:        title,
		Description:  strings.TrimSpace(in.Description),
		Category:     in.Category,
		Subcategory:  in.Subcategory,
		BudgetMin:    in.BudgetMin,
		BudgetMax:    in.BudgetMax,
		Deadline:     deadline,
		Location:     strings.TrimSpace(in.Location),
		Latitude:     in.Latitude,
		Longitude:    in.Longitude,
		Images:       nonNil(in.Images),
		ShowBestBids: in.ShowBestBids,
		Status:       StatusOpen,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateRequest(ctx, &r); err != nil {
		return ServiceRequest{}, err
	}
	metrics.RequestsCreated.Inc()
	return r, nil
}

// GetRequest returns a request with its derived fields. Any authenticated
// user may read a request.
func (s *Service) GetRequest(ctx context.Context, id string) (RequestView, error) {
	r, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return RequestView{}, err
	}
	views, err := s.decorate(ctx, []ServiceRequest{r}, nil)
	if err != nil {
		return RequestView{}, err
	}
	return views[0], nil
}

// UpdateRequest applies patch to an open or in-progress request. Closed
// requests are frozen for every actor, so that check precedes ownership.
func (s *Service) UpdateRequest(ctx context.Context, id string, actor user.User, patch RequestPatch) (ServiceRequest, error) {
	var out ServiceRequest
	err := s.store.WithTx(ctx, func(tx Store) error {
		r, err := tx.LockRequest(ctx, id)
		if err != nil {
			return err
		}
		if r.Status.Closed() {
			return fmt.Errorf("%w: request is %s and can no longer be edited", apperr.ErrInvalidState, r.Status)
		}
		if err := requireOwner(r, actor); err != nil {
			return err
		}
		if err := applyPatch(&r, patch); err != nil {
			return err
		}
		r.UpdatedAt = s.now()
		if err := tx.UpdateRequest(ctx, &r); err != nil {
			return err
		}
		out = r
		return nil
	})
	return out, err
}

func applyPatch(r *ServiceRequest, p RequestPatch) error {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return fmt.Errorf("%w: title must not be empty", apperr.ErrInvalidInput)
		}
		r.Title = title
	}
	if p.Description != nil {
		r.Description = strings.TrimSpace(*p.Description)
	}
	if p.Category != nil && *p.Category != r.Category {
		if err := validateCategory(*p.Category, ""); err != nil {
			return err
		}
		r.Category = *p.Category
		r.Subcategory = ""
	}
	if p.BudgetMin != nil {
		if err := validateBudget(p.BudgetMin, "budget_min"); err != nil {
			return err
		}
		r.BudgetMin = p.BudgetMin
	}
	if p.BudgetMax != nil {
		if err := validateBudget(p.BudgetMax, "budget_max"); err != nil {
			return err
		}
		r.BudgetMax = p.BudgetMax
	}
	if p.Deadline != nil {
		d, err := parseOptionalTimestamp("deadline", *p.Deadline)
		if err != nil {
			return err
		}
		r.Deadline = d
	}
	if p.Location != nil {
		r.Location = strings.TrimSpace(*p.Location)
	}
	if p.Images != nil {
		r.Images = nonNil(*p.Images)
	}
	if p.ShowBestBids != nil {
		r.ShowBestBids = *p.ShowBestBids
	}
	return nil
}

// SetStatus moves a request to any status. Only the owner may do it.
func (s *Service) SetStatus(ctx context.Context, id string, actor user.User, raw string) (ServiceRequest, error) {
	var out ServiceRequest
	err := s.store.WithTx(ctx, func(tx Store) error {
		r, err := tx.LockRequest(ctx, id)
		if err != nil {
			return err
		}
		if err := requireOwner(r, actor); err != nil {
			return err
		}
		status, err := ParseRequestStatus(raw)
		if err != nil {
			return err
		}
		r.Status = status
		r.UpdatedAt = s.now()
		if err := tx.UpdateRequest(ctx, &r); err != nil {
			return err
		}
		out = r
		return nil
	})
	return out, err
}

// DeleteRequest removes a request and its bids. Messages on those bids are
// kept as an append-only record.
func (s *Service) DeleteRequest(ctx context.Context, id string, actor user.User) error {
	return s.store.WithTx(ctx, func(tx Store) error {
		r, err := tx.LockRequest(ctx, id)
		if err != nil {
			return err
		}
		if err := requireOwner(r, actor); err != nil {
			return err
		}
		if err := tx.DeleteBidsForRequest(ctx, id); err != nil {
			return err
		}
		return tx.DeleteRequest(ctx, id)
	})
}

// MyRequests lists the actor's own requests, newest first.
func (s *Service) MyRequests(ctx context.Context, actor user.User) ([]RequestView, error) {
	rs, err := s.store.ListRequests(ctx, RequestQuery{
		OwnerID: actor.ID,
		Sort:    SortCreatedAt,
		Desc:    true,
		Now:     s.now(),
	})
	if err != nil {
		return nil, err
	}
	return s.decorate(ctx, rs, nil)
}
