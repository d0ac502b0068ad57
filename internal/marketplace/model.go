package marketplace

import (
	"fmt"
	"strings"
	"time"

	"github.com/sudo-init-do/servicehub/internal/apperr"
	"github.com/sudo-init-do/servicehub/internal/user"
)

type RequestStatus string

const (
	StatusOpen       RequestStatus = "open"
	StatusInProgress RequestStatus = "in_progress"
	StatusCompleted  RequestStatus = "completed"
	StatusCancelled  RequestStatus = "cancelled"
)

func ParseRequestStatus(s string) (RequestStatus, error) {
	switch st := RequestStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusOpen, StatusInProgress, StatusCompleted, StatusCancelled:
		return st, nil
	default:
		return "", fmt.Errorf("%w: status must be one of open, in_progress, completed, cancelled", apperr.ErrInvalidInput)
	}
}

// Closed reports whether the request's fields are frozen.
func (s RequestStatus) Closed() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type BidStatus string

const (
	BidPending  BidStatus = "pending"
	BidAccepted BidStatus = "accepted"
	BidRejected BidStatus = "rejected"
	BidDeclined BidStatus = "declined"
)

type ServiceRequest struct {
	ID            string        `json:"id"`
	OwnerID       string        `json:"user_id"`
	OwnerName     string        `json:"user_name"`
	Title         string        `json:"title"`
	Description   string        `json:"description"`
	Category      string        `json:"category"`
	Subcategory   string        `json:"subcategory,omitempty"`
	BudgetMin     *float64      `json:"budget_min"`
	BudgetMax     *float64      `json:"budget_max"`
	Deadline      *time.Time    `json:"deadline"`
	Location      string        `json:"location"`
	Latitude      *float64      `json:"latitude,omitempty"`
	Longitude     *float64      `json:"longitude,omitempty"`
	Images        []string      `json:"images"`
	ShowBestBids  bool          `json:"show_best_bids"`
	Status        RequestStatus `json:"status"`
	AcceptedBidID *string       `json:"accepted_bid_id,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

func (r ServiceRequest) OwnedBy(u user.User) bool {
	return r.OwnerID == u.ID
}

type Bid struct {
	ID                string     `json:"id"`
	ServiceRequestID  string     `json:"service_request_id"`
	ProviderID        string     `json:"provider_id"`
	ProviderName      string     `json:"provider_name"`
	Price             float64    `json:"price"`
	Proposal          string     `json:"proposal"`
	StartDate         *time.Time `json:"start_date,omitempty"`
	EstimatedDuration string     `json:"estimated_duration,omitempty"`
	Status            BidStatus  `json:"status"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

type BidMessage struct {
	ID         string    `json:"id"`
	BidID      string    `json:"bid_id"`
	SenderID   string    `json:"sender_id"`
	SenderRole user.Role `json:"sender_role"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

// BidStats aggregates the bids of one request.
type BidStats struct {
	Count int
	Avg   float64
	Min   float64
	Max   float64
}

// RequestView is a request with the fields computed at read time.
type RequestView struct {
	ServiceRequest
	BidCount     int      `json:"bid_count"`
	AvgBidPrice  *float64 `json:"avg_bid_price"`
	MinBidPrice  *float64 `json:"min_bid_price"`
	MaxBidPrice  *float64 `json:"max_bid_price"`
	UrgencyLevel Urgency  `json:"urgency_level"`
	ImageCount   int      `json:"image_count"`
	DistanceKM   *float64 `json:"distance_km,omitempty"`
}

// ProviderBid is a bid as its provider sees it in their own list.
type ProviderBid struct {
	Bid
	ServiceTitle    string        `json:"service_title"`
	ServiceCategory string        `json:"service_category"`
	ServiceStatus   RequestStatus `json:"service_status"`
}
