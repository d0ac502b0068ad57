package marketplace

import (
	"context"
	"time"
)

// Store persists requests, bids and bid messages. Missing records yield
// apperr.ErrNotFound. A second bid by the same provider on the same request
// yields apperr.ErrConflict, enforced by the store itself so concurrent
// submissions cannot both succeed.
type Store interface {
	CreateRequest(ctx context.Context, r *ServiceRequest) error
	GetRequest(ctx context.Context, id string) (ServiceRequest, error)
	// LockRequest reads a request and holds it against concurrent writers
	// until the surrounding transaction ends.
	LockRequest(ctx context.Context, id string) (ServiceRequest, error)
	UpdateRequest(ctx context.Context, r *ServiceRequest) error
	DeleteRequest(ctx context.Context, id string) error
	ListRequests(ctx context.Context, q RequestQuery) ([]ServiceRequest, error)

	CreateBid(ctx context.Context, b *Bid) error
	GetBid(ctx context.Context, id string) (Bid, error)
	FindBid(ctx context.Context, requestID, providerID string) (Bid, error)
	// ListBids returns a request's bids, newest first.
	ListBids(ctx context.Context, requestID string) ([]Bid, error)
	ListBidsByProvider(ctx context.Context, providerID string) ([]Bid, error)
	SetBidStatus(ctx context.Context, id string, status BidStatus, at time.Time) error
	// RejectOtherBids marks every bid on requestID except keepID as rejected
	// and returns the bids it changed.
	RejectOtherBids(ctx context.Context, requestID, keepID string, at time.Time) ([]Bid, error)
	DeleteBidsForRequest(ctx context.Context, requestID string) error
	BidStats(ctx context.Context, requestIDs []string) (map[string]BidStats, error)

	CreateMessage(ctx context.Context, m *BidMessage) error
	// ListMessages returns a bid's messages oldest first, optionally only
	// those created after since.
	ListMessages(ctx context.Context, bidID string, since *time.Time) ([]BidMessage, error)

	// WithTx runs fn as one unit of work. Nested calls join the outer one.
	WithTx(ctx context.Context, fn func(Store) error) error
	Ping(ctx context.Context) error
}
