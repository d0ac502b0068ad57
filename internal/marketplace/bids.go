package marketplace

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sudo-init-do/servicehub/internal/apperr"
	"github.com/sudo-init-do/servicehub/internal/metrics"
	"github.com/sudo-init-do/servicehub/internal/user"
)

type BidInput struct {
	ServiceRequestID  string  `json:"service_request_id"`
	Price             float64 `json:"price"`
	Proposal          string  `json:"proposal"`
	StartDate         string  `json:"start_date"`
	EstimatedDuration string  `json:"estimated_duration"`
}

// SubmitBid places a pending bid. The request row is locked so the open
// check and the insert see the same state; the store's uniqueness guard
// still decides concurrent duplicates.
func (s *Service) SubmitBid(ctx context.Context, actor user.User, in BidInput) (Bid, error) {
	if !actor.HasRole(user.RoleProvider) {
		return Bid{}, fmt.Errorf("%w: provider role required", apperr.ErrForbidden)
	}

	var (
		req ServiceRequest
		bid Bid
	)
	err := s.store.WithTx(ctx, func(tx Store) error {
		var err error
		req, err = tx.LockRequest(ctx, in.ServiceRequestID)
		if err != nil {
			return err
		}
		if req.Status != StatusOpen {
			return fmt.Errorf("%w: request is %s and not accepting bids", apperr.ErrInvalidState, req.Status)
		}
		if req.OwnedBy(actor) {
			return fmt.Errorf("%w: cannot bid on your own request", apperr.ErrForbidden)
		}
		_, err = tx.FindBid(ctx, req.ID, actor.ID)
		switch {
		case err == nil:
			return fmt.Errorf("%w: you already bid on this request", apperr.ErrConflict)
		case !errors.Is(err, apperr.ErrNotFound):
			return err
		}

		if in.Price <= 0 {
			return fmt.Errorf("%w: price must be positive", apperr.ErrInvalidInput)
		}
		proposal := strings.TrimSpace(in.Proposal)
		if proposal == "" {
			return fmt.Errorf("%w: proposal is required", apperr.ErrInvalidInput)
		}
		start, err := parseOptionalTimestamp("start_date", in.StartDate)
		if err != nil {
			return err
		}

		now := s.now()
		bid = Bid{
			ID:                uuid.NewString(),
			ServiceRequestID:  req.ID,
			ProviderID:        actor.ID,
			ProviderName:      actor.FullName(),
			Price:             in.Price,
			Proposal:          proposal,
			StartDate:         start,
			EstimatedDuration: strings.TrimSpace(in.EstimatedDuration),
			Status:            BidPending,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		return tx.CreateBid(ctx, &bid)
	})
	if err != nil {
		return Bid{}, err
	}

	metrics.BidsSubmitted.Inc()
	s.notify(ctx, "bid_submitted", func(n Notifier) error { return n.BidSubmitted(ctx, req, bid) })
	return bid, nil
}

// bidOnRequest loads bidID and checks it belongs to requestID.
func bidOnRequest(ctx context.Context, st Store, requestID, bidID string) (Bid, error) {
	b, err := st.GetBid(ctx, bidID)
	if err != nil {
		return Bid{}, err
	}
	if b.ServiceRequestID != requestID {
		return Bid{}, fmt.Errorf("%w: bid", apperr.ErrNotFound)
	}
	return b, nil
}

// AcceptBid accepts one bid, rejects its siblings and moves the request to
// in_progress, all in one transaction.
func (s *Service) AcceptBid(ctx context.Context, requestID, bidID string, actor user.User) (ServiceRequest, Bid, error) {
	var (
		req      ServiceRequest
		bid      Bid
		rejected []Bid
	)
	err := s.store.WithTx(ctx, func(tx Store) error {
		var err error
		req, err = tx.LockRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if err := requireOwner(req, actor); err != nil {
			return err
		}
		if req.Status != StatusOpen {
			return fmt.Errorf("%w: request is %s", apperr.ErrInvalidState, req.Status)
		}
		bid, err = bidOnRequest(ctx, tx, requestID, bidID)
		if err != nil {
			return err
		}
		if bid.Status == BidDeclined {
			return fmt.Errorf("%w: bid was declined", apperr.ErrInvalidState)
		}

		now := s.now()
		if err := tx.SetBidStatus(ctx, bid.ID, BidAccepted, now); err != nil {
			return err
		}
		if rejected, err = tx.RejectOtherBids(ctx, req.ID, bid.ID, now); err != nil {
			return err
		}
		req.Status = StatusInProgress
		req.AcceptedBidID = &bid.ID
		req.UpdatedAt = now
		if err := tx.UpdateRequest(ctx, &req); err != nil {
			return err
		}
		bid.Status = BidAccepted
		bid.UpdatedAt = now
		return nil
	})
	if err != nil {
		return ServiceRequest{}, Bid{}, err
	}

	metrics.BidsAccepted.Inc()
	s.notify(ctx, "bid_accepted", func(n Notifier) error { return n.BidAccepted(ctx, req, bid) })
	for _, b := range rejected {
		s.notify(ctx, "bid_rejected", func(n Notifier) error { return n.BidRejected(ctx, req, b) })
	}
	return req, bid, nil
}

// DeclineBid declines a bid that has not been accepted.
func (s *Service) DeclineBid(ctx context.Context, requestID, bidID string, actor user.User) (Bid, error) {
	var (
		req ServiceRequest
		bid Bid
	)
	err := s.store.WithTx(ctx, func(tx Store) error {
		var err error
		req, err = tx.LockRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if err := requireOwner(req, actor); err != nil {
			return err
		}
		bid, err = bidOnRequest(ctx, tx, requestID, bidID)
		if err != nil {
			return err
		}
		if bid.Status == BidAccepted {
			return fmt.Errorf("%w: an accepted bid cannot be declined", apperr.ErrInvalidState)
		}
		bid.Status = BidDeclined
		bid.UpdatedAt = s.now()
		return tx.SetBidStatus(ctx, bid.ID, BidDeclined, bid.UpdatedAt)
	})
	if err != nil {
		return Bid{}, err
	}

	s.notify(ctx, "bid_declined", func(n Notifier) error { return n.BidDeclined(ctx, req, bid) })
	return bid, nil
}

// MyBids lists the actor's bids with a summary of each request. Bids whose
// request has since been deleted are skipped.
func (s *Service) MyBids(ctx context.Context, actor user.User) ([]ProviderBid, error) {
	bids, err := s.store.ListBidsByProvider(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	out := make([]ProviderBid, 0, len(bids))
	for _, b := range bids {
		r, err := s.store.GetRequest(ctx, b.ServiceRequestID)
		if errors.Is(err, apperr.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, ProviderBid{
			Bid:             b,
			ServiceTitle:    r.Title,
			ServiceCategory: r.Category,
			ServiceStatus:   r.Status,
		})
	}
	return out, nil
}
