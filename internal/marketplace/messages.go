package marketplace

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sudo-init-do/servicehub/internal/apperr"
	"github.com/sudo-init-do/servicehub/internal/metrics"
	"github.com/sudo-init-do/servicehub/internal/user"
)

// Thread loads a bid and its request and checks actor takes part in the
// negotiation: the bid's provider or the request's owner.
func (s *Service) Thread(ctx context.Context, bidID string, actor user.User) (ServiceRequest, Bid, error) {
	bid, err := s.store.GetBid(ctx, bidID)
	if err != nil {
		return ServiceRequest{}, Bid{}, err
	}
	req, err := s.store.GetRequest(ctx, bid.ServiceRequestID)
	if err != nil {
		return ServiceRequest{}, Bid{}, err
	}
	if bid.ProviderID != actor.ID && !req.OwnedBy(actor) {
		return ServiceRequest{}, Bid{}, fmt.Errorf("%w: not a participant in this bid", apperr.ErrForbidden)
	}
	return req, bid, nil
}

func (s *Service) PostMessage(ctx context.Context, bidID string, actor user.User, text string) (BidMessage, error) {
	req, bid, err := s.Thread(ctx, bidID, actor)
	if err != nil {
		return BidMessage{}, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return BidMessage{}, fmt.Errorf("%w: message is required", apperr.ErrInvalidInput)
	}

	role := user.RoleCustomer
	if bid.ProviderID == actor.ID {
		role = user.RoleProvider
	}
	m := BidMessage{
		ID:         uuid.NewString(),
		BidID:      bid.ID,
		SenderID:   actor.ID,
		SenderRole: role,
		Message:    text,
		CreatedAt:  s.now(),
	}
	if err := s.store.CreateMessage(ctx, &m); err != nil {
		return BidMessage{}, err
	}

	metrics.MessagesPosted.Inc()
	s.notify(ctx, "message_posted", func(n Notifier) error { return n.MessagePosted(ctx, req, bid, m) })
	return m, nil
}

// ListMessages returns the thread oldest first. A non-nil since limits the
// result to messages created after it.
func (s *Service) ListMessages(ctx context.Context, bidID string, actor user.User, since *time.Time) ([]BidMessage, error) {
	if _, _, err := s.Thread(ctx, bidID, actor); err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, bidID, since)
}

// ParseSince parses the optional since query parameter.
func ParseSince(raw string) (*time.Time, error) {
	return parseOptionalTimestamp("since", raw)
}
