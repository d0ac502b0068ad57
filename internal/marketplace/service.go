package marketplace

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/sudo-init-do/servicehub/internal/metrics"
)

// Notifier is told about bid lifecycle events after they are committed.
// Implementations must not assume the caller retries.
type Notifier interface {
	BidSubmitted(ctx context.Context, req ServiceRequest, bid Bid) error
	BidAccepted(ctx context.Context, req ServiceRequest, bid Bid) error
	BidDeclined(ctx context.Context, req ServiceRequest, bid Bid) error
	// BidRejected fires for each sibling closed out by an accepted bid.
	BidRejected(ctx context.Context, req ServiceRequest, bid Bid) error
	MessagePosted(ctx context.Context, req ServiceRequest, bid Bid, msg BidMessage) error
}

// NopNotifier ignores every event. Embed it to implement a subset.
type NopNotifier struct{}

func (NopNotifier) BidSubmitted(context.Context, ServiceRequest, Bid) error { return nil }
func (NopNotifier) BidAccepted(context.Context, ServiceRequest, Bid) error  { return nil }
func (NopNotifier) BidDeclined(context.Context, ServiceRequest, Bid) error  { return nil }
func (NopNotifier) BidRejected(context.Context, ServiceRequest, Bid) error  { return nil }
func (NopNotifier) MessagePosted(context.Context, ServiceRequest, Bid, BidMessage) error {
	return nil
}

// Notifiers fans an event out to each notifier and joins their errors.
type Notifiers []Notifier

func (ns Notifiers) each(fn func(Notifier) error) error {
	var errs []error
	for _, n := range ns {
		if err := fn(n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (ns Notifiers) BidSubmitted(ctx context.Context, req ServiceRequest, bid Bid) error {
	return ns.each(func(n Notifier) error { return n.BidSubmitted(ctx, req, bid) })
}

func (ns Notifiers) BidAccepted(ctx context.Context, req ServiceRequest, bid Bid) error {
	return ns.each(func(n Notifier) error { return n.BidAccepted(ctx, req, bid) })
}

func (ns Notifiers) BidDeclined(ctx context.Context, req ServiceRequest, bid Bid) error {
	return ns.each(func(n Notifier) error { return n.BidDeclined(ctx, req, bid) })
}

func (ns Notifiers) BidRejected(ctx context.Context, req ServiceRequest, bid Bid) error {
	return ns.each(func(n Notifier) error { return n.BidRejected(ctx, req, bid) })
}

func (ns Notifiers) MessagePosted(ctx context.Context, req ServiceRequest, bid Bid, msg BidMessage) error {
	return ns.each(func(n Notifier) error { return n.MessagePosted(ctx, req, bid, msg) })
}

// Limits bounds listing page sizes.
type Limits struct {
	DefaultPageSize int
	MaxPageSize     int
}

var DefaultLimits = Limits{DefaultPageSize: 20, MaxPageSize: 200}

// Page is a 1-based page number and a page size.
type Page struct {
	Number int
	Size   int
}

// maxOffset keeps Offset well clear of integer overflow.
const maxOffset = math.MaxInt / 2

// Clamp fills in the default page size and caps it at the maximum. The page
// number is capped so that Offset never overflows.
func (l Limits) Clamp(p Page) Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size <= 0 {
		p.Size = l.DefaultPageSize
	}
	if p.Size > l.MaxPageSize {
		p.Size = l.MaxPageSize
	}
	if p.Size > 0 && p.Number > maxOffset/p.Size+1 {
		p.Number = maxOffset/p.Size + 1
	}
	return p
}

func (p Page) Offset() int { return (p.Number - 1) * p.Size }

type Service struct {
	store    Store
	notifier Notifier
	limits   Limits
	now      func() time.Time
}

func NewService(store Store, notifier Notifier, limits Limits) *Service {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if limits.DefaultPageSize <= 0 {
		limits.DefaultPageSize = DefaultLimits.DefaultPageSize
	}
	if limits.MaxPageSize < limits.DefaultPageSize {
		limits.MaxPageSize = max(DefaultLimits.MaxPageSize, limits.DefaultPageSize)
	}
	return &Service{
		store:    store,
		notifier: notifier,
		limits:   limits,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Store exposes the underlying store for readiness checks.
func (s *Service) Store() Store { return s.store }

// notify runs a best-effort notification. Failures are logged and counted.
func (s *Service) notify(ctx context.Context, kind string, fn func(Notifier) error) {
	if err := fn(s.notifier); err != nil {
		metrics.NotificationsFailed.WithLabelValues(kind).Inc()
		zerolog.Ctx(ctx).Warn().Err(err).Str("notification", kind).Msg("notification failed")
	}
}
