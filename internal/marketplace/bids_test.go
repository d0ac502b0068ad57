package marketplace

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/servicehub/internal/apperr"
	"github.com/sudo-init-do/servicehub/internal/user"
)

func TestSubmitBid(t *testing.T) {
	f := newFixture(t)
	r := f.request(t)

	b, err := f.svc.SubmitBid(context.Background(), providerA, BidInput{
		ServiceRequestID:  r.ID,
		Price:             150,
		Proposal:          "  Two days of work  ",
		StartDate:         "2025-03-05",
		EstimatedDuration: "2 days",
	})
	require.NoError(t, err)
	assert.Equal(t, BidPending, b.Status)
	assert.Equal(t, "Ann", b.ProviderName)
	assert.Equal(t, "Two days of work", b.Proposal)
	require.NotNil(t, b.StartDate)
	assert.Equal(t, []string{"submitted"}, f.notifier.events)
}

func TestSubmitBidErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.request(t)
	dual := user.User{ID: customer.ID, Roles: user.Roles{user.RoleCustomer, user.RoleProvider}}

	cases := []struct {
		name  string
		actor user.User
		in    BidInput
		want  error
	}{
		{"customer cannot bid", stranger, BidInput{ServiceRequestID: r.ID, Price: 10, Proposal: "x"}, apperr.ErrForbidden},
		{"missing request", providerA, BidInput{ServiceRequestID: "nope", Price: 10, Proposal: "x"}, apperr.ErrNotFound},
		{"own request", dual, BidInput{ServiceRequestID: r.ID, Price: 10, Proposal: "x"}, apperr.ErrForbidden},
		{"zero price", providerA, BidInput{ServiceRequestID: r.ID, Proposal: "x"}, apperr.ErrInvalidInput},
		{"empty proposal", providerA, BidInput{ServiceRequestID: r.ID, Price: 10}, apperr.ErrInvalidInput},
		{"bad start date", providerA, BidInput{ServiceRequestID: r.ID, Price: 10, Proposal: "x", StartDate: "tomorrow"}, apperr.ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.SubmitBid(ctx, tc.actor, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestSubmitBidOnClosedRequest(t *testing.T) {
	for _, status := range []string{"in_progress", "completed", "cancelled"} {
		t.Run(status, func(t *testing.T) {
			f := newFixture(t)
			r := f.request(t)
			_, err := f.svc.SetStatus(context.Background(), r.ID, customer, status)
			require.NoError(t, err)

			_, err = f.svc.SubmitBid(context.Background(), providerA, BidInput{ServiceRequestID: r.ID, Price: 10, Proposal: "x"})
			assert.ErrorIs(t, err, apperr.ErrInvalidState)
		})
	}
}

func TestSecondBidFromSameProviderConflicts(t *testing.T) {
	f := newFixture(t)
	r := f.request(t)
	f.bid(t, r.ID, providerA, 120)

	_, err := f.svc.SubmitBid(context.Background(), providerA, BidInput{ServiceRequestID: r.ID, Price: 99, Proposal: "cheaper"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	bids, err := f.store.ListBids(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Len(t, bids, 1)
}

func TestConcurrentDuplicateBidsYieldOne(t *testing.T) {
	f := newFixture(t)
	r := f.request(t)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.SubmitBid(context.Background(), providerA, BidInput{ServiceRequestID: r.ID, Price: 100, Proposal: "x"})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, apperr.ErrConflict)
	}
	assert.Equal(t, 1, ok)
}

func TestStoreRejectsDuplicateBid(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	require.NoError(t, s.CreateBid(ctx, &Bid{ID: "b1", ServiceRequestID: "r1", ProviderID: "p1"}))
	err := s.CreateBid(ctx, &Bid{ID: "b2", ServiceRequestID: "r1", ProviderID: "p1"})
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestAcceptBid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.request(t)
	a := f.bid(t, r.ID, providerA, 120)
	b := f.bid(t, r.ID, providerB, 150)
	c := f.bid(t, r.ID, providerC, 180)
	_, err := f.svc.DeclineBid(ctx, r.ID, c.ID, customer)
	require.NoError(t, err)

	req, accepted, err := f.svc.AcceptBid(ctx, r.ID, b.ID, customer)
	require.NoError(t, err)
	assert.Equal(t, BidAccepted, accepted.Status)
	assert.Equal(t, StatusInProgress, req.Status)
	require.NotNil(t, req.AcceptedBidID)
	assert.Equal(t, b.ID, *req.AcceptedBidID)

	stored, err := f.store.GetRequest(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, stored.Status)
	assert.Equal(t, b.ID, *stored.AcceptedBidID)

	bids, err := f.store.ListBids(ctx, r.ID)
	require.NoError(t, err)
	statuses := map[string]BidStatus{}
	for _, bid := range bids {
		statuses[bid.ID] = bid.Status
	}
	assert.Equal(t, map[string]BidStatus{
		a.ID: BidRejected,
		b.ID: BidAccepted,
		c.ID: BidRejected,
	}, statuses)
	assert.Equal(t, []string{"submitted", "submitted", "submitted", "declined", "accepted", "rejected", "rejected"}, f.notifier.events)
}

func TestAcceptBidErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.request(t)
	other := f.request(t)
	a := f.bid(t, r.ID, providerA, 120)
	elsewhere := f.bid(t, other.ID, providerB, 90)

	_, _, err := f.svc.AcceptBid(ctx, "missing", a.ID, customer)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, _, err = f.svc.AcceptBid(ctx, r.ID, a.ID, stranger)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, _, err = f.svc.AcceptBid(ctx, r.ID, "missing", customer)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, _, err = f.svc.AcceptBid(ctx, r.ID, elsewhere.ID, customer)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, _, err = f.svc.AcceptBid(ctx, r.ID, a.ID, customer)
	require.NoError(t, err)

	// the request is in progress now
	_, _, err = f.svc.AcceptBid(ctx, r.ID, a.ID, customer)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestAcceptDeclinedBidIsInvalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.request(t)
	a := f.bid(t, r.ID, providerA, 120)
	_, err := f.svc.DeclineBid(ctx, r.ID, a.ID, customer)
	require.NoError(t, err)

	_, _, err = f.svc.AcceptBid(ctx, r.ID, a.ID, customer)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	stored, err := f.store.GetRequest(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusOpen, stored.Status)
}

func TestReopenedRequestKeepsSingleAcceptedBid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.request(t)
	a := f.bid(t, r.ID, providerA, 120)
	b := f.bid(t, r.ID, providerB, 150)

	_, _, err := f.svc.AcceptBid(ctx, r.ID, a.ID, customer)
	require.NoError(t, err)
	_, err = f.svc.SetStatus(ctx, r.ID, customer, "open")
	require.NoError(t, err)
	_, _, err = f.svc.AcceptBid(ctx, r.ID, b.ID, customer)
	require.NoError(t, err)

	bids, err := f.store.ListBids(ctx, r.ID)
	require.NoError(t, err)
	accepted := 0
	for _, bid := range bids {
		if bid.Status == BidAccepted {
			accepted++
			assert.Equal(t, b.ID, bid.ID)
		}
	}
	assert.Equal(t, 1, accepted)
}

func TestDeclineBid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.request(t)
	a := f.bid(t, r.ID, providerA, 120)
	b := f.bid(t, r.ID, providerB, 150)

	_, err := f.svc.DeclineBid(ctx, r.ID, a.ID, stranger)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.svc.DeclineBid(ctx, r.ID, "missing", customer)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	declined, err := f.svc.DeclineBid(ctx, r.ID, a.ID, customer)
	require.NoError(t, err)
	assert.Equal(t, BidDeclined, declined.Status)

	_, _, err = f.svc.AcceptBid(ctx, r.ID, b.ID, customer)
	require.NoError(t, err)
	_, err = f.svc.DeclineBid(ctx, r.ID, b.ID, customer)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestMyBids(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r1 := f.request(t)
	r2 := f.request(t, func(in *RequestInput) { in.Title = "Wire the garage"; in.Subcategory = "Electrical" })
	f.bid(t, r1.ID, providerA, 120)
	f.bid(t, r2.ID, providerA, 300)
	f.bid(t, r2.ID, providerB, 250)

	mine, err := f.svc.MyBids(ctx, providerA)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "Wire the garage", mine[0].ServiceTitle)
	assert.Equal(t, "Home Services", mine[0].ServiceCategory)
	assert.Equal(t, StatusOpen, mine[0].ServiceStatus)
	assert.Equal(t, r1.ID, mine[1].ServiceRequestID)
}
