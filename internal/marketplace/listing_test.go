package marketplace

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/servicehub/internal/apperr"
	"github.com/sudo-init-do/servicehub/internal/geo"
)

func titles(vs []RequestView) []string {
	return lo.Map(vs, func(v RequestView, _ int) string { return v.Title })
}

func deadlineIn(d time.Duration) func(*RequestInput) {
	return func(in *RequestInput) {
		in.Deadline = baseTime.Add(d).Format(time.RFC3339)
	}
}

func titled(title string) func(*RequestInput) {
	return func(in *RequestInput) { in.Title = title }
}

func TestUrgencyOf(t *testing.T) {
	now := baseTime
	day := 24 * time.Hour
	assert.Equal(t, UrgencyUrgent, UrgencyOf(ptr(now.Add(2*day)), now))
	assert.Equal(t, UrgencyUrgent, UrgencyOf(ptr(now.Add(7*day)), now))
	assert.Equal(t, UrgencyUrgent, UrgencyOf(ptr(now.Add(-day)), now))
	assert.Equal(t, UrgencyModerate, UrgencyOf(ptr(now.Add(14*day)), now))
	assert.Equal(t, UrgencyFlexible, UrgencyOf(ptr(now.Add(30*day)), now))
	assert.Equal(t, UrgencyFlexible, UrgencyOf(ptr(now.Add(60*day)), now))
	assert.Equal(t, UrgencyFlexible, UrgencyOf(nil, now))
}

func TestGetRequestUrgencyScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	day := 24 * time.Hour

	urgent := f.request(t, deadlineIn(2*day))
	flexible := f.request(t, deadlineIn(60*day))
	open := f.request(t)

	for id, want := range map[string]Urgency{urgent.ID: UrgencyUrgent, flexible.ID: UrgencyFlexible, open.ID: UrgencyFlexible} {
		v, err := f.svc.GetRequest(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, v.UrgencyLevel)
	}
}

func TestListRequestsDerivedFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.request(t, func(in *RequestInput) { in.Images = []string{"a", "b"} })
	f.request(t, titled("No bids yet"))
	f.bid(t, r.ID, providerA, 100)
	f.bid(t, r.ID, providerB, 200)
	f.bid(t, r.ID, providerC, 150)

	list, err := f.svc.ListRequests(ctx, RequestFilter{})
	require.NoError(t, err)
	require.Len(t, list.Requests, 2)

	empty, withBids := list.Requests[0], list.Requests[1]
	assert.Equal(t, "No bids yet", empty.Title)
	assert.Zero(t, empty.BidCount)
	assert.Nil(t, empty.AvgBidPrice)
	assert.Nil(t, empty.DistanceKM)

	assert.Equal(t, 3, withBids.BidCount)
	assert.InDelta(t, 150, *withBids.AvgBidPrice, 1e-9)
	assert.Equal(t, 100.0, *withBids.MinBidPrice)
	assert.Equal(t, 200.0, *withBids.MaxBidPrice)
	assert.Equal(t, 2, withBids.ImageCount)
	assert.Equal(t, 1, list.Page)
	assert.Equal(t, 20, list.PageSize)
}

func TestListRequestsFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	day := 24 * time.Hour

	f.request(t, titled("Leaky faucet"), deadlineIn(3*day))
	f.request(t, titled("Logo design"), func(in *RequestInput) {
		in.Category, in.Subcategory = "Creative & Design", ""
		in.Location = "Austin, TX"
		in.BudgetMin, in.BudgetMax = ptr(500.0), ptr(900.0)
		in.Images = []string{"img"}
		in.ShowBestBids = true
	})
	f.request(t, titled("Garden cleanup"), deadlineIn(14*day), func(in *RequestInput) {
		in.Description = "Weeds and LEAVES everywhere"
		in.BudgetMin, in.BudgetMax = nil, nil
	})
	closed := f.request(t, titled("Old job"))
	_, err := f.svc.SetStatus(ctx, closed.ID, customer, "completed")
	require.NoError(t, err)

	cases := []struct {
		name   string
		filter RequestFilter
		want   []string
	}{
		{"category", RequestFilter{Category: "Creative & Design"}, []string{"Logo design"}},
		{"status", RequestFilter{Status: "completed"}, []string{"Old job"}},
		{"location substring", RequestFilter{Location: "austin"}, []string{"Logo design"}},
		{"search description", RequestFilter{Search: "leaves"}, []string{"Garden cleanup"}},
		{"search title", RequestFilter{Search: "FAUCET"}, []string{"Leaky faucet"}},
		{"budget overlap", RequestFilter{BudgetMin: ptr(300.0)}, []string{"Garden cleanup", "Logo design"}},
		{"budget ceiling", RequestFilter{BudgetMax: ptr(150.0), Status: "open"}, []string{"Garden cleanup", "Leaky faucet"}},
		{"urgent", RequestFilter{Urgency: "urgent"}, []string{"Leaky faucet"}},
		{"moderate", RequestFilter{Urgency: "moderate"}, []string{"Garden cleanup"}},
		{"flexible", RequestFilter{Urgency: "flexible"}, []string{"Old job", "Logo design"}},
		{"has images", RequestFilter{HasImages: ptr(true)}, []string{"Logo design"}},
		{"no images", RequestFilter{HasImages: ptr(false), Status: "open"}, []string{"Garden cleanup", "Leaky faucet"}},
		{"best bids only", RequestFilter{ShowBestBidsOnly: true}, []string{"Logo design"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			list, err := f.svc.ListRequests(ctx, tc.filter)
			require.NoError(t, err)
			assert.Equal(t, tc.want, titles(list.Requests))
		})
	}
}

func TestListRequestsRejectsBadParameters(t *testing.T) {
	f := newFixture(t)
	for name, filter := range map[string]RequestFilter{
		"status":     {Status: "archived"},
		"urgency":    {Urgency: "asap"},
		"sort":       {Sort: "owner_id"},
		"order":      {Order: "sideways"},
		"half geo":   {Latitude: ptr(40.0)},
		"radius":     {Latitude: ptr(40.0), Longitude: ptr(-74.0), RadiusKM: ptr(0.0)},
		"bad point":  {Latitude: ptr(100.0), Longitude: ptr(0.0)},
		"nan radius": {Latitude: ptr(40.0), Longitude: ptr(-74.0), RadiusKM: ptr(math.NaN())},
		"inf radius": {Latitude: ptr(40.0), Longitude: ptr(-74.0), RadiusKM: ptr(math.Inf(1))},
		"nan lat":    {Latitude: ptr(math.NaN()), Longitude: ptr(-74.0)},
		"nan budget": {BudgetMin: ptr(math.NaN())},
		"inf budget": {BudgetMax: ptr(math.Inf(-1))},
	} {
		_, err := f.svc.ListRequests(context.Background(), filter)
		assert.ErrorIs(t, err, apperr.ErrInvalidInput, name)
	}
}

func TestListRequestsSortAndPaging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.request(t, titled("bravo"), func(in *RequestInput) { in.BudgetMin = ptr(300.0) })
	f.request(t, titled("Alpha"), func(in *RequestInput) { in.BudgetMin = nil })
	f.request(t, titled("charlie"), func(in *RequestInput) { in.BudgetMin = ptr(100.0) })
	f.request(t, titled("delta"), func(in *RequestInput) { in.BudgetMin = ptr(200.0) })
	f.request(t, titled("echo"), func(in *RequestInput) { in.BudgetMin = ptr(50.0) })

	list, err := f.svc.ListRequests(ctx, RequestFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"echo", "delta", "charlie", "Alpha", "bravo"}, titles(list.Requests))

	list, err = f.svc.ListRequests(ctx, RequestFilter{Sort: "title", Order: "asc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "bravo", "charlie", "delta", "echo"}, titles(list.Requests))

	list, err = f.svc.ListRequests(ctx, RequestFilter{Sort: "budget_min", Order: "asc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"echo", "charlie", "delta", "bravo", "Alpha"}, titles(list.Requests))

	list, err = f.svc.ListRequests(ctx, RequestFilter{Sort: "budget_min", Order: "desc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"bravo", "delta", "charlie", "echo", "Alpha"}, titles(list.Requests))

	list, err = f.svc.ListRequests(ctx, RequestFilter{Page: Page{Number: 2, Size: 2}})
	require.NoError(t, err)
	assert.Equal(t, []string{"charlie", "Alpha"}, titles(list.Requests))
	assert.Equal(t, 2, list.Page)

	list, err = f.svc.ListRequests(ctx, RequestFilter{Page: Page{Number: 4, Size: 2}})
	require.NoError(t, err)
	assert.Empty(t, list.Requests)
}

func TestListRequestsPageSizeIsClamped(t *testing.T) {
	f := newFixture(t)
	list, err := f.svc.ListRequests(context.Background(), RequestFilter{Page: Page{Size: 10_000}})
	require.NoError(t, err)
	assert.Equal(t, 200, list.PageSize)
	assert.NotNil(t, list.Requests)
}

func TestListRequestsHugePageNumber(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.request(t, titled("Manhattan"), func(in *RequestInput) { in.Latitude, in.Longitude = ptr(40.70), ptr(-74.00) })

	for _, n := range []int{math.MaxInt/20 + 2, math.MaxInt} {
		list, err := f.svc.ListRequests(ctx, RequestFilter{Page: Page{Number: n, Size: 20}})
		require.NoError(t, err)
		assert.Empty(t, list.Requests)

		list, err = f.svc.ListRequests(ctx, RequestFilter{
			Latitude: ptr(40.71), Longitude: ptr(-74.01),
			Page: Page{Number: n, Size: 20},
		})
		require.NoError(t, err)
		assert.Empty(t, list.Requests)
	}
}

func TestListRequestsWithinRadius(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	at := func(lat, lon float64) func(*RequestInput) {
		return func(in *RequestInput) { in.Latitude, in.Longitude = ptr(lat), ptr(lon) }
	}
	f.request(t, titled("Manhattan"), at(40.70, -74.00))
	f.request(t, titled("Los Angeles"), at(34.05, -118.24))
	f.request(t, titled("Newark"), at(40.735, -74.17))
	f.request(t, titled("Nowhere"))

	center := geo.Point{Lat: 40.71, Lon: -74.01}
	list, err := f.svc.ListRequests(ctx, RequestFilter{
		Latitude:  ptr(center.Lat),
		Longitude: ptr(center.Lon),
		RadiusKM:  ptr(50.0),
	})
	require.NoError(t, err)
	require.Equal(t, []string{"Manhattan", "Newark"}, titles(list.Requests))

	want := geo.Distance(center, geo.Point{Lat: 40.70, Lon: -74.00})
	require.NotNil(t, list.Requests[0].DistanceKM)
	assert.InDelta(t, want, *list.Requests[0].DistanceKM, 0.01)
	assert.Less(t, *list.Requests[0].DistanceKM, *list.Requests[1].DistanceKM)

	// the default radius applies without radius_km
	list, err = f.svc.ListRequests(ctx, RequestFilter{Latitude: ptr(34.0), Longitude: ptr(-118.2)})
	require.NoError(t, err)
	assert.Equal(t, []string{"Los Angeles"}, titles(list.Requests))
}

func TestSortRequestsNullsLast(t *testing.T) {
	rs := []ServiceRequest{
		{ID: "b", Deadline: nil},
		{ID: "a", Deadline: ptr(baseTime.Add(time.Hour))},
		{ID: "c", Deadline: ptr(baseTime)},
		{ID: "d", Deadline: nil},
	}
	SortRequests(rs, SortDeadline, false)
	assert.Equal(t, []string{"c", "a", "b", "d"}, lo.Map(rs, func(r ServiceRequest, _ int) string { return r.ID }))

	SortRequests(rs, SortDeadline, true)
	assert.Equal(t, []string{"a", "c", "b", "d"}, lo.Map(rs, func(r ServiceRequest, _ int) string { return r.ID }))
}

func TestWindow(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	assert.Equal(t, []int{3, 4}, Window(items, 2, 2))
	assert.Equal(t, []int{5}, Window(items, 4, 10))
	assert.Equal(t, []int{}, Window(items, 9, 2))
	assert.Equal(t, items, Window(items, 0, 0))
	assert.Equal(t, []int{}, Window(items, -3, 2))
}
