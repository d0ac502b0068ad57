package marketplace

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/samber/lo"

	"github.com/sudo-init-do/servicehub/internal/apperr"
	"github.com/sudo-init-do/servicehub/internal/user"
)

const bestBidsShown = 3

// bidView is what a visibility rule sees. Bids are newest first.
type bidView struct {
	request ServiceRequest
	viewer  user.User
	bids    []Bid
}

// visibilityRule returns the bids the viewer may see and true, or false when
// the rule does not apply.
type visibilityRule struct {
	name  string
	apply func(v bidView) ([]Bid, bool)
}

// bidVisibility is evaluated in order; the first rule that applies wins.
var bidVisibility = []visibilityRule{
	{
		name: "owner",
		apply: func(v bidView) ([]Bid, bool) {
			return v.bids, v.request.OwnedBy(v.viewer)
		},
	},
	{
		name: "bidder",
		apply: func(v bidView) ([]Bid, bool) {
			isBidder := lo.ContainsBy(v.bids, func(b Bid) bool { return b.ProviderID == v.viewer.ID })
			return v.bids, isBidder
		},
	},
	{
		name: "best_bids",
		apply: func(v bidView) ([]Bid, bool) {
			if !v.request.ShowBestBids {
				return nil, false
			}
			return lowestPriced(v.bids, bestBidsShown), true
		},
	},
}

// lowestPriced returns the n cheapest bids, ascending by price. Equal prices
// keep their stored order.
func lowestPriced(bids []Bid, n int) []Bid {
	sorted := slices.Clone(bids)
	slices.SortStableFunc(sorted, func(a, b Bid) int { return cmp.Compare(a.Price, b.Price) })
	return Window(sorted, 0, n)
}

// visibleBids applies the rule list, returning the matched rule's name.
func visibleBids(v bidView) ([]Bid, string, error) {
	for _, rule := range bidVisibility {
		if bids, ok := rule.apply(v); ok {
			return bids, rule.name, nil
		}
	}
	return nil, "", fmt.Errorf("%w: bids on this request are private", apperr.ErrForbidden)
}

// ListBids returns the bids on a request that viewer is allowed to see.
func (s *Service) ListBids(ctx context.Context, requestID string, viewer user.User) ([]Bid, error) {
	r, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	bids, err := s.store.ListBids(ctx, requestID)
	if err != nil {
		return nil, err
	}
	out, _, err := visibleBids(bidView{request: r, viewer: viewer, bids: bids})
	return out, err
}
