package marketplace

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/sudo-init-do/servicehub/internal/apperr"
)

// MemStore keeps the marketplace in process memory. It backs the memory
// storage driver and the test suites. Transactions run on a copy of the state
// that replaces the live state only when fn succeeds.
type MemStore struct {
	mu    sync.RWMutex
	state *memState
}

func NewMemStore() *MemStore {
	return &MemStore{state: newMemState()}
}

func (s *MemStore) read(fn func(st *memState) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.state)
}

func (s *MemStore) write(fn func(st *memState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

func (s *MemStore) WithTx(ctx context.Context, fn func(Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := s.state.clone()
	if err := fn(tx); err != nil {
		return err
	}
	s.state = tx
	return nil
}

func (s *MemStore) Ping(context.Context) error { return nil }

func (s *MemStore) CreateRequest(ctx context.Context, r *ServiceRequest) error {
	return s.write(func(st *memState) error { return st.CreateRequest(ctx, r) })
}

func (s *MemStore) GetRequest(ctx context.Context, id string) (out ServiceRequest, err error) {
	err = s.read(func(st *memState) error {
		out, err = st.GetRequest(ctx, id)
		return err
	})
	return out, err
}

func (s *MemStore) LockRequest(ctx context.Context, id string) (ServiceRequest, error) {
	return s.GetRequest(ctx, id)
}

func (s *MemStore) UpdateRequest(ctx context.Context, r *ServiceRequest) error {
	return s.write(func(st *memState) error { return st.UpdateRequest(ctx, r) })
}

func (s *MemStore) DeleteRequest(ctx context.Context, id string) error {
	return s.write(func(st *memState) error { return st.DeleteRequest(ctx, id) })
}

func (s *MemStore) ListRequests(ctx context.Context, q RequestQuery) (out []ServiceRequest, err error) {
	err = s.read(func(st *memState) error {
		out, err = st.ListRequests(ctx, q)
		return err
	})
	return out, err
}

func (s *MemStore) CreateBid(ctx context.Context, b *Bid) error {
	return s.write(func(st *memState) error { return st.CreateBid(ctx, b) })
}

func (s *MemStore) GetBid(ctx context.Context, id string) (out Bid, err error) {
	err = s.read(func(st *memState) error {
		out, err = st.GetBid(ctx, id)
		return err
	})
	return out, err
}

func (s *MemStore) FindBid(ctx context.Context, requestID, providerID string) (out Bid, err error) {
	err = s.read(func(st *memState) error {
		out, err = st.FindBid(ctx, requestID, providerID)
		return err
	})
	return out, err
}

func (s *MemStore) ListBids(ctx context.Context, requestID string) (out []Bid, err error) {
	err = s.read(func(st *memState) error {
		out, err = st.ListBids(ctx, requestID)
		return err
	})
	return out, err
}

func (s *MemStore) ListBidsByProvider(ctx context.Context, providerID string) (out []Bid, err error) {
	err = s.read(func(st *memState) error {
		out, err = st.ListBidsByProvider(ctx, providerID)
		return err
	})
	return out, err
}

func (s *MemStore) SetBidStatus(ctx context.Context, id string, status BidStatus, at time.Time) error {
	return s.write(func(st *memState) error { return st.SetBidStatus(ctx, id, status, at) })
}

func (s *MemStore) RejectOtherBids(ctx context.Context, requestID, keepID string, at time.Time) (out []Bid, err error) {
	err = s.write(func(st *memState) error {
		out, err = st.RejectOtherBids(ctx, requestID, keepID, at)
		return err
	})
	return out, err
}

func (s *MemStore) DeleteBidsForRequest(ctx context.Context, requestID string) error {
	return s.write(func(st *memState) error { return st.DeleteBidsForRequest(ctx, requestID) })
}

func (s *MemStore) BidStats(ctx context.Context, requestIDs []string) (out map[string]BidStats, err error) {
	err = s.read(func(st *memState) error {
		out, err = st.BidStats(ctx, requestIDs)
		return err
	})
	return out, err
}

func (s *MemStore) CreateMessage(ctx context.Context, m *BidMessage) error {
	return s.write(func(st *memState) error { return st.CreateMessage(ctx, m) })
}

func (s *MemStore) ListMessages(ctx context.Context, bidID string, since *time.Time) (out []BidMessage, err error) {
	err = s.read(func(st *memState) error {
		out, err = st.ListMessages(ctx, bidID, since)
		return err
	})
	return out, err
}

// memState is the unlocked state. It satisfies Store so a transaction can be
// handed a private copy of it.
type memState struct {
	requests map[string]ServiceRequest
	bids     map[string]Bid
	messages map[string][]BidMessage
	seq      int64
	order    map[string]int64
}

func newMemState() *memState {
	return &memState{
		requests: make(map[string]ServiceRequest),
		bids:     make(map[string]Bid),
		messages: make(map[string][]BidMessage),
		order:    make(map[string]int64),
	}
}

func (st *memState) clone() *memState {
	msgs := make(map[string][]BidMessage, len(st.messages))
	for k, v := range st.messages {
		msgs[k] = slices.Clone(v)
	}
	return &memState{
		requests: maps.Clone(st.requests),
		bids:     maps.Clone(st.bids),
		messages: msgs,
		seq:      st.seq,
		order:    maps.Clone(st.order),
	}
}

// insertion order breaks created_at ties deterministically.
func (st *memState) stamp(id string) {
	st.seq++
	st.order[id] = st.seq
}

func cloneRequest(r ServiceRequest) ServiceRequest {
	r.Images = slices.Clone(r.Images)
	return r
}

func (st *memState) WithTx(_ context.Context, fn func(Store) error) error { return fn(st) }
func (st *memState) Ping(context.Context) error                           { return nil }

func (st *memState) CreateRequest(_ context.Context, r *ServiceRequest) error {
	if _, ok := st.requests[r.ID]; ok {
		return fmt.Errorf("%w: request id already used", apperr.ErrConflict)
	}
	st.requests[r.ID] = cloneRequest(*r)
	st.stamp(r.ID)
	return nil
}

func (st *memState) GetRequest(_ context.Context, id string) (ServiceRequest, error) {
	r, ok := st.requests[id]
	if !ok {
		return ServiceRequest{}, fmt.Errorf("%w: service request", apperr.ErrNotFound)
	}
	return cloneRequest(r), nil
}

func (st *memState) LockRequest(ctx context.Context, id string) (ServiceRequest, error) {
	return st.GetRequest(ctx, id)
}

func (st *memState) UpdateRequest(_ context.Context, r *ServiceRequest) error {
	if _, ok := st.requests[r.ID]; !ok {
		return fmt.Errorf("%w: service request", apperr.ErrNotFound)
	}
	st.requests[r.ID] = cloneRequest(*r)
	return nil
}

func (st *memState) DeleteRequest(_ context.Context, id string) error {
	if _, ok := st.requests[id]; !ok {
		return fmt.Errorf("%w: service request", apperr.ErrNotFound)
	}
	delete(st.requests, id)
	return nil
}

func (st *memState) ListRequests(_ context.Context, q RequestQuery) ([]ServiceRequest, error) {
	out := make([]ServiceRequest, 0)
	for _, r := range st.requests {
		if q.Matches(r) {
			out = append(out, cloneRequest(r))
		}
	}
	SortRequests(out, q.Sort, q.Desc)
	return Window(out, q.Offset, q.Limit), nil
}

func (st *memState) CreateBid(_ context.Context, b *Bid) error {
	for _, existing := range st.bids {
		if existing.ServiceRequestID == b.ServiceRequestID && existing.ProviderID == b.ProviderID {
			return fmt.Errorf("%w: provider already bid on this request", apperr.ErrConflict)
		}
	}
	st.bids[b.ID] = *b
	st.stamp(b.ID)
	return nil
}

func (st *memState) GetBid(_ context.Context, id string) (Bid, error) {
	b, ok := st.bids[id]
	if !ok {
		return Bid{}, fmt.Errorf("%w: bid", apperr.ErrNotFound)
	}
	return b, nil
}

func (st *memState) FindBid(_ context.Context, requestID, providerID string) (Bid, error) {
	for _, b := range st.bids {
		if b.ServiceRequestID == requestID && b.ProviderID == providerID {
			return b, nil
		}
	}
	return Bid{}, fmt.Errorf("%w: bid", apperr.ErrNotFound)
}

func (st *memState) newestFirst(bids []Bid) []Bid {
	slices.SortFunc(bids, func(a, b Bid) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(st.order[b.ID], st.order[a.ID])
	})
	return bids
}

func (st *memState) ListBids(_ context.Context, requestID string) ([]Bid, error) {
	out := make([]Bid, 0)
	for _, b := range st.bids {
		if b.ServiceRequestID == requestID {
			out = append(out, b)
		}
	}
	return st.newestFirst(out), nil
}

func (st *memState) ListBidsByProvider(_ context.Context, providerID string) ([]Bid, error) {
	out := make([]Bid, 0)
	for _, b := range st.bids {
		if b.ProviderID == providerID {
			out = append(out, b)
		}
	}
	return st.newestFirst(out), nil
}

func (st *memState) SetBidStatus(_ context.Context, id string, status BidStatus, at time.Time) error {
	b, ok := st.bids[id]
	if !ok {
		return fmt.Errorf("%w: bid", apperr.ErrNotFound)
	}
	b.Status = status
	b.UpdatedAt = at
	st.bids[id] = b
	return nil
}

func (st *memState) RejectOtherBids(_ context.Context, requestID, keepID string, at time.Time) ([]Bid, error) {
	out := make([]Bid, 0)
	for id, b := range st.bids {
		if b.ServiceRequestID == requestID && id != keepID {
			b.Status = BidRejected
			b.UpdatedAt = at
			st.bids[id] = b
			out = append(out, b)
		}
	}
	slices.SortFunc(out, func(a, b Bid) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (st *memState) DeleteBidsForRequest(_ context.Context, requestID string) error {
	for id, b := range st.bids {
		if b.ServiceRequestID == requestID {
			delete(st.bids, id)
		}
	}
	return nil
}

func (st *memState) BidStats(_ context.Context, requestIDs []string) (map[string]BidStats, error) {
	want := make(map[string]bool, len(requestIDs))
	for _, id := range requestIDs {
		want[id] = true
	}
	sums := make(map[string]float64)
	out := make(map[string]BidStats)
	for _, b := range st.bids {
		if !want[b.ServiceRequestID] {
			continue
		}
		s, seen := out[b.ServiceRequestID]
		if !seen {
			s.Min, s.Max = b.Price, b.Price
		}
		s.Count++
		s.Min = min(s.Min, b.Price)
		s.Max = max(s.Max, b.Price)
		sums[b.ServiceRequestID] += b.Price
		out[b.ServiceRequestID] = s
	}
	for id, s := range out {
		s.Avg = sums[id] / float64(s.Count)
		out[id] = s
	}
	return out, nil
}

func (st *memState) CreateMessage(_ context.Context, m *BidMessage) error {
	st.messages[m.BidID] = append(st.messages[m.BidID], *m)
	return nil
}

func (st *memState) ListMessages(_ context.Context, bidID string, since *time.Time) ([]BidMessage, error) {
	out := make([]BidMessage, 0, len(st.messages[bidID]))
	for _, m := range st.messages[bidID] {
		if since != nil && !m.CreatedAt.After(*since) {
			continue
		}
		out = append(out, m)
	}
	slices.SortStableFunc(out, func(a, b BidMessage) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}
