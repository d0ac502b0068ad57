package marketplace

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sudo-init-do/servicehub/internal/apperr"
	"github.com/sudo-init-do/servicehub/internal/db"
	"github.com/sudo-init-do/servicehub/internal/user"
)

type PGStore struct {
	pool *pgxpool.Pool
	q    db.Querier
	inTx bool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool, q: pool}
}

func (s *PGStore) WithTx(ctx context.Context, fn func(Store) error) error {
	if s.inTx {
		return fn(s)
	}
	return db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&PGStore{pool: s.pool, q: tx, inTx: true})
	})
}

func (s *PGStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func notFound(err error, what string) error {
	if db.IsNoRows(err) {
		return fmt.Errorf("%w: %s", apperr.ErrNotFound, what)
	}
	return err
}

func scanRequest(row pgx.Row) (ServiceRequest, error) {
	var (
		r      ServiceRequest
		status string
	)
	err := row.Scan(&r.ID, &r.OwnerID, &r.OwnerName, &r.Title, &r.Description, &r.Category, &r.Subcategory,
		&r.BudgetMin, &r.BudgetMax, &r.Deadline, &r.Location, &r.Latitude, &r.Longitude, &r.Images,
		&r.ShowBestBids, &status, &r.AcceptedBidID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return ServiceRequest{}, notFound(err, "service request")
	}
	r.Status = RequestStatus(status)
	if r.Images == nil {
		r.Images = []string{}
	}
	return r, nil
}

func nonNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}

func (s *PGStore) CreateRequest(ctx context.Context, r *ServiceRequest) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO service_requests (`+requestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		r.ID, r.OwnerID, r.OwnerName, r.Title, r.Description, r.Category, r.Subcategory,
		r.BudgetMin, r.BudgetMax, r.Deadline, r.Location, r.Latitude, r.Longitude, nonNil(r.Images),
		r.ShowBestBids, string(r.Status), r.AcceptedBidID, r.CreatedAt, r.UpdatedAt,
	)
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("%w: request id already used", apperr.ErrConflict)
	}
	return err
}

func (s *PGStore) GetRequest(ctx context.Context, id string) (ServiceRequest, error) {
	return scanRequest(s.q.QueryRow(ctx, `SELECT `+requestColumns+` FROM service_requests WHERE id = $1`, id))
}

func (s *PGStore) LockRequest(ctx context.Context, id string) (ServiceRequest, error) {
	return scanRequest(s.q.QueryRow(ctx, `SELECT `+requestColumns+` FROM service_requests WHERE id = $1 FOR UPDATE`, id))
}

func (s *PGStore) UpdateRequest(ctx context.Context, r *ServiceRequest) error {
	ct, err := s.q.Exec(ctx, `
		UPDATE service_requests
		SET title = $2, description = $3, category = $4, subcategory = $5,
		    budget_min = $6, budget_max = $7, deadline = $8, location = $9,
		    latitude = $10, longitude = $11, images = $12, show_best_bids = $13,
		    status = $14, accepted_bid_id = $15, updated_at = $16
		WHERE id = $1`,
		r.ID, r.Title, r.Description, r.Category, r.Subcategory,
		r.BudgetMin, r.BudgetMax, r.Deadline, r.Location,
		r.Latitude, r.Longitude, nonNil(r.Images), r.ShowBestBids,
		string(r.Status), r.AcceptedBidID, r.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: service request", apperr.ErrNotFound)
	}
	return nil
}

func (s *PGStore) DeleteRequest(ctx context.Context, id string) error {
	ct, err := s.q.Exec(ctx, `DELETE FROM service_requests WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: service request", apperr.ErrNotFound)
	}
	return nil
}

func (s *PGStore) ListRequests(ctx context.Context, q RequestQuery) ([]ServiceRequest, error) {
	sql, args := buildRequestQuery(q)
	rows, err := s.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ServiceRequest, 0)
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const bidColumns = `id, service_request_id, provider_id, provider_name, price, proposal,
	start_date, estimated_duration, status, created_at, updated_at`

func scanBid(row pgx.Row) (Bid, error) {
	var (
		b      Bid
		status string
	)
	err := row.Scan(&b.ID, &b.ServiceRequestID, &b.ProviderID, &b.ProviderName, &b.Price, &b.Proposal,
		&b.StartDate, &b.EstimatedDuration, &status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return Bid{}, notFound(err, "bid")
	}
	b.Status = BidStatus(status)
	return b, nil
}

func (s *PGStore) queryBids(ctx context.Context, sql string, args ...any) ([]Bid, error) {
	rows, err := s.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Bid, 0)
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *PGStore) CreateBid(ctx context.Context, b *Bid) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO bids (`+bidColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		b.ID, b.ServiceRequestID, b.ProviderID, b.ProviderName, b.Price, b.Proposal,
		b.StartDate, b.EstimatedDuration, string(b.Status), b.CreatedAt, b.UpdatedAt,
	)
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("%w: provider already bid on this request", apperr.ErrConflict)
	}
	return err
}

func (s *PGStore) GetBid(ctx context.Context, id string) (Bid, error) {
	return scanBid(s.q.QueryRow(ctx, `SELECT `+bidColumns+` FROM bids WHERE id = $1`, id))
}

func (s *PGStore) FindBid(ctx context.Context, requestID, providerID string) (Bid, error) {
	return scanBid(s.q.QueryRow(ctx,
		`SELECT `+bidColumns+` FROM bids WHERE service_request_id = $1 AND provider_id = $2`,
		requestID, providerID))
}

func (s *PGStore) ListBids(ctx context.Context, requestID string) ([]Bid, error) {
	return s.queryBids(ctx,
		`SELECT `+bidColumns+` FROM bids WHERE service_request_id = $1 ORDER BY created_at DESC, id DESC`,
		requestID)
}

func (s *PGStore) ListBidsByProvider(ctx context.Context, providerID string) ([]Bid, error) {
	return s.queryBids(ctx,
		`SELECT `+bidColumns+` FROM bids WHERE provider_id = $1 ORDER BY created_at DESC, id DESC`,
		providerID)
}

func (s *PGStore) SetBidStatus(ctx context.Context, id string, status BidStatus, at time.Time) error {
	ct, err := s.q.Exec(ctx, `UPDATE bids SET status = $2, updated_at = $3 WHERE id = $1`, id, string(status), at)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: bid", apperr.ErrNotFound)
	}
	return nil
}

func (s *PGStore) RejectOtherBids(ctx context.Context, requestID, keepID string, at time.Time) ([]Bid, error) {
	return s.queryBids(ctx, `
		UPDATE bids SET status = $3, updated_at = $4
		WHERE service_request_id = $1 AND id <> $2
		RETURNING `+bidColumns,
		requestID, keepID, string(BidRejected), at)
}

func (s *PGStore) DeleteBidsForRequest(ctx context.Context, requestID string) error {
	_, err := s.q.Exec(ctx, `DELETE FROM bids WHERE service_request_id = $1`, requestID)
	return err
}

func (s *PGStore) BidStats(ctx context.Context, requestIDs []string) (map[string]BidStats, error) {
	out := make(map[string]BidStats, len(requestIDs))
	if len(requestIDs) == 0 {
		return out, nil
	}
	rows, err := s.q.Query(ctx, `
		SELECT service_request_id, COUNT(*), AVG(price), MIN(price), MAX(price)
		FROM bids
		WHERE service_request_id = ANY($1)
		GROUP BY service_request_id`, requestIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id string
			st BidStats
		)
		if err := rows.Scan(&id, &st.Count, &st.Avg, &st.Min, &st.Max); err != nil {
			return nil, err
		}
		out[id] = st
	}
	return out, rows.Err()
}

func (s *PGStore) CreateMessage(ctx context.Context, m *BidMessage) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO bid_messages (id, bid_id, sender_id, sender_role, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.BidID, m.SenderID, string(m.SenderRole), m.Message, m.CreatedAt,
	)
	return err
}

func (s *PGStore) ListMessages(ctx context.Context, bidID string, since *time.Time) ([]BidMessage, error) {
	sql := `SELECT id, bid_id, sender_id, sender_role, message, created_at FROM bid_messages WHERE bid_id = $1`
	args := []any{bidID}
	if since != nil {
		sql += ` AND created_at > $2`
		args = append(args, *since)
	}
	sql += ` ORDER BY created_at ASC, id ASC`

	rows, err := s.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]BidMessage, 0)
	for rows.Next() {
		var (
			m    BidMessage
			role string
		)
		if err := rows.Scan(&m.ID, &m.BidID, &m.SenderID, &role, &m.Message, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.SenderRole = user.Role(role)
		out = append(out, m)
	}
	return out, rows.Err()
}
