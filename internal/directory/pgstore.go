package directory

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sudo-init-do/servicehub/internal/apperr"
	"github.com/sudo-init-do/servicehub/internal/db"
)

const providerColumns = `id, business_name, description, categories, location, latitude, longitude,
	phone, email, website, rating, review_count, verified, created_at`

type PGStore struct {
	q db.Querier
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{q: pool}
}

func scanProvider(row pgx.Row) (ServiceProvider, error) {
	var p ServiceProvider
	err := row.Scan(&p.ID, &p.BusinessName, &p.Description, &p.Categories, &p.Location, &p.Latitude, &p.Longitude,
		&p.Phone, &p.Email, &p.Website, &p.Rating, &p.ReviewCount, &p.Verified, &p.CreatedAt)
	if db.IsNoRows(err) {
		return ServiceProvider{}, fmt.Errorf("%w: service provider", apperr.ErrNotFound)
	}
	if p.Categories == nil {
		p.Categories = []string{}
	}
	return p, err
}

func (s *PGStore) Create(ctx context.Context, p *ServiceProvider) error {
	categories := p.Categories
	if categories == nil {
		categories = []string{}
	}
	_, err := s.q.Exec(ctx, `
		INSERT INTO service_providers (`+providerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		p.ID, p.BusinessName, p.Description, categories, p.Location, p.Latitude, p.Longitude,
		p.Phone, p.Email, p.Website, p.Rating, p.ReviewCount, p.Verified, p.CreatedAt,
	)
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("%w: provider id already used", apperr.ErrConflict)
	}
	return err
}

func (s *PGStore) Get(ctx context.Context, id string) (ServiceProvider, error) {
	return scanProvider(s.q.QueryRow(ctx, `SELECT `+providerColumns+` FROM service_providers WHERE id = $1`, id))
}

func (s *PGStore) List(ctx context.Context, q Query) ([]ServiceProvider, error) {
	sql, args := buildProviderQuery(q)
	rows, err := s.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ServiceProvider{}
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PGStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.q.QueryRow(ctx, `SELECT COUNT(*) FROM service_providers`).Scan(&n)
	return n, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func buildProviderQuery(q Query) (string, []any) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.Category != "" {
		where = append(where, arg(q.Category)+" = ANY(categories)")
	}
	if q.Location != "" {
		where = append(where, "location ILIKE "+arg("%"+likeEscaper.Replace(q.Location)+"%"))
	}
	if q.Search != "" {
		p := arg("%" + likeEscaper.Replace(q.Search) + "%")
		where = append(where, fmt.Sprintf("(business_name ILIKE %s OR description ILIKE %s)", p, p))
	}
	if q.VerifiedOnly {
		where = append(where, "verified")
	}
	if q.MinRating != nil {
		where = append(where, "rating >= "+arg(*q.MinRating))
	}
	if q.Box != nil {
		where = append(where,
			fmt.Sprintf("latitude BETWEEN %s AND %s", arg(q.Box.MinLat), arg(q.Box.MaxLat)),
			fmt.Sprintf("longitude BETWEEN %s AND %s", arg(q.Box.MinLon), arg(q.Box.MaxLon)),
		)
	}

	var b strings.Builder
	b.WriteString("SELECT " + providerColumns + " FROM service_providers")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY rating DESC, review_count DESC, id ASC")
	if q.Limit > 0 {
		b.WriteString(" LIMIT " + arg(q.Limit))
	}
	if q.Offset > 0 {
		b.WriteString(" OFFSET " + arg(q.Offset))
	}
	return b.String(), args
}
