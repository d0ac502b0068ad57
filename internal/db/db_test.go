package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "uq_bids_request_provider"}
	assert.True(t, IsUniqueViolation(dup))
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert bid: %w", dup)))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: pgerrcode.CheckViolation}))
	assert.False(t, IsUniqueViolation(errors.New("plain")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestIsNoRows(t *testing.T) {
	assert.True(t, IsNoRows(fmt.Errorf("get request: %w", pgx.ErrNoRows)))
	assert.False(t, IsNoRows(errors.New("other")))
}

type recordingQuerier struct {
	Querier
	stmts  []string
	failAt int
}

func (r *recordingQuerier) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	r.stmts = append(r.stmts, sql)
	if r.failAt > 0 && len(r.stmts) == r.failAt {
		return pgconn.CommandTag{}, errors.New("syntax error")
	}
	return pgconn.CommandTag{}, nil
}

func TestMigrateRunsAllStatements(t *testing.T) {
	q := &recordingQuerier{}
	require.NoError(t, Migrate(context.Background(), q))
	assert.Len(t, q.stmts, len(migrationStatements))

	joined := strings.Join(q.stmts, "\n")
	for _, table := range []string{"users", "service_requests", "bids", "bid_messages", "provider_profiles", "service_providers"} {
		assert.Contains(t, joined, "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
	assert.Contains(t, joined, "uq_bids_request_provider ON bids (service_request_id, provider_id)")
}

func TestMigrateStopsOnFailure(t *testing.T) {
	q := &recordingQuerier{failAt: 3}
	err := Migrate(context.Background(), q)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migration 3 failed")
	assert.Len(t, q.stmts, 3)
}
