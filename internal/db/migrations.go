package db

import (
	"context"
	"fmt"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		roles TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_users_email ON users (email);`,
	`CREATE TABLE IF NOT EXISTS provider_profiles (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		business_name TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		services_offered TEXT[] NOT NULL DEFAULT '{}',
		website_url TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_provider_profiles_user ON provider_profiles (user_id);`,
	`CREATE TABLE IF NOT EXISTS service_requests (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		owner_name TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		subcategory TEXT NOT NULL DEFAULT '',
		budget_min DOUBLE PRECISION,
		budget_max DOUBLE PRECISION,
		deadline TIMESTAMPTZ,
		location TEXT NOT NULL DEFAULT '',
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		images TEXT[] NOT NULL DEFAULT '{}',
		show_best_bids BOOLEAN NOT NULL DEFAULT FALSE,
		status TEXT NOT NULL DEFAULT 'open',
		accepted_bid_id TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`ALTER TABLE service_requests DROP CONSTRAINT IF EXISTS service_requests_status_check;`,
	`ALTER TABLE service_requests ADD CONSTRAINT service_requests_status_check
		CHECK (status IN ('open', 'in_progress', 'completed', 'cancelled'));`,
	`CREATE INDEX IF NOT EXISTS idx_service_requests_owner ON service_requests (owner_id, created_at DESC);`,
	`CREATE INDEX IF NOT EXISTS idx_service_requests_category ON service_requests (category);`,
	`CREATE INDEX IF NOT EXISTS idx_service_requests_status ON service_requests (status);`,
	`CREATE INDEX IF NOT EXISTS idx_service_requests_created ON service_requests (created_at DESC);`,
	`CREATE TABLE IF NOT EXISTS bids (
		id TEXT PRIMARY KEY,
		service_request_id TEXT NOT NULL,
		provider_id TEXT NOT NULL,
		provider_name TEXT NOT NULL DEFAULT '',
		price DOUBLE PRECISION NOT NULL,
		proposal TEXT NOT NULL DEFAULT '',
		start_date TIMESTAMPTZ,
		estimated_duration TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`ALTER TABLE bids DROP CONSTRAINT IF EXISTS bids_status_check;`,
	`ALTER TABLE bids ADD CONSTRAINT bids_status_check
		CHECK (status IN ('pending', 'accepted', 'rejected', 'declined'));`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_bids_request_provider ON bids (service_request_id, provider_id);`,
	`CREATE INDEX IF NOT EXISTS idx_bids_provider ON bids (provider_id, created_at DESC);`,
	`CREATE TABLE IF NOT EXISTS bid_messages (
		id TEXT PRIMARY KEY,
		bid_id TEXT NOT NULL,
		sender_id TEXT NOT NULL,
		sender_role TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_bid_messages_bid_created ON bid_messages (bid_id, created_at);`,
	`CREATE TABLE IF NOT EXISTS service_providers (
		id TEXT PRIMARY KEY,
		business_name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		categories TEXT[] NOT NULL DEFAULT '{}',
		location TEXT NOT NULL DEFAULT '',
		latitude DOUBLE PRECISION NOT NULL,
		longitude DOUBLE PRECISION NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		website TEXT NOT NULL DEFAULT '',
		rating DOUBLE PRECISION NOT NULL DEFAULT 0,
		review_count INTEGER NOT NULL DEFAULT 0,
		verified BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_service_providers_rating ON service_providers (rating DESC);`,
	`CREATE INDEX IF NOT EXISTS idx_service_providers_categories ON service_providers USING GIN (categories);`,
}

// Migrate applies the idempotent schema statements in order.
func Migrate(ctx context.Context, q Querier) error {
	for i, stmt := range migrationStatements {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
