package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/i474232898/weather-alerts/internal/subscription"
)

const subscribersSchema = `
CREATE TABLE IF NOT EXISTS subscribers (
	id                BIGSERIAL PRIMARY KEY,
	email             TEXT NOT NULL UNIQUE,
	weather_condition TEXT NOT NULL,
	latitude          DOUBLE PRECISION,
	longitude         DOUBLE PRECISION,
	city              TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Querier abstracts the subset of pgxpool.Pool used by PostgresStore.
// This allows injection of a mock in tests.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore keeps subscribers in the subscribers table.
type PostgresStore struct {
	q Querier
}

// NewPostgresStore constructs a PostgresStore backed by the given pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{q: pool}
}

// NewPostgresStoreWithQuerier constructs a PostgresStore with a custom Querier (for tests).
func NewPostgresStoreWithQuerier(q Querier) *PostgresStore {
	return &PostgresStore{q: q}
}

// ConnectPostgres opens a pgxpool connection and verifies it with a ping.
func ConnectPostgres(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("creating pgxpool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// EnsureSchema creates the subscribers table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.q.Exec(ctx, subscribersSchema); err != nil {
		return fmt.Errorf("creating subscribers table: %w", err)
	}
	return nil
}

// ListAll returns subscribers in insertion order.
func (s *PostgresStore) ListAll(ctx context.Context) ([]subscription.Subscriber, error) {
	const q = `
		SELECT email, weather_condition, latitude, longitude, city, created_at
		FROM subscribers
		ORDER BY id
	`

	rows, err := s.q.Query(ctx, q)
	if err != nil {
		return nil, unavailable("list subscribers", err)
	}
	defer rows.Close()

	subs := []subscription.Subscriber{}
	for rows.Next() {
		var sub subscription.Subscriber
		if err := rows.Scan(
			&sub.Email,
			&sub.WeatherCondition,
			&sub.Latitude,
			&sub.Longitude,
			&sub.City,
			&sub.CreatedAt,
		); err != nil {
			return nil, unavailable("scan subscriber row", err)
		}
		subs = append(subs, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate subscriber rows", err)
	}
	return subs, nil
}

// FindByEmail returns the subscriber for email.
func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (subscription.Subscriber, error) {
	const q = `
		SELECT email, weather_condition, latitude, longitude, city, created_at
		FROM subscribers
		WHERE email = $1
	`
	return s.scanOne(s.q.QueryRow(ctx, q, email), "find subscriber")
}

// Create inserts sub; ON CONFLICT leaves an existing row untouched.
func (s *PostgresStore) Create(ctx context.Context, sub subscription.Subscriber) error {
	const q = `
		INSERT INTO subscribers (email, weather_condition, latitude, longitude, city, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (email) DO NOTHING
	`

	tag, err := s.q.Exec(ctx, q, sub.Email, sub.WeatherCondition, sub.Latitude, sub.Longitude, sub.City, sub.CreatedAt)
	if err != nil {
		return unavailable("create subscriber", err)
	}
	if tag.RowsAffected() == 0 {
		return subscription.ErrDuplicateEmail
	}
	return nil
}

// DeleteByEmail removes and returns the subscriber for email.
func (s *PostgresStore) DeleteByEmail(ctx context.Context, email string) (subscription.Subscriber, error) {
	const q = `
		DELETE FROM subscribers
		WHERE email = $1
		RETURNING email, weather_condition, latitude, longitude, city, created_at
	`
	return s.scanOne(s.q.QueryRow(ctx, q, email), "delete subscriber")
}

func (s *PostgresStore) scanOne(row pgx.Row, op string) (subscription.Subscriber, error) {
	var sub subscription.Subscriber
	err := row.Scan(
		&sub.Email,
		&sub.WeatherCondition,
		&sub.Latitude,
		&sub.Longitude,
		&sub.City,
		&sub.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return subscription.Subscriber{}, subscription.ErrNotFound
		}
		return subscription.Subscriber{}, unavailable(op, err)
	}
	return sub, nil
}
