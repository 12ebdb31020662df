// Package pg is the postgres adapter for the association store.
package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/oauthbridge/internal/store/core"
)

type Store struct{ pool *pgxpool.Pool }

// New crea el adapter sobre un pool existente.
func New(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

// Connect abre el pool y verifica la conexión.
func Connect(ctx context.Context, dsn string, maxConns int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: parse dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pg: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Close() { s.pool.Close() }

// Upsert: ON CONFLICT sobre (user_id, service) garantiza la unicidad en el
// store, no en el engine.
func (s *Store) Upsert(ctx context.Context, assoc *core.UserAssociation) error {
	if assoc.UserID == "" || assoc.Service == "" {
		return core.ErrInvalid
	}
	const query = `
		INSERT INTO user_association (user_id, service, identifier, token, expires_at, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, NOW(), NOW())
		ON CONFLICT (user_id, service) DO UPDATE SET
			identifier = COALESCE(NULLIF($3, ''), user_association.identifier),
			token      = $4,
			expires_at = $5,
			updated_at = NOW()
	`
	_, err := s.pool.Exec(ctx, query, assoc.UserID, assoc.Service, assoc.Identifier, assoc.Token, assoc.ExpiresAt)
	return err
}

func (s *Store) FindByIdentifier(ctx context.Context, service, identifier string) (*core.UserAssociation, error) {
	const query = `
		SELECT user_id, service, COALESCE(identifier, ''), token, expires_at, created_at, updated_at
		FROM user_association WHERE service = $1 AND identifier = $2
	`
	return s.scanOne(s.pool.QueryRow(ctx, query, service, identifier))
}

func (s *Store) FindByUser(ctx context.Context, userID, service string) (*core.UserAssociation, error) {
	const query = `
		SELECT user_id, service, COALESCE(identifier, ''), token, expires_at, created_at, updated_at
		FROM user_association WHERE user_id = $1 AND service = $2
	`
	return s.scanOne(s.pool.QueryRow(ctx, query, userID, service))
}

func (s *Store) DeleteByUser(ctx context.Context, userID, service string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM user_association WHERE user_id = $1 AND service = $2`, userID, service)
	return err
}

func (s *Store) scanOne(row pgx.Row) (*core.UserAssociation, error) {
	var a core.UserAssociation
	err := row.Scan(&a.UserID, &a.Service, &a.Identifier, &a.Token, &a.ExpiresAt, &a.CreatedAt, &a.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
