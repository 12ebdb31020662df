// Package core defines the association store contract: the persisted link
// between a local user and a provider-side identity/token.
package core

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid")
)

// UserAssociation links a local user to a service token. At most one row
// per (user, service): persists are upserts, never duplicates.
type UserAssociation struct {
	UserID  string
	Service string
	// Identifier es el ID del usuario del lado del proveedor. Opcional.
	Identifier string
	// Token es la forma serializada opaca (access.Token.Encode()).
	Token     string
	ExpiresAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Associations is the persistence contract. Atomicity of the (user,
// service) uniqueness is the adapter's responsibility (transactional
// upsert), not the engine's.
type Associations interface {
	Ping(ctx context.Context) error

	// Upsert crea o actualiza la asociación para (UserID, Service).
	Upsert(ctx context.Context, assoc *UserAssociation) error

	// FindByIdentifier busca el usuario local dueño de una identidad remota.
	FindByIdentifier(ctx context.Context, service, identifier string) (*UserAssociation, error)

	// FindByUser retorna la asociación de un usuario con un servicio.
	FindByUser(ctx context.Context, userID, service string) (*UserAssociation, error)

	DeleteByUser(ctx context.Context, userID, service string) error
}
