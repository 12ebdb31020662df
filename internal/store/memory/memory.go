// Package memory is the in-process association store, for dev and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dropDatabas3/oauthbridge/internal/store/core"
)

type Store struct {
	mu     sync.RWMutex
	byUser map[string]*core.UserAssociation // key: userID + "\x00" + service
}

func New() *Store {
	return &Store{byUser: make(map[string]*core.UserAssociation)}
}

func userKey(userID, service string) string { return userID + "\x00" + service }

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Upsert(_ context.Context, assoc *core.UserAssociation) error {
	if assoc.UserID == "" || assoc.Service == "" {
		return core.ErrInvalid
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	k := userKey(assoc.UserID, assoc.Service)
	if prev, ok := s.byUser[k]; ok {
		// upsert: misma fila, token y expiry nuevos
		cp := *prev
		cp.Token = assoc.Token
		cp.ExpiresAt = assoc.ExpiresAt
		if assoc.Identifier != "" {
			cp.Identifier = assoc.Identifier
		}
		cp.UpdatedAt = now
		s.byUser[k] = &cp
		return nil
	}
	cp := *assoc
	cp.CreatedAt = now
	cp.UpdatedAt = now
	s.byUser[k] = &cp
	return nil
}

func (s *Store) FindByIdentifier(_ context.Context, service, identifier string) (*core.UserAssociation, error) {
	if identifier == "" {
		return nil, core.ErrNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.byUser {
		if a.Service == service && a.Identifier == identifier {
			cp := *a
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *Store) FindByUser(_ context.Context, userID, service string) (*core.UserAssociation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.byUser[userKey(userID, service)]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, core.ErrNotFound
}

func (s *Store) DeleteByUser(_ context.Context, userID, service string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byUser, userKey(userID, service))
	return nil
}
