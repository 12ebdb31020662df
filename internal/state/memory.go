package state

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/dropDatabas3/oauthbridge/internal/oauth1"
)

type Mem struct{ c *gocache.Cache }

// NewMemory crea un Store en proceso. Suficiente para una sola instancia;
// con más de una, usar el adapter redis.
func NewMemory(defaultTTL time.Duration) *Mem {
	return &Mem{c: gocache.New(defaultTTL, time.Minute)}
}

func (m *Mem) Put(_ context.Context, sid, service string, token *oauth1.Token, ttl time.Duration) error {
	m.c.Set(key(sid, service), token.Encode(), ttl)
	return nil
}

func (m *Mem) Get(_ context.Context, sid, service string) (*oauth1.Token, error) {
	v, ok := m.c.Get(key(sid, service))
	if !ok {
		return nil, ErrNotFound
	}
	s, _ := v.(string)
	return oauth1.ParseToken(s)
}

func (m *Mem) Delete(_ context.Context, sid, service string) error {
	m.c.Delete(key(sid, service))
	return nil
}
