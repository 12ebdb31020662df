package state

import (
	"context"
	"time"

	rdb "github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/oauthbridge/internal/oauth1"
)

type Redis struct {
	c      *rdb.Client
	prefix string
}

// NewRedis crea un Store compartido entre instancias.
func NewRedis(addr string, db int, prefix string) *Redis {
	return &Redis{c: rdb.NewClient(&rdb.Options{Addr: addr, DB: db}), prefix: prefix}
}

func (r *Redis) Put(ctx context.Context, sid, service string, token *oauth1.Token, ttl time.Duration) error {
	return r.c.Set(ctx, r.prefix+key(sid, service), token.Encode(), ttl).Err()
}

func (r *Redis) Get(ctx context.Context, sid, service string) (*oauth1.Token, error) {
	s, err := r.c.Get(ctx, r.prefix+key(sid, service)).Result()
	if err == rdb.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return oauth1.ParseToken(s)
}

func (r *Redis) Delete(ctx context.Context, sid, service string) error {
	return r.c.Del(ctx, r.prefix+key(sid, service)).Err()
}

// Ping verifica la conexión al boot.
func (r *Redis) Ping(ctx context.Context) error {
	return r.c.Ping(ctx).Err()
}
