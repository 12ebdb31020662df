// Package state holds the in-flight handshake state between the login
// redirect and the provider callback: the OAuth1 unauthorized token, keyed
// by session id and service. Equivale al session storage del caller; el
// core no retiene nada entre requests.
package state

import (
	"context"
	"errors"
	"time"

	"github.com/dropDatabas3/oauthbridge/internal/oauth1"
)

// ErrNotFound: no pending token for (sid, service). Expired or never set.
var ErrNotFound = errors.New("state: no pending token")

// Store persists pending unauthorized tokens with a TTL. Un handshake
// abandonado simplemente expira.
type Store interface {
	Put(ctx context.Context, sid, service string, token *oauth1.Token, ttl time.Duration) error
	Get(ctx context.Context, sid, service string) (*oauth1.Token, error)
	Delete(ctx context.Context, sid, service string) error
}

func key(sid, service string) string {
	return "oauth:pending:" + service + ":" + sid
}
