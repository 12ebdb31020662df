// Package oauth1 implements the OAuth 1.0a request signing algorithm
// (HMAC-SHA1) and the token type used by three-legged handshakes.
package oauth1

import (
	"fmt"
	"net/url"
)

// Token is an OAuth 1.0a token pair. It is opaque to us: the provider mints
// it and we only echo it back, signed. Treat both halves as secrets.
type Token struct {
	Key    string
	Secret string
}

// ParseToken decodes a provider token response body
// (oauth_token=...&oauth_token_secret=...).
func ParseToken(body string) (*Token, error) {
	vals, err := url.ParseQuery(body)
	if err != nil {
		return nil, fmt.Errorf("oauth1: malformed token response: %w", err)
	}
	t := &Token{
		Key:    vals.Get("oauth_token"),
		Secret: vals.Get("oauth_token_secret"),
	}
	if t.Key == "" || t.Secret == "" {
		return nil, fmt.Errorf("oauth1: token response missing oauth_token/oauth_token_secret")
	}
	return t, nil
}

// Encode serializes the token in the url-encoded form providers use,
// suitable for opaque storage and ParseToken round-trips.
func (t *Token) Encode() string {
	v := url.Values{}
	v.Set("oauth_token", t.Key)
	v.Set("oauth_token_secret", t.Secret)
	return v.Encode()
}
