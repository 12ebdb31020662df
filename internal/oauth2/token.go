// Package oauth2 holds the bearer-token type used by OAuth 2.0 providers
// and the decoding of token-endpoint responses. No signing happens here:
// OAuth 2.0 presents the token directly.
package oauth2

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Token is an OAuth 2.0 bearer token. ExpiresAt cero significa expiración
// desconocida o sin expiración (el proveedor no la informó).
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// NewToken computes the absolute expiry from a relative expires-in value at
// receipt time. expiresIn <= 0 leaves ExpiresAt zero.
func NewToken(accessToken string, expiresIn int64) *Token {
	t := &Token{AccessToken: accessToken}
	if expiresIn > 0 {
		t.ExpiresAt = time.Now().Add(time.Duration(expiresIn) * time.Second)
	}
	return t
}

// Expired reports whether the token is known to be expired at now.
// Tokens without expiry never report expired.
func (t *Token) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && now.After(t.ExpiresAt)
}

// Encode serializes the token for opaque storage.
func (t *Token) Encode() string {
	v := url.Values{}
	v.Set("access_token", t.AccessToken)
	if !t.ExpiresAt.IsZero() {
		v.Set("expires_at", strconv.FormatInt(t.ExpiresAt.Unix(), 10))
	}
	return v.Encode()
}

// ParseToken inverts Encode.
func ParseToken(s string) (*Token, error) {
	vals, err := url.ParseQuery(s)
	if err != nil {
		return nil, fmt.Errorf("oauth2: malformed token string: %w", err)
	}
	access := vals.Get("access_token")
	if access == "" {
		return nil, fmt.Errorf("oauth2: token string missing access_token")
	}
	t := &Token{AccessToken: access}
	if raw := vals.Get("expires_at"); raw != "" {
		sec, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("oauth2: bad expires_at %q: %w", raw, err)
		}
		t.ExpiresAt = time.Unix(sec, 0)
	}
	return t, nil
}

// tokenResponse is the JSON shape of an authorization-code exchange response.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Scope       string `json:"scope"`
	Error       string `json:"error,omitempty"`
	ErrorDesc   string `json:"error_description,omitempty"`
}

// ProviderError is the provider's own error field from a token response,
// distinguishable from transport or parse failures.
type ProviderError struct {
	Code        string
	Description string
}

func (e *ProviderError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("provider error: %s - %s", e.Code, e.Description)
	}
	return "provider error: " + e.Code
}

// DecodeJSONResponse parses a JSON token-endpoint body. A populated `error`
// field is returned as *ProviderError with no token.
func DecodeJSONResponse(body []byte) (*Token, error) {
	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("oauth2: failed to decode token response: %w", err)
	}
	if tr.Error != "" {
		return nil, &ProviderError{Code: tr.Error, Description: tr.ErrorDesc}
	}
	if tr.AccessToken == "" {
		return nil, nil
	}
	return NewToken(tr.AccessToken, tr.ExpiresIn), nil
}

// DecodeFormResponse parses an url-encoded token-endpoint body. Proveedores
// viejos (Facebook) respondían form-encoded con "expires" relativo.
// A missing access_token yields (nil, nil): the caller decides the sentinel.
func DecodeFormResponse(body []byte) (*Token, error) {
	vals, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, fmt.Errorf("oauth2: failed to decode token response: %w", err)
	}
	if e := vals.Get("error"); e != "" {
		return nil, &ProviderError{Code: e, Description: vals.Get("error_description")}
	}
	access := vals.Get("access_token")
	if access == "" {
		return nil, nil
	}
	var expiresIn int64
	for _, k := range []string{"expires_in", "expires"} {
		if raw := vals.Get(k); raw != "" {
			if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
				expiresIn = n
				break
			}
		}
	}
	return NewToken(access, expiresIn), nil
}
