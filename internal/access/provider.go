// Package access implements the OAuth handshake engine: token negotiation
// for both OAuth 1.0a and OAuth 2.0 providers, callback token checking, and
// authenticated API invocation.
package access

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/dropDatabas3/oauthbridge/internal/config"
	"github.com/dropDatabas3/oauthbridge/internal/oauth1"
)

// Provider is the capability interface shared by the two flow variants.
// Implementations hold only resolved static settings; every operation is
// stateless with respect to other callers.
type Provider interface {
	Service() string
	// Flow retorna "oauth1" | "oauth2" (para logs y métricas).
	Flow() string

	// BeginHandshake performs the pre-authorization leg. OAuth1 fetches the
	// unauthorized token; OAuth2 has no such leg and returns (nil, nil).
	BeginHandshake(ctx context.Context) (*oauth1.Token, error)

	// AuthorizeURL builds the redirect the user is sent to. unauthorized is
	// the OAuth1 request token (nil for OAuth2); state es el parámetro
	// `state` firmado (OAuth2, vacío para OAuth1).
	AuthorizeURL(unauthorized *oauth1.Token, state string) (string, error)

	// CheckToken validates callback params against the pending handshake
	// and exchanges the authorization artifact for an access token.
	// Non-exceptional outcomes (mismatch, missing code) come back in the
	// CheckResult; provider and transport failures come back as errors.
	CheckToken(ctx context.Context, unauthorized *oauth1.Token, params url.Values) (CheckResult, error)
}

// defaultClient aplica cuando el caller no inyecta transporte.
var defaultClient = &http.Client{Timeout: 10 * time.Second}

// NewProvider resolves service from settings and constructs the matching
// variant. All required fields resolve fast-fail here, so a misconfigured
// provider never reaches the wire. client may be nil.
func NewProvider(settings config.Settings, service string, client *http.Client) (Provider, error) {
	res, err := config.NewResolver(settings, service)
	if err != nil {
		return nil, err
	}
	if client == nil {
		client = defaultClient
	}
	if res.OAuth1() {
		return newOAuth1Provider(res, client)
	}
	return newOAuth2Provider(res, client)
}
