package access

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dropDatabas3/oauthbridge/internal/config"
	"github.com/dropDatabas3/oauthbridge/internal/metrics"
	"github.com/dropDatabas3/oauthbridge/internal/oauth1"
	"github.com/dropDatabas3/oauthbridge/internal/observability/logger"
)

// OAuth1Provider runs the three-legged OAuth 1.0a handshake:
// request token → user authorization → access token, every provider call
// signed with HMAC-SHA1.
type OAuth1Provider struct {
	service         string
	signer          *oauth1.Signer
	requestTokenURL string
	accessTokenURL  string
	authorizeURL    string
	callbackURL     string
	scope           string
	forceAuthHeader bool

	client *http.Client
}

func newOAuth1Provider(res *config.Resolver, client *http.Client) (*OAuth1Provider, error) {
	key, err := res.Key()
	if err != nil {
		return nil, err
	}
	secret, err := res.Secret()
	if err != nil {
		return nil, err
	}
	p := &OAuth1Provider{
		service:         res.Service(),
		signer:          oauth1.NewSigner(oauth1.Consumer{Key: key, Secret: secret}),
		scope:           res.Scope(),
		forceAuthHeader: res.ForceAuthHeader(),
		client:          client,
	}
	if p.requestTokenURL, err = res.RequestTokenURL(); err != nil {
		return nil, err
	}
	if p.accessTokenURL, err = res.AccessTokenURL(); err != nil {
		return nil, err
	}
	if p.authorizeURL, err = res.AuthorizeURL(); err != nil {
		return nil, err
	}
	if p.callbackURL, err = res.CallbackURL(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *OAuth1Provider) Service() string { return p.service }
func (p *OAuth1Provider) Flow() string    { return "oauth1" }

// WithSigner reemplaza el signer (tests: clock/nonce fijos).
func (p *OAuth1Provider) WithSigner(s *oauth1.Signer) *OAuth1Provider {
	p.signer = s
	return p
}

// BeginHandshake POSTs to the request-token endpoint with oauth_callback
// (and scope when configured) and parses the unauthorized token.
func (p *OAuth1Provider) BeginHandshake(ctx context.Context) (*oauth1.Token, error) {
	params := url.Values{}
	params.Set("oauth_callback", p.callbackURL)
	if p.scope != "" {
		params.Set("scope", p.scope)
	}
	body, err := p.signedPost(ctx, p.requestTokenURL, "request_token", params, nil)
	if err != nil {
		return nil, err
	}
	return oauth1.ParseToken(body)
}

// AuthorizeURL returns a signed authorization URL embedding the
// unauthorized token. El state firmado no aplica en OAuth1: la correlación
// la hace el propio request token.
func (p *OAuth1Provider) AuthorizeURL(unauthorized *oauth1.Token, _ string) (string, error) {
	if unauthorized == nil {
		return "", ErrMissingToken
	}
	signed, err := p.signer.Sign(http.MethodGet, p.authorizeURL, nil, unauthorized)
	if err != nil {
		return "", err
	}
	return signed.URL(), nil
}

// ExchangeForAccessToken trades the authorized request token (plus verifier
// when the provider returned one) for the long-lived access token.
func (p *OAuth1Provider) ExchangeForAccessToken(ctx context.Context, unauthorized *oauth1.Token, verifier string) (*oauth1.Token, error) {
	params := url.Values{}
	if verifier != "" {
		params.Set("oauth_verifier", verifier)
	}
	body, err := p.signedPost(ctx, p.accessTokenURL, "access_token", params, unauthorized)
	if err != nil {
		return nil, err
	}
	return oauth1.ParseToken(body)
}

// CheckToken implements the callback leg: no pending token is a hard error,
// a token mismatch is a distinguishable non-exceptional outcome.
func (p *OAuth1Provider) CheckToken(ctx context.Context, unauthorized *oauth1.Token, params url.Values) (CheckResult, error) {
	if unauthorized == nil {
		return CheckResult{}, ErrMissingToken
	}
	if params.Get("oauth_token") != unauthorized.Key {
		logger.From(ctx).Debug("callback token mismatch",
			logger.Service(p.service),
			logger.Token(params.Get("oauth_token")),
		)
		return CheckResult{Status: CheckMismatch}, nil
	}
	token, err := p.ExchangeForAccessToken(ctx, unauthorized, params.Get("oauth_verifier"))
	if err != nil {
		return CheckResult{}, err
	}
	return CheckResult{Status: CheckOK, Token: token}, nil
}

// signedPost does one signed POST round trip and returns the body.
// forceAuthHeader mueve los oauth_* al Authorization header y deja el body
// solo con los params del caller.
func (p *OAuth1Provider) signedPost(ctx context.Context, rawurl, endpoint string, params url.Values, token *oauth1.Token) (string, error) {
	signed, err := p.signer.Sign(http.MethodPost, rawurl, params, token)
	if err != nil {
		return "", err
	}

	var reqBody string
	if p.forceAuthHeader {
		reqBody = signed.ExtraBody()
	} else {
		reqBody = signed.Body()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, signed.BaseURL, strings.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if p.forceAuthHeader {
		req.Header.Set("Authorization", signed.AuthorizationHeader())
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	metrics.ObserveProviderRequest(p.service, endpoint, time.Since(start))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", &UnknownResponseError{Status: resp.StatusCode, URL: rawurl, Body: string(b)}
	}
	return string(b), nil
}
