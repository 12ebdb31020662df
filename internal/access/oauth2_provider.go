package access

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dropDatabas3/oauthbridge/internal/config"
	"github.com/dropDatabas3/oauthbridge/internal/metrics"
	"github.com/dropDatabas3/oauthbridge/internal/oauth1"
	"github.com/dropDatabas3/oauthbridge/internal/oauth2"
	"github.com/dropDatabas3/oauthbridge/internal/observability/logger"
)

// OAuth2Provider runs the two-legged authorization-code exchange. No
// signing: credentials travel in the form body over HTTPS and the resulting
// bearer token is presented directly.
type OAuth2Provider struct {
	service        string
	clientID       string
	clientSecret   string
	accessTokenURL string
	authorizeURL   string
	callbackURL    string
	scope          string
	useGrantType   bool
	jsonResponse   bool

	client *http.Client
}

func newOAuth2Provider(res *config.Resolver, client *http.Client) (*OAuth2Provider, error) {
	var err error
	p := &OAuth2Provider{
		service:      res.Service(),
		scope:        res.Scope(),
		useGrantType: res.UseGrantType(),
		jsonResponse: res.JSONTokenResponse(),
		client:       client,
	}
	if p.clientID, err = res.Key(); err != nil {
		return nil, err
	}
	if p.clientSecret, err = res.Secret(); err != nil {
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

func (p *OAuth2Provider) Service() string { return p.service }
func (p *OAuth2Provider) Flow() string    { return "oauth2" }

// BeginHandshake is a no-op: OAuth2 has no request-token leg.
func (p *OAuth2Provider) BeginHandshake(ctx context.Context) (*oauth1.Token, error) {
	return nil, nil
}

// AuthorizeURL builds authorizeURL?client_id&redirect_uri[&scope][&state].
func (p *OAuth2Provider) AuthorizeURL(_ *oauth1.Token, state string) (string, error) {
	u, err := url.Parse(p.authorizeURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("client_id", p.clientID)
	q.Set("redirect_uri", p.callbackURL)
	if p.scope != "" {
		q.Set("scope", p.scope)
	}
	if state != "" {
		q.Set("state", state)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ExchangeCode POSTs the authorization code and decodes the token response.
// Un access_token ausente retorna (nil, nil): el caller lo mapea a
// CheckNoCode, nunca a un token usable.
func (p *OAuth2Provider) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	form := url.Values{}
	form.Set("client_id", p.clientID)
	form.Set("client_secret", p.clientSecret)
	form.Set("redirect_uri", p.callbackURL)
	form.Set("code", code)
	if p.useGrantType {
		form.Set("grant_type", "authorization_code")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.accessTokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if p.jsonResponse {
		req.Header.Set("Accept", "application/json")
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	metrics.ObserveProviderRequest(p.service, "access_token", time.Since(start))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		// Sólo un campo `error` del proveedor reclasifica el fallo; un body
		// que no decodifica (HTML de un 503, por ejemplo) no debe taparlo.
		if _, derr := p.decode(b); derr != nil {
			var perr *oauth2.ProviderError
			if errors.As(derr, &perr) {
				return nil, perr
			}
		}
		return nil, &UnknownResponseError{Status: resp.StatusCode, URL: p.accessTokenURL, Body: string(b)}
	}
	return p.decode(b)
}

func (p *OAuth2Provider) decode(body []byte) (*oauth2.Token, error) {
	if p.jsonResponse {
		return oauth2.DecodeJSONResponse(body)
	}
	return oauth2.DecodeFormResponse(body)
}

// CheckToken requires the `code` callback param and exchanges it. A missing
// code or a response with no recognizable token yields CheckNoCode.
func (p *OAuth2Provider) CheckToken(ctx context.Context, _ *oauth1.Token, params url.Values) (CheckResult, error) {
	code := params.Get("code")
	if code == "" {
		logger.From(ctx).Debug("callback without code", logger.Service(p.service))
		return CheckResult{Status: CheckNoCode}, nil
	}
	token, err := p.ExchangeCode(ctx, code)
	if err != nil {
		return CheckResult{}, err
	}
	if token == nil {
		return CheckResult{Status: CheckNoCode}, nil
	}
	return CheckResult{Status: CheckOK, Token: token}, nil
}
