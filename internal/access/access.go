package access

import (
	"context"
	"net/http"
	"net/url"

	"github.com/dropDatabas3/oauthbridge/internal/config"
	"github.com/dropDatabas3/oauthbridge/internal/metrics"
	"github.com/dropDatabas3/oauthbridge/internal/oauth1"
	"github.com/dropDatabas3/oauthbridge/internal/observability/logger"
	"github.com/dropDatabas3/oauthbridge/internal/signedreq"
)

// Access bundles the provider variant and the invoker for one service, and
// is the surface the HTTP layer talks to. Stateless: the in-flight
// unauthorized token lives in the caller-held session state, not here.
type Access struct {
	Provider Provider
	Invoker  *Invoker

	secret string
}

// New resolves service and builds the engine. client nil usa el default;
// inyectarlo permite tests deterministas contra un proveedor fake.
func New(settings config.Settings, service string, client *http.Client) (*Access, error) {
	provider, err := NewProvider(settings, service, client)
	if err != nil {
		return nil, err
	}
	res, err := config.NewResolver(settings, service)
	if err != nil {
		return nil, err
	}
	secret, err := res.Secret()
	if err != nil {
		return nil, err
	}

	var signer *oauth1.Signer
	if p, ok := provider.(*OAuth1Provider); ok {
		signer = p.signer
	}
	return &Access{
		Provider: provider,
		Invoker:  NewInvoker(service, signer, res.ForceAuthHeader(), client),
		secret:   secret,
	}, nil
}

// Service returns the provider key this engine is bound to.
func (a *Access) Service() string { return a.Provider.Service() }

// BeginHandshake arranca el flujo; para OAuth1 devuelve el unauthorized
// token que el caller debe guardar en su estado de sesión.
func (a *Access) BeginHandshake(ctx context.Context) (*oauth1.Token, error) {
	metrics.Handshake(a.Service(), a.Provider.Flow(), "started")
	token, err := a.Provider.BeginHandshake(ctx)
	if err != nil {
		metrics.Handshake(a.Service(), a.Provider.Flow(), "error")
		return nil, err
	}
	return token, nil
}

// AuthorizeURL builds the user redirect for the current handshake.
func (a *Access) AuthorizeURL(unauthorized *oauth1.Token, state string) (string, error) {
	return a.Provider.AuthorizeURL(unauthorized, state)
}

// CheckToken validates callback params and completes the exchange,
// recording the outcome.
func (a *Access) CheckToken(ctx context.Context, unauthorized *oauth1.Token, params url.Values) (CheckResult, error) {
	res, err := a.Provider.CheckToken(ctx, unauthorized, params)
	switch {
	case err != nil:
		metrics.Handshake(a.Service(), a.Provider.Flow(), "error")
	case res.Status == CheckOK:
		metrics.Handshake(a.Service(), a.Provider.Flow(), "ok")
		logger.From(ctx).Info("handshake completed",
			logger.Service(a.Service()),
			logger.Flow(a.Provider.Flow()),
		)
	default:
		metrics.Handshake(a.Service(), a.Provider.Flow(), res.Status.String())
	}
	return res, err
}

// VerifySignedRequest verifies a client-side flow envelope against this
// provider's consumer secret. nil means rechazo (tampering o algoritmo
// desconocido); no es un error.
func (a *Access) VerifySignedRequest(envelope string) map[string]any {
	data := signedreq.Verify(envelope, a.secret)
	metrics.SignedRequest(data != nil)
	return data
}
