package authflow

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dropDatabas3/oauthbridge/internal/access"
	"github.com/dropDatabas3/oauthbridge/internal/config"
	"github.com/dropDatabas3/oauthbridge/internal/http/helpers"
	"github.com/dropDatabas3/oauthbridge/internal/oauth1"
	"github.com/dropDatabas3/oauthbridge/internal/oauth2"
	"github.com/dropDatabas3/oauthbridge/internal/observability/logger"
	"github.com/dropDatabas3/oauthbridge/internal/state"
)

// Callback recibe el redirect del proveedor y completa el handshake.
// GET /oauth/{service}/callback
//
// Tres variantes de entrada:
//   - flujo client-side: access_token + signed_request (envelope verificado)
//   - denegación: error[+error_description]
//   - flujo server-side: oauth_token/oauth_verifier (OAuth1) o code (OAuth2)
func (c *Controllers) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	service := chi.URLParam(r, "service")
	log := logger.From(ctx).With(logger.Component("authflow"), logger.Service(service))

	engine, err := c.engine(service)
	if err != nil {
		var cfgErr *config.ConfigurationError
		if errors.As(err, &cfgErr) {
			log.Error("provider misconfigured", logger.Err(err))
			helpers.WriteError(w, helpers.ErrConfiguration.WithDetail(cfgErr.Error()))
			return
		}
		helpers.WriteError(w, helpers.ErrInternalServerError)
		return
	}

	q := r.URL.Query()

	// Flujo client-side: el token ya viene en la URL, el envelope firmado
	// prueba que lo emitió el proveedor.
	if at, sr := q.Get("access_token"), q.Get("signed_request"); at != "" && sr != "" {
		data := engine.VerifySignedRequest(sr)
		if data == nil {
			log.Warn("signed_request verification failed")
			helpers.WriteError(w, helpers.ErrInvalidSigned)
			return
		}
		token := oauth2.NewToken(at, 0)
		c.Callbacks.For(service).Authorized(w, r, engine, token, data)
		return
	}

	// El proveedor denegó (o el usuario canceló).
	if e := q.Get("error"); e != "" {
		log.Warn("provider returned error", logger.Op(e))
		helpers.WriteError(w, helpers.ErrProviderDenied.WithDetail(q.Get("error_description")))
		return
	}

	// Validar el state firmado si vino (flujo OAuth2).
	if st := q.Get("state"); st != "" {
		claims, err := helpers.ParseState(c.StateSecret, st)
		if err != nil || claims.Service != service {
			log.Warn("invalid state parameter", logger.Err(err))
			helpers.WriteError(w, helpers.ErrInvalidState)
			return
		}
	}

	// Token pendiente de la sesión (sólo existe en el camino OAuth1).
	var unauthorized *oauth1.Token
	sid := ""
	if ck, err := r.Cookie(c.CookieName); err == nil {
		sid = ck.Value
	}
	if sid != "" {
		tok, err := c.State.Get(ctx, sid, service)
		if err != nil && !errors.Is(err, state.ErrNotFound) {
			log.Error("state store failed", logger.Err(err))
			helpers.WriteError(w, helpers.ErrInternalServerError)
			return
		}
		unauthorized = tok
	}

	res, err := engine.CheckToken(ctx, unauthorized, q)
	if err != nil {
		c.writeCheckError(w, log, err)
		return
	}

	switch res.Status {
	case access.CheckMismatch:
		helpers.WriteError(w, helpers.ErrTokenMismatch)
		return
	case access.CheckNoCode:
		helpers.WriteError(w, helpers.ErrNoCode)
		return
	}

	// Handshake completo: el token pendiente ya no sirve.
	if sid != "" {
		_ = c.State.Delete(ctx, sid, service)
	}

	c.Callbacks.For(service).Authorized(w, r, engine, res.Token, nil)
}

// writeCheckError mapea los errores de CheckToken a respuestas distinguibles.
func (c *Controllers) writeCheckError(w http.ResponseWriter, log *zap.Logger, err error) {
	var (
		unknown  *access.UnknownResponseError
		provider *oauth2.ProviderError
	)
	switch {
	case errors.Is(err, access.ErrMissingToken):
		log.Warn("callback without pending token")
		helpers.WriteError(w, helpers.ErrTokenMissing)
	case errors.As(err, &unknown):
		log.Error("token exchange failed",
			logger.Status(unknown.Status),
			logger.Endpoint(unknown.URL),
		)
		helpers.WriteError(w, helpers.ErrBadGateway.WithDetail(unknown.Error()))
	case errors.As(err, &provider):
		log.Warn("provider rejected exchange", logger.Err(provider))
		helpers.WriteError(w, helpers.ErrProviderDenied.WithDetail(provider.Error()))
	default:
		log.Error("token check failed", logger.Err(err))
		helpers.WriteError(w, helpers.ErrInternalServerError)
	}
}
