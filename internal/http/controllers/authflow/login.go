package authflow

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/oauthbridge/internal/access"
	"github.com/dropDatabas3/oauthbridge/internal/config"
	"github.com/dropDatabas3/oauthbridge/internal/http/helpers"
	"github.com/dropDatabas3/oauthbridge/internal/observability/logger"
)

// Login arranca el handshake y redirige al proveedor.
// GET /oauth/{service}/login?next=<redirect post-login>
func (c *Controllers) Login(w http.ResponseWriter, r *http.Request) {
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

	sid := c.sessionID(w, r)

	// OAuth1: obtener el unauthorized token y dejarlo pendiente en el
	// estado de sesión hasta que vuelva el callback.
	unauthorized, err := engine.BeginHandshake(ctx)
	if err != nil {
		var unknown *access.UnknownResponseError
		if errors.As(err, &unknown) {
			log.Error("request token leg failed",
				logger.Status(unknown.Status),
				logger.Endpoint(unknown.URL),
			)
			helpers.WriteError(w, helpers.ErrBadGateway.WithDetail(unknown.Error()))
			return
		}
		log.Error("handshake start failed", logger.Err(err))
		helpers.WriteError(w, helpers.ErrBadGateway)
		return
	}
	if unauthorized != nil {
		if err := c.State.Put(ctx, sid, service, unauthorized, c.StateTTL); err != nil {
			log.Error("failed to stash pending token", logger.Err(err))
			helpers.WriteError(w, helpers.ErrInternalServerError)
			return
		}
	}

	// El `state` firmado ata el callback OAuth2 a este flujo y arrastra
	// el redirect post-login. OAuth1 lo ignora.
	stateToken := ""
	if engine.Provider.Flow() == "oauth2" {
		stateToken, err = helpers.SignState(c.StateSecret, service, r.URL.Query().Get("next"), c.StateTTL)
		if err != nil {
			log.Error("failed to sign state", logger.Err(err))
			helpers.WriteError(w, helpers.ErrInternalServerError)
			return
		}
	}

	redirect, err := engine.AuthorizeURL(unauthorized, stateToken)
	if err != nil {
		log.Error("failed to build authorize url", logger.Err(err))
		helpers.WriteError(w, helpers.ErrInternalServerError)
		return
	}

	log.Info("redirecting to provider", logger.Flow(engine.Provider.Flow()))
	http.Redirect(w, r, redirect, http.StatusFound)
}
