// Package router wires the OAuth flow endpoints.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/oauthbridge/internal/http/controllers/authflow"
	"github.com/dropDatabas3/oauthbridge/internal/http/helpers"
	mw "github.com/dropDatabas3/oauthbridge/internal/http/middlewares"
)

// Deps contiene las dependencias del router.
type Deps struct {
	Controllers *authflow.Controllers
}

// New arma el router con su middleware chain.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/oauth/{service}", func(r chi.Router) {
		r.Get("/login", deps.Controllers.Login)
		r.Get("/callback", deps.Controllers.Callback)
	})

	return mw.Chain(r,
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithNoStore(),
		mw.WithLogging(),
	)
}
