package authflow

import (
	"net/http"
	"time"

	"github.com/dropDatabas3/oauthbridge/internal/access"
	"github.com/dropDatabas3/oauthbridge/internal/http/helpers"
	"github.com/dropDatabas3/oauthbridge/internal/oauth2"
	"github.com/dropDatabas3/oauthbridge/internal/observability/logger"
	"github.com/dropDatabas3/oauthbridge/internal/store/core"
)

// Callback is the post-auth collaborator: it owns what happens once the
// handshake produced a token (persist, provision, respond). El core no
// inspecciona su efecto; sólo le entrega el resultado.
type Callback interface {
	// Authorized runs with the freshly obtained token. extra carries
	// provider payload del flujo client-side (signed_request decodificado),
	// o nil en los flujos server-side.
	Authorized(w http.ResponseWriter, r *http.Request, engine *access.Access, token access.Token, extra map[string]any)
}

// Registry mapea service → Callback con un fallback por defecto.
type Registry struct {
	byService map[string]Callback
	fallback  Callback
}

func NewRegistry(fallback Callback) *Registry {
	return &Registry{byService: make(map[string]Callback), fallback: fallback}
}

// Register instala un callback específico para un servicio.
func (r *Registry) Register(service string, cb Callback) {
	r.byService[service] = cb
}

// For retorna el callback del servicio o el fallback.
func (r *Registry) For(service string) Callback {
	if cb, ok := r.byService[service]; ok {
		return cb
	}
	return r.fallback
}

// PersistingCallback es el fallback por defecto: upsert de la asociación
// (user, service) y respuesta JSON. UserFromRequest resuelve el usuario
// local; su implementación es del integrador (sesión, header de gateway...).
type PersistingCallback struct {
	Associations    core.Associations
	UserFromRequest func(r *http.Request) string
}

type authorizedResponse struct {
	Status    string     `json:"status"`
	Service   string     `json:"service"`
	Persisted bool       `json:"persisted"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (p *PersistingCallback) Authorized(w http.ResponseWriter, r *http.Request, engine *access.Access, token access.Token, extra map[string]any) {
	resp := authorizedResponse{Status: "authorized", Service: engine.Service()}

	if t, ok := token.(*oauth2.Token); ok && !t.ExpiresAt.IsZero() {
		exp := t.ExpiresAt
		resp.ExpiresAt = &exp
	}

	userID := ""
	if p.UserFromRequest != nil {
		userID = p.UserFromRequest(r)
	}
	if userID != "" && p.Associations != nil {
		identifier := ""
		if extra != nil {
			identifier, _ = extra["user_id"].(string)
		}
		assoc := &core.UserAssociation{
			UserID:     userID,
			Service:    engine.Service(),
			Identifier: identifier,
			Token:      token.Encode(),
			ExpiresAt:  resp.ExpiresAt,
		}
		if err := p.Associations.Upsert(r.Context(), assoc); err != nil {
			logger.From(r.Context()).Error("association upsert failed",
				logger.Service(engine.Service()),
				logger.UserID(userID),
				logger.Err(err),
			)
			helpers.WriteError(w, helpers.ErrInternalServerError)
			return
		}
		resp.Persisted = true
	}

	helpers.WriteJSON(w, http.StatusOK, resp)
}

// HeaderUser resuelve el usuario local desde un header de gateway.
// Para integraciones detrás de un reverse proxy autenticado.
func HeaderUser(name string) func(*http.Request) string {
	return func(r *http.Request) string { return r.Header.Get(name) }
}
