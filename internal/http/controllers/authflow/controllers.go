// Package authflow contains the HTTP surface of the OAuth flows: the login
// redirect and the provider callback.
package authflow

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/oauthbridge/internal/access"
	"github.com/dropDatabas3/oauthbridge/internal/config"
	"github.com/dropDatabas3/oauthbridge/internal/state"
)

// Controllers agrupa las dependencias de los handlers del flujo.
type Controllers struct {
	Settings  config.Settings
	State     state.Store
	Callbacks *Registry

	// HTTPClient es el transporte hacia los proveedores. nil usa el default;
	// los tests inyectan uno apuntando a un proveedor fake.
	HTTPClient *http.Client

	CookieName  string
	StateSecret string
	StateTTL    time.Duration
}

// engine construye el engine para el servicio del request.
func (c *Controllers) engine(service string) (*access.Access, error) {
	return access.New(c.Settings, service, c.HTTPClient)
}

// sessionID retorna el sid de la cookie, o crea uno nuevo.
func (c *Controllers) sessionID(w http.ResponseWriter, r *http.Request) string {
	if ck, err := r.Cookie(c.CookieName); err == nil && ck.Value != "" {
		return ck.Value
	}
	sid := strings.ReplaceAll(uuid.NewString(), "-", "")
	http.SetCookie(w, &http.Cookie{
		Name:     c.CookieName,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(c.StateTTL.Seconds()),
	})
	return sid
}
