package config

import (
	"fmt"
	"strings"
)

// Settings is the nested provider table: service → categories → fields.
// YAML shape:
//
//	providers:
//	  twitter:
//	    flow: oauth1
//	    keys:
//	      key: "..."
//	      secret: "..."
//	    endpoints:
//	      request_token: "https://api.twitter.com/oauth/request_token"
//	      access_token:  "https://api.twitter.com/oauth/access_token"
//	      authorize:     "https://api.twitter.com/oauth/authorize"
//	      callback:      "https://example.com/oauth/twitter/callback"
//	    provider_scope: []
type Settings map[string]Service

// Service holds the static per-provider settings.
type Service struct {
	// Flow selecciona la variante: "oauth1" | "oauth2".
	Flow      string            `yaml:"flow"`
	Keys      map[string]string `yaml:"keys"`
	Endpoints map[string]string `yaml:"endpoints"`
	// Scope es una lista ordenada; se une con el delimitador del proveedor.
	Scope []string `yaml:"provider_scope"`

	// Quirks por proveedor (en vez de condicionales por nombre de servicio):
	ForceAuthHeader   bool `yaml:"force_auth_header"`   // oauth1: firmar siempre via Authorization header
	UseGrantType      bool `yaml:"use_grant_type"`      // oauth2: mandar grant_type=authorization_code
	JSONTokenResponse bool `yaml:"json_token_response"` // oauth2: el token endpoint responde JSON
}

// Field names within the "keys" and "endpoints" categories.
const (
	FieldKey            = "key"
	FieldSecret         = "secret"
	FieldRequestToken   = "request_token"
	FieldAccessToken    = "access_token"
	FieldAuthorize      = "authorize"
	FieldCallback       = "callback"
	FieldScopeDelimiter = "provider_scope_delimiter"
)

// ConfigurationError identifica exactamente qué nivel de la tabla faltó,
// para que el operador pueda corregir la config rápido.
type ConfigurationError struct {
	Service  string
	Category string // vacío cuando falta la tabla o el servicio
	Field    string // vacío cuando falta la tabla, el servicio o la categoría
}

func (e *ConfigurationError) Error() string {
	switch {
	case e.Service == "":
		return "provider settings must be defined"
	case e.Category == "":
		return fmt.Sprintf("provider settings must contain %q", e.Service)
	case e.Field == "":
		return fmt.Sprintf("provider settings must contain %q for %q", e.Category, e.Service)
	default:
		return fmt.Sprintf("provider settings must contain %q in %q for %q", e.Field, e.Category, e.Service)
	}
}

// Resolver resolves settings for one service. Immutable once constructed.
type Resolver struct {
	service string
	svc     Service
}

// NewResolver falla con *ConfigurationError si la tabla está vacía o el
// servicio no existe. Los campos individuales se validan al accederlos.
func NewResolver(settings Settings, service string) (*Resolver, error) {
	if len(settings) == 0 {
		return nil, &ConfigurationError{}
	}
	svc, ok := settings[service]
	if !ok {
		return nil, &ConfigurationError{Service: service}
	}
	return &Resolver{service: service, svc: svc}, nil
}

// Service returns the service name this resolver is bound to.
func (r *Resolver) Service() string { return r.service }

// OAuth1 reports whether the provider uses the OAuth 1.0a flow.
// Default (flow vacío) es oauth2, que es lo que usan casi todos hoy.
func (r *Resolver) OAuth1() bool { return strings.EqualFold(r.svc.Flow, "oauth1") }

func (r *Resolver) ForceAuthHeader() bool   { return r.svc.ForceAuthHeader }
func (r *Resolver) UseGrantType() bool      { return r.svc.UseGrantType }
func (r *Resolver) JSONTokenResponse() bool { return r.svc.JSONTokenResponse }

// lookup resuelve una celda de la tabla. Con required=false un campo ausente
// retorna "" sin error; categoría o servicio ausentes fallan igual.
func (r *Resolver) lookup(category, field string, required bool) (string, error) {
	var m map[string]string
	switch category {
	case "keys":
		m = r.svc.Keys
	case "endpoints":
		m = r.svc.Endpoints
	default:
		return "", &ConfigurationError{Service: r.service, Category: category}
	}
	if m == nil {
		return "", &ConfigurationError{Service: r.service, Category: category}
	}
	v, ok := m[field]
	if !ok || v == "" {
		if !required {
			return "", nil
		}
		return "", &ConfigurationError{Service: r.service, Category: category, Field: field}
	}
	return v, nil
}

func (r *Resolver) Key() (string, error)    { return r.lookup("keys", FieldKey, true) }
func (r *Resolver) Secret() (string, error) { return r.lookup("keys", FieldSecret, true) }

func (r *Resolver) RequestTokenURL() (string, error) {
	return r.lookup("endpoints", FieldRequestToken, true)
}

func (r *Resolver) AccessTokenURL() (string, error) {
	return r.lookup("endpoints", FieldAccessToken, true)
}

func (r *Resolver) AuthorizeURL() (string, error) {
	return r.lookup("endpoints", FieldAuthorize, true)
}

func (r *Resolver) CallbackURL() (string, error) {
	return r.lookup("endpoints", FieldCallback, true)
}

// ScopeDelimiter retorna el delimitador configurado o "," por defecto.
func (r *Resolver) ScopeDelimiter() string {
	d, _ := r.lookup("endpoints", FieldScopeDelimiter, false)
	if d == "" {
		return ","
	}
	return d
}

// Scope une la lista de scopes con el delimitador del proveedor.
// Retorna "" si no hay scopes configurados.
func (r *Resolver) Scope() string {
	if len(r.svc.Scope) == 0 {
		return ""
	}
	return strings.Join(r.svc.Scope, r.ScopeDelimiter())
}

// Validate fuerza la resolución de todos los campos obligatorios del flujo.
// Lo usa `oauthbridge providers check`.
func (r *Resolver) Validate() error {
	checks := []func() (string, error){r.Key, r.Secret, r.AccessTokenURL, r.AuthorizeURL, r.CallbackURL}
	if r.OAuth1() {
		checks = append(checks, r.RequestTokenURL)
	}
	for _, fn := range checks {
		if _, err := fn(); err != nil {
			return err
		}
	}
	return nil
}
