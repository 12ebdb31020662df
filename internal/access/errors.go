package access

import (
	"errors"
	"fmt"
)

// Engine errors. Configuration errors surface as *config.ConfigurationError
// from the constructors; everything below is runtime.
var (
	// ErrMissingToken: llegó el callback OAuth1 sin unauthorized token en el
	// estado de sesión. El usuario ve "token_missing".
	ErrMissingToken = errors.New("access: no unauthorized token for callback")

	// ErrNotAuthorized: 401 del proveedor en una llamada API. El caller debe
	// descartar el token guardado y rehacer el handshake, no reintentar.
	ErrNotAuthorized = errors.New("access: provider rejected token (401)")
)

// UnknownResponseError is a non-200 handshake response. Carries status and
// body for diagnostics; never retried automatically.
type UnknownResponseError struct {
	Status int
	URL    string
	Body   string
}

func (e *UnknownResponseError) Error() string {
	return fmt.Sprintf("got %d from %s:\n\n%s", e.Status, e.URL, e.Body)
}

// ServiceFailError is an empty or unparseable API response. Ambiguous
// whether transient; surfaced to the caller, who owns retry policy.
type ServiceFailError struct {
	Reason string
}

func (e *ServiceFailError) Error() string {
	return "service fail: " + e.Reason
}
