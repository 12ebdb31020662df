package access

// CheckStatus discrimina los resultados no excepcionales de CheckToken.
// Mismatch y NoCode eran strings vacíos en integraciones viejas; acá son
// variantes explícitas para que nadie trate un sentinel como token válido.
type CheckStatus int

const (
	// CheckOK: handshake completo, Token presente.
	CheckOK CheckStatus = iota
	// CheckMismatch: el oauth_token del callback no coincide con el token
	// pendiente de la sesión. Distinguible para renderizar "token_mismatch".
	CheckMismatch
	// CheckNoCode: el callback OAuth2 no trajo `code`, o el proveedor
	// respondió sin un access_token reconocible.
	CheckNoCode
)

func (s CheckStatus) String() string {
	switch s {
	case CheckOK:
		return "ok"
	case CheckMismatch:
		return "token_mismatch"
	case CheckNoCode:
		return "no_code"
	default:
		return "unknown"
	}
}

// CheckResult is the outcome of a callback token check. Token is non-nil
// only when Status == CheckOK.
type CheckResult struct {
	Status CheckStatus
	Token  Token
}
