package access

import (
	"fmt"
	"net/url"

	"github.com/dropDatabas3/oauthbridge/internal/oauth1"
	"github.com/dropDatabas3/oauthbridge/internal/oauth2"
)

// Token is the union over the two token variants. A token always belongs to
// exactly one provider and one flow instance; treat it as a secret.
//
// Implementations: *oauth1.Token, *oauth2.Token.
type Token interface {
	// Encode serializes the token to an opaque string for the association
	// store. DecodeToken inverts it.
	Encode() string
}

// DecodeToken reconstruye un Token desde su forma serializada. La variante
// se reconoce por las claves presentes (oauth_token_secret ⇒ OAuth1).
func DecodeToken(s string) (Token, error) {
	vals, err := url.ParseQuery(s)
	if err != nil {
		return nil, fmt.Errorf("access: malformed stored token: %w", err)
	}
	switch {
	case vals.Get("oauth_token_secret") != "":
		return oauth1.ParseToken(s)
	case vals.Get("access_token") != "":
		return oauth2.ParseToken(s)
	default:
		return nil, fmt.Errorf("access: stored token matches no known variant")
	}
}
