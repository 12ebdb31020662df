package access_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/oauthbridge/internal/access"
	"github.com/dropDatabas3/oauthbridge/internal/config"
	"github.com/dropDatabas3/oauthbridge/internal/oauth1"
	"github.com/dropDatabas3/oauthbridge/internal/oauth2"
)

func oauth1Settings(base string) config.Settings {
	return config.Settings{
		"twitter": {
			Flow: "oauth1",
			Keys: map[string]string{"key": "ck", "secret": "cs"},
			Endpoints: map[string]string{
				"request_token": base + "/oauth/request_token",
				"access_token":  base + "/oauth/access_token",
				"authorize":     base + "/oauth/authorize",
				"callback":      "https://app.example.com/oauth/twitter/callback",
			},
		},
	}
}

func oauth2Settings(base string) config.Settings {
	return config.Settings{
		"github": {
			Keys: map[string]string{"key": "CID", "secret": "CSECRET"},
			Endpoints: map[string]string{
				"access_token": base + "/login/oauth/access_token",
				"authorize":    base + "/login/oauth/authorize",
				"callback":     "https://app.example.com/oauth/github/callback",
			},
			UseGrantType:      true,
			JSONTokenResponse: true,
		},
	}
}

func sealEnvelope(t *testing.T, payload map[string]any, secret string) string {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	paySeg := base64.RawURLEncoding.EncodeToString(raw)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(paySeg))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil)) + "." + paySeg
}

// Handshake OAuth1 completo contra un proveedor fake: request token,
// authorize URL, callback con verifier, access token.
func TestOAuth1Handshake(t *testing.T) {
	var accessTokenForm url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		switch r.URL.Path {
		case "/oauth/request_token":
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "https://app.example.com/oauth/twitter/callback", r.PostForm.Get("oauth_callback"))
			require.NotEmpty(t, r.PostForm.Get("oauth_signature"))
			w.Write([]byte("oauth_token=abc&oauth_token_secret=def"))
		case "/oauth/access_token":
			accessTokenForm = r.PostForm
			w.Write([]byte("oauth_token=tok&oauth_token_secret=sec"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	engine, err := access.New(oauth1Settings(srv.URL), "twitter", srv.Client())
	require.NoError(t, err)
	require.Equal(t, "twitter", engine.Service())
	require.Equal(t, "oauth1", engine.Provider.Flow())

	ctx := context.Background()
	unauthorized, err := engine.BeginHandshake(ctx)
	require.NoError(t, err)
	require.Equal(t, &oauth1.Token{Key: "abc", Secret: "def"}, unauthorized)

	authURL, err := engine.AuthorizeURL(unauthorized, "")
	require.NoError(t, err)
	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	require.Equal(t, "/oauth/authorize", parsed.Path)
	require.Equal(t, "abc", parsed.Query().Get("oauth_token"))

	res, err := engine.CheckToken(ctx, unauthorized, url.Values{
		"oauth_token":    {"abc"},
		"oauth_verifier": {"xyz"},
	})
	require.NoError(t, err)
	require.Equal(t, access.CheckOK, res.Status)
	require.Equal(t, &oauth1.Token{Key: "tok", Secret: "sec"}, res.Token)

	// el intercambio viajó firmado con el request token y el verifier
	require.Equal(t, "abc", accessTokenForm.Get("oauth_token"))
	require.Equal(t, "xyz", accessTokenForm.Get("oauth_verifier"))
	require.NotEmpty(t, accessTokenForm.Get("oauth_signature"))
}

func TestOAuth1CheckToken_Mismatch(t *testing.T) {
	engine, err := access.New(oauth1Settings("https://unused.example.com"), "twitter", nil)
	require.NoError(t, err)

	unauthorized := &oauth1.Token{Key: "abc", Secret: "def"}
	res, err := engine.CheckToken(context.Background(), unauthorized, url.Values{
		"oauth_token": {"zzz"},
	})
	require.NoError(t, err, "a mismatch is an outcome, not an error")
	require.Equal(t, access.CheckMismatch, res.Status)
	require.Nil(t, res.Token)
}

func TestOAuth1CheckToken_MissingPendingToken(t *testing.T) {
	engine, err := access.New(oauth1Settings("https://unused.example.com"), "twitter", nil)
	require.NoError(t, err)

	_, err = engine.CheckToken(context.Background(), nil, url.Values{"oauth_token": {"abc"}})
	require.ErrorIs(t, err, access.ErrMissingToken)

	_, err = engine.AuthorizeURL(nil, "")
	require.ErrorIs(t, err, access.ErrMissingToken)
}

func TestOAuth1Handshake_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	engine, err := access.New(oauth1Settings(srv.URL), "twitter", srv.Client())
	require.NoError(t, err)

	_, err = engine.BeginHandshake(context.Background())
	var unknown *access.UnknownResponseError
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, http.StatusServiceUnavailable, unknown.Status)
	require.Contains(t, unknown.Body, "nope")
}

// Intercambio OAuth2 completo: authorize URL con client_id/redirect_uri,
// código del callback, token JSON con expiración relativa.
func TestOAuth2Handshake(t *testing.T) {
	var tokenForm url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/login/oauth/access_token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		tokenForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"AT123","token_type":"bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	engine, err := access.New(oauth2Settings(srv.URL), "github", srv.Client())
	require.NoError(t, err)
	require.Equal(t, "oauth2", engine.Provider.Flow())

	ctx := context.Background()
	unauthorized, err := engine.BeginHandshake(ctx)
	require.NoError(t, err)
	require.Nil(t, unauthorized, "oauth2 has no request-token leg")

	authURL, err := engine.AuthorizeURL(nil, "signed-state")
	require.NoError(t, err)
	parsed, err := url.Parse(authURL)
	require.NoError(t, err)
	q := parsed.Query()
	require.Equal(t, "CID", q.Get("client_id"))
	require.Equal(t, "https://app.example.com/oauth/github/callback", q.Get("redirect_uri"))
	require.Equal(t, "signed-state", q.Get("state"))

	before := time.Now()
	res, err := engine.CheckToken(ctx, nil, url.Values{"code": {"CODE"}})
	require.NoError(t, err)
	require.Equal(t, access.CheckOK, res.Status)

	tok, ok := res.Token.(*oauth2.Token)
	require.True(t, ok)
	require.Equal(t, "AT123", tok.AccessToken)
	require.WithinDuration(t, before.Add(3600*time.Second), tok.ExpiresAt, 5*time.Second)

	require.Equal(t, "CODE", tokenForm.Get("code"))
	require.Equal(t, "CID", tokenForm.Get("client_id"))
	require.Equal(t, "CSECRET", tokenForm.Get("client_secret"))
	require.Equal(t, "authorization_code", tokenForm.Get("grant_type"))
}

func TestOAuth2CheckToken_NoCode(t *testing.T) {
	engine, err := access.New(oauth2Settings("https://unused.example.com"), "github", nil)
	require.NoError(t, err)

	res, err := engine.CheckToken(context.Background(), nil, url.Values{})
	require.NoError(t, err)
	require.Equal(t, access.CheckNoCode, res.Status)
}

func TestOAuth2CheckToken_EmptyTokenResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	engine, err := access.New(oauth2Settings(srv.URL), "github", srv.Client())
	require.NoError(t, err)

	res, err := engine.CheckToken(context.Background(), nil, url.Values{"code": {"CODE"}})
	require.NoError(t, err)
	require.Equal(t, access.CheckNoCode, res.Status)
}

func TestOAuth2CheckToken_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"bad_verification_code","error_description":"The code passed is incorrect"}`))
	}))
	defer srv.Close()

	engine, err := access.New(oauth2Settings(srv.URL), "github", srv.Client())
	require.NoError(t, err)

	_, err = engine.CheckToken(context.Background(), nil, url.Values{"code": {"stale"}})
	var perr *oauth2.ProviderError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "bad_verification_code", perr.Code)
}

// Un non-200 con body no decodificable (el HTML de un 503) debe clasificarse
// con su status y body, no como fallo de parseo.
func TestOAuth2CheckToken_Non200NonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("<html><body>upstream maintenance</body></html>"))
	}))
	defer srv.Close()

	engine, err := access.New(oauth2Settings(srv.URL), "github", srv.Client())
	require.NoError(t, err)

	_, err = engine.CheckToken(context.Background(), nil, url.Values{"code": {"CODE"}})
	var unknown *access.UnknownResponseError
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, http.StatusServiceUnavailable, unknown.Status)
	require.Contains(t, unknown.Body, "upstream maintenance")
}

func TestNew_ConfigurationErrorIsFastFail(t *testing.T) {
	settings := config.Settings{
		"broken": {
			Flow: "oauth1",
			Keys: map[string]string{"key": "ck", "secret": "cs"},
			// sin request_token
			Endpoints: map[string]string{
				"access_token": "https://x/at",
				"authorize":    "https://x/a",
				"callback":     "https://x/cb",
			},
		},
	}
	_, err := access.New(settings, "broken", nil)
	var cfgErr *config.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "request_token", cfgErr.Field)
}

func TestVerifySignedRequest(t *testing.T) {
	engine, err := access.New(oauth2Settings("https://unused.example.com"), "github", nil)
	require.NoError(t, err)

	// sellado con el consumer secret del servicio (CSECRET)
	env := sealEnvelope(t, map[string]any{"algorithm": "HMAC-SHA256", "user_id": "42"}, "CSECRET")
	data := engine.VerifySignedRequest(env)
	require.NotNil(t, data)
	require.Equal(t, "42", data["user_id"])

	require.Nil(t, engine.VerifySignedRequest("garbage"))
}

func TestCheckStatus_String(t *testing.T) {
	require.Equal(t, "ok", access.CheckOK.String())
	require.Equal(t, "token_mismatch", access.CheckMismatch.String())
	require.Equal(t, "no_code", access.CheckNoCode.String())
}

func TestDecodeToken_Variants(t *testing.T) {
	tok, err := access.DecodeToken("oauth_token=k&oauth_token_secret=s")
	require.NoError(t, err)
	require.Equal(t, &oauth1.Token{Key: "k", Secret: "s"}, tok)

	tok, err = access.DecodeToken("access_token=AT&expires_at=1700000000")
	require.NoError(t, err)
	o2, ok := tok.(*oauth2.Token)
	require.True(t, ok)
	require.Equal(t, "AT", o2.AccessToken)

	_, err = access.DecodeToken("something=else")
	require.Error(t, err)
}
