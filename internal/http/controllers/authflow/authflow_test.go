package authflow_test

import (
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
	"github.com/dropDatabas3/oauthbridge/internal/http/controllers/authflow"
	"github.com/dropDatabas3/oauthbridge/internal/http/helpers"
	"github.com/dropDatabas3/oauthbridge/internal/http/router"
	"github.com/dropDatabas3/oauthbridge/internal/state"
	"github.com/dropDatabas3/oauthbridge/internal/store/memory"
)

// fixture arma la app completa (router incluido) contra un proveedor fake.
type fixture struct {
	app         *httptest.Server
	provider    *httptest.Server
	store       *memory.Store
	controllers *authflow.Controllers
	providerMux *http.ServeMux
	client      *http.Client
}

// callbackFunc adapta una func al contrato Callback.
type callbackFunc func(http.ResponseWriter, *http.Request)

func (f callbackFunc) Authorized(w http.ResponseWriter, r *http.Request, _ *access.Access, _ access.Token, _ map[string]any) {
	f(w, r)
}

func newFixture(t *testing.T, settings func(providerBase string) config.Settings) *fixture {
	t.Helper()
	f := &fixture{providerMux: http.NewServeMux()}
	f.provider = httptest.NewServer(f.providerMux)
	t.Cleanup(f.provider.Close)

	f.store = memory.New()
	f.controllers = &authflow.Controllers{
		Settings:    settings(f.provider.URL),
		State:       state.NewMemory(time.Minute),
		Callbacks:   authflow.NewRegistry(&authflow.PersistingCallback{Associations: f.store, UserFromRequest: authflow.HeaderUser("X-User-ID")}),
		HTTPClient:  f.provider.Client(),
		CookieName:  "obsid",
		StateSecret: "test-state-secret",
		StateTTL:    time.Minute,
	}
	f.app = httptest.NewServer(router.New(router.Deps{Controllers: f.controllers}))
	t.Cleanup(f.app.Close)

	// cliente que no sigue el redirect al proveedor
	f.client = &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return f
}

func (f *fixture) get(t *testing.T, path string, cookies []*http.Cookie, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, f.app.URL+path, nil)
	require.NoError(t, err)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := f.client.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeError(t *testing.T, resp *http.Response) *helpers.HTTPError {
	t.Helper()
	defer resp.Body.Close()
	var e helpers.HTTPError
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
	return &e
}

func oauth1TestSettings(base string) config.Settings {
	return config.Settings{
		"twitter": {
			Flow: "oauth1",
			Keys: map[string]string{"key": "ck", "secret": "cs"},
			Endpoints: map[string]string{
				"request_token": base + "/oauth/request_token",
				"access_token":  base + "/oauth/access_token",
				"authorize":     base + "/oauth/authorize",
				"callback":      base + "/unused-callback",
			},
		},
	}
}

func oauth2TestSettings(base string) config.Settings {
	return config.Settings{
		"facebook": {
			Keys: map[string]string{"key": "fbid", "secret": "fbsecret"},
			Endpoints: map[string]string{
				"access_token": base + "/oauth/access_token",
				"authorize":    base + "/dialog/oauth",
				"callback":     base + "/unused-callback",
			},
			UseGrantType: true,
		},
	}
}

func TestLoginCallback_OAuth1(t *testing.T) {
	f := newFixture(t, oauth1TestSettings)
	f.providerMux.HandleFunc("/oauth/request_token", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("oauth_token=abc&oauth_token_secret=def"))
	})
	f.providerMux.HandleFunc("/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "xyz", r.PostForm.Get("oauth_verifier"))
		w.Write([]byte("oauth_token=tok&oauth_token_secret=sec"))
	})

	resp := f.get(t, "/oauth/twitter/login", nil, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "/oauth/authorize", loc.Path)
	require.Equal(t, "abc", loc.Query().Get("oauth_token"))
	cookies := resp.Cookies()
	require.NotEmpty(t, cookies, "login must establish the flow session")

	resp = f.get(t, "/oauth/twitter/callback?oauth_token=abc&oauth_verifier=xyz", cookies, map[string]string{"X-User-ID": "u1"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status    string `json:"status"`
		Service   string `json:"service"`
		Persisted bool   `json:"persisted"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "authorized", body.Status)
	require.Equal(t, "twitter", body.Service)
	require.True(t, body.Persisted)

	assoc, err := f.store.FindByUser(resp.Request.Context(), "u1", "twitter")
	require.NoError(t, err)
	require.Contains(t, assoc.Token, "oauth_token=tok")
}

func TestCallback_OAuth1Mismatch(t *testing.T) {
	f := newFixture(t, oauth1TestSettings)
	f.providerMux.HandleFunc("/oauth/request_token", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("oauth_token=abc&oauth_token_secret=def"))
	})

	resp := f.get(t, "/oauth/twitter/login", nil, nil)
	resp.Body.Close()
	cookies := resp.Cookies()

	resp = f.get(t, "/oauth/twitter/callback?oauth_token=attacker&oauth_verifier=xyz", cookies, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "token_mismatch", decodeError(t, resp).Code)
}

func TestCallback_OAuth1MissingPendingToken(t *testing.T) {
	f := newFixture(t, oauth1TestSettings)

	// callback sin login previo: no hay token pendiente en la sesión
	resp := f.get(t, "/oauth/twitter/callback?oauth_token=abc", nil, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "token_missing", decodeError(t, resp).Code)
}

func TestLoginCallback_OAuth2(t *testing.T) {
	f := newFixture(t, oauth2TestSettings)
	f.providerMux.HandleFunc("/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "CODE", r.PostForm.Get("code"))
		require.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		w.Write([]byte("access_token=AT123&expires_in=3600"))
	})

	resp := f.get(t, "/oauth/facebook/login", nil, nil)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	q := loc.Query()
	require.Equal(t, "fbid", q.Get("client_id"))
	stateParam := q.Get("state")
	require.NotEmpty(t, stateParam, "oauth2 login must carry a signed state")

	resp = f.get(t, "/oauth/facebook/callback?code=CODE&state="+url.QueryEscape(stateParam), resp.Cookies(), map[string]string{"X-User-ID": "u2"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status    string     `json:"status"`
		Persisted bool       `json:"persisted"`
		ExpiresAt *time.Time `json:"expires_at"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "authorized", body.Status)
	require.True(t, body.Persisted)
	require.NotNil(t, body.ExpiresAt)
	require.WithinDuration(t, time.Now().Add(3600*time.Second), *body.ExpiresAt, 10*time.Second)
}

func TestCallback_RejectsForgedState(t *testing.T) {
	f := newFixture(t, oauth2TestSettings)

	forged, err := helpers.SignState("wrong-secret", "facebook", "", time.Minute)
	require.NoError(t, err)

	resp := f.get(t, "/oauth/facebook/callback?code=CODE&state="+url.QueryEscape(forged), nil, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid_state", decodeError(t, resp).Code)
}

func TestCallback_StateServiceMustMatch(t *testing.T) {
	f := newFixture(t, oauth2TestSettings)

	other, err := helpers.SignState("test-state-secret", "github", "", time.Minute)
	require.NoError(t, err)

	resp := f.get(t, "/oauth/facebook/callback?code=CODE&state="+url.QueryEscape(other), nil, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid_state", decodeError(t, resp).Code)
}

func TestCallback_ProviderDenied(t *testing.T) {
	f := newFixture(t, oauth2TestSettings)

	resp := f.get(t, "/oauth/facebook/callback?error=access_denied&error_description=user+cancelled", nil, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	e := decodeError(t, resp)
	require.Equal(t, "provider_error", e.Code)
	require.Contains(t, e.Detail, "user cancelled")
}

func TestCallback_NoCode(t *testing.T) {
	f := newFixture(t, oauth2TestSettings)

	resp := f.get(t, "/oauth/facebook/callback", nil, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "no_code", decodeError(t, resp).Code)
}

func TestCallback_ClientSideFlow(t *testing.T) {
	f := newFixture(t, oauth2TestSettings)

	payload := map[string]any{"algorithm": "HMAC-SHA256", "user_id": "42"}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	paySeg := base64.RawURLEncoding.EncodeToString(raw)
	mac := hmac.New(sha256.New, []byte("fbsecret"))
	mac.Write([]byte(paySeg))
	env := base64.RawURLEncoding.EncodeToString(mac.Sum(nil)) + "." + paySeg

	resp := f.get(t, "/oauth/facebook/callback?access_token=AT999&signed_request="+url.QueryEscape(env), nil, map[string]string{"X-User-ID": "u3"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assoc, err := f.store.FindByIdentifier(resp.Request.Context(), "facebook", "42")
	require.NoError(t, err)
	require.Equal(t, "u3", assoc.UserID)
	require.Contains(t, assoc.Token, "access_token=AT999")
}

func TestCallback_ClientSideFlowTampered(t *testing.T) {
	f := newFixture(t, oauth2TestSettings)

	resp := f.get(t, "/oauth/facebook/callback?access_token=AT999&signed_request=bad.envelope", nil, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid_signed_request", decodeError(t, resp).Code)
}

func TestLogin_UnknownServiceIsConfigurationError(t *testing.T) {
	f := newFixture(t, oauth1TestSettings)

	resp := f.get(t, "/oauth/myspace/login", nil, nil)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.Equal(t, "configuration_error", decodeError(t, resp).Code)
}

func TestLogin_ProviderDownIsBadGateway(t *testing.T) {
	f := newFixture(t, oauth1TestSettings)
	f.providerMux.HandleFunc("/oauth/request_token", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	})

	resp := f.get(t, "/oauth/twitter/login", nil, nil)
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)
	require.Equal(t, "bad_gateway", decodeError(t, resp).Code)
}

func TestRegistry_PerServiceOverride(t *testing.T) {
	called := ""
	reg := authflow.NewRegistry(callbackFunc(func(http.ResponseWriter, *http.Request) { called = "fallback" }))
	reg.Register("twitter", callbackFunc(func(http.ResponseWriter, *http.Request) { called = "twitter" }))

	reg.For("twitter").Authorized(nil, nil, nil, nil, nil)
	require.Equal(t, "twitter", called)
	reg.For("github").Authorized(nil, nil, nil, nil, nil)
	require.Equal(t, "fallback", called)
}
