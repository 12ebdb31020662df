package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleSettings() Settings {
	return Settings{
		"twitter": {
			Flow: "oauth1",
			Keys: map[string]string{"key": "ck", "secret": "cs"},
			Endpoints: map[string]string{
				"request_token": "https://api.twitter.com/oauth/request_token",
				"access_token":  "https://api.twitter.com/oauth/access_token",
				"authorize":     "https://api.twitter.com/oauth/authorize",
				"callback":      "https://app.example.com/oauth/twitter/callback",
			},
		},
		"facebook": {
			Keys: map[string]string{"key": "fbid", "secret": "fbsecret"},
			Endpoints: map[string]string{
				"access_token":             "https://graph.facebook.com/oauth/access_token",
				"authorize":                "https://www.facebook.com/dialog/oauth",
				"callback":                 "https://app.example.com/oauth/facebook/callback",
				"provider_scope_delimiter": " ",
			},
			Scope: []string{"email", "public_profile"},
		},
	}
}

func TestResolver_ReturnsConfiguredValues(t *testing.T) {
	res, err := NewResolver(sampleSettings(), "twitter")
	require.NoError(t, err)

	key, err := res.Key()
	require.NoError(t, err)
	require.Equal(t, "ck", key)

	u, err := res.RequestTokenURL()
	require.NoError(t, err)
	require.Equal(t, "https://api.twitter.com/oauth/request_token", u)

	require.True(t, res.OAuth1())
}

func TestResolver_DistinctErrorPerMissingLevel(t *testing.T) {
	var cfgErr *ConfigurationError

	// tabla vacía
	_, err := NewResolver(nil, "twitter")
	require.ErrorAs(t, err, &cfgErr)
	require.Empty(t, cfgErr.Service)
	require.Equal(t, "provider settings must be defined", cfgErr.Error())

	// servicio ausente
	_, err = NewResolver(sampleSettings(), "github")
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "github", cfgErr.Service)
	require.Empty(t, cfgErr.Category)

	// categoría ausente
	settings := Settings{"bare": {Endpoints: map[string]string{"authorize": "x"}}}
	res, err := NewResolver(settings, "bare")
	require.NoError(t, err)
	_, err = res.Key()
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "keys", cfgErr.Category)
	require.Empty(t, cfgErr.Field)

	// campo ausente
	_, err = res.AccessTokenURL()
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "endpoints", cfgErr.Category)
	require.Equal(t, "access_token", cfgErr.Field)
}

func TestResolver_OptionalFieldsDoNotFail(t *testing.T) {
	res, err := NewResolver(sampleSettings(), "twitter")
	require.NoError(t, err)

	// sin delimitador configurado: default ","
	require.Equal(t, ",", res.ScopeDelimiter())
	// sin scope: ""
	require.Empty(t, res.Scope())
}

func TestResolver_ScopeJoinsWithProviderDelimiter(t *testing.T) {
	res, err := NewResolver(sampleSettings(), "facebook")
	require.NoError(t, err)
	require.Equal(t, " ", res.ScopeDelimiter())
	require.Equal(t, "email public_profile", res.Scope())
	require.False(t, res.OAuth1())
}

func TestResolver_Validate(t *testing.T) {
	res, err := NewResolver(sampleSettings(), "facebook")
	require.NoError(t, err)
	require.NoError(t, res.Validate())

	broken := sampleSettings()
	svc := broken["twitter"]
	delete(svc.Endpoints, "request_token")
	broken["twitter"] = svc

	res, err = NewResolver(broken, "twitter")
	require.NoError(t, err)
	err = res.Validate()
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	require.Equal(t, "request_token", cfgErr.Field)
}
