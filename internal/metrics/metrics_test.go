package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestHelpersAreNilSafeBeforeRegister(t *testing.T) {
	// antes de Register, los helpers son no-ops
	require.NotPanics(t, func() {
		Handshake("twitter", "oauth1", "ok")
		APICall("twitter", 200)
		SignedRequest(true)
		ObserveProviderRequest("twitter", "api", time.Second)
	})
}

func TestRegisterAndCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := Register(reg)
	require.NotNil(t, h)

	Handshake("twitter", "oauth1", "ok")
	Handshake("twitter", "oauth1", "ok")
	Handshake("github", "oauth2", "error")
	APICall("twitter", 404)
	SignedRequest(false)

	require.Equal(t, float64(2), testutil.ToFloat64(handshakesTotal.WithLabelValues("twitter", "oauth1", "ok")))
	require.Equal(t, float64(1), testutil.ToFloat64(handshakesTotal.WithLabelValues("github", "oauth2", "error")))
	require.Equal(t, float64(1), testutil.ToFloat64(apiCallsTotal.WithLabelValues("twitter", "4xx")))
	require.Equal(t, float64(1), testutil.ToFloat64(signedReqTotal.WithLabelValues("fail")))

	// idempotente: una segunda llamada no vuelve a registrar
	require.NotPanics(t, func() { Register(reg) })
}
