// Package metrics exposes prometheus counters for the OAuth flows.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	metricsOnce sync.Once

	handshakesTotal         *prometheus.CounterVec
	apiCallsTotal           *prometheus.CounterVec
	signedReqTotal          *prometheus.CounterVec
	providerRequestDuration *prometheus.HistogramVec
)

// Register inicializa las métricas y devuelve el handler para /metrics.
// Idempotente; registry nil usa el default.
func Register(registry prometheus.Registerer) http.Handler {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	metricsOnce.Do(func() {
		handshakesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oauth_handshakes_total",
			Help: "Handshakes por servicio, flujo y resultado",
		}, []string{"service", "flow", "result"}) // result: started|ok|mismatch|no_code|error

		apiCallsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "oauth_api_calls_total",
			Help: "Llamadas API autenticadas por servicio y clase de status",
		}, []string{"service", "status_class"})

		signedReqTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "signed_request_verifications_total",
			Help: "Verificaciones de signed_request por resultado",
		}, []string{"result"}) // result: ok|fail

		providerRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "oauth_provider_request_duration_seconds",
			Help:    "Latencia de requests a endpoints del proveedor",
			Buckets: prometheus.DefBuckets,
		}, []string{"service", "endpoint"})

		registry.MustRegister(handshakesTotal, apiCallsTotal, signedReqTotal, providerRequestDuration)
	})

	return promhttp.Handler()
}

// Handshake registra un evento del handshake (started|ok|mismatch|no_code|error).
func Handshake(service, flow, result string) {
	if handshakesTotal != nil {
		handshakesTotal.WithLabelValues(service, flow, result).Inc()
	}
}

// APICall registra una llamada API con su clase de status (2xx, 4xx...).
func APICall(service string, status int) {
	if apiCallsTotal != nil {
		apiCallsTotal.WithLabelValues(service, strconv.Itoa(status/100)+"xx").Inc()
	}
}

// SignedRequest registra el resultado de una verificación de envelope.
func SignedRequest(ok bool) {
	if signedReqTotal == nil {
		return
	}
	if ok {
		signedReqTotal.WithLabelValues("ok").Inc()
	} else {
		signedReqTotal.WithLabelValues("fail").Inc()
	}
}

// ObserveProviderRequest registra la latencia de un round trip al proveedor.
// endpoint: request_token|access_token|api.
func ObserveProviderRequest(service, endpoint string, d time.Duration) {
	if providerRequestDuration != nil {
		providerRequestDuration.WithLabelValues(service, endpoint).Observe(d.Seconds())
	}
}
