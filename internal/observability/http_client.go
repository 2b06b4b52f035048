package observability

import (
	"net/http"
	"time"

	sentryhttpclient "github.com/getsentry/sentry-go/httpclient"
)

// Trace headers are only propagated to the payment gateway hosts; leaking
// trace context to arbitrary origins would tie our traces to theirs.
var tracePropagationTargets = []string{
	"cybqa.pesapal.com",
	"pay.pesapal.com",
}

// NewHTTPClient builds the outbound client used for gateway calls. Every
// request gets a span via the instrumented round tripper; a zero timeout
// means no client-level deadline.
func NewHTTPClient(timeout time.Duration) *http.Client {
	transport := sentryhttpclient.NewSentryRoundTripper(
		http.DefaultTransport,
		sentryhttpclient.WithTracePropagationTargets(tracePropagationTargets),
	)

	client := &http.Client{Transport: transport}
	if timeout > 0 {
		client.Timeout = timeout
	}
	return client
}
