package handlers

import (
	"net/http"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"

	"github.com/studiobuilderapp/studiobuilder/internal/observability"
)

// MetricsContext attaches a request-scoped meter, pre-attributed with the
// request identity and the storefront surface it hit, so service-level
// counters aggregate per surface without each call site repeating attrs.
func (h *Handlers) MetricsContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		attrs := []attribute.Builder{
			attribute.String("http.request_id", requestIDFromRequest(r)),
			attribute.String("http.method", r.Method),
			attribute.String("network.client.ip", clientIP(r)),
			attribute.String("app.surface", surfaceLabel(r.URL.Path)),
		}
		if route := routeLabel(r); route != "" {
			attrs = append(attrs, attribute.String("http.route", route))
		}
		if userAgent := strings.TrimSpace(r.UserAgent()); userAgent != "" {
			attrs = append(attrs, attribute.String("http.user_agent", userAgent))
		}
		if r.ContentLength >= 0 {
			attrs = append(attrs, attribute.Int64("http.request_content_length", r.ContentLength))
		}

		meter := sentry.NewMeter(ctx).WithCtx(ctx)
		meter.SetAttributes(attrs...)

		ctx = observability.WithMeter(ctx, meter)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func surfaceLabel(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/admin") || path == "/admin/login":
		return "admin"
	case strings.HasPrefix(path, "/payment/") || strings.HasPrefix(path, "/api/payment/"):
		return "payment"
	case strings.HasPrefix(path, "/api/"):
		return "storefront"
	default:
		return "other"
	}
}
