package handlers

import (
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"

	"github.com/studiobuilderapp/studiobuilder/internal/observability"
)

// SecurityHeaders sets baseline security headers for all responses.
func (h *Handlers) SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := w.Header()
		headers.Set("X-Content-Type-Options", "nosniff")
		headers.Set("X-Frame-Options", "DENY")
		headers.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		headers.Set("Cross-Origin-Opener-Policy", "same-origin")

		next.ServeHTTP(w, r)
	})
}

// RequireSameOrigin blocks cross-origin state-changing requests. It guards
// the admin area only; the gateway's IPN and callback endpoints must stay
// reachable cross-origin. Requests carrying neither Origin nor Referer pass,
// since bearer-token API clients send neither.
func (h *Handlers) RequireSameOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !mutatesState(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		meter := observability.MeterFromContext(r.Context())
		meter.Count("security.same_origin.checked", 1)

		allowed := h.allowedHosts(r)
		checks := []struct{ name, value string }{
			{"origin", strings.TrimSpace(r.Header.Get("Origin"))},
			{"referer", strings.TrimSpace(r.Header.Get("Referer"))},
		}
		for _, check := range checks {
			if check.value == "" || hostAllowed(check.value, allowed) {
				continue
			}
			meter.Count("security.same_origin.blocked", 1,
				sentry.WithAttributes(attribute.String("reason", "invalid_"+check.name)))
			h.loggerFromContext(r.Context()).Warn("blocked cross-origin admin request",
				check.name, check.value)
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func mutatesState(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

func hostAllowed(headerValue string, allowed map[string]struct{}) bool {
	parsed, err := url.Parse(headerValue)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return false
	}
	_, ok := allowed[host]
	return ok
}

// allowedHosts is the request's own Host plus the configured public base URL.
func (h *Handlers) allowedHosts(r *http.Request) map[string]struct{} {
	hosts := map[string]struct{}{}

	if r != nil {
		if host := normalizeHost(r.Host); host != "" {
			hosts[host] = struct{}{}
		}
	}
	if h.config != nil {
		if parsed, err := url.Parse(strings.TrimSpace(h.config.BaseURL)); err == nil {
			if host := strings.ToLower(parsed.Hostname()); host != "" {
				hosts[host] = struct{}{}
			}
		}
	}
	return hosts
}

func normalizeHost(hostport string) string {
	hostport = strings.TrimSpace(hostport)
	if hostport == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(hostport); err == nil {
		return strings.ToLower(strings.TrimSpace(host))
	}
	return strings.ToLower(hostport)
}
