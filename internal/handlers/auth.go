package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"

	"github.com/studiobuilderapp/studiobuilder/internal/auth"
	"github.com/studiobuilderapp/studiobuilder/internal/observability"
)

type adminLoginRequest struct {
	AdminKey string `json:"admin_key" validate:"required"`
}

type adminLoginResponse struct {
	Token string `json:"token"`
}

// AdminLogin exchanges the shared admin key for a short-lived bearer token.
func (h *Handlers) AdminLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)

	var req adminLoginRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	token, err := h.authManager.Login(req.AdminKey)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidAdminKey) {
			meter.Count("admin.login.rejected", 1)
			logger.Warn("admin login rejected", "remote_ip", clientIP(r))
			h.writeError(w, r, http.StatusUnauthorized, "Invalid admin key")
			return
		}
		logger.Error("admin login failed", "error", err)
		h.writeError(w, r, http.StatusInternalServerError, "Login failed")
		return
	}

	meter.Count("admin.login.accepted", 1)
	h.writeJSON(w, r, http.StatusOK, adminLoginResponse{Token: token})
}

// RequireAdmin rejects requests without a valid admin bearer token.
func (h *Handlers) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token := bearerToken(r)
		if token == "" {
			h.writeError(w, r, http.StatusUnauthorized, "Missing bearer token")
			return
		}

		if err := h.authManager.Verify(token); err != nil {
			meter := observability.MeterFromContext(ctx)
			meter.Count("admin.token.rejected", 1, sentry.WithAttributes(
				attribute.String("path", r.URL.Path),
			))
			h.loggerFromContext(ctx).Warn("rejected admin token", "path", r.URL.Path, "error", err)
			h.writeError(w, r, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
