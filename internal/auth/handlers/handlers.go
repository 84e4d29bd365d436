// Package handlers exposes the authorization flow over HTTP: login begins
// the redirect flow, callback completes it, logout clears the session.
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/stridedash/stridedash/internal/auth"
	"github.com/stridedash/stridedash/internal/logger"
	"github.com/stridedash/stridedash/internal/provider"
	"github.com/stridedash/stridedash/internal/utils"
	"go.uber.org/zap"
)

// Handler handles authorization-related HTTP requests
type Handler struct {
	coordinator *auth.Coordinator
	sessions    *auth.Registry
	cookieName  string
}

// NewHandler creates a new Handler instance
func NewHandler(coordinator *auth.Coordinator, sessions *auth.Registry, cookieName string) *Handler {
	return &Handler{
		coordinator: coordinator,
		sessions:    sessions,
		cookieName:  cookieName,
	}
}

// RegisterRoutes registers all authorization routes
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/auth/login", h.HandleLogin)
	mux.HandleFunc("/auth/callback", h.HandleCallback)
	mux.HandleFunc("/auth/logout", h.HandleLogout)
	mux.HandleFunc("/auth/status", h.HandleStatus)
}

// HandleLogin begins the authorization flow. When a stored refresh token can
// silently restore the session, no redirect to the provider is needed.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session := h.ensureSession(w, r)

	if session.State() == auth.StateAuthorized {
		utils.WriteJSON(w, map[string]string{"state": session.State().String()})
		return
	}

	// The secret store is process-global, so restoring here assumes a
	// single-user deployment: any new session inherits the stored token.
	if err := h.coordinator.RestoreSession(r.Context(), session); err == nil {
		logger.Info("login satisfied by restored session", zap.String("session", session.ID))
		utils.WriteJSON(w, map[string]string{"state": session.State().String()})
		return
	}

	authURL, _, err := h.coordinator.BeginAuthorization(session)
	if err != nil {
		logger.Error("failed to begin authorization", zap.Error(err))
		utils.WriteError(w, "configuration_error", err.Error(), http.StatusInternalServerError)
		return
	}

	if wantsJSON(r) {
		utils.WriteJSON(w, map[string]string{
			"state":             session.State().String(),
			"authorization_url": authURL,
		})
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// HandleCallback completes the authorization flow from the provider redirect.
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session := h.session(r)
	if session == nil {
		utils.WriteError(w, "unknown_session", "No session for this callback, restart login", http.StatusUnauthorized)
		return
	}

	query := r.URL.Query()
	if providerErr := query.Get("error"); providerErr != "" {
		// User declined consent; the session keeps its authorization link.
		logger.Warn("authorization denied at provider",
			zap.String("session", session.ID),
			zap.String("error", providerErr),
		)
		utils.WriteError(w, "authorization_denied",
			auth.ErrAuthorizationDenied.Error(), http.StatusForbidden)
		return
	}

	code := query.Get("code")
	if code == "" {
		utils.WriteError(w, "invalid_request", "Code is required", http.StatusBadRequest)
		return
	}

	_, err := h.coordinator.CompleteAuthorization(r.Context(), session, code, query.Get("state"))
	if err != nil {
		h.writeAuthError(w, session, err)
		return
	}

	utils.WriteJSON(w, map[string]string{"state": session.State().String()})
}

// HandleLogout clears the session token pair.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if session := h.session(r); session != nil {
		h.coordinator.Logout(session)
		h.sessions.Delete(session.ID)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	utils.WriteJSON(w, map[string]string{"state": auth.StateUnauthenticated.String()})
}

// HandleStatus reports the session authorization state.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	session := h.session(r)
	if session == nil {
		utils.WriteJSON(w, map[string]string{"state": auth.StateUnauthenticated.String()})
		return
	}

	status := map[string]interface{}{"state": session.State().String()}
	if session.State() == auth.StateAuthorized {
		status["expires_at"] = session.ExpiresAt().Unix()
	}
	utils.WriteJSON(w, status)
}

func (h *Handler) writeAuthError(w http.ResponseWriter, session *auth.Session, err error) {
	var rateLimited *provider.RateLimitError
	switch {
	case errors.Is(err, auth.ErrCsrfMismatch):
		logger.Warn("callback rejected", zap.String("session", session.ID), zap.Error(err))
		utils.WriteError(w, "csrf_mismatch", err.Error(), http.StatusForbidden)
	case errors.Is(err, auth.ErrTokenExchange):
		logger.Error("token exchange failed", zap.String("session", session.ID), zap.Error(err))
		utils.WriteError(w, "token_exchange_failed", err.Error(), http.StatusBadGateway)
	case errors.As(err, &rateLimited):
		w.Header().Set("Retry-After", retryAfterSeconds(rateLimited.RetryAfter))
		utils.WriteError(w, "rate_limited", err.Error(), http.StatusTooManyRequests)
	case errors.Is(err, provider.ErrUpstreamUnavailable):
		utils.WriteError(w, "upstream_unavailable", err.Error(), http.StatusBadGateway)
	default:
		logger.Error("authorization failed", zap.String("session", session.ID), zap.Error(err))
		utils.WriteError(w, "authorization_failed", err.Error(), http.StatusInternalServerError)
	}
}

// ensureSession returns the request session, creating one and setting the
// cookie when none exists.
func (h *Handler) ensureSession(w http.ResponseWriter, r *http.Request) *auth.Session {
	if session := h.session(r); session != nil {
		return session
	}
	session := h.sessions.New()
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return session
}

func (h *Handler) session(r *http.Request) *auth.Session {
	cookie, err := r.Cookie(h.cookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	return h.sessions.Get(cookie.Value)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func retryAfterSeconds(d time.Duration) string {
	secs := int(d / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}
