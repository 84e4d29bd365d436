package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stridedash/stridedash/internal/auth"
	"github.com/stridedash/stridedash/internal/auth/store"
	"github.com/stridedash/stridedash/internal/config"
)

const cookieName = "stridedash_session"

func newTestHandler(t *testing.T, tokenEndpoint http.HandlerFunc) *Handler {
	t.Helper()

	if tokenEndpoint == nil {
		tokenEndpoint = func(w http.ResponseWriter, r *http.Request) {
			expires := time.Now().Add(6 * time.Hour).Unix()
			fmt.Fprintf(w, `{"access_token":"A","refresh_token":"R","expires_at":%d}`, expires)
		}
	}
	srv := httptest.NewServer(tokenEndpoint)
	t.Cleanup(srv.Close)

	cfg := &config.OAuthConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURI:  "http://localhost:8501/auth/callback",
		Scopes:       []string{"activity:read_all"},
		AuthURL:      "https://provider.example/oauth/authorize",
		TokenURL:     srv.URL,
		Timeout:      5 * time.Second,
	}
	coordinator := auth.NewCoordinator(cfg, store.NewMemory())
	return NewHandler(coordinator, auth.NewRegistry(), cookieName)
}

// beginLogin runs the login handler and returns the session cookie together
// with the state token embedded in the authorization URL.
func beginLogin(t *testing.T, h *Handler) (*http.Cookie, string) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	rec := httptest.NewRecorder()
	h.HandleLogin(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies[0], location.Query().Get("state")
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestLoginRedirectsToProvider(t *testing.T) {
	h := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	rec := httptest.NewRecorder()
	h.HandleLogin(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "provider.example", location.Host)
	assert.Equal(t, "client", location.Query().Get("client_id"))
	assert.NotEmpty(t, location.Query().Get("state"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, cookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
}

func TestLoginReturnsJSONWhenAccepted(t *testing.T) {
	h := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	h.HandleLogin(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "awaiting_callback", body["state"])
	assert.Contains(t, body["authorization_url"], "provider.example")
}

func TestLoginRequiresGet(t *testing.T) {
	h := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	rec := httptest.NewRecorder()
	h.HandleLogin(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCallbackCompletesAuthorization(t *testing.T) {
	h := newTestHandler(t, nil)
	cookie, state := beginLogin(t, h)

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc123&state="+url.QueryEscape(state), nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.HandleCallback(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "authorized", decodeBody(t, rec)["state"])
}

func TestCallbackDeniedByUser(t *testing.T) {
	h := newTestHandler(t, nil)
	cookie, _ := beginLogin(t, h)

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?error=access_denied", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.HandleCallback(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "authorization_denied", decodeBody(t, rec)["error"])
}

func TestCallbackStateMismatch(t *testing.T) {
	h := newTestHandler(t, nil)
	cookie, _ := beginLogin(t, h)

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc123&state=forged", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.HandleCallback(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "csrf_mismatch", decodeBody(t, rec)["error"])
}

func TestCallbackMissingCode(t *testing.T) {
	h := newTestHandler(t, nil)
	cookie, state := beginLogin(t, h)

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?state="+url.QueryEscape(state), nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.HandleCallback(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCallbackWithoutSession(t *testing.T) {
	h := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc123&state=x", nil)
	rec := httptest.NewRecorder()
	h.HandleCallback(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unknown_session", decodeBody(t, rec)["error"])
}

func TestCallbackExchangeRejected(t *testing.T) {
	h := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"message":"Bad Request"}`)
	})
	cookie, state := beginLogin(t, h)

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=bad&state="+url.QueryEscape(state), nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.HandleCallback(rec, req)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "token_exchange_failed", decodeBody(t, rec)["error"])
}

func TestCallbackRateLimited(t *testing.T) {
	h := newTestHandler(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "120")
		w.WriteHeader(http.StatusTooManyRequests)
	})
	cookie, state := beginLogin(t, h)

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc123&state="+url.QueryEscape(state), nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.HandleCallback(rec, req)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "120", rec.Header().Get("Retry-After"))
}

func TestStatusReportsAuthorizedSession(t *testing.T) {
	h := newTestHandler(t, nil)
	cookie, state := beginLogin(t, h)

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc123&state="+url.QueryEscape(state), nil)
	req.AddCookie(cookie)
	h.HandleCallback(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodGet, "/auth/status", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.HandleStatus(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "authorized", body["state"])
	assert.NotZero(t, body["expires_at"])
}

func TestStatusWithoutSession(t *testing.T) {
	h := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/auth/status", nil)
	rec := httptest.NewRecorder()
	h.HandleStatus(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "unauthenticated", decodeBody(t, rec)["state"])
}

func TestLogoutClearsSession(t *testing.T) {
	h := newTestHandler(t, nil)
	cookie, state := beginLogin(t, h)

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc123&state="+url.QueryEscape(state), nil)
	req.AddCookie(cookie)
	h.HandleCallback(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.HandleLogout(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "unauthenticated", decodeBody(t, rec)["state"])

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)

	// The old cookie no longer resolves to a session.
	req = httptest.NewRequest(http.MethodGet, "/auth/status", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	h.HandleStatus(rec, req)
	assert.Equal(t, "unauthenticated", decodeBody(t, rec)["state"])
}

func TestLogoutRequiresPost(t *testing.T) {
	h := newTestHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/auth/logout", nil)
	rec := httptest.NewRecorder()
	h.HandleLogout(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
