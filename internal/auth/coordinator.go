package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/stridedash/stridedash/internal/auth/store"
	"github.com/stridedash/stridedash/internal/config"
	"github.com/stridedash/stridedash/internal/logger"
	"github.com/stridedash/stridedash/internal/provider"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Coordinator drives the three-legged authorization-code grant and keeps a
// valid access token available for the session. It is stateless itself; all
// per-user state lives on the Session it operates on.
type Coordinator struct {
	cfg     *config.OAuthConfig
	oauth   *oauth2.Config
	client  *http.Client
	secrets store.Store
	now     func() time.Time
}

// NewCoordinator creates a Coordinator for the configured provider.
func NewCoordinator(cfg *config.OAuthConfig, secrets store.Store) *Coordinator {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Coordinator{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		client:  &http.Client{Timeout: timeout},
		secrets: secrets,
		now:     time.Now,
	}
}

// BeginAuthorization builds the provider authorization URL with a fresh
// anti-forgery state token and moves the session to AwaitingCallback.
func (c *Coordinator) BeginAuthorization(s *Session) (authURL, state string, err error) {
	if c.cfg.ClientID == "" || c.cfg.RedirectURI == "" {
		return "", "", fmt.Errorf("%w: client_id and redirect_uri are required", ErrConfiguration)
	}

	state, err = newStateToken()
	if err != nil {
		return "", "", fmt.Errorf("failed to generate state token: %w", err)
	}
	authURL = c.oauth.AuthCodeURL(state)

	s.mu.Lock()
	s.state = StateAwaitingCallback
	s.oauthState = state
	s.authURL = authURL
	s.mu.Unlock()

	logger.Info("authorization started", zap.String("session", s.ID))
	return authURL, state, nil
}

// CompleteAuthorization validates the callback state and exchanges the
// authorization code for a token pair. On state mismatch the session remains
// in AwaitingCallback so the issued authorization link can be retried.
func (c *Coordinator) CompleteAuthorization(ctx context.Context, s *Session, code, state string) (TokenPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateAwaitingCallback || s.oauthState == "" {
		return TokenPair{}, fmt.Errorf("%w: no authorization in progress", ErrCsrfMismatch)
	}
	if state != s.oauthState {
		logger.Warn("state mismatch on callback", zap.String("session", s.ID))
		return TokenPair{}, fmt.Errorf("%w: callback state does not match issued state", ErrCsrfMismatch)
	}

	pair, err := c.exchange(ctx, url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"redirect_uri": {c.cfg.RedirectURI},
	})
	if err != nil {
		return TokenPair{}, err
	}

	s.pair = pair
	s.state = StateAuthorized
	s.authURL = ""
	s.oauthState = ""
	c.persistRefreshToken(pair.RefreshToken)

	logger.Info("authorization completed",
		zap.String("session", s.ID),
		zap.Time("expires_at", pair.ExpiresAt),
	)
	return pair, nil
}

// ValidAccessToken returns the stored access token, refreshing it first when
// it expires within the configured safety margin. The session lock spans the
// check and the refresh, so concurrent callers observe the refreshed expiry
// instead of refreshing twice.
func (c *Coordinator) ValidAccessToken(ctx context.Context, s *Session) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateAuthorized:
	case StateExpired:
		return "", fmt.Errorf("%w: session expired", ErrReauthorizationRequired)
	default:
		return "", fmt.Errorf("%w: session not authorized", ErrReauthorizationRequired)
	}

	if !s.pair.expiresWithin(c.now(), c.refreshMargin()) {
		return s.pair.AccessToken, nil
	}

	pair, err := c.exchange(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {s.pair.RefreshToken},
	})
	if err != nil {
		if errors.Is(err, ErrTokenExchange) {
			// Refresh token revoked or expired: the full flow must run again.
			s.state = StateExpired
			s.pair = TokenPair{}
			c.clearRefreshToken()
			logger.Warn("refresh rejected, session expired", zap.String("session", s.ID), zap.Error(err))
			return "", fmt.Errorf("%w: %v", ErrReauthorizationRequired, err)
		}
		// Transient failure: keep the session authorized, surface the error.
		return "", err
	}

	s.pair = pair
	c.persistRefreshToken(pair.RefreshToken)
	logger.Debug("access token refreshed",
		zap.String("session", s.ID),
		zap.Time("expires_at", pair.ExpiresAt),
	)
	return pair.AccessToken, nil
}

// RestoreSession attempts a silent login from a persisted refresh token,
// skipping the redirect flow. It returns ErrReauthorizationRequired when no
// usable token is stored.
func (c *Coordinator) RestoreSession(ctx context.Context, s *Session) error {
	refresh, err := c.secrets.RefreshToken()
	if err != nil || refresh == "" {
		return fmt.Errorf("%w: no stored refresh token", ErrReauthorizationRequired)
	}

	pair, err := c.exchange(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refresh},
	})
	if err != nil {
		c.clearRefreshToken()
		return fmt.Errorf("%w: stored refresh token rejected", ErrReauthorizationRequired)
	}

	s.mu.Lock()
	s.pair = pair
	s.state = StateAuthorized
	s.mu.Unlock()
	c.persistRefreshToken(pair.RefreshToken)

	logger.Info("session restored from stored refresh token", zap.String("session", s.ID))
	return nil
}

// Logout clears the token pair and returns the session to Unauthenticated.
// The provider has no mandatory revocation step, so no remote call is made.
func (c *Coordinator) Logout(s *Session) {
	s.mu.Lock()
	s.pair = TokenPair{}
	s.state = StateUnauthenticated
	s.authURL = ""
	s.oauthState = ""
	s.mu.Unlock()
	c.clearRefreshToken()
	logger.Info("logged out", zap.String("session", s.ID))
}

// tokenResponse is the provider token endpoint body. Expiry arrives as
// expires_at in epoch seconds, not the RFC 6749 expires_in.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

// exchange POSTs to the token endpoint. The client secret never leaves this
// server-side call. The exchange is done with a plain http.Client instead of
// oauth2.Config.Exchange because the provider reports expiry as expires_at
// and the error taxonomy needs the raw status code.
func (c *Coordinator) exchange(ctx context.Context, form url.Values) (TokenPair, error) {
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return TokenPair{}, fmt.Errorf("%w: %v", provider.ErrUpstreamUnavailable, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logger.Error("failed to close token response body", zap.Error(closeErr))
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return TokenPair{}, fmt.Errorf("%w: %v", provider.ErrUpstreamUnavailable, err)
	}

	if err := provider.StatusError(resp.StatusCode, resp.Header); err != nil {
		return TokenPair{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return TokenPair{}, fmt.Errorf("%w: status %d", ErrTokenExchange, resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return TokenPair{}, fmt.Errorf("%w: malformed response body", ErrTokenExchange)
	}
	if tr.AccessToken == "" {
		return TokenPair{}, fmt.Errorf("%w: response missing access_token", ErrTokenExchange)
	}

	return TokenPair{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresAt:    time.Unix(tr.ExpiresAt, 0),
	}, nil
}

func (c *Coordinator) refreshMargin() time.Duration {
	if c.cfg.RefreshMargin > 0 {
		return c.cfg.RefreshMargin
	}
	return time.Minute
}

func (c *Coordinator) persistRefreshToken(token string) {
	if token == "" {
		return
	}
	if err := c.secrets.SaveRefreshToken(token); err != nil {
		logger.Warn("failed to persist refresh token", zap.Error(err))
	}
}

func (c *Coordinator) clearRefreshToken() {
	if err := c.secrets.Clear(); err != nil {
		logger.Warn("failed to clear refresh token", zap.Error(err))
	}
}

func newStateToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
