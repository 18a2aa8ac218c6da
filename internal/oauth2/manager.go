// Package oauth2 owns the NIC.RU OAuth2 token lifecycle: the resource-owner
// password grant, the refresh grant, expiry decisions and persistence hooks.
//
// A Manager holds at most one token. It is either Unauthenticated (no token)
// or Authenticated. Acquire and Refresh replace the token wholesale; an
// unrecoverable rejection discards it. Every method is safe for concurrent use
// and renewals are serialized, so callers never observe a superseded token.
//
// Basic usage:
//
//	m, err := oauth2.NewManager(oauth2.Credentials{ClientID: appLogin, ClientSecret: appPassword},
//		oauth2.WithStorage(oauth2.NewFileTokenStorage("nic_token.json")),
//	)
//	if _, err := m.Acquire(ctx, username, password); err != nil {
//		return err
//	}
//	tok, err := m.EnsureValid(ctx)
package oauth2

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"nic-dns/internal/circuitbreaker"
	"nic-dns/internal/common/errors"
	commonhttp "nic-dns/internal/common/http"
	"nic-dns/internal/common/logging"
)

const (
	// DefaultTokenURL is the NIC.RU authorization server endpoint
	DefaultTokenURL = "https://api.nic.ru/oauth/token"
	// DefaultScope grants access to the DNS-master API
	DefaultScope = ".+:/dns-master/.+"
	// DefaultOffline is the token lifetime in seconds requested from NIC.RU
	DefaultOffline = 3600
	// DefaultExpirySkew renews a token this long before it actually expires
	DefaultExpirySkew = 5 * time.Second
)

// Credentials identify the registered application. They are immutable for
// the lifetime of a Manager.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// TokenUpdater is invoked with every newly granted token. A failing updater
// is logged and never fails the grant that produced the token.
type TokenUpdater func(ctx context.Context, token Token) error

// TokenClearer is invoked when the manager drops its token, either through
// Clear or after a renewal fails for good.
type TokenClearer func(ctx context.Context) error

// Manager manages the OAuth2 token for one NIC.RU application and account.
type Manager struct {
	// mu serializes every read and renewal of token, including the network
	// exchange of a renewal
	mu    sync.Mutex
	token *Token

	username string
	password string

	credentials   Credentials
	tokenURL      string
	scope         string
	offline       int
	skew          time.Duration
	missingExpiry time.Duration

	httpClient     commonhttp.Doer
	circuitBreaker *circuitbreaker.GoBreakerAdapter
	updater        TokenUpdater
	clearer        TokenClearer
	now            func() time.Time
	logger         logging.Logger
}

// NewManager creates a Manager for the given application credentials.
func NewManager(credentials Credentials, opts ...Option) (*Manager, error) {
	if credentials.ClientID == "" {
		return nil, errors.ValidationError("client_id is required")
	}
	if credentials.ClientSecret == "" {
		return nil, errors.ValidationError("client_secret is required")
	}

	m := &Manager{
		credentials:   credentials,
		tokenURL:      DefaultTokenURL,
		scope:         DefaultScope,
		offline:       DefaultOffline,
		skew:          DefaultExpirySkew,
		missingExpiry: NeverExpires,
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.logger == nil {
		m.logger = logging.GetGlobalLogger()
	}
	if m.httpClient == nil {
		m.httpClient = commonhttp.NewHTTPClientWithTimeout(30 * time.Second)
	}
	if m.circuitBreaker == nil {
		m.circuitBreaker = circuitbreaker.NewGoBreaker("nic-oauth", circuitbreaker.OAuthConfig, m.logger)
	}
	if m.skew < 0 {
		return nil, errors.ValidationError("expiry skew must not be negative")
	}

	return m, nil
}

// Acquire performs the password grant and replaces the held token. On success
// the user credentials are cached so EnsureValid can re-acquire when the
// refresh token stops working.
func (m *Manager) Acquire(ctx context.Context, username, password string) (Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.acquireLocked(ctx, username, password)
}

// Refresh performs the refresh grant with the held refresh token.
func (m *Manager) Refresh(ctx context.Context) (Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.refreshLocked(ctx)
}

// Current returns a copy of the held token without any validity check.
func (m *Manager) Current() (Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token == nil {
		return Token{}, errors.NoTokenError()
	}
	return *m.token, nil
}

// IsExpired reports whether now + skew is at or past the token expiry. It is
// true when no token is held and false for never-expiring tokens.
func (m *Manager) IsExpired(skew time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token == nil {
		return true
	}
	return m.token.ExpiredAt(m.now(), skew)
}

// EnsureValid returns the held token when it is still valid under the
// configured skew. Otherwise it refreshes, falls back to the password grant
// with cached credentials, and surfaces the refresh failure when neither
// works.
func (m *Manager) EnsureValid(ctx context.Context) (Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token != nil && !m.token.ExpiredAt(m.now(), m.skew) {
		return *m.token, nil
	}
	return m.renewLocked(ctx)
}

// Renew unconditionally obtains a new token, preferring the refresh grant.
func (m *Manager) Renew(ctx context.Context) (Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.renewLocked(ctx)
}

// Reauthorize renews after the API rejected rejectedAccessToken. When another
// caller has already replaced that token, the replacement is returned without
// a second renewal.
func (m *Manager) Reauthorize(ctx context.Context, rejectedAccessToken string) (Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token != nil && m.token.AccessToken != rejectedAccessToken && !m.token.ExpiredAt(m.now(), m.skew) {
		return *m.token, nil
	}
	return m.renewLocked(ctx)
}

// SetToken seeds the manager with a previously persisted token.
func (m *Manager) SetToken(token Token) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := token
	m.token = &t
}

// Clear drops the held token and the cached user credentials and notifies
// the token clearer.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.token = nil
	m.username, m.password = "", ""

	if m.clearer != nil {
		if err := m.clearer(ctx); err != nil {
			return errors.InternalError("failed to clear persisted token", err)
		}
	}
	return nil
}

// HasUserCredentials reports whether a password grant can be repeated
// without the caller supplying credentials.
func (m *Manager) HasUserCredentials() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.username != "" && m.password != ""
}

func (m *Manager) renewLocked(ctx context.Context) (Token, error) {
	hasCredentials := m.username != "" && m.password != ""

	if m.token == nil {
		if !hasCredentials {
			return Token{}, errors.NoTokenError()
		}
		return m.acquireLocked(ctx, m.username, m.password)
	}

	token, err := m.refreshLocked(ctx)
	if err == nil {
		return token, nil
	}
	if !hasCredentials {
		return Token{}, err
	}

	m.logger.Warn("Token refresh failed, falling back to password grant",
		logging.Field{Key: "error", Value: err.Error()},
	)
	return m.acquireLocked(ctx, m.username, m.password)
}

func (m *Manager) acquireLocked(ctx context.Context, username, password string) (Token, error) {
	if username == "" || password == "" {
		return Token{}, errors.AuthError("username and password are required")
	}

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", username)
	form.Set("password", password)

	token, err := m.requestToken(ctx, form, "")
	if err != nil {
		if errors.IsType(err, errors.ErrTypeAuth) {
			m.discardLocked(ctx)
			if username == m.username && password == m.password {
				m.username, m.password = "", ""
			}
		}
		return Token{}, err
	}

	m.username, m.password = username, password
	m.storeLocked(ctx, token)

	m.logger.Info("Acquired NIC.RU access token",
		logging.Field{Key: "expires_at", Value: token.ExpiresAt()},
	)
	return *token, nil
}

func (m *Manager) refreshLocked(ctx context.Context) (Token, error) {
	if m.token == nil {
		return Token{}, errors.AuthError("no token to refresh")
	}
	if !m.token.HasRefreshToken() {
		if m.token.ExpiredAt(m.now(), 0) {
			m.discardLocked(ctx)
		}
		return Token{}, errors.AuthError("token has no refresh token")
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", m.token.RefreshToken)

	token, err := m.requestToken(ctx, form, m.token.RefreshToken)
	if err != nil {
		if errors.IsType(err, errors.ErrTypeAuth) {
			m.discardLocked(ctx)
		}
		return Token{}, err
	}

	m.storeLocked(ctx, token)

	m.logger.Debug("Refreshed NIC.RU access token",
		logging.Field{Key: "expires_at", Value: token.ExpiresAt()},
	)
	return *token, nil
}

// discardLocked drops a token that can no longer be used or renewed. A
// failing clearer is logged, the grant error is what the caller sees.
func (m *Manager) discardLocked(ctx context.Context) {
	if m.token == nil {
		return
	}
	m.token = nil

	if m.clearer == nil {
		return
	}
	if err := m.clearer(ctx); err != nil {
		m.logger.Warn("Failed to clear persisted token",
			logging.Field{Key: "error", Value: err.Error()},
		)
	}
}

func (m *Manager) storeLocked(ctx context.Context, token *Token) {
	m.token = token

	if m.updater == nil {
		return
	}
	if err := m.updater(ctx, *token); err != nil {
		m.logger.Warn("Failed to persist token",
			logging.Field{Key: "error", Value: err.Error()},
		)
	}
}

// requestToken posts a grant to the token endpoint. previousRefresh is kept
// when a refresh response omits a new refresh token.
func (m *Manager) requestToken(ctx context.Context, form url.Values, previousRefresh string) (*Token, error) {
	form.Set("client_id", m.credentials.ClientID)
	form.Set("client_secret", m.credentials.ClientSecret)
	if m.scope != "" {
		form.Set("scope", m.scope)
	}
	if m.offline > 0 {
		form.Set("offline", strconv.Itoa(m.offline))
	}

	var token *Token
	err := m.circuitBreaker.Execute(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL, strings.NewReader(form.Encode()))
		if err != nil {
			return errors.InternalError("failed to create token request", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", "application/json")

		resp, err := commonhttp.Do(ctx, m.httpClient, req)
		if err != nil {
			return err
		}

		token, err = m.parseTokenResponse(resp)
		return err
	})
	if err != nil {
		return nil, err
	}

	if token.RefreshToken == "" {
		token.RefreshToken = previousRefresh
	}
	return token, nil
}

func (m *Manager) parseTokenResponse(resp *commonhttp.Response) (*Token, error) {
	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, errors.TransportError(fmt.Sprintf("token endpoint returned status %d", resp.StatusCode), nil).
			WithResponse(resp.StatusCode, resp.Body)
	case resp.StatusCode >= 400:
		var errResp errorResponse
		msg := fmt.Sprintf("token request rejected with status %d", resp.StatusCode)
		if json.Unmarshal(resp.Body, &errResp) == nil && errResp.Error != "" {
			msg = errResp.Error
			if errResp.Description != "" {
				msg += ": " + errResp.Description
			}
		}
		return nil, errors.AuthError(msg).WithCode(errResp.Error).WithResponse(resp.StatusCode, resp.Body)
	default:
		return nil, errors.MalformedResponseError(fmt.Sprintf("unexpected token endpoint status %d", resp.StatusCode), nil).
			WithResponse(resp.StatusCode, resp.Body)
	}

	var tokenResp tokenResponse
	if err := json.Unmarshal(resp.Body, &tokenResp); err != nil {
		return nil, errors.MalformedResponseError("failed to decode token response", err).
			WithResponse(resp.StatusCode, resp.Body)
	}
	if tokenResp.AccessToken == "" {
		return nil, errors.MalformedResponseError("token response has no access_token", nil).
			WithResponse(resp.StatusCode, resp.Body)
	}
	if !isBearer(tokenResp.TokenType) {
		return nil, errors.MalformedResponseError(fmt.Sprintf("unsupported token type %q", tokenResp.TokenType), nil).
			WithResponse(resp.StatusCode, resp.Body)
	}

	token := &Token{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		TokenType:    "bearer",
		IssuedAt:     m.now(),
	}

	switch {
	case tokenResp.ExpiresIn != nil:
		if *tokenResp.ExpiresIn < 0 {
			return nil, errors.MalformedResponseError("token response has negative expires_in", nil).
				WithResponse(resp.StatusCode, resp.Body)
		}
		token.ExpiresIn = *tokenResp.ExpiresIn
	case m.missingExpiry == NeverExpires:
		token.NoExpiry = true
	default:
		token.ExpiresIn = int64(m.missingExpiry / time.Second)
	}

	return token, nil
}
