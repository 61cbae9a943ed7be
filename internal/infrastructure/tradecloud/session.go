package tradecloud

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/tradecloud/bc-connector/internal/infrastructure/httpexec"
)

// SystemName identifies Tradecloud in logs and metrics.
const SystemName = "tc"

// SessionLifetime is how long a session token is used before refreshing.
const SessionLifetime = 9 * time.Minute

const (
	headerSetAuthorization = "Set-Authorization"
	headerSetRefreshToken  = "Set-Refresh-Token"
	headerRefreshToken     = "Refresh-Token"
)

var (
	ErrLoginFailed   = errors.New("tradecloud: login failed")
	ErrRefreshFailed = errors.New("tradecloud: token refresh failed")
	ErrLogoutFailed  = errors.New("tradecloud: logout failed")
)

// Session is an httpexec.Strategy implementing the Tradecloud login, refresh
// and logout flows. A request is never sent without a session token.
type Session struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewSession creates the strategy. cfg must be valid.
func NewSession(cfg Config, logger *zap.Logger) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}, nil
}

// System implements httpexec.Strategy.
func (s *Session) System() string { return SystemName }

// RequireToken implements httpexec.Strategy.
func (s *Session) RequireToken() bool { return true }

// Acquire logs in when no session is held and refreshes an expired one.
// A failed refresh falls back to a fresh login.
func (s *Session) Acquire(ctx context.Context, current httpexec.Token) (httpexec.Grant, error) {
	if current.IsZero() || current.RefreshToken == "" {
		return s.Login(ctx)
	}

	grant, err := s.Refresh(ctx, current.RefreshToken)
	if err == nil {
		return grant, nil
	}
	s.logger.Warn("Session refresh failed, logging in again", zap.Error(err))
	return s.Login(ctx)
}

// Reacquire logs the rejected session out and logs in again.
func (s *Session) Reacquire(ctx context.Context, rejected httpexec.Token) (httpexec.Grant, error) {
	if rejected.RefreshToken != "" {
		if err := s.Logout(ctx, rejected.RefreshToken); err != nil {
			s.logger.Warn("Logout before re-login failed", zap.Error(err))
		}
	}
	return s.Login(ctx)
}

// Login opens a session with the integration user's credentials.
func (s *Session) Login(ctx context.Context) (httpexec.Grant, error) {
	url := s.cfg.url(loginPath)
	s.logger.Debug("Logging in", zap.String("url", url), zap.String("username", s.cfg.IntegrationUsername))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return httpexec.Grant{}, fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}
	req.SetBasicAuth(s.cfg.IntegrationUsername, s.cfg.IntegrationPassword)

	grant, err := s.sessionCall(req)
	if err != nil {
		s.logger.Error("Login failed",
			zap.String("url", url),
			zap.String("username", s.cfg.IntegrationUsername),
			zap.Error(err),
		)
		return httpexec.Grant{}, fmt.Errorf("%w: %v", ErrLoginFailed, err)
	}
	return grant, nil
}

// Refresh renews a session with its refresh token.
func (s *Session) Refresh(ctx context.Context, refreshToken string) (httpexec.Grant, error) {
	url := s.cfg.url(refreshPath)
	s.logger.Debug("Refreshing session", zap.String("url", url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return httpexec.Grant{}, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	req.Header.Set(headerRefreshToken, refreshToken)

	grant, err := s.sessionCall(req)
	if err != nil {
		return httpexec.Grant{}, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	return grant, nil
}

// Logout invalidates the refresh token. The access token stays valid until
// it expires server side.
func (s *Session) Logout(ctx context.Context, refreshToken string) error {
	url := s.cfg.url(logoutPath)
	s.logger.Debug("Logging out", zap.String("url", url))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLogoutFailed, err)
	}
	req.Header.Set(headerRefreshToken, refreshToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLogoutFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrLogoutFailed, resp.StatusCode)
	}
	return nil
}

// sessionCall performs a login or refresh request and reads the session
// tokens from the response headers.
func (s *Session) sessionCall(req *http.Request) (httpexec.Grant, error) {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return httpexec.Grant{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return httpexec.Grant{}, fmt.Errorf("status %d", resp.StatusCode)
	}

	access := resp.Header.Get(headerSetAuthorization)
	if access == "" {
		return httpexec.Grant{}, fmt.Errorf("response has no %s header", headerSetAuthorization)
	}

	return httpexec.Grant{
		AccessToken:  access,
		RefreshToken: resp.Header.Get(headerSetRefreshToken),
		ExpiresIn:    SessionLifetime,
	}, nil
}

var _ httpexec.Strategy = (*Session)(nil)
