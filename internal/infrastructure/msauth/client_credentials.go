// Package msauth implements the OAuth2 client-credential flow against the
// Microsoft identity platform, used to authorize Business Central calls.
package msauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tradecloud/bc-connector/internal/infrastructure/httpexec"
)

// SystemName identifies the identity platform in logs and metrics.
const SystemName = "ms"

// ExpiryMargin is subtracted from the declared token lifetime.
const ExpiryMargin = 300 * time.Second

// DefaultBaseURL is the Microsoft identity platform login endpoint.
const DefaultBaseURL = "https://login.microsoftonline.com"

var (
	ErrMissingTenantID     = errors.New("msauth: tenant id is required")
	ErrMissingClientID     = errors.New("msauth: client id is required")
	ErrMissingClientSecret = errors.New("msauth: client secret is required")
	ErrTokenRequestFailed  = errors.New("msauth: token request failed")
	ErrInvalidTokenPayload = errors.New("msauth: invalid token response")
)

// Config holds the client-credential settings.
type Config struct {
	BaseURL      string
	TenantID     string
	ClientID     string
	ClientSecret string
	Scope        string
	Timeout      time.Duration
}

// Validate checks required fields and fills defaults.
func (c *Config) Validate() error {
	if c.TenantID == "" {
		return ErrMissingTenantID
	}
	if c.ClientID == "" {
		return ErrMissingClientID
	}
	if c.ClientSecret == "" {
		return ErrMissingClientSecret
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Scope == "" {
		c.Scope = "https://api.businesscentral.dynamics.com/.default"
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return nil
}

// TokenURL is the v2.0 token endpoint of the configured tenant.
func (c *Config) TokenURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + url.PathEscape(c.TenantID) + "/oauth2/v2.0/token"
}

// TokenResponse is the token endpoint payload.
type TokenResponse struct {
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExtExpiresIn int64  `json:"ext_expires_in"`
	AccessToken  string `json:"access_token"`
}

// ClientCredentials is an httpexec.Strategy that exchanges the client id and
// secret for a bearer token. Pre-flight failures do not block the request.
type ClientCredentials struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClientCredentials creates the strategy. cfg must be valid.
func NewClientCredentials(cfg Config, logger *zap.Logger) (*ClientCredentials, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClientCredentials{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}, nil
}

// System implements httpexec.Strategy.
func (c *ClientCredentials) System() string { return SystemName }

// RequireToken implements httpexec.Strategy.
func (c *ClientCredentials) RequireToken() bool { return false }

// Acquire implements httpexec.Strategy.
func (c *ClientCredentials) Acquire(ctx context.Context, _ httpexec.Token) (httpexec.Grant, error) {
	return c.exchange(ctx)
}

// Reacquire implements httpexec.Strategy.
func (c *ClientCredentials) Reacquire(ctx context.Context, _ httpexec.Token) (httpexec.Grant, error) {
	return c.exchange(ctx)
}

func (c *ClientCredentials) exchange(ctx context.Context) (httpexec.Grant, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"scope":         {c.cfg.Scope},
	}

	tokenURL := c.cfg.TokenURL()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return httpexec.Grant{}, fmt.Errorf("%w: %v", ErrTokenRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return httpexec.Grant{}, fmt.Errorf("%w: %v", ErrTokenRequestFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return httpexec.Grant{}, fmt.Errorf("%w: read body: %v", ErrTokenRequestFailed, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Access token request failed",
			zap.Int("status_code", resp.StatusCode),
			zap.String("url", tokenURL),
			zap.ByteString("response", body),
		)
		return httpexec.Grant{}, fmt.Errorf("%w: status %d", ErrTokenRequestFailed, resp.StatusCode)
	}

	var tr TokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return httpexec.Grant{}, fmt.Errorf("%w: %v", ErrInvalidTokenPayload, err)
	}
	if tr.AccessToken == "" {
		return httpexec.Grant{}, fmt.Errorf("%w: empty access_token", ErrInvalidTokenPayload)
	}

	lifetime := time.Duration(tr.ExpiresIn)*time.Second - ExpiryMargin
	c.logger.Debug("Access token acquired",
		zap.String("token_type", tr.TokenType),
		zap.Int64("expires_in", tr.ExpiresIn),
	)

	return httpexec.Grant{AccessToken: tr.AccessToken, ExpiresIn: lifetime}, nil
}

var _ httpexec.Strategy = (*ClientCredentials)(nil)
