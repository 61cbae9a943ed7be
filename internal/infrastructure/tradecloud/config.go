// Package tradecloud adapts the Tradecloud One API v2: the session-based
// authentication flow and the single-delivery order endpoint.
package tradecloud

import (
	"errors"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the Tradecloud One API v2 production endpoint.
	DefaultBaseURL = "https://api.accp.tradecloud1.com/v2"

	loginPath         = "/authentication/login"
	refreshPath       = "/authentication/refresh"
	logoutPath        = "/authentication/logout"
	singleDeliveryAPI = "/api-connector/order/single-delivery"
)

// Errors for Tradecloud configuration
var (
	ErrMissingUsername = errors.New("tradecloud: integration username is required")
	ErrMissingPassword = errors.New("tradecloud: integration password is required")
)

// Config holds the Tradecloud connection settings.
type Config struct {
	BaseURL             string
	IntegrationUsername string
	IntegrationPassword string
	Timeout             time.Duration
}

// Validate checks required fields and fills defaults.
func (c *Config) Validate() error {
	if c.IntegrationUsername == "" {
		return ErrMissingUsername
	}
	if c.IntegrationPassword == "" {
		return ErrMissingPassword
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return nil
}

func (c *Config) url(path string) string {
	return strings.TrimRight(c.BaseURL, "/") + path
}

// SingleDeliveryOrderURL is the endpoint accepting canonical orders.
func (c *Config) SingleDeliveryOrderURL() string {
	return c.url(singleDeliveryAPI)
}
