// Package businesscentral adapts the Business Central API v2.0, the OData V4
// endpoints and the Tradecloud connector extension API.
package businesscentral

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// DefaultBaseURL is the Business Central SaaS API endpoint.
const DefaultBaseURL = "https://api.businesscentral.dynamics.com/v2.0"

// Errors for Business Central configuration
var (
	ErrMissingTenantID     = errors.New("businesscentral: tenant id is required")
	ErrMissingEnvironment  = errors.New("businesscentral: environment is required")
	ErrMissingCompanyID    = errors.New("businesscentral: company id is required")
	ErrMissingCompanyName  = errors.New("businesscentral: company name is required")
	ErrMissingConnectorURL = errors.New("businesscentral: connector base url is required")
	ErrMissingSharedSecret = errors.New("businesscentral: shared secret is required")
	ErrInvalidConnectorURL = errors.New("businesscentral: invalid connector base url")
)

// Config addresses one Business Central company and the connector's public
// notification endpoint.
type Config struct {
	BaseURL     string
	TenantID    string
	Environment string
	CompanyID   string
	CompanyName string
	// SharedSecret is registered as the subscription clientState and echoed
	// back on every notification.
	SharedSecret string
	// ConnectorBaseURL is the public base URL of this connector.
	ConnectorBaseURL string
}

// Validate checks required fields and fills defaults.
func (c *Config) Validate() error {
	switch {
	case c.TenantID == "":
		return ErrMissingTenantID
	case c.Environment == "":
		return ErrMissingEnvironment
	case c.CompanyID == "":
		return ErrMissingCompanyID
	case c.CompanyName == "":
		return ErrMissingCompanyName
	case c.ConnectorBaseURL == "":
		return ErrMissingConnectorURL
	case c.SharedSecret == "":
		return ErrMissingSharedSecret
	}
	if u, err := url.Parse(c.ConnectorBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidConnectorURL, c.ConnectorBaseURL)
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	return nil
}

// Prefix is {base}/{tenant}/{environment}.
func (c *Config) Prefix() string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + url.PathEscape(c.TenantID) + "/" + url.PathEscape(c.Environment)
}

// SubscriptionURL is the API v2.0 subscriptions collection.
func (c *Config) SubscriptionURL() string {
	return c.Prefix() + "/api/v2.0/subscriptions"
}

// SubscriptionEntryURL addresses a single subscription.
func (c *Config) SubscriptionEntryURL(subscriptionID string) string {
	return c.SubscriptionURL() + "(" + quoteKey(subscriptionID) + ")"
}

// SubscriptionResource is the resource the connector subscribes to.
func (c *Config) SubscriptionResource() string {
	return "api/v2.0/companies(" + url.PathEscape(c.CompanyID) + ")/purchaseOrders"
}

// NotificationURL is where the ERP posts change notifications.
func (c *Config) NotificationURL() string {
	return strings.TrimRight(c.ConnectorBaseURL, "/") + "/bc/purchase-order"
}

// ResourceURL resolves a notification resource path against the prefix.
func (c *Config) ResourceURL(resource string) string {
	return c.Prefix() + "/" + strings.TrimLeft(resource, "/")
}

// ConnectorOrderURL addresses an order in the connector extension API,
// which exposes the reopen and release bound actions.
func (c *Config) ConnectorOrderURL(documentNo string) string {
	return c.Prefix() + "/api/tradecloud/connector/v2.0/companies(" + url.PathEscape(c.CompanyID) + ")/purchaseOrders(" + quoteKey(documentNo) + ")"
}

// ReopenURL is the reopen bound action of documentNo.
func (c *Config) ReopenURL(documentNo string) string {
	return c.ConnectorOrderURL(documentNo) + "/Microsoft.NAV.reopen"
}

// ReleaseURL is the release bound action of documentNo.
func (c *Config) ReleaseURL(documentNo string) string {
	return c.ConnectorOrderURL(documentNo) + "/Microsoft.NAV.release"
}

// ODataBaseURL is the OData V4 root of the configured company.
func (c *Config) ODataBaseURL() string {
	return c.Prefix() + "/ODataV4/company(" + quoteKey(c.CompanyName) + ")"
}

// OrderURL addresses the OData purchase order header.
func (c *Config) OrderURL(documentNo string) string {
	return fmt.Sprintf("%s/purchaseOrders(Document_Type=%s,No=%s)",
		c.ODataBaseURL(), quoteKey("Order"), quoteKey(documentNo))
}

// LinesURL addresses the OData line collection of an order.
func (c *Config) LinesURL(documentNo string) string {
	return c.OrderURL(documentNo) + "/purchaseOrdersPurchLines"
}

// LineURL addresses a single OData order line.
func (c *Config) LineURL(documentNo string, lineNo int) string {
	return fmt.Sprintf("%s/purchaseOrdersPurchLines(Document_Type=%s,Document_No=%s,Line_No=%d)",
		c.ODataBaseURL(), quoteKey("Order"), quoteKey(documentNo), lineNo)
}

// quoteKey renders an OData string key: single quotes doubled, the value
// path-escaped, and the whole wrapped in single quotes.
func quoteKey(v string) string {
	return "'" + url.PathEscape(strings.ReplaceAll(v, "'", "''")) + "'"
}
