package integration

import "errors"

var (
	// Remote system errors
	ErrRemoteRequestFailed   = errors.New("integration: remote request failed")
	ErrRemoteInvalidResponse = errors.New("integration: invalid remote response")
	ErrAuthenticationFailed  = errors.New("integration: authentication failed")

	// Order errors
	ErrOrderNotFound       = errors.New("integration: purchase order not found")
	ErrOrderSnapshotFailed = errors.New("integration: purchase order snapshot fetch failed")
	ErrOrderSubmitFailed   = errors.New("integration: order submission failed")
	ErrInvalidOrderEvent   = errors.New("integration: invalid order event")

	// Subscription errors
	ErrSubscriptionFailed = errors.New("integration: subscription request failed")

	// Webhook errors
	ErrInvalidClientState = errors.New("integration: client state mismatch")
	ErrMissingResource    = errors.New("integration: notification resource is empty")
	ErrMalformedWebhook   = errors.New("integration: malformed webhook payload")
)
