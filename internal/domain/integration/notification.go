package integration

import (
	"encoding/json"
	"fmt"
	"time"
)

// WebhookKind distinguishes the two payload shapes the ERP posts to the
// notification URL.
type WebhookKind int

const (
	// WebhookHandshake is the validation request sent when a subscription is created.
	WebhookHandshake WebhookKind = iota + 1
	// WebhookNotifications is a batch of change notifications.
	WebhookNotifications
)

// Notification is one change notification for a subscribed resource.
type Notification struct {
	SubscriptionID       string     `json:"subscriptionId"`
	ClientState          string     `json:"clientState"`
	ExpirationDateTime   *time.Time `json:"expirationDateTime,omitempty"`
	Resource             string     `json:"resource"`
	ChangeType           string     `json:"changeType"`
	LastModifiedDateTime *time.Time `json:"lastModifiedDateTime,omitempty"`
}

// ERPWebhook is a decoded ERP webhook payload. Exactly one of the branches
// is meaningful, as selected by Kind.
type ERPWebhook struct {
	Kind WebhookKind

	// Handshake
	ClientState string

	// Notifications
	Notifications []Notification
}

// DecodeERPWebhook decodes body. A top-level "clientState" key, even when
// null, marks a handshake.
func DecodeERPWebhook(body []byte) (ERPWebhook, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return ERPWebhook{}, fmt.Errorf("%w: %v", ErrMalformedWebhook, err)
	}

	if raw, ok := fields["clientState"]; ok {
		var state *string
		if err := json.Unmarshal(raw, &state); err != nil {
			return ERPWebhook{}, fmt.Errorf("%w: clientState: %v", ErrMalformedWebhook, err)
		}
		hook := ERPWebhook{Kind: WebhookHandshake}
		if state != nil {
			hook.ClientState = *state
		}
		return hook, nil
	}

	var envelope struct {
		Value []Notification `json:"value"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return ERPWebhook{}, fmt.Errorf("%w: %v", ErrMalformedWebhook, err)
	}
	return ERPWebhook{Kind: WebhookNotifications, Notifications: envelope.Value}, nil
}
