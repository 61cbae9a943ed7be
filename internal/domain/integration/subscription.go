package integration

import "time"

// Subscription is an ERP change-notification registration.
// It is unique per (NotificationURL, Resource).
type Subscription struct {
	ETag                 string    `json:"@odata.etag,omitempty"`
	SubscriptionID       string    `json:"subscriptionId,omitempty"`
	NotificationURL      string    `json:"notificationUrl"`
	Resource             string    `json:"resource"`
	Timestamp            int64     `json:"timestamp,omitempty"`
	UserID               string    `json:"userId,omitempty"`
	LastModifiedDateTime time.Time `json:"lastModifiedDateTime,omitzero"`
	ClientState          string    `json:"clientState,omitempty"`
	ExpirationDateTime   time.Time `json:"expirationDateTime,omitzero"`
	SystemCreatedAt      time.Time `json:"systemCreatedAt,omitzero"`
	SystemCreatedBy      string    `json:"systemCreatedBy,omitempty"`
	SystemModifiedAt     time.Time `json:"systemModifiedAt,omitzero"`
	SystemModifiedBy     string    `json:"systemModifiedBy,omitempty"`
}

// Matches reports whether the subscription targets notificationURL for resource.
func (s Subscription) Matches(notificationURL, resource string) bool {
	return s.NotificationURL == notificationURL && s.Resource == resource
}

// SubscriptionRequest is the body used to register a new subscription.
type SubscriptionRequest struct {
	NotificationURL string `json:"notificationUrl"`
	Resource        string `json:"resource"`
	ClientState     string `json:"clientState"`
}

// Subscriptions is the OData collection envelope for subscriptions.
type Subscriptions struct {
	Value []Subscription `json:"value"`
}

// Find returns the first subscription matching notificationURL and resource.
func (ss Subscriptions) Find(notificationURL, resource string) (Subscription, bool) {
	for _, s := range ss.Value {
		if s.Matches(notificationURL, resource) {
			return s, true
		}
	}
	return Subscription{}, false
}
