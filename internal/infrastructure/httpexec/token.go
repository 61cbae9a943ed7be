package httpexec

import (
	"context"
	"time"
)

// Token is the credential held by an Executor. It is replaced, never mutated.
type Token struct {
	Value        string
	RefreshToken string
	ExpiresAt    time.Time
}

// IsZero reports whether no credential is held.
func (t Token) IsZero() bool {
	return t.Value == ""
}

// Valid reports whether the token can be used at now.
func (t Token) Valid(now time.Time) bool {
	return t.Value != "" && now.Before(t.ExpiresAt)
}

// Grant is the outcome of a successful acquisition flow.
type Grant struct {
	AccessToken  string
	RefreshToken string
	// ExpiresIn is the effective lifetime, already reduced by any safety margin.
	ExpiresIn time.Duration
}

// Strategy implements the acquisition flows of one remote system.
// Strategies talk to their token endpoints directly and never through
// an Executor.
type Strategy interface {
	// System names the remote system, used in logs and metrics.
	System() string

	// Acquire runs the pre-flight flow. current is the held token, which is
	// either zero or expired.
	Acquire(ctx context.Context, current Token) (Grant, error)

	// Reacquire runs the flow forced by a 401. rejected is the token the
	// failed request carried.
	Reacquire(ctx context.Context, rejected Token) (Grant, error)

	// RequireToken reports whether a request must be abandoned when the
	// pre-flight flow fails. When false the request is sent as is and a 401
	// drives the single re-acquisition.
	RequireToken() bool
}

// Observer is notified of every acquisition attempt.
type Observer interface {
	TokenAcquisition(ctx context.Context, system string, err error)
}
