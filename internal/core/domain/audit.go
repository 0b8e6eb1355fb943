package domain

import "time"

// AuthEventType names an entry of the authentication audit trail.
type AuthEventType string

const (
	EventSignup             AuthEventType = "signup"
	EventLoginSucceeded     AuthEventType = "login_succeeded"
	EventLoginFailed        AuthEventType = "login_failed"
	EventLoginThrottled     AuthEventType = "login_throttled"
	EventPasswordChanged    AuthEventType = "password_changed"
	EventProfileUpdated     AuthEventType = "profile_updated"
	EventAccountDeactivated AuthEventType = "account_deactivated"
	EventAccountActivated   AuthEventType = "account_activated"
)

// AuthEvent records a security-relevant account action. It never carries
// secrets or hashes.
type AuthEvent struct {
	Type       AuthEventType
	AccountID  string // empty when the identifier matched no account
	Identifier string // login identifier as submitted
	ActorID    string // who performed the action when not the account itself
	At         time.Time
}

// ShardKey is the value events are partitioned on to keep per-account order.
func (e AuthEvent) ShardKey() string {
	if e.AccountID != "" {
		return e.AccountID
	}
	return NormalizeIdentity(e.Identifier)
}
