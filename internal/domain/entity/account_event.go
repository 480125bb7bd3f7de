package entity

import (
	"time"

	"github.com/google/uuid"
)

// AccountEventType names a state change of a user account.
type AccountEventType string

const (
	AccountEventSignedUp  AccountEventType = "user.signed_up"
	AccountEventLoggedIn  AccountEventType = "user.logged_in"
	AccountEventLoggedOut AccountEventType = "user.logged_out"
)

// AccountEvent is emitted after a successful signup, login or logout.
type AccountEvent struct {
	Type       AccountEventType `json:"type"`
	UserID     uuid.UUID        `json:"user_id"`
	Email      string           `json:"email"`
	OccurredAt time.Time        `json:"occurred_at"`
	RequestID  string           `json:"request_id,omitempty"` // For distributed tracing
}
