package domain

import (
	"context"
	"time"
)

// EventType identifies an outbound notification event.
type EventType string

const (
	EventEmployeeRegistered EventType = "employee_registered"
	EventRequestApproved    EventType = "request_approved"
	EventRequestRejected    EventType = "request_rejected"
	EventAccountLocked      EventType = "account_locked"
)

// Event is a fire-and-forget notification emitted after a successful
// commit. Delivery failures are logged, never propagated: a failed
// notification must not make an otherwise-successful approval report
// failure to the caller.
type Event struct {
	ID             string            `json:"id"`
	Type           EventType         `json:"type"`
	UserID         string            `json:"user_id"`
	OrganizationID string            `json:"organization_id,omitempty"`
	Detail         map[string]string `json:"detail,omitempty"`
	OccurredAt     time.Time         `json:"occurred_at"`
}

// EventPublisher hands events to the notification channel.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}
