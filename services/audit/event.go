package audit

import (
	"time"
)

type Action string

const (
	ActionGateAttempt  Action = "gate_attempt"
	ActionCodeIssued   Action = "code_issued"
	ActionCodeVerify   Action = "code_verify"
	ActionSessionIssue Action = "session_issued"
	ActionSessionWipe  Action = "sessions_revoked"
)

type Outcome string

const (
	OutcomeSuccess         Outcome = "success"
	OutcomeUnauthorized    Outcome = "unauthorized"
	OutcomeRateLimited     Outcome = "rate_limited"
	OutcomeExpired         Outcome = "expired"
	OutcomeTooManyAttempts Outcome = "too_many_attempts"
	OutcomeInvalidCode     Outcome = "invalid_code"
	OutcomeNotFound        Outcome = "not_found"
	OutcomeInternalError   Outcome = "internal_error"
	OutcomeDeliveryError   Outcome = "delivery_error"
)

// Event is one row of the append-only audit log. Rows are never updated
// or deleted.
type Event struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	Subject   string    `json:"subject" gorm:"index;size:255"`
	Action    Action    `json:"action" gorm:"index;size:32;not null"`
	Outcome   Outcome   `json:"outcome" gorm:"size:32;not null"`
	IPAddress string    `json:"ip_address" gorm:"size:45"`
	Detail    string    `json:"detail,omitempty" gorm:"size:500"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

func (Event) TableName() string {
	return "audit_events"
}
