package sessions

import (
	"time"
)

// SessionRecord is the durable proof that a subject completed every stage
// of the access gateway. Records are revoked by stamping RevokedAt, never
// deleted, so the audit trail survives sign-out.
type SessionRecord struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	Subject   string     `json:"subject" gorm:"index;size:255;not null"`
	Token     string     `json:"-" gorm:"uniqueIndex;size:128;not null"`
	IPAddress string     `json:"ip_address" gorm:"size:45"`
	UserAgent string     `json:"user_agent" gorm:"size:500"`
	IssuedAt  time.Time  `json:"issued_at"`
	ExpiresAt time.Time  `json:"expires_at" gorm:"index;not null"`
	LastUsed  time.Time  `json:"last_used"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

func (SessionRecord) TableName() string {
	return "sessions"
}

// SessionInfo is the console-facing view of an active session, with the
// raw user agent resolved to a readable label.
type SessionInfo struct {
	ID        uint      `json:"id"`
	Device    string    `json:"device"`
	IPAddress string    `json:"ip_address"`
	IssuedAt  time.Time `json:"issued_at"`
	LastUsed  time.Time `json:"last_used"`
	ExpiresAt time.Time `json:"expires_at"`
}
