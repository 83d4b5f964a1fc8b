package otp

import (
	"time"
)

// OneTimeCode stores the digest of an emailed verification code. The
// plaintext is never persisted. Issuing a new code does not invalidate
// older unconsumed rows; verification only ever evaluates the most
// recently issued unconsumed code (most-recent-wins, a policy decision).
type OneTimeCode struct {
	ID         uint       `json:"id" gorm:"primaryKey"`
	Subject    string     `json:"subject" gorm:"index;size:255;not null"`
	CodeDigest []byte     `json:"-" gorm:"not null"`
	IssuedAt   time.Time  `json:"issued_at" gorm:"index;not null"`
	ExpiresAt  time.Time  `json:"expires_at" gorm:"not null"`
	Attempts   int        `json:"attempts" gorm:"default:0"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
}

func (OneTimeCode) TableName() string {
	return "one_time_codes"
}
