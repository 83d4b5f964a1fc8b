package otp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/clubops/admingate/config"
	"github.com/clubops/admingate/services/audit"
	"github.com/clubops/admingate/services/logging"
	"github.com/clubops/admingate/services/sessions"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrUnauthorized    = errors.New("identity is not permitted to receive codes")
	ErrRateLimited     = errors.New("a code was issued too recently")
	ErrNotFound        = errors.New("no live code for this identity")
	ErrExpired         = errors.New("code has expired")
	ErrTooManyAttempts = errors.New("verification attempts exhausted")
	ErrInvalidCode     = errors.New("code does not match")
	ErrInternal        = errors.New("failed to record code")
	ErrDelivery        = errors.New("failed to deliver code")
)

// RateLimitedError carries the remaining cooldown so callers can tell
// the user how long to wait. It unwraps to ErrRateLimited.
type RateLimitedError struct {
	Wait time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("a code was issued too recently, retry in %s", e.Wait.Round(time.Second))
}

func (e *RateLimitedError) Unwrap() error {
	return ErrRateLimited
}

// AllowList answers whether an identity may receive codes at all.
type AllowList interface {
	IsPrivileged(subject string) bool
}

// Mailer delivers the plaintext code out-of-band.
type Mailer interface {
	SendTemplate(templateName string, to []string, subject string, data map[string]any) error
}

// Client identifies the network origin of a request, for session records
// and the audit log.
type Client struct {
	IP        string
	UserAgent string
}

// IssueResult reports the TTL of the new code and the cooldown before
// another may be requested.
type IssueResult struct {
	ExpiresIn time.Duration
	Cooldown  time.Duration
}

type Service struct {
	config    *config.OTPConfig
	db        *gorm.DB
	allowList AllowList
	mailer    Mailer
	sessions  *sessions.Service
	auditor   *audit.Recorder
	logger    *logging.Service
}

func NewService(cfg *config.OTPConfig, db *gorm.DB, allowList AllowList, mailer Mailer, sessionSvc *sessions.Service, auditor *audit.Recorder, logger *logging.Service) *Service {
	return &Service{
		config:    cfg,
		db:        db,
		allowList: allowList,
		mailer:    mailer,
		sessions:  sessionSvc,
		auditor:   auditor,
		logger:    logger,
	}
}

// Issue generates, persists, and emails a fresh code for subject.
//
// The resend cooldown is enforced against the durable store, not the
// in-process limiter, so it holds across server instances. The code is
// persisted before the email is sent: a code the store never saw must
// never reach an inbox.
func (s *Service) Issue(subject string, client Client) (*IssueResult, error) {
	subject = strings.ToLower(strings.TrimSpace(subject))

	if !s.allowList.IsPrivileged(subject) {
		s.record(audit.ActionCodeIssued, audit.OutcomeUnauthorized, subject, client, "")
		return nil, ErrUnauthorized
	}

	var last OneTimeCode
	err := s.db.Where("subject = ?", subject).Order("issued_at DESC").First(&last).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.record(audit.ActionCodeIssued, audit.OutcomeInternalError, subject, client, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if err == nil {
		if wait := s.config.Cooldown - time.Since(last.IssuedAt); wait > 0 {
			s.record(audit.ActionCodeIssued, audit.OutcomeRateLimited, subject, client, "")
			return nil, &RateLimitedError{Wait: wait}
		}
	}

	code, err := s.generateCode()
	if err != nil {
		s.record(audit.ActionCodeIssued, audit.OutcomeInternalError, subject, client, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	now := time.Now()
	row := &OneTimeCode{
		Subject:    subject,
		CodeDigest: s.digest(subject, code),
		IssuedAt:   now,
		ExpiresAt:  now.Add(s.config.TTL),
	}

	if err := s.db.Create(row).Error; err != nil {
		s.logger.Error("failed to persist one-time code", zap.Error(err), zap.String("subject", subject))
		s.record(audit.ActionCodeIssued, audit.OutcomeInternalError, subject, client, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	data := map[string]any{
		"Code":      code,
		"ExpiresIn": int(s.config.TTL.Seconds()),
	}
	if err := s.mailer.SendTemplate("verification_code", []string{subject}, "Your admin console verification code", data); err != nil {
		s.logger.Error("failed to deliver one-time code", zap.Error(err), zap.String("subject", subject))
		s.record(audit.ActionCodeIssued, audit.OutcomeDeliveryError, subject, client, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrDelivery, err)
	}

	s.logger.Info("one-time code issued",
		zap.String("subject", subject),
		zap.Time("expires_at", row.ExpiresAt))
	s.record(audit.ActionCodeIssued, audit.OutcomeSuccess, subject, client, "")

	return &IssueResult{
		ExpiresIn: s.config.TTL,
		Cooldown:  s.config.Cooldown,
	}, nil
}

// Verify consumes a submitted code and, on success, mints a session.
//
// The attempt ceiling is checked before the digest comparison, so a
// subject over the limit never gets another comparison. Failed attempts
// are counted with an atomic SQL increment and consumption is a
// conditional write on `consumed_at IS NULL`: concurrent guesses can
// neither share an attempt slot nor both consume the same code.
func (s *Service) Verify(subject, submitted string, client Client) (*sessions.SessionRecord, error) {
	subject = strings.ToLower(strings.TrimSpace(subject))

	if !s.allowList.IsPrivileged(subject) {
		s.record(audit.ActionCodeVerify, audit.OutcomeUnauthorized, subject, client, "")
		return nil, ErrUnauthorized
	}

	var code OneTimeCode
	err := s.db.Where("subject = ? AND consumed_at IS NULL", subject).
		Order("issued_at DESC").
		First(&code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.record(audit.ActionCodeVerify, audit.OutcomeNotFound, subject, client, "")
			return nil, ErrNotFound
		}
		s.record(audit.ActionCodeVerify, audit.OutcomeInternalError, subject, client, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	now := time.Now()
	if now.After(code.ExpiresAt) {
		s.record(audit.ActionCodeVerify, audit.OutcomeExpired, subject, client, "")
		return nil, ErrExpired
	}

	if code.Attempts >= s.config.MaxAttempts {
		s.record(audit.ActionCodeVerify, audit.OutcomeTooManyAttempts, subject, client, "")
		return nil, ErrTooManyAttempts
	}

	if !hmac.Equal(s.digest(subject, submitted), code.CodeDigest) {
		incErr := s.db.Model(&OneTimeCode{}).
			Where("id = ?", code.ID).
			UpdateColumn("attempts", gorm.Expr("attempts + ?", 1)).Error
		if incErr != nil {
			// An attempt that cannot be counted must not pass as a plain
			// mismatch, or the ceiling stops holding under store faults.
			s.logger.Error("failed to count verification attempt", zap.Error(incErr), zap.String("subject", subject))
			s.record(audit.ActionCodeVerify, audit.OutcomeInternalError, subject, client, incErr.Error())
			return nil, fmt.Errorf("%w: %v", ErrInternal, incErr)
		}
		s.record(audit.ActionCodeVerify, audit.OutcomeInvalidCode, subject, client, "")
		return nil, ErrInvalidCode
	}

	// Consumption is the single irreversible transition. The conditional
	// predicate makes exactly one racing winner; losers see NotFound.
	result := s.db.Model(&OneTimeCode{}).
		Where("id = ? AND consumed_at IS NULL", code.ID).
		Update("consumed_at", now)
	if result.Error != nil {
		s.record(audit.ActionCodeVerify, audit.OutcomeInternalError, subject, client, result.Error.Error())
		return nil, fmt.Errorf("%w: %v", ErrInternal, result.Error)
	}
	if result.RowsAffected == 0 {
		s.record(audit.ActionCodeVerify, audit.OutcomeNotFound, subject, client, "")
		return nil, ErrNotFound
	}

	session, err := s.sessions.Issue(subject, client.IP, client.UserAgent)
	if err != nil {
		s.record(audit.ActionCodeVerify, audit.OutcomeInternalError, subject, client, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	s.logger.Info("one-time code verified", zap.String("subject", subject))
	s.record(audit.ActionCodeVerify, audit.OutcomeSuccess, subject, client, "")
	s.record(audit.ActionSessionIssue, audit.OutcomeSuccess, subject, client, "")

	return session, nil
}

// digest keys the code under the server pepper and binds it to the
// subject, so a code issued for one identity can never verify another.
func (s *Service) digest(subject, code string) []byte {
	mac := hmac.New(sha256.New, []byte(s.config.Pepper))
	mac.Write([]byte(subject))
	mac.Write([]byte{0})
	mac.Write([]byte(code))
	return mac.Sum(nil)
}

func (s *Service) generateCode() (string, error) {
	length := s.config.CodeLength
	if length <= 0 {
		length = 6
	}

	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("failed to generate code digit: %w", err)
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}

func (s *Service) record(action audit.Action, outcome audit.Outcome, subject string, client Client, detail string) {
	s.auditor.Record(audit.Event{
		Subject:   subject,
		Action:    action,
		Outcome:   outcome,
		IPAddress: client.IP,
		Detail:    detail,
	})
}
