package sessions

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/clubops/admingate/config"
	"github.com/clubops/admingate/services/logging"
	"github.com/mileusna/useragent"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrSessionInvalid = errors.New("session token is invalid, expired, or revoked")

// Service is the session authority: it mints opaque tokens after full
// verification and re-checks them on every protected request. Validity
// is never cached beyond a single request.
type Service struct {
	config *config.SessionConfig
	db     *gorm.DB
	logger *logging.Service
}

func NewService(cfg *config.SessionConfig, db *gorm.DB, logger *logging.Service) *Service {
	return &Service{
		config: cfg,
		db:     db,
		logger: logger,
	}
}

// Issue mints a fresh session for subject. The token is high-entropy
// random hex; nothing about it is derivable from the subject.
func (s *Service) Issue(subject, ipAddress, userAgent string) (*SessionRecord, error) {
	token, err := s.generateToken()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	record := &SessionRecord{
		Subject:   strings.ToLower(subject),
		Token:     token,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.config.TTL),
		LastUsed:  now,
	}

	if err := s.db.Create(record).Error; err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	s.logger.Info("session issued",
		zap.String("subject", record.Subject),
		zap.Time("expires_at", record.ExpiresAt))
	return record, nil
}

// Validate resolves a token in a single compound lookup: token match,
// unexpired, and unrevoked are one predicate, so there is no gap between
// an existence check and an expiry check.
func (s *Service) Validate(token string) (*SessionRecord, error) {
	if token == "" {
		return nil, ErrSessionInvalid
	}

	var record SessionRecord
	err := s.db.
		Where("token = ? AND expires_at > ? AND revoked_at IS NULL", token, time.Now()).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, fmt.Errorf("failed to validate session: %w", err)
	}

	return &record, nil
}

// Touch updates LastUsed. Callers fire it from a goroutine off the
// request path; a failed touch is logged and otherwise ignored.
func (s *Service) Touch(id uint) {
	err := s.db.Model(&SessionRecord{}).
		Where("id = ?", id).
		Update("last_used", time.Now()).Error
	if err != nil {
		s.logger.Warn("failed to touch session", zap.Uint("session_id", id), zap.Error(err))
	}
}

// RevokeAll stamps RevokedAt on every live session of subject. Rows are
// kept for audit; the next Validate simply stops matching them.
func (s *Service) RevokeAll(subject string) (int64, error) {
	result := s.db.Model(&SessionRecord{}).
		Where("subject = ? AND revoked_at IS NULL", strings.ToLower(subject)).
		Update("revoked_at", time.Now())
	if result.Error != nil {
		return 0, fmt.Errorf("failed to revoke sessions: %w", result.Error)
	}

	s.logger.Info("sessions revoked",
		zap.String("subject", strings.ToLower(subject)),
		zap.Int64("count", result.RowsAffected))
	return result.RowsAffected, nil
}

// ListActive returns subject's live sessions, most recently used first,
// for the console's active-sessions view.
func (s *Service) ListActive(subject string) ([]SessionInfo, error) {
	var records []SessionRecord
	err := s.db.
		Where("subject = ? AND expires_at > ? AND revoked_at IS NULL", strings.ToLower(subject), time.Now()).
		Order("last_used DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	infos := make([]SessionInfo, 0, len(records))
	for _, r := range records {
		infos = append(infos, SessionInfo{
			ID:        r.ID,
			Device:    deviceLabel(r.UserAgent),
			IPAddress: r.IPAddress,
			IssuedAt:  r.IssuedAt,
			LastUsed:  r.LastUsed,
			ExpiresAt: r.ExpiresAt,
		})
	}

	return infos, nil
}

func deviceLabel(rawUA string) string {
	if rawUA == "" {
		return "Unknown device"
	}

	ua := useragent.Parse(rawUA)
	switch {
	case ua.Name != "" && ua.OS != "":
		return ua.Name + " on " + ua.OS
	case ua.Name != "":
		return ua.Name
	default:
		return "Unknown device"
	}
}

func (s *Service) generateToken() (string, error) {
	length := s.config.TokenLength
	if length <= 0 {
		length = 32
	}

	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
