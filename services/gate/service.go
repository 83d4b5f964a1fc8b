package gate

import (
	"errors"
	"fmt"
	"time"

	"github.com/clubops/admingate/config"
	"github.com/clubops/admingate/services/logging"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrSecretMismatch = errors.New("gate secret mismatch")
	ErrGrantInvalid   = errors.New("invalid or expired gate grant")
	ErrNotConfigured  = errors.New("gate secret is not configured")
)

// Service implements the first, identity-agnostic stage of the access
// gateway: a shared deployment secret exchanged once for a signed grant
// token the client replays as a cookie.
type Service struct {
	config *config.GateConfig
	logger *logging.Service
}

func NewService(cfg *config.GateConfig, logger *logging.Service) (*Service, error) {
	// An empty key would sign and verify grants with a zero-length HMAC
	// secret, making the gate stage forgeable.
	if cfg.SigningKey == "" {
		return nil, fmt.Errorf("ADMINGATE_GATE_SIGNING_KEY is required")
	}

	return &Service{
		config: cfg,
		logger: logger,
	}, nil
}

// VerifySecret compares the presented secret against the configured
// bcrypt hash. bcrypt's comparison is constant-time over the digest, so
// timing reveals nothing about the stored secret.
func (s *Service) VerifySecret(secret string) error {
	if s.config.SecretHash == "" {
		s.logger.Error("gate secret hash is not configured")
		return ErrNotConfigured
	}

	if err := bcrypt.CompareHashAndPassword([]byte(s.config.SecretHash), []byte(secret)); err != nil {
		return ErrSecretMismatch
	}

	return nil
}

// IssueGrant mints the grant token written back as the gate cookie. The
// grant carries no identity: it only proves the shared secret was
// presented once, scoped by expiry.
func (s *Service) IssueGrant(now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(s.config.GrantTTL)

	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.SigningKey))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign gate grant: %w", err)
	}

	s.logger.Debug("gate grant issued", zap.Time("expires_at", expiresAt))
	return signed, expiresAt, nil
}

// VerifyGrant checks a replayed grant token. Expiry is evaluated against
// this server's clock; nothing client-supplied is trusted.
func (s *Service) VerifyGrant(tokenString string) error {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.config.SigningKey), nil
	})
	if err != nil || !token.Valid {
		return ErrGrantInvalid
	}

	return nil
}
