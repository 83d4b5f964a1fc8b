package identity

import (
	"errors"
	"fmt"
	"strings"

	"github.com/clubops/admingate/config"
	"github.com/clubops/admingate/services/logging"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

var (
	ErrTokenInvalid  = errors.New("invalid or expired identity token")
	ErrNotPrivileged = errors.New("identity is not on the privileged allow-list")
)

// Service verifies the identity token minted by the upstream identity
// provider after primary authentication, and enforces the privileged
// allow-list. The provider itself is an external collaborator; this
// service only consumes the token it issues.
type Service struct {
	config    *config.IdentityConfig
	logger    *logging.Service
	allowList map[string]struct{}
}

func NewService(cfg *config.IdentityConfig, logger *logging.Service) (*Service, error) {
	// An empty key would accept identity tokens signed with a zero-length
	// HMAC secret, so any subject could be forged.
	if cfg.SigningKey == "" {
		return nil, fmt.Errorf("ADMINGATE_IDENTITY_SIGNING_KEY is required")
	}

	allow := make(map[string]struct{}, len(cfg.AllowList))
	for _, email := range cfg.AllowList {
		email = strings.ToLower(strings.TrimSpace(email))
		if email != "" {
			allow[email] = struct{}{}
		}
	}

	return &Service{
		config:    cfg,
		logger:    logger,
		allowList: allow,
	}, nil
}

// IsPrivileged reports whether subject is on the operator allow-list.
// Matching is case-insensitive on the email address.
func (s *Service) IsPrivileged(subject string) bool {
	_, ok := s.allowList[strings.ToLower(strings.TrimSpace(subject))]
	return ok
}

// SubjectFromToken extracts and verifies the subject email from an
// upstream identity token. It does NOT apply the allow-list; callers
// decide whether an authenticated-but-unprivileged identity is a soft
// or hard failure.
func (s *Service) SubjectFromToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.config.SigningKey), nil
	})
	if err != nil || !token.Valid {
		return "", ErrTokenInvalid
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", ErrTokenInvalid
	}

	return claims.Subject, nil
}

// RequirePrivileged combines token verification with the allow-list
// check, returning the normalized subject.
func (s *Service) RequirePrivileged(tokenString string) (string, error) {
	subject, err := s.SubjectFromToken(tokenString)
	if err != nil {
		return "", err
	}

	if !s.IsPrivileged(subject) {
		s.logger.Warn("non-privileged identity rejected", zap.String("subject", subject))
		return "", ErrNotPrivileged
	}

	return strings.ToLower(strings.TrimSpace(subject)), nil
}
