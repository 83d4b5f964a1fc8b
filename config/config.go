package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig    `envPrefix:"ADMINGATE_SERVER_"`
	Log       LogConfig       `envPrefix:"ADMINGATE_LOG_"`
	Database  DatabaseConfig  `envPrefix:"ADMINGATE_DB_"`
	Mail      MailConfig      `envPrefix:"ADMINGATE_MAIL_"`
	Gate      GateConfig      `envPrefix:"ADMINGATE_GATE_"`
	Identity  IdentityConfig  `envPrefix:"ADMINGATE_IDENTITY_"`
	OTP       OTPConfig       `envPrefix:"ADMINGATE_OTP_"`
	Session   SessionConfig   `envPrefix:"ADMINGATE_SESSION_"`
	RateLimit RateLimitConfig `envPrefix:"ADMINGATE_RATELIMIT_"`
}

type ServerConfig struct {
	Port string `env:"PORT" envDefault:"8080"`
	Host string `env:"HOST" envDefault:"localhost"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
	Output string `env:"OUTPUT" envDefault:"stdout"`
}

type DatabaseConfig struct {
	Driver      string `env:"DRIVER" envDefault:"sqlite"`
	DSN         string `env:"DSN" envDefault:"admingate.db"`
	AutoMigrate bool   `env:"AUTO_MIGRATE" envDefault:"true"`
}

type MailConfig struct {
	Host         string `env:"HOST" envDefault:"localhost"`
	Port         int    `env:"PORT" envDefault:"587"`
	Username     string `env:"USERNAME"`
	Password     string `env:"PASSWORD"`
	Encryption   string `env:"ENCRYPTION" envDefault:"starttls"`
	FromAddress  string `env:"FROM_ADDRESS"`
	FromName     string `env:"FROM_NAME" envDefault:"Admin Console"`
	TemplatesDir string `env:"TEMPLATES_DIR"`
}

// GateConfig drives the first, identity-agnostic stage. SecretHash is a
// bcrypt hash of the shared deployment secret; the plaintext is never
// stored server-side. SigningKey signs the grant token handed to the
// client after a successful secret presentation.
type GateConfig struct {
	SecretHash   string        `env:"SECRET_HASH"`
	SigningKey   string        `env:"SIGNING_KEY"`
	GrantTTL     time.Duration `env:"GRANT_TTL" envDefault:"24h"`
	FailureDelay time.Duration `env:"FAILURE_DELAY" envDefault:"1s"`
	CookieName   string        `env:"COOKIE_NAME" envDefault:"gate-access"`
}

type IdentityConfig struct {
	SigningKey string   `env:"SIGNING_KEY"`
	CookieName string   `env:"COOKIE_NAME" envDefault:"admin-identity"`
	AllowList  []string `env:"ALLOW_LIST" envSeparator:","`
}

type OTPConfig struct {
	// Pepper keys the code digest so a leaked one_time_codes table cannot
	// be brute-forced offline across the 6-digit space.
	Pepper      string        `env:"PEPPER"`
	CodeLength  int           `env:"CODE_LENGTH" envDefault:"6"`
	TTL         time.Duration `env:"TTL" envDefault:"60s"`
	Cooldown    time.Duration `env:"COOLDOWN" envDefault:"30s"`
	MaxAttempts int           `env:"MAX_ATTEMPTS" envDefault:"5"`
}

type SessionConfig struct {
	TTL              time.Duration `env:"TTL" envDefault:"8h"`
	TokenLength      int           `env:"TOKEN_LENGTH" envDefault:"32"`
	CookieName       string        `env:"COOKIE_NAME" envDefault:"admin-session"`
	MarkerCookieName string        `env:"MARKER_COOKIE_NAME" envDefault:"admin-verified"`
}

type RateLimitConfig struct {
	Enabled       bool          `env:"ENABLED" envDefault:"true"`
	GateRate      int           `env:"GATE_RATE" envDefault:"10"`
	IssueRate     int           `env:"ISSUE_RATE" envDefault:"5"`
	VerifyRate    int           `env:"VERIFY_RATE" envDefault:"15"`
	Period        time.Duration `env:"PERIOD" envDefault:"1m"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1m"`
}

func LoadConfig(cfg any) error {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	return env.Parse(cfg)
}
