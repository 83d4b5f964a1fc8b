package mail

import (
	"strings"
	"testing"

	"github.com/clubops/admingate/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

func TestNewService_RequiresFromAddress(t *testing.T) {
	_, err := NewService(&config.MailConfig{Host: "smtp.example.com", Port: 587}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FROM_ADDRESS")
}

func TestNewService(t *testing.T) {
	svc, err := NewService(&config.MailConfig{
		Host:        "smtp.example.com",
		Port:        587,
		Encryption:  "starttls",
		FromAddress: "console@example.com",
		FromName:    "Admin Console",
	}, nil)
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestRenderBody_BuiltinVerificationCode(t *testing.T) {
	svc := &Service{config: &config.MailConfig{FromAddress: "console@example.com"}}

	msg := mail.NewMsg()
	require.NoError(t, msg.From("console@example.com"))
	require.NoError(t, msg.To("admin@x.com"))

	err := svc.renderBody("verification_code", map[string]any{
		"Code":      "123456",
		"ExpiresIn": 60,
	}, msg)
	require.NoError(t, err)

	var body strings.Builder
	_, err = msg.WriteTo(&body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), "123456")
	assert.Contains(t, body.String(), "60 seconds")
}

func TestRenderBody_UnknownTemplate(t *testing.T) {
	svc := &Service{config: &config.MailConfig{FromAddress: "console@example.com"}}

	err := svc.renderBody("no_such_template", nil, mail.NewMsg())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no template found")
}
