package mail

import (
	"bytes"
	"fmt"
	htmlTemplate "html/template"
	"path/filepath"
	texttemplate "text/template"
	"time"

	"github.com/clubops/admingate/config"
	"github.com/clubops/admingate/services/logging"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

// Service delivers transactional mail for the access gateway. Templates
// are optional: when no directory is configured, built-in plain-text
// bodies are used so the verification flow works out of the box.
type Service struct {
	config        *config.MailConfig
	client        *mail.Client
	htmlTemplates *htmlTemplate.Template
	textTemplates *texttemplate.Template
	logger        *logging.Service
}

var builtinBodies = map[string]string{
	"verification_code": "Your admin console verification code is {{.Code}}. It expires in {{.ExpiresIn}} seconds.",
}

func NewService(cfg *config.MailConfig, logger *logging.Service) (*Service, error) {
	if cfg.FromAddress == "" {
		return nil, fmt.Errorf("ADMINGATE_MAIL_FROM_ADDRESS is required")
	}

	clientOpts := []mail.Option{
		mail.WithPort(cfg.Port),
	}

	switch cfg.Encryption {
	case "tls", "starttls":
		clientOpts = append(clientOpts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	case "ssl":
		clientOpts = append(clientOpts, mail.WithSSL())
	case "none":
		clientOpts = append(clientOpts, mail.WithTLSPortPolicy(mail.NoTLS))
	default:
		clientOpts = append(clientOpts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	}

	if cfg.Username != "" {
		clientOpts = append(clientOpts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username))
	}
	if cfg.Password != "" {
		clientOpts = append(clientOpts, mail.WithPassword(cfg.Password))
	}

	client, err := mail.NewClient(cfg.Host, clientOpts...)
	if err != nil {
		logger.Error("failed to create mail client", zap.Error(err), zap.String("host", cfg.Host))
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	service := &Service{
		config: cfg,
		client: client,
		logger: logger,
	}

	if err := service.loadTemplates(); err != nil {
		return nil, err
	}

	logger.Info("mail service initialized",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("from_address", cfg.FromAddress))
	return service, nil
}

func (s *Service) loadTemplates() error {
	if s.config.TemplatesDir == "" {
		s.logger.Debug("no mail template directory configured, using built-in bodies")
		return nil
	}

	htmlPattern := filepath.Join(s.config.TemplatesDir, "*.html")
	textPattern := filepath.Join(s.config.TemplatesDir, "*.txt")

	var err error
	s.htmlTemplates, err = htmlTemplate.ParseGlob(htmlPattern)
	if err != nil && err.Error() != "template: pattern matches no files: "+htmlPattern {
		return fmt.Errorf("failed to parse HTML templates: %w", err)
	}

	s.textTemplates, err = texttemplate.ParseGlob(textPattern)
	if err != nil && err.Error() != "template: pattern matches no files: "+textPattern {
		return fmt.Errorf("failed to parse text templates: %w", err)
	}

	return nil
}

func (s *Service) SendTemplate(templateName string, to []string, subject string, data map[string]any) error {
	message := mail.NewMsg()

	fromAddr := s.config.FromAddress
	if s.config.FromName != "" {
		fromAddr = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromAddress)
	}
	if err := message.From(fromAddr); err != nil {
		return fmt.Errorf("failed to set FROM address: %w", err)
	}
	if err := message.To(to...); err != nil {
		return fmt.Errorf("failed to set TO addresses: %w", err)
	}
	message.Subject(subject)

	if err := s.renderBody(templateName, data, message); err != nil {
		return err
	}

	start := time.Now()
	if err := s.client.DialAndSend(message); err != nil {
		s.logger.Error("failed to send email",
			zap.Error(err),
			zap.String("template", templateName),
			zap.Duration("attempt_duration", time.Since(start)))
		return err
	}

	s.logger.Info("email sent",
		zap.String("template", templateName),
		zap.Duration("send_duration", time.Since(start)))
	return nil
}

func (s *Service) renderBody(templateName string, data map[string]any, message *mail.Msg) error {
	var rendered bool

	if s.htmlTemplates != nil {
		if tpl := s.htmlTemplates.Lookup(templateName + ".html"); tpl != nil {
			var buf bytes.Buffer
			if err := tpl.Execute(&buf, data); err != nil {
				return fmt.Errorf("failed to execute HTML template: %w", err)
			}
			message.SetBodyString(mail.TypeTextHTML, buf.String())
			rendered = true
		}
	}

	if s.textTemplates != nil {
		if tpl := s.textTemplates.Lookup(templateName + ".txt"); tpl != nil {
			var buf bytes.Buffer
			if err := tpl.Execute(&buf, data); err != nil {
				return fmt.Errorf("failed to execute text template: %w", err)
			}
			if rendered {
				message.AddAlternativeString(mail.TypeTextPlain, buf.String())
			} else {
				message.SetBodyString(mail.TypeTextPlain, buf.String())
			}
			rendered = true
		}
	}

	if rendered {
		return nil
	}

	builtin, ok := builtinBodies[templateName]
	if !ok {
		return fmt.Errorf("no template found for %q", templateName)
	}

	tpl, err := texttemplate.New(templateName).Parse(builtin)
	if err != nil {
		return fmt.Errorf("failed to parse built-in template: %w", err)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("failed to execute built-in template: %w", err)
	}
	message.SetBodyString(mail.TypeTextPlain, buf.String())
	return nil
}
