package email

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/mail"
	"strings"

	"github.com/Togather-Foundation/eventhub/internal/config"
	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
)

// Template names.
const (
	TemplateRegistrationConfirmed = "registration_confirmed.html"
	TemplateEventCreated          = "event_created.html"
)

// ErrDisabled is returned by Send when email delivery is switched off.
var ErrDisabled = errors.New("email delivery disabled")

//go:embed templates/*.html
var templateFS embed.FS

// Service renders the notification templates and delivers them through Resend.
type Service struct {
	config       config.EmailConfig
	templates    *template.Template
	resendClient *resend.Client
	logger       zerolog.Logger
}

// EventSummary is the event block shown in every notification.
type EventSummary struct {
	Title    string
	Date     string
	Time     string
	Location string
}

// Content holds the already localized strings of one notification.
type Content struct {
	Lang          string
	Heading       string
	Greeting      string
	Body          string
	Closing       string
	DateLabel     string
	LocationLabel string
	Event         EventSummary
	Year          int
}

func NewService(cfg config.EmailConfig, logger zerolog.Logger) (*Service, error) {
	if cfg.Enabled {
		if err := validateEmailAddress(cfg.From); err != nil {
			return nil, fmt.Errorf("invalid sender email in config: %w", err)
		}
	}

	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	svc := &Service{
		config:    cfg,
		templates: templates,
		logger:    logger.With().Str("component", "email").Logger(),
	}
	if cfg.Enabled {
		svc.resendClient = resend.NewClient(cfg.ResendAPIKey)
	}
	return svc, nil
}

func (s *Service) Enabled() bool {
	return s.config.Enabled
}

// Send renders templateName with content and mails it to the recipient.
func (s *Service) Send(ctx context.Context, to, subject, templateName string, content Content) error {
	if err := validateEmailAddress(to); err != nil {
		return fmt.Errorf("invalid recipient email: %w", err)
	}

	if !s.config.Enabled {
		s.logger.Debug().Str("to", to).Str("subject", subject).Msg("email service disabled, skipping")
		return ErrDisabled
	}

	htmlBody, err := s.Render(templateName, content)
	if err != nil {
		return err
	}
	return s.sendViaResend(ctx, outgoing{to: to, subject: subject, template: templateName, html: htmlBody})
}

// Render executes the named template.
func (s *Service) Render(name string, content Content) (string, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, content); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return buf.String(), nil
}

// validateEmailAddress rejects malformed addresses and header injection.
func validateEmailAddress(email string) error {
	if strings.ContainsAny(email, "\r\n") {
		return fmt.Errorf("invalid email address: contains newline characters")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("invalid email format: %w", err)
	}
	return nil
}
