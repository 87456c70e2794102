package email

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/resend/resend-go/v2"
)

type dispatchKey struct{}

// WithDispatchID tags outgoing mail in ctx with the notification dispatch
// that produced it.
func WithDispatchID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, dispatchKey{}, id)
}

// DispatchIDFrom returns the dispatch id set by WithDispatchID, or "".
func DispatchIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(dispatchKey{}).(string)
	return id
}

// outgoing is one rendered notification ready for delivery.
type outgoing struct {
	to       string
	subject  string
	template string
	html     string
}

// kind is the notification name derived from the template, e.g.
// "registration_confirmed".
func (m outgoing) kind() string {
	return strings.TrimSuffix(m.template, ".html")
}

// sendViaResend delivers msg. Resend tags carry the notification kind and the
// dispatch id so deliveries can be matched to server logs. Rate limit
// responses are reported, not retried.
func (s *Service) sendViaResend(ctx context.Context, msg outgoing) error {
	if s.resendClient == nil {
		return fmt.Errorf("resend client not initialized")
	}

	params := &resend.SendEmailRequest{
		From:    s.config.From,
		To:      []string{msg.to},
		Subject: msg.subject,
		Html:    msg.html,
		Tags:    []resend.Tag{{Name: "notification", Value: msg.kind()}},
	}
	id := DispatchIDFrom(ctx)
	if id != "" {
		params.Tags = append(params.Tags, resend.Tag{Name: "dispatch_id", Value: id})
		params.Headers = map[string]string{"X-Entity-Ref-ID": id}
	}

	logger := s.logger.With().Str("notification", msg.kind()).Str("dispatch_id", id).Logger()

	sent, err := s.resendClient.Emails.SendWithContext(ctx, params)
	if err != nil {
		var rateLimitErr *resend.RateLimitError
		if errors.As(err, &rateLimitErr) {
			logger.Warn().
				Str("limit", rateLimitErr.Limit).
				Str("reset", rateLimitErr.Reset).
				Msg("resend rate limit exceeded")
			return fmt.Errorf("%s email rate limited (resets in %ss): %w", msg.kind(), rateLimitErr.Reset, err)
		}
		return fmt.Errorf("send %s email: %w", msg.kind(), err)
	}

	logger.Info().Str("email_id", sent.Id).Msg("notification email accepted")
	return nil
}
